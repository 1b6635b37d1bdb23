package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/elazar/flystream/internal/backend"
	"github.com/elazar/flystream/internal/backend/aferofs"
	"github.com/elazar/flystream/internal/backend/minio"
	"github.com/elazar/flystream/internal/backend/s3"
	"github.com/elazar/flystream/internal/configuration"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// newBackend builds the storage selected by cfg.
func newBackend(ctx context.Context, cfg *configuration.Config) (backend.Filesystem, error) {
	switch cfg.Backend {
	case configuration.BackendMemory:
		return aferofs.NewMemory(), nil

	case configuration.BackendLocal:
		return aferofs.NewLocal(cfg.Root), nil

	case configuration.BackendMinio:
		client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}

		return minio.New(client, cfg.Bucket, cfg.Prefix), nil

	case configuration.BackendS3:
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}

		return s3.New(client, cfg.Bucket, cfg.Prefix), nil

	default:
		return nil, fmt.Errorf("%w: %q", configuration.ErrUnknownBackend, cfg.Backend)
	}
}

// newS3Client loads the default AWS configuration chain. Explicit keys,
// region and endpoint from cfg take precedence.
func newS3Client(ctx context.Context, cfg *configuration.Config) (*awss3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	if cfg.AccessKey != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			Source:          "flystream",
		}
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.NewCredentialsCache(
			aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
				return creds, nil
			}),
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws configuration: %w", err)
	}

	return awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg.Endpoint, cfg.Secure))
			o.UsePathStyle = true
		}
	}), nil
}

func endpointURL(endpoint string, secure bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}

	if secure {
		return "https://" + endpoint
	}

	return "http://" + endpoint
}
