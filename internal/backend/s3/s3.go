// Package s3 implements [backend.Filesystem] on Amazon S3 using the AWS SDK.
//
// Directories follow the same convention as the MinIO adapter: a marker
// object whose key ends in a slash, or any key under the directory prefix.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/elazar/flystream/internal/backend"
	"golang.org/x/sync/errgroup"
)

const (
	metaVisibility     = "visibility"
	defaultPartSize    = 8 * 1024 * 1024
	defaultConcurrency = 5
	deleteConcurrency  = 8
)

// Client is the subset of the S3 API the [Filesystem] uses.
type Client interface {
	manager.UploadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ backend.Filesystem = (*Filesystem)(nil)

// Filesystem is a [backend.Filesystem] over a single S3 bucket.
type Filesystem struct {
	client   Client
	bucket   string
	prefix   string
	uploader *manager.Uploader
}

// New returns a [Filesystem] over bucket. rootPrefix is prepended to all
// object keys.
func New(client Client, bucket, rootPrefix string) *Filesystem {
	return &Filesystem{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(rootPrefix, "/"),
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = defaultPartSize
			u.Concurrency = defaultConcurrency
		}),
	}
}

func (f *Filesystem) key(name string) string {
	return strings.TrimPrefix(path.Join(f.prefix, name), "/")
}

func (f *Filesystem) dirKey(name string) string {
	if key := f.key(name); key != "" {
		return key + "/"
	}

	return ""
}

func (f *Filesystem) relative(key string) string {
	return strings.Trim(strings.TrimPrefix(key, f.prefix), "/")
}

func (f *Filesystem) Read(ctx context.Context, name string) ([]byte, error) {
	r, err := f.ReadStream(ctx, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("(s3) failed to read %s: %w", name, err)
	}

	return data, nil
}

func (f *Filesystem) ReadStream(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key(name)),
	})
	if err != nil {
		return nil, fmt.Errorf("(s3) failed to get %s: %w", name, translate(err))
	}

	return out.Body, nil
}

func (f *Filesystem) Write(ctx context.Context, name string, data []byte, opts backend.Options) error {
	return f.WriteStream(ctx, name, bytes.NewReader(data), opts)
}

func (f *Filesystem) WriteStream(ctx context.Context, name string, r io.Reader, opts backend.Options) error {
	vis := opts.Visibility(backend.OptionVisibility, backend.VisibilityPublic)

	_, err := f.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(f.bucket),
		Key:      aws.String(f.key(name)),
		Body:     r,
		Metadata: map[string]string{metaVisibility: string(vis)},
	})
	if err != nil {
		return fmt.Errorf("(s3) failed to upload %s: %w", name, err)
	}

	return nil
}

func (f *Filesystem) Delete(ctx context.Context, name string) error {
	return f.deleteKey(ctx, f.key(name))
}

func (f *Filesystem) deleteKey(ctx context.Context, key string) error {
	_, err := f.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("(s3) failed to delete %s: %w", key, err)
	}

	return nil
}

func (f *Filesystem) Move(ctx context.Context, src string, dst string, opts backend.Options) error {
	if err := f.Copy(ctx, src, dst, opts); err != nil {
		return err
	}

	return f.Delete(ctx, src)
}

func (f *Filesystem) Copy(ctx context.Context, src string, dst string, opts backend.Options) error {
	input := &s3.CopyObjectInput{
		Bucket:     aws.String(f.bucket),
		Key:        aws.String(f.key(dst)),
		CopySource: aws.String(copySource(f.bucket, f.key(src))),
	}
	if _, ok := opts[backend.OptionVisibility]; ok {
		vis := opts.Visibility(backend.OptionVisibility, backend.VisibilityPublic)
		input.Metadata = map[string]string{metaVisibility: string(vis)}
		input.MetadataDirective = types.MetadataDirectiveReplace
	}

	if _, err := f.client.CopyObject(ctx, input); err != nil {
		return fmt.Errorf("(s3) failed to copy %s to %s: %w", src, dst, translate(err))
	}

	return nil
}

func (f *Filesystem) CreateDirectory(ctx context.Context, name string, opts backend.Options) error {
	key := f.dirKey(name)
	if key == "" {
		return nil
	}

	vis := opts.Visibility(backend.OptionDirectoryVisibility, backend.VisibilityPublic)

	_, err := f.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(f.bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(nil),
		Metadata: map[string]string{metaVisibility: string(vis)},
	})
	if err != nil {
		return fmt.Errorf("(s3) failed to create directory %s: %w", name, err)
	}

	return nil
}

// DeleteDirectory removes every object under the directory prefix,
// deleting each page of keys concurrently.
func (f *Filesystem) DeleteDirectory(ctx context.Context, name string) error {
	paginator := s3.NewListObjectsV2Paginator(f.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(f.bucket),
		Prefix: aws.String(f.dirKey(name)),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("(s3) failed to list %s: %w", name, err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(deleteConcurrency)

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			g.Go(func() error {
				return f.deleteKey(gctx, key)
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}

	return nil
}

func (f *Filesystem) FileExists(ctx context.Context, name string) (bool, error) {
	_, err := f.head(ctx, f.key(name))
	if isNotFound(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("(s3) failed to head %s: %w", name, err)
	}

	return true, nil
}

func (f *Filesystem) DirectoryExists(ctx context.Context, name string) (bool, error) {
	prefix := f.dirKey(name)
	if prefix == "" {
		return true, nil
	}

	out, err := f.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(f.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("(s3) failed to list %s: %w", name, err)
	}

	return len(out.Contents) > 0 || len(out.CommonPrefixes) > 0, nil
}

func (f *Filesystem) ListContents(ctx context.Context, name string, recursive bool) iter.Seq2[backend.Entry, error] {
	return func(yield func(backend.Entry, error) bool) {
		prefix := f.dirKey(name)

		input := &s3.ListObjectsV2Input{
			Bucket: aws.String(f.bucket),
			Prefix: aws.String(prefix),
		}
		if !recursive {
			input.Delimiter = aws.String("/")
		}

		paginator := s3.NewListObjectsV2Paginator(f.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(backend.Entry{}, fmt.Errorf("(s3) failed to list %s: %w", name, err))

				return
			}

			for _, cp := range page.CommonPrefixes {
				if !yield(backend.Entry{Path: f.relative(aws.ToString(cp.Prefix)), IsDir: true}, nil) {
					return
				}
			}

			for _, obj := range page.Contents {
				key := aws.ToString(obj.Key)
				if key == prefix {
					continue
				}

				entry := backend.Entry{
					Path:  f.relative(key),
					IsDir: strings.HasSuffix(key, "/"),
				}
				if !entry.IsDir {
					entry.Size = aws.ToInt64(obj.Size)
				}
				if obj.LastModified != nil {
					entry.LastModified = obj.LastModified.Unix()
				}

				if !yield(entry, nil) {
					return
				}
			}
		}
	}
}

func (f *Filesystem) FileSize(ctx context.Context, name string) (int64, error) {
	out, err := f.head(ctx, f.key(name))
	if err != nil {
		return 0, fmt.Errorf("(s3) failed to head %s: %w", name, translate(err))
	}

	return aws.ToInt64(out.ContentLength), nil
}

func (f *Filesystem) LastModified(ctx context.Context, name string) (int64, error) {
	out, err := f.stat(ctx, name)
	if err != nil {
		return 0, err
	}
	if out.LastModified == nil {
		return 0, nil
	}

	return out.LastModified.Unix(), nil
}

func (f *Filesystem) Visibility(ctx context.Context, name string) (backend.Visibility, error) {
	out, err := f.stat(ctx, name)
	if err != nil {
		return "", err
	}

	for k, v := range out.Metadata {
		if strings.EqualFold(k, metaVisibility) {
			if vis := backend.Visibility(v); vis.Valid() {
				return vis, nil
			}
		}
	}

	return backend.VisibilityPublic, nil
}

func (f *Filesystem) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	return f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
}

// stat looks up a file object, then a directory marker object. Directories
// existing only by prefix report zero values.
func (f *Filesystem) stat(ctx context.Context, name string) (*s3.HeadObjectOutput, error) {
	out, err := f.head(ctx, f.key(name))
	if err == nil {
		return out, nil
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("(s3) failed to head %s: %w", name, err)
	}

	if key := f.dirKey(name); key != "" {
		out, err = f.head(ctx, key)
		if err == nil {
			return out, nil
		} else if !isNotFound(err) {
			return nil, fmt.Errorf("(s3) failed to head %s: %w", name, err)
		}
	}

	exists, err := f.DirectoryExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("(s3) failed to head %s: %w", name, backend.ErrNotExist)
	}

	return &s3.HeadObjectOutput{}, nil
}

func copySource(bucket, key string) string {
	segments := strings.Split(bucket+"/"+key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return strings.Join(segments, "/")
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	var nsk *types.NoSuchKey

	return errors.As(err, &nsk)
}

func translate(err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %w", backend.ErrNotExist, err)
	}

	return err
}
