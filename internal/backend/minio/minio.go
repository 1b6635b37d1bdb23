// Package minio implements [backend.Filesystem] on MinIO and other
// S3-compatible object storage using the MinIO client.
//
// Object stores have no real directories. A directory is represented by a
// zero-length marker object whose key ends in a slash, and any key sharing
// a directory's prefix also makes that directory exist.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"path"
	"strings"

	"github.com/elazar/flystream/internal/backend"
	"github.com/minio/minio-go/v7"
)

const metaVisibility = "Visibility"

var _ backend.Filesystem = (*Filesystem)(nil)

// Filesystem is a [backend.Filesystem] over a single MinIO bucket.
type Filesystem struct {
	client *minio.Client
	bucket string
	prefix string
}

// New returns a [Filesystem] over bucket. rootPrefix is prepended to all
// object keys, allowing several filesystems to share one bucket.
func New(client *minio.Client, bucket, rootPrefix string) *Filesystem {
	return &Filesystem{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(rootPrefix, "/"),
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
	rel := strings.TrimPrefix(key, f.prefix)

	return strings.Trim(rel, "/")
}

func (f *Filesystem) Read(ctx context.Context, name string) ([]byte, error) {
	r, err := f.ReadStream(ctx, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("(minio) failed to read %s: %w", name, err)
	}

	return data, nil
}

func (f *Filesystem) ReadStream(ctx context.Context, name string) (io.ReadCloser, error) {
	key := f.key(name)

	// GetObject defers errors to the first read, so missing objects are
	// detected up front.
	if _, err := f.client.StatObject(ctx, f.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, fmt.Errorf("(minio) failed to stat %s: %w", name, translate(err))
	}

	obj, err := f.client.GetObject(ctx, f.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("(minio) failed to open %s: %w", name, translate(err))
	}

	return obj, nil
}

func (f *Filesystem) Write(ctx context.Context, name string, data []byte, opts backend.Options) error {
	return f.put(ctx, f.key(name), bytes.NewReader(data), int64(len(data)), opts)
}

func (f *Filesystem) WriteStream(ctx context.Context, name string, r io.Reader, opts backend.Options) error {
	return f.put(ctx, f.key(name), r, -1, opts)
}

func (f *Filesystem) put(ctx context.Context, key string, r io.Reader, size int64, opts backend.Options) error {
	vis := opts.Visibility(backend.OptionVisibility, backend.VisibilityPublic)

	_, err := f.client.PutObject(ctx, f.bucket, key, r, size, minio.PutObjectOptions{
		UserMetadata: map[string]string{metaVisibility: string(vis)},
	})
	if err != nil {
		return fmt.Errorf("(minio) failed to put %s: %w", key, translate(err))
	}

	return nil
}

func (f *Filesystem) Delete(ctx context.Context, name string) error {
	err := f.client.RemoveObject(ctx, f.bucket, f.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("(minio) failed to delete %s: %w", name, err)
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
	dstOpts := minio.CopyDestOptions{
		Bucket: f.bucket,
		Object: f.key(dst),
	}
	if _, ok := opts[backend.OptionVisibility]; ok {
		vis := opts.Visibility(backend.OptionVisibility, backend.VisibilityPublic)
		dstOpts.UserMetadata = map[string]string{metaVisibility: string(vis)}
		dstOpts.ReplaceMetadata = true
	}

	_, err := f.client.CopyObject(ctx, dstOpts, minio.CopySrcOptions{
		Bucket: f.bucket,
		Object: f.key(src),
	})
	if err != nil {
		return fmt.Errorf("(minio) failed to copy %s to %s: %w", src, dst, translate(err))
	}

	return nil
}

func (f *Filesystem) CreateDirectory(ctx context.Context, name string, opts backend.Options) error {
	key := f.dirKey(name)
	if key == "" {
		return nil
	}

	vis := opts.Visibility(backend.OptionDirectoryVisibility, backend.VisibilityPublic)

	_, err := f.client.PutObject(ctx, f.bucket, key, bytes.NewReader(nil), 0, minio.PutObjectOptions{
		UserMetadata: map[string]string{metaVisibility: string(vis)},
	})
	if err != nil {
		return fmt.Errorf("(minio) failed to create directory %s: %w", name, translate(err))
	}

	return nil
}

func (f *Filesystem) DeleteDirectory(ctx context.Context, name string) error {
	objects := f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{
		Prefix:    f.dirKey(name),
		Recursive: true,
	})

	for rErr := range f.client.RemoveObjects(ctx, f.bucket, objects, minio.RemoveObjectsOptions{}) {
		if rErr.Err != nil && !isNotFound(rErr.Err) {
			return fmt.Errorf("(minio) failed to delete %s: %w", rErr.ObjectName, rErr.Err)
		}
	}

	return nil
}

func (f *Filesystem) FileExists(ctx context.Context, name string) (bool, error) {
	_, err := f.client.StatObject(ctx, f.bucket, f.key(name), minio.StatObjectOptions{})
	if isNotFound(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("(minio) failed to stat %s: %w", name, err)
	}

	return true, nil
}

func (f *Filesystem) DirectoryExists(ctx context.Context, name string) (bool, error) {
	prefix := f.dirKey(name)
	if prefix == "" {
		return true, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
		MaxKeys:   1,
	}) {
		if obj.Err != nil {
			return false, fmt.Errorf("(minio) failed to list %s: %w", name, obj.Err)
		}

		return true, nil
	}

	return false, nil
}

func (f *Filesystem) ListContents(ctx context.Context, name string, recursive bool) iter.Seq2[backend.Entry, error] {
	return func(yield func(backend.Entry, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		prefix := f.dirKey(name)

		for obj := range f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: recursive,
		}) {
			if obj.Err != nil {
				yield(backend.Entry{}, fmt.Errorf("(minio) failed to list %s: %w", name, obj.Err))

				return
			}
			if obj.Key == prefix {
				continue
			}

			entry := backend.Entry{
				Path:  f.relative(obj.Key),
				IsDir: strings.HasSuffix(obj.Key, "/"),
			}
			if !entry.IsDir {
				entry.Size = obj.Size
			}
			if !obj.LastModified.IsZero() {
				entry.LastModified = obj.LastModified.Unix()
			}

			if !yield(entry, nil) {
				return
			}
		}
	}
}

func (f *Filesystem) FileSize(ctx context.Context, name string) (int64, error) {
	info, err := f.client.StatObject(ctx, f.bucket, f.key(name), minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("(minio) failed to stat %s: %w", name, translate(err))
	}

	return info.Size, nil
}

func (f *Filesystem) LastModified(ctx context.Context, name string) (int64, error) {
	info, err := f.stat(ctx, name)
	if err != nil {
		return 0, err
	}

	return info.LastModified.Unix(), nil
}

func (f *Filesystem) Visibility(ctx context.Context, name string) (backend.Visibility, error) {
	info, err := f.stat(ctx, name)
	if err != nil {
		return "", err
	}

	for k, v := range info.UserMetadata {
		if strings.EqualFold(k, metaVisibility) {
			if vis := backend.Visibility(v); vis.Valid() {
				return vis, nil
			}
		}
	}

	return backend.VisibilityPublic, nil
}

// stat looks up a file object, then a directory marker object. Directories
// existing only by prefix report zero values.
func (f *Filesystem) stat(ctx context.Context, name string) (minio.ObjectInfo, error) {
	info, err := f.client.StatObject(ctx, f.bucket, f.key(name), minio.StatObjectOptions{})
	if err == nil {
		return info, nil
	} else if !isNotFound(err) {
		return minio.ObjectInfo{}, fmt.Errorf("(minio) failed to stat %s: %w", name, err)
	}

	if key := f.dirKey(name); key != "" {
		info, err = f.client.StatObject(ctx, f.bucket, key, minio.StatObjectOptions{})
		if err == nil {
			return info, nil
		} else if !isNotFound(err) {
			return minio.ObjectInfo{}, fmt.Errorf("(minio) failed to stat %s: %w", name, err)
		}
	}

	exists, err := f.DirectoryExists(ctx, name)
	if err != nil {
		return minio.ObjectInfo{}, err
	}
	if !exists {
		return minio.ObjectInfo{}, fmt.Errorf("(minio) failed to stat %s: %w", name, backend.ErrNotExist)
	}

	return minio.ObjectInfo{}, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	code := minio.ToErrorResponse(err).Code

	return code == "NoSuchKey" || code == "NotFound"
}

func translate(err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %w", backend.ErrNotExist, err)
	}

	return err
}
