package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	apperrors "github.com/themisguard/datashield/internal/errors"
	"github.com/themisguard/datashield/internal/tenant"
)

const (
	// maxSignedURLExpiry caps export download links at one hour.
	maxSignedURLExpiry = time.Hour

	// maxExportBundleAge is the retention ceiling for export bundles.
	maxExportBundleAge = 7 * 24 * time.Hour
)

// ErrObjectNotFound indicates no object exists at the key.
var ErrObjectNotFound = apperrors.Wrap(apperrors.ErrNotFound, "object not found")

// ObjectStore wraps a blob bucket with tenant-scoped operations. The bucket
// backend (S3, local filesystem, in-memory) is chosen by the bucket URL at
// startup.
type ObjectStore struct {
	bucket *blob.Bucket
}

// NewObjectStore creates an ObjectStore over an open bucket.
func NewObjectStore(bucket *blob.Bucket) *ObjectStore {
	return &ObjectStore{
		bucket: bucket,
	}
}

// Put writes an object.
func (s *ObjectStore) Put(ctx context.Context, key string, data []byte) error {
	return s.bucket.WriteAll(ctx, key, data, nil)
}

// Get reads an object.
func (s *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, ErrObjectNotFound
	}
	return data, err
}

// Delete removes an object.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return err
}

// DeletePrefix removes every object under the prefix and returns the count.
func (s *ObjectStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})

	deleted := 0
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return deleted, err
		}
		if err := s.bucket.Delete(ctx, obj.Key); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// CountPrefix returns the number of objects under the prefix. Hard-delete
// verification uses a zero count as its read-back check.
func (s *ObjectStore) CountPrefix(ctx context.Context, prefix string) (int, error) {
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})

	count := 0
	for {
		_, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// PutExportBundle writes a data export bundle under the tenant's export
// prefix and returns its key. Bundles are named by creation time so expired
// ones can be swept by age.
func (s *ObjectStore) PutExportBundle(ctx context.Context, scope tenant.Scope, data []byte) (string, error) {
	key := fmt.Sprintf("%s%s.zip", scope.ExportPrefix(), time.Now().UTC().Format("20060102T150405Z"))
	if err := s.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return "", err
	}
	return key, nil
}

// SignedURL returns a time-limited download link for an object. The expiry is
// clamped to one hour.
func (s *ObjectStore) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 || expiry > maxSignedURLExpiry {
		expiry = maxSignedURLExpiry
	}
	return s.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{Expiry: expiry})
}

// SweepExportBundles deletes export bundles older than the bundle retention
// ceiling and returns the count removed.
func (s *ObjectStore) SweepExportBundles(ctx context.Context, scope tenant.Scope, now time.Time) (int, error) {
	iter := s.bucket.List(&blob.ListOptions{Prefix: scope.ExportPrefix()})

	deleted := 0
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return deleted, err
		}
		if now.Sub(obj.ModTime) <= maxExportBundleAge {
			continue
		}
		if err := s.bucket.Delete(ctx, obj.Key); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// Close releases the underlying bucket.
func (s *ObjectStore) Close() error {
	return s.bucket.Close()
}
