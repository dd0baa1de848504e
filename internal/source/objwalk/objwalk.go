// Package objwalk enumerates object-store keys as discovery items. A root
// spec is "bucket" or "bucket/prefix"; each enumerated item is one object
// key under that prefix.
package objwalk

import (
	"context"
	"fmt"
	"strings"

	"github.com/marcelocantos/capexec/internal/source"
)

// ObjectStore abstracts the minimal object-store operations the adapter
// needs. S3Client implements it against MinIO/S3; LocalStore implements it
// on the local filesystem for tests.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error)
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// ObjectRef is the raw item carried on each Encountered.
type ObjectRef struct {
	Bucket string
	Key    string
}

// Adapter enumerates keys from an ObjectStore.
type Adapter struct {
	Store ObjectStore
}

// Enumerate lists each bucket/prefix spec in order, fetching each object's
// body onto Encountered.Payload. A spec whose bucket does not exist (or
// cannot be parsed) is reported through onInvalid and skipped; the
// remaining specs still enumerate.
func (a *Adapter) Enumerate(ctx context.Context, specs []string, onInvalid source.InvalidSpecFunc) source.Iterator {
	var items []source.Encountered
	for _, spec := range specs {
		bucket, prefix, err := splitSpec(spec)
		if err != nil {
			if onInvalid != nil {
				onInvalid(spec, err.Error())
			}
			continue
		}
		ok, err := a.Store.BucketExists(ctx, bucket)
		if err != nil {
			return source.NewSliceIterator(items, fmt.Errorf("bucket %s: %w", bucket, err))
		}
		if !ok {
			if onInvalid != nil {
				onInvalid(spec, fmt.Sprintf("bucket %s does not exist", bucket))
			}
			continue
		}
		keys, err := a.Store.ListPrefix(ctx, bucket, prefix)
		if err != nil {
			return source.NewSliceIterator(items, fmt.Errorf("list %s: %w", spec, err))
		}
		for _, key := range keys {
			data, err := a.Store.GetObject(ctx, bucket, key)
			if err != nil {
				return source.NewSliceIterator(items, fmt.Errorf("get %s/%s: %w", bucket, key, err))
			}
			items = append(items, source.Encountered{
				Key:     bucket + "/" + key,
				Spec:    spec,
				Item:    ObjectRef{Bucket: bucket, Key: key},
				Payload: data,
			})
		}
	}
	return source.NewSliceIterator(items, nil)
}

// splitSpec parses "bucket" or "bucket/prefix".
func splitSpec(spec string) (bucket, prefix string, err error) {
	spec = strings.Trim(spec, "/")
	if spec == "" {
		return "", "", fmt.Errorf("empty object-store spec")
	}
	bucket, prefix, _ = strings.Cut(spec, "/")
	return bucket, prefix, nil
}
