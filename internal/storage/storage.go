package storage

import "context"

// ObjectStore persists uploaded source images and generated results and
// hands out the public URL shown in the result payload.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}
