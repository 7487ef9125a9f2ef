package storage

import "context"

// ObjectStore is the subset of an S3-compatible bucket the services need.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType, cacheControl string) error
	// List returns at most limit keys under prefix in lexical order.
	List(ctx context.Context, prefix string, limit int) ([]string, error)
	PublicURL(key string) string
}
