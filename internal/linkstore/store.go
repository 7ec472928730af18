// Package linkstore persists the normalized links that have been published.
package linkstore

import "context"

// Store is an append-only set of normalized links. Inserting a link that is
// already present is not an error.
type Store interface {
	Exists(ctx context.Context, link string) (bool, error)
	Insert(ctx context.Context, link string) error
	InsertBulk(ctx context.Context, links []string) error
	ListAll(ctx context.Context) ([]string, error)
	Close() error
}
