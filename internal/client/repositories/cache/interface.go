// Package cache persists the last successful response body of each read
// path so reads keep working while the remote API is unreachable.
package cache

import (
	"context"
	"time"
)

// Entry is one cached response.
type Entry struct {
	Path      string
	Body      []byte
	UpdatedAt time.Time
}

type Repository interface {
	// Get returns the entry for path; ok is false when nothing is cached.
	Get(ctx context.Context, path string) (entry Entry, ok bool, err error)
	Put(ctx context.Context, path string, body []byte) error
	Delete(ctx context.Context, path string) error
	Paths(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}
