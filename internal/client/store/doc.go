// Package store is the client's on-device relational store. It opens the
// SQLite database, applies the embedded goose migrations and exposes a
// small statement API (EnsureTable, Execute, WithTx) used by the feature
// repositories and by the sync infrastructure.
package store
