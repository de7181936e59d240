// Package migrations embeds the goose migrations of the local store's sync
// infrastructure tables. Feature tables created at runtime through
// store.EnsureTable are not listed here.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
