package migrations

import "embed"

// Files stores forward-only SQL migrations for the sqlite collection store.
//
//go:embed *.sql
var Files embed.FS
