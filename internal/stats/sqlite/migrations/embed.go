package migrations

import "embed"

// FS contains embedded SQLite migrations for run statistics storage.
//
//go:embed *.sql
var FS embed.FS
