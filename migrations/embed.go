// Package migrations embeds the PostgreSQL schema migrations.
package migrations

import "embed"

// FS holds the numbered NNN_name.sql files.
//
//go:embed *.sql
var FS embed.FS
