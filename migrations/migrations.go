// Package migrations embeds database schema migrations.
package migrations

import "embed"

//go:embed sql/*.sql
var FS embed.FS

// Dir is the subdirectory within FS containing migration files.
const Dir = "sql"
