// Package migrations embeds the SQL schema files so the migrate binary can
// run without the source tree present.
package migrations

import "embed"

//go:embed sql/*.sql
var FS embed.FS

// Dir is the embedded path holding the migration files.
const Dir = "sql"
