// Package db embeds the SQL migration files shipped with the binary.
package db

import "embed"

// MigrationsFS holds the migration files under migrations/. Pass it through
// fs.Sub before handing it to the migrate runner, which expects the .sql
// files at the root of the fs.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
