package postgres

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.up.sql
var migrationFiles embed.FS

// Migrations returns the embedded migration files with the directory prefix
// stripped, ready for database.RunMigrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		// The embed directive guarantees the directory exists.
		panic(err)
	}
	return sub
}
