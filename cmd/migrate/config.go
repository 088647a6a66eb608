package main

import (
	"io/fs"
	"os"

	"bookcatalog/db/migrations"
)

const sourceDir = "db/migrations"

// migrationSource returns the filesystem goose reads from and the directory
// inside it. MIGRATIONS_DIR switches from the embedded files to a directory
// on disk.
func migrationSource() (fs.FS, string) {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return os.DirFS(v), "."
	}
	return migrations.FS, "."
}

// createDir is where new migration files are written.
func createDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return sourceDir
}
