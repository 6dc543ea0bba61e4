//go:build cgo_sqlite

// Package sqliteexternal registers the CGO SQLite driver (mattn/go-sqlite3) used by
// core/sqlite when the cgo_sqlite build tag is set.
//
// Requires: CGO_ENABLED=1
package sqliteexternal

import (
	_ "github.com/mattn/go-sqlite3" // CGO SQLite driver
)

const (
	// DriverName is the SQL driver name to use with database/sql.
	DriverName = "sqlite3"

	// DriverPackage is the import path of the underlying driver.
	DriverPackage = "github.com/mattn/go-sqlite3"
)
