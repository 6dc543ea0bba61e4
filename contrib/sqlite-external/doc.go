// Package sqliteexternal provides the optional CGO SQLite driver.
//
// To use the CGO driver (github.com/mattn/go-sqlite3) for revision ledgers:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./cmd/wmlcompare
//
// By default wmlcompare uses the pure Go modernc.org/sqlite driver, which needs no C
// toolchain and cross-compiles. See github.com/FocuswithJustin/wmlcompare/core/sqlite.
package sqliteexternal
