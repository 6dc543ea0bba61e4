package sqlite

import (
	"context"
	"database/sql"

	"github.com/FocuswithJustin/wmlcompare/core/comparer"
	"github.com/FocuswithJustin/wmlcompare/core/errors"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS revisions (
	id       INTEGER PRIMARY KEY,
	document TEXT    NOT NULL,
	seq      INTEGER NOT NULL,
	author   TEXT    NOT NULL,
	date     TEXT    NOT NULL DEFAULT '',
	type     TEXT    NOT NULL,
	text     TEXT    NOT NULL,
	UNIQUE (document, seq)
);
CREATE INDEX IF NOT EXISTS revisions_author ON revisions (author);
`

// Ledger is a SQLite database of the revisions found in documents. Each document's
// revisions are stored in document order under its name.
type Ledger struct {
	db   *sql.DB
	path string
}

// OpenLedger opens or creates a ledger database.
func OpenLedger(ctx context.Context, path string) (*Ledger, error) {
	db, err := Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.ExecContext(ctx, ledgerSchema); err != nil {
		db.Close()
		return nil, errors.NewIO("initialize", path, err)
	}
	return &Ledger{db: db, path: path}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record replaces the stored revisions of document with revs.
func (l *Ledger) Record(ctx context.Context, document string, revs []comparer.Revision) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewIO("begin", l.path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM revisions WHERE document = ?`, document); err != nil {
		return errors.NewIO("clear", l.path, err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO revisions (document, seq, author, date, type, text) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.NewIO("prepare", l.path, err)
	}
	defer stmt.Close()
	for i, r := range revs {
		if _, err := stmt.ExecContext(ctx, document, i+1, r.Author, r.Date, r.Type.String(), r.Text); err != nil {
			return errors.NewIO("insert", l.path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewIO("commit", l.path, err)
	}
	return nil
}

// Revisions returns the stored revisions of document in order.
func (l *Ledger) Revisions(ctx context.Context, document string) ([]comparer.Revision, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT author, date, type, text FROM revisions WHERE document = ? ORDER BY seq`, document)
	if err != nil {
		return nil, errors.NewIO("query", l.path, err)
	}
	defer rows.Close()

	var out []comparer.Revision
	for rows.Next() {
		var r comparer.Revision
		var typ string
		if err := rows.Scan(&r.Author, &r.Date, &typ, &r.Text); err != nil {
			return nil, errors.NewIO("scan", l.path, err)
		}
		if err := r.Type.UnmarshalText([]byte(typ)); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("query", l.path, err)
	}
	return out, nil
}

// Documents lists the documents with stored revisions, sorted by name.
func (l *Ledger) Documents(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT DISTINCT document FROM revisions ORDER BY document`)
	if err != nil {
		return nil, errors.NewIO("query", l.path, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.NewIO("scan", l.path, err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// AuthorCount is the number of revisions one author made in a document.
type AuthorCount struct {
	Author string
	Count  int
}

// Authors counts the revisions of document per author, most active first.
func (l *Ledger) Authors(ctx context.Context, document string) ([]AuthorCount, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT author, COUNT(*) FROM revisions WHERE document = ? GROUP BY author ORDER BY COUNT(*) DESC, author`,
		document)
	if err != nil {
		return nil, errors.NewIO("query", l.path, err)
	}
	defer rows.Close()

	var out []AuthorCount
	for rows.Next() {
		var c AuthorCount
		if err := rows.Scan(&c.Author, &c.Count); err != nil {
			return nil, errors.NewIO("scan", l.path, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
