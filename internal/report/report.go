// Package report writes the revisions of a document as text, JSON, or rows of a
// SQLite ledger.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/FocuswithJustin/wmlcompare/core/comparer"
	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/sqlite"
	"golang.org/x/term"
)

// Format is an output format for a revision report.
type Format string

// Supported formats.
const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite"
)

// ParseFormat converts a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatSQLite:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", errors.NewValidationf("format", "unknown report format %q", s)
}

// Report is the list of revisions found in one document.
type Report struct {
	Document  string              `json:"document"`
	Revisions []comparer.Revision `json:"revisions"`
	// Counts is the number of revisions per type name.
	Counts map[string]int `json:"counts"`
	// Authors is the number of revisions per author.
	Authors map[string]int `json:"authors"`
}

// New builds a report.
func New(document string, revs []comparer.Revision) *Report {
	r := &Report{
		Document:  document,
		Revisions: revs,
		Counts:    make(map[string]int),
		Authors:   make(map[string]int),
	}
	if r.Revisions == nil {
		r.Revisions = []comparer.Revision{}
	}
	for _, rev := range revs {
		r.Counts[rev.Type.String()]++
		r.Authors[rev.Author]++
	}
	return r
}

// ToJSON serializes the report to JSON.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ANSI colors per revision type.
const colorReset = "\x1b[0m"

var typeColors = map[comparer.RevisionType]string{
	comparer.RevisionInserted:              "\x1b[32m",
	comparer.RevisionDeleted:               "\x1b[31m",
	comparer.RevisionParagraphMarkInserted: "\x1b[36m",
	comparer.RevisionParagraphMarkDeleted:  "\x1b[35m",
	comparer.RevisionFormattingChanged:     "\x1b[33m",
}

// WriteText writes one line per revision followed by a summary. With color set, the
// revision type is colored.
func (r *Report) WriteText(w io.Writer, color bool) error {
	if _, err := fmt.Fprintf(w, "%s\n", r.Document); err != nil {
		return err
	}
	for i, rev := range r.Revisions {
		typ := fmt.Sprintf("%-21s", rev.Type)
		if c, ok := typeColors[rev.Type]; ok && color {
			typ = c + typ + colorReset
		}
		date := rev.Date
		if date == "" {
			date = "-"
		}
		if _, err := fmt.Fprintf(w, "%4d  %s  %-16s %-20s %q\n", i+1, typ, rev.Author, date, rev.Text); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d revisions%s\n", len(r.Revisions), r.summary())
	return err
}

func (r *Report) summary() string {
	if len(r.Counts) == 0 {
		return ""
	}
	names := make([]string, 0, len(r.Counts))
	for name := range r.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %d", name, r.Counts[name])
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// Save records the report in the ledger at path, replacing earlier rows for the same
// document.
func (r *Report) Save(ctx context.Context, path string) error {
	l, err := sqlite.OpenLedger(ctx, path)
	if err != nil {
		return err
	}
	defer l.Close()
	return l.Record(ctx, r.Document, r.Revisions)
}

// Write writes the report to w in a text or JSON format.
func (r *Report) Write(w io.Writer, format Format, color bool) error {
	switch format {
	case FormatText:
		return r.WriteText(w, color)
	case FormatJSON:
		data, err := r.ToJSON()
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}
	return errors.NewUnsupported(r.Document, "report format "+string(format), "ledger reports are saved, not written")
}

// ColorEnabled reports whether colored output suits f: it must be a terminal and
// NO_COLOR must be unset.
func ColorEnabled(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
