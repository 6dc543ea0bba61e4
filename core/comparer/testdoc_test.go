package comparer

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/FocuswithJustin/wmlcompare/core/xml"
)

const wordNamespaces = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"`

// body wraps block content in a w:document.
func body(blocks ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document ` + wordNamespaces + `><w:body>` + strings.Join(blocks, "") +
		`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/></w:sectPr></w:body></w:document>`
}

// para builds a paragraph with one run per text.
func para(texts ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	for _, t := range texts {
		sb.WriteString(run(t))
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

func run(text string) string {
	return `<w:r><w:t xml:space="preserve">` + text + `</w:t></w:r>`
}

func table(rows ...[]string) string {
	var sb strings.Builder
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	sb.WriteString("<w:tbl><w:tblGrid>")
	for i := 0; i < cols; i++ {
		sb.WriteString(`<w:gridCol w:w="2000"/>`)
	}
	sb.WriteString("</w:tblGrid>")
	for _, r := range rows {
		sb.WriteString("<w:tr>")
		for _, c := range r {
			sb.WriteString("<w:tc>" + para(c) + "</w:tc>")
		}
		sb.WriteString("</w:tr>")
	}
	sb.WriteString("</w:tbl>")
	return sb.String()
}

func mustSource(t *testing.T, name, data string) Source {
	t.Helper()
	doc, err := xml.Parse([]byte(data))
	if err != nil {
		t.Fatalf("parse %s: %v", name, err)
	}
	return Source{Name: name, Tree: doc}
}

func testSettings() Settings {
	s := DefaultSettings()
	s.AuthorForRevisions = "tester"
	s.DateTimeForRevisions = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return s
}

func mustCompare(t *testing.T, s Settings, left, right Source) *Result {
	t.Helper()
	res, err := New(s).Compare(context.Background(), left, right)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	return res
}

func mustRevisions(t *testing.T, doc *xml.Document) []Revision {
	t.Helper()
	revs, err := Revisions(doc)
	if err != nil {
		t.Fatalf("Revisions: %v", err)
	}
	return revs
}

// paragraphTexts returns the visible text of every paragraph in document order.
func paragraphTexts(t *testing.T, doc *xml.Document) []string {
	t.Helper()
	paras, err := doc.Select("//w:p")
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, len(paras))
	for i, p := range paras {
		out[i] = revisionText(doc, p)
	}
	return out
}

func accepted(t *testing.T, doc *xml.Document) []string {
	t.Helper()
	acc, err := AcceptRevisions(doc)
	if err != nil {
		t.Fatalf("AcceptRevisions: %v", err)
	}
	return paragraphTexts(t, acc)
}

func rejected(t *testing.T, doc *xml.Document) []string {
	t.Helper()
	rej, err := RejectRevisions(doc)
	if err != nil {
		t.Fatalf("RejectRevisions: %v", err)
	}
	return paragraphTexts(t, rej)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
