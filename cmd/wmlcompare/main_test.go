package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FocuswithJustin/wmlcompare/core/comparer"
	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/sqlite"
	"github.com/FocuswithJustin/wmlcompare/internal/archive"
)

// Test helper functions

func document(paras ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>` +
		strings.Join(paras, "") + `<w:sectPr/></w:body></w:document>`
}

func para(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

const trackedPara = `<w:p><w:r><w:t xml:space="preserve">Keep </w:t></w:r>` +
	`<w:ins w:id="1" w:author="Ann" w:date="2024-01-01T00:00:00Z"><w:r><w:t>new</w:t></w:r></w:ins>` +
	`<w:del w:id="2" w:author="Ben"><w:r><w:delText>old</w:delText></w:r></w:del></w:p>`

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

// captureOutput redirects command output for the duration of the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })
	return &buf
}

// withRevisionIdentity fixes the author and date written on generated revisions.
func withRevisionIdentity(t *testing.T, author, date string) {
	t.Helper()
	oldAuthor, oldDate := CLI.Author, CLI.Date
	CLI.Author, CLI.Date = author, date
	t.Cleanup(func() { CLI.Author, CLI.Date = oldAuthor, oldDate })
}

func mainRevisions(t *testing.T, path string) []comparer.Revision {
	t.Helper()
	pkg, err := archive.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	doc, err := pkg.Tree(pkg.MainPart())
	if err != nil {
		t.Fatal(err)
	}
	revs, err := comparer.Revisions(doc)
	if err != nil {
		t.Fatal(err)
	}
	return revs
}

func mainText(t *testing.T, path string) string {
	t.Helper()
	pkg, err := archive.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	doc, err := pkg.Tree(pkg.MainPart())
	if err != nil {
		t.Fatal(err)
	}
	return doc.InnerText(doc.Root())
}

// Tests for CompareCmd

func TestCompareCmd_Run(t *testing.T) {
	dir := t.TempDir()
	out := captureOutput(t)
	withRevisionIdentity(t, "Tester", "2024-05-01T12:00:00Z")

	cmd := &CompareCmd{
		Left:  createTestFile(t, dir, "left.xml", document(para("The quick fox"))),
		Right: createTestFile(t, dir, "right.xml", document(para("The slow fox"))),
		Out:   filepath.Join(dir, "out", "result.docx"),
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "revisions written to") {
		t.Errorf("output = %q", out.String())
	}

	revs := mainRevisions(t, cmd.Out)
	found := map[comparer.RevisionType]string{}
	for _, r := range revs {
		if r.Author != "Tester" || r.Date != "2024-05-01T12:00:00Z" {
			t.Errorf("revision %+v has wrong author or date", r)
		}
		found[r.Type] += r.Text
	}
	if found[comparer.RevisionDeleted] != "quick" || found[comparer.RevisionInserted] != "slow" {
		t.Errorf("revisions = %+v", revs)
	}
}

func TestCompareCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	captureOutput(t)
	left := createTestFile(t, dir, "left.xml", document(para("a")))
	right := createTestFile(t, dir, "right.xml", document(para("b")))

	tests := []struct {
		name   string
		cmd    CompareCmd
		target error
	}{
		{"unsupported output", CompareCmd{Left: left, Right: right, Out: filepath.Join(dir, "out.pdf")}, errors.ErrUnsupported},
		{"bad ratio", CompareCmd{MatchFlags: MatchFlags{MinMatchRatio: 2}, Left: left, Right: right, Out: filepath.Join(dir, "out.xml")}, errors.ErrInvalidInput},
		{"not xml", CompareCmd{Left: createTestFile(t, dir, "junk.xml", "plain text"), Right: right, Out: filepath.Join(dir, "out.xml")}, errors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Run()
			if !errors.Is(err, tt.target) {
				t.Errorf("Run() = %v, want %v", err, tt.target)
			}
		})
	}

	withRevisionIdentity(t, "Tester", "yesterday")
	cmd := CompareCmd{Left: left, Right: right, Out: filepath.Join(dir, "out.xml")}
	if err := cmd.Run(); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("invalid --date: %v", err)
	}
}

func TestMatchFlags_settings(t *testing.T) {
	withRevisionIdentity(t, "", "")
	f := MatchFlags{CaseInsensitive: true, Detail: "atom", TieBreak: "right", NoFormatting: true}
	s, err := f.settings()
	if err != nil {
		t.Fatal(err)
	}
	if !s.CaseInsensitive || s.DetailThreshold != comparer.LevelAtom || s.TieBreak != comparer.PreferEarliestRight || s.TrackFormattingChanges {
		t.Errorf("settings = %+v", s)
	}
	if s.AuthorForRevisions != comparer.DefaultSettings().AuthorForRevisions {
		t.Errorf("empty --author replaced the default: %q", s.AuthorForRevisions)
	}
	if s.MinMatchRatio != 0 {
		t.Errorf("explicit --min-match-ratio 0 became %g", s.MinMatchRatio)
	}

	f.MinMatchRatio = 0.4
	if s, _ = f.settings(); s.MinMatchRatio != 0.4 {
		t.Errorf("MinMatchRatio = %g, want 0.4", s.MinMatchRatio)
	}
}

func TestMatchFlags_settingsDate(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 500, time.UTC)
	oldNow := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = oldNow })

	withRevisionIdentity(t, "", "")
	s, err := (&MatchFlags{}).settings()
	if err != nil {
		t.Fatal(err)
	}
	if want := fixed.Truncate(time.Second); !s.DateTimeForRevisions.Equal(want) {
		t.Errorf("DateTimeForRevisions = %v, want %v", s.DateTimeForRevisions, want)
	}

	withRevisionIdentity(t, "", "2023-01-02T03:04:05Z")
	if s, err = (&MatchFlags{}).settings(); err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC); !s.DateTimeForRevisions.Equal(want) {
		t.Errorf("--date gave %v, want %v", s.DateTimeForRevisions, want)
	}
}

// Tests for ConsolidateCmd

func TestParseRevisor(t *testing.T) {
	tests := []struct {
		in      string
		want    revisorSpec
		wantErr bool
	}{
		{"Bob=bob.docx", revisorSpec{"Bob", "bob.docx", ""}, false},
		{"Bob=bob.docx#ff00aa", revisorSpec{"Bob", "bob.docx", "FF00AA"}, false},
		{"Bob=dir#1/bob.docx", revisorSpec{"Bob", "dir#1/bob.docx", ""}, false},
		{"Bob=a#b.docx#00FF00", revisorSpec{"Bob", "a#b.docx", "00FF00"}, false},
		{"Mary Ann=x=y.docx", revisorSpec{"Mary Ann", "x=y.docx", ""}, false},
		{"bob.docx", revisorSpec{}, true},
		{"=bob.docx", revisorSpec{}, true},
		{"Bob=", revisorSpec{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRevisor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRevisor(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseRevisor(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestConsolidateCmd_Run(t *testing.T) {
	dir := t.TempDir()
	out := captureOutput(t)
	withRevisionIdentity(t, "", "2024-05-01T12:00:00Z")

	cmd := &ConsolidateCmd{
		Original: createTestFile(t, dir, "original.xml", document(para("Value: 10."))),
		Revisor: []string{
			"Bob=" + createTestFile(t, dir, "bob.xml", document(para("Value: 20."))) + "#FFFF00",
			"Mary=" + createTestFile(t, dir, "mary.xml", document(para("Value: 10 units."))),
		},
		Out: filepath.Join(dir, "merged.xml"),
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "from 2 revisors") {
		t.Errorf("output = %q", out.String())
	}

	authors := map[string]bool{}
	for _, r := range mainRevisions(t, cmd.Out) {
		authors[r.Author] = true
	}
	if !authors["Bob"] || !authors["Mary"] || len(authors) != 2 {
		t.Errorf("revision authors = %v", authors)
	}

	cmd.Revisor = []string{"Bob"}
	if err := cmd.Run(); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("malformed --revisor: %v", err)
	}
}

// Tests for RevisionsCmd

func TestRevisionsCmd_Run(t *testing.T) {
	dir := t.TempDir()
	file := createTestFile(t, dir, "tracked.xml", document(trackedPara))

	t.Run("text", func(t *testing.T) {
		out := captureOutput(t)
		if err := (&RevisionsCmd{File: file, Format: "text"}).Run(); err != nil {
			t.Fatal(err)
		}
		for _, want := range []string{"Inserted", "Ann", `"new"`, "Deleted", "Ben", "2 revisions"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("text output lacks %q:\n%s", want, out.String())
			}
		}
		if strings.Contains(out.String(), "\x1b[") {
			t.Error("captured output should not be colored")
		}
	})

	t.Run("json", func(t *testing.T) {
		out := captureOutput(t)
		if err := (&RevisionsCmd{File: file, Format: "json"}).Run(); err != nil {
			t.Fatal(err)
		}
		var decoded struct {
			Revisions []comparer.Revision `json:"revisions"`
		}
		if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded.Revisions) != 2 || decoded.Revisions[1].Text != "old" {
			t.Errorf("revisions = %+v", decoded.Revisions)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		captureOutput(t)
		if err := (&RevisionsCmd{File: file, Format: "sqlite"}).Run(); !errors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("sqlite without --db: %v", err)
		}
		db := filepath.Join(dir, "ledger.db")
		if err := (&RevisionsCmd{File: file, Format: "sqlite", DB: db}).Run(); err != nil {
			t.Fatal(err)
		}
		l, err := sqlite.OpenLedger(context.Background(), db)
		if err != nil {
			t.Fatal(err)
		}
		defer l.Close()
		revs, err := l.Revisions(context.Background(), file)
		if err != nil {
			t.Fatal(err)
		}
		if len(revs) != 2 {
			t.Errorf("ledger revisions = %+v", revs)
		}
	})
}

// Tests for ValidateCmd

func TestValidateCmd_Run(t *testing.T) {
	dir := t.TempDir()
	out := captureOutput(t)
	good := createTestFile(t, dir, "good.xml", document(para("fine")))
	bad := createTestFile(t, dir, "bad.xml", document(para("x"), `<w:altChunk r:id="rId9"/>`))

	if err := (&ValidateCmd{Files: []string{good}}).Run(); err != nil {
		t.Errorf("valid document: %v", err)
	}
	if err := (&ValidateCmd{Files: []string{good, bad}}).Run(); err == nil {
		t.Error("expected failure for a document with an imported chunk")
	}
	if !strings.Contains(out.String(), "ok   "+good) || !strings.Contains(out.String(), "FAIL "+bad) {
		t.Errorf("output = %q", out.String())
	}
}

// Tests for AcceptCmd and RejectCmd

func TestAcceptRejectCmd_Run(t *testing.T) {
	dir := t.TempDir()
	out := captureOutput(t)
	file := createTestFile(t, dir, "tracked.xml", document(trackedPara))

	accepted := filepath.Join(dir, "accepted.xml")
	if err := (&AcceptCmd{File: file, Out: accepted}).Run(); err != nil {
		t.Fatal(err)
	}
	if got := mainText(t, accepted); got != "Keep new" {
		t.Errorf("accepted text = %q", got)
	}
	if revs := mainRevisions(t, accepted); len(revs) != 0 {
		t.Errorf("accepted document still has revisions: %+v", revs)
	}

	rejected := filepath.Join(dir, "rejected.docx")
	if err := (&RejectCmd{File: file, Out: rejected}).Run(); err != nil {
		t.Fatal(err)
	}
	if got := mainText(t, rejected); got != "Keep old" {
		t.Errorf("rejected text = %q", got)
	}
	if !strings.Contains(out.String(), "2 revisions rejected") {
		t.Errorf("output = %q", out.String())
	}
}

func TestVersionCmd_Run(t *testing.T) {
	out := captureOutput(t)
	if err := (&VersionCmd{}).Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "wmlcompare version "+version) {
		t.Errorf("output = %q", out.String())
	}
}
