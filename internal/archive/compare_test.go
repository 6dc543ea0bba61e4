package archive

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/FocuswithJustin/wmlcompare/core/comparer"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
	"github.com/FocuswithJustin/wmlcompare/internal/validation"
)

const (
	footnoteRefRun = `<w:r><w:rPr><w:rStyle w:val="FootnoteReference"/></w:rPr><w:footnoteReference w:id="2"/></w:r>`
	commentRefRun  = `<w:r><w:commentReference w:id="5"/></w:r>`
)

func testComparer() *comparer.Comparer {
	s := comparer.DefaultSettings()
	s.AuthorForRevisions = "tester"
	s.DateTimeForRevisions = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return comparer.New(s)
}

// refIDs returns the ids of the elements named ref in a part.
func refIDs(t *testing.T, pkg *Package, part string, ref xml.Name) []string {
	t.Helper()
	doc, err := pkg.Tree(part)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	doc.Walk(doc.Root(), func(id xml.NodeID) bool {
		if doc.Is(id, ref) {
			ids = append(ids, doc.AttrValue(id, attrID))
		}
		return true
	})
	return ids
}

// entryText returns the text of the entry with the given id in a companion part.
func entryText(t *testing.T, pkg *Package, relType string, entry xml.Name, id string) (string, bool) {
	t.Helper()
	name, ok := pkg.RelatedPart(pkg.MainPart(), relType)
	if !ok {
		t.Fatalf("no part of type %s", relType)
	}
	doc, err := pkg.Tree(name)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entriesOf(doc, entry) {
		if e.id == id {
			return e.text, true
		}
	}
	return "", false
}

func TestCompareFootnotes(t *testing.T) {
	fnRel := []string{rel("rId3", RelFootnotes, "footnotes.xml")}
	left := mustLoad(t, "left.docx", buildDocx(t, docXML(wpara(wrun("See"), footnoteRefRun)), fnRel,
		entry{"word/footnotes.xml", footnotesXML(footnote("2", "Note one"))}))
	right := mustLoad(t, "right.docx", buildDocx(t, docXML(wpara(wrun("See"), footnoteRefRun)), fnRel,
		entry{"word/footnotes.xml", footnotesXML(footnote("2", "Note two"))}))

	out, res, err := Compare(context.Background(), testComparer(), left, right, Options{})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.Document == nil {
		t.Fatal("no result document")
	}

	refs := refIDs(t, out, out.MainPart(), xml.W("footnoteReference"))
	if len(refs) != 1 {
		t.Fatalf("footnote references = %v", refs)
	}
	text, ok := entryText(t, out, RelFootnotes, nameFootnote, refs[0])
	if !ok {
		t.Fatalf("no footnote with id %s", refs[0])
	}
	if text != "Note onetwo" && text != "Note twoone" {
		t.Errorf("footnote text = %q, want both versions", text)
	}

	notes, _ := out.Tree("word/footnotes.xml")
	revs, err := comparer.Revisions(notes)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 2 {
		t.Errorf("footnote revisions = %+v, want a deletion and an insertion", revs)
	}
}

func TestCompareComments(t *testing.T) {
	left := mustLoad(t, "left.docx", buildDocx(t, docXML(wpara(wrun("Alpha"), commentRefRun)),
		[]string{rel("rId4", RelComments, "comments.xml")},
		entry{"word/comments.xml", commentsXML(comment("5", "Ann", "Left comment"), comment("6", "Ann", "orphan"))}))
	right := mustLoad(t, "right.docx", buildDocx(t, docXML(wpara(wrun("Omega"))), nil))

	out, _, err := Compare(context.Background(), testComparer(), left, right, Options{})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if _, ok := right.RelatedPart(right.MainPart(), RelComments); ok {
		t.Fatal("Compare modified the right package")
	}

	refs := refIDs(t, out, out.MainPart(), xml.W("commentReference"))
	if len(refs) != 1 {
		t.Fatalf("comment references = %v", refs)
	}
	text, ok := entryText(t, out, RelComments, nameComment, refs[0])
	if !ok || text != "Left comment" {
		t.Errorf("comment %s = %q, %v", refs[0], text, ok)
	}
	name, _ := out.RelatedPart(out.MainPart(), RelComments)
	doc, _ := out.Tree(name)
	if n := len(entriesOf(doc, nameComment)); n != 1 {
		t.Errorf("comments = %d, want only the referenced one", n)
	}
	if ct := out.index[name].ContentType; ct != contentTypeComments {
		t.Errorf("comments content type = %q", ct)
	}

	// The added part survives a round trip through .docx.
	data, err := out.Encode(validation.FileTypeDocx)
	if err != nil {
		t.Fatal(err)
	}
	again := mustLoad(t, "out.docx", data)
	if _, ok := again.RelatedPart(again.MainPart(), RelComments); !ok {
		t.Error("comments part lost on save")
	}
}

func TestCompareSinglePart(t *testing.T) {
	left := mustLoad(t, "left.xml", []byte(docXML(wpara(wrun("one")))))
	right := mustLoad(t, "right.xml", []byte(docXML(wpara(wrun("two")))))

	out, res, err := Compare(context.Background(), testComparer(), left, right, Options{Parts: true})
	if err != nil {
		t.Fatal(err)
	}
	if !out.SinglePart() || len(out.Parts()) != 1 {
		t.Errorf("single part output has parts %v", out.Parts())
	}
	revs, err := res.Revisions()
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 2 {
		t.Errorf("revisions = %+v", revs)
	}
}

func TestCompareHeaders(t *testing.T) {
	hdr := func(text string) string {
		return `<w:hdr ` + wNS + `>` + wpara(wrun(text)) + `</w:hdr>`
	}
	hdrRel := []string{rel("rId7", RelHeader, "header1.xml")}
	left := mustLoad(t, "left.docx", buildDocx(t, docXML(wpara(wrun("Body"))), hdrRel,
		entry{"word/header1.xml", hdr("Draft")}))
	right := mustLoad(t, "right.docx", buildDocx(t, docXML(wpara(wrun("Body"))), hdrRel,
		entry{"word/header1.xml", hdr("Final")}))

	for _, parts := range []bool{false, true} {
		out, _, err := Compare(context.Background(), testComparer(), left, right, Options{Parts: parts})
		if err != nil {
			t.Fatal(err)
		}
		doc, err := out.Tree("word/header1.xml")
		if err != nil {
			t.Fatal(err)
		}
		revs, err := comparer.Revisions(doc)
		if err != nil {
			t.Fatal(err)
		}
		if parts && len(revs) != 2 {
			t.Errorf("header revisions = %+v, want 2", revs)
		}
		if !parts && len(revs) != 0 {
			t.Errorf("header compared without Parts: %+v", revs)
		}
	}
}

func TestConsolidatePackages(t *testing.T) {
	original := mustLoad(t, "original.docx", buildDocx(t, docXML(wpara(wrun("Alpha"))), nil))
	bob := mustLoad(t, "bob.docx", buildDocx(t, docXML(wpara(wrun("Alpha beta"), commentRefRun)),
		[]string{rel("rId4", RelComments, "comments.xml")},
		entry{"word/comments.xml", commentsXML(comment("5", "Bob", "Bob says"))}))
	mary := mustLoad(t, "mary.docx", buildDocx(t, docXML(wpara(wrun("Alpha")), wpara(wrun("Gamma"))), nil))

	out, res, err := Consolidate(context.Background(), testComparer(), original, []RevisorPackage{
		{Name: "Bob", Color: "FFFF00", Package: bob},
		{Name: "Mary", Package: mary},
	})
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}

	authors := map[string]int{}
	revs, err := res.Revisions()
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range revs {
		authors[r.Author]++
	}
	if authors["Bob"] == 0 || authors["Mary"] == 0 {
		t.Errorf("revisions by author = %v", authors)
	}

	refs := refIDs(t, out, out.MainPart(), xml.W("commentReference"))
	if len(refs) != 1 {
		t.Fatalf("comment references = %v", refs)
	}
	if text, ok := entryText(t, out, RelComments, nameComment, refs[0]); !ok || text != "Bob says" {
		t.Errorf("comment %s = %q, %v", refs[0], text, ok)
	}
	if _, ok := original.RelatedPart(original.MainPart(), RelComments); ok {
		t.Error("Consolidate modified the original package")
	}
}
