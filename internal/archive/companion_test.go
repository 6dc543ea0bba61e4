package archive

import (
	"strings"
	"testing"

	"github.com/FocuswithJustin/wmlcompare/core/comparer"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
)

func commentsXML(comments ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:comments ` + wNS + `>` +
		strings.Join(comments, "") + `</w:comments>`
}

func comment(id, author, text string) string {
	return `<w:comment w:id="` + id + `" w:author="` + author + `">` + wpara(wrun(text)) + `</w:comment>`
}

func footnotesXML(notes ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:footnotes ` + wNS + `>` +
		`<w:footnote w:type="separator" w:id="-1"><w:p><w:r><w:separator/></w:r></w:p></w:footnote>` +
		`<w:footnote w:type="continuationSeparator" w:id="0"><w:p><w:r><w:continuationSeparator/></w:r></w:p></w:footnote>` +
		strings.Join(notes, "") + `</w:footnotes>`
}

func footnote(id, text string) string {
	return `<w:footnote w:id="` + id + `">` + wpara(wrun(text)) + `</w:footnote>`
}

func mustParse(t *testing.T, data string) *xml.Document {
	t.Helper()
	doc, err := xml.Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

type mergedEntry struct {
	id, text string
}

func entriesOf(doc *xml.Document, entry xml.Name) []mergedEntry {
	var out []mergedEntry
	for _, el := range doc.ChildElements(doc.Root()) {
		if doc.Is(el, entry) {
			out = append(out, mergedEntry{doc.AttrValue(el, attrID), doc.InnerText(el)})
		}
	}
	return out
}

func TestMergeEntries(t *testing.T) {
	right := mustParse(t, commentsXML(comment("1", "Ann", "kept right"), comment("9", "Ann", "unreferenced")))
	left := mustParse(t, commentsXML(comment("7", "Ben", "kept left"), comment("1", "Ben", "same id, other source")))
	m := comparer.IDMap{
		"right": {"1": "1"},
		"left":  {"7": "2", "1": "3"},
	}

	got := entriesOf(MergeEntries(nameComment, m, []LabeledPart{{"right", right}, {"left", left}}), nameComment)
	want := []mergedEntry{{"1", "kept right"}, {"2", "kept left"}, {"3", "same id, other source"}}
	if len(got) != len(want) {
		t.Fatalf("entries = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if MergeEntries(nameComment, m, nil) != nil {
		t.Error("MergeEntries without sources should return nil")
	}
}

func TestMergeEntriesSeparators(t *testing.T) {
	a := mustParse(t, footnotesXML(footnote("1", "from a")))
	b := mustParse(t, footnotesXML(footnote("1", "from b")))
	m := comparer.IDMap{"a": {"1": "2"}, "b": {"1": "1"}}

	doc := MergeEntries(nameFootnote, m, []LabeledPart{{"a", a}, {"b", b}})
	separators := 0
	for _, el := range doc.ChildElements(doc.Root()) {
		if doc.AttrValue(el, attrType) != "" {
			separators++
		}
	}
	if separators != 2 {
		t.Errorf("separator notes = %d, want 2", separators)
	}
	got := entriesOf(doc, nameFootnote)
	if n := len(got); n != 4 {
		t.Fatalf("notes = %+v", got)
	}
	if got[2] != (mergedEntry{"1", "from b"}) || got[3] != (mergedEntry{"2", "from a"}) {
		t.Errorf("notes = %+v", got[2:])
	}
}
