package comparer

import (
	"encoding/json"
	"testing"

	"github.com/FocuswithJustin/wmlcompare/core/xml"
)

const trackedDoc = `<w:p>` +
	`<w:r><w:t xml:space="preserve">Keep </w:t></w:r>` +
	`<w:ins w:id="1" w:author="Ann" w:date="2024-01-01T00:00:00Z"><w:r><w:t>new</w:t><w:tab/></w:r></w:ins>` +
	`<w:del w:id="2" w:author="Ben"><w:r><w:delText>old</w:delText></w:r></w:del>` +
	`<w:r><w:rPr><w:b/><w:rPrChange w:id="3" w:author="Cy"><w:rPr/></w:rPrChange></w:rPr><w:t>bold</w:t></w:r>` +
	`</w:p>` +
	`<w:p><w:pPr><w:jc w:val="center"/><w:rPr><w:ins w:id="4" w:author="Ann"/></w:rPr>` +
	`<w:pPrChange w:id="5" w:author="Dee"><w:pPr/></w:pPrChange></w:pPr>` +
	`<w:r><w:t>mid</w:t></w:r></w:p>` +
	`<w:p><w:pPr><w:rPr><w:del w:id="6" w:author="Ben"/></w:rPr></w:pPr>` +
	`<w:r><w:fldChar w:fldCharType="begin"/></w:r>` +
	`<w:ins w:id="7" w:author="Eve"><w:r><w:instrText> PAGE </w:instrText></w:r></w:ins>` +
	`<w:r><w:fldChar w:fldCharType="end"/></w:r></w:p>`

func TestRevisions(t *testing.T) {
	doc, err := xml.Parse([]byte(body(trackedDoc)))
	if err != nil {
		t.Fatal(err)
	}
	got := mustRevisions(t, doc)
	want := []Revision{
		{Author: "Ann", Date: "2024-01-01T00:00:00Z", Type: RevisionInserted, Text: "new\t"},
		{Author: "Ben", Type: RevisionDeleted, Text: "old"},
		{Author: "Cy", Type: RevisionFormattingChanged, Text: "bold"},
		{Author: "Ann", Type: RevisionParagraphMarkInserted, Text: "¶"},
		{Author: "Dee", Type: RevisionFormattingChanged, Text: "mid¶"},
		{Author: "Ben", Type: RevisionParagraphMarkDeleted, Text: "¶"},
		{Author: "Eve", Type: RevisionInserted, Text: ""},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d revisions, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("revision %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRevisionsRowMarkersSkipped(t *testing.T) {
	doc, err := xml.Parse([]byte(body(`<w:tbl><w:tr><w:trPr><w:ins w:id="1" w:author="Ann"/></w:trPr>` +
		`<w:tc><w:p><w:ins w:id="2" w:author="Ann">` + run("x") + `</w:ins></w:p></w:tc></w:tr></w:tbl>`)))
	if err != nil {
		t.Fatal(err)
	}
	got := mustRevisions(t, doc)
	if len(got) != 1 || got[0].Text != "x" {
		t.Errorf("revisions = %+v, want the cell insertion only", got)
	}
}

func TestRevisionsEmpty(t *testing.T) {
	if _, err := Revisions(xml.NewDocument()); err == nil {
		t.Error("Revisions on an empty tree should fail")
	}
	doc, _ := xml.Parse([]byte(body(para("plain"))))
	if got := mustRevisions(t, doc); len(got) != 0 {
		t.Errorf("plain document has revisions: %+v", got)
	}
}

func TestRevisionTypeJSON(t *testing.T) {
	data, err := json.Marshal(Revision{Author: "Ann", Type: RevisionParagraphMarkDeleted, Text: "¶"})
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"author":"Ann","type":"ParagraphMarkDeleted","text":"¶"}`; string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}

	var r Revision
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatal(err)
	}
	if r.Type != RevisionParagraphMarkDeleted {
		t.Errorf("round trip type = %v", r.Type)
	}
	if err := json.Unmarshal([]byte(`{"type":"Moved"}`), &r); err == nil {
		t.Error("unknown revision type should fail to decode")
	}
}
