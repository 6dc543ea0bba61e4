package comparer

import (
	"sort"
	"strings"

	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
)

// RevisionType is the kind of a tracked revision.
type RevisionType int

const (
	RevisionInserted RevisionType = iota + 1
	RevisionDeleted
	RevisionParagraphMarkInserted
	RevisionParagraphMarkDeleted
	RevisionFormattingChanged
)

var revisionTypeNames = map[RevisionType]string{
	RevisionInserted:              "Inserted",
	RevisionDeleted:               "Deleted",
	RevisionParagraphMarkInserted: "ParagraphMarkInserted",
	RevisionParagraphMarkDeleted:  "ParagraphMarkDeleted",
	RevisionFormattingChanged:     "FormattingChanged",
}

func (t RevisionType) String() string {
	if s, ok := revisionTypeNames[t]; ok {
		return s
	}
	return "Unknown"
}

// MarshalText encodes the type by name.
func (t RevisionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name.
func (t *RevisionType) UnmarshalText(b []byte) error {
	for k, v := range revisionTypeNames {
		if v == string(b) {
			*t = k
			return nil
		}
	}
	return errors.NewValidationf("revision type", "unknown revision type %q", string(b))
}

// Revision is one tracked change found in a document.
type Revision struct {
	Author string       `json:"author"`
	Date   string       `json:"date,omitempty"`
	Type   RevisionType `json:"type"`
	Text   string       `json:"text"`
}

// paragraphMarkText is reported as the text of paragraph mark revisions.
const paragraphMarkText = "¶"

const revisionQuery = "//w:ins | //w:del | //w:moveFrom | //w:moveTo | //w:rPrChange | //w:pPrChange"

// Revisions lists the tracked revisions of a document in document order. Row markers
// (w:trPr/w:ins, w:trPr/w:del) are not reported; the content of the row is.
func Revisions(doc *xml.Document) ([]Revision, error) {
	if doc == nil || doc.Root() == xml.InvalidNode {
		return nil, errors.NewValidation("document", "empty document tree")
	}
	ids, err := doc.Select(revisionQuery)
	if err != nil {
		return nil, errors.Wrap(err, "selecting revisions")
	}
	order := documentOrder(doc)
	sort.Slice(ids, func(i, j int) bool { return order[ids[i]] < order[ids[j]] })

	var out []Revision
	for _, id := range ids {
		rev, ok := classifyRevision(doc, id)
		if ok {
			out = append(out, rev)
		}
	}
	return out, nil
}

func documentOrder(doc *xml.Document) map[xml.NodeID]int {
	order := make(map[xml.NodeID]int, doc.Len())
	doc.Walk(doc.Root(), func(id xml.NodeID) bool {
		order[id] = len(order)
		return true
	})
	return order
}

func classifyRevision(doc *xml.Document, id xml.NodeID) (Revision, bool) {
	rev := Revision{
		Author: doc.AttrValue(id, attrAuthor),
		Date:   doc.AttrValue(id, attrDate),
	}
	name := doc.Name(id)
	parent := doc.Parent(id)

	switch name {
	case nameRPrChange:
		rev.Type = RevisionFormattingChanged
		if run := doc.Parent(parent); run != xml.InvalidNode && doc.Is(run, nameR) {
			rev.Text = revisionText(doc, run)
		} else if doc.Is(run, namePPr) {
			rev.Text = paragraphMarkText
		}
		return rev, true
	case namePPrChange:
		rev.Type = RevisionFormattingChanged
		if p := doc.Parent(parent); p != xml.InvalidNode {
			rev.Text = revisionText(doc, p) + paragraphMarkText
		}
		return rev, true
	}

	inserted := name == nameIns || name == nameMoveTo
	switch {
	case doc.Is(parent, nameTrPr):
		return rev, false
	case doc.Is(parent, nameRPr):
		if !doc.Is(doc.Parent(parent), namePPr) {
			return rev, false
		}
		rev.Type = RevisionParagraphMarkDeleted
		if inserted {
			rev.Type = RevisionParagraphMarkInserted
		}
		rev.Text = paragraphMarkText
		return rev, true
	}
	rev.Type = RevisionDeleted
	if inserted {
		rev.Type = RevisionInserted
	}
	rev.Text = revisionText(doc, id)
	return rev, true
}

// revisionText is the visible text under id: characters, tabs and breaks. Field
// instructions and property elements do not contribute.
func revisionText(doc *xml.Document, id xml.NodeID) string {
	var sb strings.Builder
	doc.Walk(id, func(n xml.NodeID) bool {
		if doc.Type(n) != xml.ElementNode {
			return true
		}
		name := doc.Name(n)
		switch {
		case name == nameT || name == nameDelText:
			sb.WriteString(doc.InnerText(n))
			return false
		case name == nameRPr || name == namePPr || name == nameInstrText || name == nameDelInstr:
			return false
		}
		if s, ok := runAtoms[name]; ok {
			sb.WriteString(s)
			return false
		}
		return true
	})
	return sb.String()
}
