package comparer

import (
	"strings"

	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
)

// Status is the correlation status of a unit or sequence.
type Status uint8

const (
	StatusNormal Status = iota
	StatusEqual
	StatusInserted
	StatusDeleted
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "Normal"
	case StatusEqual:
		return "Equal"
	case StatusInserted:
		return "Inserted"
	case StatusDeleted:
		return "Deleted"
	case StatusUnknown:
		return "Unknown"
	}
	return "Status(?)"
}

// Unit is a comparison unit: *Atom, *Word or *Group.
type Unit interface {
	// Hash is the content digest used as the LCS key.
	Hash() string
	// Atoms returns the atoms covered by the unit in document order.
	Atoms() []*Atom
	unit()
}

// Atom is a single leaf content item: one character of text, a paragraph mark, a
// break, a drawing, a field character.
type Atom struct {
	Doc  *xml.Document
	Side Side
	// Index is the position of the atom in its document's atom sequence.
	Index int
	// Node is the content element. For characters it is the w:t, for paragraph marks
	// the w:pPr, or xml.InvalidNode when the paragraph has no properties.
	Node xml.NodeID
	// Kind is the local name of the content element, "t" for characters and "pPr" for
	// paragraph marks.
	Kind string
	Text string
	// Ancestors runs from the story root to the parent of Node, revision wrappers
	// excluded.
	Ancestors []xml.NodeID
	// Status is Equal unless the atom sits inside an existing tracked revision.
	Status    Status
	RevAuthor string
	RevDate   string
	Lang      string
	// Markers are bookmark and comment-range elements immediately preceding the atom.
	Markers []xml.NodeID

	hash      string
	format    string
	props     xml.NodeID
	structure []xml.NodeID
	structKey string
}

func (a *Atom) Hash() string { return a.hash }

func (a *Atom) Atoms() []*Atom { return []*Atom{a} }

func (*Atom) unit() {}

// IsParagraphMark reports whether the atom stands for a paragraph mark.
func (a *Atom) IsParagraphMark() bool { return a.Kind == kindMark }

// Word is one lexical word plus any adjacent non-text atoms that belong to it.
type Word struct {
	atoms []*Atom
	hash  string
}

func (w *Word) Hash() string { return w.hash }

func (w *Word) Atoms() []*Atom { return w.atoms }

func (*Word) unit() {}

// Text returns the concatenated atom text.
func (w *Word) Text() string {
	var sb strings.Builder
	for _, a := range w.atoms {
		sb.WriteString(a.Text)
	}
	return sb.String()
}

// GroupKind tags the structural level of a Group.
type GroupKind uint8

const (
	GroupParagraph GroupKind = iota + 1
	GroupCell
	GroupRow
	GroupTable
	GroupTextbox
	GroupNote
)

func (k GroupKind) String() string {
	switch k {
	case GroupParagraph:
		return "paragraph"
	case GroupCell:
		return "cell"
	case GroupRow:
		return "row"
	case GroupTable:
		return "table"
	case GroupTextbox:
		return "textbox"
	case GroupNote:
		return "note"
	}
	return "group"
}

// Group is one structural level: the words and nested groups under a single anchor
// element.
type Group struct {
	Kind     GroupKind
	Side     Side
	Anchor   xml.NodeID
	Unid     string
	Children []Unit
	// Key is the structural key used to pair unmatched groups: the kind plus the grid
	// width for tables and the cell count for rows.
	Key string
	// CorrelatedHash is set once the group has been matched against the other document.
	CorrelatedHash string

	hash       string
	structural string
	atoms      []*Atom
}

func (g *Group) Hash() string { return g.hash }

// StructuralHash digests the group's shape, ignoring leaf text.
func (g *Group) StructuralHash() string { return g.structural }

func (g *Group) Atoms() []*Atom {
	if g.atoms == nil {
		for _, c := range g.Children {
			g.atoms = append(g.atoms, c.Atoms()...)
		}
	}
	return g.atoms
}

func (*Group) unit() {}

// CorrelatedSequence is one resolved or pending region of the diff. Equal records
// carry matching units on both sides; Deleted records only Left; Inserted only Right.
type CorrelatedSequence struct {
	Status Status
	Left   []Unit
	Right  []Unit
}

func atomsOf(units []Unit) []*Atom {
	var out []*Atom
	for _, u := range units {
		out = append(out, u.Atoms()...)
	}
	return out
}

// trackedStatus returns the existing revision status shared by every atom of the
// unit, or StatusEqual when the atoms differ or carry none.
func trackedStatus(u Unit) Status {
	atoms := u.Atoms()
	if len(atoms) == 0 {
		return StatusEqual
	}
	s := atoms[0].Status
	for _, a := range atoms[1:] {
		if a.Status != s {
			return StatusEqual
		}
	}
	return s
}

// children expands a unit one level: groups to their children, words to their atoms.
func children(u Unit) ([]Unit, error) {
	switch v := u.(type) {
	case *Group:
		return v.Children, nil
	case *Word:
		out := make([]Unit, len(v.atoms))
		for i, a := range v.atoms {
			out[i] = a
		}
		return out, nil
	case *Atom:
		return nil, nil
	default:
		return nil, errors.NewInternalf("correlator", "unhandled unit type %T", u)
	}
}
