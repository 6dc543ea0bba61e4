package comparer

import (
	"github.com/FocuswithJustin/wmlcompare/core/xml"
	"github.com/google/uuid"
)

// unidNamespace seeds the name-based UUIDs of structural elements.
var unidNamespace = uuid.MustParse("5b0f7f7e-3c1a-4d64-9a55-8f0f6a7c2e11")

// Source is one input of a comparison.
type Source struct {
	// Name identifies the document in errors and logs.
	Name string
	// Tree is the story to compare (w:document, w:hdr, w:ftr, w:footnotes or w:endnotes).
	Tree *xml.Document
	// Parts resolves relationship ids for drawing hashes. Optional.
	Parts PartResolver
}

// sideTable holds the per-comparison annotations of one source tree. The tree itself
// is never modified.
type sideTable struct {
	side  Side
	label string
	name  string
	doc   *xml.Document
	parts PartResolver

	unids       map[xml.NodeID]string
	consumed    map[xml.NodeID]bool
	groupHashes map[string]string
	textboxes   map[xml.NodeID]bool

	atoms []*Atom
}

func newSideTable(side Side, label string, src Source) *sideTable {
	return &sideTable{
		side:        side,
		label:       label,
		name:        src.Name,
		doc:         src.Tree,
		parts:       src.Parts,
		unids:       make(map[xml.NodeID]string),
		consumed:    make(map[xml.NodeID]bool),
		groupHashes: make(map[string]string),
		textboxes:   make(map[xml.NodeID]bool),
	}
}

// assignUnid records a stable unique id for an element the first time it is seen. The
// id depends only on the side label and the element's position in the tree, so
// repeated passes over the same tree yield the same ids.
func (t *sideTable) assignUnid(id xml.NodeID, path string) string {
	if u, ok := t.unids[id]; ok {
		return u
	}
	u := uuid.NewSHA1(unidNamespace, []byte(t.label+":"+path)).String()
	t.unids[id] = u
	return u
}

func (t *sideTable) unid(id xml.NodeID) string {
	return t.unids[id]
}

func (t *sideTable) consume(id xml.NodeID) {
	t.consumed[id] = true
}

// containsTextbox reports whether the subtree holds a w:txbxContent.
func (t *sideTable) containsTextbox(id xml.NodeID) bool {
	if v, ok := t.textboxes[id]; ok {
		return v
	}
	found := false
	if t.doc.Is(id, nameTxbx) {
		found = true
	} else {
		for _, c := range t.doc.ChildElements(id) {
			if t.containsTextbox(c) {
				found = true
				break
			}
		}
	}
	t.textboxes[id] = found
	return found
}
