package comparer

import (
	"strconv"

	"github.com/FocuswithJustin/wmlcompare/core/xml"
)

// IDMap maps a source label ("left", "right", or a revisor name) to the renumbering of
// its ids: old -> new.
type IDMap map[string]map[string]string

func (m IDMap) assign(label, old string, next *int) string {
	byOld, ok := m[label]
	if !ok {
		byOld = make(map[string]string)
		m[label] = byOld
	}
	if v, ok := byOld[old]; ok {
		return v
	}
	*next++
	v := strconv.Itoa(*next)
	byOld[old] = v
	return v
}

// Lookup returns the new id for an old id of the given source.
func (m IDMap) Lookup(label, old string) (string, bool) {
	v, ok := m[label][old]
	return v, ok
}

// IDMaps reports how cross-reference ids were renumbered in the output, so that
// companion parts (comments, footnotes, endnotes) can be renumbered to match.
type IDMaps struct {
	Bookmarks IDMap
	Comments  IDMap
	Footnotes IDMap
	Endnotes  IDMap
}

var (
	nameBookmarkStart   = xml.W("bookmarkStart")
	nameBookmarkEnd     = xml.W("bookmarkEnd")
	nameCommentStart    = xml.W("commentRangeStart")
	nameCommentEnd      = xml.W("commentRangeEnd")
	nameCommentRef      = xml.W("commentReference")
	nameFootnoteRef     = xml.W("footnoteReference")
	nameEndnoteRef      = xml.W("endnoteReference")
	nameNoteSeparator   = xml.W("separator")
	nameNoteContinueSep = xml.W("continuationSeparator")
)

// renumber makes ids in the output unique. Revision ids and drawing ids are numbered
// from 1 in document order. Bookmark, comment and note ids are renumbered per source so
// that ids from different inputs cannot collide; bookmark starts and ends that lost
// their partner are dropped.
func (r *reassembler) renumber() (IDMaps, []noteOrigin) {
	maps := IDMaps{
		Bookmarks: make(IDMap),
		Comments:  make(IDMap),
		Footnotes: make(IDMap),
		Endnotes:  make(IDMap),
	}
	out := r.out
	var revisions, drawings, bookmarks, comments, footnotes, endnotes int

	type bookmarkKey struct{ label, id string }
	starts := make(map[bookmarkKey]xml.NodeID)
	ends := make(map[bookmarkKey]xml.NodeID)
	var order []bookmarkKey

	var notes []xml.NodeID
	out.Walk(out.Root(), func(id xml.NodeID) bool {
		if out.Type(id) != xml.ElementNode {
			return true
		}
		name := out.Name(id)
		label := r.labels[r.origin[id]]
		old := out.AttrValue(id, attrID)
		switch {
		case revisionIDElements[name]:
			revisions++
			out.SetAttr(id, attrID, strconv.Itoa(revisions))
		case name == nameDocPr:
			drawings++
			out.SetAttr(id, attrDocPrID, strconv.Itoa(drawings))
		case name == nameBookmarkStart:
			k := bookmarkKey{label, old}
			if _, dup := starts[k]; !dup {
				starts[k] = id
				order = append(order, k)
			}
		case name == nameBookmarkEnd:
			k := bookmarkKey{label, old}
			if _, dup := ends[k]; !dup {
				ends[k] = id
			}
		case name == nameCommentStart || name == nameCommentEnd || name == nameCommentRef:
			out.SetAttr(id, attrID, maps.Comments.assign(label, old, &comments))
		case name == nameFootnoteRef:
			out.SetAttr(id, attrID, maps.Footnotes.assign(label, old, &footnotes))
		case name == nameEndnoteRef:
			out.SetAttr(id, attrID, maps.Endnotes.assign(label, old, &endnotes))
		case name == nameFootnote || name == nameEndnote:
			notes = append(notes, id)
		}
		return true
	})

	for _, k := range order {
		end, ok := ends[k]
		start := starts[k]
		if !ok {
			out.RemoveChild(start)
			continue
		}
		v := maps.Bookmarks.assign(k.label, k.id, &bookmarks)
		out.SetAttr(start, attrID, v)
		out.SetAttr(end, attrID, v)
	}
	for k, end := range ends {
		if _, ok := starts[k]; !ok {
			out.RemoveChild(end)
		}
	}

	// Notes parts: numbered in order here; RenumberNotes aligns them with the ids
	// assigned to the references in the main story.
	var origins []noteOrigin
	for _, id := range notes {
		m, next := maps.Footnotes, &footnotes
		if out.Is(id, nameEndnote) {
			m, next = maps.Endnotes, &endnotes
		}
		if isSeparatorNote(out, id) {
			continue
		}
		label := r.labels[r.origin[id]]
		old := out.AttrValue(id, attrID)
		out.SetAttr(id, attrID, m.assign(label, old, next))
		origins = append(origins, noteOrigin{id: id, label: label, old: old})
	}
	return maps, origins
}

// noteOrigin remembers where a note of a compared notes part came from.
type noteOrigin struct {
	id    xml.NodeID
	label string
	old   string
}

// isSeparatorNote reports whether a note is one of the separator notes every notes part
// starts with. Their ids are fixed.
func isSeparatorNote(doc *xml.Document, note xml.NodeID) bool {
	switch doc.AttrValue(note, attrType) {
	case "separator", "continuationSeparator", "continuationNotice":
		return true
	}
	found := false
	doc.Walk(note, func(id xml.NodeID) bool {
		if doc.Is(id, nameNoteSeparator) || doc.Is(id, nameNoteContinueSep) {
			found = true
		}
		return !found
	})
	return found
}
