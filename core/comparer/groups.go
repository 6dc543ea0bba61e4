package comparer

import (
	"strconv"

	"github.com/FocuswithJustin/wmlcompare/core/xml"
)

// buildGroups nests the words of one side into groups that mirror the structural
// elements of the tree. Words outside any structural element stay at the top level.
func (t *sideTable) buildGroups(words []*Word) []Unit {
	return t.groupLevel(words, 0)
}

func (t *sideTable) groupLevel(words []*Word, depth int) []Unit {
	var out []Unit
	for i := 0; i < len(words); {
		first := words[i].atoms[0]
		if len(first.structure) <= depth {
			out = append(out, words[i])
			i++
			continue
		}
		anchor := first.structure[depth]
		j := i + 1
		for j < len(words) {
			s := words[j].atoms[0].structure
			if len(s) <= depth || s[depth] != anchor {
				break
			}
			j++
		}
		out = append(out, t.newGroup(anchor, t.groupLevel(words[i:j], depth+1)))
		i = j
	}
	return out
}

func (t *sideTable) newGroup(anchor xml.NodeID, kids []Unit) *Group {
	kind := structuralElements[t.doc.Name(anchor)]
	g := &Group{
		Kind:     kind,
		Side:     t.side,
		Anchor:   anchor,
		Unid:     t.unid(anchor),
		Children: kids,
		Key:      t.structuralKey(kind, anchor),
	}

	if h, ok := t.groupHashes[g.Unid]; ok {
		g.hash = h
	} else {
		parts := make([]string, 0, len(kids)+1)
		parts = append(parts, g.Key)
		for _, k := range kids {
			parts = append(parts, k.Hash())
		}
		g.hash = digest(parts...)
		t.groupHashes[g.Unid] = g.hash
	}

	shape := []string{"shape", g.Key}
	for _, k := range kids {
		if sub, ok := k.(*Group); ok {
			shape = append(shape, sub.structural)
		}
	}
	g.structural = digest(shape...)
	return g
}

// structuralKey pairs groups that can be refined against each other: tables with the
// same grid width, rows with the same number of cells, notes of the same type.
func (t *sideTable) structuralKey(kind GroupKind, anchor xml.NodeID) string {
	doc := t.doc
	switch kind {
	case GroupTable:
		cols := 0
		if grid := doc.FirstChild(anchor, nameTblGrid); grid != xml.InvalidNode {
			for _, c := range doc.ChildElements(grid) {
				if doc.Is(c, nameGridCol) {
					cols++
				}
			}
		}
		return "table:" + strconv.Itoa(cols)
	case GroupRow:
		return "row:" + strconv.Itoa(t.countCells(anchor))
	case GroupNote:
		typ := doc.AttrValue(anchor, attrType)
		if typ == "" {
			typ = "normal"
		}
		return "note:" + typ
	}
	return kind.String()
}

func (t *sideTable) countCells(tr xml.NodeID) int {
	doc := t.doc
	n := 0
	for _, c := range doc.ChildElements(tr) {
		switch {
		case doc.Is(c, nameTc):
			n++
		case blockContainers[doc.Name(c)] && !doc.Is(c, nameTbl):
			n += t.countCells(c)
		}
	}
	return n
}
