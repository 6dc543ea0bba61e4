package comparer

import (
	"sort"

	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
)

// AcceptRevisions returns a copy of doc with every tracked revision accepted:
// insertions become plain content, deletions disappear, paragraphs whose mark was
// deleted join the following paragraph, and property changes are dropped.
func AcceptRevisions(doc *xml.Document) (*xml.Document, error) {
	return resolveRevisions(doc, true)
}

// RejectRevisions returns a copy of doc with every tracked revision rejected, which
// restores the content as it was before the revisions were made.
func RejectRevisions(doc *xml.Document) (*xml.Document, error) {
	return resolveRevisions(doc, false)
}

// propertyChanges pairs property-change elements with the properties they record.
var propertyChanges = map[xml.Name]xml.Name{
	nameRPrChange:         nameRPr,
	namePPrChange:         namePPr,
	xml.W("tblPrChange"):  xml.W("tblPr"),
	xml.W("trPrChange"):   nameTrPr,
	xml.W("tcPrChange"):   xml.W("tcPr"),
	xml.W("sectPrChange"): nameSectPr,
}

type revisionResolver struct {
	doc    *xml.Document
	accept bool
	order  map[xml.NodeID]int
}

func resolveRevisions(doc *xml.Document, accept bool) (*xml.Document, error) {
	if doc == nil || doc.Root() == xml.InvalidNode {
		return nil, errors.NewValidation("document", "empty document tree")
	}
	out := doc.Clone()
	r := &revisionResolver{doc: out, accept: accept, order: documentOrder(out)}

	steps := []func() error{r.rows, r.content, r.marks, r.properties}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return out.Compact(), nil
}

// removes reports whether a revision of the given kind disappears with its content.
func (r *revisionResolver) removes(name xml.Name) bool {
	status := revisionWrappers[name]
	if r.accept {
		return status == StatusDeleted
	}
	return status == StatusInserted
}

// selectReverse returns the matches of expr in reverse document order, so that
// nested matches are handled before their ancestors.
func (r *revisionResolver) selectReverse(expr string) ([]xml.NodeID, error) {
	ids, err := r.doc.Select(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "selecting %s", expr)
	}
	sort.Slice(ids, func(i, j int) bool { return r.order[ids[i]] > r.order[ids[j]] })
	return ids, nil
}

func (r *revisionResolver) rows() error {
	markers, err := r.selectReverse("//w:trPr/w:ins | //w:trPr/w:del")
	if err != nil {
		return err
	}
	for _, m := range markers {
		tr := r.doc.Parent(r.doc.Parent(m))
		if !r.removes(r.doc.Name(m)) {
			r.doc.RemoveChild(m)
			continue
		}
		tbl := r.doc.Parent(tr)
		r.doc.RemoveChild(tr)
		if tbl != xml.InvalidNode && r.doc.FirstChild(tbl, nameTr) == xml.InvalidNode {
			r.doc.RemoveChild(tbl)
		}
	}
	return nil
}

func (r *revisionResolver) content() error {
	wrappers, err := r.selectReverse("//*[self::w:ins or self::w:del or self::w:moveFrom or self::w:moveTo][not(parent::w:rPr) and not(parent::w:trPr)]")
	if err != nil {
		return err
	}
	for _, w := range wrappers {
		if r.doc.Parent(w) == xml.InvalidNode {
			continue
		}
		if r.removes(r.doc.Name(w)) {
			r.doc.RemoveChild(w)
			continue
		}
		if !r.accept {
			r.restoreDeletedText(w)
		}
		r.unwrap(w)
	}
	return nil
}

// unwrap replaces w by its children.
func (r *revisionResolver) unwrap(w xml.NodeID) {
	parent := r.doc.Parent(w)
	at := r.doc.IndexOf(w)
	kids := append([]xml.NodeID(nil), r.doc.Children(w)...)
	r.doc.RemoveChild(w)
	for i, c := range kids {
		r.doc.InsertChild(parent, at+i, c)
	}
}

func (r *revisionResolver) restoreDeletedText(w xml.NodeID) {
	r.doc.Walk(w, func(id xml.NodeID) bool {
		switch r.doc.Name(id) {
		case nameDelText:
			r.doc.Node(id).Name = nameT
		case nameDelInstr:
			r.doc.Node(id).Name = nameInstrText
		}
		return true
	})
}

// marks resolves paragraph mark revisions. A paragraph losing its mark joins the next
// paragraph: its content moves to the front of the next one, which keeps its own
// properties.
func (r *revisionResolver) marks() error {
	markers, err := r.selectReverse("//w:pPr/w:rPr/w:ins | //w:pPr/w:rPr/w:del")
	if err != nil {
		return err
	}
	for _, m := range markers {
		rPr := r.doc.Parent(m)
		pPr := r.doc.Parent(rPr)
		p := r.doc.Parent(pPr)
		remove := r.removes(r.doc.Name(m))
		r.doc.RemoveChild(m)
		if len(r.doc.Children(rPr)) == 0 && len(r.doc.Attrs(rPr)) == 0 {
			r.doc.RemoveChild(rPr)
		}
		if !remove || p == xml.InvalidNode {
			continue
		}
		content := make([]xml.NodeID, 0, len(r.doc.Children(p)))
		for _, c := range r.doc.Children(p) {
			if !r.doc.Is(c, namePPr) {
				content = append(content, c)
			}
		}
		if next := r.sibling(p, 1); next != xml.InvalidNode {
			at := 0
			if first := r.doc.ChildElements(next); len(first) > 0 && r.doc.Is(first[0], namePPr) {
				at = 1
			}
			for _, c := range content {
				r.doc.InsertChild(next, at, c)
				at++
			}
			r.doc.RemoveChild(p)
			continue
		}
		// The last paragraph of a container keeps its mark; it joins the previous
		// paragraph instead.
		if prev := r.sibling(p, -1); prev != xml.InvalidNode {
			for _, c := range content {
				r.doc.AppendChild(prev, c)
			}
			r.doc.RemoveChild(p)
			continue
		}
		// Bordered by tables or the container edge: only an empty paragraph goes.
		if r.removable(p) {
			r.doc.RemoveChild(p)
		}
	}
	return nil
}

// removable reports whether p holds nothing visible and its container does not need
// it: a table cell or text box must keep at least one paragraph.
func (r *revisionResolver) removable(p xml.NodeID) bool {
	for _, c := range r.doc.ChildElements(p) {
		name := r.doc.Name(c)
		if name != namePPr && !markerElements[name] && !ignoredElements[name] {
			return false
		}
	}
	parent := r.doc.Parent(p)
	if parent == xml.InvalidNode {
		return false
	}
	if r.doc.Is(parent, nameBody) {
		return true
	}
	for _, c := range r.doc.ChildElements(parent) {
		if c != p && r.doc.Is(c, nameP) {
			return true
		}
	}
	return false
}

// sibling returns the neighbouring paragraph in direction dir (1 or -1), skipping
// position markers. Any other element in between ends the search.
func (r *revisionResolver) sibling(p xml.NodeID, dir int) xml.NodeID {
	parent := r.doc.Parent(p)
	if parent == xml.InvalidNode {
		return xml.InvalidNode
	}
	kids := r.doc.Children(parent)
	for i := r.doc.IndexOf(p) + dir; i >= 0 && i < len(kids); i += dir {
		name := r.doc.Name(kids[i])
		switch {
		case name == nameP:
			return kids[i]
		case r.doc.Type(kids[i]) != xml.ElementNode, markerElements[name], ignoredElements[name]:
			continue
		}
		return xml.InvalidNode
	}
	return xml.InvalidNode
}

// properties resolves property changes. Rejecting one restores the recorded
// properties; nested property elements (w:rPr in w:pPr, w:sectPr) are kept.
func (r *revisionResolver) properties() error {
	changes, err := r.selectReverse("//w:rPrChange | //w:pPrChange | //w:tblPrChange | //w:trPrChange | //w:tcPrChange | //w:sectPrChange")
	if err != nil {
		return err
	}
	for _, ch := range changes {
		props := r.doc.Parent(ch)
		r.doc.RemoveChild(ch)
		if r.accept || props == xml.InvalidNode {
			continue
		}
		old := r.doc.FirstChild(ch, propertyChanges[r.doc.Name(ch)])
		for _, c := range r.doc.ChildElements(props) {
			if !keepOnReject(r.doc.Name(c)) {
				r.doc.RemoveChild(c)
			}
		}
		if old == xml.InvalidNode {
			continue
		}
		at := 0
		for _, c := range append([]xml.NodeID(nil), r.doc.Children(old)...) {
			r.doc.InsertChild(props, at, c)
			at++
		}
	}
	return nil
}

// keepOnReject lists children of property elements that a property change does not
// record.
func keepOnReject(n xml.Name) bool {
	switch n {
	case nameRPr, nameSectPr, nameIns, nameDel, nameMoveFrom, nameMoveTo:
		return true
	}
	switch n.Local {
	case "headerReference", "footerReference":
		return n.Space == xml.WNamespace
	}
	return false
}
