package comparer

import (
	"strings"

	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
)

// entry is one atom placed in the output document.
type entry struct {
	atom   *Atom
	status Status
	// before holds the counterpart atom when equal content changed its properties.
	before *Atom
	author string
	date   string
	color  string
	chain  []nodeKey
}

func (e *entry) keepsMarkers() bool {
	return e.status != StatusDeleted
}

// entriesFromRecords flattens resolved records into output entries. Equal content
// comes from the side selected by EqualSource.
func entriesFromRecords(records []*CorrelatedSequence, s *Settings, date string) ([]*entry, error) {
	var out []*entry
	for _, rec := range records {
		switch rec.Status {
		case StatusEqual:
			la, ra := atomsOf(rec.Left), atomsOf(rec.Right)
			if len(la) != len(ra) {
				return nil, errors.NewInternalf("reassembler", "equal record pairs %d left atoms with %d right atoms", len(la), len(ra))
			}
			for i := range ra {
				chosen, other := ra[i], la[i]
				if s.EqualSource == SideLeft {
					chosen, other = la[i], ra[i]
				}
				e := &entry{atom: chosen, status: chosen.Status, author: chosen.RevAuthor, date: chosen.RevDate}
				if chosen.Status == StatusEqual && s.TrackFormattingChanges && s.EqualSource == SideRight && chosen.format != other.format {
					e.before = other
					e.author, e.date = s.AuthorForRevisions, date
				}
				out = append(out, e)
			}
		case StatusDeleted:
			for _, a := range atomsOf(rec.Left) {
				e := &entry{atom: a, status: StatusDeleted, author: s.AuthorForRevisions, date: date}
				if a.Status == StatusDeleted {
					e.author, e.date = a.RevAuthor, a.RevDate
				}
				out = append(out, e)
			}
		case StatusInserted:
			for _, a := range atomsOf(rec.Right) {
				e := &entry{atom: a, status: StatusInserted, author: s.AuthorForRevisions, date: date}
				if a.Status != StatusEqual {
					e.status, e.author, e.date = a.Status, a.RevAuthor, a.RevDate
				}
				out = append(out, e)
			}
		default:
			return nil, errors.NewInternalf("reassembler", "unresolved %s record", rec.Status)
		}
	}
	return out, nil
}

// setChains resolves every entry's ancestor chain, replacing elements by their
// counterparts where a correspondence was recorded.
func setChains(entries []*entry, correspond map[nodeKey]nodeKey) {
	for _, e := range entries {
		chain := make([]nodeKey, len(e.atom.Ancestors))
		for i, id := range e.atom.Ancestors {
			k := nodeKey{e.atom.Doc, id}
			if m, ok := correspond[k]; ok {
				k = m
			}
			chain[i] = k
		}
		e.chain = chain
	}
}

// threadParagraphs gives every atom the paragraph of the next paragraph mark at its
// nesting level, walking backwards. Content therefore ends up in the paragraph whose
// mark terminates it in the output, which keeps inserted and deleted marks meaningful:
// accepting or rejecting them splits or joins exactly those paragraphs.
func threadParagraphs(entries []*entry) {
	current := make(map[int][]nodeKey)
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		ps := paragraphPositions(e.chain)
		level := len(ps) - 1
		if level < 0 {
			continue
		}
		if e.atom.IsParagraphMark() {
			rethread(e, ps, current, level-1)
			current[level] = append([]nodeKey(nil), e.chain[:ps[level]+1]...)
			for k := range current {
				if k > level {
					delete(current, k)
				}
			}
			continue
		}
		rethread(e, ps, current, level)
	}
}

func rethread(e *entry, ps []int, current map[int][]nodeKey, level int) {
	for j := level; j >= 0; j-- {
		prefix, ok := current[j]
		if !ok {
			continue
		}
		chain := append([]nodeKey(nil), prefix...)
		e.chain = append(chain, e.chain[ps[j]+1:]...)
		return
	}
}

func paragraphPositions(chain []nodeKey) []int {
	var ps []int
	for i, k := range chain {
		if k.doc.Is(k.id, nameP) {
			ps = append(ps, i)
		}
	}
	return ps
}

// reassembler builds the output tree from threaded entries.
type reassembler struct {
	settings *Settings
	out      *xml.Document
	consumed map[*xml.Document]map[xml.NodeID]bool
	labels   map[*xml.Document]string
	// origin records the source document of copied nodes that carry cross-reference ids.
	origin map[xml.NodeID]*xml.Document
}

func newReassembler(s *Settings, tables ...*sideTable) *reassembler {
	r := &reassembler{
		settings: s,
		out:      xml.NewDocument(),
		consumed: make(map[*xml.Document]map[xml.NodeID]bool),
		labels:   make(map[*xml.Document]string),
		origin:   make(map[xml.NodeID]*xml.Document),
	}
	for _, t := range tables {
		if _, ok := r.consumed[t.doc]; !ok {
			r.consumed[t.doc] = t.consumed
			r.labels[t.doc] = t.label
		}
	}
	return r
}

// child is one built node waiting to be attached to its parent.
type child struct {
	id     xml.NodeID
	status Status
	author string
	date   string
	// inline nodes may be wrapped in w:ins or w:del.
	inline bool
}

func (r *reassembler) build(entries []*entry) (*xml.Document, error) {
	if len(entries) == 0 {
		return nil, errors.NewInternal("reassembler", "no content to assemble")
	}
	root := entries[0].chain[0]
	for _, e := range entries {
		if len(e.chain) == 0 || e.chain[0] != root {
			return nil, errors.NewInternal("reassembler", "atoms do not share a root element")
		}
	}
	el, err := r.element(root, entries, 0)
	if err != nil {
		return nil, err
	}
	r.out.SetRoot(el.id)
	r.out.NormalizeNamespaces()
	return r.out, nil
}

// element builds the element k from the entries below it; depth is k's position in
// their chains.
func (r *reassembler) element(k nodeKey, group []*entry, depth int) (child, error) {
	src := k.doc
	name := src.Name(k.id)
	el, after := r.shell(k)

	if name == nameR {
		r.decorateRun(el, group[0])
	}

	kids, err := r.content(group, depth+1, name == nameR)
	if err != nil {
		return child{}, err
	}

	if name == nameP {
		if pPr := r.paragraphProperties(group, depth+1); pPr != xml.InvalidNode {
			r.out.InsertChild(el, 0, pPr)
		}
	}

	r.attach(el, kids, name == nameP || inlineContainers[name])
	for _, c := range after {
		r.out.AppendChild(el, r.out.Import(src, c))
	}

	if name == nameTr {
		r.markRow(el, group)
	}
	if name == nameFootnote || name == nameEndnote {
		r.origin[el] = src
	}

	c := child{id: el, status: StatusEqual}
	if name == nameR {
		e := group[0]
		c = child{id: el, status: e.status, author: e.author, date: e.date, inline: true}
	}
	return c, nil
}

// shell copies k without its content. Children that were not compared (properties,
// section properties, drawing geometry) are copied in place; the returned slice
// holds the ones that follow the content.
func (r *reassembler) shell(k nodeKey) (xml.NodeID, []xml.NodeID) {
	src := k.doc
	el := r.out.ImportShallow(src, k.id)
	r.out.RemoveAttr(el, xml.Name{Space: xml.W14Namespace, Local: "paraId"})
	r.out.RemoveAttr(el, xml.Name{Space: xml.W14Namespace, Local: "textId"})

	consumed := r.consumed[src]
	var after []xml.NodeID
	seen := false
	for _, c := range src.Children(k.id) {
		if src.Type(c) == xml.TextNode {
			continue
		}
		if consumed[c] {
			seen = true
			continue
		}
		if seen {
			after = append(after, c)
			continue
		}
		r.out.AppendChild(el, r.out.Import(src, c))
	}
	return el, after
}

// content builds the children at depth: nested elements grouped by chain, and leaf
// atoms whose chain ends here.
func (r *reassembler) content(entries []*entry, depth int, inRun bool) ([]child, error) {
	var out []child
	for i := 0; i < len(entries); {
		e := entries[i]

		if len(e.chain) == depth {
			if inRun && e.atom.Kind == kindText {
				j := i + 1
				for j < len(entries) && len(entries[j].chain) == depth && entries[j].atom.Kind == kindText {
					j++
				}
				out = append(out, child{id: r.text(entries[i:j])})
				i = j
				continue
			}
			leaves, err := r.leaf(e, inRun)
			if err != nil {
				return nil, err
			}
			out = append(out, leaves...)
			i++
			continue
		}

		k := e.chain[depth]
		j := i + 1
		for j < len(entries) && r.sameElement(e, entries[j], depth) {
			j++
		}
		if e.keepsMarkers() && depth == len(e.chain)-1 {
			out = append(out, r.markers(e)...)
		}
		c, err := r.element(k, entries[i:j], depth)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		i = j
	}
	return out, nil
}

// sameElement reports whether b continues the element that a opened at depth. Runs
// are split by revision status, author and property change, and before atoms that
// bring position markers.
func (r *reassembler) sameElement(a, b *entry, depth int) bool {
	if len(b.chain) <= depth || b.chain[depth] != a.chain[depth] {
		return false
	}
	k := a.chain[depth]
	if !k.doc.Is(k.id, nameR) {
		return true
	}
	if depth == len(b.chain)-1 && b.keepsMarkers() && len(b.atom.Markers) > 0 {
		return false
	}
	if a.status != b.status || a.author != b.author || a.date != b.date || a.color != b.color {
		return false
	}
	return formatKey(a) == formatKey(b)
}

func formatKey(e *entry) string {
	if e.before == nil {
		return ""
	}
	return e.before.format
}

// text merges consecutive characters of one run into a w:t or w:delText.
func (r *reassembler) text(entries []*entry) xml.NodeID {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.atom.Text)
	}
	s := sb.String()
	name := nameT
	if entries[0].status == StatusDeleted {
		name = nameDelText
	}
	t := r.out.CreateElement(name, "")
	if strings.TrimSpace(s) != s {
		r.out.SetAttr(t, attrSpace, "preserve")
	}
	r.out.AppendChild(t, r.out.CreateText(s))
	return t
}

// leaf copies a non-text atom. Paragraph marks are emitted by the paragraph itself and
// only contribute their markers here.
func (r *reassembler) leaf(e *entry, inRun bool) ([]child, error) {
	var out []child
	if e.keepsMarkers() {
		out = append(out, r.markers(e)...)
	}
	if e.atom.IsParagraphMark() {
		return out, nil
	}
	if e.atom.Node == xml.InvalidNode {
		return nil, errors.NewInternalf("reassembler", "%s atom without a source node", e.atom.Kind)
	}
	id := r.out.Import(e.atom.Doc, e.atom.Node)
	if e.status == StatusDeleted {
		switch r.out.Name(id) {
		case nameInstrText:
			r.out.Node(id).Name = nameDelInstr
		case nameT:
			r.out.Node(id).Name = nameDelText
		}
	} else if r.out.Is(id, nameDelInstr) {
		r.out.Node(id).Name = nameInstrText
	}
	switch e.atom.Kind {
	case "footnoteReference", "endnoteReference", "commentReference":
		r.origin[id] = e.atom.Doc
	}
	c := child{id: id, status: StatusEqual}
	if !inRun {
		c = child{id: id, status: e.status, author: e.author, date: e.date, inline: true}
	}
	return append(out, c), nil
}

func (r *reassembler) markers(e *entry) []child {
	out := make([]child, 0, len(e.atom.Markers))
	for _, m := range e.atom.Markers {
		id := r.out.Import(e.atom.Doc, m)
		r.origin[id] = e.atom.Doc
		out = append(out, child{id: id, status: StatusEqual})
	}
	return out
}

// attach appends children to parent. Inside paragraphs, runs of inserted or deleted
// children by the same author are wrapped in one w:ins or w:del.
func (r *reassembler) attach(parent xml.NodeID, kids []child, wrap bool) {
	for i := 0; i < len(kids); {
		k := kids[i]
		if !wrap || !k.inline || (k.status != StatusInserted && k.status != StatusDeleted) {
			r.out.AppendChild(parent, k.id)
			i++
			continue
		}
		j := i + 1
		for j < len(kids) && kids[j].inline && kids[j].status == k.status &&
			kids[j].author == k.author && kids[j].date == k.date {
			j++
		}
		w := r.revision(k.status, k.author, k.date)
		for _, kk := range kids[i:j] {
			r.out.AppendChild(w, kk.id)
		}
		r.out.AppendChild(parent, w)
		i = j
	}
}

// revision creates a w:ins or w:del. Ids are assigned when renumbering.
func (r *reassembler) revision(status Status, author, date string) xml.NodeID {
	name := nameIns
	if status == StatusDeleted {
		name = nameDel
	}
	w := r.out.CreateElement(name, "")
	r.out.SetAttr(w, attrID, "0")
	r.out.SetAttr(w, attrAuthor, author)
	if date != "" {
		r.out.SetAttr(w, attrDate, date)
	}
	return w
}

// decorateRun adds a property-change record and the revisor color to a run shell.
func (r *reassembler) decorateRun(run xml.NodeID, e *entry) {
	if e.before == nil && e.color == "" {
		return
	}
	rPr := r.out.FirstChild(run, nameRPr)
	if rPr == xml.InvalidNode {
		rPr = r.out.CreateElement(nameRPr, "")
		r.out.InsertChild(run, 0, rPr)
	}
	if e.color != "" && (e.status == StatusInserted || e.status == StatusDeleted) {
		shd := r.out.FirstChild(rPr, nameShd)
		if shd == xml.InvalidNode {
			shd = r.out.CreateElement(nameShd, "")
			r.out.InsertChild(rPr, r.insertionPoint(rPr), shd)
		}
		r.out.SetAttr(shd, attrVal, "clear")
		r.out.SetAttr(shd, attrColor, "auto")
		r.out.SetAttr(shd, attrFill, e.color)
	}
	if e.before != nil {
		for _, c := range r.out.ChildElements(rPr) {
			if r.out.Is(c, nameRPrChange) {
				r.out.RemoveChild(c)
			}
		}
		change := r.out.CreateElement(nameRPrChange, "")
		r.out.SetAttr(change, attrID, "0")
		r.out.SetAttr(change, attrAuthor, e.author)
		if e.date != "" {
			r.out.SetAttr(change, attrDate, e.date)
		}
		old := r.out.CreateElement(nameRPr, "")
		if e.before.props != xml.InvalidNode {
			r.copyFiltered(old, e.before.Doc, e.before.props, skipRunPropertyRevisions)
		}
		r.out.AppendChild(change, old)
		r.out.AppendChild(rPr, change)
	}
}

// insertionPoint is the index before any trailing revision records of a property
// element.
func (r *reassembler) insertionPoint(props xml.NodeID) int {
	kids := r.out.Children(props)
	for i, c := range kids {
		switch r.out.Name(c) {
		case nameRPrChange, namePPrChange, nameIns, nameDel, nameMoveFrom, nameMoveTo:
			return i
		}
	}
	return len(kids)
}

func (r *reassembler) copyFiltered(dst xml.NodeID, src *xml.Document, from xml.NodeID, skip func(xml.Name) bool) {
	for _, c := range src.ChildElements(from) {
		if skip(src.Name(c)) {
			continue
		}
		r.out.AppendChild(dst, r.out.Import(src, c))
	}
}

// paragraphProperties builds the w:pPr of a paragraph from its mark entry, recording
// mark insertion or deletion and property changes.
func (r *reassembler) paragraphProperties(group []*entry, depth int) xml.NodeID {
	var mark *entry
	for i := len(group) - 1; i >= 0; i-- {
		if len(group[i].chain) == depth && group[i].atom.IsParagraphMark() {
			mark = group[i]
			break
		}
	}
	if mark == nil {
		return xml.InvalidNode
	}

	var pPr xml.NodeID
	if mark.atom.Node != xml.InvalidNode {
		pPr = r.out.Import(mark.atom.Doc, mark.atom.Node)
	} else {
		pPr = r.out.CreateElement(namePPr, "")
	}
	if rPr := r.out.FirstChild(pPr, nameRPr); rPr != xml.InvalidNode {
		for _, c := range r.out.ChildElements(rPr) {
			if _, ok := revisionWrappers[r.out.Name(c)]; ok {
				r.out.RemoveChild(c)
			}
		}
	}

	if mark.status == StatusInserted || mark.status == StatusDeleted {
		rPr := r.out.FirstChild(pPr, nameRPr)
		if rPr == xml.InvalidNode {
			rPr = r.out.CreateElement(nameRPr, "")
			idx := len(r.out.Children(pPr))
			for i, c := range r.out.Children(pPr) {
				if r.out.Is(c, nameSectPr) || r.out.Is(c, namePPrChange) {
					idx = i
					break
				}
			}
			r.out.InsertChild(pPr, idx, rPr)
		}
		r.out.InsertChild(rPr, 0, r.revision(mark.status, mark.author, mark.date))
	}

	if mark.before != nil {
		for _, c := range r.out.ChildElements(pPr) {
			if r.out.Is(c, namePPrChange) {
				r.out.RemoveChild(c)
			}
		}
		change := r.out.CreateElement(namePPrChange, "")
		r.out.SetAttr(change, attrID, "0")
		r.out.SetAttr(change, attrAuthor, mark.author)
		if mark.date != "" {
			r.out.SetAttr(change, attrDate, mark.date)
		}
		old := r.out.CreateElement(namePPr, "")
		if mark.before.Node != xml.InvalidNode {
			r.copyFiltered(old, mark.before.Doc, mark.before.Node, skipParagraphPropertyRevisions)
		}
		r.out.AppendChild(change, old)
		r.out.AppendChild(pPr, change)
	}

	if len(r.out.Children(pPr)) == 0 && len(r.out.Attrs(pPr)) == 0 {
		return xml.InvalidNode
	}
	return pPr
}

// markRow flags a table row whose content is entirely inserted or deleted.
func (r *reassembler) markRow(tr xml.NodeID, group []*entry) {
	status := group[0].status
	if status != StatusInserted && status != StatusDeleted {
		return
	}
	for _, e := range group[1:] {
		if e.status != status {
			return
		}
	}
	trPr := r.out.FirstChild(tr, nameTrPr)
	if trPr == xml.InvalidNode {
		trPr = r.out.CreateElement(nameTrPr, "")
		idx := 0
		if kids := r.out.ChildElements(tr); len(kids) > 0 && r.out.Name(kids[0]).Local == "tblPrEx" {
			idx = 1
		}
		r.out.InsertChild(tr, idx, trPr)
	}
	for _, c := range r.out.ChildElements(trPr) {
		if _, ok := revisionWrappers[r.out.Name(c)]; ok {
			r.out.RemoveChild(c)
		}
	}
	r.out.AppendChild(trPr, r.revision(status, group[0].author, group[0].date))
}
