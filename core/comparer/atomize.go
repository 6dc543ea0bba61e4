package comparer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/fieldcode"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
	"golang.org/x/text/cases"
)

const (
	kindText  = "t"
	kindMark  = "pPr"
	kindInstr = "instrText"
)

// walkState is the context of a node during atomization.
type walkState struct {
	chain     []xml.NodeID
	structure []xml.NodeID
	structKey string
	path      string
	status    Status
	author    string
	date      string
}

func (st walkState) child(i int) walkState {
	st.path = st.path + "/" + strconv.Itoa(i)
	return st
}

type atomizer struct {
	t        *sideTable
	settings *Settings
	fold     cases.Caser
	pending  []xml.NodeID
}

// atomize flattens the side's tree into atoms in document order.
func (t *sideTable) atomize(settings *Settings) error {
	doc := t.doc
	if doc == nil || doc.Root() == xml.InvalidNode {
		return &errors.ValidationError{Document: t.name, Message: "empty document tree"}
	}
	root := doc.Root()
	if !storyRoots[doc.Name(root)] {
		return &errors.ValidationError{
			Document: t.name,
			Field:    doc.Name(root).Local,
			Message:  "root element is not a WordprocessingML story",
		}
	}

	z := &atomizer{t: t, settings: settings, fold: cases.Fold()}
	if err := z.block(root, walkState{path: "0"}); err != nil {
		return err
	}
	if len(z.pending) > 0 && len(t.atoms) > 0 {
		last := t.atoms[len(t.atoms)-1]
		last.Markers = append(last.Markers, z.pending...)
	}
	for _, a := range t.atoms {
		if len(a.Ancestors) == 0 {
			return &errors.ValidationError{Document: t.name, Field: a.Kind, Message: "atom has no ancestor chain"}
		}
	}
	return nil
}

func (z *atomizer) push(id xml.NodeID, st walkState) walkState {
	doc := z.t.doc
	u := z.t.assignUnid(id, st.path)
	z.t.consume(id)
	st.chain = append(st.chain[:len(st.chain):len(st.chain)], id)
	if _, ok := structuralElements[doc.Name(id)]; ok {
		st.structure = append(st.structure[:len(st.structure):len(st.structure)], id)
		st.structKey = st.structKey + "/" + u
	}
	return st
}

func (z *atomizer) withRevision(id xml.NodeID, st walkState) walkState {
	doc := z.t.doc
	z.t.consume(id)
	st.status = revisionWrappers[doc.Name(id)]
	st.author = doc.AttrValue(id, attrAuthor)
	st.date = doc.AttrValue(id, attrDate)
	return st
}

// block visits a container of paragraphs and tables.
func (z *atomizer) block(id xml.NodeID, st walkState) error {
	inner := z.push(id, st)
	return z.blockChildren(id, inner)
}

func (z *atomizer) blockChildren(id xml.NodeID, st walkState) error {
	doc := z.t.doc
	for i, c := range doc.Children(id) {
		if doc.Type(c) != xml.ElementNode {
			continue
		}
		cst := st.child(i)
		name := doc.Name(c)
		switch {
		case name == nameP:
			if err := z.paragraph(c, cst); err != nil {
				return err
			}
		case revisionWrappers[name] != 0:
			if err := z.blockChildren(c, z.withRevision(c, cst)); err != nil {
				return err
			}
		case markerElements[name]:
			z.t.consume(c)
			z.pending = append(z.pending, c)
		case ignoredElements[name]:
			z.t.consume(c)
		case blockContainers[name]:
			if err := z.block(c, cst); err != nil {
				return err
			}
		}
	}
	return nil
}

func (z *atomizer) paragraph(p xml.NodeID, st walkState) error {
	doc := z.t.doc
	if len(st.structure) > 0 && doc.Is(st.structure[len(st.structure)-1], nameP) {
		return &errors.ValidationError{Document: z.t.name, Field: "w:p", Message: "paragraph nested directly in a paragraph"}
	}
	inner := z.push(p, st)
	if err := z.inline(p, inner); err != nil {
		return err
	}

	pPr := doc.FirstChild(p, namePPr)
	mark := &Atom{
		Kind:   kindMark,
		Node:   pPr,
		props:  pPr,
		Status: StatusEqual,
		hash:   digest(kindMark, "¶"),
	}
	if pPr != xml.InvalidNode {
		z.t.consume(pPr)
		mark.format = z.t.canonical(pPr, skipParagraphPropertyRevisions)
		if rPr := doc.FirstChild(pPr, nameRPr); rPr != xml.InvalidNode {
			for _, c := range doc.ChildElements(rPr) {
				if s, ok := revisionWrappers[doc.Name(c)]; ok {
					mark.Status = s
					mark.RevAuthor = doc.AttrValue(c, attrAuthor)
					mark.RevDate = doc.AttrValue(c, attrDate)
					break
				}
			}
		}
	}
	z.emit(mark, inner)
	return nil
}

// inline visits the children of a paragraph or of a container inside one.
func (z *atomizer) inline(id xml.NodeID, st walkState) error {
	doc := z.t.doc
	for i, c := range doc.Children(id) {
		if doc.Type(c) != xml.ElementNode {
			continue
		}
		cst := st.child(i)
		name := doc.Name(c)
		switch {
		case name == namePPr:
		case name == nameR:
			if err := z.run(c, cst); err != nil {
				return err
			}
		case name == nameP:
			return &errors.ValidationError{Document: z.t.name, Field: "w:p", Message: "paragraph nested inside inline content"}
		case revisionWrappers[name] != 0:
			if err := z.inline(c, z.withRevision(c, cst)); err != nil {
				return err
			}
		case markerElements[name]:
			z.t.consume(c)
			z.pending = append(z.pending, c)
		case ignoredElements[name]:
			z.t.consume(c)
		case inlineContainers[name]:
			if err := z.inline(c, z.push(c, cst)); err != nil {
				return err
			}
		case isProperty(name):
		default:
			// Math, foreign markup: compared as one opaque atom.
			z.t.consume(c)
			z.emit(&Atom{
				Kind:   name.Local,
				Node:   c,
				Status: cst.status,
				hash:   digest(name.Local, z.t.canonical(c, nil)),
			}, cst)
		}
	}
	return nil
}

// Property elements of containers; they are copied, not compared.
func isProperty(n xml.Name) bool {
	if n.Space != xml.WNamespace {
		return false
	}
	switch n.Local {
	case "rPr", "sdtPr", "sdtEndPr", "fldData", "customXmlPr", "smartTagPr":
		return true
	}
	return false
}

func (z *atomizer) run(r xml.NodeID, st walkState) error {
	doc := z.t.doc
	inner := z.push(r, st)

	rPr := doc.FirstChild(r, nameRPr)
	format, lang := "", ""
	if rPr != xml.InvalidNode {
		format = z.t.canonical(rPr, skipRunPropertyRevisions)
		if l := doc.FirstChild(rPr, nameLang); l != xml.InvalidNode {
			lang = doc.AttrValue(l, attrVal)
			if lang == "" {
				lang = doc.AttrValue(l, xml.W("bidi"))
			}
		}
	}

	for i, c := range doc.Children(r) {
		if doc.Type(c) != xml.ElementNode {
			continue
		}
		cst := inner.child(i)
		name := doc.Name(c)
		atom := &Atom{Node: c, props: rPr, format: format, Lang: lang}

		switch {
		case name == nameRPr:
			continue
		case name == nameT || name == nameDelText:
			z.t.consume(c)
			text := doc.InnerText(c)
			for len(text) > 0 {
				ch, size := utf8.DecodeRuneInString(text)
				s := text[:size]
				text = text[size:]
				z.emit(&Atom{
					Kind:   kindText,
					Node:   c,
					Text:   s,
					props:  rPr,
					format: format,
					Lang:   lang,
					hash:   digest(kindText, z.normalize(ch, s)),
				}, inner)
			}
			continue
		case name == nameInstrText || name == nameDelInstr:
			text := doc.InnerText(c)
			atom.Kind = kindInstr
			atom.Text = text
			atom.hash = digest(kindInstr, fieldcode.Canonical(text))
		case ignoredElements[name]:
			z.t.consume(c)
			continue
		case markerElements[name]:
			z.t.consume(c)
			z.pending = append(z.pending, c)
			continue
		case (name == xml.W("drawing") || name == xml.W("pict")) && z.t.containsTextbox(c):
			if err := z.textbox(c, cst); err != nil {
				return err
			}
			continue
		case name == (xml.Name{Space: xml.MCNamespace, Local: "AlternateContent"}) && z.t.containsTextbox(c):
			if err := z.alternateContent(c, cst); err != nil {
				return err
			}
			continue
		default:
			atom.Kind = name.Local
			atom.Text = runAtoms[name]
			atom.hash = z.runAtomHash(c, name)
		}
		z.t.consume(c)
		z.emit(atom, inner)
	}
	return nil
}

func (z *atomizer) runAtomHash(c xml.NodeID, name xml.Name) string {
	doc := z.t.doc
	switch name.Local {
	case "br":
		return digest("br", doc.AttrValue(c, attrType))
	case "sym":
		return digest("sym", doc.AttrValue(c, xml.W("font")), strings.ToUpper(doc.AttrValue(c, xml.W("char"))))
	case "fldChar":
		return digest("fldChar", doc.AttrValue(c, xml.W("fldCharType")))
	case "tab", "ptab", "cr", "noBreakHyphen", "softHyphen", "footnoteReference", "endnoteReference",
		"commentReference", "annotationRef", "footnoteRef", "endnoteRef", "separator",
		"continuationSeparator", "pgNum", "dayShort", "dayLong", "monthShort", "monthLong",
		"yearShort", "yearLong":
		return digest(name.Local)
	}
	return digest(name.Local, z.t.canonical(c, nil))
}

// textbox descends through drawing markup to the text box content it holds. Every
// element on the way joins the ancestor chain; siblings off the path stay untouched.
func (z *atomizer) textbox(id xml.NodeID, st walkState) error {
	doc := z.t.doc
	if doc.Is(id, nameTxbx) {
		return z.block(id, st)
	}
	inner := z.push(id, st)
	for i, c := range doc.Children(id) {
		if doc.Type(c) == xml.ElementNode && z.t.containsTextbox(c) {
			if err := z.textbox(c, inner.child(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// alternateContent follows the first choice that holds a text box. The fallback is
// carried along unchanged.
func (z *atomizer) alternateContent(id xml.NodeID, st walkState) error {
	doc := z.t.doc
	inner := z.push(id, st)
	for i, c := range doc.ChildElements(id) {
		if doc.Name(c).Local == "Choice" && z.t.containsTextbox(c) {
			return z.textbox(c, inner.child(i))
		}
	}
	return nil
}

func (z *atomizer) normalize(ch rune, s string) string {
	if z.settings.ConflateBreakingAndNonbreakingSpaces && ch == '\u00a0' {
		return " "
	}
	if z.settings.CaseInsensitive {
		return z.fold.String(s)
	}
	return s
}

func (z *atomizer) emit(a *Atom, st walkState) {
	t := z.t
	a.Doc = t.doc
	a.Side = t.side
	a.Index = len(t.atoms)
	a.Ancestors = st.chain
	a.structure = st.structure
	a.structKey = st.structKey
	if a.Status == 0 || a.Status == StatusEqual {
		if st.status != 0 {
			a.Status = st.status
			a.RevAuthor = st.author
			a.RevDate = st.date
		} else if a.Status == 0 {
			a.Status = StatusEqual
		}
	}
	if len(z.pending) > 0 {
		a.Markers = z.pending
		z.pending = nil
	}
	t.atoms = append(t.atoms, a)
}
