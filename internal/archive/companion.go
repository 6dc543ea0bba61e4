package archive

import (
	"sort"
	"strconv"

	"github.com/FocuswithJustin/wmlcompare/core/comparer"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
)

var (
	nameComment  = xml.W("comment")
	nameFootnote = xml.W("footnote")
	nameEndnote  = xml.W("endnote")
	attrID       = xml.W("id")
	attrType     = xml.W("type")
)

// LabeledPart is a companion part (comments, footnotes, endnotes) of one compared
// source, under the label the comparer used for that source.
type LabeledPart struct {
	Label string
	Doc   *xml.Document
}

// MergeEntries rebuilds a companion part after a comparison. Every entry (w:comment,
// w:footnote, w:endnote) that the assembled story still references is copied from its
// source under the id the comparer assigned; entries nobody references are dropped.
// Separator notes are taken from the first source that has them. The root element of
// the first source is used as the template. It returns nil when sources is empty.
func MergeEntries(entry xml.Name, m comparer.IDMap, sources []LabeledPart) *xml.Document {
	if len(sources) == 0 {
		return nil
	}
	out := xml.NewDocument()
	first := sources[0].Doc
	root := out.ImportShallow(first, first.Root())
	out.SetRoot(root)

	type kept struct {
		id   int
		doc  *xml.Document
		node xml.NodeID
	}
	var entries []kept
	seen := make(map[int]bool)
	separators := false

	for _, src := range sources {
		doc := src.Doc
		haveSeparators := false
		for _, el := range doc.ChildElements(doc.Root()) {
			if !doc.Is(el, entry) {
				continue
			}
			if t := doc.AttrValue(el, attrType); t == "separator" || t == "continuationSeparator" || t == "continuationNotice" {
				if !separators {
					out.AppendChild(root, out.Import(doc, el))
					haveSeparators = true
				}
				continue
			}
			v, ok := m.Lookup(src.Label, doc.AttrValue(el, attrID))
			if !ok {
				continue
			}
			id, err := strconv.Atoi(v)
			if err != nil || seen[id] {
				continue
			}
			seen[id] = true
			entries = append(entries, kept{id: id, doc: doc, node: el})
		}
		separators = separators || haveSeparators
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
	for _, e := range entries {
		el := out.Import(e.doc, e.node)
		out.SetAttr(el, attrID, strconv.Itoa(e.id))
		out.AppendChild(root, el)
	}
	out.NormalizeNamespaces()
	return out
}

// companion reads the companion part of the given relationship type from the main
// part of a package.
func companion(p *Package, label, relType string) (LabeledPart, string, bool, error) {
	if p.single {
		return LabeledPart{}, "", false, nil
	}
	name, ok := p.RelatedPart(p.main, relType)
	if !ok {
		return LabeledPart{}, "", false, nil
	}
	doc, err := p.Tree(name)
	if err != nil {
		return LabeledPart{}, "", false, err
	}
	return LabeledPart{Label: label, Doc: doc}, name, true, nil
}

// companionKinds lists the companion parts rebuilt after a comparison.
var companionKinds = []struct {
	relType     string
	entry       xml.Name
	contentType string
	defaultName string
	ids         func(comparer.IDMaps) comparer.IDMap
}{
	{RelComments, nameComment, contentTypeComments, "comments.xml", func(m comparer.IDMaps) comparer.IDMap { return m.Comments }},
	{RelFootnotes, nameFootnote, contentTypeFootnotes, "footnotes.xml", func(m comparer.IDMaps) comparer.IDMap { return m.Footnotes }},
	{RelEndnotes, nameEndnote, contentTypeEndnotes, "endnotes.xml", func(m comparer.IDMaps) comparer.IDMap { return m.Endnotes }},
}

// mergeCompanion rebuilds one companion part of out from the labeled packages. The
// part keeps its name in out, or is added next to the main part when out lacks it.
func mergeCompanion(out *Package, relType string, entry xml.Name, contentType, defaultName string, m comparer.IDMap, labeled []labeledPackage) error {
	var sources []LabeledPart
	for _, lp := range labeled {
		part, _, ok, err := companion(lp.pkg, lp.label, relType)
		if err != nil {
			return err
		}
		if ok {
			sources = append(sources, part)
		}
	}
	merged := MergeEntries(entry, m, sources)
	if merged == nil {
		return nil
	}

	name, ok := out.RelatedPart(out.main, relType)
	if !ok {
		if _, err := out.AddRelationship(out.main, relType, defaultName); err != nil {
			return err
		}
		name = ResolveTarget(out.main, defaultName)
	}
	out.SetTree(name, contentType, merged)
	return nil
}

type labeledPackage struct {
	label string
	pkg   *Package
}
