package archive

import (
	"encoding/hex"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/wmlcompare/core/comparer"
	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
	"github.com/zeebo/blake3"
)

// Relationship types used by the package layer.
const (
	relTypeBase       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
	RelOfficeDocument = relTypeBase + "officeDocument"
	RelHeader         = relTypeBase + "header"
	RelFooter         = relTypeBase + "footer"
	RelFootnotes      = relTypeBase + "footnotes"
	RelEndnotes       = relTypeBase + "endnotes"
	RelComments       = relTypeBase + "comments"
)

// Content types of the parts the package layer creates.
const (
	contentTypeRels      = "application/vnd.openxmlformats-package.relationships+xml"
	contentTypeDocument  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	contentTypeComments  = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"
	contentTypeFootnotes = "application/vnd.openxmlformats-officedocument.wordprocessingml.footnotes+xml"
	contentTypeEndnotes  = "application/vnd.openxmlformats-officedocument.wordprocessingml.endnotes+xml"
)

var (
	nameRelationships = xml.Name{Space: xml.RelNamespace, Local: "Relationships"}
	nameRelationship  = xml.Name{Space: xml.RelNamespace, Local: "Relationship"}
	attrRelID         = xml.Name{Local: "Id"}
	attrRelType       = xml.Name{Local: "Type"}
	attrRelTarget     = xml.Name{Local: "Target"}
	attrRelMode       = xml.Name{Local: "TargetMode"}
)

// Relationship is one entry of a relationships part.
type Relationship struct {
	ID       string
	Type     string
	Target   string
	External bool
}

// RelsPartName returns the relationships part of a source part; "" names the package.
func RelsPartName(source string) string {
	dir, file := path.Split(source)
	return dir + "_rels/" + file + ".rels"
}

// ResolveTarget resolves a relationship target against its source part.
func ResolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return strings.TrimPrefix(path.Join(path.Dir(source), target), "/")
}

// Relationships lists the relationships of a part. A part without a relationships
// part has none.
func (p *Package) Relationships(source string) ([]Relationship, error) {
	name := RelsPartName(source)
	if _, ok := p.index[name]; !ok {
		return nil, nil
	}
	doc, err := p.Tree(name)
	if err != nil {
		return nil, err
	}
	if !doc.Is(doc.Root(), nameRelationships) {
		return nil, &errors.ValidationError{Document: p.Name, Field: name, Message: "not a relationships part"}
	}
	var rels []Relationship
	for _, el := range doc.ChildElements(doc.Root()) {
		if !doc.Is(el, nameRelationship) {
			continue
		}
		rels = append(rels, Relationship{
			ID:       doc.AttrValue(el, attrRelID),
			Type:     doc.AttrValue(el, attrRelType),
			Target:   doc.AttrValue(el, attrRelTarget),
			External: doc.AttrValue(el, attrRelMode) == "External",
		})
	}
	return rels, nil
}

// RelatedPart returns the first part of the given relationship type from source.
func (p *Package) RelatedPart(source, relType string) (string, bool) {
	rels, err := p.Relationships(source)
	if err != nil {
		return "", false
	}
	for _, rel := range rels {
		if rel.Type == relType && !rel.External {
			name := ResolveTarget(source, rel.Target)
			if _, ok := p.index[name]; ok {
				return name, true
			}
		}
	}
	return "", false
}

// AddRelationship adds a relationship from source to target unless one of the same
// type and target exists, and returns its id.
func (p *Package) AddRelationship(source, relType, target string) (string, error) {
	name := RelsPartName(source)
	var doc *xml.Document
	if _, ok := p.index[name]; ok {
		d, err := p.Tree(name)
		if err != nil {
			return "", err
		}
		doc = d.Clone()
	} else {
		doc = xml.NewDocument()
		doc.SetRoot(unprefixed(doc, nameRelationships))
		doc.SetAttr(doc.Root(), xml.Name{Local: "xmlns"}, xml.RelNamespace)
	}

	used := make(map[string]bool)
	for _, el := range doc.ChildElements(doc.Root()) {
		id := doc.AttrValue(el, attrRelID)
		used[id] = true
		if doc.AttrValue(el, attrRelType) == relType && ResolveTarget(source, doc.AttrValue(el, attrRelTarget)) == ResolveTarget(source, target) {
			return id, nil
		}
	}
	id := ""
	for n := 1; ; n++ {
		id = "rId" + strconv.Itoa(n)
		if !used[id] {
			break
		}
	}
	el := unprefixed(doc, nameRelationship)
	doc.SetAttr(el, attrRelID, id)
	doc.SetAttr(el, attrRelType, relType)
	doc.SetAttr(el, attrRelTarget, target)
	doc.AppendChild(doc.Root(), el)
	doc.NormalizeNamespaces()
	p.SetTree(name, contentTypeRels, doc)
	return id, nil
}

// unprefixed creates an element in the default namespace, the way package parts
// are conventionally written.
func unprefixed(doc *xml.Document, name xml.Name) xml.NodeID {
	el := doc.CreateElement(name, "")
	doc.Node(el).Prefix = ""
	return el
}

// partResolver maps relationship ids to digests of their targets.
type partResolver map[string]string

func (r partResolver) PartHash(relID string) (string, bool) {
	h, ok := r[relID]
	return h, ok
}

func (p *Package) resolver(source string) (comparer.PartResolver, error) {
	rels, err := p.Relationships(source)
	if err != nil {
		return nil, err
	}
	r := make(partResolver, len(rels))
	for _, rel := range rels {
		if rel.External {
			r[rel.ID] = hashBytes([]byte("external\x00" + rel.Target))
			continue
		}
		if data, ok := p.Part(ResolveTarget(source, rel.Target)); ok {
			r[rel.ID] = hashBytes(data)
		}
	}
	return r, nil
}

func hashBytes(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:16])
}

// contentTypes holds the defaults and overrides of a [Content_Types].xml part.
type contentTypes struct {
	defaults  map[string]string
	overrides map[string]string
}

var (
	nameCTTypes    = xml.Name{Space: ctNamespace, Local: "Types"}
	nameCTDefault  = xml.Name{Space: ctNamespace, Local: "Default"}
	nameCTOverride = xml.Name{Space: ctNamespace, Local: "Override"}
)

const ctNamespace = "http://schemas.openxmlformats.org/package/2006/content-types"

func parseContentTypes(data []byte) (*contentTypes, error) {
	doc, err := xml.Parse(data)
	if err != nil {
		return nil, err
	}
	ct := &contentTypes{defaults: make(map[string]string), overrides: make(map[string]string)}
	for _, el := range doc.ChildElements(doc.Root()) {
		switch {
		case doc.Is(el, nameCTDefault):
			ct.defaults[strings.ToLower(doc.AttrValue(el, xml.Name{Local: "Extension"}))] = doc.AttrValue(el, xml.Name{Local: "ContentType"})
		case doc.Is(el, nameCTOverride):
			name := strings.TrimPrefix(doc.AttrValue(el, xml.Name{Local: "PartName"}), "/")
			ct.overrides[strings.ToLower(name)] = doc.AttrValue(el, xml.Name{Local: "ContentType"})
		}
	}
	return ct, nil
}

func (ct *contentTypes) lookup(name string) string {
	if v, ok := ct.overrides[strings.ToLower(name)]; ok {
		return v
	}
	return ct.defaults[strings.ToLower(partExtension(name))]
}

// encodeContentTypes builds a [Content_Types].xml for the parts: a default for
// relationships and an override for every other part.
func encodeContentTypes(parts []*Part) []byte {
	doc := xml.NewDocument()
	root := unprefixed(doc, nameCTTypes)
	doc.SetRoot(root)
	doc.SetAttr(root, xml.Name{Local: "xmlns"}, ctNamespace)

	def := unprefixed(doc, nameCTDefault)
	doc.SetAttr(def, xml.Name{Local: "Extension"}, "rels")
	doc.SetAttr(def, xml.Name{Local: "ContentType"}, contentTypeRels)
	doc.AppendChild(root, def)

	sorted := append([]*Part(nil), parts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, part := range sorted {
		if part.ContentType == "" || part.ContentType == contentTypeRels {
			continue
		}
		o := unprefixed(doc, nameCTOverride)
		doc.SetAttr(o, xml.Name{Local: "PartName"}, "/"+part.Name)
		doc.SetAttr(o, xml.Name{Local: "ContentType"}, part.ContentType)
		doc.AppendChild(root, o)
	}
	return doc.Serialize()
}

// StoryParts returns the main part followed by the headers, footers and notes parts
// the main part relates to, in relationship order.
func (p *Package) StoryParts() ([]string, error) {
	parts := []string{p.main}
	if p.single {
		return parts, nil
	}
	rels, err := p.Relationships(p.main)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{p.main: true}
	for _, rel := range rels {
		switch rel.Type {
		case RelHeader, RelFooter, RelFootnotes, RelEndnotes:
		default:
			continue
		}
		name := ResolveTarget(p.main, rel.Target)
		if _, ok := p.index[name]; !ok || rel.External || seen[name] {
			continue
		}
		seen[name] = true
		parts = append(parts, name)
	}
	return parts, nil
}
