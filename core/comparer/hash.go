package comparer

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/FocuswithJustin/wmlcompare/core/xml"
	"github.com/zeebo/blake3"
)

// digest returns a 128-bit BLAKE3 digest of the parts, hex encoded.
func digest(parts ...string) string {
	h := blake3.New()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// PartResolver maps relationship ids of a story part to a digest of the referenced
// part, so that the same image under different relationship ids compares equal.
type PartResolver interface {
	PartHash(relID string) (string, bool)
}

// relationshipAttrs hold relationship ids that are replaced by part digests.
var relationshipAttrs = map[string]bool{
	"embed": true,
	"id":    true,
	"link":  true,
	"pict":  true,
	"href":  true,
}

// canonical serializes a subtree for hashing: volatile attributes are dropped,
// attributes are sorted, relationship ids are replaced by part digests, and children
// for which skip returns true are left out.
func (t *sideTable) canonical(id xml.NodeID, skip func(xml.Name) bool) string {
	var sb strings.Builder
	t.writeCanonical(&sb, id, skip)
	return sb.String()
}

func (t *sideTable) writeCanonical(sb *strings.Builder, id xml.NodeID, skip func(xml.Name) bool) {
	doc := t.doc
	switch doc.Type(id) {
	case xml.TextNode:
		sb.WriteString(doc.Text(id))
		return
	case xml.CommentNode:
		return
	}

	name := doc.Name(id)
	sb.WriteString("<")
	sb.WriteString(name.String())

	attrs := make([]string, 0, len(doc.Attrs(id)))
	for _, a := range doc.Attrs(id) {
		if a.IsNamespaceDecl() || volatileAttrs[a.Name.Local] {
			continue
		}
		if name == nameDocPr || name.Local == "cNvPr" {
			if a.Name == attrDocPrID || a.Name == attrDocPrName {
				continue
			}
		}
		v := a.Value
		if a.Name.Space == xml.RNamespace && relationshipAttrs[a.Name.Local] && t.parts != nil {
			if h, ok := t.parts.PartHash(v); ok {
				v = "part:" + h
			}
		}
		attrs = append(attrs, a.Name.String()+"="+v)
	}
	sort.Strings(attrs)
	for _, a := range attrs {
		sb.WriteString(" ")
		sb.WriteString(a)
	}
	sb.WriteString(">")

	for _, c := range doc.Children(id) {
		if skip != nil && doc.Type(c) == xml.ElementNode && skip(doc.Name(c)) {
			continue
		}
		t.writeCanonical(sb, c, skip)
	}
	sb.WriteString("</>")
}

func skipRunPropertyRevisions(n xml.Name) bool {
	return n == nameIns || n == nameDel || n == nameMoveFrom || n == nameMoveTo || n == nameRPrChange
}

func skipParagraphPropertyRevisions(n xml.Name) bool {
	return n == nameRPr || n == namePPrChange || n == nameSectPr
}
