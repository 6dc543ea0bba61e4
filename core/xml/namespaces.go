package xml

import "strconv"

// Namespace URIs used by WordprocessingML parts.
const (
	XMLNamespace   = "http://www.w3.org/XML/1998/namespace"
	XMLNSNamespace = "http://www.w3.org/2000/xmlns/"

	WNamespace   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	RNamespace   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	WPNamespace  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	ANamespace   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	PicNamespace = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	MNamespace   = "http://schemas.openxmlformats.org/officeDocument/2006/math"
	MCNamespace  = "http://schemas.openxmlformats.org/markup-compatibility/2006"
	VNamespace   = "urn:schemas-microsoft-com:vml"
	ONamespace   = "urn:schemas-microsoft-com:office:office"
	W10Namespace = "urn:schemas-microsoft-com:office:word"
	W14Namespace = "http://schemas.microsoft.com/office/word/2010/wordml"
	W15Namespace = "http://schemas.microsoft.com/office/word/2012/wordml"
	WPSNamespace = "http://schemas.microsoft.com/office/word/2010/wordprocessingShape"
	WPGNamespace = "http://schemas.microsoft.com/office/word/2010/wordprocessingGroup"
	PkgNamespace = "http://schemas.microsoft.com/office/2006/xmlPackage"
	RelNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// Namespaces maps canonical prefixes to namespace URIs. XPath expressions passed to
// Select use these prefixes whatever prefixes the parsed document declared.
var Namespaces = map[string]string{
	"xml": XMLNamespace,
	"w":   WNamespace,
	"r":   RNamespace,
	"wp":  WPNamespace,
	"a":   ANamespace,
	"pic": PicNamespace,
	"m":   MNamespace,
	"mc":  MCNamespace,
	"v":   VNamespace,
	"o":   ONamespace,
	"w10": W10Namespace,
	"w14": W14Namespace,
	"w15": W15Namespace,
	"wps": WPSNamespace,
	"wpg": WPGNamespace,
	"pkg": PkgNamespace,
	"rel": RelNamespace,
}

var canonicalPrefixes = func() map[string]string {
	m := make(map[string]string, len(Namespaces))
	for p, uri := range Namespaces {
		m[uri] = p
	}
	return m
}()

// CanonicalPrefix returns the conventional prefix for a namespace URI, or "" if the
// namespace is not one of the well-known WordprocessingML namespaces.
func CanonicalPrefix(uri string) string {
	return canonicalPrefixes[uri]
}

// W returns a name in the WordprocessingML main namespace.
func W(local string) Name {
	return Name{Space: WNamespace, Local: local}
}

// R returns a name in the relationships namespace.
func R(local string) Name {
	return Name{Space: RNamespace, Local: local}
}

// NormalizeNamespaces moves namespace declarations to the root element. Elements and
// attributes assembled from several documents may use different prefixes for the same
// namespace, or prefixes declared only on an ancestor that was not copied; afterwards
// every namespace in use is declared once on the root and referenced by that prefix.
func (d *Document) NormalizeNamespaces() {
	if d.root == InvalidNode {
		return
	}
	byURI := make(map[string]string)
	byPrefix := make(map[string]string)
	defaultURI := ""
	for _, a := range d.nodes[d.root].Attrs {
		switch {
		case a.Prefix == "xmlns":
			if _, taken := byPrefix[a.Name.Local]; taken {
				continue
			}
			byPrefix[a.Name.Local] = a.Value
			if _, ok := byURI[a.Value]; !ok {
				byURI[a.Value] = a.Name.Local
			}
		case a.IsNamespaceDecl():
			defaultURI = a.Value
		}
	}

	declare := func(uri, hint string) string {
		if uri == XMLNamespace {
			return "xml"
		}
		if p, ok := byURI[uri]; ok {
			return p
		}
		p := CanonicalPrefix(uri)
		if _, taken := byPrefix[p]; p == "" || taken {
			p = hint
		}
		for n := 0; ; n++ {
			if _, taken := byPrefix[p]; p != "" && p != "xmlns" && p != "xml" && !taken {
				break
			}
			p = "ns" + strconv.Itoa(n)
		}
		byURI[uri] = p
		byPrefix[p] = uri
		d.nodes[d.root].Attrs = append(d.nodes[d.root].Attrs, Attr{
			Name:   Name{Space: XMLNSNamespace, Local: p},
			Prefix: "xmlns",
			Value:  uri,
		})
		return p
	}

	d.Walk(d.root, func(id NodeID) bool {
		n := &d.nodes[id]
		if n.Type != ElementNode {
			return true
		}
		if n.Name.Space != "" && !(n.Prefix == "" && n.Name.Space == defaultURI) {
			n.Prefix = declare(n.Name.Space, n.Prefix)
		}
		if id != d.root {
			attrs := n.Attrs[:0:0]
			for _, a := range n.Attrs {
				if !a.IsNamespaceDecl() {
					attrs = append(attrs, a)
				}
			}
			n.Attrs = attrs
		}
		for i := 0; i < len(n.Attrs); i++ {
			a := n.Attrs[i]
			if a.IsNamespaceDecl() || a.Name.Space == "" {
				continue
			}
			p := declare(a.Name.Space, a.Prefix)
			n.Attrs[i].Prefix = p
		}
		return true
	})
}
