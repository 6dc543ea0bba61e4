// Package xml provides an arena-backed XML tree for WordprocessingML parts.
//
// Nodes live in a flat slice owned by a Document and are addressed by NodeID. Ancestor
// chains captured by the comparator are therefore plain slices of indices, and a
// Document can be read concurrently by several comparisons as long as nobody mutates it.
//
// Parsing goes through xmlquery, which uses Go's encoding/xml decoder internally and does
// not fetch external entities.
package xml

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// NodeID addresses a node inside its Document.
type NodeID int32

// InvalidNode is returned by lookups that find nothing.
const InvalidNode NodeID = -1

// NodeType identifies the kind of a node.
type NodeType uint8

// Node types.
const (
	ElementNode NodeType = iota + 1
	TextNode
	CommentNode
)

// Name is a namespace-qualified name. Space holds the namespace URI.
type Name struct {
	Space string
	Local string
}

// String returns the name in Clark notation ({uri}local).
func (n Name) String() string {
	if n.Space == "" {
		return n.Local
	}
	return "{" + n.Space + "}" + n.Local
}

// Attr is an attribute. Prefix is kept for serialization only; comparisons use Name.
type Attr struct {
	Name   Name
	Prefix string
	Value  string
}

// IsNamespaceDecl reports whether the attribute declares a namespace.
func (a Attr) IsNamespaceDecl() bool {
	return a.Prefix == "xmlns" || (a.Prefix == "" && a.Name.Local == "xmlns")
}

// Node is a single tree node. Fields are read-only for callers; use the Document
// builder methods to change them.
type Node struct {
	Type     NodeType
	Name     Name
	Prefix   string
	Attrs    []Attr
	Text     string
	Parent   NodeID
	Children []NodeID
}

// Document is an arena of nodes with a single root element.
type Document struct {
	nodes []Node
	root  NodeID
}

// NewDocument returns an empty document without a root.
func NewDocument() *Document {
	return &Document{root: InvalidNode}
}

// textElements keep whitespace-only character data; everywhere else it is formatting noise.
var textElements = map[string]bool{
	"t":            true,
	"delText":      true,
	"instrText":    true,
	"delInstrText": true,
}

// Parse parses XML data and returns a Document.
func Parse(data []byte) (*Document, error) {
	top, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}

	doc := NewDocument()
	for child := top.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			doc.root = doc.importQueryNode(child, InvalidNode)
			break
		}
	}
	if doc.root == InvalidNode {
		return nil, fmt.Errorf("parsing XML: no root element")
	}
	return doc, nil
}

func (d *Document) importQueryNode(n *xmlquery.Node, parent NodeID) NodeID {
	switch n.Type {
	case xmlquery.ElementNode:
		id := d.CreateElement(Name{Space: n.NamespaceURI, Local: n.Data}, n.Prefix)
		for _, a := range n.Attr {
			d.nodes[id].Attrs = append(d.nodes[id].Attrs, convertAttr(a))
		}
		keepSpace := textElements[n.Data]
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == xmlquery.TextNode || child.Type == xmlquery.CharDataNode {
				if !keepSpace && strings.TrimSpace(child.Data) == "" {
					continue
				}
			}
			if cid := d.importQueryNode(child, id); cid != InvalidNode {
				d.AppendChild(id, cid)
			}
		}
		return id
	case xmlquery.TextNode, xmlquery.CharDataNode:
		return d.CreateText(n.Data)
	case xmlquery.CommentNode:
		id := d.newNode(Node{Type: CommentNode, Text: n.Data})
		return id
	}
	return InvalidNode
}

func convertAttr(a xmlquery.Attr) Attr {
	prefix := a.Name.Space
	uri := a.NamespaceURI
	switch {
	case prefix == "xmlns":
		return Attr{Name: Name{Space: XMLNSNamespace, Local: a.Name.Local}, Prefix: "xmlns", Value: a.Value}
	case prefix == "" && a.Name.Local == "xmlns":
		return Attr{Name: Name{Local: "xmlns"}, Value: a.Value}
	case prefix != "" && prefix == uri:
		// The decoder resolved the prefix to a URI that was never declared (xml:space).
		prefix = CanonicalPrefix(uri)
	}
	return Attr{Name: Name{Space: uri, Local: a.Name.Local}, Prefix: prefix, Value: a.Value}
}

func (d *Document) newNode(n Node) NodeID {
	n.Parent = InvalidNode
	d.nodes = append(d.nodes, n)
	return NodeID(len(d.nodes) - 1)
}

// Root returns the root element, or InvalidNode for an empty document.
func (d *Document) Root() NodeID {
	return d.root
}

// SetRoot makes id the root element.
func (d *Document) SetRoot(id NodeID) {
	d.root = id
	d.nodes[id].Parent = InvalidNode
}

// Len returns the number of nodes in the arena, including detached ones.
func (d *Document) Len() int {
	return len(d.nodes)
}

// Valid reports whether id addresses a node of this document.
func (d *Document) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(d.nodes)
}

// Node returns the node with the given id. The pointer is invalidated by any builder
// call that adds nodes.
func (d *Document) Node(id NodeID) *Node {
	return &d.nodes[id]
}

// Type returns the type of a node.
func (d *Document) Type(id NodeID) NodeType {
	return d.nodes[id].Type
}

// Name returns the qualified name of an element.
func (d *Document) Name(id NodeID) Name {
	return d.nodes[id].Name
}

// Is reports whether id is an element with the given name.
func (d *Document) Is(id NodeID, name Name) bool {
	n := &d.nodes[id]
	return n.Type == ElementNode && n.Name == name
}

// Parent returns the parent of a node, or InvalidNode for the root and detached nodes.
func (d *Document) Parent(id NodeID) NodeID {
	return d.nodes[id].Parent
}

// Children returns the children of a node. The slice must not be modified.
func (d *Document) Children(id NodeID) []NodeID {
	return d.nodes[id].Children
}

// ChildElements returns the element children of a node.
func (d *Document) ChildElements(id NodeID) []NodeID {
	var out []NodeID
	for _, c := range d.nodes[id].Children {
		if d.nodes[c].Type == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// FirstChild returns the first child element with the given name.
func (d *Document) FirstChild(id NodeID, name Name) NodeID {
	for _, c := range d.nodes[id].Children {
		if d.Is(c, name) {
			return c
		}
	}
	return InvalidNode
}

// Text returns the character data of a text or comment node.
func (d *Document) Text(id NodeID) string {
	return d.nodes[id].Text
}

// InnerText returns all text content of the node and its descendants.
func (d *Document) InnerText(id NodeID) string {
	var sb strings.Builder
	d.Walk(id, func(n NodeID) bool {
		if d.nodes[n].Type == TextNode {
			sb.WriteString(d.nodes[n].Text)
		}
		return true
	})
	return sb.String()
}

// Walk visits id and its descendants in document order. Returning false from fn skips
// the children of the visited node.
func (d *Document) Walk(id NodeID, fn func(NodeID) bool) {
	if !fn(id) {
		return
	}
	for _, c := range d.nodes[id].Children {
		d.Walk(c, fn)
	}
}

// Attr returns the value of an attribute.
func (d *Document) Attr(id NodeID, name Name) (string, bool) {
	for _, a := range d.nodes[id].Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrValue returns the value of an attribute, or "" when absent.
func (d *Document) AttrValue(id NodeID, name Name) string {
	v, _ := d.Attr(id, name)
	return v
}

// Attrs returns the attributes of an element. The slice must not be modified.
func (d *Document) Attrs(id NodeID) []Attr {
	return d.nodes[id].Attrs
}

// SetAttr sets an attribute, replacing any existing value.
func (d *Document) SetAttr(id NodeID, name Name, value string) {
	n := &d.nodes[id]
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Prefix: CanonicalPrefix(name.Space), Value: value})
}

// RemoveAttr removes an attribute if present.
func (d *Document) RemoveAttr(id NodeID, name Name) {
	n := &d.nodes[id]
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs = append(n.Attrs[:i:i], n.Attrs[i+1:]...)
			return
		}
	}
}

// CreateElement creates a detached element. An empty prefix is replaced by the
// canonical prefix of the namespace.
func (d *Document) CreateElement(name Name, prefix string) NodeID {
	if prefix == "" && name.Space != "" {
		prefix = CanonicalPrefix(name.Space)
	}
	return d.newNode(Node{Type: ElementNode, Name: name, Prefix: prefix})
}

// CreateText creates a detached text node.
func (d *Document) CreateText(s string) NodeID {
	return d.newNode(Node{Type: TextNode, Text: s})
}

// AppendChild attaches child as the last child of parent.
func (d *Document) AppendChild(parent, child NodeID) {
	d.detach(child)
	d.nodes[child].Parent = parent
	d.nodes[parent].Children = append(d.nodes[parent].Children, child)
}

// InsertChild attaches child at position index among the children of parent.
func (d *Document) InsertChild(parent NodeID, index int, child NodeID) {
	d.detach(child)
	kids := d.nodes[parent].Children
	if index < 0 || index > len(kids) {
		index = len(kids)
	}
	kids = append(kids, InvalidNode)
	copy(kids[index+1:], kids[index:])
	kids[index] = child
	d.nodes[parent].Children = kids
	d.nodes[child].Parent = parent
}

// RemoveChild detaches child from its parent. The node stays in the arena.
func (d *Document) RemoveChild(child NodeID) {
	d.detach(child)
}

func (d *Document) detach(child NodeID) {
	p := d.nodes[child].Parent
	if p == InvalidNode {
		return
	}
	kids := d.nodes[p].Children
	for i, c := range kids {
		if c == child {
			d.nodes[p].Children = append(kids[:i:i], kids[i+1:]...)
			break
		}
	}
	d.nodes[child].Parent = InvalidNode
}

// IndexOf returns the position of child among its parent's children, or -1.
func (d *Document) IndexOf(child NodeID) int {
	p := d.nodes[child].Parent
	if p == InvalidNode {
		return -1
	}
	for i, c := range d.nodes[p].Children {
		if c == child {
			return i
		}
	}
	return -1
}

// Import deep-copies the subtree rooted at id in src into d and returns the detached copy.
func (d *Document) Import(src *Document, id NodeID) NodeID {
	n := &src.nodes[id]
	cp := d.newNode(Node{Type: n.Type, Name: n.Name, Prefix: n.Prefix, Text: n.Text})
	if len(n.Attrs) > 0 {
		d.nodes[cp].Attrs = append([]Attr(nil), n.Attrs...)
	}
	for _, c := range src.nodes[id].Children {
		cc := d.Import(src, c)
		d.nodes[cc].Parent = cp
		d.nodes[cp].Children = append(d.nodes[cp].Children, cc)
	}
	return cp
}

// ImportShallow copies an element with its attributes but without children.
func (d *Document) ImportShallow(src *Document, id NodeID) NodeID {
	n := &src.nodes[id]
	cp := d.newNode(Node{Type: n.Type, Name: n.Name, Prefix: n.Prefix, Text: n.Text})
	if len(n.Attrs) > 0 {
		d.nodes[cp].Attrs = append([]Attr(nil), n.Attrs...)
	}
	return cp
}

// Clone returns an independent copy of the document.
func (d *Document) Clone() *Document {
	cp := &Document{root: d.root, nodes: make([]Node, len(d.nodes))}
	for i, n := range d.nodes {
		n.Attrs = append([]Attr(nil), n.Attrs...)
		n.Children = append([]NodeID(nil), n.Children...)
		cp.nodes[i] = n
	}
	return cp
}

// Compact returns a copy containing only the nodes reachable from the root.
func (d *Document) Compact() *Document {
	cp := NewDocument()
	if d.root != InvalidNode {
		cp.root = cp.Import(d, d.root)
	}
	return cp
}

// Depth returns the number of ancestors of a node.
func (d *Document) Depth(id NodeID) int {
	depth := 0
	for p := d.nodes[id].Parent; p != InvalidNode; p = d.nodes[p].Parent {
		depth++
	}
	return depth
}

// Path returns the child-index path from the root to id, e.g. "0/3/1".
func (d *Document) Path(id NodeID) string {
	var parts []string
	for cur := id; d.nodes[cur].Parent != InvalidNode; cur = d.nodes[cur].Parent {
		parts = append(parts, fmt.Sprint(d.IndexOf(cur)))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}
