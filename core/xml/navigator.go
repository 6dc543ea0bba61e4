package xml

import (
	"fmt"
	"sync"

	"github.com/antchfx/xpath"
)

// documentNode is the virtual node above the root element.
const documentNode NodeID = -2

// navigator implements xpath.NodeNavigator over the arena.
type navigator struct {
	doc  *Document
	cur  NodeID
	idx  int // position of cur among its parent's children
	attr int // index into the attribute slice, -1 when positioned on the node itself
}

var _ xpath.NodeNavigator = (*navigator)(nil)

func newNavigator(d *Document, at NodeID) *navigator {
	nav := &navigator{doc: d, cur: at, attr: -1}
	if at >= 0 {
		nav.idx = position(d, at)
	}
	return nav
}

func position(d *Document, id NodeID) int {
	if i := d.IndexOf(id); i > 0 {
		return i
	}
	return 0
}

func (n *navigator) NodeType() xpath.NodeType {
	if n.cur == documentNode {
		return xpath.RootNode
	}
	if n.attr >= 0 {
		return xpath.AttributeNode
	}
	switch n.doc.nodes[n.cur].Type {
	case TextNode:
		return xpath.TextNode
	case CommentNode:
		return xpath.CommentNode
	default:
		return xpath.ElementNode
	}
}

func (n *navigator) LocalName() string {
	if n.cur == documentNode {
		return ""
	}
	node := &n.doc.nodes[n.cur]
	if n.attr >= 0 {
		return node.Attrs[n.attr].Name.Local
	}
	return node.Name.Local
}

func (n *navigator) Prefix() string {
	if n.cur == documentNode {
		return ""
	}
	node := &n.doc.nodes[n.cur]
	if n.attr >= 0 {
		a := node.Attrs[n.attr]
		if p := CanonicalPrefix(a.Name.Space); p != "" {
			return p
		}
		return a.Prefix
	}
	if p := CanonicalPrefix(node.Name.Space); p != "" {
		return p
	}
	return node.Prefix
}

func (n *navigator) NamespaceURL() string {
	if n.cur == documentNode {
		return ""
	}
	node := &n.doc.nodes[n.cur]
	if n.attr >= 0 {
		return node.Attrs[n.attr].Name.Space
	}
	return node.Name.Space
}

func (n *navigator) Value() string {
	switch {
	case n.cur == documentNode:
		if n.doc.root == InvalidNode {
			return ""
		}
		return n.doc.InnerText(n.doc.root)
	case n.attr >= 0:
		return n.doc.nodes[n.cur].Attrs[n.attr].Value
	case n.doc.nodes[n.cur].Type == ElementNode:
		return n.doc.InnerText(n.cur)
	default:
		return n.doc.nodes[n.cur].Text
	}
}

func (n *navigator) Copy() xpath.NodeNavigator {
	cp := *n
	return &cp
}

func (n *navigator) MoveToRoot() {
	n.cur = documentNode
	n.idx = 0
	n.attr = -1
}

func (n *navigator) MoveToParent() bool {
	if n.attr >= 0 {
		n.attr = -1
		return true
	}
	if n.cur == documentNode {
		return false
	}
	p := n.doc.nodes[n.cur].Parent
	if p == InvalidNode {
		if n.cur == n.doc.root {
			n.MoveToRoot()
			return true
		}
		return false
	}
	n.cur = p
	n.idx = position(n.doc, p)
	return true
}

func (n *navigator) MoveToNextAttribute() bool {
	if n.cur == documentNode {
		return false
	}
	attrs := n.doc.nodes[n.cur].Attrs
	for i := n.attr + 1; i < len(attrs); i++ {
		if !attrs[i].IsNamespaceDecl() {
			n.attr = i
			return true
		}
	}
	return false
}

func (n *navigator) MoveToChild() bool {
	if n.attr >= 0 {
		return false
	}
	if n.cur == documentNode {
		if n.doc.root == InvalidNode {
			return false
		}
		n.cur = n.doc.root
		n.idx = 0
		return true
	}
	kids := n.doc.nodes[n.cur].Children
	if len(kids) == 0 {
		return false
	}
	n.cur = kids[0]
	n.idx = 0
	return true
}

func (n *navigator) siblings() []NodeID {
	if n.cur == documentNode {
		return nil
	}
	p := n.doc.nodes[n.cur].Parent
	if p == InvalidNode {
		return []NodeID{n.cur}
	}
	return n.doc.nodes[p].Children
}

func (n *navigator) MoveToFirst() bool {
	if n.attr >= 0 {
		return false
	}
	sib := n.siblings()
	if len(sib) == 0 {
		return false
	}
	n.cur = sib[0]
	n.idx = 0
	return true
}

func (n *navigator) MoveToNext() bool {
	if n.attr >= 0 {
		return false
	}
	sib := n.siblings()
	if n.idx+1 >= len(sib) {
		return false
	}
	n.idx++
	n.cur = sib[n.idx]
	return true
}

func (n *navigator) MoveToPrevious() bool {
	if n.attr >= 0 || n.idx == 0 {
		return false
	}
	sib := n.siblings()
	if len(sib) == 0 {
		return false
	}
	n.idx--
	n.cur = sib[n.idx]
	return true
}

func (n *navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*navigator)
	if !ok || o.doc != n.doc {
		return false
	}
	*n = *o
	return true
}

var exprCache sync.Map // string -> *xpath.Expr

// Compile compiles an XPath expression using the canonical prefixes in Namespaces.
// Compiled expressions are cached.
func Compile(expr string) (*xpath.Expr, error) {
	if e, ok := exprCache.Load(expr); ok {
		return e.(*xpath.Expr), nil
	}
	e, err := xpath.CompileWithNS(expr, Namespaces)
	if err != nil {
		return nil, fmt.Errorf("compiling XPath %q: %w", expr, err)
	}
	exprCache.Store(expr, e)
	return e, nil
}

// Select evaluates an XPath expression from the document node and returns the
// matching nodes in document order. Attribute matches yield their owning element.
func (d *Document) Select(expr string) ([]NodeID, error) {
	return d.SelectFrom(documentNode, expr)
}

// SelectFrom evaluates an XPath expression with id as the context node.
func (d *Document) SelectFrom(id NodeID, expr string) ([]NodeID, error) {
	e, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	var out []NodeID
	seen := make(map[NodeID]bool)
	iter := e.Select(newNavigator(d, id))
	for iter.MoveNext() {
		nav, ok := iter.Current().(*navigator)
		if !ok || nav.cur == documentNode || seen[nav.cur] {
			continue
		}
		seen[nav.cur] = true
		out = append(out, nav.cur)
	}
	return out, nil
}

// Exists reports whether the expression matches at least one node.
func (d *Document) Exists(expr string) (bool, error) {
	e, err := Compile(expr)
	if err != nil {
		return false, err
	}
	iter := e.Select(newNavigator(d, documentNode))
	return iter.MoveNext(), nil
}

// Evaluate evaluates an XPath expression that returns a scalar (count(), boolean(),
// string()). Node-set results are returned as their node count.
func (d *Document) Evaluate(expr string) (interface{}, error) {
	e, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	v := e.Evaluate(newNavigator(d, documentNode))
	if iter, ok := v.(*xpath.NodeIterator); ok {
		count := 0
		for iter.MoveNext() {
			count++
		}
		return float64(count), nil
	}
	return v, nil
}
