package dom

import (
	"strings"

	"github.com/antchfx/xpath"
	"github.com/beevik/etree"
)

// nodeNavigator adapts the etree token tree to the cursor interface the
// antchfx XPath engine walks. The cursor is a token pointer plus an
// attribute index (-1 while not positioned on an attribute); copies are
// cheap by design, the engine clones cursors constantly.
type nodeNavigator struct {
	doc  *etree.Document
	cur  etree.Token
	attr int
}

// rootNavigator positions a cursor at the document node.
func rootNavigator(doc *etree.Document) *nodeNavigator {
	return &nodeNavigator{doc: doc, cur: &doc.Element, attr: -1}
}

// elementNavigator positions a cursor at a specific element, for
// context-relative queries.
func elementNavigator(doc *etree.Document, el *etree.Element) *nodeNavigator {
	return &nodeNavigator{doc: doc, cur: el, attr: -1}
}

func (n *nodeNavigator) NodeType() xpath.NodeType {
	if n.attr >= 0 {
		return xpath.AttributeNode
	}
	switch t := n.cur.(type) {
	case *etree.Element:
		if t == &n.doc.Element {
			return xpath.RootNode
		}
		return xpath.ElementNode
	case *etree.CharData:
		return xpath.TextNode
	default:
		// Comments, processing instructions and directives are all
		// opaque to selector queries.
		return xpath.CommentNode
	}
}

func (n *nodeNavigator) LocalName() string {
	if el, ok := n.cur.(*etree.Element); ok {
		if n.attr >= 0 {
			return el.Attr[n.attr].Key
		}
		return el.Tag
	}
	return ""
}

func (n *nodeNavigator) Prefix() string {
	if el, ok := n.cur.(*etree.Element); ok {
		if n.attr >= 0 {
			return el.Attr[n.attr].Space
		}
		return el.Space
	}
	return ""
}

func (n *nodeNavigator) Value() string {
	if n.attr >= 0 {
		return n.cur.(*etree.Element).Attr[n.attr].Value
	}
	switch t := n.cur.(type) {
	case *etree.Element:
		var b strings.Builder
		collectText(t, &b)
		return b.String()
	case *etree.CharData:
		return t.Data
	case *etree.Comment:
		return t.Data
	default:
		return ""
	}
}

func (n *nodeNavigator) Copy() xpath.NodeNavigator {
	clone := *n
	return &clone
}

func (n *nodeNavigator) MoveToRoot() {
	n.cur = &n.doc.Element
	n.attr = -1
}

func (n *nodeNavigator) MoveToParent() bool {
	if n.attr >= 0 {
		n.attr = -1
		return true
	}
	p := n.cur.Parent()
	if p == nil {
		return false
	}
	n.cur = p
	return true
}

func (n *nodeNavigator) MoveToNextAttribute() bool {
	el, ok := n.cur.(*etree.Element)
	if !ok {
		return false
	}
	if n.attr+1 >= len(el.Attr) {
		return false
	}
	n.attr++
	return true
}

func (n *nodeNavigator) MoveToChild() bool {
	if n.attr >= 0 {
		return false
	}
	el, ok := n.cur.(*etree.Element)
	if !ok || len(el.Child) == 0 {
		return false
	}
	n.cur = el.Child[0]
	return true
}

func (n *nodeNavigator) MoveToFirst() bool {
	if n.attr >= 0 {
		return false
	}
	p := n.cur.Parent()
	if p == nil {
		return false
	}
	n.cur = p.Child[0]
	return true
}

func (n *nodeNavigator) MoveToNext() bool {
	if n.attr >= 0 {
		return false
	}
	p := n.cur.Parent()
	if p == nil {
		return false
	}
	idx := n.cur.Index()
	if idx+1 >= len(p.Child) {
		return false
	}
	n.cur = p.Child[idx+1]
	return true
}

func (n *nodeNavigator) MoveToPrevious() bool {
	if n.attr >= 0 {
		return false
	}
	p := n.cur.Parent()
	if p == nil {
		return false
	}
	idx := n.cur.Index()
	if idx == 0 {
		return false
	}
	n.cur = p.Child[idx-1]
	return true
}

func (n *nodeNavigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*nodeNavigator)
	if !ok || o.doc != n.doc {
		return false
	}
	n.cur = o.cur
	n.attr = o.attr
	return true
}

// element returns the element the cursor is on, if any.
func (n *nodeNavigator) element() (*etree.Element, bool) {
	if n.attr >= 0 {
		return nil, false
	}
	el, ok := n.cur.(*etree.Element)
	if !ok || el == &n.doc.Element {
		return nil, false
	}
	return el, true
}

// collectText accumulates the text content of el and its descendants in
// document order.
func collectText(el *etree.Element, b *strings.Builder) {
	for _, child := range el.Child {
		switch t := child.(type) {
		case *etree.CharData:
			b.WriteString(t.Data)
		case *etree.Element:
			collectText(t, b)
		}
	}
}
