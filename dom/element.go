package dom

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Element wraps a matched tree node with the accessors callers usually
// want. The underlying etree element stays reachable through Node for
// anything the wrapper does not cover.
type Element struct {
	el  *etree.Element
	doc *Document
}

// Node returns the underlying etree element.
func (e *Element) Node() *etree.Element {
	return e.el
}

// Tag returns the element's tag name.
func (e *Element) Tag() string {
	return e.el.Tag
}

// Attr returns the value of the named attribute, or "" when absent.
func (e *Element) Attr(name string) string {
	return e.el.SelectAttrValue(name, "")
}

// HasAttr reports whether the named attribute is present.
func (e *Element) HasAttr(name string) bool {
	return e.el.SelectAttr(name) != nil
}

// Text returns the concatenated text content of the element and all of
// its descendants, in document order.
func (e *Element) Text() string {
	var b strings.Builder
	collectText(e.el, &b)
	return b.String()
}

// HTML serializes the element's subtree back to markup.
func (e *Element) HTML() (string, error) {
	out := etree.NewDocument()
	out.AddChild(e.el.Copy())
	s, err := out.WriteToString()
	if err != nil {
		return "", fmt.Errorf("serialize <%s>: %w", e.el.Tag, err)
	}
	return s, nil
}

// Find evaluates expression relative to this element: the element
// itself and its subtree form the search context.
func (e *Element) Find(expression string, typ ExpressionType) ([]*Element, error) {
	nodes, err := e.doc.run(expression, typ, elementNavigator(e.doc.doc, e.el), false)
	if err != nil {
		return nil, err
	}
	return e.doc.wrap(nodes), nil
}

// Has reports whether expression matches anything in this element's
// context.
func (e *Element) Has(expression string, typ ExpressionType) (bool, error) {
	nodes, err := e.doc.run(expression, typ, elementNavigator(e.doc.doc, e.el), true)
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

// XPath is shorthand for Find with an XPath expression.
func (e *Element) XPath(expression string) ([]*Element, error) {
	return e.Find(expression, TypeXPath)
}
