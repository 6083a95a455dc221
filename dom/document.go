// Package dom is the query front end over a parsed XML or HTML tree.
// It loads markup into an etree document, compiles CSS selectors to
// XPath (via the selector package) and evaluates them with the antchfx
// XPath engine, wrapping matched nodes in Element.
//
// A Document is safe for concurrent queries as long as nobody mutates
// the underlying tree while they run; coordinating mutation with
// in-flight queries is the caller's obligation.
package dom

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"xq/selector"
)

// Document owns a parsed tree and dispatches queries against it.
type Document struct {
	doc      *etree.Document
	log      *zap.Logger
	compiler *selector.Compiler
}

// NewDocument creates an empty, unloaded document. Queries against it
// return NotLoadedError until one of the load methods succeeds.
func NewDocument(log *zap.Logger) *Document {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("dom")
	return &Document{
		log:      log,
		compiler: selector.NewCompiler(log),
	}
}

// ReadXML parses XML markup from r, replacing any previously loaded
// tree. Parse failures are returned as errors; the document stays
// unloaded in that case.
func (d *Document) ReadXML(r io.Reader) error {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return fmt.Errorf("parse xml: %w", err)
	}
	if doc.Root() == nil {
		return fmt.Errorf("parse xml: no root element")
	}
	d.doc = doc
	d.log.Debug("Loaded XML document", zap.String("root", doc.Root().Tag))
	return nil
}

// ReadHTML parses HTML markup from r. The input is charset-sniffed and
// parsed tolerantly (unclosed tags, implied tbody and so on), then
// converted into the same tree model XML uses so one navigator serves
// both.
func (d *Document) ReadHTML(r io.Reader) error {
	cr, err := charset.NewReader(r, "")
	if err != nil {
		return fmt.Errorf("detect charset: %w", err)
	}
	node, err := html.Parse(cr)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	doc := etree.NewDocument()
	convertHTML(&doc.Element, node)
	if doc.Root() == nil {
		return fmt.Errorf("parse html: no root element")
	}
	d.doc = doc
	d.log.Debug("Loaded HTML document", zap.String("root", doc.Root().Tag))
	return nil
}

// FromXML parses an XML string into a new document.
func FromXML(markup string, log *zap.Logger) (*Document, error) {
	d := NewDocument(log)
	if err := d.ReadXML(strings.NewReader(markup)); err != nil {
		return nil, err
	}
	return d, nil
}

// FromHTML parses an HTML string into a new document.
func FromHTML(markup string, log *zap.Logger) (*Document, error) {
	d := NewDocument(log)
	if err := d.ReadHTML(strings.NewReader(markup)); err != nil {
		return nil, err
	}
	return d, nil
}

// OpenXML loads an XML document from a file.
func OpenXML(path string, log *zap.Logger) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open '%s': %w", path, err)
	}
	defer f.Close()
	d := NewDocument(log)
	if err := d.ReadXML(f); err != nil {
		return nil, fmt.Errorf("load '%s': %w", path, err)
	}
	return d, nil
}

// OpenHTML loads an HTML document from a file.
func OpenHTML(path string, log *zap.Logger) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open '%s': %w", path, err)
	}
	defer f.Close()
	d := NewDocument(log)
	if err := d.ReadHTML(f); err != nil {
		return nil, fmt.Errorf("load '%s': %w", path, err)
	}
	return d, nil
}

// Loaded reports whether the document has a parsed root.
func (d *Document) Loaded() bool {
	return d.doc != nil && d.doc.Root() != nil
}

// Root returns the wrapped root element, or nil when nothing is loaded.
func (d *Document) Root() *Element {
	if !d.Loaded() {
		return nil
	}
	return &Element{el: d.doc.Root(), doc: d}
}

// String serializes the tree back to markup.
func (d *Document) String() (string, error) {
	if !d.Loaded() {
		return "", &NotLoadedError{Op: "serialize"}
	}
	return d.doc.WriteToString()
}

// Format serializes the tree re-indented with the given number of
// spaces per level. The document itself is left untouched.
func (d *Document) Format(indent int) (string, error) {
	if !d.Loaded() {
		return "", &NotLoadedError{Op: "format"}
	}
	formatted := d.doc.Copy()
	formatted.Indent(indent)
	return formatted.WriteToString()
}

// convertHTML appends the children of the html node n to dst, mapping
// the x/net/html node kinds onto etree tokens.
func convertHTML(dst *etree.Element, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			el := dst.CreateElement(c.Data)
			for _, a := range c.Attr {
				el.CreateAttr(a.Key, a.Val)
			}
			convertHTML(el, c)
		case html.TextNode:
			dst.CreateText(c.Data)
		case html.CommentNode:
			dst.CreateComment(c.Data)
		case html.DoctypeNode:
			dst.CreateDirective("DOCTYPE " + c.Data)
		}
	}
}
