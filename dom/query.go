package dom

import (
	"fmt"
	"sort"

	"github.com/antchfx/xpath"
	"github.com/beevik/etree"
	"go.uber.org/zap"

	"xq/selector"
)

// ExpressionType is re-exported so dispatcher callers do not need to
// import the selector package for the common case.
type ExpressionType = selector.ExpressionType

const (
	TypeCSS   = selector.TypeCSS
	TypeXPath = selector.TypeXPath
)

// Find compiles expression (when typ is CSS) and evaluates it against
// the whole document. Results come back in document order with
// duplicates removed, each wrapped in an Element. A loaded document
// with no matches returns an empty slice and no error.
func (d *Document) Find(expression string, typ ExpressionType) ([]*Element, error) {
	if !d.Loaded() {
		return nil, &NotLoadedError{Op: "find"}
	}
	nodes, err := d.run(expression, typ, rootNavigator(d.doc), false)
	if err != nil {
		return nil, err
	}
	return d.wrap(nodes), nil
}

// FindNodes is Find without the wrapping: it returns the raw etree
// elements.
func (d *Document) FindNodes(expression string, typ ExpressionType) ([]*etree.Element, error) {
	if !d.Loaded() {
		return nil, &NotLoadedError{Op: "find"}
	}
	return d.run(expression, typ, rootNavigator(d.doc), false)
}

// Has reports whether expression matches at least one element. It stops
// at the first match; the answer is always the same as len(Find) > 0.
func (d *Document) Has(expression string, typ ExpressionType) (bool, error) {
	if !d.Loaded() {
		return false, &NotLoadedError{Op: "has"}
	}
	nodes, err := d.run(expression, typ, rootNavigator(d.doc), true)
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

// XPath is shorthand for Find with an XPath expression.
func (d *Document) XPath(expression string) ([]*Element, error) {
	return d.Find(expression, TypeXPath)
}

// run compiles (if needed) and evaluates one query from the given
// context cursor. Compiler failures propagate unchanged; engine compile
// failures are wrapped with the offending expression. firstOnly stops
// the iterator after the first element hit.
func (d *Document) run(expression string, typ ExpressionType, nav *nodeNavigator, firstOnly bool) ([]*etree.Element, error) {
	compiled, err := d.compiler.Compile(expression, typ)
	if err != nil {
		return nil, err
	}
	expr, err := xpath.Compile(compiled)
	if err != nil {
		return nil, fmt.Errorf("compile xpath %q: %w", compiled, err)
	}

	var (
		out  []*etree.Element
		seen map[*etree.Element]struct{}
	)
	iter := expr.Select(nav)
	for iter.MoveNext() {
		cur, ok := iter.Current().(*nodeNavigator)
		if !ok {
			continue
		}
		el, ok := cur.element()
		if !ok {
			continue
		}
		// Union branches may surface the same node twice.
		if seen == nil {
			seen = make(map[*etree.Element]struct{})
		}
		if _, dup := seen[el]; dup {
			continue
		}
		seen[el] = struct{}{}
		out = append(out, el)
		if firstOnly {
			break
		}
	}
	// The engine yields union branches one after another, so a grouped
	// selector needs an explicit merge into document order.
	if len(out) > 1 {
		sortDocumentOrder(out)
	}
	d.log.Debug("Query evaluated",
		zap.String("expression", expression),
		zap.Stringer("type", typ),
		zap.String("xpath", compiled),
		zap.Int("matches", len(out)))
	return out, nil
}

func sortDocumentOrder(els []*etree.Element) {
	paths := make(map[*etree.Element][]int, len(els))
	for _, el := range els {
		paths[el] = treePath(el)
	}
	sort.Slice(els, func(i, j int) bool {
		a, b := paths[els[i]], paths[els[j]]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
}

// treePath is the chain of child indexes from the document node down to
// el; comparing two paths lexicographically compares document positions.
func treePath(el *etree.Element) []int {
	var path []int
	var t etree.Token = el
	for {
		p := t.Parent()
		if p == nil {
			break
		}
		path = append(path, t.Index())
		t = p
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func (d *Document) wrap(nodes []*etree.Element) []*Element {
	out := make([]*Element, 0, len(nodes))
	for _, el := range nodes {
		out = append(out, &Element{el: el, doc: d})
	}
	return out
}
