package dom_test

import (
	"errors"
	"strings"
	"testing"

	"xq/dom"
	"xq/selector"
)

const listDoc = `<ul><li class="a">x</li><li class="b">y</li></ul>`

func mustLoadXML(t *testing.T, markup string) *dom.Document {
	t.Helper()
	d, err := dom.FromXML(markup, nil)
	if err != nil {
		t.Fatalf("failed to load document: %v", err)
	}
	return d
}

func classes(els []*dom.Element) []string {
	var out []string
	for _, el := range els {
		out = append(out, el.Attr("class"))
	}
	return out
}

func TestFind_ListScenario(t *testing.T) {
	d := mustLoadXML(t, listDoc)

	tests := []struct {
		css  string
		want []string
	}{
		{".a", []string{"a"}},
		{"li:first-child", []string{"a"}},
		{"li:nth-child(2)", []string{"b"}},
		{"ul > li", []string{"a", "b"}},
		{"li:last-child", []string{"b"}},
		{"ul li", []string{"a", "b"}},
	}
	for _, tc := range tests {
		t.Run(tc.css, func(t *testing.T) {
			found, err := d.Find(tc.css, dom.TypeCSS)
			if err != nil {
				t.Fatalf("Find(%q) failed: %v", tc.css, err)
			}
			got := classes(found)
			if len(got) != len(tc.want) {
				t.Fatalf("Find(%q) = %v, want %v", tc.css, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("Find(%q)[%d] = %q, want %q", tc.css, i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestFind_ClassTokenExactness(t *testing.T) {
	d := mustLoadXML(t, `<div><p class="cls">yes</p><p class="clsx">no</p><p class="x cls y">yes</p></div>`)

	found, err := d.Find(".cls", dom.TypeCSS)
	if err != nil {
		t.Fatalf("Find(.cls) failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("Find(.cls) matched %d elements, want 2: %v", len(found), classes(found))
	}
	for _, el := range found {
		if el.Text() != "yes" {
			t.Errorf("Find(.cls) matched element with class %q", el.Attr("class"))
		}
	}
}

func TestFind_ByID(t *testing.T) {
	d := mustLoadXML(t, `<root><a id="one"/><b id="two"/></root>`)

	found, err := d.Find("#two", dom.TypeCSS)
	if err != nil {
		t.Fatalf("Find(#two) failed: %v", err)
	}
	if len(found) != 1 || found[0].Tag() != "b" {
		t.Fatalf("Find(#two) = %v, want single <b>", found)
	}
}

func TestFind_ChildVsDescendant(t *testing.T) {
	d := mustLoadXML(t, `<root><div><p>direct</p><span><p>nested</p></span></div><p>outside</p></root>`)

	direct, err := d.Find("div > p", dom.TypeCSS)
	if err != nil {
		t.Fatalf("Find(div > p) failed: %v", err)
	}
	if len(direct) != 1 || direct[0].Text() != "direct" {
		t.Fatalf("Find(div > p) matched %d elements, want only the direct child", len(direct))
	}

	all, err := d.Find("div p", dom.TypeCSS)
	if err != nil {
		t.Fatalf("Find(div p) failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Find(div p) matched %d elements, want 2", len(all))
	}
}

func TestFind_Siblings(t *testing.T) {
	d := mustLoadXML(t, `<root><h1>t</h1><p>first</p><p>second</p></root>`)

	adj, err := d.Find("h1 + p", dom.TypeCSS)
	if err != nil {
		t.Fatalf("Find(h1 + p) failed: %v", err)
	}
	if len(adj) != 1 || adj[0].Text() != "first" {
		t.Fatalf("Find(h1 + p) = %d matches, want the immediately following <p>", len(adj))
	}

	gen, err := d.Find("h1 ~ p", dom.TypeCSS)
	if err != nil {
		t.Fatalf("Find(h1 ~ p) failed: %v", err)
	}
	if len(gen) != 2 {
		t.Fatalf("Find(h1 ~ p) = %d matches, want 2", len(gen))
	}
}

func TestFind_UnionNoDuplicates(t *testing.T) {
	d := mustLoadXML(t, listDoc)

	// every li matches the first branch, one also matches the second
	found, err := d.Find("li, .a", dom.TypeCSS)
	if err != nil {
		t.Fatalf("Find(li, .a) failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("Find(li, .a) = %d matches, want 2 distinct nodes: %v", len(found), classes(found))
	}
	seen := map[string]bool{}
	for _, el := range found {
		cls := el.Attr("class")
		if seen[cls] {
			t.Errorf("Find(li, .a) returned duplicate node with class %q", cls)
		}
		seen[cls] = true
	}
}

func TestFind_UnionDocumentOrder(t *testing.T) {
	d := mustLoadXML(t, `<r><b id="1"/><a id="2"/><b id="3"/></r>`)

	// the second group matches elements sitting before and after the
	// first group's match
	found, err := d.Find("a, b", dom.TypeCSS)
	if err != nil {
		t.Fatalf("Find(a, b) failed: %v", err)
	}
	want := []string{"1", "2", "3"}
	if len(found) != len(want) {
		t.Fatalf("Find(a, b) = %d matches, want %d", len(found), len(want))
	}
	for i, el := range found {
		if el.Attr("id") != want[i] {
			t.Errorf("Find(a, b)[%d] = id %q, want %q (document order)", i, el.Attr("id"), want[i])
		}
	}
}

func TestFind_NotUniversal(t *testing.T) {
	d := mustLoadXML(t, `<div><p>one</p><p>two</p></div>`)

	found, err := d.Find("p:not(*)", dom.TypeCSS)
	if err != nil {
		t.Fatalf("Find(p:not(*)) failed: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("Find(p:not(*)) = %d matches, want none", len(found))
	}
}

func TestFind_NoMatchesOnLoadedDocument(t *testing.T) {
	d := mustLoadXML(t, listDoc)

	found, err := d.Find("table", dom.TypeCSS)
	if err != nil {
		t.Fatalf("Find(table) failed: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("Find(table) = %d matches, want none", len(found))
	}
}

func TestQueries_NotLoaded(t *testing.T) {
	d := dom.NewDocument(nil)

	var nlerr *dom.NotLoadedError

	if _, err := d.Find("div", dom.TypeCSS); !errors.As(err, &nlerr) {
		t.Errorf("Find on unloaded document returned %v, want NotLoadedError", err)
	}
	if _, err := d.Has("div", dom.TypeCSS); !errors.As(err, &nlerr) {
		t.Errorf("Has on unloaded document returned %v, want NotLoadedError", err)
	}
	if _, err := d.XPath("//div"); !errors.As(err, &nlerr) {
		t.Errorf("XPath on unloaded document returned %v, want NotLoadedError", err)
	}
	if _, err := d.Format(2); !errors.As(err, &nlerr) {
		t.Errorf("Format on unloaded document returned %v, want NotLoadedError", err)
	}
}

func TestHas(t *testing.T) {
	d := mustLoadXML(t, listDoc)

	ok, err := d.Has(".a", dom.TypeCSS)
	if err != nil || !ok {
		t.Errorf("Has(.a) = %v, %v, want true", ok, err)
	}
	ok, err = d.Has(".missing", dom.TypeCSS)
	if err != nil || ok {
		t.Errorf("Has(.missing) = %v, %v, want false without error", ok, err)
	}
	ok, err = d.Has("//li[@class='b']", dom.TypeXPath)
	if err != nil || !ok {
		t.Errorf("Has(xpath) = %v, %v, want true", ok, err)
	}
}

func TestFind_RoundTripThroughCompiledXPath(t *testing.T) {
	d := mustLoadXML(t, `<root><div id="d"><p class="x">1</p><p>2</p></div></root>`)

	for _, css := range []string{".x", "div > p", "div p, #d", "p:first-child"} {
		compiled, err := selector.Compile(css, selector.TypeCSS)
		if err != nil {
			t.Fatalf("Compile(%q) failed: %v", css, err)
		}
		viaCSS, err := d.Find(css, dom.TypeCSS)
		if err != nil {
			t.Fatalf("Find(%q, CSS) failed: %v", css, err)
		}
		viaXPath, err := d.Find(compiled, dom.TypeXPath)
		if err != nil {
			t.Fatalf("Find(%q, XPath) failed: %v", compiled, err)
		}
		if len(viaCSS) != len(viaXPath) {
			t.Fatalf("round trip mismatch for %q: %d vs %d matches", css, len(viaCSS), len(viaXPath))
		}
		for i := range viaCSS {
			if viaCSS[i].Node() != viaXPath[i].Node() {
				t.Errorf("round trip mismatch for %q at index %d", css, i)
			}
		}
	}
}

func TestFind_CompilerErrorPropagates(t *testing.T) {
	d := mustLoadXML(t, listDoc)

	_, err := d.Find("li[", dom.TypeCSS)
	var serr *selector.SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("Find(li[) returned %T (%v), want *selector.SyntaxError", err, err)
	}

	_, err = d.Find("li:hover", dom.TypeCSS)
	var uerr *selector.UnsupportedError
	if !errors.As(err, &uerr) {
		t.Fatalf("Find(li:hover) returned %T (%v), want *selector.UnsupportedError", err, err)
	}
}

func TestFind_InvalidXPath(t *testing.T) {
	d := mustLoadXML(t, listDoc)

	if _, err := d.Find("//li[", dom.TypeXPath); err == nil {
		t.Fatal("Find with malformed XPath succeeded, expected error")
	}
}

func TestElement_ScopedQueries(t *testing.T) {
	d := mustLoadXML(t, `<root><section id="s1"><p>one</p></section><section id="s2"><p>two</p></section></root>`)

	sections, err := d.Find("section", dom.TypeCSS)
	if err != nil || len(sections) != 2 {
		t.Fatalf("Find(section) = %d matches, %v", len(sections), err)
	}

	inner, err := sections[1].Find("p", dom.TypeCSS)
	if err != nil {
		t.Fatalf("scoped Find(p) failed: %v", err)
	}
	if len(inner) != 1 || inner[0].Text() != "two" {
		t.Fatalf("scoped Find(p) = %v, want only the <p> inside #s2", len(inner))
	}

	ok, err := sections[0].Has(".missing", dom.TypeCSS)
	if err != nil || ok {
		t.Errorf("scoped Has(.missing) = %v, %v, want false", ok, err)
	}
}

func TestElement_Accessors(t *testing.T) {
	d := mustLoadXML(t, `<root><a href="/docs" class="link">Go <b>docs</b></a></root>`)

	found, err := d.Find("a", dom.TypeCSS)
	if err != nil || len(found) != 1 {
		t.Fatalf("Find(a) = %d matches, %v", len(found), err)
	}
	el := found[0]

	if el.Tag() != "a" {
		t.Errorf("Tag() = %q, want a", el.Tag())
	}
	if el.Attr("href") != "/docs" {
		t.Errorf("Attr(href) = %q", el.Attr("href"))
	}
	if el.Attr("missing") != "" || el.HasAttr("missing") {
		t.Error("missing attribute should be empty and absent")
	}
	if !el.HasAttr("class") {
		t.Error("HasAttr(class) = false, want true")
	}
	if el.Text() != "Go docs" {
		t.Errorf("Text() = %q, want %q", el.Text(), "Go docs")
	}
	markup, err := el.HTML()
	if err != nil {
		t.Fatalf("HTML() failed: %v", err)
	}
	if !strings.Contains(markup, "<b>docs</b>") || !strings.Contains(markup, `href="/docs"`) {
		t.Errorf("HTML() = %q, want serialized subtree", markup)
	}
	if el.Node() == nil || el.Node().Tag != "a" {
		t.Error("Node() should expose the underlying element")
	}
}

func TestDocument_LoadErrors(t *testing.T) {
	d := dom.NewDocument(nil)

	if err := d.ReadXML(strings.NewReader("<unclosed")); err == nil {
		t.Error("ReadXML accepted malformed input")
	}
	if d.Loaded() {
		t.Error("document reports loaded after failed parse")
	}
	if _, err := dom.FromXML("", nil); err == nil {
		t.Error("FromXML accepted empty input")
	}
}

func TestDocument_Format(t *testing.T) {
	d := mustLoadXML(t, listDoc)

	flat, err := d.String()
	if err != nil {
		t.Fatalf("String() failed: %v", err)
	}
	if !strings.Contains(flat, `<li class="a">x</li>`) {
		t.Errorf("String() = %q, expected original markup", flat)
	}

	pretty, err := d.Format(2)
	if err != nil {
		t.Fatalf("Format(2) failed: %v", err)
	}
	if !strings.Contains(pretty, "\n") {
		t.Errorf("Format(2) = %q, expected indented output", pretty)
	}
	// formatting must not disturb the document itself
	again, err := d.String()
	if err != nil || again != flat {
		t.Errorf("String() changed after Format: %q vs %q", again, flat)
	}
}
