package selector

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// AST to XPath emission. All output is assembled from the parsed tree
// with fixed formatting, so a given selector always produces the same
// expression byte for byte.

func emit(list *List) (string, error) {
	var b strings.Builder
	for i := range list.Groups {
		if i > 0 {
			b.WriteString(" | ")
		}
		if err := emitGroup(&b, &list.Groups[i], list.Raw); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func emitGroup(b *strings.Builder, g *Group, sel string) error {
	for i := range g.Sequences {
		seq := &g.Sequences[i]
		switch seq.Combinator {
		case CombinatorNone:
			// Selectors are context-relative: the first step may match
			// the context node itself or anything below it.
			b.WriteString("descendant-or-self::")
		case CombinatorDescendant:
			b.WriteString("/descendant-or-self::*/")
		case CombinatorChild:
			b.WriteString("/")
		case CombinatorAdjacent:
			b.WriteString("/following-sibling::*[1]/self::")
		case CombinatorSibling:
			b.WriteString("/following-sibling::")
		}
		b.WriteString(seq.Tag)
		for j := range seq.Qualifiers {
			pred, err := predicateFor(&seq.Qualifiers[j], seq.Tag, sel)
			if err != nil {
				return err
			}
			b.WriteByte('[')
			b.WriteString(pred)
			b.WriteByte(']')
		}
	}
	return nil
}

// predicateFor renders one qualifier as an XPath predicate body. tag is
// the node test of the owning sequence, needed by the of-type family.
func predicateFor(q *Qualifier, tag, sel string) (string, error) {
	switch q.Kind {
	case QualifierID:
		return "@id=" + xpathString(q.Value), nil

	case QualifierClass:
		return tokenContains("@class", q.Value), nil

	case QualifierAttr:
		return attrPredicate(q)

	case QualifierPseudo:
		return pseudoPredicate(q, tag, sel)
	}
	return "", fmt.Errorf("unknown qualifier kind %d", q.Kind)
}

func attrPredicate(q *Qualifier) (string, error) {
	ref := "@" + q.Name
	switch q.Op {
	case AttrPresent:
		return ref, nil
	case AttrEquals:
		return ref + "=" + xpathString(q.Value), nil
	case AttrIncludes:
		if q.Value == "" || strings.ContainsAny(q.Value, " \t") {
			// A token cannot be empty or contain whitespace.
			return "false()", nil
		}
		return tokenContains(ref, q.Value), nil
	case AttrDashMatch:
		return fmt.Sprintf("(%s=%s or starts-with(%s, %s))",
			ref, xpathString(q.Value), ref, xpathString(q.Value+"-")), nil
	case AttrPrefix:
		if q.Value == "" {
			return "false()", nil
		}
		return fmt.Sprintf("starts-with(%s, %s)", ref, xpathString(q.Value)), nil
	case AttrSuffix:
		if q.Value == "" {
			return "false()", nil
		}
		// string-length counts characters, not bytes
		if n := utf8.RuneCountInString(q.Value) - 1; n > 0 {
			return fmt.Sprintf("substring(%s, string-length(%s) - %d) = %s",
				ref, ref, n, xpathString(q.Value)), nil
		}
		return fmt.Sprintf("substring(%s, string-length(%s)) = %s",
			ref, ref, xpathString(q.Value)), nil
	case AttrSubstring:
		if q.Value == "" {
			return "false()", nil
		}
		return fmt.Sprintf("contains(%s, %s)", ref, xpathString(q.Value)), nil
	}
	return "", fmt.Errorf("unknown attribute operator %d", q.Op)
}

func pseudoPredicate(q *Qualifier, tag, sel string) (string, error) {
	switch q.Name {
	case "first-child":
		return "not(preceding-sibling::*)", nil
	case "last-child":
		return "not(following-sibling::*)", nil
	case "only-child":
		return "not(preceding-sibling::*) and not(following-sibling::*)", nil
	case "empty":
		return "not(*) and not(text())", nil
	case "root":
		return "not(parent::*)", nil

	case "first-of-type", "last-of-type", "only-of-type":
		if tag == "*" {
			return "", &UnsupportedError{Selector: sel, Construct: ":" + q.Name + " on the universal selector"}
		}
		switch q.Name {
		case "first-of-type":
			return "not(preceding-sibling::" + tag + ")", nil
		case "last-of-type":
			return "not(following-sibling::" + tag + ")", nil
		default:
			return "not(preceding-sibling::" + tag + ") and not(following-sibling::" + tag + ")", nil
		}

	case "nth-child":
		return nthPredicate("preceding-sibling::*", *q.Nth), nil
	case "nth-last-child":
		return nthPredicate("following-sibling::*", *q.Nth), nil
	case "nth-of-type", "nth-last-of-type":
		if tag == "*" {
			return "", &UnsupportedError{Selector: sel, Construct: ":" + q.Name + " on the universal selector"}
		}
		if q.Name == "nth-of-type" {
			return nthPredicate("preceding-sibling::"+tag, *q.Nth), nil
		}
		return nthPredicate("following-sibling::"+tag, *q.Nth), nil

	case "not":
		return notPredicate(q.Inner, sel)
	}
	return "", fmt.Errorf("unknown pseudo-class %q", q.Name)
}

// nthPredicate renders an an+b test over the number of siblings on the
// given axis. The count form (rather than position()) stays correct even
// when the surrounding step already filters its node test.
func nthPredicate(axis string, nth NthExpr) string {
	count := "count(" + axis + ")"
	if nth.A == 0 {
		return fmt.Sprintf("%s = %d", count, nth.B-1)
	}
	// count = a*k + (b-1) for some integer k >= 0
	expr := offsetExpr(count, nth.B-1)
	return fmt.Sprintf("(%s) mod %d = 0 and (%s) div %d >= 0", expr, nth.A, expr, nth.A)
}

func offsetExpr(count string, off int) string {
	switch {
	case off > 0:
		return fmt.Sprintf("%s - %d", count, off)
	case off < 0:
		return fmt.Sprintf("%s + %d", count, -off)
	default:
		return count
	}
}

func notPredicate(inner *Sequence, sel string) (string, error) {
	var parts []string
	if inner.Tag != "*" {
		parts = append(parts, "self::"+inner.Tag)
	}
	for i := range inner.Qualifiers {
		pred, err := predicateFor(&inner.Qualifiers[i], inner.Tag, sel)
		if err != nil {
			return "", err
		}
		parts = append(parts, pred)
	}
	if len(parts) == 0 {
		// :not(*) negates a test every element passes.
		return "false()", nil
	}
	return "not(" + strings.Join(parts, " and ") + ")", nil
}

// tokenContains matches value as a whole whitespace-separated token of
// the referenced attribute, so ".cls" does not match class="clsx".
func tokenContains(ref, value string) string {
	return fmt.Sprintf("contains(concat(' ', normalize-space(%s), ' '), %s)",
		ref, xpathString(" "+value+" "))
}

// xpathString renders s as an XPath 1.0 string literal. XPath strings
// have no escape syntax, so values containing both quote kinds go
// through concat().
func xpathString(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	var parts []string
	for i, chunk := range strings.Split(s, "'") {
		if i > 0 {
			parts = append(parts, `"'"`)
		}
		if chunk != "" {
			parts = append(parts, "'"+chunk+"'")
		}
	}
	return "concat(" + strings.Join(parts, ", ") + ")"
}
