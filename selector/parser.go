package selector

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// The selector grammar is parsed off the tdewolff CSS tokenizer: it
// already distinguishes the attribute match operators (~=, ^=, $=, *=,
// |=) and hash/function tokens for us, so the parser below is a plain
// recursive descent over a materialized token slice.

type token struct {
	typ  css.TokenType
	data string
	pos  int
}

func lex(expr string) ([]token, error) {
	l := css.NewLexer(parse.NewInput(strings.NewReader(expr)))
	var tokens []token
	pos := 0
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, &SyntaxError{Selector: expr, Pos: pos, Msg: err.Error()}
			}
			return tokens, nil
		}
		tokens = append(tokens, token{typ: tt, data: string(data), pos: pos})
		pos += len(data)
	}
}

type parser struct {
	sel  string
	toks []token
	i    int
}

func parseSelector(expr string) (*List, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{sel: expr, toks: toks}
	list := &List{Raw: expr}
	for {
		group, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		list.Groups = append(list.Groups, group)
		p.skipSpace()
		if p.eof() {
			return list, nil
		}
		if p.peek().typ == css.CommaToken {
			p.next()
			continue
		}
		return nil, p.errf(p.peek().pos, "unexpected %q", p.peek().data)
	}
}

func (p *parser) eof() bool { return p.i >= len(p.toks) }

func (p *parser) peek() token {
	if p.eof() {
		return token{typ: css.ErrorToken, pos: len(p.sel)}
	}
	return p.toks[p.i]
}

func (p *parser) next() token {
	t := p.peek()
	if !p.eof() {
		p.i++
	}
	return t
}

// skipSpace advances over whitespace tokens and reports whether any were
// consumed. The caller needs that bit: whitespace between sequences is
// the descendant combinator.
func (p *parser) skipSpace() bool {
	seen := false
	for !p.eof() && p.toks[p.i].typ == css.WhitespaceToken {
		p.i++
		seen = true
	}
	return seen
}

func (p *parser) errf(pos int, format string, args ...any) error {
	return &SyntaxError{Selector: p.sel, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseGroup() (Group, error) {
	var g Group
	p.skipSpace()
	if p.eof() || p.peek().typ == css.CommaToken {
		return g, p.errf(p.peek().pos, "empty selector group")
	}
	seq, err := p.parseSequence(CombinatorNone)
	if err != nil {
		return g, err
	}
	g.Sequences = append(g.Sequences, seq)

	for {
		ws := p.skipSpace()
		if p.eof() || p.peek().typ == css.CommaToken {
			return g, nil
		}
		comb := CombinatorDescendant
		if t := p.peek(); t.typ == css.DelimToken {
			switch t.data {
			case ">":
				comb = CombinatorChild
				p.next()
				p.skipSpace()
			case "+":
				comb = CombinatorAdjacent
				p.next()
				p.skipSpace()
			case "~":
				comb = CombinatorSibling
				p.next()
				p.skipSpace()
			}
		}
		if comb == CombinatorDescendant && !ws {
			return g, p.errf(p.peek().pos, "unexpected %q", p.peek().data)
		}
		if p.eof() || p.peek().typ == css.CommaToken {
			return g, p.errf(p.peek().pos, "dangling combinator %q", comb.String())
		}
		seq, err := p.parseSequence(comb)
		if err != nil {
			return g, err
		}
		g.Sequences = append(g.Sequences, seq)
	}
}

// parseSequence parses one simple selector sequence. A missing tag with at
// least one qualifier implies the universal selector, so ".cls" and "#id"
// stand alone.
func (p *parser) parseSequence(comb Combinator) (Sequence, error) {
	seq := Sequence{Combinator: comb, Tag: "*"}

	explicit := false
	switch t := p.peek(); {
	case t.typ == css.IdentToken:
		seq.Tag = t.data
		p.next()
		explicit = true
	case t.typ == css.DelimToken && t.data == "*":
		p.next()
		explicit = true
	}

	// "ns|tag" and "|tag"; the |= attribute operator is its own token,
	// so a lone '|' here can only be a namespace separator.
	if t := p.peek(); t.typ == css.DelimToken && t.data == "|" {
		return seq, &UnsupportedError{Selector: p.sel, Construct: "namespaced selector"}
	}

	for {
		q, ok, err := p.parseQualifier()
		if err != nil {
			return seq, err
		}
		if !ok {
			break
		}
		seq.Qualifiers = append(seq.Qualifiers, q)
	}

	if !explicit && len(seq.Qualifiers) == 0 {
		return seq, p.errf(p.peek().pos, "expected tag name, '*' or qualifier")
	}
	return seq, nil
}

// parseQualifier parses a single #id, .class, [attr...] or :pseudo
// qualifier. ok is false when the next token does not start a qualifier.
func (p *parser) parseQualifier() (Qualifier, bool, error) {
	switch t := p.peek(); t.typ {
	case css.HashToken:
		p.next()
		id := strings.TrimPrefix(t.data, "#")
		if id == "" {
			return Qualifier{}, false, p.errf(t.pos, "expected id after '#'")
		}
		return Qualifier{Kind: QualifierID, Value: id}, true, nil

	case css.DelimToken:
		if t.data != "." {
			return Qualifier{}, false, nil
		}
		p.next()
		name := p.peek()
		if name.typ != css.IdentToken {
			return Qualifier{}, false, p.errf(name.pos, "expected class name after '.'")
		}
		p.next()
		return Qualifier{Kind: QualifierClass, Value: name.data}, true, nil

	case css.LeftBracketToken:
		return p.parseAttr()

	case css.ColonToken:
		return p.parsePseudo()

	default:
		return Qualifier{}, false, nil
	}
}

func (p *parser) parseAttr() (Qualifier, bool, error) {
	open := p.next() // '['
	p.skipSpace()

	name := p.peek()
	if name.typ != css.IdentToken {
		if p.eof() {
			return Qualifier{}, false, p.errf(open.pos, "unbalanced '['")
		}
		return Qualifier{}, false, p.errf(name.pos, "expected attribute name")
	}
	p.next()
	p.skipSpace()

	q := Qualifier{Kind: QualifierAttr, Name: name.data, Op: AttrPresent}
	switch t := p.peek(); t.typ {
	case css.RightBracketToken:
		p.next()
		return q, true, nil
	case css.DelimToken:
		if t.data != "=" {
			return Qualifier{}, false, p.errf(t.pos, "unexpected %q in attribute selector", t.data)
		}
		q.Op = AttrEquals
		p.next()
	case css.IncludeMatchToken:
		q.Op = AttrIncludes
		p.next()
	case css.DashMatchToken:
		q.Op = AttrDashMatch
		p.next()
	case css.PrefixMatchToken:
		q.Op = AttrPrefix
		p.next()
	case css.SuffixMatchToken:
		q.Op = AttrSuffix
		p.next()
	case css.SubstringMatchToken:
		q.Op = AttrSubstring
		p.next()
	default:
		if p.eof() {
			return Qualifier{}, false, p.errf(open.pos, "unbalanced '['")
		}
		return Qualifier{}, false, p.errf(t.pos, "expected attribute operator or ']'")
	}
	p.skipSpace()

	switch v := p.peek(); v.typ {
	case css.IdentToken, css.NumberToken, css.DimensionToken:
		q.Value = v.data
		p.next()
	case css.StringToken:
		q.Value = unquote(v.data)
		p.next()
	default:
		if p.eof() {
			return Qualifier{}, false, p.errf(open.pos, "unbalanced '['")
		}
		return Qualifier{}, false, p.errf(v.pos, "expected attribute value")
	}
	p.skipSpace()

	if p.peek().typ != css.RightBracketToken {
		return Qualifier{}, false, p.errf(open.pos, "unbalanced '['")
	}
	p.next()
	return q, true, nil
}

func (p *parser) parsePseudo() (Qualifier, bool, error) {
	colon := p.next() // ':'

	switch t := p.peek(); t.typ {
	case css.ColonToken:
		p.next()
		name := p.peek()
		if name.typ != css.IdentToken && name.typ != css.FunctionToken {
			return Qualifier{}, false, p.errf(name.pos, "expected pseudo-element name after '::'")
		}
		p.next()
		return Qualifier{}, false, &UnsupportedError{
			Selector:  p.sel,
			Construct: "pseudo-element ::" + strings.TrimSuffix(name.data, "("),
		}

	case css.IdentToken:
		p.next()
		name := strings.ToLower(t.data)
		switch name {
		case "first-child", "last-child", "only-child",
			"first-of-type", "last-of-type", "only-of-type",
			"empty", "root":
			return Qualifier{Kind: QualifierPseudo, Name: name}, true, nil
		case "before", "after", "first-line", "first-letter":
			// CSS2 single-colon pseudo-element syntax.
			return Qualifier{}, false, &UnsupportedError{Selector: p.sel, Construct: "pseudo-element :" + name}
		case "hover", "focus", "focus-within", "focus-visible", "active",
			"visited", "link", "any-link", "target", "checked", "disabled",
			"enabled", "required", "optional", "read-only", "read-write",
			"indeterminate", "default", "scope":
			// Depends on UA state, nothing static to match against.
			return Qualifier{}, false, &UnsupportedError{Selector: p.sel, Construct: "dynamic pseudo-class :" + name}
		default:
			return Qualifier{}, false, p.errf(t.pos, "unrecognized pseudo-class :%s", name)
		}

	case css.FunctionToken:
		p.next()
		name := strings.ToLower(strings.TrimSuffix(t.data, "("))
		switch name {
		case "nth-child", "nth-last-child", "nth-of-type", "nth-last-of-type":
			nth, err := p.parseNthArgs(t.pos)
			if err != nil {
				return Qualifier{}, false, err
			}
			return Qualifier{Kind: QualifierPseudo, Name: name, Nth: &nth}, true, nil
		case "not":
			p.skipSpace()
			inner, err := p.parseSequence(CombinatorNone)
			if err != nil {
				return Qualifier{}, false, err
			}
			p.skipSpace()
			if p.peek().typ != css.RightParenthesisToken {
				if p.eof() {
					return Qualifier{}, false, p.errf(t.pos, "unbalanced '('")
				}
				return Qualifier{}, false, p.errf(p.peek().pos, ":not() accepts a single simple selector sequence")
			}
			p.next()
			return Qualifier{Kind: QualifierPseudo, Name: "not", Inner: &inner}, true, nil
		case "lang", "has", "is", "where", "dir":
			return Qualifier{}, false, &UnsupportedError{Selector: p.sel, Construct: "pseudo-class :" + name + "()"}
		default:
			return Qualifier{}, false, p.errf(t.pos, "unrecognized pseudo-class :%s()", name)
		}

	default:
		return Qualifier{}, false, p.errf(colon.pos, "expected pseudo-class name after ':'")
	}
}

// parseNthArgs consumes tokens up to the closing parenthesis and parses
// them as an an+b expression (including the odd/even keywords and plain
// integers).
func (p *parser) parseNthArgs(open int) (NthExpr, error) {
	var raw strings.Builder
	for {
		t := p.peek()
		if p.eof() {
			return NthExpr{}, p.errf(open, "unbalanced '('")
		}
		if t.typ == css.RightParenthesisToken {
			p.next()
			break
		}
		if t.typ != css.WhitespaceToken {
			raw.WriteString(t.data)
		}
		p.next()
	}
	nth, ok := parseNth(strings.ToLower(raw.String()))
	if !ok {
		return NthExpr{}, p.errf(open, "invalid nth expression %q", raw.String())
	}
	return nth, nil
}

// parseNth parses the an+b micro-syntax: "odd", "even", "5", "2n",
// "2n+1", "-n+3", "n".
func parseNth(s string) (NthExpr, bool) {
	switch s {
	case "":
		return NthExpr{}, false
	case "odd":
		return NthExpr{A: 2, B: 1}, true
	case "even":
		return NthExpr{A: 2, B: 0}, true
	}
	i := strings.IndexByte(s, 'n')
	if i < 0 {
		b, err := strconv.Atoi(s)
		if err != nil {
			return NthExpr{}, false
		}
		return NthExpr{B: b}, true
	}

	a := 1
	switch coef := s[:i]; coef {
	case "", "+":
	case "-":
		a = -1
	default:
		v, err := strconv.Atoi(coef)
		if err != nil {
			return NthExpr{}, false
		}
		a = v
	}

	b := 0
	if rest := s[i+1:]; rest != "" {
		if rest[0] != '+' && rest[0] != '-' {
			return NthExpr{}, false
		}
		v, err := strconv.Atoi(rest)
		if err != nil {
			return NthExpr{}, false
		}
		b = v
	}
	return NthExpr{A: a, B: b}, true
}

// unquote removes surrounding quotes from an attribute value.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
