package selector

// Parsed form of a CSS selector. A selector is a list of comma-separated
// groups, each group a chain of simple selector sequences joined by
// combinators. The tree is plain data, the emitter in xpath.go turns it
// into an XPath expression.

// Combinator relates a sequence to the one before it in the same group.
type Combinator int

const (
	// CombinatorNone marks the first sequence of a group.
	CombinatorNone Combinator = iota
	// CombinatorDescendant is whitespace between sequences ("div p").
	CombinatorDescendant
	// CombinatorChild is ">" ("div > p").
	CombinatorChild
	// CombinatorAdjacent is "+", the immediately following sibling.
	CombinatorAdjacent
	// CombinatorSibling is "~", any following sibling.
	CombinatorSibling
)

func (c Combinator) String() string {
	switch c {
	case CombinatorDescendant:
		return " "
	case CombinatorChild:
		return ">"
	case CombinatorAdjacent:
		return "+"
	case CombinatorSibling:
		return "~"
	default:
		return ""
	}
}

// AttrOp is the attribute matcher operator inside "[...]".
type AttrOp int

const (
	AttrPresent   AttrOp = iota // [attr]
	AttrEquals                  // [attr=v]
	AttrIncludes                // [attr~=v]
	AttrDashMatch               // [attr|=v]
	AttrPrefix                  // [attr^=v]
	AttrSuffix                  // [attr$=v]
	AttrSubstring               // [attr*=v]
)

// QualifierKind discriminates the Qualifier union.
type QualifierKind int

const (
	QualifierID QualifierKind = iota
	QualifierClass
	QualifierAttr
	QualifierPseudo
)

// Qualifier narrows a sequence by id, class, attribute or pseudo-class.
// Which fields are meaningful depends on Kind: ID and class use Value,
// attributes use Name/Op/Value, pseudo-classes use Name plus Nth or Inner
// for the functional forms.
type Qualifier struct {
	Kind  QualifierKind
	Name  string
	Op    AttrOp
	Value string
	Nth   *NthExpr
	Inner *Sequence
}

// NthExpr is the an+b argument of the nth-* pseudo-classes. A literal
// index k is represented as a=0, b=k.
type NthExpr struct {
	A, B int
}

// Sequence is one simple selector sequence: a tag name (or "*") plus
// zero or more qualifiers, with the combinator that attaches it to the
// preceding sequence.
type Sequence struct {
	Combinator Combinator
	Tag        string
	Qualifiers []Qualifier
}

// Group is one comma-separated alternative of a selector.
type Group struct {
	Sequences []Sequence
}

// List is a fully parsed selector.
type List struct {
	Raw    string
	Groups []Group
}
