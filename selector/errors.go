package selector

import "fmt"

// SyntaxError reports a malformed selector: unbalanced brackets or
// parentheses, a dangling combinator, an unknown pseudo-class and the
// like. The compiler never produces partial output for such input.
type SyntaxError struct {
	Selector string
	Pos      int
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid selector %q at offset %d: %s", e.Selector, e.Pos, e.Msg)
}

// UnsupportedError reports a well-formed construct that has no static
// XPath equivalent (dynamic pseudo-classes, pseudo-elements). Matching
// such selectors would require engine-side state we do not have, so the
// compiler refuses instead of guessing.
type UnsupportedError struct {
	Selector  string
	Construct string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("selector %q: %s cannot be translated to XPath", e.Selector, e.Construct)
}
