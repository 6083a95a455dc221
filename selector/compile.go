// Package selector compiles CSS selectors into equivalent XPath
// expressions. Compilation is a pure string-to-string mapping: no I/O,
// no tree access, deterministic output, safe for concurrent use.
//
// The supported grammar is the CSS2.1 selector syntax plus the CSS3
// structural pseudo-classes (first/last/only-child, the of-type family,
// nth-child and friends, :empty, :root, :not). Dynamic pseudo-classes
// and pseudo-elements have no static XPath equivalent and are rejected
// with UnsupportedError rather than mistranslated.
package selector

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ExpressionType declares how a query expression is to be interpreted.
// It is always caller-declared, never auto-detected.
type ExpressionType int

const (
	// TypeCSS marks an expression in CSS selector syntax.
	TypeCSS ExpressionType = iota
	// TypeXPath marks an expression already in XPath syntax.
	TypeXPath
)

func (t ExpressionType) String() string {
	switch t {
	case TypeCSS:
		return "css"
	case TypeXPath:
		return "xpath"
	default:
		return fmt.Sprintf("ExpressionType(%d)", int(t))
	}
}

// ParseExpressionType maps a configuration or command line value to an
// ExpressionType.
func ParseExpressionType(s string) (ExpressionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "css":
		return TypeCSS, nil
	case "xpath":
		return TypeXPath, nil
	default:
		return TypeCSS, fmt.Errorf("unknown expression type %q", s)
	}
}

// Compiler translates CSS selectors into XPath expressions. The zero
// cost of construction is intentional: it carries only a logger and may
// be shared freely between goroutines.
type Compiler struct {
	log *zap.Logger
}

// NewCompiler creates a selector compiler. A nil logger is replaced
// with a no-op one.
func NewCompiler(log *zap.Logger) *Compiler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Compiler{log: log.Named("selector")}
}

// Compile translates expression according to typ. XPath input is passed
// through unchanged; CSS input is parsed and re-emitted as XPath.
func (c *Compiler) Compile(expression string, typ ExpressionType) (string, error) {
	if typ == TypeXPath {
		return expression, nil
	}
	list, err := parseSelector(expression)
	if err != nil {
		return "", err
	}
	out, err := emit(list)
	if err != nil {
		return "", err
	}
	c.log.Debug("Compiled selector", zap.String("css", expression), zap.String("xpath", out))
	return out, nil
}

var defaultCompiler = NewCompiler(nil)

// Compile translates expression using a shared default compiler.
func Compile(expression string, typ ExpressionType) (string, error) {
	return defaultCompiler.Compile(expression, typ)
}

// MustCompile is Compile for expressions known to be valid; it panics
// on error. Useful for selectors fixed at build time.
func MustCompile(expression string, typ ExpressionType) string {
	out, err := Compile(expression, typ)
	if err != nil {
		panic(err)
	}
	return out
}
