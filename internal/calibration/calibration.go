package calibration

import (
	"strings"
)

// Func is a compiled calibrator.
type Func func(value float64) float64

// Expr is a parsed calibrator expression.
type Expr struct {
	src  string
	root *node
}

// Parse parses a calibrator body.
func Parse(src string) (*Expr, error) {
	src = strings.TrimSpace(src)
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	return &Expr{src: src, root: root}, nil
}

// Eval evaluates the expression with value bound to v.
func (e *Expr) Eval(v float64) float64 { return e.root.eval(v) }

// Source returns the trimmed source text.
func (e *Expr) Source() string { return e.src }

// String returns a fully parenthesised rendering of the parsed tree.
func (e *Expr) String() string { return e.root.String() }

// Compile parses src and returns its evaluator.
func Compile(src string) (Func, error) {
	e, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return e.Eval, nil
}
