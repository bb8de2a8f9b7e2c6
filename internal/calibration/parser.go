package calibration

import (
	"fmt"
	"slices"
	"strings"
)

const (
	paramName  = "value"
	mathPrefix = "Math."
)

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == text
}

func (p *parser) accept(text string) bool {
	if p.isOp(text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(text string) error {
	if !p.accept(text) {
		return p.errorf("expected %q, found %s", text, p.peek())
	}
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, p.peek().pos, fmt.Sprintf(format, args...))
}

// parseBody handles the optional return keyword and trailing semicolon.
func (p *parser) parseBody() (*node, error) {
	if t := p.peek(); t.kind == tokIdent && t.text == "return" {
		p.next()
	}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.accept(";")
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf("unexpected %s", t)
	}
	return n, nil
}

func (p *parser) parseExpr() (*node, error) {
	cond, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if !p.accept("?") {
		return cond, nil
	}
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	otherwise, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &node{kind: nodeTernary, args: []*node{cond, then, otherwise}}, nil
}

func (p *parser) parseComparison() (*node, error) {
	return p.parseLeftAssoc(p.parseSum, "<", "<=", ">", ">=", "==", "!=")
}

func (p *parser) parseSum() (*node, error) {
	return p.parseLeftAssoc(p.parseProduct, "+", "-")
}

func (p *parser) parseProduct() (*node, error) {
	return p.parseLeftAssoc(p.parseUnary, "*", "/", "%")
}

func (p *parser) parseLeftAssoc(operand func() (*node, error), ops ...string) (*node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || !slices.Contains(ops, t.text) {
			return left, nil
		}
		p.next()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &node{kind: nodeBinary, op: t.text, args: []*node{left, right}}
	}
}

func (p *parser) parseUnary() (*node, error) {
	if t := p.peek(); t.kind == tokOp && (t.text == "-" || t.text == "+") {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeUnary, op: t.text, args: []*node{x}}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (*node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !p.accept("**") {
		return base, nil
	}
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &node{kind: nodeBinary, op: "**", args: []*node{base, exp}}, nil
}

func (p *parser) parsePrimary() (*node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		return &node{kind: nodeNumber, num: t.num}, nil
	case tokIdent:
		p.next()
		return p.parseIdent(t)
	case tokOp:
		if t.text == "(" {
			p.next()
			n, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return n, nil
		}
	}
	return nil, p.errorf("unexpected %s", t)
}

func (p *parser) parseIdent(t token) (*node, error) {
	if t.text == paramName {
		return &node{kind: nodeValue}, nil
	}

	name := strings.TrimPrefix(t.text, mathPrefix)
	if c, ok := constants[name]; ok {
		return &node{kind: nodeNumber, num: c}, nil
	}

	fn, ok := functions[name]
	if !ok {
		return nil, fmt.Errorf("%w at offset %d: unknown identifier %q", ErrSyntax, t.pos, t.text)
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}

	var args []*node
	if !p.isOp(")") {
		for {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if !p.accept(",") {
				break
			}
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}

	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return nil, fmt.Errorf("%w at offset %d: %s takes %s, got %d", ErrSyntax, t.pos, fn.name, arity(fn), len(args))
	}
	return &node{kind: nodeCall, fn: fn, args: args}, nil
}

func arity(fn *function) string {
	switch {
	case fn.maxArgs < 0:
		return fmt.Sprintf("at least %d arguments", fn.minArgs)
	case fn.minArgs == 1 && fn.maxArgs == 1:
		return "1 argument"
	default:
		return fmt.Sprintf("%d arguments", fn.minArgs)
	}
}
