package calibration

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type nodeKind int

const (
	nodeNumber nodeKind = iota
	nodeValue
	nodeUnary
	nodeBinary
	nodeCall
	nodeTernary
)

// node is one vertex of a parsed expression. The fields used depend on kind.
type node struct {
	kind nodeKind
	num  float64
	op   string
	fn   *function
	args []*node
}

func (n *node) eval(value float64) float64 {
	switch n.kind {
	case nodeNumber:
		return n.num
	case nodeValue:
		return value
	case nodeUnary:
		x := n.args[0].eval(value)
		if n.op == "-" {
			return -x
		}
		return x
	case nodeBinary:
		return binary(n.op, n.args[0].eval(value), n.args[1].eval(value))
	case nodeCall:
		vals := make([]float64, len(n.args))
		for i, a := range n.args {
			vals[i] = a.eval(value)
		}
		return n.fn.call(vals)
	case nodeTernary:
		if truthy(n.args[0].eval(value)) {
			return n.args[1].eval(value)
		}
		return n.args[2].eval(value)
	}
	return math.NaN()
}

func binary(op string, a, b float64) float64 {
	switch op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		return a / b
	case "%":
		return math.Mod(a, b)
	case "**":
		return math.Pow(a, b)
	case "<":
		return boolean(a < b)
	case "<=":
		return boolean(a <= b)
	case ">":
		return boolean(a > b)
	case ">=":
		return boolean(a >= b)
	case "==":
		return boolean(a == b)
	case "!=":
		return boolean(a != b)
	}
	return math.NaN()
}

func (n *node) String() string {
	switch n.kind {
	case nodeNumber:
		return strconv.FormatFloat(n.num, 'g', -1, 64)
	case nodeValue:
		return "value"
	case nodeUnary:
		return n.op + n.args[0].String()
	case nodeBinary:
		return fmt.Sprintf("(%s %s %s)", n.args[0], n.op, n.args[1])
	case nodeCall:
		parts := make([]string, len(n.args))
		for i, a := range n.args {
			parts[i] = a.String()
		}
		return n.fn.name + "(" + strings.Join(parts, ", ") + ")"
	case nodeTernary:
		return fmt.Sprintf("(%s ? %s : %s)", n.args[0], n.args[1], n.args[2])
	}
	return "?"
}

func boolean(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// truthy follows the usual numeric rule: zero and NaN are false.
func truthy(f float64) bool { return f != 0 && !math.IsNaN(f) }
