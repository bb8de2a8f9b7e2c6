// Package calibration compiles stored calibrator expressions into numeric
// transforms.
//
// A calibrator is the body of a function of one argument named value:
//
//	return value * 1.02 - 0.4;
//	Math.round(value * 10) / 10
//	value < 0 ? 0 : value
//
// The text is parsed into an expression tree and evaluated by a small
// interpreter. Nothing outside the grammar below can be expressed, so stored
// text never reaches a general-purpose evaluator.
//
// Grammar:
//
//	body    = [ "return" ] expr [ ";" ]
//	expr    = cond [ "?" expr ":" expr ]
//	cond    = sum { ("<" | "<=" | ">" | ">=" | "==" | "!=") sum }
//	sum     = product { ("+" | "-") product }
//	product = unary { ("*" | "/" | "%") unary }
//	unary   = ("+" | "-") unary | power
//	power   = primary [ "**" unary ]
//	primary = number | "value" | constant | call | "(" expr ")"
//
// Constants are PI and E. Functions are abs, sqrt, pow, min, max, round,
// floor, ceil, log, log10, exp, sin, cos and tan. Constants and functions
// may be written with a "Math." prefix. Comparisons yield 1 or 0.
package calibration
