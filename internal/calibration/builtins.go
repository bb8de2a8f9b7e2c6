package calibration

import "math"

type function struct {
	name    string
	minArgs int
	maxArgs int // -1 for variadic
	call    func(args []float64) float64
}

func unary(name string, f func(float64) float64) *function {
	return &function{name: name, minArgs: 1, maxArgs: 1, call: func(a []float64) float64 { return f(a[0]) }}
}

var functions = map[string]*function{
	"abs":   unary("abs", math.Abs),
	"sqrt":  unary("sqrt", math.Sqrt),
	"round": unary("round", roundHalfUp),
	"floor": unary("floor", math.Floor),
	"ceil":  unary("ceil", math.Ceil),
	"log":   unary("log", math.Log),
	"log10": unary("log10", math.Log10),
	"exp":   unary("exp", math.Exp),
	"sin":   unary("sin", math.Sin),
	"cos":   unary("cos", math.Cos),
	"tan":   unary("tan", math.Tan),
	"pow": {name: "pow", minArgs: 2, maxArgs: 2, call: func(a []float64) float64 {
		return math.Pow(a[0], a[1])
	}},
	"min": {name: "min", minArgs: 1, maxArgs: -1, call: func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Min(m, v)
		}
		return m
	}},
	"max": {name: "max", minArgs: 1, maxArgs: -1, call: func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Max(m, v)
		}
		return m
	}},
}

var constants = map[string]float64{
	"PI": math.Pi,
	"E":  math.E,
}

// roundHalfUp rounds .5 towards positive infinity, so round(-2.5) is -2.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
