package query

import (
	"regexp"
)

// Params maps placeholder names (without the colon) to values.
type Params map[string]any

// placeholderPattern matches :name where name is a run of word characters.
var placeholderPattern = regexp.MustCompile(`:(\w+)`)

// Escaper turns a parameter value into an SQL literal.
type Escaper interface {
	Escape(v any) string
}

// EscaperFunc adapts a plain function to Escaper.
type EscaperFunc func(v any) string

// Escape calls f(v).
func (f EscaperFunc) Escape(v any) string { return f(v) }

// Render replaces every :name in tmpl with esc.Escape(params[name]).
// Placeholders without a matching key stay unchanged.
func Render(tmpl string, params Params, esc Escaper) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		v, ok := params[match[1:]]
		if !ok {
			return match
		}
		return esc.Escape(v)
	})
}

// Bind replaces every :name with a positional ? and returns the values in
// the order they appear. A name used twice contributes two arguments.
// Placeholders without a matching key stay unchanged and add no argument.
func Bind(tmpl string, params Params) (string, []any) {
	var args []any
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		v, ok := params[match[1:]]
		if !ok {
			return match
		}
		args = append(args, v)
		return "?"
	})
	return out, args
}

// Placeholders lists the distinct placeholder names in tmpl in order of
// first appearance.
func Placeholders(tmpl string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
