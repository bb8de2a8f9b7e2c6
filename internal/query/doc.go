// Package query expands named placeholders in SQL templates.
//
// Templates reference parameters as :name. Two expansion modes are offered:
//
//   - Bind replaces each known placeholder with a positional ? and returns
//     the ordered argument list, leaving value handling to the driver.
//   - Render substitutes the escaped literal value in place, for backends
//     that only accept a finished statement.
//
// In both modes a placeholder whose name is absent from the parameter map
// is left in the statement verbatim.
package query
