package metadata

import "fmt"

// Schema variants for the attribute listing query.
const (
	SchemaDirect   = "direct"
	SchemaTemplate = "template"
)

// Default statements. Each takes a single :id parameter: the device id for
// the attribute listing, the attribute id for the others.
const (
	DirectAttributesQuery = `SELECT attributes.* FROM attributes ` +
		`INNER JOIN devices ON devices.id = attributes.device_id ` +
		`WHERE devices.udid = :id ORDER BY attributes.sort_order`

	TemplateAttributesQuery = `SELECT attributes.* FROM attributes ` +
		`INNER JOIN devices ON devices.template_id = attributes.template_id ` +
		`WHERE devices.udid = :id ORDER BY attributes.sort_order`

	ConvertersQuery  = `SELECT type, value FROM converters WHERE attribute_id = :id ORDER BY sort_order`
	CalibratorsQuery = `SELECT fn FROM calibrators WHERE attribute_id = :id ORDER BY sort_order`
	ValidatorsQuery  = `SELECT type, value FROM validators WHERE attribute_id = :id ORDER BY sort_order`
)

// Queries holds the four statements the resolver runs.
type Queries struct {
	Attributes  string
	Converters  string
	Calibrators string
	Validators  string
}

// DefaultQueries returns the built-in statements for a schema variant.
func DefaultQueries(schema string) (Queries, error) {
	q := Queries{
		Converters:  ConvertersQuery,
		Calibrators: CalibratorsQuery,
		Validators:  ValidatorsQuery,
	}
	switch schema {
	case "", SchemaDirect:
		q.Attributes = DirectAttributesQuery
	case SchemaTemplate:
		q.Attributes = TemplateAttributesQuery
	default:
		return Queries{}, fmt.Errorf("metadata: unknown schema %q", schema)
	}
	return q, nil
}

// WithOverrides replaces each statement for which o holds a non-empty value.
func (q Queries) WithOverrides(o Queries) Queries {
	if o.Attributes != "" {
		q.Attributes = o.Attributes
	}
	if o.Converters != "" {
		q.Converters = o.Converters
	}
	if o.Calibrators != "" {
		q.Calibrators = o.Calibrators
	}
	if o.Validators != "" {
		q.Validators = o.Validators
	}
	return q
}
