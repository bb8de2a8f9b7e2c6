package sensor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-sensorgw/internal/calibration"
	"github.com/nerrad567/gray-logic-sensorgw/internal/metadata"
)

// Converter kinds.
const (
	ConvertScale  = "scale"
	ConvertOffset = "offset"
	ConvertDivide = "divide"
	ConvertRound  = "round"
	ConvertAbs    = "abs"
	ConvertNumber = "number"
)

// Validator kinds.
const (
	ValidateMin      = "min"
	ValidateMax      = "max"
	ValidateRange    = "range"
	ValidateNotEqual = "not_equal"
)

// Spec is a kind/value pair as stored.
type Spec struct {
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
}

// Description is the JSON view of an attribute.
type Description struct {
	Name        string   `json:"name"`
	Converters  []Spec   `json:"converters"`
	Calibrators int      `json:"calibrators"`
	Validators  []Spec   `json:"validators"`
	Problems    []string `json:"problems,omitempty"`
}

type converter struct {
	spec Spec
	fn   func(float64) float64
}

type validator struct {
	spec  Spec
	check func(float64) bool
}

// Attribute is a configured sensor attribute.
//
// Specs that cannot be built are recorded and reported by Apply so that a
// single bad row does not go unnoticed.
type Attribute struct {
	name        string
	converters  []converter
	calibrators []calibration.Func
	validators  []validator
	problems    []error
}

var _ metadata.SensorAttribute = (*Attribute)(nil)

// NewAttribute creates an attribute with empty chains.
func NewAttribute(name string) *Attribute {
	return &Attribute{name: name}
}

// Name returns the attribute name, which is also its payload key.
func (a *Attribute) Name() string { return a.name }

// AddConverter appends a converter.
func (a *Attribute) AddConverter(kind, value string) {
	spec := Spec{Kind: kind, Value: value}
	fn, err := buildConverter(spec)
	if err != nil {
		a.problems = append(a.problems, err)
		return
	}
	a.converters = append(a.converters, converter{spec: spec, fn: fn})
}

// AddCalibrator appends a calibrator.
func (a *Attribute) AddCalibrator(fn calibration.Func) {
	if fn == nil {
		return
	}
	a.calibrators = append(a.calibrators, fn)
}

// AddValidator appends a validator.
func (a *Attribute) AddValidator(kind, value string) {
	spec := Spec{Kind: kind, Value: value}
	check, err := buildValidator(spec)
	if err != nil {
		a.problems = append(a.problems, err)
		return
	}
	a.validators = append(a.validators, validator{spec: spec, check: check})
}

// Apply converts, calibrates and validates raw.
func (a *Attribute) Apply(raw any) (float64, error) {
	if len(a.problems) > 0 {
		return 0, fmt.Errorf("attribute %q: %w", a.name, errors.Join(a.problems...))
	}

	v, err := toFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("attribute %q: %w", a.name, err)
	}
	for _, c := range a.converters {
		v = c.fn(v)
	}
	for _, fn := range a.calibrators {
		v = fn(v)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("attribute %q: %w: result is %v", a.name, ErrValidation, v)
	}
	for _, val := range a.validators {
		if !val.check(v) {
			return 0, fmt.Errorf("attribute %q: %w: %v fails %s %s", a.name, ErrValidation, v, val.spec.Kind, val.spec.Value)
		}
	}
	return v, nil
}

// Describe returns the attribute's configuration.
func (a *Attribute) Describe() Description {
	d := Description{
		Name:        a.name,
		Converters:  make([]Spec, 0, len(a.converters)),
		Calibrators: len(a.calibrators),
		Validators:  make([]Spec, 0, len(a.validators)),
	}
	for _, c := range a.converters {
		d.Converters = append(d.Converters, c.spec)
	}
	for _, v := range a.validators {
		d.Validators = append(d.Validators, v.spec)
	}
	for _, p := range a.problems {
		d.Problems = append(d.Problems, p.Error())
	}
	return d
}

func buildConverter(s Spec) (func(float64) float64, error) {
	switch s.Kind {
	case ConvertAbs:
		return math.Abs, nil
	case ConvertNumber:
		return func(v float64) float64 { return v }, nil
	case ConvertRound:
		places := 0.0
		if strings.TrimSpace(s.Value) != "" {
			p, err := parseArg(s)
			if err != nil {
				return nil, err
			}
			places = p
		}
		factor := math.Pow(10, places)
		return func(v float64) float64 { return math.Round(v*factor) / factor }, nil
	}

	arg, err := parseArg(s)
	if err != nil {
		return nil, err
	}
	switch s.Kind {
	case ConvertScale:
		return func(v float64) float64 { return v * arg }, nil
	case ConvertOffset:
		return func(v float64) float64 { return v + arg }, nil
	case ConvertDivide:
		if arg == 0 {
			return nil, fmt.Errorf("%w: divide by zero", ErrBadArgument)
		}
		return func(v float64) float64 { return v / arg }, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownConverter, s.Kind)
}

func buildValidator(s Spec) (func(float64) bool, error) {
	switch s.Kind {
	case ValidateMin, ValidateMax, ValidateNotEqual:
		arg, err := parseArg(s)
		if err != nil {
			return nil, err
		}
		switch s.Kind {
		case ValidateMin:
			return func(v float64) bool { return v >= arg }, nil
		case ValidateMax:
			return func(v float64) bool { return v <= arg }, nil
		default:
			return func(v float64) bool { return v != arg }, nil
		}
	case ValidateRange:
		loText, hiText, ok := strings.Cut(s.Value, ",")
		if !ok {
			return nil, fmt.Errorf("%w: range %q wants lo,hi", ErrBadArgument, s.Value)
		}
		lo, err := parseArg(Spec{Kind: s.Kind, Value: loText})
		if err != nil {
			return nil, err
		}
		hi, err := parseArg(Spec{Kind: s.Kind, Value: hiText})
		if err != nil {
			return nil, err
		}
		return func(v float64) bool { return v >= lo && v <= hi }, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownValidator, s.Kind)
}

func parseArg(s Spec) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s.Value), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrBadArgument, s.Kind, s.Value)
	}
	return f, nil
}

// toFloat reads a payload value as a number.
func toFloat(raw any) (float64, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, x)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, x)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("%w: null", ErrNotNumeric)
	}
	return 0, fmt.Errorf("%w: %T", ErrNotNumeric, raw)
}
