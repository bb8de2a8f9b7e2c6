package metadata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-sensorgw/internal/calibration"
	"github.com/nerrad567/gray-logic-sensorgw/internal/query"
	"github.com/nerrad567/gray-logic-sensorgw/internal/store"
)

// fakeConnector answers queries from a handler and records every call.
type fakeConnector struct {
	mu      sync.Mutex
	calls   []fakeCall
	handler func(tmpl string, params query.Params) ([]store.Row, error)

	inFlight    int
	maxInFlight int
	delay       func(params query.Params) time.Duration
}

type fakeCall struct {
	tmpl   string
	params query.Params
}

func (f *fakeConnector) Query(ctx context.Context, tmpl string, params query.Params) ([]store.Row, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{tmpl: tmpl, params: params})
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay != nil {
		select {
		case <-time.After(f.delay(params)):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", store.ErrQuery, ctx.Err())
		}
	}
	return f.handler(tmpl, params)
}

func (f *fakeConnector) Exec(context.Context, string, query.Params) (int64, error) {
	return 0, nil
}

func (f *fakeConnector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeConnector) callsFor(tmpl string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if c.tmpl == tmpl {
			out = append(out, c)
		}
	}
	return out
}

// fixture describes a device's metadata keyed by attribute id.
type fixture struct {
	attributes  []store.Row
	converters  map[int64][]store.Row
	calibrators map[int64][]store.Row
	validators  map[int64][]store.Row
}

func (fx fixture) connector() *fakeConnector {
	return &fakeConnector{handler: func(tmpl string, params query.Params) ([]store.Row, error) {
		switch tmpl {
		case DirectAttributesQuery:
			return fx.attributes, nil
		case ConvertersQuery:
			return fx.converters[params["id"].(int64)], nil
		case CalibratorsQuery:
			return fx.calibrators[params["id"].(int64)], nil
		case ValidatorsQuery:
			return fx.validators[params["id"].(int64)], nil
		}
		return nil, fmt.Errorf("%w: unexpected template %q", store.ErrQuery, tmpl)
	}}
}

func twoAttributeFixture() fixture {
	return fixture{
		attributes: []store.Row{
			{"id": int64(10), "name": "temperature"},
			{"id": int64(20), "name": "humidity"},
		},
		converters: map[int64][]store.Row{
			10: {{"type": "scale", "value": "0.1"}, {"type": "offset", "value": "-40"}},
			20: {{"type": "round", "value": "1"}},
		},
		calibrators: map[int64][]store.Row{
			10: {{"fn": "return value * 2;"}},
		},
		validators: map[int64][]store.Row{
			10: {{"type": "min", "value": "-40"}, {"type": "max", "value": "85"}},
			20: {{"type": "range", "value": "0,100"}},
		},
	}
}

// recordedAttribute captures every call made on it.
type recordedAttribute struct {
	name        string
	converters  []ConverterSpec
	calibrators []calibration.Func
	validators  []ValidatorSpec
}

func (a *recordedAttribute) AddConverter(kind, value string) {
	a.converters = append(a.converters, ConverterSpec{Kind: kind, Value: value})
}

func (a *recordedAttribute) AddCalibrator(fn calibration.Func) {
	a.calibrators = append(a.calibrators, fn)
}

func (a *recordedAttribute) AddValidator(kind, value string) {
	a.validators = append(a.validators, ValidatorSpec{Kind: kind, Value: value})
}

type recordingFactory struct {
	mu      sync.Mutex
	created []string
}

func (f *recordingFactory) Create(name string) SensorAttribute {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, name)
	return &recordedAttribute{name: name}
}

func (f *recordingFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeDevice struct {
	id    DeviceID
	attrs []SensorAttribute
	sets  int
}

func (d *fakeDevice) DeviceID() DeviceID   { return d.id }
func (d *fakeDevice) Data() map[string]any { return nil }

func (d *fakeDevice) SetAttributes(a []SensorAttribute) {
	d.attrs = a
	d.sets++
}

func names(attrs []SensorAttribute) []string {
	out := make([]string, len(attrs))
	for i, a := range attrs {
		out[i] = a.(*recordedAttribute).name
	}
	return out
}
