package metadata

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-sensorgw/internal/calibration"
	"github.com/nerrad567/gray-logic-sensorgw/internal/query"
	"github.com/nerrad567/gray-logic-sensorgw/internal/store"
)

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// Queries are the statements to run. Zero fields fall back to the
	// direct-schema defaults.
	Queries Queries

	// MaxFanout caps concurrent sub-queries within a stage. Zero means one
	// goroutine per attribute.
	MaxFanout int
}

// Resolver runs the staged attribute pipeline against a store.
type Resolver struct {
	conn      store.Connector
	queries   Queries
	maxFanout int
	metrics   *Metrics
	logger    Logger
}

// NewResolver creates a Resolver reading through conn.
func NewResolver(conn store.Connector, cfg ResolverConfig) *Resolver {
	defaults, _ := DefaultQueries(SchemaDirect) //nolint:errcheck // direct is always known
	return &Resolver{
		conn:      conn,
		queries:   defaults.WithOverrides(cfg.Queries),
		maxFanout: cfg.MaxFanout,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger.
func (r *Resolver) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetMetrics attaches metrics. A nil value disables them.
func (r *Resolver) SetMetrics(m *Metrics) {
	r.metrics = m
}

// Resolve fetches the metadata of id and builds one SensorAttribute per
// attribute, in attribute listing order.
func (r *Resolver) Resolve(ctx context.Context, id DeviceID, factory AttributeFactory) ([]SensorAttribute, error) {
	start := time.Now()
	defs, err := r.Definitions(ctx, id)
	if err != nil {
		r.metrics.observeResolve(resultOf(err), time.Since(start))
		return nil, err
	}

	attrs := assemble(defs, factory)
	r.metrics.observeResolve(resultOK, time.Since(start))
	r.logger.Debug("metadata resolved",
		"device_id", string(id),
		"attributes", len(attrs),
		"duration", time.Since(start),
	)
	return attrs, nil
}

// Definitions runs stages S1 to S4 and returns the raw definitions with
// calibrators compiled. It fails with ErrNoMetadata when the device has no
// attributes.
func (r *Resolver) Definitions(ctx context.Context, id DeviceID) ([]AttributeDefinition, error) {
	defs, err := r.listAttributes(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoMetadata, id)
	}

	stages := []struct {
		name   string
		tmpl   string
		attach func(*AttributeDefinition, store.Row) error
	}{
		{"converters", r.queries.Converters, attachConverter},
		{"calibrators", r.queries.Calibrators, attachCalibrator},
		{"validators", r.queries.Validators, attachValidator},
	}
	for _, s := range stages {
		if err := r.fanOut(ctx, s.name, defs, s.tmpl, s.attach); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

// listAttributes is S1.
func (r *Resolver) listAttributes(ctx context.Context, id DeviceID) ([]AttributeDefinition, error) {
	r.metrics.countQuery("attributes")
	rows, err := r.conn.Query(ctx, r.queries.Attributes, query.Params{"id": string(id)})
	if err != nil {
		return nil, fmt.Errorf("listing attributes for %q: %w", id, err)
	}

	defs := make([]AttributeDefinition, 0, len(rows))
	for i, row := range rows {
		attrID, ok := row["id"]
		if !ok {
			return nil, fmt.Errorf("%w: attribute row %d has no id column", store.ErrQuery, i)
		}
		name, ok := stringColumn(row, "name")
		if !ok {
			return nil, fmt.Errorf("%w: attribute row %d has no name column", store.ErrQuery, i)
		}
		defs = append(defs, AttributeDefinition{ID: attrID, Name: name})
	}
	return defs, nil
}

// fanOut runs tmpl once per attribute and attaches the returned rows in
// order. It returns after every sub-query has finished, reporting the first
// failure.
func (r *Resolver) fanOut(
	ctx context.Context,
	stage string,
	defs []AttributeDefinition,
	tmpl string,
	attach func(*AttributeDefinition, store.Row) error,
) error {
	g, gctx := errgroup.WithContext(ctx)
	if r.maxFanout > 0 {
		g.SetLimit(r.maxFanout)
	}

	for i := range defs {
		def := &defs[i]
		g.Go(func() error {
			r.metrics.countQuery(stage)
			rows, err := r.conn.Query(gctx, tmpl, query.Params{"id": def.ID})
			if err != nil {
				return fmt.Errorf("loading %s for attribute %q: %w", stage, def.Name, err)
			}
			for _, row := range rows {
				if err := attach(def, row); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func attachConverter(def *AttributeDefinition, row store.Row) error {
	kind, _ := stringColumn(row, "type")
	value, _ := stringColumn(row, "value")
	def.Converters = append(def.Converters, ConverterSpec{Kind: kind, Value: value})
	return nil
}

func attachCalibrator(def *AttributeDefinition, row store.Row) error {
	src, _ := stringColumn(row, "fn")
	fn, err := calibration.Compile(src)
	if err != nil {
		return fmt.Errorf("%w: attribute %q calibrator %d: %w", ErrCompilation, def.Name, len(def.Calibrators), err)
	}
	def.Calibrators = append(def.Calibrators, CalibratorSpec{Expression: src, Func: fn})
	return nil
}

func attachValidator(def *AttributeDefinition, row store.Row) error {
	kind, _ := stringColumn(row, "type")
	value, _ := stringColumn(row, "value")
	def.Validators = append(def.Validators, ValidatorSpec{Kind: kind, Value: value})
	return nil
}

// assemble is S5: one instance per definition, in definition order.
func assemble(defs []AttributeDefinition, factory AttributeFactory) []SensorAttribute {
	attrs := make([]SensorAttribute, 0, len(defs))
	for _, def := range defs {
		inst := factory.Create(def.Name)
		for _, c := range def.Converters {
			inst.AddConverter(c.Kind, c.Value)
		}
		for _, c := range def.Calibrators {
			inst.AddCalibrator(c.Func)
		}
		for _, v := range def.Validators {
			inst.AddValidator(v.Kind, v.Value)
		}
		attrs = append(attrs, inst)
	}
	return attrs
}

// stringColumn reads a column as text. NULL reads as "".
func stringColumn(row store.Row, key string) (string, bool) {
	v, ok := row[key]
	if !ok {
		return "", false
	}
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, true
	case []byte:
		return string(x), true
	default:
		return fmt.Sprint(x), true
	}
}
