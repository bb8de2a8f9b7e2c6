package storage

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/nerrad567/gray-logic-sensorgw/internal/metadata"
	"github.com/nerrad567/gray-logic-sensorgw/internal/query"
	"github.com/nerrad567/gray-logic-sensorgw/internal/store"
)

// Defaults for Upserter.
const (
	DefaultTable      = "device_readings"
	DefaultPrimaryKey = "device_id"
)

// timestampMarker selects fields stored through datetime(x, 'unixepoch').
const timestampMarker = "timestamp"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Persister stores a device's current data.
type Persister interface {
	Store(ctx context.Context, data metadata.DeviceData) error
}

// Unsupported is a Persister that always fails with ErrNotSupported.
type Unsupported struct{}

// Store implements Persister.
func (Unsupported) Store(context.Context, metadata.DeviceData) error {
	return ErrNotSupported
}

// Upserter writes device data with INSERT ... ON CONFLICT DO UPDATE.
type Upserter struct {
	conn       store.Connector
	table      string
	primaryKey string
	override   string
}

// UpserterConfig configures an Upserter.
type UpserterConfig struct {
	Table      string
	PrimaryKey string

	// Template replaces the generated statement. It receives every data
	// field plus the primary key as parameters.
	Template string
}

// NewUpserter validates cfg and creates an Upserter.
func NewUpserter(conn store.Connector, cfg UpserterConfig) (*Upserter, error) {
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.PrimaryKey == "" {
		cfg.PrimaryKey = DefaultPrimaryKey
	}
	for _, name := range []string{cfg.Table, cfg.PrimaryKey} {
		if !identifierPattern.MatchString(name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidField, name)
		}
	}
	return &Upserter{
		conn:       conn,
		table:      cfg.Table,
		primaryKey: cfg.PrimaryKey,
		override:   cfg.Template,
	}, nil
}

// Store implements Persister.
func (u *Upserter) Store(ctx context.Context, data metadata.DeviceData) error {
	params := make(query.Params, len(data.Data())+1)
	for k, v := range data.Data() {
		params[k] = v
	}
	params[u.primaryKey] = string(data.DeviceID())

	tmpl := u.override
	if tmpl == "" {
		var err error
		if tmpl, err = u.Statement(params); err != nil {
			return err
		}
	}

	if _, err := u.conn.Exec(ctx, tmpl, params); err != nil {
		return fmt.Errorf("storing data for %q: %w", data.DeviceID(), err)
	}
	return nil
}

// Statement builds the upsert template for the given fields. Columns are
// emitted in sorted order so the statement is stable for a given field set.
func (u *Upserter) Statement(params query.Params) (string, error) {
	cols := make([]string, 0, len(params))
	for k := range params {
		if !identifierPattern.MatchString(k) {
			return "", fmt.Errorf("%w: %q", ErrInvalidField, k)
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)

	values := make([]string, len(cols))
	var updates []string
	for i, c := range cols {
		if strings.Contains(c, timestampMarker) {
			values[i] = "datetime(:" + c + ", 'unixepoch')"
		} else {
			values[i] = ":" + c
		}
		if c != u.primaryKey {
			updates = append(updates, c+" = excluded."+c)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO ",
		u.table, strings.Join(cols, ", "), strings.Join(values, ", "), u.primaryKey)
	if len(updates) == 0 {
		b.WriteString("NOTHING")
	} else {
		b.WriteString("UPDATE SET " + strings.Join(updates, ", "))
	}
	return b.String(), nil
}
