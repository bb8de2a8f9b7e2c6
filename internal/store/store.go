package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nerrad567/gray-logic-sensorgw/internal/query"
)

// Bind modes select how placeholders reach the database.
const (
	BindParameterised = "parameterised"
	BindRender        = "render"
)

const defaultTimeout = 5 * time.Second

// Row is one result row keyed by column name.
type Row = map[string]any

// Connector executes parameterised statements.
type Connector interface {
	// Query runs a statement that returns rows.
	Query(ctx context.Context, tmpl string, params query.Params) ([]Row, error)

	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, tmpl string, params query.Params) (int64, error)
}

// Options tunes an SQL connector.
type Options struct {
	// DriverName selects the sqlx bindvar style. Defaults to sqlite3.
	DriverName string

	// BindMode is BindParameterised (default) or BindRender.
	BindMode string

	// Timeout bounds each statement. Zero means 5s.
	Timeout time.Duration

	// Escaper renders literals in BindRender mode. Defaults to SQLite rules.
	Escaper query.Escaper
}

// SQL is a Connector backed by database/sql through sqlx.
type SQL struct {
	db      *sqlx.DB
	mode    string
	timeout time.Duration
	escaper query.Escaper
}

// New wraps db. The caller keeps ownership of db and closes it.
func New(db *sql.DB, opts Options) (*SQL, error) {
	if db == nil {
		return nil, fmt.Errorf("store: nil database handle")
	}
	if opts.DriverName == "" {
		opts.DriverName = "sqlite3"
	}
	switch opts.BindMode {
	case "":
		opts.BindMode = BindParameterised
	case BindParameterised, BindRender:
	default:
		return nil, fmt.Errorf("store: unknown bind mode %q", opts.BindMode)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Escaper == nil {
		opts.Escaper = query.SQLiteEscaper
	}

	return &SQL{
		db:      sqlx.NewDb(db, opts.DriverName),
		mode:    opts.BindMode,
		timeout: opts.Timeout,
		escaper: opts.Escaper,
	}, nil
}

// Query implements Connector.
func (s *SQL) Query(ctx context.Context, tmpl string, params query.Params) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stmt, args := s.prepare(tmpl, params)
	rows, err := s.db.QueryxContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row := make(Row)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("%w: scanning row: %w", ErrQuery, err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return out, nil
}

// Exec implements Connector.
func (s *SQL) Exec(ctx context.Context, tmpl string, params query.Params) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stmt, args := s.prepare(tmpl, params)
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return n, nil
}

func (s *SQL) prepare(tmpl string, params query.Params) (string, []any) {
	if s.mode == BindRender {
		return query.Render(tmpl, params, s.escaper), nil
	}
	stmt, args := query.Bind(tmpl, params)
	return s.db.Rebind(stmt), args
}
