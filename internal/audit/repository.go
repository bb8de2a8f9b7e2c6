// Package audit records rejected ingest events in the audit_logs table and
// lists them for the API.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Actions recorded by the gateway.
const (
	ActionAuthFailed     = "auth_failed"
	ActionMetadataFailed = "metadata_failed"
	ActionStoreFailed    = "store_failed"
	ActionPayloadInvalid = "payload_invalid"
)

// EntityDevice is the entity type of every gateway audit row.
const EntityDevice = "device"

const (
	defaultLimit = 50
	maxLimit     = 200

	// timeLayout is fixed width so created_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// AuditLog is a single audit trail entry.
type AuditLog struct { //nolint:revive // audit.AuditLog reads better than audit.Log at call sites
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Source     string         `json:"source"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter selects audit logs. Empty fields match everything.
type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	Limit      int // default 50, max 200
	Offset     int
}

// ListResult is one page of audit logs.
type ListResult struct {
	Logs   []AuditLog `json:"logs"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// Repository stores and lists audit logs.
type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// row mirrors audit_logs for sqlx scanning.
type row struct {
	ID         string         `db:"id"`
	Action     string         `db:"action"`
	EntityType string         `db:"entity_type"`
	EntityID   sql.NullString `db:"entity_id"`
	UserID     sql.NullString `db:"user_id"`
	Source     string         `db:"source"`
	Details    sql.NullString `db:"details"`
	CreatedAt  string         `db:"created_at"`
}

// SQLiteRepository is the audit_logs repository.
type SQLiteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository wraps db for audit access.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: sqlx.NewDb(db, "sqlite3")}
}

// Create inserts log, filling ID and CreatedAt when empty.
func (r *SQLiteRepository) Create(ctx context.Context, log *AuditLog) error {
	if log.ID == "" {
		log.ID = "aud-" + uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	rec := row{
		ID:         log.ID,
		Action:     log.Action,
		EntityType: log.EntityType,
		EntityID:   nullable(log.EntityID),
		UserID:     nullable(log.UserID),
		Source:     log.Source,
		CreatedAt:  log.CreatedAt.UTC().Format(timeLayout),
	}
	if log.Details != nil {
		b, err := json.Marshal(log.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		rec.Details = nullable(string(b))
	}

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO audit_logs (id, action, entity_type, entity_id, user_id, source, details, created_at)
		 VALUES (:id, :action, :entity_type, :entity_id, :user_id, :source, :details, :created_at)`,
		rec,
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// List returns logs matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	for _, c := range []struct{ column, value string }{
		{"action", filter.Action},
		{"entity_type", filter.EntityType},
		{"entity_id", filter.EntityID},
	} {
		if c.value != "" {
			conditions = append(conditions, c.column+" = ?")
			args = append(args, c.value)
		}
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM audit_logs " + where //nolint:gosec // WHERE holds only fixed columns and bindvars
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("counting audit logs: %w", err)
	}

	var rows []row
	listQuery := "SELECT id, action, entity_type, entity_id, user_id, source, details, created_at FROM audit_logs " + //nolint:gosec // as above
		where + " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	if err := r.db.SelectContext(ctx, &rows, listQuery, append(args, filter.Limit, filter.Offset)...); err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}

	logs := make([]AuditLog, 0, len(rows))
	for _, rec := range rows {
		log, err := rec.toLog()
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return &ListResult{Logs: logs, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (rec row) toLog() (AuditLog, error) {
	log := AuditLog{
		ID:         rec.ID,
		Action:     rec.Action,
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID.String,
		UserID:     rec.UserID.String,
		Source:     rec.Source,
	}
	if rec.Details.Valid && rec.Details.String != "" {
		var details map[string]any
		if json.Unmarshal([]byte(rec.Details.String), &details) == nil {
			log.Details = details
		}
	}

	t, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		return AuditLog{}, fmt.Errorf("parsing audit log timestamp %q: %w", rec.CreatedAt, err)
	}
	log.CreatedAt = t
	return log, nil
}
