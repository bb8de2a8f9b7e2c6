package metadata

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-sensorgw/internal/store"
)

// setupTestDB creates an in-memory database with the metadata tables and
// two devices: dev-direct owns its attributes, dev-templated inherits them
// from a template.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE templates (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
		CREATE TABLE devices (id INTEGER PRIMARY KEY, udid TEXT NOT NULL UNIQUE, template_id INTEGER);
		CREATE TABLE attributes (
			id INTEGER PRIMARY KEY,
			device_id INTEGER,
			template_id INTEGER,
			name TEXT NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE converters (id INTEGER PRIMARY KEY, attribute_id INTEGER, type TEXT, value TEXT, sort_order INTEGER);
		CREATE TABLE calibrators (id INTEGER PRIMARY KEY, attribute_id INTEGER, fn TEXT, sort_order INTEGER);
		CREATE TABLE validators (id INTEGER PRIMARY KEY, attribute_id INTEGER, type TEXT, value TEXT, sort_order INTEGER);

		INSERT INTO templates (id, name) VALUES (1, 'th-sensor');
		INSERT INTO devices (id, udid, template_id) VALUES (1, 'dev-direct', NULL), (2, 'dev-templated', 1);

		-- Inserted out of order to prove sort_order wins.
		INSERT INTO attributes (id, device_id, name, sort_order) VALUES
			(11, 1, 'humidity', 2),
			(10, 1, 'temperature', 1);
		INSERT INTO attributes (id, template_id, name, sort_order) VALUES
			(20, 1, 'co2', 1);

		INSERT INTO converters (attribute_id, type, value, sort_order) VALUES
			(10, 'offset', '-40', 2),
			(10, 'scale', '0.1', 1),
			(20, 'number', '', 1);
		INSERT INTO calibrators (attribute_id, fn, sort_order) VALUES
			(10, 'return value + 1;', 1);
		INSERT INTO validators (attribute_id, type, value, sort_order) VALUES
			(11, 'range', '0,100', 1),
			(20, 'min', 0, 1);`)
	require.NoError(t, err)
	return db
}

func TestResolver_SQLite(t *testing.T) {
	for _, mode := range []string{store.BindParameterised, store.BindRender} {
		t.Run(mode, func(t *testing.T) {
			conn, err := store.New(setupTestDB(t), store.Options{BindMode: mode})
			require.NoError(t, err)

			attrs, err := NewResolver(conn, ResolverConfig{}).Resolve(context.Background(), "dev-direct", &recordingFactory{})
			require.NoError(t, err)

			require.Equal(t, []string{"temperature", "humidity"}, names(attrs))
			temp := attrs[0].(*recordedAttribute)
			assert.Equal(t, []ConverterSpec{{"scale", "0.1"}, {"offset", "-40"}}, temp.converters)
			require.Len(t, temp.calibrators, 1)
			assert.Equal(t, 2.0, temp.calibrators[0](1))
			assert.Equal(t, []ValidatorSpec{{"range", "0,100"}}, attrs[1].(*recordedAttribute).validators)
		})
	}
}

func TestResolver_SQLiteTemplateSchema(t *testing.T) {
	conn, err := store.New(setupTestDB(t), store.Options{})
	require.NoError(t, err)
	q, err := DefaultQueries(SchemaTemplate)
	require.NoError(t, err)

	attrs, err := NewResolver(conn, ResolverConfig{Queries: q}).Resolve(context.Background(), "dev-templated", &recordingFactory{})
	require.NoError(t, err)

	require.Equal(t, []string{"co2"}, names(attrs))
	co2 := attrs[0].(*recordedAttribute)
	assert.Equal(t, []ConverterSpec{{"number", ""}}, co2.converters)
	assert.Equal(t, []ValidatorSpec{{"min", "0"}}, co2.validators)
}

func TestResolver_SQLiteUnknownDevice(t *testing.T) {
	conn, err := store.New(setupTestDB(t), store.Options{})
	require.NoError(t, err)

	_, err = NewResolver(conn, ResolverConfig{}).Resolve(context.Background(), "nope", &recordingFactory{})
	assert.ErrorIs(t, err, ErrNoMetadata)
}
