package query

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var identity = EscaperFunc(func(v any) string { return fmt.Sprint(v) })

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		tmpl   string
		params Params
		want   string
	}{
		{
			name:   "single placeholder",
			tmpl:   "WHERE id = :id",
			params: Params{"id": 5},
			want:   "WHERE id = 5",
		},
		{
			name:   "missing key left verbatim",
			tmpl:   "WHERE id = :missing",
			params: Params{"id": 5},
			want:   "WHERE id = :missing",
		},
		{
			name:   "repeated placeholder",
			tmpl:   ":a + :a",
			params: Params{"a": 2},
			want:   "2 + 2",
		},
		{
			name:   "longest word match",
			tmpl:   ":id_2 :id",
			params: Params{"id": 1, "id_2": 7},
			want:   "7 1",
		},
		{
			name:   "no placeholders",
			tmpl:   "SELECT 1",
			params: nil,
			want:   "SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.tmpl, tt.params, identity))
		})
	}
}

func TestRender_SQLiteEscaper(t *testing.T) {
	got := Render("WHERE name = :name AND age > :age", Params{"name": "O'Brien", "age": 30}, SQLiteEscaper)
	assert.Equal(t, "WHERE name = 'O''Brien' AND age > 30", got)
}

func TestBind(t *testing.T) {
	sql, args := Bind("SELECT * FROM t WHERE a = :a AND b = :b AND a2 = :a AND c = :c", Params{"a": 1, "b": "x"})

	assert.Equal(t, "SELECT * FROM t WHERE a = ? AND b = ? AND a2 = ? AND c = :c", sql)
	assert.Equal(t, []any{1, "x", 1}, args)
}

func TestBind_NoParams(t *testing.T) {
	sql, args := Bind("SELECT :x", nil)

	assert.Equal(t, "SELECT :x", sql)
	assert.Empty(t, args)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"id", "token"}, Placeholders("a = :id OR b = :token OR c = :id"))
	assert.Empty(t, Placeholders("SELECT 1"))
}

func TestSQLiteEscaper(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("X", 3600))

	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{"plain", "'plain'"},
		{"it's", "'it''s'"},
		{42, "42"},
		{int64(-7), "-7"},
		{uint8(9), "9"},
		{1.5, "1.5"},
		{float32(0.25), "0.25"},
		{math.NaN(), "NULL"},
		{math.Inf(1), "NULL"},
		{true, "1"},
		{false, "0"},
		{[]byte{0xde, 0xad}, "X'dead'"},
		{ts, "'2026-03-01 08:30:00'"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%T_%v", tt.in, tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, SQLiteEscaper.Escape(tt.in))
		})
	}
}
