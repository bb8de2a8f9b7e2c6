package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-sensorgw/internal/audit"
	"github.com/nerrad567/gray-logic-sensorgw/internal/auth"
	"github.com/nerrad567/gray-logic-sensorgw/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-sensorgw/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-sensorgw/internal/metadata"
	"github.com/nerrad567/gray-logic-sensorgw/internal/store"
)

const testToken = "tok-valid"

type fakeMetadata struct {
	err         error
	invalidated []metadata.DeviceID
}

func (f *fakeMetadata) Resolve(_ context.Context, data metadata.DeviceData, factory metadata.AttributeFactory) error {
	if f.err != nil {
		return f.err
	}
	if data.DeviceID() != "th-1" {
		return fmt.Errorf("%w %q", metadata.ErrNoMetadata, data.DeviceID())
	}
	temp := factory.Create("temperature")
	temp.AddConverter("divide", "10")
	temp.AddValidator("range", "-40,85")
	hum := factory.Create("humidity")
	hum.AddCalibrator(func(v float64) float64 { return v })
	data.SetAttributes([]metadata.SensorAttribute{temp, hum})
	return nil
}

func (f *fakeMetadata) Invalidate(id metadata.DeviceID) bool {
	f.invalidated = append(f.invalidated, id)
	return id == "th-1"
}

type fakeAuth struct {
	err error
}

func (f fakeAuth) Authenticate(_ context.Context, token string) (store.Row, error) {
	if f.err != nil {
		return nil, f.err
	}
	if token != testToken {
		return nil, auth.ErrNoUser
	}
	return store.Row{"id": int64(1), "username": "operator"}, nil
}

type fakeAudit struct {
	logs   []audit.AuditLog
	filter audit.Filter
}

func (f *fakeAudit) Create(_ context.Context, log *audit.AuditLog) error {
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeAudit) List(_ context.Context, filter audit.Filter) (*audit.ListResult, error) {
	f.filter = filter
	return &audit.ListResult{Logs: f.logs, Total: len(f.logs), Limit: filter.Limit, Offset: filter.Offset}, nil
}

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func testServer(t *testing.T, mutate func(*Deps)) (*Server, *fakeMetadata, *fakeAudit) {
	t.Helper()
	meta := &fakeMetadata{}
	aud := &fakeAudit{}
	deps := Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 0, Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5}},
		Logger:   logging.Discard(),
		Metadata: meta,
		Auth:     fakeAuth{},
		Audit:    aud,
		Gatherer: prometheus.NewRegistry(),
		Version:  "test",
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv, meta, aud
}

func do(t *testing.T, srv *Server, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestNew_RequiresDeps(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Deps)
	}{
		{"logger", func(d *Deps) { d.Logger = nil }},
		{"metadata", func(d *Deps) { d.Metadata = nil }},
		{"auth", func(d *Deps) { d.Auth = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := Deps{Logger: logging.Discard(), Metadata: &fakeMetadata{}, Auth: fakeAuth{}}
			tt.mutate(&deps)
			if _, err := New(deps); err == nil {
				t.Errorf("New() without %s should fail", tt.name)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t, func(d *Deps) {
		d.Checks = map[string]HealthChecker{
			"database": checkFunc(func(context.Context) error { return nil }),
		}
	})

	rec := do(t, srv, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[HealthResponse](t, rec)
	if body.Status != "ok" || body.Version != "test" || body.Checks["database"] != "ok" {
		t.Errorf("body = %+v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestHealth_Degraded(t *testing.T) {
	srv, _, _ := testServer(t, func(d *Deps) {
		d.Checks = map[string]HealthChecker{
			"database": checkFunc(func(context.Context) error { return nil }),
			"mqtt":     checkFunc(func(context.Context) error { return errors.New("mqtt: not connected") }),
		}
	})

	rec := do(t, srv, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	body := decode[HealthResponse](t, rec)
	if body.Status != "degraded" || body.Checks["mqtt"] != "mqtt: not connected" {
		t.Errorf("body = %+v", body)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	srv, _, _ := testServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "sensorgw_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv, _, _ := testServer(t, func(d *Deps) { d.Gatherer = reg })
	rec := do(t, srv, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sensorgw_test_total 1") {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		auth   fakeAuth
		want   int
	}{
		{"missing header", "", fakeAuth{}, http.StatusUnauthorized},
		{"wrong scheme", "Basic " + testToken, fakeAuth{}, http.StatusUnauthorized},
		{"empty token", "Bearer ", fakeAuth{}, http.StatusUnauthorized},
		{"unknown token", "Bearer nope", fakeAuth{}, http.StatusUnauthorized},
		{"store down", "Bearer " + testToken, fakeAuth{err: store.ErrQuery}, http.StatusInternalServerError},
		{"valid", "bearer " + testToken, fakeAuth{}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := testServer(t, func(d *Deps) { d.Auth = tt.auth })
			req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestGetMetadata(t *testing.T) {
	srv, _, _ := testServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/devices/th-1/metadata", testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	body := decode[MetadataResponse](t, rec)
	if body.DeviceID != "th-1" || len(body.Attributes) != 2 {
		t.Fatalf("body = %+v", body)
	}
	temp := body.Attributes[0]
	if temp.Name != "temperature" || len(temp.Converters) != 1 || temp.Converters[0].Kind != "divide" {
		t.Errorf("temperature = %+v", temp)
	}
	if len(temp.Validators) != 1 || temp.Validators[0].Value != "-40,85" {
		t.Errorf("temperature validators = %+v", temp.Validators)
	}
	if hum := body.Attributes[1]; hum.Name != "humidity" || hum.Calibrators != 1 {
		t.Errorf("humidity = %+v", hum)
	}
}

func TestGetMetadata_Errors(t *testing.T) {
	tests := []struct {
		name     string
		device   string
		err      error
		wantCode int
	}{
		{"unknown device", "ghost", nil, http.StatusNotFound},
		{"bad calibrator", "th-1", fmt.Errorf("%w: attribute 3", metadata.ErrCompilation), http.StatusUnprocessableEntity},
		{"store down", "th-1", fmt.Errorf("resolving: %w", store.ErrQuery), http.StatusServiceUnavailable},
		{"other", "th-1", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, meta, _ := testServer(t, nil)
			meta.err = tt.err

			rec := do(t, srv, http.MethodGet, "/api/v1/devices/"+tt.device+"/metadata", testToken)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if e := decode[Error](t, rec); e.Status != tt.wantCode {
				t.Errorf("error body status = %d", e.Status)
			}
		})
	}
}

func TestInvalidateMetadata(t *testing.T) {
	srv, meta, _ := testServer(t, nil)

	rec := do(t, srv, http.MethodDelete, "/api/v1/devices/th-1/metadata", testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["removed"] != true {
		t.Errorf("removed = %v, want true", body["removed"])
	}
	if len(meta.invalidated) != 1 || meta.invalidated[0] != "th-1" {
		t.Errorf("invalidated = %v", meta.invalidated)
	}

	rec = do(t, srv, http.MethodDelete, "/api/v1/devices/th-1/metadata", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated DELETE status = %d, want 401", rec.Code)
	}
}

func TestListAuditLogs(t *testing.T) {
	srv, _, aud := testServer(t, nil)
	aud.logs = []audit.AuditLog{{ID: "aud-1", Action: audit.ActionAuthFailed, EntityType: audit.EntityDevice, Source: "mqtt"}}

	rec := do(t, srv, http.MethodGet, "/api/v1/audit?action=auth_failed&entity_id=th-1&limit=10&offset=5&entity_type=device", testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := audit.Filter{Action: "auth_failed", EntityType: "device", EntityID: "th-1", Limit: 10, Offset: 5}
	if aud.filter != want {
		t.Errorf("filter = %+v, want %+v", aud.filter, want)
	}
	body := decode[audit.ListResult](t, rec)
	if body.Total != 1 || body.Logs[0].ID != "aud-1" {
		t.Errorf("body = %+v", body)
	}
}

func TestListAuditLogs_NotConfigured(t *testing.T) {
	srv, _, _ := testServer(t, func(d *Deps) { d.Audit = nil })

	rec := do(t, srv, http.MethodGet, "/api/v1/audit", testToken)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv, _, _ := testServer(t, nil)
	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestStartClose(t *testing.T) {
	srv, _, _ := testServer(t, nil)

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer srv.Close()

	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error: %v", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestClose_NotStarted(t *testing.T) {
	srv, _, _ := testServer(t, nil)
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
