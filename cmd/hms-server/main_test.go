package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/platform/telemetry"
)

func testConfig(driver string) *config.Config {
	return &config.Config{
		Port:           "0",
		Env:            "development",
		LogLevel:       "info",
		StoreDriver:    driver,
		SQLitePath:     "hms.db",
		CORSOrigins:    []string{"http://localhost:8080"},
		BodyLimit:      "1M",
		MetricsEnabled: true,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()
	logger := zerolog.Nop()
	st, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	t.Cleanup(st.Close)
	return newServer(cfg, logger, st, telemetry.NewMetrics())
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func registrationScenario(t *testing.T, e *echo.Echo) {
	t.Helper()
	idPattern := regexp.MustCompile(`^P\d{4,}$`)

	rec := do(e, http.MethodGet, "/api/hms/patients", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("list: expected empty array, got %s", rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/api/hms/patients",
		`{"name":"Alice","dateOfBirth":"1990-01-01","admissionDate":"2024-01-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var alice patient.Patient
	json.Unmarshal(rec.Body.Bytes(), &alice)
	if alice.PatientID != "P1001" {
		t.Errorf("expected P1001, got %s", alice.PatientID)
	}
	if !idPattern.MatchString(alice.PatientID) {
		t.Errorf("patientID %q does not match %s", alice.PatientID, idPattern)
	}

	rec = do(e, http.MethodPost, "/api/hms/patients", `{"name":"Bob","admissionDate":"2024-02-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var bob patient.Patient
	json.Unmarshal(rec.Body.Bytes(), &bob)
	if bob.PatientID != "P1002" {
		t.Errorf("expected P1002, got %s", bob.PatientID)
	}
	if bob.DateOfBirth != nil {
		t.Errorf("expected null dateOfBirth, got %v", bob.DateOfBirth)
	}

	rec = do(e, http.MethodGet, "/api/hms/patients", "")
	var items []patient.Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(items))
	}
}

func TestServer_RegistrationScenario_Memory(t *testing.T) {
	registrationScenario(t, newTestServer(t, testConfig(config.DriverMemory)))
}

func TestServer_RegistrationScenario_SQLite(t *testing.T) {
	cfg := testConfig(config.DriverSQLite)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "hms.db")
	e := newTestServer(t, cfg)
	registrationScenario(t, e)

	rec := do(e, http.MethodGet, "/health/db", "")
	if rec.Code != http.StatusOK {
		t.Errorf("health/db: expected 200, got %d", rec.Code)
	}
}

func TestServer_Health(t *testing.T) {
	e := newTestServer(t, testConfig(config.DriverMemory))

	rec := do(e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "ok" || body["version"] != version {
		t.Errorf("unexpected health body: %v", body)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected X-Request-ID header")
	}

	if rec := do(e, http.MethodGet, "/health/db", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected no /health/db for memory store, got %d", rec.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	e := newTestServer(t, testConfig(config.DriverMemory))
	do(e, http.MethodPost, "/api/hms/patients", `{"name":"Alice"}`)

	rec := do(e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "hms_patients_registered_total 1") {
		t.Error("expected registration counter")
	}
	if !strings.Contains(body, `hms_http_requests_total{method="POST",route="/api/hms/patients",status="201"} 1`) {
		t.Errorf("expected request counter for POST, got:\n%s", body)
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	cfg := testConfig(config.DriverMemory)
	st, err := openStore(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	e := newServer(cfg, zerolog.Nop(), st, nil)

	if rec := do(e, http.MethodGet, "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without metrics, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/hms/patients", `{"name":"Alice"}`); rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestServer_BadJSON(t *testing.T) {
	e := newTestServer(t, testConfig(config.DriverMemory))

	rec := do(e, http.MethodPost, "/api/hms/patients", `{"name":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if _, ok := body["message"]; !ok {
		t.Errorf("expected message field in error body, got %s", rec.Body.String())
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	e := newTestServer(t, testConfig(config.DriverMemory))

	req := httptest.NewRequest(http.MethodOptions, "/api/hms/patients", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:8080")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "http://localhost:8080" {
		t.Errorf("expected allowed origin http://localhost:8080, got %q", got)
	}
}

func TestServer_BodyLimit(t *testing.T) {
	cfg := testConfig(config.DriverMemory)
	cfg.BodyLimit = "64"
	e := newTestServer(t, cfg)

	rec := do(e, http.MethodPost, "/api/hms/patients", `{"name":"`+strings.Repeat("a", 200)+`"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	if _, err := openStore(context.Background(), testConfig("cassandra"), zerolog.Nop()); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestNewLogger_Level(t *testing.T) {
	cfg := testConfig(config.DriverMemory)
	cfg.Env = "production"
	cfg.LogLevel = "warn"
	if got := newLogger(cfg).GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("expected warn level, got %v", got)
	}

	cfg.LogLevel = "nonsense"
	if got := newLogger(cfg).GetLevel(); got != zerolog.TraceLevel {
		t.Errorf("expected unfiltered logger for bad level, got %v", got)
	}
}

func TestMigrateCmd_RequiresPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cmd := migrateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"up"})

	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "STORE_DRIVER") {
		t.Errorf("expected STORE_DRIVER error, got %v", err)
	}
}

func TestMigrateCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range migrateCmd().Commands() {
		names[c.Name()] = true
		for _, flag := range []string{"schema", "dir"} {
			if c.Flags().Lookup(flag) == nil {
				t.Errorf("%s: missing --%s flag", c.Name(), flag)
			}
		}
	}
	for _, want := range []string{"up", "status"} {
		if !names[want] {
			t.Errorf("expected migrate %s subcommand", want)
		}
	}
	if serveCmd().Name() != "serve" {
		t.Error("expected serve command")
	}
}
