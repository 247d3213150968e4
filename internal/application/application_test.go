package application

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/smartpack/internal/config"
	"github.com/eugenenazirov/smartpack/internal/packing"
)

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	cfg.Catalog = []packing.CatalogBox{
		{Name: "big", Dimensions: packing.Dimensions{Length: 60, Width: 40, Height: 40}},
		{Name: "small", Dimensions: packing.Dimensions{Length: 20, Width: 20, Height: 20}},
	}
	logger := zaptest.NewLogger(t)

	app, err := New(cfg, logger, WithVersion("1.2.3"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	catalog, err := app.storage.GetCatalog()
	if err != nil {
		t.Fatalf("GetCatalog returned error: %v", err)
	}
	boxes := catalog.Boxes()
	if len(boxes) != 2 || boxes[0].Name != "big" || boxes[1].Name != "small" {
		t.Fatalf("expected configured catalog in order, got %+v", boxes)
	}
	if app.server == nil || app.router == nil || app.handler == nil || app.planner == nil {
		t.Fatalf("expected server, router, planner, and handler to be initialized")
	}
	if app.metrics == nil {
		t.Fatalf("expected metrics to be enabled")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestNewReturnsErrorForInvalidCatalog(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Catalog = []packing.CatalogBox{{Name: "flat", Dimensions: packing.Dimensions{Length: 10, Width: 10}}}

	if _, err := New(cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for invalid catalog")
	}
}

func TestRootHandlerServesAPIAndMetrics(t *testing.T) {
	app, err := New(baseTestConfig(":0"), zaptest.NewLogger(t), WithVersion("1.2.3"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	root := app.Handler()

	rec := httptest.NewRecorder()
	root.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected health to return 200, got %d", rec.Code)
	}
	var health struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode health: %v", err)
	}
	if health.Version != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", health.Version)
	}

	body := `{"items":[{"length":10,"width":10,"height":10,"weight":1,"quantity":2}]}`
	rec = httptest.NewRecorder()
	root.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/predict-box", bytes.NewBufferString(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected prediction to succeed, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	root.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics to return 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `smartpack_pack_runs_total{operation="predict_box",outcome="success"} 1`) {
		t.Fatalf("expected pack run counter in metrics output")
	}

	rec = httptest.NewRecorder()
	root.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected redirect from root, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	root.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", rec.Code)
	}
}

func TestMetricsCanBeDisabled(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.EnableMetrics = false

	app, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if app.metrics != nil {
		t.Fatalf("expected metrics to be disabled")
	}

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected /metrics to be absent, got %d", rec.Code)
	}
}

func TestNewPlannerHonoursPackingConfig(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.EnvelopePolicy = packing.EnvelopeLargestItem

	items := []packing.Item{
		{Length: 30, Width: 5, Height: 5, Weight: 1, Quantity: 1, Fragility: 0.1, Rotatable: true},
		{Length: 5, Width: 30, Height: 5, Weight: 1, Quantity: 1, Fragility: 0.1, Rotatable: true},
	}
	rec, err := NewPlanner(cfg).PredictBox(t.Context(), items, packing.DefaultCatalog())
	if err != nil {
		t.Fatalf("PredictBox returned error: %v", err)
	}
	if got := rec.Estimate.Envelope; got != (packing.Dimensions{Length: 30, Width: 5, Height: 5}) {
		t.Fatalf("expected largest item envelope, got %+v", got)
	}
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Port:                 port,
		Catalog:              packing.DefaultCatalogBoxes(),
		EnvelopePolicy:       packing.EnvelopeMaxPerAxis,
		CustomMargin:         packing.DefaultCustomMargin,
		CostBaseRate:         packing.DefaultCostBaseRate,
		MaxAnchors:           packing.DefaultMaxAnchors,
		MaxInstances:         packing.DefaultMaxInstances,
		PackTimeout:          time.Second,
		ShutdownGracePeriod:  50 * time.Millisecond,
		ReadHeaderTimeout:    20 * time.Millisecond,
		WriteTimeout:         30 * time.Millisecond,
		IdleTimeout:          40 * time.Millisecond,
		EnableRequestLogging: false,
		EnableMetrics:        true,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
	}
}
