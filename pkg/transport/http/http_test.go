package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Ruscigno/QuantLab/pkg/database/dbtest"
	"github.com/Ruscigno/QuantLab/pkg/endpoint"
	apperrors "github.com/Ruscigno/QuantLab/pkg/errors"
	"github.com/Ruscigno/QuantLab/pkg/ingest"
	"github.com/Ruscigno/QuantLab/pkg/market"
	"github.com/Ruscigno/QuantLab/pkg/metrics"
	"github.com/Ruscigno/QuantLab/pkg/repository"
	"github.com/Ruscigno/QuantLab/pkg/service"
)

const testAPIKey = "test-api-key-12345"

// stubProvider serves the same bars for every symbol.
type stubProvider struct {
	quotes []market.RawQuote
}

func (p stubProvider) Name() string { return "stub" }

func (p stubProvider) History(ctx context.Context, symbol string, start, end time.Time) ([]market.RawQuote, error) {
	return p.quotes, nil
}

type testServer struct {
	server    *httptest.Server
	collector *metrics.SimpleMetricsCollector
}

func setupTestServer(t *testing.T, cfg HTTPConfig) *testServer {
	t.Helper()

	logger := zap.NewNop()
	db := dbtest.NewSQLite(t)
	prices := repository.NewPriceRepository(db.DB, logger)

	provider := stubProvider{quotes: []market.RawQuote{
		{Timestamp: 1710161400, Open: 172.94, High: 174.38, Low: 172.05, Close: 172.75, Volume: 60139500},
		{Timestamp: 1710247800, Open: 173.15, High: 174.03, Low: 171.01, Close: 173.23, Volume: 59825400},
	}}
	ingester := ingest.NewIngester(provider, prices, ingest.WithLogger(logger))
	health := service.NewHealthService(db, provider.Name(), logger, "test")
	svc := service.NewService(ingester, prices, health, 30, logger)

	collector := metrics.NewSimpleMetricsCollector(logger)
	cfg.Logger = logger
	cfg.Metrics = metrics.NewApplicationMetrics(collector)

	server := httptest.NewServer(NewHTTPHandler(endpoint.MakeEndpoints(svc), cfg))
	t.Cleanup(server.Close)
	return &testServer{server: server, collector: collector}
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := ts.server.Client().Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t, HTTPConfig{APIKey: testAPIKey})

	resp := ts.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}

	var health service.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if health.Status != service.HealthStatusHealthy {
		t.Errorf("Expected healthy, got %s", health.Status)
	}
}

func TestIngestEndpoint(t *testing.T) {
	ts := setupTestServer(t, HTTPConfig{APIKey: testAPIKey})
	auth := map[string]string{"X-API-Key": testAPIKey}

	resp := ts.do(t, http.MethodPost, "/ingest", `{"symbol":"AAPL","days":30}`, auth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var first service.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&first); err != nil {
		t.Fatalf("Failed to decode ingest response: %v", err)
	}
	if first.Count != 2 || first.Inserted != 2 {
		t.Errorf("Expected 2 inserted rows, got %+v", first)
	}

	resp = ts.do(t, http.MethodPost, "/ingest", `{"symbol":"AAPL"}`, auth)
	var second service.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&second); err != nil {
		t.Fatalf("Failed to decode ingest response: %v", err)
	}
	if second.Count != 2 || second.Duplicates != 2 || second.Inserted != 0 {
		t.Errorf("Expected 2 duplicates on re-run, got %+v", second)
	}

	resp = ts.do(t, http.MethodGet, "/status?symbol=AAPL", "", auth)
	var status service.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status response: %v", err)
	}
	if status.TotalRows != 2 || status.SymbolRows == nil || *status.SymbolRows != 2 {
		t.Errorf("Expected 2 stored rows, got %+v", status)
	}

	requests := ts.collector.Counter("http_requests_total", map[string]string{
		"method": http.MethodPost,
		"path":   "/ingest",
		"status": "200",
	})
	if requests != 2 {
		t.Errorf("Expected 2 recorded ingest requests, got %v", requests)
	}
}

func TestIngestValidationError(t *testing.T) {
	ts := setupTestServer(t, HTTPConfig{})

	tests := []struct {
		name string
		body string
		code apperrors.ErrorCode
	}{
		{"blank symbol", `{"symbol":""}`, apperrors.ErrCodeValidation},
		{"malformed json", `{"symbol":`, apperrors.ErrCodeBadRequest},
		{"unknown field", `{"ticker":"AAPL"}`, apperrors.ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/ingest", tt.body, map[string]string{"X-Request-ID": "req-1"})
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", resp.StatusCode)
			}

			var errResp apperrors.ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if errResp.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, errResp.Code)
			}
			if errResp.RequestID != "req-1" {
				t.Errorf("Expected request id req-1, got %q", errResp.RequestID)
			}
		})
	}
}

func TestAuthenticationRequired(t *testing.T) {
	ts := setupTestServer(t, HTTPConfig{APIKey: testAPIKey})

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"bearer token", map[string]string{"Authorization": "Bearer " + testAPIKey}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodGet, "/status", "", tt.headers)
			if resp.StatusCode != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := setupTestServer(t, HTTPConfig{})

	resp := ts.do(t, http.MethodGet, "/ingest", "", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", resp.StatusCode)
	}
}

func TestIngestRateLimited(t *testing.T) {
	ts := setupTestServer(t, HTTPConfig{RequestsPerSecond: 0.001, BurstSize: 1})

	resp := ts.do(t, http.MethodPost, "/ingest", `{"symbol":"AAPL"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected first request to pass, got %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodPost, "/ingest", `{"symbol":"AAPL"}`, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, "/status", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status to be unlimited, got %d", resp.StatusCode)
	}
}
