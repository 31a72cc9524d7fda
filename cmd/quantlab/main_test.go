package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

const chartBody = `{"chart":{"result":[{
  "timestamp":[1710163800,1710250200],
  "indicators":{"quote":[{
    "open":[172.94,173.15],"high":[174.38,174.03],"low":[172.05,171.01],
    "close":[172.75,173.23],"volume":[60139500,59825400]}]}}],"error":null}}`

// setupEnv points the CLI at a temp sqlite database and a fake chart API.
func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v8/finance/chart/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chartBody))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(dir, "quantlab.db"))
	t.Setenv("PROVIDER", "yahoo-chart")
	t.Setenv("PROVIDER_BASE_URL", srv.URL)
	t.Setenv("LOG_FILE", filepath.Join(dir, "quantlab.log"))
	t.Setenv("LOG_LEVEL", "prod")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateIngestStatus(t *testing.T) {
	setupEnv(t)

	if _, err := execute(t, "migrate"); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	out, err := execute(t, "ingest", "aapl", "--days", "30")
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if !strings.Contains(out, "AAPL: 2 rows (2 new, 0 existing") {
		t.Errorf("Unexpected ingest output %q", out)
	}

	out, err = execute(t, "ingest", "AAPL", "--days", "30")
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if !strings.Contains(out, "AAPL: 2 rows (0 new, 2 existing") {
		t.Errorf("Unexpected re-ingest output %q", out)
	}

	out, err = execute(t, "status", "--symbol", "AAPL")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "stock_prices has 2 records") || !strings.Contains(out, "AAPL: 2 records") {
		t.Errorf("Unexpected status output %q", out)
	}
}

func TestMigrateRejectsBadArgs(t *testing.T) {
	setupEnv(t)

	for _, args := range [][]string{
		{"migrate", "sideways"},
		{"migrate", "down", "zero"},
		{"migrate", "up", "2"},
	} {
		if _, err := execute(t, args...); err == nil {
			t.Errorf("Expected error for %v", args)
		}
	}
}

func TestIngestUnknownProviderIsFatal(t *testing.T) {
	setupEnv(t)
	t.Setenv("PROVIDER", "bloomberg")

	if _, err := execute(t, "ingest", "AAPL", "--migrate"); err == nil {
		t.Fatal("Expected unknown provider to fail")
	}
}

func TestMissingDatabaseURL(t *testing.T) {
	setupEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := execute(t, "status"); err == nil {
		t.Fatal("Expected missing DATABASE_URL to fail")
	}
}
