package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airdemand/models"
)

func mockEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "API_KEY", "GEMINI_MODEL", "DASHBOARD_ADDRESS", "APP_ENV"} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")

	path := filepath.Join(t.TempDir(), "config.yml")
	content := "logging:\n  output: stderr\nmetrics:\n  prometheus: false\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestFetchJSON(t *testing.T) {
	cfg := mockEnv(t)
	out, err := run(t, "fetch", "jfk", "lax", "--format", "json", "--config", cfg)
	if err != nil {
		t.Fatalf("fetch returned error: %v", err)
	}

	var doc struct {
		RequestID string            `json:"request_id"`
		Query     models.Query      `json:"query"`
		Source    string            `json:"source"`
		Data      models.MarketData `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	if doc.Query != (models.Query{Origin: "JFK", Destination: "LAX"}) {
		t.Fatalf("unexpected query: %+v", doc.Query)
	}
	if doc.Source != "mock" || doc.RequestID == "" {
		t.Fatalf("unexpected envelope: source=%q request_id=%q", doc.Source, doc.RequestID)
	}
	if doc.Data.KPIs.TotalRoutes != len(doc.Data.Routes) {
		t.Fatalf("totalRoutes %d != %d routes", doc.Data.KPIs.TotalRoutes, len(doc.Data.Routes))
	}
}

func TestFetchCSVSorted(t *testing.T) {
	cfg := mockEnv(t)
	out, err := run(t, "fetch", "SFO", "ORD", "--format", "csv", "--sort", "demand", "--desc", "--config", cfg)
	if err != nil {
		t.Fatalf("fetch returned error: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	var counts []string
	for _, rec := range records[1:] {
		counts = append(counts, rec[3])
	}
	if strings.Join(counts, ",") != "120,95,88,80" {
		t.Fatalf("unexpected order: %v", counts)
	}
}

func TestFetchTable(t *testing.T) {
	cfg := mockEnv(t)
	out, err := run(t, "fetch", "JFK", "LAX", "--config", cfg)
	if err != nil {
		t.Fatalf("fetch returned error: %v", err)
	}
	for _, want := range []string{"JFK -> LAX", "Total Routes Tracked", "$385.00", "United"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestFetchRejectsBadInput(t *testing.T) {
	cfg := mockEnv(t)
	cases := [][]string{
		{"fetch", "JFK"},
		{"fetch", "JFK", "LAX", "--format", "xml", "--config", cfg},
		{"fetch", "JFK", "LAX", "--sort", "altitude", "--config", cfg},
		{"fetch", "JFK", "  ", "--config", cfg},
	}
	for _, args := range cases {
		if _, err := run(t, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestMissingExplicitConfigFails(t *testing.T) {
	mockEnv(t)
	if _, err := run(t, "fetch", "JFK", "LAX", "--config", filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
