package dashboard

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"airdemand/config"
	"airdemand/internal/metrics"
	"airdemand/logger"
	"airdemand/models"
	"airdemand/provider"
)

type fakeSearcher struct {
	result  *provider.Result
	err     error
	queries []models.Query
	current *provider.Result
}

func (f *fakeSearcher) Search(ctx context.Context, q models.Query) (*provider.Result, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		f.current = nil
		return nil, f.err
	}
	f.current = f.result
	return f.result, nil
}

func (f *fakeSearcher) Current() *provider.Result {
	return f.current
}

func quietLogger() *logger.Log {
	log := logger.Logger()
	log.SetOutput(io.Discard)
	return log
}

func sampleResult() *provider.Result {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	data := provider.GenerateMock(now, rand.New(rand.NewSource(1)), false)
	return &provider.Result{
		RequestID:   "req-1",
		Query:       models.Query{Origin: "JFK", Destination: "LAX"},
		Source:      metrics.SourceMock,
		Data:        &data,
		CompletedAt: now,
	}
}

func newTestServer(t *testing.T, searcher Searcher) (*Server, http.Handler) {
	t.Helper()
	srv, err := NewServer(config.DashboardConfig{Enabled: true, History: 10}, Options{
		Session:   searcher,
		Collector: metrics.NewCollector(quietLogger()),
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.cleanup)

	router, err := srv.buildRouter()
	if err != nil {
		t.Fatalf("buildRouter error: %v", err)
	}
	return srv, router
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func TestNormalizeAddress(t *testing.T) {
	cases := map[string]string{
		"":                               "0.0.0.0:8080",
		"  :9090  ":                      "0.0.0.0:9090",
		"localhost":                      "localhost:8080",
		"0.0.0.0:80":                     "0.0.0.0:80",
		"[::1]:443":                      "[::1]:443",
		"::1":                            "[::1]:8080",
		"*:8080":                         "0.0.0.0:8080",
		"http://10.0.0.5:8080":           "10.0.0.5:8080",
		"https://10.0.0.5":               "10.0.0.5:8080",
		"http://:7070":                   "0.0.0.0:7070",
		"tcp://localhost:5050":           "localhost:5050",
		"https://dashboard.example.com/": "dashboard.example.com:8080",
	}

	for input, want := range cases {
		if got := normalizeAddress(input); got != want {
			t.Fatalf("normalizeAddress(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNewServerDisabledReturnsNil(t *testing.T) {
	srv, err := NewServer(config.DashboardConfig{Enabled: false}, Options{})
	if err != nil || srv != nil {
		t.Fatalf("expected nil server and nil error, got %v, %v", srv, err)
	}
}

func TestNewServerNormalizesConfiguredAddress(t *testing.T) {
	srv, err := NewServer(config.DashboardConfig{Enabled: true, Address: ":9000"}, Options{
		Session: &fakeSearcher{},
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	defer srv.cleanup()
	if got := srv.Address(); got != "0.0.0.0:9000" {
		t.Fatalf("server address = %q, want %q", got, "0.0.0.0:9000")
	}
}

func TestIndexServesDashboard(t *testing.T) {
	_, router := newTestServer(t, &fakeSearcher{})
	res := get(t, router, "/")
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, `value="JFK"`) || !strings.Contains(body, `value="LAX"`) {
		t.Fatalf("default query not rendered")
	}

	if res := get(t, router, "/assets/app.js"); res.Code != http.StatusOK {
		t.Fatalf("asset status = %d", res.Code)
	}
}

func TestMarketEndpointReturnsDataAndDerivedMetrics(t *testing.T) {
	searcher := &fakeSearcher{result: sampleResult()}
	_, router := newTestServer(t, searcher)

	res := get(t, router, "/api/market?origin=jfk&destination=%20lax")
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d body=%s", res.Code, res.Body.String())
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != (models.Query{Origin: "JFK", Destination: "LAX"}) {
		t.Fatalf("unexpected queries: %+v", searcher.queries)
	}

	var body struct {
		RequestID string                     `json:"request_id"`
		Source    string                     `json:"source"`
		Data      models.MarketData          `json:"data"`
		Derived   map[string]json.RawMessage `json:"derived"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RequestID != "req-1" || body.Source != metrics.SourceMock {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if body.Data.KPIs.TotalRoutes != 4 || len(body.Data.Routes) != 4 {
		t.Fatalf("unexpected data: %+v", body.Data.KPIs)
	}
	for _, key := range []string{"changes", "ranking", "series"} {
		if _, ok := body.Derived[key]; !ok {
			t.Fatalf("derived missing %q", key)
		}
	}
}

func TestMarketEndpointRejectsEmptyCodes(t *testing.T) {
	searcher := &fakeSearcher{result: sampleResult()}
	_, router := newTestServer(t, searcher)

	res := get(t, router, "/api/market?origin=JFK&destination=")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
	if len(searcher.queries) != 0 {
		t.Fatalf("empty query should not reach the provider")
	}
}

func TestMarketEndpointHidesGenerationFailureDetail(t *testing.T) {
	searcher := &fakeSearcher{err: &provider.GenerationError{
		Reason: provider.ReasonTransport,
		Err:    errors.New("upstream 503: secret detail"),
	}}
	_, router := newTestServer(t, searcher)

	res := get(t, router, "/api/market?origin=JFK&destination=LAX")
	if res.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", res.Code)
	}
	if strings.Contains(res.Body.String(), "secret") {
		t.Fatalf("response leaked failure detail: %s", res.Body.String())
	}
	if !strings.Contains(res.Body.String(), provider.FailureMessage) {
		t.Fatalf("response missing failure message: %s", res.Body.String())
	}
}

func TestMarketEndpointSupersededIsConflict(t *testing.T) {
	_, router := newTestServer(t, &fakeSearcher{err: provider.ErrSuperseded})
	if res := get(t, router, "/api/market?origin=JFK&destination=LAX"); res.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", res.Code)
	}
}

func TestMarketEndpointClientCancel(t *testing.T) {
	canceled := &provider.GenerationError{Reason: provider.ReasonCanceled, Err: context.Canceled}
	_, router := newTestServer(t, &fakeSearcher{err: canceled})
	if res := get(t, router, "/api/market?origin=JFK&destination=LAX"); res.Code != statusClientClosedRequest {
		t.Fatalf("status = %d, want %d", res.Code, statusClientClosedRequest)
	}
}

func TestCurrentEndpoint(t *testing.T) {
	searcher := &fakeSearcher{result: sampleResult()}
	_, router := newTestServer(t, searcher)

	if res := get(t, router, "/api/market/current"); res.Code != http.StatusNotFound {
		t.Fatalf("status before search = %d, want 404", res.Code)
	}
	get(t, router, "/api/market?origin=JFK&destination=LAX")
	if res := get(t, router, "/api/market/current"); res.Code != http.StatusOK {
		t.Fatalf("status after search = %d, want 200", res.Code)
	}
}

func TestExportCSVSortsRoutes(t *testing.T) {
	searcher := &fakeSearcher{result: sampleResult()}
	_, router := newTestServer(t, searcher)

	res := get(t, router, "/api/market/export.csv?origin=JFK&destination=LAX&sort=demand&desc=true")
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	records, err := csv.NewReader(res.Body).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected header and 4 rows, got %d", len(records))
	}
	var counts []string
	for _, rec := range records[1:] {
		counts = append(counts, rec[3])
	}
	if strings.Join(counts, ",") != "120,95,88,80" {
		t.Fatalf("rows not sorted by demand: %v", counts)
	}
}

func TestExportCSVWithoutResult(t *testing.T) {
	_, router := newTestServer(t, &fakeSearcher{})
	if res := get(t, router, "/api/market/export.csv"); res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Code)
	}
}

func TestMetricsAndActivityEndpoints(t *testing.T) {
	srv, router := newTestServer(t, &fakeSearcher{})
	srv.collector.ObserveGeneration(metrics.SourceMock, metrics.OutcomeSuccess, 20*time.Millisecond)

	res := get(t, router, "/metrics")
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "airdemand_generation_total") {
		t.Fatalf("metrics endpoint missing generation counter: %d", res.Code)
	}

	res = get(t, router, "/api/activity")
	if res.Code != http.StatusOK {
		t.Fatalf("activity status = %d", res.Code)
	}
	if len(srv.metricStore.snapshot()) == 0 {
		t.Fatalf("metric store did not receive the generation event")
	}
}

func TestMarketEndpointWithMockProvider(t *testing.T) {
	p, err := provider.New(context.Background(), provider.Config{}, provider.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("provider.New: %v", err)
	}
	_, router := newTestServer(t, provider.NewSession(p, quietLogger()))

	res := get(t, router, "/api/market?origin=SFO&destination=ORD")
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", res.Code)
	}
	var body struct {
		Data models.MarketData `json:"data"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n := len(body.Data.Routes); n < 2 || n > 4 {
		t.Fatalf("mock returned %d routes", n)
	}
	if len(body.Data.Routes[0].PriceTrend) != models.TrendDays {
		t.Fatalf("trend length = %d", len(body.Data.Routes[0].PriceTrend))
	}
}

type failingGenerator struct {
	err error
}

func (g failingGenerator) Generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	return "", g.err
}

func TestActivityOmitsFailureDetail(t *testing.T) {
	const secret = "googleapi: Error 403: API key AIza-secret invalid"
	log := quietLogger()

	p, err := provider.New(context.Background(), provider.Config{APIKey: "real", Timeout: time.Second},
		provider.WithGenerator(failingGenerator{err: errors.New(secret)}), provider.WithLogger(log))
	if err != nil {
		t.Fatalf("provider.New: %v", err)
	}
	srv, err := NewServer(config.DashboardConfig{Enabled: true, History: 20}, Options{
		Session: provider.NewSession(p, log),
		Logger:  log,
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.cleanup)
	router, err := srv.buildRouter()
	if err != nil {
		t.Fatalf("buildRouter error: %v", err)
	}

	if res := get(t, router, "/api/market?origin=JFK&destination=LAX"); res.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", res.Code)
	}

	res := get(t, router, "/api/activity")
	if res.Code != http.StatusOK {
		t.Fatalf("activity status = %d", res.Code)
	}
	body := res.Body.String()
	if strings.Contains(body, "AIza-secret") || strings.Contains(body, "googleapi") {
		t.Fatalf("activity exposed failure detail: %s", body)
	}
	if !strings.Contains(body, "market data generation failed") {
		t.Fatalf("activity missing failure entry: %s", body)
	}
}
