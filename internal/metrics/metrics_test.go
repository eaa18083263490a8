package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"airdemand/logger"
)

func TestCollectorCountsGenerations(t *testing.T) {
	c := NewCollector(logger.Logger())
	c.ObserveGeneration(SourceMock, OutcomeSuccess, 2*time.Millisecond)
	c.ObserveGeneration(SourceModel, OutcomeError, time.Second)
	c.ObserveGeneration(SourceModel, OutcomeError, time.Second)

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}

	var total float64
	found := false
	for _, fam := range families {
		if fam.GetName() != "airdemand_generation_total" {
			continue
		}
		found = true
		for _, m := range fam.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	if !found {
		t.Fatalf("generation counter not registered")
	}
	if total != 3 {
		t.Fatalf("expected 3 observations, got %v", total)
	}
}

func TestCollectorHandlerServesText(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveGeneration(SourceMock, OutcomeSuccess, time.Millisecond)

	res := httptest.NewRecorder()
	c.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `airdemand_generation_total{outcome="success",source="mock"} 1`) {
		t.Fatalf("counter missing from exposition:\n%s", res.Body.String())
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveGeneration(SourceMock, OutcomeSuccess, time.Millisecond)
}
