package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"constkit/internal/platform/testkit"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveRequest("/v1/values", "GET", 200, 3*time.Millisecond)
	m.ObserveRequest("", "GET", 404, time.Millisecond)
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("/v1/values", "GET", "200")); got != 1 {
		t.Fatalf("requests = %v", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("unmatched", "GET", "404")); got != 1 {
		t.Fatalf("unmatched requests = %v", got)
	}

	built := time.Unix(1700000000, 0)
	m.ObserveReload(nil, built)
	m.ObserveReload(errors.New("bad catalog"), time.Time{})
	if got := testutil.ToFloat64(m.GenerationBuilt); got != 1700000000 {
		t.Fatalf("generation built = %v", got)
	}
	if got := testutil.ToFloat64(m.Reloads.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed reloads = %v", got)
	}

	m.ObserveValidation(0)
	m.ObserveValidation(2)
	if got := testutil.ToFloat64(m.Validations.WithLabelValues("violations")); got != 1 {
		t.Fatalf("violations = %v", got)
	}

	m.ObserveScanFile([]string{"time_ms", "time_ms", "quantity"}, false)
	m.ObserveScanFile(nil, true)
	if got := testutil.ToFloat64(m.FilesScanned); got != 2 {
		t.Fatalf("files = %v", got)
	}
	if got := testutil.ToFloat64(m.Occurrences.WithLabelValues("time_ms")); got != 2 {
		t.Fatalf("time_ms occurrences = %v", got)
	}
	if got := testutil.ToFloat64(m.ScanWarnings); got != 1 {
		t.Fatalf("warnings = %v", got)
	}
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("/", "GET", 200, 0)
	m.ObserveReload(nil, time.Now())
	m.ObserveValidation(1)
	m.ObserveScanFile([]string{"string"}, true)
	m.ObserveReview("APPLIED")
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveReview("APPLIED")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	testkit.MustContain(t, rec.Body.String(), `constkit_review_transitions_total{state="APPLIED"} 1`)
	testkit.MustContain(t, rec.Body.String(), "go_goroutines")
}
