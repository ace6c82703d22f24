package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Post("/contracts/{symbol}/quote", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := HTTPRequestsTotal.WithLabelValues("POST", "/contracts/{symbol}/quote", "418")
	before := testutil.ToFloat64(counter)
	for _, sym := range []string{"AAPL250815C00100000", "SPY251219P00450000"} {
		req := httptest.NewRequest("POST", "/contracts/"+sym+"/quote", nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("pattern series grew by %v, want 2", got)
	}
}

func TestMiddleware_DefaultStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}))
	counter := HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")
	before := testutil.ToFloat64(counter)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("counter grew by %v, want 1", got)
	}
}

func TestStatusWriter_HijackUnsupported(t *testing.T) {
	w := &statusWriter{ResponseWriter: httptest.NewRecorder(), status: 200}
	if _, _, err := w.Hijack(); err == nil {
		t.Error("expected error from a writer that cannot hijack")
	}
}

func TestObserveCalculation(t *testing.T) {
	before := testutil.ToFloat64(CalculationsTotal.WithLabelValues("price"))
	ObserveCalculation("price", time.Now())
	if got := testutil.ToFloat64(CalculationsTotal.WithLabelValues("price")) - before; got != 1 {
		t.Errorf("calculations grew by %v, want 1", got)
	}
}
