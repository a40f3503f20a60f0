package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry(t *testing.T) {
	reg, m := NewRegistry()
	if reg == nil || m == nil {
		t.Fatal("expected registry and metrics, got nil")
	}

	tests := []struct {
		name   string
		metric interface{}
	}{
		{"LLMCalls", m.LLMCalls},
		{"LLMLatency", m.LLMLatency},
		{"LLMErrors", m.LLMErrors},
		{"UpdatesCreated", m.UpdatesCreated},
		{"Verdicts", m.Verdicts},
		{"BusyRejections", m.BusyRejections},
		{"HTTPRequests", m.HTTPRequests},
		{"Errors", m.Errors},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s is nil", tt.name)
			}
		})
	}
}

func TestRecordLLMCall(t *testing.T) {
	_, m := NewRegistry()

	m.RecordLLMCall("plan", "mock", 10*time.Millisecond, "")
	m.RecordLLMCall("plan", "model", time.Second, "UPSTREAM_ERROR")

	if got := testutil.ToFloat64(m.LLMCalls.WithLabelValues("plan", "mock", "true")); got != 1 {
		t.Errorf("successful calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LLMCalls.WithLabelValues("plan", "model", "false")); got != 1 {
		t.Errorf("failed calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LLMErrors.WithLabelValues("plan", "UPSTREAM_ERROR")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestRecorders(t *testing.T) {
	_, m := NewRegistry()

	m.RecordVerdict("pass")
	m.RecordVerdict("pass")
	m.RecordUpdateCreated("normal")
	m.RecordBusy()
	m.RecordError("BUSY")
	m.RecordHTTP("POST /api/llm/plan", http.StatusOK)

	if got := testutil.ToFloat64(m.Verdicts.WithLabelValues("pass")); got != 2 {
		t.Errorf("pass verdicts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.UpdatesCreated.WithLabelValues("normal")); got != 1 {
		t.Errorf("updates created = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BusyRejections); got != 1 {
		t.Errorf("busy rejections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Errors.WithLabelValues("BUSY")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST /api/llm/plan", "OK")); got != 1 {
		t.Errorf("http requests = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordLLMCall("plan", "mock", 0, "")
	m.RecordVerdict("pass")
	m.RecordUpdateCreated("normal")
	m.RecordBusy()
	m.RecordError("X")
	m.RecordHTTP("/", 200)
}

func TestHandlerFor(t *testing.T) {
	reg, m := NewRegistry()
	m.RecordVerdict("fail")

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "notepad_step_verdicts_total") {
		t.Errorf("metrics output missing verdict counter:\n%s", body)
	}
}
