package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/syncengine"
)

var _ syncengine.Metrics = (*Collector)(nil)

// sample returns the value of the series with the given labels, or -1.
func sample(t *testing.T, c *Collector, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			matched := 0
			for _, pair := range m.GetLabel() {
				if labels[pair.GetName()] == pair.GetValue() {
					matched++
				}
			}
			if matched != len(labels) {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return -1
}

func TestCollector_Counters(t *testing.T) {
	c := New("test")

	c.DeltaApplied("ac-1", 2, 1)
	c.DeltaApplied("ac-1", 0, 3)
	c.DeltaApplied("ac-2", 1, 0)
	c.WriteFinished("ac-1", "ok")
	c.WriteFinished("ac-1", "ok")
	c.WriteFinished("ac-1", "error")

	tests := []struct {
		name   string
		metric string
		labels map[string]string
		want   float64
	}{
		{"deltas ac-1", "tuyabridge_deltas_total", map[string]string{"device_id": "ac-1"}, 2},
		{"deltas ac-2", "tuyabridge_deltas_total", map[string]string{"device_id": "ac-2"}, 1},
		{"updates", "tuyabridge_property_updates_total", map[string]string{"device_id": "ac-1"}, 2},
		{"suppressed", "tuyabridge_suppressed_updates_total", map[string]string{"device_id": "ac-1"}, 4},
		{"writes ok", "tuyabridge_writes_total", map[string]string{"device_id": "ac-1", "result": "ok"}, 2},
		{"writes error", "tuyabridge_writes_total", map[string]string{"device_id": "ac-1", "result": "error"}, 1},
		{"no suppressed for ac-2", "tuyabridge_suppressed_updates_total", map[string]string{"device_id": "ac-2"}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sample(t, c, tt.metric, tt.labels); got != tt.want {
				t.Errorf("%s%v = %v, want %v", tt.metric, tt.labels, got, tt.want)
			}
		})
	}
}

func TestCollector_EngineGauge(t *testing.T) {
	c := New("test")

	c.EngineStarted("ac-1")
	c.EngineStarted("ac-2")
	c.EngineStopped("ac-1")

	if got := sample(t, c, "tuyabridge_engines_started", nil); got != 1 {
		t.Errorf("engines_started = %v, want 1", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := New("1.2.3")
	c.WriteFinished("ac-1", "noop")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`tuyabridge_build_info{version="1.2.3"} 1`,
		`tuyabridge_writes_total{device_id="ac-1",result="noop"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("body missing %q", want)
		}
	}
}
