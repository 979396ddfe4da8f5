package tuya

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type staticEngines struct {
	started, total int
}

func (s staticEngines) EngineCounts() (int, int) {
	return s.started, s.total
}

func lastHealth(t *testing.T, mock *MockMQTTClient) HealthMessage {
	t.Helper()
	pubs := mock.PublishedOn("graylogic/health/tuya")
	if len(pubs) == 0 {
		t.Fatal("no health message published")
	}
	last := pubs[len(pubs)-1]
	if !last.Retained || last.QoS != 1 {
		t.Errorf("health publish qos=%d retained=%v, want 1/true", last.QoS, last.Retained)
	}
	var msg HealthMessage
	if err := json.Unmarshal(last.Payload, &msg); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	return msg
}

func TestHealthReporter_DetermineStatus(t *testing.T) {
	tests := []struct {
		name       string
		connected  bool
		engines    EngineCounter
		wantStatus HealthStatus
		wantReason string
	}{
		{"all started", true, staticEngines{2, 2}, HealthHealthy, ""},
		{"no engines reporter", true, nil, HealthHealthy, ""},
		{"mqtt down", false, staticEngines{2, 2}, HealthDegraded, "MQTT disconnected"},
		{"engine missing", true, staticEngines{1, 3}, HealthDegraded, "2 of 3 devices not synchronised"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockMQTTClient()
			mock.SetConnected(tt.connected)
			h := NewHealthReporter(HealthReporterConfig{Publisher: mock, Engines: tt.engines})

			status, reason := h.determineStatus()
			if status != tt.wantStatus || reason != tt.wantReason {
				t.Errorf("determineStatus() = %s %q, want %s %q", status, reason, tt.wantStatus, tt.wantReason)
			}
		})
	}
}

func TestHealthReporter_PublishNow(t *testing.T) {
	mock := NewMockMQTTClient()
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "tuya-01",
		Version:   "1.2.3",
		Publisher: mock,
		Engines:   staticEngines{1, 2},
	})

	if err := h.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}
	msg := lastHealth(t, mock)
	if msg.Bridge != "tuya" || msg.BridgeID != "tuya-01" || msg.Version != "1.2.3" {
		t.Errorf("health header = %+v", msg)
	}
	if msg.Status != HealthDegraded || msg.EnginesStarted != 1 || msg.DevicesManaged != 2 {
		t.Errorf("health body = %+v", msg)
	}
}

func TestHealthReporter_StartingAndStopping(t *testing.T) {
	mock := NewMockMQTTClient()
	h := NewHealthReporter(HealthReporterConfig{Publisher: mock})

	if err := h.PublishStarting(); err != nil {
		t.Fatal(err)
	}
	if msg := lastHealth(t, mock); msg.Status != HealthStarting || msg.Reason != "bridge starting" {
		t.Errorf("starting message = %+v", msg)
	}

	h.Start(context.Background())
	h.Stop()
	h.Stop()
	if msg := lastHealth(t, mock); msg.Status != HealthStopping {
		t.Errorf("final status = %s, want stopping", msg.Status)
	}
}

func TestHealthReporter_TickRunsHook(t *testing.T) {
	mock := NewMockMQTTClient()
	var mu sync.Mutex
	ticks := 0
	h := NewHealthReporter(HealthReporterConfig{
		Publisher: mock,
		Interval:  10 * time.Millisecond,
		OnTick: func(context.Context) {
			mu.Lock()
			ticks++
			mu.Unlock()
		},
	})

	h.Start(context.Background())
	waitFor(t, "health ticks", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ticks >= 2
	})
	h.Stop()

	if len(mock.PublishedOn("graylogic/health/tuya")) < 2 {
		t.Error("each tick should publish health")
	}
}

func TestHealthReporter_Defaults(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{})
	if h.interval != DefaultHealthInterval {
		t.Errorf("interval = %v, want %v", h.interval, DefaultHealthInterval)
	}
	if err := h.PublishNow(); err != nil {
		t.Errorf("PublishNow() without publisher error = %v, want nil", err)
	}
}
