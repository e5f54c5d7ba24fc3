package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/homie-device/internal/device"
	"github.com/nerrad567/homie-device/internal/homie"
	"github.com/nerrad567/homie-device/internal/infrastructure/config"
	"github.com/nerrad567/homie-device/internal/infrastructure/logging"
)

// recordingTransport is a connected homie.Transport that keeps the last
// payload per topic.
type recordingTransport struct {
	mu   sync.Mutex
	last map[string]string
}

func (t *recordingTransport) Publish(topic, payload string, _ bool, _ byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		t.last = make(map[string]string)
	}
	t.last[topic] = payload
	return nil
}

func (t *recordingTransport) Subscribe(string, byte) error             { return nil }
func (t *recordingTransport) Unsubscribe(string) error                 { return nil }
func (t *recordingTransport) SetWill(string, string, bool, byte) error { return nil }
func (t *recordingTransport) NetworkIdentity() (string, string, error) { return "", "", nil }
func (t *recordingTransport) IsConnected() bool                        { return true }
func (t *recordingTransport) Shared() bool                             { return false }
func (t *recordingTransport) AddListener(homie.Listener)               {}

func (t *recordingTransport) payload(topic string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last[topic]
}

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// testServer builds a server with one started device, "kitchen", holding a
// light node with a settable boolean and a bounded integer property.
func testServer(t *testing.T, checks map[string]HealthChecker) (*Server, *recordingTransport) {
	t.Helper()

	rt := homie.NewRuntime()
	t.Cleanup(rt.Close)

	tr := &recordingTransport{}
	dev, err := device.Build(rt, tr, config.HomieConfig{}, config.DeviceConfig{
		ID:         "kitchen",
		Name:       "Kitchen",
		Extensions: []string{},
		Nodes: []config.NodeConfig{{
			ID:   "light",
			Name: "Light",
			Type: "dimmer",
			Properties: []config.PropertyConfig{
				{ID: "power", Name: "Power", Datatype: "boolean", Settable: true, Value: "false"},
				{ID: "level", Name: "Level", Datatype: "integer", Format: "0:100", Unit: "%", Value: "0"},
			},
		}},
	}, device.BuildOptions{})
	if err != nil {
		t.Fatalf("device.Build() error = %v", err)
	}
	if err := dev.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	registry := device.NewRegistry()
	if err := registry.Register(dev); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error"}, "test")
	srv, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:   log,
		Registry: registry,
		Checks:   checks,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, tr
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, rec.Body.String())
	}
}

// ============================================================================
// Construction
// ============================================================================

func TestNewRequiresDeps(t *testing.T) {
	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{}, "test")

	if _, err := New(Deps{Registry: device.NewRegistry()}); err == nil {
		t.Error("New() without logger succeeded")
	}
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without registry succeeded")
	}
}

// ============================================================================
// Health
// ============================================================================

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		srv, _ := testServer(t, map[string]HealthChecker{
			"mqtt": checkFunc(func(context.Context) error { return nil }),
		})

		rec := do(t, srv, http.MethodGet, "/api/v1/health", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var resp HealthResponse
		decode(t, rec, &resp)
		if resp.Status != "ok" || resp.Version != "test" || resp.Devices != 1 {
			t.Errorf("response = %+v", resp)
		}
		if resp.Components["mqtt"] != "ok" {
			t.Errorf("mqtt component = %q, want ok", resp.Components["mqtt"])
		}
	})

	t.Run("degraded", func(t *testing.T) {
		srv, _ := testServer(t, map[string]HealthChecker{
			"mqtt":     checkFunc(func(context.Context) error { return nil }),
			"database": checkFunc(func(context.Context) error { return errors.New("disk full") }),
		})

		rec := do(t, srv, http.MethodGet, "/api/v1/health", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}

		var resp HealthResponse
		decode(t, rec, &resp)
		if resp.Status != "degraded" || resp.Components["database"] != "disk full" {
			t.Errorf("response = %+v", resp)
		}
	})
}

// ============================================================================
// Devices
// ============================================================================

func TestListDevices(t *testing.T) {
	srv, _ := testServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/devices", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Devices []homie.Info `json:"devices"`
		Count   int          `json:"count"`
	}
	decode(t, rec, &resp)
	if resp.Count != 1 || len(resp.Devices) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	got := resp.Devices[0]
	if got.ID != "kitchen" || got.State != homie.StateReady || !got.Connected {
		t.Errorf("device = %+v", got)
	}
}

func TestGetDevice(t *testing.T) {
	srv, _ := testServer(t, nil)

	t.Run("found", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/v1/devices/kitchen", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var detail DeviceDetail
		decode(t, rec, &detail)
		if detail.Device.Topic != "homie/kitchen" {
			t.Errorf("topic = %q", detail.Device.Topic)
		}
		if len(detail.Nodes) != 1 || len(detail.Nodes[0].Properties) != 2 {
			t.Fatalf("nodes = %+v", detail.Nodes)
		}
		level := detail.Nodes[0].Properties[1]
		want := PropertyView{
			ID: "level", Name: "Level", Datatype: "integer", Format: "0:100",
			Unit: "%", Retained: true, Value: "0",
		}
		if level != want {
			t.Errorf("level = %+v, want %+v", level, want)
		}
	})

	t.Run("not found", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/v1/devices/garage", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		var e Error
		decode(t, rec, &e)
		if e.Code != ErrCodeNotFound {
			t.Errorf("code = %q, want %q", e.Code, ErrCodeNotFound)
		}
	})
}

func TestSetDeviceState(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantState  string
	}{
		{"sleeping", "/api/v1/devices/kitchen/state", `{"state":"sleeping"}`, http.StatusOK, "sleeping"},
		{"alert", "/api/v1/devices/kitchen/state", `{"state":"alert"}`, http.StatusOK, "alert"},
		{"invalid state", "/api/v1/devices/kitchen/state", `{"state":"napping"}`, http.StatusBadRequest, "ready"},
		{"malformed body", "/api/v1/devices/kitchen/state", `{"state":`, http.StatusBadRequest, "ready"},
		{"unknown device", "/api/v1/devices/garage/state", `{"state":"alert"}`, http.StatusNotFound, "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, tr := testServer(t, nil)

			rec := do(t, srv, http.MethodPut, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := tr.payload("homie/kitchen/$state"); got != tt.wantState {
				t.Errorf("$state = %q, want %q", got, tt.wantState)
			}
		})
	}
}

func TestSetPropertyValue(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantTopic  string
		wantValue  string
	}{
		{"boolean", "/api/v1/devices/kitchen/nodes/light/properties/power", `{"value":"true"}`, http.StatusOK, "homie/kitchen/light/power", "true"},
		{"in range", "/api/v1/devices/kitchen/nodes/light/properties/level", `{"value":"75"}`, http.StatusOK, "homie/kitchen/light/level", "75"},
		{"out of range", "/api/v1/devices/kitchen/nodes/light/properties/level", `{"value":"150"}`, http.StatusBadRequest, "homie/kitchen/light/level", "0"},
		{"missing value", "/api/v1/devices/kitchen/nodes/light/properties/level", `{}`, http.StatusBadRequest, "homie/kitchen/light/level", "0"},
		{"unknown node", "/api/v1/devices/kitchen/nodes/fan/properties/power", `{"value":"true"}`, http.StatusNotFound, "", ""},
		{"unknown property", "/api/v1/devices/kitchen/nodes/light/properties/colour", `{"value":"1"}`, http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, tr := testServer(t, nil)

			rec := do(t, srv, http.MethodPut, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantTopic == "" {
				return
			}
			if got := tr.payload(tt.wantTopic); got != tt.wantValue {
				t.Errorf("%s = %q, want %q", tt.wantTopic, got, tt.wantValue)
			}
		})
	}
}

// ============================================================================
// Middleware
// ============================================================================

func TestRequestID(t *testing.T) {
	srv, _ := testServer(t, nil)
	handler := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/health", "")
	if got := rec.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("generated X-Request-ID = %q, want a UUID", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv, _ := testServer(t, nil)
	handler := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestBodySizeLimit(t *testing.T) {
	srv, _ := testServer(t, nil)

	big := `{"value":"` + strings.Repeat("x", maxRequestBodySize) + `"}`
	req := httptest.NewRequest(http.MethodPut,
		"/api/v1/devices/kitchen/nodes/light/properties/power", bytes.NewBufferString(big))
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestStartAndClose(t *testing.T) {
	srv, _ := testServer(t, nil)

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	resp.Body.Close() //nolint:errcheck // test
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestCloseBeforeStart(t *testing.T) {
	srv, _ := testServer(t, nil)
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
