package server

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"agent-fleettrack/internal/auth"
	"agent-fleettrack/internal/config"
	"agent-fleettrack/internal/location"
	"agent-fleettrack/internal/stream"
	"agent-fleettrack/internal/tokenstore"
	"agent-fleettrack/internal/track"
)

type stubTransport struct {
	sent int
}

func (s *stubTransport) Connect(_ context.Context, _ string, _ track.TransportEvents) error {
	return nil
}
func (s *stubTransport) Disconnect() {}
func (s *stubTransport) SendLocation(string, track.Sample) error {
	s.sent++
	return nil
}

func newTestServer(t *testing.T, withToken bool) *Server {
	t.Helper()
	cfg := config.Config{ServerPort: ":0", VehicleID: "veh-1", SampleInterval: 5}
	store := tokenstore.NewFileStore(filepath.Join(t.TempDir(), "token.bin"), "test-secret")
	if withToken {
		if err := store.Set(context.Background(), "abc123"); err != nil {
			t.Fatalf("seed token: %v", err)
		}
	}

	hub := stream.NewHub(nil, cfg.VehicleID)
	tracker := track.New(location.NewFixture(nil), &stubTransport{}, store, hub, cfg.VehicleID, cfg.SampleInterval)
	t.Cleanup(tracker.Close)

	return NewServer(cfg, tracker, auth.NewClient("http://localhost:0", store), hub)
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t, false)

	resp, err := s.App.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestConnectWithoutToken(t *testing.T) {
	s := newTestServer(t, false)

	resp, err := s.App.Test(httptest.NewRequest("POST", "/v1/session/connect", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409 for missing token, got %d", resp.StatusCode)
	}
}

func TestConnectAndSession(t *testing.T) {
	s := newTestServer(t, true)

	resp, err := s.App.Test(httptest.NewRequest("POST", "/v1/session/connect", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = s.App.Test(httptest.NewRequest("GET", "/v1/session", nil))
	if err != nil {
		t.Fatalf("session request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 snapshot, got %d", resp.StatusCode)
	}
}

func TestStartTrackingWithoutPermission(t *testing.T) {
	s := newTestServer(t, true)

	if resp, _ := s.App.Test(httptest.NewRequest("POST", "/v1/session/connect", nil)); resp.StatusCode != 200 {
		t.Fatalf("connect failed")
	}
	resp, err := s.App.Test(httptest.NewRequest("POST", "/v1/tracking/start", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409 without permission, got %d", resp.StatusCode)
	}
}

func TestTrackingLifecycle(t *testing.T) {
	s := newTestServer(t, true)

	for _, step := range []struct {
		method, path string
		want         int
	}{
		{"POST", "/v1/session/connect", 200},
		{"POST", "/v1/permission", 200},
		{"POST", "/v1/tracking/start", 200},
		{"POST", "/v1/tracking/stop", 200},
		{"POST", "/v1/session/disconnect", 200},
	} {
		resp, err := s.App.Test(httptest.NewRequest(step.method, step.path, nil))
		if err != nil {
			t.Fatalf("%s %s: %v", step.method, step.path, err)
		}
		if resp.StatusCode != step.want {
			t.Fatalf("%s %s: expected %d, got %d", step.method, step.path, step.want, resp.StatusCode)
		}
	}
}

func TestManualRequiresConnection(t *testing.T) {
	s := newTestServer(t, true)

	resp, err := s.App.Test(httptest.NewRequest("POST", "/v1/locations/manual", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestTestLocationAlwaysAvailable(t *testing.T) {
	s := newTestServer(t, false)

	resp, err := s.App.Test(httptest.NewRequest("POST", "/v1/locations/test", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
}

func TestClearHistoryNeedsConfirm(t *testing.T) {
	s := newTestServer(t, false)

	resp, err := s.App.Test(httptest.NewRequest("DELETE", "/v1/history", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 without confirm, got %d", resp.StatusCode)
	}

	resp, err = s.App.Test(httptest.NewRequest("DELETE", "/v1/history?confirm=true", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 with confirm, got %d", resp.StatusCode)
	}
}

func TestHistoryRoute(t *testing.T) {
	s := newTestServer(t, false)

	resp, err := s.App.Test(httptest.NewRequest("GET", "/v1/history", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
