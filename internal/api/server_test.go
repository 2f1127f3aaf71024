package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"julia-sweep/internal/events"
	"julia-sweep/internal/store"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	s := NewServer("127.0.0.1:0")
	handler, err := s.Handler()
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return s, ts
}

func waitIdle(t *testing.T, s *Server) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for s.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("sweep did not finish in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStatus(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.Running {
		t.Error("expected idle server")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/status"},
		{http.MethodPost, "/api/frame"},
		{http.MethodGet, "/api/sweep/start"},
		{http.MethodGet, "/api/sweep/stop"},
		{http.MethodPost, "/api/presets"},
		{http.MethodPost, "/api/history"},
	}

	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, ts.URL+tt.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected 405, got %d", tt.method, tt.path, resp.StatusCode)
		}
	}
}

func TestFrame(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/frame?re=-0.8&im=0.156&width=80&height=60&palette=wheel")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %s", ct)
	}
	if resp.Header.Get("X-Julia-Points") == "0" {
		t.Error("expected escaped points")
	}

	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 80 || b.Dy() != 60 {
		t.Errorf("expected 80x60 image, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestFrameBadParams(t *testing.T) {
	_, ts := newTestServer(t)

	queries := []string{
		"",
		"re=x&im=0",
		"re=0&im=y",
		"re=0&im=0&width=-5",
		"re=0&im=0&width=99999",
		"re=0&im=0&height=abc",
		"re=0&im=0&palette=neon",
	}

	for _, q := range queries {
		resp, err := http.Get(ts.URL + "/api/frame?" + q)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("query %q: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestPresets(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/presets")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var presets []PresetInfo
	if err := json.NewDecoder(resp.Body).Decode(&presets); err != nil {
		t.Fatalf("failed to decode presets: %v", err)
	}

	if len(presets) != 5 {
		t.Errorf("expected 5 presets, got %d", len(presets))
	}
	found := false
	for _, p := range presets {
		if p.Name == "classic" {
			found = true
			if p.Constant != "0+0.4i" {
				t.Errorf("expected classic constant 0+0.4i, got %s", p.Constant)
			}
		}
	}
	if !found {
		t.Error("classic preset not listed")
	}
}

func TestSweepStartAndHistory(t *testing.T) {
	s, ts := newTestServer(t)

	db, err := store.NewSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()
	s.SetHistory(db)
	s.SetOutputDir(t.TempDir())

	body := bytes.NewBufferString(`{"preset":"quick","frames":2,"workers":2}`)
	resp, err := http.Post(ts.URL+"/api/sweep/start", "application/json", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	waitIdle(t, s)

	resp, err = http.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var runs []store.Run
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Name != "quick" || runs[0].Frames != 2 {
		t.Errorf("unexpected run %+v", runs[0])
	}
	if runs[0].Status != store.StatusCompleted {
		t.Errorf("expected completed run, got %s", runs[0].Status)
	}

	resp2, err := http.Get(ts.URL + "/api/history?run=" + runs[0].ID)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp2.Body.Close()

	var frames []store.Frame
	if err := json.NewDecoder(resp2.Body).Decode(&frames); err != nil {
		t.Fatalf("failed to decode frames: %v", err)
	}
	if len(frames) != 2 {
		t.Errorf("expected 2 frames, got %d", len(frames))
	}

	status := s.status()
	if status.LastRunID != runs[0].ID {
		t.Errorf("expected last run %s, got %s", runs[0].ID, status.LastRunID)
	}
}

func TestSweepStartConflictAndStop(t *testing.T) {
	s, ts := newTestServer(t)

	body := `{"preset":"quick","frames":1000,"interval":"20ms"}`
	resp, err := http.Post(ts.URL+"/api/sweep/start", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/sweep/start", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/sweep/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	waitIdle(t, s)

	resp, err = http.Post(ts.URL+"/api/sweep/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 when idle, got %d", resp.StatusCode)
	}
}

func TestSweepStartBadRequest(t *testing.T) {
	_, ts := newTestServer(t)

	bodies := []string{
		"not json",
		`{"preset":"quick","interval":"soon"}`,
		`{"preset":"quick","palette":"neon"}`,
		`{"preset":"quick","format":"gif"}`,
	}

	for _, b := range bodies {
		resp, err := http.Post(ts.URL+"/api/sweep/start", "application/json", strings.NewReader(b))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", b, resp.StatusCode)
		}
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var runs []store.Run
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected empty history, got %d", len(runs))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/frame?re=-0.8&im=0.156&width=40")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`julia_engine_frames_total{outcome="points"} 1`,
		"julia_pool_jobs_submitted_total",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestStaticIndex(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "julia-sweep") {
		t.Error("expected embedded viewer page")
	}
}

func TestWebSocketEvents(t *testing.T) {
	s, ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.broadcastLoop(ctx, s.EventBus().Subscribe())

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, err := websocket.Dial(wsURL, "", ts.URL)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer ws.Close()

	deadline := time.Now().Add(time.Second)
	for s.status().WSClients == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client was not registered")
		}
		time.Sleep(time.Millisecond)
	}

	s.EventBus().Publish(events.NewSweepStartedEvent("ws-test", 3))

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg string
	if err := websocket.Message.Receive(ws, &msg); err != nil {
		t.Fatalf("failed to receive message: %v", err)
	}

	var payload struct {
		Type  string       `json:"type"`
		Event events.Event `json:"event"`
	}
	if err := json.Unmarshal([]byte(msg), &payload); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	if payload.Type != "event" || payload.Event.Type != events.EventSweepStarted {
		t.Errorf("unexpected message %s", msg)
	}
	if payload.Event.Sweep != "ws-test" {
		t.Errorf("expected sweep 'ws-test', got '%s'", payload.Event.Sweep)
	}
}
