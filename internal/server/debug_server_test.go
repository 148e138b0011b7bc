package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/game"
	"github.com/gonewx/rallyx/pkg/metrics"
	"github.com/gonewx/rallyx/pkg/systems"
)

func newTestSession(t *testing.T) *game.Session {
	t.Helper()
	s := game.NewSession(
		systems.NewComboSystem(nil),
		systems.NewGameModeManager(nil, nil, systems.NewRandomSource(1)),
		systems.NewAIManager(nil, nil),
		3,
	)
	if _, err := s.Start(components.ModeClassic, 1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return s
}

func TestDebugServerStatus(t *testing.T) {
	session := newTestSession(t)
	session.RegisterAction(components.ActionFlagCollected)

	srv := NewDebugServer("127.0.0.1:0", session, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var snap game.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if snap.ID != session.ID() || snap.Mode != components.ModeClassic {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if snap.Score != 110 {
		t.Errorf("Expected score 110, got %d", snap.Score)
	}
}

func TestDebugServerRecommendations(t *testing.T) {
	srv := NewDebugServer("127.0.0.1:0", newTestSession(t), nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recommendations", nil))

	var body map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if n := len(body["recommendations"]); n == 0 || n > 3 {
		t.Errorf("Expected 1-3 recommendations, got %d", n)
	}
}

func TestDebugServerModes(t *testing.T) {
	srv := NewDebugServer("127.0.0.1:0", newTestSession(t), nil)

	tests := []struct {
		name     string
		query    string
		status   int
		unlocked int
	}{
		{"默认等级", "/modes", http.StatusOK, 1},
		{"等级 15", "/modes?level=15", http.StatusOK, 3},
		{"等级 30", "/modes?level=30", http.StatusOK, 4},
		{"非法等级", "/modes?level=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.query, nil))
			if rec.Code != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, rec.Code)
			}
			if tt.status != http.StatusOK {
				return
			}
			var modes []modeEntry
			if err := json.NewDecoder(rec.Body).Decode(&modes); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			unlocked := 0
			for _, m := range modes {
				if m.Unlocked {
					unlocked++
				}
			}
			if unlocked != tt.unlocked {
				t.Errorf("Expected %d unlocked modes, got %d", tt.unlocked, unlocked)
			}
		})
	}
}

func TestDebugServerMetricsAndMethods(t *testing.T) {
	recorder := metrics.NewRecorder(false)
	session := newTestSession(t)
	session.AddObserver(recorder)
	session.Tick(16, components.GameStats{Health: 100})

	srv := NewDebugServer("127.0.0.1:0", session, recorder.Handler())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for /metrics, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST /status, got %d", rec.Code)
	}
}

func TestDebugServerStartShutdown(t *testing.T) {
	srv := NewDebugServer("127.0.0.1:0", newTestSession(t), nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/status")
	if err != nil {
		t.Fatalf("GET /status failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
