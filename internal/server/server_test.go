package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ayusman/handcricket/internal/app"
	"github.com/ayusman/handcricket/internal/camera"
	"github.com/ayusman/handcricket/internal/gesture"
	"github.com/ayusman/handcricket/internal/match"
	"github.com/ayusman/handcricket/internal/metrics"
	"github.com/ayusman/handcricket/internal/opponent"
	"github.com/ayusman/handcricket/internal/store"
)

type stubSource struct {
	mu      sync.Mutex
	running bool
}

func (s *stubSource) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	return nil
}

func (s *stubSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *stubSource) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

type fixture struct {
	game  *app.App
	store *store.Store
	reg   *prometheus.Registry
	srv   *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	reg := prometheus.NewRegistry()
	g, err := app.New(app.Config{
		Engine: match.NewEngine(match.Config{
			Rand:  rand.New(rand.NewSource(1)),
			NewID: func() string { return "match-1" },
		}),
		Stabilizer: gesture.NewStabilizer(gesture.DefaultConfig()),
		Provider:   opponent.NewProvider(opponent.ProviderConfig{Heuristic: opponent.NewHeuristic(5)}),
		CameraFactory: func(camera.FrameHandler) (camera.Source, error) {
			return &stubSource{}, nil
		},
		Store:   s,
		Metrics: metrics.New(reg),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(g.Stop)

	return &fixture{
		game:  g,
		store: s,
		reg:   reg,
		srv:   New(Config{Game: g, Store: s, Gatherer: reg}),
	}
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})

	t.Run("reports game state", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		f.srv.ServeHTTP(rec, req)

		var response map[string]interface{}
		json.NewDecoder(rec.Body).Decode(&response)
		if response["phase"] != "toss" || response["camera"] != "stopped" {
			t.Errorf("health = %v", response)
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/nonexistent", "/api/match", "/api/history", "/metrics", "/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d without collaborators, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()
	testContent := "<html><body>Howzat</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	t.Run("serves index.html at root path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nonexistent.html", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t)
	f.game.Engine().StartInnings(true)
	f.game.Engine().ResolveBall(2, 2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"handcricket_balls_resolved_total 1", "handcricket_dismissals_total 1"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestServer_MatchWorkflow(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv)
	defer ts.Close()

	client := ts.Client()
	post := func(path, body string) *http.Response {
		t.Helper()
		resp, err := client.Post(ts.URL+path, "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("POST %s error = %v", path, err)
		}
		return resp
	}

	resp := post("/api/match/start", `{"userBattingFirst":false}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}

	// Bowl until the match ends; the opponent chases after our innings.
	for i := 0; i < 500 && f.game.Engine().State().Phase != match.PhaseGameOver; i++ {
		resp = post("/api/match/move", `{"move":1}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("move %d status = %d", i, resp.StatusCode)
		}
	}
	if f.game.Engine().State().Phase != match.PhaseGameOver {
		t.Fatal("match never finished")
	}

	resp, err := client.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatalf("GET /api/history error = %v", err)
	}
	var listed struct {
		Matches []struct {
			ID string `json:"id"`
		} `json:"matches"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()
	if len(listed.Matches) != 1 || listed.Matches[0].ID != "match-1" {
		t.Errorf("history = %+v, want the finished match", listed)
	}

	resp = post("/api/match/move", `{"move":1}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("move after game over status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestServer_Events(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	read := func() app.Event {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev app.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		return ev
	}

	if ev := read(); ev.Status == nil || ev.Status.Match.Phase != match.PhaseToss {
		t.Fatalf("first message = %+v, want a status snapshot", ev)
	}

	deadline := time.Now().Add(time.Second)
	for f.srv.Hub().Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	f.game.Engine().StartInnings(true)
	ev := read()
	if ev.Kind != app.KindMatch || ev.Match == nil || ev.Match.Type != match.EventInningsStart {
		t.Errorf("event = %+v, want innings start", ev)
	}
}
