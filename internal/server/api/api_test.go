package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ayusman/handcricket/internal/app"
	"github.com/ayusman/handcricket/internal/camera"
	"github.com/ayusman/handcricket/internal/gesture"
	"github.com/ayusman/handcricket/internal/match"
	"github.com/ayusman/handcricket/internal/opponent"
	"github.com/ayusman/handcricket/internal/store"
)

// newTestStore creates a Store backed by a temporary database.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

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

// newTestGame creates a game with a stub camera and a seeded opponent.
func newTestGame(t *testing.T, s *store.Store) *app.App {
	t.Helper()

	g, err := app.New(app.Config{
		Engine: match.NewEngine(match.Config{
			Rand:  rand.New(rand.NewSource(1)),
			NewID: func() string { return "match-1" },
		}),
		Stabilizer: gesture.NewStabilizer(gesture.DefaultConfig()),
		Provider:   opponent.NewProvider(opponent.ProviderConfig{Heuristic: opponent.NewHeuristic(3)}),
		CameraFactory: func(camera.FrameHandler) (camera.Source, error) {
			return &stubSource{}, nil
		},
		Store: s,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(g.Stop)
	return g
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
