package opponent

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/handcricket/internal/match"
	"github.com/ayusman/handcricket/internal/plugin"
)

type stubStrategy struct {
	move  float64
	err   error
	calls int
}

func (s *stubStrategy) Source() Source { return SourceRemote }

func (s *stubStrategy) Move(context.Context, Context) (float64, error) {
	s.calls++
	return s.move, s.err
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in   float64
		want match.Move
		ok   bool
	}{
		{in: 3, want: 3, ok: true},
		{in: 4.4, want: 4, ok: true},
		{in: 4.5, want: 5, ok: true},
		{in: 0.2, want: 1, ok: true},
		{in: -8, want: 1, ok: true},
		{in: 6.4, want: 6, ok: true},
		{in: 42, want: 6, ok: true},
		{in: math.NaN(), ok: false},
		{in: math.Inf(1), ok: false},
	}

	for _, tt := range tests {
		got, ok := Clamp(tt.in)
		assert.Equal(t, tt.ok, ok, "Clamp(%v)", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "Clamp(%v)", tt.in)
		}
	}
}

func TestContextFrom(t *testing.T) {
	e := match.NewEngine(match.Config{})
	require.NoError(t, e.StartInnings(true))
	_, err := e.ResolveBall(2, 5)
	require.NoError(t, err)
	_, err = e.ResolveBall(4, 1)
	require.NoError(t, err)

	c := ContextFrom(e.State(), 3)
	assert.Equal(t, match.Move(3), c.PlayerMove)
	assert.True(t, c.UserBatting)
	assert.Equal(t, 2, c.BallsPlayed)
	assert.Equal(t, 6, c.PlayerScore)
	assert.Equal(t, 1, c.Innings)
	assert.Equal(t, []match.Move{2, 4}, c.PlayerMoves)
	assert.Equal(t, []match.Move{5, 1}, c.OpponentMoves)
}

func TestProvider_UsesStrategy(t *testing.T) {
	s := &stubStrategy{move: 9.7}
	p := NewProvider(ProviderConfig{Strategy: s, Heuristic: NewHeuristic(1), Logger: zerolog.Nop()})

	m, src := p.GetMove(context.Background(), Context{Innings: 1})
	assert.Equal(t, match.Move(6), m, "remote values are clamped")
	assert.Equal(t, SourceRemote, src)
	assert.Equal(t, 1, s.calls)
}

func TestProvider_FallsBack(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
	}{
		{name: "no strategy", strategy: nil},
		{name: "error", strategy: &stubStrategy{err: errors.New("connection refused")}},
		{name: "not a number", strategy: &stubStrategy{move: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(ProviderConfig{Strategy: tt.strategy, Heuristic: NewHeuristic(1)})
			m, src := p.GetMove(context.Background(), Context{Innings: 1})
			assert.True(t, m.Valid())
			assert.Equal(t, SourceFallback, src)
		})
	}
}

func TestProvider_FallbackMatchesHeuristic(t *testing.T) {
	c := Context{Innings: 1, UserBatting: true, PlayerMoves: []match.Move{1, 1, 1}}
	p := NewProvider(ProviderConfig{Strategy: &stubStrategy{err: errors.New("down")}, Heuristic: NewHeuristic(8)})
	ref := NewHeuristic(8)

	for i := 0; i < 20; i++ {
		m, _ := p.GetMove(context.Background(), c)
		require.Equal(t, ref.Move(c), m)
	}
}

func TestProvider_FallbackDelay(t *testing.T) {
	p := NewProvider(ProviderConfig{
		Strategy:      &stubStrategy{err: errors.New("down")},
		Heuristic:     NewHeuristic(1),
		FallbackDelay: 50 * time.Millisecond,
	})

	start := time.Now()
	p.GetMove(context.Background(), Context{})
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start = time.Now()
	m, src := p.GetMove(ctx, Context{})
	assert.Less(t, time.Since(start), 50*time.Millisecond, "cancellation skips the pacing delay")
	assert.True(t, m.Valid())
	assert.Equal(t, SourceFallback, src)
}

func TestRemoteStrategy(t *testing.T) {
	var got remoteRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"move": 4.6}`))
	}))
	defer srv.Close()

	r := NewRemoteStrategy(srv.URL, "secret", time.Second)
	v, err := r.Move(context.Background(), Context{
		PlayerMove:  2,
		UserBatting: true,
		BallsPlayed: 3,
		PlayerScore: 11,
		Innings:     1,
		PlayerMoves: []match.Move{5, 4, 2},
	})
	require.NoError(t, err)

	assert.Equal(t, 4.6, v)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, match.Move(2), got.PlayerMove)
	assert.Equal(t, 11, got.PlayerScore)
	assert.Equal(t, []match.Move{5, 4, 2}, got.MoveHistory.Player)
	assert.Equal(t, []match.Move{}, got.MoveHistory.Opponent)
}

func TestRemoteStrategy_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "server error", handler: func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{name: "unauthorized", handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}},
		{name: "malformed body", handler: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"move":`))
		}},
		{name: "missing move", handler: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choice": 3}`))
		}},
		{name: "move not a number", handler: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"move": "four"}`))
		}},
		{name: "timeout", handler: func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{"move": 3}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			r := NewRemoteStrategy(srv.URL, "", 50*time.Millisecond)
			_, err := r.Move(context.Background(), Context{})
			assert.ErrorIs(t, err, ErrRemoteStrategy)
		})
	}
}

func TestRemoteStrategy_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewProvider(ProviderConfig{
		Strategy:  NewRemoteStrategy(url, "", time.Second),
		Heuristic: NewHeuristic(2),
	})
	m, src := p.GetMove(context.Background(), Context{Innings: 1})
	assert.True(t, m.Valid())
	assert.Equal(t, SourceFallback, src)
}

func TestPluginStrategy(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins need a POSIX shell")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "lucky.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ncat >/dev/null\necho '{\"success\":true,\"move\":0}'\n"), 0755))
	p := &plugin.Plugin{
		Manifest:   plugin.Manifest{Name: "lucky", Executable: "lucky.sh"},
		Path:       dir,
		Executable: script,
	}

	s := NewPluginStrategy(plugin.NewExecutor(5*time.Second), p, "lucky")
	assert.Equal(t, SourcePlugin, s.Source())

	provider := NewProvider(ProviderConfig{Strategy: s, Heuristic: NewHeuristic(1)})
	m, src := provider.GetMove(context.Background(), Context{Innings: 1})
	assert.Equal(t, match.Move(1), m, "plugin moves are clamped too")
	assert.Equal(t, SourcePlugin, src)
}

func TestPluginStrategy_Failure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins need a POSIX shell")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "sulky.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho '{\"success\":false,\"error\":\"no\"}'\n"), 0755))
	p := &plugin.Plugin{Manifest: plugin.Manifest{Name: "sulky"}, Path: dir, Executable: script}

	_, err := NewPluginStrategy(plugin.NewExecutor(5*time.Second), p, "sulky").Move(context.Background(), Context{})
	assert.ErrorIs(t, err, ErrRemoteStrategy)
}
