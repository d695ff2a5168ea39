package api

import (
	"net/http"
	"testing"

	"github.com/ayusman/handcricket/internal/app"
	"github.com/ayusman/handcricket/internal/match"
)

func TestMatchHandler_Get(t *testing.T) {
	h := NewMatchHandler(newTestGame(t, newTestStore(t)))

	rec := do(t, h, http.MethodGet, "/api/match", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var st app.Status
	decodeBody(t, rec, &st)
	if st.Match.Phase != match.PhaseToss || st.Match.Innings != 1 {
		t.Errorf("match = %+v, want a fresh toss", st.Match)
	}
	if !st.GesturesEnabled {
		t.Error("gestures should default to enabled")
	}
}

func TestMatchHandler_Toss(t *testing.T) {
	h := NewMatchHandler(newTestGame(t, newTestStore(t)))

	rec := do(t, h, http.MethodPost, "/api/match/toss", `{"call":"edge"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid call: expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/match/toss", `{"call":"heads"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	var resp tossResponse
	decodeBody(t, rec, &resp)
	if resp.Toss.Call != match.Heads {
		t.Errorf("call = %q, want heads", resp.Toss.Call)
	}
	if resp.Toss.Won == resp.Toss.Decided {
		t.Errorf("toss %+v: a loss must be decided and a win must not", resp.Toss)
	}
	if resp.Toss.Decided && !resp.State.InPlay() {
		t.Errorf("lost toss should start the innings, phase = %v", resp.State.Phase)
	}

	if resp.Toss.Decided {
		rec = do(t, h, http.MethodPost, "/api/match/toss", `{"call":"tails"}`)
		if rec.Code != http.StatusConflict {
			t.Errorf("toss after play began: expected status %d, got %d", http.StatusConflict, rec.Code)
		}
	}
}

func TestMatchHandler_StartAndMove(t *testing.T) {
	h := NewMatchHandler(newTestGame(t, newTestStore(t)))

	rec := do(t, h, http.MethodPost, "/api/match/move", `{"move":3}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("move during toss: expected status %d, got %d", http.StatusConflict, rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/match/start", `{"userBattingFirst":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var st match.State
	decodeBody(t, rec, &st)
	if st.Phase != match.PhaseBatting || !st.UserBatting {
		t.Errorf("state after start = %+v", st)
	}

	rec = do(t, h, http.MethodPost, "/api/match/move", `{"move":7}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("move 7: expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/match/move", `{"move":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("move: expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	var out match.Outcome
	decodeBody(t, rec, &out)
	if out.Ball.PlayerMove != 5 || len(out.State.History) != 1 {
		t.Errorf("outcome = %+v", out)
	}
}

func TestMatchHandler_DeclareAndReset(t *testing.T) {
	g := newTestGame(t, newTestStore(t))
	h := NewMatchHandler(g)

	rec := do(t, h, http.MethodPost, "/api/match/declare", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("declare during toss: expected status %d, got %d", http.StatusConflict, rec.Code)
	}

	g.Engine().StartInnings(true)
	g.Engine().ResolveBall(6, 1)

	rec = do(t, h, http.MethodPost, "/api/match/declare", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("declare: expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var st match.State
	decodeBody(t, rec, &st)
	if st.Innings != 2 || st.Target != 7 || st.UserBatting {
		t.Errorf("state after declare = %+v", st)
	}

	rec = do(t, h, http.MethodPost, "/api/match/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: expected status %d, got %d", http.StatusOK, rec.Code)
	}
	st = match.State{}
	decodeBody(t, rec, &st)
	if st.Phase != match.PhaseToss || st.PlayerScore != 0 || len(st.History) != 0 {
		t.Errorf("state after reset = %+v", st)
	}
}

func TestMatchHandler_Routing(t *testing.T) {
	h := NewMatchHandler(newTestGame(t, newTestStore(t)))

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "post to root", method: http.MethodPost, path: "/api/match", want: http.StatusMethodNotAllowed},
		{name: "get an action", method: http.MethodGet, path: "/api/match/toss", want: http.StatusMethodNotAllowed},
		{name: "unknown action", method: http.MethodPost, path: "/api/match/bowl", want: http.StatusNotFound},
		{name: "bad json", method: http.MethodPost, path: "/api/match/move", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := ""
			if tt.name == "bad json" {
				body = "{not json"
			}
			if rec := do(t, h, tt.method, tt.path, body); rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
