package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/handcricket/internal/match"
)

// MatchHandler serves /api/match and its actions.
type MatchHandler struct {
	game Game
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(g Game) *MatchHandler {
	return &MatchHandler{game: g}
}

type tossRequest struct {
	Call match.Side `json:"call"`
}

type tossResponse struct {
	Toss  match.TossResult `json:"toss"`
	State match.State      `json:"state"`
}

type startRequest struct {
	UserBattingFirst bool `json:"userBattingFirst"`
}

type moveRequest struct {
	Move int `json:"move"`
}

// ServeHTTP routes GET /api/match and POST /api/match/{action}.
func (h *MatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/match"), "/")

	if action == "" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, h.game.Status())
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	switch action {
	case "toss":
		h.toss(w, r)
	case "start":
		h.start(w, r)
	case "move":
		h.move(w, r)
	case "declare":
		h.result(w, h.game.Engine().DeclareInnings())
	case "reset":
		h.game.Engine().Reset()
		h.result(w, nil)
	default:
		writeError(w, http.StatusNotFound, "Unknown match action")
	}
}

func (h *MatchHandler) toss(w http.ResponseWriter, r *http.Request) {
	var req tossRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !req.Call.Valid() {
		writeError(w, http.StatusBadRequest, "call must be heads or tails")
		return
	}

	res, err := h.game.Engine().ChooseToss(req.Call)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tossResponse{Toss: res, State: h.game.Engine().State()})
}

func (h *MatchHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	h.result(w, h.game.Engine().StartInnings(req.UserBattingFirst))
}

func (h *MatchHandler) move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	out, err := h.game.PlayBall(r.Context(), match.Move(req.Move))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// result answers with the current match state, or the error.
func (h *MatchHandler) result(w http.ResponseWriter, err error) {
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.game.Engine().State())
}
