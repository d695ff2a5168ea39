// Package api provides the HTTP handlers of the hand cricket service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/handcricket/internal/app"
	"github.com/ayusman/handcricket/internal/match"
	"github.com/ayusman/handcricket/internal/store"
)

// Game is the part of the running game the handlers drive.
type Game interface {
	Engine() *match.Engine
	Status() app.Status
	PlayBall(ctx context.Context, move match.Move) (match.Outcome, error)
	RestartCamera(ctx context.Context) error
	SetGesturesEnabled(ctx context.Context, enabled bool) error
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeErr maps a domain error to its status code.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, match.ErrInvalidMove):
		return http.StatusBadRequest
	case errors.Is(err, match.ErrRejected), errors.Is(err, match.ErrBallPending):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}
