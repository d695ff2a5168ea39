package opponent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ayusman/handcricket/internal/match"
)

// RemoteStrategy asks an HTTP service for the opponent's move.
type RemoteStrategy struct {
	url    string
	apiKey string
	client *http.Client
}

// NewRemoteStrategy creates a strategy posting to url. An empty apiKey sends no
// Authorization header.
func NewRemoteStrategy(url, apiKey string, timeout time.Duration) *RemoteStrategy {
	return &RemoteStrategy{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

// Source implements Strategy.
func (r *RemoteStrategy) Source() Source { return SourceRemote }

type moveHistory struct {
	Player   []match.Move `json:"player"`
	Opponent []match.Move `json:"opponent"`
}

type remoteRequest struct {
	PlayerMove  match.Move  `json:"playerMove"`
	UserBatting bool        `json:"userBatting"`
	BallsPlayed int         `json:"ballsPlayed"`
	PlayerScore int         `json:"playerScore"`
	AIScore     int         `json:"aiScore"`
	Innings     int         `json:"innings"`
	Target      int         `json:"target,omitempty"`
	MoveHistory moveHistory `json:"moveHistory"`
}

type remoteResponse struct {
	Move *float64 `json:"move"`
}

// Move implements Strategy. Any non-2xx status or body without a numeric move
// is an error.
func (r *RemoteStrategy) Move(ctx context.Context, c Context) (float64, error) {
	body, err := json.Marshal(remoteRequest{
		PlayerMove:  c.PlayerMove,
		UserBatting: c.UserBatting,
		BallsPlayed: c.BallsPlayed,
		PlayerScore: c.PlayerScore,
		AIScore:     c.AIScore,
		Innings:     c.Innings,
		Target:      c.Target,
		MoveHistory: moveHistory{
			Player:   nonNil(c.PlayerMoves),
			Opponent: nonNil(c.OpponentMoves),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: marshal: %v", ErrRemoteStrategy, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRemoteStrategy, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRemoteStrategy, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return 0, fmt.Errorf("%w: status %d", ErrRemoteStrategy, resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decode: %v", ErrRemoteStrategy, err)
	}
	if out.Move == nil {
		return 0, fmt.Errorf("%w: response has no move", ErrRemoteStrategy)
	}
	return *out.Move, nil
}

func nonNil(moves []match.Move) []match.Move {
	if moves == nil {
		return []match.Move{}
	}
	return moves
}
