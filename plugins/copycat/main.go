// Package main is an opponent strategy plugin that copies the player.
// Bowling, it plays the player's previous move hoping for a repeat; batting, it
// steers one run away from it.
package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// Request is the input from the plugin executor.
type Request struct {
	Strategy string          `json:"strategy"`
	Context  json.RawMessage `json:"context"`
	Config   json.RawMessage `json:"config"`
}

// Response is written back to the executor.
type Response struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Move    *float64 `json:"move,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// matchContext holds the fields of the match context this plugin reads.
type matchContext struct {
	UserBatting bool  `json:"userBatting"`
	PlayerMoves []int `json:"playerMoves"`
}

type config struct {
	// Opening is played before the player has moved at all.
	Opening int `json:"opening"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeError(fmt.Sprintf("failed to decode request: %v", err))
		return
	}
	if req.Strategy != "copycat" {
		writeError(fmt.Sprintf("unknown strategy: %s", req.Strategy))
		return
	}

	var mc matchContext
	if err := json.Unmarshal(req.Context, &mc); err != nil {
		writeError(fmt.Sprintf("failed to parse context: %v", err))
		return
	}

	cfg := config{Opening: 3}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeError(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	move, reason := choose(mc, cfg)
	write(Response{Success: true, Move: &move, Reason: reason})
}

func choose(mc matchContext, cfg config) (float64, string) {
	if len(mc.PlayerMoves) == 0 {
		return float64(cfg.Opening), "opening"
	}
	last := mc.PlayerMoves[len(mc.PlayerMoves)-1]
	if mc.UserBatting {
		return float64(last), "copy last move"
	}
	return float64(last%6 + 1), "dodge last move"
}

func writeError(msg string) {
	write(Response{Success: false, Error: msg})
}

func write(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
