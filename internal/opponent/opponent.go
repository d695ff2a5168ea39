// Package opponent supplies the computer's move for each ball.
//
// A Provider asks an optional Strategy (a remote service or a plugin) first and
// falls back to a seeded local Heuristic on any failure, so a move is always
// produced.
package opponent

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/handcricket/internal/logging"
	"github.com/ayusman/handcricket/internal/match"
)

// ErrRemoteStrategy wraps every strategy failure. It is always recovered locally.
var ErrRemoteStrategy = errors.New("remote strategy failed")

// Source names where a move came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourcePlugin   Source = "plugin"
	SourceFallback Source = "fallback"
)

// Context is everything a strategy may look at when choosing a move.
type Context struct {
	PlayerMove    match.Move   `json:"playerMove"`
	UserBatting   bool         `json:"userBatting"`
	BallsPlayed   int          `json:"ballsPlayed"`
	PlayerScore   int          `json:"playerScore"`
	AIScore       int          `json:"aiScore"`
	Innings       int          `json:"innings"`
	Target        int          `json:"target,omitempty"`
	PlayerMoves   []match.Move `json:"playerMoves"`
	OpponentMoves []match.Move `json:"opponentMoves"`
}

// ContextFrom builds the context for the ball the player has just moved on.
// The move histories cover completed balls only.
func ContextFrom(s match.State, playerMove match.Move) Context {
	return Context{
		PlayerMove:    playerMove,
		UserBatting:   s.UserBatting,
		BallsPlayed:   s.BallsPlayed,
		PlayerScore:   s.PlayerScore,
		AIScore:       s.AIScore,
		Innings:       s.Innings,
		Target:        s.Target,
		PlayerMoves:   s.PlayerMoves(),
		OpponentMoves: s.OpponentMoves(),
	}
}

// Strategy proposes a raw move. Values outside 1-6 are clamped by the Provider.
type Strategy interface {
	Source() Source
	Move(ctx context.Context, c Context) (float64, error)
}

// Clamp rounds v to the nearest integer and clips it into 1-6.
// It reports false for values that are not numbers at all.
func Clamp(v float64) (match.Move, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	r := math.Round(v)
	switch {
	case r < float64(match.MinMove):
		return match.MinMove, true
	case r > float64(match.MaxMove):
		return match.MaxMove, true
	}
	return match.Move(r), true
}

// ProviderConfig configures a Provider.
type ProviderConfig struct {
	// Strategy is tried first. Nil means the heuristic always plays.
	Strategy Strategy
	// Heuristic is required.
	Heuristic *Heuristic
	// FallbackDelay paces fallback moves so they do not arrive instantly.
	FallbackDelay time.Duration
	Logger        zerolog.Logger
}

// Provider chooses opponent moves.
type Provider struct {
	strategy  Strategy
	heuristic *Heuristic
	delay     time.Duration
	log       zerolog.Logger
}

// NewProvider creates a Provider.
func NewProvider(cfg ProviderConfig) *Provider {
	h := cfg.Heuristic
	if h == nil {
		h = NewHeuristic(time.Now().UnixNano())
	}
	return &Provider{
		strategy:  cfg.Strategy,
		heuristic: h,
		delay:     cfg.FallbackDelay,
		log:       cfg.Logger,
	}
}

// GetMove returns a move in 1-6 and where it came from. It never fails: strategy
// errors and cancellation fall through to the heuristic.
func (p *Provider) GetMove(ctx context.Context, c Context) (match.Move, Source) {
	if p.strategy != nil {
		m, err := p.fromStrategy(ctx, c)
		if err == nil {
			return m, p.strategy.Source()
		}
		p.log.Warn().Err(err).Str(logging.StrategyKey, string(p.strategy.Source())).Msg("strategy failed, using fallback")

		if p.delay > 0 {
			t := time.NewTimer(p.delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
			}
		}
	}
	return p.heuristic.Move(c), SourceFallback
}

func (p *Provider) fromStrategy(ctx context.Context, c Context) (match.Move, error) {
	v, err := p.strategy.Move(ctx, c)
	if err != nil {
		if errors.Is(err, ErrRemoteStrategy) {
			return 0, err
		}
		return 0, errors.Join(ErrRemoteStrategy, err)
	}
	m, ok := Clamp(v)
	if !ok {
		return 0, errors.Join(ErrRemoteStrategy, errors.New("move is not a number"))
	}
	return m, nil
}
