package match

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names a match event.
type EventType string

const (
	EventToss          EventType = "toss"
	EventInningsStart  EventType = "inningsStart"
	EventMoveRecorded  EventType = "moveRecorded"
	EventBall          EventType = "ball"
	EventInningsChange EventType = "inningsChange"
	EventGameOver      EventType = "gameOver"
	EventSettled       EventType = "settled"
	EventReset         EventType = "reset"
)

// Event is delivered to observers after every state transition.
type Event struct {
	Type    EventType   `json:"type"`
	State   State       `json:"state"`
	Toss    *TossResult `json:"toss,omitempty"`
	Ball    *Ball       `json:"ball,omitempty"`
	Summary *Summary    `json:"summary,omitempty"`
}

// Observer receives match events. It must not block.
type Observer func(Event)

// DefaultDisplayHold is how long a resolved ball stays on display.
const DefaultDisplayHold = 1500 * time.Millisecond

// Config tunes an Engine.
type Config struct {
	// DisplayHold delays clearing the last ball's moves. Zero clears immediately.
	DisplayHold time.Duration
	// Rand drives the toss. Nil seeds from the clock.
	Rand *rand.Rand
	// NewID generates match IDs. Nil uses random UUIDs.
	NewID func() string
}

// Engine owns one match. All methods are safe for concurrent use;
// each transition is applied atomically.
type Engine struct {
	mu        sync.Mutex
	hold      time.Duration
	rng       *rand.Rand
	newID     func() string
	state     State
	holdGen   uint64
	holdTimer *time.Timer
	observers []Observer
}

// NewEngine creates an engine in the toss phase.
func NewEngine(cfg Config) *Engine {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Engine{
		hold:  cfg.DisplayHold,
		rng:   rng,
		newID: newID,
		state: initialState(),
	}
}

// Subscribe registers an observer. Observers run on the goroutine that caused the event.
func (e *Engine) Subscribe(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Engine) snapshot() State {
	s := e.state
	s.History = append([]Ball(nil), e.state.History...)
	return s
}

// ChooseToss flips the coin for the player's call. A winning caller then picks with
// StartInnings; a losing caller gets the complement of the opponent's random choice
// and the first innings starts immediately.
func (e *Engine) ChooseToss(call Side) (TossResult, error) {
	if !call.Valid() {
		return TossResult{}, fmt.Errorf("%w: unknown toss call %q", ErrRejected, call)
	}

	e.mu.Lock()
	if e.state.Phase != PhaseToss {
		e.mu.Unlock()
		return TossResult{}, ErrRejected
	}

	coin := Heads
	if e.rng.Intn(2) == 1 {
		coin = Tails
	}
	res := TossResult{Call: call, Coin: coin, Won: coin == call}
	events := []Event{{Type: EventToss, Toss: &res}}

	if !res.Won {
		opponentBats := e.rng.Intn(2) == 0
		res.Decided = true
		res.UserBatting = !opponentBats
		events = append(events, e.startInningsLocked(res.UserBatting))
	}
	events[0].State = e.snapshot()
	e.mu.Unlock()

	e.emit(events...)
	return res, nil
}

// StartInnings begins the first innings with the given batting side.
func (e *Engine) StartInnings(userBattingFirst bool) error {
	e.mu.Lock()
	if e.state.Phase != PhaseToss {
		e.mu.Unlock()
		return ErrRejected
	}
	ev := e.startInningsLocked(userBattingFirst)
	e.mu.Unlock()

	e.emit(ev)
	return nil
}

func (e *Engine) startInningsLocked(userBatting bool) Event {
	e.cancelHoldLocked()
	if e.state.MatchID == "" {
		e.state.MatchID = e.newID()
	}
	e.state.UserBatting = userBatting
	e.state.Phase = roleFor(userBatting)
	e.state.BallsPlayed = 0
	e.clearTransientLocked()
	return Event{Type: EventInningsStart, State: e.snapshot()}
}

// RecordPlayerMove registers the player's move for the next ball. The ball is
// completed by ResolveBall once the opponent's move is known.
func (e *Engine) RecordPlayerMove(m Move) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMove, m)
	}

	e.mu.Lock()
	switch {
	case !e.state.InPlay():
		e.mu.Unlock()
		return ErrRejected
	case e.state.AwaitingOpponent:
		e.mu.Unlock()
		return ErrBallPending
	}
	e.cancelHoldLocked()
	e.clearTransientLocked()
	e.state.AwaitingOpponent = true
	e.state.LastPlayerMove = m
	ev := Event{Type: EventMoveRecorded, State: e.snapshot()}
	e.mu.Unlock()

	e.emit(ev)
	return nil
}

// ResolveBall applies one ball. Equal moves dismiss the batting side; otherwise the
// batting side scores its own move.
func (e *Engine) ResolveBall(player, opponent Move) (Outcome, error) {
	if !player.Valid() || !opponent.Valid() {
		return Outcome{}, fmt.Errorf("%w: player %d, opponent %d", ErrInvalidMove, player, opponent)
	}

	e.mu.Lock()
	if !e.state.InPlay() {
		e.mu.Unlock()
		return Outcome{}, ErrRejected
	}
	e.cancelHoldLocked()

	s := &e.state
	ball := Ball{
		Innings:      s.Innings,
		PlayerMove:   player,
		OpponentMove: opponent,
		UserBatting:  s.UserBatting,
	}

	s.AwaitingOpponent = false
	s.BallsPlayed++
	s.LastPlayerMove = player
	s.LastOpponentMove = opponent
	s.IsOut = player == opponent

	var out Outcome
	events := make([]Event, 0, 3)

	if s.IsOut {
		ball.Out = true
		s.History = append(s.History, ball)
		if s.Innings == 1 {
			e.endFirstInningsLocked()
			out.InningsOver = true
		} else {
			out.GameOver = true
		}
	} else {
		ball.Runs = int(player)
		if !s.UserBatting {
			ball.Runs = int(opponent)
		}
		if s.UserBatting {
			s.PlayerScore += ball.Runs
		} else {
			s.AIScore += ball.Runs
		}
		s.History = append(s.History, ball)
		if s.Innings == 2 && s.BattingScore() >= s.Target {
			out.GameOver = true
		}
	}

	events = append(events, Event{Type: EventBall, Ball: &ball})
	if out.InningsOver {
		events = append(events, Event{Type: EventInningsChange})
	}

	var summary *Summary
	if out.GameOver {
		summary = e.finishLocked()
		events = append(events, Event{Type: EventGameOver, Summary: summary})
	} else {
		out.PendingReset = e.scheduleHoldLocked()
	}

	out.Ball = ball
	out.State = e.snapshot()
	for i := range events {
		events[i].State = out.State
	}
	e.mu.Unlock()

	e.emit(events...)
	return out, nil
}

// DeclareInnings ends the player's first innings voluntarily. It is only valid while
// the player bats in the first innings and no ball is in progress.
func (e *Engine) DeclareInnings() error {
	e.mu.Lock()
	s := &e.state
	if s.Phase != PhaseBatting || s.Innings != 1 || !s.UserBatting || s.AwaitingOpponent {
		e.mu.Unlock()
		return ErrRejected
	}
	e.cancelHoldLocked()
	e.endFirstInningsLocked()
	e.clearTransientLocked()
	ev := Event{Type: EventInningsChange, State: e.snapshot()}
	e.mu.Unlock()

	e.emit(ev)
	return nil
}

// Reset returns the engine to a fresh toss, cancelling any pending display hold.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.cancelHoldLocked()
	e.state = initialState()
	ev := Event{Type: EventReset, State: e.snapshot()}
	e.mu.Unlock()

	e.emit(ev)
}

// endFirstInningsLocked sets the target from the outgoing batting side and swaps roles.
func (e *Engine) endFirstInningsLocked() {
	s := &e.state
	s.Target = s.BattingScore() + 1
	s.UserBatting = !s.UserBatting
	s.Innings = 2
	s.BallsPlayed = 0
	s.Phase = roleFor(s.UserBatting)
}

func (e *Engine) finishLocked() *Summary {
	s := &e.state
	s.Phase = PhaseGameOver
	switch {
	case s.PlayerScore > s.AIScore:
		s.Result = ResultPlayer
	case s.AIScore > s.PlayerScore:
		s.Result = ResultAI
	default:
		s.Result = ResultDraw
	}
	return &Summary{
		MatchID:          s.MatchID,
		FinalPlayerScore: s.PlayerScore,
		FinalAIScore:     s.AIScore,
		BallsPlayed:      len(s.History),
		Innings:          s.Innings,
		Result:           s.Result,
		Balls:            append([]Ball(nil), s.History...),
		FinishedAt:       time.Now(),
	}
}

func (e *Engine) clearTransientLocked() {
	e.state.LastPlayerMove = 0
	e.state.LastOpponentMove = 0
	e.state.IsOut = false
	e.state.PendingReset = false
}

// scheduleHoldLocked clears the per-ball fields after the display hold.
// It reports whether a clear is pending.
func (e *Engine) scheduleHoldLocked() bool {
	if e.hold <= 0 {
		e.clearTransientLocked()
		return false
	}
	e.state.PendingReset = true
	gen := e.holdGen
	e.holdTimer = time.AfterFunc(e.hold, func() { e.settle(gen) })
	return true
}

func (e *Engine) cancelHoldLocked() {
	e.holdGen++
	if e.holdTimer != nil {
		e.holdTimer.Stop()
		e.holdTimer = nil
	}
}

func (e *Engine) settle(gen uint64) {
	e.mu.Lock()
	if gen != e.holdGen || !e.state.PendingReset {
		e.mu.Unlock()
		return
	}
	e.holdTimer = nil
	e.clearTransientLocked()
	ev := Event{Type: EventSettled, State: e.snapshot()}
	e.mu.Unlock()

	e.emit(ev)
}

// Settle clears a pending display hold right away.
func (e *Engine) Settle() {
	e.mu.Lock()
	gen := e.holdGen
	e.mu.Unlock()
	e.settle(gen)
}

func (e *Engine) emit(events ...Event) {
	e.mu.Lock()
	observers := append([]Observer(nil), e.observers...)
	e.mu.Unlock()

	for _, ev := range events {
		for _, o := range observers {
			o(ev)
		}
	}
}
