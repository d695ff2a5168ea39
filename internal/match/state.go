// Package match implements the hand cricket match state machine.
package match

import (
	"strconv"
	"time"
)

// Move is the run value shown by a hand, 1 to 6.
type Move int

// MinMove and MaxMove bound a legal move.
const (
	MinMove Move = 1
	MaxMove Move = 6
)

// Valid reports whether m is a legal move.
func (m Move) Valid() bool {
	return m >= MinMove && m <= MaxMove
}

func (m Move) String() string {
	if m == 0 {
		return "-"
	}
	return strconv.Itoa(int(m))
}

// Phase is the coarse match phase. The innings counter refines it.
type Phase string

const (
	PhaseToss     Phase = "toss"
	PhaseBatting  Phase = "batting"
	PhaseBowling  Phase = "bowling"
	PhaseGameOver Phase = "gameOver"
)

// Side is a coin face.
type Side string

const (
	Heads Side = "heads"
	Tails Side = "tails"
)

// Valid reports whether s is a coin face.
func (s Side) Valid() bool {
	return s == Heads || s == Tails
}

// Result is the outcome of a finished match from the player's point of view.
type Result string

const (
	ResultNone   Result = ""
	ResultPlayer Result = "player"
	ResultAI     Result = "ai"
	ResultDraw   Result = "draw"
)

// Ball is one resolved exchange of moves.
type Ball struct {
	Innings      int  `json:"innings"`
	PlayerMove   Move `json:"playerMove"`
	OpponentMove Move `json:"opponentMove"`
	UserBatting  bool `json:"userBatting"`
	Runs         int  `json:"runs"`
	Out          bool `json:"out"`
}

// State is a snapshot of the match. Only Engine produces it.
type State struct {
	MatchID          string `json:"matchId,omitempty"`
	Phase            Phase  `json:"phase"`
	Innings          int    `json:"innings"`
	PlayerScore      int    `json:"playerScore"`
	AIScore          int    `json:"aiScore"`
	Target           int    `json:"target,omitempty"` // 0 until the first innings ends
	UserBatting      bool   `json:"userBatting"`
	BallsPlayed      int    `json:"ballsPlayed"`
	LastPlayerMove   Move   `json:"lastPlayerMove,omitempty"`
	LastOpponentMove Move   `json:"lastOpponentMove,omitempty"`
	IsOut            bool   `json:"isOut"`
	AwaitingOpponent bool   `json:"awaitingOpponent"`
	PendingReset     bool   `json:"pendingReset"`
	Result           Result `json:"result,omitempty"`
	History          []Ball `json:"history"`
}

// HasTarget reports whether the first innings has ended.
func (s State) HasTarget() bool {
	return s.Target > 0
}

// InPlay reports whether balls can be bowled.
func (s State) InPlay() bool {
	return s.Phase == PhaseBatting || s.Phase == PhaseBowling
}

// BattingScore returns the score of the side currently batting.
func (s State) BattingScore() int {
	if s.UserBatting {
		return s.PlayerScore
	}
	return s.AIScore
}

// PlayerMoves returns every player move so far, oldest first.
func (s State) PlayerMoves() []Move {
	out := make([]Move, len(s.History))
	for i, b := range s.History {
		out[i] = b.PlayerMove
	}
	return out
}

// OpponentMoves returns every opponent move so far, oldest first.
func (s State) OpponentMoves() []Move {
	out := make([]Move, len(s.History))
	for i, b := range s.History {
		out[i] = b.OpponentMove
	}
	return out
}

func initialState() State {
	return State{Phase: PhaseToss, Innings: 1}
}

func roleFor(userBatting bool) Phase {
	if userBatting {
		return PhaseBatting
	}
	return PhaseBowling
}

// TossResult describes a coin toss.
type TossResult struct {
	Call Side `json:"call"`
	Coin Side `json:"coin"`
	Won  bool `json:"won"`
	// Decided is set when the opponent won and has already picked.
	Decided     bool `json:"decided"`
	UserBatting bool `json:"userBatting"`
}

// Outcome reports what a resolved ball did.
type Outcome struct {
	Ball        Ball  `json:"ball"`
	InningsOver bool  `json:"inningsOver"`
	GameOver    bool  `json:"gameOver"`
	State       State `json:"state"`
	// PendingReset means the ball's moves stay on display until the hold elapses.
	PendingReset bool `json:"pendingReset"`
}

// Summary is emitted once per finished match for durable storage.
type Summary struct {
	MatchID          string    `json:"matchId"`
	FinalPlayerScore int       `json:"finalPlayerScore"`
	FinalAIScore     int       `json:"finalAiScore"`
	BallsPlayed      int       `json:"ballsPlayed"` // across both innings
	Innings          int       `json:"innings"`
	Result           Result    `json:"result"`
	Balls            []Ball    `json:"balls"`
	FinishedAt       time.Time `json:"finishedAt"`
}
