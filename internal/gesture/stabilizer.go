package gesture

import (
	"sync"
	"time"
)

// Stabilizer defaults.
const (
	DefaultHistorySize = 5
	DefaultThreshold   = 3
	DefaultCooldown    = 1000 * time.Millisecond
	DefaultNoHandReset = 1500 * time.Millisecond
)

// Config tunes a Stabilizer.
type Config struct {
	// HistorySize is the number of recent finger states used for the majority vote.
	HistorySize int
	// Threshold is the number of consecutive reinforcing frames needed to fire.
	Threshold int
	// Cooldown is how long a fired symbol stays armed before it may fire again.
	Cooldown time.Duration
	// NoHandReset clears accumulated confidence after this long without a hand.
	NoHandReset time.Duration
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// DefaultConfig returns the tuning used by the game.
func DefaultConfig() Config {
	return Config{
		HistorySize: DefaultHistorySize,
		Threshold:   DefaultThreshold,
		Cooldown:    DefaultCooldown,
		NoHandReset: DefaultNoHandReset,
	}
}

// Snapshot describes the stabilizer for display.
type Snapshot struct {
	Candidate  Symbol `json:"candidate"`
	Confidence int    `json:"confidence"`
	Threshold  int    `json:"threshold"`
	Armed      Symbol `json:"armed"`
	Locked     bool   `json:"locked"`
	History    int    `json:"history"`
}

// Stabilizer debounces noisy per-frame finger states into discrete symbols.
//
// Each frame is appended to a short history; every finger takes its majority value
// over that history and the result is classified. A candidate must be reinforced on
// Threshold frames in a row (at most one symbol holds confidence at a time) before it
// fires, and a fired symbol cannot fire again until Cooldown has passed, unless a
// different symbol fires in between.
//
// Frames without a candidate leave confidence untouched; only a differing candidate,
// the cooldown, or a NoHandReset pause without a hand clears it.
type Stabilizer struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	history    []FingerState
	confidence [7]int
	candidate  Symbol
	armed      Symbol
	clearAt    time.Time
	lastHand   time.Time
	locked     bool
}

// NewStabilizer creates a Stabilizer. Zero config fields take their defaults.
func NewStabilizer(cfg Config) *Stabilizer {
	def := DefaultConfig()
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.NoHandReset <= 0 {
		cfg.NoHandReset = def.NoHandReset
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Stabilizer{
		cfg:     cfg,
		now:     now,
		history: make([]FingerState, 0, cfg.HistorySize),
	}
}

// Observe consumes one frame and returns a symbol when one fires.
// handPresent is false for frames in which no hand was detected.
func (s *Stabilizer) Observe(fs FingerState, handPresent bool) (Symbol, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.clearAt.IsZero() && !now.Before(s.clearAt) {
		s.armed = None
		s.clearConfidence()
		s.clearAt = time.Time{}
	}

	if handPresent {
		s.lastHand = now
	} else if !s.lastHand.IsZero() && now.Sub(s.lastHand) >= s.cfg.NoHandReset {
		s.clearConfidence()
	}

	if len(s.history) >= s.cfg.HistorySize {
		copy(s.history, s.history[1:])
		s.history = s.history[:s.cfg.HistorySize-1]
	}
	s.history = append(s.history, fs)

	cand := Classify(s.consistent())
	if s.locked || cand == None {
		return None, false
	}

	if cand != s.candidate {
		s.clearConfidence()
		s.candidate = cand
	}
	s.confidence[cand]++

	if s.confidence[cand] >= s.cfg.Threshold && cand != s.armed {
		s.armed = cand
		s.clearAt = now.Add(s.cfg.Cooldown)
		return cand, true
	}
	return None, false
}

// consistent returns the per-finger majority over the history.
// A finger counts as extended when it is extended in at least half the entries.
func (s *Stabilizer) consistent() FingerState {
	var counts [NumFingers]int
	for _, fs := range s.history {
		for i, ext := range fs {
			if ext {
				counts[i]++
			}
		}
	}
	need := (len(s.history) + 1) / 2
	var out FingerState
	for i, c := range counts {
		out[i] = len(s.history) > 0 && c >= need
	}
	return out
}

func (s *Stabilizer) clearConfidence() {
	s.confidence = [7]int{}
	s.candidate = None
}

// SetLocked suppresses firing while locked. Frames still enter the history.
// Locking drops any confidence gathered so far.
func (s *Stabilizer) SetLocked(locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if locked && !s.locked {
		s.clearConfidence()
	}
	s.locked = locked
}

// Locked reports whether firing is suppressed.
func (s *Stabilizer) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Reset forgets history, confidence and the armed symbol, cancelling any pending cooldown.
// The lock is left as is.
func (s *Stabilizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = s.history[:0]
	s.clearConfidence()
	s.armed = None
	s.clearAt = time.Time{}
	s.lastHand = time.Time{}
}

// Snapshot returns the current state for display.
func (s *Stabilizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Candidate:  s.candidate,
		Confidence: s.confidence[s.candidate],
		Threshold:  s.cfg.Threshold,
		Armed:      s.armed,
		Locked:     s.locked,
		History:    len(s.history),
	}
}
