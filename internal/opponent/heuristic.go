package opponent

import (
	"math/rand"
	"sync"

	"github.com/ayusman/handcricket/internal/match"
)

// Heuristic is the local fallback strategy. It reads only the completed-ball
// histories in a Context, never the move the player has just made, and is fully
// determined by its seed.
type Heuristic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristic creates a heuristic with a fixed seed.
func NewHeuristic(seed int64) *Heuristic {
	return &Heuristic{rng: rand.New(rand.NewSource(seed))}
}

// patterns summarises the player's history.
type patterns struct {
	last       match.Move // 0 when there is no history
	mostCommon match.Move // 0 when there is no history
	predicted  match.Move // 0 with fewer than three moves
}

func analyse(moves []match.Move) patterns {
	var p patterns
	if len(moves) == 0 {
		return p
	}
	p.last = moves[len(moves)-1]

	var counts [match.MaxMove + 1]int
	for _, m := range moves {
		if m.Valid() {
			counts[m]++
		}
	}
	for m := match.MinMove; m <= match.MaxMove; m++ {
		if counts[m] > counts[p.mostCommon] {
			p.mostCommon = m
		}
	}

	n := len(moves) - 1
	switch {
	case len(moves) < 3:
	case moves[n] == moves[n-1]:
		p.predicted = moves[n]
	case len(moves) >= 4 && moves[n] == moves[n-2] && moves[n-1] == moves[n-3]:
		p.predicted = moves[n-1]
	default:
		p.predicted = p.mostCommon
	}
	return p
}

// Move picks a move in 1-6 for c.
func (h *Heuristic) Move(c Context) match.Move {
	h.mu.Lock()
	defer h.mu.Unlock()

	m := h.choose(c, analyse(c.PlayerMoves))
	if !m.Valid() {
		return h.uniform()
	}
	return m
}

func (h *Heuristic) choose(c Context, p patterns) match.Move {
	if m, ok := h.situational(c, p); ok {
		return m
	}

	m := h.uniform()
	if p.last != 0 && m == p.last && h.chance(0.7) {
		m = h.other(p.last)
	}

	switch {
	case c.UserBatting && len(c.PlayerMoves) > 0 && h.chance(0.3):
		recent := c.PlayerMoves
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		m = recent[h.rng.Intn(len(recent))]
	case !c.UserBatting && h.chance(0.3):
		m = h.high()
	}
	return m
}

// situational applies the score- and innings-driven biases. It reports false when
// none applies and the general rules should decide.
func (h *Heuristic) situational(c Context, p patterns) (match.Move, bool) {
	if c.Innings == 2 && c.Target > 0 {
		if !c.UserBatting {
			need := c.Target - c.AIScore
			switch {
			case need >= 1 && need <= 6:
				return match.Move(need), true
			case need > 12 && h.chance(0.6):
				return h.high(), true
			}
			return 0, false
		}

		need := c.Target - c.PlayerScore
		if need >= 1 && need <= 12 && p.last != 0 {
			if p.predicted != 0 && h.chance(0.6) {
				return p.predicted, true
			}
			return p.last, true
		}
		return 0, false
	}

	if c.Innings == 1 {
		if !c.UserBatting {
			if p.mostCommon != 0 && h.chance(0.4) {
				return h.other(p.mostCommon), true
			}
			return 0, false
		}
		if p.predicted != 0 && h.chance(0.5) {
			return p.predicted, true
		}
	}
	return 0, false
}

func (h *Heuristic) uniform() match.Move {
	return match.Move(h.rng.Intn(6) + 1)
}

func (h *Heuristic) high() match.Move {
	return match.Move(h.rng.Intn(3) + 4)
}

// other returns a uniformly chosen move different from m.
func (h *Heuristic) other(m match.Move) match.Move {
	return (m+match.Move(h.rng.Intn(5)))%6 + 1
}

func (h *Heuristic) chance(p float64) bool {
	return h.rng.Float64() < p
}
