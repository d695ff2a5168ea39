// Package matchscript replays ball-by-ball match scripts written in YAML
// against a match engine and checks the state they expect.
package matchscript

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/handcricket/internal/match"
)

// Script is a scripted match.
type Script struct {
	Name string `yaml:"name"`
	// UserBattingFirst picks the first innings batting side, as if the player won the toss.
	UserBattingFirst bool   `yaml:"userBattingFirst"`
	Steps            []Step `yaml:"steps"`
	// Expect is checked after the last step.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step is one action: a ball, a declaration, a reset, or starting an innings
// after a reset.
type Step struct {
	Player   int  `yaml:"player,omitempty"`
	Opponent int  `yaml:"opponent,omitempty"`
	Declare  bool `yaml:"declare,omitempty"`
	Reset    bool `yaml:"reset,omitempty"`
	// Start begins a new match with the given batting side.
	Start *bool `yaml:"start,omitempty"`
	// Out, when set, must match whether the ball was a dismissal.
	Out *bool `yaml:"out,omitempty"`
	// Error names the error the step must fail with: rejected, invalidMove or ballPending.
	Error  string  `yaml:"error,omitempty"`
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect lists state fields to check. Unset fields are not checked.
type Expect struct {
	Phase       *match.Phase  `yaml:"phase,omitempty"`
	Innings     *int          `yaml:"innings,omitempty"`
	PlayerScore *int          `yaml:"playerScore,omitempty"`
	AIScore     *int          `yaml:"aiScore,omitempty"`
	Target      *int          `yaml:"target,omitempty"`
	UserBatting *bool         `yaml:"userBatting,omitempty"`
	BallsPlayed *int          `yaml:"ballsPlayed,omitempty"`
	Result      *match.Result `yaml:"result,omitempty"`
}

var errorNames = map[string]error{
	"rejected":    match.ErrRejected,
	"invalidMove": match.ErrInvalidMove,
	"ballPending": match.ErrBallPending,
}

// Parse decodes a script. Unknown fields are an error.
func Parse(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Parse(data)
}

func (s *Script) validate() error {
	for i, st := range s.Steps {
		kinds := 0
		if st.Declare {
			kinds++
		}
		if st.Reset {
			kinds++
		}
		if st.Start != nil {
			kinds++
		}
		if st.Player != 0 || st.Opponent != 0 {
			kinds++
		}
		if kinds != 1 {
			return fmt.Errorf("step %d: exactly one action is required", i+1)
		}
		if st.Error != "" {
			if _, ok := errorNames[st.Error]; !ok {
				return fmt.Errorf("step %d: unknown error %q", i+1, st.Error)
			}
		}
	}
	return nil
}

// Run starts the first innings on e and plays every step, returning the first
// mismatch. e must be in the toss phase.
func Run(e *match.Engine, s *Script) error {
	if err := e.StartInnings(s.UserBattingFirst); err != nil {
		return fmt.Errorf("%s: start innings: %w", s.Name, err)
	}

	for i, st := range s.Steps {
		if err := runStep(e, st); err != nil {
			return fmt.Errorf("%s: step %d: %w", s.Name, i+1, err)
		}
	}
	if s.Expect != nil {
		if err := s.Expect.check(e.State()); err != nil {
			return fmt.Errorf("%s: final state: %w", s.Name, err)
		}
	}
	return nil
}

func runStep(e *match.Engine, st Step) error {
	var (
		out    match.Outcome
		played bool
		err    error
	)
	switch {
	case st.Declare:
		err = e.DeclareInnings()
	case st.Reset:
		e.Reset()
	case st.Start != nil:
		err = e.StartInnings(*st.Start)
	default:
		player, opp := match.Move(st.Player), match.Move(st.Opponent)
		// Both moves are checked before the player move is recorded.
		if !player.Valid() || !opp.Valid() {
			err = fmt.Errorf("%w: player %d, opponent %d", match.ErrInvalidMove, player, opp)
		} else if err = e.RecordPlayerMove(player); err == nil {
			out, err = e.ResolveBall(player, opp)
			played = err == nil
		}
	}

	if want := errorNames[st.Error]; want != nil {
		if !errors.Is(err, want) {
			return fmt.Errorf("error = %v, want %s", err, st.Error)
		}
	} else if err != nil {
		return err
	}

	if st.Out != nil && played && out.Ball.Out != *st.Out {
		return fmt.Errorf("out = %v, want %v", out.Ball.Out, *st.Out)
	}
	if st.Expect != nil {
		return st.Expect.check(e.State())
	}
	return nil
}

func (x *Expect) check(s match.State) error {
	var errs []error
	if x.Phase != nil && s.Phase != *x.Phase {
		errs = append(errs, fmt.Errorf("phase = %s, want %s", s.Phase, *x.Phase))
	}
	if x.Innings != nil && s.Innings != *x.Innings {
		errs = append(errs, fmt.Errorf("innings = %d, want %d", s.Innings, *x.Innings))
	}
	if x.PlayerScore != nil && s.PlayerScore != *x.PlayerScore {
		errs = append(errs, fmt.Errorf("playerScore = %d, want %d", s.PlayerScore, *x.PlayerScore))
	}
	if x.AIScore != nil && s.AIScore != *x.AIScore {
		errs = append(errs, fmt.Errorf("aiScore = %d, want %d", s.AIScore, *x.AIScore))
	}
	if x.Target != nil && s.Target != *x.Target {
		errs = append(errs, fmt.Errorf("target = %d, want %d", s.Target, *x.Target))
	}
	if x.UserBatting != nil && s.UserBatting != *x.UserBatting {
		errs = append(errs, fmt.Errorf("userBatting = %v, want %v", s.UserBatting, *x.UserBatting))
	}
	if x.BallsPlayed != nil && s.BallsPlayed != *x.BallsPlayed {
		errs = append(errs, fmt.Errorf("ballsPlayed = %d, want %d", s.BallsPlayed, *x.BallsPlayed))
	}
	if x.Result != nil && s.Result != *x.Result {
		errs = append(errs, fmt.Errorf("result = %q, want %q", s.Result, *x.Result))
	}
	return errors.Join(errs...)
}
