package matchscript

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/handcricket/internal/match"
)

func newEngine() *match.Engine {
	return match.NewEngine(match.Config{NewID: func() string { return "scripted" }})
}

func TestScripts(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := Load(path)
			require.NoError(t, err)
			assert.NoError(t, Run(newEngine(), s))
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown field", yaml: "name: x\nsteps:\n  - {player: 1, opponent: 2, bogus: 1}\n"},
		{name: "empty step", yaml: "name: x\nsteps:\n  - {}\n"},
		{name: "two actions", yaml: "name: x\nsteps:\n  - {player: 1, opponent: 2, declare: true}\n"},
		{name: "unknown error", yaml: "name: x\nsteps:\n  - {declare: true, error: nope}\n"},
		{name: "not yaml", yaml: "steps: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestRun_ReportsMismatch(t *testing.T) {
	s, err := Parse([]byte(`
name: wrong score
userBattingFirst: true
steps:
  - player: 3
    opponent: 5
    expect:
      playerScore: 4
      innings: 2
`))
	require.NoError(t, err)

	err = Run(newEngine(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1")
	assert.Contains(t, err.Error(), "playerScore = 3, want 4")
	assert.Contains(t, err.Error(), "innings = 1, want 2")
}

func TestRun_UnexpectedError(t *testing.T) {
	s, err := Parse([]byte(`
name: declare while bowling
userBattingFirst: false
steps:
  - declare: true
`))
	require.NoError(t, err)

	err = Run(newEngine(), s)
	assert.ErrorIs(t, err, match.ErrRejected)
}

func TestRun_MissingExpectedError(t *testing.T) {
	s, err := Parse([]byte(`
name: legal ball flagged as rejected
userBattingFirst: true
steps:
  - {player: 2, opponent: 3, error: rejected}
`))
	require.NoError(t, err)

	err = Run(newEngine(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want rejected")
}

func TestRun_InvalidOpponentMoveLeavesEngineReady(t *testing.T) {
	s, err := Parse([]byte(`
name: bad opponent move then a legal ball
userBattingFirst: true
steps:
  - {player: 3, opponent: 9, error: invalidMove, expect: {ballsPlayed: 0}}
  - {player: 3, opponent: 5, expect: {playerScore: 3, ballsPlayed: 1}}
`))
	require.NoError(t, err)

	e := newEngine()
	require.NoError(t, Run(e, s))
	assert.False(t, e.State().AwaitingOpponent)
}

func TestRun_OutMismatch(t *testing.T) {
	s, err := Parse([]byte(`
name: not out
userBattingFirst: true
steps:
  - {player: 2, opponent: 3, out: true}
`))
	require.NoError(t, err)
	assert.ErrorContains(t, Run(newEngine(), s), "out = false, want true")
}

func TestRun_EngineMustBeAtToss(t *testing.T) {
	e := newEngine()
	require.NoError(t, e.StartInnings(true))

	err := Run(e, &Script{Name: "late"})
	assert.ErrorIs(t, err, match.ErrRejected)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
