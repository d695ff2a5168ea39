package match

import "errors"

var (
	// ErrInvalidMove reports a move outside 1-6. It is a caller bug.
	ErrInvalidMove = errors.New("match: move out of range")
	// ErrRejected reports an operation that is not valid in the current phase.
	// The state is left unchanged.
	ErrRejected = errors.New("match: operation rejected")
	// ErrBallPending reports a player move while the previous one awaits the opponent.
	ErrBallPending = errors.New("match: ball already in progress")
)
