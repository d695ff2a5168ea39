// Package gesture turns per-frame hand landmarks into stable hand cricket symbols.
package gesture

import "github.com/ayusman/handcricket/internal/detector"

// Finger positions within a FingerState.
const (
	Thumb = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers
)

// FingerState records which fingers are extended in one frame,
// ordered thumb, index, middle, ring, pinky.
type FingerState [NumFingers]bool

// Count returns the number of extended non-thumb fingers.
func (f FingerState) Count() int {
	n := 0
	for i := Index; i < NumFingers; i++ {
		if f[i] {
			n++
		}
	}
	return n
}

// fingerJoints lists tip, PIP and MCP indices of the four long fingers.
var fingerJoints = [NumFingers][3]int{
	Index:  {detector.IndexTip, detector.IndexPIP, detector.IndexMCP},
	Middle: {detector.MiddleTip, detector.MiddlePIP, detector.MiddleMCP},
	Ring:   {detector.RingTip, detector.RingPIP, detector.RingMCP},
	Pinky:  {detector.PinkyTip, detector.PinkyPIP, detector.PinkyMCP},
}

// Extract classifies each finger of hand as extended or not.
// A nil hand yields an all-false state.
func Extract(hand *detector.HandLandmarks) FingerState {
	var fs FingerState
	if hand == nil {
		return fs
	}
	p := &hand.Points

	// With the pinky base left of the index base the thumb opens toward +x.
	outward := 1.0
	if p[detector.PinkyMCP].X > p[detector.IndexMCP].X {
		outward = -1.0
	}
	tip, ip, mcp := p[detector.ThumbTip], p[detector.ThumbIP], p[detector.ThumbMCP]
	fs[Thumb] = (tip.X-ip.X)*outward > 0 && tip.Y < mcp.Y

	for i := Index; i < NumFingers; i++ {
		j := fingerJoints[i]
		tipY := p[j[0]].Y
		fs[i] = tipY < p[j[1]].Y && tipY < p[j[2]].Y
	}
	return fs
}
