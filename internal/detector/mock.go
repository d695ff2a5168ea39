package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector returns preconfigured hands. Safe for use from the feed goroutine.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a detector that reports no hands.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op.
func (m *MockDetector) Close() error {
	return nil
}

// Finger joint positions for a right hand, palm facing the camera, wrist at the bottom.
// Raised fingers point up (smaller y); curled fingers fold back below their PIP.
var (
	raisedIndex  = [4]Point3D{{X: 0.55, Y: 0.68}, {X: 0.57, Y: 0.55}, {X: 0.58, Y: 0.45}, {X: 0.58, Y: 0.35}}
	raisedMiddle = [4]Point3D{{X: 0.50, Y: 0.66}, {X: 0.50, Y: 0.52}, {X: 0.50, Y: 0.40}, {X: 0.50, Y: 0.28}}
	raisedRing   = [4]Point3D{{X: 0.45, Y: 0.68}, {X: 0.43, Y: 0.55}, {X: 0.42, Y: 0.45}, {X: 0.42, Y: 0.35}}
	raisedPinky  = [4]Point3D{{X: 0.40, Y: 0.70}, {X: 0.37, Y: 0.60}, {X: 0.35, Y: 0.50}, {X: 0.34, Y: 0.42}}

	curledIndex  = [4]Point3D{{X: 0.55, Y: 0.70, Z: -0.02}, {X: 0.55, Y: 0.68, Z: -0.05}, {X: 0.52, Y: 0.70, Z: -0.04}, {X: 0.50, Y: 0.72, Z: -0.02}}
	curledMiddle = [4]Point3D{{X: 0.50, Y: 0.68, Z: -0.02}, {X: 0.50, Y: 0.66, Z: -0.05}, {X: 0.47, Y: 0.68, Z: -0.04}, {X: 0.45, Y: 0.70, Z: -0.02}}
	curledRing   = [4]Point3D{{X: 0.45, Y: 0.70, Z: -0.02}, {X: 0.45, Y: 0.68, Z: -0.05}, {X: 0.42, Y: 0.70, Z: -0.04}, {X: 0.40, Y: 0.72, Z: -0.02}}
	curledPinky  = [4]Point3D{{X: 0.40, Y: 0.72, Z: -0.02}, {X: 0.40, Y: 0.70, Z: -0.05}, {X: 0.37, Y: 0.72, Z: -0.04}, {X: 0.35, Y: 0.74, Z: -0.02}}

	// Thumb CMC, MCP, IP, tip.
	thumbOut    = [4]Point3D{{X: 0.55, Y: 0.75, Z: 0.02}, {X: 0.62, Y: 0.70, Z: 0.03}, {X: 0.68, Y: 0.65, Z: 0.03}, {X: 0.73, Y: 0.60, Z: 0.03}}
	thumbUp     = [4]Point3D{{X: 0.55, Y: 0.75}, {X: 0.58, Y: 0.65}, {X: 0.60, Y: 0.52}, {X: 0.62, Y: 0.40}}
	thumbTucked = [4]Point3D{{X: 0.55, Y: 0.75}, {X: 0.58, Y: 0.70}, {X: 0.56, Y: 0.66}, {X: 0.52, Y: 0.68}}
)

func buildHand(thumb [4]Point3D, fingers [4][4]Point3D) HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}
	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}
	copy(h.Points[ThumbCMC:ThumbTip+1], thumb[:])
	bases := [4]int{IndexMCP, MiddleMCP, RingMCP, PinkyMCP}
	for i, base := range bases {
		copy(h.Points[base:base+4], fingers[i][:])
	}
	return h
}

// FistLandmarks returns a closed fist: no finger extended.
func FistLandmarks() HandLandmarks {
	return buildHand(thumbTucked, [4][4]Point3D{curledIndex, curledMiddle, curledRing, curledPinky})
}

// FingersLandmarks returns a hand with the first n non-thumb fingers raised
// (index first) and the thumb tucked. n is clamped to 0..4.
func FingersLandmarks(n int) HandLandmarks {
	raised := [4][4]Point3D{raisedIndex, raisedMiddle, raisedRing, raisedPinky}
	fingers := [4][4]Point3D{curledIndex, curledMiddle, curledRing, curledPinky}
	for i := 0; i < n && i < 4; i++ {
		fingers[i] = raised[i]
	}
	return buildHand(thumbTucked, fingers)
}

// ThumbsUpLandmarks returns a thumbs up: thumb raised, other fingers curled.
func ThumbsUpLandmarks() HandLandmarks {
	return buildHand(thumbUp, [4][4]Point3D{curledIndex, curledMiddle, curledRing, curledPinky})
}

// OpenPalmLandmarks returns an open hand with every finger extended.
func OpenPalmLandmarks() HandLandmarks {
	return buildHand(thumbOut, [4][4]Point3D{raisedIndex, raisedMiddle, raisedRing, raisedPinky})
}
