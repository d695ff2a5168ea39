package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector finds hands in a video frame.
type Detector interface {
	// Detect returns the landmarks of every hand in the frame, or an empty slice.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to report. The game reads one.
	MaxHands int

	// MinConfidence is the minimum detection confidence (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence (0.0-1.0).
	MinTrackingConf float64

	// IdleTimeout shuts the helper process down after this long without frames.
	IdleTimeout time.Duration
}

// DefaultConfig returns the settings used by the game.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.6,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
	}
}
