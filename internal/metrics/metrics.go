// Package metrics exposes Prometheus counters for the game pipeline.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "handcricket"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	framesObserved   prometheus.Counter
	handsDetected    prometheus.Counter
	gesturesEmitted  *prometheus.CounterVec
	ballsResolved    prometheus.Counter
	dismissals       prometheus.Counter
	matchesCompleted *prometheus.CounterVec
	opponentMoves    *prometheus.CounterVec
	cameraRestarts   *prometheus.CounterVec
	cameraState      prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		framesObserved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_observed_total",
			Help:      "Total number of frames fed to the gesture stabilizer",
		}),
		handsDetected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hands_detected_total",
			Help:      "Total number of frames in which a hand was found",
		}),
		gesturesEmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gestures_emitted_total",
			Help:      "Total number of stabilized gestures, by symbol",
		}, []string{"symbol"}),
		ballsResolved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balls_resolved_total",
			Help:      "Total number of balls resolved",
		}),
		dismissals: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dismissals_total",
			Help:      "Total number of balls that ended in a dismissal",
		}),
		matchesCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_completed_total",
			Help:      "Total number of finished matches, by result",
		}, []string{"result"}),
		opponentMoves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opponent_moves_total",
			Help:      "Total number of opponent moves, by source",
		}, []string{"source"}),
		cameraRestarts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "camera_restarts_total",
			Help:      "Total number of camera restarts, by reason",
		}, []string{"reason"}),
		cameraState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "camera_state",
			Help:      "Camera lifecycle state (0 stopped, 1 starting, 2 running, 3 failed)",
		}),
	}
}

func (m *Metrics) FrameObserved(handPresent bool) {
	if m == nil {
		return
	}
	m.framesObserved.Inc()
	if handPresent {
		m.handsDetected.Inc()
	}
}

func (m *Metrics) GestureEmitted(symbol int) {
	if m == nil {
		return
	}
	m.gesturesEmitted.WithLabelValues(strconv.Itoa(symbol)).Inc()
}

func (m *Metrics) BallResolved(out bool) {
	if m == nil {
		return
	}
	m.ballsResolved.Inc()
	if out {
		m.dismissals.Inc()
	}
}

func (m *Metrics) MatchCompleted(result string) {
	if m == nil {
		return
	}
	m.matchesCompleted.WithLabelValues(result).Inc()
}

func (m *Metrics) OpponentMove(source string) {
	if m == nil {
		return
	}
	m.opponentMoves.WithLabelValues(source).Inc()
}

func (m *Metrics) CameraRestart(reason string) {
	if m == nil {
		return
	}
	m.cameraRestarts.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetCameraState(state int) {
	if m == nil {
		return
	}
	m.cameraState.Set(float64(state))
}
