// Package camera supervises the landmark source: activation, teardown, and a
// watchdog that restarts a stalled feed a bounded number of times.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/handcricket/internal/detector"
	"github.com/ayusman/handcricket/internal/logging"
)

// ErrHardwareUnavailable wraps failures to build or start a source.
var ErrHardwareUnavailable = errors.New("camera hardware unavailable")

// Manager defaults.
const (
	DefaultWatchdogInterval = 10 * time.Second
	DefaultMaxAutoRestarts  = 2
	DefaultRestartCooldown  = 15 * time.Second
)

// State is the lifecycle state of the camera pipeline.
type State int

const (
	Stopped State = iota
	Starting
	Running
	Failed
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{Stopped, Starting, Running, Failed} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown camera state %q", b)
}

// Reason says who asked for a restart.
type Reason string

const (
	ReasonUser     Reason = "user"
	ReasonWatchdog Reason = "watchdog"
)

// FrameHandler receives the primary hand of each processed frame, or nil when no
// hand was found.
type FrameHandler func(hand *detector.HandLandmarks)

// Source is a running landmark pipeline.
type Source interface {
	Start(ctx context.Context) error
	Stop() error
	// Running reports whether frames are still flowing.
	Running() bool
}

// Factory builds a fresh Source for every session. onFrame must be used as the
// source's only output.
type Factory func(onFrame FrameHandler) (Source, error)

// Session is the bookkeeping of one activation. It is replaced, never edited,
// when the camera restarts.
type Session struct {
	ID          uint64    `json:"id"`
	Active      bool      `json:"active"`
	Attempts    int       `json:"attempts"`
	LastRestart time.Time `json:"lastRestart,omitempty"`
}

// EventType names a camera event.
type EventType string

const (
	EventStateChanged     EventType = "stateChanged"
	EventRestart          EventType = "restart"
	EventRestartExhausted EventType = "restartExhausted"
)

// Event is delivered to observers synchronously, at the transition.
type Event struct {
	Type    EventType `json:"type"`
	State   State     `json:"state"`
	Session Session   `json:"session"`
	Reason  Reason    `json:"reason,omitempty"`
	Err     error     `json:"-"`
}

// Observer receives camera events. It must not call back into the Manager.
type Observer func(Event)

// Status is a snapshot for display.
type Status struct {
	State     State   `json:"state"`
	Session   Session `json:"session"`
	Exhausted bool    `json:"exhausted"`
	LastError string  `json:"lastError,omitempty"`
}

// Config tunes a Manager.
type Config struct {
	WatchdogInterval time.Duration
	MaxAutoRestarts  int
	RestartCooldown  time.Duration
	Now              func() time.Time
	Logger           zerolog.Logger
}

// Manager owns the camera session. Restarts are serialized; frames from a
// superseded session are dropped.
type Manager struct {
	cfg     Config
	factory Factory
	onFrame FrameHandler
	now     func() time.Time
	log     zerolog.Logger

	// restartMu serializes activate, deactivate and restart.
	restartMu sync.Mutex
	// frameMu is held for reading while a frame is delivered, so retiring a
	// session waits for in-flight frames.
	frameMu sync.RWMutex

	mu        sync.Mutex
	state     State
	session   Session
	source    Source
	nextID    uint64
	exhausted bool
	lastErr   error
	observers []Observer
}

// NewManager creates a stopped Manager. Zero config fields take their defaults.
func NewManager(factory Factory, onFrame FrameHandler, cfg Config) *Manager {
	if cfg.WatchdogInterval <= 0 {
		cfg.WatchdogInterval = DefaultWatchdogInterval
	}
	if cfg.MaxAutoRestarts <= 0 {
		cfg.MaxAutoRestarts = DefaultMaxAutoRestarts
	}
	if cfg.RestartCooldown <= 0 {
		cfg.RestartCooldown = DefaultRestartCooldown
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		cfg:     cfg,
		factory: factory,
		onFrame: onFrame,
		now:     now,
		log:     cfg.Logger,
	}
}

// Subscribe registers an observer.
func (m *Manager) Subscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Status returns the current state and session.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{State: m.state, Session: m.session, Exhausted: m.exhausted}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	return st
}

// Activate starts the camera if it is not already starting or running.
func (m *Manager) Activate(ctx context.Context) error {
	m.restartMu.Lock()
	defer m.restartMu.Unlock()

	m.mu.Lock()
	st, s := m.state, m.session
	m.mu.Unlock()
	if st == Running || st == Starting {
		return nil
	}
	if st == Failed {
		m.teardown()
	}
	return m.activate(ctx, s.Attempts, s.LastRestart)
}

// Deactivate stops the camera. The watchdog leaves an inactive session alone.
func (m *Manager) Deactivate() {
	m.restartMu.Lock()
	defer m.restartMu.Unlock()

	m.teardown()
	m.mu.Lock()
	m.session.Active = false
	m.mu.Unlock()
	m.log.Info().Msg("camera deactivated")
}

// Restart tears the pipeline down and activates a new session. A user restart
// resets the automatic retry budget and ignores the cooldown.
func (m *Manager) Restart(ctx context.Context, reason Reason) error {
	m.restartMu.Lock()
	defer m.restartMu.Unlock()
	return m.restart(ctx, reason)
}

func (m *Manager) restart(ctx context.Context, reason Reason) error {
	m.mu.Lock()
	attempts := m.session.Attempts
	if reason == ReasonUser {
		attempts = 0
		m.exhausted = false
	} else {
		attempts++
	}
	lastRestart := m.now()
	ev := Event{Type: EventRestart, State: m.state, Session: m.session, Reason: reason}
	m.mu.Unlock()

	m.log.Info().Str("reason", string(reason)).Int(logging.AttemptKey, attempts).Msg("restarting camera")
	m.emit(ev)

	m.teardown()
	return m.activate(ctx, attempts, lastRestart)
}

// CheckFeed runs one watchdog pass. An active session whose source has stopped
// delivering frames is restarted, unless the retry budget is spent or the last
// restart was too recent. A restart already in progress skips the pass.
func (m *Manager) CheckFeed(ctx context.Context) {
	if !m.restartMu.TryLock() {
		return
	}
	defer m.restartMu.Unlock()

	m.mu.Lock()
	st, s, src := m.state, m.session, m.source
	m.mu.Unlock()

	if !s.Active || st == Starting {
		return
	}
	if st == Running && src != nil && src.Running() {
		return
	}

	if s.Attempts >= m.cfg.MaxAutoRestarts {
		m.mu.Lock()
		notify := !m.exhausted
		m.exhausted = true
		ev := Event{Type: EventRestartExhausted, State: m.state, Session: m.session, Err: m.lastErr}
		m.mu.Unlock()

		if notify {
			m.log.Warn().Int(logging.AttemptKey, s.Attempts).Msg("camera feed stalled, automatic restarts exhausted")
			m.emit(ev)
		}
		return
	}
	if !s.LastRestart.IsZero() && m.now().Sub(s.LastRestart) < m.cfg.RestartCooldown {
		return
	}

	m.log.Warn().Stringer(logging.CameraStateKey, st).Msg("camera feed stalled")
	if err := m.restart(ctx, ReasonWatchdog); err != nil {
		m.log.Error().Err(err).Msg("watchdog restart failed")
	}
}

// Run checks the feed every WatchdogInterval until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckFeed(ctx)
		}
	}
}

// activate builds and starts a source for a new session. Callers hold restartMu.
func (m *Manager) activate(ctx context.Context, attempts int, lastRestart time.Time) error {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.session = Session{ID: id, Active: true, Attempts: attempts, LastRestart: lastRestart}
	ev := m.setStateLocked(Starting)
	m.mu.Unlock()
	m.emit(ev)

	src, err := m.factory(m.handlerFor(id))
	if err == nil {
		if err = src.Start(ctx); err != nil {
			src.Stop()
		}
	}

	m.mu.Lock()
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
		m.lastErr = err
		ev = m.setStateLocked(Failed)
		ev.Err = err
		m.mu.Unlock()

		m.log.Error().Err(err).Uint64("session", id).Msg("camera failed to start")
		m.emit(ev)
		return err
	}
	m.source = src
	m.lastErr = nil
	ev = m.setStateLocked(Running)
	m.mu.Unlock()

	m.log.Info().Uint64("session", id).Int(logging.AttemptKey, attempts).Msg("camera running")
	m.emit(ev)
	return nil
}

// teardown stops the current source and retires its session ID so late frames
// from it are ignored. Callers hold restartMu.
func (m *Manager) teardown() {
	m.frameMu.Lock()
	m.mu.Lock()
	src := m.source
	m.source = nil
	m.session.ID = 0
	m.frameMu.Unlock()
	var ev Event
	changed := m.state != Stopped
	if changed {
		ev = m.setStateLocked(Stopped)
	}
	m.mu.Unlock()

	if src != nil {
		if err := src.Stop(); err != nil {
			m.log.Warn().Err(err).Msg("camera source stop failed")
		}
	}
	if changed {
		m.emit(ev)
	}
}

func (m *Manager) handlerFor(id uint64) FrameHandler {
	return func(hand *detector.HandLandmarks) {
		m.frameMu.RLock()
		defer m.frameMu.RUnlock()

		m.mu.Lock()
		current := m.session.ID == id
		m.mu.Unlock()
		if current && m.onFrame != nil {
			m.onFrame(hand)
		}
	}
}

func (m *Manager) setStateLocked(s State) Event {
	m.state = s
	return Event{Type: EventStateChanged, State: s, Session: m.session}
}

func (m *Manager) emit(ev Event) {
	m.mu.Lock()
	observers := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	for _, o := range observers {
		o(ev)
	}
}
