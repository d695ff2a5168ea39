// Package app wires the camera feed, gesture stabilizer, match engine and
// opponent into one playable game.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/handcricket/internal/camera"
	"github.com/ayusman/handcricket/internal/detector"
	"github.com/ayusman/handcricket/internal/gesture"
	"github.com/ayusman/handcricket/internal/logging"
	"github.com/ayusman/handcricket/internal/match"
	"github.com/ayusman/handcricket/internal/metrics"
	"github.com/ayusman/handcricket/internal/opponent"
	"github.com/ayusman/handcricket/internal/store"
)

// GesturesEnabledKey is the settings key for the gesture toggle.
const GesturesEnabledKey = "gestures_enabled"

// DefaultCalibrationPeriod is how long gestures stay locked after the camera starts.
const DefaultCalibrationPeriod = time.Second

// LockReason explains why gestures are not accepted. Empty means unlocked.
type LockReason string

const (
	LockNone        LockReason = ""
	LockDisabled    LockReason = "disabled"
	LockCamera      LockReason = "camera"
	LockCalibrating LockReason = "calibrating"
	LockBallPending LockReason = "ballPending"
	LockSettling    LockReason = "settling"
	LockNotInPlay   LockReason = "notInPlay"
)

// Config holds the collaborators of an App.
type Config struct {
	Engine     *match.Engine
	Stabilizer *gesture.Stabilizer
	Provider   *opponent.Provider
	// CameraFactory builds the landmark source for each camera session.
	CameraFactory camera.Factory
	Camera        camera.Config
	// Store persists finished matches and settings. Optional.
	Store   *store.Store
	Metrics *metrics.Metrics

	CalibrationPeriod time.Duration
	Now               func() time.Time
	Logger            zerolog.Logger
}

// EventKind names the origin of an App event.
type EventKind string

const (
	KindMatch    EventKind = "match"
	KindCamera   EventKind = "camera"
	KindGesture  EventKind = "gesture"
	KindOpponent EventKind = "opponent"
	KindSettings EventKind = "settings"
)

// GestureEvent reports a stabilized symbol.
type GestureEvent struct {
	Symbol gesture.Symbol `json:"symbol"`
}

// OpponentEvent reports where an opponent move came from.
type OpponentEvent struct {
	Move   match.Move      `json:"move"`
	Source opponent.Source `json:"source"`
}

// Event is published to App subscribers.
type Event struct {
	Kind     EventKind      `json:"kind"`
	Match    *match.Event   `json:"match,omitempty"`
	Camera   *camera.Event  `json:"camera,omitempty"`
	Gesture  *GestureEvent  `json:"gesture,omitempty"`
	Opponent *OpponentEvent `json:"opponent,omitempty"`
	Status   *Status        `json:"status,omitempty"`
}

// Status is a combined snapshot for clients.
type Status struct {
	Match           match.State      `json:"match"`
	Camera          camera.Status    `json:"camera"`
	Gesture         gesture.Snapshot `json:"gesture"`
	GesturesEnabled bool             `json:"gesturesEnabled"`
	Lock            LockReason       `json:"lock,omitempty"`
	LastSymbol      gesture.Symbol   `json:"lastSymbol"`
}

// App is the game: frames come in through the camera manager, stabilized
// symbols become player moves, and every ball goes through PlayBall.
type App struct {
	engine     *match.Engine
	stabilizer *gesture.Stabilizer
	provider   *opponent.Provider
	cameras    *camera.Manager
	store      *store.Store
	metrics    *metrics.Metrics
	now        func() time.Time
	log        zerolog.Logger
	calibrate  time.Duration

	mu             sync.Mutex
	enabled        bool
	pending        bool
	calibrateUntil time.Time
	lastSymbol     gesture.Symbol
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	subscribers    []func(Event)
}

// New creates an App. Engine, Stabilizer, Provider and CameraFactory are required.
func New(cfg Config) (*App, error) {
	if cfg.Engine == nil || cfg.Stabilizer == nil || cfg.Provider == nil || cfg.CameraFactory == nil {
		return nil, errors.New("app: engine, stabilizer, provider and camera factory are required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	calibrate := cfg.CalibrationPeriod
	if calibrate < 0 {
		calibrate = 0
	}

	a := &App{
		engine:     cfg.Engine,
		stabilizer: cfg.Stabilizer,
		provider:   cfg.Provider,
		store:      cfg.Store,
		metrics:    cfg.Metrics,
		now:        now,
		log:        cfg.Logger,
		calibrate:  calibrate,
		enabled:    true,
		ctx:        context.Background(),
	}
	if a.store != nil {
		a.enabled = a.store.Settings().Bool(GesturesEnabledKey, true)
	}

	camCfg := cfg.Camera
	camCfg.Logger = cfg.Logger
	a.cameras = camera.NewManager(cfg.CameraFactory, a.handleFrame, camCfg)
	a.cameras.Subscribe(a.onCameraEvent)
	a.engine.Subscribe(a.onMatchEvent)
	return a, nil
}

// Start activates the camera when gestures are enabled and runs the watchdog
// until ctx is done or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.cancel != nil {
		a.mu.Unlock()
		return nil
	}
	a.ctx, a.cancel = context.WithCancel(ctx)
	runCtx, enabled := a.ctx, a.enabled
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.cameras.Run(runCtx)
	}()

	if !enabled {
		a.log.Info().Msg("gestures disabled, camera left off")
		return nil
	}
	if err := a.cameras.Activate(runCtx); err != nil {
		// The watchdog keeps retrying within its budget.
		a.log.Error().Err(err).Msg("camera activation failed")
		return err
	}
	return nil
}

// Stop deactivates the camera and waits for background work.
func (a *App) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.cameras.Deactivate()
	a.wg.Wait()
	a.log.Info().Msg("game stopped")
}

// Subscribe registers fn for every App event. fn must not block.
func (a *App) Subscribe(fn func(Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

func (a *App) publish(ev Event) {
	a.mu.Lock()
	subs := append([]func(Event)(nil), a.subscribers...)
	a.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// Engine returns the match engine.
func (a *App) Engine() *match.Engine { return a.engine }

// Cameras returns the camera manager.
func (a *App) Cameras() *camera.Manager { return a.cameras }

// Store returns the store, which may be nil.
func (a *App) Store() *store.Store { return a.store }

// GesturesEnabled reports the user toggle.
func (a *App) GesturesEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// SetGesturesEnabled turns gesture input on or off, activating or deactivating
// the camera to match, and remembers the choice.
func (a *App) SetGesturesEnabled(ctx context.Context, enabled bool) error {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.Settings().SetBool(GesturesEnabledKey, enabled); err != nil {
			return fmt.Errorf("failed to save gesture setting: %w", err)
		}
	}
	a.stabilizer.Reset()

	var err error
	if enabled {
		err = ctx.Err()
		if err == nil {
			err = a.cameras.Activate(a.runContext())
		}
	} else {
		a.cameras.Deactivate()
	}
	st := a.Status()
	a.publish(Event{Kind: KindSettings, Status: &st})
	return err
}

// RestartCamera restarts the camera on the user's behalf, resetting the
// automatic retry budget.
func (a *App) RestartCamera(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.cameras.Restart(a.runContext(), camera.ReasonUser)
}

// runContext outlives the request that started a camera session; the feed
// stops with the app.
func (a *App) runContext() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctx
}

// Status returns a combined snapshot.
func (a *App) Status() Status {
	ms := a.engine.State()
	cs := a.cameras.Status()

	a.mu.Lock()
	enabled, last := a.enabled, a.lastSymbol
	lock := a.lockReasonLocked(ms, cs.State)
	a.mu.Unlock()

	return Status{
		Match:           ms,
		Camera:          cs,
		Gesture:         a.stabilizer.Snapshot(),
		GesturesEnabled: enabled,
		Lock:            lock,
		LastSymbol:      last,
	}
}

func (a *App) lockReasonLocked(ms match.State, cam camera.State) LockReason {
	switch {
	case !a.enabled:
		return LockDisabled
	case cam != camera.Running:
		return LockCamera
	case a.now().Before(a.calibrateUntil):
		return LockCalibrating
	case a.pending || ms.AwaitingOpponent:
		return LockBallPending
	case ms.PendingReset:
		return LockSettling
	case !ms.InPlay():
		return LockNotInPlay
	}
	return LockNone
}

// handleFrame is the camera manager's frame handler.
func (a *App) handleFrame(hand *detector.HandLandmarks) {
	a.metrics.FrameObserved(hand != nil)

	ms := a.engine.State()
	cam := a.cameras.Status().State

	a.mu.Lock()
	lock := a.lockReasonLocked(ms, cam)
	a.mu.Unlock()
	a.stabilizer.SetLocked(lock != LockNone)

	sym, ok := a.stabilizer.Observe(gesture.Extract(hand), hand != nil)
	if !ok {
		return
	}

	a.mu.Lock()
	if a.pending {
		a.mu.Unlock()
		return
	}
	a.pending = true
	a.lastSymbol = sym
	ctx := a.ctx
	a.mu.Unlock()

	a.metrics.GestureEmitted(int(sym))
	a.log.Debug().Stringer(logging.SymbolKey, sym).Msg("gesture")
	a.publish(Event{Kind: KindGesture, Gesture: &GestureEvent{Symbol: sym}})

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if _, err := a.playBall(ctx, match.Move(sym), true); err != nil {
			a.log.Warn().Err(err).Stringer(logging.SymbolKey, sym).Msg("gesture not played")
		}
	}()
}

// PlayBall plays one ball with the player's move: the move is recorded, the
// opponent chooses, and the ball is resolved.
func (a *App) PlayBall(ctx context.Context, move match.Move) (match.Outcome, error) {
	return a.playBall(ctx, move, false)
}

func (a *App) playBall(ctx context.Context, move match.Move, reserved bool) (match.Outcome, error) {
	if !reserved {
		a.mu.Lock()
		if a.pending {
			a.mu.Unlock()
			return match.Outcome{}, match.ErrBallPending
		}
		a.pending = true
		a.mu.Unlock()
	}
	defer func() {
		a.mu.Lock()
		a.pending = false
		a.mu.Unlock()
	}()

	// The last ball stays on display until the engine settles.
	if a.engine.State().PendingReset {
		return match.Outcome{}, match.ErrBallPending
	}
	if err := a.engine.RecordPlayerMove(move); err != nil {
		return match.Outcome{}, err
	}
	before := a.engine.State()

	opp, src := a.provider.GetMove(ctx, opponent.ContextFrom(before, move))
	a.metrics.OpponentMove(string(src))
	a.publish(Event{Kind: KindOpponent, Opponent: &OpponentEvent{Move: opp, Source: src}})

	// A reset while the opponent was thinking voids this ball.
	if now := a.engine.State(); now.MatchID != before.MatchID || !now.AwaitingOpponent {
		return match.Outcome{}, match.ErrRejected
	}

	out, err := a.engine.ResolveBall(move, opp)
	if err != nil {
		return match.Outcome{}, err
	}
	a.log.Debug().
		Str(logging.MatchIDKey, out.State.MatchID).
		Int(logging.InningsKey, out.Ball.Innings).
		Stringer("player", move).
		Stringer("opponent", opp).
		Str(logging.StrategyKey, string(src)).
		Bool("out", out.Ball.Out).
		Msg("ball resolved")
	return out, nil
}

func (a *App) onMatchEvent(ev match.Event) {
	switch ev.Type {
	case match.EventBall:
		if ev.Ball != nil {
			a.metrics.BallResolved(ev.Ball.Out)
		}
	case match.EventGameOver:
		a.recordSummary(ev.Summary)
	case match.EventReset, match.EventInningsStart, match.EventInningsChange:
		a.stabilizer.Reset()
	}
	a.publish(Event{Kind: KindMatch, Match: &ev})
}

func (a *App) recordSummary(sum *match.Summary) {
	if sum == nil {
		return
	}
	a.metrics.MatchCompleted(string(sum.Result))
	a.log.Info().
		Str(logging.MatchIDKey, sum.MatchID).
		Int("playerScore", sum.FinalPlayerScore).
		Int("aiScore", sum.FinalAIScore).
		Str("result", string(sum.Result)).
		Msg("match finished")

	if a.store == nil {
		return
	}
	if err := a.store.Matches().Save(sum); err != nil {
		a.log.Error().Err(err).Str(logging.MatchIDKey, sum.MatchID).Msg("failed to save match")
	}
}

func (a *App) onCameraEvent(ev camera.Event) {
	switch ev.Type {
	case camera.EventStateChanged:
		a.metrics.SetCameraState(int(ev.State))
		if ev.State == camera.Running {
			a.mu.Lock()
			a.calibrateUntil = a.now().Add(a.calibrate)
			a.mu.Unlock()
			a.stabilizer.Reset()
		}
	case camera.EventRestart:
		a.metrics.CameraRestart(string(ev.Reason))
	}
	a.publish(Event{Kind: KindCamera, Camera: &ev})
}
