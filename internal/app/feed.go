package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ayusman/handcricket/internal/camera"
	"github.com/ayusman/handcricket/internal/capture"
	"github.com/ayusman/handcricket/internal/detector"
)

// Feed timing defaults.
const (
	// DefaultProcessFPS caps detector runs while the player is moving.
	DefaultProcessFPS = 15
	// DefaultIdleFPS is the sampling rate while the scene is still.
	DefaultIdleFPS = 5
	// DefaultStallTimeout is how long without a readable frame before the feed
	// reports itself as not running.
	DefaultStallTimeout = 3 * time.Second
)

// FeedConfig describes one camera feed.
type FeedConfig struct {
	Camera   capture.Camera
	Detector detector.Detector
	// Motion gates detection on scene changes. Nil runs the detector on every sample.
	Motion       *capture.MotionDetector
	ProcessFPS   int
	IdleFPS      int
	IdleTimeout  time.Duration
	StallTimeout time.Duration
	Now          func() time.Time
	Logger       zerolog.Logger
}

// Feed is the production landmark source: it reads the camera, samples at the
// idle rate until motion is seen, then runs the detector at up to ProcessFPS and
// hands the primary hand of each frame to its handler.
type Feed struct {
	cfg     FeedConfig
	onFrame camera.FrameHandler
	now     func() time.Time
	log     zerolog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	lastFrame time.Time
}

// NewFeed creates a stopped feed. Zero rates and timeouts take their defaults.
func NewFeed(cfg FeedConfig, onFrame camera.FrameHandler) *Feed {
	if cfg.ProcessFPS <= 0 {
		cfg.ProcessFPS = DefaultProcessFPS
	}
	if cfg.IdleFPS <= 0 || cfg.IdleFPS > cfg.ProcessFPS {
		cfg.IdleFPS = min(DefaultIdleFPS, cfg.ProcessFPS)
	}
	if cfg.StallTimeout <= 0 {
		cfg.StallTimeout = DefaultStallTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Feed{cfg: cfg, onFrame: onFrame, now: now, log: cfg.Logger}
}

// FeedFactory returns a camera.Factory that builds a feed per session from build.
// build runs once per session so a restarted camera gets a fresh device handle.
func FeedFactory(build func() (FeedConfig, error)) camera.Factory {
	return func(onFrame camera.FrameHandler) (camera.Source, error) {
		cfg, err := build()
		if err != nil {
			return nil, err
		}
		return NewFeed(cfg, onFrame), nil
	}
}

// Start opens the camera and begins processing. The loop runs until Stop or
// until ctx is cancelled.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.done != nil {
		return nil
	}
	if f.cfg.Camera == nil {
		return errors.New("feed has no camera")
	}
	if err := f.cfg.Camera.Open(); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	f.lastFrame = f.now()

	go f.run(loopCtx, f.done)
	f.log.Debug().Int("processFPS", f.cfg.ProcessFPS).Int("idleFPS", f.cfg.IdleFPS).Msg("feed started")
	return nil
}

// Stop ends the loop, waits for it and releases the camera.
func (f *Feed) Stop() error {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if f.cfg.Motion != nil {
		f.cfg.Motion.Reset()
	}
	return f.cfg.Camera.Close()
}

// Running reports whether the loop is alive and a frame was read recently.
func (f *Feed) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.done == nil {
		return false
	}
	select {
	case <-f.done:
		return false
	default:
	}
	return f.now().Sub(f.lastFrame) < f.cfg.StallTimeout
}

func (f *Feed) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	gate := capture.NewActivityGate(f.cfg.IdleTimeout)
	active := f.cfg.Motion == nil
	limit := rate.Limit(f.cfg.IdleFPS)
	if active {
		limit = rate.Limit(f.cfg.ProcessFPS)
	}
	limiter := rate.NewLimiter(limit, 1)
	f.cfg.Camera.SetFPS(int(limit))

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		frame, err := f.cfg.Camera.ReadFrame()
		if err != nil {
			f.log.Debug().Err(err).Msg("frame read failed")
			continue
		}
		f.mu.Lock()
		f.lastFrame = f.now()
		f.mu.Unlock()

		if f.cfg.Motion != nil {
			moving, _ := f.cfg.Motion.Detect(frame)
			var changed bool
			if active, changed = gate.Update(moving, f.now()); changed {
				fps := f.cfg.IdleFPS
				if active {
					fps = f.cfg.ProcessFPS
				}
				limiter.SetLimit(rate.Limit(fps))
				f.cfg.Camera.SetFPS(fps)
				f.log.Debug().Bool("active", active).Int("fps", fps).Msg("feed rate changed")
			}
		}

		if !active || f.cfg.Detector == nil {
			frame.Close()
			continue
		}

		hands, err := f.cfg.Detector.Detect(frame)
		frame.Close()
		if err != nil {
			f.log.Warn().Err(err).Msg("hand detection failed")
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if f.onFrame != nil {
			f.onFrame(detector.Primary(hands))
		}
	}
}
