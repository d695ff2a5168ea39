package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/ayusman/handcricket/internal/app"
	"github.com/ayusman/handcricket/internal/camera"
	"github.com/ayusman/handcricket/internal/capture"
	"github.com/ayusman/handcricket/internal/config"
	"github.com/ayusman/handcricket/internal/detector"
	"github.com/ayusman/handcricket/internal/gesture"
	"github.com/ayusman/handcricket/internal/logging"
	"github.com/ayusman/handcricket/internal/match"
	"github.com/ayusman/handcricket/internal/matchscript"
	"github.com/ayusman/handcricket/internal/metrics"
	"github.com/ayusman/handcricket/internal/opponent"
	"github.com/ayusman/handcricket/internal/plugin"
	"github.com/ayusman/handcricket/internal/server"
	"github.com/ayusman/handcricket/internal/store"
	"github.com/ayusman/handcricket/internal/tray"
)

func main() {
	replay := flag.String("replay", "", "replay a YAML match script and exit")
	flag.Parse()

	log := logging.New("handcricket", nil)

	if *replay != "" {
		if err := runReplay(*replay); err != nil {
			log.Fatal().Err(err).Str("script", *replay).Msg("replay failed")
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.SetLevel(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
}

func runReplay(path string) error {
	s, err := matchscript.Load(path)
	if err != nil {
		return err
	}
	e := match.NewEngine(match.Config{})
	if err := matchscript.Run(e, s); err != nil {
		return err
	}
	st := e.State()
	fmt.Printf("%s: ok (phase %s, you %d - %d AI)\n", s.Name, st.Phase, st.PlayerScore, st.AIScore)
	return nil
}

func run(cfg config.Config, log zerolog.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var det detector.Detector
	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		det = mp
		log.Info().Msg("using MediaPipe hand detection")
	} else {
		log.Warn().Err(err).Msg("MediaPipe not available, using mock detector")
		det = detector.NewMockDetector()
	}
	defer det.Close()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	game, err := app.New(app.Config{
		Engine: match.NewEngine(match.Config{
			DisplayHold: cfg.DisplayHold,
			Rand:        rand.New(rand.NewSource(seed)),
		}),
		Stabilizer: gesture.NewStabilizer(gesture.Config{
			HistorySize: cfg.HistorySize,
			Threshold:   cfg.ConfidenceThreshold,
			Cooldown:    cfg.GestureCooldown,
			NoHandReset: cfg.NoHandReset,
		}),
		Provider: opponent.NewProvider(opponent.ProviderConfig{
			Strategy:      buildStrategy(cfg, log),
			Heuristic:     opponent.NewHeuristic(seed + 1),
			FallbackDelay: cfg.FallbackDelay,
			Logger:        logging.New("opponent", nil),
		}),
		CameraFactory: app.FeedFactory(func() (app.FeedConfig, error) {
			return app.FeedConfig{
				Camera:     capture.NewCamera(capture.Config{DeviceID: cfg.CameraID, FPS: cfg.ProcessFPS, Mirror: true}),
				Detector:   det,
				Motion:     capture.NewMotionDetector(cfg.MotionThreshold),
				ProcessFPS: cfg.ProcessFPS,
				IdleFPS:    cfg.IdleFPS,
				Logger:     logging.New("feed", nil),
			}, nil
		}),
		Camera: camera.Config{
			WatchdogInterval: cfg.WatchdogInterval,
			MaxAutoRestarts:  cfg.MaxAutoRestarts,
			RestartCooldown:  cfg.RestartCooldown,
		},
		Store:             st,
		Metrics:           m,
		CalibrationPeriod: cfg.CalibrationPeriod,
		Logger:            logging.New("game", nil),
	})
	if err != nil {
		return err
	}

	webDir := findWebDir(cfg)
	if webDir != "" {
		log.Info().Str("dir", webDir).Msg("serving static files")
	}
	srv := server.New(server.Config{
		StaticDir: webDir,
		Game:      game,
		Store:     st,
		Gatherer:  reg,
		Logger:    logging.New("server", nil),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := game.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("starting without a camera feed")
	}
	defer game.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx, cfg.Addr) }()

	if cfg.Tray {
		t := tray.New(game.GesturesEnabled())
		t.OnToggle(func(enabled bool) {
			if err := game.SetGesturesEnabled(ctx, enabled); err != nil {
				log.Error().Err(err).Msg("toggle gestures")
			}
		})
		t.OnRestartCamera(func() {
			if err := game.RestartCamera(ctx); err != nil {
				log.Error().Err(err).Msg("restart camera")
			}
		})
		t.OnQuit(stop)
		game.Subscribe(t.Update)

		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		// The tray owns the main thread until quit.
		t.Run()
		stop()
	}

	err = <-errCh
	log.Info().Msg("shutting down")
	return err
}

func buildStrategy(cfg config.Config, log zerolog.Logger) opponent.Strategy {
	if cfg.StrategyURL != "" {
		log.Info().Str(logging.StrategyKey, string(opponent.SourceRemote)).Str("url", cfg.StrategyURL).Msg("opponent strategy")
		return opponent.NewRemoteStrategy(cfg.StrategyURL, cfg.StrategyAPIKey, cfg.StrategyTimeout)
	}
	if cfg.StrategyPlugin == "" {
		return nil
	}

	mgr := plugin.NewManager(cfg.PluginDir, logging.New("plugins", nil))
	if err := mgr.Discover(); err != nil {
		log.Warn().Err(err).Msg("plugin discovery failed, using built-in opponent")
		return nil
	}
	p, err := mgr.ForStrategy(cfg.StrategyPlugin)
	if err != nil {
		log.Warn().Err(err).Str(logging.StrategyKey, cfg.StrategyPlugin).Msg("strategy plugin not found, using built-in opponent")
		return nil
	}
	log.Info().Str(logging.StrategyKey, cfg.StrategyPlugin).Str("plugin", p.Manifest.Name).Msg("opponent strategy")
	return opponent.NewPluginStrategy(plugin.NewExecutor(cfg.StrategyTimeout), p, cfg.StrategyPlugin)
}

// findWebDir returns the configured web directory, or the first of "web",
// "../web" and <DataDir>/web that exists.
func findWebDir(cfg config.Config) string {
	candidates := []string{"web", "../web", filepath.Join(cfg.DataDir, "web")}
	if cfg.WebDir != "" {
		candidates = []string{cfg.WebDir}
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
