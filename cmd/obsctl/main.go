package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/obsctl/internal/acquisition"
	"codeberg.org/mutker/obsctl/internal/config"
	"codeberg.org/mutker/obsctl/internal/controlserver"
	"codeberg.org/mutker/obsctl/internal/dashboard"
	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/logger"
	"codeberg.org/mutker/obsctl/internal/metrics"
	"codeberg.org/mutker/obsctl/internal/observatory"
	"codeberg.org/mutker/obsctl/internal/pid"
	"codeberg.org/mutker/obsctl/internal/settings"
	"codeberg.org/mutker/obsctl/internal/state"
	"codeberg.org/mutker/obsctl/internal/weather"
)

const shutdownTimeout = 5 * time.Second

var (
	cfg     *config.Config
	pidFile *pid.File
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	pidFile = pid.New(cfg.PIDFile)
	if err := pidFile.Write(); err != nil {
		logger.Fatal().Err(err).Str("path", pidFile.Path()).Msg("failed to write PID file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
		cleanup()
		os.Exit(1)
	}
	cleanup()
}

func run(ctx context.Context) error {
	geometry, err := openSettings(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := geometry.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close settings")
		}
	}()

	collector, err := metrics.New(nil)
	if err != nil {
		return err
	}

	control, err := controlserver.New(cfg.APIBaseURL, cfg.RequestTimeout)
	if err != nil {
		return err
	}

	var wx weather.Provider
	if cfg.WeatherInterval > 0 && cfg.WeatherURL != "" {
		wx = weather.New(cfg.WeatherURL, cfg.Timezone, cfg.RequestTimeout)
	}

	scheduler := acquisition.NewScheduler(control, wx, acquisition.Options{
		Location:        geometry.Location,
		WeatherInterval: cfg.WeatherInterval,
		Recorder:        collector,
	})

	store := state.NewStore(state.Initial())

	server := dashboard.New(dashboard.Config{
		Addr:     cfg.Listen,
		Store:    store,
		Settings: geometry,
		Control:  control,
		Recorder: collector,
		Metrics:  collector.Handler(),
	})
	store.Subscribe(server.Publish)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErr <- errors.New().Wrap(errors.ErrInitFailed, err)
		}
		close(serverErr)
	}()

	loop := observatory.New(scheduler, state.NewReconciler(cfg.Location()), store, observatory.Options{
		Interval: cfg.Interval,
		Recorder: collector,
	})

	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(loopCtx)
	}()

	logStartup(cfg)

	select {
	case <-ctx.Done():
		err = nil
	case err = <-serverErr:
	}

	stopLoop()
	<-loopDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if stopErr := server.Stop(shutdownCtx); stopErr != nil {
		logger.Error().Err(stopErr).Msg("failed to stop dashboard server")
	}

	return err
}

// openSettings opens the geometry store, in memory when no database is
// configured, and applies the configured preset on top of it.
func openSettings(ctx context.Context) (*settings.Service, error) {
	var repo settings.Repository
	if cfg.SettingsDB == "" {
		logger.Info().Msg("No settings database configured, geometry is kept in memory")
		repo = settings.NewMemoryRepository()
	} else {
		var err error
		repo, err = settings.NewRepository(settings.Config{DBPath: cfg.SettingsDB}, logger.Default())
		if err != nil {
			return nil, err
		}
	}

	// The configured site only seeds a fresh store; afterwards the stored
	// geometry is the single source of the site position.
	svc, err := settings.NewService(ctx, repo, settings.WithSite(cfg.Latitude, cfg.Longitude))
	if err != nil {
		repo.Close()
		return nil, err
	}

	if cfg.GeometryPreset != "" {
		rev, err := svc.Import(ctx, cfg.GeometryPreset)
		if err != nil {
			svc.Close()
			return nil, err
		}
		logger.Info().
			Str("preset", cfg.GeometryPreset).
			Int64("revision", rev.Number).
			Msg("Geometry preset imported")
	}

	return svc, nil
}

func logStartup(p config.Provider) {
	lat, lon := p.GetLocation()
	logger.Info().
		Str("api", p.GetAPIBaseURL()).
		Dur("interval", p.GetInterval()).
		Dur("weather_interval", p.GetWeatherInterval()).
		Float64("latitude", lat).
		Float64("longitude", lon).
		Str("log_level", p.GetLogLevel()).
		Msg("obsctl running")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup() {
	if err := pidFile.Remove(); err != nil {
		logger.Error().Err(err).Msg("failed to remove PID file")
	}
	logger.Info().Msg("Exiting...")
}
