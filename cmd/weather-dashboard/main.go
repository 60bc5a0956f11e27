package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/history"
	"github.com/i474232898/weather-dashboard/internal/logger"
	"github.com/i474232898/weather-dashboard/internal/metrics"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

const serviceName = "weather-dashboard"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	lg := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(lg)

	m := metrics.New()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	owm := providers.NewOpenWeatherProvider(
		providers.HTTPClientConfig{Client: httpClient},
		cfg.APIBaseURL,
		cfg.OpenWeatherAPIKey,
		lg,
	)
	if cfg.OpenWeatherAPIKey == "" {
		lg.Warn().Msg("API_KEY is not set; weather lookups will fail")
	}

	var geocoder weather.Geocoder = owm
	if cfg.Geocoder == config.GeocoderGoogle {
		geocoder = providers.NewGoogleGeocoder(cfg.GoogleAPIKey, lg)
	}

	service := weather.NewService(geocoder, owm, weather.WithLogger(lg))

	store := newHistoryStore(cfg, lg, m)
	m.SetHistoryEntries(len(store.List()))

	// Scheduler that periodically prunes stale history entries.
	sched := scheduler.New(store, cfg.HistoryMaxAge, cfg.HistoryPruneInterval, lg)
	if err := sched.Start(); err != nil {
		lg.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler(lg),
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	httpapi.RegisterSystemRoutes(app, serviceName, m)
	httpapi.RegisterRoutes(app.Group("/api/weather"), service, store, m, lg)

	if httpapi.RegisterStatic(app, cfg.StaticDir) {
		lg.Info().Str("dir", cfg.StaticDir).Msg("serving client bundle")
	}

	go func() {
		lg.Info().Str("port", cfg.Port).Msg("listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("error during shutdown")
	}
}

func newHistoryStore(cfg *config.AppConfig, lg zerolog.Logger, m *metrics.Metrics) history.Store {
	opts := []history.Option{
		history.WithLogger(lg),
		history.WithSizeObserver(m.SetHistoryEntries),
	}
	if cfg.HistoryFile == "" {
		lg.Warn().Msg("HISTORY_FILE is empty; search history is kept in memory")
		return history.NewMemoryStore(opts...)
	}
	lg.Info().Str("path", cfg.HistoryFile).Msg("search history file")
	return history.NewFileStore(cfg.HistoryFile, opts...)
}
