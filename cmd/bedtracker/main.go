package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/bedtracker/internal/config"
	"github.com/ehr/bedtracker/internal/domain/bed"
	"github.com/ehr/bedtracker/internal/platform/metrics"
	"github.com/ehr/bedtracker/internal/platform/middleware"
	"github.com/ehr/bedtracker/internal/platform/reporting"
	"github.com/ehr/bedtracker/internal/platform/scheduling"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "bedtracker",
		Short:        "Hospital bed occupancy and clinical history tracker",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(shellCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the bed tracker API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, newLogger(cfg, os.Stdout))
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger writes JSON lines, or human-readable lines in development.
func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	lvl, err := cfg.Level()
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

func newBedService(cfg *config.Config, logger zerolog.Logger) (*bed.Service, error) {
	reg, err := bed.NewRegistry(cfg.BedCount)
	if err != nil {
		return nil, err
	}
	scope, err := bed.ParseScope(cfg.ReportScope)
	if err != nil {
		return nil, err
	}
	svc := bed.NewService(reg, cfg.MedicalServices, logger)
	svc.SetDefaultScope(scope)
	return svc, nil
}

// newServer builds the echo instance with middleware and routes; it does not
// start listening.
func newServer(cfg *config.Config, logger zerolog.Logger, svc *bed.Service, collector *metrics.Collector, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(collector.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"version": version,
			"beds":    svc.TotalBeds(),
		})
	})
	e.GET("/metrics", metrics.Handler(gatherer))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	apiV1.Use(middleware.RequestTimeout(30 * time.Second))

	bed.NewHandler(svc).RegisterRoutes(apiV1)
	reporting.NewHandler(svc).RegisterRoutes(apiV1)

	return e
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	svc, err := newBedService(cfg, logger)
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.New(promReg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	svc.SetRecorder(collector)

	var census *scheduling.Census
	if cfg.CensusEnabled() {
		census, err = scheduling.NewCensus(cfg.CensusSchedule, svc, collector, logger)
		if err != nil {
			return err
		}
		census.Start()
	}

	e := newServer(cfg, logger, svc, collector, promReg)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().
			Str("addr", addr).
			Int("beds", cfg.BedCount).
			Strs("services", cfg.MedicalServices).
			Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if census != nil {
		if err := census.Stop(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("census scheduler did not stop in time")
		}
	}
	logger.Info().Msg("server stopped")
	return nil
}
