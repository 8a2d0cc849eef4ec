// Package main provides the stretchsim simulation server.
//
// By default the binary serves the HTTP control API for a simulated
// stretched storage cluster. The "run" and "validate" subcommands work on
// scenario files without starting a server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yaroslav/stretchsim/pkg/scenario"
	"github.com/yaroslav/stretchsim/server/cmd/stretchsim-server/cmd"
	"github.com/yaroslav/stretchsim/server/internal/api"
	"github.com/yaroslav/stretchsim/server/internal/logging"
	"github.com/yaroslav/stretchsim/server/internal/metrics"
	"github.com/yaroslav/stretchsim/server/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Config holds server configuration from flags and environment variables.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080").
	ListenAddr string

	// ScenarioPath is an optional scenario file; empty runs the default cluster.
	ScenarioPath string

	// TickInterval advances the simulation on its own; zero ticks only on request.
	TickInterval time.Duration

	// Seed overrides the scenario's random seed when non-zero.
	Seed int64

	// RunID identifies this server run.
	RunID string

	// LogLevel is the logging level (debug, info, warn, error).
	LogLevel string

	// LogFormat is the log format (json, console).
	LogFormat string

	// AllowOrigins is comma-separated list of allowed CORS origins.
	AllowOrigins string
}

// parseFlags parses command-line flags and environment variables.
func parseFlags(args []string) (*Config, error) {
	config := &Config{}
	fs := flag.NewFlagSet("stretchsim-server", flag.ContinueOnError)

	var interval, seed string
	fs.StringVar(&config.ListenAddr, "listen", getEnv("STRETCHSIM_LISTEN_ADDR", ":8080"),
		"Address to listen on")
	fs.StringVar(&config.ScenarioPath, "scenario", getEnv("STRETCHSIM_SCENARIO", ""),
		"Path to a scenario YAML file (default: built-in two-site cluster)")
	fs.StringVar(&interval, "tick-interval", getEnv("STRETCHSIM_TICK_INTERVAL", "0s"),
		"Advance one tick per interval, e.g. 500ms (0 disables)")
	fs.StringVar(&seed, "seed", getEnv("STRETCHSIM_SEED", "0"),
		"Random seed override (0 keeps the scenario's seed)")
	fs.StringVar(&config.RunID, "run-id", getEnv("STRETCHSIM_RUN_ID", ""),
		"Run UUID (auto-generated if not provided)")
	fs.StringVar(&config.LogLevel, "log-level", getEnv("STRETCHSIM_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	fs.StringVar(&config.LogFormat, "log-format", getEnv("STRETCHSIM_LOG_FORMAT", "console"),
		"Log format (json, console)")
	fs.StringVar(&config.AllowOrigins, "cors-origins", getEnv("STRETCHSIM_CORS_ORIGINS", ""),
		"Comma-separated list of allowed CORS origins (* for all)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("invalid tick interval %q: %w", interval, err)
	}
	config.TickInterval = d

	if _, err := fmt.Sscan(seed, &config.Seed); err != nil {
		return nil, fmt.Errorf("invalid seed %q: %w", seed, err)
	}
	return config, nil
}

// getEnv retrieves an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// validateConfig validates the server configuration.
func validateConfig(config *Config) error {
	if config.TickInterval < 0 {
		return fmt.Errorf("tick interval must not be negative (got %s)", config.TickInterval)
	}
	if config.TickInterval > 0 && config.TickInterval < 10*time.Millisecond {
		return fmt.Errorf("tick interval must be at least 10ms (got %s)", config.TickInterval)
	}
	if _, err := logging.ParseLevel(config.LogLevel); err != nil {
		return err
	}
	if config.LogFormat != "json" && config.LogFormat != "console" {
		return fmt.Errorf("log format must be json or console (got %q)", config.LogFormat)
	}

	if config.RunID == "" {
		config.RunID = uuid.New().String()
	}
	if _, err := uuid.Parse(config.RunID); err != nil {
		return fmt.Errorf("invalid run ID format: %w", err)
	}
	return nil
}

// loadScenario reads the configured scenario or returns the default one.
func loadScenario(config *Config) (*scenario.Scenario, error) {
	sc := &scenario.Scenario{}
	if config.ScenarioPath != "" {
		var err error
		if sc, err = scenario.Load(config.ScenarioPath); err != nil {
			return nil, err
		}
	}
	if config.Seed != 0 {
		sc.Seed = config.Seed
	}
	return sc, nil
}

// parseCORSOrigins parses the comma-separated CORS origins string.
func parseCORSOrigins(origins string) []string {
	var result []string
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			result = append(result, origin)
		}
	}
	return result
}

func main() {
	if err := execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute(args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "run":
			return cmd.ExecuteRun(args[1:])
		case "validate":
			return cmd.ExecuteValidate(args[1:])
		case "version":
			fmt.Printf("stretchsim-server %s\n", cmd.Version)
			return nil
		}
	}
	return serve(args)
}

func serve(args []string) error {
	config, err := parseFlags(args)
	if err != nil {
		return err
	}
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := logging.NewFromFlags(config.LogLevel, config.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String(logging.FieldRunID, config.RunID))

	sc, err := loadScenario(config)
	if err != nil {
		return err
	}

	logger.Info("starting stretchsim-server",
		zap.String("version", cmd.Version),
		zap.String("listen_addr", config.ListenAddr),
		zap.String("scenario", sc.Name),
		zap.Int64("seed", sc.Seed),
		zap.Duration("tick_interval", config.TickInterval),
		zap.String("log_level", config.LogLevel),
	)

	metrics.MustInit()
	gin.SetMode(gin.ReleaseMode)

	db, err := service.OpenMemoryDB()
	if err != nil {
		return err
	}
	defer db.Close()

	journal, err := service.OpenJournal(db, logger)
	if err != nil {
		return err
	}

	svc, err := service.NewSimulationService(sc, journal, logger)
	if err != nil {
		return err
	}

	var clock *service.Clock
	if config.TickInterval > 0 {
		clock = service.NewClock(svc, config.TickInterval, logger)
	}

	router := api.SetupRouter(&api.RouterConfig{
		Service:      svc,
		Journal:      journal,
		Clock:        clock,
		Logger:       logger,
		RunID:        config.RunID,
		AllowOrigins: parseCORSOrigins(config.AllowOrigins),
	})
	defer router.Close()

	srv := &http.Server{
		Addr:              config.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", config.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if clock != nil {
		g.Go(func() error { return clock.Run(ctx) })
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped", zap.Uint64(logging.FieldTick, svc.CurrentTick()))
	return nil
}
