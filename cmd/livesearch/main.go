// Package main implements the entry point for the LiveSearch server.
// LiveSearch is a websocket gateway that streams search results in
// batches and pushes live document update notifications to matching
// subscribers.
package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/c360/livesearch/config"
	"github.com/c360/livesearch/errors"
	"github.com/c360/livesearch/gateway/websocket"
	"github.com/c360/livesearch/metric"
	"github.com/c360/livesearch/natsclient"
	"github.com/c360/livesearch/notify"
	"github.com/c360/livesearch/registry"
	"github.com/c360/livesearch/search"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "livesearch"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Run application with proper error handling
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load and validate configuration
	cfg, err := loadConfiguration(cliCfg)
	if err != nil {
		return err
	}

	logger := refreshLogger(cliCfg, cfg)

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	app, err := newApplication(cfg, cliCfg, logger)
	if err != nil {
		return fmt.Errorf("wire application: %w", err)
	}

	return runWithSignalHandling(app, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	slog.SetDefault(setupLogger(cliCfg.LogLevel, cliCfg.LogFormat))

	slog.Info("Starting LiveSearch (streaming search gateway)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, false, nil
}

// loadConfiguration loads and validates configuration
func loadConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	loader.EnableValidation(true)
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// refreshLogger rebuilds the process logger from config file values for any
// logging flag the command line did not set explicitly.
func refreshLogger(cliCfg *CLIConfig, cfg *config.Config) *slog.Logger {
	level := cliCfg.LogLevel
	format := cliCfg.LogFormat
	if !cliCfg.FlagWasSet("log-level") && cfg.Logging.Level != "" {
		level = cfg.Logging.Level
	}
	if !cliCfg.FlagWasSet("log-format") && cfg.Logging.Format != "" {
		format = cfg.Logging.Format
	}

	logger := setupLogger(level, format)
	slog.SetDefault(logger)
	return logger
}

// application owns the wired components and their start and stop order.
type application struct {
	cfg    *config.Config
	logger *slog.Logger

	metricsRegistry *metric.MetricsRegistry
	metricsServer   *metric.Server
	registry        *registry.Registry
	engine          *search.MemoryEngine
	notifier        *notify.Notifier
	natsClient      *natsclient.Client
	natsSource      *notify.NATSSource
	gateway         *websocket.Server

	corpusPath    string
	monitorCancel context.CancelFunc
}

// newApplication wires every component without starting anything.
func newApplication(cfg *config.Config, cliCfg *CLIConfig, logger *slog.Logger) (*application, error) {
	app := &application{
		cfg:        cfg,
		logger:     logger,
		corpusPath: cliCfg.CorpusPath,
	}

	app.metricsRegistry = metric.NewMetricsRegistry()
	if cfg.Metrics.Enabled {
		app.metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, app.metricsRegistry)
	}

	reg, err := registry.NewRegistry(
		registry.WithLogger(logger),
		registry.WithMetrics(app.metricsRegistry),
	)
	if err != nil {
		return nil, fmt.Errorf("create subscription registry: %w", err)
	}
	app.registry = reg

	app.engine = search.NewMemoryEngine(search.WithMaxResults(cfg.Search.MaxResults))

	notifier, err := notify.NewNotifier(reg,
		notify.WithBufferCapacity(cfg.NATS.BufferCapacity),
		notify.WithLogger(logger),
		notify.WithMetrics(app.metricsRegistry),
	)
	if err != nil {
		return nil, fmt.Errorf("create notifier: %w", err)
	}
	app.notifier = notifier

	if cfg.NATS.Enabled {
		client, err := buildNATSClient(cfg, app.metricsRegistry.CoreMetrics())
		if err != nil {
			return nil, fmt.Errorf("create NATS client: %w", err)
		}
		app.natsClient = client
		app.natsSource = notify.NewNATSSource(client, notifier, cfg.NATS.Subjects,
			notify.WithSourceLogger(logger))
	}

	gw, err := websocket.NewServer(*cfg, app.engine, reg,
		websocket.WithLogger(logger),
		websocket.WithMetrics(app.metricsRegistry),
	)
	if err != nil {
		return nil, fmt.Errorf("create websocket server: %w", err)
	}
	app.gateway = gw

	return app, nil
}

// buildNATSClient creates the NATS client with reconnect and health metrics
// wired into the core metrics collectors.
func buildNATSClient(cfg *config.Config, core *metric.Metrics) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithName(appName),
		natsclient.WithReconnectCallback(func() {
			core.RecordNATSReconnect()
		}),
		natsclient.WithHealthChangeCallback(func(healthy bool) {
			core.RecordNATSStatus(healthy)
		}),
	}
	if cfg.NATS.MaxReconnects != 0 {
		opts = append(opts, natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects))
	}
	if cfg.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.NATS.ReconnectWait))
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}

	return natsclient.NewClient(strings.Join(cfg.NATS.URLs, ","), opts...)
}

// start brings components up in dependency order: metrics first so health
// is visible, then the event pipeline, then the client-facing gateway.
func (a *application) start(ctx context.Context) error {
	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.Start(); err != nil {
				a.logger.Error("Metrics server failed", "error", err)
			}
		}()
		slog.Info("Metrics server listening",
			"port", a.cfg.Metrics.Port,
			"path", a.cfg.Metrics.Path)
	}

	if a.natsClient != nil {
		slog.Info("Connecting to NATS", "urls", a.cfg.NATS.URLs)
		if err := a.natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}

		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := a.natsClient.WaitForConnection(connCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("NATS connection timeout: %w", err)
		}
	}

	// The notifier outlives the signal context; it stops in stop().
	if err := a.notifier.Start(context.Background()); err != nil {
		return fmt.Errorf("start notifier: %w", err)
	}

	if err := a.seedCorpus(); err != nil {
		return fmt.Errorf("seed corpus: %w", err)
	}

	if a.natsSource != nil {
		if err := a.natsSource.Start(ctx); err != nil {
			return fmt.Errorf("subscribe to document events: %w", err)
		}
	}

	if err := a.gateway.Start(ctx); err != nil {
		return fmt.Errorf("start websocket server: %w", err)
	}

	if a.natsClient != nil {
		monitorCtx, cancel := context.WithCancel(context.Background())
		a.monitorCancel = cancel
		go a.monitorNATS(monitorCtx)
	}

	return nil
}

// monitorNATS samples connection round trip time into the core metrics.
func (a *application) monitorNATS(ctx context.Context) {
	core := a.metricsRegistry.CoreMetrics()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if rtt, err := a.natsClient.RTT(); err == nil {
				core.RecordNATSRTT(rtt)
			}
		}
	}
}

// seedCorpus indexes an initial document corpus through the indexer so the
// notification pipeline sees the documents the way live updates arrive.
func (a *application) seedCorpus() error {
	if a.corpusPath == "" {
		return nil
	}

	docs, err := loadCorpus(a.corpusPath)
	if err != nil {
		return err
	}

	indexer := notify.NewIndexer(a.engine, a.notifier)
	for _, doc := range docs {
		if err := indexer.Upsert(doc); err != nil {
			return fmt.Errorf("index document %s: %w", doc.ID, err)
		}
	}

	slog.Info("Corpus indexed", "documents", len(docs), "path", a.corpusPath)
	return nil
}

func loadCorpus(path string) ([]search.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var docs []search.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	return docs, nil
}

// stop tears components down in reverse order of start. All errors are
// logged; the first one is returned.
func (a *application) stop(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var firstErr error

	if a.monitorCancel != nil {
		a.monitorCancel()
	}

	if err := a.gateway.Stop(ctx); err != nil {
		slog.Error("Error stopping websocket server", "error", err)
		firstErr = err
	}

	if err := a.notifier.Stop(ctx); err != nil && !stderrors.Is(err, errors.ErrNotStarted) {
		slog.Error("Error stopping notifier", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if a.natsClient != nil {
		if err := a.natsClient.Close(ctx); err != nil {
			slog.Error("Error closing NATS client", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Stop(); err != nil {
			slog.Error("Error stopping metrics server", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// runWithSignalHandling starts the application and blocks until a shutdown
// signal arrives, then stops everything within the shutdown timeout.
func runWithSignalHandling(app *application, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := app.start(signalCtx); err != nil {
		_ = app.stop(shutdownTimeout)
		return fmt.Errorf("start application: %w", err)
	}

	slog.Info("LiveSearch started",
		"address", app.gateway.Address(),
		"path", app.cfg.Server.Path,
		"nats", app.cfg.NATS.Enabled)

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	if err := app.stop(shutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("LiveSearch shutdown complete")
	return nil
}
