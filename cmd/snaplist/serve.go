package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/odvcencio/snaplist/pkg/api"
	"github.com/odvcencio/snaplist/pkg/automation"
	"github.com/odvcencio/snaplist/pkg/browser"
	"github.com/odvcencio/snaplist/pkg/browser/adapters/chrome"
	"github.com/odvcencio/snaplist/pkg/browser/adapters/sim"
	"github.com/odvcencio/snaplist/pkg/bus"
	"github.com/odvcencio/snaplist/pkg/config"
	"github.com/odvcencio/snaplist/pkg/marketplace"
	"github.com/odvcencio/snaplist/pkg/observability"
	"github.com/odvcencio/snaplist/pkg/session"
	"github.com/odvcencio/snaplist/pkg/storage"
)

const (
	envSimEmail    = "SNAPLIST_SIM_EMAIL"
	envSimPassword = "SNAPLIST_SIM_PASSWORD"

	defaultSimEmail    = "demo@snaplist.local"
	defaultSimPassword = "demo"
)

// serveLoadConfigFn lets tests supply configuration without touching $HOME.
var serveLoadConfigFn = func(path string) (*config.Config, error) {
	if strings.TrimSpace(path) != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func runServeCommand(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a config file (default: ~/.snaplist/config.yaml then ./.snaplist/config.yaml)")
	bind := fs.String("bind", "", "address to bind the HTTP server")
	engine := fs.String("engine", "", "browser engine: chromedp or sim")
	headed := fs.Bool("headed", false, "show the browser window")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	var origins []string
	fs.Var(&stringListValue{target: &origins}, "allow-origin", "allowed CORS origin (repeatable, accepts comma-separated list)")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}
	if fs.NArg() > 0 {
		return withExitCode(fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " ")), exitUsage)
	}

	cfg, err := serveLoadConfigFn(*configPath)
	if err != nil {
		return withExitCode(err, exitConfig)
	}
	if v := strings.TrimSpace(*bind); v != "" {
		cfg.Server.Bind = v
	}
	if v := strings.TrimSpace(*engine); v != "" {
		cfg.Browser.Engine = v
	}
	if *headed {
		cfg.Browser.Headless = false
	}
	if v := strings.TrimSpace(*logLevel); v != "" {
		cfg.Telemetry.LogLevel = v
	}
	if len(origins) > 0 {
		cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, origins...)
	}
	if err := cfg.Validate(); err != nil {
		return withExitCode(err, exitConfig)
	}

	return serve(ctx, cfg, stderr)
}

// serve wires every component and blocks until ctx is cancelled. On the way
// out every live browser session is closed.
func serve(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	logger := observability.NewLoggerTo(logOut, "snaplist", observability.ParseLevel(cfg.Telemetry.LogLevel))
	for _, warning := range cfg.ValidationWarnings() {
		logger.Warn("config warning", slog.String("detail", warning))
	}

	if cfg.Telemetry.Tracing {
		tp, err := observability.NewTracerProvider("snaplist", version, logOut)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	events, err := bus.Open(bus.Config{
		Driver:  cfg.Bus.Driver,
		URL:     cfg.Bus.URL,
		Name:    cfg.Bus.Name,
		Timeout: 10 * time.Second,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("open bus: %w", err)
	}
	defer events.Close()
	store.AddObserver(bus.NewRelay(events, cfg.Bus.SubjectPrefix, logger))

	metrics := browser.NewMetrics()
	runtime, err := newBrowserRuntime(cfg.Browser, metrics)
	if err != nil {
		return withExitCode(fmt.Errorf("init browser runtime: %w", err), exitConfig)
	}
	defer runtime.Close()

	registry := session.NewRegistry(session.RegistryConfig{
		Runtime: runtime,
		SessionTemplate: browser.SessionConfig{
			Viewport:  browser.Viewport{Width: cfg.Browser.ViewportWidth, Height: cfg.Browser.ViewportHeight},
			UserAgent: cfg.Browser.UserAgent,
			Locale:    cfg.Browser.Locale,
		},
		MaxSessions:     cfg.Registry.MaxSessions,
		IdleTimeout:     cfg.Registry.IdleTimeout,
		CleanupInterval: cfg.Registry.CleanupInterval,
		CloseTimeout:    cfg.Browser.CloseGrace,
		Logger:          logger,
		Metrics:         metrics,
		OnEvent:         automation.SessionEventRecorder(store, logger),
	})
	registry.Start(ctx)
	defer registry.Stop()

	catalog, err := marketplace.NewCatalogStore(cfg.Marketplace.CatalogPath, logger)
	if err != nil {
		return withExitCode(fmt.Errorf("load selector catalog: %w", err), exitConfig)
	}
	if cfg.Marketplace.WatchCatalog {
		if err := catalog.Watch(ctx); err != nil {
			logger.Warn("catalog watch disabled", slog.String("error", err.Error()))
		}
	}
	category, err := marketplace.CategoryStrategyByName(cfg.Marketplace.CategoryStrategy)
	if err != nil {
		return withExitCode(err, exitConfig)
	}

	svc := automation.NewService(automation.Config{
		Registry:      registry,
		Authenticator: marketplace.NewAuthenticator(catalog, nil, cfg.Marketplace.LoginTimeout, logger),
		Submitter: marketplace.NewSubmitter(marketplace.SubmitterConfig{
			Catalog:       catalog,
			Images:        marketplace.NewHTTPImageFetcher(cfg.Marketplace.ImageFetchTimeout, cfg.Marketplace.MaxImageBytes),
			Category:      category,
			ReadyTimeout:  cfg.Marketplace.ReadyTimeout,
			SettleTimeout: cfg.Marketplace.SettleTimeout,
			Logger:        logger,
		}),
		Catalog:                catalog,
		Store:                  store,
		LoginAttemptsPerMinute: cfg.Marketplace.LoginAttemptsPerMinute,
		LoginBurst:             cfg.Marketplace.LoginBurst,
		Logger:                 logger,
	})

	server := api.NewServer(api.Config{
		Bind:            cfg.Server.Bind,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Service:         svc,
		Events:          events,
		SubjectPrefix:   cfg.Bus.SubjectPrefix,
		Logger:          logger,
	})

	logger.Info("snaplist starting",
		slog.String("version", version),
		slog.String("bind", cfg.Server.Bind),
		slog.String("engine", cfg.Browser.Engine),
	)
	serveErr := server.Serve(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+cfg.Browser.CloseGrace)
	defer cancel()
	if err := registry.CloseAll(closeCtx); err != nil {
		logger.Warn("closing sessions failed", slog.String("error", err.Error()))
	}
	logger.Info("snaplist stopped")
	return serveErr
}

func newBrowserRuntime(cfg config.BrowserConfig, metrics *browser.Metrics) (browser.Runtime, error) {
	switch cfg.Engine {
	case config.EngineSim:
		email := envOr(envSimEmail, defaultSimEmail)
		password := envOr(envSimPassword, defaultSimPassword)
		return sim.NewRuntime(sim.DefaultMarketplace(email, password)), nil
	case config.EngineChromedp, "":
		return chrome.NewRuntime(chrome.Config{
			ExecPath:          cfg.ExecPath,
			Headless:          cfg.Headless,
			NoSandbox:         cfg.NoSandbox,
			ProfileRoot:       cfg.ProfileRoot,
			LaunchTimeout:     cfg.LaunchTimeout,
			OperationTimeout:  cfg.OperationTimeout,
			NavigationTimeout: cfg.NavigationTimeout,
			CloseGrace:        cfg.CloseGrace,
		}, metrics)
	default:
		return nil, fmt.Errorf("unknown browser engine %q", cfg.Engine)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

type stringListValue struct {
	target *[]string
}

func (s *stringListValue) String() string {
	if s == nil || s.target == nil {
		return ""
	}
	return strings.Join(*s.target, ",")
}

func (s *stringListValue) Set(value string) error {
	if s.target == nil {
		return fmt.Errorf("no target slice configured")
	}
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			*s.target = append(*s.target, trimmed)
		}
	}
	return nil
}
