package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/andrei-samofalov/yapas/pkg/cache"
	"github.com/andrei-samofalov/yapas/pkg/cli"
	"github.com/andrei-samofalov/yapas/pkg/config"
	"github.com/andrei-samofalov/yapas/pkg/control"
	"github.com/andrei-samofalov/yapas/pkg/dispatcher"
	"github.com/andrei-samofalov/yapas/pkg/proxy/handlers"
	"github.com/andrei-samofalov/yapas/pkg/render"
	"github.com/andrei-samofalov/yapas/pkg/server"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/logging"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/metrics"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/tracing"
	"github.com/andrei-samofalov/yapas/pkg/upstream"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the yapas proxy server",
	Long: `Start the yapas proxy server with the specified configuration.

The server listens on the configured address and dispatches every request to
the first location whose pattern prefixes its path. SIGINT and SIGTERM drain
in-flight connections and exit; SIGHUP rebinds the listener.

Examples:
  # Start with defaults
  yapas run

  # Start with a config file
  yapas run --config /etc/yapas/yapas.yaml

  # Override listen address
  yapas run --listen 127.0.0.1:8080

  # Validate config without starting server
  yapas run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address (host:port)")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := applyRunOverrides(cfg); err != nil {
		return err
	}

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	printBanner(cmd, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()
	if tracer.Enabled() {
		fmt.Fprintf(out, "✓ Tracing enabled (%s)\n", cfg.Telemetry.Tracing.Endpoint)
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	scheduler := metrics.NewReportScheduler(collector, cfg.Telemetry.Metrics.ReportSchedule)
	if err := scheduler.Start(ctx); err != nil {
		return cli.NewConfigError("telemetry.metrics.report_schedule", err.Error())
	}
	defer scheduler.Stop()

	cacheOpts := cache.Options{
		Name:         "static",
		TTL:          cfg.Cache.TTL,
		MaxEntries:   cfg.Cache.MaxEntries,
		RefreshOnHit: cfg.Cache.RefreshOnHit,
	}
	if collector.Enabled() {
		cacheOpts.Observer = collector.CacheMetrics()
	}
	responses := cache.New(cacheOpts)

	// The restart handler needs the controller before the server it drives
	// exists.
	target := &serverTarget{}
	ctrl := control.NewController(target, control.Options{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	d, err := handlers.BuildDispatcher(cfg.Locations, handlers.Deps{
		Upstream: upstream.NewClient(upstream.Config{
			Address:        cfg.Upstream.Address,
			DialTimeout:    cfg.Upstream.DialTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		}, logger),
		Static:   cfg.Static,
		Cache:    responses,
		Control:  ctrl,
		Metrics:  collector,
		Renderer: render.New(),
	})
	if err != nil {
		return cli.FromConfig(err)
	}

	if hasKind(d, dispatcher.KindStatic) && cfg.Static.WatchEnabled() {
		iv, err := cache.NewInvalidator(responses, cfg.Static.Root, cache.DefaultDebounceInterval, logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		if err := iv.Start(ctx); err != nil {
			slog.Warn("static file watching disabled", "root", cfg.Static.Root, "error", err)
		} else {
			defer func() { _ = iv.Stop() }()
			fmt.Fprintf(out, "✓ Watching %s for changes\n", cfg.Static.Root)
		}
	}

	srv, err := server.NewServer(cfg, server.Deps{
		Dispatcher: d,
		Collector:  collector,
		Tracer:     tracer,
		Redactor:   logging.NewRedactor(cfg.Telemetry.Logging.RedactHeaders),
	})
	if err != nil {
		return cli.FromConfig(err)
	}
	target.srv = srv

	if err := srv.Start(); err != nil {
		return cli.NewCommandError("run", err)
	}

	stop := control.NotifySignals(ctrl)
	defer stop()

	fmt.Fprintln(out)
	fmt.Fprintf(out, "✓ Server listening on %s\n", srv.Addr())
	for _, loc := range d.Locations() {
		fmt.Fprintf(out, "✓ %-8s %s\n", loc.Kind, loc.Pattern)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := ctrl.Run(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
		return cli.NewCommandError("run", err)
	}

	summary := collector.Report()
	fmt.Fprintf(out, "✓ Server stopped after %d requests\n", summary.Count)
	return nil
}

// serverTarget forwards control commands to a server assigned after the
// controller is built.
type serverTarget struct {
	srv *server.Server
}

func (t *serverTarget) Restart(ctx context.Context) error {
	return t.srv.Restart(ctx)
}

func (t *serverTarget) Shutdown(ctx context.Context) error {
	return t.srv.Shutdown(ctx)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.FromConfig(err)
	}
	return cfg, nil
}

func applyRunOverrides(cfg *config.Config) error {
	if runFlags.listenAddress != "" {
		host, portStr, err := net.SplitHostPort(runFlags.listenAddress)
		if err != nil {
			return cli.NewConfigError("--listen", err.Error())
		}
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 0 || port > 65535 {
			return cli.NewConfigError("--listen", fmt.Sprintf("invalid port %q", portStr))
		}
		cfg.Server.Host = host
		cfg.Server.Port = port
	}

	switch {
	case runFlags.logLevel != "":
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	case verbose:
		cfg.Telemetry.Logging.Level = "debug"
	}
	return nil
}

func printBanner(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "yapas v%s\n", Version)
	if cfgFile != "" {
		fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)
	}
	fmt.Fprintln(out, "✓ Configuration loaded")
	fmt.Fprintf(out, "✓ Upstream %s (identity %s)\n", cfg.Upstream.Address, cfg.Upstream.Identity)

	slog.Debug("cache configured",
		"ttl", cfg.Cache.TTL,
		"max_entries", cfg.Cache.MaxEntries,
		"refresh_on_hit", cfg.Cache.RefreshOnHit,
	)
}

func hasKind(d *dispatcher.Dispatcher, kind dispatcher.Kind) bool {
	for _, loc := range d.Locations() {
		if loc.Kind == kind {
			return true
		}
	}
	return false
}
