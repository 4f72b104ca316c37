package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mockfig/mockfig/pkg/admin"
	"github.com/mockfig/mockfig/pkg/config"
	"github.com/mockfig/mockfig/pkg/engine"
	"github.com/mockfig/mockfig/pkg/logging"
	"github.com/mockfig/mockfig/pkg/persist"
)

type serveFlags struct {
	configDir string
	port      int
	logLevel  string
	logFormat string
	redisAddr string
	watch     bool
	noMetrics bool
	noAdmin   bool
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mock API server (foreground)",
	Example: `  # Serve the configuration in ./config on port 8080
  mockfig serve --config ./config

  # Share entity state across instances via Redis
  mockfig serve --config ./config --redis localhost:6379

  # Reload automatically when config files change
  mockfig serve --config ./config --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), serveFlagVals)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveFlagVals.configDir, "config", "c", ".", "directory holding api, auth, and endpoints documents")
	f.IntVarP(&serveFlagVals.port, "port", "p", 8080, "listen port")
	f.StringVar(&serveFlagVals.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&serveFlagVals.logFormat, "log-format", "text", "log format (text, json)")
	f.StringVar(&serveFlagVals.redisAddr, "redis", "", "redis address for shared entity storage (host:port)")
	f.BoolVar(&serveFlagVals.watch, "watch", false, "reload configuration when files change")
	f.BoolVar(&serveFlagVals.noMetrics, "no-metrics", false, "disable the /__metrics endpoint")
	f.BoolVar(&serveFlagVals.noAdmin, "no-admin", false, "disable the /__admin API")
}

func runServe(ctx context.Context, flags serveFlags) error {
	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(flags.logLevel),
		Format: logging.ParseFormat(flags.logFormat),
		Output: os.Stderr,
	})

	store, err := config.NewStore(config.DefaultPaths(flags.configDir), log)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	snap := store.Snapshot()
	log.Info("configuration loaded",
		"title", snap.API.Title,
		"endpoints", len(snap.Endpoints),
		"auth_methods", len(snap.Auth.Methods),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var entities persist.EntityStore
	if flags.redisAddr != "" {
		entities, err = persist.NewRedisStore(ctx, flags.redisAddr)
		if err != nil {
			return err
		}
		log.Info("using redis entity store", "addr", flags.redisAddr)
	} else {
		entities = persist.NewMemoryStore()
	}
	defer func() { _ = entities.Close() }()

	var registry *prometheus.Registry
	var metrics *engine.Metrics
	if !flags.noMetrics {
		registry = prometheus.NewRegistry()
		metrics = engine.NewMetrics(registry)
	}

	eng := engine.New(store, persist.NewDispatcher(entities), log, metrics)

	opts := engine.ServerOptions{
		Addr:            fmt.Sprintf(":%d", flags.port),
		MetricsRegistry: registry,
	}
	if !flags.noAdmin {
		opts.AdminHandler = admin.New(store, entities, log).Router()
	}
	srv := engine.NewServer(eng, store, log, opts)

	if flags.watch {
		go func() {
			if err := store.Watch(ctx); err != nil && ctx.Err() == nil {
				log.Error("config watcher stopped", "error", err)
			}
		}()
	}

	return srv.ListenAndServe(ctx)
}
