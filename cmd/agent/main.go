package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sanverite/proxy-probe/internal/api"
	"github.com/sanverite/proxy-probe/internal/config"
	"github.com/sanverite/proxy-probe/internal/core"
	"github.com/sanverite/proxy-probe/internal/logging"
	"github.com/sanverite/proxy-probe/internal/probe"
)

func main() {
	var (
		cfgPath      = flag.String("config", "", "YAML config file")
		addr         = flag.String("listen", "", "HTTP listen address (default "+api.DefaultAddress+")")
		shutdownSecs = flag.Int("shutdown-secs", -1, "graceful shutdown timeout in seconds (default 5)")
	)
	flag.Parse()

	if err := config.LoadEnvFile(".env", false); err != nil {
		fmt.Fprintf(os.Stderr, "agent: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agent: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Agent.ListenAddr = *addr
	}
	if *shutdownSecs >= 0 {
		cfg.Agent.ShutdownSeconds = *shutdownSecs
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agent: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Core state initialization
	state := core.NewState()

	if err := cfg.ValidateDefaults(); err != nil {
		logger.Fatal("agent: invalid config", zap.Error(err))
	}

	// Without a proxy section every POST /v1/probe must carry endpoints.
	proxy, err := cfg.Descriptor()
	if err != nil {
		logger.Warn("agent: no default proxy", zap.Error(err))
		state.AppendWarning("no default proxy configured; requests must supply endpoints")
	} else if err := cfg.Validate(); err != nil {
		logger.Fatal("agent: invalid config", zap.Error(err))
	}
	spec := cfg.RequestSpec()

	// API Server
	srv := api.NewServer(state, api.ServerOptions{
		Addr:              cfg.Agent.ListenAddr,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      spec.Timeout + 20*time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   time.Duration(cfg.Agent.ShutdownSeconds) * time.Second,
		Logger:            logger,
		Prober:            &probe.Runner{HTTP2: cfg.Probe.HTTP2, Logger: logger},
		Proxy:             proxy,
		Request:           spec,
	})

	// Handle shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil {
		logger.Error("agent: serve failed", zap.Error(err))
		return
	}
	logger.Info("agent: stopped")
}
