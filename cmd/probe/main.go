package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/sanverite/proxy-probe/internal/config"
	"github.com/sanverite/proxy-probe/internal/logging"
	"github.com/sanverite/proxy-probe/internal/probe"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, runs one probe and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath      = fs.String("config", "", "YAML config file")
		envFile      = fs.String("env-file", ".env", "dotenv file loaded before PROXYPROBE_* overrides")
		proxyAll     = fs.String("proxy", "", "proxy endpoint for both http and https targets")
		proxyHTTP    = fs.String("proxy-http", "", "proxy endpoint for http targets")
		proxyHTTPS   = fs.String("proxy-https", "", "proxy endpoint for https targets")
		target       = fs.String("url", "", "target URL (default "+probe.DefaultTargetURL+")")
		timeout      = fs.Duration("timeout", 0, "overall deadline (default 10s)")
		marker       = fs.String("marker", "", "case-insensitive body marker (default "+probe.DefaultMarker+")")
		maxRedirects = fs.Int("max-redirects", probe.DefaultMaxRedirects, "redirects to follow; negative disables")
		useHTTP2     = fs.Bool("http2", false, "negotiate HTTP/2 with the target")
		requireAuth  = fs.Bool("require-auth", false, "reject endpoints without credentials")
		noColor      = fs.Bool("no-color", false, "disable colored output")
		logLevel     = fs.String("log-level", "", "debug|info|warn|error")
		headers      = headerFlags{}
	)
	fs.Var(headers, "H", "request header \"Key: Value\" (repeatable)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitReachable
		}
		return exitConfig
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *noColor {
		color.NoColor = true
	}

	if err := config.LoadEnvFile(*envFile, false); err != nil {
		fmt.Fprintf(stderr, "probe: %v\n", err)
		return exitConfig
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "probe: %v\n", err)
		return exitConfig
	}

	setEndpoint(cfg, "http", *proxyAll)
	setEndpoint(cfg, "https", *proxyAll)
	setEndpoint(cfg, "http", *proxyHTTP)
	setEndpoint(cfg, "https", *proxyHTTPS)
	if *target != "" {
		cfg.Probe.TargetURL = *target
	}
	if *marker != "" {
		cfg.Probe.Marker = *marker
	}
	if set["max-redirects"] {
		cfg.Probe.MaxRedirects = *maxRedirects
	}
	for k, v := range headers {
		if cfg.Probe.Headers == nil {
			cfg.Probe.Headers = make(map[string]string, len(headers))
		}
		cfg.Probe.Headers[k] = v
	}
	cfg.Probe.HTTP2 = cfg.Probe.HTTP2 || *useHTTP2
	cfg.Proxy.RequireCredentials = cfg.Proxy.RequireCredentials || *requireAuth
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(stderr, "probe: %v\n", err)
		return exitConfig
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "probe: %v\n", err)
		return exitConfig
	}
	proxy, err := cfg.Descriptor()
	if err != nil {
		fmt.Fprintf(stderr, "probe: %v\n", err)
		return exitConfig
	}
	spec := cfg.RequestSpec()
	if set["timeout"] {
		spec.Timeout = *timeout
	}

	runner := &probe.Runner{HTTP2: cfg.Probe.HTTP2, Logger: logger}
	res, err := runner.Run(ctx, proxy, spec)
	if err != nil {
		fmt.Fprintf(stderr, "probe: %v\n", err)
		return exitConfig
	}
	for _, w := range res.Warnings {
		logger.Warn("probe warning", zap.String("probe_id", res.ID), zap.String("warning", w))
	}
	printVerdict(stdout, res)
	logger.Debug("probe latencies", zap.String("probe_id", res.ID), zap.Any("latencies_ms", res.LatenciesMs))
	return exitCode(res.Outcome)
}

// setEndpoint overrides one scheme endpoint when ep is non-empty.
func setEndpoint(cfg *config.Config, scheme, ep string) {
	if ep == "" {
		return
	}
	if cfg.Proxy.Endpoints == nil {
		cfg.Proxy.Endpoints = make(map[string]string, 2)
	}
	cfg.Proxy.Endpoints[scheme] = ep
}
