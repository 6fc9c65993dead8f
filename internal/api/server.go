package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sanverite/proxy-probe/internal/core"
	"github.com/sanverite/proxy-probe/internal/probe"
)

// Constants for route prefixing. Versioning is explicit to allow non-breaking additions.
const (
	APIVersion     = "v1"
	DefaultAddress = "127.0.0.1:8787"

	maxRequestBytes = 1 << 20

	// writeMargin is kept between a probe deadline and WriteTimeout so the
	// response still fits after a probe that runs to its deadline.
	writeMargin = time.Second
)

// Prober runs one probe. *probe.Runner satisfies it.
type Prober interface {
	Run(ctx context.Context, proxy probe.ProxyDescriptor, spec probe.RequestSpec) (core.ProbeResult, error)
}

// ServerOptions configures the HTTP server.
// Timeouts are conservative defaults suitable for a local control-plane server.
type ServerOptions struct {
	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration // must exceed the longest probe timeout
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	Logger            *zap.Logger

	// Prober defaults to a probe.Runner logging to Logger.
	Prober Prober

	// Proxy and Request are the defaults POST /v1/probe overlays.
	Proxy   probe.ProxyDescriptor
	Request probe.RequestSpec
}

// Server hosts the HTTP API for the agent.
type Server struct {
	http   *http.Server
	state  *core.State
	logger *zap.Logger
	prober Prober
	opts   ServerOptions
}

// NewServer constructs a new API server bound to the provided State.
// The server does not start listening until Serve is called.
func NewServer(state *core.State, opts ServerOptions) *Server {
	if state == nil {
		panic("api.NewServer: state is nil")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddress
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 2 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = max(probe.DefaultTimeout, opts.Request.Timeout) + 20*time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Prober == nil {
		opts.Prober = &probe.Runner{Logger: opts.Logger}
	}

	s := &Server{
		state:  state,
		logger: opts.Logger,
		prober: opts.Prober,
		opts:   opts,
	}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		ErrorLog:          zap.NewStdLog(opts.Logger),
		BaseContext: func(l net.Listener) context.Context {
			return context.Background()
		},
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/"+APIVersion+"/healthz", s.handleHealthz)
	mux.HandleFunc("/"+APIVersion+"/status", s.handleStatus)
	mux.HandleFunc("/"+APIVersion+"/probe", s.handleProbe)
	return withBasicMiddleware(mux, s.logger)
}

// Serve listens on the configured address and blocks until ctx is done or
// the listener fails, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.state.SetAgentState(core.StateStarting); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		_ = s.state.SetAgentState(core.StateError)
		return fmt.Errorf("api listen: %w", err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener. It drives the agent
// lifecycle: starting, active, stopping, then inactive (or error).
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	if err := s.state.SetAgentState(core.StateStarting); err != nil {
		_ = ln.Close()
		return err
	}

	_ = s.state.SetAgentState(core.StateActive)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("api: listening", zap.String("addr", ln.Addr().String()))
		if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		_ = s.state.SetAgentState(core.StateStopping)
		return s.Stop(context.Background())
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("api: stopped with error", zap.Error(err))
		_ = s.state.SetAgentState(core.StateError)
		return err
	}
	_ = s.state.SetAgentState(core.StateInactive)
	s.logger.Info("api: stopped")
	return nil
}

// Stop gracefully shuts down the server, waiting up to ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.opts.ShutdownTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}

// handleHealthz is a simple readiness/liveness endpoint.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": TimeNow().UTC().Format(time.RFC3339),
	})
}

// handleStatus returns the current agent snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, FromCoreSnapshot(s.state.GetSnapshot()))
}

// handleProbe runs one probe and returns a ProbeView.
// Method: POST
// Request: ProbeRequest JSON; fields overlay the server defaults
// Response (200): ProbeView JSON for every classified outcome, including unreachable
// Errors:
//   - 400 for invalid JSON or a configuration error (bad endpoint, header, timeout)
//   - 400 if the probe timeout would not fit in WriteTimeout
//   - 500 if the prober fails unexpectedly
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ProbeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.TimeoutMS < 0 {
		writeError(w, http.StatusBadRequest, "timeout_ms must be >= 0")
		return
	}

	proxy, spec := s.overlay(req)
	deadline := spec.Timeout
	if deadline == 0 {
		deadline = probe.DefaultTimeout
	}
	if limit := s.opts.WriteTimeout - writeMargin; deadline > limit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("timeout %s exceeds server limit %s", deadline, limit))
		return
	}
	result, err := s.prober.Run(r.Context(), proxy, spec)
	if err != nil {
		if probe.IsConfigError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "probe failed: "+err.Error())
		return
	}

	s.state.RecordProbe(result)
	writeJSON(w, http.StatusOK, FromProbeResult(result))
}

// overlay applies req on top of the server defaults without mutating them.
func (s *Server) overlay(req ProbeRequest) (probe.ProxyDescriptor, probe.RequestSpec) {
	proxy := probe.ProxyDescriptor{RequireCredentials: s.opts.Proxy.RequireCredentials}
	endpoints := s.opts.Proxy.Endpoints
	if len(req.Endpoints) > 0 {
		endpoints = req.Endpoints
	}
	proxy.Endpoints = make(map[string]string, len(endpoints))
	for k, v := range endpoints {
		proxy.Endpoints[k] = v
	}

	spec := s.opts.Request
	headers := spec.Headers
	if req.Headers != nil {
		headers = req.Headers
	}
	spec.Headers = make(map[string]string, len(headers))
	for k, v := range headers {
		spec.Headers[k] = v
	}
	if req.TargetURL != "" {
		spec.URL = req.TargetURL
	}
	if req.TimeoutMS > 0 {
		spec.Timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}
	if req.Marker != "" {
		spec.Marker = req.Marker
	}
	if req.MaxRedirects != nil {
		spec.MaxRedirects = *req.MaxRedirects
	}
	return proxy, spec
}

// Basic middleware: sets JSON content type and very lightweight logging.
// No CORS or auth because this is a local control-plane service.
func withBasicMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
		logger.Info("api request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("ua", r.UserAgent()))
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIError{
		Error:     msg,
		Timestamp: TimeNow().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}
