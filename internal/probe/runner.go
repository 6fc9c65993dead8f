package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/sanverite/proxy-probe/internal/core"
)

// Runner executes probes. The zero value is ready to use; a Runner holds no
// state across calls and is safe for concurrent use.
type Runner struct {
	// Transport, when set, replaces the proxied transport built for each
	// call. The descriptor is still validated and must cover the target.
	Transport http.RoundTripper

	// HTTP2 enables HTTP/2 over TLS on the built transport.
	HTTP2 bool

	// Logger receives one entry per probe. Nil disables logging.
	Logger *zap.Logger
}

// Run probes with a zero Runner.
func Run(ctx context.Context, proxy ProxyDescriptor, spec RequestSpec) (core.ProbeResult, error) {
	var r Runner
	return r.Run(ctx, proxy, spec)
}

// Run issues one GET to spec.URL through the endpoint proxy provides for
// the target scheme and classifies the response.
//
// The returned error is non-nil only for a *ConfigError, in which case no
// network call was made. Transport faults come back as an Unreachable
// result with a nil error.
func (r *Runner) Run(ctx context.Context, proxy ProxyDescriptor, spec RequestSpec) (core.ProbeResult, error) {
	endpoints, err := proxy.parse()
	if err != nil {
		return core.ProbeResult{}, err
	}
	req, err := spec.normalize()
	if err != nil {
		return core.ProbeResult{}, err
	}
	endpoint, ok := endpoints.lookup(req.target.Scheme)
	if !ok {
		return core.ProbeResult{}, configErrorf("proxy", "no endpoint for target scheme %q", req.target.Scheme)
	}

	rt, closeIdle, err := r.transport(endpoints)
	if err != nil {
		return core.ProbeResult{}, err
	}
	defer closeIdle()

	ctx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()

	start := time.Now()
	tm := newTimings(start)
	ctx = httptrace.WithClientTrace(ctx, tm.trace())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.target.String(), nil)
	if err != nil {
		return core.ProbeResult{}, &ConfigError{Field: "target url", Err: err}
	}
	httpReq.Header = req.header.Clone()
	if req.host != "" {
		httpReq.Host = req.host
	}

	var (
		warns     []string
		redirects int
	)
	client := &http.Client{
		Transport: rt,
		CheckRedirect: func(next *http.Request, via []*http.Request) error {
			if len(via) > req.maxRedirects {
				return http.ErrUseLastResponse
			}
			if _, ok := endpoints.lookup(next.URL.Scheme); !ok {
				warns = append(warns, fmt.Sprintf("redirect to %s not followed: no endpoint for scheme %q", next.URL.Redacted(), next.URL.Scheme))
				return http.ErrUseLastResponse
			}
			redirects = len(via)
			return nil
		},
	}

	result := r.do(client, httpReq, req, &warns)

	tm.mark("total", time.Now())
	result.ID = uuid.NewString()
	result.Target = req.target.Redacted()
	result.Proxy = endpoint.Redacted()
	result.Redirects = redirects
	result.LatenciesMs = tm.snapshot()
	result.Warnings = warns
	result.LastChecked = time.Now()

	r.log(result)
	return result, nil
}

// do sends the request and reads the body; every failure becomes data.
func (r *Runner) do(client *http.Client, httpReq *http.Request, req preparedRequest, warns *[]string) core.ProbeResult {
	resp, err := client.Do(httpReq)
	if err != nil {
		f := classifyTransportError(err)
		return core.Unreachable(f.Kind, f.Detail)
	}
	defer resp.Body.Close()

	body, bw, err := readBody(resp, req.maxBodyBytes)
	*warns = append(*warns, bw...)
	if err != nil {
		f := classifyTransportError(err)
		return core.Unreachable(f.Kind, "read body: "+f.Detail)
	}

	var result core.ProbeResult
	if bytes.Contains(bytes.ToLower(body), req.marker) {
		result = core.Reachable(resp.StatusCode)
	} else {
		result = core.Suspect(resp.StatusCode)
	}
	result.BodyBytes = int64(len(body))
	result.FinalURL = req.target.Redacted()
	if resp.Request != nil && resp.Request.URL != nil {
		result.FinalURL = resp.Request.URL.Redacted()
	}
	return result
}

// transport returns the round tripper for one call and a func releasing it.
func (r *Runner) transport(endpoints endpointSet) (http.RoundTripper, func(), error) {
	if r.Transport != nil {
		return r.Transport, func() {}, nil
	}
	t := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			u, ok := endpoints.lookup(req.URL.Scheme)
			if !ok {
				return nil, fmt.Errorf("no proxy endpoint for scheme %q", req.URL.Scheme)
			}
			return u, nil
		},
		OnProxyConnectResponse: func(_ context.Context, _ *url.URL, _ *http.Request, resp *http.Response) error {
			if resp.StatusCode != http.StatusOK {
				return &ProxyConnectError{StatusCode: resp.StatusCode, Status: resp.Status}
			}
			return nil
		},
		DialContext:       (&net.Dialer{KeepAlive: -1}).DialContext,
		DisableKeepAlives: true,
		TLSClientConfig:   &tls.Config{},
	}
	if r.HTTP2 {
		if err := http2.ConfigureTransport(t); err != nil {
			return nil, nil, fmt.Errorf("configure http2: %w", err)
		}
	}
	return t, t.CloseIdleConnections, nil
}

func (r *Runner) log(res core.ProbeResult) {
	if r.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("probe_id", res.ID),
		zap.String("target", res.Target),
		zap.String("proxy", res.Proxy),
		zap.String("outcome", string(res.Outcome)),
		zap.Int64("total_ms", res.LatenciesMs["total"]),
	}
	if res.Failure != nil {
		r.Logger.Info("probe unreachable", append(fields,
			zap.String("failure", string(res.Failure.Kind)),
			zap.String("detail", res.Failure.Detail))...)
		return
	}
	r.Logger.Info("probe completed", append(fields,
		zap.Int("status", res.StatusCode),
		zap.Bool("content_matched", res.ContentMatched),
		zap.Int("redirects", res.Redirects),
		zap.Strings("warnings", res.Warnings))...)
}

// timings records per-step latencies. httptrace hooks may fire from dial
// goroutines that outlive the request, hence the lock.
type timings struct {
	mu        sync.Mutex
	start     time.Time
	connStart time.Time
	tlsStart  time.Time
	latencyMs map[string]int64
}

func newTimings(start time.Time) *timings {
	return &timings{start: start, latencyMs: make(map[string]int64, 4)}
}

func (t *timings) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		ConnectStart: func(_, _ string) {
			t.mu.Lock()
			t.connStart = time.Now()
			t.mu.Unlock()
		},
		ConnectDone: func(_, _ string, _ error) {
			t.mu.Lock()
			t.latencyMs["proxy_connect"] = millisSince(t.connStart)
			t.mu.Unlock()
		},
		TLSHandshakeStart: func() {
			t.mu.Lock()
			t.tlsStart = time.Now()
			t.mu.Unlock()
		},
		TLSHandshakeDone: func(tls.ConnectionState, error) {
			t.mu.Lock()
			t.latencyMs["tls_handshake"] = millisSince(t.tlsStart)
			t.mu.Unlock()
		},
		GotFirstResponseByte: func() {
			t.mark("first_byte", time.Now())
		},
	}
}

func (t *timings) mark(step string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := at.Sub(t.start)
	if d < 0 {
		d = 0
	}
	t.latencyMs[step] = d.Milliseconds()
}

func (t *timings) snapshot() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int64, len(t.latencyMs))
	for k, v := range t.latencyMs {
		out[k] = v
	}
	return out
}

// millisSince returns the elapsed milliseconds since t0, clamped at zero.
func millisSince(t0 time.Time) int64 {
	diff := time.Since(t0)
	if diff < 0 {
		return 0
	}
	return diff.Milliseconds()
}
