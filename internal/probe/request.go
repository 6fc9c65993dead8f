package probe

import (
	"bytes"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"
)

// Defaults applied by Run when the corresponding RequestSpec field is zero.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultTargetURL    = "https://www.reddit.com"
	DefaultMarker       = "reddit"
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	DefaultMaxRedirects = 5
	DefaultMaxBodyBytes = 2 << 20
)

// RequestSpec describes the single GET a probe issues.
type RequestSpec struct {
	// URL is the http or https target. If empty, DefaultTargetURL is used.
	URL string

	// Headers are sent as-is. Keys are case-insensitive and must be unique
	// after canonicalization. A User-Agent is added when absent.
	Headers map[string]string

	// Timeout bounds connect, proxy handshake, TLS, response and body read.
	// Zero means DefaultTimeout; negative is rejected.
	Timeout time.Duration

	// Marker is the case-insensitive body fragment that marks legitimate
	// content. If empty, DefaultMarker is used.
	Marker string

	// MaxRedirects caps followed redirects. Zero means DefaultMaxRedirects;
	// negative disables following and classifies the first response.
	MaxRedirects int

	// MaxBodyBytes caps how much decoded body is searched. Zero means
	// DefaultMaxBodyBytes; negative is rejected.
	MaxBodyBytes int64
}

// Validate checks the spec without touching the network.
func (s RequestSpec) Validate() error {
	_, err := s.normalize()
	return err
}

type preparedRequest struct {
	target       *url.URL
	header       http.Header
	host         string // explicit Host header, if any
	timeout      time.Duration
	marker       []byte // lowercased
	maxRedirects int    // -1 disables following
	maxBodyBytes int64
}

func (s RequestSpec) normalize() (preparedRequest, error) {
	var p preparedRequest

	raw := strings.TrimSpace(s.URL)
	if raw == "" {
		raw = DefaultTargetURL
	}
	target, err := url.Parse(raw)
	if err != nil {
		return p, &ConfigError{Field: "target url", Err: err}
	}
	target.Scheme = strings.ToLower(target.Scheme)
	if target.Scheme != "http" && target.Scheme != "https" {
		return p, configErrorf("target url", "unsupported scheme %q", target.Scheme)
	}
	if target.Host == "" {
		return p, configErrorf("target url", "missing host")
	}
	p.target = target

	p.header = make(http.Header, len(s.Headers)+1)
	for k, v := range s.Headers {
		if !httpguts.ValidHeaderFieldName(k) {
			return p, configErrorf("header", "invalid name %q", k)
		}
		if !httpguts.ValidHeaderFieldValue(v) {
			return p, configErrorf("header", "invalid value for %q", k)
		}
		ck := http.CanonicalHeaderKey(k)
		if ck == "Host" {
			if p.host != "" {
				return p, configErrorf("header", "duplicate key %q", ck)
			}
			p.host = v
			continue
		}
		if _, dup := p.header[ck]; dup {
			return p, configErrorf("header", "duplicate key %q", ck)
		}
		p.header.Set(ck, v)
	}
	if p.header.Get("User-Agent") == "" {
		p.header.Set("User-Agent", DefaultUserAgent)
	}

	switch {
	case s.Timeout < 0:
		return p, configErrorf("timeout", "must be > 0, got %s", s.Timeout)
	case s.Timeout == 0:
		p.timeout = DefaultTimeout
	default:
		p.timeout = s.Timeout
	}

	marker := s.Marker
	if marker == "" {
		marker = DefaultMarker
	}
	p.marker = bytes.ToLower([]byte(marker))

	switch {
	case s.MaxRedirects < 0:
		p.maxRedirects = -1
	case s.MaxRedirects == 0:
		p.maxRedirects = DefaultMaxRedirects
	default:
		p.maxRedirects = s.MaxRedirects
	}

	switch {
	case s.MaxBodyBytes < 0:
		return p, configErrorf("max body bytes", "must be >= 0, got %d", s.MaxBodyBytes)
	case s.MaxBodyBytes == math.MaxInt64:
		return p, configErrorf("max body bytes", "must be < %d", int64(math.MaxInt64))
	case s.MaxBodyBytes == 0:
		p.maxBodyBytes = DefaultMaxBodyBytes
	default:
		p.maxBodyBytes = s.MaxBodyBytes
	}
	return p, nil
}
