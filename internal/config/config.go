// Package config provides the configuration model and loading (YAML + env override).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sanverite/proxy-probe/internal/probe"
)

// Config is the root configuration shared by cmd/probe and cmd/agent.
// Secrets are usually supplied through the environment (see Load).
type Config struct {
	Proxy ProxyConfig `yaml:"proxy"`
	Probe ProbeConfig `yaml:"probe"`
	Agent AgentConfig `yaml:"agent"`
	Log   LogConfig   `yaml:"log"`
}

// ProxyConfig describes the upstream proxy. Either Endpoints is set
// directly, or Host/Port (plus credentials and session) build one endpoint
// that serves every scheme listed in Schemes.
type ProxyConfig struct {
	Endpoints          map[string]string `yaml:"endpoints,omitempty" validate:"omitempty,dive,keys,oneof=http https all,endkeys,required"`
	Scheme             string            `yaml:"scheme" validate:"omitempty,oneof=http https socks5 socks5h"`
	Host               string            `yaml:"host" validate:"required_without=Endpoints,omitempty,hostname_rfc1123|ip"`
	Port               int               `yaml:"port" validate:"required_with=Host,omitempty,min=1,max=65535"`
	Username           string            `yaml:"username"`
	Password           string            `yaml:"password"` // overridden by PROXYPROBE_PROXY_PASSWORD
	Session            SessionConfig     `yaml:"session"`
	Schemes            []string          `yaml:"schemes,omitempty" validate:"omitempty,dive,oneof=http https all"`
	RequireCredentials bool              `yaml:"require_credentials"`
}

// SessionConfig holds provider routing parameters embedded in the username.
type SessionConfig struct {
	Zone    string `yaml:"zone"`
	Region  string `yaml:"region"`
	ID      string `yaml:"id"`
	Minutes int    `yaml:"minutes" validate:"gte=0"`
}

// ProbeConfig describes the request a probe issues.
type ProbeConfig struct {
	TargetURL      string            `yaml:"target_url" validate:"required,url"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	TimeoutSeconds int               `yaml:"timeout_seconds" validate:"gt=0"`
	Marker         string            `yaml:"marker" validate:"required"`
	MaxRedirects   int               `yaml:"max_redirects"` // 0 = default, negative disables following
	MaxBodyBytes   int64             `yaml:"max_body_bytes" validate:"gte=0"`
	HTTP2          bool              `yaml:"http2"`
}

// AgentConfig configures the control-plane server.
type AgentConfig struct {
	ListenAddr      string `yaml:"listen_addr" validate:"required,hostname_port"`
	ShutdownSeconds int    `yaml:"shutdown_seconds" validate:"gte=0"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level       string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration: the reddit homepage probe
// with a 10 second deadline and no proxy.
func Default() Config {
	return Config{
		Probe: ProbeConfig{
			TargetURL:      probe.DefaultTargetURL,
			TimeoutSeconds: int(probe.DefaultTimeout / time.Second),
			Marker:         probe.DefaultMarker,
		},
		Agent: AgentConfig{
			ListenAddr:      "127.0.0.1:8787",
			ShutdownSeconds: 5,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Descriptor converts the proxy section into a probe.ProxyDescriptor.
// Explicit endpoints win over the host/port form.
func (c *Config) Descriptor() (probe.ProxyDescriptor, error) {
	d := probe.ProxyDescriptor{RequireCredentials: c.Proxy.RequireCredentials}
	if len(c.Proxy.Endpoints) > 0 {
		d.Endpoints = make(map[string]string, len(c.Proxy.Endpoints))
		for k, v := range c.Proxy.Endpoints {
			d.Endpoints[k] = v
		}
		return d, nil
	}
	if c.Proxy.Host == "" {
		return d, fmt.Errorf("config: no proxy configured")
	}
	ep, err := probe.BuildEndpoint(probe.EndpointParts{
		Scheme:   c.Proxy.Scheme,
		Host:     c.Proxy.Host,
		Port:     c.Proxy.Port,
		Username: c.Proxy.Username,
		Password: c.Proxy.Password,
		Session: probe.SessionParams{
			Zone:    c.Proxy.Session.Zone,
			Region:  c.Proxy.Session.Region,
			ID:      c.Proxy.Session.ID,
			Minutes: c.Proxy.Session.Minutes,
		},
	})
	if err != nil {
		return d, err
	}
	schemes := c.Proxy.Schemes
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}
	d.Endpoints = make(map[string]string, len(schemes))
	for _, s := range schemes {
		d.Endpoints[strings.ToLower(s)] = ep
	}
	return d, nil
}

// RequestSpec converts the probe section into a probe.RequestSpec.
func (c *Config) RequestSpec() probe.RequestSpec {
	headers := make(map[string]string, len(c.Probe.Headers))
	for k, v := range c.Probe.Headers {
		headers[k] = v
	}
	return probe.RequestSpec{
		URL:          c.Probe.TargetURL,
		Headers:      headers,
		Timeout:      time.Duration(c.Probe.TimeoutSeconds) * time.Second,
		Marker:       c.Probe.Marker,
		MaxRedirects: c.Probe.MaxRedirects,
		MaxBodyBytes: c.Probe.MaxBodyBytes,
	}
}
