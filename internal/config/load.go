package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PROXYPROBE_"

var (
	validate *validator.Validate
	once     sync.Once
)

func validatorInstance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// LoadEnvFile reads a .env style file (KEY=VALUE) into the process
// environment. Blank lines and lines starting with # are skipped. Existing
// variables are kept unless override is true. A missing file is not an error.
func LoadEnvFile(path string, override bool) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		if !ok || key == "" {
			continue
		}
		val = strings.TrimSpace(val)
		if len(val) >= 2 && (val[0] == '"' && val[len(val)-1] == '"' || val[0] == '\'' && val[len(val)-1] == '\'') {
			val = val[1 : len(val)-1]
		}
		if override || os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
	return sc.Err()
}

// Load reads YAML from path over Default() and applies PROXYPROBE_*
// environment overrides. An empty path skips the file. The result is not
// validated; call Validate once flags have been applied.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("config unmarshal: %w", err)
		}
	}
	if err := applyEnvOverrides(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks struct tags, then that the proxy and probe sections
// convert into a valid descriptor and request spec.
func (c *Config) Validate() error {
	if err := validatorInstance().Struct(c); err != nil {
		return fmt.Errorf("config validate: %w", err)
	}
	d, err := c.Descriptor()
	if err != nil {
		return fmt.Errorf("config validate: %w", err)
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("config validate: %w", err)
	}
	if err := c.RequestSpec().Validate(); err != nil {
		return fmt.Errorf("config validate: %w", err)
	}
	return nil
}

// ValidateDefaults checks everything Validate does except the proxy
// section, for the agent where each request may bring its own endpoints.
func (c *Config) ValidateDefaults() error {
	if err := validatorInstance().StructExcept(c, "Proxy"); err != nil {
		return fmt.Errorf("config validate: %w", err)
	}
	if err := c.RequestSpec().Validate(); err != nil {
		return fmt.Errorf("config validate: %w", err)
	}
	return nil
}

// applyEnvOverrides overrides secrets and common settings from PROXYPROBE_* variables.
func applyEnvOverrides(c *Config) error {
	str := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v := os.Getenv(EnvPrefix + name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config env %s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	endpoint := func(name, scheme string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			if c.Proxy.Endpoints == nil {
				c.Proxy.Endpoints = make(map[string]string, 2)
			}
			c.Proxy.Endpoints[scheme] = v
		}
	}

	endpoint("PROXY_HTTP", "http")
	endpoint("PROXY_HTTPS", "https")
	endpoint("PROXY_ALL", "all")
	str("PROXY_HOST", &c.Proxy.Host)
	str("PROXY_USERNAME", &c.Proxy.Username)
	str("PROXY_PASSWORD", &c.Proxy.Password)
	str("PROXY_SESSION_ID", &c.Proxy.Session.ID)
	str("PROXY_REGION", &c.Proxy.Session.Region)
	str("TARGET_URL", &c.Probe.TargetURL)
	str("MARKER", &c.Probe.Marker)
	str("AGENT_LISTEN", &c.Agent.ListenAddr)
	str("LOG_LEVEL", &c.Log.Level)

	for name, dst := range map[string]*int{
		"PROXY_PORT":      &c.Proxy.Port,
		"TIMEOUT_SECONDS": &c.Probe.TimeoutSeconds,
		"MAX_REDIRECTS":   &c.Probe.MaxRedirects,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	return nil
}
