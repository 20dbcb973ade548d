package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/opscore/alert"
	"github.com/jonwraymond/opscore/auth"
	"github.com/jonwraymond/opscore/cache"
	"github.com/jonwraymond/opscore/health"
	"github.com/jonwraymond/opscore/observe"
	"github.com/jonwraymond/opscore/secret"
	"github.com/jonwraymond/opscore/upstream"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultAddr            = ":8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultProbeTimeout    = 5 * time.Second
	DefaultSweepInterval   = time.Minute
	DefaultGitHubBaseURL   = "https://api.github.com"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the top-level configuration. Fields map 1:1 to
// opscore.example.yaml.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Probes    []Probe         `yaml:"probes"`
	Cache     CacheConfig     `yaml:"cache"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Notify    NotifyConfig    `yaml:"notify"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Admin     AdminConfig     `yaml:"admin"`
}

// AppConfig identifies the process.
type AppConfig struct {
	Name string `yaml:"name"`

	// Environment is "production" or anything else. Production hides
	// error details, disables POST /health and honors self probes.
	Environment string `yaml:"environment"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Probe describes one monitored dependency.
type Probe struct {
	Key            string        `yaml:"key"`
	Target         string        `yaml:"target"`
	Timeout        time.Duration `yaml:"timeout"`
	ExpectedStatus int           `yaml:"expected_status"`

	// Self marks a probe of this service's own public URL. In production
	// it reports operational without a request.
	Self bool `yaml:"self"`
}

// CacheConfig bounds upstream cache entries.
type CacheConfig struct {
	DefaultTTL    time.Duration `yaml:"default_ttl"`
	MaxTTL        time.Duration `yaml:"max_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// UpstreamConfig configures the cached GitHub proxy.
type UpstreamConfig struct {
	GitHub GitHubConfig `yaml:"github"`

	// TTLs overrides the per-kind cache lifetime, keyed by kind name.
	TTLs map[string]time.Duration `yaml:"ttls"`
}

// GitHubConfig holds GitHub API credentials.
type GitHubConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Token       string        `yaml:"token"`
	Username    string        `yaml:"username"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// NotifyConfig configures status-change notifications.
type NotifyConfig struct {
	Timeout       time.Duration   `yaml:"timeout"`
	MaxConcurrent int             `yaml:"max_concurrent"`
	Webhooks      []WebhookConfig `yaml:"webhooks"`
	Email         EmailConfig     `yaml:"email"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`
	URL  string `yaml:"url"`
}

// EmailConfig configures the transactional email API. Email is off while
// APIKey is empty.
type EmailConfig struct {
	Endpoint string   `yaml:"endpoint"`
	APIKey   string   `yaml:"api_key"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// Enabled reports whether email delivery is configured.
func (e EmailConfig) Enabled() bool { return e.APIKey != "" }

// ScheduleConfig optionally runs health cycles on a cron schedule.
type ScheduleConfig struct {
	// Cron is a standard five-field expression or a descriptor such as
	// "@every 1m". Empty disables scheduling.
	Cron string `yaml:"cron"`
}

// TelemetryConfig selects tracing and metrics exporters.
type TelemetryConfig struct {
	Tracing   TracingConfig `yaml:"tracing"`
	Metrics   MetricsConfig `yaml:"metrics"`
	LogFormat string        `yaml:"log_format"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"`
	SamplePct float64 `yaml:"sample_pct"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// AdminConfig guards POST /data. Both fields empty leaves it open.
type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	JWKSURL   string `yaml:"jwks_url"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

// Enabled reports whether admin actions require a token.
func (a AdminConfig) Enabled() bool { return a.JWTSecret != "" || a.JWKSURL != "" }

// Load reads the YAML file at path, applies environment overrides and
// resolves secrets. An empty path loads defaults and the environment only.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		data = b
	}
	return Parse(data, os.LookupEnv)
}

// Parse builds a Config from YAML data with environment values taken from
// lookup.
func Parse(data []byte, lookup secret.LookupFunc) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	fillDefaults(cfg)
	if err := resolveSecrets(cfg, secret.Default(lookup)); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	policy := cache.DefaultPolicy()
	return &Config{
		App: AppConfig{
			Name:        "opscore",
			Environment: "development",
			LogLevel:    "info",
		},
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Cache: CacheConfig{
			DefaultTTL:    policy.DefaultTTL,
			MaxTTL:        policy.MaxTTL,
			SweepInterval: DefaultSweepInterval,
		},
		Upstream: UpstreamConfig{
			GitHub: GitHubConfig{BaseURL: DefaultGitHubBaseURL},
		},
		Notify: NotifyConfig{
			Timeout:       alert.DefaultDeliveryTimeout,
			MaxConcurrent: alert.DefaultMaxInFlight,
			Email:         EmailConfig{Endpoint: alert.DefaultEmailEndpoint},
		},
		Telemetry: TelemetryConfig{
			Tracing:   TracingConfig{Exporter: "none", SamplePct: 1},
			Metrics:   MetricsConfig{Enabled: true, Exporter: "prometheus"},
			LogFormat: "json",
		},
	}
}

// fillDefaults covers per-item defaults that yaml cannot pre-populate.
func fillDefaults(cfg *Config) {
	for i := range cfg.Probes {
		if cfg.Probes[i].Timeout <= 0 {
			cfg.Probes[i].Timeout = DefaultProbeTimeout
		}
		if cfg.Probes[i].ExpectedStatus == 0 {
			cfg.Probes[i].ExpectedStatus = 200
		}
	}
}

func resolveSecrets(cfg *Config, r *secret.Resolver) error {
	ctx := context.Background()
	fields := map[string]*string{
		"upstream.github.token":    &cfg.Upstream.GitHub.Token,
		"upstream.github.username": &cfg.Upstream.GitHub.Username,
		"notify.email.api_key":     &cfg.Notify.Email.APIKey,
		"notify.email.from":        &cfg.Notify.Email.From,
		"admin.jwt_secret":         &cfg.Admin.JWTSecret,
		"admin.jwks_url":           &cfg.Admin.JWKSURL,
	}
	for i := range cfg.Notify.Webhooks {
		fields[fmt.Sprintf("notify.webhooks[%d].url", i)] = &cfg.Notify.Webhooks[i].URL
	}
	for i := range cfg.Probes {
		fields[fmt.Sprintf("probes[%d].target", i)] = &cfg.Probes[i].Target
	}
	if err := r.ResolveAll(ctx, fields); err != nil {
		return err
	}

	to, err := r.ResolveSlice(ctx, cfg.Notify.Email.To)
	if err != nil {
		return fmt.Errorf("resolve notify.email.to: %w", err)
	}
	cfg.Notify.Email.To = to
	return nil
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}

	switch cfg.App.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return invalid("app.log_level %q must be debug, info, warn or error", cfg.App.LogLevel)
	}
	if cfg.Server.Addr == "" {
		return invalid("server.addr is required")
	}

	if len(cfg.Probes) == 0 {
		return invalid("at least one probe is required")
	}
	seen := make(map[string]bool, len(cfg.Probes))
	for i, p := range cfg.Probes {
		switch {
		case p.Key == "":
			return invalid("probes[%d]: key is required", i)
		case seen[p.Key]:
			return invalid("probes[%d]: duplicate key %q", i, p.Key)
		case p.Target == "" && !(p.Self && cfg.Production()):
			// self probes only skip the request in production
			return invalid("probes[%d] %q: target is required", i, p.Key)
		case p.ExpectedStatus < 100 || p.ExpectedStatus > 599:
			return invalid("probes[%d] %q: expected_status %d out of range", i, p.Key, p.ExpectedStatus)
		}
		seen[p.Key] = true
	}

	if err := cfg.CachePolicy().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	for name, ttl := range cfg.Upstream.TTLs {
		if _, err := upstream.ParseKind(name); err != nil {
			return invalid("upstream.ttls: unknown kind %q (valid: %v)", name, upstream.ValidKinds())
		}
		if ttl <= 0 {
			return invalid("upstream.ttls.%s must be positive", name)
		}
	}

	for i, w := range cfg.Notify.Webhooks {
		if !slices.Contains([]string{alert.WebhookSlack, alert.WebhookTeams, alert.WebhookHTTP}, w.Type) {
			return invalid("notify.webhooks[%d]: unknown type %q", i, w.Type)
		}
		if w.URL == "" {
			return invalid("notify.webhooks[%d]: url is required", i)
		}
	}
	if e := cfg.Notify.Email; e.Enabled() && (e.From == "" || len(e.To) == 0) {
		return invalid("notify.email: from and to are required when api_key is set")
	}
	if cfg.Admin.JWTSecret != "" && cfg.Admin.JWKSURL != "" {
		return invalid("admin: set jwt_secret or jwks_url, not both")
	}

	oc := cfg.Observe("")
	if err := oc.Validate(); err != nil {
		return fmt.Errorf("%w: telemetry: %w", ErrInvalid, err)
	}
	return nil
}

// Production reports whether the app runs in production.
func (c *Config) Production() bool { return c.App.Environment == "production" }

// ProbeSpecs converts the probe list for the monitor.
func (c *Config) ProbeSpecs() []health.ProbeSpec {
	specs := make([]health.ProbeSpec, 0, len(c.Probes))
	for _, p := range c.Probes {
		specs = append(specs, health.ProbeSpec{
			Key:               p.Key,
			Target:            p.Target,
			Timeout:           p.Timeout,
			ExpectedStatus:    p.ExpectedStatus,
			AssumeOperational: p.Self && c.Production(),
		})
	}
	return specs
}

// CachePolicy returns the TTL bounds for the upstream cache.
func (c *Config) CachePolicy() cache.Policy {
	return cache.Policy{DefaultTTL: c.Cache.DefaultTTL, MaxTTL: c.Cache.MaxTTL}
}

// GitHub returns the GitHub client settings.
func (c *Config) GitHub() upstream.GitHubConfig {
	g := c.Upstream.GitHub
	return upstream.GitHubConfig{
		BaseURL:     g.BaseURL,
		Token:       g.Token,
		Username:    g.Username,
		Timeout:     g.Timeout,
		MaxAttempts: g.MaxAttempts,
	}
}

// ProxyOptions returns the cache policy and per-kind TTL overrides.
func (c *Config) ProxyOptions() []upstream.ProxyOption {
	opts := []upstream.ProxyOption{upstream.WithPolicy(c.CachePolicy())}
	for name, ttl := range c.Upstream.TTLs {
		kind, _ := upstream.ParseKind(name)
		opts = append(opts, upstream.WithTTL(kind, ttl))
	}
	return opts
}

// Observe returns telemetry settings for observe.NewObserver.
func (c *Config) Observe(version string) observe.Config {
	t := c.Telemetry
	return observe.Config{
		ServiceName: c.App.Name,
		Version:     version,
		Environment: c.App.Environment,
		Tracing: observe.TracingConfig{
			Enabled:   t.Tracing.Enabled,
			Exporter:  t.Tracing.Exporter,
			SamplePct: t.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  t.Metrics.Enabled,
			Exporter: t.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Level:  c.App.LogLevel,
			Format: t.LogFormat,
		},
	}
}

// JWT returns token verification settings for the admin guard.
func (c *Config) JWT() auth.JWTConfig {
	return auth.JWTConfig{Issuer: c.Admin.Issuer, Audience: c.Admin.Audience}
}
