package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jonwraymond/opscore/secret"
)

// LoadDotEnv loads variables from each existing file into the process
// environment. Variables already set win, so a deployment's environment
// overrides a checked-in .env. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// applyEnv overlays environment variables on cfg.
func applyEnv(cfg *Config, lookup secret.LookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("OPSCORE_APP_NAME", &cfg.App.Name)
	e.str("OPSCORE_ENV", &cfg.App.Environment)
	e.str("OPSCORE_LOG_LEVEL", &cfg.App.LogLevel)
	if port, ok := e.get("PORT"); ok {
		cfg.Server.Addr = ":" + port
	}
	e.str("OPSCORE_ADDR", &cfg.Server.Addr)
	e.str("OPSCORE_SCHEDULE", &cfg.Schedule.Cron)

	e.str("GITHUB_TOKEN", &cfg.Upstream.GitHub.Token)
	e.str("GITHUB_USERNAME", &cfg.Upstream.GitHub.Username)
	e.str("OPSCORE_GITHUB_BASE_URL", &cfg.Upstream.GitHub.BaseURL)
	e.duration("OPSCORE_CACHE_DEFAULT_TTL", &cfg.Cache.DefaultTTL)

	e.duration("OPSCORE_NOTIFY_TIMEOUT", &cfg.Notify.Timeout)
	e.str("OPSCORE_EMAIL_API_KEY", &cfg.Notify.Email.APIKey)

	e.str("OPSCORE_ADMIN_JWT_SECRET", &cfg.Admin.JWTSecret)
	e.str("OPSCORE_ADMIN_JWKS_URL", &cfg.Admin.JWKSURL)

	if v, ok := e.get("OPSCORE_TRACING_EXPORTER"); ok {
		cfg.Telemetry.Tracing.Exporter = v
		cfg.Telemetry.Tracing.Enabled = v != "none"
	}
	if v, ok := e.get("OPSCORE_METRICS_EXPORTER"); ok {
		cfg.Telemetry.Metrics.Exporter = v
		cfg.Telemetry.Metrics.Enabled = v != "none"
	}

	return e.err
}

// envReader records the first malformed value it sees.
type envReader struct {
	lookup secret.LookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		if e.err == nil {
			e.err = fmt.Errorf("%w: %s: %w", ErrInvalid, key, err)
		}
		return
	}
	*dst = d
}
