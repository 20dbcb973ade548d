package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jonwraymond/opscore/resilience"
)

const (
	// DefaultBaseURL is the public GitHub REST API.
	DefaultBaseURL = "https://api.github.com"

	// DefaultTimeout bounds one GitHub call attempt.
	DefaultTimeout = 10 * time.Second

	apiVersion   = "2022-11-28"
	maxStatPages = 10
)

// Fetcher is the data-fetching collaborator behind a Proxy.
type Fetcher interface {
	// Configured reports whether credentials are present. A Proxy checks
	// it before any network call.
	Configured() bool
	Fetch(ctx context.Context, req Request) (Data, error)
}

// GitHubConfig configures a GitHubClient.
type GitHubConfig struct {
	BaseURL  string
	Token    string
	Username string

	// Timeout bounds each attempt. Default: 10 seconds
	Timeout time.Duration

	// MaxAttempts covers transient failures (5xx, 429, network).
	// Default: 3
	MaxAttempts int
}

// ClientOption configures a GitHubClient.
type ClientOption func(*GitHubClient)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *GitHubClient) {
		if c != nil {
			g.http = c
		}
	}
}

// WithBreakerListener is called on every circuit state change.
func WithBreakerListener(fn func(name string, from, to resilience.State)) ClientOption {
	return func(g *GitHubClient) { g.onState = fn }
}

// GitHubClient fetches profile, repository and quota data for one user.
type GitHubClient struct {
	cfg     GitHubConfig
	http    *http.Client
	onState func(name string, from, to resilience.State)
	exec    *resilience.Executor
}

// NewGitHubClient returns a client. Calls go through a circuit breaker,
// retry with backoff, and a per-attempt timeout.
func NewGitHubClient(cfg GitHubConfig, opts ...ClientOption) *GitHubClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	g := &GitHubClient{cfg: cfg, http: http.DefaultClient}
	for _, opt := range opts {
		opt(g)
	}

	g.exec = resilience.NewExecutor(
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:          "github",
			IsFailure:     countsAgainstCircuit,
			OnStateChange: g.onState,
		})),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			RetryIf:      retryable,
		})),
		resilience.WithTimeout(cfg.Timeout),
	)
	return g
}

// Configured implements Fetcher.
func (g *GitHubClient) Configured() bool {
	return g.cfg.Token != "" && g.cfg.Username != ""
}

// CircuitState reports the breaker state.
func (g *GitHubClient) CircuitState() resilience.State {
	return g.exec.CircuitBreaker().State()
}

// Fetch implements Fetcher.
func (g *GitHubClient) Fetch(ctx context.Context, req Request) (Data, error) {
	if !g.Configured() {
		return Data{}, ErrNotConfigured
	}
	user := url.PathEscape(g.cfg.Username)

	switch req.Kind {
	case KindUser:
		var u *User
		if err := g.get(ctx, "/users/"+user, nil, &u); err != nil {
			return Data{}, err
		}
		return Data{Kind: KindUser, User: u}, nil

	case KindRepos:
		var repos []Repo
		if err := g.get(ctx, "/users/"+user+"/repos", repoQuery(req.Params), &repos); err != nil {
			return Data{}, err
		}
		return Data{Kind: KindRepos, Repos: repos}, nil

	case KindStats:
		var all []Repo
		for page := 1; page <= maxStatPages; page++ {
			q := url.Values{"type": {"owner"}, "per_page": {"100"}, "page": {strconv.Itoa(page)}}
			var repos []Repo
			if err := g.get(ctx, "/users/"+user+"/repos", q, &repos); err != nil {
				return Data{}, err
			}
			all = append(all, repos...)
			if len(repos) < 100 {
				break
			}
		}
		return Data{Kind: KindStats, Stats: summarize(all)}, nil

	case KindRateLimit:
		var body struct {
			Rate *struct {
				Limit     int   `json:"limit"`
				Remaining int   `json:"remaining"`
				Used      int   `json:"used"`
				Reset     int64 `json:"reset"`
			} `json:"rate"`
		}
		if err := g.get(ctx, "/rate_limit", nil, &body); err != nil {
			return Data{}, err
		}
		if body.Rate == nil {
			return Data{}, ErrNoData
		}
		return Data{Kind: KindRateLimit, RateLimit: &RateLimit{
			Limit:     body.Rate.Limit,
			Remaining: body.Rate.Remaining,
			Used:      body.Rate.Used,
			Reset:     time.Unix(body.Rate.Reset, 0).UTC(),
		}}, nil
	}
	return Data{}, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
}

// repoQuery keeps the listing parameters GitHub understands.
func repoQuery(params url.Values) url.Values {
	q := url.Values{"sort": {"updated"}, "per_page": {"30"}}
	for _, name := range []string{"sort", "direction", "per_page", "page"} {
		if v := params.Get(name); v != "" {
			q.Set(name, v)
		}
	}
	if n, err := strconv.Atoi(q.Get("per_page")); err != nil || n < 1 || n > 100 {
		q.Set("per_page", "30")
	}
	return q
}

func (g *GitHubClient) get(ctx context.Context, path string, query url.Values, out any) error {
	return g.exec.Execute(ctx, func(ctx context.Context) error {
		u := g.cfg.BaseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
		req.Header.Set("X-GitHub-Api-Version", apiVersion)
		req.Header.Set("User-Agent", "opscore")
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

		resp, err := g.http.Do(req)
		if err != nil {
			return fmt.Errorf("github request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrNoData
		case resp.StatusCode != http.StatusOK:
			return &StatusError{Code: resp.StatusCode, Path: path}
		}

		body = bytes.TrimSpace(body)
		if len(body) == 0 || bytes.Equal(body, []byte("null")) {
			return ErrNoData
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("parse github response: %w", err)
		}
		return nil
	})
}

func retryable(err error) bool {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return se.Temporary()
	case errors.Is(err, ErrNoData),
		resilience.Rejected(err),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// countsAgainstCircuit ignores answers that show GitHub is healthy.
func countsAgainstCircuit(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return !errors.Is(err, ErrNoData) && !errors.Is(err, context.Canceled)
}
