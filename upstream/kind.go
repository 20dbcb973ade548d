package upstream

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/opscore/cache"
)

// Kind is a data type the proxy can fetch.
type Kind string

const (
	KindUser      Kind = "user"
	KindRepos     Kind = "repos"
	KindStats     Kind = "stats"
	KindRateLimit Kind = "rate-limit"
)

var kinds = []Kind{KindUser, KindRepos, KindStats, KindRateLimit}

// ValidKinds lists the accepted values of the type parameter, in the
// order they are documented.
func ValidKinds() []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// ParseKind validates s.
func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q (valid: %s)", ErrUnknownKind, s, strings.Join(ValidKinds(), ", "))
}

// DefaultTTL is how long a kind is cached when no TTL is configured.
func (k Kind) DefaultTTL() time.Duration {
	switch k {
	case KindUser:
		return 10 * time.Minute
	case KindStats:
		return 15 * time.Minute
	case KindRateLimit:
		return time.Minute
	default:
		return 5 * time.Minute
	}
}

// Request is the shape of one lookup.
type Request struct {
	Kind   Kind
	Params url.Values

	// TTL overrides the proxy's TTL for this kind when positive.
	TTL time.Duration
}

// reserved parameters select behavior and are not part of the shape.
var reserved = []string{"type", "force"}

// Key returns the cache key "github:<type>:<sorted query>".
func (r Request) Key() string {
	return cache.QueryKey("github", string(r.Kind), r.Params, reserved...)
}

// RequestFromQuery builds a Request from an inbound query string and
// reports whether the caller asked to bypass the cache.
func RequestFromQuery(q url.Values) (Request, bool, error) {
	kind, err := ParseKind(q.Get("type"))
	if err != nil {
		return Request{}, false, err
	}
	force, _ := strconv.ParseBool(q.Get("force"))
	return Request{Kind: kind, Params: q}, force, nil
}
