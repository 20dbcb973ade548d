package cache

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPolicy is returned by Policy.Validate.
var ErrInvalidPolicy = errors.New("cache: invalid policy")

// Policy bounds the TTLs callers may request.
type Policy struct {
	// DefaultTTL is the TTL to use when none is specified.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns the default caching policy.
// DefaultTTL: 5 minutes, MaxTTL: 1 hour
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     1 * time.Hour,
	}
}

// Validate rejects a non-positive default and a maximum below the default.
func (p Policy) Validate() error {
	switch {
	case p.DefaultTTL <= 0:
		return fmt.Errorf("%w: default TTL must be positive", ErrInvalidPolicy)
	case p.MaxTTL < 0:
		return fmt.Errorf("%w: max TTL must not be negative", ErrInvalidPolicy)
	case p.MaxTTL > 0 && p.MaxTTL < p.DefaultTTL:
		return fmt.Errorf("%w: max TTL %v is below default %v", ErrInvalidPolicy, p.MaxTTL, p.DefaultTTL)
	}
	return nil
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}

	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}

	return ttl
}
