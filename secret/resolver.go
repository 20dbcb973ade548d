package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Resolver resolves secret references in config values.
//
// Values are expanded with Expand first. A value that is entirely a
// secretref is replaced by the secret; secretrefs embedded in a longer
// value are replaced in place.
type Resolver struct {
	providers map[string]Provider
	lookup    LookupFunc
	strict    bool
}

// NewResolver creates a resolver over providers. In strict mode a provider
// returning an empty value is an error.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider), strict: strict}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// Default returns a strict resolver with the env and file providers, both
// reading environment variables through lookup (os.LookupEnv when nil).
func Default(lookup LookupFunc) *Resolver {
	r := NewResolver(true, EnvProvider{Lookup: lookup}, FileProvider{})
	r.lookup = lookup
	return r
}

// ResolveValue resolves environment variables and secret refs in value.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	var (
		expanded string
		err      error
	)
	if r != nil && r.lookup != nil {
		expanded, err = Expand(value, r.lookup)
	} else {
		expanded, err = ExpandEnvStrict(value)
	}
	if err != nil || r == nil {
		return expanded, err
	}

	if name, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolveSingle(ctx, name, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ResolveSlice resolves each value in values.
func (r *Resolver) ResolveSlice(ctx context.Context, values []string) ([]string, error) {
	if values == nil {
		return nil, nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

// ResolveAll resolves each pointed-to string in place and stops at the
// first failure. The error names the field.
func (r *Resolver) ResolveAll(ctx context.Context, fields map[string]*string) error {
	for name, p := range fields {
		if p == nil || *p == "" {
			continue
		}
		v, err := r.ResolveValue(ctx, *p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
		*p = v
	}
	return nil
}

// ParseSecretRef parses a full secret reference of the form:
//
//	secretref:<provider>:<ref>
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	const prefix = "secretref:"
	if !strings.HasPrefix(value, prefix) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(value, prefix), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (r *Resolver) resolveSingle(ctx context.Context, name, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", errors.New("secret: ref is required")
	}
	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownProvider, name)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("secret: provider %q returned empty value for %q", name, ref)
	}
	return v, nil
}

var inlineSecretRefPattern = regexp.MustCompile(`secretref:([^:\s]+):([^\s]+)`)

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	matches := inlineSecretRefPattern.FindAllStringSubmatchIndex(value, -1)
	out := value
	// back to front so earlier indexes stay valid
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		v, err := r.resolveSingle(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + v + out[m[1]:]
	}
	return out, nil
}
