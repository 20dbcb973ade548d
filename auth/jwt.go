package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures token verification.
type JWTConfig struct {
	// Issuer is the expected token issuer (iss claim). Empty skips the check.
	Issuer string

	// Audience is the expected token audience (aud claim). Empty skips the check.
	Audience string

	// PrincipalClaim is the claim containing the user principal.
	// Default: "sub"
	PrincipalClaim string

	// RolesClaim is the claim containing user roles.
	// Default: "roles"
	RolesClaim string

	// Leeway tolerates clock skew on time-based claims.
	Leeway time.Duration
}

// Verifier validates bearer tokens.
type Verifier struct {
	config  JWTConfig
	keyfunc jwt.Keyfunc
	methods []string
	cancel  context.CancelFunc
}

func newVerifier(config JWTConfig, kf jwt.Keyfunc, methods []string) *Verifier {
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}
	return &Verifier{config: config, keyfunc: kf, methods: methods}
}

// NewHMACVerifier verifies HS256/384/512 tokens signed with secret.
func NewHMACVerifier(secret []byte, config JWTConfig) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, ErrNoKeySource
	}
	return newVerifier(config, func(*jwt.Token) (any, error) { return secret, nil }, []string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}), nil
}

// NewJWKSVerifier verifies asymmetric tokens against the key set at url.
// The set is refreshed in the background until Close is called. Refresh
// failures are passed to onRefreshError when it is non-nil.
func NewJWKSVerifier(url string, config JWTConfig, onRefreshError func(url string, err error)) (*Verifier, error) {
	if url == "" {
		return nil, ErrNoKeySource
	}

	ctx, cancel := context.WithCancel(context.Background())
	override := keyfunc.Override{
		RefreshInterval: 6 * time.Hour,
		RefreshErrorHandlerFunc: func(u string) func(context.Context, error) {
			return func(_ context.Context, err error) {
				if onRefreshError != nil {
					onRefreshError(u, err)
				}
			}
		},
		HTTPTimeout: 10 * time.Second,
	}
	jwks, err := keyfunc.NewDefaultOverrideCtx(ctx, []string{url}, override)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("unable to load JWKS: %w", err)
	}

	v := newVerifier(config, jwks.Keyfunc, []string{
		jwt.SigningMethodRS256.Alg(),
		jwt.SigningMethodRS384.Alg(),
		jwt.SigningMethodRS512.Alg(),
		jwt.SigningMethodPS256.Alg(),
		jwt.SigningMethodES256.Alg(),
	})
	v.cancel = cancel
	return v, nil
}

// Close stops background JWKS refreshes.
func (v *Verifier) Close() {
	if v.cancel != nil {
		v.cancel()
	}
}

// Verify parses raw and returns its identity.
func (v *Verifier) Verify(raw string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithLeeway(v.config.Leeway),
	}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}

	token, err := jwt.Parse(raw, v.keyfunc, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenMalformed
	case err != nil || !token.Valid:
		return nil, ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}
	return v.identity(claims), nil
}

func (v *Verifier) identity(claims jwt.MapClaims) *Identity {
	id := &Identity{Claims: make(map[string]any, len(claims))}
	for k, c := range claims {
		id.Claims[k] = c
	}

	if principal, ok := claims[v.config.PrincipalClaim].(string); ok {
		id.Principal = principal
	}

	switch roles := claims[v.config.RolesClaim].(type) {
	case []any:
		for _, r := range roles {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	case string:
		id.Roles = strings.Fields(roles)
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	return id
}

func extractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredentials
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMissingCredentials
	}
	return parts[1], nil
}
