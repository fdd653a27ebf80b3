package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims the clinic understands. Providers emit either
// a single "role" or a "roles" array.
type Claims struct {
	jwt.RegisteredClaims
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	Email string   `json:"email,omitempty"`
}

func (c *Claims) role() string {
	if c.Role != "" {
		return c.Role
	}
	if len(c.Roles) > 0 {
		return c.Roles[0]
	}
	return ""
}

// ResolvedUser is the stored user a token subject maps to.
type ResolvedUser struct {
	ID     string
	Role   string
	Active bool
}

// UserResolver looks up the local user for an identity-provider subject.
// It returns nil, nil when no user is linked to the subject.
type UserResolver interface {
	ResolveExternal(ctx context.Context, externalID string) (*ResolvedUser, error)
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey switches verification to HS256 with a shared secret.
	SigningKey []byte
	Resolver   UserResolver
}

// JWTVerifier verifies provider-issued JWTs, either with a shared HMAC
// secret or with RSA keys published at a JWKS endpoint.
type JWTVerifier struct {
	cfg     JWTConfig
	keyfunc func(ctx context.Context) jwt.Keyfunc
	methods []string
}

// NewJWTVerifier builds a verifier. When neither a signing key nor a JWKS
// URL is configured, the JWKS URL is discovered from the issuer.
func NewJWTVerifier(ctx context.Context, cfg JWTConfig) (*JWTVerifier, error) {
	v := &JWTVerifier{cfg: cfg}

	if len(cfg.SigningKey) > 0 {
		v.methods = []string{jwt.SigningMethodHS256.Alg()}
		v.keyfunc = func(context.Context) jwt.Keyfunc {
			return func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
		}
		return v, nil
	}

	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		if cfg.Issuer == "" {
			return nil, errors.New("jwt verifier needs a signing key, a JWKS URL or an issuer")
		}
		provider, err := DiscoverOIDC(ctx, cfg.Issuer)
		if err != nil {
			return nil, err
		}
		jwksURL = provider.JWKSURI
	}

	cache := NewJWKSCache(jwksURL, defaultJWKSCacheTTL)
	v.methods = []string{jwt.SigningMethodRS256.Alg()}
	v.keyfunc = func(ctx context.Context) jwt.Keyfunc {
		return func(t *jwt.Token) (interface{}, error) {
			kid, ok := t.Header["kid"].(string)
			if !ok || kid == "" {
				return nil, errors.New("token has no kid header")
			}
			return cache.Key(ctx, kid)
		}
	}
	return v, nil
}

func (v *JWTVerifier) Verify(ctx context.Context, tokenStr string) (*Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods(v.methods), jwt.WithExpirationRequired()}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, v.keyfunc(ctx), opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	id := &Identity{
		Subject: claims.Subject,
		Role:    strings.ToLower(claims.role()),
		Email:   claims.Email,
	}
	return resolve(ctx, v.cfg.Resolver, id)
}

// resolve lets the stored user's role win over whatever the token claims.
func resolve(ctx context.Context, r UserResolver, id *Identity) (*Identity, error) {
	if r != nil {
		u, err := r.ResolveExternal(ctx, id.Subject)
		if err != nil {
			return nil, err
		}
		if u != nil {
			if !u.Active {
				return nil, ErrInactiveUser
			}
			id.UserID = u.ID
			id.Role = u.Role
		}
	}
	if !ValidRole(id.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, id.Role)
	}
	return id, nil
}

const devRolePrefix = "dev-"

// DevVerifier accepts any non-empty bearer token. A token of the form
// "dev-<role>" selects that role; anything else gets the default role.
// It must only be used with ENV=development.
type DevVerifier struct {
	Subject     string
	DefaultRole string
	Resolver    UserResolver
}

func NewDevVerifier(defaultRole string, resolver UserResolver) *DevVerifier {
	if defaultRole == "" {
		defaultRole = RoleTherapist
	}
	return &DevVerifier{Subject: "dev-user", DefaultRole: defaultRole, Resolver: resolver}
}

func (d *DevVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}
	role := d.DefaultRole
	if strings.HasPrefix(token, devRolePrefix) && ValidRole(strings.TrimPrefix(token, devRolePrefix)) {
		role = strings.TrimPrefix(token, devRolePrefix)
	}
	subject := d.Subject + ":" + role
	return resolve(ctx, d.Resolver, &Identity{Subject: subject, Role: role, Email: role + "@dev.local"})
}
