package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName carries the session token when no Authorization header is sent.
const CookieName = "auth_token"

var (
	ErrMissingToken = errors.New("authentication required")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims is the token payload issued by the web frontend. UserID falls
// back to the registered subject.
type Claims struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier resolves the calling user of a request. Without a secret it
// runs in development mode and trusts the X-User-ID header.
type Verifier struct {
	secret        []byte
	defaultUserID string
	now           func() time.Time
}

func NewVerifier(secret, defaultUserID string) *Verifier {
	return &Verifier{secret: []byte(secret), defaultUserID: defaultUserID, now: time.Now}
}

func (v *Verifier) Enabled() bool { return len(v.secret) > 0 }

// UserID returns the user the request acts for.
func (v *Verifier) UserID(r *http.Request) (string, error) {
	id, err := v.Identify(r)
	return id.UserID, err
}

// Identity is the resolved caller. Fallback is set when no user was named by
// the request and the configured default user stands in.
type Identity struct {
	UserID   string
	Fallback bool
}

// Identify resolves the caller of r.
func (v *Verifier) Identify(r *http.Request) (Identity, error) {
	if !v.Enabled() {
		if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
			return Identity{UserID: id}, nil
		}
		return Identity{UserID: v.defaultUserID, Fallback: true}, nil
	}
	token := TokenFromRequest(r)
	if token == "" {
		return Identity{}, ErrMissingToken
	}
	claims, err := v.Parse(token)
	if err != nil {
		return Identity{}, err
	}
	if claims.UserID != "" {
		return Identity{UserID: claims.UserID}, nil
	}
	return Identity{UserID: claims.Subject}, nil
}

// Parse verifies an HS256 token and returns its claims.
func (v *Verifier) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" && claims.Subject == "" {
		return nil, fmt.Errorf("%w: no user in token", ErrInvalidToken)
	}
	return claims, nil
}

// Issue signs a token for userID valid for ttl.
func (v *Verifier) Issue(userID, email string, ttl time.Duration) (string, error) {
	if !v.Enabled() {
		return "", errors.New("JWT secret is not configured")
	}
	now := v.now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// TokenFromRequest reads a Bearer token, then the auth cookie.
func TokenFromRequest(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

type ctxKey struct{}

func WithUserID(ctx context.Context, userID string) context.Context {
	return WithIdentity(ctx, Identity{UserID: userID})
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func UserIDFrom(ctx context.Context) string {
	return IdentityFrom(ctx).UserID
}

func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}
