package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session is the signed-in staff member for one request.
type Session struct {
	StaffID   string    `json:"staff_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenID   string    `json:"-"`
}

type sessionKey struct{}

// WithSession stores s on the context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session placed by the auth middleware.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

type staffClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

const tokenIssuer = "dentalbook"

// Tokens signs and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the account.
func (t *Tokens) Issue(a *Account) (string, Session, error) {
	if len(t.secret) == 0 {
		return "", Session{}, errors.New("auth: signing secret not configured")
	}
	now := t.now().UTC().Truncate(time.Second)
	s := Session{
		StaffID:   a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Role:      a.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(t.ttl),
		TokenID:   uuid.NewString(),
	}
	claims := staffClaims{
		Email: s.Email,
		Name:  s.Name,
		Role:  s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   s.StaffID,
			ID:        s.TokenID,
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, s, nil
}

// Parse verifies the signature and expiry of a token.
func (t *Tokens) Parse(token string) (Session, error) {
	if len(t.secret) == 0 {
		return Session{}, errors.New("auth: signing secret not configured")
	}
	var claims staffClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(t.now))
	if err != nil || !parsed.Valid {
		return Session{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	s := Session{
		StaffID: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Role:    claims.Role,
		TokenID: claims.ID,
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
