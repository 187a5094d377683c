package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/hotel-booking/internal/domain"
)

// SessionCodec signs and verifies session tokens.
type SessionCodec struct {
	secret []byte
	issuer string
	maxAge time.Duration
	now    func() time.Time
}

// CodecOption customizes a SessionCodec.
type CodecOption func(*SessionCodec)

// WithClock sets the time source (primarily for testing).
func WithClock(now func() time.Time) CodecOption {
	return func(c *SessionCodec) {
		c.now = now
	}
}

// NewSessionCodec builds a codec. maxAge is the absolute session lifetime.
func NewSessionCodec(secret, issuer string, maxAge time.Duration, opts ...CodecOption) *SessionCodec {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	c := &SessionCodec{
		secret: []byte(secret),
		issuer: issuer,
		maxAge: maxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// sessionClaims is the JWT payload.
type sessionClaims struct {
	User                 domain.IdentityClaims `json:"user"`
	AccessToken          string                `json:"access_token,omitempty"`
	RefreshToken         string                `json:"refresh_token,omitempty"`
	AccessTokenExpiresAt int64                 `json:"access_token_expires_at,omitempty"`
	Error                string                `json:"error,omitempty"`
	jwt.RegisteredClaims
}

// Now returns the codec's current time.
func (c *SessionCodec) Now() time.Time {
	return c.now()
}

// MaxAge returns the absolute session lifetime.
func (c *SessionCodec) MaxAge() time.Duration {
	return c.maxAge
}

// Encode mints a new session for a login event.
func (c *SessionCodec) Encode(claims domain.IdentityClaims, grant domain.OAuthGrant) (string, domain.SessionToken, error) {
	if err := claims.Validate(); err != nil {
		return "", domain.SessionToken{}, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}

	// whole seconds so exp carries the exact boundary
	issuedAt := c.now().Truncate(time.Second)
	session := domain.SessionToken{
		Claims:       claims,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		IssuedAt:     issuedAt,
		ExpiresAt:    issuedAt.Add(c.maxAge),
	}
	if grant.AccessToken != "" || grant.RefreshToken != "" {
		session.AccessTokenExpiresAt = issuedAt.Add(grant.ExpiresIn)
	}

	raw, err := c.sign(session)
	if err != nil {
		return "", domain.SessionToken{}, err
	}
	return raw, session, nil
}

// Reissue re-signs an existing session, keeping its absolute expiry.
func (c *SessionCodec) Reissue(session domain.SessionToken) (string, error) {
	if err := session.Claims.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
	if session.IssuedAt.IsZero() || session.ExpiresAt.IsZero() {
		return "", errors.New("reissue: session has no lifetime")
	}
	return c.sign(session)
}

// Parse verifies signature and absolute expiry. It does not refresh.
func (c *SessionCodec) Parse(raw string) (domain.SessionToken, error) {
	parsed, err := jwt.ParseWithClaims(raw, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(c.issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return domain.SessionToken{}, fmt.Errorf("%w: %v", ErrTokenDecode, err)
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return domain.SessionToken{}, fmt.Errorf("%w: invalid token claims", ErrTokenDecode)
	}
	if err := claims.User.Validate(); err != nil {
		return domain.SessionToken{}, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}

	session := domain.SessionToken{
		Claims:       claims.User,
		AccessToken:  claims.AccessToken,
		RefreshToken: claims.RefreshToken,
		Error:        claims.Error,
		ExpiresAt:    claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.AccessTokenExpiresAt > 0 {
		session.AccessTokenExpiresAt = time.UnixMilli(claims.AccessTokenExpiresAt)
	}
	return session, nil
}

func (c *SessionCodec) sign(session domain.SessionToken) (string, error) {
	claims := &sessionClaims{
		User:         session.Claims,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		Error:        session.Error,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   session.Claims.ID,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	if !session.AccessTokenExpiresAt.IsZero() {
		claims.AccessTokenExpiresAt = session.AccessTokenExpiresAt.UnixMilli()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}
