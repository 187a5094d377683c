package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/spec-kit/hotel-booking/internal/domain"
)

const testIssuer = "https://idp.hotel.test"

type signedIDTokens struct {
	key      *rsa.PrivateKey
	verifier *oidcVerifier
}

func newSignedIDTokens(t *testing.T, clock *testClock) *signedIDTokens {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	return &signedIDTokens{
		key: key,
		verifier: &oidcVerifier{verifier: oidc.NewVerifier(testIssuer, keys, &oidc.Config{
			ClientID: "client-id",
			Now:      clock.Now,
		})},
	}
}

func (s *signedIDTokens) sign(t *testing.T, extra jwt.MapClaims) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss":   testIssuer,
		"aud":   "client-id",
		"sub":   "sub-1",
		"name":  "Rahim",
		"email": "rahim@example.com",
		"iat":   testNow.Unix(),
		"exp":   testNow.Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	require.NoError(t, err)
	return raw
}

func TestOIDCVerifier_VerifiedEmail(t *testing.T) {
	tokens := newSignedIDTokens(t, newTestClock())

	profile, err := tokens.verifier.Verify(context.Background(), tokens.sign(t, jwt.MapClaims{"email_verified": true}))
	require.NoError(t, err)
	assert.Equal(t, "sub-1", profile.Subject)
	assert.Equal(t, "rahim@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
}

func TestOIDCVerifier_RejectsUnverifiedEmail(t *testing.T) {
	tokens := newSignedIDTokens(t, newTestClock())

	t.Run("false", func(t *testing.T) {
		_, err := tokens.verifier.Verify(context.Background(), tokens.sign(t, jwt.MapClaims{"email_verified": false}))
		assert.ErrorIs(t, err, ErrEmailNotVerified)
	})
	t.Run("absent", func(t *testing.T) {
		_, err := tokens.verifier.Verify(context.Background(), tokens.sign(t, nil))
		assert.ErrorIs(t, err, ErrEmailNotVerified)
	})
}

func TestOIDCVerifier_RejectsExpiredToken(t *testing.T) {
	clock := newTestClock()
	tokens := newSignedIDTokens(t, clock)
	raw := tokens.sign(t, jwt.MapClaims{"email_verified": true})

	clock.Advance(2 * time.Hour)
	_, err := tokens.verifier.Verify(context.Background(), raw)
	require.Error(t, err)
}

func TestOAuthProvider_Exchange(t *testing.T) {
	clock := newTestClock()
	tokens := newSignedIDTokens(t, clock)
	idToken := tokens.sign(t, jwt.MapClaims{"email_verified": true})
	endpoint := newTokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "code-1", r.PostForm.Get("code"))
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "at",
			"refresh_token": "rt",
			"token_type":    "Bearer",
			"expires_in":    1200,
			"id_token":      idToken,
		})
	})
	provider := NewOAuthProvider("oidc", endpoint.oauthConfig(), tokens.verifier, WithProviderClock(clock.Now))

	profile, grant, err := provider.Exchange(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "oidc", profile.Provider)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, domain.OAuthGrant{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 20 * time.Minute}, grant)
}

func TestGrantLifetime(t *testing.T) {
	t.Run("expires_in wins", func(t *testing.T) {
		token := (&oauth2.Token{Expiry: testNow.Add(time.Minute)}).WithExtra(map[string]any{"expires_in": float64(600)})
		assert.Equal(t, 10*time.Minute, grantLifetime(token, testNow, time.Hour))
	})
	t.Run("expiry measured from injected clock", func(t *testing.T) {
		token := &oauth2.Token{Expiry: testNow.Add(20 * time.Minute)}
		assert.Equal(t, 20*time.Minute, grantLifetime(token, testNow, time.Hour))
	})
	t.Run("past expiry falls back", func(t *testing.T) {
		token := &oauth2.Token{Expiry: testNow.Add(-time.Minute)}
		assert.Equal(t, time.Hour, grantLifetime(token, testNow, time.Hour))
	})
	t.Run("no hints falls back", func(t *testing.T) {
		assert.Equal(t, time.Hour, grantLifetime(&oauth2.Token{}, testNow, time.Hour))
	})
}
