package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/hotel-booking/internal/domain"
)

func TestSessionCodec_RoundTrip(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(clock)

	raw, minted, err := codec.Encode(guestClaims(), domain.OAuthGrant{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresIn:    time.Hour,
	})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(24*time.Hour), minted.ExpiresAt)
	assert.Equal(t, testNow.Add(time.Hour), minted.AccessTokenExpiresAt)

	session, err := codec.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, guestClaims(), session.Claims)
	assert.Equal(t, "at-1", session.AccessToken)
	assert.Equal(t, "rt-1", session.RefreshToken)
	assert.True(t, minted.AccessTokenExpiresAt.Equal(session.AccessTokenExpiresAt))
	assert.True(t, minted.ExpiresAt.Equal(session.ExpiresAt))
	assert.Empty(t, session.Error)
}

func TestSessionCodec_CredentialLoginHasNoProviderToken(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(clock)

	raw, _, err := codec.Encode(guestClaims(), domain.OAuthGrant{})
	require.NoError(t, err)

	session, err := codec.Parse(raw)
	require.NoError(t, err)
	assert.Empty(t, session.AccessToken)
	assert.True(t, session.AccessTokenExpiresAt.IsZero())

	clock.Advance(23 * time.Hour)
	assert.False(t, session.AccessTokenStale(clock.Now()))
}

func TestSessionCodec_AbsoluteExpiry(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(clock)

	raw, _, err := codec.Encode(guestClaims(), domain.OAuthGrant{})
	require.NoError(t, err)

	clock.Advance(24*time.Hour - time.Millisecond)
	_, err = codec.Parse(raw)
	require.NoError(t, err, "token must still be valid just before expiry")

	clock.Advance(time.Millisecond)
	_, err = codec.Parse(raw)
	assert.ErrorIs(t, err, ErrTokenDecode)
}

func TestSessionCodec_ReissueKeepsAbsoluteExpiry(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(clock)

	_, minted, err := codec.Encode(guestClaims(), domain.OAuthGrant{AccessToken: "at", RefreshToken: "rt", ExpiresIn: time.Hour})
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	minted.AccessToken = "at-2"
	minted.AccessTokenExpiresAt = clock.Now().Add(time.Hour)

	raw, err := codec.Reissue(minted)
	require.NoError(t, err)

	session, err := codec.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "at-2", session.AccessToken)
	assert.True(t, session.ExpiresAt.Equal(testNow.Add(24*time.Hour)))
}

func TestSessionCodec_RejectsTampering(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(clock)

	raw, _, err := codec.Encode(guestClaims(), domain.OAuthGrant{})
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)

	other := NewSessionCodec("another-secret", "hotel-booking-test", 24*time.Hour, WithClock(clock.Now))
	forged, _, err := other.Encode(domain.IdentityClaims{ID: "user-1", Role: domain.RoleAdmin}, domain.OAuthGrant{})
	require.NoError(t, err)
	forgedParts := strings.Split(forged, ".")

	cases := map[string]string{
		"garbage":              "not-a-token",
		"swapped payload":      parts[0] + "." + forgedParts[1] + "." + parts[2],
		"foreign secret":       forged,
		"truncated signature":  parts[0] + "." + parts[1] + "." + parts[2][:len(parts[2])-4],
		"unsigned none header": "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." + parts[1] + ".",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Parse(token)
			assert.ErrorIs(t, err, ErrTokenDecode)
		})
	}
}

func TestSessionCodec_RejectsForeignIssuer(t *testing.T) {
	clock := newTestClock()
	other := NewSessionCodec("test-secret", "someone-else", 24*time.Hour, WithClock(clock.Now))
	raw, _, err := other.Encode(guestClaims(), domain.OAuthGrant{})
	require.NoError(t, err)

	_, err = newTestCodec(clock).Parse(raw)
	assert.ErrorIs(t, err, ErrTokenDecode)
}

func TestSessionCodec_EncodeRejectsInvalidClaims(t *testing.T) {
	codec := newTestCodec(newTestClock())

	_, _, err := codec.Encode(domain.IdentityClaims{ID: "u-1"}, domain.OAuthGrant{})
	assert.ErrorIs(t, err, ErrInvalidClaims)

	_, _, err = codec.Encode(domain.IdentityClaims{Role: domain.RoleUser}, domain.OAuthGrant{})
	assert.ErrorIs(t, err, ErrInvalidClaims)

	_, _, err = codec.Encode(domain.IdentityClaims{ID: "u-1", Role: "owner"}, domain.OAuthGrant{})
	assert.ErrorIs(t, err, ErrInvalidClaims)
}
