package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/hotel-booking/internal/domain"
)

type stubRefresher struct {
	calls  atomic.Int32
	result func(domain.SessionToken) (domain.SessionToken, error)
}

func (s *stubRefresher) RefreshSession(_ context.Context, session domain.SessionToken) (domain.SessionToken, error) {
	s.calls.Add(1)
	return s.result(session)
}

func mintOAuthSession(t *testing.T, codec *SessionCodec, ttl time.Duration) string {
	t.Helper()
	raw, _, err := codec.Encode(guestClaims(), domain.OAuthGrant{
		AccessToken:  "at-old",
		RefreshToken: "rt-old",
		ExpiresIn:    ttl,
	})
	require.NoError(t, err)
	return raw
}

func TestDecoder_Unauthenticated(t *testing.T) {
	codec := newTestCodec(newTestClock())
	refresher := &stubRefresher{}
	decoder := NewDecoder(codec, refresher, nil)

	for name, raw := range map[string]string{"empty": "", "garbage": "abc.def.ghi"} {
		t.Run(name, func(t *testing.T) {
			result := decoder.Decode(context.Background(), raw)
			assert.False(t, result.Authenticated())
			assert.False(t, result.RefreshAttempted)
		})
	}
	assert.Zero(t, refresher.calls.Load())
}

func TestDecoder_FreshSessionSkipsRefresh(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(clock)
	refresher := &stubRefresher{}
	decoder := NewDecoder(codec, refresher, nil)

	credentials, _, err := codec.Encode(guestClaims(), domain.OAuthGrant{})
	require.NoError(t, err)
	oauth := mintOAuthSession(t, codec, time.Hour)

	clock.Advance(59 * time.Minute)
	for _, raw := range []string{credentials, oauth} {
		result := decoder.Decode(context.Background(), raw)
		require.True(t, result.Authenticated())
		assert.False(t, result.RefreshAttempted)
		assert.Equal(t, guestClaims(), result.Session.Claims)
	}
	assert.Zero(t, refresher.calls.Load())
}

func TestDecoder_RefreshesStaleAccessToken(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(clock)
	refresher := &stubRefresher{result: func(s domain.SessionToken) (domain.SessionToken, error) {
		s.AccessToken = "at-new"
		s.AccessTokenExpiresAt = clock.Now().Add(time.Hour)
		s.Claims.Role = domain.RoleAdmin
		return s, nil
	}}
	decoder := NewDecoder(codec, refresher, nil)
	raw := mintOAuthSession(t, codec, time.Hour)

	clock.Advance(time.Hour)
	result := decoder.Decode(context.Background(), raw)

	require.True(t, result.Authenticated())
	assert.True(t, result.RefreshAttempted)
	assert.NoError(t, result.RefreshErr)
	assert.Equal(t, "at-new", result.Session.AccessToken)
	assert.Equal(t, guestClaims(), result.Session.Claims, "refresh must not alter identity claims")
	assert.Equal(t, int32(1), refresher.calls.Load())
}

func TestDecoder_FailedRefreshFlagsSession(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(clock)
	refresher := &stubRefresher{result: func(s domain.SessionToken) (domain.SessionToken, error) {
		return domain.SessionToken{}, &RefreshError{StatusCode: 400, Code: "invalid_grant"}
	}}
	decoder := NewDecoder(codec, refresher, nil)
	raw := mintOAuthSession(t, codec, time.Hour)

	clock.Advance(2 * time.Hour)
	result := decoder.Decode(context.Background(), raw)

	require.True(t, result.Authenticated())
	assert.True(t, result.RefreshAttempted)
	assert.ErrorIs(t, result.RefreshErr, ErrRefreshAccessToken)
	assert.Equal(t, domain.RefreshAccessTokenError, result.Session.Error)
	assert.Equal(t, guestClaims(), result.Session.Claims)
	assert.Equal(t, "at-old", result.Session.AccessToken)
	assert.True(t, RequireRole(result.Session, domain.RoleUser))
	assert.Equal(t, int32(1), refresher.calls.Load())
}

func TestDecoder_StaleWithoutRefresher(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(clock)
	decoder := NewDecoder(codec, nil, nil)
	raw := mintOAuthSession(t, codec, time.Minute)

	clock.Advance(time.Minute)
	result := decoder.Decode(context.Background(), raw)

	require.True(t, result.Authenticated())
	assert.Equal(t, domain.RefreshAccessTokenError, result.Session.Error)
	assert.ErrorIs(t, result.RefreshErr, ErrProviderNotConfigured)
}

func TestDecoder_ExpiredSessionNeverRefreshes(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(clock)
	refresher := &stubRefresher{result: func(s domain.SessionToken) (domain.SessionToken, error) {
		return s, errors.New("must not be called")
	}}
	decoder := NewDecoder(codec, refresher, nil)
	raw := mintOAuthSession(t, codec, time.Hour)

	clock.Advance(24 * time.Hour)
	result := decoder.Decode(context.Background(), raw)

	assert.False(t, result.Authenticated())
	assert.Zero(t, refresher.calls.Load())
}
