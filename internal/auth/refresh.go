package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/spec-kit/hotel-booking/internal/config"
	"github.com/spec-kit/hotel-booking/internal/domain"
)

// TokenRefresher exchanges a refresh token for a new access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (domain.OAuthGrant, error)
}

// RefreshManager runs the refresh_token grant against the provider's token endpoint.
type RefreshManager struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	timeout    time.Duration
	defaultTTL time.Duration
	cache      RefreshCache
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// RefreshOption customizes a RefreshManager.
type RefreshOption func(*RefreshManager)

// WithRefreshCache shares refresh results between concurrent decodes of one session.
func WithRefreshCache(cache RefreshCache, ttl time.Duration) RefreshOption {
	return func(m *RefreshManager) {
		m.cache = cache
		m.cacheTTL = ttl
	}
}

// WithHTTPClient overrides the client used for token endpoint calls.
func WithHTTPClient(client *http.Client) RefreshOption {
	return func(m *RefreshManager) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithRefreshClock sets the time source (primarily for testing).
func WithRefreshClock(now func() time.Time) RefreshOption {
	return func(m *RefreshManager) {
		m.now = now
	}
}

// WithRefreshLogger attaches a logger.
func WithRefreshLogger(logger *zap.Logger) RefreshOption {
	return func(m *RefreshManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewOAuth2Config builds the provider client configuration. Client credentials
// are sent in the request body.
func NewOAuth2Config(cfg config.OAuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// NewRefreshManager constructs a manager from provider configuration.
func NewRefreshManager(cfg config.OAuthConfig, opts ...RefreshOption) *RefreshManager {
	m := &RefreshManager{
		oauth:      NewOAuth2Config(cfg),
		httpClient: &http.Client{Timeout: cfg.RefreshTimeout()},
		timeout:    cfg.RefreshTimeout(),
		defaultTTL: cfg.DefaultAccessTTL(),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Refresh performs one refresh_token grant. A rotated refresh token is
// returned when the provider issues one; otherwise the input token is kept.
func (m *RefreshManager) Refresh(ctx context.Context, refreshToken string) (domain.OAuthGrant, error) {
	if refreshToken == "" {
		return domain.OAuthGrant{}, &RefreshError{Err: ErrMissingRefreshToken}
	}

	key := refreshCacheKey(refreshToken)
	if grant, ok := m.cached(ctx, key); ok {
		return grant, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	token, err := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return domain.OAuthGrant{}, classifyRefreshError(err)
	}
	if token.AccessToken == "" {
		return domain.OAuthGrant{}, &RefreshError{Code: "missing_access_token"}
	}

	grant := domain.OAuthGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    grantLifetime(token, m.now(), m.defaultTTL),
	}
	if grant.RefreshToken == "" {
		grant.RefreshToken = refreshToken
	}

	m.store(ctx, key, grant)
	return grant, nil
}

// RefreshSession renews a session's provider token. The result is a new value:
// on success only the token fields change and the error flag clears; on failure
// the old tokens are kept and the error flag is set. Claims are never touched.
func (m *RefreshManager) RefreshSession(ctx context.Context, session domain.SessionToken) (domain.SessionToken, error) {
	grant, err := m.Refresh(ctx, session.RefreshToken)
	if err != nil {
		flagged := session
		flagged.Error = domain.RefreshAccessTokenError
		return flagged, err
	}

	refreshed := session
	refreshed.AccessToken = grant.AccessToken
	refreshed.AccessTokenExpiresAt = m.now().Add(grant.ExpiresIn)
	refreshed.RefreshToken = grant.RefreshToken
	refreshed.Error = ""
	return refreshed, nil
}

// grantLifetime prefers the provider's expires_in, then the token expiry
// measured against now, then fallback.
func grantLifetime(token *oauth2.Token, now time.Time, fallback time.Duration) time.Duration {
	if secs, ok := extraSeconds(token.Extra("expires_in")); ok && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if !token.Expiry.IsZero() {
		if d := token.Expiry.Sub(now); d > 0 {
			return d
		}
	}
	return fallback
}

func (m *RefreshManager) cached(ctx context.Context, key string) (domain.OAuthGrant, bool) {
	if m.cache == nil || m.cacheTTL <= 0 {
		return domain.OAuthGrant{}, false
	}
	entry, ok, err := m.cache.Get(ctx, key)
	if err != nil {
		m.logger.Warn("refresh cache read failed", zap.Error(err))
		return domain.OAuthGrant{}, false
	}
	if !ok {
		return domain.OAuthGrant{}, false
	}
	remaining := time.UnixMilli(entry.ExpiresAt).Sub(m.now())
	if remaining <= 0 || entry.AccessToken == "" {
		return domain.OAuthGrant{}, false
	}
	m.logger.Debug("refresh served from cache")
	return domain.OAuthGrant{
		AccessToken:  entry.AccessToken,
		RefreshToken: entry.RefreshToken,
		ExpiresIn:    remaining,
	}, true
}

func (m *RefreshManager) store(ctx context.Context, key string, grant domain.OAuthGrant) {
	if m.cache == nil || m.cacheTTL <= 0 {
		return
	}
	ttl := m.cacheTTL
	if grant.ExpiresIn < ttl {
		ttl = grant.ExpiresIn
	}
	if ttl <= 0 {
		return
	}
	entry := CachedGrant{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    m.now().Add(grant.ExpiresIn).UnixMilli(),
	}
	// the caller's deadline may already be spent on the provider round trip
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := m.cache.Set(storeCtx, key, entry, ttl); err != nil {
		m.logger.Warn("refresh cache write failed", zap.Error(err))
	}
}

func classifyRefreshError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		refreshErr := &RefreshError{Code: retrieveErr.ErrorCode, Err: err}
		if retrieveErr.Response != nil {
			refreshErr.StatusCode = retrieveErr.Response.StatusCode
		}
		return refreshErr
	}
	return &RefreshError{Err: errors.Join(ErrIdentityProviderUnavailable, err)}
}

func refreshCacheKey(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}

func extraSeconds(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		return parsed, err == nil
	}
	return 0, false
}
