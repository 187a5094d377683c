package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/hotel-booking/internal/domain"
)

// SessionRefresher renews the provider token held by a session.
type SessionRefresher interface {
	RefreshSession(ctx context.Context, session domain.SessionToken) (domain.SessionToken, error)
}

// DecodeResult is the outcome of decoding one raw session token.
// Session is nil when the caller is unauthenticated.
type DecodeResult struct {
	Session          *domain.SessionToken
	RefreshAttempted bool
	RefreshErr       error
}

// Authenticated reports whether the token decoded to a session.
func (r DecodeResult) Authenticated() bool {
	return r.Session != nil
}

// Decoder verifies session tokens and lazily refreshes stale provider tokens.
type Decoder struct {
	codec     *SessionCodec
	refresher SessionRefresher
	logger    *zap.Logger
}

// NewDecoder wires a codec to an optional refresher.
func NewDecoder(codec *SessionCodec, refresher SessionRefresher, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{codec: codec, refresher: refresher, logger: logger}
}

// Decode never fails past this boundary: a bad or expired token yields an
// unauthenticated result, and a failed refresh yields an error-flagged session.
// Refresh runs at most once per call.
func (d *Decoder) Decode(ctx context.Context, raw string) DecodeResult {
	if raw == "" {
		return DecodeResult{}
	}

	session, err := d.codec.Parse(raw)
	if err != nil {
		d.logger.Debug("session token rejected", zap.Error(err))
		return DecodeResult{}
	}

	if !session.AccessTokenStale(d.codec.Now()) {
		return DecodeResult{Session: &session}
	}

	result := DecodeResult{RefreshAttempted: true}
	if session.RefreshToken == "" || d.refresher == nil {
		flagged := session
		flagged.Error = domain.RefreshAccessTokenError
		result.Session = &flagged
		if session.RefreshToken == "" {
			result.RefreshErr = &RefreshError{Err: ErrMissingRefreshToken}
		} else {
			result.RefreshErr = &RefreshError{Err: ErrProviderNotConfigured}
		}
		return result
	}

	refreshed, err := d.refresher.RefreshSession(ctx, session)
	if err != nil {
		d.logger.Warn("access token refresh failed",
			zap.String("user_id", session.Claims.ID),
			zap.Error(err))
		flagged := session
		flagged.Error = domain.RefreshAccessTokenError
		result.Session = &flagged
		result.RefreshErr = err
		return result
	}
	refreshed.Claims = session.Claims
	result.Session = &refreshed
	return result
}
