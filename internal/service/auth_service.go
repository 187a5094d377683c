package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/hotel-booking/internal/auth"
	"github.com/spec-kit/hotel-booking/internal/config"
	"github.com/spec-kit/hotel-booking/internal/domain"
	"github.com/spec-kit/hotel-booking/internal/events"
	"github.com/spec-kit/hotel-booking/internal/observability"
	"github.com/spec-kit/hotel-booking/internal/repository"
)

// AuthService coordinates login flows and session decoding. It is built once
// per process and holds no per-session state.
type AuthService struct {
	users      repository.UserRepository
	verifier   *auth.CredentialVerifier
	codec      *auth.SessionCodec
	decoder    *auth.Decoder
	provider   auth.IdentityProvider
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
// Provider and Refresher are nil when no identity provider is configured.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Hasher     auth.PasswordHasher
	Refresher  auth.SessionRefresher
	Provider   auth.IdentityProvider
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	}
	var codecOpts []auth.CodecOption
	if deps.Clock != nil {
		codecOpts = append(codecOpts, auth.WithClock(deps.Clock))
	}
	codec := auth.NewSessionCodec(cfg.Auth.SessionSecret, cfg.Auth.SessionIssuer, cfg.Auth.SessionMaxAge(), codecOpts...)

	return &AuthService{
		users:      deps.UserRepo,
		verifier:   auth.NewCredentialVerifier(deps.UserRepo, hasher),
		codec:      codec,
		decoder:    auth.NewDecoder(codec, deps.Refresher, logger),
		provider:   deps.Provider,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Verify checks credentials without minting a session.
func (s *AuthService) Verify(ctx context.Context, email, password string) (domain.IdentityClaims, error) {
	return s.verifier.Verify(ctx, email, password)
}

// Login verifies credentials and mints a session without provider tokens.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, domain.SessionToken, error) {
	claims, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		s.metrics.RecordLogin(string(events.LoginMethodCredentials), "failure")
		s.publish(ctx, events.EventLoginFailed, "", events.LoginFailedPayload{
			Method: events.LoginMethodCredentials,
			Email:  domain.NormalizeEmail(email),
			Reason: err.Error(),
		})
		return "", domain.SessionToken{}, err
	}

	raw, session, err := s.codec.Encode(claims, domain.OAuthGrant{})
	if err != nil {
		return "", domain.SessionToken{}, err
	}

	s.metrics.RecordLogin(string(events.LoginMethodCredentials), "success")
	s.publish(ctx, events.EventUserLoggedIn, claims.ID, events.LoginPayload{
		Method: events.LoginMethodCredentials,
		Email:  claims.Email,
		Role:   string(claims.Role),
	})
	return raw, session, nil
}

// ExternalLoginEnabled reports whether an identity provider is wired.
func (s *AuthService) ExternalLoginEnabled() bool {
	return s.provider != nil
}

// AuthorizeURL returns the provider redirect for state.
func (s *AuthService) AuthorizeURL(state string) (string, error) {
	if s.provider == nil {
		return "", auth.ErrProviderNotConfigured
	}
	return s.provider.AuthCodeURL(state), nil
}

// CompleteExternalLogin finishes the provider callback: it exchanges the code,
// links or creates the local record, and mints a session carrying the grant.
func (s *AuthService) CompleteExternalLogin(ctx context.Context, code string) (string, domain.SessionToken, error) {
	if s.provider == nil {
		return "", domain.SessionToken{}, auth.ErrProviderNotConfigured
	}

	profile, grant, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.externalLoginFailed(ctx, "", err)
		return "", domain.SessionToken{}, err
	}
	// records are linked by email; an unverified address must not claim one
	if !profile.EmailVerified {
		s.externalLoginFailed(ctx, profile.Email, auth.ErrEmailNotVerified)
		return "", domain.SessionToken{}, auth.ErrEmailNotVerified
	}

	linked, created, err := s.linkedRecord(ctx, profile)
	if err != nil {
		s.externalLoginFailed(ctx, profile.Email, err)
		return "", domain.SessionToken{}, err
	}

	claims := auth.FromExternalProfile(profile, linked)
	raw, session, err := s.codec.Encode(claims, grant)
	if err != nil {
		s.externalLoginFailed(ctx, profile.Email, err)
		return "", domain.SessionToken{}, err
	}

	s.metrics.RecordLogin(string(events.LoginMethodOAuth), "success")
	s.publish(ctx, events.EventUserLoggedIn, claims.ID, events.LoginPayload{
		Method:   events.LoginMethodOAuth,
		Email:    claims.Email,
		Role:     string(claims.Role),
		Provider: profile.Provider,
		NewUser:  created,
	})
	return raw, session, nil
}

// DecodeSession resolves a raw token, refreshing a stale provider token once.
func (s *AuthService) DecodeSession(ctx context.Context, raw string) auth.DecodeResult {
	result := s.decoder.Decode(ctx, raw)
	if !result.RefreshAttempted || result.Session == nil {
		return result
	}

	session := result.Session
	if result.RefreshErr != nil {
		s.metrics.RecordRefresh("failure")
		s.publish(ctx, events.EventSessionRefreshFailed, session.Claims.ID, events.RefreshPayload{
			AccessTokenExpiresAt: session.AccessTokenExpiresAt,
			Error:                result.RefreshErr.Error(),
		})
		return result
	}

	s.metrics.RecordRefresh("success")
	s.publish(ctx, events.EventSessionRefreshed, session.Claims.ID, events.RefreshPayload{
		AccessTokenExpiresAt: session.AccessTokenExpiresAt,
	})
	return result
}

// Decode returns the session for raw, or false when unauthenticated.
func (s *AuthService) Decode(ctx context.Context, raw string) (*domain.SessionToken, bool) {
	result := s.DecodeSession(ctx, raw)
	return result.Session, result.Authenticated()
}

// Reissue re-signs a session after an in-place refresh.
func (s *AuthService) Reissue(session domain.SessionToken) (string, error) {
	return s.codec.Reissue(session)
}

// Logout records the end of a session. Tokens are self-contained, so the
// caller drops the cookie.
func (s *AuthService) Logout(ctx context.Context, session *domain.SessionToken) {
	if session == nil {
		return
	}
	s.publish(ctx, events.EventUserLoggedOut, session.Claims.ID, nil)
}

// User loads a stored account for downstream views.
func (s *AuthService) User(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *AuthService) linkedRecord(ctx context.Context, profile domain.ExternalProfile) (*domain.User, bool, error) {
	user, err := s.users.FindByEmail(ctx, profile.Email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("find linked user: %w", err)
	}

	user, err = s.users.CreateLinkedIdentity(ctx, profile)
	if err != nil {
		return nil, false, fmt.Errorf("create linked identity: %w", err)
	}
	return user, true, nil
}

func (s *AuthService) externalLoginFailed(ctx context.Context, email string, err error) {
	s.metrics.RecordLogin(string(events.LoginMethodOAuth), "failure")
	s.publish(ctx, events.EventLoginFailed, "", events.LoginFailedPayload{
		Method: events.LoginMethodOAuth,
		Email:  domain.NormalizeEmail(email),
		Reason: err.Error(),
	})
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subjectID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: s.codec.Now(),
		Payload:   payload,
	})
	if err != nil {
		s.logger.Warn("publish auth event", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
