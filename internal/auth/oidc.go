package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/spec-kit/hotel-booking/internal/config"
	"github.com/spec-kit/hotel-booking/internal/domain"
)

// IdentityProvider drives the external login redirect and callback.
type IdentityProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (domain.ExternalProfile, domain.OAuthGrant, error)
}

// IDTokenVerifier turns a raw ID token into a verified profile.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (domain.ExternalProfile, error)
}

// OAuthProvider is an OpenID Connect authorization-code client.
type OAuthProvider struct {
	name       string
	oauth      *oauth2.Config
	verifier   IDTokenVerifier
	httpClient *http.Client
	defaultTTL time.Duration
	now        func() time.Time
}

// ProviderOption customises an OAuthProvider.
type ProviderOption func(*OAuthProvider)

// WithProviderClock overrides the time source used to size grants.
func WithProviderClock(now func() time.Time) ProviderOption {
	return func(p *OAuthProvider) {
		p.now = now
	}
}

// NewOAuthProvider builds a provider around an already constructed verifier.
func NewOAuthProvider(name string, cfg config.OAuthConfig, verifier IDTokenVerifier, opts ...ProviderOption) *OAuthProvider {
	p := &OAuthProvider{
		name:       name,
		oauth:      NewOAuth2Config(cfg),
		verifier:   verifier,
		httpClient: &http.Client{Timeout: cfg.RefreshTimeout()},
		defaultTTL: cfg.DefaultAccessTTL(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name identifies the provider on linked user records.
func (p *OAuthProvider) Name() string {
	return p.name
}

// AuthCodeURL returns the provider authorization redirect, requesting offline access.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for tokens and a verified profile.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (domain.ExternalProfile, domain.OAuthGrant, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if !errors.As(err, &retrieveErr) {
			err = errors.Join(ErrIdentityProviderUnavailable, err)
		}
		return domain.ExternalProfile{}, domain.OAuthGrant{}, fmt.Errorf("exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return domain.ExternalProfile{}, domain.OAuthGrant{}, errors.New("exchange code: no id_token in response")
	}

	profile, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return domain.ExternalProfile{}, domain.OAuthGrant{}, fmt.Errorf("verify id token: %w", err)
	}
	profile.Provider = p.name

	grant := domain.OAuthGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    grantLifetime(token, p.now(), p.defaultTTL),
	}
	return profile, grant, nil
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer and returns an ID-token verifier for clientID.
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID string) (IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}
	return &oidcVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (v *oidcVerifier) Verify(ctx context.Context, rawIDToken string) (domain.ExternalProfile, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return domain.ExternalProfile{}, err
	}

	var claims struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return domain.ExternalProfile{}, fmt.Errorf("extract claims: %w", err)
	}
	if claims.Email == "" {
		return domain.ExternalProfile{}, errors.New("id token has no email claim")
	}
	if !claims.EmailVerified {
		return domain.ExternalProfile{}, ErrEmailNotVerified
	}
	return domain.ExternalProfile{
		Subject:       claims.Sub,
		Name:          claims.Name,
		Email:         claims.Email,
		EmailVerified: true,
	}, nil
}
