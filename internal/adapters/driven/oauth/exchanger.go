// Package oauth exchanges Google authorization codes and refresh tokens.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/aganswers/drivesync/internal/connectors/google"
	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
	"github.com/aganswers/drivesync/internal/retry"
)

// Ensure Exchanger implements the interface.
var _ driven.TokenExchanger = (*Exchanger)(nil)

// defaultExpiry applies when the provider omits expires_in.
const defaultExpiry = time.Hour

// DefaultTimeout bounds each token or userinfo request.
const DefaultTimeout = 30 * time.Second

// Exchanger implements driven.TokenExchanger on golang.org/x/oauth2.
type Exchanger struct {
	cfg         *oauth2.Config
	client      *http.Client
	userInfoURL string
	now         func() time.Time
}

// Option customises an Exchanger.
type Option func(*Exchanger)

// WithEndpoint overrides the Google OAuth endpoints.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(e *Exchanger) { e.cfg.Endpoint = ep }
}

// WithUserInfoURL overrides the userinfo endpoint.
func WithUserInfoURL(u string) Option {
	return func(e *Exchanger) { e.userInfoURL = u }
}

// WithHTTPClient replaces the retrying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Exchanger) { e.client = c }
}

// WithTimeout sets the per-request timeout of the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(e *Exchanger) {
		if d > 0 {
			e.client.Timeout = d
		}
	}
}

// NewExchanger creates an exchanger for the configured OAuth client.
func NewExchanger(s domain.OAuthSettings, opts ...Option) (*Exchanger, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("%w: GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URI are required",
			domain.ErrConfiguration)
	}

	scopes := s.Scopes
	if len(scopes) == 0 {
		scopes = domain.DefaultDriveScopes
	}

	e := &Exchanger{
		cfg: &oauth2.Config{
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			RedirectURL:  s.RedirectURI,
			Scopes:       scopes,
			Endpoint:     googleoauth.Endpoint,
		},
		client:      newClient(),
		userInfoURL: google.UserInfoURL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func newClient() *http.Client {
	c := retry.NewClient(retry.DefaultPolicy(), nil)
	c.Timeout = DefaultTimeout
	return c
}

// AuthCodeURL builds a consent URL that always yields a refresh token.
func (e *Exchanger) AuthCodeURL(state string) string {
	return e.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens.
func (e *Exchanger) Exchange(ctx context.Context, code string) (*driven.TokenGrant, error) {
	tok, err := e.cfg.Exchange(e.withClient(ctx), code)
	if err != nil {
		return nil, classify("exchange code", err)
	}
	return e.grant(tok), nil
}

// Refresh obtains a new access token.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*driven.TokenGrant, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", domain.ErrUnauthorized)
	}

	tok, err := e.cfg.TokenSource(e.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, classify("refresh token", err)
	}
	return e.grant(tok), nil
}

// UserEmail resolves the account email behind an access token.
func (e *Exchanger) UserEmail(ctx context.Context, accessToken string) (string, error) {
	info, err := google.GetUserInfo(ctx, e.client, e.userInfoURL, accessToken)
	if err != nil {
		return "", err
	}
	return info.Email, nil
}

func (e *Exchanger) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, e.client)
}

func (e *Exchanger) grant(tok *oauth2.Token) *driven.TokenGrant {
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = e.now().Add(defaultExpiry)
	}
	scope, _ := tok.Extra("scope").(string)
	return &driven.TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       expiry,
		Scope:        scope,
	}
}

// classify maps an oauth2 error onto the domain errors.
func classify(op string, err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%s: %w: %s", op, domain.ErrTokenExchangeRejected, rerr.Error())
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrTransport, err)
}
