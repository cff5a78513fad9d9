package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/gogotex/siteauth/internal/models"
)

const (
	GoogleIssuer  = "https://accounts.google.com"
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// ErrMissingIDToken is returned when the token endpoint answers without an id_token.
var ErrMissingIDToken = errors.New("token response has no id_token")

// Tokens is the result of an authorization-code exchange.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       time.Time
}

// Provider is the narrow surface of the identity provider the auth handlers
// depend on. GoogleProvider implements it; tests substitute fakes.
type Provider interface {
	// AuthCodeURL builds the consent URL the browser is redirected to.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string) (*Tokens, error)
	// Verify checks signature, issuer, expiry and audience of an ID token and
	// returns its identity claims.
	Verify(ctx context.Context, rawIDToken string) (*models.User, error)
}

// Config configures GoogleProvider. The endpoint fields default to Google's
// published endpoints and only need overriding in tests.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HTTPTimeout  time.Duration

	Issuer   string
	AuthURL  string
	TokenURL string
	JWKSURL  string
}

// GoogleProvider implements Provider with golang.org/x/oauth2 for the code
// flow and go-oidc for ID token verification.
type GoogleProvider struct {
	oauth2   *oauth2.Config
	verifier *oidc.IDTokenVerifier
	client   *http.Client
}

// NewGoogleProvider wires the provider against Google's static endpoints.
// Signing keys are fetched lazily from the JWKS URL and cached, so no network
// call happens here. ctx must outlive the provider.
func NewGoogleProvider(ctx context.Context, cfg Config) *GoogleProvider {
	client := httpClient(cfg.HTTPTimeout)
	jwks := cfg.JWKSURL
	if jwks == "" {
		jwks = googleJWKSURL
	}
	keySet := oidc.NewRemoteKeySet(oidc.ClientContext(ctx, client), jwks)
	return newGoogleProvider(cfg, keySet, client)
}

func newGoogleProvider(cfg Config, keySet oidc.KeySet, client *http.Client) *GoogleProvider {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = GoogleIssuer
	}
	return &GoogleProvider{
		oauth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		// ClientID makes the audience check mandatory
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: cfg.ClientID}),
		client:   client,
	}
}

func httpClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// AuthCodeURL requests a refresh token (access_type=offline) and forces the
// consent screen so one is issued on every login.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth2.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Tokens, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	tok, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, ErrMissingIDToken
	}
	return &Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IDToken:      raw,
		Expiry:       tok.Expiry,
	}, nil
}

func (p *GoogleProvider) Verify(ctx context.Context, rawIDToken string) (*models.User, error) {
	idToken, err := p.verifier.Verify(oidc.ClientContext(ctx, p.client), rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	var u models.User
	if err := idToken.Claims(&u); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}
	u.Sub = idToken.Subject
	return &u, nil
}
