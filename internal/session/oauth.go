package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/jobcraft/jobcraft/internal/secrets"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuthProvider obtains tokens with the OAuth2 client credentials grant.
// Each Token call performs a fresh exchange.
type OAuthProvider struct {
	cfg    OAuthConfig
	secret secrets.Source
	logger *zap.Logger
	closed atomic.Bool

	// HTTPClient is used for the token exchange when set.
	HTTPClient *http.Client
}

func NewOAuthProvider(cfg OAuthConfig, logger *zap.Logger) (*OAuthProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("client-id is required")
	}

	secret := secrets.Source{Name: "oauth client secret", Value: cfg.ClientSecret, File: cfg.ClientSecretFile}
	if !secret.Configured() {
		return nil, errors.New("client-secret or client-secret-file is required")
	}

	return &OAuthProvider{cfg: cfg, secret: secret, logger: logger}, nil
}

func (p *OAuthProvider) Token(ctx context.Context) (string, error) {
	if p.closed.Load() {
		return "", ErrClosed
	}

	clientSecret, err := secrets.Load(p.secret)
	if err != nil {
		return "", err
	}

	conf := clientcredentials.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: clientSecret,
		TokenURL:     p.cfg.TokenURL,
		Scopes:       p.cfg.Scopes,
	}

	if p.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.HTTPClient)
	}

	p.logger.Debug("exchanging client credentials", zap.String("token_url", p.cfg.TokenURL))
	tok, err := conf.Token(ctx)
	if err != nil {
		return "", authError(err)
	}

	return tok.AccessToken, nil
}

func (p *OAuthProvider) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *OAuthProvider) String() string { return "oauth client " + p.cfg.ClientID }

func authError(err error) error {
	var retrieve *oauth2.RetrieveError
	if !errors.As(err, &retrieve) {
		return &AuthError{Code: "auth/network-request-failed", Err: err}
	}

	if retrieve.Response != nil && retrieve.Response.StatusCode == http.StatusTooManyRequests {
		return &AuthError{Code: "auth/too-many-requests", Err: err}
	}

	code := strings.ReplaceAll(strings.TrimSpace(retrieve.ErrorCode), "_", "-")
	if code == "" {
		code = "internal-error"
	}

	return &AuthError{Code: fmt.Sprintf("auth/%s", code), Err: err}
}
