package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrClosed is returned by providers after Close.
var ErrClosed = errors.New("session provider is closed")

// Provider hands out the bearer token of the current user. An empty token
// with a nil error means the user is anonymous. Implementations must not
// cache tokens between calls.
type Provider interface {
	Token(ctx context.Context) (string, error)
	Close() error
}

// AuthError is a failure reported by an identity provider. Code is namespaced,
// e.g. "auth/network-request-failed".
type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// AuthCode exposes the namespaced code to the error classifier.
func (e *AuthError) AuthCode() string { return e.Code }

type Config struct {
	TokenFile string       `mapstructure:"token-file"`
	OAuth     *OAuthConfig `mapstructure:"oauth"`
}

type OAuthConfig struct {
	TokenURL         string   `mapstructure:"token-url"`
	ClientID         string   `mapstructure:"client-id"`
	ClientSecret     string   `mapstructure:"client-secret"`
	ClientSecretFile string   `mapstructure:"client-secret-file"`
	Scopes           []string `mapstructure:"scopes"`
}

// Open builds the provider described by cfg. OAuth client credentials win
// over a token file; with neither the session is anonymous.
func Open(cfg Config, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.OAuth != nil && strings.TrimSpace(cfg.OAuth.TokenURL) != "" {
		p, err := NewOAuthProvider(*cfg.OAuth, logger)
		if err != nil {
			return nil, fmt.Errorf("configuring oauth session: %w", err)
		}
		logger.Debug("using oauth session", zap.String("token_url", cfg.OAuth.TokenURL))
		return p, nil
	}

	if strings.TrimSpace(cfg.TokenFile) != "" {
		logger.Debug("using token file session", zap.String("file", cfg.TokenFile))
		return NewFileProvider(cfg.TokenFile, logger), nil
	}

	logger.Debug("no session configured, running anonymously")
	return Anonymous{}, nil
}

// Anonymous never has a token.
type Anonymous struct{}

func (Anonymous) Token(context.Context) (string, error) { return "", nil }
func (Anonymous) Close() error                          { return nil }
func (Anonymous) String() string                        { return "anonymous" }
