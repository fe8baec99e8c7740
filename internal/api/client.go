package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jobcraft/jobcraft/internal/apierror"
	"github.com/jobcraft/jobcraft/internal/metrics"
	"github.com/jobcraft/jobcraft/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultAPIURL     = "http://localhost:8000"
	defaultUserAgent  = "jobcraft-cli"
	defaultTimeout    = 10 * time.Second
	analyzeTimeout    = 60 * time.Second
	defaultRetries    = 2
	defaultRetryDelay = 500 * time.Millisecond

	pathAnalyze    = "/analyze"
	pathAnalyzeDev = "/analyze-dev"
	pathResumes    = "/users/me/resumes"
	pathResume     = pathResumes + "/{id}"
	pathAnalyses   = "/users/me/analyses"
	pathAnalysis   = pathAnalyses + "/{id}"
	pathHealth     = "/health"
)

type Config struct {
	URL       string        `mapstructure:"api-url"`
	UserAgent string        `mapstructure:"user-agent"`
	Timeouts  TimeoutConfig `mapstructure:"timeouts"`
	Retry     RetryConfig   `mapstructure:"retry"`
}

type TimeoutConfig struct {
	Default time.Duration `mapstructure:"default"`
	Analyze time.Duration `mapstructure:"analyze"`
}

type RetryConfig struct {
	// MaxRetries applies to idempotent reads only. Zero disables retries.
	MaxRetries *uint64       `mapstructure:"max-retries"`
	BaseDelay  time.Duration `mapstructure:"base-delay"`
}

// Client is the single gateway to the analysis service. Every failure it
// returns is an *apierror.Response.
type Client struct {
	baseURL        string
	userAgent      string
	defaultTimeout time.Duration
	analyzeTimeout time.Duration
	maxRetries     uint64
	retryDelay     time.Duration

	sessions session.Provider
	logger   *zap.Logger
	metrics  *metrics.Metrics
	newID    func() (uuid.UUID, error)

	HTTPClient *http.Client
}

type Option func(*Client)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

func New(cfg Config, sessions session.Provider, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessions == nil {
		sessions = session.Anonymous{}
	}

	c := &Client{
		baseURL:        strings.TrimRight(cfg.URL, "/"),
		userAgent:      cfg.UserAgent,
		defaultTimeout: cfg.Timeouts.Default,
		analyzeTimeout: cfg.Timeouts.Analyze,
		maxRetries:     defaultRetries,
		retryDelay:     cfg.Retry.BaseDelay,
		sessions:       sessions,
		logger:         logger,
		newID:          uuid.NewV7,
		HTTPClient:     &http.Client{},
	}

	if c.baseURL == "" {
		c.baseURL = defaultAPIURL
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.defaultTimeout <= 0 {
		c.defaultTimeout = defaultTimeout
	}
	if c.analyzeTimeout <= 0 {
		c.analyzeTimeout = analyzeTimeout
	}
	if cfg.Retry.MaxRetries != nil {
		c.maxRetries = *cfg.Retry.MaxRetries
	}
	if c.retryDelay <= 0 {
		c.retryDelay = defaultRetryDelay
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// authToken asks the session for a fresh token. Failures degrade to an
// anonymous request.
func (c *Client) authToken(ctx context.Context) string {
	token, err := c.sessions.Token(ctx)
	if err != nil {
		resp := apierror.Normalize(err)
		c.logger.Warn("could not get session token, continuing anonymously",
			zap.String("code", resp.Code),
			zap.Error(err),
		)
		return ""
	}
	return token
}

// fail classifies err, records it and returns the response as an error.
func (c *Client) fail(endpoint string, err error) error {
	resp := apierror.Normalize(err)
	c.metrics.ObserveError(endpoint, string(resp.Type))
	c.logger.Debug("request failed",
		zap.String("endpoint", endpoint),
		zap.String("type", string(resp.Type)),
		zap.String("code", resp.Code),
		zap.Error(err),
	)
	return resp
}
