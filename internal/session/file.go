package session

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jobcraft/jobcraft/internal/secrets"

	"go.uber.org/zap"
)

// FileProvider reads the token from a file on every call. A missing file
// means the user has signed out.
type FileProvider struct {
	src    secrets.Source
	logger *zap.Logger
	closed atomic.Bool
}

func NewFileProvider(path string, logger *zap.Logger) *FileProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileProvider{
		src:    secrets.Source{Name: "session token", File: path},
		logger: logger,
	}
}

func (p *FileProvider) Token(ctx context.Context) (string, error) {
	if p.closed.Load() {
		return "", ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token, err := secrets.Load(p.src)
	if errors.Is(err, secrets.ErrMissingFile) {
		p.logger.Debug("token file is absent, treating session as anonymous", zap.String("file", p.src.File))
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return token, nil
}

func (p *FileProvider) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *FileProvider) String() string { return "token file " + p.src.File }
