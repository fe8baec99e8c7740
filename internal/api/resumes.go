package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jobcraft/jobcraft/internal/apierror"
	"github.com/jobcraft/jobcraft/internal/document"

	"go.uber.org/zap"
)

type Resume struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	FileURL   string    `json:"file_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status,omitempty"`
}

// GetUserResumes lists the resumes of the signed in user. Failures are logged
// and yield an empty list.
func (c *Client) GetUserResumes(ctx context.Context) []Resume {
	raw, err := getWithRetry[any](ctx, c, request{
		method: http.MethodGet,
		path:   pathResumes,
		token:  c.authToken(ctx),
	})
	if err != nil {
		c.degrade(pathResumes, err)
		return []Resume{}
	}

	resumes, err := decodeList[Resume](raw, "resumes")
	if err != nil {
		c.degrade(pathResumes, err)
		return []Resume{}
	}

	c.logger.Debug("got resumes", zap.Int("count", len(resumes)))
	return resumes
}

func (c *Client) UploadResume(ctx context.Context, file *document.File) (*Resume, error) {
	if file == nil || len(file.Data) == 0 {
		return nil, &apierror.Response{Type: apierror.Validation, Message: "Please upload a resume", Code: "VALIDATION_ERROR"}
	}

	body, contentType, err := multipartBody(nil, file)
	if err != nil {
		return nil, c.fail(pathResumes, fmt.Errorf("encoding upload form: %w", err))
	}

	raw, err := fetchWithTimeout[any](ctx, c, request{
		method:      http.MethodPost,
		path:        pathResumes,
		body:        body,
		contentType: contentType,
		token:       c.authToken(ctx),
	}, c.defaultTimeout)
	if err != nil {
		return nil, c.fail(pathResumes, err)
	}

	if obj, ok := raw.(map[string]any); ok {
		if inner, ok := obj["resume"]; ok {
			raw = inner
		}
	}

	var resume Resume
	if err := decode(raw, &resume); err != nil {
		return nil, c.fail(pathResumes, fmt.Errorf("decoding uploaded resume: %w", err))
	}

	c.logger.Info("resume uploaded", zap.String("id", resume.ID), zap.String("name", file.Name))
	return &resume, nil
}

func (c *Client) DeleteResume(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &apierror.Response{Type: apierror.Validation, Message: "A resume id is required", Code: "VALIDATION_ERROR"}
	}

	_, err := fetchWithTimeout[any](ctx, c, request{
		method:   http.MethodDelete,
		path:     pathResumes + "/" + url.PathEscape(id),
		endpoint: pathResume,
		token:    c.authToken(ctx),
	}, c.defaultTimeout)
	if err != nil {
		return c.fail(pathResume, err)
	}

	c.logger.Info("resume deleted", zap.String("id", id))
	return nil
}

// degrade records a failure of a read that falls back to an empty result.
func (c *Client) degrade(endpoint string, err error) {
	resp := apierror.Normalize(c.fail(endpoint, err))
	c.logger.Warn("request failed, returning empty result",
		zap.String("endpoint", endpoint),
		zap.String("type", string(resp.Type)),
		zap.String("code", resp.Code),
	)
}
