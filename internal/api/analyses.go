package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jobcraft/jobcraft/internal/apierror"

	"go.uber.org/zap"
)

const defaultAnalysesLimit = 10

// Analysis is a stored analysis as returned by the history endpoints.
type Analysis struct {
	ID             string    `json:"id"`
	ResumeID       string    `json:"resume_id"`
	ResumeName     string    `json:"resume_name,omitempty"`
	JobDescription string    `json:"job_description"`
	CreatedAt      time.Time `json:"created_at"`

	AnalysisResult
}

// GetUserAnalyses lists the latest analyses, newest first as served.
// Failures are logged and yield an empty list.
func (c *Client) GetUserAnalyses(ctx context.Context, limit int) []Analysis {
	if limit <= 0 {
		limit = defaultAnalysesLimit
	}

	raw, err := getWithRetry[any](ctx, c, request{
		method: http.MethodGet,
		path:   pathAnalyses,
		query:  url.Values{"limit": []string{strconv.Itoa(limit)}},
		token:  c.authToken(ctx),
	})
	if err != nil {
		c.degrade(pathAnalyses, err)
		return []Analysis{}
	}

	analyses, err := decodeList[Analysis](raw, "analyses")
	if err != nil {
		c.degrade(pathAnalyses, err)
		return []Analysis{}
	}
	for i := range analyses {
		analyses[i].Normalize()
	}

	c.logger.Debug("got analyses", zap.Int("count", len(analyses)), zap.Int("limit", limit))
	return analyses
}

func (c *Client) GetAnalysisDetails(ctx context.Context, id string) (*Analysis, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &apierror.Response{Type: apierror.Validation, Message: "An analysis id is required", Code: "VALIDATION_ERROR"}
	}

	raw, err := getWithRetry[any](ctx, c, request{
		method:   http.MethodGet,
		path:     pathAnalyses + "/" + url.PathEscape(id),
		endpoint: pathAnalysis,
		token:    c.authToken(ctx),
	})
	if err != nil {
		return nil, c.fail(pathAnalysis, err)
	}

	if obj, ok := raw.(map[string]any); ok {
		if inner, ok := obj["analysis"]; ok {
			raw = inner
		}
	}

	var analysis Analysis
	if err := decode(raw, &analysis); err != nil {
		return nil, c.fail(pathAnalysis, fmt.Errorf("decoding analysis %s: %w", id, err))
	}
	analysis.Normalize()

	return &analysis, nil
}
