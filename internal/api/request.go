package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/jobcraft/jobcraft/internal/apierror"
	"github.com/jobcraft/jobcraft/internal/document"
	"github.com/jobcraft/jobcraft/internal/logger"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	contentTypeJSON = "application/json"
	acceptEncoding  = "gzip"
	logPreviewLimit = 300
)

type request struct {
	method      string
	path        string
	// endpoint is the route template used as metric label, defaults to path.
	endpoint    string
	query       url.Values
	body        []byte
	contentType string
	token       string
	header      http.Header
}

// fetchWithTimeout performs req bounded by timeout. An expired deadline is
// reported as *apierror.TimeoutError. Non-2xx answers become
// *apierror.StatusError. A 2xx body is decoded only when it is JSON, otherwise
// the zero value is returned.
func fetchWithTimeout[T any](ctx context.Context, c *Client, req request, timeout time.Duration) (T, error) {
	var zero T

	cause := &apierror.TimeoutError{URL: req.route(), After: timeout}
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, cause)
	defer cancel()

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return zero, fmt.Errorf("building request: %w", err)
	}

	c.logger.Debug("make request",
		zap.String("method", req.method),
		zap.String("url", httpReq.URL.String()),
		zap.Bool("authenticated", req.token != ""),
	)

	start := time.Now()
	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.route(), req.method, 0, time.Since(start))
		return zero, timeoutOr(ctx, cause, err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	c.metrics.ObserveRequest(req.route(), req.method, resp.StatusCode, time.Since(start))
	if err != nil {
		return zero, timeoutOr(ctx, cause, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("bad status",
			zap.String("status", resp.Status),
			zap.String("body", logger.TruncateForLog(string(data), logPreviewLimit)),
		)
		return zero, statusError(resp, data)
	}

	if !isJSON(resp.Header.Get("Content-Type")) || len(bytes.TrimSpace(data)) == 0 {
		return zero, nil
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("decoding response from %s: %w", req.path, err)
	}

	return out, nil
}

func (r request) route() string {
	if r.endpoint != "" {
		return r.endpoint
	}
	return r.path
}

func timeoutOr(ctx context.Context, cause *apierror.TimeoutError, err error) error {
	if errors.Is(context.Cause(ctx), cause) {
		return cause
	}
	return err
}

func (c *Client) newRequest(ctx context.Context, req request) (*http.Request, error) {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, err
	}

	c.setHeaders(httpReq, req.token)
	for key, values := range req.header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	return httpReq, nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("Accept-Encoding", acceptEncoding)
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}

	return io.ReadAll(reader)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == contentTypeJSON || strings.HasSuffix(mediaType, "+json")
}

// statusError keeps the parsed JSON body as data and picks a message from the
// usual keys, falling back to the raw text.
func statusError(resp *http.Response, data []byte) *apierror.StatusError {
	e := &apierror.StatusError{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Message:    strings.TrimSpace(string(data)),
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return e
	}
	e.Data = parsed

	if obj, ok := parsed.(map[string]any); ok {
		for _, key := range []string{"message", "detail", "error"} {
			if msg, ok := obj[key].(string); ok && msg != "" {
				e.Message = msg
				break
			}
		}
	}

	return e
}

// multipartBody encodes fields and an optional file part.
func multipartBody(fields map[string]string, file *document.File) ([]byte, string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
		h.Set("Content-Type", file.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", err
		}
	}

	for _, key := range slices.Sorted(maps.Keys(fields)) {
		if err := w.WriteField(key, fields[key]); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return b.Bytes(), w.FormDataContentType(), nil
}

// getWithRetry runs an idempotent read, retrying failures classified as
// retryable with exponential backoff.
func getWithRetry[T any](ctx context.Context, c *Client, req request) (T, error) {
	var out T

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryDelay))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		v, err := fetchWithTimeout[T](ctx, c, req, c.defaultTimeout)
		if err == nil {
			out = v
			return nil
		}

		resp := apierror.Normalize(err)
		if resp.Retry && ctx.Err() == nil {
			c.logger.Debug("retrying request",
				zap.String("endpoint", req.route()),
				zap.Int("attempt", attempt),
				zap.String("code", resp.Code),
			)
			return retry.RetryableError(err)
		}
		return err
	})

	return out, err
}
