package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jobcraft/jobcraft/internal/apierror"
	"github.com/jobcraft/jobcraft/internal/document"
	"github.com/jobcraft/jobcraft/internal/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type staticSession struct {
	token string
	err   error
}

func (s staticSession) Token(context.Context) (string, error) { return s.token, s.err }
func (s staticSession) Close() error                          { return nil }

func newTestClient(t *testing.T, url string, token string, opts ...Option) *Client {
	t.Helper()
	retries := uint64(2)
	return New(Config{
		URL:      url,
		Timeouts: TimeoutConfig{Default: time.Second, Analyze: time.Second},
		Retry:    RetryConfig{MaxRetries: &retries, BaseDelay: time.Millisecond},
	}, staticSession{token: token}, zaptest.NewLogger(t), opts...)
}

func resumePDF() *document.File {
	return &document.File{Name: "resume.pdf", ContentType: document.PDFContentType, Data: []byte("%PDF-1.4 resume")}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAnalyzeResumeAuthenticated(t *testing.T) {
	jd := "Senior Backend Engineer, 5+ years, Go, distributed systems"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, jd, r.FormValue("job_description"))
		assert.Empty(t, r.FormValue("user_id"))

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "resume.pdf", header.Filename)
		assert.Equal(t, document.PDFContentType, header.Header.Get("Content-Type"))

		writeJSON(w, http.StatusOK, map[string]any{
			"resume_id":   "r1",
			"analysis_id": "a1",
			"result": map[string]any{
				"match_score":               87.0,
				"feedback":                  "Strong Go background",
				"skills_match":              []string{"Go", "gRPC"},
				"improvement_areas":         []string{"Kubernetes"},
				"keywords_match_percentage": 140,
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "tok-123")
	resp, err := c.AnalyzeResume(context.Background(), resumePDF(), jd)
	require.NoError(t, err)

	assert.Equal(t, "a1", resp.AnalysisID)
	assert.Equal(t, 87, resp.Result.MatchScore)
	assert.Equal(t, []string{"Go", "gRPC"}, resp.Result.SkillsMatch)
	require.NotNil(t, resp.Result.KeywordsMatchPercentage)
	assert.Equal(t, 100, *resp.Result.KeywordsMatchPercentage)
	require.NotNil(t, resp.Result.SkillsRelevancePercentage)
	assert.Equal(t, 87, *resp.Result.SkillsRelevancePercentage)
}

func TestAnalyzeResumeAnonymous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze-dev", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		userID := r.FormValue("user_id")
		require.True(t, strings.HasPrefix(userID, devUserPrefix), "got %q", userID)
		id, err := uuid.Parse(strings.TrimPrefix(userID, devUserPrefix))
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), id.Version())

		writeJSON(w, http.StatusOK, map[string]any{"analysis_id": "a2", "result": map[string]any{"match_score": 55}})
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL}, staticSession{err: errors.New("token file unreadable")}, zaptest.NewLogger(t))
	resp, err := c.AnalyzeResume(context.Background(), resumePDF(), "Go developer")
	require.NoError(t, err)
	assert.Equal(t, 55, resp.Result.MatchScore)
}

func TestAnalyzeResumeServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "model crashed"})
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := newTestClient(t, srv.URL, "tok", WithMetrics(m))

	_, err := c.AnalyzeResume(context.Background(), resumePDF(), "Go developer")
	resp, ok := apierror.As(err)
	require.True(t, ok, "expected classified error, got %v", err)

	assert.Equal(t, apierror.Server, resp.Type)
	assert.Equal(t, "SERVER_ERROR", resp.Code)
	assert.True(t, resp.Retry)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("/analyze", "server")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/analyze", "POST", "500")))
}

func TestAnalyzeResumeValidation(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", "")

	_, err := c.AnalyzeResume(context.Background(), nil, "Go")
	resp, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.Validation, resp.Type)

	_, err = c.AnalyzeResume(context.Background(), resumePDF(), "   ")
	resp, ok = apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, "Please enter a job description", resp.Message)
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Timeouts: TimeoutConfig{Analyze: 20 * time.Millisecond}}, nil, zaptest.NewLogger(t))

	_, err := c.AnalyzeResume(context.Background(), resumePDF(), "Go developer")
	resp, ok := apierror.As(err)
	require.True(t, ok, "expected classified error, got %v", err)
	assert.Equal(t, apierror.Network, resp.Type)
	assert.Equal(t, "TIMEOUT", resp.Code)
	assert.True(t, resp.Retry)
}

func TestFetchNonJSONYieldsZeroValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("deleted"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	got, err := fetchWithTimeout[map[string]any](context.Background(), c, request{method: http.MethodGet, path: "/x"}, time.Second)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFetchStatusMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/json" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad resume"})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("plain failure"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")

	_, err := fetchWithTimeout[any](context.Background(), c, request{method: http.MethodGet, path: "/json"}, time.Second)
	var status *apierror.StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, "bad resume", status.Message)
	assert.NotNil(t, status.Data)

	_, err = fetchWithTimeout[any](context.Background(), c, request{method: http.MethodGet, path: "/text"}, time.Second)
	require.ErrorAs(t, err, &status)
	assert.Equal(t, "plain failure", status.Message)
	assert.Nil(t, status.Data)
}

func TestFetchGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b bytes.Buffer
		gz := gzip.NewWriter(&b)
		_, _ = io.WriteString(gz, `{"status":"healthy"}`)
		_ = gz.Close()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(b.Bytes())
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	h, err := c.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
}

func TestGetUserResumes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/resumes", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"resumes": []map[string]any{
			{"id": "r1", "file_name": "resume.pdf", "created_at": "2024-05-01T10:00:00Z", "status": "active"},
			{"id": "r2", "file_name": "cv.pdf", "created_at": map[string]any{"_seconds": 1714557600, "_nanoseconds": 0}},
			{"id": "r3", "file_name": "old.pdf", "created_at": 1714557600000},
		}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "tok")
	resumes := c.GetUserResumes(context.Background())
	require.Len(t, resumes, 3)

	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for _, r := range resumes {
		assert.True(t, r.CreatedAt.Equal(want), "resume %s: got %s", r.ID, r.CreatedAt)
	}
	assert.Equal(t, "active", resumes[0].Status)
}

func TestGetUserResumesBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "r1", "file_name": "resume.pdf"}})
	}))
	defer srv.Close()

	resumes := newTestClient(t, srv.URL, "tok").GetUserResumes(context.Background())
	require.Len(t, resumes, 1)
	assert.Equal(t, "r1", resumes[0].ID)
}

func TestListsDegradeToEmpty(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "firestore index missing"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "tok")

	resumes := c.GetUserResumes(context.Background())
	assert.NotNil(t, resumes)
	assert.Empty(t, resumes)
	assert.Equal(t, int32(3), calls.Load(), "expected the initial attempt and two retries")

	calls.Store(0)
	analyses := c.GetUserAnalyses(context.Background(), 5)
	assert.NotNil(t, analyses)
	assert.Empty(t, analyses)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetUserAnalyses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/users/me/analyses", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{"analyses": []map[string]any{
			{"id": "a1", "resume_id": "r1", "job_description": "Go", "match_score": "72", "skills_match": []string{"Go"}},
		}})
	}))
	defer srv.Close()

	analyses := newTestClient(t, srv.URL, "tok").GetUserAnalyses(context.Background(), 5)
	require.Len(t, analyses, 1)
	assert.Equal(t, 72, analyses[0].MatchScore)
	assert.Equal(t, []string{"Go"}, analyses[0].SkillsMatch)
	require.NotNil(t, analyses[0].ExperienceLevelPercentage)
	assert.Equal(t, 72, *analyses[0].ExperienceLevelPercentage)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUnauthorizedListIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	assert.Empty(t, newTestClient(t, srv.URL, "").GetUserAnalyses(context.Background(), 0))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetAnalysisDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/me/analyses/a1":
			writeJSON(w, http.StatusOK, map[string]any{
				"id": "a1", "match_score": 64, "job_title": "Backend Engineer",
				"formatting_checks": map[string]any{"font_check": map[string]any{"passed": true, "details": []string{"ok"}}},
			})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Analysis not found"})
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "tok")

	a, err := c.GetAnalysisDetails(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", a.JobTitle)
	require.NotNil(t, a.FormattingChecks)
	require.NotNil(t, a.FormattingChecks.Font)
	assert.True(t, a.FormattingChecks.Font.Passed)

	_, err = c.GetAnalysisDetails(context.Background(), "missing")
	resp, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, "RESOURCE_NOT_FOUND", resp.Code)
	assert.False(t, resp.Retry)
}

func TestDeleteResume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/users/me/resumes/r%2F1", r.URL.EscapedPath())
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "tok")
	require.NoError(t, c.DeleteResume(context.Background(), "r/1"))

	err := c.DeleteResume(context.Background(), " ")
	resp, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.Validation, resp.Type)
}

func TestDeleteResumeMetricsUseRouteTemplate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := newTestClient(t, srv.URL, "tok", WithMetrics(m))

	for _, id := range []string{"r1", "r2", "r3", "r4"} {
		require.NoError(t, c.DeleteResume(context.Background(), id))
	}

	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestsTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/users/me/resumes/{id}", "DELETE", "204")))
}

func TestAnalysisDetailsTimeoutUsesRouteTemplate(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	retries := uint64(0)
	c := New(Config{
		URL:      srv.URL,
		Timeouts: TimeoutConfig{Default: 20 * time.Millisecond},
		Retry:    RetryConfig{MaxRetries: &retries},
	}, staticSession{token: "tok"}, zaptest.NewLogger(t), WithMetrics(m))

	_, err := c.GetAnalysisDetails(context.Background(), "a-123")
	resp, ok := apierror.As(err)
	require.True(t, ok, "expected classified error, got %v", err)
	assert.Equal(t, "TIMEOUT", resp.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("/users/me/analyses/{id}", "network")))
}

func TestUploadResume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		writeJSON(w, http.StatusCreated, map[string]any{"resume": map[string]any{"id": "r9", "file_name": header.Filename}})
	}))
	defer srv.Close()

	resume, err := newTestClient(t, srv.URL, "tok").UploadResume(context.Background(), resumePDF())
	require.NoError(t, err)
	assert.Equal(t, "r9", resume.ID)
	assert.Equal(t, "resume.pdf", resume.FileName)
}

func TestCheckHealthHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "no-cache, no-store, must-revalidate", r.Header.Get("Cache-Control"))
		assert.Equal(t, "no-cache", r.Header.Get("Pragma"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h, err := newTestClient(t, srv.URL, "tok").CheckHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
}

func TestConnectivityFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	retries := uint64(0)
	c := New(Config{URL: url, Retry: RetryConfig{MaxRetries: &retries}}, nil, zaptest.NewLogger(t))

	_, err := c.GetAnalysisDetails(context.Background(), "a1")
	resp, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.Network, resp.Type)
	assert.Equal(t, "NETWORK_ERROR", resp.Code)
}
