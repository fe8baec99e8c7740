package cmd

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/jobcraft/jobcraft/internal/api"
	"github.com/jobcraft/jobcraft/internal/apierror"
	"github.com/jobcraft/jobcraft/internal/document"
	"github.com/jobcraft/jobcraft/internal/progress"
	"github.com/jobcraft/jobcraft/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPrintAnalysis(t *testing.T) {
	result := api.AnalysisResult{
		MatchScore:       82,
		Feedback:         "Strong Go background.",
		SkillsMatch:      []string{"Go", "Kubernetes"},
		ImprovementAreas: []string{},
		FormattingChecks: &api.FormattingChecks{
			Font: &api.Check{Passed: true},
		},
	}
	result.Normalize()

	var buf bytes.Buffer
	printAnalysis(&buf, &api.AnalysisResponse{AnalysisID: "a1", Result: result})
	out := buf.String()

	assert.Contains(t, out, "Match score: 82%")
	assert.Contains(t, out, "Keywords:    82%")
	assert.Contains(t, out, "  - Kubernetes")
	assert.Contains(t, out, "font       pass")
	assert.Contains(t, out, "Analysis id: a1")
	assert.NotContains(t, out, "Areas to improve")
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	progressPrinter(&buf)(progress.Snapshot{Display: 49.6, Stage: "Matching skills…"})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\r["))
	assert.Contains(t, out, " 50% Matching skills…")
	assert.Equal(t, 15, strings.Count(out, "#"))
}

func TestPrintEmptyLists(t *testing.T) {
	var buf bytes.Buffer
	printResumes(&buf, nil)
	printAnalyses(&buf, []api.Analysis{})

	assert.Equal(t, "No resumes yet.\nNo analyses yet.\n", buf.String())
}

func TestSessionKind(t *testing.T) {
	assert.Equal(t, "anonymous", sessionKind(session.Anonymous{}))
	assert.True(t, isAnonymous(session.Anonymous{}))
	assert.False(t, isAnonymous(session.NewFileProvider("token", nil)))
}

func TestReportPrintsClassifiedMessage(t *testing.T) {
	_, loadErr := document.Load("/nonexistent/resume.pdf", nil)
	require.Error(t, loadErr)

	tests := []struct {
		name   string
		err    error
		want   string
		logged string
	}{
		{
			name:   "unclassified",
			err:    loadErr,
			logged: "no such file or directory",
			want:   "Error: There was a problem with the file upload. Please try again with a different file.\n",
		},
		{
			name: "classified retryable",
			err:  fmt.Errorf("listing: %w", apierror.Classify(apierror.Connectivity{})),
			want: "Error: Unable to connect to the server. Please check your internet connection.\n" +
				"This may be temporary, please try again.\n",
		},
		{
			name: "already reported",
			err:  errReported,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, observed := observer.New(zapcore.DebugLevel)

			var buf bytes.Buffer
			report(&buf, zap.New(core), tt.err)

			assert.Equal(t, tt.want, buf.String())
			assert.NotContains(t, buf.String(), "no such file or directory")
			if tt.logged != "" {
				require.Equal(t, 1, observed.Len())
				assert.Contains(t, observed.All()[0].ContextMap()["error"], tt.logged)
			}
		})
	}
}
