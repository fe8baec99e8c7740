package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jobcraft/jobcraft/internal/apierror"
	"github.com/jobcraft/jobcraft/internal/document"

	"go.uber.org/zap"
)

const devUserPrefix = "dev-user-"

type Check struct {
	Passed  bool     `json:"passed"`
	Details []string `json:"details"`
}

type FormattingChecks struct {
	Font      *Check `json:"font_check,omitempty"`
	Layout    *Check `json:"layout_check,omitempty"`
	PageSetup *Check `json:"page_setup_check,omitempty"`
}

type IndustryInsights struct {
	Industry        string   `json:"industry"`
	Title           string   `json:"title"`
	Recommendations []string `json:"recommendations"`
	CurrentYear     int      `json:"current_year,omitempty"`
	MarketOverview  string   `json:"market_overview,omitempty"`
}

// AnalysisResult is the scoring service verdict for one resume and job
// description pair.
type AnalysisResult struct {
	MatchScore                int               `json:"match_score"`
	Feedback                  string            `json:"feedback"`
	SkillsMatch               []string          `json:"skills_match"`
	ImprovementAreas          []string          `json:"improvement_areas"`
	KeywordsMatchPercentage   *int              `json:"keywords_match_percentage,omitempty"`
	ExperienceLevelPercentage *int              `json:"experience_level_percentage,omitempty"`
	SkillsRelevancePercentage *int              `json:"skills_relevance_percentage,omitempty"`
	JobTitle                  string            `json:"job_title,omitempty"`
	IndustryInsights          *IndustryInsights `json:"industry_insights,omitempty"`
	FormattingChecks          *FormattingChecks `json:"formatting_checks,omitempty"`
}

// Normalize clamps every score into 0..100 and fills absent sub-metrics
// with the match score.
func (r *AnalysisResult) Normalize() {
	r.MatchScore = clamp(r.MatchScore)
	for _, p := range []**int{&r.KeywordsMatchPercentage, &r.ExperienceLevelPercentage, &r.SkillsRelevancePercentage} {
		v := r.MatchScore
		if *p != nil {
			v = clamp(**p)
		}
		*p = &v
	}
	if r.SkillsMatch == nil {
		r.SkillsMatch = []string{}
	}
	if r.ImprovementAreas == nil {
		r.ImprovementAreas = []string{}
	}
}

func clamp(v int) int {
	return max(0, min(100, v))
}

type AnalysisResponse struct {
	ResumeID   string         `json:"resume_id"`
	AnalysisID string         `json:"analysis_id"`
	Result     AnalysisResult `json:"result"`
}

// AnalyzeResume uploads file with the job description and waits for the
// verdict. Signed in users hit the authenticated endpoint, everyone else the
// development endpoint with a generated user id.
func (c *Client) AnalyzeResume(ctx context.Context, file *document.File, jobDescription string) (*AnalysisResponse, error) {
	if file == nil || len(file.Data) == 0 {
		return nil, &apierror.Response{Type: apierror.Validation, Message: "Please upload a resume", Code: "VALIDATION_ERROR"}
	}
	if strings.TrimSpace(jobDescription) == "" {
		return nil, &apierror.Response{Type: apierror.Validation, Message: "Please enter a job description", Code: "VALIDATION_ERROR"}
	}

	fields := map[string]string{"job_description": jobDescription}
	path := pathAnalyze

	token := c.authToken(ctx)
	if token == "" {
		id, err := c.newID()
		if err != nil {
			return nil, c.fail(pathAnalyzeDev, fmt.Errorf("generating user id: %w", err))
		}
		fields["user_id"] = devUserPrefix + id.String()
		path = pathAnalyzeDev
	}

	body, contentType, err := multipartBody(fields, file)
	if err != nil {
		return nil, c.fail(path, fmt.Errorf("encoding analysis form: %w", err))
	}

	c.logger.Info("submitting resume for analysis",
		zap.String("endpoint", path),
		zap.String("file", file.Name),
		zap.Int("size", file.Size()),
		zap.Int("job_description_length", len(jobDescription)),
	)

	raw, err := fetchWithTimeout[any](ctx, c, request{
		method:      http.MethodPost,
		path:        path,
		body:        body,
		contentType: contentType,
		token:       token,
	}, c.analyzeTimeout)
	if err != nil {
		return nil, c.fail(path, err)
	}

	var resp AnalysisResponse
	if err := decode(raw, &resp); err != nil {
		return nil, c.fail(path, fmt.Errorf("decoding analysis: %w", err))
	}
	resp.Result.Normalize()

	c.logger.Info("analysis finished",
		zap.String("analysis_id", resp.AnalysisID),
		zap.Int("match_score", resp.Result.MatchScore),
	)

	return &resp, nil
}
