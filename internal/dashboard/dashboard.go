package dashboard

import (
	"context"
	"math"

	"github.com/jobcraft/jobcraft/internal/api"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const recentLimit = 5

type Source interface {
	GetUserResumes(ctx context.Context) []api.Resume
	GetUserAnalyses(ctx context.Context, limit int) []api.Analysis
}

// Summary is the overview shown on the dashboard.
type Summary struct {
	TotalResumes   int            `json:"total_resumes"`
	TotalAnalyses  int            `json:"total_analyses"`
	AverageScore   int            `json:"average_score"`
	RecentAnalyses []api.Analysis `json:"recent_analyses"`
}

// Load fetches resumes and recent analyses concurrently. Both listings
// degrade to empty on failure, so Load only fails when ctx is done.
func Load(ctx context.Context, src Source, logger *zap.Logger) (*Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var resumes []api.Resume
	var analyses []api.Analysis

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resumes = src.GetUserResumes(gctx)
		return nil
	})
	g.Go(func() error {
		analyses = src.GetUserAnalyses(gctx, recentLimit)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := Summarize(resumes, analyses)
	logger.Debug("dashboard loaded",
		zap.Int("resumes", summary.TotalResumes),
		zap.Int("analyses", summary.TotalAnalyses),
	)
	return summary, nil
}

// Summarize derives the dashboard figures. The average is rounded to the
// nearest integer and is 0 without analyses.
func Summarize(resumes []api.Resume, analyses []api.Analysis) *Summary {
	s := &Summary{
		TotalResumes:   len(resumes),
		TotalAnalyses:  len(analyses),
		RecentAnalyses: analyses,
	}
	if s.RecentAnalyses == nil {
		s.RecentAnalyses = []api.Analysis{}
	}

	if len(analyses) > 0 {
		total := 0
		for _, a := range analyses {
			total += a.MatchScore
		}
		s.AverageScore = int(math.Round(float64(total) / float64(len(analyses))))
	}

	return s
}
