package dashboard

import (
	"context"
	"testing"

	"github.com/jobcraft/jobcraft/internal/api"
)

type fakeSource struct {
	resumes  []api.Resume
	analyses []api.Analysis
	limit    int
}

func (f *fakeSource) GetUserResumes(context.Context) []api.Resume { return f.resumes }

func (f *fakeSource) GetUserAnalyses(_ context.Context, limit int) []api.Analysis {
	f.limit = limit
	return f.analyses
}

func analysis(score int) api.Analysis {
	return api.Analysis{AnalysisResult: api.AnalysisResult{MatchScore: score}}
}

func TestLoad(t *testing.T) {
	src := &fakeSource{
		resumes:  []api.Resume{{ID: "r1"}, {ID: "r2"}},
		analyses: []api.Analysis{analysis(70), analysis(85), analysis(90)},
	}

	summary, err := Load(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.TotalResumes != 2 || summary.TotalAnalyses != 3 {
		t.Fatalf("unexpected totals: %+v", summary)
	}
	if summary.AverageScore != 82 {
		t.Fatalf("expected rounded average 82, got %d", summary.AverageScore)
	}
	if src.limit != recentLimit {
		t.Fatalf("expected analyses limit %d, got %d", recentLimit, src.limit)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, nil)
	if s.AverageScore != 0 || s.RecentAnalyses == nil {
		t.Fatalf("unexpected empty summary: %+v", s)
	}
}

func TestSummarizeRoundsHalfUp(t *testing.T) {
	s := Summarize(nil, []api.Analysis{analysis(70), analysis(71)})
	if s.AverageScore != 71 {
		t.Fatalf("expected 70.5 to round to 71, got %d", s.AverageScore)
	}
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Load(ctx, &fakeSource{}, nil); err == nil {
		t.Fatalf("expected an error for a cancelled context")
	}
}
