package stats

import (
	"context"
	"testing"
	"time"
)

type fakeStatsRepo struct {
	monthly []MonthPoint
	since   time.Time
	status  []StatusCount
	voters  []int64
}

func (r *fakeStatsRepo) Totals(ctx context.Context) (Totals, error) {
	return Totals{Voters: 3, Polls: 2, Active: 1, Finished: 1}, nil
}

func (r *fakeStatsRepo) Monthly(ctx context.Context, since time.Time) ([]MonthPoint, error) {
	r.since = since
	return r.monthly, nil
}

func (r *fakeStatsRepo) StatusCounts(ctx context.Context) ([]StatusCount, error) {
	return r.status, nil
}

func (r *fakeStatsRepo) VoterCounts(ctx context.Context) ([]int64, error) {
	return r.voters, nil
}

func TestMonthlyFillsGaps(t *testing.T) {
	repo := &fakeStatsRepo{monthly: []MonthPoint{{Month: "2026-02", Polls: 2, Votes: 9}}}
	svc := NewService(repo, 3)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC) }

	points, err := svc.Monthly(context.Background())
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 months, got %d", len(points))
	}
	if points[0].Month != "2026-01" || points[1].Votes != 9 || points[2].Month != "2026-03" || points[2].Polls != 0 {
		t.Fatalf("unexpected series %+v", points)
	}
	if !repo.since.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected since %v", repo.since)
	}
}

func TestStatusBreakdownReportsBothStates(t *testing.T) {
	svc := NewService(&fakeStatsRepo{status: []StatusCount{{Status: "finished", Count: 4}}}, 0)
	res, err := svc.StatusBreakdown(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(res) != 2 || res[0].Count != 0 || res[1].Count != 4 {
		t.Fatalf("unexpected breakdown %+v", res)
	}
}

func TestEngagementBuckets(t *testing.T) {
	svc := NewService(&fakeStatsRepo{voters: []int64{0, 0, 1, 10, 11, 50, 51, 100, 101, 5000}}, 0)
	res, err := svc.Engagement(context.Background())
	if err != nil {
		t.Fatalf("engagement: %v", err)
	}
	want := map[string]int64{"0": 2, "1-10": 2, "11-50": 2, "51-100": 2, "100+": 2}
	for _, b := range res {
		if want[b.Label] != b.Polls {
			t.Fatalf("bucket %s: want %d got %d", b.Label, want[b.Label], b.Polls)
		}
	}
}
