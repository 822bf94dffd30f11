package stats

import (
	"context"
	"time"

	"votify/internal/domain/poll"
)

const monthLayout = "2006-01"

type bucketRange struct {
	label    string
	min, max int64
}

var engagementBuckets = []bucketRange{
	{"0", 0, 0},
	{"1-10", 1, 10},
	{"11-50", 11, 50},
	{"51-100", 51, 100},
	{"100+", 101, -1},
}

type Service struct {
	repo   Repository
	months int
	now    func() time.Time
}

// NewService reports the monthly trend over the last months months, current included.
func NewService(repo Repository, months int) *Service {
	if months <= 0 {
		months = 6
	}
	return &Service{repo: repo, months: months, now: time.Now}
}

func (s *Service) Totals(ctx context.Context) (Totals, error) {
	return s.repo.Totals(ctx)
}

// Monthly fills months without activity with zeroes so the series is contiguous.
func (s *Service) Monthly(ctx context.Context) ([]MonthPoint, error) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(s.months - 1), 0)

	points, err := s.repo.Monthly(ctx, start)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]MonthPoint, len(points))
	for _, p := range points {
		byMonth[p.Month] = p
	}

	res := make([]MonthPoint, 0, s.months)
	for i := 0; i < s.months; i++ {
		key := start.AddDate(0, i, 0).Format(monthLayout)
		p, ok := byMonth[key]
		if !ok {
			p = MonthPoint{Month: key}
		}
		res = append(res, p)
	}
	return res, nil
}

// StatusBreakdown always reports both lifecycle states.
func (s *Service) StatusBreakdown(ctx context.Context) ([]StatusCount, error) {
	counts, err := s.repo.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	res := []StatusCount{{Status: poll.StatusActive}, {Status: poll.StatusFinished}}
	for _, c := range counts {
		for i := range res {
			if res[i].Status == c.Status {
				res[i].Count = c.Count
			}
		}
	}
	return res, nil
}

func (s *Service) Engagement(ctx context.Context) ([]Bucket, error) {
	voters, err := s.repo.VoterCounts(ctx)
	if err != nil {
		return nil, err
	}
	return bucketize(voters), nil
}

func bucketize(voters []int64) []Bucket {
	res := make([]Bucket, len(engagementBuckets))
	for i, b := range engagementBuckets {
		res[i].Label = b.label
	}
	for _, v := range voters {
		for i, b := range engagementBuckets {
			if v >= b.min && (b.max < 0 || v <= b.max) {
				res[i].Polls++
				break
			}
		}
	}
	return res
}
