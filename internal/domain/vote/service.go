package vote

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"votify/internal/domain/poll"
)

var (
	ErrAlreadyVoted    = errors.New("user already voted in this poll")
	ErrPollNotActive   = errors.New("poll is not active")
	ErrOptionNotInPoll = errors.New("option does not belong to poll")
	ErrPollNotFound    = errors.New("poll not found")
)

const resultsCacheSize = 1024

type Result struct {
	OptionID   int64   `json:"option_id"`
	Text       string  `json:"text"`
	Votes      int64   `json:"votes"`
	Percentage float64 `json:"percentage"`
}

type cachedResults struct {
	results []Result
	total   int64
}

type Service struct {
	repo  Repository
	cache *expirable.LRU[int64, cachedResults]
}

// NewService caches results per poll for cacheTTL; a vote evicts its poll's entry.
// A non-positive TTL disables the cache.
func NewService(repo Repository, cacheTTL time.Duration) *Service {
	s := &Service{repo: repo}
	if cacheTTL > 0 {
		s.cache = expirable.NewLRU[int64, cachedResults](resultsCacheSize, nil, cacheTTL)
	}
	return s
}

// Vote records the vote and returns the poll's new voter total.
func (s *Service) Vote(ctx context.Context, pollID, optionID, userID int64) (int64, error) {
	status, err := s.repo.GetPollStatus(ctx, pollID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPollNotFound
	}
	if err != nil {
		return 0, err
	}
	if status != poll.StatusActive {
		return 0, ErrPollNotActive
	}

	total, err := s.repo.Create(ctx, &Vote{PollID: pollID, OptionID: optionID, UserID: userID})
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		s.cache.Remove(pollID)
	}
	return total, nil
}

func (s *Service) Results(ctx context.Context, pollID int64) ([]Result, int64, error) {
	if s.cache != nil {
		if c, ok := s.cache.Get(pollID); ok {
			return c.results, c.total, nil
		}
	}

	if _, err := s.repo.GetPollStatus(ctx, pollID); errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrPollNotFound
	} else if err != nil {
		return nil, 0, err
	}

	counts, total, err := s.repo.CountByPoll(ctx, pollID)
	if err != nil {
		return nil, 0, err
	}

	results := make([]Result, 0, len(counts))
	for _, c := range counts {
		var p float64
		if total > 0 {
			p = float64(c.Votes) * 100.0 / float64(total)
		}
		results = append(results, Result{
			OptionID:   c.OptionID,
			Text:       c.Text,
			Votes:      c.Votes,
			Percentage: p,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].OptionID < results[j].OptionID })

	if s.cache != nil {
		s.cache.Add(pollID, cachedResults{results: results, total: total})
	}
	return results, total, nil
}
