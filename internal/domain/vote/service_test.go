package vote

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"votify/internal/domain/poll"
)

type memoryVoteRepo struct {
	mu         sync.Mutex
	status     map[int64]string
	options    map[int64][]Count
	userVotes  map[int64]map[int64]bool
	countCalls int
	// afterStatus runs once GetPollStatus has answered, standing in for a
	// concurrent writer.
	afterStatus func()
}

func newMemoryVoteRepo() *memoryVoteRepo {
	return &memoryVoteRepo{
		status:    make(map[int64]string),
		options:   make(map[int64][]Count),
		userVotes: make(map[int64]map[int64]bool),
	}
}

func (r *memoryVoteRepo) addPoll(id int64, status string, optionIDs ...int64) {
	r.status[id] = status
	for _, o := range optionIDs {
		r.options[id] = append(r.options[id], Count{OptionID: o, Text: "opt"})
	}
}

func (r *memoryVoteRepo) Create(ctx context.Context, v *Vote) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status[v.PollID] != poll.StatusActive {
		return 0, ErrPollNotActive
	}
	idx := -1
	for i, c := range r.options[v.PollID] {
		if c.OptionID == v.OptionID {
			idx = i
		}
	}
	if idx < 0 {
		return 0, ErrOptionNotInPoll
	}
	if r.userVotes[v.PollID] == nil {
		r.userVotes[v.PollID] = make(map[int64]bool)
	}
	if r.userVotes[v.PollID][v.UserID] {
		return 0, ErrAlreadyVoted
	}
	r.userVotes[v.PollID][v.UserID] = true
	r.options[v.PollID][idx].Votes++
	return int64(len(r.userVotes[v.PollID])), nil
}

func (r *memoryVoteRepo) CountByPoll(ctx context.Context, pollID int64) ([]Count, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countCalls++
	res := make([]Count, len(r.options[pollID]))
	copy(res, r.options[pollID])
	var total int64
	for _, c := range res {
		total += c.Votes
	}
	return res, total, nil
}

func (r *memoryVoteRepo) GetPollStatus(ctx context.Context, pollID int64) (string, error) {
	r.mu.Lock()
	s, ok := r.status[pollID]
	hook := r.afterStatus
	r.mu.Unlock()
	if !ok {
		return "", sql.ErrNoRows
	}
	if hook != nil {
		hook()
	}
	return s, nil
}

func TestVoteIdempotencyAndCache(t *testing.T) {
	repo := newMemoryVoteRepo()
	repo.addPoll(1, poll.StatusActive, 10, 11)
	svc := NewService(repo, time.Hour)
	ctx := context.Background()

	total, err := svc.Vote(ctx, 1, 10, 42)
	if err != nil {
		t.Fatalf("expected first vote ok, got %v", err)
	}
	if total != 1 {
		t.Fatalf("expected total 1, got %d", total)
	}
	if _, err := svc.Vote(ctx, 1, 10, 42); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected duplicate vote error")
	}

	results, total, err := svc.Results(ctx, 1)
	if err != nil {
		t.Fatalf("results error: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected total 1, got %d", total)
	}
	if len(results) != 2 || results[0].Percentage != 100 || results[1].Votes != 0 {
		t.Fatalf("unexpected results %+v", results)
	}
	if repo.countCalls != 1 {
		t.Fatalf("expected one count call, got %d", repo.countCalls)
	}

	if _, _, err := svc.Results(ctx, 1); err != nil {
		t.Fatalf("cache lookup failed: %v", err)
	}
	if repo.countCalls != 1 {
		t.Fatalf("expected cached results to be used, count calls %d", repo.countCalls)
	}

	if _, err := svc.Vote(ctx, 1, 11, 43); err != nil {
		t.Fatalf("second voter: %v", err)
	}
	_, total, _ = svc.Results(ctx, 1)
	if total != 2 || repo.countCalls != 2 {
		t.Fatalf("expected cache eviction after vote, total=%d calls=%d", total, repo.countCalls)
	}
}

func TestVoteGating(t *testing.T) {
	repo := newMemoryVoteRepo()
	repo.addPoll(1, poll.StatusFinished, 10)
	repo.addPoll(2, poll.StatusActive, 20)
	svc := NewService(repo, 0)
	ctx := context.Background()

	if _, err := svc.Vote(ctx, 1, 10, 1); !errors.Is(err, ErrPollNotActive) {
		t.Fatalf("expected finished poll rejection, got %v", err)
	}
	if _, err := svc.Vote(ctx, 2, 10, 1); !errors.Is(err, ErrOptionNotInPoll) {
		t.Fatalf("expected foreign option rejection, got %v", err)
	}
	if _, err := svc.Vote(ctx, 3, 10, 1); !errors.Is(err, ErrPollNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, _, err := svc.Results(ctx, 3); !errors.Is(err, ErrPollNotFound) {
		t.Fatalf("expected not found for results, got %v", err)
	}
}

func TestVoteRejectedWhenPollFinishesMidVote(t *testing.T) {
	repo := newMemoryVoteRepo()
	repo.addPoll(1, poll.StatusActive, 10)
	repo.afterStatus = func() {
		repo.mu.Lock()
		repo.status[1] = poll.StatusFinished
		repo.mu.Unlock()
	}
	svc := NewService(repo, 0)

	if _, err := svc.Vote(context.Background(), 1, 10, 7); !errors.Is(err, ErrPollNotActive) {
		t.Fatalf("expected poll not active, got %v", err)
	}
	_, total, err := svc.Results(context.Background(), 1)
	if err != nil {
		t.Fatalf("results error: %v", err)
	}
	if total != 0 {
		t.Fatalf("vote counted after the poll finished, total %d", total)
	}
}
