package vote

import (
	"context"
	"time"
)

type Vote struct {
	ID        int64     `json:"id"`
	PollID    int64     `json:"poll_id"`
	OptionID  int64     `json:"option_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Count is one option's tally as stored.
type Count struct {
	OptionID int64
	Text     string
	Votes    int64
}

type Repository interface {
	// Create stores the vote and bumps the poll's voter count in one step,
	// returning the new voter total. It fails with ErrPollNotActive when the
	// poll is no longer active at commit time.
	Create(ctx context.Context, v *Vote) (int64, error)
	CountByPoll(ctx context.Context, pollID int64) ([]Count, int64, error)
	GetPollStatus(ctx context.Context, pollID int64) (string, error)
}
