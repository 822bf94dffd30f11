package poll

import (
	"context"
	"time"
)

const (
	StatusActive   = "active"
	StatusFinished = "finished"
)

type Poll struct {
	ID          int64      `json:"id"`
	Question    string     `json:"question"`
	Category    string     `json:"category"`
	Description *string    `json:"description,omitempty"`
	Status      string     `json:"status"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Voters      int64      `json:"voters"`
	CreatorID   int64      `json:"creator_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Option struct {
	ID        int64     `json:"id"`
	PollID    int64     `json:"poll_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type UpdateInput struct {
	Question    *string
	Category    *string
	Description *string
	EndsAt      *time.Time
}

// ListFilter narrows a listing. Voted is evaluated against UserID; nil means both.
type ListFilter struct {
	UserID   int64
	Voted    *bool
	Category string
	Status   string
}

type Repository interface {
	Create(ctx context.Context, p *Poll, options []Option) (int64, error)
	GetByID(ctx context.Context, id int64) (*Poll, []Option, error)
	List(ctx context.Context, f ListFilter) ([]Poll, error)
	Update(ctx context.Context, id int64, input UpdateInput) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
	// FinishExpired flips active polls whose end time is not after now and returns their ids.
	FinishExpired(ctx context.Context, now time.Time) ([]int64, error)
}
