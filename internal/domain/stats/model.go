package stats

import (
	"context"
	"time"
)

type Totals struct {
	Voters   int64 `json:"voters" db:"voters"`
	Polls    int64 `json:"polls" db:"polls"`
	Active   int64 `json:"active" db:"active"`
	Finished int64 `json:"finished" db:"finished"`
}

// MonthPoint is one month of the trend series; Month is formatted YYYY-MM.
type MonthPoint struct {
	Month string `json:"month" db:"month"`
	Polls int64  `json:"polls" db:"polls"`
	Votes int64  `json:"votes" db:"votes"`
}

type StatusCount struct {
	Status string `json:"status" db:"status"`
	Count  int64  `json:"count" db:"count"`
}

// Bucket counts polls whose voter count falls in the labelled range.
type Bucket struct {
	Label string `json:"label"`
	Polls int64  `json:"polls" db:"polls"`
}

// Dashboard groups the independently fetched panels.
type Dashboard struct {
	Totals     Totals        `json:"totals"`
	Monthly    []MonthPoint  `json:"monthly"`
	Status     []StatusCount `json:"status" db:"status"`
	Engagement []Bucket      `json:"engagement"`
}

type Repository interface {
	Totals(ctx context.Context) (Totals, error)
	// Monthly returns only months that have activity, keyed YYYY-MM, from since on.
	Monthly(ctx context.Context, since time.Time) ([]MonthPoint, error)
	StatusCounts(ctx context.Context) ([]StatusCount, error)
	VoterCounts(ctx context.Context) ([]int64, error)
}
