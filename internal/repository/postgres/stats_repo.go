package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"votify/internal/domain/stats"
)

// StatsRepo runs the read-only dashboard aggregates through sqlx so each
// query maps straight onto the stats structs.
type StatsRepo struct {
	db *sqlx.DB
}

func NewStatsRepo(db *sql.DB) *StatsRepo {
	return &StatsRepo{db: sqlx.NewDb(db, "pgx")}
}

func (r *StatsRepo) Totals(ctx context.Context) (stats.Totals, error) {
	const q = `
        SELECT
            (SELECT COUNT(DISTINCT user_id) FROM votes) AS voters,
            COUNT(*) AS polls,
            COUNT(*) FILTER (WHERE status = 'active') AS active,
            COUNT(*) FILTER (WHERE status = 'finished') AS finished
        FROM polls`
	var t stats.Totals
	err := r.db.GetContext(ctx, &t, q)
	return t, err
}

func (r *StatsRepo) Monthly(ctx context.Context, since time.Time) ([]stats.MonthPoint, error) {
	const q = `
        WITH p AS (
            SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month, COUNT(*) AS polls
            FROM polls WHERE created_at >= $1 GROUP BY 1
        ), v AS (
            SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month, COUNT(*) AS votes
            FROM votes WHERE created_at >= $1 GROUP BY 1
        )
        SELECT COALESCE(p.month, v.month) AS month,
               COALESCE(p.polls, 0) AS polls,
               COALESCE(v.votes, 0) AS votes
        FROM p FULL OUTER JOIN v ON p.month = v.month
        ORDER BY 1`
	var res []stats.MonthPoint
	if err := r.db.SelectContext(ctx, &res, q, since); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *StatsRepo) StatusCounts(ctx context.Context) ([]stats.StatusCount, error) {
	var res []stats.StatusCount
	err := r.db.SelectContext(ctx, &res, `SELECT status, COUNT(*) AS count FROM polls GROUP BY status ORDER BY status`)
	return res, err
}

func (r *StatsRepo) VoterCounts(ctx context.Context) ([]int64, error) {
	var res []int64
	err := r.db.SelectContext(ctx, &res, `SELECT voters FROM polls`)
	return res, err
}
