package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"votify/internal/domain/poll"
	"votify/internal/domain/vote"
)

type VoteRepo struct {
	db *sql.DB
}

func NewVoteRepo(db *sql.DB) *VoteRepo {
	return &VoteRepo{db: db}
}

func (r *VoteRepo) Create(ctx context.Context, v *vote.Vote) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// Row lock holds off the finisher until this vote commits or rolls back.
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM polls WHERE id = $1 FOR UPDATE`,
		v.PollID,
	).Scan(&status)
	if err != nil {
		return 0, err
	}
	if status != poll.StatusActive {
		return 0, vote.ErrPollNotActive
	}

	var belongs bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM options WHERE id = $1 AND poll_id = $2)`,
		v.OptionID, v.PollID,
	).Scan(&belongs)
	if err != nil {
		return 0, err
	}
	if !belongs {
		return 0, vote.ErrOptionNotInPoll
	}

	err = tx.QueryRowContext(ctx, `
        INSERT INTO votes (poll_id, option_id, user_id)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `, v.PollID, v.OptionID, v.UserID).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, vote.ErrAlreadyVoted
		}
		return 0, err
	}

	var total int64
	err = tx.QueryRowContext(ctx,
		`UPDATE polls SET voters = voters + 1, updated_at = now()
		 WHERE id = $1 AND status = 'active' RETURNING voters`,
		v.PollID,
	).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, vote.ErrPollNotActive
	}
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *VoteRepo) CountByPoll(ctx context.Context, pollID int64) ([]vote.Count, int64, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT o.id, o.text, COUNT(v.id)
        FROM options o
        LEFT JOIN votes v ON v.option_id = o.id
        WHERE o.poll_id = $1
        GROUP BY o.id, o.text
        ORDER BY o.id
    `, pollID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		res   []vote.Count
		total int64
	)
	for rows.Next() {
		var c vote.Count
		if err := rows.Scan(&c.OptionID, &c.Text, &c.Votes); err != nil {
			return nil, 0, err
		}
		res = append(res, c)
		total += c.Votes
	}

	return res, total, rows.Err()
}

func (r *VoteRepo) GetPollStatus(ctx context.Context, pollID int64) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM polls WHERE id = $1`, pollID).Scan(&status)
	return status, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
