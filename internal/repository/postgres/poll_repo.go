package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"votify/internal/domain/poll"
)

type PollRepo struct {
	db *sql.DB
}

func NewPollRepo(db *sql.DB) *PollRepo {
	return &PollRepo{db: db}
}

const pollColumns = `id, question, category, description, status, ends_at, voters, creator_id, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPoll(s scanner, p *poll.Poll) error {
	return s.Scan(&p.ID, &p.Question, &p.Category, &p.Description, &p.Status,
		&p.EndsAt, &p.Voters, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll, options []poll.Option) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	queryPoll := `
        INSERT INTO polls (question, category, description, status, ends_at, creator_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, voters, created_at, updated_at
    `

	err = tx.QueryRowContext(ctx, queryPoll,
		p.Question,
		p.Category,
		p.Description,
		p.Status,
		p.EndsAt,
		p.CreatorID,
	).Scan(&p.ID, &p.Voters, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return 0, err
	}

	queryOpt := `
        INSERT INTO options (poll_id, text)
        VALUES ($1, $2)
        RETURNING id, created_at
    `

	for i := range options {
		options[i].PollID = p.ID
		if err := tx.QueryRowContext(ctx, queryOpt, options[i].PollID, options[i].Text).
			Scan(&options[i].ID, &options[i].CreatedAt); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return p.ID, nil
}

func (r *PollRepo) GetByID(ctx context.Context, id int64) (*poll.Poll, []poll.Option, error) {
	p := &poll.Poll{}
	row := r.db.QueryRowContext(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = $1`, id)
	if err := scanPoll(row, p); err != nil {
		return nil, nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, poll_id, text, created_at
        FROM options WHERE poll_id = $1 ORDER BY id
    `, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var opts []poll.Option
	for rows.Next() {
		var o poll.Option
		if err := rows.Scan(&o.ID, &o.PollID, &o.Text, &o.CreatedAt); err != nil {
			return nil, nil, err
		}
		opts = append(opts, o)
	}

	return p, opts, rows.Err()
}

func (r *PollRepo) List(ctx context.Context, f poll.ListFilter) ([]poll.Poll, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		where = append(where, "p.status = "+arg(f.Status))
	}
	if f.Category != "" {
		where = append(where, "p.category = "+arg(f.Category))
	}
	if f.Voted != nil {
		exists := "EXISTS (SELECT 1 FROM votes v WHERE v.poll_id = p.id AND v.user_id = " + arg(f.UserID) + ")"
		if !*f.Voted {
			exists = "NOT " + exists
		}
		where = append(where, exists)
	}

	query := `SELECT ` + prefixed("p.", pollColumns) + ` FROM polls p`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []poll.Poll{}
	for rows.Next() {
		var p poll.Poll
		if err := scanPoll(rows, &p); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r *PollRepo) Update(ctx context.Context, id int64, in poll.UpdateInput) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE polls SET
            question    = COALESCE($1, question),
            category    = COALESCE($2, category),
            description = COALESCE($3, description),
            ends_at     = COALESCE($4, ends_at),
            updated_at  = now()
        WHERE id = $5
    `, in.Question, in.Category, in.Description, in.EndsAt, id)
	return affected(res, err)
}

func (r *PollRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE polls SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	return affected(res, err)
}

func (r *PollRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, id)
	return affected(res, err)
}

func (r *PollRepo) FinishExpired(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
        UPDATE polls SET status = 'finished', updated_at = now()
        WHERE status = 'active' AND ends_at IS NOT NULL AND ends_at <= $1
        RETURNING id
    `, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func prefixed(prefix, columns string) string {
	cols := strings.Split(columns, ", ")
	for i := range cols {
		cols[i] = prefix + cols[i]
	}
	return strings.Join(cols, ", ")
}

// affected turns a zero-row update into sql.ErrNoRows so services can map it.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
