package postgres

import (
	"context"
	"database/sql"

	"votify/internal/domain/recovery"
)

type RecoveryRepo struct {
	db *sql.DB
}

func NewRecoveryRepo(db *sql.DB) *RecoveryRepo {
	return &RecoveryRepo{db: db}
}

func (r *RecoveryRepo) Save(ctx context.Context, req *recovery.Request) error {
	return r.db.QueryRowContext(ctx, `
        INSERT INTO password_resets (token, user_id, email, code_hash, stage, attempts, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (token) DO UPDATE SET
            code_hash  = EXCLUDED.code_hash,
            stage      = EXCLUDED.stage,
            attempts   = EXCLUDED.attempts,
            expires_at = EXCLUDED.expires_at
        RETURNING created_at
    `, req.Token, req.UserID, req.Email, req.CodeHash, req.Stage, req.Attempts, req.ExpiresAt).
		Scan(&req.CreatedAt)
}

func (r *RecoveryRepo) GetByToken(ctx context.Context, token string) (*recovery.Request, error) {
	req := &recovery.Request{}
	err := r.db.QueryRowContext(ctx, `
        SELECT token, user_id, email, code_hash, stage, attempts, expires_at, created_at
        FROM password_resets WHERE token = $1
    `, token).Scan(&req.Token, &req.UserID, &req.Email, &req.CodeHash, &req.Stage,
		&req.Attempts, &req.ExpiresAt, &req.CreatedAt)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *RecoveryRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM password_resets WHERE token = $1`, token)
	return err
}
