package recovery

import (
	"context"
	"time"
)

const (
	StageCodeSent = "code_sent"
	StageVerified = "verified"
	StageUsed     = "used"
)

// Request is one password reset in progress. Token is the continuation token handed
// to the client; it is rotated when the code is verified.
type Request struct {
	Token     string
	UserID    int64
	Email     string
	CodeHash  string
	Stage     string
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Repository interface {
	Save(ctx context.Context, r *Request) error
	GetByToken(ctx context.Context, token string) (*Request, error)
	Delete(ctx context.Context, token string) error
}

// Mailer delivers reset codes.
type Mailer interface {
	SendResetCode(ctx context.Context, to, code string) error
}
