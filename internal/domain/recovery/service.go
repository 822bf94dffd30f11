package recovery

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"votify/internal/domain/user"
	"votify/internal/forms"
)

var (
	ErrInvalidToken    = errors.New("invalid or expired reset token")
	ErrInvalidCode     = errors.New("invalid reset code")
	ErrTooManyAttempts = errors.New("too many attempts")
)

const (
	DefaultTTL  = 15 * time.Minute
	MaxAttempts = 5
)

type Users interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	SetPassword(ctx context.Context, id int64, password string) error
}

type Service struct {
	repo   Repository
	users  Users
	mailer Mailer
	ttl    time.Duration
	cost   int
	now    func() time.Time
	code   func() (string, error)
}

func NewService(repo Repository, users Users, mailer Mailer, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo:   repo,
		users:  users,
		mailer: mailer,
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		code:   randomCode,
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// RequestCode mails a fresh code and returns the continuation token for VerifyCode.
func (s *Service) RequestCode(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if errs := (forms.ResetEmailForm{Email: email}).Validate(); !errs.Valid() {
		return "", errs
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	req := &Request{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		Email:     u.Email,
		Stage:     StageCodeSent,
		CreatedAt: s.now(),
	}
	if err := s.issueCode(ctx, req); err != nil {
		return "", err
	}
	return req.Token, nil
}

// Resend issues a new code for a request still waiting for verification.
// Failed attempts carry over to the new code.
func (s *Service) Resend(ctx context.Context, token string) error {
	req, err := s.load(ctx, token, StageCodeSent)
	if err != nil {
		return err
	}
	if req.Attempts >= MaxAttempts {
		return ErrTooManyAttempts
	}
	return s.issueCode(ctx, req)
}

// VerifyCode checks the code and returns the rotated token required by Reset.
func (s *Service) VerifyCode(ctx context.Context, token, code string) (string, error) {
	if errs := (forms.ResetCodeForm{Code: code}).Validate(); !errs.Valid() {
		return "", errs
	}
	req, err := s.load(ctx, token, StageCodeSent)
	if err != nil {
		return "", err
	}
	if req.Attempts >= MaxAttempts {
		return "", ErrTooManyAttempts
	}
	if bcrypt.CompareHashAndPassword([]byte(req.CodeHash), []byte(strings.TrimSpace(code))) != nil {
		req.Attempts++
		if err := s.repo.Save(ctx, req); err != nil {
			return "", err
		}
		return "", ErrInvalidCode
	}

	old := req.Token
	req.Token = uuid.NewString()
	req.Stage = StageVerified
	if err := s.repo.Save(ctx, req); err != nil {
		return "", err
	}
	if err := s.repo.Delete(ctx, old); err != nil {
		return "", err
	}
	return req.Token, nil
}

func (s *Service) Reset(ctx context.Context, token, password string) error {
	if errs := (forms.NewPasswordForm{Password: password, Confirm: password}).Validate(); !errs.Valid() {
		return errs
	}
	req, err := s.load(ctx, token, StageVerified)
	if err != nil {
		return err
	}
	// Spend the token before touching the password.
	req.Stage = StageUsed
	if err := s.repo.Save(ctx, req); err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, req.UserID, password); err != nil {
		req.Stage = StageVerified
		if rerr := s.repo.Save(ctx, req); rerr != nil {
			return errors.Join(err, fmt.Errorf("reopen reset request: %w", rerr))
		}
		return err
	}
	return nil
}

func (s *Service) issueCode(ctx context.Context, req *Request) error {
	code, err := s.code()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return err
	}
	req.CodeHash = string(hash)
	req.ExpiresAt = s.now().Add(s.ttl)
	if err := s.repo.Save(ctx, req); err != nil {
		return err
	}
	if err := s.mailer.SendResetCode(ctx, req.Email, code); err != nil {
		return fmt.Errorf("send reset code: %w", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, token, stage string) (*Request, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	req, err := s.repo.GetByToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if req.Stage != stage || !s.now().Before(req.ExpiresAt) {
		return nil, ErrInvalidToken
	}
	return req, nil
}
