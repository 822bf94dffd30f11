package recovery

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"votify/internal/domain/user"
)

type memoryRequestRepo struct {
	mu       sync.Mutex
	reqs     map[string]Request
	failUsed error
}

func (r *memoryRequestRepo) Save(ctx context.Context, req *Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.Stage == StageUsed && r.failUsed != nil {
		return r.failUsed
	}
	r.reqs[req.Token] = *req
	return nil
}

func (r *memoryRequestRepo) GetByToken(ctx context.Context, token string) (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.reqs[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &req, nil
}

func (r *memoryRequestRepo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reqs, token)
	return nil
}

type fakeUsers struct {
	passwords map[int64]string
	failSet   error
}

func (u *fakeUsers) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if email != "ann@example.com" {
		return nil, user.ErrUserNotFound
	}
	return &user.User{ID: 7, Email: email}, nil
}

func (u *fakeUsers) SetPassword(ctx context.Context, id int64, password string) error {
	if u.failSet != nil {
		return u.failSet
	}
	u.passwords[id] = password
	return nil
}

type captureMailer struct {
	sent []string
}

func (m *captureMailer) SendResetCode(ctx context.Context, to, code string) error {
	m.sent = append(m.sent, code)
	return nil
}

func newTestService() (*Service, *fakeUsers, *captureMailer, *time.Time) {
	users := &fakeUsers{passwords: map[int64]string{}}
	mailer := &captureMailer{}
	svc := NewService(&memoryRequestRepo{reqs: map[string]Request{}}, users, mailer, time.Minute)
	svc.cost = bcrypt.MinCost
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	codes := []string{"111111", "222222", "333333", "444444"}
	svc.code = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	return svc, users, mailer, &now
}

func TestResetFlow(t *testing.T) {
	svc, users, mailer, _ := newTestService()
	ctx := context.Background()

	token, err := svc.RequestCode(ctx, " Ann@Example.com ")
	if err != nil {
		t.Fatalf("request code: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "111111" {
		t.Fatalf("expected code mailed, got %v", mailer.sent)
	}

	if err := svc.Reset(ctx, token, "newpass123"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reset before verify must fail, got %v", err)
	}
	if _, err := svc.VerifyCode(ctx, token, "999999"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}

	verified, err := svc.VerifyCode(ctx, token, "111111")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified == token {
		t.Fatalf("token must rotate after verification")
	}
	if _, err := svc.VerifyCode(ctx, token, "111111"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("old token must be dead, got %v", err)
	}

	if err := svc.Reset(ctx, verified, "newpass123"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if users.passwords[7] != "newpass123" {
		t.Fatalf("password not stored")
	}
	if err := svc.Reset(ctx, verified, "otherpass123"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token must be single use, got %v", err)
	}
}

func TestResendAndExpiry(t *testing.T) {
	svc, _, mailer, now := newTestService()
	ctx := context.Background()

	token, _ := svc.RequestCode(ctx, "ann@example.com")
	if err := svc.Resend(ctx, token); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("expected two mails, got %d", len(mailer.sent))
	}
	if _, err := svc.VerifyCode(ctx, token, "111111"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("first code must be replaced, got %v", err)
	}

	*now = now.Add(2 * time.Minute)
	if _, err := svc.VerifyCode(ctx, token, "222222"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestTooManyAttempts(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	token, _ := svc.RequestCode(ctx, "ann@example.com")
	for i := 0; i < MaxAttempts; i++ {
		_, _ = svc.VerifyCode(ctx, token, "000000")
	}
	if _, err := svc.VerifyCode(ctx, token, "111111"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected lockout, got %v", err)
	}
}

func TestResendKeepsAttemptCount(t *testing.T) {
	svc, _, mailer, _ := newTestService()
	ctx := context.Background()

	token, _ := svc.RequestCode(ctx, "ann@example.com")
	for i := 0; i < MaxAttempts-1; i++ {
		if _, err := svc.VerifyCode(ctx, token, "000000"); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d: expected invalid code, got %v", i, err)
		}
	}
	if err := svc.Resend(ctx, token); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if _, err := svc.VerifyCode(ctx, token, "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}

	if err := svc.Resend(ctx, token); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("resend after lockout: expected too many attempts, got %v", err)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("locked request must not mail codes, sent %d", len(mailer.sent))
	}
	if _, err := svc.VerifyCode(ctx, token, mailer.sent[1]); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected lockout to survive resend, got %v", err)
	}
}

func TestResetSpendsTokenBeforePassword(t *testing.T) {
	svc, users, _, _ := newTestService()
	repo := svc.repo.(*memoryRequestRepo)
	ctx := context.Background()

	token, _ := svc.RequestCode(ctx, "ann@example.com")
	verified, err := svc.VerifyCode(ctx, token, "111111")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	repo.failUsed = errors.New("disk full")
	if err := svc.Reset(ctx, verified, "newpass123"); err == nil {
		t.Fatal("expected save failure")
	}
	if _, ok := users.passwords[7]; ok {
		t.Fatal("password changed although the token was not spent")
	}

	repo.failUsed = nil
	users.failSet = errors.New("db down")
	if err := svc.Reset(ctx, verified, "newpass123"); err == nil {
		t.Fatal("expected password failure")
	}

	users.failSet = nil
	if err := svc.Reset(ctx, verified, "newpass123"); err != nil {
		t.Fatalf("retry after failed password write: %v", err)
	}
	if users.passwords[7] != "newpass123" {
		t.Fatal("password not stored")
	}
	if err := svc.Reset(ctx, verified, "newpass123"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token must be single use, got %v", err)
	}
}

func TestUnknownEmail(t *testing.T) {
	svc, _, _, _ := newTestService()
	if _, err := svc.RequestCode(context.Background(), "nobody@example.com"); !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}
