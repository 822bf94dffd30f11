// Package passwordreset drives the three-step password recovery dialog.
// Each step needs the continuation token issued by the previous one, and a
// step only advances after the backend accepted it.
package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"votify/internal/forms"
)

type Step int

const (
	AwaitingEmail Step = iota
	AwaitingCode
	AwaitingNewPassword
	Done
)

func (s Step) String() string {
	switch s {
	case AwaitingEmail:
		return "awaiting-email"
	case AwaitingCode:
		return "awaiting-code"
	case AwaitingNewPassword:
		return "awaiting-new-password"
	case Done:
		return "done"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

var (
	ErrWrongStep      = errors.New("passwordreset: action not allowed in current step")
	ErrNoContinuation = errors.New("passwordreset: missing continuation token")
)

// Backend is the server side of the flow; *client.Client implements it.
type Backend interface {
	RequestReset(ctx context.Context, email string) (token string, err error)
	VerifyReset(ctx context.Context, token, code string) (next string, err error)
	ResetPassword(ctx context.Context, token, password string) error
	ResendReset(ctx context.Context, token string) error
}

type Flow struct {
	backend Backend

	mu    sync.Mutex
	step  Step
	token string
	email string
}

func New(b Backend) *Flow {
	return &Flow{backend: b}
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Email is the address the code was sent to.
func (f *Flow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

// RequestCode asks the server to mail a code. Validation problems come back
// as forms.Errors.
func (f *Flow) RequestCode(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != AwaitingEmail {
		return ErrWrongStep
	}
	email = strings.TrimSpace(email)
	if err := (forms.ResetEmailForm{Email: email}).Validate().Err(); err != nil {
		return err
	}
	tok, err := f.backend.RequestReset(ctx, email)
	if err != nil {
		return fmt.Errorf("request reset code: %w", err)
	}
	if tok == "" {
		return ErrNoContinuation
	}
	f.token = tok
	f.email = email
	f.step = AwaitingCode
	return nil
}

// VerifyCode exchanges the mailed code for the token that authorizes the new
// password.
func (f *Flow) VerifyCode(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token == "" {
		return ErrNoContinuation
	}
	if f.step != AwaitingCode {
		return ErrWrongStep
	}
	code = strings.TrimSpace(code)
	if err := (forms.ResetCodeForm{Code: code}).Validate().Err(); err != nil {
		return err
	}
	next, err := f.backend.VerifyReset(ctx, f.token, code)
	if err != nil {
		return fmt.Errorf("verify reset code: %w", err)
	}
	if next == "" {
		return ErrNoContinuation
	}
	f.token = next
	f.step = AwaitingNewPassword
	return nil
}

func (f *Flow) SetPassword(ctx context.Context, password, confirm string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != AwaitingNewPassword {
		return ErrWrongStep
	}
	if f.token == "" {
		return ErrNoContinuation
	}
	if err := (forms.NewPasswordForm{Password: password, Confirm: confirm}).Validate().Err(); err != nil {
		return err
	}
	if err := f.backend.ResetPassword(ctx, f.token, password); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	f.token = ""
	f.step = Done
	return nil
}

// ResendCode mails a fresh code for the same request.
func (f *Flow) ResendCode(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != AwaitingCode {
		return ErrWrongStep
	}
	if f.token == "" {
		return ErrNoContinuation
	}
	if err := f.backend.ResendReset(ctx, f.token); err != nil {
		return fmt.Errorf("resend reset code: %w", err)
	}
	return nil
}

// Restart drops the token and returns to the email step.
func (f *Flow) Restart() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.step = AwaitingEmail
	f.token = ""
	f.email = ""
}
