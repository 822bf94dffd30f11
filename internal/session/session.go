// Package session ties the persisted login to the API client and the push
// connection. Logging in or out is the only place those change.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"votify/internal/client"
	"votify/internal/domain/user"
	"votify/internal/forms"
	"votify/internal/push"
)

var ErrNotLoggedIn = errors.New("not logged in")

type Session struct {
	store    *Store
	api      *client.Client
	log      *slog.Logger
	pushOpts push.Options

	mu   sync.Mutex
	conn *push.Conn
	done chan struct{}
}

// New restores a saved token into api.
func New(store *Store, api *client.Client, pushOpts push.Options, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}
	tok, err := store.Token()
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if tok != "" {
		api.SetToken(tok)
	}
	if pushOpts.Logger == nil {
		pushOpts.Logger = log
	}
	return &Session{store: store, api: api, log: log, pushOpts: pushOpts}, nil
}

func (s *Session) Client() *client.Client { return s.api }

func (s *Session) Store() *Store { return s.store }

func (s *Session) LoggedIn() bool { return s.api.Token() != "" }

func (s *Session) Login(ctx context.Context, email, password string) (*user.User, error) {
	email = strings.TrimSpace(email)
	if err := (forms.LoginForm{Email: email, Password: password}).Validate().Err(); err != nil {
		return nil, err
	}
	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveToken(res.Token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	return &res.User, nil
}

func (s *Session) Signup(ctx context.Context, name, email, password, confirm string) (*user.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	form := forms.SignupForm{Name: name, Email: email, Password: password, Confirm: confirm}
	if err := form.Validate().Err(); err != nil {
		return nil, err
	}
	res, err := s.api.Register(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveToken(res.Token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	return &res.User, nil
}

// Logout drops the push connection, the token and the chat history.
func (s *Session) Logout() error {
	s.Disconnect()
	s.api.SetToken("")
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Connect starts the push loop for the logged in user and returns the
// connection views subscribe to. Calling it again returns the same connection.
func (s *Session) Connect(ctx context.Context) (*push.Conn, error) {
	if !s.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn, nil
	}

	conn := push.New(s.api.EventsURL(), s.api.Token, s.pushOpts)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := conn.Run(ctx); err != nil && !errors.Is(err, push.ErrClosed) && !errors.Is(err, context.Canceled) {
			s.log.Warn("push loop stopped", "err", err)
		}
	}()
	s.conn, s.done = conn, done
	return conn, nil
}

// Disconnect closes the push connection and waits for its loop to exit.
func (s *Session) Disconnect() {
	s.mu.Lock()
	conn, done := s.conn, s.done
	s.conn, s.done = nil, nil
	s.mu.Unlock()
	if conn == nil {
		return
	}
	_ = conn.Close()
	<-done
}
