package poll

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"votify/internal/forms"
)

var (
	ErrPollNotFound      = errors.New("poll not found")
	ErrInvalidStatus     = errors.New("invalid poll status")
	ErrInvalidDates      = errors.New("ends_at must be in the future")
	ErrAlreadyFinished   = errors.New("poll already finished")
	ErrInvalidTransition = errors.New("finished poll cannot be reopened")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, p *Poll, options []Option) (int64, error) {
	texts := make([]string, 0, len(options))
	for _, o := range options {
		texts = append(texts, o.Text)
	}
	form := forms.PollForm{Question: p.Question, Category: p.Category, EndsAt: p.EndsAt, Options: texts}
	if errs := form.Validate(s.now()); !errs.Valid() {
		return 0, errs
	}

	kept := options[:0:0]
	for _, o := range options {
		if o.Text = strings.TrimSpace(o.Text); o.Text != "" {
			kept = append(kept, o)
		}
	}
	p.Question = strings.TrimSpace(p.Question)
	p.Category = strings.ToLower(strings.TrimSpace(p.Category))
	p.Status = StatusActive
	p.Voters = 0
	return s.repo.Create(ctx, p, kept)
}

func (s *Service) Get(ctx context.Context, id int64) (*Poll, []Option, error) {
	p, opts, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrPollNotFound
	}
	return p, opts, err
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Poll, error) {
	if f.Status != "" && f.Status != StatusActive && f.Status != StatusFinished {
		return nil, ErrInvalidStatus
	}
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	return s.repo.List(ctx, f)
}

func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) error {
	if input.EndsAt != nil && !input.EndsAt.After(s.now()) {
		return ErrInvalidDates
	}
	if input.Category != nil {
		c := strings.ToLower(strings.TrimSpace(*input.Category))
		input.Category = &c
	}
	err := s.repo.Update(ctx, id, input)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPollNotFound
	}
	return err
}

// UpdateStatus only allows active -> finished; a finished poll stays finished.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) error {
	if status != StatusActive && status != StatusFinished {
		return ErrInvalidStatus
	}
	p, _, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case p.Status == status && status == StatusFinished:
		return ErrAlreadyFinished
	case p.Status == status:
		return nil
	case p.Status == StatusFinished:
		return ErrInvalidTransition
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPollNotFound
	}
	return err
}

func (s *Service) FinishExpired(ctx context.Context) ([]int64, error) {
	return s.repo.FinishExpired(ctx, s.now())
}
