// Package views binds synced poll and dashboard data to the push stream.
// Views receive their API client and push connection explicitly.
package views

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"votify/internal/client"
	"votify/internal/domain/poll"
	"votify/internal/events"
	"votify/internal/syncer"
)

// Source delivers push events; *push.Conn implements it.
type Source interface {
	Subscribe(t events.Type, h events.Handler) (unsubscribe func())
}

type PollLister interface {
	Polls(ctx context.Context, q client.PollQuery) ([]poll.Poll, error)
}

type AdminPollLister interface {
	AdminPolls(ctx context.Context, status string) ([]poll.Poll, error)
}

type Options struct {
	Interval  time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
	OnLoading func(bool)
	OnChange  func()
}

func (o Options) cacheOptions(name string) syncer.Options {
	return syncer.Options{
		Interval:  o.Interval,
		Name:      name,
		Logger:    o.Logger,
		Now:       o.Now,
		OnLoading: o.OnLoading,
		OnChange:  o.OnChange,
	}
}

// binding owns the subscriptions and background reloads of one view.
type binding struct {
	src    Source
	unsubs []func()

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newBinding(src Source) *binding {
	ctx, cancel := context.WithCancel(context.Background())
	return &binding{src: src, ctx: ctx, cancel: cancel}
}

func (b *binding) on(t events.Type, h events.Handler) {
	b.unsubs = append(b.unsubs, b.src.Subscribe(t, h))
}

// background runs fn off the push reader goroutine.
func (b *binding) background(fn func(ctx context.Context)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn(b.ctx)
	}()
}

func (b *binding) close() {
	for _, u := range b.unsubs {
		u()
	}
	b.unsubs = nil
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cancel()
	b.wg.Wait()
}
