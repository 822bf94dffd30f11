package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"votify/internal/events"
	"votify/internal/metrics"
)

// Expirer closes polls whose end time has passed; *poll.Service satisfies it.
type Expirer interface {
	FinishExpired(ctx context.Context) ([]int64, error)
}

// Finisher periodically closes expired polls and announces them. The server is
// the only authority on a poll becoming finished; clients just react.
type Finisher struct {
	polls   Expirer
	pub     Publisher
	log     *slog.Logger
	timeout time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

func NewFinisher(polls Expirer, pub Publisher, log *slog.Logger) *Finisher {
	if log == nil {
		log = slog.Default()
	}
	return &Finisher{polls: polls, pub: pub, log: log, timeout: 10 * time.Second}
}

// Start schedules the sweep with a cron spec such as "@every 30s" or "*/1 * * * *".
func (f *Finisher) Start(spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()
		if _, err := f.Sweep(ctx); err != nil {
			f.log.Error("finish expired polls", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule finisher %q: %w", spec, err)
	}

	f.mu.Lock()
	f.cron = c
	f.mu.Unlock()
	c.Start()
	f.log.Info("poll finisher started", "spec", spec)
	return nil
}

// Stop waits for a running sweep to return.
func (f *Finisher) Stop() {
	f.mu.Lock()
	c := f.cron
	f.cron = nil
	f.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Sweep runs one pass and returns the ids it closed.
func (f *Finisher) Sweep(ctx context.Context) ([]int64, error) {
	ids, err := f.polls.FinishExpired(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	metrics.AddFinished(len(ids))
	f.log.Info("polls finished", "count", len(ids), "ids", ids)
	for _, id := range ids {
		f.pub.Publish(events.NewPollFinished(id))
	}
	f.pub.Publish(events.NewPollsChanged())
	f.pub.Publish(events.NewDashboardChanged())
	return ids, nil
}
