package worker

import (
	"context"
	"log/slog"

	"votify/internal/events"
	"votify/internal/metrics"
)

type VoteEvent struct {
	PollID   int64
	OptionID int64
	UserID   int64
	Total    int64
}

// Publisher is satisfied by *events.Hub.
type Publisher interface {
	Publish(ev events.Event)
}

// VoteWorker turns accepted votes into push notifications off the request path.
type VoteWorker struct {
	Ch  <-chan VoteEvent
	pub Publisher
	log *slog.Logger
}

func NewVoteWorker(ch <-chan VoteEvent, pub Publisher, log *slog.Logger) *VoteWorker {
	if log == nil {
		log = slog.Default()
	}
	return &VoteWorker{Ch: ch, pub: pub, log: log}
}

func (w *VoteWorker) Run(ctx context.Context) {
	w.log.Info("vote worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("vote worker stopped")
			return
		case ev, ok := <-w.Ch:
			if !ok {
				w.log.Info("vote worker channel closed")
				return
			}
			w.handle(ev)
		}
	}
}

func (w *VoteWorker) handle(ev VoteEvent) {
	metrics.IncVote()
	w.log.Debug("processing vote event", "poll_id", ev.PollID, "option_id", ev.OptionID, "total", ev.Total)
	w.pub.Publish(events.NewVoteAdded(ev.PollID, ev.Total))
	w.pub.Publish(events.NewDashboardChanged())
}
