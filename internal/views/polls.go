package views

import (
	"context"
	"sync"

	"votify/internal/client"
	"votify/internal/domain/poll"
	"votify/internal/events"
	"votify/internal/syncer"
)

// finishMode says what a poll-finished event does to a list.
type finishMode int

const (
	finishRemoves finishMode = iota
	finishMarks
)

// pollView is a list of polls kept fresh by push events.
type pollView struct {
	list   *syncer.List[poll.Poll, int64]
	finish finishMode
	b      *binding
	once   sync.Once
}

func newPollView(name string, fetch syncer.FetchFunc[[]poll.Poll], src Source, mode finishMode, opts Options) *pollView {
	return &pollView{
		list:   syncer.NewList(fetch, func(p poll.Poll) int64 { return p.ID }, opts.cacheOptions(name)),
		finish: mode,
		b:      newBinding(src),
	}
}

// Open subscribes to push events and performs the first visible load.
// Subscriptions stay in place when that load fails so the next push
// notification can recover the list.
func (v *pollView) Open(ctx context.Context) error {
	v.once.Do(func() {
		v.b.on(events.VoteAdded, v.onVoteAdded)
		v.b.on(events.PollFinished, v.onPollFinished)
		v.b.on(events.PollsChanged, v.onPollsChanged)
	})
	_, err := v.list.Load(ctx, true, false)
	return err
}

// Refresh forces a visible reload.
func (v *pollView) Refresh(ctx context.Context) error {
	_, err := v.list.Load(ctx, true, false)
	return err
}

// Close unsubscribes and discards results of loads still in flight.
func (v *pollView) Close() {
	v.b.close()
	v.list.Close()
}

// Polls returns a copy of the current list.
func (v *pollView) Polls() []poll.Poll { return v.list.Items() }

func (v *pollView) Find(id int64) (poll.Poll, bool) { return v.list.Find(id) }

func (v *pollView) Loading() bool { return v.list.Loading() }

// Remove drops a poll locally, e.g. after the user voted on it.
func (v *pollView) Remove(id int64) bool { return v.list.ApplyRemoval(id) }

// SetVoters records a total the user already learned from a vote response.
func (v *pollView) SetVoters(id, total int64) bool {
	return v.list.ApplyPatch(id, func(p *poll.Poll) { p.Voters = total })
}

func (v *pollView) onVoteAdded(ev events.Event) {
	v.SetVoters(ev.PollID, ev.Total)
}

func (v *pollView) onPollFinished(ev events.Event) {
	if v.finish == finishRemoves {
		v.list.ApplyRemoval(ev.PollID)
		return
	}
	v.list.ApplyPatch(ev.PollID, func(p *poll.Poll) { p.Status = poll.StatusFinished })
}

func (v *pollView) onPollsChanged(events.Event) {
	v.b.background(func(ctx context.Context) {
		_, _ = v.list.Load(ctx, false, true)
	})
}

// PollList shows active polls the user has not voted on yet. Finished polls
// drop out of it as soon as the server announces them.
type PollList struct {
	*pollView
}

func NewPollList(api PollLister, src Source, category string, opts Options) *PollList {
	voted := false
	q := client.PollQuery{Voted: &voted, Category: category}
	fetch := func(ctx context.Context) ([]poll.Poll, error) { return api.Polls(ctx, q) }
	return &PollList{newPollView("polls", fetch, src, finishRemoves, opts)}
}

// VotedList shows polls the user has voted on, active or finished.
type VotedList struct {
	*pollView
}

func NewVotedList(api PollLister, src Source, opts Options) *VotedList {
	voted := true
	q := client.PollQuery{Voted: &voted}
	fetch := func(ctx context.Context) ([]poll.Poll, error) { return api.Polls(ctx, q) }
	return &VotedList{newPollView("voted", fetch, src, finishMarks, opts)}
}

// ManageList is the admin listing of every poll, optionally by status.
type ManageList struct {
	*pollView
}

func NewManageList(api AdminPollLister, src Source, status string, opts Options) *ManageList {
	fetch := func(ctx context.Context) ([]poll.Poll, error) { return api.AdminPolls(ctx, status) }
	return &ManageList{newPollView("manage", fetch, src, finishMarks, opts)}
}
