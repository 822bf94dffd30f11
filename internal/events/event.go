package events

import "time"

// Type names a push notification.
type Type string

const (
	VoteAdded        Type = "vote-added"
	PollFinished     Type = "poll-finished"
	PollsChanged     Type = "polls-changed"
	DashboardChanged Type = "dashboard-changed"
)

// Event is the JSON frame written to every push connection.
type Event struct {
	Type   Type      `json:"type"`
	PollID int64     `json:"poll_id,omitempty"`
	Total  int64     `json:"total,omitempty"`
	At     time.Time `json:"at"`
}

// Handler receives dispatched events.
type Handler func(Event)

func NewVoteAdded(pollID, total int64) Event {
	return Event{Type: VoteAdded, PollID: pollID, Total: total, At: time.Now().UTC()}
}

func NewPollFinished(pollID int64) Event {
	return Event{Type: PollFinished, PollID: pollID, At: time.Now().UTC()}
}

func NewPollsChanged() Event {
	return Event{Type: PollsChanged, At: time.Now().UTC()}
}

func NewDashboardChanged() Event {
	return Event{Type: DashboardChanged, At: time.Now().UTC()}
}
