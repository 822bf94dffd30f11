// Package chat is the scripted assistant of the terminal client. It answers
// from the polls the client already has cached and never calls the server.
package chat

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"votify/internal/domain/poll"
)

type Action string

const (
	ActionHelp       Action = "help"
	ActionActive     Action = "active"
	ActionEndingSoon Action = "ending-soon"
	ActionPopular    Action = "popular"
	ActionCategories Action = "categories"
	ActionHowToVote  Action = "how-to-vote"
)

// Actions lists the buttons in display order.
var Actions = []Action{ActionActive, ActionEndingSoon, ActionPopular, ActionCategories, ActionHowToVote, ActionHelp}

const (
	FromUser = "user"
	FromBot  = "bot"
)

type Message struct {
	From string    `json:"from"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// HistoryStore persists the transcript; *session.Store implements it.
type HistoryStore interface {
	ChatHistory() ([]Message, error)
	AppendChat(msgs ...Message) error
}

const endingSoonWindow = 24 * time.Hour

// keywords are checked in order; the first action with a matching word wins.
var keywords = []struct {
	action Action
	words  []string
}{
	{ActionHowToVote, []string{"how to vote", "how do i vote", "how can i vote", "how vote"}},
	{ActionEndingSoon, []string{"ending", "soon", "deadline", "closing", "expire"}},
	{ActionPopular, []string{"popular", "top", "trending", "most"}},
	{ActionCategories, []string{"categor", "topic"}},
	{ActionActive, []string{"active", "open", "current", "list", "polls"}},
	{ActionHelp, []string{"help", "what can", "hello", "hi"}},
}

type Bot struct {
	polls   func() []poll.Poll
	history HistoryStore
	now     func() time.Time
	log     *slog.Logger
}

// NewBot answers from polls(); history may be nil for an unsaved session.
func NewBot(polls func() []poll.Poll, history HistoryStore, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{polls: polls, history: history, now: time.Now, log: log}
}

// Match maps free text to an action.
func Match(text string) (Action, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}
	for _, a := range Actions {
		if t == string(a) {
			return a, true
		}
	}
	for _, k := range keywords {
		for _, w := range k.words {
			if containsWord(t, w) {
				return k.action, true
			}
		}
	}
	return "", false
}

// containsWord matches w at a word start so "hi" does not match "this".
func containsWord(text, w string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], w)
		if j < 0 {
			return false
		}
		pos := i + j
		if pos == 0 || !isLetter(text[pos-1]) {
			end := pos + len(w)
			if len(w) > 4 || end == len(text) || !isLetter(text[end]) {
				return true
			}
		}
		i = pos + 1
	}
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}

// Ask answers text and records both sides of the exchange.
func (b *Bot) Ask(text string) Message {
	var reply string
	if a, ok := Match(text); ok {
		reply = b.Reply(a)
	} else {
		reply = b.fallback()
	}
	now := b.now()
	out := Message{From: FromBot, Text: reply, At: now}
	b.record(Message{From: FromUser, Text: text, At: now}, out)
	return out
}

// Do runs a button action.
func (b *Bot) Do(a Action) Message {
	now := b.now()
	out := Message{From: FromBot, Text: b.Reply(a), At: now}
	b.record(Message{From: FromUser, Text: string(a), At: now}, out)
	return out
}

func (b *Bot) record(msgs ...Message) {
	if b.history == nil {
		return
	}
	if err := b.history.AppendChat(msgs...); err != nil {
		b.log.Warn("save chat history", "err", err)
	}
}

// History returns the persisted transcript, or nil without a store.
func (b *Bot) History() ([]Message, error) {
	if b.history == nil {
		return nil, nil
	}
	return b.history.ChatHistory()
}

func (b *Bot) Reply(a Action) string {
	switch a {
	case ActionHelp:
		return "I can help with: " + actionList() + "."
	case ActionActive:
		return b.active()
	case ActionEndingSoon:
		return b.endingSoon()
	case ActionPopular:
		return b.popular()
	case ActionCategories:
		return b.categories()
	case ActionHowToVote:
		return "Run `votify polls list` to see open polls, `votify polls show <id>` for its options, " +
			"then `votify polls vote <id> <option-id>`. You can vote once per poll."
	}
	return b.fallback()
}

func (b *Bot) fallback() string {
	return "Sorry, I did not get that. Try one of: " + actionList() + "."
}

func actionList() string {
	names := make([]string, len(Actions))
	for i, a := range Actions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

func (b *Bot) activePolls() []poll.Poll {
	var out []poll.Poll
	for _, p := range b.polls() {
		if p.Status == poll.StatusActive {
			out = append(out, p)
		}
	}
	return out
}

func (b *Bot) active() string {
	ps := b.activePolls()
	if len(ps) == 0 {
		return "There are no active polls right now."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d active poll(s):", len(ps))
	for _, p := range ps {
		fmt.Fprintf(&sb, "\n- #%d %s", p.ID, p.Question)
	}
	return sb.String()
}

func (b *Bot) endingSoon() string {
	now := b.now()
	var soon []poll.Poll
	for _, p := range b.activePolls() {
		if p.EndsAt != nil && p.EndsAt.After(now) && p.EndsAt.Sub(now) <= endingSoonWindow {
			soon = append(soon, p)
		}
	}
	if len(soon) == 0 {
		return "No polls end in the next 24 hours."
	}
	slices.SortFunc(soon, func(a, c poll.Poll) int { return a.EndsAt.Compare(*c.EndsAt) })
	var sb strings.Builder
	sb.WriteString("Ending within 24 hours:")
	for _, p := range soon {
		fmt.Fprintf(&sb, "\n- #%d %s (ends %s)", p.ID, p.Question, p.EndsAt.Local().Format("Jan 2 15:04"))
	}
	return sb.String()
}

func (b *Bot) popular() string {
	ps := b.polls()
	if len(ps) == 0 {
		return "There are no polls yet."
	}
	ps = slices.Clone(ps)
	slices.SortStableFunc(ps, func(a, c poll.Poll) int { return cmp.Compare(c.Voters, a.Voters) })
	if len(ps) > 3 {
		ps = ps[:3]
	}
	var sb strings.Builder
	sb.WriteString("Most popular polls:")
	for i, p := range ps {
		fmt.Fprintf(&sb, "\n%d. #%d %s (%d voters)", i+1, p.ID, p.Question, p.Voters)
	}
	return sb.String()
}

func (b *Bot) categories() string {
	counts := map[string]int{}
	for _, p := range b.polls() {
		c := p.Category
		if c == "" {
			c = "uncategorized"
		}
		counts[c]++
	}
	if len(counts) == 0 {
		return "There are no polls yet."
	}
	names := make([]string, 0, len(counts))
	for c := range counts {
		names = append(names, c)
	}
	slices.Sort(names)
	var sb strings.Builder
	sb.WriteString("Categories:")
	for _, c := range names {
		fmt.Fprintf(&sb, "\n- %s: %d", c, counts[c])
	}
	return sb.String()
}
