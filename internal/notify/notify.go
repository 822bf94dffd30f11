// Package notify carries user-facing notices from background work to
// whatever renders them.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"votify/internal/client"
	"votify/internal/forms"
	"votify/internal/passwordreset"
	"votify/internal/session"
)

type Level int

const (
	Info Level = iota
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Warn:
		return "warn"
	case Error:
		return "error"
	}
	return "info"
}

type Notice struct {
	Level   Level
	Message string
	Err     error
}

const defaultBuffer = 16

// Notifier queues notices on a buffered channel. When nobody drains it the
// oldest notices win and new ones are logged and dropped.
type Notifier struct {
	ch  chan Notice
	log *slog.Logger
}

func New(buffer int, log *slog.Logger) *Notifier {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{ch: make(chan Notice, buffer), log: log}
}

func (n *Notifier) Notices() <-chan Notice { return n.ch }

func (n *Notifier) Post(nt Notice) {
	select {
	case n.ch <- nt:
	default:
		n.log.Warn("notice dropped", "level", nt.Level.String(), "message", nt.Message)
	}
}

func (n *Notifier) Info(msg string) { n.Post(Notice{Level: Info, Message: msg}) }

func (n *Notifier) Warn(msg string) { n.Post(Notice{Level: Warn, Message: msg}) }

// Fail reports a failed user action. Background refresh failures are logged
// by their caches and should not come through here.
func (n *Notifier) Fail(err error) {
	if err == nil {
		return
	}
	n.Post(Notice{Level: Error, Message: Describe(err), Err: err})
}

// Drain returns the notices queued so far without blocking.
func (n *Notifier) Drain() []Notice {
	var out []Notice
	for {
		select {
		case nt := <-n.ch:
			out = append(out, nt)
		default:
			return out
		}
	}
}

var codeMessages = map[string]string{
	"invalid_credentials": "Wrong email or password.",
	"user_not_found":      "No account uses that email address.",
	"email_taken":         "That email address is already registered.",
	"already_voted":       "You have already voted in this poll.",
	"poll_not_active":     "This poll has ended.",
	"invalid_option":      "That option does not belong to this poll.",
	"invalid_code":        "The code is not correct.",
	"invalid_token":       "The reset link has expired. Start again.",
	"too_many_attempts":   "Too many attempts. Request a new code.",
	"rate_limited":        "Slow down and try again in a moment.",
	"forbidden":           "You do not have access to that.",
	"missing_token":       "Please log in first.",
	"inactive_user":       "This account has been deactivated.",
	"poll_not_found":      "That poll does not exist.",
	"not_found":           "Not found.",
}

// Describe turns err into a sentence for the user.
func Describe(err error) string {
	var fe forms.Errors
	if errors.As(err, &fe) {
		return fieldsMessage(fe)
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized && apiErr.Code == "invalid_token" {
			return "Your session has expired. Please log in again."
		}
		if len(apiErr.Fields) > 0 {
			return fieldsMessage(apiErr.Fields)
		}
		if msg, ok := codeMessages[apiErr.Code]; ok {
			return msg
		}
		if apiErr.Status >= http.StatusInternalServerError {
			return "The server had a problem. Try again later."
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return http.StatusText(apiErr.Status)
	}

	switch {
	case errors.Is(err, session.ErrNotLoggedIn):
		return "Please log in first."
	case errors.Is(err, passwordreset.ErrNoContinuation), errors.Is(err, passwordreset.ErrWrongStep):
		return "Start the password reset again."
	case errors.Is(err, context.DeadlineExceeded):
		return "The server did not answer in time."
	}
	return "Something went wrong: " + err.Error()
}

func fieldsMessage(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fields[k])
	}
	return strings.Join(msgs, "; ")
}
