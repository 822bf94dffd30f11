package views

import (
	"fmt"
	"time"

	"votify/internal/domain/poll"
)

// Countdown renders the time left until endsAt. It is display only: a poll is
// finished when the server says so, not when this reaches "ended".
func Countdown(endsAt, now time.Time) string {
	d := endsAt.Sub(now).Truncate(time.Second)
	if d <= 0 {
		return "ended"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	mins := int(d % time.Hour / time.Minute)
	secs := int(d % time.Minute / time.Second)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
}

// PollCountdown is Countdown for a poll; open-ended polls render "no end date".
func PollCountdown(p poll.Poll, now time.Time) string {
	if p.Status == poll.StatusFinished {
		return "ended"
	}
	if p.EndsAt == nil {
		return "no end date"
	}
	return Countdown(*p.EndsAt, now)
}
