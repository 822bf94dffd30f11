package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"votify/internal/client"
	"votify/internal/domain/poll"
	"votify/internal/forms"
	"votify/internal/views"
)

// retryable reports input mistakes the user can correct by trying again.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	var fe forms.Errors
	return errors.As(err, &fe) ||
		client.IsCode(err, "invalid_input") ||
		client.IsCode(err, "invalid_code")
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", what, s)
	}
	return id, nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func statusLabel(status string) string {
	if status == poll.StatusFinished {
		return faint(status)
	}
	return green(status)
}

func renderPolls(w io.Writer, polls []poll.Poll, now time.Time) {
	if len(polls) == 0 {
		fmt.Fprintln(w, faint("No polls to show."))
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, bold("ID\tQUESTION\tCATEGORY\tVOTERS\tSTATUS\tENDS IN"))
	for _, p := range polls {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			p.ID, truncate(p.Question, 48), p.Category, p.Voters, statusLabel(p.Status), views.PollCountdown(p, now))
	}
	_ = tw.Flush()
}

func renderResults(w io.Writer, res *client.Results) {
	tw := newTable(w)
	for _, o := range res.Options {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%5.1f%%\t%s\n", o.OptionID, o.Text, o.Votes, o.Percentage, bar(o.Percentage, 20))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%s %d\n", bold("Total votes:"), res.TotalVotes)
}

func bar(pct float64, width int) string {
	n := min(max(int(pct/100*float64(width)), 0), width)
	return green(strings.Repeat("█", n)) + faint(strings.Repeat("░", width-n))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// clearScreen moves the cursor home and clears, for watch mode.
func clearScreen(w io.Writer) {
	fmt.Fprint(w, "\033[H\033[2J")
}
