package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"votify/internal/domain/stats"
	"votify/internal/events"
	"votify/internal/views"
)

func (a *app) dashboardCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Admin statistics: totals, monthly trend, status split, engagement",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep the dashboard open and live")
	cmd.RunE = a.run(func(ctx context.Context, _ []string) error {
		if err := a.requireLogin(); err != nil {
			return err
		}
		if !watch {
			d := views.NewDashboard(a.api(), noSource{}, a.viewOpts())
			defer d.Close()
			if err := d.Open(ctx); err != nil {
				return err
			}
			renderDashboard(a.out, d.Data())
			return nil
		}
		return a.watchDashboard(ctx)
	})
	return cmd
}

// noSource is a Source without events, for one-shot rendering.
type noSource struct{}

func (noSource) Subscribe(events.Type, events.Handler) func() { return func() {} }

func (a *app) watchDashboard(ctx context.Context) error {
	conn, err := a.sess.Connect(ctx)
	if err != nil {
		return err
	}
	defer a.sess.Disconnect()

	changed := make(chan struct{}, 1)
	opts := a.viewOpts()
	opts.OnChange = func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	d := views.NewDashboard(a.api(), conn, opts)
	defer d.Close()
	if err := d.Open(ctx); err != nil {
		return err
	}
	for {
		clearScreen(a.out)
		renderDashboard(a.out, d.Data())
		fmt.Fprintln(a.out, faint("\nupdated "+time.Now().Format("15:04:05")+" · Ctrl+C to quit"))
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		}
	}
}

func renderDashboard(w io.Writer, d stats.Dashboard) {
	t := d.Totals
	fmt.Fprintf(w, "%s\n  polls %d  active %d  finished %d  voters %d\n\n",
		bold("Totals"), t.Polls, t.Active, t.Finished, t.Voters)

	fmt.Fprintln(w, bold("Monthly"))
	tw := newTable(w)
	fmt.Fprintln(tw, "  MONTH\tPOLLS\tVOTES")
	for _, m := range d.Monthly {
		fmt.Fprintf(tw, "  %s\t%d\t%d\n", m.Month, m.Polls, m.Votes)
	}
	_ = tw.Flush()

	fmt.Fprintln(w, "\n"+bold("Status"))
	var total int64
	for _, s := range d.Status {
		total += s.Count
	}
	for _, s := range d.Status {
		pct := 0.0
		if total > 0 {
			pct = float64(s.Count) * 100 / float64(total)
		}
		fmt.Fprintf(w, "  %-9s %s %d\n", s.Status, bar(pct, 20), s.Count)
	}

	fmt.Fprintln(w, "\n"+bold("Engagement (polls by voter count)"))
	var most int64
	for _, b := range d.Engagement {
		most = max(most, b.Polls)
	}
	for _, b := range d.Engagement {
		n := 0
		if most > 0 {
			n = int(b.Polls * 20 / most)
		}
		fmt.Fprintf(w, "  %-7s %s %d\n", b.Label, green(strings.Repeat("█", n)), b.Polls)
	}
}
