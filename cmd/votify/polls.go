package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"votify/internal/client"
	"votify/internal/domain/poll"
	"votify/internal/views"
)

func (a *app) pollsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "polls",
		Short: "Browse and vote on polls",
	}
	cmd.AddCommand(a.pollsListCmd(), a.pollsShowCmd(), a.pollsVoteCmd(), a.pollsResultsCmd(), a.pollsWatchCmd())
	return cmd
}

func (a *app) pollsListCmd() *cobra.Command {
	var voted bool
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open polls you have not voted on (or --voted ones)",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&voted, "voted", false, "list polls you already voted on")
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.RunE = a.run(func(ctx context.Context, _ []string) error {
		if err := a.requireLogin(); err != nil {
			return err
		}
		q := client.PollQuery{Voted: &voted, Category: category}
		polls, err := a.api().Polls(ctx, q)
		if err != nil {
			return err
		}
		renderPolls(a.out, polls, time.Now())
		return nil
	})
	return cmd
}

func (a *app) pollsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <poll-id>",
		Short: "Show a poll and its options",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.run(func(ctx context.Context, args []string) error {
		id, err := parseID(args[0], "poll id")
		if err != nil {
			return err
		}
		if err := a.requireLogin(); err != nil {
			return err
		}
		d, err := a.api().Poll(ctx, id)
		if err != nil {
			return err
		}
		p := d.Poll
		fmt.Fprintf(a.out, "%s %s\n", bold(fmt.Sprintf("#%d", p.ID)), p.Question)
		if p.Description != nil && *p.Description != "" {
			fmt.Fprintln(a.out, faint(*p.Description))
		}
		fmt.Fprintf(a.out, "%s · %s · %d voters · %s\n\n", p.Category, statusLabel(p.Status), p.Voters, views.PollCountdown(p, time.Now()))
		tw := newTable(a.out)
		for _, o := range d.Options {
			fmt.Fprintf(tw, "  [%d]\t%s\n", o.ID, o.Text)
		}
		_ = tw.Flush()
		return nil
	})
	return cmd
}

func (a *app) pollsVoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vote <poll-id> <option-id>",
		Short: "Vote for an option",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = a.run(func(ctx context.Context, args []string) error {
		pollID, err := parseID(args[0], "poll id")
		if err != nil {
			return err
		}
		optionID, err := parseID(args[1], "option id")
		if err != nil {
			return err
		}
		if err := a.requireLogin(); err != nil {
			return err
		}
		total, err := a.api().Vote(ctx, pollID, optionID)
		if err != nil {
			return err
		}
		a.notes.Info(fmt.Sprintf("Vote recorded. %d people have voted on poll #%d.", total, pollID))
		return nil
	})
	return cmd
}

func (a *app) pollsResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results <poll-id>",
		Short: "Show the tally of a poll",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.run(func(ctx context.Context, args []string) error {
		id, err := parseID(args[0], "poll id")
		if err != nil {
			return err
		}
		if err := a.requireLogin(); err != nil {
			return err
		}
		res, err := a.api().Results(ctx, id)
		if err != nil {
			return err
		}
		renderResults(a.out, res)
		return nil
	})
	return cmd
}

// pollSource is what watch mode renders; the three list views satisfy it.
type pollSource interface {
	Open(ctx context.Context) error
	Close()
	Polls() []poll.Poll
}

func (a *app) pollsWatchCmd() *cobra.Command {
	var voted bool
	var category string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of polls, updated by push notifications",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&voted, "voted", false, "watch polls you already voted on")
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.RunE = a.run(func(ctx context.Context, _ []string) error {
		return a.watch(ctx, func(src views.Source, opts views.Options) pollSource {
			if voted {
				return views.NewVotedList(a.api(), src, opts)
			}
			return views.NewPollList(a.api(), src, category, opts)
		})
	})
	return cmd
}

// watch renders a list view until ctx ends. It redraws on every change and
// once a second for the countdowns.
func (a *app) watch(ctx context.Context, build func(views.Source, views.Options) pollSource) error {
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
	v := build(conn, opts)
	defer v.Close()
	if err := v.Open(ctx); err != nil {
		return err
	}

	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		clearScreen(a.out)
		status := green("live")
		if !conn.Connected() {
			status = yellow("reconnecting")
		}
		fmt.Fprintf(a.out, "%s  %s\n\n", bold("Votify"), status)
		renderPolls(a.out, v.Polls(), time.Now())
		fmt.Fprintln(a.out, faint("\nCtrl+C to quit"))

		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		case <-tick.C:
		}
	}
}
