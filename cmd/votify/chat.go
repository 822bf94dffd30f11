package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"votify/internal/chat"
	"votify/internal/client"
	"votify/internal/domain/poll"
	"votify/internal/syncer"
)

func (a *app) chatCmd() *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask the Votify assistant about polls",
		Long: "Without a message, starts an interactive chat. Actions: " +
			strings.Join(actionNames(), ", ") + ".",
	}
	cmd.Flags().BoolVar(&history, "history", false, "print the saved conversation first")
	cmd.RunE = a.run(func(ctx context.Context, args []string) error {
		if err := a.requireLogin(); err != nil {
			return err
		}
		polls := syncer.NewList(func(ctx context.Context) ([]poll.Poll, error) {
			return a.api().Polls(ctx, client.PollQuery{})
		}, func(p poll.Poll) int64 { return p.ID }, syncer.Options{Name: "chat", Logger: a.log, Interval: a.cfg.SyncInterval})
		defer polls.Close()

		bot := chat.NewBot(polls.Value, a.store, a.log)
		if history {
			msgs, err := bot.History()
			if err != nil {
				return err
			}
			for _, m := range msgs {
				a.printChat(m)
			}
		}

		if len(args) > 0 {
			if _, err := polls.Load(ctx, true, false); err != nil {
				return err
			}
			a.printChat(bot.Ask(strings.Join(args, " ")))
			return nil
		}
		return a.chatLoop(ctx, bot, polls)
	})
	return cmd
}

func (a *app) chatLoop(ctx context.Context, bot *chat.Bot, polls *syncer.List[poll.Poll, int64]) error {
	fmt.Fprintln(a.out, faint("Type a question or an action ("+strings.Join(actionNames(), ", ")+"). Empty line or \"exit\" quits."))
	for ctx.Err() == nil {
		line, err := a.prompt(bold("you"), "")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" || line == "exit" || line == "quit" {
			return nil
		}
		// unforced: repeated questions reuse the list fetched within the sync interval
		if _, err := polls.Load(ctx, false, true); err != nil {
			a.log.Warn("refresh polls for chat", "err", err)
		}
		a.printChat(bot.Ask(line))
	}
	return nil
}

func (a *app) printChat(m chat.Message) {
	who := bold("you")
	if m.From == chat.FromBot {
		who = green("bot")
	}
	fmt.Fprintf(a.out, "%s: %s\n", who, m.Text)
}

func actionNames() []string {
	names := make([]string, len(chat.Actions))
	for i, act := range chat.Actions {
		names[i] = string(act)
	}
	return names
}
