package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"votify/internal/client"
	"votify/internal/domain/user"
	"votify/internal/forms"
	"votify/internal/views"
)

func (a *app) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage polls (admin only)",
	}
	poll := &cobra.Command{
		Use:   "poll",
		Short: "Create, edit, finish and delete polls",
	}
	poll.AddCommand(a.pollListCmd(), a.pollCreateCmd(), a.pollUpdateCmd(), a.pollFinishCmd(), a.pollDeleteCmd(), a.pollWatchCmd())
	cmd.AddCommand(poll)
	return cmd
}

func (a *app) pollListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every poll",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&status, "status", "", "active or finished")
	cmd.RunE = a.run(func(ctx context.Context, _ []string) error {
		if err := a.requireLogin(); err != nil {
			return err
		}
		polls, err := a.api().AdminPolls(ctx, status)
		if err != nil {
			return err
		}
		renderPolls(a.out, polls, time.Now())
		return nil
	})
	return cmd
}

func (a *app) pollWatchCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of every poll",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&status, "status", "", "active or finished")
	cmd.RunE = a.run(func(ctx context.Context, _ []string) error {
		return a.watch(ctx, func(src views.Source, opts views.Options) pollSource {
			return views.NewManageList(a.api(), src, status, opts)
		})
	})
	return cmd
}

func parseEndsAt(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		t := time.Now().Add(d)
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("ends must be a duration like 48h or an RFC 3339 time: %w", err)
	}
	return &t, nil
}

func (a *app) pollCreateCmd() *cobra.Command {
	var question, category, description, ends string
	var options []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a poll",
		Args:  cobra.NoArgs,
		Example: `  votify admin poll create --question "Best pizza?" --category food \
    --option Margherita --option Pepperoni --ends 72h`,
	}
	cmd.Flags().StringVar(&question, "question", "", "poll question")
	cmd.Flags().StringVar(&category, "category", "", "category")
	cmd.Flags().StringVar(&description, "description", "", "longer description")
	cmd.Flags().StringVar(&ends, "ends", "", "end time: duration from now (48h) or RFC 3339")
	cmd.Flags().StringArrayVar(&options, "option", nil, "an answer option; repeat for each")
	cmd.RunE = a.run(func(ctx context.Context, _ []string) error {
		if err := a.requireLogin(); err != nil {
			return err
		}
		endsAt, err := parseEndsAt(ends)
		if err != nil {
			return err
		}
		form := forms.PollForm{Question: question, Category: category, EndsAt: endsAt, Options: options}
		if err := form.Validate(time.Now()).Err(); err != nil {
			return err
		}
		in := client.PollInput{
			Question: strings.TrimSpace(question),
			Category: strings.TrimSpace(category),
			EndsAt:   endsAt,
			Options:  options,
		}
		if description != "" {
			in.Description = &description
		}
		id, err := a.api().CreatePoll(ctx, in)
		if err != nil {
			return err
		}
		a.notes.Info(fmt.Sprintf("Poll #%d created.", id))
		return nil
	})
	return cmd
}

func (a *app) pollUpdateCmd() *cobra.Command {
	var question, category, description, ends string
	cmd := &cobra.Command{
		Use:   "update <poll-id>",
		Short: "Edit a poll's text, category or end time",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&question, "question", "", "new question")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&ends, "ends", "", "new end time: duration from now or RFC 3339")
	cmd.RunE = a.run(func(ctx context.Context, args []string) error {
		id, err := parseID(args[0], "poll id")
		if err != nil {
			return err
		}
		if err := a.requireLogin(); err != nil {
			return err
		}
		var patch client.PollPatch
		flags := cmd.Flags()
		if flags.Changed("question") {
			patch.Question = &question
		}
		if flags.Changed("category") {
			patch.Category = &category
		}
		if flags.Changed("description") {
			patch.Description = &description
		}
		if flags.Changed("ends") {
			if patch.EndsAt, err = parseEndsAt(ends); err != nil {
				return err
			}
		}
		if patch == (client.PollPatch{}) {
			return fmt.Errorf("nothing to update; pass --question, --category, --description or --ends")
		}
		if err := a.api().UpdatePoll(ctx, id, patch); err != nil {
			return err
		}
		a.notes.Info(fmt.Sprintf("Poll #%d updated.", id))
		return nil
	})
	return cmd
}

func (a *app) pollFinishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finish <poll-id>",
		Short: "Close a poll now",
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
		if err := a.api().FinishPoll(ctx, id); err != nil {
			return err
		}
		a.notes.Info(fmt.Sprintf("Poll #%d finished.", id))
		return nil
	})
	return cmd
}

func (a *app) pollDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <poll-id>",
		Short: "Delete a poll and its votes",
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
		if err := a.api().DeletePoll(ctx, id); err != nil {
			return err
		}
		a.notes.Info(fmt.Sprintf("Poll #%d deleted.", id))
		return nil
	})
	return cmd
}

func (a *app) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users and manage roles (admin only)",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run(func(ctx context.Context, _ []string) error {
		if err := a.requireLogin(); err != nil {
			return err
		}
		users, err := a.api().Users(ctx)
		if err != nil {
			return err
		}
		tw := newTable(a.out)
		fmt.Fprintln(tw, bold("ID\tNAME\tEMAIL\tROLE\tACTIVE"))
		for _, u := range users {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n", u.ID, u.Name, u.Email, u.Role, u.IsActive)
		}
		return tw.Flush()
	})

	role := &cobra.Command{
		Use:   "role <user-id> <user|admin>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
	}
	role.RunE = a.run(func(ctx context.Context, args []string) error {
		id, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		if args[1] != user.RoleUser && args[1] != user.RoleAdmin {
			return fmt.Errorf("role must be %s or %s", user.RoleUser, user.RoleAdmin)
		}
		if err := a.requireLogin(); err != nil {
			return err
		}
		if err := a.api().SetRole(ctx, id, args[1]); err != nil {
			return err
		}
		a.notes.Info(fmt.Sprintf("User #%d is now %s.", id, args[1]))
		return nil
	})

	deactivate := &cobra.Command{
		Use:   "deactivate <user-id>",
		Short: "Block a user from logging in",
		Args:  cobra.ExactArgs(1),
	}
	deactivate.RunE = a.run(func(ctx context.Context, args []string) error {
		id, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		if err := a.requireLogin(); err != nil {
			return err
		}
		if err := a.api().Deactivate(ctx, id); err != nil {
			return err
		}
		a.notes.Info(fmt.Sprintf("User #%d deactivated.", id))
		return nil
	})

	cmd.AddCommand(role, deactivate)
	return cmd
}
