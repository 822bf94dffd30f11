package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"votify/internal/forms"
	"votify/internal/notify"
	"votify/internal/passwordreset"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	cmd.RunE = a.run(func(ctx context.Context, _ []string) error {
		var err error
		if email, err = a.prompt("Email", email); err != nil {
			return err
		}
		if password, err = a.prompt("Password", password); err != nil {
			return err
		}
		u, err := a.sess.Login(ctx, email, password)
		if err != nil {
			return err
		}
		a.notes.Info(fmt.Sprintf("Welcome back, %s.", u.Name))
		return nil
	})
	return cmd
}

func (a *app) signupCmd() *cobra.Command {
	var name, email, password, confirm string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "repeat the password")
	cmd.RunE = a.run(func(ctx context.Context, _ []string) error {
		var err error
		for _, f := range []struct {
			label string
			dst   *string
		}{{"Name", &name}, {"Email", &email}, {"Password", &password}, {"Confirm password", &confirm}} {
			if *f.dst, err = a.prompt(f.label, *f.dst); err != nil {
				return err
			}
		}
		u, err := a.sess.Signup(ctx, name, email, password, confirm)
		if err != nil {
			return err
		}
		a.notes.Info(fmt.Sprintf("Account created. Welcome, %s.", u.Name))
		return nil
	})
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the session and chat history",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run(func(context.Context, []string) error {
		if err := a.sess.Logout(); err != nil {
			return err
		}
		a.notes.Info("Logged out.")
		return nil
	})
	return cmd
}

func (a *app) resetCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset a forgotten password with an emailed code",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.RunE = a.run(func(ctx context.Context, _ []string) error {
		flow := passwordreset.New(a.api())
		for flow.Step() != passwordreset.Done {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := a.resetStep(ctx, flow, &email); err != nil {
				return err
			}
		}
		a.notes.Info("Password changed. You can log in now.")
		return nil
	})
	return cmd
}

// resetStep runs the current step once. Input mistakes are shown and the step
// is repeated; backend failures end the command.
func (a *app) resetStep(ctx context.Context, flow *passwordreset.Flow, email *string) error {
	var err error
	switch flow.Step() {
	case passwordreset.AwaitingEmail:
		var addr string
		if addr, err = a.prompt("Email", *email); err != nil {
			return err
		}
		*email = ""
		err = flow.RequestCode(ctx, addr)
		if err == nil {
			fmt.Fprintf(a.out, "A 6-digit code was sent to %s. Enter \"resend\" for a new one.\n", flow.Email())
		}
	case passwordreset.AwaitingCode:
		var code string
		if code, err = a.prompt("Code", ""); err != nil {
			return err
		}
		if code == "resend" {
			if err = flow.ResendCode(ctx); err == nil {
				fmt.Fprintln(a.out, "A new code is on its way.")
			}
			break
		}
		err = flow.VerifyCode(ctx, code)
	case passwordreset.AwaitingNewPassword:
		var pw, confirm string
		if pw, err = a.prompt("New password", ""); err != nil {
			return err
		}
		if confirm, err = a.prompt("Confirm password", ""); err != nil {
			return err
		}
		err = flow.SetPassword(ctx, pw, confirm)
	}

	if retryable(err) {
		fmt.Fprintln(a.out, yellow(notify.Describe(err)))
		return nil
	}
	return err
}

func (a *app) profileCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your profile",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&email, "email", "", "new email")
	cmd.RunE = a.run(func(ctx context.Context, _ []string) error {
		if err := a.requireLogin(); err != nil {
			return err
		}
		me, err := a.api().Me(ctx)
		if err != nil {
			return err
		}
		if name != "" || email != "" {
			if name == "" {
				name = me.Name
			}
			if email == "" {
				email = me.Email
			}
			if err := (forms.ProfileForm{Name: name, Email: email}).Validate().Err(); err != nil {
				return err
			}
			if me, err = a.api().UpdateProfile(ctx, name, email); err != nil {
				return err
			}
			a.notes.Info("Profile updated.")
		}
		fmt.Fprintf(a.out, "%s %s\n%s %s\n%s %s\n", bold("Name: "), me.Name, bold("Email:"), me.Email, bold("Role: "), me.Role)
		return nil
	})
	return cmd
}
