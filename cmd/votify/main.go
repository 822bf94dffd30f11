package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"votify/internal/client"
	"votify/internal/config"
	"votify/internal/notify"
	"votify/internal/push"
	"votify/internal/session"
	"votify/internal/views"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

// app is the state shared by all commands of one invocation.
type app struct {
	cfgPath  string
	verbose  bool
	reported bool

	cfg   *config.Client
	log   *slog.Logger
	store *session.Store
	sess  *session.Session
	notes *notify.Notifier

	in  *bufio.Reader
	out io.Writer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{}
	root := a.rootCmd()
	err := root.ExecuteContext(ctx)
	a.flush()
	if a.store != nil {
		_ = a.store.Close()
	}
	if err != nil {
		if !a.reported {
			fmt.Fprintln(os.Stderr, red("error: "+notify.Describe(err)))
		}
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "votify",
		Short:         "Terminal client for the Votify polling service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default $XDG_CONFIG_HOME/votify/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		a.loginCmd(),
		a.signupCmd(),
		a.logoutCmd(),
		a.resetCmd(),
		a.profileCmd(),
		a.pollsCmd(),
		a.adminCmd(),
		a.dashboardCmd(),
		a.usersCmd(),
		a.chatCmd(),
	)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return err })
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.log)
	a.notes = notify.New(0, a.log)
	a.in = bufio.NewReader(cmd.InOrStdin())
	a.out = cmd.OutOrStdout()

	cfg, err := config.LoadClient(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	store, err := session.OpenStore(cfg.SessionPath)
	if err != nil {
		return err
	}
	a.store = store

	api := client.New(cfg.Server, client.WithTimeout(cfg.Timeout))
	a.sess, err = session.New(store, api, push.Options{Logger: a.log}, a.log)
	if err != nil {
		return err
	}
	a.log.Debug("client ready", "server", cfg.Server, "session", cfg.SessionPath)
	return nil
}

// run wraps a command body so failures become error notices.
func (a *app) run(fn func(ctx context.Context, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd.Context(), args)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.notes.Fail(err)
			a.reported = true
		}
		return err
	}
}

// flush prints queued notices.
func (a *app) flush() {
	if a.notes == nil {
		return
	}
	for _, n := range a.notes.Drain() {
		a.printNotice(n)
	}
}

func (a *app) printNotice(n notify.Notice) {
	switch n.Level {
	case notify.Error:
		fmt.Fprintln(os.Stderr, red("error: "+n.Message))
		if n.Err != nil {
			a.log.Debug("command failed", "err", n.Err)
		}
	case notify.Warn:
		fmt.Fprintln(os.Stderr, yellow(n.Message))
	default:
		fmt.Fprintln(a.out, green(n.Message))
	}
}

func (a *app) api() *client.Client { return a.sess.Client() }

func (a *app) viewOpts() views.Options {
	return views.Options{Interval: a.cfg.SyncInterval, Logger: a.log}
}

func (a *app) requireLogin() error {
	if !a.sess.LoggedIn() {
		return session.ErrNotLoggedIn
	}
	return nil
}

// prompt reads one line, showing label first. Flags win over prompts.
func (a *app) prompt(label, preset string) (string, error) {
	if preset != "" {
		return preset, nil
	}
	fmt.Fprint(a.out, label+": ")
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
