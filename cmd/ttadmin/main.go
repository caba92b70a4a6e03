// Command ttadmin administers time tracker projects from a terminal using the
// same view-model as the web console.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"timetracker/internal/admin"
	"timetracker/internal/config"
	"timetracker/internal/logging"
	"timetracker/internal/notify"
	"timetracker/internal/remote"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	apiURL  string
	token   string
	timeout time.Duration
	verbose bool
}

// app carries what a subcommand needs once flags are parsed.
type app struct {
	opts   options
	client *remote.Client
	logger *slog.Logger
	out    io.Writer
	sink   notify.Notifier
}

func main() {
	cfg, err := config.LoadConsole()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Console) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "ttadmin",
		Short:        "Administer time tracker projects, tasks and assignments",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.opts.apiURL, "api", cfg.APIURL, "Remote API base URL")
	root.PersistentFlags().StringVar(&a.opts.token, "token", cfg.APIToken, "Bearer token for the remote API")
	root.PersistentFlags().DurationVar(&a.opts.timeout, "timeout", cfg.APITimeout, "Per-request timeout")
	root.PersistentFlags().BoolVarP(&a.opts.verbose, "verbose", "v", false, "Enable debug logging on stderr")

	root.AddCommand(
		a.projectsCmd(),
		a.projectCmd(),
		a.createProjectCmd(),
		a.addTaskCmd(),
		a.assignCmd(),
		a.employeeCmd(),
		a.dashboardCmd(),
		a.registerCmd(),
		a.verifyCmd(),
	)
	for _, sub := range root.Commands() {
		run := sub.RunE
		sub.RunE = func(cmd *cobra.Command, args []string) error {
			return a.explain(run(cmd, args))
		}
	}
	return root
}

// explain points at the token when the API refuses the credentials.
func (a *app) explain(err error) error {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) && apiErr.Unauthorized() {
		return fmt.Errorf("%s rejected the credentials, check --token or TT_API_TOKEN: %w", a.client.BaseURL(), err)
	}
	return err
}

func (a *app) init(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	a.sink = &notify.Writer{Out: cmd.ErrOrStderr()}

	a.logger = logging.Discard()
	if a.opts.verbose {
		a.logger, _ = logging.New(config.Log{Level: "debug"}, cmd.ErrOrStderr())
	}

	client, err := remote.New(remote.Options{
		BaseURL: a.opts.apiURL,
		Token:   a.opts.token,
		Timeout: a.opts.timeout,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}
	a.client = client
	return nil
}

// mountedView opens a view and performs its initial load.
func (a *app) mountedView(ctx context.Context) (*admin.ProjectsView, error) {
	view := admin.New(a.client, a.sink, a.logger)
	if err := view.Mount(ctx); err != nil {
		view.Close()
		return nil, err
	}
	return view, nil
}
