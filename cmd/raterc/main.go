package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"raterc/internal/bootstrap"
	"raterc/internal/modules/session/domain"
	sessiondto "raterc/internal/modules/session/dto"
	"raterc/internal/platform/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts config.Options

	root := &cobra.Command{
		Use:           "raterc",
		Short:         "Terminal client for timed rating surveys",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "directory for the run journal and log")
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default <data-dir>/raterc.yaml)")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level: trace|debug|info|warn|error|disabled")
	root.PersistentFlags().StringVar(&opts.ServerURL, "server", "", "rater API base URL")

	root.AddCommand(newRunCmd(&opts))
	root.AddCommand(newStatusCmd(&opts))
	root.AddCommand(newEndCmd(&opts))
	root.AddCommand(newHistoryCmd(&opts))
	return root
}

func loadApp(opts config.Options) (*bootstrap.App, error) {
	cfg, err := config.New(opts)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg)
}

func newRunCmd(opts *config.Options) *cobra.Command {
	var input sessiondto.StartInput

	cmd := &cobra.Command{
		Use:   "run [entry-url]",
		Short: "Start a rating session in the terminal UI",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 1 {
				input.EntryURL = args[0]
			}
			runOpts := *opts
			if runOpts.ServerURL == "" && input.EntryURL != "" {
				// the entry link's origin serves the API unless configured otherwise
				if params, err := domain.ParseLaunchURL(input.EntryURL); err == nil {
					runOpts.DefaultServerURL = params.Origin
				}
			}
			app, err := loadApp(runOpts)
			if err != nil {
				return err
			}
			defer app.Close()
			return bootstrap.RunTUI(app, input)
		},
	}
	cmd.Flags().StringVar(&input.ExperimentID, "experiment-id", "", "experiment id (overrides the entry URL)")
	cmd.Flags().StringVar(&input.ParticipantID, "participant-id", "", "participant id (overrides PROLIFIC_PID)")
	cmd.Flags().StringVar(&input.StudyID, "study-id", "", "study id (overrides STUDY_ID)")
	cmd.Flags().StringVar(&input.SessionID, "session-id", "", "session id (overrides SESSION_ID)")
	return cmd
}

func newStatusCmd(opts *config.Options) *cobra.Command {
	var raterID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the server-side status of a rater session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*opts)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.SessionCLI.Status(context.Background(), raterID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "rater=%s active=%t remaining=%ds completed=%d\n", out.RaterID, out.Active, out.RemainingSeconds, out.QuestionsCompleted)
			return nil
		},
	}
	cmd.Flags().StringVar(&raterID, "rater-id", "", "rater id returned when the session started")
	return cmd
}

func newEndCmd(opts *config.Options) *cobra.Command {
	var raterID string

	cmd := &cobra.Command{
		Use:   "end",
		Short: "End a rater session early",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*opts)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.SessionCLI.End(context.Background(), raterID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session ended: rater=%s %s\n", out.RaterID, out.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&raterID, "rater-id", "", "rater id returned when the session started")
	return cmd
}

func newHistoryCmd(opts *config.Options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the local journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*opts)
			if err != nil {
				return err
			}
			defer app.Close()
			runs, err := app.SessionCLI.History(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "STARTED\tEXPERIMENT\tRATER\tOUTCOME\tRATED\tMESSAGE")
			for _, run := range runs {
				started := "-"
				if !run.StartedAt.IsZero() {
					started = run.StartedAt.Local().Format("2006-01-02 15:04")
				}
				name := run.ExperimentName
				if name == "" {
					name = run.ExperimentID
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", started, name, run.RaterID, run.Outcome, run.Progress, run.Message)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	return cmd
}
