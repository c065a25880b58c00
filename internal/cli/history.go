package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/jersey/internal/form"
	"github.com/roach88/jersey/internal/submit"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List submissions kept in the local log",
		Long: `List every submission recorded in the local log, oldest first.

The local log is written before each remote submission, so it also holds
attempts the registration service rejected or never received.

Examples:
  jersey history --db ./jersey.db
  jersey history --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, cmd)
		},
	}
	return cmd
}

func runHistory(opts *RootOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())
	path, err := databasePath(opts)
	if err != nil {
		return err
	}

	st, err := openStore(path, logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	entries, err := submit.History(cmd.Context(), st)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read local log", err)
	}

	f := newFormatter(opts, cmd)
	if f.IsJSON() {
		return f.Success(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(f.Writer, "No submissions recorded.")
		return nil
	}
	writeHistory(f, entries)
	return nil
}

func writeHistory(f *OutputFormatter, entries []form.LogEntry) {
	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tNAME\tPHONE\tJERSEY\tNUMBER\tSIZES\tPAID")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s/%s\t%t\n",
			e.Timestamp, e.Name, e.Phone, orDash(e.JerseyName), orDash(e.JerseyNumber),
			e.UpperSize, e.ShortsSize, e.Paid)
	}
	tw.Flush()
}
