package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/jersey/internal/clipboard"
	"github.com/roach88/jersey/internal/notify"
)

// CopyIDOptions holds flags for the copy-id command.
type CopyIDOptions struct {
	*RootOptions

	// Copier overrides the system clipboard (for testing).
	Copier clipboard.Copier
}

// CopyIDData is the JSON payload of copy-id.
type CopyIDData struct {
	PaymentID string `json:"payment_id"`
	Copied    bool   `json:"copied"`
	Message   string `json:"message"`
}

// NewCopyIDCommand creates the copy-id command.
func NewCopyIDCommand(rootOpts *RootOptions) *cobra.Command {
	return newCopyIDCommand(&CopyIDOptions{RootOptions: rootOpts})
}

func newCopyIDCommand(opts *CopyIDOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy-id",
		Short: "Copy the payment UPI id to the clipboard",
		Long: `Copy the configured UPI id to the system clipboard.

When no clipboard is available the id is printed so it can be copied by
hand; this is not treated as an error.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopyID(opts, cmd)
		},
	}
	return cmd
}

func runCopyID(opts *CopyIDOptions, cmd *cobra.Command) error {
	newLogger(opts.Verbose, cmd.ErrOrStderr())
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	f := newFormatter(opts.RootOptions, cmd)
	if cfg.PaymentID == "" {
		msg := "payment_id is not configured"
		if err := f.Error(ErrCodeNoPayID, msg, nil); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, msg)
	}

	copier := opts.Copier
	if copier == nil {
		copier = clipboard.System{}
	}
	rec := &notify.Recorder{}
	copied := clipboard.CopyIdentifier(copier, cfg.PaymentID, rec)

	if f.IsJSON() {
		return f.Success(CopyIDData{PaymentID: cfg.PaymentID, Copied: copied, Message: rec.Last()})
	}
	return f.Success(rec.Last())
}
