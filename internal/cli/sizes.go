package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/jersey/internal/form"
)

// NewSizesCommand creates the sizes command.
func NewSizesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "sizes",
		Short:         "List the available jersey and shorts sizes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			if f.IsJSON() {
				return f.Success(form.Sizes)
			}
			for _, s := range form.Sizes {
				if err := f.Success(s); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
