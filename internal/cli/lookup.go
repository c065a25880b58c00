package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/jersey/internal/identity"
	"github.com/roach88/jersey/internal/lookup"
	"github.com/roach88/jersey/internal/session"
)

// LookupData is the JSON payload of a lookup.
type LookupData struct {
	Query      string               `json:"query"`
	Kind       string               `json:"kind"`
	Outcome    string               `json:"outcome"`
	Record     *identity.Record     `json:"record,omitempty"`
	Candidates []identity.Candidate `json:"candidates,omitempty"`
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <phone-or-name>",
		Short: "Look up a registrant without registering",
		Long: `Resolve a phone number or name against the registration service
and print the match, the candidate list, or why nothing was found.

Digits are searched as a phone number, letters and spaces as a name.
Anything else is rejected without contacting the service.

Exit codes:
  0 - Exact match or candidates found
  1 - Invalid query, no match, or lookup failed
  2 - Command error (missing config, etc.)

Examples:
  jersey lookup 9876543210
  jersey lookup "Lebron" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runLookup(opts *RootOptions, raw string, cmd *cobra.Command) error {
	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	f := newFormatter(opts, cmd)
	resolver := lookup.New(cfg.LookupURL,
		lookup.WithTimeout(cfg.LookupTimeout),
		lookup.WithLogger(logger))

	if hint := identity.Hint(raw); hint != "" {
		logger.Debug(hint, "query", raw)
	}
	res := resolver.Resolve(cmd.Context(), raw)

	switch res.Kind {
	case lookup.Exact, lookup.Candidates:
		data := LookupData{
			Query:      res.Query.Text,
			Kind:       res.Query.Kind.String(),
			Outcome:    res.Kind.String(),
			Candidates: res.Candidates,
		}
		if res.Kind == lookup.Exact {
			data.Record = &res.Record
		}
		if f.IsJSON() {
			return f.Success(data)
		}
		writeLookupText(f.Writer, res)
		return nil
	default:
		code := ErrCodeLookup
		switch res.Kind {
		case lookup.Invalid:
			code = ErrCodeInvalid
		case lookup.NoMatch:
			code = ErrCodeNoMatch
		}
		if err := f.Error(code, res.Message, causeDetail(res.Err)); err != nil {
			return err
		}
		return NewExitError(ExitFailure, res.Message)
	}
}

func writeLookupText(w io.Writer, res lookup.Result) {
	if res.Kind == lookup.Exact {
		writeRecord(w, res.Record)
		return
	}
	fmt.Fprintf(w, "%d matches for %q:\n", len(res.Candidates), res.Query.Text)
	for i, c := range res.Candidates {
		fmt.Fprintf(w, "  %d) %s\n", i+1, c.Label())
	}
}

func writeRecord(w io.Writer, rec identity.Record) {
	fmt.Fprintf(w, "Name:          %s\n", rec.Name)
	fmt.Fprintf(w, "Phone:         %s\n", rec.Phone)
	fmt.Fprintf(w, "Jersey name:   %s\n", orDash(rec.JerseyName))
	fmt.Fprintf(w, "Jersey number: %s\n", orDash(rec.JerseyNumber))
}

func orDash(s string) string {
	if s == "" {
		return session.Placeholder
	}
	return s
}

func causeDetail(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}
