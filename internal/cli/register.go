package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/jersey/internal/clipboard"
	"github.com/roach88/jersey/internal/form"
	"github.com/roach88/jersey/internal/identity"
	"github.com/roach88/jersey/internal/lookup"
	"github.com/roach88/jersey/internal/notify"
	"github.com/roach88/jersey/internal/session"
	"github.com/roach88/jersey/internal/submit"
)

var (
	errIncomplete = errors.New("input ended before submission")
	errLocalOnly  = errors.New("saved locally only")
)

// RegisterOptions holds flags for the register command.
type RegisterOptions struct {
	*RootOptions
	MetricsAddr string

	// Copier overrides the system clipboard (for testing).
	Copier clipboard.Copier

	// IDs overrides submission ID generation (for testing).
	// If nil, defaults to UUIDv7.
	IDs form.IDGenerator
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	return newRegisterCommand(&RegisterOptions{RootOptions: rootOpts})
}

func newRegisterCommand(opts *RegisterOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register for a jersey interactively",
		Long: `Walk through a registration: find yourself by phone or name,
pick a match if several people share the name, choose jersey and shorts
sizes, pay to the UPI id and submit.

The submission is written to the local log first and then sent to the
registration service. If the service fails you can retry; the local copy
is kept either way.

Exit codes:
  0 - Submitted
  1 - Saved locally only, or input ended early
  2 - Command error (missing config, database unavailable, etc.)

Examples:
  jersey register --config jersey.yaml
  jersey register --db ./jersey.db --metrics-addr localhost:9102`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while registering")

	return cmd
}

func runRegister(opts *RegisterOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}

	st, err := openStore(cfg.DB, logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	f := newFormatter(opts.RootOptions, cmd)
	out := f.Interactive()

	toast := notify.NewChannel(func(msg string) {
		if msg != "" {
			fmt.Fprintf(out, "» %s\n", msg)
		}
	}, notify.WithDuration(cfg.ToastDuration))
	defer toast.Close()

	svc := newServices(cfg, st, toast, logger)
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, svc.registry, logger)
		defer shutdownMetrics(srv, logger)
	}

	copier := opts.Copier
	if copier == nil {
		copier = clipboard.System{}
	}
	sess := session.New(session.Config{
		Resolver:  svc.resolver,
		Sink:      svc.sink,
		Notifier:  toast,
		Copier:    copier,
		PaymentID: cfg.PaymentID,
		IDs:       opts.IDs,
		Logger:    logger,
	})

	r := &registration{
		ctx:  cmd.Context(),
		sess: sess,
		in:   bufio.NewScanner(cmd.InOrStdin()),
		out:  out,
	}
	runErr := r.run()

	if f.IsJSON() {
		summary := sess.Summary()
		if runErr == nil {
			if err := f.Success(summary); err != nil {
				return err
			}
		} else if err := f.Error(registerErrorCode(runErr), runErr.Error(), summary); err != nil {
			return err
		}
	}
	return runErr
}

func registerErrorCode(err error) string {
	switch {
	case errors.Is(err, errIncomplete):
		return ErrCodeIncomplete
	case errors.Is(err, errLocalOnly):
		return ErrCodeLocalOnly
	default:
		return ErrCodeGeneric
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func shutdownMetrics(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("error stopping metrics server", "error", err)
	}
}

// registration drives a session from line-oriented input.
type registration struct {
	ctx  context.Context
	sess *session.Session
	in   *bufio.Scanner
	out  io.Writer
}

func (r *registration) run() error {
	if err := r.identify(); err != nil {
		return err
	}
	if err := r.chooseSize("Jersey size", r.sess.SetUpperSize); err != nil {
		return err
	}
	if err := r.chooseSize("Shorts size", r.sess.SetShortsSize); err != nil {
		return err
	}
	if err := r.pay(); err != nil {
		return err
	}
	return r.submit()
}

// ask prompts and reads one trimmed line. It reports false at end of input.
func (r *registration) ask(prompt string) (string, bool) {
	fmt.Fprintf(r.out, "%s: ", prompt)
	if !r.in.Scan() {
		fmt.Fprintln(r.out)
		return "", false
	}
	return strings.TrimSpace(r.in.Text()), true
}

func (r *registration) say(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

func incomplete() error {
	return WrapExitError(ExitFailure, "registration incomplete", errIncomplete)
}

func yes(answer string, def bool) bool {
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	return def
}

func (r *registration) identify() error {
	for {
		raw, ok := r.ask("Phone number or name")
		if !ok {
			return incomplete()
		}
		if hint := identity.Hint(raw); hint != "" {
			r.say("(%s)", hint)
		}

		res, err := r.sess.Lookup(r.ctx, raw)
		if err != nil {
			return WrapExitError(ExitFailure, "lookup rejected", err)
		}

		switch res.Kind {
		case lookup.Exact:
			r.showRecord()
			return nil
		case lookup.Candidates:
			chosen, err := r.choose(res.Candidates)
			if err != nil {
				return err
			}
			if chosen {
				r.showRecord()
				return nil
			}
		default:
			r.say("%s", r.sess.ErrorText())
		}
	}
}

// choose lets the user pick a candidate. It reports false when the user
// went back to searching.
func (r *registration) choose(candidates []identity.Candidate) (bool, error) {
	r.say("Several people match:")
	for i, c := range candidates {
		r.say("  %d) %s", i+1, c.Label())
	}

	for {
		answer, ok := r.ask(fmt.Sprintf("Choose 1-%d, or b to go back", len(candidates)))
		if !ok {
			return false, incomplete()
		}
		if strings.EqualFold(answer, "b") {
			if err := r.sess.Back(); err != nil {
				return false, WrapExitError(ExitFailure, "back rejected", err)
			}
			return false, nil
		}

		if n, convErr := strconv.Atoi(answer); convErr == nil {
			_, err := r.sess.Select(n - 1)
			if err == nil {
				return true, nil
			}
			if !errors.Is(err, session.ErrNoSuchCandidate) {
				return false, WrapExitError(ExitFailure, "selection rejected", err)
			}
		}
		r.say("Enter a number between 1 and %d.", len(candidates))
	}
}

func (r *registration) showRecord() {
	sum := r.sess.Summary()
	r.say("%s", sum.Title)
	r.say("  Jersey name:   %s", sum.JerseyName)
	r.say("  Jersey number: %s", sum.JerseyNumber)
}

func (r *registration) chooseSize(label string, set func(form.Size) error) error {
	prompt := fmt.Sprintf("%s %v", label, form.Sizes)
	for {
		answer, ok := r.ask(prompt)
		if !ok {
			return incomplete()
		}
		size, err := form.ParseSize(answer)
		if err != nil || !size.Selected() {
			r.say("Choose one of %v.", form.Sizes)
			continue
		}
		if err := set(size); err != nil {
			return WrapExitError(ExitFailure, "size rejected", err)
		}
		return nil
	}
}

func (r *registration) pay() error {
	if id := r.sess.PaymentID(); id != "" {
		r.say("Pay the registration fee to UPI id: %s", id)
		answer, ok := r.ask("Copy UPI id to clipboard? [y/N]")
		if !ok {
			return incomplete()
		}
		if yes(answer, false) {
			r.sess.CopyPaymentID()
		}
	}

	for {
		answer, ok := r.ask("Have you paid? [y/N]")
		if !ok {
			return incomplete()
		}
		if yes(answer, false) {
			if err := r.sess.SetPaid(true); err != nil {
				return WrapExitError(ExitFailure, "payment confirmation rejected", err)
			}
			return nil
		}
		r.say("Submission requires payment confirmation.")
	}
}

func (r *registration) submit() error {
	for {
		out, err := r.sess.Submit(r.ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "submission rejected", err)
		}
		if out.Kind == submit.Persisted {
			r.say("%s", session.SubmittedLabel)
			return nil
		}

		answer, ok := r.ask("Retry submission? [Y/n]")
		if !ok || !yes(answer, true) {
			return WrapExitError(ExitFailure, out.Message(), fmt.Errorf("%w: %s", errLocalOnly, out.Reason))
		}
	}
}
