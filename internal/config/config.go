// Package config loads client settings from a YAML file and the
// environment, and validates them against an embedded CUE schema.
//
// Precedence, lowest first: defaults, file, environment. Command-line
// flags are applied by the caller after Load.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schema string

// Environment variables that override file settings.
const (
	EnvLookupURL     = "JERSEY_LOOKUP_URL"
	EnvSubmitURL     = "JERSEY_SUBMIT_URL"
	EnvPaymentID     = "JERSEY_PAYMENT_ID"
	EnvDB            = "JERSEY_DB"
	EnvLookupTimeout = "JERSEY_LOOKUP_TIMEOUT"
)

// Defaults.
const (
	DefaultDB            = "jersey.db"
	DefaultLookupTimeout = 4500 * time.Millisecond
	DefaultToastDuration = 2000 * time.Millisecond
)

// ErrNoLookupURL is returned when no lookup endpoint is configured.
var ErrNoLookupURL = errors.New("config: lookup_url is required (set it in the config file or " + EnvLookupURL + ")")

// File is the on-disk shape of the config file. Durations are strings in
// Go duration syntax ("4.5s", "2000ms").
type File struct {
	LookupURL     string `yaml:"lookup_url" json:"lookup_url,omitempty"`
	SubmitURL     string `yaml:"submit_url" json:"submit_url,omitempty"`
	PaymentID     string `yaml:"payment_id" json:"payment_id,omitempty"`
	DB            string `yaml:"db" json:"db,omitempty"`
	LookupTimeout string `yaml:"lookup_timeout" json:"lookup_timeout,omitempty"`
	ToastDuration string `yaml:"toast_duration" json:"toast_duration,omitempty"`
	MetricsAddr   string `yaml:"metrics_addr" json:"metrics_addr,omitempty"`
}

// Config is the validated, resolved configuration.
type Config struct {
	LookupURL     string
	SubmitURL     string
	PaymentID     string
	DB            string
	LookupTimeout time.Duration
	ToastDuration time.Duration
	MetricsAddr   string
}

// Load reads path (optional: "" means defaults only), applies
// environment overrides read through getenv (nil means os.Getenv) and
// validates the result.
func Load(path string, getenv func(string) string) (*Config, error) {
	f, err := Read(path, getenv)
	if err != nil {
		return nil, err
	}
	return f.Resolve()
}

// Read merges defaults, the file at path and the environment without
// validating. Commands that only need the database path use it so they
// work before an endpoint is configured.
func Read(path string, getenv func(string) string) (File, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	f := File{DB: DefaultDB}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return File{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(data, &f); err != nil {
			return File{}, err
		}
	}
	applyEnv(&f, getenv)
	return f, nil
}

// decode parses YAML strictly, rejecting unknown keys.
func decode(data []byte, f *File) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(f); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

func applyEnv(f *File, getenv func(string) string) {
	overrides := []struct {
		key   string
		field *string
	}{
		{EnvLookupURL, &f.LookupURL},
		{EnvSubmitURL, &f.SubmitURL},
		{EnvPaymentID, &f.PaymentID},
		{EnvDB, &f.DB},
		{EnvLookupTimeout, &f.LookupTimeout},
	}
	for _, o := range overrides {
		if v := getenv(o.key); v != "" {
			*o.field = v
		}
	}
}

// Validate checks f against the embedded schema.
func (f File) Validate() error {
	if f.LookupURL == "" {
		return ErrNoLookupURL
	}

	ctx := cuecontext.New()
	def := ctx.CompileString(schema).LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	v := def.Unify(ctx.Encode(f))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Details: cueerrors.Details(err, nil), err: err}
	}
	return nil
}

// Resolve validates f and converts it to a Config, filling defaults.
func (f File) Resolve() (*Config, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	cfg := &Config{
		LookupURL:     f.LookupURL,
		SubmitURL:     f.SubmitURL,
		PaymentID:     f.PaymentID,
		DB:            f.DB,
		LookupTimeout: DefaultLookupTimeout,
		ToastDuration: DefaultToastDuration,
		MetricsAddr:   f.MetricsAddr,
	}
	if cfg.SubmitURL == "" {
		cfg.SubmitURL = cfg.LookupURL
	}

	var err error
	if f.LookupTimeout != "" {
		if cfg.LookupTimeout, err = parsePositive("lookup_timeout", f.LookupTimeout); err != nil {
			return nil, err
		}
	}
	if f.ToastDuration != "" {
		if cfg.ToastDuration, err = parsePositive("toast_duration", f.ToastDuration); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func parsePositive(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", field, s)
	}
	return d, nil
}

// ValidationError reports a schema violation.
type ValidationError struct {
	Details string
	err     error
}

func (e *ValidationError) Error() string {
	return "invalid config: " + e.Details
}

func (e *ValidationError) Unwrap() error {
	return e.err
}
