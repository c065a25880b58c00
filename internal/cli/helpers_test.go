package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jersey/internal/testutil"
)

// cliEnv is a stub service plus a config file pointing at it.
type cliEnv struct {
	backend    *testutil.Backend
	dir        string
	db         string
	configPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	b := testutil.NewBackend()
	t.Cleanup(b.Close)

	dir := t.TempDir()
	env := &cliEnv{
		backend:    b,
		dir:        dir,
		db:         filepath.Join(dir, "jersey.db"),
		configPath: filepath.Join(dir, "jersey.yaml"),
	}
	cfg := fmt.Sprintf(`lookup_url: %s
payment_id: club@upi
db: %s
lookup_timeout: 300ms
toast_duration: 50ms
`, b.URL(), env.db)
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0644))
	return env
}

// opts returns root options isolated from the host environment.
func (e *cliEnv) opts(format string) *RootOptions {
	return &RootOptions{
		Format:     format,
		ConfigPath: e.configPath,
		Getenv:     func(string) string { return "" },
	}
}

type recordingCopier struct{ text string }

func (c *recordingCopier) WriteAll(text string) error {
	c.text = text
	return nil
}

type failingCopier struct{}

func (failingCopier) WriteAll(string) error { return errors.New("no clipboard utility") }

// execute runs cmd with args and stdin, returning stdout and stderr.
func execute(cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
