package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// cliEnv runs commands against one temp database and data dir.
type cliEnv struct {
	t      *testing.T
	dbPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TEMPO_DATA_DIR", filepath.Join(dir, "data"))
	return &cliEnv{t: t, dbPath: filepath.Join(dir, "tempo.db")}
}

// run executes the root command with --db set and returns stdout,
// stderr and the command error.
func (e *cliEnv) run(stdin string, args ...string) (string, string, error) {
	e.t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--db", e.dbPath}, args...))

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// mustRun runs a command that must succeed and returns stdout.
func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, errOut, err := e.run("", args...)
	require.NoError(e.t, err, "stderr: %s", errOut)
	return out
}

// runJSON runs a command with --format json and decodes the response.
func (e *cliEnv) runJSON(stdin string, args ...string) (CLIResponse, error) {
	e.t.Helper()
	out, _, err := e.run(stdin, append([]string{"--format", "json"}, args...)...)
	var resp CLIResponse
	require.NoError(e.t, json.Unmarshal([]byte(out), &resp), "stdout: %s", out)
	return resp, err
}
