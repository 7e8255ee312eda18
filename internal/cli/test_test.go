package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: passing
flow:
  - op: create_bucket
    bucket: b
    type: t
  - op: insert
    bucket: b
    events:
      - {timestamp: "2024-01-01T10:00:00Z", duration: 5, data: {app: editor}}
assertions:
  - type: event_count
    bucket: b
    count: 1
`

const failingScenario = `
name: failing
flow:
  - op: create_bucket
    bucket: b
    type: t
assertions:
  - type: event_count
    bucket: b
    count: 3
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTestCommand_MissingPath(t *testing.T) {
	env := newCLIEnv(t)
	_, errOut, err := env.run("", "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "scenario path not found")
}

func TestTestCommand_EmptyDir(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun("test", t.TempDir())
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTestCommand_Passing(t *testing.T) {
	env := newCLIEnv(t)
	dir := t.TempDir()
	writeScenario(t, dir, "passing", passingScenario)

	out := env.mustRun("test", dir)
	assert.Contains(t, out, "✓ passing")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Failing(t *testing.T) {
	env := newCLIEnv(t)
	dir := t.TempDir()
	writeScenario(t, dir, "passing", passingScenario)
	writeScenario(t, dir, "failing", failingScenario)

	out, _, err := env.run("", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "event_count")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommand_Filter(t *testing.T) {
	env := newCLIEnv(t)
	dir := t.TempDir()
	writeScenario(t, dir, "passing", passingScenario)
	writeScenario(t, dir, "failing", failingScenario)

	out := env.mustRun("test", dir, "--filter", "pass*")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "failing")
}

func TestTestCommand_InvalidScenario(t *testing.T) {
	env := newCLIEnv(t)
	dir := t.TempDir()
	writeScenario(t, dir, "broken", "name: broken\nflow: []\n")

	out, _, err := env.run("", "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommand_GoldenUpdateAndCompare(t *testing.T) {
	env := newCLIEnv(t)
	dir := t.TempDir()
	path := writeScenario(t, dir, "passing", passingScenario)
	goldenPath := filepath.Join(dir, "golden", "passing.golden")

	env.mustRun("test", path, "--update")
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"passing"`)
	assert.Equal(t, byte('\n'), golden[len(golden)-1])

	env.mustRun("test", path)

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0o644))
	out, _, err := env.run("", "test", path)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_JSON(t *testing.T) {
	env := newCLIEnv(t)
	dir := t.TempDir()
	writeScenario(t, dir, "failing", failingScenario)

	resp, err := env.runJSON("", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeTestFailed, resp.Error.Code)

	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(0), data["passed"])
	assert.Equal(t, float64(1), data["failed"])
	scenarios := data["scenarios"].([]any)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "failing", scenarios[0].(map[string]any)["name"])
}
