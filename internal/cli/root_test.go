package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTestConfig writes a config pointing at a temp SQLite file and
// returns the config path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bomcat.yaml")
	cfg := "database:\n  kind: sqlite\n  dsn: " + filepath.Join(dir, "catalog.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

// runCommand executes the CLI with args and returns stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootRejectsBadFormat(t *testing.T) {
	_, err := runCommand(t, "--format", "xml", "initdb")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid format")
}

func TestInitDBAndSearch(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "-c", cfgPath, "initdb", "--seed")
	require.NoError(t, err)
	require.Contains(t, out, "schema created")
	require.Contains(t, out, "seeded first item")

	out, err = runCommand(t, "-c", cfgPath, "search", "--code", "%")
	require.NoError(t, err)
	require.Contains(t, out, "000000000000")
	require.Contains(t, out, "first item")
}

func TestInitDBJSONOutput(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "-c", cfgPath, "--format", "json", "initdb", "--gvals", "4", "--gavals", "3")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	require.Equal(t, float64(4), data["gvals_count"])
	require.Equal(t, float64(3), data["gavals_count"])
}

func TestDumpRestoreCommands(t *testing.T) {
	cfgPath := writeTestConfig(t)
	dumpPath := filepath.Join(t.TempDir(), "backup.json")

	_, err := runCommand(t, "-c", cfgPath, "initdb", "--seed")
	require.NoError(t, err)

	out, err := runCommand(t, "-c", cfgPath, "dump", "-o", dumpPath)
	require.NoError(t, err)
	require.Contains(t, out, "wrote")

	// Re-create the schema (wiping contents), then restore.
	_, err = runCommand(t, "-c", cfgPath, "initdb")
	require.NoError(t, err)
	out, err = runCommand(t, "-c", cfgPath, "restore", "-i", dumpPath)
	require.NoError(t, err)
	require.Contains(t, out, "restored 6 tables")

	out, err = runCommand(t, "-c", cfgPath, "search", "--code", "%")
	require.NoError(t, err)
	require.Contains(t, out, "000000000000")
}

func TestDumpSingleTable(t *testing.T) {
	cfgPath := writeTestConfig(t)
	_, err := runCommand(t, "-c", cfgPath, "initdb", "--seed")
	require.NoError(t, err)

	out, err := runCommand(t, "-c", cfgPath, "dump", "--table", "items")
	require.NoError(t, err)
	require.Contains(t, out, `"columns"`)
	require.Contains(t, out, "000000000000")

	_, err = runCommand(t, "-c", cfgPath, "dump", "--table", "no_such_table")
	require.Error(t, err)
	require.Equal(t, ExitFailure, GetExitCode(err))
}

func TestExplodeCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)
	_, err := runCommand(t, "-c", cfgPath, "initdb", "--seed")
	require.NoError(t, err)

	out, err := runCommand(t, "-c", cfgPath, "explode", "000000000000")
	require.NoError(t, err)
	require.Contains(t, out, "000000000000")
	require.Contains(t, out, "first item")

	_, err = runCommand(t, "-c", cfgPath, "explode", "NO-SUCH-CODE")
	require.Error(t, err)
	require.Equal(t, ExitFailure, GetExitCode(err))
}

func TestExitErrorCodes(t *testing.T) {
	require.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "boom")))
	require.Equal(t, ExitFailure, GetExitCode(os.ErrNotExist))

	wrapped := WrapExitError(ExitCommandError, "outer", os.ErrNotExist)
	require.ErrorIs(t, wrapped, os.ErrNotExist)
	require.Contains(t, wrapped.Error(), "outer")
}
