package cli

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// readInput reads a file argument, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, invalidInput("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, invalidInput("read %s: %w", path, err)
	}
	return data, nil
}

// parseTimeFlag parses an optional RFC 3339 time flag. Empty means zero
// (unbounded).
func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, invalidInput("invalid --%s %q: %w", name, value, err)
	}
	return t.UTC(), nil
}

// formatTime renders a timestamp for text output.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
