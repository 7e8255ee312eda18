package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tempo/internal/config"
)

// InfoResult is the output of the info command.
type InfoResult struct {
	Hostname string `json:"hostname"`
	Version  string `json:"version"`
	DeviceID string `json:"device_id"`
	Database string `json:"database"`
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show hostname, version and device id",
		Long: `Show hostname, version, device id and database path.

The device id is a random UUID created on first use and kept in the
data directory ($TEMPO_DATA_DIR, default ~/.local/share/tempo).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			info, err := collectInfo(rootOpts)
			if err != nil {
				return f.Fail(err)
			}
			return f.Result(info, func(w io.Writer) {
				fmt.Fprintf(w, "hostname:  %s\n", info.Hostname)
				fmt.Fprintf(w, "version:   %s\n", info.Version)
				fmt.Fprintf(w, "device_id: %s\n", info.DeviceID)
				fmt.Fprintf(w, "database:  %s\n", info.Database)
			})
		},
	}
}

func collectInfo(opts *RootOptions) (InfoResult, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return InfoResult{}, fmt.Errorf("resolve hostname: %w", err)
	}
	dir, err := config.DataDir()
	if err != nil {
		return InfoResult{}, err
	}
	deviceID, err := config.DeviceID(dir)
	if err != nil {
		return InfoResult{}, err
	}
	db, err := opts.databasePath()
	if err != nil {
		return InfoResult{}, err
	}
	return InfoResult{
		Hostname: hostname,
		Version:  Version,
		DeviceID: deviceID,
		Database: db,
	}, nil
}
