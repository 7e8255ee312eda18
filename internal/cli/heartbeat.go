package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/store"
)

// HeartbeatOptions holds flags for the heartbeat command.
type HeartbeatOptions struct {
	*RootOptions
	Pulsetime float64
}

// NewHeartbeatCommand creates the heartbeat command.
func NewHeartbeatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HeartbeatOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "heartbeat <bucket> <json|->",
		Short: "Record a heartbeat, merging it into the newest event when possible",
		Long: `Record a heartbeat.

The heartbeat extends the bucket's newest event when it starts no more
than --pulsetime seconds after that event ends and carries the same data.
Otherwise it is stored as a new event.

Example:
  tempo heartbeat aw-watcher-window_laptop --pulsetime 60 \
    '{"timestamp":"2024-01-01T10:00:00Z","duration":0,"data":{"app":"editor"}}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendHeartbeat(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Pulsetime, "pulsetime", -1, "merge window in seconds (default from config)")
	return cmd
}

func sendHeartbeat(opts *HeartbeatOptions, bucketID, arg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	raw := []byte(arg)
	if arg == "-" {
		var err error
		if raw, err = readInput(cmd, arg); err != nil {
			return f.Fail(err)
		}
	}
	var hb model.Event
	if err := json.Unmarshal(raw, &hb); err != nil {
		return f.Fail(invalidInput("decode heartbeat: %w", err))
	}

	pulsetime := opts.Config.Pulsetime()
	if cmd.Flags().Changed("pulsetime") {
		if opts.Pulsetime < 0 {
			return f.Fail(invalidInput("--pulsetime must be non-negative"))
		}
		d, err := model.SecondsToDuration(opts.Pulsetime)
		if err != nil {
			return f.Fail(invalidInput("--pulsetime: %w", err))
		}
		pulsetime = d
	}

	return opts.withStore(cmd, func(ctx context.Context, st *store.Store) error {
		e, err := st.Heartbeat(ctx, bucketID, hb, pulsetime)
		if err != nil {
			return err
		}
		opts.Logger.Debug("heartbeat stored", "bucket", bucketID, "id", e.ID, "pulsetime", pulsetime)
		return f.Result(e, func(w io.Writer) {
			fmt.Fprintf(w, "Event %d now %s long (from %s)\n", e.ID, e.Duration, formatTime(e.Timestamp))
		})
	})
}
