package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/query"
	"github.com/roach88/tempo/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Intervals []string
	Lines     []string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [script-file|-]",
		Short: "Run a query script over one or more time intervals",
		Long: `Run a query script once per interval and print one result per interval,
in the order given.

The script comes from a file, stdin ("-"), or one or more -e lines which
are joined with newlines. Output from print() goes to stderr.

Example:
  tempo query --interval 2024-01-01T00:00:00Z/2024-01-02T00:00:00Z \
    -e 'events = query_bucket("aw-watcher-window_laptop");' \
    -e 'return sort_by_duration(merge_events_by_keys(events, ["app"]));'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Intervals, "interval", nil, "time interval <start>/<end> in RFC 3339 (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Lines, "expr", "e", nil, "script line (repeatable)")
	_ = cmd.MarkFlagRequired("interval")

	return cmd
}

// IntervalResult pairs an interval with the script's value for it.
type IntervalResult struct {
	Interval string `json:"interval"`
	Result   any    `json:"result"`
}

func runQuery(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	src, err := querySource(opts, args, cmd)
	if err != nil {
		return f.Fail(err)
	}

	intervals := make([]model.TimeInterval, len(opts.Intervals))
	for i, s := range opts.Intervals {
		ti, err := model.ParseTimeInterval(s)
		if err != nil {
			return f.Fail(invalidInput("--interval %q: %w", s, err))
		}
		intervals[i] = ti
	}

	return opts.withStore(cmd, func(ctx context.Context, st *store.Store) error {
		values, err := query.Run(ctx, st, src, intervals,
			query.WithOutput(cmd.ErrOrStderr()),
			query.WithLogger(opts.Logger),
		)
		if err != nil {
			return err
		}

		results := make([]IntervalResult, len(values))
		for i, v := range values {
			results[i] = IntervalResult{Interval: intervals[i].String(), Result: query.Native(v)}
		}
		return f.Result(results, func(w io.Writer) {
			for i, v := range values {
				fmt.Fprintf(w, "%s\t%s\n", intervals[i], query.Format(v))
			}
		})
	})
}

// querySource returns the script text from -e lines or the file argument.
func querySource(opts *QueryOptions, args []string, cmd *cobra.Command) (string, error) {
	switch {
	case len(opts.Lines) > 0 && len(args) > 0:
		return "", invalidInput("give the script either as -e lines or as a file, not both")
	case len(opts.Lines) > 0:
		return query.JoinLines(opts.Lines), nil
	case len(args) == 1:
		data, err := readInput(cmd, args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", invalidInput("no script: pass a file, - for stdin, or -e lines")
	}
}
