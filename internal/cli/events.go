package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/store"
)

// EventsQueryOptions holds the range flags shared by events get and count.
type EventsQueryOptions struct {
	*RootOptions
	Start string
	End   string
	Limit int
}

// NewEventsCommand creates the events command group.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Insert, list, count and delete events",
	}

	cmd.AddCommand(newEventsInsertCommand(rootOpts))
	cmd.AddCommand(newEventsGetCommand(rootOpts))
	cmd.AddCommand(newEventsCountCommand(rootOpts))
	cmd.AddCommand(newEventsDeleteCommand(rootOpts))
	return cmd
}

func newEventsInsertCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <bucket> <json-file|->",
		Short: "Insert events into a bucket",
		Long: `Insert events into a bucket.

The input is one event object or an array of them:
  {"timestamp": "2024-01-01T10:00:00Z", "duration": 30.5, "data": {"app": "editor"}}

Durations are seconds. Ids are assigned by the store; any id in the
input is ignored. The insert is all-or-nothing.

Example:
  tempo events insert aw-watcher-window_laptop events.json
  echo '{"timestamp":"2024-01-01T10:00:00Z","duration":5}' | tempo events insert my-bucket -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			raw, err := readInput(cmd, args[1])
			if err != nil {
				return f.Fail(err)
			}
			events, err := decodeEvents(raw)
			if err != nil {
				return f.Fail(err)
			}
			return rootOpts.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				stored, err := st.InsertEvents(ctx, args[0], events)
				if err != nil {
					return err
				}
				rootOpts.Logger.Info("events inserted", "bucket", args[0], "count", len(stored))
				return f.Result(stored, func(w io.Writer) {
					fmt.Fprintf(w, "Inserted %d event(s) into %s\n", len(stored), args[0])
				})
			})
		},
	}
}

// decodeEvents parses one event object or an array of events.
func decodeEvents(raw []byte) ([]model.Event, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, invalidInput("no events in input")
	}
	if trimmed[0] == '[' {
		var events []model.Event
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, invalidInput("decode events: %w", err)
		}
		return events, nil
	}
	var e model.Event
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return nil, invalidInput("decode event: %w", err)
	}
	return []model.Event{e}, nil
}

func newEventsGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsQueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <bucket>",
		Short: "List events newest first",
		Long: `List the events of a bucket whose span intersects [--start, --end],
newest first.

Example:
  tempo events get aw-watcher-window_laptop --start 2024-01-01T00:00:00Z --limit 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			filter, err := opts.filter()
			if err != nil {
				return f.Fail(err)
			}
			return opts.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				events, err := st.GetEvents(ctx, args[0], filter)
				if err != nil {
					return err
				}
				return f.Result(events, func(w io.Writer) {
					writeEvents(w, events)
				})
			})
		},
	}

	opts.addRangeFlags(cmd)
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 = unlimited)")
	return cmd
}

func newEventsCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsQueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <bucket>",
		Short: "Count events in a time range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			filter, err := opts.filter()
			if err != nil {
				return f.Fail(err)
			}
			return opts.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				n, err := st.GetEventCount(ctx, args[0], filter.Start, filter.End)
				if err != nil {
					return err
				}
				return f.Result(map[string]int64{"count": n}, func(w io.Writer) {
					fmt.Fprintln(w, n)
				})
			})
		},
	}

	opts.addRangeFlags(cmd)
	return cmd
}

func newEventsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <bucket> <id>...",
		Short: "Delete events by id",
		Long: `Delete events by id. Ids that do not exist are ignored.

Example:
  tempo events delete aw-watcher-window_laptop 12 13`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ids := make([]int64, 0, len(args)-1)
			for _, arg := range args[1:] {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return f.Fail(invalidInput("invalid event id %q", arg))
				}
				ids = append(ids, id)
			}
			return rootOpts.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				if err := st.DeleteEventsByID(ctx, args[0], ids); err != nil {
					return err
				}
				return f.Result(map[string]any{"bucket": args[0], "ids": ids}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %d id(s) from %s\n", len(ids), args[0])
				})
			})
		},
	}
}

func (o *EventsQueryOptions) addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Start, "start", "", "range start (RFC 3339, default unbounded)")
	cmd.Flags().StringVar(&o.End, "end", "", "range end (RFC 3339, default unbounded)")
}

func (o *EventsQueryOptions) filter() (store.EventFilter, error) {
	start, err := parseTimeFlag("start", o.Start)
	if err != nil {
		return store.EventFilter{}, err
	}
	end, err := parseTimeFlag("end", o.End)
	if err != nil {
		return store.EventFilter{}, err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return store.EventFilter{}, invalidInput("--end %s is before --start %s", o.End, o.Start)
	}
	return store.EventFilter{Start: start, End: end, Limit: o.Limit}, nil
}

func writeEvents(w io.Writer, events []model.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIMESTAMP\tDURATION\tDATA")
	for _, e := range events {
		data, err := model.MarshalCanonical(e.Data)
		if err != nil {
			data = []byte(fmt.Sprintf("%v", e.Data))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, formatTime(e.Timestamp), e.Duration, data)
	}
	tw.Flush()
}
