package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/store"
)

// BucketCreateOptions holds flags for the bucket create command.
type BucketCreateOptions struct {
	*RootOptions
	Type     string
	Client   string
	Hostname string
}

// NewBucketCommand creates the bucket command group.
func NewBucketCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bucket",
		Short: "Create, inspect and delete buckets",
	}

	cmd.AddCommand(newBucketCreateCommand(rootOpts))
	cmd.AddCommand(newBucketGetCommand(rootOpts))
	cmd.AddCommand(newBucketListCommand(rootOpts))
	cmd.AddCommand(newBucketDeleteCommand(rootOpts))
	return cmd
}

func newBucketCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BucketCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Create an empty bucket",
		Long: `Create an empty bucket.

Example:
  tempo bucket create aw-watcher-window_laptop --type currentwindow --client aw-watcher-window`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				return createBucket(ctx, st, opts, args[0], cmd)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "bucket type (e.g. currentwindow, afkstatus)")
	cmd.Flags().StringVar(&opts.Client, "client", "tempo", "name of the client that writes the bucket")
	cmd.Flags().StringVar(&opts.Hostname, "hostname", "", "host the events come from (default: this host)")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func createBucket(ctx context.Context, st *store.Store, opts *BucketCreateOptions, id string, cmd *cobra.Command) error {
	hostname := opts.Hostname
	if hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("resolve hostname: %w", err)
		}
		hostname = h
	}

	b, err := st.CreateBucket(ctx, model.Bucket{
		ID:       id,
		Type:     opts.Type,
		Client:   opts.Client,
		Hostname: hostname,
	})
	if err != nil {
		return err
	}
	opts.Logger.Info("bucket created", "bucket", b.ID)

	return opts.formatter(cmd).Result(b, func(w io.Writer) {
		fmt.Fprintf(w, "Created bucket %s\n", b.ID)
	})
}

func newBucketGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show bucket metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				b, err := st.GetBucket(ctx, args[0])
				if err != nil {
					return err
				}
				return rootOpts.formatter(cmd).Result(b, func(w io.Writer) {
					writeBuckets(w, []model.Bucket{b})
				})
			})
		},
	}
}

func newBucketListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all buckets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				buckets, err := st.GetBuckets(ctx)
				if err != nil {
					return err
				}
				return rootOpts.formatter(cmd).Result(buckets, func(w io.Writer) {
					if len(buckets) == 0 {
						fmt.Fprintln(w, "No buckets.")
						return
					}
					list := make([]model.Bucket, 0, len(buckets))
					for _, id := range model.SortedKeys(buckets) {
						list = append(list, buckets[id])
					}
					writeBuckets(w, list)
				})
			})
		},
	}
}

func newBucketDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a bucket and all of its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				if err := st.DeleteBucket(ctx, args[0]); err != nil {
					return err
				}
				rootOpts.Logger.Info("bucket deleted", "bucket", args[0])
				return rootOpts.formatter(cmd).Result(map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted bucket %s\n", args[0])
				})
			})
		},
	}
}

func writeBuckets(w io.Writer, buckets []model.Bucket) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tCLIENT\tHOSTNAME\tCREATED")
	for _, b := range buckets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.Type, b.Client, b.Hostname, formatTime(b.Created))
	}
	tw.Flush()
}
