package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/spf13/cobra"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output   string
	Compress bool
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export [bucket...]",
		Short: "Export buckets with their events",
		Long: `Export buckets with all of their events as {"buckets": {...}}.
With no bucket ids, every bucket is exported.

--compress writes the document as a snappy block instead of plain JSON;
import detects either form.

Example:
  tempo export -o backup.json
  tempo export aw-watcher-window_laptop -o window.snappy --compress`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "-", "output file (- for stdout)")
	cmd.Flags().BoolVar(&opts.Compress, "compress", false, "snappy-compress the export (default from config)")
	return cmd
}

func runExport(opts *ExportOptions, ids []string, cmd *cobra.Command) error {
	compress := opts.Config.Export.Compress
	if cmd.Flags().Changed("compress") {
		compress = opts.Compress
	}

	return opts.withStore(cmd, func(ctx context.Context, st *store.Store) error {
		doc, err := st.Export(ctx, ids...)
		if err != nil {
			return err
		}
		payload, err := encodeExport(doc, compress)
		if err != nil {
			return err
		}

		if opts.Output == "-" {
			_, err := cmd.OutOrStdout().Write(payload)
			return err
		}
		if err := os.WriteFile(opts.Output, payload, 0o644); err != nil {
			return invalidInput("write %s: %w", opts.Output, err)
		}
		opts.Logger.Info("export written", "path", opts.Output, "buckets", len(doc.Buckets), "compressed", compress)
		return opts.formatter(cmd).Result(map[string]any{
			"path":       opts.Output,
			"buckets":    model.SortedKeys(doc.Buckets),
			"compressed": compress,
		}, func(w io.Writer) {
			fmt.Fprintf(w, "Exported %d bucket(s) to %s\n", len(doc.Buckets), opts.Output)
		})
	})
}

// encodeExport renders doc as indented JSON, snappy-compressed if asked.
func encodeExport(doc model.BucketsExport, compress bool) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	data = append(data, '\n')
	if compress {
		return snappy.Encode(nil, data), nil
	}
	return data, nil
}

// decodeExport parses plain or snappy-compressed export data.
func decodeExport(data []byte) (model.BucketsExport, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		decoded, err := snappy.Decode(nil, data)
		if err != nil {
			return model.BucketsExport{}, invalidInput("export is neither JSON nor snappy: %w", err)
		}
		data = decoded
	}

	var doc model.BucketsExport
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.BucketsExport{}, invalidInput("decode export: %w", err)
	}
	if doc.Buckets == nil {
		return model.BucketsExport{}, invalidInput(`decode export: missing "buckets"`)
	}
	return doc, nil
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import buckets from an export file",
		Long: `Import buckets and their events from an export file. Fails without
writing anything if any bucket already exists. Imported events receive
fresh ids in timestamp order.

Example:
  tempo import backup.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return f.Fail(err)
			}
			doc, err := decodeExport(raw)
			if err != nil {
				return f.Fail(err)
			}
			return rootOpts.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				if err := st.Import(ctx, doc); err != nil {
					return err
				}
				ids := model.SortedKeys(doc.Buckets)
				return f.Result(map[string]any{"imported": ids}, func(w io.Writer) {
					fmt.Fprintf(w, "Imported %d bucket(s)\n", len(ids))
				})
			})
		},
	}
}
