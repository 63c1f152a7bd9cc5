package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Rul1an/Gsearch/internal/report"
	"github.com/Rul1an/Gsearch/internal/storage"
)

func newReportCommand(opts *rootOptions) *cobra.Command {
	var (
		format string
		query  string
		limit  int
	)

	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Summarize recorded search history",
		Example: "gsearch report --format json",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.StorageBackend == "" || cfg.StorageBackend == "none" {
				return fmt.Errorf("no storage backend configured, nothing to report on")
			}

			backend, err := openBackend(c.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to open storage backend: %w", err)
			}
			defer backend.Close()

			records, err := backend.Query(c.Context(), storage.Filter{
				Query: query,
				Limit: limit,
			})
			if err != nil {
				return fmt.Errorf("failed to query search history: %w", err)
			}

			summary := report.GenerateSummary(records)
			switch format {
			case "json":
				return report.WriteJSON(os.Stdout, summary)
			case "text":
				return report.WriteText(os.Stdout, summary)
			default:
				return fmt.Errorf("unknown report format %q", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	cmd.Flags().StringVar(&query, "query", "", "only include searches whose query contains this substring")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of records included (0 means all)")
	return cmd
}
