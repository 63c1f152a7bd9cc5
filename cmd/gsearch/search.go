package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rul1an/Gsearch/internal/scraper"
	"github.com/Rul1an/Gsearch/internal/storage"
)

const snippetPreviewLen = 150

func newSearchCommand(opts *rootOptions) *cobra.Command {
	var (
		numResults int
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:     "search <query>",
		Short:   "Run a single search and print the results",
		Example: `gsearch search "golang web scraping" -n 5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			query := args[0]

			backend, err := openBackend(c.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to open storage backend: %w", err)
			}
			if backend != nil {
				defer backend.Close()
			}

			engine, err := scraper.New(scraperConfig(cfg), logger)
			if err != nil {
				return fmt.Errorf("failed to build scraper: %w", err)
			}

			outcome, err := engine.Search(c.Context(), query, numResults)
			if err != nil {
				return err
			}

			if backend != nil {
				record := &storage.SearchRecord{
					ID:           outcome.ID,
					Query:        outcome.Query,
					NumRequested: numResults,
					Status:       string(outcome.Status),
					Results:      outcome.Results,
					Attempts:     len(outcome.Attempts),
					Blocked:      outcome.Status == scraper.StatusBlocked,
					Family:       string(outcome.Family),
					Duration:     outcome.Duration,
					CreatedAt:    time.Now().UTC(),
				}
				if err := backend.Save(c.Context(), record); err != nil {
					logger.Error("failed to save search record", "err", err)
				}
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(outcome)
			}

			printOutcome(query, outcome)
			if outcome.Status == scraper.StatusBlocked {
				return fmt.Errorf("search blocked by anti-bot protection (%s)", outcome.Family)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&numResults, "num-results", "n", 10, "number of results to return")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full outcome as JSON")
	return cmd
}

func printOutcome(query string, outcome *scraper.Outcome) {
	fmt.Printf("Searching for: %s\n", query)
	fmt.Println(strings.Repeat("=", 50))

	if outcome.Status == scraper.StatusBlocked {
		fmt.Println("Blocked by anti-bot protection.")
		return
	}
	if len(outcome.Results) == 0 {
		fmt.Println("No results found.")
		return
	}

	for i, result := range outcome.Results {
		fmt.Printf("%d. %s\n", i+1, result.Title)
		fmt.Printf("   Link: %s\n", result.Link)
		fmt.Printf("   Snippet: %s...\n", truncate(result.Snippet, snippetPreviewLen))
		fmt.Println()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
