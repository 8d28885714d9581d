package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"library-lending/library"
)

// searchResult is the --json shape of one hit.
type searchResult struct {
	library.Item
	Available int      `json:"available"`
	Waitlist  []string `json:"waitlist,omitempty"`
}

func newSearchCmd(opts *cliOptions, out io.Writer) *cobra.Command {
	var (
		field  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search the seeded catalog",
		Long: "Search matches every word of QUERY as a word prefix across titles, authors and genres.\n" +
			"With --field it instead matches QUERY as a case-insensitive substring of one field.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			return withManager(opts, func(h *managerHandle, _ do.Injector) error {
				items, err := runSearch(h.LibraryManager, field, q)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, h.LibraryManager, items)
				}
				writeTable(out, h.LibraryManager, items)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&field, "field", "", "match one field: title, author or genre")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func runSearch(mgr *library.LibraryManager, field, q string) ([]library.Item, error) {
	if field == "" {
		return mgr.FullTextSearch(q)
	}
	return mgr.SearchItems(library.Field(strings.ToLower(field)), q)
}

func writeJSON(out io.Writer, mgr *library.LibraryManager, items []library.Item) error {
	results := make([]searchResult, len(items))
	for i, it := range items {
		results[i] = searchResult{
			Item:      it,
			Available: mgr.AvailableCopies(it.Key),
			Waitlist:  mgr.GetReservations(it.Key),
		}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func writeTable(out io.Writer, mgr *library.LibraryManager, items []library.Item) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No items found.")
		return
	}
	fmt.Fprintf(out, "%-16s %-9s %-36s %-22s %-6s %s\n", "Key", "Kind", "Title", "Author", "Year", "Available")
	fmt.Fprintln(out, strings.Repeat("-", 100))
	for _, it := range items {
		fmt.Fprintln(out, library.PrettyItem(it, mgr.AvailableCopies(it.Key)))
	}
}
