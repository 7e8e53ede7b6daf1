package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/benvon/catalog-proxy/internal/enrich"
	"github.com/benvon/catalog-proxy/internal/models"
	"github.com/benvon/catalog-proxy/internal/upstream"
	"github.com/spf13/cobra"
)

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var (
		category string
		sort     string
		limit    int
		cursor   string
		enriched bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the upstream catalog",
		Long:  "Run one catalog search directly against the upstream API, bypassing the proxy's rate window and cache",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			categoryID, ok := models.CategoryID(category)
			if !ok {
				return fmt.Errorf("unknown category %q", category)
			}
			sortType, ok := models.SortType(sort)
			if !ok {
				return fmt.Errorf("unknown sort %q", sort)
			}

			client, cfg, err := flags.client()
			if err != nil {
				return err
			}

			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			resp, err := client.FetchSearch(cmd.Context(), upstream.SearchRequest{
				Keyword:    query,
				CategoryID: categoryID,
				SortType:   sortType,
				Limit:      limit,
				Cursor:     cursor,
			})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			items := resp.Items()
			if enriched {
				items = enrich.New(client, cfg.EnrichConcurrency, nil, nil).Enrich(cmd.Context(), items)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(models.SearchPage{Items: items, NextCursor: resp.NextPageCursor})
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ASSET ID\tTYPE\tPRICE\tNAME\tCREATOR")
			for _, item := range items {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", item.AssetID, item.ItemType, item.Price, item.Name, item.Creator)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if resp.NextPageCursor != nil && *resp.NextPageCursor != "" {
				fmt.Fprintf(out, "\nNext cursor: %s\n", *resp.NextPageCursor)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", models.CategoryAll, "Category name")
	cmd.Flags().StringVar(&sort, "sort", models.SortRelevance, "Sort order")
	cmd.Flags().IntVar(&limit, "limit", upstream.DefaultLimit, "Page size (10, 28 or 30)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Page cursor from a previous search")
	cmd.Flags().BoolVar(&enriched, "enrich", false, "Replace prices with detailed prices")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	cmd.Flags().Lookup("category").Usage = "Category name (" + strings.Join(models.CategoryNames(), ", ") + ")"
	cmd.Flags().Lookup("sort").Usage = "Sort order (" + strings.Join(models.SortNames(), ", ") + ")"
	return cmd
}
