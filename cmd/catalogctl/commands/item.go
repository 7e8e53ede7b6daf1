package commands

import (
	"encoding/json"
	"fmt"

	"github.com/benvon/catalog-proxy/internal/validation"
	"github.com/spf13/cobra"
)

func newItemCmd(flags *globalFlags) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "item <assetId>",
		Short: "Show one asset from the upstream API",
		Long:  "Print the normalized economy detail record, or with --raw the catalog detail record as returned upstream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID, err := validation.ParseAssetID(args[0])
			if err != nil {
				return err
			}

			client, _, err := flags.client()
			if err != nil {
				return err
			}

			var value any
			if raw {
				value, err = client.FetchItemCatalog(cmd.Context(), assetID)
			} else {
				detail, detailErr := client.FetchItemDetail(cmd.Context(), assetID)
				if detailErr == nil {
					value = detail.CatalogItem()
				}
				err = detailErr
			}
			if err != nil {
				return fmt.Errorf("fetch item %d: %w", assetID, err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(value)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the upstream catalog record unchanged")
	return cmd
}
