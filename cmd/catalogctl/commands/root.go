// Package commands implements the catalogctl operator CLI.
package commands

import (
	"fmt"

	"github.com/benvon/catalog-proxy/internal/config"
	"github.com/benvon/catalog-proxy/internal/upstream"
	"github.com/spf13/cobra"
)

// globalFlags override the loaded configuration for one invocation.
type globalFlags struct {
	catalogURL string
	economyURL string
}

// NewRootCmd creates the catalogctl root command
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Operator tool for the catalog proxy",
		Long:          "Query the upstream catalog directly, inspect effective configuration and check a running proxy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.catalogURL, "catalog-url", "", "Override CATALOG_API_URL")
	rootCmd.PersistentFlags().StringVar(&flags.economyURL, "economy-url", "", "Override ECONOMY_API_URL")

	rootCmd.AddCommand(newSearchCmd(flags))
	rootCmd.AddCommand(newItemCmd(flags))
	rootCmd.AddCommand(newConfigCmd(flags))
	rootCmd.AddCommand(newHealthCmd())
	return rootCmd
}

func (f *globalFlags) load() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if f.catalogURL != "" {
		cfg.CatalogAPIURL = f.catalogURL
	}
	if f.economyURL != "" {
		cfg.EconomyAPIURL = f.economyURL
	}
	return cfg, nil
}

// client builds an upstream client that skips the configured pre-call delay.
func (f *globalFlags) client() (*upstream.Client, *config.Config, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, nil, err
	}
	client := upstream.NewClient(upstream.Config{
		CatalogBaseURL: cfg.CatalogAPIURL,
		EconomyBaseURL: cfg.EconomyAPIURL,
		Timeout:        cfg.UpstreamTimeout,
		UserAgent:      "catalogctl",
	}, nil, nil)
	return client, cfg, nil
}
