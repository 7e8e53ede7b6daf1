package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	var (
		serverURL string
		extended  bool
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running proxy",
		Long:  "Call /health on a running proxy and print rate window usage and cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimRight(serverURL, "/") + "/health"
			if extended {
				target += "?mode=extended"
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, target, nil)
			if err != nil {
				return err
			}
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("failed to reach %s: %w", target, err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return err
			}

			var health struct {
				Status    string `json:"status"`
				RateLimit struct {
					Requests       int `json:"requests"`
					Limit          int `json:"limit"`
					WindowResetsIn int `json:"windowResetsIn"`
				} `json:"rateLimit"`
				Cache struct {
					Entries int   `json:"entries"`
					Hits    int64 `json:"hits"`
					Misses  int64 `json:"misses"`
				} `json:"cache"`
				Checks map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(body, &health); err != nil {
				return fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status: %s\n", health.Status)
			fmt.Fprintf(out, "Rate window: %d/%d requests, resets in %ds\n",
				health.RateLimit.Requests, health.RateLimit.Limit, health.RateLimit.WindowResetsIn)
			fmt.Fprintf(out, "Cache: %d entries, %d hits, %d misses\n",
				health.Cache.Entries, health.Cache.Hits, health.Cache.Misses)
			for name, state := range health.Checks {
				fmt.Fprintf(out, "  %s: %s\n", name, state)
			}

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("proxy unhealthy (status %d)", resp.StatusCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "url", "http://localhost:8080", "Base URL of the proxy")
	cmd.Flags().BoolVar(&extended, "extended", false, "Include dependency checks")
	return cmd
}
