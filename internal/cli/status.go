package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show easysms server status",
	Long:  `Probe the /health endpoint of a running easysms server.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	addRemoteFlags(statusCmd)
}

type healthStatus struct {
	Status        string `json:"status"`
	UptimeSeconds int    `json:"uptime_seconds"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	base := serverURL(cmd)
	out := cmd.OutOrStdout()

	health, err := fetchHealth(cmd, base)
	if outputFormat(cmd) == "json" {
		if err != nil {
			return writeJSON(out, map[string]any{"status": "unreachable", "url": base, "error": err.Error()})
		}
		return writeJSON(out, map[string]any{"status": health.Status, "url": base, "uptime_seconds": health.UptimeSeconds})
	}

	c := colorEnabled()
	if err != nil {
		fmt.Fprintf(out, "easysms server is %s.\n", red("not reachable", c))
		fmt.Fprintf(out, "  URL:    %s\n", base)
		fmt.Fprintf(out, "  Error:  %v\n", err)
		return nil
	}
	fmt.Fprintf(out, "easysms server is %s.\n", green("running", c))
	fmt.Fprintf(out, "  URL:     %s\n", cyan(base, c))
	fmt.Fprintf(out, "  Health:  %s\n", health.Status)
	fmt.Fprintf(out, "  Uptime:  %s\n", time.Duration(health.UptimeSeconds)*time.Second)
	return nil
}

func fetchHealth(cmd *cobra.Command, base string) (healthStatus, error) {
	var h healthStatus
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, base+"/health", nil)
	if err != nil {
		return h, err
	}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return h, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return h, fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return h, fmt.Errorf("parsing health response: %w", err)
	}
	return h, nil
}
