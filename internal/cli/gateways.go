package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hpyer/easysms/internal/easysms"
)

var gatewaysCmd = &cobra.Command{
	Use:   "gateways",
	Short: "List configured and supported gateways",
	Long: `List the gateway ids a send can use and the adapter types this build supports.
Reads easysms.toml, or asks a running server when --url or EASYSMS_URL is set.`,
	Args: cobra.NoArgs,
	RunE: runGateways,
}

func init() {
	addRemoteFlags(gatewaysCmd)
}

// gatewayList matches the server's GET /api/sms/gateways response.
type gatewayList struct {
	Strategy  string   `json:"strategy"`
	Default   []string `json:"default"`
	Available []string `json:"available"`
	Supported []string `json:"supported"`
}

func runGateways(cmd *cobra.Command, args []string) error {
	var list gatewayList
	if remoteMode(cmd) {
		resp, body, err := apiRequest(cmd, http.MethodGet, "/api/sms/gateways", nil)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return serverError(resp.StatusCode, body)
		}
		if err := json.Unmarshal(body, &list); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	} else {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		svc := easysms.New(cfg)
		list = gatewayList{
			Strategy:  cfg.Default.Strategy,
			Default:   cfg.Default.Gateways,
			Available: svc.Available(),
			Supported: svc.Supported(),
		}
	}

	w := cmd.OutOrStdout()
	switch outputFormat(cmd) {
	case "json":
		return writeJSON(w, list)
	case "csv":
		rows := make([][]string, len(list.Available))
		for i, id := range list.Available {
			rows[i] = []string{id, fmt.Sprint(slices.Contains(list.Default, id))}
		}
		return writeCSV(w, []string{"gateway", "default"}, rows)
	}

	c := colorEnabled()
	fmt.Fprintf(w, "%s\n", heading("AVAILABLE", c))
	for _, id := range list.Available {
		mark := "  "
		if slices.Contains(list.Default, id) {
			mark = green("* ", c)
		}
		fmt.Fprintf(w, "  %s%s\n", mark, id)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", heading("STRATEGY", c), list.Strategy)
	fmt.Fprintf(w, "%s %s\n", heading("SUPPORTED", c), dim(strings.Join(list.Supported, ", "), c))
	return nil
}
