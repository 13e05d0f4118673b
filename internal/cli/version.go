package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hpyer/easysms/internal/cli/ui"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print easysms version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat(cmd) == "json" {
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"version": buildVersion,
				"commit":  buildCommit,
				"date":    buildDate,
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s easysms %s (commit: %s, built: %s)\n",
			ui.BrandEmoji, buildVersion, buildCommit, buildDate)
		return nil
	},
}

// bannerVersion trims a leading "v" and collapses git-describe output
// ("0.3.0-12-gabc1234") to "0.3.0-dev". Pre-release tags are kept.
func bannerVersion(raw string) string {
	v := strings.TrimPrefix(raw, "v")
	parts := strings.SplitN(v, "-", 2)
	if len(parts) == 1 {
		return v
	}
	if len(parts[1]) > 0 && parts[1][0] >= '0' && parts[1][0] <= '9' {
		return parts[0] + "-dev"
	}
	return v
}
