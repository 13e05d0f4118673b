package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent server logs",
	Long: `Display the log lines buffered by a running easysms server, including
every gateway attempt.

Examples:
  easysms logs               # Show the last 100 lines
  easysms logs -n 20         # Show the last 20 lines
  easysms logs --level warn  # Only warnings and errors`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().IntP("lines", "n", 100, "Number of log lines to show")
	logsCmd.Flags().String("level", "", "Minimum level (debug, info, warn, error)")
	addRemoteFlags(logsCmd)
}

type logEntry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

var levelRank = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}

// filterLogs keeps entries at or above level and returns at most the last
// n of them.
func filterLogs(entries []logEntry, level string, n int) []logEntry {
	floor := 0
	if level != "" {
		floor = levelRank[strings.ToUpper(level)]
		if strings.EqualFold(level, "warning") {
			floor = levelRank["WARN"]
		}
	}
	out := make([]logEntry, 0, len(entries))
	for _, e := range entries {
		if levelRank[strings.ToUpper(e.Level)] >= floor {
			out = append(out, e)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func runLogs(cmd *cobra.Command, args []string) error {
	lines, _ := cmd.Flags().GetInt("lines")
	level, _ := cmd.Flags().GetString("level")

	resp, body, err := apiRequest(cmd, http.MethodGet, "/api/logs", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return serverError(resp.StatusCode, body)
	}

	var payload struct {
		Entries []logEntry `json:"entries"`
		Message string     `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	entries := filterLogs(payload.Entries, level, lines)

	w := cmd.OutOrStdout()
	if outputFormat(cmd) == "json" {
		return writeJSON(w, entries)
	}
	if payload.Message != "" && len(entries) == 0 {
		fmt.Fprintln(w, payload.Message)
		return nil
	}

	c := colorEnabled()
	for _, e := range entries {
		lvl := fmt.Sprintf("%-5s", e.Level)
		switch strings.ToUpper(e.Level) {
		case "ERROR":
			lvl = red(lvl, c)
		case "WARN":
			lvl = yellow(lvl, c)
		default:
			lvl = dim(lvl, c)
		}
		fmt.Fprintf(w, "%s %s %s%s\n", dim(e.Time.Format(time.TimeOnly), c), lvl, e.Message, formatAttrs(e.Attrs))
	}
	return nil
}

func formatAttrs(attrs map[string]any) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, attrs[k])
	}
	return b.String()
}
