package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hpyer/easysms/internal/config"
)

// cliHTTPClient is shared by the commands that talk to a running server.
var cliHTTPClient = &http.Client{Timeout: 30 * time.Second}

var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// SetVersion is called from main to inject build-time version info.
func SetVersion(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
}

var rootCmd = &cobra.Command{
	Use:   "easysms",
	Short: "One API for many SMS providers",
	Long: `easysms sends SMS through Aliyun, Tencent Cloud, Baidu, Qiniu, Twilio and
more behind one interface, failing over between providers until one accepts.

Send a message with the built-in test gateway:
  easysms send --to 13188888888 --content "hello"

Run the HTTP API:
  easysms serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format (shorthand for --output json)")
	rootCmd.PersistentFlags().String("output", "table", "Output format: table, json, or csv")
	rootCmd.PersistentFlags().String("config", "", "Path to easysms.toml (default ./easysms.toml)")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(gatewaysCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	initHelp()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// outputFormat returns the resolved output format from flags.
// --json is a shorthand for --output json.
func outputFormat(cmd *cobra.Command) string {
	jsonFlag, _ := cmd.Flags().GetBool("json")
	if jsonFlag {
		return "json"
	}
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		return "table"
	}
	return out
}

// writeCSV writes a header row followed by rows.
func writeCSV(w io.Writer, cols []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadConfig reads the file named by --config, or easysms.toml.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, nil)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// serverURL resolves the API base URL from --url, EASYSMS_URL, or the
// configured port on localhost.
func serverURL(cmd *cobra.Command) string {
	if u, _ := cmd.Flags().GetString("url"); u != "" {
		return strings.TrimRight(u, "/")
	}
	if u := os.Getenv("EASYSMS_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	port := config.Default().Server.Port
	if cfg, err := loadConfig(cmd); err == nil {
		port = cfg.Server.Port
	}
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}

// remoteMode reports whether --url or EASYSMS_URL points at a server.
func remoteMode(cmd *cobra.Command) bool {
	if u, _ := cmd.Flags().GetString("url"); u != "" {
		return true
	}
	return os.Getenv("EASYSMS_URL") != ""
}

// apiToken resolves the bearer token from --token or EASYSMS_TOKEN.
func apiToken(cmd *cobra.Command) string {
	if t, _ := cmd.Flags().GetString("token"); t != "" {
		return t
	}
	return os.Getenv("EASYSMS_TOKEN")
}

// addRemoteFlags registers the flags used by apiRequest.
func addRemoteFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "easysms server URL (default: EASYSMS_URL or http://127.0.0.1:<port>)")
	cmd.Flags().String("token", "", "Bearer token (default: EASYSMS_TOKEN)")
}

// apiRequest makes an authenticated request against a running easysms
// server and returns the response with its fully read body.
func apiRequest(cmd *cobra.Command, method, path string, body io.Reader) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(cmd.Context(), method, serverURL(cmd)+path, body)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := apiToken(cmd); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := cliHTTPClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp, respBody, nil
}

// serverError turns an error response into a readable error.
func serverError(status int, body []byte) error {
	if status == http.StatusUnauthorized {
		return fmt.Errorf("authentication required (401)\n\n" +
			"  The server has server.jwt_secret set. Issue a token with\n" +
			"    easysms token --subject cli\n" +
			"  and pass it with --token or EASYSMS_TOKEN.")
	}
	var errResp map[string]any
	if json.Unmarshal(body, &errResp) == nil {
		if msg, ok := errResp["message"].(string); ok {
			return fmt.Errorf("server error (%d): %s", status, msg)
		}
	}
	return fmt.Errorf("server error (%d): %s", status, strings.TrimSpace(string(body)))
}
