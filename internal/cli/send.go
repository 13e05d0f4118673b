package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hpyer/easysms/internal/cli/ui"
	"github.com/hpyer/easysms/internal/easysms"
	"github.com/hpyer/easysms/internal/sms"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send an SMS through the configured gateways",
	Long: `Send one message, trying gateways in strategy order until one accepts it.

Without --url the message is sent in-process using easysms.toml. With --url
(or EASYSMS_URL) it is posted to a running easysms server.`,
	Example: `easysms send --to 13188888888 --content "Your code is 4821"
easysms send --to +8613188888888 --template SMS_001 --data code=4821 --gateway aliyun
easysms send --to 6502530000 --idd 1 --content hi --gateway twilio,vonage --strategy random`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

func init() {
	f := sendCmd.Flags()
	f.String("to", "", "Recipient number, optionally with +<idd> or 00<idd> prefix")
	f.String("idd", "", "International dialing code, if not part of --to")
	f.String("type", "text", "Message type: text or voice")
	f.String("content", "", "Message text")
	f.String("template", "", "Vendor template id")
	f.String("sign-name", "", "Signature, overriding the gateway's configured sign_name")
	f.StringArray("data", nil, "Template variable as key=value (repeatable, order kept)")
	f.StringSlice("gateway", nil, "Gateway ids to try (default: default.gateways)")
	f.String("strategy", "", "Ordering strategy: order or random")
	f.BoolP("verbose", "v", false, "Log each gateway attempt to stderr")
	addRemoteFlags(sendCmd)
}

// attempt mirrors one entry of the server's send response.
type attempt struct {
	Gateway string   `json:"gateway"`
	Status  string   `json:"status"`
	Result  sms.Body `json:"result,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type sendOutput struct {
	To      string    `json:"to"`
	Results []attempt `json:"results"`
}

// sendRequest is the JSON body of POST /api/sms/send.
type sendRequest struct {
	To       string   `json:"to"`
	IDDCode  string   `json:"idd_code,omitempty"`
	Type     string   `json:"type,omitempty"`
	Content  string   `json:"content,omitempty"`
	Template string   `json:"template,omitempty"`
	SignName string   `json:"sign_name,omitempty"`
	Data     sms.Data `json:"data,omitempty"`
	Gateways []string `json:"gateways,omitempty"`
	Strategy string   `json:"strategy,omitempty"`
}

func sendRequestFromFlags(cmd *cobra.Command) (sendRequest, error) {
	f := cmd.Flags()
	var req sendRequest
	req.To, _ = f.GetString("to")
	req.IDDCode, _ = f.GetString("idd")
	req.Type, _ = f.GetString("type")
	req.Content, _ = f.GetString("content")
	req.Template, _ = f.GetString("template")
	req.SignName, _ = f.GetString("sign-name")
	req.Gateways, _ = f.GetStringSlice("gateway")
	req.Strategy, _ = f.GetString("strategy")

	pairs, _ := f.GetStringArray("data")
	data, err := parseDataPairs(pairs)
	if err != nil {
		return req, err
	}
	req.Data = data

	if strings.TrimSpace(req.To) == "" {
		return req, fmt.Errorf("--to is required")
	}
	return req, nil
}

// parseDataPairs turns key=value flags into ordered template data.
func parseDataPairs(pairs []string) (sms.Data, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	data := make(sms.Data, 0, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --data %q (expected key=value)", p)
		}
		data = append(data, sms.Param{Key: k, Value: v})
	}
	return data, nil
}

// buildMessage converts a request into a recipient and message.
func buildMessage(req sendRequest) (sms.PhoneNumber, *sms.Message, error) {
	var to sms.PhoneNumber
	if req.IDDCode != "" {
		to = sms.NewPhoneNumber(req.To, req.IDDCode)
	} else {
		var err error
		if to, err = sms.ParsePhoneNumber(req.To); err != nil {
			return to, nil, fmt.Errorf("invalid --to: %w", err)
		}
	}

	msg := sms.NewMessage()
	switch req.Type {
	case "", string(sms.TypeText):
	case string(sms.TypeVoice):
		msg.SetType(sms.TypeVoice)
	default:
		return to, nil, fmt.Errorf("invalid --type %q (expected text or voice)", req.Type)
	}
	if req.Content != "" {
		msg.SetContent(req.Content)
	}
	if req.Template != "" {
		msg.SetTemplate(req.Template)
	}
	if req.SignName != "" {
		msg.SetSignName(req.SignName)
	}
	if len(req.Data) > 0 {
		msg.SetData(req.Data)
	}
	return to, msg, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	req, err := sendRequestFromFlags(cmd)
	if err != nil {
		return err
	}

	var out sendOutput
	var sendErr error
	if remoteMode(cmd) {
		out, sendErr = sendRemote(cmd, req)
	} else {
		out, sendErr = sendLocal(cmd, req)
	}
	if len(out.Results) > 0 {
		if err := printSendOutput(cmd, out); err != nil {
			return err
		}
	}
	return sendErr
}

func sendLocal(cmd *cobra.Command, req sendRequest) (sendOutput, error) {
	to, msg, err := buildMessage(req)
	if err != nil {
		return sendOutput{}, err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return sendOutput{}, err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	svc := easysms.New(cfg, easysms.WithLogger(newCLILogger(cfg, verbose)))

	var opts []easysms.SendOption
	if req.Strategy != "" {
		strategy, err := sms.StrategyByName(req.Strategy)
		if err != nil {
			return sendOutput{}, err
		}
		opts = append(opts, easysms.Using(strategy))
	}
	if len(req.Gateways) > 0 {
		opts = append(opts, easysms.Via(req.Gateways...))
	}

	c := colorEnabled()
	sp := ui.NewStepSpinner(cmd.ErrOrStderr(), !c)
	sp.Start("Sending to " + to.UniversalNumber())
	results, err := svc.Send(cmd.Context(), to, msg, opts...)
	if err != nil {
		sp.Fail()
	} else {
		sp.Done()
	}

	out := sendOutput{To: to.UniversalNumber(), Results: make([]attempt, len(results))}
	for i, r := range results {
		out.Results[i] = attempt{Gateway: r.Gateway, Status: string(r.Status), Result: r.Response}
		if r.Err != nil {
			out.Results[i].Error = r.Err.Error()
		}
	}
	if errors.Is(err, sms.ErrNoGatewayAvailable) {
		return out, fmt.Errorf("no gateway accepted the message (%d attempts)", len(results))
	}
	return out, err
}

func sendRemote(cmd *cobra.Command, req sendRequest) (sendOutput, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return sendOutput{}, err
	}
	resp, respBody, err := apiRequest(cmd, http.MethodPost, "/api/sms/send", bytes.NewReader(body))
	if err != nil {
		return sendOutput{}, err
	}

	var out sendOutput
	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.Unmarshal(respBody, &out); err != nil {
			return out, fmt.Errorf("parsing response: %w", err)
		}
		return out, nil
	case http.StatusBadGateway:
		_ = json.Unmarshal(respBody, &out)
		out.To = req.To
		return out, fmt.Errorf("no gateway accepted the message (%d attempts)", len(out.Results))
	default:
		return out, serverError(resp.StatusCode, respBody)
	}
}

func printSendOutput(cmd *cobra.Command, out sendOutput) error {
	w := cmd.OutOrStdout()
	switch outputFormat(cmd) {
	case "json":
		return writeJSON(w, out)
	case "csv":
		rows := make([][]string, len(out.Results))
		for i, r := range out.Results {
			rows[i] = []string{out.To, r.Gateway, r.Status, r.Error}
		}
		return writeCSV(w, []string{"to", "gateway", "status", "error"}, rows)
	default:
		printAttempts(w, out.Results, colorEnabled())
		return nil
	}
}

func printAttempts(w io.Writer, results []attempt, c bool) {
	width := 0
	for _, r := range results {
		width = max(width, len(r.Gateway))
	}
	for _, r := range results {
		ok := r.Status == string(sms.StatusSuccess)
		name := bold(fmt.Sprintf("%-*s", width, r.Gateway), c)
		detail := dim(r.Status, c)
		if !ok {
			detail = red(r.Error, c)
		}
		fmt.Fprintf(w, "  %s %s  %s\n", ui.StatusSymbol(ok, c), name, detail)
	}
}
