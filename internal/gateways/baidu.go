package gateways

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hpyer/easysms/internal/sms"
	"github.com/hpyer/easysms/internal/sms/signer"
)

const (
	baiduHost = "smsv3.bj.baidubce.com"
	baiduPath = "/api/v3/sendSms"
)

// Baidu sends template messages through Baidu Cloud SMS v3.
//
// Config: ak, sk, sign_name (signatureId), domain (smsv3.bj.baidubce.com).
// The data keys "custom" and "userExtId" are sent as top-level fields.
type Baidu struct {
	*sms.BaseGateway
	now func() time.Time
}

func NewBaidu(cfg sms.GatewayConfig, opts ...Option) *Baidu {
	o := buildOptions(opts)
	return &Baidu{BaseGateway: sms.NewBaseGateway(cfg), now: o.now}
}

type baiduRequest struct {
	SignatureID string   `json:"signatureId"`
	Mobile      string   `json:"mobile"`
	Template    string   `json:"template"`
	ContentVar  sms.Data `json:"contentVar"`
	Custom      any      `json:"custom,omitempty"`
	UserExtID   any      `json:"userExtId,omitempty"`
}

func (g *Baidu) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	cfg := g.Config()
	f, err := resolveTemplate(ctx, g, msg, cfg)
	if err != nil {
		return nil, fmt.Errorf("baidu: %w", err)
	}

	req := baiduRequest{
		SignatureID: f.signName,
		Mobile:      to.Number(),
		Template:    f.template,
		ContentVar:  f.data.Without("custom", "userExtId"),
	}
	req.Custom, _ = f.data.Get("custom")
	req.UserExtID, _ = f.data.Get("userExtId")

	payload, err := sms.EncodeJSON(req)
	if err != nil {
		return nil, fmt.Errorf("baidu: encode request: %w", err)
	}

	host := cfg.StringOr("domain", baiduHost)
	date := g.now().UTC().Format("2006-01-02T15:04:05Z")
	signed := map[string]string{
		"host":       host,
		"x-bce-date": date,
	}
	headers := map[string]string{
		"Host":       host,
		"x-bce-date": date,
		"Authorization": signer.BCEAuthorization(signer.BCERequest{
			AccessKey: cfg.String("ak"),
			SecretKey: cfg.String("sk"),
			Timestamp: date,
			Method:    http.MethodPost,
			Path:      baiduPath,
			Headers:   signed,
		}),
	}

	body, err := g.PostJSON(ctx, cfg.StringOr("endpoint", "http://"+host)+baiduPath, payload, headers)
	code := body.String("code")
	if err != nil && (code == "" || code == "1000") {
		return body, fmt.Errorf("baidu: %w", err)
	}
	if code != "1000" {
		return body, &sms.GatewayError{Gateway: NameBaidu, Code: code, Message: body.String("message"), Raw: body, Err: err}
	}
	return body, nil
}
