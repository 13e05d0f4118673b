package gateways

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/hpyer/easysms/internal/sms"
)

const uroraEndpoint = "https://api.sms.jpush.cn/v1/messages"

// Urora sends template messages through JPush SMS (JSMS).
//
// Config: app_key, app_secret, sign_name (sign_id), template (temp_id).
type Urora struct {
	*sms.BaseGateway
}

func NewUrora(cfg sms.GatewayConfig) *Urora {
	return &Urora{BaseGateway: sms.NewBaseGateway(cfg)}
}

type uroraRequest struct {
	Mobile   string   `json:"mobile"`
	SignID   string   `json:"sign_id"`
	TempID   string   `json:"temp_id"`
	TempPara sms.Data `json:"temp_para"`
}

func (g *Urora) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	cfg := g.Config()
	f, err := resolveTemplate(ctx, g, msg, cfg)
	if err != nil {
		return nil, fmt.Errorf("urora: %w", err)
	}
	if f.template == "" {
		f.template = cfg.String("template")
	}

	auth := base64.StdEncoding.EncodeToString([]byte(cfg.String("app_key") + ":" + cfg.String("app_secret")))
	body, err := g.PostJSON(ctx, cfg.StringOr("endpoint", uroraEndpoint), uroraRequest{
		Mobile:   to.UniversalNumber(),
		SignID:   f.signName,
		TempID:   f.template,
		TempPara: f.data,
	}, map[string]string{"Authorization": "Basic " + auth})

	// JSMS reports failures either flat or nested under "error".
	errBody := body
	if nested := body.Map("error"); nested != nil {
		errBody = nested
	}
	if code := errBody.String("code"); code != "" && code != "0" {
		return body, &sms.GatewayError{Gateway: NameUrora, Code: code, Message: errBody.String("message"), Raw: body}
	}
	if err != nil {
		return body, fmt.Errorf("urora: %w", err)
	}
	return body, nil
}
