package gateways

import (
	"context"
	"fmt"

	"github.com/hpyer/easysms/internal/sms"
)

const msg91DefaultBaseURL = "https://control.msg91.com"

// MSG91 sends template messages via the MSG91 flow API. Each data entry
// becomes a template variable on the recipient.
//
// Config: auth_key, template (flow template id), endpoint (base URL).
type MSG91 struct {
	*sms.BaseGateway
}

func NewMSG91(cfg sms.GatewayConfig) *MSG91 {
	return &MSG91{BaseGateway: sms.NewBaseGateway(cfg)}
}

type msg91Request struct {
	TemplateID string           `json:"template_id"`
	Recipients []map[string]any `json:"recipients"`
}

func (g *MSG91) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	cfg := g.Config()
	f, err := resolveTemplate(ctx, g, msg, cfg)
	if err != nil {
		return nil, fmt.Errorf("msg91: %w", err)
	}
	if f.template == "" {
		f.template = cfg.String("template")
	}

	recipient := f.data.Map()
	recipient["mobiles"] = to.IDDCode() + to.Number()

	body, err := g.PostJSON(ctx, cfg.StringOr("endpoint", msg91DefaultBaseURL)+"/api/v5/flow/", msg91Request{
		TemplateID: f.template,
		Recipients: []map[string]any{recipient},
	}, map[string]string{"authkey": cfg.String("auth_key")})
	if body.String("type") == "error" {
		return body, &sms.GatewayError{Gateway: NameMSG91, Message: body.String("message"), Raw: body}
	}
	if err != nil {
		return body, fmt.Errorf("msg91: %w", err)
	}
	return body, nil
}
