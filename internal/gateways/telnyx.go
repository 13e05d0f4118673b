package gateways

import (
	"context"
	"fmt"

	"github.com/hpyer/easysms/internal/sms"
)

const telnyxDefaultBaseURL = "https://api.telnyx.com"

// Telnyx sends text via the Telnyx messaging API.
//
// Config: api_key, from, endpoint (base URL).
type Telnyx struct {
	*sms.BaseGateway
}

func NewTelnyx(cfg sms.GatewayConfig) *Telnyx {
	return &Telnyx{BaseGateway: sms.NewBaseGateway(cfg)}
}

func (g *Telnyx) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	cfg := g.Config()
	text, err := sms.RenderText(ctx, g, msg)
	if err != nil {
		return nil, fmt.Errorf("telnyx: %w", err)
	}

	body, err := g.PostJSON(ctx, cfg.StringOr("endpoint", telnyxDefaultBaseURL)+"/v2/messages", map[string]string{
		"from": cfg.String("from"),
		"to":   to.UniversalNumber(),
		"text": text,
	}, map[string]string{"Authorization": "Bearer " + cfg.String("api_key")})
	if err != nil {
		if errs := body.Slice("errors"); len(errs) > 0 {
			first, _ := errs[0].(map[string]any)
			e := sms.Body(first)
			return body, &sms.GatewayError{Gateway: NameTelnyx, Code: e.String("code"), Message: e.String("title"), Raw: body}
		}
		return body, fmt.Errorf("telnyx: %w", err)
	}
	return body, nil
}
