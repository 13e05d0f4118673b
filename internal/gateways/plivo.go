package gateways

import (
	"context"
	"fmt"

	"github.com/hpyer/easysms/internal/sms"
)

const plivoDefaultBaseURL = "https://api.plivo.com"

// Plivo sends text via the Plivo REST API.
//
// Config: auth_id, auth_token, from, endpoint (base URL).
type Plivo struct {
	*sms.BaseGateway
}

func NewPlivo(cfg sms.GatewayConfig) *Plivo {
	return &Plivo{BaseGateway: sms.NewBaseGateway(cfg)}
}

func (g *Plivo) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	cfg := g.Config()
	text, err := sms.RenderText(ctx, g, msg)
	if err != nil {
		return nil, fmt.Errorf("plivo: %w", err)
	}

	authID := cfg.String("auth_id")
	endpoint := fmt.Sprintf("%s/v1/Account/%s/Message/", cfg.StringOr("endpoint", plivoDefaultBaseURL), authID)

	body, err := g.PostJSON(ctx, endpoint, map[string]string{
		"src":  cfg.String("from"),
		"dst":  to.UniversalNumber(),
		"text": text,
	}, map[string]string{"Authorization": basicAuth(authID, cfg.String("auth_token"))})
	if err != nil {
		if e := body.String("error"); e != "" {
			return body, &sms.GatewayError{Gateway: NamePlivo, Message: e, Raw: body}
		}
		return body, fmt.Errorf("plivo: %w", err)
	}
	return body, nil
}
