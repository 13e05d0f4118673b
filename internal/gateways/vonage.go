package gateways

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hpyer/easysms/internal/sms"
)

const vonageDefaultBaseURL = "https://rest.nexmo.com"

// Vonage sends text via the Vonage (Nexmo) SMS API.
//
// Config: api_key, api_secret, from, endpoint (base URL).
type Vonage struct {
	*sms.BaseGateway
}

func NewVonage(cfg sms.GatewayConfig) *Vonage {
	return &Vonage{BaseGateway: sms.NewBaseGateway(cfg)}
}

func (g *Vonage) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	cfg := g.Config()
	text, err := sms.RenderText(ctx, g, msg)
	if err != nil {
		return nil, fmt.Errorf("vonage: %w", err)
	}

	form := url.Values{}
	form.Set("api_key", cfg.String("api_key"))
	form.Set("api_secret", cfg.String("api_secret"))
	form.Set("from", cfg.String("from"))
	// Vonage wants the number without a leading '+'.
	form.Set("to", to.IDDCode()+to.Number())
	form.Set("text", text)

	body, err := g.PostForm(ctx, cfg.StringOr("endpoint", vonageDefaultBaseURL)+"/sms/json", form, nil)
	if err != nil {
		return body, fmt.Errorf("vonage: %w", err)
	}

	messages := body.Slice("messages")
	if len(messages) == 0 {
		return body, fmt.Errorf("vonage: empty response")
	}
	first, _ := messages[0].(map[string]any)
	m := sms.Body(first)
	if status := m.String("status"); status != "0" {
		return body, &sms.GatewayError{Gateway: NameVonage, Code: status, Message: m.String("error-text"), Raw: body}
	}
	return body, nil
}
