package gateways

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/hpyer/easysms/internal/sms"
)

const twilioDefaultBaseURL = "https://api.twilio.com"

// Twilio sends text via the Twilio REST API. Templates are rendered locally.
//
// Config: account_sid, auth_token, from, endpoint (base URL).
type Twilio struct {
	*sms.BaseGateway
}

func NewTwilio(cfg sms.GatewayConfig) *Twilio {
	return &Twilio{BaseGateway: sms.NewBaseGateway(cfg)}
}

func (g *Twilio) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	cfg := g.Config()
	text, err := sms.RenderText(ctx, g, msg)
	if err != nil {
		return nil, fmt.Errorf("twilio: %w", err)
	}

	sid := cfg.String("account_sid")
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", cfg.StringOr("endpoint", twilioDefaultBaseURL), sid)

	form := url.Values{}
	form.Set("To", to.UniversalNumber())
	form.Set("From", cfg.String("from"))
	form.Set("Body", text)

	body, err := g.PostForm(ctx, endpoint, form, map[string]string{
		"Authorization": basicAuth(sid, cfg.String("auth_token")),
	})
	if err != nil {
		if m := body.String("message"); m != "" {
			return body, &sms.GatewayError{Gateway: NameTwilio, Code: body.String("code"), Message: m, Raw: body}
		}
		return body, fmt.Errorf("twilio: %w", err)
	}
	return body, nil
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}
