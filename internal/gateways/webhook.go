package gateways

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hpyer/easysms/internal/sms"
)

// Webhook delivers messages by POSTing JSON to a custom URL. The body is
// signed with HMAC-SHA256 in the X-Webhook-Signature header.
//
// Config: url, secret.
type Webhook struct {
	*sms.BaseGateway
	now func() time.Time
}

func NewWebhook(cfg sms.GatewayConfig, opts ...Option) *Webhook {
	o := buildOptions(opts)
	return &Webhook{BaseGateway: sms.NewBaseGateway(cfg), now: o.now}
}

type webhookPayload struct {
	To        string   `json:"to"`
	Body      string   `json:"body"`
	Template  string   `json:"template,omitempty"`
	Data      sms.Data `json:"data,omitempty"`
	Timestamp string   `json:"timestamp"`
}

func (g *Webhook) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	cfg := g.Config()
	text, err := sms.RenderText(ctx, g, msg)
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	f, err := resolveTemplate(ctx, g, msg, cfg)
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}

	payload, err := sms.EncodeJSON(webhookPayload{
		To:        to.UniversalNumber(),
		Body:      text,
		Template:  f.template,
		Data:      f.data,
		Timestamp: g.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("webhook: marshal request: %w", err)
	}

	body, err := g.PostJSON(ctx, cfg.String("url"), payload, map[string]string{
		"X-Webhook-Signature": SignWebhook(cfg.String("secret"), payload),
	})
	if err != nil {
		return body, fmt.Errorf("webhook: %w", err)
	}
	return body, nil
}

// SignWebhook returns the hex HMAC-SHA256 of payload under secret.
func SignWebhook(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
