package gateways

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hpyer/easysms/internal/sms"
	"github.com/hpyer/easysms/internal/sms/signer"
)

const qiniuEndpoint = "https://sms.qiniuapi.com/v1/message/single"

// Qiniu sends template messages through Qiniu Cloud SMS.
//
// Config: access_key, secret_key, sign_name (signature_id).
type Qiniu struct {
	*sms.BaseGateway
}

func NewQiniu(cfg sms.GatewayConfig) *Qiniu {
	return &Qiniu{BaseGateway: sms.NewBaseGateway(cfg)}
}

type qiniuRequest struct {
	Mobile      string   `json:"mobile"`
	TemplateID  string   `json:"template_id"`
	Parameters  sms.Data `json:"parameters,omitempty"`
	SignatureID string   `json:"signature_id,omitempty"`
}

func (g *Qiniu) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	cfg := g.Config()
	f, err := resolveTemplate(ctx, g, msg, cfg)
	if err != nil {
		return nil, fmt.Errorf("qiniu: %w", err)
	}

	payload, err := sms.EncodeJSON(qiniuRequest{
		Mobile:      to.Number(),
		TemplateID:  f.template,
		Parameters:  f.data,
		SignatureID: f.signName,
	})
	if err != nil {
		return nil, fmt.Errorf("qiniu: encode request: %w", err)
	}

	endpoint := cfg.StringOr("endpoint", qiniuEndpoint)
	auth, err := signer.QiniuAuthorization(cfg.String("access_key"), cfg.String("secret_key"),
		http.MethodPost, endpoint, "application/json", payload)
	if err != nil {
		return nil, err
	}

	body, err := g.PostJSON(ctx, endpoint, payload, map[string]string{"Authorization": auth})
	if body.Has("error") {
		return body, &sms.GatewayError{Gateway: NameQiniu, Code: body.String("error"), Message: body.String("message"), Raw: body}
	}
	if err != nil {
		return body, fmt.Errorf("qiniu: %w", err)
	}
	return body, nil
}
