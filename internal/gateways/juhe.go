package gateways

import (
	"context"
	"fmt"

	"github.com/hpyer/easysms/internal/sms"
)

const juheEndpoint = "http://v.juhe.cn/sms/send"

// Juhe sends template messages through the Juhe data SMS API.
//
// Config: app_key.
type Juhe struct {
	*sms.BaseGateway
}

func NewJuhe(cfg sms.GatewayConfig) *Juhe {
	return &Juhe{BaseGateway: sms.NewBaseGateway(cfg)}
}

type juheRequest struct {
	Key    string `json:"key"`
	Mobile string `json:"mobile"`
	TplID  string `json:"tpl_id"`
	Vars   string `json:"vars"`
	DType  string `json:"dtype"`
}

func (g *Juhe) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	cfg := g.Config()
	f, err := resolveTemplate(ctx, g, msg, cfg)
	if err != nil {
		return nil, fmt.Errorf("juhe: %w", err)
	}
	vars, err := sms.EncodeJSON(f.data)
	if err != nil {
		return nil, fmt.Errorf("juhe: encode data: %w", err)
	}

	body, err := g.PostJSON(ctx, cfg.StringOr("endpoint", juheEndpoint), juheRequest{
		Key:    cfg.String("app_key"),
		Mobile: to.Number(),
		TplID:  f.template,
		Vars:   string(vars),
		DType:  "json",
	}, nil)
	if code := body.String("error_code"); code != "" && code != "0" {
		return body, &sms.GatewayError{Gateway: NameJuhe, Code: code, Message: body.String("reason"), Raw: body}
	}
	if err != nil {
		return body, fmt.Errorf("juhe: %w", err)
	}
	return body, nil
}
