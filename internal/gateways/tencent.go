package gateways

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hpyer/easysms/internal/sms"
	"github.com/hpyer/easysms/internal/sms/signer"
)

const (
	tencentHost        = "sms.tencentcloudapi.com"
	tencentContentType = "application/json; charset=utf-8"
)

// Tencent sends template messages through Tencent Cloud SMS API 2021-01-11.
//
// Config: secret_id, secret_key, sdk_app_id, sign_name, region (ap-guangzhou).
type Tencent struct {
	*sms.BaseGateway
	now func() time.Time
}

func NewTencent(cfg sms.GatewayConfig, opts ...Option) *Tencent {
	o := buildOptions(opts)
	return &Tencent{BaseGateway: sms.NewBaseGateway(cfg), now: o.now}
}

type tencentRequest struct {
	PhoneNumberSet   []string `json:"PhoneNumberSet"`
	SmsSdkAppID      string   `json:"SmsSdkAppId"`
	SignName         string   `json:"SignName"`
	TemplateID       string   `json:"TemplateId"`
	TemplateParamSet []string `json:"TemplateParamSet"`
}

func (g *Tencent) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	cfg := g.Config()
	f, err := resolveTemplate(ctx, g, msg, cfg)
	if err != nil {
		return nil, fmt.Errorf("tencent: %w", err)
	}

	payload, err := sms.EncodeJSON(tencentRequest{
		PhoneNumberSet:   []string{to.UniversalNumber()},
		SmsSdkAppID:      cfg.String("sdk_app_id"),
		SignName:         f.signName,
		TemplateID:       f.template,
		TemplateParamSet: f.data.Strings(),
	})
	if err != nil {
		return nil, fmt.Errorf("tencent: encode request: %w", err)
	}

	ts := g.now().Unix()
	auth := signer.TC3Authorization(signer.TC3Request{
		SecretID:    cfg.String("secret_id"),
		SecretKey:   cfg.String("secret_key"),
		Service:     "sms",
		Host:        tencentHost,
		ContentType: tencentContentType,
		Timestamp:   ts,
		Payload:     payload,
	})

	headers := map[string]string{
		"Authorization":  auth,
		"Content-Type":   tencentContentType,
		"Host":           tencentHost,
		"X-TC-Action":    "SendSms",
		"X-TC-Region":    cfg.StringOr("region", "ap-guangzhou"),
		"X-TC-Timestamp": strconv.FormatInt(ts, 10),
		"X-TC-Version":   "2021-01-11",
	}

	body, err := g.PostJSON(ctx, cfg.StringOr("endpoint", "https://"+tencentHost), payload, headers)
	resp := body.Map("Response")
	if apiErr := resp.Map("Error"); apiErr != nil {
		return body, &sms.GatewayError{Gateway: NameTencent, Code: apiErr.String("Code"), Message: apiErr.String("Message"), Raw: body}
	}
	if err != nil {
		return body, fmt.Errorf("tencent: %w", err)
	}
	for _, item := range resp.Slice("SendStatusSet") {
		status, _ := item.(map[string]any)
		st := sms.Body(status)
		if !strings.EqualFold(st.String("Code"), "ok") {
			return body, &sms.GatewayError{Gateway: NameTencent, Code: st.String("Code"), Message: st.String("Message"), Raw: body}
		}
	}
	return body, nil
}
