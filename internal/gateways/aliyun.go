package gateways

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hpyer/easysms/internal/sms"
	"github.com/hpyer/easysms/internal/sms/signer"
)

const aliyunEndpoint = "https://dysmsapi.aliyuncs.com"

// Aliyun sends template messages through Alibaba Cloud SMS (dysmsapi).
//
// Config: access_key_id, access_key_secret, sign_name, region (cn-hangzhou).
type Aliyun struct {
	*sms.BaseGateway
	now   func() time.Time
	nonce func() string
}

func NewAliyun(cfg sms.GatewayConfig, opts ...Option) *Aliyun {
	o := buildOptions(opts)
	return &Aliyun{BaseGateway: sms.NewBaseGateway(cfg), now: o.now, nonce: o.nonce}
}

func (g *Aliyun) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	cfg := g.Config()
	f, err := resolveTemplate(ctx, g, msg, cfg)
	if err != nil {
		return nil, fmt.Errorf("aliyun: %w", err)
	}
	param, err := sms.EncodeJSON(f.data)
	if err != nil {
		return nil, fmt.Errorf("aliyun: encode data: %w", err)
	}

	phone := to.Number()
	if to.IDDCode() != "" {
		phone = to.ZeroPrefixedNumber()
	}

	params := map[string]string{
		"RegionId":         cfg.StringOr("region", "cn-hangzhou"),
		"AccessKeyId":      cfg.String("access_key_id"),
		"Format":           "JSON",
		"SignatureMethod":  "HMAC-SHA1",
		"SignatureVersion": "1.0",
		"SignatureNonce":   g.nonce(),
		"Timestamp":        g.now().UTC().Format("2006-01-02T15:04:05Z"),
		"Action":           "SendSms",
		"Version":          "2017-05-25",
		"PhoneNumbers":     phone,
		"SignName":         f.signName,
		"TemplateCode":     f.template,
		"TemplateParam":    string(param),
	}
	params["Signature"] = signer.AliyunRPC(http.MethodGet, params, cfg.String("access_key_secret"))

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}

	body, err := g.Get(ctx, cfg.StringOr("endpoint", aliyunEndpoint), query, nil)
	code := body.String("Code")
	if err != nil && (code == "" || code == "OK") {
		return body, fmt.Errorf("aliyun: %w", err)
	}
	if code != "OK" {
		return body, &sms.GatewayError{Gateway: NameAliyun, Code: code, Message: body.String("Message"), Raw: body, Err: err}
	}
	return body, nil
}
