package gateways

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/hpyer/easysms/internal/sms"
)

const yunpianDomain = "sms.yunpian.com"

// signedContent matches text that already starts with a 【sign】 prefix.
var signedContent = regexp.MustCompile(`^【.+】.+`)

// Yunpian sends through the Yunpian v2 API. A message with a template uses
// tpl_single_send; otherwise the content goes out via single_send.
//
// Config: api_key, sign_name, domain (sms.yunpian.com).
type Yunpian struct {
	*sms.BaseGateway
}

func NewYunpian(cfg sms.GatewayConfig) *Yunpian {
	return &Yunpian{BaseGateway: sms.NewBaseGateway(cfg)}
}

func (g *Yunpian) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	cfg := g.Config()
	template, err := msg.Template(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("yunpian: resolve template: %w", err)
	}

	form := url.Values{}
	form.Set("apikey", cfg.String("api_key"))
	form.Set("mobile", to.UniversalNumber())

	fn := "single_send"
	if template != "" {
		fn = "tpl_single_send"
		data, err := msg.Data(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("yunpian: resolve data: %w", err)
		}
		pairs := make([]string, 0, len(data))
		for _, p := range data {
			pairs = append(pairs, url.QueryEscape("#"+p.Key+"#")+"="+url.QueryEscape(fmt.Sprint(p.Value)))
		}
		form.Set("tpl_id", template)
		form.Set("tpl_value", strings.Join(pairs, "&"))
	} else {
		content, err := msg.Content(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("yunpian: resolve content: %w", err)
		}
		if !signedContent.MatchString(content) {
			sign, err := msg.SignName(ctx, g)
			if err != nil {
				return nil, fmt.Errorf("yunpian: resolve sign name: %w", err)
			}
			if sign == "" {
				sign = cfg.String("sign_name")
			}
			content = sign + content
		}
		form.Set("text", content)
	}

	base := cfg.StringOr("endpoint", "https://"+cfg.StringOr("domain", yunpianDomain))
	body, err := g.PostForm(ctx, base+"/v2/sms/"+fn+".json", form, nil)
	if code := body.String("code"); code != "" && code != "0" {
		return body, &sms.GatewayError{Gateway: NameYunpian, Code: code, Message: body.String("msg"), Raw: body}
	}
	if err != nil {
		return body, fmt.Errorf("yunpian: %w", err)
	}
	return body, nil
}
