// Package gateways holds the built-in SMS provider adapters. Every adapter
// embeds *sms.BaseGateway and reads its credentials from sms.GatewayConfig.
// The "endpoint" key overrides a vendor's API URL.
package gateways

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hpyer/easysms/internal/sms"
)

// Option customizes the adapters built by Builtins and the New* constructors.
type Option func(*options)

type options struct {
	now       func() time.Time
	nonce     func() string
	logger    *slog.Logger
	publisher SNSPublisher
}

func buildOptions(opts []Option) options {
	o := options{
		now:   time.Now,
		nonce: uuid.NewString,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithClock replaces time.Now for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithNonce replaces the random request nonce generator.
func WithNonce(nonce func() string) Option {
	return func(o *options) { o.nonce = nonce }
}

// WithLogger sets the logger used by the test and log gateways.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSNSPublisher makes the sns gateway publish through p instead of an
// AWS client built from the gateway config.
func WithSNSPublisher(p SNSPublisher) Option {
	return func(o *options) { o.publisher = p }
}

// Names of the built-in adapters.
const (
	NameAliyun  = "aliyun"
	NameTencent = "tencent"
	NameBaidu   = "baidu"
	NameQiniu   = "qiniu"
	NameYunpian = "yunpian"
	NameJuhe    = "juhe"
	NameUrora   = "urora"
	NameTest    = "test"
	NameTwilio  = "twilio"
	NamePlivo   = "plivo"
	NameVonage  = "vonage"
	NameTelnyx  = "telnyx"
	NameMSG91   = "msg91"
	NameSNS     = "sns"
	NameWebhook = "webhook"
	NameLog     = "log"
)

// Builtins returns a creator for every built-in adapter, keyed by name.
func Builtins(opts ...Option) map[string]sms.Creator {
	return map[string]sms.Creator{
		NameAliyun:  func(c sms.GatewayConfig) (sms.Gateway, error) { return NewAliyun(c, opts...), nil },
		NameTencent: func(c sms.GatewayConfig) (sms.Gateway, error) { return NewTencent(c, opts...), nil },
		NameBaidu:   func(c sms.GatewayConfig) (sms.Gateway, error) { return NewBaidu(c, opts...), nil },
		NameQiniu:   func(c sms.GatewayConfig) (sms.Gateway, error) { return NewQiniu(c), nil },
		NameYunpian: func(c sms.GatewayConfig) (sms.Gateway, error) { return NewYunpian(c), nil },
		NameJuhe:    func(c sms.GatewayConfig) (sms.Gateway, error) { return NewJuhe(c), nil },
		NameUrora:   func(c sms.GatewayConfig) (sms.Gateway, error) { return NewUrora(c), nil },
		NameTest:    func(c sms.GatewayConfig) (sms.Gateway, error) { return NewTest(c, opts...), nil },
		NameTwilio:  func(c sms.GatewayConfig) (sms.Gateway, error) { return NewTwilio(c), nil },
		NamePlivo:   func(c sms.GatewayConfig) (sms.Gateway, error) { return NewPlivo(c), nil },
		NameVonage:  func(c sms.GatewayConfig) (sms.Gateway, error) { return NewVonage(c), nil },
		NameTelnyx:  func(c sms.GatewayConfig) (sms.Gateway, error) { return NewTelnyx(c), nil },
		NameMSG91:   func(c sms.GatewayConfig) (sms.Gateway, error) { return NewMSG91(c), nil },
		NameSNS:     func(c sms.GatewayConfig) (sms.Gateway, error) { return newSNSFromConfig(c, opts...) },
		NameWebhook: func(c sms.GatewayConfig) (sms.Gateway, error) { return NewWebhook(c, opts...), nil },
		NameLog:     func(c sms.GatewayConfig) (sms.Gateway, error) { return NewLog(c, opts...), nil },
	}
}

// templateFields are the message parts template-based vendors need.
type templateFields struct {
	template string
	signName string
	data     sms.Data
}

// resolveTemplate resolves template, data and sign name for g, falling back
// to the configured sign_name.
func resolveTemplate(ctx context.Context, g sms.Gateway, msg *sms.Message, cfg sms.GatewayConfig) (templateFields, error) {
	var f templateFields
	var err error
	if f.template, err = msg.Template(ctx, g); err != nil {
		return f, fmt.Errorf("resolve template: %w", err)
	}
	if f.data, err = msg.Data(ctx, g); err != nil {
		return f, fmt.Errorf("resolve data: %w", err)
	}
	if f.signName, err = msg.SignName(ctx, g); err != nil {
		return f, fmt.Errorf("resolve sign name: %w", err)
	}
	if f.signName == "" {
		f.signName = cfg.String("sign_name")
	}
	return f, nil
}
