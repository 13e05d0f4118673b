package gateways

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hpyer/easysms/internal/sms"
)

// Log logs messages instead of delivering them. Useful for development.
type Log struct {
	*sms.BaseGateway
	logger *slog.Logger
}

func NewLog(cfg sms.GatewayConfig, opts ...Option) *Log {
	o := buildOptions(opts)
	return &Log{BaseGateway: sms.NewBaseGateway(cfg), logger: o.logger}
}

func (g *Log) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	text, err := sms.RenderText(ctx, g, msg)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	g.logger.InfoContext(ctx, "sms.Log", "to", to.UniversalNumber(), "body", text)
	return sms.Body{"status": "logged"}, nil
}
