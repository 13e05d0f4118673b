package sms

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hpyer/easysms/internal/observability"
)

var tracer = otel.Tracer("github.com/hpyer/easysms/internal/sms")

// Status is the outcome of one gateway attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result records one gateway attempt.
type Result struct {
	Gateway  string
	Status   Status
	Response Body
	Err      error
}

// GatewayResolver returns the gateway registered under id.
type GatewayResolver interface {
	Gateway(id string) (Gateway, error)
}

// Messenger tries gateways one after another until one succeeds.
type Messenger struct {
	gateways GatewayResolver
	logger   *slog.Logger
}

// NewMessenger creates a Messenger. If logger is nil, slog.Default() is used.
func NewMessenger(gateways GatewayResolver, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Messenger{gateways: gateways, logger: logger}
}

// Send attempts ids in order and stops at the first success. When every
// attempt fails it returns the results together with a
// *NoGatewayAvailableError.
func (m *Messenger) Send(ctx context.Context, to PhoneNumber, msg *Message, ids []string) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "sms.Send", trace.WithAttributes(
		attribute.StringSlice("sms.gateways", ids),
	))
	defer span.End()

	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		body, err := m.attempt(ctx, id, to, msg)
		if err != nil {
			results = append(results, Result{Gateway: id, Status: StatusFailure, Err: err})
			continue
		}
		results = append(results, Result{Gateway: id, Status: StatusSuccess, Response: body})
		span.SetAttributes(attribute.String("sms.gateway", id))
		return results, nil
	}

	err := &NoGatewayAvailableError{Results: results}
	span.RecordError(err)
	span.SetStatus(codes.Error, "no gateway available")
	m.logger.Error("sms send failed on all gateways", "gateways", ids, "error", err.LastException())
	return results, err
}

func (m *Messenger) attempt(ctx context.Context, id string, to PhoneNumber, msg *Message) (Body, error) {
	ctx, span := tracer.Start(ctx, "sms.attempt", trace.WithAttributes(
		attribute.String("sms.gateway", id),
	))
	defer span.End()

	start := time.Now()
	body, err := m.send(ctx, id, to, msg)
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	observability.ObserveAttempt(id, string(status), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.logger.Warn("sms gateway attempt failed", "gateway", id, "error", err)
		return nil, err
	}
	m.logger.Debug("sms gateway attempt succeeded", "gateway", id)
	return body, nil
}

func (m *Messenger) send(ctx context.Context, id string, to PhoneNumber, msg *Message) (Body, error) {
	g, err := m.gateways.Gateway(id)
	if err != nil {
		return nil, err
	}
	return g.Send(ctx, to, msg)
}
