package gateways_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpyer/easysms/internal/gateways"
	"github.com/hpyer/easysms/internal/sms"
)

// mockSNSPublisher implements gateways.SNSPublisher for testing.
type mockSNSPublisher struct {
	publishFunc func(ctx context.Context, phoneNumber, message string) (string, error)
}

func (m *mockSNSPublisher) Publish(ctx context.Context, phoneNumber, message string) (string, error) {
	if m.publishFunc == nil {
		return "", nil
	}
	return m.publishFunc(ctx, phoneNumber, message)
}

func TestSNSSendSuccess(t *testing.T) {
	mock := &mockSNSPublisher{
		publishFunc: func(ctx context.Context, phoneNumber, message string) (string, error) {
			assert.Equal(t, "+15551234567", phoneNumber)
			assert.Equal(t, "Your code is 123456", message)
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return "sns-msg-id-abc", nil
		},
	}

	g := gateways.NewSNS(sms.GatewayConfig{}, mock)
	body, err := g.Send(t.Context(), sms.NewPhoneNumber("5551234567", "1"), sms.TextMessage("Your code is 123456"))
	require.NoError(t, err)
	assert.Equal(t, "sns-msg-id-abc", body.String("message_id"))
	assert.Equal(t, "sent", body.String("status"))
}

func TestSNSSendError(t *testing.T) {
	mock := &mockSNSPublisher{
		publishFunc: func(ctx context.Context, phoneNumber, message string) (string, error) {
			return "", fmt.Errorf("AccessDeniedException: not authorized")
		},
	}

	g := gateways.NewSNS(sms.GatewayConfig{}, mock)
	_, err := g.Send(t.Context(), sms.NewPhoneNumber("5551234567", "1"), sms.TextMessage("hello"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sns: publish:")
	assert.Contains(t, err.Error(), "AccessDeniedException")
}

func TestSNSBuiltinUsesInjectedPublisher(t *testing.T) {
	var called bool
	mock := &mockSNSPublisher{
		publishFunc: func(ctx context.Context, phoneNumber, message string) (string, error) {
			called = true
			return "id", nil
		},
	}
	create := gateways.Builtins(gateways.WithSNSPublisher(mock))[gateways.NameSNS]
	g, err := create(sms.GatewayConfig{"region": "eu-west-1"})
	require.NoError(t, err)

	_, err = g.Send(t.Context(), sms.NewPhoneNumber("5551234567", "1"), sms.TextMessage("hi"))
	require.NoError(t, err)
	assert.True(t, called)
}

func TestSNSImplementsGateway(t *testing.T) {
	var _ sms.Gateway = (*gateways.SNS)(nil)
}
