package gateways_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpyer/easysms/internal/gateways"
	"github.com/hpyer/easysms/internal/sms"
	"github.com/hpyer/easysms/internal/sms/signer"
)

func newQiniu(endpoint string) *gateways.Qiniu {
	return gateways.NewQiniu(sms.GatewayConfig{
		"endpoint":   endpoint,
		"access_key": "mock-access_key",
		"secret_key": "mock-secret_key",
		"sign_name":  "mock-sign_name",
	})
}

func TestQiniuSendSuccess(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{"message_id":"1234567890"}`)

	body, err := newQiniu(srv.URL).Send(t.Context(), sms.NewPhoneNumber("13812345678"), templateMessage())
	require.NoError(t, err)
	assert.Equal(t, "1234567890", body.String("message_id"))

	wantBody := `{"mobile":"13812345678","template_id":"mock-template","parameters":{"foo":123,"bar":"abc"},"signature_id":"mock-sign_name"}`
	assert.Equal(t, wantBody, string(got.Body))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))

	wantAuth, err := signer.QiniuAuthorization("mock-access_key", "mock-secret_key",
		http.MethodPost, srv.URL, "application/json", []byte(wantBody))
	require.NoError(t, err)
	assert.Equal(t, wantAuth, got.Header.Get("Authorization"))
}

func TestQiniuOmitsEmptyParameters(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{"message_id":"1"}`)

	g := gateways.NewQiniu(sms.GatewayConfig{"endpoint": srv.URL})
	_, err := g.Send(t.Context(), sms.NewPhoneNumber("13812345678"), sms.NewMessage().SetTemplate("t"))
	require.NoError(t, err)
	assert.Equal(t, `{"mobile":"13812345678","template_id":"t"}`, string(got.Body))
}

func TestQiniuSendVendorError(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadRequest, `{"error":"BadToken","message":"invalid token","request_id":"r"}`)

	_, err := newQiniu(srv.URL).Send(t.Context(), sms.NewPhoneNumber("13812345678"), templateMessage())
	var gwErr *sms.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "BadToken", gwErr.Code)
	assert.Equal(t, "invalid token", gwErr.Message)
}
