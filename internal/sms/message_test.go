package sms_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpyer/easysms/internal/sms"
)

type namedGateway struct {
	*sms.BaseGateway
}

func newNamedGateway(name string) *namedGateway {
	return &namedGateway{BaseGateway: sms.NewBaseGateway(sms.GatewayConfig{"gateway": name})}
}

func (g *namedGateway) Send(context.Context, sms.PhoneNumber, *sms.Message) (sms.Body, error) {
	return sms.Body{"status": "ok"}, nil
}

func TestTextMessage(t *testing.T) {
	msg := sms.TextMessage("hello")
	g := newNamedGateway("a")

	content, err := msg.Content(t.Context(), g)
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	tpl, err := msg.Template(t.Context(), g)
	require.NoError(t, err)
	assert.Equal(t, "hello", tpl)
	assert.Equal(t, sms.TypeText, msg.Type())
	assert.False(t, msg.IsEmpty())
}

func TestMessageIsEmpty(t *testing.T) {
	var nilMsg *sms.Message
	assert.True(t, nilMsg.IsEmpty())
	assert.True(t, sms.NewMessage().IsEmpty())
	assert.True(t, sms.NewMessage().SetSignName("brand").IsEmpty())
	assert.False(t, sms.NewMessage().SetTemplate("SMS_1").IsEmpty())
	assert.False(t, sms.NewMessage().SetData(sms.NewData("code", "1234")).IsEmpty())
	assert.False(t, sms.NewMessage().SetContentFunc(func(context.Context, sms.Gateway) (string, error) {
		return "", nil
	}).IsEmpty())
}

func TestMessageResolversReceiveActiveGateway(t *testing.T) {
	msg := sms.NewMessage().
		SetTemplateFunc(func(_ context.Context, g sms.Gateway) (string, error) {
			if g.Config().String("gateway") == "aliyun" {
				return "SMS_001", nil
			}
			return "5678", nil
		}).
		SetSignNameFunc(func(_ context.Context, g sms.Gateway) (string, error) {
			return "sign-" + g.Config().String("gateway"), nil
		})

	tpl, err := msg.Template(t.Context(), newNamedGateway("aliyun"))
	require.NoError(t, err)
	assert.Equal(t, "SMS_001", tpl)

	tpl, err = msg.Template(t.Context(), newNamedGateway("tencent"))
	require.NoError(t, err)
	assert.Equal(t, "5678", tpl)

	sign, err := msg.SignName(t.Context(), newNamedGateway("qiniu"))
	require.NoError(t, err)
	assert.Equal(t, "sign-qiniu", sign)
}

func TestMessageDataResolverIsInvokedOnEveryCall(t *testing.T) {
	calls := 0
	var seen []string
	msg := sms.NewMessage().SetDataFunc(func(_ context.Context, g sms.Gateway) (sms.Data, error) {
		calls++
		seen = append(seen, g.Config().String("gateway"))
		return sms.NewData("n", calls), nil
	})

	d1, err := msg.Data(t.Context(), newNamedGateway("a"))
	require.NoError(t, err)
	d2, err := msg.Data(t.Context(), newNamedGateway("b"))
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"a", "b"}, seen)
	v1, _ := d1.Get("n")
	v2, _ := d2.Get("n")
	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)
}

func TestMessageResolverError(t *testing.T) {
	boom := errors.New("boom")
	msg := sms.NewMessage().SetContentFunc(func(context.Context, sms.Gateway) (string, error) {
		return "", boom
	})
	_, err := msg.Content(t.Context(), newNamedGateway("a"))
	assert.ErrorIs(t, err, boom)
}

func TestMessageLiteralDataIsCopied(t *testing.T) {
	src := sms.NewData("code", "1234")
	msg := sms.NewMessage().SetData(src)
	src[0].Value = "9999"

	got, err := msg.Data(t.Context(), newNamedGateway("a"))
	require.NoError(t, err)
	v, _ := got.Get("code")
	assert.Equal(t, "1234", v)

	got[0].Value = "0000"
	again, err := msg.Data(t.Context(), newNamedGateway("a"))
	require.NoError(t, err)
	v, _ = again.Get("code")
	assert.Equal(t, "1234", v)
}

func TestMessageGatewaysAreCopied(t *testing.T) {
	ids := []string{"aliyun", "tencent"}
	msg := sms.NewMessage().SetGateways(ids...)
	ids[0] = "qiniu"
	assert.Equal(t, []string{"aliyun", "tencent"}, msg.Gateways())

	got := msg.Gateways()
	got[1] = "baidu"
	assert.Equal(t, []string{"aliyun", "tencent"}, msg.Gateways())
}

func TestDataMarshalKeepsOrder(t *testing.T) {
	b, err := json.Marshal(sms.NewData("foo", 123, "bar", "abc"))
	require.NoError(t, err)
	assert.Equal(t, `{"foo":123,"bar":"abc"}`, string(b))
}

func TestDataMarshalDoesNotEscapeHTML(t *testing.T) {
	b, err := sms.EncodeJSON(sms.NewData("link", "a<b>&c"))
	require.NoError(t, err)
	assert.Equal(t, `{"link":"a<b>&c"}`, string(b))
}

func TestDataUnmarshalObjectKeepsOrder(t *testing.T) {
	var d sms.Data
	require.NoError(t, json.Unmarshal([]byte(`{"z":1,"a":"x","m":true}`), &d))
	require.Len(t, d, 3)
	assert.Equal(t, "z", d[0].Key)
	assert.Equal(t, "a", d[1].Key)
	assert.Equal(t, "m", d[2].Key)
	assert.Equal(t, []string{"1", "x", "true"}, d.Strings())
}

func TestDataUnmarshalArrayIsPositional(t *testing.T) {
	var d sms.Data
	require.NoError(t, json.Unmarshal([]byte(`["foo","bar"]`), &d))
	assert.Equal(t, sms.DataFromList("foo", "bar"), d)
}

func TestDataUnmarshalRejectsScalars(t *testing.T) {
	var d sms.Data
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &d))
}

func TestDataHelpers(t *testing.T) {
	d := sms.NewData("a", 1, "custom", "c", "b", "two", "dangling")
	assert.Len(t, d, 3)
	assert.Equal(t, sms.NewData("a", 1, "b", "two"), d.Without("custom"))
	assert.Equal(t, []any{1, "c", "two"}, d.Values())
	assert.Equal(t, map[string]any{"a": 1, "custom": "c", "b": "two"}, d.Map())

	_, ok := d.Get("missing")
	assert.False(t, ok)

	m := sms.DataFromMap(map[string]any{"b": 2, "a": 1})
	assert.Equal(t, sms.NewData("a", 1, "b", 2), m)
}
