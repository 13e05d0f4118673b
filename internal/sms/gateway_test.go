package sms_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpyer/easysms/internal/sms"
)

func TestBaseGatewayTimeoutFallbacks(t *testing.T) {
	t.Parallel()
	b := sms.NewBaseGateway(nil)
	assert.Equal(t, sms.DefaultTimeout, b.Timeout())
	assert.Equal(t, 5*time.Second, b.Timeout())

	b = sms.NewBaseGateway(sms.GatewayConfig{"timeout": int64(1500)})
	assert.Equal(t, 1500*time.Millisecond, b.Timeout())

	b.SetTimeout(2 * time.Second)
	assert.Equal(t, 2*time.Second, b.Timeout())
}

func TestBaseGatewayConfigIsCopied(t *testing.T) {
	t.Parallel()
	cfg := sms.GatewayConfig{"gateway": "aliyun", "sign_name": "a"}
	b := sms.NewBaseGateway(cfg)
	cfg["sign_name"] = "b"
	assert.Equal(t, "a", b.Config().String("sign_name"))
	assert.Equal(t, "aliyun", b.Name())

	got := b.Config()
	got["sign_name"] = "c"
	assert.Equal(t, "a", b.Config().String("sign_name"))

	b.SetConfig(sms.GatewayConfig{"gateway": "tencent"})
	assert.Equal(t, "tencent", b.Name())
}

func TestGatewayConfigAccessors(t *testing.T) {
	t.Parallel()
	cfg := sms.GatewayConfig{
		"s":     "x",
		"n":     int64(42),
		"f":     float64(7),
		"ns":    "13",
		"b":     true,
		"bs":    "true",
		"empty": "",
		"nil":   nil,
	}
	assert.Equal(t, "x", cfg.String("s"))
	assert.Equal(t, "42", cfg.String("n"))
	assert.Equal(t, "", cfg.String("missing"))
	assert.Equal(t, "def", cfg.StringOr("empty", "def"))
	assert.Equal(t, "x", cfg.StringOr("s", "def"))

	n, ok := cfg.Int("n")
	assert.True(t, ok)
	assert.Equal(t, 42, n)
	n, _ = cfg.Int("f")
	assert.Equal(t, 7, n)
	n, _ = cfg.Int("ns")
	assert.Equal(t, 13, n)
	_, ok = cfg.Int("s")
	assert.False(t, ok)

	assert.True(t, cfg.Bool("b"))
	assert.True(t, cfg.Bool("bs"))
	assert.False(t, cfg.Bool("s"))

	assert.True(t, cfg.Has("empty"))
	assert.False(t, cfg.Has("nil"))
	assert.False(t, cfg.Has("missing"))
}

func TestBaseGatewayGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "v 1", r.URL.Query().Get("k"))
		assert.Equal(t, "yes", r.URL.Query().Get("existing"))
		assert.Equal(t, "abc", r.Header.Get("X-Test"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Code":"OK","count":3}`))
	}))
	defer srv.Close()

	b := sms.NewBaseGateway(nil)
	body, err := b.Get(t.Context(), srv.URL+"/?existing=yes", url.Values{"k": {"v 1"}}, map[string]string{"X-Test": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "OK", body.String("Code"))
	n, ok := body.Int("count")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestBaseGatewayPostForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "13812345678", r.FormValue("mobile"))
		w.Write([]byte(`{"code":0}`))
	}))
	defer srv.Close()

	body, err := sms.NewBaseGateway(nil).PostForm(t.Context(), srv.URL, url.Values{"mobile": {"13812345678"}}, nil)
	require.NoError(t, err)
	code, _ := body.Int("code")
	assert.Equal(t, 0, code)
}

func TestBaseGatewayPostJSONSendsBytesVerbatim(t *testing.T) {
	payload := []byte(`{"b":1,"a":"<x>"}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ := io.ReadAll(r.Body)
		assert.Equal(t, string(payload), string(got))
		assert.Equal(t, "application/json; charset=utf-8", r.Header.Get("Content-Type"))
		assert.Equal(t, "example.com", r.Host)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	_, err := sms.NewBaseGateway(nil).PostJSON(t.Context(), srv.URL, payload, map[string]string{
		"Content-Type": "application/json; charset=utf-8",
		"Host":         "example.com",
	})
	require.NoError(t, err)
}

func TestBaseGatewayPostJSONMarshalsValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"vars":{"foo":123}}`, string(got))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`[1,2]`))
	}))
	defer srv.Close()

	body, err := sms.NewBaseGateway(nil).PostJSON(t.Context(), srv.URL, map[string]any{"vars": sms.NewData("foo", 123)}, nil)
	require.NoError(t, err)
	assert.Len(t, body["data"], 2)
}

func TestBaseGatewayNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`plain text`))
	}))
	defer srv.Close()

	body, err := sms.NewBaseGateway(nil).Get(t.Context(), srv.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", body.String("body"))
}

func TestBaseGatewayStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"bad number"}`))
	}))
	defer srv.Close()

	body, err := sms.NewBaseGateway(nil).Get(t.Context(), srv.URL, nil, nil)
	require.Error(t, err)

	var se *sms.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "bad number", se.Body.String("message"))
	assert.Equal(t, "bad number", body.String("message"))
	assert.Contains(t, err.Error(), "error 400")
}

func TestBaseGatewayNetworkError(t *testing.T) {
	_, err := sms.NewBaseGateway(nil).Get(t.Context(), "http://127.0.0.1:1", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send request:")
}

func TestBaseGatewayTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	b := sms.NewBaseGateway(nil)
	b.SetTimeout(50 * time.Millisecond)
	start := time.Now()
	_, err := b.Get(t.Context(), srv.URL, nil, nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

type recordingClient struct {
	reqs []*http.Request
}

func (c *recordingClient) Do(req *http.Request) (*http.Response, error) {
	c.reqs = append(c.reqs, req)
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"injected":true}`)),
		Header:     http.Header{},
	}, nil
}

func TestBaseGatewayUsesInjectedClient(t *testing.T) {
	client := &recordingClient{}
	b := sms.NewBaseGateway(nil)
	b.SetHTTPClient(client)
	var _ sms.HTTPClientSetter = b

	body, err := b.Get(t.Context(), "http://vendor.invalid/send", url.Values{"a": {"1"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, body["injected"])
	require.Len(t, client.reqs, 1)
	assert.Equal(t, "a=1", client.reqs[0].URL.RawQuery)
}

func TestContentFromTemplate(t *testing.T) {
	msg := sms.NewMessage().
		SetTemplate("Your code is {code}, valid for {minutes} minutes. {missing}").
		SetData(sms.NewData("code", "1234", "minutes", 5))

	got, err := sms.ContentFromTemplate(t.Context(), newNamedGateway("a"), msg)
	require.NoError(t, err)
	assert.Equal(t, "Your code is 1234, valid for 5 minutes. {missing}", got)
}

func TestRenderTextPrefersContent(t *testing.T) {
	g := newNamedGateway("a")
	msg := sms.NewMessage().SetContent("literal").SetTemplate("{x}").SetData(sms.NewData("x", "y"))
	got, err := sms.RenderText(t.Context(), g, msg)
	require.NoError(t, err)
	assert.Equal(t, "literal", got)

	msg = sms.NewMessage().SetTemplate("{x}!").SetData(sms.NewData("x", "y"))
	got, err = sms.RenderText(t.Context(), g, msg)
	require.NoError(t, err)
	assert.Equal(t, "y!", got)
}

func TestBodyAccessors(t *testing.T) {
	b := sms.Body{
		"Response": map[string]any{"Error": map[string]any{"Code": "Auth"}},
		"list":     []any{"a"},
	}
	assert.Equal(t, "Auth", b.Map("Response").Map("Error").String("Code"))
	assert.Nil(t, b.Map("missing"))
	assert.Nil(t, b.Map("missing").Map("deeper"))
	assert.Len(t, b.Slice("list"), 1)
	assert.Nil(t, b.Slice("Response"))
}
