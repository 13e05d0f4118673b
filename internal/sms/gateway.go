package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds a single HTTP attempt when neither the gateway nor
// the facade configures one.
const DefaultTimeout = 5 * time.Second

// Gateway sends a message through one SMS provider account.
type Gateway interface {
	Config() GatewayConfig
	SetConfig(cfg GatewayConfig)
	Timeout() time.Duration
	SetTimeout(d time.Duration)
	Send(ctx context.Context, to PhoneNumber, msg *Message) (Body, error)
}

// Creator builds a gateway from its configuration.
type Creator func(cfg GatewayConfig) (Gateway, error)

// HTTPClient executes requests for gateways. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClientSetter is implemented by gateways that accept an injected
// HTTPClient.
type HTTPClientSetter interface {
	SetHTTPClient(c HTTPClient)
}

// GatewayConfig is the key/value configuration of one gateway account. The
// "gateway" key names the adapter; "timeout" is in milliseconds.
type GatewayConfig map[string]any

func (c GatewayConfig) Clone() GatewayConfig {
	out := make(GatewayConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// String returns the value at key as a string, or "" when absent.
func (c GatewayConfig) String(key string) string {
	return stringify(c[key])
}

// StringOr returns the value at key, or def when it is absent or empty.
func (c GatewayConfig) StringOr(key, def string) string {
	if s := c.String(key); s != "" {
		return s
	}
	return def
}

func (c GatewayConfig) Int(key string) (int, bool) {
	return intify(c[key])
}

func (c GatewayConfig) Bool(key string) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// Has reports whether key is present with a non-nil value.
func (c GatewayConfig) Has(key string) bool {
	v, ok := c[key]
	return ok && v != nil
}

// Body is a decoded provider response.
type Body map[string]any

// String returns the field formatted as a string, or "" when absent.
func (b Body) String(key string) string { return stringify(b[key]) }

func (b Body) Int(key string) (int, bool) { return intify(b[key]) }

// Has reports whether key is present with a non-nil value.
func (b Body) Has(key string) bool {
	v, ok := b[key]
	return ok && v != nil
}

// Map returns a nested object field.
func (b Body) Map(key string) Body {
	if m, ok := b[key].(map[string]any); ok {
		return Body(m)
	}
	return nil
}

// Slice returns a nested array field.
func (b Body) Slice(key string) []any {
	s, _ := b[key].([]any)
	return s
}

func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func intify(v any) (int, bool) {
	switch v := v.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

// BaseGateway carries the config, timeout and HTTP helpers shared by the
// built-in adapters. Embed a *BaseGateway to satisfy most of Gateway.
type BaseGateway struct {
	mu      sync.RWMutex
	config  GatewayConfig
	timeout time.Duration
	client  HTTPClient
}

// NewBaseGateway copies cfg into a new BaseGateway.
func NewBaseGateway(cfg GatewayConfig) *BaseGateway {
	if cfg == nil {
		cfg = GatewayConfig{}
	}
	return &BaseGateway{config: cfg.Clone()}
}

// Name returns the adapter name from the "gateway" config key.
func (b *BaseGateway) Name() string {
	return b.Config().String("gateway")
}

func (b *BaseGateway) Config() GatewayConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.Clone()
}

func (b *BaseGateway) SetConfig(cfg GatewayConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config = cfg.Clone()
}

// Timeout returns the explicit timeout, else the configured "timeout" in
// milliseconds, else DefaultTimeout.
func (b *BaseGateway) Timeout() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.timeout > 0 {
		return b.timeout
	}
	if ms, ok := b.config.Int("timeout"); ok && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return DefaultTimeout
}

func (b *BaseGateway) SetTimeout(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timeout = d
}

func (b *BaseGateway) HTTPClient() HTTPClient {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.client == nil {
		return http.DefaultClient
	}
	return b.client
}

func (b *BaseGateway) SetHTTPClient(c HTTPClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.client = c
}

// Get issues a GET with query appended to rawURL.
func (b *BaseGateway) Get(ctx context.Context, rawURL string, query url.Values, headers map[string]string) (Body, error) {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + query.Encode()
	}
	return b.Do(ctx, http.MethodGet, rawURL, nil, headers)
}

// PostForm issues a form-encoded POST.
func (b *BaseGateway) PostForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string) (Body, error) {
	h := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	for k, v := range headers {
		h[k] = v
	}
	return b.Do(ctx, http.MethodPost, rawURL, []byte(form.Encode()), h)
}

// PostJSON issues a JSON POST. A []byte payload is sent verbatim, which lets
// callers sign exactly the bytes that go on the wire.
func (b *BaseGateway) PostJSON(ctx context.Context, rawURL string, payload any, headers map[string]string) (Body, error) {
	var body []byte
	switch p := payload.(type) {
	case []byte:
		body = p
	case json.RawMessage:
		body = p
	default:
		var err error
		body, err = EncodeJSON(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	return b.Do(ctx, http.MethodPost, rawURL, body, h)
}

// Do performs one request bounded by Timeout and decodes the response. A
// non-2xx status yields a *StatusError alongside the decoded body.
func (b *BaseGateway) Do(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) (Body, error) {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout())
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		if strings.EqualFold(k, "Host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := b.HTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	parsed := decodeBody(raw)
	if resp.StatusCode >= 300 {
		return parsed, &StatusError{StatusCode: resp.StatusCode, Body: parsed, Raw: raw}
	}
	return parsed, nil
}

// decodeBody returns a JSON object as-is, wraps other JSON under "data", and
// keeps anything else as text under "body".
func decodeBody(raw []byte) Body {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Body{"body": string(raw)}
	}
	if m, ok := v.(map[string]any); ok {
		return Body(m)
	}
	return Body{"data": v}
}

// ContentFromTemplate resolves the template and replaces each {key} with the
// matching data value.
func ContentFromTemplate(ctx context.Context, g Gateway, m *Message) (string, error) {
	tpl, err := m.Template(ctx, g)
	if err != nil {
		return "", err
	}
	data, err := m.Data(ctx, g)
	if err != nil {
		return "", err
	}
	for _, p := range data {
		tpl = strings.ReplaceAll(tpl, "{"+p.Key+"}", stringify(p.Value))
	}
	return tpl, nil
}

// RenderText returns the message content, or the rendered template when the
// content is empty. Used by vendors that only accept finished text.
func RenderText(ctx context.Context, g Gateway, m *Message) (string, error) {
	content, err := m.Content(ctx, g)
	if err != nil {
		return "", err
	}
	if content != "" {
		return content, nil
	}
	return ContentFromTemplate(ctx, g, m)
}
