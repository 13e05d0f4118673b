package gateways

import (
	"context"
	"regexp"
	"sync"

	"github.com/hpyer/easysms/internal/sms"
)

var otpPattern = regexp.MustCompile(`\b(\d{4,8})\b`)

// Capture records sends for use in tests. Register it with Extend.
type Capture struct {
	*sms.BaseGateway
	mu    sync.Mutex
	Calls []CaptureCall
}

// CaptureCall records a single Send invocation.
type CaptureCall struct {
	To       sms.PhoneNumber
	Body     string
	Template string
	Data     sms.Data
}

func NewCapture(cfg sms.GatewayConfig) *Capture {
	return &Capture{BaseGateway: sms.NewBaseGateway(cfg)}
}

// Creator returns a creator that always yields c.
func (c *Capture) Creator() sms.Creator {
	return func(cfg sms.GatewayConfig) (sms.Gateway, error) {
		c.SetConfig(cfg)
		return c, nil
	}
}

func (c *Capture) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	text, err := sms.RenderText(ctx, c, msg)
	if err != nil {
		return nil, err
	}
	tpl, err := msg.Template(ctx, c)
	if err != nil {
		return nil, err
	}
	data, err := msg.Data(ctx, c)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, CaptureCall{To: to, Body: text, Template: tpl, Data: data})
	return sms.Body{"status": "captured"}, nil
}

// Len returns the number of recorded calls.
func (c *Capture) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// Last returns the most recent call.
func (c *Capture) Last() (CaptureCall, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Calls) == 0 {
		return CaptureCall{}, false
	}
	return c.Calls[len(c.Calls)-1], true
}

// LastCode extracts a 4-8 digit OTP from the last captured body.
func (c *Capture) LastCode() string {
	last, ok := c.Last()
	if !ok {
		return ""
	}
	matches := otpPattern.FindStringSubmatch(last.Body)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// Reset clears all recorded calls.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = nil
}
