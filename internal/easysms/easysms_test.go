package easysms_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpyer/easysms/internal/config"
	"github.com/hpyer/easysms/internal/easysms"
	"github.com/hpyer/easysms/internal/gateways"
	"github.com/hpyer/easysms/internal/sms"
	"github.com/hpyer/easysms/internal/testutil"
)

type failingGateway struct {
	*sms.BaseGateway
	calls int
}

func (g *failingGateway) Send(context.Context, sms.PhoneNumber, *sms.Message) (sms.Body, error) {
	g.calls++
	return nil, errors.New(g.Name() + " down")
}

func failing() (*failingGateway, sms.Creator) {
	g := &failingGateway{BaseGateway: sms.NewBaseGateway(nil)}
	return g, func(cfg sms.GatewayConfig) (sms.Gateway, error) {
		g.SetConfig(cfg)
		return g, nil
	}
}

func newEasySMS(t *testing.T, mutate func(*config.Config), opts ...easysms.Option) *easysms.EasySMS {
	t.Helper()
	cfg := config.Default()
	cfg.Gateways = map[string]map[string]any{}
	if mutate != nil {
		mutate(cfg)
	}
	opts = append([]easysms.Option{easysms.WithLogger(testutil.DiscardLogger())}, opts...)
	return easysms.New(cfg, opts...)
}

var number = sms.NewPhoneNumber("13188888888")

func TestNewWithNilConfigUsesDefaults(t *testing.T) {
	e := easysms.New(nil, easysms.WithLogger(testutil.DiscardLogger()))
	results, err := e.Send(t.Context(), number, sms.TextMessage("hello"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "test", results[0].Gateway)
	assert.Equal(t, sms.StatusSuccess, results[0].Status)
	assert.Equal(t, "service-ok", results[0].Response.String("status"))
}

func TestGatewayIsMemoized(t *testing.T) {
	e := newEasySMS(t, nil)
	first, err := e.Gateway("test")
	require.NoError(t, err)
	second, err := e.Gateway("test")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestGatewayUnknownID(t *testing.T) {
	e := newEasySMS(t, nil)
	_, err := e.Gateway("nope")
	require.ErrorIs(t, err, sms.ErrInvalidGateway)
	var ige *sms.InvalidGatewayError
	require.ErrorAs(t, err, &ige)
	assert.Equal(t, "nope", ige.Gateway)
}

func TestGatewayUnknownType(t *testing.T) {
	e := newEasySMS(t, func(c *config.Config) {
		c.Gateways["primary"] = map[string]any{"gateway": "carrier-pigeon"}
	})
	_, err := e.Gateway("primary")
	require.ErrorIs(t, err, sms.ErrInvalidGateway)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestGatewayInheritsTimeout(t *testing.T) {
	e := newEasySMS(t, func(c *config.Config) {
		c.Timeout = 3000
		c.Gateways["aliyun"] = map[string]any{"timeout": 1000}
	})

	g, err := e.Gateway("test")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, g.Timeout())
	assert.Equal(t, "test", g.Config().String("gateway"))

	g, err = e.Gateway("aliyun")
	require.NoError(t, err)
	assert.Equal(t, time.Second, g.Timeout())
}

func TestGatewayZeroTimeoutFallsBackToDefault(t *testing.T) {
	e := newEasySMS(t, func(c *config.Config) { c.Timeout = 0 })
	g, err := e.Gateway("test")
	require.NoError(t, err)
	assert.Equal(t, sms.DefaultTimeout, g.Timeout())
}

func TestGatewayAliasUsesConfiguredType(t *testing.T) {
	capture := gateways.NewCapture(nil)
	e := newEasySMS(t, func(c *config.Config) {
		c.Gateways["primary"] = map[string]any{"gateway": "Capture", "sign_name": "acme"}
	})
	e.Extend("capture", capture.Creator())

	g, err := e.Gateway("primary")
	require.NoError(t, err)
	assert.Same(t, capture, g)
	assert.Equal(t, "Capture", capture.Config().String("gateway"))
	assert.Equal(t, "acme", capture.Config().String("sign_name"))
}

func TestGatewayInjectsHTTPClient(t *testing.T) {
	client := &http.Client{}
	capture := gateways.NewCapture(nil)
	e := newEasySMS(t, nil, easysms.WithHTTPClient(client))
	e.Extend("capture", capture.Creator())

	_, err := e.Gateway("capture")
	require.NoError(t, err)
	assert.Same(t, client, capture.HTTPClient())
}

func TestExtendOverridesBuiltin(t *testing.T) {
	capture := gateways.NewCapture(nil)
	e := newEasySMS(t, func(c *config.Config) {
		c.Gateways["aliyun"] = map[string]any{"access_key_id": "id"}
	})
	e.Extend("Aliyun", capture.Creator())

	results, err := e.Send(t.Context(), number, sms.TextMessage("hi"), easysms.Via("aliyun"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "aliyun", results[0].Gateway)
	assert.Equal(t, "captured", results[0].Response.String("status"))
	assert.Equal(t, 1, capture.Len())
}

func TestExtendDropsCachedGateways(t *testing.T) {
	e := newEasySMS(t, nil)
	before, err := e.Gateway("test")
	require.NoError(t, err)

	capture := gateways.NewCapture(nil)
	e.Extend("test", capture.Creator())

	after, err := e.Gateway("test")
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Same(t, capture, after)
}

func TestSendValidation(t *testing.T) {
	e := newEasySMS(t, nil)

	_, err := e.Send(t.Context(), sms.PhoneNumber{}, sms.TextMessage("hi"))
	assert.ErrorIs(t, err, sms.ErrEmptyNumber)

	_, err = e.Send(t.Context(), number, nil)
	assert.ErrorIs(t, err, sms.ErrEmptyMessage)

	_, err = e.Send(t.Context(), number, sms.NewMessage())
	assert.ErrorIs(t, err, sms.ErrEmptyMessage)
}

func TestSendEmptyGateways(t *testing.T) {
	e := newEasySMS(t, func(c *config.Config) { c.Default.Gateways = nil })
	_, err := e.Send(t.Context(), number, sms.TextMessage("hi"))
	assert.ErrorIs(t, err, sms.ErrEmptyGateways)
}

func TestSendFiltersUnknownGateways(t *testing.T) {
	e := newEasySMS(t, nil)

	results, err := e.Send(t.Context(), number, sms.TextMessage("hi"), easysms.Via("nope", "test"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "test", results[0].Gateway)

	_, err = e.Send(t.Context(), number, sms.TextMessage("hi"), easysms.Via("nope", "missing"))
	assert.ErrorIs(t, err, sms.ErrEmptyGateways)
}

func TestSendGatewayPrecedence(t *testing.T) {
	fromDefault := gateways.NewCapture(nil)
	fromMessage := gateways.NewCapture(nil)
	fromCall := gateways.NewCapture(nil)
	e := newEasySMS(t, func(c *config.Config) { c.Default.Gateways = []string{"d"} })
	e.Extend("d", fromDefault.Creator())
	e.Extend("m", fromMessage.Creator())
	e.Extend("c", fromCall.Creator())

	_, err := e.Send(t.Context(), number, sms.TextMessage("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, fromDefault.Len())

	_, err = e.Send(t.Context(), number, sms.TextMessage("2").SetGateways("m"))
	require.NoError(t, err)
	assert.Equal(t, 1, fromMessage.Len())

	_, err = e.Send(t.Context(), number, sms.TextMessage("3").SetGateways("m"), easysms.Via("c"))
	require.NoError(t, err)
	assert.Equal(t, 1, fromCall.Len())

	assert.Equal(t, 1, fromDefault.Len())
	assert.Equal(t, 1, fromMessage.Len())
}

func TestSendFailsOverInOrder(t *testing.T) {
	down, downCreator := failing()
	capture := gateways.NewCapture(nil)
	e := newEasySMS(t, nil)
	e.Extend("down", downCreator)
	e.Extend("up", capture.Creator())

	results, err := e.Send(t.Context(), number, sms.TextMessage("hi"), easysms.Via("down", "up"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, sms.StatusFailure, results[0].Status)
	assert.EqualError(t, results[0].Err, "down down")
	assert.Equal(t, sms.StatusSuccess, results[1].Status)
	assert.Equal(t, 1, down.calls)
	assert.Equal(t, 1, capture.Len())
}

func TestSendRecordsInvalidGatewayAttempt(t *testing.T) {
	e := newEasySMS(t, func(c *config.Config) {
		c.Gateways["bad"] = map[string]any{"gateway": "carrier-pigeon"}
	})

	results, err := e.Send(t.Context(), number, sms.TextMessage("hi"), easysms.Via("bad", "test"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, sms.ErrInvalidGateway)
	assert.Equal(t, sms.StatusSuccess, results[1].Status)
}

func TestSendNoGatewayAvailable(t *testing.T) {
	first, firstCreator := failing()
	second, secondCreator := failing()
	e := newEasySMS(t, nil)
	e.Extend("first", firstCreator)
	e.Extend("second", secondCreator)

	results, err := e.Send(t.Context(), number, sms.TextMessage("hi"), easysms.Via("first", "second"))
	require.ErrorIs(t, err, sms.ErrNoGatewayAvailable)
	var nga *sms.NoGatewayAvailableError
	require.ErrorAs(t, err, &nga)
	assert.Len(t, results, 2)
	assert.Len(t, nga.Results, 2)
	assert.EqualError(t, nga.Exception("first"), "first down")
	assert.EqualError(t, nga.LastException(), "second down")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestSendFailsOverFromVendorHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	t.Cleanup(srv.Close)

	e := newEasySMS(t, func(c *config.Config) {
		c.Gateways["aliyun"] = map[string]any{
			"endpoint":          srv.URL,
			"access_key_id":     "id",
			"access_key_secret": "secret",
			"sign_name":         "acme",
		}
	})

	msg := sms.NewMessage().SetTemplate("SMS_1").SetData(sms.NewData("code", "1234"))
	results, err := e.Send(t.Context(), number, msg, easysms.Via("aliyun", "test"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "aliyun")
	var se *sms.StatusError
	require.ErrorAs(t, results[0].Err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "test", results[1].Gateway)
}

func TestSendUsingStrategy(t *testing.T) {
	a := gateways.NewCapture(nil)
	b := gateways.NewCapture(nil)
	e := newEasySMS(t, nil)
	e.Extend("a", a.Creator())
	e.Extend("b", b.Creator())

	reverse := func(ids []string) []string {
		out := slices.Clone(ids)
		slices.Reverse(out)
		return out
	}
	results, err := e.Send(t.Context(), number, sms.TextMessage("hi"), easysms.Via("a", "b"), easysms.Using(reverse))
	require.NoError(t, err)
	assert.Equal(t, "b", results[0].Gateway)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 1, b.Len())
}

func TestStrategyResolution(t *testing.T) {
	ids := []string{"a", "b", "c"}

	e := newEasySMS(t, func(c *config.Config) { c.Default.Strategy = "bogus" })
	assert.Equal(t, ids, e.Strategy(nil)(ids))

	e = newEasySMS(t, func(c *config.Config) { c.Default.Strategy = "random" })
	assert.ElementsMatch(t, ids, e.Strategy(nil)(ids))

	first := func(ids []string) []string { return ids[:1] }
	assert.Equal(t, []string{"a"}, e.Strategy(first)(ids))
}

func TestSendCountryNotAllowed(t *testing.T) {
	e := newEasySMS(t, func(c *config.Config) { c.Default.AllowedCountries = []string{"CN"} })

	_, err := e.Send(t.Context(), sms.NewPhoneNumber("6502530000", "1"), sms.TextMessage("hi"))
	assert.ErrorIs(t, err, easysms.ErrCountryNotAllowed)

	_, err = e.Send(t.Context(), number, sms.TextMessage("hi"))
	assert.NoError(t, err)
}

func TestSendText(t *testing.T) {
	capture := gateways.NewCapture(nil)
	e := newEasySMS(t, nil)
	e.Extend("capture", capture.Creator())

	_, err := e.SendText(t.Context(), "  +8613188888888 ", "your code is 4821", easysms.Via("capture"))
	require.NoError(t, err)
	last, ok := capture.Last()
	require.True(t, ok)
	assert.Equal(t, "86", last.To.IDDCode())
	assert.Equal(t, "13188888888", last.To.Number())
	assert.Equal(t, "your code is 4821", last.Body)
	assert.Equal(t, "your code is 4821", last.Template)
	assert.Equal(t, "4821", capture.LastCode())

	_, err = e.SendText(t.Context(), "   ", "hi")
	assert.ErrorIs(t, err, sms.ErrEmptyNumber)
	_, err = e.SendText(t.Context(), "13188888888", "")
	assert.ErrorIs(t, err, sms.ErrEmptyMessage)
}

func TestAvailableAndSupported(t *testing.T) {
	e := newEasySMS(t, func(c *config.Config) {
		c.Gateways["aliyun"] = map[string]any{}
		c.Gateways["backup"] = map[string]any{"gateway": "tencent"}
	})
	e.Extend("Custom", gateways.NewCapture(nil).Creator())

	assert.Equal(t, []string{"aliyun", "backup", "custom", "test"}, e.Available())
	supported := e.Supported()
	assert.Contains(t, supported, "custom")
	assert.Contains(t, supported, "aliyun")
	assert.Contains(t, supported, "sns")
	assert.True(t, slices.IsSorted(supported))
}
