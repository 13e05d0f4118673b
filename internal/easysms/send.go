package easysms

import (
	"context"
	"fmt"

	"github.com/hpyer/easysms/internal/sms"
)

// SendOption adjusts a single Send call.
type SendOption func(*sendOptions)

type sendOptions struct {
	gateways []string
	strategy sms.Strategy
}

// Via sends through ids instead of the message's or the configured list.
func Via(ids ...string) SendOption {
	return func(o *sendOptions) { o.gateways = append([]string(nil), ids...) }
}

// Using orders the candidates with s instead of the configured strategy.
func Using(s sms.Strategy) SendOption {
	return func(o *sendOptions) { o.strategy = s }
}

// Send delivers msg to the first gateway that accepts it. Candidates come
// from Via, else the message's own list, else default.gateways; they are
// ordered by the strategy and narrowed to usable ids before dispatch.
//
// The returned results list every attempt. When all attempts fail the error
// is a *sms.NoGatewayAvailableError.
func (e *EasySMS) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message, opts ...SendOption) ([]sms.Result, error) {
	if to.IsEmpty() {
		return nil, sms.ErrEmptyNumber
	}
	if msg.IsEmpty() {
		return nil, sms.ErrEmptyMessage
	}
	if !sms.IsAllowedCountry(to, e.cfg.Default.AllowedCountries) {
		return nil, fmt.Errorf("%w: %s", ErrCountryNotAllowed, to.UniversalNumber())
	}

	var o sendOptions
	for _, opt := range opts {
		opt(&o)
	}

	ids := o.gateways
	if len(ids) == 0 {
		ids = msg.Gateways()
	}
	if len(ids) == 0 {
		ids = e.cfg.Default.Gateways
	}
	if len(ids) == 0 {
		return nil, sms.ErrEmptyGateways
	}

	ordered := e.Strategy(o.strategy)(ids)
	candidates := make([]string, 0, len(ordered))
	for _, id := range ordered {
		if e.available(id) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: none of %v is configured", sms.ErrEmptyGateways, ids)
	}

	return e.messenger.Send(ctx, to, msg, candidates)
}

// SendText sends text to number. The text is used as both content and
// template; number may carry a "+" or "00" international prefix.
func (e *EasySMS) SendText(ctx context.Context, number, text string, opts ...SendOption) ([]sms.Result, error) {
	to, err := sms.ParsePhoneNumber(number)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, sms.ErrEmptyMessage
	}
	return e.Send(ctx, to, sms.TextMessage(text), opts...)
}
