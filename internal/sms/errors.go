package sms

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyNumber        = errors.New("empty phone number")
	ErrEmptyMessage       = errors.New("empty message")
	ErrEmptyGateways      = errors.New("empty gateways")
	ErrInvalidGateway     = errors.New("invalid gateway")
	ErrGateway            = errors.New("gateway error")
	ErrNoGatewayAvailable = errors.New("no gateway available")
)

// GatewayError is a vendor-level failure reported in a response body. Err
// holds the transport error when the response was also non-2xx.
type GatewayError struct {
	Gateway string
	Code    string
	Message string
	Raw     Body
	Err     error
}

func (e *GatewayError) Error() string {
	var msg string
	switch {
	case e.Code != "" && e.Message != "":
		msg = fmt.Sprintf("%s: error %s: %s", e.Gateway, e.Code, e.Message)
	case e.Message != "":
		msg = fmt.Sprintf("%s: error: %s", e.Gateway, e.Message)
	case e.Code != "":
		msg = fmt.Sprintf("%s: error %s", e.Gateway, e.Code)
	default:
		msg = e.Gateway + ": error"
	}
	var se *StatusError
	switch {
	case errors.As(e.Err, &se):
		return fmt.Sprintf("%s (HTTP %d)", msg, se.StatusCode)
	case e.Err != nil:
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

func (e *GatewayError) Unwrap() error { return e.Err }

// StatusError is returned for a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       Body
	Raw        []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("error %d: %s", e.StatusCode, strings.TrimSpace(string(e.Raw)))
}

// InvalidGatewayError names a gateway id that has no config and no creator.
type InvalidGatewayError struct {
	Gateway string
}

func (e *InvalidGatewayError) Error() string {
	return fmt.Sprintf("invalid gateway: %s", e.Gateway)
}

func (e *InvalidGatewayError) Is(target error) bool { return target == ErrInvalidGateway }

// NoGatewayAvailableError is returned when every candidate gateway failed.
// Results holds one failure per attempt in attempt order.
type NoGatewayAvailableError struct {
	Results []Result
}

func (e *NoGatewayAvailableError) Error() string {
	ids := make([]string, len(e.Results))
	for i, r := range e.Results {
		ids[i] = r.Gateway
	}
	msg := "no gateway available"
	if len(ids) > 0 {
		msg += " (tried " + strings.Join(ids, ", ") + ")"
	}
	if last := e.LastException(); last != nil {
		msg += ": " + last.Error()
	}
	return msg
}

func (e *NoGatewayAvailableError) Is(target error) bool { return target == ErrNoGatewayAvailable }

// Unwrap exposes every attempt error to errors.Is and errors.As.
func (e *NoGatewayAvailableError) Unwrap() []error {
	errs := make([]error, 0, len(e.Results))
	for _, r := range e.Results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

// Exceptions returns the attempt errors keyed by gateway id.
func (e *NoGatewayAvailableError) Exceptions() map[string]error {
	out := make(map[string]error, len(e.Results))
	for _, r := range e.Results {
		out[r.Gateway] = r.Err
	}
	return out
}

// Exception returns the error recorded for gateway id, or nil.
func (e *NoGatewayAvailableError) Exception(id string) error {
	for i := len(e.Results) - 1; i >= 0; i-- {
		if e.Results[i].Gateway == id {
			return e.Results[i].Err
		}
	}
	return nil
}

// LastException returns the error of the last attempt, or nil when nothing
// was attempted.
func (e *NoGatewayAvailableError) LastException() error {
	if len(e.Results) == 0 {
		return nil
	}
	return e.Results[len(e.Results)-1].Err
}
