package server

import (
	"errors"
	"net/http"

	"github.com/hpyer/easysms/internal/auth"
	"github.com/hpyer/easysms/internal/easysms"
	"github.com/hpyer/easysms/internal/httputil"
	"github.com/hpyer/easysms/internal/sms"
)

// sendRequest is the body of POST /api/sms/send.
type sendRequest struct {
	To       string   `json:"to"`
	IDDCode  string   `json:"idd_code,omitempty"`
	Type     string   `json:"type,omitempty"`
	Content  string   `json:"content,omitempty"`
	Template string   `json:"template,omitempty"`
	SignName string   `json:"sign_name,omitempty"`
	Data     sms.Data `json:"data,omitempty"`
	Gateways []string `json:"gateways,omitempty"`
	Strategy string   `json:"strategy,omitempty"`
}

type attemptResult struct {
	Gateway string   `json:"gateway"`
	Status  string   `json:"status"`
	Result  sms.Body `json:"result,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type sendResponse struct {
	To      string          `json:"to"`
	Results []attemptResult `json:"results"`
}

// sendFailure is the 502 body when every gateway failed.
type sendFailure struct {
	httputil.ErrorResponse
	Results []attemptResult `json:"results"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	to, err := parseRecipient(req)
	if err != nil {
		httputil.WriteFieldError(w, http.StatusBadRequest, "invalid recipient", "to", "invalid", err.Error())
		return
	}

	msg := sms.NewMessage()
	switch req.Type {
	case "", string(sms.TypeText):
	case string(sms.TypeVoice):
		msg.SetType(sms.TypeVoice)
	default:
		httputil.WriteFieldError(w, http.StatusBadRequest, "invalid message", "type", "invalid", "type must be text or voice")
		return
	}
	if req.Content != "" {
		msg.SetContent(req.Content)
	}
	if req.Template != "" {
		msg.SetTemplate(req.Template)
	}
	if req.SignName != "" {
		msg.SetSignName(req.SignName)
	}
	if len(req.Data) > 0 {
		msg.SetData(req.Data)
	}

	var opts []easysms.SendOption
	if req.Strategy != "" {
		strategy, err := sms.StrategyByName(req.Strategy)
		if err != nil {
			httputil.WriteFieldError(w, http.StatusBadRequest, "invalid strategy", "strategy", "invalid", err.Error())
			return
		}
		opts = append(opts, easysms.Using(strategy))
	}

	ids := req.Gateways
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil && len(claims.Gateways) > 0 {
		if len(ids) == 0 {
			ids = claims.Gateways
		}
		for _, id := range ids {
			if !claims.AllowsGateway(id) {
				httputil.WriteError(w, http.StatusForbidden, "token does not allow gateway "+id)
				return
			}
		}
	}
	if len(ids) > 0 {
		opts = append(opts, easysms.Via(ids...))
	}

	results, err := s.sms.Send(r.Context(), to, msg, opts...)
	if err != nil {
		s.writeSendError(w, err, results)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sendResponse{To: to.UniversalNumber(), Results: toAttempts(results)})
}

func parseRecipient(req sendRequest) (sms.PhoneNumber, error) {
	if req.IDDCode != "" {
		to := sms.NewPhoneNumber(req.To, req.IDDCode)
		if to.IsEmpty() {
			return to, sms.ErrEmptyNumber
		}
		return to, nil
	}
	return sms.ParsePhoneNumber(req.To)
}

func (s *Server) writeSendError(w http.ResponseWriter, err error, results []sms.Result) {
	var nga *sms.NoGatewayAvailableError
	switch {
	case errors.As(err, &nga):
		s.logger.Warn("sms send failed", "error", err)
		httputil.WriteJSON(w, http.StatusBadGateway, sendFailure{
			ErrorResponse: httputil.ErrorResponse{Code: http.StatusBadGateway, Message: err.Error()},
			Results:       toAttempts(results),
		})
	case errors.Is(err, sms.ErrEmptyMessage):
		httputil.WriteFieldError(w, http.StatusBadRequest, "invalid message", "content", "required",
			"one of content, template or data is required")
	case errors.Is(err, sms.ErrEmptyNumber):
		httputil.WriteFieldError(w, http.StatusBadRequest, "invalid recipient", "to", "required", "to is required")
	case errors.Is(err, easysms.ErrCountryNotAllowed):
		httputil.WriteFieldError(w, http.StatusBadRequest, "invalid recipient", "to", "country_not_allowed", err.Error())
	case errors.Is(err, sms.ErrEmptyGateways):
		httputil.WriteFieldError(w, http.StatusBadRequest, "no usable gateway", "gateways", "empty", err.Error())
	default:
		s.logger.Error("sms send error", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func toAttempts(results []sms.Result) []attemptResult {
	out := make([]attemptResult, len(results))
	for i, r := range results {
		out[i] = attemptResult{Gateway: r.Gateway, Status: string(r.Status), Result: r.Response}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}

type gatewaysResponse struct {
	Strategy  string   `json:"strategy"`
	Default   []string `json:"default"`
	Available []string `json:"available"`
	Supported []string `json:"supported"`
}

func (s *Server) handleGateways(w http.ResponseWriter, r *http.Request) {
	strategy := s.cfg.Default.Strategy
	if strategy == "" {
		strategy = sms.StrategyOrder
	}
	defaults := s.cfg.Default.Gateways
	if defaults == nil {
		defaults = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, gatewaysResponse{
		Strategy:  strategy,
		Default:   defaults,
		Available: s.sms.Available(),
		Supported: s.sms.Supported(),
	})
}
