// Package easysms is the entry point for sending SMS: it owns the gateway
// registry built from configuration, picks candidate gateways for each send
// and hands them to the Messenger for sequential failover.
package easysms

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/hpyer/easysms/internal/config"
	"github.com/hpyer/easysms/internal/gateways"
	"github.com/hpyer/easysms/internal/sms"
)

// ErrCountryNotAllowed is returned when the destination's country is not in
// default.allowed_countries.
var ErrCountryNotAllowed = errors.New("destination country not allowed")

// Option configures an EasySMS.
type Option func(*EasySMS)

// WithLogger sets the logger for dispatch and the logging gateways.
func WithLogger(logger *slog.Logger) Option {
	return func(e *EasySMS) { e.logger = logger }
}

// WithHTTPClient injects the client every created gateway uses.
func WithHTTPClient(c sms.HTTPClient) Option {
	return func(e *EasySMS) { e.client = c }
}

// WithGatewayOptions passes options to the built-in adapters.
func WithGatewayOptions(opts ...gateways.Option) Option {
	return func(e *EasySMS) { e.gatewayOpts = append(e.gatewayOpts, opts...) }
}

// EasySMS sends messages through the configured gateways. Gateways are built
// on first use and cached for the lifetime of the instance. It is safe for
// concurrent use.
type EasySMS struct {
	cfg         *config.Config
	logger      *slog.Logger
	client      sms.HTTPClient
	gatewayOpts []gateways.Option
	builtins    map[string]sms.Creator
	messenger   *sms.Messenger

	mu       sync.Mutex
	creators map[string]sms.Creator
	created  map[string]sms.Gateway
}

// New creates an EasySMS from cfg. A nil cfg uses config.Default().
func New(cfg *config.Config, opts ...Option) *EasySMS {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &EasySMS{
		cfg:      cfg,
		creators: make(map[string]sms.Creator),
		created:  make(map[string]sms.Gateway),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	gwOpts := append([]gateways.Option{gateways.WithLogger(e.logger)}, e.gatewayOpts...)
	e.builtins = gateways.Builtins(gwOpts...)
	e.messenger = sms.NewMessenger(e, e.logger)
	return e
}

// Config returns the configuration the instance was built with.
func (e *EasySMS) Config() *config.Config { return e.cfg }

// Extend registers creator for gateway type name, replacing any built-in
// adapter of the same name. Cached gateways are dropped so later lookups use
// the new creator.
func (e *EasySMS) Extend(name string, creator sms.Creator) *EasySMS {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.creators[strings.ToLower(name)] = creator
	clear(e.created)
	return e
}

// Gateway returns the gateway for id, creating and caching it on first use.
func (e *EasySMS) Gateway(id string) (sms.Gateway, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if g, ok := e.created[id]; ok {
		return g, nil
	}
	g, err := e.createGateway(id)
	if err != nil {
		return nil, err
	}
	if e.client != nil {
		if s, ok := g.(sms.HTTPClientSetter); ok {
			s.SetHTTPClient(e.client)
		}
	}
	e.created[id] = g
	return g, nil
}

// createGateway builds the gateway for id. The caller holds e.mu.
func (e *EasySMS) createGateway(id string) (sms.Gateway, error) {
	raw, configured := e.cfg.Gateways[id]
	if !configured && !e.implicit(id) {
		return nil, &sms.InvalidGatewayError{Gateway: id}
	}

	cfg := sms.GatewayConfig(raw).Clone()
	if !cfg.Has("gateway") {
		cfg["gateway"] = id
	}
	if !cfg.Has("timeout") {
		cfg["timeout"] = e.timeoutMillis()
	}

	name := strings.ToLower(cfg.String("gateway"))
	creator, ok := e.creators[name]
	if !ok {
		creator, ok = e.builtins[name]
	}
	if !ok {
		return nil, &sms.InvalidGatewayError{Gateway: name}
	}
	g, err := creator(cfg)
	if err != nil {
		return nil, fmt.Errorf("create gateway %s: %w", id, err)
	}
	return g, nil
}

// implicit reports whether id may be used without a config entry. The
// caller holds e.mu.
func (e *EasySMS) implicit(id string) bool {
	if id == gateways.NameTest {
		return true
	}
	_, ok := e.creators[strings.ToLower(id)]
	return ok
}

func (e *EasySMS) available(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.cfg.Gateways[id]; ok {
		return true
	}
	return e.implicit(id)
}

func (e *EasySMS) timeoutMillis() int {
	if e.cfg.Timeout > 0 {
		return e.cfg.Timeout
	}
	return int(sms.DefaultTimeout.Milliseconds())
}

// Strategy resolves the dispatch strategy: s when non-nil, else the
// configured default, else order.
func (e *EasySMS) Strategy(s sms.Strategy) sms.Strategy {
	if s != nil {
		return s
	}
	named, err := sms.StrategyByName(e.cfg.Default.Strategy)
	if err != nil {
		return sms.OrderStrategy
	}
	return named
}

// Available returns every id a send may use: configured gateways, the test
// gateway and extended ones.
func (e *EasySMS) Available() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	seen := map[string]bool{gateways.NameTest: true}
	for id := range e.cfg.Gateways {
		seen[id] = true
	}
	for name := range e.creators {
		seen[name] = true
	}
	return sortedKeys(seen)
}

// Supported returns the gateway type names that can be created.
func (e *EasySMS) Supported() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	seen := make(map[string]bool, len(e.builtins)+len(e.creators))
	for name := range e.builtins {
		seen[name] = true
	}
	for name := range e.creators {
		seen[name] = true
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
