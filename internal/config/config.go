package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the configuration file read when no path is given.
const DefaultPath = "easysms.toml"

// Config is the top-level easysms configuration.
type Config struct {
	// Timeout is the per-attempt HTTP timeout in milliseconds inherited by
	// every gateway that does not set its own.
	Timeout   int                       `toml:"timeout"`
	Default   DefaultConfig             `toml:"default"`
	Gateways  map[string]map[string]any `toml:"gateways"`
	Server    ServerConfig              `toml:"server"`
	Logging   LoggingConfig             `toml:"logging"`
	Telemetry TelemetryConfig           `toml:"telemetry"`
}

// DefaultConfig holds the dispatch defaults used when a send names no
// gateways or strategy.
type DefaultConfig struct {
	Strategy         string   `toml:"strategy"` // "order" (default) or "random"
	Gateways         []string `toml:"gateways"`
	AllowedCountries []string `toml:"allowed_countries"` // ISO 3166-1 alpha-2; empty allows all
}

type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ShutdownTimeout int    `toml:"shutdown_timeout"`
	JWTSecret       string `toml:"jwt_secret"` // enables bearer auth on /api when set
	RateLimit       int    `toml:"rate_limit"` // sends per minute per client; 0 disables

	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `toml:"otlp_endpoint"` // empty disables tracing export
	ServiceName  string `toml:"service_name"`
	Insecure     bool   `toml:"insecure"`
	Metrics      bool   `toml:"metrics"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Timeout: 5000,
		Default: DefaultConfig{
			Strategy: "order",
			Gateways: []string{"test"},
		},
		Gateways: map[string]map[string]any{},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8095,
			ShutdownTimeout: 10,
			RateLimit:       60,

			CORSAllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "easysms",
			Metrics:     true,
		},
	}
}

// Load reads configuration with priority: defaults → easysms.toml → env vars → CLI flags.
// The flags parameter allows CLI flag overrides to be passed in.
func Load(configPath string, flags map[string]string) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		configPath = DefaultPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	applyFlags(cfg, flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %d", c.Timeout)
	}
	switch c.Default.Strategy {
	case "", "order", "random":
	default:
		return fmt.Errorf("default.strategy must be \"order\" or \"random\", got %q", c.Default.Strategy)
	}
	for id, gw := range c.Gateways {
		if id == "" {
			return fmt.Errorf("gateways: empty gateway id")
		}
		if v, ok := gw["gateway"]; ok {
			if s, isString := v.(string); !isString || s == "" {
				return fmt.Errorf("gateways.%s.gateway must be a non-empty string", id)
			}
		}
		if v, ok := gw["timeout"]; ok {
			n, isInt := v.(int64)
			if !isInt {
				if i, isPlain := v.(int); isPlain {
					n, isInt = int64(i), true
				}
			}
			if !isInt || n < 0 {
				return fmt.Errorf("gateways.%s.timeout must be a non-negative integer", id)
			}
		}
	}
	for _, code := range c.Default.AllowedCountries {
		if len(code) != 2 {
			return fmt.Errorf("default.allowed_countries: %q is not a two-letter country code", code)
		}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must be >= 0, got %d", c.Server.RateLimit)
	}
	if c.Server.JWTSecret != "" && len(c.Server.JWTSecret) < 32 {
		return fmt.Errorf("server.jwt_secret must be at least 32 characters, got %d", len(c.Server.JWTSecret))
	}
	if c.Logging.Level != "" {
		switch c.Logging.Level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("logging.level must be one of: debug, info, warn, error; got %q", c.Logging.Level)
		}
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be \"json\" or \"text\", got %q", c.Logging.Format)
	}
	return nil
}

// Address returns the host:port string for the server to listen on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GatewayIDs returns the configured gateway ids in sorted order.
func (c *Config) GatewayIDs() []string {
	ids := make([]string, 0, len(c.Gateways))
	for id := range c.Gateways {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GenerateDefault writes a commented default easysms.toml to the given path.
func GenerateDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultTOML), 0o644)
}

// ToTOML returns the config serialized as TOML.
func (c *Config) ToTOML() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// envInt reads an integer from the named environment variable.
// Returns an error if the value is set but not a valid integer.
func envInt(name string, dest *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q is not an integer", name, v)
	}
	*dest = n
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func applyEnv(cfg *Config) error {
	if err := envInt("EASYSMS_TIMEOUT", &cfg.Timeout); err != nil {
		return err
	}
	if v := os.Getenv("EASYSMS_STRATEGY"); v != "" {
		cfg.Default.Strategy = v
	}
	if v := os.Getenv("EASYSMS_GATEWAYS"); v != "" {
		cfg.Default.Gateways = splitList(v)
	}
	if v := os.Getenv("EASYSMS_ALLOWED_COUNTRIES"); v != "" {
		cfg.Default.AllowedCountries = splitList(v)
	}
	if v := os.Getenv("EASYSMS_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if err := envInt("EASYSMS_SERVER_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if v := os.Getenv("EASYSMS_JWT_SECRET"); v != "" {
		cfg.Server.JWTSecret = v
	}
	if v := os.Getenv("EASYSMS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EASYSMS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("EASYSMS_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	return nil
}

func applyFlags(cfg *Config, flags map[string]string) {
	if flags == nil {
		return
	}
	if v, ok := flags["port"]; ok && v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v, ok := flags["host"]; ok && v != "" {
		cfg.Server.Host = v
	}
	if v, ok := flags["strategy"]; ok && v != "" {
		cfg.Default.Strategy = v
	}
	if v, ok := flags["timeout"]; ok && v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Timeout = ms
		}
	}
	if v, ok := flags["log-level"]; ok && v != "" {
		cfg.Logging.Level = v
	}
}

// validKeys is the complete set of fixed dot-separated config keys. Keys under
// "gateways.<id>." are free-form and accepted separately.
var validKeys = map[string]bool{
	"timeout":          true,
	"default.strategy": true, "default.gateways": true, "default.allowed_countries": true,
	"server.host": true, "server.port": true, "server.shutdown_timeout": true,
	"server.jwt_secret": true, "server.cors_allowed_origins": true,
	"server.rate_limit": true,
	"logging.level": true, "logging.format": true,
	"telemetry.otlp_endpoint": true, "telemetry.service_name": true,
	"telemetry.insecure": true, "telemetry.metrics": true,
}

// IsValidKey returns true if the dotted key is a recognized config key.
func IsValidKey(key string) bool {
	if validKeys[key] {
		return true
	}
	_, _, ok := gatewayKey(key)
	return ok
}

// gatewayKey splits "gateways.<id>.<field>".
func gatewayKey(key string) (id, field string, ok bool) {
	parts := strings.SplitN(key, ".", 3)
	if len(parts) != 3 || parts[0] != "gateways" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	if strings.Contains(parts[2], ".") {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// GetValue returns the value for a dotted config key (e.g. "server.port").
func GetValue(cfg *Config, key string) (any, error) {
	switch key {
	case "timeout":
		return cfg.Timeout, nil
	case "default.strategy":
		return cfg.Default.Strategy, nil
	case "default.gateways":
		return strings.Join(cfg.Default.Gateways, ","), nil
	case "default.allowed_countries":
		return strings.Join(cfg.Default.AllowedCountries, ","), nil
	case "server.host":
		return cfg.Server.Host, nil
	case "server.port":
		return cfg.Server.Port, nil
	case "server.shutdown_timeout":
		return cfg.Server.ShutdownTimeout, nil
	case "server.jwt_secret":
		return cfg.Server.JWTSecret, nil
	case "server.rate_limit":
		return cfg.Server.RateLimit, nil
	case "server.cors_allowed_origins":
		return strings.Join(cfg.Server.CORSAllowedOrigins, ","), nil
	case "logging.level":
		return cfg.Logging.Level, nil
	case "logging.format":
		return cfg.Logging.Format, nil
	case "telemetry.otlp_endpoint":
		return cfg.Telemetry.OTLPEndpoint, nil
	case "telemetry.service_name":
		return cfg.Telemetry.ServiceName, nil
	case "telemetry.insecure":
		return cfg.Telemetry.Insecure, nil
	case "telemetry.metrics":
		return cfg.Telemetry.Metrics, nil
	}
	if id, field, ok := gatewayKey(key); ok {
		gw, exists := cfg.Gateways[id]
		if !exists {
			return nil, fmt.Errorf("gateway %q is not configured", id)
		}
		v, exists := gw[field]
		if !exists {
			return nil, fmt.Errorf("gateways.%s has no key %q", id, field)
		}
		return v, nil
	}
	return nil, fmt.Errorf("unknown configuration key: %s", key)
}

// SetValue reads the existing TOML file, updates a single key, and writes it back.
// Creates the file with just the key if it doesn't exist.
func SetValue(configPath, key, value string) error {
	var data map[string]any
	if raw, err := os.ReadFile(configPath); err == nil {
		if err := toml.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parsing %s: %w", configPath, err)
		}
	}
	if data == nil {
		data = make(map[string]any)
	}

	if !IsValidKey(key) {
		if !strings.Contains(key, ".") {
			return fmt.Errorf("invalid key format: %s (expected section.field)", key)
		}
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	parts := strings.Split(key, ".")

	// Walk down to the table that holds the last segment.
	table := data
	for _, section := range parts[:len(parts)-1] {
		next, ok := table[section].(map[string]any)
		if !ok {
			next = make(map[string]any)
			table[section] = next
		}
		table = next
	}
	table[parts[len(parts)-1]] = coerceValue(key, value)

	out, err := toml.Marshal(data)
	if err != nil {
		return fmt.Errorf("serializing config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(configPath, out, 0o644)
}

// coerceValue converts a string value to the appropriate Go type for TOML serialization.
func coerceValue(key, value string) any {
	switch key {
	case "telemetry.insecure", "telemetry.metrics":
		return value == "true" || value == "1"
	case "timeout", "server.port", "server.shutdown_timeout", "server.rate_limit":
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		return value
	case "default.gateways", "default.allowed_countries", "server.cors_allowed_origins":
		return splitList(value)
	}
	if _, field, ok := gatewayKey(key); ok {
		switch field {
		case "timeout":
			if n, err := strconv.Atoi(value); err == nil {
				return n
			}
		case "log":
			if b, err := strconv.ParseBool(value); err == nil {
				return b
			}
		}
	}
	return value
}

const defaultTOML = `# easysms configuration

# Per-attempt HTTP timeout in milliseconds, inherited by every gateway.
timeout = 5000

[default]
# Dispatch strategy: "order" tries gateways as listed, "random" shuffles them.
strategy = "order"
# Gateways tried when a send names none. "test" needs no configuration.
gateways = ["test"]
# Restrict destinations to these ISO country codes (empty allows all).
# allowed_countries = ["CN", "HK"]

[gateways.test]
log = true

# [gateways.aliyun]
# access_key_id = ""
# access_key_secret = ""
# sign_name = ""

# [gateways.tencent]
# secret_id = ""
# secret_key = ""
# sdk_app_id = ""
# sign_name = ""
# region = "ap-guangzhou"

# [gateways.baidu]
# ak = ""
# sk = ""
# sign_name = ""

# [gateways.qiniu]
# access_key = ""
# secret_key = ""

# [gateways.yunpian]
# api_key = ""
# sign_name = "【easysms】"

# A second account of the same vendor uses the gateway key.
# [gateways.aliyun_backup]
# gateway = "aliyun"
# access_key_id = ""
# access_key_secret = ""
# timeout = 3000

[server]
host = "0.0.0.0"
port = 8095
# Seconds to wait for in-flight requests on shutdown.
shutdown_timeout = 10
# Require "Authorization: Bearer <token>" on /api (at least 32 characters).
# jwt_secret = ""
# Sends per minute per client IP on POST /api/sms/send. 0 disables.
rate_limit = 60
# Origins allowed by CORS. "*" allows any.
cors_allowed_origins = ["*"]

[logging]
# Log level: debug, info, warn, error.
level = "info"
# Log format: json or text.
format = "json"

[telemetry]
# OTLP gRPC endpoint for traces, e.g. "localhost:4317". Empty disables export.
otlp_endpoint = ""
service_name = "easysms"
insecure = false
# Expose Prometheus metrics at /metrics.
metrics = true
`
