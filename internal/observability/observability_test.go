package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestInitLoggerRedactsCredentials(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := InitLogger(LogConfig{Level: "info", Format: "json", Output: &buf})
	logger.Info("gateway configured",
		"gateway", "aliyun",
		"access_key_secret", "s3cr3t",
		"api_key", "k",
		"sk", "qiniu-sk",
		"Authorization", "Bearer x",
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "aliyun", entry["gateway"])
	for _, key := range []string{"access_key_secret", "api_key", "sk", "Authorization"} {
		assert.Equal(t, "[REDACTED]", entry[key], key)
	}
	assert.NotContains(t, buf.String(), "s3cr3t")
	assert.Same(t, logger, slog.Default())
}

func TestInitLoggerTextAndLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := InitLogger(LogConfig{Level: "warn", Format: "text", Output: &buf})
	logger.Info("dropped")
	logger.Warn("kept", "password", "hunter2")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "msg=kept")
	assert.Contains(t, out, "password=[REDACTED]")
}

func TestNewRedactingHandlerChainsReplaceAttr(t *testing.T) {
	var buf bytes.Buffer
	h := NewRedactingHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "phone" {
				return slog.String("phone", "***")
			}
			return a
		},
	})
	slog.New(h).Info("sent", "phone", "13188888888", "secret_key", "x")

	assert.Contains(t, buf.String(), `"phone":"***"`)
	assert.Contains(t, buf.String(), `"secret_key":"[REDACTED]"`)
}

func TestInitTracerWithoutEndpoint(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	tp, err := InitTracer(context.Background(), TracerConfig{ServiceName: "easysms-test", ServiceVersion: "dev"})
	require.NoError(t, err)

	ctx, span := otel.Tracer("test").Start(context.Background(), "send")
	assert.Len(t, TraceIDFromContext(ctx), 32)
	span.End()

	assert.Empty(t, TraceIDFromContext(context.Background()))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTracerProviderShutdownNil(t *testing.T) {
	var tp *TracerProvider
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestObserveAttemptAndMetricsHandler(t *testing.T) {
	before := promtest.ToFloat64(gatewayAttempts.WithLabelValues("qiniu", "success"))
	ObserveAttempt("qiniu", "success", 25*time.Millisecond)
	after := promtest.ToFloat64(gatewayAttempts.WithLabelValues("qiniu", "success"))
	assert.Equal(t, before+1, after)

	w := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `easysms_gateway_attempts_total{gateway="qiniu",status="success"}`)
	assert.Contains(t, w.Body.String(), "easysms_gateway_attempt_duration_seconds_bucket")
}
