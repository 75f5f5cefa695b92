package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/predictarena-go/internal/api"
	"github.com/irfndi/predictarena-go/internal/api/handlers"
	"github.com/irfndi/predictarena-go/internal/config"
	"github.com/irfndi/predictarena-go/internal/logging"
	"github.com/irfndi/predictarena-go/internal/middleware"
	"github.com/irfndi/predictarena-go/internal/models"
	"github.com/irfndi/predictarena-go/internal/services"
)

type okChecker struct{}

func (okChecker) HealthCheck(context.Context) error { return nil }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestServiceName(t *testing.T) {
	assert.Equal(t, "predictarena", serviceName(&config.Config{}))
	assert.Equal(t, "arena-staging", serviceName(&config.Config{Telemetry: config.TelemetryConfig{ServiceName: "arena-staging"}}))
}

func TestRetryPolicy(t *testing.T) {
	policy := retryPolicy(4)
	assert.Equal(t, 4, policy.MaxRetries)
	assert.Equal(t, services.DefaultRetryPolicy().InitialDelay, policy.InitialDelay)
	assert.Equal(t, 0, retryPolicy(0).MaxRetries)
}

func TestNewStandardLogger_WithoutCollector(t *testing.T) {
	cfg := &config.Config{LogLevel: "info", Environment: "test"}
	std, otlp := newStandardLogger(cfg)
	assert.NotNil(t, std)
	assert.Nil(t, otlp)

	cfg.Telemetry = config.TelemetryConfig{Enabled: true, OTLPEndpoint: "not a url"}
	std, otlp = newStandardLogger(cfg)
	assert.NotNil(t, std)
	assert.Nil(t, otlp)
}

func TestNewRouter_WiresMiddlewareAndRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}

	router := newRouter(cfg, logging.NewStandardLoggerWithWriter(io.Discard, "info", "test"), api.Dependencies{
		Contests: handlers.NewContestHandler(nil, quietLogger()),
		Health:   handlers.NewHealthHandler(okChecker{}, okChecker{}, "test"),
		Auth:     middleware.NewAuthMiddleware("secret"),
		Admin:    middleware.NewAdminMiddleware("key"),
	})

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/predictions", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/contests/c1/resolve", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStartEventConsumers_WithoutTelegram(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := services.NewChannelBus(4, quietLogger())
	defer bus.Close()

	err := startEventConsumers(ctx, config.TelegramConfig{}, bus, logging.NewStandardLoggerWithWriter(io.Discard, "info", ""), quietLogger())
	require.NoError(t, err)

	assert.NoError(t, bus.Publish(ctx, services.NewEvent(models.EventContestResolved, "c1", models.ContestResolvedPayload{})))
}

func TestStartEventConsumers_WithTelegram(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := services.NewChannelBus(4, quietLogger())
	defer bus.Close()

	err := startEventConsumers(ctx, config.TelegramConfig{BotToken: "123456:test-token", ChatID: 42}, bus,
		logging.NewStandardLoggerWithWriter(io.Discard, "info", ""), quietLogger())
	assert.NoError(t, err)
}
