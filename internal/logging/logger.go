package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/irfndi/predictarena-go/internal/models"
	"github.com/sirupsen/logrus"
)

// StandardLogger is the structured business logger. Services log through
// logrus; lifecycle, request and domain events go through here.
type StandardLogger struct {
	logger *slog.Logger
}

// NewStandardLogger creates a JSON logger on stdout.
func NewStandardLogger(logLevel string, environment string) *StandardLogger {
	return NewStandardLoggerWithWriter(os.Stdout, logLevel, environment)
}

// NewStandardLoggerWithWriter creates a JSON logger writing to w.
func NewStandardLoggerWithWriter(w io.Writer, logLevel string, environment string) *StandardLogger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: getSlogLevel(logLevel),
	}))
	if environment != "" {
		logger = logger.With("environment", environment)
	}
	return &StandardLogger{logger: logger}
}

// NewStandardOTLPLogger routes records through the OTLP exporter, falling
// back to stdout JSON when the exporter cannot be created.
func NewStandardOTLPLogger(config OTLPConfig) (*StandardLogger, *OTLPLogger) {
	otlpLogger, err := NewOTLPLogger(config)
	if err != nil {
		fallback := NewStandardLogger(config.LogLevel, config.Environment)
		fallback.WithError(err).Warn("OTLP log exporter unavailable, logging to stdout")
		return fallback, nil
	}
	return &StandardLogger{logger: otlpLogger.Logger()}, otlpLogger
}

// WithContest scopes records to a contest.
func (l *StandardLogger) WithContest(contestID string) *slog.Logger {
	return l.logger.With("contest_id", contestID)
}

func (l *StandardLogger) WithError(err error) *slog.Logger {
	return l.logger.With("error", err.Error())
}

func (l *StandardLogger) LogStartup(serviceName string, version string, port int) {
	l.logger.Info("Application startup",
		"service", serviceName,
		"version", version,
		"port", port,
		"event", "startup",
	)
}

func (l *StandardLogger) LogShutdown(serviceName string, reason string) {
	l.logger.Info("Application shutdown",
		"service", serviceName,
		"reason", reason,
		"event", "shutdown",
	)
}

func (l *StandardLogger) LogAPIRequest(method string, path string, statusCode int, duration int64, userID string) {
	l.logger.Info("API request",
		"method", method,
		"path", path,
		"status", statusCode,
		"duration_ms", duration,
		"user_id", userID,
		"event", "api",
	)
}

// LogDomainEvent records a domain event as a business event scoped to its contest.
func (l *StandardLogger) LogDomainEvent(event models.DomainEvent) {
	l.WithContest(event.ContestID).Info("Business event",
		"event_type", string(event.Type),
		"occurred_at", event.OccurredAt,
		"payload", event.Payload,
		"event", "business",
	)
}

func (l *StandardLogger) Logger() *slog.Logger {
	return l.logger
}

// NewLogrusLogger creates the logrus logger injected into services.
func NewLogrusLogger(logLevel string, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(ParseLogrusLevel(logLevel))
	if environment == "development" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

func getSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogrusLevel maps a config level string to logrus, defaulting to info.
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
