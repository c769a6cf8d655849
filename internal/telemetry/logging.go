// Package telemetry wires up the ambient logging and tracing/metrics
// stack the scheduler runs under; nothing here is part of the
// condition/task/scheduler domain model itself.
package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// InitLogging configures a global slog logger. JSON if
// SCHED_JSON_LOG=1/true/json, else text.
func InitLogging(service string) *slog.Logger {
	mode := strings.ToLower(os.Getenv("SCHED_JSON_LOG"))
	var handler slog.Handler
	if mode == "1" || mode == "true" || mode == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelFromEnv()})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: levelFromEnv()})
	}
	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	logger.Info("logging initialized", "json", mode == "1" || mode == "true" || mode == "json")
	return logger
}

func levelFromEnv() slog.Leveler {
	switch strings.ToLower(os.Getenv("SCHED_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
