// Command schedulerd boots the condition-driven task scheduler: it
// wires logging, tracing, and metrics, builds a session with a small
// set of demonstration tasks, and runs the tick loop until SIGINT or
// SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/Miksus/red-engine/internal/clock"
	"github.com/Miksus/red-engine/internal/condition"
	"github.com/Miksus/red-engine/internal/eventlog"
	"github.com/Miksus/red-engine/internal/executor"
	"github.com/Miksus/red-engine/internal/scheduler"
	"github.com/Miksus/red-engine/internal/task"
	"github.com/Miksus/red-engine/internal/telemetry"
)

func main() {
	const service = "redengine-scheduler"
	telemetry.InitLogging(service)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTrace := telemetry.InitTracer(ctx, service)
	shutdownMetrics, metrics := telemetry.InitMetrics(ctx, service)

	repo, closeRepo := buildRepository()
	if closeRepo != nil {
		defer closeRepo()
	}

	cfg := task.DefaultConfig()
	cfg.TickInterval = time.Second
	sess := task.NewSession(cfg, repo)

	dispatcher := executor.NewDispatcher(sess, slog.Default())
	dispatcher.Dispatches = metrics.Dispatches
	dispatcher.Terminals = metrics.Terminals

	sched := scheduler.New(sess, dispatcher, slog.Default())
	sched.Limiter = scheduler.NewLaunchLimiter(launchBurst(), launchRefillRate(), otel.GetMeterProvider().Meter(service))
	sched.Metrics = &metrics

	registerDemoTasks(sess)

	if err := sess.AddTask(scheduler.NewShutdownTask(sess, condition.TaskFailed("heartbeat").Gt(3))); err != nil {
		slog.Error("failed to register ShutDown sentinel", "error", err)
	}

	slog.Info("scheduler starting")
	runErr := sched.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	telemetry.Flush(shutdownCtx, shutdownTrace)
	_ = shutdownMetrics(shutdownCtx)

	if runErr != nil && runErr != context.Canceled {
		slog.Error("scheduler exited with error", "error", runErr)
		os.Exit(1)
	}
	slog.Info("scheduler stopped")
}

// buildRepository selects a bbolt-backed event log when SCHED_DB_PATH
// is set, otherwise an in-memory one suited to development and tests.
func buildRepository() (eventlog.Repository, func()) {
	path := os.Getenv("SCHED_DB_PATH")
	if path == "" {
		return eventlog.NewMemRepository(), nil
	}
	repo, err := eventlog.NewBoltRepository(path)
	if err != nil {
		slog.Warn("bbolt repository init failed, falling back to memory", "path", path, "error", err)
		return eventlog.NewMemRepository(), nil
	}
	return repo, func() { _ = repo.Close() }
}

func launchBurst() int {
	return 8
}

func launchRefillRate() float64 {
	return 1.0
}

// registerDemoTasks seeds a minimal, always-available heartbeat task
// so a freshly booted scheduler has visible tick activity; real
// deployments register their own tasks before calling sched.Run.
func registerDemoTasks(sess *task.Session) {
	heartbeat := task.New("heartbeat", task.ExecutionMain, func(ctx context.Context, params map[string]any) (any, error) {
		slog.Info("heartbeat")
		return nil, nil
	})
	heartbeat.StartCond = condition.TaskFinished("heartbeat").
		Within(clock.NewRecurringDelta(time.Minute, time.Time{})).
		Eq(0)
	if err := sess.AddTask(heartbeat); err != nil {
		slog.Error("failed to register heartbeat task", "error", err)
	}
}
