package setup

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-mail-setup/internal/domain"
)

// StatusSink observes status events. Sinks cannot influence the pipeline.
type StatusSink interface {
	Emit(ctx context.Context, ev domain.StatusEvent)
}

// Sinks fans an event out to every sink in order.
type Sinks []StatusSink

func (s Sinks) Emit(ctx context.Context, ev domain.StatusEvent) {
	for _, sink := range s {
		sink.Emit(ctx, ev)
	}
}

// LogSink writes status events as structured log records.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Emit(ctx context.Context, ev domain.StatusEvent) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if ev.Status == domain.EventError {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "setup status",
		"attempt_id", ev.AttemptID,
		"stage", ev.Stage,
		"status", ev.Status,
		"detail", ev.Detail,
	)
}

// EventPublisher delivers events to an external bus.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.StatusEvent) error
}

// PublisherSink forwards stage completions and failures to an EventPublisher.
// Waiting/processing chatter stays local.
type PublisherSink struct {
	Publisher EventPublisher
	Timeout   time.Duration
}

func (p PublisherSink) Emit(ctx context.Context, ev domain.StatusEvent) {
	if ev.Status != domain.EventComplete && ev.Status != domain.EventError {
		return
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.Publisher.Publish(ctx, ev); err != nil {
		slog.Warn("could not publish status event", "attempt_id", ev.AttemptID, "stage", ev.Stage, "err", err)
	}
}
