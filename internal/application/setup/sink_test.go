package setup

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/go-mail-setup/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []domain.StatusEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev domain.StatusEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestPublisherSink_ForwardsOnlyOutcomes(t *testing.T) {
	pub := &recordingPublisher{}
	sink := PublisherSink{Publisher: pub}

	for _, st := range []domain.EventStatus{domain.EventWaiting, domain.EventProcessing, domain.EventComplete, domain.EventError} {
		sink.Emit(context.Background(), domain.StatusEvent{AttemptID: "a1", Stage: domain.StagePersisting, Status: st})
	}
	require.Len(t, pub.events, 2)
	assert.Equal(t, domain.EventComplete, pub.events[0].Status)
	assert.Equal(t, domain.EventError, pub.events[1].Status)
}

func TestPublisherSink_ErrorsDoNotPropagate(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("topic gone")}
	assert.NotPanics(t, func() {
		PublisherSink{Publisher: pub}.Emit(context.Background(), domain.StatusEvent{Status: domain.EventComplete})
	})
}

func TestSinks_FanOutAndLog(t *testing.T) {
	var buf bytes.Buffer
	pub := &recordingPublisher{}
	sinks := Sinks{
		LogSink{Logger: slog.New(slog.NewJSONHandler(&buf, nil))},
		PublisherSink{Publisher: pub},
	}
	sinks.Emit(context.Background(), domain.StatusEvent{AttemptID: "a1", Stage: domain.StageComplete, Status: domain.EventComplete, Detail: "live"})

	assert.Contains(t, buf.String(), `"attempt_id":"a1"`)
	assert.Contains(t, buf.String(), `"stage":"complete"`)
	assert.Len(t, pub.events, 1)
}

func TestMemoryGuard(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	require.NoError(t, g.Acquire(ctx, "example.com", "a1"))
	assert.NoError(t, g.Acquire(ctx, "example.com", "a1"))
	assert.ErrorIs(t, g.Acquire(ctx, "example.com", "a2"), domain.ErrConflict)
	assert.NoError(t, g.Acquire(ctx, "example.org", "a2"))

	require.NoError(t, g.Release(ctx, "example.com", "a2"))
	assert.ErrorIs(t, g.Acquire(ctx, "example.com", "a2"), domain.ErrConflict)

	require.NoError(t, g.Release(ctx, "example.com", "a1"))
	assert.NoError(t, g.Acquire(ctx, "example.com", "a2"))
}
