package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherEmit(t *testing.T) {
	t.Run("queues events and stamps time", func(t *testing.T) {
		inbox := make(chan Event, 1)
		pub := NewPublisher(inbox, nil)

		pub.Emit(context.Background(), Event{Action: ActionHouseholdRegistered})

		event := <-inbox
		assert.Equal(t, ActionHouseholdRegistered, event.Action)
		assert.False(t, event.Timestamp.IsZero())
	})

	t.Run("drops on overflow instead of blocking", func(t *testing.T) {
		inbox := make(chan Event, 1)
		dropped := 0
		pub := NewPublisher(inbox, func() { dropped++ })

		pub.Emit(context.Background(), Event{Action: ActionHouseholdRegistered})
		pub.Emit(context.Background(), Event{Action: ActionDuplicateRejected})

		assert.Equal(t, 1, dropped)
	})
}

func TestWorkerPersistsEvents(t *testing.T) {
	inbox := make(chan Event, 4)
	store := NewInMemoryStore()
	worker := NewWorker(store, inbox, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	inbox <- Event{Action: ActionDistributionRecorded, Timestamp: time.Now()}
	inbox <- Event{Action: ActionEligibilityDenied, Timestamp: time.Now()}

	require.Eventually(t, func() bool {
		events, err := store.List(context.Background())
		return err == nil && len(events) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
