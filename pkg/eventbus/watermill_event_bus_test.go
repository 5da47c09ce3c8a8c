package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantagecrm/automation/pkg/channels/gochannel"
	"github.com/vantagecrm/automation/pkg/eventbus"
	"github.com/vantagecrm/automation/pkg/events"
	"github.com/vantagecrm/automation/pkg/models"
)

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	defer func() { require.NoError(t, bus.Close()) }()

	received := make(chan *events.TriggerFired, 1)

	err = bus.Handle(events.TriggerFiredEvent, func(_ context.Context, event any) error {
		fired, ok := event.(*events.TriggerFired)
		require.True(t, ok)
		received <- fired

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	sent := events.TriggerFired{
		BaseEvent:   events.NewBaseEvent(events.TriggerFiredEvent),
		TriggerType: models.TriggerSaleWon,
		Payload:     models.EventPayload{"value": 75000.0},
	}
	require.NoError(t, bus.Publish(ctx, "crm", sent))

	select {
	case fired := <-received:
		assert.Equal(t, sent.ID, fired.ID)
		assert.Equal(t, models.TriggerSaleWon, fired.TriggerType)
		assert.InDelta(t, 75000.0, fired.Payload["value"], 0.001)
	case <-time.After(2 * time.Second):
		t.Fatal("trigger event was not delivered")
	}
}

func TestWatermillEventBus_UnhandledEventTypeIsAcked(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	defer func() { require.NoError(t, bus.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered; publish must not wedge the subscription.
	event := events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent),
		ExecutionID: "exec-1",
	}
	require.NoError(t, bus.Publish(ctx, "crm", event))
}
