package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishDeliversToSubscriber(t *testing.T) {
	bus := New(nil)
	bus.Start(context.Background())
	defer bus.Stop()

	sub := NewChannelSubscriber("sub-1", context.Background(), 4)
	bus.Subscribe(sub)
	assert.Equal(t, 1, bus.ActiveSubscribers())

	require.NoError(t, bus.Publish(NewEvent(EventTypeRevisionDemoted, map[string]interface{}{"rid": "tsv:1-a-1"}, EventSourceLifecycle)))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, EventTypeRevisionDemoted, ev.Type)
		assert.Equal(t, int64(1), ev.Sequence)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_SequenceNumbersIncrease(t *testing.T) {
	bus := New(nil)
	bus.Start(context.Background())
	defer bus.Stop()

	sub := NewChannelSubscriber("sub-1", context.Background(), 4)
	bus.Subscribe(sub)

	require.NoError(t, bus.Publish(NewEvent(EventTypeSnapshotTaken, nil, EventSourceSnapshot)))
	require.NoError(t, bus.Publish(NewEvent(EventTypeSnapshotTaken, nil, EventSourceSnapshot)))

	first := <-sub.Events()
	second := <-sub.Events()
	assert.Less(t, first.Sequence, second.Sequence)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := New(nil)
	bus.Start(context.Background())
	defer bus.Stop()

	sub := NewChannelSubscriber("sub-1", context.Background(), 4)
	bus.Subscribe(sub)
	bus.Unsubscribe(sub)
	assert.Equal(t, 0, bus.ActiveSubscribers())
}

func TestBus_CancelledSubscriberIsRemovedOnBroadcast(t *testing.T) {
	bus := New(nil)
	bus.Start(context.Background())
	defer bus.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	sub := NewChannelSubscriber("sub-1", ctx, 4)
	bus.Subscribe(sub)
	cancel()

	require.NoError(t, bus.Publish(NewEvent(EventTypeSnapshotTaken, nil, EventSourceSnapshot)))

	require.Eventually(t, func() bool {
		return bus.ActiveSubscribers() == 0
	}, time.Second, 10*time.Millisecond)
}
