package realtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

const defaultEventBuffer = 1000

// Bus manages subscriptions and broadcasts Events to every subscriber
// concurrently, grounded on the teacher's DefaultEventBus
// (internal/realtime/bus.go): a buffered intake channel drained by a
// single background worker, non-blocking Publish that drops on overflow.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}

	eventChan chan Event
	sequence  int64

	logger *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Bus (not started; call Start to begin broadcasting).
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[Subscriber]struct{}),
		eventChan:   make(chan Event, defaultEventBuffer),
		logger:      logger.With("component", "realtime_bus"),
		stopCh:      make(chan struct{}),
	}
}

// Subscribe registers sub to receive future broadcasts.
func (b *Bus) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[sub] = struct{}{}
	b.logger.Info("subscriber added", "subscriber_id", sub.ID(), "total", len(b.subscribers))
}

// Unsubscribe removes sub and closes it.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	_, ok := b.subscribers[sub]
	delete(b.subscribers, sub)
	b.mu.Unlock()

	if ok {
		sub.Close()
		b.logger.Info("subscriber removed", "subscriber_id", sub.ID())
	}
}

// ActiveSubscribers reports the current subscriber count.
func (b *Bus) ActiveSubscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Publish enqueues event for broadcast, assigning it the next sequence
// number. Non-blocking: if the intake channel is full, the event is
// dropped and ErrEventChannelFull is returned.
func (b *Bus) Publish(event Event) error {
	event.Sequence = atomic.AddInt64(&b.sequence, 1)
	select {
	case b.eventChan <- event:
		return nil
	default:
		b.logger.Warn("event channel full, dropping event", "event_type", event.Type, "event_id", event.ID)
		return ErrEventChannelFull
	}
}

// Start runs the broadcast worker in a background goroutine.
func (b *Bus) Start(ctx context.Context) {
	b.wg.Add(1)
	go b.run(ctx)
	b.logger.Info("event bus started")
}

// Stop signals the broadcast worker and waits for it to exit. Events still
// queued when the worker sees the signal are not broadcast.
func (b *Bus) Stop() {
	close(b.stopCh)
	b.wg.Wait()
	b.logger.Info("event bus stopped")
}

func (b *Bus) run(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopCh:
			return
		case event := <-b.eventChan:
			b.broadcast(event)
		}
	}
}

func (b *Bus) broadcast(event Event) {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.subscribers))
	for s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub Subscriber) {
			defer wg.Done()
			select {
			case <-sub.Context().Done():
				b.Unsubscribe(sub)
				return
			default:
			}
			if err := sub.Send(event); err != nil {
				b.logger.Warn("failed to send event", "subscriber_id", sub.ID(), "error", err)
				b.Unsubscribe(sub)
			}
		}(sub)
	}
	wg.Wait()
}
