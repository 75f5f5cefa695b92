package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/predictarena-go/internal/models"
)

// NewEvent stamps a domain event with the current time.
func NewEvent(eventType models.EventType, contestID string, payload any) models.DomainEvent {
	return models.DomainEvent{
		Type:       eventType,
		ContestID:  contestID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// ChannelBus fans events out to in-process subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses the event.
type ChannelBus struct {
	mu          sync.RWMutex
	subscribers []chan models.DomainEvent
	buffer      int
	closed      bool
	logger      *logrus.Logger
}

// NewChannelBus creates a bus whose subscriber channels hold buffer events.
func NewChannelBus(buffer int, logger *logrus.Logger) *ChannelBus {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelBus{buffer: buffer, logger: logger}
}

// Subscribe returns a channel receiving every event published after the call.
// The channel is closed by Close.
func (b *ChannelBus) Subscribe() <-chan models.DomainEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan models.DomainEvent, b.buffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Publish implements EventPublisher.
func (b *ChannelBus) Publish(_ context.Context, event models.DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.New("event bus closed")
	}
	for i, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.WithFields(logrus.Fields{
				"event_type": event.Type,
				"contest_id": event.ContestID,
				"subscriber": i,
			}).Warn("Event subscriber buffer full, dropping event")
		}
	}
	return nil
}

// Close closes all subscriber channels.
func (b *ChannelBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}

// MultiPublisher publishes to every publisher and joins their errors.
type MultiPublisher []EventPublisher

// Publish implements EventPublisher.
func (m MultiPublisher) Publish(ctx context.Context, event models.DomainEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
