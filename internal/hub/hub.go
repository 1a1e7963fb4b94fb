// Package hub fans session events out to subscribers in real time.
// Each session owns one channel; each subscriber gets its own buffered
// queue so a slow consumer drops its own events instead of blocking the
// pipeline or its peers.
package hub

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meeting-transcription-engine/internal/models"
	"meeting-transcription-engine/internal/observability/logging"
	"meeting-transcription-engine/internal/observability/metrics"
)

// DefaultSubscriberBuffer is the per-subscriber event queue depth.
const DefaultSubscriberBuffer = 64

// Errors returned by hub operations.
var (
	ErrChannelNotFound = errors.New("no channel for session")
	ErrChannelClosed   = errors.New("session channel closed")
)

// Subscription is one subscriber's attachment to a session channel.
type Subscription struct {
	ID        string
	SessionID string

	events  chan models.Event
	dropped atomic.Int64
}

// Events returns the subscriber's receive queue. The channel is closed
// after the session's terminal event has been queued.
func (s *Subscription) Events() <-chan models.Event {
	return s.events
}

// Dropped reports how many events were discarded because this
// subscriber's queue was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// channel groups the subscribers of one session.
type channel struct {
	subscribers map[string]*Subscription
}

// Hub routes session events to their subscribers.
type Hub struct {
	mu       sync.Mutex
	channels map[string]*channel
	// index from connection id to session id for O(1) unsubscribe
	byConn  map[string]string
	buffer  int
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewHub creates a hub. buffer <= 0 selects DefaultSubscriberBuffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{
		channels: make(map[string]*channel),
		byConn:   make(map[string]string),
		buffer:   buffer,
		metrics:  metrics.DefaultMetrics,
		log:      logging.WithComponent("hub"),
	}
}

// CreateChannel allocates the event channel for a session. Creating an
// existing channel is a no-op.
func (h *Hub) CreateChannel(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.channels[sessionID]; ok {
		return
	}
	h.channels[sessionID] = &channel{subscribers: make(map[string]*Subscription)}
	h.log.Debug().Str("sessionId", sessionID).Msg("channel created")
}

// Subscribe attaches a new subscriber to a session channel.
func (h *Hub) Subscribe(sessionID string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.channels[sessionID]
	if !ok {
		return nil, ErrChannelNotFound
	}

	sub := &Subscription{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		events:    make(chan models.Event, h.buffer),
	}
	ch.subscribers[sub.ID] = sub
	h.byConn[sub.ID] = sessionID
	h.metrics.RecordSubscriberAttached()
	h.log.Debug().
		Str("sessionId", sessionID).
		Str("connectionId", sub.ID).
		Int("subscribers", len(ch.subscribers)).
		Msg("subscriber attached")
	return sub, nil
}

// Unsubscribe detaches a subscriber and closes its queue. Unknown
// connection ids are ignored; the session channel itself stays open.
func (h *Hub) Unsubscribe(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionID, ok := h.byConn[connectionID]
	if !ok {
		return
	}
	delete(h.byConn, connectionID)

	ch, ok := h.channels[sessionID]
	if !ok {
		return
	}
	sub, ok := ch.subscribers[connectionID]
	if !ok {
		return
	}
	delete(ch.subscribers, connectionID)
	close(sub.events)
	h.metrics.RecordSubscriberDetached()
	h.log.Debug().
		Str("sessionId", sessionID).
		Str("connectionId", connectionID).
		Msg("subscriber detached")
}

// Publish fans an event out to every subscriber of the session channel.
// Delivery is non-blocking: a subscriber with a full queue loses this
// event and its drop counter advances; other subscribers are unaffected.
func (h *Hub) Publish(sessionID string, event models.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.channels[sessionID]
	if !ok {
		return ErrChannelNotFound
	}

	h.metrics.RecordHubPublish(string(event.Type))
	for _, sub := range ch.subscribers {
		select {
		case sub.events <- event:
		default:
			sub.dropped.Add(1)
			h.metrics.RecordHubDrop(string(event.Type))
			h.log.Warn().
				Str("sessionId", sessionID).
				Str("connectionId", sub.ID).
				Str("eventType", string(event.Type)).
				Msg("slow subscriber, event dropped")
		}
	}
	return nil
}

// CloseChannel tears down a session channel. Subscriber queues are
// closed in place, so events already queued remain readable until
// drained; receives after that report the channel as closed.
func (h *Hub) CloseChannel(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.channels[sessionID]
	if !ok {
		return
	}
	delete(h.channels, sessionID)

	for id, sub := range ch.subscribers {
		delete(h.byConn, id)
		close(sub.events)
		h.metrics.RecordSubscriberDetached()
	}
	h.log.Debug().
		Str("sessionId", sessionID).
		Int("subscribers", len(ch.subscribers)).
		Msg("channel closed")
}

// Subscribers reports the current subscriber count for a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.channels[sessionID]
	if !ok {
		return 0
	}
	return len(ch.subscribers)
}
