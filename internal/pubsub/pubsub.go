// Package pubsub is an in-process topic keyed publish/subscribe bus.
//
// Every subscriber owns a buffered queue. Publish never blocks: a subscriber whose queue is
// full is evicted and its channel closed after the events already queued, so a lagging
// consumer sees its stream end instead of silently missing events. Events of one topic reach
// each subscriber in publish order.
package pubsub

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"bookshelf/internal/metrics"
)

const DefaultBufferSize = 64

type Bus[T any] struct {
	mu          sync.Mutex
	subscribers map[string][]*subscriber[T]
	bufferSize  int
	l           *slog.Logger
}

type subscriber[T any] struct {
	topic   string
	channel chan T
	// evicted is closed by Publish when it drops the subscriber; guarded by Bus.mu
	evicted chan struct{}
	closed  bool
}

func New[T any](bufferSize int, l *slog.Logger) *Bus[T] {
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}

	return &Bus[T]{
		subscribers: make(map[string][]*subscriber[T]),
		bufferSize:  bufferSize,
		l:           l,
	}
}

// Subscribe registers a subscriber before returning. The channel yields events published
// afterwards and is closed once ctx is done or the subscriber falls a full queue behind.
func (b *Bus[T]) Subscribe(ctx context.Context, topic string) <-chan T {
	s := &subscriber[T]{
		topic:   topic,
		channel: make(chan T, b.bufferSize),
		evicted: make(chan struct{}),
	}

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], s)
	b.mu.Unlock()
	metrics.Subscribers.WithLabelValues(topic).Inc()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.evicted:
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		b.drop(s)
	}()

	return s.channel
}

// Publish hands payload to every current subscriber of topic and returns how many accepted it.
// Subscribers that could not take it are evicted.
func (b *Bus[T]) Publish(topic string, payload T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	metrics.EventsPublished.WithLabelValues(topic).Inc()

	delivered := 0
	for _, s := range slices.Clone(b.subscribers[topic]) {
		select {
		case s.channel <- payload:
			delivered++
		default:
			metrics.EventsDropped.WithLabelValues(topic).Inc()
			b.l.Warn("Subscriber queue is full, closing subscription", slog.String("topic", topic))
			b.drop(s)
			close(s.evicted)
		}
	}

	return delivered
}

// Subscribers returns the number of live subscribers of topic
func (b *Bus[T]) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subscribers[topic])
}

// drop deregisters s and closes its channel once; b.mu must be held
func (b *Bus[T]) drop(s *subscriber[T]) {
	if s.closed {
		return
	}
	s.closed = true

	b.remove(s)
	close(s.channel)
	metrics.Subscribers.WithLabelValues(s.topic).Dec()
}

// remove must be called with b.mu held
func (b *Bus[T]) remove(s *subscriber[T]) {
	subs := b.subscribers[s.topic]
	for i, existing := range subs {
		if existing == s {
			b.subscribers[s.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}

	if len(b.subscribers[s.topic]) == 0 {
		delete(b.subscribers, s.topic)
	}
}
