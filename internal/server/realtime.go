package server

import (
	"context"
	"sync"
	"time"
)

const (
	// FeedEventCreated is published when a confession is submitted.
	FeedEventCreated = "confession-created"
	// FeedEventLiked is published when a confession receives a like.
	FeedEventLiked = "confession-liked"
	// FeedEventDeleted is published when an admin removes a confession.
	FeedEventDeleted = "confession-deleted"

	feedEventHeartbeat = "heartbeat"
)

// FeedEvent notifies stream subscribers of a feed mutation.
type FeedEvent struct {
	EventType    string    `json:"event_type"`
	ConfessionID string    `json:"confession_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// FeedDispatcher fans feed events out to connected SSE subscribers. Slow
// subscribers drop events rather than block publishers.
type FeedDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*feedSubscriber
	nextID      int64
	bufferSize  int
}

type feedSubscriber struct {
	id     int64
	stream chan FeedEvent
}

// NewFeedDispatcher constructs a dispatcher with a small per-subscriber buffer.
func NewFeedDispatcher() *FeedDispatcher {
	return &FeedDispatcher{
		subscribers: make(map[int64]*feedSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a stream that receives events until ctx is done.
func (d *FeedDispatcher) Subscribe(ctx context.Context) (<-chan FeedEvent, func()) {
	subscriber := &feedSubscriber{
		id:     d.nextSequence(),
		stream: make(chan FeedEvent, d.bufferSize),
	}
	d.registerSubscriber(subscriber)
	cleanup := func() {
		d.unregisterSubscriber(subscriber.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers the event to every live subscriber without blocking.
func (d *FeedDispatcher) Publish(event FeedEvent) {
	if event.EventType == "" {
		return
	}
	d.mu.RLock()
	copies := make([]*feedSubscriber, 0, len(d.subscribers))
	for _, subscriber := range d.subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- event:
		default:
		}
	}
}

// SubscriberCount reports the number of live subscribers.
func (d *FeedDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

func (d *FeedDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *FeedDispatcher) registerSubscriber(subscriber *feedSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[subscriber.id] = subscriber
}

func (d *FeedDispatcher) unregisterSubscriber(subscriberID int64) {
	d.mu.Lock()
	delete(d.subscribers, subscriberID)
	d.mu.Unlock()
}
