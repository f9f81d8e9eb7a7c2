package grpc

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-alert-board/internal/models"
)

// subscriberBuffer is how many events a subscriber may lag behind before
// further events are dropped for it.
const subscriberBuffer = 100

type subscriber struct {
	userID string
	ch     chan *models.Event
}

type Broadcaster struct {
	subscribers map[uint64]subscriber
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]subscriber),
	}
}

// Subscribe registers a subscriber acting as userID; an empty userID
// subscribes anonymously. Events the subscriber may not see are never
// queued on its channel.
func (b *Broadcaster) Subscribe(userID string) (uint64, chan *models.Event) {
	id := b.nextID.Add(1)
	ch := make(chan *models.Event, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = subscriber{userID: userID, ch: ch}
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if sub, ok := b.subscribers[id]; ok {
		close(sub.ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Broadcast(e *models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if !visible(e, sub.userID) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing streams to exit gracefully
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}

// visible reports whether e should be delivered to a subscriber acting as
// userID. Targeted events reach only their target; anonymous subscribers
// receive public events only.
func visible(e *models.Event, userID string) bool {
	if e.TargetUserID == "" {
		return true
	}
	return userID != "" && e.TargetUserID == userID
}
