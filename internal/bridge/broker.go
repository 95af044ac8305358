package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfill/internal/models"
)

const subscriberBufSize = 256

// Broker fans out notifications to all subscribed UI clients. Implements session.Notifier.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan models.Notification
	nextID      atomic.Int64
	lastStatus  string
	logger      *log.Logger
}

// NewBroker creates a new notification broker.
func NewBroker(logger *log.Logger) *Broker {
	return &Broker{
		subscribers: make(map[int64]chan models.Notification),
		logger:      logger,
	}
}

// Subscribe registers a new client. The channel is buffered; slow consumers have notifications dropped.
func (b *Broker) Subscribe() (int64, <-chan models.Notification) {
	id := b.nextID.Add(1)
	ch := make(chan models.Notification, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish sends a notification to all subscribers without blocking.
func (b *Broker) Publish(n models.Notification) {
	b.mu.Lock()
	if n.Kind == models.NotificationStatus {
		b.lastStatus = n.Status
	}
	b.mu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.subscribers) == 0 {
		b.logger.Warn("no UI listening", "notification", n.String())
		return
	}
	for id, ch := range b.subscribers {
		select {
		case ch <- n:
		default:
			b.logger.Debug("dropping notification for slow client", "subscriber", id)
		}
	}
}

// Busy publishes the busy flag.
func (b *Broker) Busy(busy bool) {
	b.Publish(models.BusyNotification(busy))
}

// Status publishes a status string.
func (b *Broker) Status(status string) {
	b.Publish(models.StatusNotification(status))
}

// LastStatus returns the most recent status string.
func (b *Broker) LastStatus() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastStatus
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
