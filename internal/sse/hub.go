package sse

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType is the SSE event name a payment request change is sent under.
type EventType string

const (
	EventRequestIssued    EventType = "payment_request.issued"
	EventRequestFinalized EventType = "payment_request.finalized"
)

// subscriberBuffer is how many events a slow console may lag behind.
const subscriberBuffer = 64

// PaymentRequestEvent describes a payment request after a ledger change. It
// never carries card or billing data.
type PaymentRequestEvent struct {
	Event         EventType `json:"event"`
	RequestName   string    `json:"requestName"`
	ClientID      int       `json:"clientId"`
	Status        string    `json:"status"`
	StatusLabel   string    `json:"statusLabel"`
	TransactionID *string   `json:"transactionId,omitempty"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	OrderID       string    `json:"orderId"`
	IsSandbox     bool      `json:"isSandbox"`
	Timestamp     time.Time `json:"timestamp"`
}

// Filter narrows a subscription to one merchant or one environment. The
// zero Filter receives everything.
type Filter struct {
	ClientID int
	Sandbox  *bool
}

// Matches reports whether e passes the filter.
func (f Filter) Matches(e *PaymentRequestEvent) bool {
	if f.ClientID != 0 && f.ClientID != e.ClientID {
		return false
	}
	if f.Sandbox != nil && *f.Sandbox != e.IsSandbox {
		return false
	}
	return true
}

// Message is one encoded event queued for a subscriber.
type Message struct {
	ID    uint64
	Event EventType
	Data  []byte
}

// Subscriber is an admin console attached to the hub.
type Subscriber struct {
	ID       string
	AdminID  int
	Filter   Filter
	Messages chan Message

	dropped atomic.Int64
}

// Dropped returns how many events were skipped because the buffer was full.
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Hub fans payment request events out to admin consoles.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	seq         atomic.Uint64
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]*Subscriber)}
}

// Subscribe attaches a console for adminID. Events not matching filter are
// never queued for it.
func (h *Hub) Subscribe(id string, adminID int, filter Filter) *Subscriber {
	s := &Subscriber{
		ID:       id,
		AdminID:  adminID,
		Filter:   filter,
		Messages: make(chan Message, subscriberBuffer),
	}

	h.mu.Lock()
	h.subscribers[id] = s
	n := len(h.subscribers)
	h.mu.Unlock()

	log.Info().Str("subscriber", id).Int("admin_id", adminID).Int("subscribers", n).Msg("[SSE] console attached")
	return s
}

// Unsubscribe detaches a console and closes its queue.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	s, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
		close(s.Messages)
	}
	n := len(h.subscribers)
	h.mu.Unlock()

	if ok {
		log.Info().Str("subscriber", id).Int64("dropped", s.Dropped()).Int("subscribers", n).Msg("[SSE] console detached")
	}
}

// Publish queues event for every matching subscriber and returns how many
// received it. A subscriber whose queue is full misses the event.
func (h *Hub) Publish(event *PaymentRequestEvent) int {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("request", event.RequestName).Msg("[SSE] encode event failed")
		return 0
	}
	msg := Message{ID: h.seq.Add(1), Event: event.Event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, s := range h.subscribers {
		if !s.Filter.Matches(event) {
			continue
		}
		select {
		case s.Messages <- msg:
			delivered++
		default:
			s.dropped.Add(1)
			log.Warn().Str("subscriber", s.ID).Str("request", event.RequestName).Msg("[SSE] queue full, event dropped")
		}
	}
	return delivered
}

// Len returns the number of attached consoles.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
