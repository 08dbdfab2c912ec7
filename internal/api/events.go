package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/tutu-network/pointledger/internal/app/points"
	"github.com/tutu-network/pointledger/internal/infra/observability"
)

// ─── Live Ledger Events ─────────────────────────────────────────────────────
// GET /api/events?account=alice
// Every committed earn, spend and expiry is pushed to subscribers as an SSE
// message whose event name is the event type.

var _ points.Publisher = (*EventsHub)(nil)

type subscriber struct {
	ch      chan points.Event
	account string // empty receives every account
}

// EventsHub fans ledger events out to SSE clients.
type EventsHub struct {
	mu      sync.Mutex
	clients map[*subscriber]struct{}
	closed  bool
}

// NewEventsHub creates a new event broadcast hub.
func NewEventsHub() *EventsHub {
	return &EventsHub{
		clients: make(map[*subscriber]struct{}),
	}
}

// Publish sends an event to all matching clients. Slow clients miss events
// instead of blocking the ledger.
func (h *EventsHub) Publish(e points.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.clients {
		if sub.account != "" && sub.account != e.Account {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			// Client too slow, drop message
		}
	}
}

// Subscribe registers a client. account filters events; empty means all.
// The channel is closed by the unsubscribe func or by Close.
func (h *EventsHub) Subscribe(account string) (<-chan points.Event, func()) {
	sub := &subscriber{ch: make(chan points.Event, 32), account: account}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}
	h.clients[sub] = struct{}{}
	observability.EventSubscribers.Inc()

	return sub.ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.clients[sub]; ok {
			delete(h.clients, sub)
			close(sub.ch)
			observability.EventSubscribers.Dec()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *EventsHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones. Open SSE handlers
// return, which lets the HTTP server finish shutting down.
func (h *EventsHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.clients {
		delete(h.clients, sub)
		close(sub.ch)
		observability.EventSubscribers.Dec()
	}
}

// HandleSSE serves the live event feed via Server-Sent Events.
func (h *EventsHub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, unsub := h.Subscribe(r.URL.Query().Get("account"))
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			w.Write([]byte("event: " + string(e.Type) + "\n"))
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
