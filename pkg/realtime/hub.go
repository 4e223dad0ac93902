package realtime

import (
	"sync"

	"sparkchat/pkg/logger"
)

// Hub owns all live connections plus the presence and room state built on
// top of them. It is the single fan-out point for outbound events.
type Hub struct {
	Presence *Presence
	Rooms    *Broker

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		Presence: NewPresence(),
		Rooms:    NewBroker(),
		clients:  make(map[*Client]struct{}),
	}
}

// Register adds a freshly upgraded connection.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	connectionsGauge.Inc()
}

// Unregister removes a closed connection and tears down its presence and
// room state. Returns true when the user's presence entry was dropped and an
// online-list rebroadcast is due.
func (h *Hub) Unregister(c *Client) (wasPresent bool) {
	h.mu.Lock()
	_, known := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if known {
		connectionsGauge.Dec()
	}
	h.Rooms.LeaveAll(c)
	return h.Presence.Remove(c)
}

// BroadcastAll pushes an event to every live connection.
func (h *Hub) BroadcastAll(event string, payload any) {
	data, err := Encode(event, payload)
	if err != nil {
		logger.Error("broadcast_encode_failed", "event", event, "error", err)
		return
	}
	h.mu.RLock()
	snapshot := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()
	for _, c := range snapshot {
		if !c.TrySend(data) {
			droppedCounter.Inc()
		}
	}
	eventsOutCounter.WithLabelValues(event).Add(float64(len(snapshot)))
}

// BroadcastRoom pushes an event to every connection subscribed to the
// conversation's room, the sender's own connection included.
func (h *Hub) BroadcastRoom(conversationID, event string, payload any) {
	data, err := Encode(event, payload)
	if err != nil {
		logger.Error("broadcast_encode_failed", "event", event, "error", err)
		return
	}
	subs := h.Rooms.Snapshot(conversationID)
	for _, c := range subs {
		if !c.TrySend(data) {
			droppedCounter.Inc()
		}
	}
	eventsOutCounter.WithLabelValues(event).Add(float64(len(subs)))
}

// SendToUser pushes an event to a single user's personal channel. A no-op
// when the user has no live connection.
func (h *Hub) SendToUser(userID, event string, payload any) {
	c := h.Presence.Get(userID)
	if c == nil {
		return
	}
	data, err := Encode(event, payload)
	if err != nil {
		logger.Error("broadcast_encode_failed", "event", event, "error", err)
		return
	}
	if !c.TrySend(data) {
		droppedCounter.Inc()
	}
	eventsOutCounter.WithLabelValues(event).Inc()
}

// BroadcastOnline pushes the full online-user snapshot to every connection.
func (h *Hub) BroadcastOnline() {
	h.BroadcastAll(EvtUsersOnline, h.Presence.Online())
}
