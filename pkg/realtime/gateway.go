package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"sparkchat/pkg/auth"
	"sparkchat/pkg/logger"
	"sparkchat/pkg/models"
	"sparkchat/pkg/store"
)

// MessageService is the slice of the chat pipeline the gateway drives.
type MessageService interface {
	SendMessage(ctx context.Context, conversationID, senderID, text string, broadcast bool) (*models.Message, error)
	MarkSeen(ctx context.Context, conversationID, userID string, messageIDs []string, broadcast bool) ([]string, error)
}

// Gateway upgrades HTTP requests to websocket connections and routes their
// events. Connection identity comes from the session token presented at
// upgrade time; client-declared sender ids are rejected when they disagree.
type Gateway struct {
	Hub *Hub
	Svc MessageService

	SendBuffer int
	MaxPayload int64

	upgrader websocket.Upgrader
}

func NewGateway(hub *Hub, svc MessageService, sendBuffer int, maxPayload int64, originAllowed func(string) bool) *Gateway {
	g := &Gateway{Hub: hub, Svc: svc, SendBuffer: sendBuffer, MaxPayload: maxPayload}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if originAllowed == nil {
				return true
			}
			return originAllowed(origin)
		},
	}
	return g
}

// ServeHTTP handles GET /v1/ws.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		// The websocket route may be mounted outside the auth middleware;
		// verify the token directly in that case.
		var err error
		userID, err = auth.Authenticate(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws_upgrade_failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	if g.MaxPayload > 0 {
		conn.SetReadLimit(g.MaxPayload)
	}
	client := NewClient(userID, conn, g.SendBuffer)
	g.Hub.Register(client)
	logger.Info("ws_connected", "user", userID, "remote", r.RemoteAddr)
	go client.WritePump()
	g.readLoop(client)
}

// Serve runs the event loop for an already-established connection. Exposed
// for tests that drive fake connections.
func (g *Gateway) Serve(client *Client) {
	g.Hub.Register(client)
	go client.WritePump()
	g.readLoop(client)
}

func (g *Gateway) readLoop(client *Client) {
	defer g.disconnect(client)
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			client.SendEvent(EvtError, ErrorEvent{Code: "bad_event", Message: "malformed event frame"})
			continue
		}
		g.dispatch(client, env)
	}
}

// dispatch routes one inbound event. A panic in a handler must not take the
// gateway down with it.
func (g *Gateway) dispatch(client *Client, env Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("ws_handler_panic", "event", env.Event, "user", client.UserID, "panic", rec)
			client.SendEvent(EvtError, ErrorEvent{Code: "internal", Message: "internal error"})
		}
	}()
	eventsInCounter.WithLabelValues(env.Event).Inc()

	switch env.Event {
	case EvtPresenceAnnounce:
		g.handleAnnounce(client)
	case EvtConversationJoin:
		g.handleJoin(client, env.Data)
	case EvtMessageSend:
		g.handleSend(client, env.Data)
	case EvtMessageSeen:
		g.handleSeen(client, env.Data)
	default:
		client.SendEvent(EvtError, ErrorEvent{Code: "bad_event", Message: "unknown event: " + env.Event})
	}
}

func (g *Gateway) handleAnnounce(client *Client) {
	replaced := g.Hub.Presence.Announce(client)
	if replaced != nil {
		logger.Debug("presence_replaced", "user", client.UserID)
	}
	g.Hub.BroadcastOnline()
}

func (g *Gateway) handleJoin(client *Client, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" {
		client.SendEvent(EvtError, ErrorEvent{Code: "bad_event", Message: "conversationId required"})
		return
	}
	conv, err := store.GetConversation(p.ConversationID)
	if err != nil {
		if store.IsNotFound(err) {
			client.SendEvent(EvtError, ErrorEvent{Code: "not_found", Message: "unknown conversation"})
		} else {
			client.SendEvent(EvtError, ErrorEvent{Code: "internal", Message: "lookup failed"})
		}
		return
	}
	// Only participants may subscribe to a conversation's room.
	if !conv.Has(client.UserID) {
		client.SendEvent(EvtError, ErrorEvent{Code: "forbidden", Message: "not a participant"})
		return
	}
	g.Hub.Rooms.Join(p.ConversationID, client)
}

func (g *Gateway) handleSend(client *Client, data json.RawMessage) {
	var p sendPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" || p.Text == "" {
		client.SendEvent(EvtError, ErrorEvent{Code: "bad_event", Message: "conversationId and text required"})
		return
	}
	if p.SenderID != "" && p.SenderID != client.UserID {
		client.SendEvent(EvtError, ErrorEvent{Code: "forbidden", Message: "sender does not match connection identity"})
		return
	}
	if _, err := g.Svc.SendMessage(context.Background(), p.ConversationID, client.UserID, p.Text, true); err != nil {
		logger.Warn("ws_send_failed", "user", client.UserID, "conversation", p.ConversationID, "error", err)
		client.SendEvent(EvtError, ErrorEvent{Code: errorCode(err, "send_failed"), Message: err.Error()})
	}
}

// errorCode maps service errors onto the wire error taxonomy, falling back
// to the operation-specific code for anything unclassified.
func errorCode(err error, fallback string) string {
	switch {
	case errors.Is(err, models.ErrForbidden):
		return "forbidden"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	}
	return fallback
}

func (g *Gateway) handleSeen(client *Client, data json.RawMessage) {
	var p seenPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" || len(p.MessageIDs) == 0 {
		client.SendEvent(EvtError, ErrorEvent{Code: "bad_event", Message: "conversationId and messageIds required"})
		return
	}
	if _, err := g.Svc.MarkSeen(context.Background(), p.ConversationID, client.UserID, p.MessageIDs, true); err != nil {
		client.SendEvent(EvtError, ErrorEvent{Code: errorCode(err, "seen_failed"), Message: err.Error()})
	}
}

func (g *Gateway) disconnect(client *Client) {
	wasPresent := g.Hub.Unregister(client)
	client.Close()
	if wasPresent {
		g.Hub.BroadcastOnline()
	}
	logger.Info("ws_disconnected", "user", client.UserID)
}
