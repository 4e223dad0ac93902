// Package realtime terminates persistent websocket connections, tracks
// presence and room membership, and fans chat events out to subscribers.
package realtime

import "encoding/json"

// Wire event names. Inbound events arrive from clients; outbound events are
// pushed by the server.
const (
	EvtPresenceAnnounce = "presence:announce"
	EvtConversationJoin = "conversation:join"
	EvtMessageSend      = "message:send"
	EvtMessageSeen      = "message:seen" // both directions: request and receipt

	EvtMessageNew  = "message:new"
	EvtUsersOnline = "users:online"
	EvtActivityNew = "activity:new"
	EvtError       = "error"
)

// Envelope is the framing for every wire event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals an outbound event frame.
func Encode(event string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

type joinPayload struct {
	ConversationID string `json:"conversationId"`
}

type sendPayload struct {
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId,omitempty"`
	Text           string `json:"text"`
}

type seenPayload struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
}

// SeenEvent is the outbound receipt broadcast to a conversation room.
type SeenEvent struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
}

// ErrorEvent is sent only to the originating connection when one of its
// events fails.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
