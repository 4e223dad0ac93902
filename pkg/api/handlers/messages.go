package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"sparkchat/pkg/auth"
	"sparkchat/pkg/chat"
	"sparkchat/pkg/utils"
)

// RegisterMessages registers the non-realtime message routes. Both paths
// run through the same pipeline as the gateway, broadcast included, so REST
// sends propagate to open rooms as well.
func RegisterMessages(r *mux.Router, svc *chat.Service) {
	r.HandleFunc("/messages", sendMessage(svc)).Methods(http.MethodPost)
	r.HandleFunc("/messages/seen", markSeen(svc)).Methods(http.MethodPost)
}

func sendMessage(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := auth.UserIDFromContext(r.Context())
		if caller == "" {
			utils.JSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		var body struct {
			ConversationID string `json:"conversationId"`
			Text           string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if body.ConversationID == "" || body.Text == "" {
			utils.JSONError(w, http.StatusBadRequest, "conversationId and text required")
			return
		}
		msg, err := svc.SendMessage(r.Context(), body.ConversationID, caller, body.Text, true)
		if err != nil {
			writeChatError(w, err)
			return
		}
		_ = utils.JSONWrite(w, http.StatusCreated, msg)
	}
}

func markSeen(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := auth.UserIDFromContext(r.Context())
		if caller == "" {
			utils.JSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		var body struct {
			ConversationID string   `json:"conversationId"`
			MessageIDs     []string `json:"messageIds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if body.ConversationID == "" || len(body.MessageIDs) == 0 {
			utils.JSONError(w, http.StatusBadRequest, "conversationId and messageIds required")
			return
		}
		flipped, err := svc.MarkSeen(r.Context(), body.ConversationID, caller, body.MessageIDs, true)
		if err != nil {
			writeChatError(w, err)
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, map[string][]string{"seen": flipped})
	}
}
