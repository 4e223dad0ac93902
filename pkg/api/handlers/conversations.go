package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"sparkchat/pkg/auth"
	"sparkchat/pkg/chat"
	"sparkchat/pkg/logger"
	"sparkchat/pkg/utils"
)

// RegisterConversations registers the conversation routes.
func RegisterConversations(r *mux.Router, svc *chat.Service) {
	r.HandleFunc("/conversations", listConversations(svc)).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{userID}", getOrCreateConversation(svc)).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/messages", listConversationMessages(svc)).Methods(http.MethodGet)
}

// getOrCreateConversation handles POST /conversations/{userID}. The target
// must be a mutual follower of the caller; the pair's conversation is
// created on first contact and returned as-is afterwards.
func getOrCreateConversation(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := auth.UserIDFromContext(r.Context())
		if caller == "" {
			utils.JSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		target := mux.Vars(r)["userID"]
		conv, created, err := svc.GetOrCreateConversation(r.Context(), caller, target)
		if err != nil {
			writeChatError(w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
			logger.Info("conversation_created", "id", conv.ID, "requester", caller, "target", target)
		}
		_ = utils.JSONWrite(w, status, conv)
	}
}

// listConversations handles GET /conversations for the calling user.
func listConversations(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := auth.UserIDFromContext(r.Context())
		if caller == "" {
			utils.JSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		views, err := svc.ListConversations(r.Context(), caller)
		if err != nil {
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, views)
	}
}

// listConversationMessages handles GET /conversations/{id}/messages. Only
// participants may read the history.
func listConversationMessages(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := auth.UserIDFromContext(r.Context())
		if caller == "" {
			utils.JSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		id := mux.Vars(r)["id"]
		msgs, err := svc.ListMessages(r.Context(), id, caller)
		if err != nil {
			writeChatError(w, err)
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, msgs)
	}
}

func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrForbidden):
		utils.JSONError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, chat.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, "not found")
	default:
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
	}
}
