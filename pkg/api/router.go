// Package api wires the REST surface for conversations, messages and
// activity, plus the websocket upgrade route.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"sparkchat/pkg/api/handlers"
	"sparkchat/pkg/chat"
)

// NewRouter builds the versioned API router. The websocket gateway is passed
// as a plain handler so the router stays transport-agnostic.
func NewRouter(svc *chat.Service, ws http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterConversations(v1, svc)
	handlers.RegisterMessages(v1, svc)
	handlers.RegisterActivity(v1)
	if ws != nil {
		v1.Handle("/ws", ws).Methods(http.MethodGet)
	}
	return r
}
