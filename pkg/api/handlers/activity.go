package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"sparkchat/pkg/auth"
	"sparkchat/pkg/store"
	"sparkchat/pkg/utils"
)

// defaultActivityLimit caps the feed when the client does not ask for a
// specific page size.
const defaultActivityLimit = 30

// RegisterActivity registers the activity feed routes.
func RegisterActivity(r *mux.Router) {
	r.HandleFunc("/activity", listActivity).Methods(http.MethodGet)
	r.HandleFunc("/activity/read", markActivityRead).Methods(http.MethodPost)
}

// listActivity handles GET /activity?limit=n, newest first.
func listActivity(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserIDFromContext(r.Context())
	if caller == "" {
		utils.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	limit := defaultActivityLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			utils.JSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	acts, err := store.ListActivitiesFor(caller, limit)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, acts)
}

// markActivityRead handles POST /activity/read; flips every unread activity
// for the caller and reports how many changed.
func markActivityRead(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserIDFromContext(r.Context())
	if caller == "" {
		utils.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	n, err := store.MarkActivitiesRead(caller)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]int{"read": n})
}
