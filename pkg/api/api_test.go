package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"sparkchat/pkg/auth"
	"sparkchat/pkg/chat"
	"sparkchat/pkg/models"
	"sparkchat/pkg/notify"
	"sparkchat/pkg/social"
	"sparkchat/pkg/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { store.Close() })
	dir := social.NewMemory()
	dir.AddUser(models.UserRef{ID: "alice", Name: "Alice", Avatar: "alice.png"})
	dir.AddUser(models.UserRef{ID: "bob", Name: "Bob"})
	dir.AddUser(models.UserRef{ID: "mallory", Name: "Mallory"})
	dir.Follow("alice", "bob")
	dir.Follow("bob", "alice")
	svc := &chat.Service{Directory: dir, Notify: notify.New(nil)}
	return NewRouter(svc, nil)
}

// do issues a request with the caller identity already injected, standing in
// for the auth middleware.
func do(t *testing.T, h http.Handler, caller, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		req = req.WithContext(auth.WithUserID(context.Background(), caller))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateConversationMutualFollowGate(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, "alice", http.MethodPost, "/v1/conversations/mallory", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, "alice", http.MethodPost, "/v1/conversations/bob", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var conv models.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	require.ElementsMatch(t, []string{"alice", "bob"}, conv.Participants)

	// second call returns the same conversation with 200
	rec = do(t, h, "bob", http.MethodPost, "/v1/conversations/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var again models.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	require.Equal(t, conv.ID, again.ID)
}

func TestCreateConversationUnknownTarget(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, "alice", http.MethodPost, "/v1/conversations/ghost", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListConversationsResolvesPeers(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, "alice", http.MethodPost, "/v1/conversations/bob", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, "bob", http.MethodGet, "/v1/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []chat.ConversationView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	require.Equal(t, "Alice", views[0].Peer.Name)
	require.Equal(t, "alice.png", views[0].Peer.Avatar)
}

func TestMessageFlow(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, "alice", http.MethodPost, "/v1/conversations/bob", nil)
	var conv models.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))

	rec = do(t, h, "alice", http.MethodPost, "/v1/messages", map[string]string{
		"conversationId": conv.ID, "text": "hello",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var msg models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	require.False(t, msg.Seen)

	// outsiders cannot read the history
	rec = do(t, h, "mallory", http.MethodGet, "/v1/conversations/"+conv.ID+"/messages", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, "bob", http.MethodGet, "/v1/conversations/"+conv.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	require.Equal(t, "hello", msgs[0].Text)

	rec = do(t, h, "bob", http.MethodPost, "/v1/messages/seen", map[string]any{
		"conversationId": conv.ID, "messageIds": []string{msg.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var seen map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seen))
	require.Equal(t, []string{msg.ID}, seen["seen"])
}

func TestMessagesUnknownConversation(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, "alice", http.MethodGet, "/v1/conversations/conv-nope/messages", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "alice", http.MethodPost, "/v1/messages", map[string]string{
		"conversationId": "conv-nope", "text": "hi",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessagesBadRequest(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, "alice", http.MethodPost, "/v1/messages", map[string]string{"text": "hi"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnauthenticatedRequests(t *testing.T) {
	h := newTestRouter(t)
	for _, c := range []struct{ method, path string }{
		{http.MethodGet, "/v1/conversations"},
		{http.MethodPost, "/v1/conversations/bob"},
		{http.MethodGet, "/v1/activity"},
	} {
		rec := do(t, h, "", c.method, c.path, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", c.method, c.path)
	}
}

func TestActivityFeed(t *testing.T) {
	h := newTestRouter(t)
	n := notify.New(nil)
	for i := 0; i < 35; i++ {
		_, err := n.Record(context.Background(), "alice", "bob", models.ActivityLike,
			models.ActivityRefs{Post: fmt.Sprintf("post-%d", i)})
		require.NoError(t, err)
	}

	rec := do(t, h, "alice", http.MethodGet, "/v1/activity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var acts []models.Activity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acts))
	require.Len(t, acts, 30, "default page is the 30 most recent")
	require.Equal(t, "post-34", acts[0].Post)

	rec = do(t, h, "alice", http.MethodGet, "/v1/activity?limit=5", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acts))
	require.Len(t, acts, 5)

	rec = do(t, h, "alice", http.MethodPost, "/v1/activity/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var read map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &read))
	require.Equal(t, 35, read["read"])

	// idempotent
	rec = do(t, h, "alice", http.MethodPost, "/v1/activity/read", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &read))
	require.Zero(t, read["read"])
}
