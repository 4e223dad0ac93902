package notify

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"sparkchat/pkg/models"
	"sparkchat/pkg/store"
)

type captureEmitter struct {
	mu     sync.Mutex
	toUser []string
	events []string
}

func (c *captureEmitter) SendToUser(userID, event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toUser = append(c.toUser, userID)
	c.events = append(c.events, event)
}

func openTestStore(t *testing.T) {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { store.Close() })
}

func TestRecordSuppressesSelfActions(t *testing.T) {
	openTestStore(t)
	emit := &captureEmitter{}
	n := New(emit)

	for _, typ := range []models.ActivityType{
		models.ActivityLike, models.ActivityComment, models.ActivityFollow, models.ActivityMessage,
	} {
		act, err := n.Record(context.Background(), "alice", "alice", typ, models.ActivityRefs{})
		require.NoError(t, err)
		require.Nil(t, act, "self-action of type %s must be a no-op", typ)
	}
	require.Empty(t, emit.toUser)

	acts, err := store.ListActivitiesFor("alice", 0)
	require.NoError(t, err)
	require.Empty(t, acts)
}

func TestRecordPersistsAndEmits(t *testing.T) {
	openTestStore(t)
	emit := &captureEmitter{}
	n := New(emit)

	act, err := n.Record(context.Background(), "alice", "bob", models.ActivityFollow, models.ActivityRefs{})
	require.NoError(t, err)
	require.NotNil(t, act)
	require.NotEmpty(t, act.ID)
	require.False(t, act.Read)

	require.Equal(t, []string{"alice"}, emit.toUser)

	acts, err := store.ListActivitiesFor("alice", 0)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	require.Equal(t, models.ActivityFollow, acts[0].Type)
	require.Equal(t, "bob", acts[0].Actor)
}

func TestRecordRejectsUnknownType(t *testing.T) {
	openTestStore(t)
	n := New(nil)
	_, err := n.Record(context.Background(), "alice", "bob", models.ActivityType("poke"), models.ActivityRefs{})
	require.Error(t, err)
}

func TestRecordWithRefs(t *testing.T) {
	openTestStore(t)
	n := New(nil)
	refs := models.ActivityRefs{Conversation: "conv-1", Message: "msg-1"}
	act, err := n.Record(context.Background(), "alice", "bob", models.ActivityMessage, refs)
	require.NoError(t, err)
	require.Equal(t, "conv-1", act.Conversation)
	require.Equal(t, "msg-1", act.Message)
}
