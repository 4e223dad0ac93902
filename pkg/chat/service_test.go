package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sparkchat/pkg/bot"
	"sparkchat/pkg/models"
	"sparkchat/pkg/notify"
	"sparkchat/pkg/social"
	"sparkchat/pkg/store"
)

type captureBroadcast struct {
	mu     sync.Mutex
	rooms  []string
	events []string
	loads  []any
}

func (c *captureBroadcast) BroadcastRoom(conversationID, event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms = append(c.rooms, conversationID)
	c.events = append(c.events, event)
	c.loads = append(c.loads, payload)
}

func (c *captureBroadcast) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func newTestService(t *testing.T, dir *social.Memory, gen bot.Generator) (*Service, *captureBroadcast) {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { store.Close() })
	bc := &captureBroadcast{}
	svc := &Service{
		Directory:   dir,
		Broadcast:   bc,
		Notify:      notify.New(nil),
		TypingDelay: 5 * time.Millisecond,
	}
	if gen != nil {
		svc.Responder = bot.NewResponder(gen, time.Second)
	}
	return svc, bc
}

func seedUsers(dir *social.Memory, mutual bool) {
	dir.AddUser(models.UserRef{ID: "alice", Name: "Alice"})
	dir.AddUser(models.UserRef{ID: "bob", Name: "Bob"})
	if mutual {
		dir.Follow("alice", "bob")
		dir.Follow("bob", "alice")
	}
}

func TestGetOrCreateRequiresMutualFollow(t *testing.T) {
	dir := social.NewMemory()
	seedUsers(dir, false)
	dir.Follow("alice", "bob") // one way only
	svc, _ := newTestService(t, dir, nil)

	_, _, err := svc.GetOrCreateConversation(context.Background(), "alice", "bob")
	require.ErrorIs(t, err, ErrForbidden)

	// nothing persisted
	convs, err := store.ListConversationsFor("alice")
	require.NoError(t, err)
	require.Empty(t, convs)
}

func TestGetOrCreateUnknownTarget(t *testing.T) {
	dir := social.NewMemory()
	seedUsers(dir, true)
	svc, _ := newTestService(t, dir, nil)

	_, _, err := svc.GetOrCreateConversation(context.Background(), "alice", "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetOrCreateUniquePerPair(t *testing.T) {
	dir := social.NewMemory()
	seedUsers(dir, true)
	svc, _ := newTestService(t, dir, nil)

	c1, created, err := svc.GetOrCreateConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.True(t, created)

	c2, created, err := svc.GetOrCreateConversation(context.Background(), "bob", "alice")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, c1.ID, c2.ID)
}

func TestListConversationsResolvesPeer(t *testing.T) {
	dir := social.NewMemory()
	seedUsers(dir, true)
	svc, _ := newTestService(t, dir, nil)

	conv, _, err := svc.GetOrCreateConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)

	views, err := svc.ListConversations(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, conv.ID, views[0].ID)
	require.Equal(t, "Bob", views[0].Peer.Name)
}

func TestSendMessageParticipantOnly(t *testing.T) {
	dir := social.NewMemory()
	seedUsers(dir, true)
	dir.AddUser(models.UserRef{ID: "mallory", Name: "Mallory"})
	svc, _ := newTestService(t, dir, nil)

	conv, _, err := svc.GetOrCreateConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), conv.ID, "mallory", "hi", false)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.SendMessage(context.Background(), "conv-nope", "alice", "hi", false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSendMessageWithoutBroadcast(t *testing.T) {
	dir := social.NewMemory()
	seedUsers(dir, true)
	svc, bc := newTestService(t, dir, nil)

	conv, _, err := svc.GetOrCreateConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)

	msg, err := svc.SendMessage(context.Background(), conv.ID, "alice", "hello", false)
	require.NoError(t, err)
	require.False(t, msg.Seen)
	require.Zero(t, bc.count())

	// activity for the other participant was still recorded
	acts, err := store.ListActivitiesFor("bob", 0)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	require.Equal(t, models.ActivityMessage, acts[0].Type)
	require.Equal(t, msg.ID, acts[0].Message)
}

func TestSendMessageOrdering(t *testing.T) {
	dir := social.NewMemory()
	seedUsers(dir, true)
	svc, _ := newTestService(t, dir, nil)

	conv, _, err := svc.GetOrCreateConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)

	for _, text := range []string{"a", "b", "c"} {
		_, err := svc.SendMessage(context.Background(), conv.ID, "alice", text, false)
		require.NoError(t, err)
	}
	msgs, err := svc.ListMessages(context.Background(), conv.ID, "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "a", msgs[0].Text)
	require.Equal(t, "c", msgs[2].Text)
	require.LessOrEqual(t, msgs[0].TS, msgs[1].TS)
	require.LessOrEqual(t, msgs[1].TS, msgs[2].TS)
}

func withBot(dir *social.Memory) {
	dir.AddUser(models.UserRef{ID: "spark-ai", Name: "Spark AI", Bot: true})
	dir.Follow("alice", "spark-ai")
	dir.Follow("spark-ai", "alice")
}

func TestBotRepliesInBotConversation(t *testing.T) {
	dir := social.NewMemory()
	seedUsers(dir, true)
	withBot(dir)
	svc, bc := newTestService(t, dir, &bot.Static{Reply: "hey!"})

	conv, _, err := svc.GetOrCreateConversation(context.Background(), "alice", "spark-ai")
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), conv.ID, "alice", "hello bot", true)
	require.NoError(t, err)

	// human message broadcast plus the delayed bot reply
	require.Eventually(t, func() bool { return bc.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	msgs, err := svc.ListMessages(context.Background(), conv.ID, "alice")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "spark-ai", msgs[1].Sender)
	require.Equal(t, "hey!", msgs[1].Text)
}

func TestBotNeverRepliesToItself(t *testing.T) {
	dir := social.NewMemory()
	seedUsers(dir, true)
	withBot(dir)
	svc, bc := newTestService(t, dir, &bot.Static{Reply: "hey!"})

	conv, _, err := svc.GetOrCreateConversation(context.Background(), "alice", "spark-ai")
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), conv.ID, "spark-ai", "I am the bot", true)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	msgs, err := svc.ListMessages(context.Background(), conv.ID, "alice")
	require.NoError(t, err)
	require.Len(t, msgs, 1, "no second message may appear")
	require.Equal(t, 1, bc.count())
}

func TestBotFallbackOnGenerationFailure(t *testing.T) {
	dir := social.NewMemory()
	seedUsers(dir, true)
	withBot(dir)
	svc, bc := newTestService(t, dir, &bot.Static{Err: fmt.Errorf("model down")})

	conv, _, err := svc.GetOrCreateConversation(context.Background(), "alice", "spark-ai")
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), conv.ID, "alice", "hello", true)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return bc.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	msgs, err := svc.ListMessages(context.Background(), conv.ID, "alice")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, bot.Fallback, msgs[1].Text)
}

func TestNoBotReplyInHumanConversation(t *testing.T) {
	dir := social.NewMemory()
	seedUsers(dir, true)
	svc, bc := newTestService(t, dir, &bot.Static{Reply: "hey!"})

	conv, _, err := svc.GetOrCreateConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), conv.ID, "alice", "hello", true)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	msgs, err := svc.ListMessages(context.Background(), conv.ID, "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, 1, bc.count())
}

func TestMarkSeenBroadcastsFlippedIDs(t *testing.T) {
	dir := social.NewMemory()
	seedUsers(dir, true)
	svc, bc := newTestService(t, dir, nil)

	conv, _, err := svc.GetOrCreateConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)
	msg, err := svc.SendMessage(context.Background(), conv.ID, "alice", "hello", false)
	require.NoError(t, err)

	flipped, err := svc.MarkSeen(context.Background(), conv.ID, "bob", []string{msg.ID}, true)
	require.NoError(t, err)
	require.Equal(t, []string{msg.ID}, flipped)
	require.Equal(t, 1, bc.count())

	// already seen: nothing flips, nothing broadcasts
	flipped, err = svc.MarkSeen(context.Background(), conv.ID, "bob", []string{msg.ID}, true)
	require.NoError(t, err)
	require.Empty(t, flipped)
	require.Equal(t, 1, bc.count())

	msgs, err := svc.ListMessages(context.Background(), conv.ID, "bob")
	require.NoError(t, err)
	require.True(t, msgs[0].Seen)
}

func TestEndToEndConversationFlow(t *testing.T) {
	dir := social.NewMemory()
	seedUsers(dir, true)
	svc, bc := newTestService(t, dir, nil)

	conv, created, err := svc.GetOrCreateConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.True(t, created)

	msg, err := svc.SendMessage(context.Background(), conv.ID, "alice", "hello", true)
	require.NoError(t, err)
	require.Equal(t, "alice", msg.Sender)
	require.False(t, msg.Seen)
	require.Equal(t, 1, bc.count())

	flipped, err := svc.MarkSeen(context.Background(), conv.ID, "bob", []string{msg.ID}, true)
	require.NoError(t, err)
	require.Equal(t, []string{msg.ID}, flipped)

	msgs, err := svc.ListMessages(context.Background(), conv.ID, "alice")
	require.NoError(t, err)
	require.True(t, msgs[0].Seen)

	bc.mu.Lock()
	defer bc.mu.Unlock()
	require.Equal(t, []string{conv.ID, conv.ID}, bc.rooms)
}
