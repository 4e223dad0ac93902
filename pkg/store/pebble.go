package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"sparkchat/pkg/logger"
	"sparkchat/pkg/models"
	"sparkchat/pkg/utils"
)

var (
	db     *pebble.DB
	dbPath string

	// convMu serializes get-or-create so the pair-index check and the
	// subsequent write cannot interleave between two callers.
	convMu sync.Mutex

	// seq breaks ties between records sharing the same nanosecond timestamp.
	seq uint64
)

// Key layout:
//
//	conv:meta:<id>                        conversation JSON
//	conv:pair:<min>:<max>                 unordered-pair index -> conv id
//	conv:<id>:msg:<%020dTS>-<%06dseq>     message JSON, insertion-ordered
//	msg:id:<msgID>                        primary message key, for seen flips
//	user:<owner>:act:<%020dTS>-<%06dseq>  activity JSON

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func notOpen() error {
	return fmt.Errorf("pebble not opened; call store.Open first")
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "conv:pair:" + a + ":" + b
}

// Metadata records share one contiguous prefix so listing conversations
// never scans message keys.
func convMetaKey(id string) []byte {
	return []byte("conv:meta:" + id)
}

// GetOrCreateConversation returns the unique conversation for the unordered
// pair {a, b}, creating it when absent. The created flag reports whether a
// new record was written. Concurrent callers for the same pair observe the
// same conversation.
func GetOrCreateConversation(a, b string) (models.Conversation, bool, error) {
	var conv models.Conversation
	if db == nil {
		return conv, false, notOpen()
	}
	if a == b {
		return conv, false, fmt.Errorf("conversation requires two distinct participants")
	}

	convMu.Lock()
	defer convMu.Unlock()

	pk := []byte(pairKey(a, b))
	if v, closer, err := db.Get(pk); err == nil {
		id := string(v)
		closer.Close()
		c, gerr := GetConversation(id)
		if gerr != nil {
			return conv, false, fmt.Errorf("pair index points at missing conversation %s: %w", id, gerr)
		}
		return c, false, nil
	} else if err != pebble.ErrNotFound {
		return conv, false, err
	}

	conv = models.Conversation{
		ID:           utils.GenConversationID(),
		Participants: []string{a, b},
		CreatedTS:    time.Now().UTC().UnixNano(),
	}
	data, err := json.Marshal(conv)
	if err != nil {
		return conv, false, fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := db.Set(convMetaKey(conv.ID), data, pebble.Sync); err != nil {
		logger.Error("save_conversation_failed", "conversation", conv.ID, "error", err)
		return conv, false, err
	}
	if err := db.Set(pk, []byte(conv.ID), pebble.Sync); err != nil {
		logger.Error("save_conversation_index_failed", "conversation", conv.ID, "error", err)
		return conv, false, err
	}
	conversationsCreated.Inc()
	logger.Info("conversation_created", "conversation", conv.ID)
	return conv, true, nil
}

// GetConversation loads the conversation metadata for the given id.
func GetConversation(id string) (models.Conversation, error) {
	var conv models.Conversation
	if db == nil {
		return conv, notOpen()
	}
	v, closer, err := db.Get(convMetaKey(id))
	if err != nil {
		return conv, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &conv); err != nil {
		return conv, fmt.Errorf("invalid conversation metadata: %w", err)
	}
	return conv, nil
}

// IsNotFound reports whether err marks a missing record.
func IsNotFound(err error) bool {
	return err == pebble.ErrNotFound
}

// ListConversationsFor returns all conversations the user participates in,
// newest first.
func ListConversationsFor(userID string) ([]models.Conversation, error) {
	if db == nil {
		return nil, notOpen()
	}
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("conv:meta:"),
		UpperBound: []byte("conv:meta;"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Conversation
	for iter.First(); iter.Valid(); iter.Next() {
		var c models.Conversation
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			continue
		}
		if c.Has(userID) {
			out = append(out, c)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedTS > out[j].CreatedTS })
	return out, nil
}

// SaveMessage appends a message to its conversation under a sortable
// timestamp key and indexes it by id so the seen flag can be flipped later.
// The store assigns the creation timestamp; readers see messages in
// assignment order.
func SaveMessage(msg *models.Message) error {
	if db == nil {
		return notOpen()
	}
	if msg.Conversation == "" {
		return fmt.Errorf("message requires a conversation id")
	}
	if msg.ID == "" {
		msg.ID = utils.GenMessageID()
	}
	if msg.TS == 0 {
		msg.TS = time.Now().UTC().UnixNano()
	}
	s := atomic.AddUint64(&seq, 1)
	key := fmt.Sprintf("conv:%s:msg:%020d-%06d", msg.Conversation, msg.TS, s)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("save_message_failed", "conversation", msg.Conversation, "key", key, "error", err)
		return err
	}
	if err := db.Set([]byte("msg:id:"+msg.ID), []byte(key), pebble.Sync); err != nil {
		logger.Error("save_message_index_failed", "msg_id", msg.ID, "error", err)
		return err
	}
	messagesSaved.Inc()
	logger.Debug("message_saved", "conversation", msg.Conversation, "msg_id", msg.ID)
	return nil
}

// ListMessages returns all messages for a conversation in creation order.
func ListMessages(conversationID string) ([]models.Message, error) {
	if db == nil {
		return nil, notOpen()
	}
	prefix := []byte("conv:" + conversationID + ":msg:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, fmt.Errorf("invalid message JSON at %s: %w", iter.Key(), err)
		}
		out = append(out, m)
	}
	return out, iter.Error()
}

// GetMessage loads a single message by id.
func GetMessage(id string) (models.Message, error) {
	var m models.Message
	if db == nil {
		return m, notOpen()
	}
	ref, closer, err := db.Get([]byte("msg:id:" + id))
	if err != nil {
		return m, err
	}
	key := append([]byte(nil), ref...)
	closer.Close()
	v, closer2, err := db.Get(key)
	if err != nil {
		return m, err
	}
	defer closer2.Close()
	if err := json.Unmarshal(v, &m); err != nil {
		return m, fmt.Errorf("invalid message JSON: %w", err)
	}
	return m, nil
}

// MarkSeen flips the seen flag to true for the given message ids and
// returns the ids that actually changed. The flag only ever moves
// unseen -> seen; already-seen messages are left untouched. Unknown ids
// are skipped.
func MarkSeen(ids []string) ([]string, error) {
	if db == nil {
		return nil, notOpen()
	}
	var flipped []string
	for _, id := range ids {
		ref, closer, err := db.Get([]byte("msg:id:" + id))
		if err != nil {
			if err == pebble.ErrNotFound {
				continue
			}
			return flipped, err
		}
		key := append([]byte(nil), ref...)
		closer.Close()

		v, closer2, err := db.Get(key)
		if err != nil {
			return flipped, err
		}
		var m models.Message
		uerr := json.Unmarshal(v, &m)
		closer2.Close()
		if uerr != nil {
			return flipped, fmt.Errorf("invalid message JSON: %w", uerr)
		}
		if m.Seen {
			continue
		}
		m.Seen = true
		nb, err := json.Marshal(m)
		if err != nil {
			return flipped, err
		}
		// rewrite in place; the ordering key is unchanged
		if err := db.Set(key, nb, pebble.Sync); err != nil {
			logger.Error("mark_seen_failed", "msg_id", id, "error", err)
			return flipped, err
		}
		flipped = append(flipped, id)
	}
	if len(flipped) > 0 {
		messagesSeen.Add(float64(len(flipped)))
		logger.Debug("messages_marked_seen", "count", len(flipped))
	}
	return flipped, nil
}

// SaveActivity appends an activity record to the owner's feed.
func SaveActivity(a *models.Activity) error {
	if db == nil {
		return notOpen()
	}
	if a.ID == "" {
		a.ID = utils.GenActivityID()
	}
	if a.TS == 0 {
		a.TS = time.Now().UTC().UnixNano()
	}
	s := atomic.AddUint64(&seq, 1)
	key := fmt.Sprintf("user:%s:act:%020d-%06d", a.Owner, a.TS, s)
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("save_activity_failed", "owner", a.Owner, "error", err)
		return err
	}
	activitiesSaved.Inc()
	return nil
}

// ListActivitiesFor returns up to limit activity records for the owner,
// newest first. A non-positive limit returns everything.
func ListActivitiesFor(owner string, limit int) ([]models.Activity, error) {
	if db == nil {
		return nil, notOpen()
	}
	prefix := []byte("user:" + owner + ":act:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Activity
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var a models.Activity
		if err := json.Unmarshal(iter.Value(), &a); err != nil {
			return nil, fmt.Errorf("invalid activity JSON at %s: %w", iter.Key(), err)
		}
		out = append(out, a)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	// stored oldest-first; feed wants newest-first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkActivitiesRead flips every unread activity for the owner to read and
// returns how many changed.
func MarkActivitiesRead(owner string) (int, error) {
	if db == nil {
		return 0, notOpen()
	}
	prefix := []byte("user:" + owner + ":act:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var a models.Activity
		if err := json.Unmarshal(iter.Value(), &a); err != nil {
			continue
		}
		if a.Read {
			continue
		}
		a.Read = true
		nb, err := json.Marshal(&a)
		if err != nil {
			return n, err
		}
		k := append([]byte(nil), iter.Key()...)
		if err := db.Set(k, nb, pebble.Sync); err != nil {
			return n, err
		}
		n++
	}
	return n, iter.Error()
}

// PurgeReadActivities deletes read activity records older than cutoff
// (unix ns) across all owners, at most batch per call; batch <= 0 means
// unbounded. When dryRun is set nothing is deleted and the would-be count
// is returned.
func PurgeReadActivities(cutoff int64, batch int, dryRun bool) (int, error) {
	if db == nil {
		return 0, notOpen()
	}
	prefix := []byte("user:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !strings.Contains(string(iter.Key()), ":act:") {
			continue
		}
		var a models.Activity
		if err := json.Unmarshal(iter.Value(), &a); err != nil {
			continue
		}
		if !a.Read || a.TS >= cutoff {
			continue
		}
		if !dryRun {
			k := append([]byte(nil), iter.Key()...)
			if err := db.Delete(k, pebble.Sync); err != nil {
				return n, err
			}
		}
		n++
		if batch > 0 && n >= batch {
			break
		}
	}
	return n, iter.Error()
}
