package realtime

import "sync"

// Broker tracks which connections are subscribed to which conversation
// rooms. Membership lives only as long as the connection.
type Broker struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{}
	byClient map[*Client]map[string]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		rooms:    make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]map[string]struct{}),
	}
}

// Join subscribes c to room. Idempotent.
func (b *Broker) Join(room string, c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.rooms[room]
	if !ok {
		set = make(map[*Client]struct{})
		b.rooms[room] = set
	}
	set[c] = struct{}{}
	mine, ok := b.byClient[c]
	if !ok {
		mine = make(map[string]struct{})
		b.byClient[c] = mine
	}
	mine[room] = struct{}{}
}

// LeaveAll removes c from every room it joined.
func (b *Broker) LeaveAll(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for room := range b.byClient[c] {
		if set, ok := b.rooms[room]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(b.rooms, room)
			}
		}
	}
	delete(b.byClient, c)
}

// Member reports whether c is subscribed to room.
func (b *Broker) Member(room string, c *Client) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.rooms[room][c]
	return ok
}

// Snapshot returns the current subscribers of room. Joins that race with a
// broadcast may miss that broadcast; presence is eventually consistent.
func (b *Broker) Snapshot(room string) []*Client {
	b.mu.RLock()
	defer b.mu.RUnlock()
	set := b.rooms[room]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}
