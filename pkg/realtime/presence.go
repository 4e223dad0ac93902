package realtime

import (
	"sort"
	"sync"
)

// Presence maps a user identity to its single live connection. A new
// connection for the same user replaces the previous entry without closing
// it (last connect wins).
type Presence struct {
	mu     sync.RWMutex
	byUser map[string]*Client
}

func NewPresence() *Presence {
	return &Presence{byUser: make(map[string]*Client)}
}

// Announce registers c as the live connection for its user and returns the
// connection it displaced, if any.
func (p *Presence) Announce(c *Client) (replaced *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.byUser[c.UserID]
	p.byUser[c.UserID] = c
	if prev == c {
		return nil
	}
	return prev
}

// Remove drops the presence entry for c's user, but only if the entry still
// points at c. A stale disconnect must not evict a newer connection.
func (p *Presence) Remove(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.byUser[c.UserID] != c {
		return false
	}
	delete(p.byUser, c.UserID)
	return true
}

// Get returns the live connection for userID, or nil.
func (p *Presence) Get(userID string) *Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byUser[userID]
}

// Online returns a sorted snapshot of user ids with a live connection.
func (p *Presence) Online() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.byUser))
	for id := range p.byUser {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
