package social

import (
	"context"
	"fmt"
	"sync"

	"sparkchat/pkg/models"
)

// ErrUnknownUser is returned when the directory has no profile for an id.
var ErrUnknownUser = fmt.Errorf("unknown user")

// Memory is an in-process Directory backed by maps. It serves tests and
// single-node deployments where the follow graph is seeded at startup.
type Memory struct {
	mu      sync.RWMutex
	users   map[string]models.UserRef
	follows map[string]map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]models.UserRef),
		follows: make(map[string]map[string]struct{}),
	}
}

// AddUser registers or replaces a profile.
func (m *Memory) AddUser(u models.UserRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// Follow records that follower follows followee.
func (m *Memory) Follow(follower, followee string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.follows[follower]
	if !ok {
		set = make(map[string]struct{})
		m.follows[follower] = set
	}
	set[followee] = struct{}{}
}

func (m *Memory) User(ctx context.Context, id string) (models.UserRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return models.UserRef{}, ErrUnknownUser
	}
	return u, nil
}

func (m *Memory) MutualFollow(ctx context.Context, a, b string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.follows1(a, b) && m.follows1(b, a), nil
}

func (m *Memory) follows1(from, to string) bool {
	set, ok := m.follows[from]
	if !ok {
		return false
	}
	_, ok = set[to]
	return ok
}
