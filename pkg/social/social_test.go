package social

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sparkchat/pkg/models"
)

func TestMemoryMutualFollow(t *testing.T) {
	m := NewMemory()
	m.AddUser(models.UserRef{ID: "alice", Name: "Alice"})
	m.AddUser(models.UserRef{ID: "bob", Name: "Bob"})

	ok, err := m.MutualFollow(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.False(t, ok)

	m.Follow("alice", "bob")
	ok, _ = m.MutualFollow(context.Background(), "alice", "bob")
	require.False(t, ok, "one-way follow is not mutual")

	m.Follow("bob", "alice")
	ok, _ = m.MutualFollow(context.Background(), "alice", "bob")
	require.True(t, ok)
	// symmetric
	ok, _ = m.MutualFollow(context.Background(), "bob", "alice")
	require.True(t, ok)
}

func TestMemoryUnknownUser(t *testing.T) {
	m := NewMemory()
	_, err := m.User(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUnknownUser)
}

func TestRemoteClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/alice":
			w.Write([]byte(`{"id":"alice","name":"Alice","avatar":"a.png"}`))
		case "/users/ghost":
			w.WriteHeader(http.StatusNotFound)
		case "/follows/mutual":
			if r.URL.Query().Get("a") == "alice" && r.URL.Query().Get("b") == "bob" {
				w.Write([]byte(`{"mutual":true}`))
				return
			}
			w.Write([]byte(`{"mutual":false}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewRemoteClient(srv.URL, time.Second)

	u, err := c.User(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice", u.Name)

	_, err = c.User(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUnknownUser)

	ok, err := c.MutualFollow(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.MutualFollow(context.Background(), "alice", "carol")
	require.NoError(t, err)
	require.False(t, ok)
}
