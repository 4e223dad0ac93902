package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the gateway needs. Tests substitute
// in-memory pipes.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

// Client is one live connection. UserID is the identity verified from the
// session token at upgrade time, never a client-declared value.
type Client struct {
	UserID string

	conn      Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID string, conn Conn, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// TrySend queues data for delivery, dropping it if the client's buffer is
// full or the client is closed. Delivery is best effort; slow consumers
// lose events rather than stalling the broadcaster. The send channel is
// never closed, so a broadcast holding a stale subscriber snapshot cannot
// panic when it races a disconnect.
func (c *Client) TrySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// SendEvent encodes and queues a single outbound event.
func (c *Client) SendEvent(event string, payload any) {
	data, err := Encode(event, payload)
	if err != nil {
		return
	}
	c.TrySend(data)
}

// WritePump drains the send queue onto the connection. Runs in its own
// goroutine; exits when Close is called.
func (c *Client) WritePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// Close tears down the connection and releases the write pump. Safe to call
// more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
