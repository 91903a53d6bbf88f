package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ChatProject/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one live WebSocket session. A user may hold several of them
// (one per device); each keeps its own outbound queue consumed by a
// single writer goroutine, so frames enqueued for a client are delivered
// in order.
type Client struct {
	ConnID string
	UserID string // empty until the connect-time token verified

	ws   *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	joined map[GroupKey]struct{} // cache for teardown only, registry owns membership
	closed bool
}

func NewClient(connID, userID string, ws *websocket.Conn, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Client{
		ConnID: connID,
		UserID: userID,
		ws:     ws,
		send:   make(chan []byte, queueSize),
		joined: make(map[GroupKey]struct{}),
	}
}

// enqueue hands a frame to the writer. It never blocks: a closed client
// or a full queue drops the frame and reports false.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// shut marks the client closed and releases the writer. Idempotent.
func (c *Client) shut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) trackJoin(g GroupKey) {
	c.mu.Lock()
	c.joined[g] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) trackLeave(g GroupKey) {
	c.mu.Lock()
	delete(c.joined, g)
	c.mu.Unlock()
}

// joinedGroups snapshots the teardown cache.
func (c *Client) joinedGroups() []GroupKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]GroupKey, 0, len(c.joined))
	for g := range c.joined {
		out = append(out, g)
	}
	return out
}

// writePump is the sole writer on the socket. It drains the send queue
// and keeps the connection alive with pings; any write error ends the
// session (the read loop notices the closed socket and runs teardown).
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debugf("[hub] write conn=%s err=%v", c.ConnID, err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
