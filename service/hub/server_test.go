package hub

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenAuth accepts tokens of the form "user-<id>".
type tokenAuth struct{}

func (tokenAuth) Verify(token string) (string, error) {
	if id, ok := strings.CutPrefix(token, "user-"); ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

type presenceRecorder struct {
	mu      sync.Mutex
	online  []string
	offline []string
}

func (p *presenceRecorder) Online(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = append(p.online, userID)
	return nil
}

func (p *presenceRecorder) Offline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offline = append(p.offline, userID)
	return nil
}

func (p *presenceRecorder) snapshot() (online, offline []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.online...), append([]string(nil), p.offline...)
}

func newTestGateway(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := NewServer("test-node", tokenAuth{}, opts...)
	r := gin.New()
	r.GET("/ws/chats/:chat_id", s.HandleWS)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return s, ts
}

func dialChat(t *testing.T, ts *httptest.Server, chatID, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chats/" + chatID
	if token != "" {
		u += "?token=" + token
	}
	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func waitMembers(t *testing.T, s *Server, g GroupKey, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(s.Registry().Members(g)) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("group %s never reached %d members (have %d)", g, n, len(s.Registry().Members(g)))
}

func readWire(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestMessageReachesEveryChatMember(t *testing.T) {
	s, ts := newTestGateway(t)
	a := dialChat(t, ts, "42", "user-1")
	b := dialChat(t, ts, "42", "user-2")
	waitMembers(t, s, ChatGroup("42"), 2)

	require.NoError(t, a.WriteJSON(map[string]any{
		"event": "new_message",
		"payload": map[string]any{
			"chat_id": "42",
			"message": map[string]any{
				"id":      "101",
				"sender":  map[string]any{"id": "1", "username": "ada"},
				"content": "hello",
			},
		},
	}))

	// the sender is a member too, both sessions get the frame
	for _, ws := range []*websocket.Conn{a, b} {
		wire := readWire(t, ws)
		assert.Equal(t, "new_message", wire["event"])
		msg := wire["payload"].(map[string]any)["message"].(map[string]any)
		assert.Equal(t, "hello", msg["content"])
		assert.Equal(t, "ada", msg["sender"].(map[string]any)["username"])
	}
}

func TestUnknownEventProducesNothing(t *testing.T) {
	s, ts := newTestGateway(t)
	a := dialChat(t, ts, "7", "user-1")
	b := dialChat(t, ts, "7", "user-2")
	waitMembers(t, s, ChatGroup("7"), 2)

	require.NoError(t, b.WriteJSON(map[string]any{"event": "ping"}))
	require.NoError(t, b.WriteJSON(map[string]any{
		"event": "new_message",
		"payload": map[string]any{
			"chat_id": "7",
			"message": map[string]any{"content": "still alive"},
		},
	}))

	// the first frame a sees is the valid message: the unknown event was
	// swallowed and the connection survived it
	wire := readWire(t, a)
	assert.Equal(t, "new_message", wire["event"])
	msg := wire["payload"].(map[string]any)["message"].(map[string]any)
	assert.Equal(t, "still alive", msg["content"])
}

func TestMalformedJSONKeepsConnection(t *testing.T) {
	s, ts := newTestGateway(t)
	a := dialChat(t, ts, "5", "user-1")
	waitMembers(t, s, ChatGroup("5"), 1)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, a.WriteJSON(map[string]any{
		"event": "new_message",
		"payload": map[string]any{
			"chat_id": "5",
			"message": map[string]any{"content": "ok"},
		},
	}))

	wire := readWire(t, a)
	assert.Equal(t, "new_message", wire["event"])
}

func TestAnonymousSessionJoinsNothing(t *testing.T) {
	s, ts := newTestGateway(t)
	member := dialChat(t, ts, "9", "user-1")
	waitMembers(t, s, ChatGroup("9"), 1)

	anon := dialChat(t, ts, "9", "garbage")
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, s.Registry().Members(ChatGroup("9")), 1)

	// the anonymous transport stays open
	require.NoError(t, anon.WriteJSON(map[string]any{"event": "ping"}))
	_ = member
}

func TestNoTokenSessionJoinsNothing(t *testing.T) {
	s, ts := newTestGateway(t)
	dialChat(t, ts, "3", "")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, s.Registry().Groups())
}

func TestPresenceFlipsAtSessionEdges(t *testing.T) {
	rec := &presenceRecorder{}
	s, ts := newTestGateway(t, WithPresence(rec))
	ws := dialChat(t, ts, "42", "user-7")
	waitMembers(t, s, ChatGroup("42"), 1)

	require.NoError(t, ws.Close())
	waitMembers(t, s, ChatGroup("42"), 0)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, offline := rec.snapshot(); len(offline) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	online, offline := rec.snapshot()
	assert.Equal(t, []string{"7"}, online)
	assert.Equal(t, []string{"7"}, offline)
}

func TestDisconnectLeavesNoStaleMembership(t *testing.T) {
	s, ts := newTestGateway(t)
	a := dialChat(t, ts, "42", "user-1")
	b := dialChat(t, ts, "42", "user-2")
	waitMembers(t, s, ChatGroup("42"), 2)

	require.NoError(t, b.Close())
	waitMembers(t, s, ChatGroup("42"), 1)

	require.NoError(t, a.WriteJSON(map[string]any{
		"event": "new_message",
		"payload": map[string]any{
			"chat_id": "42",
			"message": map[string]any{"content": "after leave"},
		},
	}))
	wire := readWire(t, a)
	assert.Equal(t, "new_message", wire["event"])
}

func TestDispatchMirrorsToPublisher(t *testing.T) {
	var (
		mu        sync.Mutex
		published []Delivery
	)
	pub := publisherFunc(func(g GroupKey, msg Internal) {
		mu.Lock()
		published = append(published, Delivery{Group: g, Msg: msg})
		mu.Unlock()
	})

	s := NewServer("test-node", tokenAuth{}, WithPublisher(pub))
	c := newTestClient("c1", "1", 8)
	s.Dispatch(c, Envelope{Event: EventDeleteChat, Payload: map[string]any{"chat_id": "13"}})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, published, 1)
	assert.Equal(t, ChatGroup("13"), published[0].Group)
	assert.Equal(t, EventChatDeleted, published[0].Msg.Kind)
}

type publisherFunc func(GroupKey, Internal)

func (f publisherFunc) Publish(g GroupKey, msg Internal) { f(g, msg) }
