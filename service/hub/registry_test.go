package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(connID, userID string, queueSize int) *Client {
	return NewClient(connID, userID, nil, queueSize)
}

// nextFrame pops one queued frame off the client without a writer running.
func nextFrame(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case data := <-c.send:
		var f Frame
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	case <-time.After(time.Second):
		t.Fatalf("no frame queued for conn=%s", c.ConnID)
		return Frame{}
	}
}

func TestRegistryJoinIdempotent(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("c1", "1", 8)

	reg.Join(ChatGroup("42"), c)
	reg.Join(ChatGroup("42"), c)

	assert.Len(t, reg.Members(ChatGroup("42")), 1)
	assert.Equal(t, 1, reg.Groups())
}

func TestRegistryLeaveDropsEmptyGroup(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("c1", "1", 8)

	reg.Join(ChatGroup("42"), c)
	reg.Leave(ChatGroup("42"), c)

	assert.Nil(t, reg.Members(ChatGroup("42")))
	assert.Equal(t, 0, reg.Groups())

	// leaving again, or leaving a group never joined, is a no-op
	reg.Leave(ChatGroup("42"), c)
	reg.Leave(GroupOnline, c)
	assert.Equal(t, 0, reg.Groups())
}

func TestRegistryLeaveAll(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("c1", "1", 8)
	other := newTestClient("c2", "2", 8)

	reg.Join(ChatGroup("1"), c)
	reg.Join(UserGroup("1"), c)
	reg.Join(GroupOnline, c)
	reg.Join(GroupOnline, other)

	reg.LeaveAll(c)

	assert.Empty(t, c.joinedGroups())
	assert.Equal(t, 1, reg.Groups())
	assert.Len(t, reg.Members(GroupOnline), 1)
}

func TestBroadcastEmptyGroup(t *testing.T) {
	reg := NewRegistry()
	n := reg.Broadcast(ChatGroup("42"), Internal{Kind: EventNewMessage})
	assert.Equal(t, 0, n)
}

func TestBroadcastPreservesPerClientOrder(t *testing.T) {
	reg := NewRegistry()
	a := newTestClient("a", "1", 8)
	b := newTestClient("b", "2", 8)
	reg.Join(ChatGroup("42"), a)
	reg.Join(ChatGroup("42"), b)

	first := Internal{Kind: EventNewMessage, Fields: map[string]any{
		"message": map[string]any{"content": "first"},
	}}
	second := Internal{Kind: EventNewMessage, Fields: map[string]any{
		"message": map[string]any{"content": "second"},
	}}

	assert.Equal(t, 2, reg.Broadcast(ChatGroup("42"), first))
	assert.Equal(t, 2, reg.Broadcast(ChatGroup("42"), second))

	for _, c := range []*Client{a, b} {
		f1 := nextFrame(t, c)
		f2 := nextFrame(t, c)
		require.Equal(t, EventNewMessage, f1.Event)
		msg1 := f1.Payload.(map[string]any)["message"].(map[string]any)
		msg2 := f2.Payload.(map[string]any)["message"].(map[string]any)
		assert.Equal(t, "first", msg1["content"])
		assert.Equal(t, "second", msg2["content"])
	}
}

func TestBroadcastSkipsClosedAndSlow(t *testing.T) {
	reg := NewRegistry()
	healthy := newTestClient("h", "1", 8)
	slow := newTestClient("s", "2", 1)
	gone := newTestClient("g", "3", 8)
	reg.Join(GroupOnline, healthy)
	reg.Join(GroupOnline, slow)
	reg.Join(GroupOnline, gone)
	gone.shut()

	msg := Internal{Kind: EventUserOnline, Fields: map[string]any{"user_id": "1"}}
	assert.Equal(t, 3, reg.Broadcast(GroupOnline, msg))
	assert.Equal(t, 3, reg.Broadcast(GroupOnline, msg))

	// healthy got both, the one-slot queue kept only the first, the
	// closed client got nothing
	assert.Len(t, healthy.send, 2)
	assert.Len(t, slow.send, 1)
	assert.Len(t, gone.send, 0)
}

func TestClientShutIdempotent(t *testing.T) {
	c := newTestClient("c1", "1", 1)
	c.shut()
	c.shut()
	assert.False(t, c.enqueue([]byte("x")))
}
