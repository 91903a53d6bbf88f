package hub

import (
	"encoding/json"
	"sync"

	"ChatProject/logger"
)

// GroupKey names a broadcast group: a chat room, one user's sessions, or
// the process-wide online group.
type GroupKey string

const GroupOnline GroupKey = "online"

func ChatGroup(chatID string) GroupKey { return GroupKey("chat:" + chatID) }
func UserGroup(userID string) GroupKey { return GroupKey("user:" + userID) }

// Registry is the only shared mutable state in the gateway. It maps a
// group key to the set of member connections. Groups come into existence
// on first join and vanish when the last member leaves; an absent group
// behaves like an empty one.
type Registry struct {
	mu     sync.RWMutex
	groups map[GroupKey]map[string]*Client // group -> conn id -> client
}

func NewRegistry() *Registry {
	return &Registry{groups: make(map[GroupKey]map[string]*Client)}
}

// Join adds the client to the group. Re-joining is a no-op.
func (r *Registry) Join(g GroupKey, c *Client) {
	if c == nil {
		return
	}
	r.mu.Lock()
	m := r.groups[g]
	if m == nil {
		m = make(map[string]*Client)
		r.groups[g] = m
	}
	m[c.ConnID] = c
	r.mu.Unlock()

	c.trackJoin(g)
}

// Leave removes the client from the group if present. Leaving a group the
// client is not in is a no-op.
func (r *Registry) Leave(g GroupKey, c *Client) {
	if c == nil {
		return
	}
	r.mu.Lock()
	if m := r.groups[g]; m != nil {
		delete(m, c.ConnID)
		if len(m) == 0 {
			delete(r.groups, g)
		}
	}
	r.mu.Unlock()

	c.trackLeave(g)
}

// LeaveAll drops the client from every group it joined. Called exactly
// once at teardown; afterwards no group holds a reference to the client.
func (r *Registry) LeaveAll(c *Client) {
	if c == nil {
		return
	}
	for _, g := range c.joinedGroups() {
		r.Leave(g, c)
	}
}

// Members returns a point-in-time snapshot of the group's member set.
func (r *Registry) Members(g GroupKey) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.groups[g]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// Groups reports the current number of live groups. Debug/stats only.
func (r *Registry) Groups() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}

// Broadcast translates the message once per recipient and enqueues it to
// every client that was a member when the snapshot was taken. The lock is
// not held across sends. A member that is closed or has a full queue is
// skipped; one bad recipient never aborts the rest. Returns the number of
// recipients attempted.
func (r *Registry) Broadcast(g GroupKey, msg Internal) int {
	members := r.Members(g)
	if len(members) == 0 {
		return 0
	}
	for _, c := range members {
		frame, err := json.Marshal(Translate(msg, c))
		if err != nil {
			logger.Errorf("[hub] marshal frame kind=%s err=%v", msg.Kind, err)
			continue
		}
		if !c.enqueue(frame) {
			logger.Debugf("[hub] drop frame kind=%s conn=%s (closed or slow)", msg.Kind, c.ConnID)
		}
	}
	return len(members)
}
