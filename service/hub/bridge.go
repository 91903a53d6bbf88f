package hub

import (
	"encoding/json"

	"ChatProject/logger"
	"ChatProject/service/natsx"
)

// bridgeSubject is shared by every gateway node; events carry their
// origin so a node never replays its own.
const bridgeSubject = "chat.events"

type bridgeEvent struct {
	Origin string   `json:"origin"`
	Group  GroupKey `json:"group"`
	Msg    Internal `json:"msg"`
}

// Bridge mirrors broadcasts between gateway nodes over NATS. Outbound:
// every local broadcast is republished with this node's id. Inbound:
// events from other nodes are replayed into the local registry, reaching
// whatever members this node holds for the group. Delivery is
// best-effort, matching the hub's volatility.
type Bridge struct {
	nm     *natsx.Manager
	nodeID string
	reg    *Registry
}

func NewBridge(nm *natsx.Manager, nodeID string, reg *Registry) *Bridge {
	return &Bridge{nm: nm, nodeID: nodeID, reg: reg}
}

// Publish implements Publisher.
func (b *Bridge) Publish(g GroupKey, msg Internal) {
	ev := bridgeEvent{Origin: b.nodeID, Group: g, Msg: msg}
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Errorf("[bridge] marshal kind=%s err=%v", msg.Kind, err)
		return
	}
	if err := b.nm.Publish(bridgeSubject, data); err != nil {
		logger.Warnf("[bridge] publish kind=%s err=%v", msg.Kind, err)
	}
}

// Start subscribes to the shared subject. The single NATS delivery
// goroutine replays events in arrival order, so per-group ordering from
// one origin is preserved locally.
func (b *Bridge) Start() error {
	return b.nm.Subscribe(bridgeSubject, func(_ string, data []byte) {
		var ev bridgeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Warnf("[bridge] bad event: %v", err)
			return
		}
		if ev.Origin == b.nodeID {
			return
		}
		n := b.reg.Broadcast(ev.Group, ev.Msg)
		logger.Debugf("[bridge] replay kind=%s group=%s origin=%s recipients=%d",
			ev.Msg.Kind, ev.Group, ev.Origin, n)
	})
}
