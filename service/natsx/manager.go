package natsx

import (
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// Config for the core-NATS connection.
type Config struct {
	Servers       []string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Manager is a thin facade over one NATS connection: publish bytes to a
// subject, subscribe a handler to one. Core NATS only, no JetStream —
// gateway event mirroring is fire-and-forget by design (the hub is
// volatile, a missed event is not replayed).
type Manager struct {
	cfg Config
	nc  *nats.Conn

	mu   sync.Mutex
	subs []*nats.Subscription
}

type Handler func(subject string, data []byte)

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "nats connect")
	}
	return &Manager{cfg: cfg, nc: nc}, nil
}

func (m *Manager) Publish(subject string, data []byte) error {
	if m == nil || m.nc == nil {
		return errors.New("nats manager not initialized")
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	if err := m.nc.PublishMsg(msg); err != nil {
		return errors.Wrap(err, "publish")
	}
	return nil
}

// Subscribe attaches h to subject. No queue group: every gateway gets
// every event.
func (m *Manager) Subscribe(subject string, h Handler) error {
	if m == nil || m.nc == nil {
		return errors.New("nats manager not initialized")
	}
	sub, err := m.nc.Subscribe(subject, func(msg *nats.Msg) {
		h(msg.Subject, msg.Data)
	})
	if err != nil {
		return errors.Wrap(err, "subscribe")
	}
	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()
	return nil
}

func (m *Manager) Close() {
	if m == nil || m.nc == nil {
		return
	}
	m.mu.Lock()
	for _, s := range m.subs {
		_ = s.Drain()
	}
	m.subs = nil
	m.mu.Unlock()
	m.nc.Close()
}
