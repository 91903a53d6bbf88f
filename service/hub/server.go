package hub

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ChatProject/logger"
	"ChatProject/tools/ids"
)

const maxFrameSize = 1 << 20 // 1MB

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Authenticator resolves a connect-time credential to a user id.
type Authenticator interface {
	Verify(token string) (string, error)
}

// PresenceStore records which users currently hold a live session. The
// hub only flips a flag at the session edges; the broadcast path never
// touches it.
type PresenceStore interface {
	Online(ctx context.Context, userID string) error
	Offline(ctx context.Context, userID string) error
}

// Publisher mirrors local broadcasts to peer gateways (see Bridge).
type Publisher interface {
	Publish(g GroupKey, msg Internal)
}

// Server owns the registry and drives the connection lifecycle:
// accept -> authenticate -> join -> serve -> teardown.
type Server struct {
	nodeID    string
	reg       *Registry
	auth      Authenticator
	presence  PresenceStore
	pub       Publisher
	queueSize int
}

type Option func(*Server)

func WithPresence(p PresenceStore) Option { return func(s *Server) { s.presence = p } }
func WithPublisher(p Publisher) Option    { return func(s *Server) { s.pub = p } }
func WithQueueSize(n int) Option          { return func(s *Server) { s.queueSize = n } }

func NewServer(nodeID string, auth Authenticator, opts ...Option) *Server {
	s := &Server{
		nodeID:    nodeID,
		reg:       NewRegistry(),
		auth:      auth,
		queueSize: 256,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) Registry() *Registry { return s.reg }
func (s *Server) NodeID() string      { return s.nodeID }

// HandleWS serves one WebSocket session on /ws/chats/:chat_id?token=...
//
// The transport is always accepted. A bad or missing token leaves the
// session connected but anonymous: it joins no groups and there is no
// re-authentication path, so it stays inert until the peer hangs up.
// With a verified identity and a chat route param, the session joins
// that chat's group and nothing else.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[hub] upgrade error: %v", err)
		return
	}

	userID := ""
	if token := c.Query("token"); token != "" {
		uid, verr := s.auth.Verify(token)
		if verr != nil {
			logger.Infof("[hub] auth failed, serving anonymous: %v", verr)
		} else {
			userID = uid
		}
	}

	client := NewClient(ids.GenerateString(), userID, ws, s.queueSize)
	chatID := c.Param("chat_id")
	if client.UserID != "" && chatID != "" {
		s.reg.Join(ChatGroup(chatID), client)
	}
	if client.UserID != "" && s.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if perr := s.presence.Online(ctx, client.UserID); perr != nil {
			logger.Warnf("[hub] presence online user=%s err=%v", client.UserID, perr)
		}
		cancel()
	}

	logger.Infof("[hub] connected conn=%s user=%q chat=%q", client.ConnID, client.UserID, chatID)

	go client.writePump()
	s.readLoop(client, ws)
	s.teardown(client)
}

// readLoop pulls frames off the socket until the transport dies. Every
// failure stays contained to this connection: malformed JSON and unknown
// event kinds are logged and skipped, never answered and never fatal.
func (s *Server) readLoop(client *Client, ws *websocket.Conn) {
	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[hub] peer closed conn=%s", client.ConnID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[hub] read timeout conn=%s", client.ConnID)
			} else {
				logger.Infof("[hub] read err conn=%s err=%v", client.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[hub] bad envelope conn=%s err=%v sample=%q", client.ConnID, err, sample)
			continue
		}

		s.Dispatch(client, env)
	}
}

// Dispatch routes one envelope and broadcasts the resulting deliveries,
// in order, to their target groups. Mirrored to the publisher when one
// is wired so peer gateways replay the same broadcasts.
func (s *Server) Dispatch(client *Client, env Envelope) {
	deliveries, err := Route(client, env)
	if err != nil {
		logger.Debugf("[hub] drop event=%q conn=%s: %v", env.Event, client.ConnID, err)
		return
	}
	for _, d := range deliveries {
		n := s.reg.Broadcast(d.Group, d.Msg)
		logger.Debugf("[hub] broadcast kind=%s group=%s recipients=%d", d.Msg.Kind, d.Group, n)
		if s.pub != nil {
			s.pub.Publish(d.Group, d.Msg)
		}
	}
}

// teardown runs exactly once per session, including when the transport
// dies mid-broadcast: membership goes first so no group keeps a stale
// reference, then the writer is released.
func (s *Server) teardown(client *Client) {
	s.reg.LeaveAll(client)
	client.shut()

	if client.UserID != "" && s.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.presence.Offline(ctx, client.UserID); err != nil {
			logger.Warnf("[hub] presence offline user=%s err=%v", client.UserID, err)
		}
		cancel()
	}
	logger.Infof("[hub] disconnected conn=%s user=%q", client.ConnID, client.UserID)
}
