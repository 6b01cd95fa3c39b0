package http

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/shared/docpath"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/eventbus"
)

const (
	wsPingInterval = 25 * time.Second
	wsPongWait     = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsQueueSize    = 16
)

// WebSocketMessage is the envelope for every server push.
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`

	// final ends the stream once the message is written.
	final bool
}

var errStoreMissing = errors.NewConfigurationError("document store not configured")

func (h *Handler) registerWebSocketRoutes(app *fiber.App) {
	ws := app.Group("/ws")
	ws.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	ws.Get("/content", websocket.New(h.handleContentStream))
	ws.Get("/documents", websocket.New(h.handleDocumentStream))
}

// wsSession serializes writes to one connection.
type wsSession struct {
	id     string
	conn   *websocket.Conn
	out    chan WebSocketMessage
	ctx    context.Context
	cancel context.CancelFunc
}

func newWSSession(conn *websocket.Conn) *wsSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &wsSession{
		id:     uuid.NewString(),
		conn:   conn,
		out:    make(chan WebSocketMessage, wsQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// send queues msg. A client that falls a full queue behind is dropped.
func (s *wsSession) send(msg WebSocketMessage) bool {
	select {
	case <-s.ctx.Done():
		return false
	case s.out <- msg:
		return true
	default:
		s.cancel()
		return false
	}
}

// writeLoop owns every write on the connection, pings included. Peers answer
// pings on their own, which keeps quiet streams alive.
func (s *wsSession) writeLoop(h *Handler) {
	ping := time.NewTicker(h.deps.PingInterval)
	defer ping.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				h.log.Debug("websocket ping failed", zap.String("subscriberID", s.id), zap.Error(err))
				s.cancel()
				return
			}
		case msg := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := s.conn.WriteJSON(msg); err != nil {
				h.log.Debug("websocket write failed", zap.String("subscriberID", s.id), zap.Error(err))
				s.cancel()
				return
			}
			if msg.final {
				s.cancel()
				return
			}
		}
	}
}

// readLoop only detects disconnects; clients never send commands. Any frame
// from the peer, pongs included, extends the read deadline.
func (s *wsSession) readLoop(h *Handler) {
	defer s.cancel()
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(h.deps.PongWait))
	})
	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(h.deps.PongWait))
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.log.Warn("websocket error", zap.String("subscriberID", s.id), zap.Error(err))
			}
			return
		}
	}
}

// handleContentStream pushes the resolved content on connect and after
// every snapshot change.
func (h *Handler) handleContentStream(conn *websocket.Conn) {
	s := newWSSession(conn)
	defer s.cancel()
	h.log.Info("content stream opened", zap.String("subscriberID", s.id))

	push := func() { s.send(WebSocketMessage{Type: "snapshot", Data: h.contentResponse()}) }

	// Subscribe before the first push so no change in between is missed.
	if h.deps.Bus != nil {
		id := h.deps.Bus.Subscribe(eventbus.EventTypeSnapshotChanged, func(ctx context.Context, event eventbus.Event) error {
			push()
			return nil
		})
		defer h.deps.Bus.Unsubscribe(eventbus.EventTypeSnapshotChanged, id)
	}
	push()

	go s.readLoop(h)
	s.writeLoop(h)
	h.log.Info("content stream closed", zap.String("subscriberID", s.id))
}

// handleDocumentStream relays the store subscription for the path query:
// the current state first, then each change.
func (h *Handler) handleDocumentStream(conn *websocket.Conn) {
	s := newWSSession(conn)
	defer s.cancel()

	path := conn.Query("path", h.deps.DocumentPath)
	if err := docpath.ValidateDocumentPath(path); err != nil {
		h.writeTerminalError(conn, err)
		return
	}
	if h.deps.Store == nil {
		h.writeTerminalError(conn, errStoreMissing)
		return
	}

	// The writer must run before Subscribe, which delivers the initial state
	// synchronously.
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeLoop(h)
	}()

	stop, err := h.deps.Store.Subscribe(s.ctx, path,
		func(change model.DocumentChange) {
			s.send(WebSocketMessage{Type: "document", Data: change})
		},
		func(err error) {
			s.send(WebSocketMessage{Type: "error", Data: fiber.Map{"message": err.Error()}, final: true})
		})
	if err != nil {
		s.cancel()
		<-done
		h.writeTerminalError(conn, err)
		return
	}
	defer stop()
	h.log.Info("document stream opened", zap.String("subscriberID", s.id), zap.String("path", path))

	go s.readLoop(h)
	<-done
	h.log.Info("document stream closed", zap.String("subscriberID", s.id), zap.String("path", path))
}

func (h *Handler) writeTerminalError(conn *websocket.Conn, err error) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteJSON(WebSocketMessage{Type: "error", Data: fiber.Map{"message": err.Error()}})
}
