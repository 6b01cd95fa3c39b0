package remote

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fasthttp/websocket"
	"go.uber.org/zap"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/shared/errors"
)

// subscription reads one document stream. Callbacks run on the read
// goroutine, so they never overlap.
type subscription struct {
	store    *Store
	conn     *websocket.Conn
	path     string
	onChange func(model.DocumentChange)
	onError  func(error)

	mu       sync.Mutex
	stopped  bool
	stopOnce sync.Once
}

// next reads until a document message arrives. A server error message is
// returned as an error.
func (s *subscription) next() (model.DocumentChange, error) {
	for {
		var msg streamMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return model.DocumentChange{}, err
		}
		switch msg.Type {
		case "document":
			var change model.DocumentChange
			if err := json.Unmarshal(msg.Data, &change); err != nil {
				return model.DocumentChange{}, fmt.Errorf("malformed document message: %w", err)
			}
			return change, nil
		case "error":
			var e streamError
			_ = json.Unmarshal(msg.Data, &e)
			return model.DocumentChange{}, fmt.Errorf("remote stream error: %s", e.Message)
		default:
			s.store.log.Debug("ignoring stream message", zap.String("type", msg.Type))
		}
	}
}

func (s *subscription) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *subscription) run() {
	defer s.store.forget(s)
	for {
		change, err := s.next()
		if s.isStopped() {
			return
		}
		if err != nil {
			s.store.log.Warn("remote subscription ended", zap.String("path", s.path), zap.Error(err))
			s.stop()
			s.onError(errors.NewInfrastructureError("remote document stream failed").WithCause(err))
			return
		}
		s.onChange(change)
	}
}

func (s *subscription) stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = s.conn.Close()
	})
}
