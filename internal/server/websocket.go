package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/JasonP670/4inarow/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type inbound struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	server    *Server
	logger    *zap.Logger
	sessionID string
	renderer  *socketRenderer
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &wsClient{
		conn:   conn,
		send:   make(chan []byte, 32),
		done:   make(chan struct{}),
		server: s,
		logger: s.logger,
	}
	go client.writePump()
	go client.readPump()
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *wsClient) writePump() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *wsClient) readPump() {
	defer c.close()
	defer c.endSession()

	if err := c.startSession(); err != nil {
		c.sendJSON(map[string]any{"type": "error", "message": err.Error()})
		return
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "key":
			in, ok := game.ParseKey(msg.Key)
			if !ok {
				continue
			}
			err := c.server.manager.Send(c.sessionID, in)
			if errors.Is(err, game.ErrSessionNotFound) {
				c.sendJSON(closedFrame)
				continue
			}
			if err != nil {
				c.logger.Debug("input dropped",
					zap.String("session_id", c.sessionID),
					zap.Stringer("intent", in),
					zap.Error(err),
				)
			}
		case "restart":
			c.endSession()
			if err := c.startSession(); err != nil {
				c.sendJSON(map[string]any{"type": "error", "message": err.Error()})
				return
			}
		}
	}
}

// closedFrame tells the browser its game is gone and a restart is needed.
var closedFrame = map[string]any{
	"type":    "closed",
	"message": "This game was closed. Press restart to play again.",
}

func (c *wsClient) startSession() error {
	renderer := &socketRenderer{client: c, dropDuration: c.server.dropDuration}
	session, err := c.server.manager.Create(renderer)
	if err != nil {
		return err
	}
	c.renderer = renderer
	c.sessionID = session.ID
	c.sendJSON(map[string]any{"type": "session", "id": session.ID})
	go c.watch(session, renderer)
	return nil
}

// watch reports a session that ended without a result, such as one removed
// by the idle sweep, unless the client itself moved on from it.
func (c *wsClient) watch(session *game.Session, renderer *socketRenderer) {
	select {
	case <-c.done:
		return
	case <-session.Done():
	}
	if session.Finished() {
		return
	}
	renderer.emit(closedFrame)
}

func (c *wsClient) endSession() {
	if c.sessionID == "" {
		return
	}
	c.renderer.detach()
	c.server.manager.Close(c.sessionID)
	c.sessionID = ""
}

func (c *wsClient) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		// frames are never skipped; a client that cannot keep up is dropped
		c.logger.Warn("client too slow, closing")
		c.close()
	}
}

// socketRenderer draws a session by streaming frames to the browser. The
// browser animates the fall; the server completes the drop on a timer so a
// stalled client cannot wedge the engine.
type socketRenderer struct {
	client       *wsClient
	dropDuration time.Duration
	detached     atomic.Bool
}

func (r *socketRenderer) detach() { r.detached.Store(true) }

func (r *socketRenderer) emit(frame map[string]any) {
	if r.detached.Load() {
		return
	}
	r.client.sendJSON(frame)
}

func (r *socketRenderer) RenderBoard(b *game.Board) {
	r.emit(map[string]any{
		"type":    "board",
		"columns": b.Columns(),
		"rows":    b.Rows(),
		"grid":    b.Grid(),
	})
}

func (r *socketRenderer) RenderToken(t *game.Token) {
	r.emit(map[string]any{
		"type":   "token",
		"player": t.Owner().ID,
		"name":   t.Owner().Name,
		"color":  t.Color(),
		"column": t.Column(),
	})
}

func (r *socketRenderer) AnimateDrop(t *game.Token, target *game.Space, done func()) {
	r.emit(map[string]any{
		"type":       "drop",
		"player":     t.Owner().ID,
		"color":      t.Color(),
		"column":     target.Column,
		"row":        target.Row,
		"durationMs": r.dropDuration.Milliseconds(),
	})
	if r.dropDuration <= 0 {
		done()
		return
	}
	time.AfterFunc(r.dropDuration, done)
}

func (r *socketRenderer) ShowMessage(message string) {
	r.emit(map[string]any{"type": "message", "message": message})
}
