package dashboard

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/obsctl/internal/logger"
	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 64
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	maxReadBytes = 4 << 10
)

// WSClient is one connected renderer.
type WSClient struct {
	id     int64
	conn   *websocket.Conn
	server *Server
	sendCh chan []byte
	done   chan struct{}

	mu      sync.Mutex
	lastSeq uint64
}

func (s *Server) newWSClient(conn *websocket.Conn) *WSClient {
	return &WSClient{
		id:     atomic.AddInt64(&s.nextWSID, 1),
		conn:   conn,
		server: s,
		sendCh: make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Send queues msg, the update for state seq. Updates older than the last
// one queued are dropped, so a renderer never moves backwards when two
// publishers race. A renderer that falls behind loses messages rather
// than stalling the broadcaster.
func (c *WSClient) Send(seq uint64, msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq < c.lastSeq {
		logger.Debug().Int64("client", c.id).Uint64("seq", seq).Msg("Dropping stale update")
		return
	}

	select {
	case c.sendCh <- msg:
		c.lastSeq = seq
	case <-c.done:
	default:
		logger.Debug().Int64("client", c.id).Msg("Dropping update, send buffer full")
	}
}

func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
	}

	c.conn.Close()
}

// readPump discards inbound frames; it exists to process pongs and
// notice disconnects.
func (c *WSClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxReadBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug().Err(err).Int64("client", c.id).Msg("WebSocket read error")
			}
			return
		}
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug().Err(err).Int64("client", c.id).Msg("WebSocket write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handleWebSocket upgrades the connection and sends the current state
// before any committed update.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := s.newWSClient(conn)

	// Snapshot and register under the lock: any commit either lands in the
	// snapshot or is broadcast after registration.
	s.wsClientMu.Lock()
	obs := s.store.Snapshot()
	if msg, err := json.Marshal(s.update(obs)); err == nil {
		client.Send(obs.Seq, msg)
	}
	s.wsClients[client.id] = client
	n := len(s.wsClients)
	s.wsClientMu.Unlock()
	s.recorder.SetClients(n)

	logger.Info().Int64("client", client.id).Str("remote", r.RemoteAddr).Msg("Renderer connected")

	go client.writePump()
	client.readPump()
}

func (s *Server) removeClient(client *WSClient) {
	s.wsClientMu.Lock()
	delete(s.wsClients, client.id)
	n := len(s.wsClients)
	s.wsClientMu.Unlock()
	s.recorder.SetClients(n)

	logger.Info().Int64("client", client.id).Msg("Renderer disconnected")
}

// ClientCount returns the number of connected renderers.
func (s *Server) ClientCount() int {
	s.wsClientMu.RLock()
	defer s.wsClientMu.RUnlock()

	return len(s.wsClients)
}
