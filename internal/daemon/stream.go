package daemon

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"posecoach/internal/api"
	"posecoach/internal/logging"
)

const (
	streamSendBuffer = 256
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

type streamClient struct {
	id   string
	conn *websocket.Conn
	send chan api.StreamMessage
}

// scoreHub fans stream messages out to websocket subscribers. A subscriber
// whose buffer is full misses messages rather than stalling the frame loop.
type scoreHub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*streamClient
	closed  bool

	dropped atomic.Uint64
}

func newScoreHub(logger *slog.Logger) *scoreHub {
	return &scoreHub{
		logger: logging.NewComponentLogger(logger, "score-stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*streamClient),
	}
}

func (h *scoreHub) broadcast(msg api.StreamMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *scoreHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *scoreHub) register(c *streamClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *scoreHub) unregister(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
}

// closeAll disconnects every subscriber and refuses new ones.
func (h *scoreHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

// reopen accepts subscribers again after closeAll.
func (h *scoreHub) reopen() {
	h.mu.Lock()
	h.closed = false
	h.mu.Unlock()
}

func (h *scoreHub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	client := &streamClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan api.StreamMessage, streamSendBuffer),
	}
	if !h.register(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(streamWriteWait))
		_ = conn.Close()
		return
	}
	h.logger.Debug("score subscriber connected", logging.String("client_id", client.id))

	go h.writePump(client)
	h.readPump(client)
	h.unregister(client)
	h.logger.Debug("score subscriber disconnected", logging.String("client_id", client.id))
}

// readPump only services control frames; subscribers do not send data.
func (h *scoreHub) readPump(c *streamClient) {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("score subscriber read error", logging.Error(err))
			}
			return
		}
	}
}

func (h *scoreHub) writePump(c *streamClient) {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
