package rest

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mohitkumar/orchy-console/bpmn"
	"github.com/mohitkumar/orchy-console/graph"
	"github.com/mohitkumar/orchy-console/logger"
	"go.uber.org/zap"
)

const ROW_MESSAGE = "row"
const GRAPH_MESSAGE = "graph"
const WRITE_TIMEOUT = 5 * time.Second

// WSMessage is the envelope pushed to browser clients.
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) write(msg WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
	return c.conn.WriteJSON(msg)
}

// Hub fans row and graph changes out to every connected websocket client.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*wsClient]struct{}
	unsubs   []func()
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[*wsClient]struct{}{},
	}
}

// Attach subscribes the hub to the console rows and the graph view. Either may be nil.
func (h *Hub) Attach(rows *bpmn.Rows, view *graph.View) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rows != nil {
		h.unsubs = append(h.unsubs, rows.Subscribe(func(ev bpmn.RowEvent) {
			h.Broadcast(WSMessage{Type: ROW_MESSAGE, Payload: ev})
		}))
	}
	if view != nil {
		h.unsubs = append(h.unsubs, view.Subscribe(func(ev graph.GraphEvent) {
			h.Broadcast(WSMessage{Type: GRAPH_MESSAGE, Payload: ev})
		}))
	}
}

func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	c := &wsClient{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	logger.Debug("ws client connected", zap.String("remote", r.RemoteAddr))
	go h.readLoop(c)
}

func (h *Hub) readLoop(c *wsClient) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
		logger.Debug("ws client disconnected")
	}
}

func (h *Hub) Broadcast(msg WSMessage) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		if err := c.write(msg); err != nil {
			logger.Debug("ws send failed", zap.Error(err))
			go h.remove(c)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close detaches the hub from its sources and disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	unsubs := h.unsubs
	h.unsubs = nil
	clients := h.clients
	h.clients = map[*wsClient]struct{}{}
	h.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
	for c := range clients {
		c.conn.Close()
	}
}
