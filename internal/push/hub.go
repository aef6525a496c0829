package push

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"shelfwatch/internal/events"
)

const writeTimeout = 5 * time.Second

// Frame is the wire format for messages pushed over the WebSocket.
type Frame struct {
	Type    string          `json:"type"`    // notification, heartbeat
	Payload json.RawMessage `json:"payload"` // type-specific data
}

// Hub manages active WebSocket connections per user and forwards
// in-app notification events to whoever is online. Offline users miss
// nothing: the notification row is their durable inbox.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[int64][]*websocket.Conn // user id → active connections
}

// NewHub creates a hub subscribed to in-app notification events.
func NewHub(bus *events.Bus) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[int64][]*websocket.Conn),
	}
	if bus != nil {
		bus.Subscribe(h.onEvent, events.NotificationCreated)
	}
	return h
}

// HandleConnection upgrades to WebSocket and registers the connection
// for the user given in the user_id query parameter.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade for user %d failed: %v", userID, err)
		return
	}

	h.register(userID, conn)
	log.Printf("[WS] User %d connected", userID)

	// Reader loop: we expect no client messages, but reading is what
	// notices the peer going away.
	go func() {
		defer func() {
			h.unregister(userID, conn)
			conn.Close()
			log.Printf("[WS] User %d disconnected", userID)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// ClientCount returns the number of open connections for a user.
func (h *Hub) ClientCount(userID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID])
}

func (h *Hub) register(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[userID] = append(h.conns[userID], conn)
	h.mu.Unlock()
}

func (h *Hub) unregister(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.conns[userID]
	for i, c := range list {
		if c == conn {
			h.conns[userID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// onEvent forwards a notification event to the recipient's open
// connections. Dead connections are dropped on write failure.
func (h *Hub) onEvent(e events.Event) {
	if e.UserID == 0 {
		return
	}

	frame, err := json.Marshal(Frame{Type: "notification", Payload: e.Payload})
	if err != nil {
		log.Printf("[WS] Marshal frame: %v", err)
		return
	}

	h.mu.Lock()
	conns := append([]*websocket.Conn(nil), h.conns[e.UserID]...)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Printf("[WS] Write to user %d failed, dropping connection: %v", e.UserID, err)
			h.unregister(e.UserID, conn)
			conn.Close()
		}
	}
}
