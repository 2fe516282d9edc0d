package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/orbit/internal/control"
	"github.com/ayusman/orbit/internal/log"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// poseMessage is the websocket payload for one pose.
type poseMessage struct {
	control.Pose
	Timestamp int64 `json:"timestamp"`
}

// PoseHub drains the pose slot and broadcasts every pose it takes to the
// connected websocket clients. It is the slot's only consumer.
type PoseHub struct {
	slot *control.PoseSlot

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewPoseHub creates a hub reading from slot.
func NewPoseHub(slot *control.PoseSlot) *PoseHub {
	return &PoseHub{
		slot:    slot,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects. Incoming messages are discarded.
func (h *PoseHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade error", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	log.Debug("pose client connected", "remote", r.RemoteAddr)

	defer h.remove(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *PoseHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// Clients returns the number of connected clients.
func (h *PoseHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run receives poses until ctx ends. Poses are taken from the slot even
// with no clients so the producer always finds room for the freshest one.
func (h *PoseHub) Run(ctx context.Context) {
	for {
		pose, err := h.slot.Receive(ctx)
		if err != nil {
			h.closeAll()
			return
		}
		h.broadcast(pose)
	}
}

func (h *PoseHub) broadcast(pose control.Pose) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(poseMessage{Pose: pose, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		log.Error("failed to encode pose", "error", err)
		return
	}

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debug("dropping pose client", "error", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

func (h *PoseHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(writeWait))
		conn.Close()
		delete(h.clients, conn)
	}
}
