package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub keeps client sets per auction id.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int64]*room
}

func NewHub() *Hub { return &Hub{rooms: make(map[int64]*room)} }

type room struct {
	mu    sync.RWMutex
	conns map[*clientConn]struct{}
}

// Broadcast is called by the Redis fan-out loop.
func (h *Hub) Broadcast(auctionID int64, msg []byte) {
	h.mu.RLock()
	r := h.rooms[auctionID]
	h.mu.RUnlock()
	if r == nil {
		return
	}

	// Take a quick snapshot of the current connections
	r.mu.RLock()
	conns := make([]*clientConn, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	// Do the I/O outside the lock
	for _, c := range conns {
		if err := c.write(websocket.TextMessage, msg); err != nil {
			h.Leave(auctionID, c)
		}
	}
}

func (h *Hub) Join(auctionID int64, c *clientConn) {
	h.mu.Lock()
	r := h.rooms[auctionID]
	if r == nil {
		r = &room{conns: make(map[*clientConn]struct{})}
		h.rooms[auctionID] = r
	}
	h.mu.Unlock()

	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
}

// Leave drops the connection and prunes the room once it empties.
func (h *Hub) Leave(auctionID int64, c *clientConn) {
	h.mu.Lock()
	r := h.rooms[auctionID]
	if r == nil {
		h.mu.Unlock()
		return
	}
	r.mu.Lock()
	delete(r.conns, c)
	empty := len(r.conns) == 0
	r.mu.Unlock()
	if empty {
		delete(h.rooms, auctionID)
	}
	h.mu.Unlock()

	c.rawConn.Close()
}
