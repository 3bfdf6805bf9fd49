package handlers

import (
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamWS is the WebSocket variant of the push channel. Same contract
// as Stream: hello, initial state, then theme_update events.
func (h *StreamHandler) StreamWS(w http.ResponseWriter, r *http.Request) {
	shopDomain := h.shopFromRequest(r)
	if shopDomain == "" {
		writeError(w, http.StatusBadRequest, "shop parameter is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	sink := &wsSink{conn: conn}

	if err := conn.WriteJSON(map[string]string{"type": "connected", "message": "WebSocket connected"}); err != nil {
		conn.Close()
		return
	}

	connectionID := uuid.New().String()
	h.registry.Add(connectionID, sink, shopDomain)

	log.Printf("WebSocket client connected: %s (shop: %s)", connectionID, shopDomain)

	h.sendInitialState(r.Context(), sink, shopDomain)

	// The peer never sends application data; reading just detects close.
	go func() {
		defer func() {
			h.registry.Remove(connectionID)
			conn.Close()
			log.Printf("WebSocket client disconnected: %s", connectionID)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// wsSink serializes writes to one WebSocket connection; gorilla allows
// only a single concurrent writer.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSink) Close() error {
	return s.conn.Close()
}
