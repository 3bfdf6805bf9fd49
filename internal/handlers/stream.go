package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/prudhvinik1/themesync/internal/models"
	"github.com/prudhvinik1/themesync/internal/registry"
	"github.com/prudhvinik1/themesync/internal/repositories"
)

// StreamHandler serves the long-lived push channels. Both the SSE and
// the WebSocket endpoint register their connection in the same Registry,
// so the notifier broadcasts to them uniformly.
type StreamHandler struct {
	registry          *registry.Registry
	snapshots         repositories.ThemeSnapshotRepository
	cache             repositories.ThemeCacheRepository
	defaultShopDomain string
}

func NewStreamHandler(reg *registry.Registry, snapshots repositories.ThemeSnapshotRepository, cache repositories.ThemeCacheRepository, defaultShopDomain string) *StreamHandler {
	return &StreamHandler{
		registry:          reg,
		snapshots:         snapshots,
		cache:             cache,
		defaultShopDomain: defaultShopDomain,
	}
}

func (h *StreamHandler) shopFromRequest(r *http.Request) string {
	shopDomain := r.URL.Query().Get("shop")
	if shopDomain == "" {
		shopDomain = h.defaultShopDomain
	}
	return shopDomain
}

// Stream is the SSE endpoint. The subscriber gets a hello event, then
// the latest persisted snapshot, then push events until it disconnects.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	shopDomain := h.shopFromRequest(r)
	if shopDomain == "" {
		writeError(w, http.StatusBadRequest, "shop parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	sink := newSSESink(w, flusher)

	hello, _ := json.Marshal(map[string]string{"type": "connected", "message": "SSE connected"})
	if err := sink.Send(hello); err != nil {
		return
	}

	connectionID := uuid.New().String()
	h.registry.Add(connectionID, sink, shopDomain)
	defer h.registry.Remove(connectionID)

	log.Printf("SSE client connected: %s (shop: %s)", connectionID, shopDomain)

	// Serve current state synchronously so the client doesn't have to
	// wait for the next change event.
	h.sendInitialState(r.Context(), sink, shopDomain)

	select {
	case <-r.Context().Done():
	case <-sink.Done():
	}

	log.Printf("SSE client disconnected: %s", connectionID)
}

func (h *StreamHandler) sendInitialState(ctx context.Context, sink registry.Sink, shopDomain string) {
	snapshot, err := h.latestSnapshot(ctx, shopDomain)
	if errors.Is(err, repositories.ErrNotFound) {
		// No successful sync yet; the subscriber starts empty.
		return
	}
	if err != nil {
		log.Printf("Failed to load initial state for %s: %v", shopDomain, err)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"type": "initial_state",
		"data": models.NewThemeSnapshotView(snapshot),
	})
	if err != nil {
		log.Printf("Failed to marshal initial state: %v", err)
		return
	}
	if err := sink.Send(payload); err != nil {
		log.Printf("Failed to send initial state for %s: %v", shopDomain, err)
	}
}

// latestSnapshot is a cache-aside read of the newest snapshot for a shop.
func (h *StreamHandler) latestSnapshot(ctx context.Context, shopDomain string) (*models.ThemeSnapshot, error) {
	if h.cache != nil {
		snapshot, err := h.cache.GetLatest(ctx, shopDomain)
		if err == nil {
			return snapshot, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Printf("Snapshot cache read failed for %s: %v", shopDomain, err)
		}
	}

	snapshot, err := h.snapshots.GetLatestByShop(ctx, shopDomain)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.SetLatest(ctx, snapshot); err != nil {
			log.Printf("Snapshot cache write failed for %s: %v", shopDomain, err)
		}
	}
	return snapshot, nil
}

// sseSink writes one SSE data frame per payload. Closing it unblocks the
// owning handler; both the broadcast loop and the handler may race to
// close, so it is idempotent.
type sseSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}
	once    sync.Once
}

func newSSESink(w http.ResponseWriter, flusher http.Flusher) *sseSink {
	return &sseSink{w: w, flusher: flusher, done: make(chan struct{})}
}

func (s *sseSink) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return errors.New("sse sink closed")
	default:
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("sse write failed: %w", err)
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *sseSink) Done() <-chan struct{} {
	return s.done
}
