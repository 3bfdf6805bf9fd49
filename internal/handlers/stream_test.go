package handlers

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prudhvinik1/themesync/internal/models"
	"github.com/prudhvinik1/themesync/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readSSEEvent reads the next data frame off an SSE stream.
func readSSEEvent(t *testing.T, scanner *bufio.Scanner) map[string]any {
	t.Helper()
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		return event
	}
	t.Fatal("stream ended before an event arrived")
	return nil
}

func TestStream_ConnectInitialStateAndPush(t *testing.T) {
	reg := registry.New()
	repo := &stubSnapshotRepo{latest: map[string]*models.ThemeSnapshot{
		"a.myshopify.com": {
			ShopDomain: "a.myshopify.com",
			ThemeID:    "42",
			ThemeName:  "Dawn",
			Components: []models.ComponentDescriptor{},
			Version:    1,
			UpdatedAt:  time.Now(),
		},
	}}
	handler := NewStreamHandler(reg, repo, nil, "")

	server := httptest.NewServer(http.HandlerFunc(handler.Stream))
	defer server.Close()

	resp, err := http.Get(server.URL + "?shop=a.myshopify.com")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	// Hello event first.
	hello := readSSEEvent(t, scanner)
	assert.Equal(t, "connected", hello["type"])

	// Latest snapshot served synchronously on connect.
	initial := readSSEEvent(t, scanner)
	assert.Equal(t, "initial_state", initial["type"])
	data := initial["data"].(map[string]any)
	assert.Equal(t, "a.myshopify.com", data["shopDomain"])
	assert.Equal(t, float64(1), data["version"])

	// Subscriber is now registered; a broadcast reaches it.
	require.Eventually(t, func() bool { return reg.Len() == 1 },
		time.Second, 10*time.Millisecond)

	update := models.UpdatePayload{
		Type:          "theme_update",
		OperationType: models.OpUpdate,
		Data:          models.ThemeSnapshotView{ShopDomain: "a.myshopify.com", Version: 2},
	}
	payload, err := json.Marshal(update)
	require.NoError(t, err)
	sent := reg.Broadcast(payload, "a.myshopify.com")
	assert.Equal(t, 1, sent)

	pushed := readSSEEvent(t, scanner)
	assert.Equal(t, "theme_update", pushed["type"])
	assert.Equal(t, "update", pushed["operationType"])
}

// TestStream_NoSnapshotYet tests that a subscriber for a shop with no
// synced snapshot gets only the hello event, not an initial_state.
func TestStream_NoSnapshotYet(t *testing.T) {
	reg := registry.New()
	repo := &stubSnapshotRepo{latest: map[string]*models.ThemeSnapshot{}}
	handler := NewStreamHandler(reg, repo, nil, "")

	server := httptest.NewServer(http.HandlerFunc(handler.Stream))
	defer server.Close()

	resp, err := http.Get(server.URL + "?shop=fresh.myshopify.com")
	require.NoError(t, err)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	hello := readSSEEvent(t, scanner)
	assert.Equal(t, "connected", hello["type"])

	require.Eventually(t, func() bool { return reg.Len() == 1 },
		time.Second, 10*time.Millisecond)

	// Push still works once the first sync lands.
	sent := reg.Broadcast([]byte(`{"type":"theme_update"}`), "fresh.myshopify.com")
	assert.Equal(t, 1, sent)
	pushed := readSSEEvent(t, scanner)
	assert.Equal(t, "theme_update", pushed["type"])
}

func TestStream_MissingShopParameter(t *testing.T) {
	handler := NewStreamHandler(registry.New(), &stubSnapshotRepo{}, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	rec := httptest.NewRecorder()
	handler.Stream(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestStream_DisconnectRemovesSubscriber tests that closing the client
// connection unregisters the subscriber.
func TestStream_DisconnectRemovesSubscriber(t *testing.T) {
	reg := registry.New()
	handler := NewStreamHandler(reg, &stubSnapshotRepo{latest: map[string]*models.ThemeSnapshot{}}, nil, "")

	server := httptest.NewServer(http.HandlerFunc(handler.Stream))
	defer server.Close()

	resp, err := http.Get(server.URL + "?shop=a.myshopify.com")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return reg.Len() == 1 },
		time.Second, 10*time.Millisecond)

	resp.Body.Close()

	require.Eventually(t, func() bool { return reg.Len() == 0 },
		2*time.Second, 10*time.Millisecond, "disconnect should remove the registry entry")
}
