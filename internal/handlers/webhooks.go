package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/prudhvinik1/themesync/internal/models"
)

const settingsDataAssetKey = "config/settings_data.json"

// ThemeSyncer is the slice of the sync service the webhook boundary uses.
type ThemeSyncer interface {
	SyncTheme(ctx context.Context, shopDomain, themeID string) (*models.ThemeSnapshot, error)
}

// WebhookHandler receives Shopify theme and asset webhooks. The origin
// only cares that the event was received, so the handler acks before
// processing; sync failures are retried here and logged, never
// re-surfaced to the origin.
type WebhookHandler struct {
	syncer            ThemeSyncer
	apiSecret         string
	defaultShopDomain string
	retries           int
	retryBackoff      time.Duration
}

func NewWebhookHandler(syncer ThemeSyncer, apiSecret, defaultShopDomain string, retries int, retryBackoff time.Duration) *WebhookHandler {
	if retries < 1 {
		retries = 1
	}
	return &WebhookHandler{
		syncer:            syncer,
		apiSecret:         apiSecret,
		defaultShopDomain: defaultShopDomain,
		retries:           retries,
		retryBackoff:      retryBackoff,
	}
}

type themeWebhookBody struct {
	ID      json.Number `json:"id"`
	ThemeID json.Number `json:"theme_id"`
	Key     string      `json:"key"`
}

// Theme handles POST /webhooks/theme.
func (h *WebhookHandler) Theme(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readVerifiedBody(w, r)
	if !ok {
		return
	}

	var payload themeWebhookBody
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("Malformed theme webhook body: %v", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	themeID := payload.ID.String()
	if themeID == "" {
		themeID = payload.ThemeID.String()
	}
	shopDomain := h.shopFromWebhook(r)

	log.Printf("Theme webhook received for shop: %s, theme: %s", shopDomain, themeID)

	// Ack immediately; the origin only needs receipt.
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Webhook received"))

	go h.processSync(shopDomain, themeID)
}

// Asset handles POST /webhooks/asset. Only settings_data.json changes
// trigger a sync.
func (h *WebhookHandler) Asset(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readVerifiedBody(w, r)
	if !ok {
		return
	}

	var payload themeWebhookBody
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("Malformed asset webhook body: %v", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if payload.Key != settingsDataAssetKey {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ignored"))
		return
	}

	themeID := payload.ThemeID.String()
	shopDomain := h.shopFromWebhook(r)

	log.Printf("Settings data changed for shop: %s, theme: %s", shopDomain, themeID)

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Webhook received"))

	go h.processSync(shopDomain, themeID)
}

// processSync runs the sync with the boundary retry policy. The
// orchestrator itself never retries; it is idempotent per input, which
// is what makes retrying here safe.
func (h *WebhookHandler) processSync(shopDomain, themeID string) {
	for attempt := 1; attempt <= h.retries; attempt++ {
		_, err := h.syncer.SyncTheme(context.Background(), shopDomain, themeID)
		if err == nil {
			return
		}
		log.Printf("Webhook sync attempt %d/%d failed for %s: %v", attempt, h.retries, shopDomain, err)
		if attempt < h.retries {
			time.Sleep(h.retryBackoff)
		}
	}
}

func (h *WebhookHandler) shopFromWebhook(r *http.Request) string {
	shopDomain := r.Header.Get("X-Shopify-Shop-Domain")
	if shopDomain == "" {
		shopDomain = h.defaultShopDomain
	}
	return shopDomain
}

// readVerifiedBody reads the raw body and checks the Shopify HMAC
// signature against it. Verification is skipped when no secret is
// configured or the header is absent, matching dev-mode behavior.
func (h *WebhookHandler) readVerifiedBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return nil, false
	}

	signature := r.Header.Get("X-Shopify-Hmac-Sha256")
	if h.apiSecret == "" || signature == "" {
		if signature == "" {
			log.Printf("No HMAC header on webhook, skipping verification")
		}
		return body, true
	}

	if !verifyHMAC(body, signature, h.apiSecret) {
		log.Printf("Webhook HMAC verification failed")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return body, true
}

func verifyHMAC(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
