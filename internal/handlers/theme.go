package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/prudhvinik1/themesync/internal/models"
	"github.com/prudhvinik1/themesync/internal/parser"
	"github.com/prudhvinik1/themesync/internal/repositories"
	"github.com/prudhvinik1/themesync/internal/services"
	"github.com/prudhvinik1/themesync/internal/shopify"
)

// ThemeHandler serves snapshot reads and the manual sync trigger.
type ThemeHandler struct {
	syncer            ThemeSyncer
	snapshots         repositories.ThemeSnapshotRepository
	cache             repositories.ThemeCacheRepository
	defaultShopDomain string
}

func NewThemeHandler(syncer ThemeSyncer, snapshots repositories.ThemeSnapshotRepository, cache repositories.ThemeCacheRepository, defaultShopDomain string) *ThemeHandler {
	return &ThemeHandler{
		syncer:            syncer,
		snapshots:         snapshots,
		cache:             cache,
		defaultShopDomain: defaultShopDomain,
	}
}

// GetThemeData handles GET /api/theme-data.
func (h *ThemeHandler) GetThemeData(w http.ResponseWriter, r *http.Request) {
	shopDomain := r.URL.Query().Get("shop")
	if shopDomain == "" {
		shopDomain = h.defaultShopDomain
	}
	if shopDomain == "" {
		writeError(w, http.StatusBadRequest, "shop parameter is required")
		return
	}

	snapshot, err := h.readLatest(r, shopDomain)
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No theme data found")
		return
	}
	if err != nil {
		log.Printf("Failed to fetch theme data for %s: %v", shopDomain, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch theme data")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    snapshot,
	})
}

func (h *ThemeHandler) readLatest(r *http.Request, shopDomain string) (*models.ThemeSnapshot, error) {
	ctx := r.Context()

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

type syncRequest struct {
	ShopDomain string `json:"shopDomain"`
	ThemeID    string `json:"themeId"`
}

// TriggerSync handles POST /api/sync, the manual/administrative sync
// trigger. Unlike the webhook path it runs synchronously and surfaces
// the result.
func (h *ThemeHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	shopDomain := req.ShopDomain
	if shopDomain == "" {
		shopDomain = h.defaultShopDomain
	}

	snapshot, err := h.syncer.SyncTheme(r.Context(), shopDomain, req.ThemeID)
	if err != nil {
		log.Printf("Manual sync failed for %s: %v", shopDomain, err)
		writeError(w, syncErrorStatus(err), "Sync failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    snapshot,
	})
}

func syncErrorStatus(err error) int {
	switch {
	case errors.Is(err, shopify.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shopify.ErrNoActiveTheme), errors.Is(err, shopify.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, parser.ErrInvalidDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrMissingShopDomain):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
