package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prudhvinik1/themesync/internal/models"
	"github.com/prudhvinik1/themesync/internal/repositories"
	"github.com/prudhvinik1/themesync/internal/shopify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSnapshotRepo struct {
	latest map[string]*models.ThemeSnapshot
}

func (s *stubSnapshotRepo) Upsert(ctx context.Context, snapshot *models.ThemeSnapshot) error {
	return nil
}

func (s *stubSnapshotRepo) GetByShopAndTheme(ctx context.Context, shopDomain, themeID string) (*models.ThemeSnapshot, error) {
	return nil, repositories.ErrNotFound
}

func (s *stubSnapshotRepo) GetLatestByShop(ctx context.Context, shopDomain string) (*models.ThemeSnapshot, error) {
	snapshot, ok := s.latest[shopDomain]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return snapshot, nil
}

type stubSyncer struct {
	snapshot *models.ThemeSnapshot
	err      error
}

func (s *stubSyncer) SyncTheme(ctx context.Context, shopDomain, themeID string) (*models.ThemeSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

func TestGetThemeData_Found(t *testing.T) {
	repo := &stubSnapshotRepo{latest: map[string]*models.ThemeSnapshot{
		"a.myshopify.com": {
			ShopDomain: "a.myshopify.com",
			ThemeID:    "42",
			ThemeName:  "Dawn",
			Version:    3,
			UpdatedAt:  time.Now(),
		},
	}}
	handler := NewThemeHandler(&stubSyncer{}, repo, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/api/theme-data?shop=a.myshopify.com", nil)
	rec := httptest.NewRecorder()
	handler.GetThemeData(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                 `json:"success"`
		Data    models.ThemeSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(3), body.Data.Version)
	assert.Equal(t, "Dawn", body.Data.ThemeName)
}

func TestGetThemeData_NotFound(t *testing.T) {
	handler := NewThemeHandler(&stubSyncer{}, &stubSnapshotRepo{latest: map[string]*models.ThemeSnapshot{}}, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/api/theme-data?shop=empty.myshopify.com", nil)
	rec := httptest.NewRecorder()
	handler.GetThemeData(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "No theme data found")
}

func TestGetThemeData_MissingShop(t *testing.T) {
	handler := NewThemeHandler(&stubSyncer{}, &stubSnapshotRepo{}, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/api/theme-data", nil)
	rec := httptest.NewRecorder()
	handler.GetThemeData(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetThemeData_DefaultShopDomain(t *testing.T) {
	repo := &stubSnapshotRepo{latest: map[string]*models.ThemeSnapshot{
		"default.myshopify.com": {ShopDomain: "default.myshopify.com", Version: 1},
	}}
	handler := NewThemeHandler(&stubSyncer{}, repo, nil, "default.myshopify.com")

	req := httptest.NewRequest(http.MethodGet, "/api/theme-data", nil)
	rec := httptest.NewRecorder()
	handler.GetThemeData(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTriggerSync_Success(t *testing.T) {
	syncer := &stubSyncer{snapshot: &models.ThemeSnapshot{
		ShopDomain: "a.myshopify.com",
		ThemeID:    "42",
		Version:    2,
	}}
	handler := NewThemeHandler(syncer, &stubSnapshotRepo{}, nil, "")

	req := httptest.NewRequest(http.MethodPost, "/api/sync",
		strings.NewReader(`{"shopDomain": "a.myshopify.com", "themeId": "42"}`))
	rec := httptest.NewRecorder()
	handler.TriggerSync(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                 `json:"success"`
		Data    models.ThemeSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(2), body.Data.Version)
}

func TestTriggerSync_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"upstream", shopify.ErrUpstream, http.StatusBadGateway},
		{"no active theme", shopify.ErrNoActiveTheme, http.StatusBadGateway},
		{"not found", shopify.ErrNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewThemeHandler(&stubSyncer{err: tt.err}, &stubSnapshotRepo{}, nil, "")

			req := httptest.NewRequest(http.MethodPost, "/api/sync",
				strings.NewReader(`{"shopDomain": "a.myshopify.com"}`))
			rec := httptest.NewRecorder()
			handler.TriggerSync(rec, req)

			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestTriggerSync_EmptyBody(t *testing.T) {
	syncer := &stubSyncer{snapshot: &models.ThemeSnapshot{ShopDomain: "default.myshopify.com", Version: 1}}
	handler := NewThemeHandler(syncer, &stubSnapshotRepo{}, nil, "default.myshopify.com")

	req := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(""))
	rec := httptest.NewRecorder()
	handler.TriggerSync(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
