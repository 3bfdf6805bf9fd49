package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BlockDescriptor is one block inside a section, in block_order position.
type BlockDescriptor struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings"`
	Disabled bool           `json:"disabled"`
}

// ComponentDescriptor is the normalized form of one theme section. The
// settings schema is consumer-defined, so Props stays an open map.
type ComponentDescriptor struct {
	ID        string            `json:"id"`
	Component string            `json:"component"`
	Type      string            `json:"type"`
	Props     map[string]any    `json:"props"`
	Blocks    []BlockDescriptor `json:"blocks"`
}

// ThemeStyles holds the theme-level settings split out by the parser.
type ThemeStyles struct {
	Colors     map[string]any `json:"colors"`
	Typography map[string]any `json:"typography"`
	Settings   map[string]any `json:"settings"`
}

// RawData keeps the original settings document alongside the derived
// style attributes, for audit and for consumers that want raw access.
type RawData struct {
	Theme    ThemeStyles     `json:"theme"`
	Original json.RawMessage `json:"original"`
}

// ThemeSnapshot is the persisted record, unique per (shopDomain, themeId).
type ThemeSnapshot struct {
	ID         uuid.UUID             `json:"id"`
	ShopDomain string                `json:"shopDomain"`
	ThemeID    string                `json:"themeId"`
	ThemeName  string                `json:"themeName"`
	Components []ComponentDescriptor `json:"components"`
	RawData    RawData               `json:"rawData"`
	Version    int64                 `json:"version"`
	CreatedAt  time.Time             `json:"createdAt"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

// ThemeSnapshotView is the projection pushed to subscribers. It drops
// store bookkeeping fields and lifts the derived theme styles out of
// RawData.
type ThemeSnapshotView struct {
	ShopDomain string                `json:"shopDomain"`
	ThemeID    string                `json:"themeId"`
	ThemeName  string                `json:"themeName"`
	Components []ComponentDescriptor `json:"components"`
	Theme      ThemeStyles           `json:"theme"`
	Version    int64                 `json:"version"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

func NewThemeSnapshotView(s *ThemeSnapshot) ThemeSnapshotView {
	return ThemeSnapshotView{
		ShopDomain: s.ShopDomain,
		ThemeID:    s.ThemeID,
		ThemeName:  s.ThemeName,
		Components: s.Components,
		Theme:      s.RawData.Theme,
		Version:    s.Version,
		UpdatedAt:  s.UpdatedAt,
	}
}
