package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/prudhvinik1/themesync/internal/models"
)

// ErrInvalidDocument is returned when the settings document has no
// usable current state. Callers must treat it as fatal to the sync
// attempt; nothing is persisted.
var ErrInvalidDocument = errors.New("settings document has no current state")

// componentMap resolves raw Shopify section types to component names.
// Unmapped types fall back to PascalCase of the raw type.
var componentMap = map[string]string{
	"header":              "Header",
	"announcement-bar":    "AnnouncementBar",
	"slideshow":           "Banner",
	"image-banner":        "Banner",
	"featured-collection": "FeaturedCollection",
	"featured-product":    "FeaturedProduct",
	"collection-list":     "CollectionList",
	"multicolumn":         "MultiColumn",
	"rich-text":           "RichText",
	"footer":              "Footer",
	"image-with-text":     "ImageWithText",
	"video":               "Video",
	"newsletter":          "Newsletter",
}

// Result is the complete replacement tree produced from one settings
// document. It is rebuilt wholesale on every parse.
type Result struct {
	ThemeName  string
	Components []models.ComponentDescriptor
	Theme      models.ThemeStyles
}

type settingsDocument struct {
	Current *currentState `json:"current"`
}

type currentState struct {
	Name     string                `json:"name"`
	Sections map[string]rawSection `json:"sections"`
	Order    []string              `json:"order"`
	Settings map[string]any        `json:"settings"`
}

type rawSection struct {
	Type       string              `json:"type"`
	Settings   map[string]any      `json:"settings"`
	Disabled   bool                `json:"disabled"`
	Blocks     map[string]rawBlock `json:"blocks"`
	BlockOrder []string            `json:"block_order"`
}

type rawBlock struct {
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings"`
	Disabled bool           `json:"disabled"`
}

// Parse turns a raw settings_data.json document into an ordered
// component tree plus extracted theme-level style attributes. Pure: no
// I/O, same input always yields the same output.
func Parse(raw []byte) (*Result, error) {
	var doc settingsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode settings document: %w", err)
	}
	if doc.Current == nil {
		return nil, ErrInvalidDocument
	}

	current := doc.Current
	components := make([]models.ComponentDescriptor, 0, len(current.Sections))
	seen := make(map[string]bool, len(current.Order))

	// Sections in explicit order first; this fixes rendering order.
	for _, sectionID := range current.Order {
		section, ok := current.Sections[sectionID]
		if !ok {
			continue
		}
		components = append(components, parseSection(sectionID, section))
		seen[sectionID] = true
	}

	// Sections missing from the order list go after, sorted by id so the
	// output stays deterministic.
	var rest []string
	for sectionID := range current.Sections {
		if !seen[sectionID] {
			rest = append(rest, sectionID)
		}
	}
	sort.Strings(rest)
	for _, sectionID := range rest {
		components = append(components, parseSection(sectionID, current.Sections[sectionID]))
	}

	colors, typography := extractStyles(current.Settings)
	settings := current.Settings
	if settings == nil {
		settings = map[string]any{}
	}

	return &Result{
		ThemeName:  current.Name,
		Components: components,
		Theme: models.ThemeStyles{
			Colors:     colors,
			Typography: typography,
			Settings:   settings,
		},
	}, nil
}

func parseSection(sectionID string, section rawSection) models.ComponentDescriptor {
	componentName, ok := componentMap[section.Type]
	if !ok {
		componentName = toPascalCase(section.Type)
	}

	props := make(map[string]any, len(section.Settings)+1)
	for key, value := range section.Settings {
		props[key] = value
	}
	props["disabled"] = section.Disabled

	// Blocks follow block_order; ids with no matching block are skipped.
	blocks := make([]models.BlockDescriptor, 0, len(section.BlockOrder))
	for _, blockID := range section.BlockOrder {
		block, ok := section.Blocks[blockID]
		if !ok {
			continue
		}
		settings := block.Settings
		if settings == nil {
			settings = map[string]any{}
		}
		blocks = append(blocks, models.BlockDescriptor{
			ID:       blockID,
			Type:     block.Type,
			Settings: settings,
			Disabled: block.Disabled,
		})
	}

	return models.ComponentDescriptor{
		ID:        sectionID,
		Component: componentName,
		Type:      section.Type,
		Props:     props,
		Blocks:    blocks,
	}
}

// extractStyles partitions theme settings by key substring. Color and
// background keys are checked first; a key lands in at most one of the
// two derived mappings.
func extractStyles(settings map[string]any) (colors, typography map[string]any) {
	colors = map[string]any{}
	typography = map[string]any{}

	for key, value := range settings {
		switch {
		case strings.Contains(key, "color") || strings.Contains(key, "background"):
			colors[key] = value
		case strings.Contains(key, "font") || strings.Contains(key, "text"):
			typography[key] = value
		}
	}
	return colors, typography
}

func toPascalCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_'
	})
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
