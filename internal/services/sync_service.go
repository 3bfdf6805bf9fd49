package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/prudhvinik1/themesync/internal/models"
	"github.com/prudhvinik1/themesync/internal/parser"
	"github.com/prudhvinik1/themesync/internal/repositories"
	"github.com/prudhvinik1/themesync/internal/shopify"
)

var (
	ErrMissingShopDomain = errors.New("shop domain is required")
	ErrNoAccessToken     = errors.New("no access token available for shop")
)

// ThemeFetcher is the slice of the Shopify client the orchestrator needs.
type ThemeFetcher interface {
	GetActiveTheme(ctx context.Context) (*shopify.Theme, error)
	GetSettingsData(ctx context.Context, themeID string) ([]byte, error)
}

// SyncService coordinates fetch, parse, version and persist for one
// (shop, theme) pair. It does not retry; the operation is idempotent per
// input and the triggering boundary owns the retry policy.
type SyncService struct {
	shops              repositories.ShopRepository
	snapshots          repositories.ThemeSnapshotRepository
	cache              repositories.ThemeCacheRepository
	defaultAccessToken string
	newFetcher         func(shopDomain, accessToken string) ThemeFetcher
}

func NewSyncService(
	shops repositories.ShopRepository,
	snapshots repositories.ThemeSnapshotRepository,
	cache repositories.ThemeCacheRepository,
	defaultAccessToken string,
) *SyncService {
	return &SyncService{
		shops:              shops,
		snapshots:          snapshots,
		cache:              cache,
		defaultAccessToken: defaultAccessToken,
		newFetcher: func(shopDomain, accessToken string) ThemeFetcher {
			return shopify.NewClient(shopDomain, accessToken)
		},
	}
}

// SyncTheme runs one sync attempt. A parse or fetch failure leaves the
// stored snapshot untouched; only a fully parsed tree is ever persisted.
func (s *SyncService) SyncTheme(ctx context.Context, shopDomain, themeID string) (*models.ThemeSnapshot, error) {
	if shopDomain == "" {
		return nil, ErrMissingShopDomain
	}

	log.Printf("Starting theme sync for %s, theme: %q", shopDomain, themeID)

	shop, err := s.shops.GetByDomain(ctx, shopDomain)
	if errors.Is(err, repositories.ErrNotFound) {
		// First contact with this shop: register it with the configured
		// default credential.
		if s.defaultAccessToken == "" {
			return nil, fmt.Errorf("%w: %s", ErrNoAccessToken, shopDomain)
		}
		shop = &models.Shop{
			ShopDomain:  shopDomain,
			AccessToken: s.defaultAccessToken,
			ThemeID:     themeID,
		}
		if err := s.shops.Create(ctx, shop); err != nil {
			return nil, fmt.Errorf("failed to register shop: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up shop: %w", err)
	}

	fetcher := s.newFetcher(shopDomain, shop.AccessToken)

	if themeID == "" {
		theme, err := fetcher.GetActiveTheme(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve active theme: %w", err)
		}
		themeID = strconv.FormatInt(theme.ID, 10)
		log.Printf("Active theme for %s: %s", shopDomain, themeID)
	}

	raw, err := fetcher.GetSettingsData(ctx, themeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch settings data: %w", err)
	}

	result, err := parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings data: %w", err)
	}

	themeName := result.ThemeName
	if themeName == "" {
		themeName = "Unknown"
	}

	snapshot := &models.ThemeSnapshot{
		ShopDomain: shopDomain,
		ThemeID:    themeID,
		ThemeName:  themeName,
		Components: result.Components,
		RawData: models.RawData{
			Theme:    result.Theme,
			Original: raw,
		},
	}

	if err := s.snapshots.Upsert(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	// Best-effort side writes; the snapshot is already committed.
	if err := s.shops.UpdateLastSync(ctx, shopDomain, themeID); err != nil {
		log.Printf("Failed to update last sync for %s: %v", shopDomain, err)
	}
	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, snapshot); err != nil {
			log.Printf("Failed to cache snapshot for %s: %v", shopDomain, err)
		}
	}

	log.Printf("Theme sync completed for %s/%s, version: %d, components: %d",
		shopDomain, themeID, snapshot.Version, len(snapshot.Components))

	return snapshot, nil
}
