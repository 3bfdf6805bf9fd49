package repositories

import (
	"context"

	"github.com/prudhvinik1/themesync/internal/models"
)

type ShopRepository interface {
	Create(ctx context.Context, shop *models.Shop) error
	GetByDomain(ctx context.Context, shopDomain string) (*models.Shop, error)
	UpdateLastSync(ctx context.Context, shopDomain, themeID string) error
}

type ThemeSnapshotRepository interface {
	Upsert(ctx context.Context, snapshot *models.ThemeSnapshot) error
	GetByShopAndTheme(ctx context.Context, shopDomain, themeID string) (*models.ThemeSnapshot, error)
	GetLatestByShop(ctx context.Context, shopDomain string) (*models.ThemeSnapshot, error)
}

type ThemeCacheRepository interface {
	SetLatest(ctx context.Context, snapshot *models.ThemeSnapshot) error
	GetLatest(ctx context.Context, shopDomain string) (*models.ThemeSnapshot, error)
	Invalidate(ctx context.Context, shopDomain string) error
}
