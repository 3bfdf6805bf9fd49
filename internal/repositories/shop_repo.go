package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/themesync/internal/models"
)

var ErrNotFound = errors.New("not found")

type PostgresShopRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresShopRepository(pool *pgxpool.Pool) *PostgresShopRepository {
	return &PostgresShopRepository{pool: pool}
}

func (r *PostgresShopRepository) Create(ctx context.Context, shop *models.Shop) error {
	query := `INSERT INTO shops (shop_domain, access_token, theme_id)
	          VALUES ($1, $2, $3)
	          RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query, shop.ShopDomain, shop.AccessToken, shop.ThemeID).
		Scan(&shop.ID, &shop.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create shop: %w", err)
	}
	return nil
}

func (r *PostgresShopRepository) GetByDomain(ctx context.Context, shopDomain string) (*models.Shop, error) {
	query := `SELECT id, shop_domain, access_token, theme_id, last_sync, created_at, updated_at
	          FROM shops
	          WHERE shop_domain = $1`

	var shop models.Shop
	err := r.pool.QueryRow(ctx, query, shopDomain).Scan(
		&shop.ID,
		&shop.ShopDomain,
		&shop.AccessToken,
		&shop.ThemeID,
		&shop.LastSync,
		&shop.CreatedAt,
		&shop.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop by domain: %w", err)
	}
	return &shop, nil
}

// UpdateLastSync records the last successful sync for a shop. Callers
// treat this as best-effort bookkeeping.
func (r *PostgresShopRepository) UpdateLastSync(ctx context.Context, shopDomain, themeID string) error {
	query := `UPDATE shops
	          SET theme_id = $1,
	              last_sync = NOW(),
	              updated_at = NOW()
	          WHERE shop_domain = $2`

	result, err := r.pool.Exec(ctx, query, themeID, shopDomain)
	if err != nil {
		return fmt.Errorf("failed to update last sync: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
