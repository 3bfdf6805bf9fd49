package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/themesync/internal/models"
)

type PostgresThemeSnapshotRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresThemeSnapshotRepository(pool *pgxpool.Pool) *PostgresThemeSnapshotRepository {
	return &PostgresThemeSnapshotRepository{pool: pool}
}

// Upsert writes the complete snapshot for (shop_domain, theme_id) in a
// single statement. The version increment happens inside the ON CONFLICT
// clause, so concurrent syncs for the same key cannot lose an increment
// or produce duplicate rows.
func (r *PostgresThemeSnapshotRepository) Upsert(ctx context.Context, snapshot *models.ThemeSnapshot) error {
	componentsJSON, err := json.Marshal(snapshot.Components)
	if err != nil {
		return fmt.Errorf("failed to marshal components: %w", err)
	}
	rawDataJSON, err := json.Marshal(snapshot.RawData)
	if err != nil {
		return fmt.Errorf("failed to marshal raw data: %w", err)
	}

	query := `INSERT INTO theme_snapshots (shop_domain, theme_id, theme_name, components, raw_data)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (shop_domain, theme_id) DO UPDATE SET
	              theme_name = EXCLUDED.theme_name,
	              components = EXCLUDED.components,
	              raw_data   = EXCLUDED.raw_data,
	              version    = theme_snapshots.version + 1,
	              updated_at = NOW()
	          RETURNING id, version, created_at, updated_at`

	err = r.pool.QueryRow(ctx, query,
		snapshot.ShopDomain,
		snapshot.ThemeID,
		snapshot.ThemeName,
		componentsJSON,
		rawDataJSON,
	).Scan(&snapshot.ID, &snapshot.Version, &snapshot.CreatedAt, &snapshot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

func (r *PostgresThemeSnapshotRepository) GetByShopAndTheme(ctx context.Context, shopDomain, themeID string) (*models.ThemeSnapshot, error) {
	query := `SELECT id, shop_domain, theme_id, theme_name, components, raw_data, version, created_at, updated_at
	          FROM theme_snapshots
	          WHERE shop_domain = $1 AND theme_id = $2`

	return r.scanSnapshot(r.pool.QueryRow(ctx, query, shopDomain, themeID))
}

// GetLatestByShop returns the most recently written snapshot for a shop,
// independent of theme id.
func (r *PostgresThemeSnapshotRepository) GetLatestByShop(ctx context.Context, shopDomain string) (*models.ThemeSnapshot, error) {
	query := `SELECT id, shop_domain, theme_id, theme_name, components, raw_data, version, created_at, updated_at
	          FROM theme_snapshots
	          WHERE shop_domain = $1
	          ORDER BY updated_at DESC
	          LIMIT 1`

	return r.scanSnapshot(r.pool.QueryRow(ctx, query, shopDomain))
}

func (r *PostgresThemeSnapshotRepository) scanSnapshot(row pgx.Row) (*models.ThemeSnapshot, error) {
	var snapshot models.ThemeSnapshot
	var componentsJSON, rawDataJSON []byte

	err := row.Scan(
		&snapshot.ID,
		&snapshot.ShopDomain,
		&snapshot.ThemeID,
		&snapshot.ThemeName,
		&componentsJSON,
		&rawDataJSON,
		&snapshot.Version,
		&snapshot.CreatedAt,
		&snapshot.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if err := json.Unmarshal(componentsJSON, &snapshot.Components); err != nil {
		return nil, fmt.Errorf("failed to unmarshal components: %w", err)
	}
	if err := json.Unmarshal(rawDataJSON, &snapshot.RawData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal raw data: %w", err)
	}
	return &snapshot, nil
}
