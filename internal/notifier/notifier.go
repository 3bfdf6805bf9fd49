package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prudhvinik1/themesync/internal/models"
	"github.com/prudhvinik1/themesync/internal/registry"
	"github.com/prudhvinik1/themesync/internal/repositories"
)

// Channel is the NOTIFY channel the theme_snapshots trigger publishes to.
const Channel = "theme_data_changes"

const defaultReconnectWait = 5 * time.Second

// Notifier watches the snapshot table's change feed and fans every
// mutation out to subscribers of the affected shop. It holds its own
// dedicated connection; the pool used by the repositories is not touched
// by the LISTEN loop.
type Notifier struct {
	databaseURL   string
	snapshots     repositories.ThemeSnapshotRepository
	cache         repositories.ThemeCacheRepository
	registry      *registry.Registry
	reconnectWait time.Duration
}

func New(databaseURL string, snapshots repositories.ThemeSnapshotRepository, cache repositories.ThemeCacheRepository, reg *registry.Registry) *Notifier {
	return &Notifier{
		databaseURL:   databaseURL,
		snapshots:     snapshots,
		cache:         cache,
		registry:      reg,
		reconnectWait: defaultReconnectWait,
	}
}

// Run watches the change feed until ctx is cancelled. Feed failures,
// including the initial connect, are logged and retried after a fixed
// backoff; they never take the process down. Live push degrades while
// the feed is away, snapshot reads and writes keep working.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		err := n.watch(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("Change feed error: %v, reconnecting in %s", err, n.reconnectWait)

		select {
		case <-time.After(n.reconnectWait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (n *Notifier) watch(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, n.databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect for change feed: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}

	log.Printf("Change feed watching channel: %s", Channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("change feed closed: %w", err)
		}
		n.handleChange(ctx, notification.Payload)
	}
}

// handleChange turns one feed notification into a delivery payload and
// broadcasts it. The notification only carries the row key; the full
// snapshot is re-read so subscribers always get the committed document.
func (n *Notifier) handleChange(ctx context.Context, payload string) {
	var event models.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		log.Printf("Ignoring malformed change event: %v", err)
		return
	}

	switch event.Op {
	case models.OpInsert, models.OpUpdate, models.OpReplace:
	default:
		return
	}

	snapshot, err := n.snapshots.GetByShopAndTheme(ctx, event.ShopDomain, event.ThemeID)
	if err != nil {
		log.Printf("Failed to load snapshot for change event (%s/%s): %v", event.ShopDomain, event.ThemeID, err)
		return
	}

	update := models.UpdatePayload{
		Type:          "theme_update",
		OperationType: event.Op,
		Data:          models.NewThemeSnapshotView(snapshot),
	}
	data, err := json.Marshal(update)
	if err != nil {
		log.Printf("Failed to marshal update payload: %v", err)
		return
	}

	n.registry.Broadcast(data, event.ShopDomain)

	if n.cache != nil {
		if err := n.cache.SetLatest(ctx, snapshot); err != nil {
			log.Printf("Failed to refresh snapshot cache for %s: %v", event.ShopDomain, err)
		}
	}
}
