package models

import (
	"time"

	"github.com/google/uuid"
)

type Shop struct {
	ID          uuid.UUID  `json:"id"`
	ShopDomain  string     `json:"shopDomain"`
	AccessToken string     `json:"-"`
	ThemeID     string     `json:"themeId,omitempty"`
	LastSync    *time.Time `json:"lastSync,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}
