package models

const (
	OpInsert  = "insert"
	OpUpdate  = "update"
	OpReplace = "replace"
)

// ChangeEvent is the notification payload emitted by the snapshot
// table's trigger. It carries just enough to re-read the full row.
type ChangeEvent struct {
	Op         string `json:"op"`
	ShopDomain string `json:"shopDomain"`
	ThemeID    string `json:"themeId"`
}

// UpdatePayload is the message delivered to subscribers on every
// snapshot mutation.
type UpdatePayload struct {
	Type          string            `json:"type"`
	OperationType string            `json:"operationType"`
	Data          ThemeSnapshotView `json:"data"`
}
