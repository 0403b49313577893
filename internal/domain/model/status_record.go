package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type SyncState string

const (
	SyncStateAdded    SyncState = "added"
	SyncStateUpdating SyncState = "updating"
	SyncStateUpdated  SyncState = "updated"
)

const StatusMessageType = "status_message"

// StatusRecord tracks the one live digest message per (chat, message type):
// which Telegram message currently carries it, the hash of its rendered
// content and the cooperative synchronization state.
type StatusRecord struct {
	MessageID   int
	ChatID      int64
	MessageType string
	ContentHash string
	Producer    string
	SyncState   SyncState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ContentHash returns the sha256 hex digest used to detect digest changes.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
