package entities

import "time"

// SyncState описывает состояние синхронизатора.
type SyncState string

// Состояния синхронизатора.
const (
	SyncUninitialized SyncState = "uninitialized"
	SyncBulkLoading   SyncState = "bulk_loading"
	SyncSteady        SyncState = "steady"
	SyncStopped       SyncState = "stopped"
)

// Health описывает наблюдаемое состояние кэша и синхронизации.
type Health struct {
	State               SyncState     `json:"state"`
	Degraded            bool          `json:"degraded"`
	LastSyncAt          time.Time     `json:"last_sync_at"`
	MarkerAge           time.Duration `json:"marker_age"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	NotesCached         int           `json:"notes_cached"`
	Cursor              string        `json:"cursor"`
}
