package dto

import (
	"time"

	"notemirror/internal/mirror/domain/entities"
)

// HealthResponse описывает состояние синхронизации и кэша.
type HealthResponse struct {
	State               string    `json:"state"`
	Degraded            bool      `json:"degraded"`
	LastSyncAt          time.Time `json:"last_sync_at,omitempty"`
	MarkerAgeSeconds    float64   `json:"marker_age_seconds"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	NotesCached         int       `json:"notes_cached"`
	Cursor              string    `json:"cursor,omitempty"`
}

// HealthFromEntity преобразует доменное состояние в представление API.
func HealthFromEntity(health entities.Health) *HealthResponse {
	return &HealthResponse{
		State:               string(health.State),
		Degraded:            health.Degraded,
		LastSyncAt:          health.LastSyncAt,
		MarkerAgeSeconds:    health.MarkerAge.Seconds(),
		ConsecutiveFailures: health.ConsecutiveFailures,
		NotesCached:         health.NotesCached,
		Cursor:              health.Cursor,
	}
}
