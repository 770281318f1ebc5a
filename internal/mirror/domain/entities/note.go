// Package entities определяет доменные сущности зеркала заметок.
package entities

import (
	"strings"
	"time"
)

// Note представляет собой локальную копию заметки из удаленного хранилища.
type Note struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	// Version - монотонный номер версии заметки в удаленном хранилище.
	// Используется для разрешения порядка записей вместо времени.
	Version int64 `json:"version"`
	// Deleted помечает заметку как удаленную (tombstone).
	Deleted   bool      `json:"deleted,omitempty"`
	DeletedAt time.Time `json:"deleted_at,omitempty"`
}

// Delta описывает одно инкрементальное изменение из удаленного хранилища.
type Delta struct {
	ID      string
	Version int64
	// Deleted - true, если заметка перемещена в корзину.
	Deleted bool
	// Note - новое состояние заметки; nil для удалений.
	Note *Note
	// When - время изменения или удаления.
	When time.Time
}

// Title возвращает первую непустую строку содержимого без маркеров
// markdown-заголовка. Пустое содержимое дает пустой заголовок.
func (n *Note) Title() string {
	for _, line := range strings.Split(n.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
	}
	return ""
}

// NormalizedTags возвращает теги заметки в нижнем регистре.
func (n *Note) NormalizedTags() []string {
	normalized := make([]string, 0, len(n.Tags))
	for _, tag := range n.Tags {
		normalized = append(normalized, NormalizeTag(tag))
	}
	return normalized
}

// HasTag проверяет наличие тега без учета регистра.
func (n *Note) HasTag(name string) bool {
	want := NormalizeTag(name)
	for _, tag := range n.Tags {
		if NormalizeTag(tag) == want {
			return true
		}
	}
	return false
}

// Clone возвращает глубокую копию заметки.
func (n *Note) Clone() *Note {
	copied := *n
	if n.Tags != nil {
		copied.Tags = make([]string, len(n.Tags))
		copy(copied.Tags, n.Tags)
	}
	return &copied
}

// NormalizeTag приводит тег к канонической форме для сравнения.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
