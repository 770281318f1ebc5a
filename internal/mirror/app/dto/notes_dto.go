// Package dto определяет структуры запросов и ответов HTTP API.
package dto

import (
	"time"
)

// CreateNoteRequest содержит данные для создания заметки.
type CreateNoteRequest struct {
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags"`
}

// UpdateNoteRequest содержит данные для обновления заметки.
// ExpectedVersion защищает от потерянных обновлений: запись отклоняется,
// если версия в удаленном хранилище уже ушла вперед.
type UpdateNoteRequest struct {
	Content         string   `json:"content" validate:"required"`
	Tags            []string `json:"tags"`
	ExpectedVersion int64    `json:"expected_version"`
}

// Note представляет полную заметку в ответе API.
type Note struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Version    int64     `json:"version"`
}

// NoteSummary представляет заметку в списках и результатах поиска.
type NoteSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Snippet    string    `json:"snippet"`
	Tags       []string  `json:"tags"`
	ModifiedAt time.Time `json:"modified_at"`
	Score      float64   `json:"score,omitempty"`
}

// NoteResponse содержит одну заметку.
type NoteResponse struct {
	Note *Note `json:"note"`
}

// ListNotesResponse содержит страницу заметок и информацию о пагинации.
type ListNotesResponse struct {
	Notes      []NoteSummary `json:"notes"`
	Total      int           `json:"total"`
	Offset     int           `json:"offset"`
	Limit      int           `json:"limit"`
	HasMore    bool          `json:"has_more"`
	NextOffset int           `json:"next_offset,omitempty"`
}

// SearchResponse содержит страницу результатов поиска.
type SearchResponse struct {
	Query      string        `json:"query"`
	Results    []NoteSummary `json:"results"`
	Total      int           `json:"total"`
	Offset     int           `json:"offset"`
	Limit      int           `json:"limit"`
	HasMore    bool          `json:"has_more"`
	NextOffset int           `json:"next_offset,omitempty"`
}

// TagsResponse содержит список всех тегов.
type TagsResponse struct {
	Tags []string `json:"tags"`
}
