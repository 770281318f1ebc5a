// Package services определяет контракты сервисного слоя зеркала заметок.
package services

import (
	"context"

	"notemirror/internal/mirror/app/dto"
	"notemirror/internal/mirror/domain/entities"
	"notemirror/internal/mirror/search"
)

// NotesService определяет операции над кэшированными заметками,
// доступные транспортному слою.
type NotesService interface {
	// GetNote возвращает заметку по идентификатору.
	GetNote(ctx context.Context, id string) (*dto.NoteResponse, error)

	// ListNotes возвращает страницу заметок, отсортированных по убыванию
	// времени модификации, с необязательным фильтром по тегу.
	ListNotes(ctx context.Context, tag string, limit, offset int) (*dto.ListNotesResponse, error)

	// SearchNotes выполняет булев поисковый запрос над кэшем с
	// необязательными фильтрами по тегу и датам модификации.
	SearchNotes(ctx context.Context, query string, filters search.Filters, limit, offset int) (*dto.SearchResponse, error)

	// CreateNote создает заметку в удаленном хранилище и отражает ее в кэше.
	CreateNote(ctx context.Context, req *dto.CreateNoteRequest) (*dto.NoteResponse, error)

	// UpdateNote обновляет заметку в удаленном хранилище с проверкой версии.
	UpdateNote(ctx context.Context, id string, req *dto.UpdateNoteRequest) (*dto.NoteResponse, error)

	// DeleteNote перемещает заметку в корзину удаленного хранилища.
	DeleteNote(ctx context.Context, id string) error

	// ListTags возвращает уникальные теги живых заметок.
	ListTags(ctx context.Context) (*dto.TagsResponse, error)

	// Health возвращает состояние синхронизации и кэша.
	Health(ctx context.Context) entities.Health
}
