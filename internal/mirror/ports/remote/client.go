// Package remote определяет границу с удаленным хранилищем заметок.
package remote

import (
	"context"

	"notemirror/internal/mirror/domain/entities"
)

// Client - контракт удаленного хранилища заметок. Реализации обязаны
// помечать сетевые и временные сбои через entities.Transient, конфликт
// версий при записи - через entities.ErrRemoteConflict, а недействительный
// курсор - через entities.ErrCursorInvalid.
type Client interface {
	// FetchAll возвращает все живые заметки и курсор последней страницы.
	FetchAll(ctx context.Context) ([]*entities.Note, string, error)
	// FetchChangesSince возвращает изменения после курсора и новый курсор.
	FetchChangesSince(ctx context.Context, cursor string) ([]entities.Delta, string, error)
	// Create создает заметку и возвращает ее состояние с версией.
	Create(ctx context.Context, content string, tags []string) (*entities.Note, error)
	// Update обновляет заметку при совпадении ожидаемой версии.
	Update(ctx context.Context, id, content string, tags []string, expectedVersion int64) (*entities.Note, error)
	// Trash перемещает заметку в корзину.
	Trash(ctx context.Context, id string) error
}
