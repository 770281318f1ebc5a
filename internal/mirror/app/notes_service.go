package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"notemirror/internal/mirror/app/dto"
	"notemirror/internal/mirror/config"
	"notemirror/internal/mirror/domain/entities"
	"notemirror/internal/mirror/ports/remote"
	"notemirror/internal/mirror/ports/services"
	"notemirror/internal/mirror/search"
	"notemirror/pkg/logger"
)

// Константы для логирования.
const (
	LogNoteCreated = "note created in remote store"
	LogNoteUpdated = "note updated in remote store"
	LogNoteTrashed = "note trashed in remote store"

	ErrMsgCreateNote = "failed to create note"
	ErrMsgUpdateNote = "failed to update note"
	ErrMsgDeleteNote = "failed to delete note"
)

// NotesService выполняет операции чтения из кэша и сквозную запись
// через удаленное хранилище. Запись отражается в кэше только после
// подтверждения удаленным хранилищем.
type NotesService struct {
	cache  *CacheService
	client remote.Client
	cfg    config.CacheConfig
}

var _ services.NotesService = (*NotesService)(nil)

// NewNotesService создает сервис заметок поверх фасада кэша и
// клиента удаленного хранилища.
func NewNotesService(cache *CacheService, client remote.Client, cfg config.CacheConfig) *NotesService {
	return &NotesService{
		cache:  cache,
		client: client,
		cfg:    cfg,
	}
}

// GetNote возвращает заметку по идентификатору.
func (s *NotesService) GetNote(ctx context.Context, id string) (*dto.NoteResponse, error) {
	note, err := s.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.NoteResponse{Note: toDTO(note)}, nil
}

// ListNotes возвращает страницу заметок с необязательным фильтром по тегу.
func (s *NotesService) ListNotes(ctx context.Context, tag string, limit, offset int) (*dto.ListNotesResponse, error) {
	page := s.cache.List(ctx, tag, limit, offset)

	summaries := lo.Map(page.Notes, func(note *entities.Note, _ int) dto.NoteSummary {
		return s.toSummary(note, 0)
	})

	return &dto.ListNotesResponse{
		Notes:      summaries,
		Total:      page.Total,
		Offset:     page.Offset,
		Limit:      page.Limit,
		HasMore:    page.HasMore,
		NextOffset: page.NextOffset,
	}, nil
}

// SearchNotes выполняет булев запрос над кэшем и возвращает ранжированную
// страницу результатов.
func (s *NotesService) SearchNotes(ctx context.Context, query string, filters search.Filters, limit, offset int) (*dto.SearchResponse, error) {
	page, err := s.cache.Search(ctx, query, limit, offset, filters)
	if err != nil {
		return nil, err
	}

	summaries := lo.Map(page.Results, func(res search.Result, _ int) dto.NoteSummary {
		return s.toSummary(res.Note, res.Score)
	})

	return &dto.SearchResponse{
		Query:      query,
		Results:    summaries,
		Total:      page.Total,
		Offset:     page.Offset,
		Limit:      page.Limit,
		HasMore:    page.HasMore,
		NextOffset: page.NextOffset,
	}, nil
}

// CreateNote создает заметку в удаленном хранилище и после подтверждения
// отражает ее в кэше.
func (s *NotesService) CreateNote(ctx context.Context, req *dto.CreateNoteRequest) (*dto.NoteResponse, error) {
	log := logger.Log(ctx).With(zap.String("method", "CreateNote"))

	note, err := s.client.Create(ctx, req.Content, req.Tags)
	if err != nil {
		log.Error(ctx, ErrMsgCreateNote, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrMsgCreateNote, err)
	}

	s.cache.RecordRemoteWrite(ctx, note)
	log.Info(ctx, LogNoteCreated, zap.String("note_id", note.ID))

	return &dto.NoteResponse{Note: toDTO(note)}, nil
}

// UpdateNote обновляет заметку в удаленном хранилище с проверкой ожидаемой
// версии. Конфликт версий возвращается вызывающему без изменения кэша.
func (s *NotesService) UpdateNote(ctx context.Context, id string, req *dto.UpdateNoteRequest) (*dto.NoteResponse, error) {
	log := logger.Log(ctx).With(zap.String("method", "UpdateNote"), zap.String("note_id", id))

	note, err := s.client.Update(ctx, id, req.Content, req.Tags, req.ExpectedVersion)
	if err != nil {
		log.Error(ctx, ErrMsgUpdateNote, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrMsgUpdateNote, err)
	}

	s.cache.RecordRemoteWrite(ctx, note)
	log.Info(ctx, LogNoteUpdated, zap.Int64("version", note.Version))

	return &dto.NoteResponse{Note: toDTO(note)}, nil
}

// DeleteNote перемещает заметку в корзину удаленного хранилища и ставит
// tombstone в кэше.
func (s *NotesService) DeleteNote(ctx context.Context, id string) error {
	log := logger.Log(ctx).With(zap.String("method", "DeleteNote"), zap.String("note_id", id))

	if err := s.client.Trash(ctx, id); err != nil {
		log.Error(ctx, ErrMsgDeleteNote, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrMsgDeleteNote, err)
	}

	s.cache.RecordRemoteDelete(ctx, id)
	log.Info(ctx, LogNoteTrashed)

	return nil
}

// ListTags возвращает уникальные теги живых заметок.
func (s *NotesService) ListTags(ctx context.Context) (*dto.TagsResponse, error) {
	return &dto.TagsResponse{Tags: s.cache.Tags(ctx)}, nil
}

// Health возвращает состояние синхронизации и кэша.
func (s *NotesService) Health(ctx context.Context) entities.Health {
	return s.cache.Health(ctx)
}

// toSummary собирает краткое представление заметки для списков.
func (s *NotesService) toSummary(note *entities.Note, score float64) dto.NoteSummary {
	return dto.NoteSummary{
		ID:         note.ID,
		Title:      note.Title(),
		Snippet:    snippet(note.Content, s.cfg.SnippetMaxLength),
		Tags:       note.NormalizedTags(),
		ModifiedAt: note.ModifiedAt,
		Score:      score,
	}
}

// toDTO преобразует доменную заметку в представление API.
func toDTO(note *entities.Note) *dto.Note {
	return &dto.Note{
		ID:         note.ID,
		Title:      note.Title(),
		Content:    note.Content,
		Tags:       note.NormalizedTags(),
		CreatedAt:  note.CreatedAt,
		ModifiedAt: note.ModifiedAt,
		Version:    note.Version,
	}
}

// snippet возвращает начало содержимого без переводов строк,
// обрезанное до maxLen рун.
func snippet(content string, maxLen int) string {
	flat := strings.Join(strings.Fields(content), " ")
	if maxLen <= 0 {
		return flat
	}
	runes := []rune(flat)
	if len(runes) <= maxLen {
		return flat
	}
	return string(runes[:maxLen])
}
