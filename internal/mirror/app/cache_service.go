// Package app реализует бизнес-логику зеркала заметок: фасад кэша
// и сервис операций над заметками.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"notemirror/internal/mirror/config"
	"notemirror/internal/mirror/domain/entities"
	"notemirror/internal/mirror/search"
	"notemirror/internal/mirror/store"
	"notemirror/pkg/logger"
)

// Константы для логирования.
const (
	LogBulkLoadApplied     = "bulk load applied"
	LogDeltaBatchApplied   = "delta batch applied"
	LogRemoteWriteApplied  = "remote write reflected in cache"
	LogRemoteDeleteApplied = "remote delete reflected in cache"
	LogTombstonesPurged    = "expired tombstones purged"
)

// Ошибки фасада.
var (
	// ErrInvalidDelta возвращается, когда пакет дельт не проходит валидацию.
	// Пакет применяется только целиком: невалидная дельта откатывает весь тик.
	ErrInvalidDelta = errors.New("invalid delta in batch")
)

// Page - страница заметок с информацией о пагинации.
// Limit и Offset отражают нормализованные значения.
type Page struct {
	Notes      []*entities.Note
	Total      int
	Limit      int
	Offset     int
	HasMore    bool
	NextOffset int
}

// SearchPage - страница результатов поиска.
type SearchPage struct {
	Results    []search.Result
	Total      int
	Limit      int
	Offset     int
	HasMore    bool
	NextOffset int
}

// CacheService - единственная точка доступа к хранилищу заметок для
// внешних вызовов и синхронизатора. Хранилище принадлежит фасаду и
// передается при конструировании, без процессных синглтонов.
type CacheService struct {
	store  *store.Store
	engine *search.Engine
	cfg    config.CacheConfig

	healthMu            sync.RWMutex
	syncState           entities.SyncState
	degraded            bool
	lastSyncAt          time.Time
	consecutiveFailures int

	nowFn func() time.Time
}

// NewCacheService создает фасад над переданным хранилищем.
func NewCacheService(st *store.Store, engine *search.Engine, cfg config.CacheConfig) *CacheService {
	return &CacheService{
		store:     st,
		engine:    engine,
		cfg:       cfg,
		syncState: entities.SyncUninitialized,
		nowFn:     time.Now,
	}
}

// Get возвращает заметку по идентификатору.
// Отсутствующие и tombstone-записи дают entities.ErrNotFound.
func (s *CacheService) Get(ctx context.Context, id string) (*entities.Note, error) {
	note, ok := s.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("note %q: %w", id, entities.ErrNotFound)
	}
	return note, nil
}

// List возвращает страницу живых заметок, упорядоченных по убыванию
// времени модификации, с необязательным фильтром по тегу.
func (s *CacheService) List(ctx context.Context, tagFilter string, limit, offset int) *Page {
	notes := s.store.Snapshot()

	if tagFilter != "" {
		filtered := notes[:0]
		for _, note := range notes {
			if note.HasTag(tagFilter) {
				filtered = append(filtered, note)
			}
		}
		notes = filtered
	}

	// Снимок собирается из map, поэтому при равном времени модификации
	// порядок закрепляется идентификатором.
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].ModifiedAt.Equal(notes[j].ModifiedAt) {
			return notes[i].ModifiedAt.After(notes[j].ModifiedAt)
		}
		return notes[i].ID < notes[j].ID
	})

	limit, offset = s.clampPage(limit, offset)
	total := len(notes)
	page := paginate(notes, limit, offset)

	return &Page{
		Notes:      page,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    offset+len(page) < total,
		NextOffset: offset + len(page),
	}
}

// Search вычисляет поисковый запрос над согласованным снимком хранилища.
// Синтаксические ошибки запроса возвращаются вызывающему немедленно.
func (s *CacheService) Search(ctx context.Context, query string, limit, offset int, filters search.Filters) (*SearchPage, error) {
	snapshot := s.store.Snapshot()

	results, err := s.engine.Search(snapshot, query, filters)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	limit, offset = s.clampPage(limit, offset)
	total := len(results)
	page := paginate(results, limit, offset)

	return &SearchPage{
		Results:    page,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    offset+len(page) < total,
		NextOffset: offset + len(page),
	}, nil
}

// Tags возвращает отсортированный список уникальных тегов живых заметок.
func (s *CacheService) Tags(ctx context.Context) []string {
	return s.store.AllTags()
}

// RecordRemoteWrite отражает в кэше запись, уже подтвержденную удаленным
// хранилищем, не дожидаясь следующего тика синхронизации.
func (s *CacheService) RecordRemoteWrite(ctx context.Context, note *entities.Note) {
	if s.store.Upsert(note) {
		logger.Log(ctx).Debug(ctx, LogRemoteWriteApplied,
			zap.String("note_id", note.ID),
			zap.Int64("version", note.Version))
	}
}

// RecordRemoteDelete отражает в кэше удаление, уже подтвержденное удаленным
// хранилищем. Удаление корзиной не возвращает версию, поэтому tombstone
// получает версию на единицу больше сохраненной.
func (s *CacheService) RecordRemoteDelete(ctx context.Context, id string) {
	version := int64(1)
	if current, ok := s.store.Get(id); ok {
		version = current.Version + 1
	}
	if s.store.Tombstone(id, version, s.nowFn()) {
		logger.Log(ctx).Debug(ctx, LogRemoteDeleteApplied, zap.String("note_id", id))
	}
}

// BulkLoad применяет полную выгрузку удаленного хранилища и устанавливает
// маркер синхронизации. Живые заметки, отсутствующие в выгрузке, удаляются:
// полная выгрузка авторитетна.
func (s *CacheService) BulkLoad(ctx context.Context, notes []*entities.Note, cursor string) {
	applied := 0
	keep := make(map[string]struct{}, len(notes))
	for _, note := range notes {
		keep[note.ID] = struct{}{}
		if s.store.Upsert(note) {
			applied++
		}
	}
	dropped := s.store.DropMissing(keep)
	s.store.SetCursor(cursor)

	logger.Log(ctx).Info(ctx, LogBulkLoadApplied,
		zap.Int("notes", applied),
		zap.Int("dropped", dropped),
		zap.String("cursor", cursor))
}

// ApplyDeltas применяет пакет дельт целиком: сначала валидация всех дельт,
// затем применение и только после этого продвижение маркера. Невалидный
// пакет не меняет ни хранилище, ни маркер.
func (s *CacheService) ApplyDeltas(ctx context.Context, deltas []entities.Delta, cursor string) error {
	for _, delta := range deltas {
		if delta.ID == "" {
			return fmt.Errorf("%w: empty note id", ErrInvalidDelta)
		}
		if !delta.Deleted && delta.Note == nil {
			return fmt.Errorf("%w: note %q has no payload", ErrInvalidDelta, delta.ID)
		}
	}

	applied := 0
	for _, delta := range deltas {
		if delta.Deleted {
			if s.store.Tombstone(delta.ID, delta.Version, delta.When) {
				applied++
			}
			continue
		}
		if s.store.Upsert(delta.Note) {
			applied++
		}
	}
	s.store.SetCursor(cursor)

	if purged := s.store.PurgeExpiredTombstones(s.nowFn()); purged > 0 {
		logger.Log(ctx).Debug(ctx, LogTombstonesPurged, zap.Int("purged", purged))
	}

	logger.Log(ctx).Debug(ctx, LogDeltaBatchApplied,
		zap.Int("deltas", len(deltas)),
		zap.Int("applied", applied),
		zap.String("cursor", cursor))
	return nil
}

// ReportSync обновляет наблюдаемое состояние синхронизации.
// Вызывается синхронизатором после каждого тика.
func (s *CacheService) ReportSync(state entities.SyncState, failures int, degraded bool, lastSync time.Time) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.syncState = state
	s.consecutiveFailures = failures
	s.degraded = degraded
	if !lastSync.IsZero() {
		s.lastSyncAt = lastSync
	}
}

// Health возвращает возраст маркера синхронизации и счетчик сбоев.
func (s *CacheService) Health(ctx context.Context) entities.Health {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()

	var markerAge time.Duration
	if !s.lastSyncAt.IsZero() {
		markerAge = s.nowFn().Sub(s.lastSyncAt)
	}

	return entities.Health{
		State:               s.syncState,
		Degraded:            s.degraded,
		LastSyncAt:          s.lastSyncAt,
		MarkerAge:           markerAge,
		ConsecutiveFailures: s.consecutiveFailures,
		NotesCached:         s.store.Len(),
		Cursor:              s.store.Cursor(),
	}
}

// Cursor возвращает текущий маркер синхронизации.
func (s *CacheService) Cursor() string {
	return s.store.Cursor()
}

// clampPage нормализует параметры пагинации к настроенным границам.
func (s *CacheService) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}
	if s.cfg.MaxPageSize > 0 && limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// paginate возвращает срез страницы [offset, offset+limit).
func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
