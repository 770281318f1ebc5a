// Package redisstore реализует удаленное хранилище заметок поверх Redis:
// заметки лежат в хэшах, версии выдает счетчик, журнал изменений ведется
// в отсортированном множестве с версией в роли оценки.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"notemirror/internal/mirror/domain/entities"
	"notemirror/internal/mirror/ports/remote"
)

// Поля хэша заметки.
const (
	fieldContent    = "content"
	fieldTags       = "tags"
	fieldCreatedAt  = "created_at"
	fieldModifiedAt = "modified_at"
	fieldVersion    = "version"
	fieldDeleted    = "deleted"
)

// Константы для сообщений об ошибках.
const (
	ErrMsgLoadNote    = "failed to load note"
	ErrMsgStoreNote   = "failed to store note"
	ErrMsgLoadChanges = "failed to load change log"
)

// Store хранит заметки в Redis. Курсор синхронизации - последняя
// примененная версия в десятичной записи.
type Store struct {
	client *redis.Client
	prefix string
	nowFn  func() time.Time
}

var _ remote.Client = (*Store)(nil)

// New создает хранилище поверх подключенного клиента Redis.
func New(client *redis.Client, keyPrefix string) *Store {
	return &Store{
		client: client,
		prefix: keyPrefix,
		nowFn:  time.Now,
	}
}

func (s *Store) noteKey(id string) string { return s.prefix + ":note:" + id }
func (s *Store) seqKey() string           { return s.prefix + ":seq" }
func (s *Store) changesKey() string       { return s.prefix + ":changes" }

// FetchAll возвращает все живые заметки и курсор, равный текущему
// значению счетчика версий.
func (s *Store) FetchAll(ctx context.Context) ([]*entities.Note, string, error) {
	ids, err := s.client.ZRange(ctx, s.changesKey(), 0, -1).Result()
	if err != nil {
		return nil, "", entities.Transient(fmt.Errorf("%s: %w", ErrMsgLoadChanges, err))
	}

	notes := make([]*entities.Note, 0, len(ids))
	for _, id := range ids {
		note, err := s.loadNote(ctx, id)
		if err != nil {
			if errors.Is(err, entities.ErrNotFound) {
				continue
			}
			return nil, "", err
		}
		if note.Deleted {
			continue
		}
		notes = append(notes, note)
	}

	cursor, err := s.currentCursor(ctx)
	if err != nil {
		return nil, "", err
	}
	return notes, cursor, nil
}

// FetchChangesSince возвращает изменения с версией строго больше курсора.
func (s *Store) FetchChangesSince(ctx context.Context, cursor string) ([]entities.Delta, string, error) {
	since, err := parseCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	ids, err := s.client.ZRangeByScore(ctx, s.changesKey(), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(since, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, "", entities.Transient(fmt.Errorf("%s: %w", ErrMsgLoadChanges, err))
	}

	deltas := make([]entities.Delta, 0, len(ids))
	next := since
	for _, id := range ids {
		note, err := s.loadNote(ctx, id)
		if err != nil {
			if errors.Is(err, entities.ErrNotFound) {
				continue
			}
			return nil, "", err
		}

		delta := entities.Delta{
			ID:      note.ID,
			Version: note.Version,
			Deleted: note.Deleted,
			When:    note.ModifiedAt,
		}
		if note.Deleted {
			delta.When = note.DeletedAt
		} else {
			delta.Note = note
		}
		deltas = append(deltas, delta)

		if note.Version > next {
			next = note.Version
		}
	}

	return deltas, strconv.FormatInt(next, 10), nil
}

// Create создает заметку с новой версией из счетчика.
func (s *Store) Create(ctx context.Context, content string, tags []string) (*entities.Note, error) {
	now := s.nowFn().UTC()
	note := &entities.Note{
		ID:         uuid.NewString(),
		Content:    content,
		Tags:       tags,
		CreatedAt:  now,
		ModifiedAt: now,
	}

	if err := s.writeNote(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// Update обновляет заметку при совпадении ожидаемой версии. Проверка
// и запись выполняются под WATCH, чтобы конкурентная запись дала конфликт.
func (s *Store) Update(ctx context.Context, id, content string, tags []string, expectedVersion int64) (*entities.Note, error) {
	var updated *entities.Note

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.loadNoteTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Deleted {
			return fmt.Errorf("note %q: %w", id, entities.ErrNotFound)
		}
		if current.Version != expectedVersion {
			return fmt.Errorf("note %q: expected version %d, have %d: %w",
				id, expectedVersion, current.Version, entities.ErrRemoteConflict)
		}

		note := current.Clone()
		note.Content = content
		note.Tags = tags
		note.ModifiedAt = s.nowFn().UTC()
		updated = note

		return s.writeNoteTx(ctx, tx, note)
	}, s.noteKey(id))

	if errors.Is(err, redis.TxFailedErr) {
		return nil, fmt.Errorf("note %q: %w", id, entities.ErrRemoteConflict)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Trash помечает заметку удаленной и записывает удаление в журнал изменений.
func (s *Store) Trash(ctx context.Context, id string) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.loadNoteTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Deleted {
			return nil
		}

		note := current.Clone()
		note.Deleted = true
		note.DeletedAt = s.nowFn().UTC()
		return s.writeNoteTx(ctx, tx, note)
	}, s.noteKey(id))

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("note %q: %w", id, entities.ErrRemoteConflict)
	}
	return err
}

// writeNote выдает заметке новую версию и сохраняет ее вместе с записью
// в журнале изменений.
func (s *Store) writeNote(ctx context.Context, note *entities.Note) error {
	version, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return entities.Transient(fmt.Errorf("%s: %w", ErrMsgStoreNote, err))
	}
	note.Version = version

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.noteKey(note.ID), noteFields(note))
		pipe.ZAdd(ctx, s.changesKey(), redis.Z{Score: float64(version), Member: note.ID})
		return nil
	})
	if err != nil {
		return entities.Transient(fmt.Errorf("%s: %w", ErrMsgStoreNote, err))
	}
	return nil
}

// writeNoteTx - как writeNote, но внутри WATCH-транзакции.
func (s *Store) writeNoteTx(ctx context.Context, tx *redis.Tx, note *entities.Note) error {
	version, err := tx.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return entities.Transient(fmt.Errorf("%s: %w", ErrMsgStoreNote, err))
	}
	note.Version = version

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.noteKey(note.ID), noteFields(note))
		pipe.ZAdd(ctx, s.changesKey(), redis.Z{Score: float64(version), Member: note.ID})
		return nil
	})
	return err
}

func (s *Store) loadNote(ctx context.Context, id string) (*entities.Note, error) {
	fields, err := s.client.HGetAll(ctx, s.noteKey(id)).Result()
	if err != nil {
		return nil, entities.Transient(fmt.Errorf("%s: %w", ErrMsgLoadNote, err))
	}
	return noteFromFields(id, fields)
}

func (s *Store) loadNoteTx(ctx context.Context, tx *redis.Tx, id string) (*entities.Note, error) {
	fields, err := tx.HGetAll(ctx, s.noteKey(id)).Result()
	if err != nil {
		return nil, entities.Transient(fmt.Errorf("%s: %w", ErrMsgLoadNote, err))
	}
	return noteFromFields(id, fields)
}

// currentCursor возвращает текущее значение счетчика версий.
func (s *Store) currentCursor(ctx context.Context) (string, error) {
	seq, err := s.client.Get(ctx, s.seqKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		return "", entities.Transient(fmt.Errorf("%s: %w", ErrMsgLoadChanges, err))
	}
	return seq, nil
}

// parseCursor разбирает курсор как номер версии. Пустой курсор означает
// начало журнала.
func parseCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	since, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || since < 0 {
		return 0, fmt.Errorf("cursor %q: %w", cursor, entities.ErrCursorInvalid)
	}
	return since, nil
}

// noteFields сериализует заметку в поля хэша.
func noteFields(note *entities.Note) map[string]any {
	tags, _ := json.Marshal(note.Tags)

	deleted := "0"
	if note.Deleted {
		deleted = "1"
	}

	modified := note.ModifiedAt
	if note.Deleted {
		modified = note.DeletedAt
	}

	return map[string]any{
		fieldContent:    note.Content,
		fieldTags:       string(tags),
		fieldCreatedAt:  note.CreatedAt.Format(time.RFC3339Nano),
		fieldModifiedAt: modified.Format(time.RFC3339Nano),
		fieldVersion:    strconv.FormatInt(note.Version, 10),
		fieldDeleted:    deleted,
	}
}

// noteFromFields восстанавливает заметку из полей хэша.
func noteFromFields(id string, fields map[string]string) (*entities.Note, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("note %q: %w", id, entities.ErrNotFound)
	}

	version, err := strconv.ParseInt(fields[fieldVersion], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: bad version for note %q: %w", ErrMsgLoadNote, id, err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("%s: bad created_at for note %q: %w", ErrMsgLoadNote, id, err)
	}
	modifiedAt, err := time.Parse(time.RFC3339Nano, fields[fieldModifiedAt])
	if err != nil {
		return nil, fmt.Errorf("%s: bad modified_at for note %q: %w", ErrMsgLoadNote, id, err)
	}

	var tags []string
	if raw := fields[fieldTags]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return nil, fmt.Errorf("%s: bad tags for note %q: %w", ErrMsgLoadNote, id, err)
		}
	}

	note := &entities.Note{
		ID:         id,
		Content:    fields[fieldContent],
		Tags:       tags,
		CreatedAt:  createdAt,
		ModifiedAt: modifiedAt,
		Version:    version,
		Deleted:    fields[fieldDeleted] == "1",
	}
	if note.Deleted {
		note.DeletedAt = modifiedAt
	}
	return note, nil
}
