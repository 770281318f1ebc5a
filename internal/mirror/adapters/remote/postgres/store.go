// Package postgres реализует удаленное хранилище заметок поверх PostgreSQL.
// Версии заметок выдает последовательность notes_version_seq, журнал
// изменений читается по условию version > cursor.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"notemirror/internal/mirror/domain/entities"
	"notemirror/internal/mirror/ports/remote"
)

// Константы для сообщений об ошибках.
const (
	ErrMsgQueryNotes   = "failed to query notes"
	ErrMsgScanNote     = "failed to scan note row"
	ErrMsgInsertNote   = "failed to insert note"
	ErrMsgUpdateNote   = "failed to update note"
	ErrMsgTrashNote    = "failed to trash note"
	ErrMsgQueryCursor  = "failed to query max version"
)

// SQL запросы хранилища.
const (
	querySelectLive = `SELECT id, content, tags, created_at, modified_at, version, deleted
		FROM notes WHERE NOT deleted ORDER BY version`

	querySelectSince = `SELECT id, content, tags, created_at, modified_at, version, deleted
		FROM notes WHERE version > $1 ORDER BY version`

	queryMaxVersion = `SELECT COALESCE(MAX(version), 0) FROM notes`

	queryInsert = `INSERT INTO notes (id, content, tags, created_at, modified_at, version, deleted)
		VALUES ($1, $2, $3, $4, $4, nextval('notes_version_seq'), FALSE)
		RETURNING version`

	queryUpdate = `UPDATE notes
		SET content = $2, tags = $3, modified_at = $4, version = nextval('notes_version_seq')
		WHERE id = $1 AND version = $5 AND NOT deleted
		RETURNING version, created_at`

	queryTrash = `UPDATE notes
		SET deleted = TRUE, modified_at = $2, version = nextval('notes_version_seq')
		WHERE id = $1 AND NOT deleted`

	queryExists = `SELECT deleted FROM notes WHERE id = $1`
)

// DB - минимальный срез пула соединений, достаточный хранилищу.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store хранит заметки в PostgreSQL. Курсор синхронизации - максимальная
// примененная версия в десятичной записи.
type Store struct {
	db    DB
	idFn  func() string
	nowFn func() time.Time
}

var _ remote.Client = (*Store)(nil)

// New создает хранилище поверх пула соединений.
func New(db DB, idFn func() string) *Store {
	return &Store{
		db:    db,
		idFn:  idFn,
		nowFn: time.Now,
	}
}

// FetchAll возвращает все живые заметки и курсор максимальной версии.
func (s *Store) FetchAll(ctx context.Context) ([]*entities.Note, string, error) {
	rows, err := s.db.Query(ctx, querySelectLive)
	if err != nil {
		return nil, "", entities.Transient(fmt.Errorf("%s: %w", ErrMsgQueryNotes, err))
	}
	defer rows.Close()

	notes := make([]*entities.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, "", err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, "", entities.Transient(fmt.Errorf("%s: %w", ErrMsgQueryNotes, err))
	}

	var maxVersion int64
	if err := s.db.QueryRow(ctx, queryMaxVersion).Scan(&maxVersion); err != nil {
		return nil, "", entities.Transient(fmt.Errorf("%s: %w", ErrMsgQueryCursor, err))
	}

	return notes, strconv.FormatInt(maxVersion, 10), nil
}

// FetchChangesSince возвращает изменения с версией строго больше курсора.
func (s *Store) FetchChangesSince(ctx context.Context, cursor string) ([]entities.Delta, string, error) {
	since, err := parseCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	rows, err := s.db.Query(ctx, querySelectSince, since)
	if err != nil {
		return nil, "", entities.Transient(fmt.Errorf("%s: %w", ErrMsgQueryNotes, err))
	}
	defer rows.Close()

	deltas := make([]entities.Delta, 0)
	next := since
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, "", err
		}

		delta := entities.Delta{
			ID:      note.ID,
			Version: note.Version,
			Deleted: note.Deleted,
			When:    note.ModifiedAt,
		}
		if !note.Deleted {
			delta.Note = note
		}
		deltas = append(deltas, delta)

		if note.Version > next {
			next = note.Version
		}
	}
	if err := rows.Err(); err != nil {
		return nil, "", entities.Transient(fmt.Errorf("%s: %w", ErrMsgQueryNotes, err))
	}

	return deltas, strconv.FormatInt(next, 10), nil
}

// Create вставляет новую заметку с версией из последовательности.
func (s *Store) Create(ctx context.Context, content string, tags []string) (*entities.Note, error) {
	now := s.nowFn().UTC()
	note := &entities.Note{
		ID:         s.idFn(),
		Content:    content,
		Tags:       tags,
		CreatedAt:  now,
		ModifiedAt: now,
	}

	err := s.db.QueryRow(ctx, queryInsert, note.ID, note.Content, note.Tags, now).
		Scan(&note.Version)
	if err != nil {
		return nil, entities.Transient(fmt.Errorf("%s: %w", ErrMsgInsertNote, err))
	}
	return note, nil
}

// Update обновляет заметку при совпадении ожидаемой версии. Несовпадение
// версии на существующей заметке дает ErrRemoteConflict.
func (s *Store) Update(ctx context.Context, id, content string, tags []string, expectedVersion int64) (*entities.Note, error) {
	now := s.nowFn().UTC()
	note := &entities.Note{
		ID:         id,
		Content:    content,
		Tags:       tags,
		ModifiedAt: now,
	}

	err := s.db.QueryRow(ctx, queryUpdate, id, content, tags, now, expectedVersion).
		Scan(&note.Version, &note.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.classifyMiss(ctx, id, ErrMsgUpdateNote)
	}
	if err != nil {
		return nil, entities.Transient(fmt.Errorf("%s: %w", ErrMsgUpdateNote, err))
	}
	return note, nil
}

// Trash помечает заметку удаленной. Повторное удаление - no-op.
func (s *Store) Trash(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, queryTrash, id, s.nowFn().UTC())
	if err != nil {
		return entities.Transient(fmt.Errorf("%s: %w", ErrMsgTrashNote, err))
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var deleted bool
	err = s.db.QueryRow(ctx, queryExists, id).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("note %q: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return entities.Transient(fmt.Errorf("%s: %w", ErrMsgTrashNote, err))
	}
	return nil
}

// classifyMiss различает отсутствующую заметку и конфликт версии после
// несработавшего UPDATE.
func (s *Store) classifyMiss(ctx context.Context, id, op string) error {
	var deleted bool
	err := s.db.QueryRow(ctx, queryExists, id).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) || deleted {
		return fmt.Errorf("note %q: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return entities.Transient(fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("note %q: %w", id, entities.ErrRemoteConflict)
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

// scanNote читает одну строку результата в доменную заметку.
func scanNote(rows pgx.Rows) (*entities.Note, error) {
	note := &entities.Note{}
	err := rows.Scan(&note.ID, &note.Content, &note.Tags,
		&note.CreatedAt, &note.ModifiedAt, &note.Version, &note.Deleted)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgScanNote, err)
	}
	if note.Deleted {
		note.DeletedAt = note.ModifiedAt
	}
	return note, nil
}
