package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notemirror/internal/mirror/adapters/remote/postgres"
	"notemirror/internal/mirror/domain/entities"
)

func newTestStore(t *testing.T) (*postgres.Store, pgxmock.PgxPoolIface) {
	t.Helper()

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	return postgres.New(mockPool, func() string { return "fixed-id" }), mockPool
}

func noteColumns() []string {
	return []string{"id", "content", "tags", "created_at", "modified_at", "version", "deleted"}
}

func TestFetchAll_ReturnsNotesAndMaxVersionCursor(t *testing.T) {
	store, mockPool := newTestStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery("SELECT id, content, tags").
		WillReturnRows(pgxmock.NewRows(noteColumns()).
			AddRow("n1", "first", []string{"work"}, now, now, int64(1), false).
			AddRow("n2", "second", []string{}, now, now, int64(4), false))
	mockPool.ExpectQuery("SELECT COALESCE").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(4)))

	notes, cursor, err := store.FetchAll(context.Background())

	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "n1", notes[0].ID)
	assert.Equal(t, []string{"work"}, notes[0].Tags)
	assert.Equal(t, "4", cursor)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestFetchChangesSince_MapsDeletedRowsToDeletions(t *testing.T) {
	store, mockPool := newTestStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery("SELECT id, content, tags").
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows(noteColumns()).
			AddRow("gone", "", []string{}, now, now, int64(3), true).
			AddRow("live", "updated", []string{}, now, now, int64(5), false))

	deltas, next, err := store.FetchChangesSince(context.Background(), "2")

	require.NoError(t, err)
	require.Len(t, deltas, 2)
	assert.True(t, deltas[0].Deleted)
	assert.Nil(t, deltas[0].Note)
	assert.False(t, deltas[1].Deleted)
	require.NotNil(t, deltas[1].Note)
	assert.Equal(t, "updated", deltas[1].Note.Content)
	assert.Equal(t, "5", next)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestFetchChangesSince_BadCursor(t *testing.T) {
	store, _ := newTestStore(t)

	_, _, err := store.FetchChangesSince(context.Background(), "garbage")

	require.ErrorIs(t, err, entities.ErrCursorInvalid)
}

func TestCreate_ReturnsAssignedVersion(t *testing.T) {
	store, mockPool := newTestStore(t)

	mockPool.ExpectQuery("INSERT INTO notes").
		WithArgs("fixed-id", "new note", []string{"work"}, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(7)))

	note, err := store.Create(context.Background(), "new note", []string{"work"})

	require.NoError(t, err)
	assert.Equal(t, "fixed-id", note.ID)
	assert.Equal(t, int64(7), note.Version)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpdate_VersionMatch(t *testing.T) {
	store, mockPool := newTestStore(t)
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery("UPDATE notes").
		WithArgs("n1", "rewrite", []string(nil), pgxmock.AnyArg(), int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"version", "created_at"}).AddRow(int64(4), created))

	note, err := store.Update(context.Background(), "n1", "rewrite", nil, 3)

	require.NoError(t, err)
	assert.Equal(t, int64(4), note.Version)
	assert.Equal(t, created, note.CreatedAt)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpdate_VersionMismatchConflicts(t *testing.T) {
	store, mockPool := newTestStore(t)

	mockPool.ExpectQuery("UPDATE notes").
		WithArgs("n1", "late write", []string(nil), pgxmock.AnyArg(), int64(1)).
		WillReturnError(pgx.ErrNoRows)
	mockPool.ExpectQuery("SELECT deleted FROM notes").
		WithArgs("n1").
		WillReturnRows(pgxmock.NewRows([]string{"deleted"}).AddRow(false))

	_, err := store.Update(context.Background(), "n1", "late write", nil, 1)

	require.ErrorIs(t, err, entities.ErrRemoteConflict)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpdate_MissingNote(t *testing.T) {
	store, mockPool := newTestStore(t)

	mockPool.ExpectQuery("UPDATE notes").
		WithArgs("ghost", "content", []string(nil), pgxmock.AnyArg(), int64(1)).
		WillReturnError(pgx.ErrNoRows)
	mockPool.ExpectQuery("SELECT deleted FROM notes").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Update(context.Background(), "ghost", "content", nil, 1)

	require.ErrorIs(t, err, entities.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTrash_MarksRowDeleted(t *testing.T) {
	store, mockPool := newTestStore(t)

	mockPool.ExpectExec("UPDATE notes").
		WithArgs("n1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.Trash(context.Background(), "n1"))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTrash_MissingNote(t *testing.T) {
	store, mockPool := newTestStore(t)

	mockPool.ExpectExec("UPDATE notes").
		WithArgs("ghost", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mockPool.ExpectQuery("SELECT deleted FROM notes").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	err := store.Trash(context.Background(), "ghost")

	require.ErrorIs(t, err, entities.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
