package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notemirror/internal/mirror/domain/entities"
	"notemirror/internal/mirror/store"
)

func newNote(id, content string, version int64, tags ...string) *entities.Note {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &entities.Note{
		ID:         id,
		Content:    content,
		Tags:       tags,
		CreatedAt:  now,
		ModifiedAt: now,
		Version:    version,
	}
}

func TestUpsert_NewNote(t *testing.T) {
	s := store.New(time.Hour)

	applied := s.Upsert(newNote("n1", "hello", 1))

	require.True(t, applied)
	got, ok := s.Get("n1")
	require.True(t, ok)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, 1, s.Len())
}

func TestUpsert_StaleVersionIgnored(t *testing.T) {
	s := store.New(time.Hour)
	require.True(t, s.Upsert(newNote("n1", "fresh", 5)))

	applied := s.Upsert(newNote("n1", "stale", 3))

	assert.False(t, applied)
	got, ok := s.Get("n1")
	require.True(t, ok)
	assert.Equal(t, "fresh", got.Content)
	assert.Equal(t, int64(5), got.Version)
}

func TestUpsert_EqualVersionIgnored(t *testing.T) {
	s := store.New(time.Hour)
	require.True(t, s.Upsert(newNote("n1", "first", 2)))

	applied := s.Upsert(newNote("n1", "replay", 2))

	assert.False(t, applied, "replayed version should be idempotent")
}

func TestUpsert_ReturnedNoteIsACopy(t *testing.T) {
	s := store.New(time.Hour)
	original := newNote("n1", "content", 1, "work")
	require.True(t, s.Upsert(original))

	got, ok := s.Get("n1")
	require.True(t, ok)
	got.Content = "mutated"
	got.Tags[0] = "mutated"

	again, ok := s.Get("n1")
	require.True(t, ok)
	assert.Equal(t, "content", again.Content)
	assert.Equal(t, []string{"work"}, again.Tags)
}

func TestUpsert_UpdatesTagIndex(t *testing.T) {
	s := store.New(time.Hour)
	require.True(t, s.Upsert(newNote("n1", "a", 1, "Work", "ideas")))

	require.True(t, s.Upsert(newNote("n1", "a", 2, "ideas")))

	assert.Empty(t, s.IDsByTag("work"), "dropped tag should leave the index")
	assert.Equal(t, []string{"n1"}, s.IDsByTag("IDEAS"), "tag lookup is case-insensitive")
}

func TestTombstone_HidesNote(t *testing.T) {
	s := store.New(time.Hour)
	require.True(t, s.Upsert(newNote("n1", "bye", 1, "work")))

	applied := s.Tombstone("n1", 2, time.Now())

	require.True(t, applied)
	_, ok := s.Get("n1")
	assert.False(t, ok)
	assert.Empty(t, s.IDsByTag("work"))
	assert.Zero(t, s.Len())
}

func TestTombstone_StaleVersionIgnored(t *testing.T) {
	s := store.New(time.Hour)
	require.True(t, s.Upsert(newNote("n1", "alive", 5)))

	applied := s.Tombstone("n1", 3, time.Now())

	assert.False(t, applied)
	_, ok := s.Get("n1")
	assert.True(t, ok, "stale delete must not hide a newer note")
}

func TestTombstone_UnknownNoteStillRecorded(t *testing.T) {
	s := store.New(time.Hour)

	applied := s.Tombstone("ghost", 4, time.Now())

	require.True(t, applied)
	assert.False(t, s.Upsert(newNote("ghost", "resurrected", 3)),
		"older write must not resurrect a tombstoned note")
	assert.True(t, s.Upsert(newNote("ghost", "recreated", 5)),
		"newer write may recreate the note")
}

func TestUpsert_NewerVersionClearsTombstone(t *testing.T) {
	s := store.New(time.Hour)
	require.True(t, s.Upsert(newNote("n1", "v1", 1)))
	require.True(t, s.Tombstone("n1", 2, time.Now()))

	require.True(t, s.Upsert(newNote("n1", "v3", 3)))

	got, ok := s.Get("n1")
	require.True(t, ok)
	assert.Equal(t, "v3", got.Content)
}

func TestPurgeExpiredTombstones(t *testing.T) {
	s := store.New(time.Hour)
	deletedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.True(t, s.Tombstone("old", 1, deletedAt))
	require.True(t, s.Tombstone("fresh", 2, deletedAt.Add(50*time.Minute)))

	purged := s.PurgeExpiredTombstones(deletedAt.Add(61 * time.Minute))

	assert.Equal(t, 1, purged)
	assert.Equal(t, 0, s.PurgeExpiredTombstones(deletedAt.Add(61*time.Minute)))
}

func TestSnapshot_ExcludesTombstones(t *testing.T) {
	s := store.New(time.Hour)
	require.True(t, s.Upsert(newNote("n1", "a", 1)))
	require.True(t, s.Upsert(newNote("n2", "b", 2)))
	require.True(t, s.Tombstone("n2", 3, time.Now()))

	snapshot := s.Snapshot()

	require.Len(t, snapshot, 1)
	assert.Equal(t, "n1", snapshot[0].ID)
}

func TestDropMissing_RemovesAbsentLiveNotes(t *testing.T) {
	s := store.New(time.Hour)
	require.True(t, s.Upsert(newNote("keep", "a", 1, "work")))
	require.True(t, s.Upsert(newNote("drop", "b", 2, "work")))
	require.True(t, s.Tombstone("dead", 3, time.Now()))

	dropped := s.DropMissing(map[string]struct{}{"keep": {}})

	assert.Equal(t, 1, dropped)
	_, ok := s.Get("keep")
	assert.True(t, ok)
	_, ok = s.Get("drop")
	assert.False(t, ok)
	assert.Equal(t, []string{"keep"}, s.IDsByTag("work"))
	assert.False(t, s.Upsert(newNote("dead", "late", 2)),
		"tombstones survive a drop and still gate stale writes")
}

func TestCursor_RoundTrip(t *testing.T) {
	s := store.New(time.Hour)
	assert.Empty(t, s.Cursor())

	s.SetCursor("42")

	assert.Equal(t, "42", s.Cursor())
}

func TestAllTags_SortedAndUnique(t *testing.T) {
	s := store.New(time.Hour)
	require.True(t, s.Upsert(newNote("n1", "a", 1, "work", "Ideas")))
	require.True(t, s.Upsert(newNote("n2", "b", 2, "work", "archive")))

	tags := s.AllTags()

	assert.Equal(t, []string{"Ideas", "archive", "work"}, tags)
}
