package app_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"notemirror/internal/mirror/app"
	"notemirror/internal/mirror/app/dto"
	"notemirror/internal/mirror/domain/entities"
	"notemirror/internal/mirror/search"
	"notemirror/internal/mirror/store"
)

// MockRemoteClient - мок клиента удаленного хранилища.
type MockRemoteClient struct {
	mock.Mock
}

func (m *MockRemoteClient) FetchAll(ctx context.Context) ([]*entities.Note, string, error) {
	args := m.Called(ctx)
	notes, _ := args.Get(0).([]*entities.Note)
	return notes, args.String(1), args.Error(2)
}

func (m *MockRemoteClient) FetchChangesSince(ctx context.Context, cursor string) ([]entities.Delta, string, error) {
	args := m.Called(ctx, cursor)
	deltas, _ := args.Get(0).([]entities.Delta)
	return deltas, args.String(1), args.Error(2)
}

func (m *MockRemoteClient) Create(ctx context.Context, content string, tags []string) (*entities.Note, error) {
	args := m.Called(ctx, content, tags)
	note, _ := args.Get(0).(*entities.Note)
	return note, args.Error(1)
}

func (m *MockRemoteClient) Update(ctx context.Context, id, content string, tags []string, expectedVersion int64) (*entities.Note, error) {
	args := m.Called(ctx, id, content, tags, expectedVersion)
	note, _ := args.Get(0).(*entities.Note)
	return note, args.Error(1)
}

func (m *MockRemoteClient) Trash(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newNotesService(client *MockRemoteClient) (*app.NotesService, *app.CacheService) {
	cache := app.NewCacheService(store.New(time.Hour), search.NewEngine(), cacheConfig())
	return app.NewNotesService(cache, client, cacheConfig()), cache
}

func TestCreateNote_WriteThrough(t *testing.T) {
	client := new(MockRemoteClient)
	svc, _ := newNotesService(client)
	ctx := context.Background()
	now := time.Now()

	client.On("Create", ctx, "# Shopping\nmilk", []string{"personal"}).Return(&entities.Note{
		ID:         "n1",
		Content:    "# Shopping\nmilk",
		Tags:       []string{"personal"},
		CreatedAt:  now,
		ModifiedAt: now,
		Version:    1,
	}, nil)

	response, err := svc.CreateNote(ctx, &dto.CreateNoteRequest{
		Content: "# Shopping\nmilk",
		Tags:    []string{"personal"},
	})

	require.NoError(t, err)
	assert.Equal(t, "n1", response.Note.ID)
	assert.Equal(t, "Shopping", response.Note.Title)

	// Запись видна в кэше сразу, без ожидания тика синхронизации.
	got, err := svc.GetNote(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "# Shopping\nmilk", got.Note.Content)
	client.AssertExpectations(t)
}

func TestCreateNote_RemoteFailureLeavesCacheUntouched(t *testing.T) {
	client := new(MockRemoteClient)
	svc, cache := newNotesService(client)
	ctx := context.Background()

	client.On("Create", ctx, "doomed", mock.Anything).
		Return(nil, entities.Transient(assert.AnError))

	_, err := svc.CreateNote(ctx, &dto.CreateNoteRequest{Content: "doomed"})

	require.Error(t, err)
	assert.True(t, entities.IsTransient(err))
	assert.Zero(t, cache.Health(ctx).NotesCached)
}

func TestUpdateNote_ConflictSurfaced(t *testing.T) {
	client := new(MockRemoteClient)
	svc, cache := newNotesService(client)
	ctx := context.Background()
	now := time.Now()
	cache.RecordRemoteWrite(ctx, &entities.Note{
		ID: "n1", Content: "cached", ModifiedAt: now, Version: 2,
	})

	client.On("Update", ctx, "n1", "rewrite", mock.Anything, int64(1)).
		Return(nil, entities.ErrRemoteConflict)

	_, err := svc.UpdateNote(ctx, "n1", &dto.UpdateNoteRequest{
		Content:         "rewrite",
		ExpectedVersion: 1,
	})

	require.ErrorIs(t, err, entities.ErrRemoteConflict)
	got, getErr := svc.GetNote(ctx, "n1")
	require.NoError(t, getErr)
	assert.Equal(t, "cached", got.Note.Content, "conflicting write must not touch the cache")
}

func TestDeleteNote_WriteThrough(t *testing.T) {
	client := new(MockRemoteClient)
	svc, cache := newNotesService(client)
	ctx := context.Background()
	cache.RecordRemoteWrite(ctx, &entities.Note{
		ID: "n1", Content: "bye", ModifiedAt: time.Now(), Version: 1,
	})

	client.On("Trash", ctx, "n1").Return(nil)

	require.NoError(t, svc.DeleteNote(ctx, "n1"))

	_, err := svc.GetNote(ctx, "n1")
	assert.ErrorIs(t, err, entities.ErrNotFound)
	client.AssertExpectations(t)
}

func TestListNotes_SummariesCarrySnippets(t *testing.T) {
	client := new(MockRemoteClient)
	svc, cache := newNotesService(client)
	ctx := context.Background()
	longBody := "# Title line\n" + strings.Repeat("word ", 60)
	cache.RecordRemoteWrite(ctx, &entities.Note{
		ID: "n1", Content: longBody, ModifiedAt: time.Now(), Version: 1, Tags: []string{"Work"},
	})

	response, err := svc.ListNotes(ctx, "", 0, 0)

	require.NoError(t, err)
	require.Len(t, response.Notes, 1)
	summary := response.Notes[0]
	assert.Equal(t, "Title line", summary.Title)
	assert.LessOrEqual(t, len([]rune(summary.Snippet)), 100)
	assert.NotContains(t, summary.Snippet, "\n")
	assert.Equal(t, []string{"work"}, summary.Tags)
}

func TestSearchNotes_RankedResponse(t *testing.T) {
	client := new(MockRemoteClient)
	svc, cache := newNotesService(client)
	ctx := context.Background()
	now := time.Now()
	cache.RecordRemoteWrite(ctx, &entities.Note{
		ID: "hit", Content: "kickoff\nagenda", ModifiedAt: now, Version: 1,
	})
	cache.RecordRemoteWrite(ctx, &entities.Note{
		ID: "miss", Content: "groceries", ModifiedAt: now, Version: 2,
	})

	response, err := svc.SearchNotes(ctx, "kickoff", search.Filters{}, 0, 0)

	require.NoError(t, err)
	assert.Equal(t, "kickoff", response.Query)
	require.Len(t, response.Results, 1)
	assert.Equal(t, "hit", response.Results[0].ID)
	assert.Greater(t, response.Results[0].Score, 0.0)
}

func TestListTags(t *testing.T) {
	client := new(MockRemoteClient)
	svc, cache := newNotesService(client)
	ctx := context.Background()
	cache.RecordRemoteWrite(ctx, &entities.Note{
		ID: "n1", Content: "a", ModifiedAt: time.Now(), Version: 1, Tags: []string{"work", "ideas"},
	})

	response, err := svc.ListTags(ctx)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"work", "ideas"}, response.Tags)
}
