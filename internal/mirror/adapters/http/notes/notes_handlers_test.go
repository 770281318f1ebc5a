package notes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpServer "notemirror/internal/mirror/adapters/http"
	"notemirror/internal/mirror/app/dto"
	"notemirror/internal/mirror/config"
	"notemirror/internal/mirror/domain/entities"
	"notemirror/internal/mirror/search"
)

// MockNotesService - мок сервисного слоя заметок.
type MockNotesService struct {
	mock.Mock
}

func (m *MockNotesService) GetNote(ctx context.Context, id string) (*dto.NoteResponse, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*dto.NoteResponse)
	return resp, args.Error(1)
}

func (m *MockNotesService) ListNotes(ctx context.Context, tag string, limit, offset int) (*dto.ListNotesResponse, error) {
	args := m.Called(ctx, tag, limit, offset)
	resp, _ := args.Get(0).(*dto.ListNotesResponse)
	return resp, args.Error(1)
}

func (m *MockNotesService) SearchNotes(ctx context.Context, query string, filters search.Filters, limit, offset int) (*dto.SearchResponse, error) {
	args := m.Called(ctx, query, filters, limit, offset)
	resp, _ := args.Get(0).(*dto.SearchResponse)
	return resp, args.Error(1)
}

func (m *MockNotesService) CreateNote(ctx context.Context, req *dto.CreateNoteRequest) (*dto.NoteResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.NoteResponse)
	return resp, args.Error(1)
}

func (m *MockNotesService) UpdateNote(ctx context.Context, id string, req *dto.UpdateNoteRequest) (*dto.NoteResponse, error) {
	args := m.Called(ctx, id, req)
	resp, _ := args.Get(0).(*dto.NoteResponse)
	return resp, args.Error(1)
}

func (m *MockNotesService) DeleteNote(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNotesService) ListTags(ctx context.Context) (*dto.TagsResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*dto.TagsResponse)
	return resp, args.Error(1)
}

func (m *MockNotesService) Health(ctx context.Context) entities.Health {
	args := m.Called(ctx)
	health, _ := args.Get(0).(entities.Health)
	return health
}

func newTestApp(service *MockNotesService) *fiber.App {
	app := fiber.New()
	httpServer.SetupRouter(app, service, config.AuthConfig{})
	return app
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
}

func TestGetNote_OK(t *testing.T) {
	service := new(MockNotesService)
	service.On("GetNote", mock.Anything, "n1").Return(&dto.NoteResponse{
		Note: &dto.Note{ID: "n1", Title: "Hello", Content: "Hello\nworld", Version: 1},
	}, nil)
	app := newTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/notes/n1", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body dto.NoteResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "n1", body.Note.ID)
}

func TestGetNote_NotFound(t *testing.T) {
	service := new(MockNotesService)
	service.On("GetNote", mock.Anything, "ghost").Return(nil, entities.ErrNotFound)
	app := newTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/notes/ghost", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, fiber.MIMEApplicationJSON, resp.Header.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "not found")
}

func TestListNotes_PassesQueryParams(t *testing.T) {
	service := new(MockNotesService)
	service.On("ListNotes", mock.Anything, "work", 5, 10).Return(&dto.ListNotesResponse{
		Notes: []dto.NoteSummary{{ID: "n1", Title: "t", ModifiedAt: time.Now()}},
		Total: 11, Limit: 5, Offset: 10,
	}, nil)
	app := newTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/notes?tag=work&limit=5&offset=10", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	service.AssertExpectations(t)
}

func TestListNotes_RejectsBadLimit(t *testing.T) {
	service := new(MockNotesService)
	app := newTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/notes?limit=abc", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearch_RequiresQuery(t *testing.T) {
	service := new(MockNotesService)
	app := newTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/search", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearch_PassesFilters(t *testing.T) {
	service := new(MockNotesService)
	service.On("SearchNotes", mock.Anything, "kickoff", search.Filters{
		Tag:  "work",
		From: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}, 5, 0).Return(&dto.SearchResponse{Query: "kickoff"}, nil)
	app := newTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet,
		"/api/v1/search?q=kickoff&tag=work&from=2026-01-01&limit=5", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	service.AssertExpectations(t)
}

func TestSearch_SyntaxErrorReturnsBadRequest(t *testing.T) {
	service := new(MockNotesService)
	service.On("SearchNotes", mock.Anything, "alpha AND", search.Filters{}, 0, 0).
		Return(nil, &search.SyntaxError{Pos: 7, Token: "AND", Reason: "operator requires an operand"})
	app := newTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/search?q=alpha+AND", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "position 7")
}

func TestSearch_RejectsBadDate(t *testing.T) {
	service := new(MockNotesService)
	app := newTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet,
		"/api/v1/search?q=kickoff&from=january", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateNote_Created(t *testing.T) {
	service := new(MockNotesService)
	service.On("CreateNote", mock.Anything, &dto.CreateNoteRequest{
		Content: "hello",
		Tags:    []string{"work"},
	}).Return(&dto.NoteResponse{
		Note: &dto.Note{ID: "n1", Content: "hello", Version: 1},
	}, nil)
	app := newTestApp(service)

	payload, _ := json.Marshal(map[string]any{"content": "hello", "tags": []string{"work"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	service.AssertExpectations(t)
}

func TestCreateNote_EmptyContentRejected(t *testing.T) {
	service := new(MockNotesService)
	app := newTestApp(service)

	payload, _ := json.Marshal(map[string]any{"content": ""})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateNote_Conflict(t *testing.T) {
	service := new(MockNotesService)
	service.On("UpdateNote", mock.Anything, "n1", mock.Anything).
		Return(nil, entities.ErrRemoteConflict)
	app := newTestApp(service)

	payload, _ := json.Marshal(map[string]any{"content": "rewrite", "expected_version": 1})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/notes/n1", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUpdateNote_PatchRoute(t *testing.T) {
	service := new(MockNotesService)
	service.On("UpdateNote", mock.Anything, "n1", mock.Anything).
		Return(&dto.NoteResponse{Note: &dto.Note{ID: "n1", Content: "patched", Version: 2}}, nil)
	app := newTestApp(service)

	payload, _ := json.Marshal(map[string]any{"content": "patched", "expected_version": 1})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notes/n1", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	service.AssertExpectations(t)
}

func TestDeleteNote_TransientFailureMapsToBadGateway(t *testing.T) {
	service := new(MockNotesService)
	service.On("DeleteNote", mock.Anything, "n1").
		Return(entities.Transient(assert.AnError))
	app := newTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/notes/n1", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestHealth_OK(t *testing.T) {
	service := new(MockNotesService)
	service.On("Health", mock.Anything).Return(entities.Health{
		State:       entities.SyncSteady,
		NotesCached: 3,
		Cursor:      "c9",
		MarkerAge:   30 * time.Second,
	})
	app := newTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body dto.HealthResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "steady", body.State)
	assert.Equal(t, 3, body.NotesCached)
	assert.InDelta(t, 30.0, body.MarkerAgeSeconds, 0.001)
}

func TestUnknownRoute(t *testing.T) {
	service := new(MockNotesService)
	app := newTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
