// Package simplenote реализует клиент удаленного хранилища заметок
// поверх HTTP API в стиле Simplenote.
package simplenote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"notemirror/internal/mirror/config"
	"notemirror/internal/mirror/domain/entities"
	"notemirror/internal/mirror/ports/remote"
)

// Константы для сообщений об ошибках.
const (
	ErrMsgBuildRequest   = "failed to build request"
	ErrMsgDoRequest      = "request failed"
	ErrMsgDecodeBody     = "failed to decode response"
	ErrMsgUnexpectedCode = "unexpected status code"
)

// wireNote - представление заметки на проводе.
type wireNote struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Version    int64     `json:"version"`
	Deleted    bool      `json:"deleted"`
}

type indexResponse struct {
	Notes  []wireNote `json:"notes"`
	Cursor string     `json:"cursor"`
}

type writeRequest struct {
	Content         string   `json:"content"`
	Tags            []string `json:"tags"`
	ExpectedVersion int64    `json:"expected_version,omitempty"`
}

// Client ходит в HTTP API удаленного хранилища. Сетевые ошибки и ответы
// 5xx помечаются как временные, 409 - как конфликт версии.
type Client struct {
	base     *url.URL
	http     *http.Client
	email    string
	password string
}

var _ remote.Client = (*Client)(nil)

// New создает клиент по настройкам удаленного хранилища.
func New(cfg config.RemoteConfig) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}

	return &Client{
		base:     base,
		http:     &http.Client{Timeout: cfg.RequestTimeout},
		email:    cfg.Email,
		password: cfg.Password,
	}, nil
}

// FetchAll возвращает полный индекс живых заметок.
func (c *Client) FetchAll(ctx context.Context) ([]*entities.Note, string, error) {
	var index indexResponse
	if err := c.call(ctx, http.MethodGet, "/api/notes", nil, nil, &index); err != nil {
		return nil, "", err
	}

	notes := make([]*entities.Note, 0, len(index.Notes))
	for _, wn := range index.Notes {
		if wn.Deleted {
			continue
		}
		notes = append(notes, toEntity(wn))
	}
	return notes, index.Cursor, nil
}

// FetchChangesSince возвращает изменения после курсора.
// Отказ сервера принять курсор (HTTP 400) превращается в ErrCursorInvalid.
func (c *Client) FetchChangesSince(ctx context.Context, cursor string) ([]entities.Delta, string, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("since", cursor)
	}

	var index indexResponse
	if err := c.call(ctx, http.MethodGet, "/api/notes", query, nil, &index); err != nil {
		return nil, "", err
	}

	deltas := make([]entities.Delta, 0, len(index.Notes))
	for _, wn := range index.Notes {
		delta := entities.Delta{
			ID:      wn.ID,
			Version: wn.Version,
			Deleted: wn.Deleted,
			When:    wn.ModifiedAt,
		}
		if !wn.Deleted {
			delta.Note = toEntity(wn)
		}
		deltas = append(deltas, delta)
	}
	return deltas, index.Cursor, nil
}

// Create создает заметку.
func (c *Client) Create(ctx context.Context, content string, tags []string) (*entities.Note, error) {
	var wn wireNote
	body := writeRequest{Content: content, Tags: tags}
	if err := c.call(ctx, http.MethodPost, "/api/notes", nil, &body, &wn); err != nil {
		return nil, err
	}
	return toEntity(wn), nil
}

// Update обновляет заметку при совпадении ожидаемой версии.
func (c *Client) Update(ctx context.Context, id, content string, tags []string, expectedVersion int64) (*entities.Note, error) {
	var wn wireNote
	body := writeRequest{Content: content, Tags: tags, ExpectedVersion: expectedVersion}
	if err := c.call(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(id), nil, &body, &wn); err != nil {
		return nil, err
	}
	return toEntity(wn), nil
}

// Trash перемещает заметку в корзину.
func (c *Client) Trash(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil, nil, nil)
}

// call выполняет один HTTP запрос с авторизацией и маппингом статусов
// в доменные ошибки.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := *c.base
	target.Path = path
	if query != nil {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: %w", ErrMsgBuildRequest, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgBuildRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.email != "" {
		req.SetBasicAuth(c.email, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return entities.Transient(fmt.Errorf("%s: %w", ErrMsgDoRequest, err))
	}
	defer resp.Body.Close()

	if err := c.mapStatus(resp.StatusCode, method, path); err != nil {
		return err
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgDecodeBody, err)
	}
	return nil
}

// mapStatus превращает HTTP статус в доменную ошибку.
func (c *Client) mapStatus(code int, method, path string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, entities.ErrNotFound)
	case code == http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, path, entities.ErrRemoteConflict)
	case code == http.StatusBadRequest && method == http.MethodGet:
		return fmt.Errorf("%s %s: %w", method, path, entities.ErrCursorInvalid)
	case code >= 500 || code == http.StatusTooManyRequests:
		return entities.Transient(fmt.Errorf("%s: %s %s returned %s",
			ErrMsgUnexpectedCode, method, path, strconv.Itoa(code)))
	default:
		return fmt.Errorf("%s: %s %s returned %d", ErrMsgUnexpectedCode, method, path, code)
	}
}

func toEntity(wn wireNote) *entities.Note {
	return &entities.Note{
		ID:         wn.ID,
		Content:    wn.Content,
		Tags:       wn.Tags,
		CreatedAt:  wn.CreatedAt,
		ModifiedAt: wn.ModifiedAt,
		Version:    wn.Version,
		Deleted:    wn.Deleted,
	}
}
