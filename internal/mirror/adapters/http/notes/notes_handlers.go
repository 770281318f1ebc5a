// Package notes содержит HTTP обработчики для работы с кэшем заметок.
package notes

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"notemirror/internal/mirror/app/dto"
	"notemirror/internal/mirror/domain/entities"
	"notemirror/internal/mirror/ports/services"
	"notemirror/internal/mirror/search"
	"notemirror/pkg/logger"
)

// Константы для логирования.
const (
	LogHandlerGetNote    = "notes handler: get note"
	LogHandlerListNotes  = "notes handler: list notes"
	LogHandlerSearch     = "notes handler: search"
	LogHandlerCreateNote = "notes handler: create note"
	LogHandlerUpdateNote = "notes handler: update note"
	LogHandlerDeleteNote = "notes handler: delete note"
	LogHandlerListTags   = "notes handler: list tags"
	LogHandlerHealth     = "notes handler: health"

	ErrorInvalidRequest       = "invalid request"
	ErrorFailedToServeRequest = "failed to serve request"
)

// Handler содержит HTTP обработчики для заметок.
type Handler struct {
	notesService services.NotesService
}

// NewHandler создает новый экземпляр обработчика заметок.
func NewHandler(notesService services.NotesService) *Handler {
	return &Handler{
		notesService: notesService,
	}
}

// GetNote обрабатывает запрос на получение заметки по идентификатору.
func (h *Handler) GetNote(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Debug(requestCtx, LogHandlerGetNote)

	response, err := h.notesService.GetNote(requestCtx, ctx.Params("id"))
	if err != nil {
		return h.serveError(ctx, "getting note", err)
	}

	if err := ctx.Status(http.StatusOK).JSON(response); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// ListNotes обрабатывает запрос на постраничный список заметок.
func (h *Handler) ListNotes(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Debug(requestCtx, LogHandlerListNotes)

	limit, offset, err := pageParams(ctx)
	if err != nil {
		return sendError(ctx, http.StatusBadRequest, err.Error())
	}

	response, err := h.notesService.ListNotes(requestCtx, ctx.Query("tag"), limit, offset)
	if err != nil {
		return h.serveError(ctx, "listing notes", err)
	}

	if err := ctx.Status(http.StatusOK).JSON(response); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// Search обрабатывает поисковый запрос над кэшем.
func (h *Handler) Search(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Debug(requestCtx, LogHandlerSearch)

	query := ctx.Query("q")
	if query == "" {
		return sendError(ctx, http.StatusBadRequest, "query parameter q is required")
	}

	limit, offset, err := pageParams(ctx)
	if err != nil {
		return sendError(ctx, http.StatusBadRequest, err.Error())
	}

	filters, err := searchFilters(ctx)
	if err != nil {
		return sendError(ctx, http.StatusBadRequest, err.Error())
	}

	response, err := h.notesService.SearchNotes(requestCtx, query, filters, limit, offset)
	if err != nil {
		var syntaxErr *search.SyntaxError
		if errors.As(err, &syntaxErr) {
			return sendError(ctx, http.StatusBadRequest, syntaxErr.Error())
		}
		return h.serveError(ctx, "searching notes", err)
	}

	if err := ctx.Status(http.StatusOK).JSON(response); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// CreateNote обрабатывает запрос на создание заметки.
func (h *Handler) CreateNote(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Info(requestCtx, LogHandlerCreateNote)

	var req dto.CreateNoteRequest
	if err := ctx.Bind().JSON(&req); err != nil {
		log.Error(requestCtx, ErrorInvalidRequest, zap.Error(err))
		return sendError(ctx, http.StatusBadRequest, ErrorInvalidRequest)
	}

	if req.Content == "" {
		return sendError(ctx, http.StatusBadRequest, "content is required")
	}

	response, err := h.notesService.CreateNote(requestCtx, &req)
	if err != nil {
		return h.serveError(ctx, "creating note", err)
	}

	if err := ctx.Status(http.StatusCreated).JSON(response); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// UpdateNote обрабатывает запрос на обновление заметки.
func (h *Handler) UpdateNote(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Info(requestCtx, LogHandlerUpdateNote)

	var req dto.UpdateNoteRequest
	if err := ctx.Bind().JSON(&req); err != nil {
		log.Error(requestCtx, ErrorInvalidRequest, zap.Error(err))
		return sendError(ctx, http.StatusBadRequest, ErrorInvalidRequest)
	}

	if req.Content == "" {
		return sendError(ctx, http.StatusBadRequest, "content is required")
	}

	response, err := h.notesService.UpdateNote(requestCtx, ctx.Params("id"), &req)
	if err != nil {
		return h.serveError(ctx, "updating note", err)
	}

	if err := ctx.Status(http.StatusOK).JSON(response); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// DeleteNote обрабатывает запрос на удаление заметки.
func (h *Handler) DeleteNote(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Info(requestCtx, LogHandlerDeleteNote)

	if err := h.notesService.DeleteNote(requestCtx, ctx.Params("id")); err != nil {
		return h.serveError(ctx, "deleting note", err)
	}

	if err := ctx.Status(http.StatusOK).JSON(fiber.Map{
		"message": "note deleted",
	}); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// ListTags обрабатывает запрос на список тегов.
func (h *Handler) ListTags(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Debug(requestCtx, LogHandlerListTags)

	response, err := h.notesService.ListTags(requestCtx)
	if err != nil {
		return h.serveError(ctx, "listing tags", err)
	}

	if err := ctx.Status(http.StatusOK).JSON(response); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// Health обрабатывает запрос на состояние синхронизации и кэша.
func (h *Handler) Health(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Debug(requestCtx, LogHandlerHealth)

	health := h.notesService.Health(requestCtx)

	if err := ctx.Status(http.StatusOK).JSON(dto.HealthFromEntity(health)); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// serveError переводит доменные ошибки в HTTP статусы.
func (h *Handler) serveError(ctx fiber.Ctx, op string, err error) error {
	requestCtx := ctx.Context()
	logger.Log(requestCtx).Error(requestCtx, ErrorFailedToServeRequest, zap.Error(err))

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entities.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entities.ErrRemoteConflict):
		status = http.StatusConflict
	case entities.IsTransient(err):
		status = http.StatusBadGateway
	}

	if sendErr := ctx.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	}); sendErr != nil {
		return fmt.Errorf("%s: sending error response: %w", op, sendErr)
	}
	return nil
}

// sendError отправляет клиенту JSON с сообщением об ошибке и статусом.
func sendError(ctx fiber.Ctx, status int, message string) error {
	if err := ctx.Status(status).JSON(fiber.Map{
		"error": message,
	}); err != nil {
		return fmt.Errorf("sending error response: %w", err)
	}
	return nil
}

// pageParams извлекает параметры пагинации из строки запроса.
func pageParams(ctx fiber.Ctx) (int, int, error) {
	limit, err := strconv.Atoi(ctx.Query("limit", "0"))
	if err != nil || limit < 0 {
		return 0, 0, errors.New("limit must be a non-negative integer")
	}
	offset, err := strconv.Atoi(ctx.Query("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, errors.New("offset must be a non-negative integer")
	}
	return limit, offset, nil
}

// searchFilters извлекает необязательные фильтры поиска из строки запроса.
func searchFilters(ctx fiber.Ctx) (search.Filters, error) {
	filters := search.Filters{Tag: ctx.Query("tag")}

	if raw := ctx.Query("from"); raw != "" {
		from, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return search.Filters{}, errors.New("from must be a date in YYYY-MM-DD format")
		}
		filters.From = from
	}
	if raw := ctx.Query("to"); raw != "" {
		to, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return search.Filters{}, errors.New("to must be a date in YYYY-MM-DD format")
		}
		filters.To = to
	}

	return filters, nil
}
