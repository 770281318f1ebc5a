// Package http содержит компоненты для HTTP сервера.
package http

import (
	"github.com/gofiber/fiber/v3"

	"notemirror/internal/mirror/adapters/http/middleware"
	"notemirror/internal/mirror/adapters/http/notes"
	"notemirror/internal/mirror/config"
	"notemirror/internal/mirror/ports/services"
)

// SetupRouter настраивает маршрутизацию для HTTP сервера.
func SetupRouter(app *fiber.App, notesService services.NotesService, authCfg config.AuthConfig) {
	notesHandler := notes.NewHandler(notesService)

	// Middleware для всех запросов.
	app.Use(middleware.NewLoggerMiddleware())
	app.Use(middleware.NewRecoveryMiddleware())

	// API версии 1.
	apiV1 := app.Group("/api/v1")

	// Публичные маршруты.
	apiV1.Get("/health", notesHandler.Health)

	// Маршруты заметок, при настроенном секрете - под проверкой токена.
	noteRoutes := apiV1.Group("/notes")
	searchRoutes := apiV1.Group("/search")
	tagRoutes := apiV1.Group("/tags")
	if authCfg.Enabled() {
		authMiddleware := middleware.NewAuthMiddleware(authCfg.JWTSecret)
		noteRoutes.Use(authMiddleware)
		searchRoutes.Use(authMiddleware)
		tagRoutes.Use(authMiddleware)
	}

	noteRoutes.Get("/", notesHandler.ListNotes)
	noteRoutes.Get("/:id", notesHandler.GetNote)
	noteRoutes.Post("/", notesHandler.CreateNote)
	noteRoutes.Put("/:id", notesHandler.UpdateNote)
	noteRoutes.Patch("/:id", notesHandler.UpdateNote)
	noteRoutes.Delete("/:id", notesHandler.DeleteNote)

	searchRoutes.Get("/", notesHandler.Search)
	tagRoutes.Get("/", notesHandler.ListTags)

	// Обработчик для несуществующих маршрутов.
	app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Route not found",
		})
	})
}
