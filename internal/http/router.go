package http

import (
	"database/sql"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/novelshelf/backend/internal/config"
	"github.com/novelshelf/backend/internal/http/handlers"
	"github.com/novelshelf/backend/internal/sources"
	"github.com/novelshelf/backend/internal/sources/defaults"
)

func NewServer(cfg config.Config, db *sql.DB) *fiber.App {
	return NewServerWithRegistry(cfg, db, nil)
}

func NewServerWithRegistry(cfg config.Config, db *sql.DB, registry *sources.Registry) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(recover.New())

	if registry == nil {
		loadedRegistry, err := defaults.NewRegistry(cfg.YAMLSourcesPath)
		if err != nil {
			slog.Warn("yaml sources loaded with warnings", "error", err)
		}
		registry = loadedRegistry
	}

	health := handlers.NewHealthHandler(db)
	sourceHandlers := handlers.NewSourcesHandler(registry)
	shelf := handlers.NewShelfHandler(db)

	app.Get("/health", health.Check)
	app.Get("/v1/health", health.Check)

	v1 := app.Group("/v1")
	v1.Get("/sources", sourceHandlers.List)
	v1.Get("/sources/health", sourceHandlers.Health)
	v1.Get("/sources/:key/popular", sourceHandlers.Popular)
	v1.Get("/sources/:key/search", sourceHandlers.Search)
	v1.Get("/sources/:key/novel", sourceHandlers.Novel)
	v1.Get("/sources/:key/chapters", sourceHandlers.Chapters)
	v1.Get("/sources/:key/content", sourceHandlers.Content)
	v1.Post("/shelf", shelf.Create)
	v1.Get("/shelf", shelf.List)
	v1.Get("/shelf/:id", shelf.GetByID)
	v1.Put("/shelf/:id", shelf.Update)
	v1.Delete("/shelf/:id", shelf.Delete)

	return app
}
