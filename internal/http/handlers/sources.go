package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/novelshelf/backend/internal/sources"
)

const extractionTimeout = 20 * time.Second

type SourcesHandler struct {
	registry *sources.Registry
}

func NewSourcesHandler(registry *sources.Registry) *SourcesHandler {
	return &SourcesHandler{registry: registry}
}

func (h *SourcesHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"items": h.registry.List()})
}

func (h *SourcesHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()
	return c.JSON(fiber.Map{"items": h.registry.Health(ctx)})
}

func (h *SourcesHandler) Popular(c *fiber.Ctx) error {
	source, ok := h.lookup(c)
	if !ok {
		return sourceNotFound(c)
	}
	page, err := parsePage(c.Query("page", "1"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Context(), extractionTimeout)
	defer cancel()

	novels, err := source.ListPopular(ctx, page)
	if err != nil {
		return extractionError(c, err)
	}
	return c.JSON(fiber.Map{"items": novels})
}

func (h *SourcesHandler) Search(c *fiber.Ctx) error {
	source, ok := h.lookup(c)
	if !ok {
		return sourceNotFound(c)
	}
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "q is required"})
	}
	page, err := parsePage(c.Query("page", "1"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Context(), extractionTimeout)
	defer cancel()

	novels, err := source.Search(ctx, query, page)
	if err != nil {
		return extractionError(c, err)
	}
	return c.JSON(fiber.Map{"items": novels})
}

func (h *SourcesHandler) Novel(c *fiber.Ctx) error {
	source, ok := h.lookup(c)
	if !ok {
		return sourceNotFound(c)
	}
	novelPath, ok := requiredPath(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "path is required"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), extractionTimeout)
	defer cancel()

	detail, err := source.NovelDetail(ctx, novelPath)
	if err != nil {
		return extractionError(c, err)
	}
	return c.JSON(detail)
}

func (h *SourcesHandler) Chapters(c *fiber.Ctx) error {
	source, ok := h.lookup(c)
	if !ok {
		return sourceNotFound(c)
	}
	novelPath, ok := requiredPath(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "path is required"})
	}
	page, err := parsePage(c.Query("page", "1"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Context(), extractionTimeout)
	defer cancel()

	chapters, err := source.ChapterPage(ctx, novelPath, page)
	if err != nil {
		return extractionError(c, err)
	}
	return c.JSON(fiber.Map{"items": chapters})
}

func (h *SourcesHandler) Content(c *fiber.Ctx) error {
	source, ok := h.lookup(c)
	if !ok {
		return sourceNotFound(c)
	}
	chapterPath, ok := requiredPath(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "path is required"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), extractionTimeout)
	defer cancel()

	content, err := source.ChapterContent(ctx, chapterPath)
	if err != nil {
		return extractionError(c, err)
	}
	return c.JSON(fiber.Map{"content": content})
}

func (h *SourcesHandler) lookup(c *fiber.Ctx) (sources.Source, bool) {
	return h.registry.Get(c.Params("key"))
}

func sourceNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "unknown source"})
}

func requiredPath(c *fiber.Ctx) (string, bool) {
	novelPath := strings.TrimSpace(c.Query("path"))
	return novelPath, novelPath != ""
}

func parsePage(raw string) (int, error) {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "page must be a positive integer")
	}
	return page, nil
}

// extractionError maps source failures onto response codes: a page that no
// longer matches the expected markup reads as a 404, upstream trouble as 502.
func extractionError(c *fiber.Ctx, err error) error {
	switch {
	case sources.IsStructuralParse(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	case sources.IsIdentifierResolution(err):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": err.Error()})
	default:
		if _, ok := sources.AsUpstreamAPI(err); ok {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "extraction failed"})
	}
}
