package handlers

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/novelshelf/backend/internal/models"
	"github.com/novelshelf/backend/internal/repository"
	"github.com/novelshelf/backend/internal/searchutil"
)

type shelfItemRequest struct {
	SourceKey       string  `json:"sourceKey"`
	NovelPath       string  `json:"novelPath"`
	Title           string  `json:"title"`
	Status          string  `json:"status"`
	CoverURL        string  `json:"coverUrl"`
	LastReadChapter *string `json:"lastReadChapter"`
}

type ShelfHandler struct {
	repo *repository.ShelfRepository
}

func NewShelfHandler(db *sql.DB) *ShelfHandler {
	return &ShelfHandler{repo: repository.NewShelfRepository(db)}
}

func (h *ShelfHandler) Create(c *fiber.Ctx) error {
	var req shelfItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}

	item, err := validateAndBuildShelfItem(req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	created, err := h.repo.Create(item)
	if err != nil {
		if isUniqueViolation(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "novel already on shelf"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to create shelf item"})
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *ShelfHandler) List(c *fiber.Ctx) error {
	items, err := h.repo.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to list shelf items"})
	}

	if query := searchutil.Normalize(c.Query("q")); query != "" {
		tokens := searchutil.TokenizeNormalized(query)
		filtered := make([]models.ShelfItem, 0, len(items))
		for _, item := range items {
			if searchutil.MatchesQuery(item.Title, query, tokens) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	return c.JSON(fiber.Map{"items": items})
}

func (h *ShelfHandler) GetByID(c *fiber.Ctx) error {
	id, err := parseShelfID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	item, err := h.repo.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to get shelf item"})
	}
	if item == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "shelf item not found"})
	}

	return c.JSON(item)
}

func (h *ShelfHandler) Update(c *fiber.Ctx) error {
	id, err := parseShelfID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	var req shelfItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}

	item, err := validateAndBuildShelfItem(req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	item.ID = id

	updated, err := h.repo.Update(item)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to update shelf item"})
	}
	if updated == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "shelf item not found"})
	}

	return c.JSON(updated)
}

func (h *ShelfHandler) Delete(c *fiber.Ctx) error {
	id, err := parseShelfID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	deleted, err := h.repo.Delete(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to delete shelf item"})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "shelf item not found"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func parseShelfID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid shelf item id")
	}
	return id, nil
}

func validateAndBuildShelfItem(req shelfItemRequest) (*models.ShelfItem, error) {
	sourceKey := strings.TrimSpace(req.SourceKey)
	if sourceKey == "" {
		return nil, fmt.Errorf("sourceKey is required")
	}
	novelPath := strings.TrimSpace(req.NovelPath)
	if novelPath == "" {
		return nil, fmt.Errorf("novelPath is required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = "Ongoing"
	}
	if status != "Ongoing" && status != "Completed" {
		return nil, fmt.Errorf("status must be Ongoing or Completed")
	}

	return &models.ShelfItem{
		SourceKey:       sourceKey,
		NovelPath:       novelPath,
		Title:           title,
		Status:          status,
		CoverURL:        strings.TrimSpace(req.CoverURL),
		LastReadChapter: req.LastReadChapter,
	}, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
