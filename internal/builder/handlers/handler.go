package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"plan3d/internal/builder/catalog"
	"plan3d/internal/builder/models"
	"plan3d/internal/builder/pipeline"
	"plan3d/internal/builder/store"
)

// ============================================================
// Builder Handler
// ============================================================

type Handler struct {
	repo *store.Repository
	cat  *catalog.Catalog
	pipe *pipeline.Pipeline
}

func NewHandler(repo *store.Repository, cat *catalog.Catalog, pipe *pipeline.Pipeline) *Handler {
	return &Handler{repo: repo, cat: cat, pipe: pipe}
}

// fail переводит ошибку доменной таксономии в HTTP-статус.
func fail(c fiber.Ctx, err error) error {
	status := 500
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = 404
	case errors.Is(err, models.ErrDuplicateKey):
		status = 409
	case errors.Is(err, models.ErrMissingInput):
		status = 422
	case errors.Is(err, models.ErrUnsupportedShape), errors.Is(err, models.ErrCorruption):
		status = 400
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
