package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v3"

	"plan3d/internal/builder/geometry"
	"plan3d/internal/builder/models"
)

// ============================================================
// Catalog & geometry
// ============================================================

// ListCatalog — все записи каталога.
func (h *Handler) ListCatalog(c fiber.Ctx) error {
	entries, err := h.repo.Entries(context.Background())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(entries)
}

// GetCatalogEntry — запись каталога по типу объекта.
func (h *Handler) GetCatalogEntry(c fiber.Ctx) error {
	entry, err := h.repo.EntryByType(context.Background(), c.Params("type"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(entry)
}

// RegisterEntry добавляет запись каталога. ?replace=true разрешает замену,
// иначе занятый тип — 409.
func (h *Handler) RegisterEntry(c fiber.Ctx) error {
	var entry models.CatalogEntry
	if err := json.Unmarshal(c.Body(), &entry); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}

	replace := c.Query("replace") == "true"
	if err := h.cat.Register(context.Background(), entry, replace); err != nil {
		return fail(c, err)
	}
	return c.JSON(entry)
}

// CloneVariant создает вариант детализации: метаданные и ссылка на blob
// копируются, байты геометрии не дублируются.
func (h *Handler) CloneVariant(c fiber.Ctx) error {
	newType := c.Query("new")
	if newType == "" {
		return c.Status(400).JSON(fiber.Map{"error": "query param 'new' required"})
	}

	cloned, err := h.cat.CloneAsVariant(context.Background(), c.Params("type"), newType)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"cloned": cloned, "source": c.Params("type"), "new": newType})
}

// GetGeometry отдает геометрию по хэшу содержимого в развернутом виде.
// Вершины отдаются как есть: хост рендерит их без трансформаций.
func (h *Handler) GetGeometry(c fiber.Ctx) error {
	blob, err := h.cat.Blob(context.Background(), c.Params("hash"))
	if err != nil {
		return fail(c, err)
	}

	m, err := geometry.MeshFromBlob(blob)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"hash":         blob.Hash,
		"vertex_count": blob.VertexCount,
		"face_count":   blob.FaceCount,
		"vertices":     m.Vertices,
		"faces":        m.Faces,
		"normals":      m.Normals,
	})
}
