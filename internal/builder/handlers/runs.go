package handlers

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v3"

	"plan3d/internal/builder/models"
)

// ============================================================
// Ingest & runs
// ============================================================

// UploadPrimitives принимает линии и надписи документа от фронтенда извлечения.
func (h *Handler) UploadPrimitives(c fiber.Ctx) error {
	docID := c.Params("doc")

	var body struct {
		Lines []models.LinePrimitive `json:"lines"`
		Text  []models.TextPrimitive `json:"text"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}

	ctx := context.Background()
	for _, l := range body.Lines {
		l.DocID = docID
		if _, err := h.repo.AddLine(ctx, l); err != nil {
			return fail(c, err)
		}
	}
	for _, t := range body.Text {
		t.DocID = docID
		if _, err := h.repo.AddText(ctx, t); err != nil {
			return fail(c, err)
		}
	}

	log.Printf("[BUILDER] doc %s: %d lines, %d text primitives", docID, len(body.Lines), len(body.Text))
	return c.JSON(fiber.Map{"lines": len(body.Lines), "text": len(body.Text)})
}

// UploadCalibration обновляет факты калибровки документа (upsert по ключу).
func (h *Handler) UploadCalibration(c fiber.Ctx) error {
	docID := c.Params("doc")

	var facts []models.CalibrationFact
	if err := json.Unmarshal(c.Body(), &facts); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}

	ctx := context.Background()
	for _, f := range facts {
		if err := h.repo.UpsertCalibration(ctx, docID, f); err != nil {
			return fail(c, err)
		}
	}
	return c.JSON(fiber.Map{"facts": len(facts)})
}

// StartRun запускает полный прогон документа.
func (h *Handler) StartRun(c fiber.Ctx) error {
	docID := c.Params("doc")

	summary, err := h.pipe.Run(context.Background(), docID)
	if err != nil {
		log.Printf("[BUILDER] run for doc %s failed: %v", docID, err)
		return fail(c, err)
	}
	return c.JSON(summary)
}

// RunWalls возвращает семантические стены прогона.
func (h *Handler) RunWalls(c fiber.Ctx) error {
	walls, err := h.repo.WallsByRun(context.Background(), c.Params("run"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(walls)
}

// RunRelationships — таблица фактов прогона; ?of=&predicate= сужает выборку,
// симметричные предикаты отвечают в обе стороны.
func (h *Handler) RunRelationships(c fiber.Ctx) error {
	runID := c.Params("run")

	if of := c.Query("of"); of != "" {
		rels, err := h.repo.RelationsOf(context.Background(), runID, of, c.Query("predicate"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(rels)
	}

	rels, err := h.repo.RelationshipsByRun(context.Background(), runID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(rels)
}

// RunObjects — размещенные экземпляры прогона для хоста визуализации.
func (h *Handler) RunObjects(c fiber.Ctx) error {
	objects, err := h.repo.PlacedByRun(context.Background(), c.Params("run"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(objects)
}
