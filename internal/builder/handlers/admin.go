package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Admin: repair & audit
// ============================================================

// RepairNormals досчитывает отсутствующие нормали по всем blob.
func (h *Handler) RepairNormals(c fiber.Ctx) error {
	report, err := h.cat.RecomputeNormals(context.Background())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(report)
}

// RepairCounts чинит устаревшие счетчики; необъяснимые расхождения
// помечаются для ручного переизвлечения.
func (h *Handler) RepairCounts(c fiber.Ctx) error {
	report, err := h.cat.RepairCounts(context.Background())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(report)
}

// AuditCentering центрирует библиотечные blob, отклонившиеся от начала
// координат. ?tol= задает допуск.
func (h *Handler) AuditCentering(c fiber.Ctx) error {
	tol := 0.5
	if raw := c.Query("tol"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			tol = v
		}
	}

	report, err := h.cat.AuditCentering(context.Background(), tol)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(report)
}
