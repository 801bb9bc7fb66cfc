package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"

	"plan3d/internal/builder/geometry"
	"plan3d/internal/builder/models"
)

// ============================================================
// Default library
// ============================================================

type seedSpec struct {
	entry models.CatalogEntry
	shape any
}

// defaultLibrary — базовые типы объектов. Библиотечные blob'ы центрированы
// в начале координат, размещение задается per-instance трансформацией.
func defaultLibrary() []seedSpec {
	return []seedSpec{
		{
			entry: models.CatalogEntry{
				ObjectType: "door", Class: models.ClassItem, Category: "opening",
				Width: 90, Depth: 15, Height: 210,
				Material: "wood", Description: "Распашная дверь",
			},
			shape: models.BoxShape{Width: 90, Depth: 15, Height: 210},
		},
		{
			entry: models.CatalogEntry{
				ObjectType: "window", Class: models.ClassItem, Category: "opening",
				Width: 120, Depth: 15, Height: 120,
				Material: "glass", Description: "Окно",
			},
			shape: models.BoxShape{Width: 120, Depth: 15, Height: 120},
		},
		{
			entry: models.CatalogEntry{
				ObjectType: "drain", Class: models.ClassItem, Category: "plumbing",
				Width: 16, Depth: 16, Height: 30,
				Material: "pvc", Description: "Слив",
			},
			shape: models.CylinderShape{Radius: 8, Height: 30, Segments: 12},
		},
		{
			entry: models.CatalogEntry{
				ObjectType: "column", Class: models.ClassItem, Category: "structure",
				Width: 30, Depth: 30, Height: 280,
				Material: "concrete", Description: "Колонна",
			},
			shape: models.CylinderShape{Radius: 15, Height: 280, Segments: 16},
		},
		{
			entry: models.CatalogEntry{
				ObjectType: "floor_slab", Class: models.ClassItem, Category: "slab",
				Width: 400, Depth: 400, Height: 20,
				Material: "concrete", Description: "Плита перекрытия",
			},
			shape: models.SlabShape{Width: 400, Depth: 400, Thickness: 20},
		},
		{
			entry: models.CatalogEntry{
				ObjectType: "roof_dome", Class: models.ClassItem, Category: "roof",
				Width: 300, Depth: 300, Height: 150,
				Material: "metal", Description: "Купол",
			},
			shape: models.DomeShape{Radius: 150, Segments: 16, Rings: 8},
		},
	}
}

// SeedDefaults наполняет каталог базовой библиотекой. Идемпотентно:
// существующие типы пропускаются.
func (c *Catalog) SeedDefaults(ctx context.Context) error {
	for _, s := range defaultLibrary() {
		m, err := geometry.Generate(models.ElementSpec{
			ID:         s.entry.ObjectType,
			ObjectType: s.entry.ObjectType,
			Shape:      s.shape,
		})
		if err != nil {
			return fmt.Errorf("seed %s: %w", s.entry.ObjectType, err)
		}

		// не все генераторы центрируют по Z (купол строится от основания),
		// конвенция class item требует нулевого центроида
		centroid := geometry.Centroid(m)
		geometry.Translate(m, models.Point3{X: -centroid.X, Y: -centroid.Y, Z: -centroid.Z})

		hash, err := c.InsertMesh(ctx, m)
		if err != nil {
			return fmt.Errorf("seed %s: %w", s.entry.ObjectType, err)
		}

		s.entry.GeomHash = hash
		if err := c.Register(ctx, s.entry, false); err != nil {
			if errors.Is(err, models.ErrDuplicateKey) {
				continue
			}
			return err
		}
		log.Printf("[CATALOG] seeded %s (%s)", s.entry.ObjectType, hash[:12])
	}
	return nil
}
