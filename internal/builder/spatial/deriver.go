package spatial

import (
	"math"

	"plan3d/internal/builder/models"
)

// ============================================================
// Tolerance profile
// ============================================================

type Profile struct {
	OverlapThreshold float64 // доля пересечения площадей для ON
	NearDistance     float64 // порог расстояния центроидов для NEAR
	InTolerance      float64 // допуск проекции для IN
	AlignTolerance   float64 // совпадение центров для ALIGNED_*
	ElevationBand    float64 // ширина полосы высот для ALIGNED_*
}

func DefaultProfile() Profile {
	return Profile{
		OverlapThreshold: 0.3,
		NearDistance:     80,
		InTolerance:      5,
		AlignTolerance:   10,
		ElevationBand:    20,
	}
}

// ============================================================
// Entities
// ============================================================

// Entity — участник пространственных отношений: стена или размещенный объект.
type Entity struct {
	ID        string
	BBox      models.Rect
	Parent    string // id родительской стены, если известна
	Elevation float64
}

func WallEntity(w models.SemanticWall) Entity {
	return Entity{ID: w.ID, BBox: w.BBox}
}

// ============================================================
// Deriver
// ============================================================

// Derive вычисляет плоскую таблицу фактов по каждой паре сущностей
// независимо. Выводов из других фактов нет, замыкание не строится.
// Симметричные предикаты (ON, NEAR, ALIGNED_*) записываются один раз на пару,
// IN — направленный, проверяется в обе стороны.
func Derive(entities []Entity, profile Profile) []models.SpatialRelationship {
	var rels []models.SpatialRelationship

	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			a, b := entities[i], entities[j]

			on := false
			if metric, ok := overlapRatio(a.BBox, b.BBox); ok && metric >= profile.OverlapThreshold {
				rels = append(rels, models.SpatialRelationship{
					Subject: a.ID, Predicate: models.PredOn, Object: b.ID, Metric: metric,
				})
				on = true
			}

			if metric, ok := within(a, b, profile.InTolerance); ok {
				rels = append(rels, models.SpatialRelationship{
					Subject: a.ID, Predicate: models.PredIn, Object: b.ID, Metric: metric,
				})
			}
			if metric, ok := within(b, a, profile.InTolerance); ok {
				rels = append(rels, models.SpatialRelationship{
					Subject: b.ID, Predicate: models.PredIn, Object: a.ID, Metric: metric,
				})
			}

			// NEAR только если пара еще не ON
			if !on {
				if dist := centroidDistance(a.BBox, b.BBox); dist < profile.NearDistance {
					rels = append(rels, models.SpatialRelationship{
						Subject: a.ID, Predicate: models.PredNear, Object: b.ID, Metric: dist,
					})
				}
			}

			if sameBand(a, b, profile.ElevationBand) {
				ca, cb := a.BBox.Center(), b.BBox.Center()
				if d := math.Abs(ca.Y - cb.Y); d <= profile.AlignTolerance {
					rels = append(rels, models.SpatialRelationship{
						Subject: a.ID, Predicate: models.PredAlignedH, Object: b.ID, Metric: d,
					})
				}
				if d := math.Abs(ca.X - cb.X); d <= profile.AlignTolerance {
					rels = append(rels, models.SpatialRelationship{
						Subject: a.ID, Predicate: models.PredAlignedV, Object: b.ID, Metric: d,
					})
				}
			}
		}
	}

	return rels
}

// ============================================================
// Predicates
// ============================================================

// overlapRatio — площадь пересечения к меньшей из площадей.
func overlapRatio(a, b models.Rect) (float64, bool) {
	inter := a.IntersectArea(b)
	if inter <= 0 {
		return 0, false
	}
	smaller := math.Min(a.Area(), b.Area())
	if smaller <= 0 {
		return 0, false
	}
	return inter / smaller, true
}

// within — центр subject проецируется внутрь пролета главной оси object
// (включительно, с допуском). Метрика — позиция проекции от начала пролета.
func within(subject, object Entity, tol float64) (float64, bool) {
	c := subject.BBox.Center()

	var proj, lo, hi float64
	if object.BBox.Width() >= object.BBox.Height() {
		proj, lo, hi = c.X, object.BBox.MinX, object.BBox.MaxX
	} else {
		proj, lo, hi = c.Y, object.BBox.MinY, object.BBox.MaxY
	}

	if proj < lo-tol || proj > hi+tol {
		return 0, false
	}
	return proj - lo, true
}

func centroidDistance(a, b models.Rect) float64 {
	ca, cb := a.Center(), b.Center()
	dx := ca.X - cb.X
	dy := ca.Y - cb.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// sameBand — общая родительская стена или одна полоса высот.
func sameBand(a, b Entity, band float64) bool {
	if a.Parent != "" && a.Parent == b.Parent {
		return true
	}
	return math.Abs(a.Elevation-b.Elevation) <= band
}
