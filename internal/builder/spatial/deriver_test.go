package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan3d/internal/builder/models"
)

func findRels(rels []models.SpatialRelationship, predicate string) []models.SpatialRelationship {
	var out []models.SpatialRelationship
	for _, r := range rels {
		if r.Predicate == predicate {
			out = append(out, r)
		}
	}
	return out
}

func TestDeriveOn(t *testing.T) {
	entities := []Entity{
		{ID: "a", BBox: models.Rect{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}},
		{ID: "b", BBox: models.Rect{MinX: 40, MinY: 40, MaxX: 140, MaxY: 140}},
	}

	rels := Derive(entities, DefaultProfile())
	on := findRels(rels, models.PredOn)
	require.Len(t, on, 1)
	assert.InDelta(t, 0.36, on[0].Metric, 1e-9)

	// пара уже ON — NEAR не записывается
	assert.Empty(t, findRels(rels, models.PredNear))
}

func TestDeriveNear(t *testing.T) {
	entities := []Entity{
		{ID: "a", BBox: models.Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}},
		{ID: "b", BBox: models.Rect{MinX: 30, MinY: 0, MaxX: 40, MaxY: 10}},
	}

	rels := Derive(entities, DefaultProfile())
	near := findRels(rels, models.PredNear)
	require.Len(t, near, 1)
	assert.InDelta(t, 30, near[0].Metric, 1e-9)
	assert.Empty(t, findRels(rels, models.PredOn))
}

func TestDeriveInDirectional(t *testing.T) {
	// центр a проецируется в пролет длинной оси b, но не наоборот
	entities := []Entity{
		{ID: "a", BBox: models.Rect{MinX: 90, MinY: 200, MaxX: 110, MaxY: 220}},
		{ID: "b", BBox: models.Rect{MinX: 0, MinY: 0, MaxX: 400, MaxY: 20}},
	}

	profile := DefaultProfile()
	profile.NearDistance = 0 // изолируем IN
	profile.AlignTolerance = 0

	rels := Derive(entities, profile)
	in := findRels(rels, models.PredIn)
	require.Len(t, in, 1)
	assert.Equal(t, "a", in[0].Subject)
	assert.Equal(t, "b", in[0].Object)
}

func TestDeriveAligned(t *testing.T) {
	profile := DefaultProfile()
	profile.NearDistance = 0

	entities := []Entity{
		{ID: "a", BBox: models.Rect{MinX: 0, MinY: 0, MaxX: 20, MaxY: 20}, Elevation: 100},
		{ID: "b", BBox: models.Rect{MinX: 200, MinY: 2, MaxX: 220, MaxY: 22}, Elevation: 110},
		{ID: "c", BBox: models.Rect{MinX: 0, MinY: 300, MaxX: 20, MaxY: 320}, Elevation: 400},
	}

	rels := Derive(entities, profile)

	h := findRels(rels, models.PredAlignedH)
	require.Len(t, h, 1)
	assert.Equal(t, "a", h[0].Subject)
	assert.Equal(t, "b", h[0].Object)

	// a и c выровнены по вертикали, но в разных полосах высот
	assert.Empty(t, findRels(rels, models.PredAlignedV))
}

func TestDeriveAlignedSharedParent(t *testing.T) {
	profile := DefaultProfile()
	profile.NearDistance = 0

	entities := []Entity{
		{ID: "a", BBox: models.Rect{MinX: 0, MinY: 0, MaxX: 20, MaxY: 20}, Parent: "w1", Elevation: 0},
		{ID: "b", BBox: models.Rect{MinX: 5, MinY: 500, MaxX: 25, MaxY: 520}, Parent: "w1", Elevation: 999},
	}

	rels := Derive(entities, profile)
	// общая родительская стена заменяет полосу высот
	assert.Len(t, findRels(rels, models.PredAlignedV), 1)
}
