package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan3d/internal/builder/models"
)

func TestGenerateBox(t *testing.T) {
	m, err := Generate(models.ElementSpec{
		ID:       "box-1",
		Position: models.Point3{X: 1, Y: 2, Z: 0},
		Shape:    models.BoxShape{Width: 2, Depth: 1, Height: 1},
	})
	require.NoError(t, err)

	assert.Len(t, m.Vertices, 8)
	assert.Len(t, m.Faces, 12)
	assert.Len(t, m.Normals, 36)

	min, max := Bounds(m)
	assert.InDelta(t, 0, min.X, 1e-9)
	assert.InDelta(t, 2, max.X, 1e-9)
	assert.InDelta(t, 1.5, min.Y, 1e-9)
	assert.InDelta(t, 2.5, max.Y, 1e-9)
	assert.InDelta(t, -0.5, min.Z, 1e-9)
	assert.InDelta(t, 0.5, max.Z, 1e-9)
}

func TestGenerateOrientedBox(t *testing.T) {
	// поворот на 90: ширина и глубина меняются местами
	m, err := Generate(models.ElementSpec{
		ID:       "obox-1",
		Position: models.Point3{},
		Shape:    models.OrientedBoxShape{Width: 4, Depth: 2, Height: 1, AngleDeg: 90},
	})
	require.NoError(t, err)

	min, max := Bounds(m)
	assert.InDelta(t, 2, max.X-min.X, 1e-9)
	assert.InDelta(t, 4, max.Y-min.Y, 1e-9)
}

func TestGenerateCylinder(t *testing.T) {
	m, err := Generate(models.ElementSpec{
		ID:       "cyl-1",
		Position: models.Point3{Z: 5},
		Shape:    models.CylinderShape{Radius: 2, Height: 10, Segments: 12},
	})
	require.NoError(t, err)

	assert.Len(t, m.Vertices, 2*12+2)
	assert.Len(t, m.Faces, 4*12)
	assert.Len(t, m.Normals, 3*len(m.Faces))

	min, max := Bounds(m)
	assert.InDelta(t, 0, min.Z, 1e-9)
	assert.InDelta(t, 10, max.Z, 1e-9)
}

func TestGenerateExtrusion(t *testing.T) {
	// порядок обхода контура не важен: по часовой тоже наружу
	m, err := Generate(models.ElementSpec{
		ID:       "ext-1",
		Position: models.Point3{},
		Shape: models.ExtrudedPolylineShape{
			Points: []models.Point{{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 0}},
			Height: 3,
		},
	})
	require.NoError(t, err)

	assert.Len(t, m.Vertices, 8)
	// 8 боковых + 2+2 крышки
	assert.Len(t, m.Faces, 12)

	min, max := Bounds(m)
	assert.InDelta(t, 3, max.Z-min.Z, 1e-9)

	// боковая нормаль смотрит наружу от контура
	for i, f := range m.Faces {
		n := m.Normals[i*3]
		center := models.Point3{
			X: (m.Vertices[f[0]].X + m.Vertices[f[1]].X + m.Vertices[f[2]].X) / 3,
			Y: (m.Vertices[f[0]].Y + m.Vertices[f[1]].Y + m.Vertices[f[2]].Y) / 3,
		}
		if n.Z != 0 {
			continue
		}
		outward := (center.X-2)*n.X + (center.Y-2)*n.Y
		assert.Greater(t, outward, 0.0, "face %d", i)
	}
}

func TestGenerateExtrusionAtPosition(t *testing.T) {
	// контур задан относительно позиции элемента
	m, err := Generate(models.ElementSpec{
		ID:       "ext-2",
		Position: models.Point3{X: 100, Y: -50, Z: 7},
		Shape: models.ExtrudedPolylineShape{
			Points: []models.Point{{X: -2, Y: -2}, {X: 2, Y: -2}, {X: 2, Y: 2}, {X: -2, Y: 2}},
			Height: 3,
		},
	})
	require.NoError(t, err)

	min, max := Bounds(m)
	assert.InDelta(t, 98, min.X, 1e-9)
	assert.InDelta(t, 102, max.X, 1e-9)
	assert.InDelta(t, -52, min.Y, 1e-9)
	assert.InDelta(t, -48, max.Y, 1e-9)
	assert.InDelta(t, 7, min.Z, 1e-9)
	assert.InDelta(t, 10, max.Z, 1e-9)
}

func TestGenerateDome(t *testing.T) {
	m, err := Generate(models.ElementSpec{
		ID:       "dome-1",
		Position: models.Point3{},
		Shape:    models.DomeShape{Radius: 5, Segments: 8, Rings: 4},
	})
	require.NoError(t, err)

	assert.Len(t, m.Vertices, 8*4+1)

	min, max := Bounds(m)
	assert.InDelta(t, 0, min.Z, 1e-9)
	assert.InDelta(t, 5, max.Z, 1e-9)

	// все вершины на сфере радиуса 5
	for _, v := range m.Vertices {
		r := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
		assert.InDelta(t, 5, r, 1e-9)
	}
}

func TestGenerateUnsupportedShape(t *testing.T) {
	_, err := Generate(models.ElementSpec{ID: "bad-1", Shape: "sphere"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnsupportedShape)
	assert.Contains(t, err.Error(), "bad-1")
}

func TestFaceNormal(t *testing.T) {
	n := FaceNormal(
		models.Point3{X: 0, Y: 0, Z: 0},
		models.Point3{X: 1, Y: 0, Z: 0},
		models.Point3{X: 0, Y: 1, Z: 0},
	)
	// правая тройка: (v1-v0)×(v2-v0) = +Z, единичной длины
	assert.InDelta(t, 0, n.X, 1e-12)
	assert.InDelta(t, 0, n.Y, 1e-12)
	assert.InDelta(t, 1, n.Z, 1e-12)
}

func TestFaceNormalDegenerate(t *testing.T) {
	// коллинеарные точки: нулевой вектор, не NaN
	n := FaceNormal(
		models.Point3{X: 0, Y: 0, Z: 0},
		models.Point3{X: 1, Y: 1, Z: 1},
		models.Point3{X: 2, Y: 2, Z: 2},
	)
	assert.Equal(t, models.Point3{}, n)
	assert.False(t, math.IsNaN(n.X))
}

func TestComputeNormalsUnitLength(t *testing.T) {
	m, err := Generate(models.ElementSpec{
		ID:    "box-n",
		Shape: models.BoxShape{Width: 2, Depth: 3, Height: 4},
	})
	require.NoError(t, err)

	for i, n := range m.Normals {
		length := math.Sqrt(n.X*n.X + n.Y*n.Y + n.Z*n.Z)
		assert.InDelta(t, 1, length, 1e-9, "normal %d", i)
	}
}
