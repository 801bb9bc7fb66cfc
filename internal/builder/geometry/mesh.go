package geometry

import (
	"math"

	"plan3d/internal/builder/models"
)

// ============================================================
// Mesh helpers
// ============================================================

const degenerateEps = 1e-12

// FaceNormal — нормаль треугольника: normalize((v1-v0)×(v2-v0)).
// Вырожденный треугольник дает нулевой вектор, не NaN.
func FaceNormal(v0, v1, v2 models.Point3) models.Point3 {
	e1 := models.Point3{X: v1.X - v0.X, Y: v1.Y - v0.Y, Z: v1.Z - v0.Z}
	e2 := models.Point3{X: v2.X - v0.X, Y: v2.Y - v0.Y, Z: v2.Z - v0.Z}

	n := models.Point3{
		X: e1.Y*e2.Z - e1.Z*e2.Y,
		Y: e1.Z*e2.X - e1.X*e2.Z,
		Z: e1.X*e2.Y - e1.Y*e2.X,
	}

	length := math.Sqrt(n.X*n.X + n.Y*n.Y + n.Z*n.Z)
	if length < degenerateEps {
		return models.Point3{}
	}
	return models.Point3{X: n.X / length, Y: n.Y / length, Z: n.Z / length}
}

// ComputeNormals заполняет плоские нормали: по одной на каждое вхождение
// вершины в грань, len == 3 × число граней.
func ComputeNormals(m *models.Mesh) {
	m.Normals = make([]models.Point3, 0, len(m.Faces)*3)
	for _, f := range m.Faces {
		n := FaceNormal(m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]])
		m.Normals = append(m.Normals, n, n, n)
	}
}

// Bounds возвращает min/max по всем вершинам.
func Bounds(m *models.Mesh) (models.Point3, models.Point3) {
	if len(m.Vertices) == 0 {
		return models.Point3{}, models.Point3{}
	}
	min, max := m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		min.X = math.Min(min.X, v.X)
		min.Y = math.Min(min.Y, v.Y)
		min.Z = math.Min(min.Z, v.Z)
		max.X = math.Max(max.X, v.X)
		max.Y = math.Max(max.Y, v.Y)
		max.Z = math.Max(max.Z, v.Z)
	}
	return min, max
}

// Centroid — среднее всех вершин.
func Centroid(m *models.Mesh) models.Point3 {
	if len(m.Vertices) == 0 {
		return models.Point3{}
	}
	var c models.Point3
	for _, v := range m.Vertices {
		c.X += v.X
		c.Y += v.Y
		c.Z += v.Z
	}
	n := float64(len(m.Vertices))
	return models.Point3{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}

// Translate сдвигает все вершины на delta. Нормали не меняются.
func Translate(m *models.Mesh, delta models.Point3) {
	for i := range m.Vertices {
		m.Vertices[i].X += delta.X
		m.Vertices[i].Y += delta.Y
		m.Vertices[i].Z += delta.Z
	}
}
