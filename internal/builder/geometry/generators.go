package geometry

import (
	"fmt"
	"math"

	"plan3d/internal/builder/models"
)

// ============================================================
// Shape dispatch
// ============================================================

// Generate строит меш по спецификации элемента. Набор фигур закрытый;
// неизвестная фигура — ошибка только этого элемента, не всей партии.
// Вершины выдаются сразу в мировых координатах.
func Generate(spec models.ElementSpec) (*models.Mesh, error) {
	var m *models.Mesh

	switch shape := spec.Shape.(type) {
	case models.BoxShape:
		m = generateBox(spec.Position, shape.Width, shape.Depth, shape.Height, 0)
	case models.OrientedBoxShape:
		m = generateBox(spec.Position, shape.Width, shape.Depth, shape.Height, shape.AngleDeg)
	case models.CylinderShape:
		m = generateCylinder(spec.Position, shape)
	case models.ExtrudedPolylineShape:
		var err error
		m, err = generateExtrusion(spec.Position, shape)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", spec.ID, err)
		}
	case models.SlabShape:
		m = generateBox(spec.Position, shape.Width, shape.Depth, shape.Thickness, 0)
	case models.DomeShape:
		m = generateDome(spec.Position, shape)
	default:
		return nil, fmt.Errorf("element %s: %w: %T", spec.ID, models.ErrUnsupportedShape, spec.Shape)
	}

	ComputeNormals(m)
	return m, nil
}

// ============================================================
// Box / OrientedBox / Slab
// ============================================================

// generateBox — параллелепипед, центрированный в pos. Поворот вокруг
// вертикальной оси через центр.
func generateBox(pos models.Point3, width, depth, height, angleDeg float64) *models.Mesh {
	hw, hd, hh := width/2, depth/2, height/2

	corners := [][2]float64{
		{-hw, -hd}, {hw, -hd}, {hw, hd}, {-hw, hd},
	}
	if angleDeg != 0 {
		rad := angleDeg * math.Pi / 180
		sin, cos := math.Sin(rad), math.Cos(rad)
		for i, c := range corners {
			corners[i] = [2]float64{c[0]*cos - c[1]*sin, c[0]*sin + c[1]*cos}
		}
	}

	vertices := make([]models.Point3, 0, 8)
	for _, z := range []float64{-hh, hh} {
		for _, c := range corners {
			vertices = append(vertices, models.Point3{X: pos.X + c[0], Y: pos.Y + c[1], Z: pos.Z + z})
		}
	}

	// Обход граней наружу (правая тройка для внешних нормалей).
	faces := [][3]uint32{
		{0, 2, 1}, {0, 3, 2}, // низ
		{4, 5, 6}, {4, 6, 7}, // верх
		{0, 1, 5}, {0, 5, 4}, // перед
		{1, 2, 6}, {1, 6, 5}, // право
		{2, 3, 7}, {2, 7, 6}, // зад
		{3, 0, 4}, {3, 4, 7}, // лево
	}

	return &models.Mesh{Vertices: vertices, Faces: faces}
}

// ============================================================
// Cylinder
// ============================================================

func generateCylinder(pos models.Point3, shape models.CylinderShape) *models.Mesh {
	n := shape.Segments
	if n < 3 {
		n = 16
	}
	hh := shape.Height / 2

	// 2n вершин обода + два центра крышек
	vertices := make([]models.Point3, 0, 2*n+2)
	for _, z := range []float64{pos.Z - hh, pos.Z + hh} {
		for i := 0; i < n; i++ {
			theta := 2 * math.Pi * float64(i) / float64(n)
			vertices = append(vertices, models.Point3{
				X: pos.X + shape.Radius*math.Cos(theta),
				Y: pos.Y + shape.Radius*math.Sin(theta),
				Z: z,
			})
		}
	}
	bottomCenter := uint32(len(vertices))
	vertices = append(vertices, models.Point3{X: pos.X, Y: pos.Y, Z: pos.Z - hh})
	topCenter := uint32(len(vertices))
	vertices = append(vertices, models.Point3{X: pos.X, Y: pos.Y, Z: pos.Z + hh})

	var faces [][3]uint32
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		bi, bj := uint32(i), uint32(j)
		ti, tj := uint32(n+i), uint32(n+j)

		// боковая стенка
		faces = append(faces, [3]uint32{bi, bj, tj}, [3]uint32{bi, tj, ti})
		// крышки
		faces = append(faces, [3]uint32{bottomCenter, bj, bi})
		faces = append(faces, [3]uint32{topCenter, ti, tj})
	}

	return &models.Mesh{Vertices: vertices, Faces: faces}
}

// ============================================================
// Extruded polyline
// ============================================================

// generateExtrusion поднимает замкнутый контур на высоту. Точки контура
// смещаются на pos, как и у остальных генераторов. Контур приводится
// к обходу против часовой стрелки, чтобы боковые нормали смотрели наружу.
func generateExtrusion(pos models.Point3, shape models.ExtrudedPolylineShape) (*models.Mesh, error) {
	points := shape.Points
	if len(points) > 1 && points[0] == points[len(points)-1] {
		points = points[:len(points)-1]
	}
	if len(points) < 3 {
		return nil, fmt.Errorf("polyline has %d points: %w", len(points), models.ErrUnsupportedShape)
	}

	if signedArea(points) < 0 {
		reversed := make([]models.Point, len(points))
		for i, p := range points {
			reversed[len(points)-1-i] = p
		}
		points = reversed
	}

	n := len(points)
	vertices := make([]models.Point3, 0, 2*n)
	for _, z := range []float64{pos.Z, pos.Z + shape.Height} {
		for _, p := range points {
			vertices = append(vertices, models.Point3{X: pos.X + p.X, Y: pos.Y + p.Y, Z: z})
		}
	}

	var faces [][3]uint32
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		bi, bj := uint32(i), uint32(j)
		ti, tj := uint32(n+i), uint32(n+j)
		faces = append(faces, [3]uint32{bi, bj, tj}, [3]uint32{bi, tj, ti})
	}

	// Крышки веером от нулевой вершины: нижняя по часовой, верхняя против
	for i := 1; i < n-1; i++ {
		faces = append(faces, [3]uint32{0, uint32(i + 1), uint32(i)})
		faces = append(faces, [3]uint32{uint32(n), uint32(n + i), uint32(n + i + 1)})
	}

	return &models.Mesh{Vertices: vertices, Faces: faces}, nil
}

func signedArea(points []models.Point) float64 {
	var sum float64
	for i, p := range points {
		q := points[(i+1)%len(points)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

// ============================================================
// Dome
// ============================================================

// generateDome — полусфера с открытым основанием на уровне pos.Z.
func generateDome(pos models.Point3, shape models.DomeShape) *models.Mesh {
	n := shape.Segments
	if n < 3 {
		n = 16
	}
	rings := shape.Rings
	if rings < 1 {
		rings = 8
	}

	vertices := make([]models.Point3, 0, n*rings+1)
	for ring := 0; ring < rings; ring++ {
		phi := (math.Pi / 2) * float64(ring) / float64(rings)
		ringRadius := shape.Radius * math.Cos(phi)
		z := pos.Z + shape.Radius*math.Sin(phi)
		for i := 0; i < n; i++ {
			theta := 2 * math.Pi * float64(i) / float64(n)
			vertices = append(vertices, models.Point3{
				X: pos.X + ringRadius*math.Cos(theta),
				Y: pos.Y + ringRadius*math.Sin(theta),
				Z: z,
			})
		}
	}
	apex := uint32(len(vertices))
	vertices = append(vertices, models.Point3{X: pos.X, Y: pos.Y, Z: pos.Z + shape.Radius})

	var faces [][3]uint32
	for ring := 0; ring < rings-1; ring++ {
		base := uint32(ring * n)
		next := base + uint32(n)
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			a, b := base+uint32(i), base+uint32(j)
			c, d := next+uint32(j), next+uint32(i)
			faces = append(faces, [3]uint32{a, b, c}, [3]uint32{a, c, d})
		}
	}

	// Последнее кольцо замыкается на вершину купола
	last := uint32((rings - 1) * n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		faces = append(faces, [3]uint32{last + uint32(i), last + uint32(j), apex})
	}

	return &models.Mesh{Vertices: vertices, Faces: faces}
}
