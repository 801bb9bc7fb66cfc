package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan3d/internal/builder/models"
)

func perimeterLines() []models.LinePrimitive {
	return []models.LinePrimitive{
		{ID: 1, X0: 0, Y0: 0, X1: 400, Y1: 0, Width: 5},     // низ
		{ID: 2, X0: 0, Y0: 300, X1: 400, Y1: 300, Width: 5}, // верх
		{ID: 3, X0: 0, Y0: 0, X1: 0, Y1: 300, Width: 5},     // лево
		{ID: 4, X0: 400, Y0: 0, X1: 400, Y1: 300, Width: 5}, // право
	}
}

func TestDetectExteriorFromPerimeter(t *testing.T) {
	cal := &models.Calibration{
		ScaleX: 1, ScaleY: 1,
		Perimeter: &models.Rect{MinX: 0, MinY: 0, MaxX: 400, MaxY: 300},
	}

	walls := New(DefaultProfile()).Detect(perimeterLines(), cal)
	require.Len(t, walls, 4)

	for _, w := range walls {
		assert.Equal(t, models.WallExterior, w.Class)
		isAxis := w.OrientationDeg < 5 || w.OrientationDeg > 175 ||
			(w.OrientationDeg > 85 && w.OrientationDeg < 95)
		assert.True(t, isAxis, "orientation %f", w.OrientationDeg)
		require.Len(t, w.Members, 1)
	}
}

func TestDetectNoPerimeterNotFatal(t *testing.T) {
	// без периметра шаг A пропускается, линии уходят в кластеризацию
	lines := []models.LinePrimitive{
		{ID: 1, X0: 0, Y0: 100, X1: 200, Y1: 100, Width: 5},
		{ID: 2, X0: 0, Y0: 106, X1: 200, Y1: 106, Width: 5},
	}

	walls := New(DefaultProfile()).Detect(lines, &models.Calibration{ScaleX: 1, ScaleY: 1})
	require.Len(t, walls, 1)
	assert.Equal(t, models.WallInterior, walls[0].Class)
}

func TestDetectInteriorCluster(t *testing.T) {
	cal := &models.Calibration{
		ScaleX: 1, ScaleY: 1,
		Perimeter: &models.Rect{MinX: 0, MinY: 0, MaxX: 400, MaxY: 300},
	}

	lines := append(perimeterLines(),
		models.LinePrimitive{ID: 10, X0: 50, Y0: 150, X1: 250, Y1: 150, Width: 4},
		models.LinePrimitive{ID: 11, X0: 50, Y0: 155, X1: 250, Y1: 155, Width: 4},
		models.LinePrimitive{ID: 12, X0: 50, Y0: 160, X1: 250, Y1: 160, Width: 4},
		// тоньше минимальной несущей ширины — исключается до кластеризации
		models.LinePrimitive{ID: 13, X0: 50, Y0: 157, X1: 250, Y1: 157, Width: 0.5},
		// одиночная линия не набирает минимальный размер кластера
		models.LinePrimitive{ID: 14, X0: 300, Y0: 30, X1: 300, Y1: 120, Width: 4},
	)

	walls := New(DefaultProfile()).Detect(lines, cal)

	var interior []models.SemanticWall
	for _, w := range walls {
		if w.Class == models.WallInterior {
			interior = append(interior, w)
		}
	}
	require.Len(t, interior, 1)
	assert.ElementsMatch(t, []int64{10, 11, 12}, interior[0].Members)
	assert.InDelta(t, 0, interior[0].OrientationDeg, 1)
	assert.InDelta(t, 200, interior[0].Length, 1)

	// внутренние стены не делят линии с внешними
	exteriorMembers := map[int64]bool{1: true, 2: true, 3: true, 4: true}
	for _, id := range interior[0].Members {
		assert.False(t, exteriorMembers[id])
	}
}

func TestDetectMergeCollinearRuns(t *testing.T) {
	// два кластера на одной оси с разрывом 20 — меньше допуска, сливаются
	lines := []models.LinePrimitive{
		{ID: 1, X0: 0, Y0: 100, X1: 100, Y1: 100, Width: 4},
		{ID: 2, X0: 0, Y0: 103, X1: 100, Y1: 103, Width: 4},
		{ID: 3, X0: 120, Y0: 100, X1: 220, Y1: 100, Width: 4},
		{ID: 4, X0: 120, Y0: 103, X1: 220, Y1: 103, Width: 4},
	}

	walls := New(DefaultProfile()).Detect(lines, &models.Calibration{ScaleX: 1, ScaleY: 1})
	require.Len(t, walls, 1)
	assert.Len(t, walls[0].Members, 4)
	assert.InDelta(t, 220, walls[0].Length, 1)
}

func TestDetectParallelNotMerged(t *testing.T) {
	// параллельные, но смещенные с оси — остаются двумя стенами
	lines := []models.LinePrimitive{
		{ID: 1, X0: 0, Y0: 100, X1: 100, Y1: 100, Width: 4},
		{ID: 2, X0: 0, Y0: 103, X1: 100, Y1: 103, Width: 4},
		{ID: 3, X0: 120, Y0: 160, X1: 220, Y1: 160, Width: 4},
		{ID: 4, X0: 120, Y0: 163, X1: 220, Y1: 163, Width: 4},
	}

	walls := New(DefaultProfile()).Detect(lines, &models.Calibration{ScaleX: 1, ScaleY: 1})
	assert.Len(t, walls, 2)
}

func TestDetectMinLength(t *testing.T) {
	lines := []models.LinePrimitive{
		{ID: 1, X0: 0, Y0: 0, X1: 20, Y1: 0, Width: 4},
		{ID: 2, X0: 0, Y0: 3, X1: 20, Y1: 3, Width: 4},
	}

	walls := New(DefaultProfile()).Detect(lines, &models.Calibration{ScaleX: 1, ScaleY: 1})
	assert.Empty(t, walls)
}

func TestAngleDiffWraps(t *testing.T) {
	assert.InDelta(t, 2, angleDiff(179, 1), 1e-9)
	assert.InDelta(t, 90, angleDiff(0, 90), 1e-9)
}
