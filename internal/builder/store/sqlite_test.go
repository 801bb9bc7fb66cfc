package store

import (
	"context"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan3d/internal/builder/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := New(db)
	require.NoError(t, repo.Init(context.Background(), "../../../migrations/001_init_model.sql"))
	return repo
}

func TestCalibrationAssembly(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	facts := []models.CalibrationFact{
		{Key: "scale_x", Value: 2, Confidence: 0.9, Source: "manual"},
		{Key: "scale_y", Value: 2, Confidence: 0.9, Source: "manual"},
		{Key: "offset_x", Value: 100, Confidence: 0.8, Source: "auto"},
		{Key: "perimeter_min_x", Value: 0, Confidence: 1, Source: "manual"},
		{Key: "perimeter_min_y", Value: 0, Confidence: 1, Source: "manual"},
		{Key: "perimeter_max_x", Value: 400, Confidence: 1, Source: "manual"},
		{Key: "perimeter_max_y", Value: 300, Confidence: 1, Source: "manual"},
	}
	for _, f := range facts {
		require.NoError(t, repo.UpsertCalibration(ctx, "doc1", f))
	}

	cal, err := repo.CalibrationByDoc(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, cal.ScaleX)
	assert.Equal(t, 100.0, cal.OffsetX)
	require.NotNil(t, cal.Perimeter)
	assert.Equal(t, 400.0, cal.Perimeter.MaxX)
	// уверенность — минимум по фактам
	assert.InDelta(t, 0.8, cal.Confidence, 1e-9)

	// уточнение между прогонами: upsert по ключу
	require.NoError(t, repo.UpsertCalibration(ctx, "doc1",
		models.CalibrationFact{Key: "scale_x", Value: 2.5, Confidence: 0.95, Source: "refined"}))
	cal, err = repo.CalibrationByDoc(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 2.5, cal.ScaleX)
}

func TestCalibrationMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.CalibrationByDoc(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrMissingInput)
}

func TestCalibrationNoPerimeterWithoutAllBounds(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertCalibration(ctx, "doc1",
		models.CalibrationFact{Key: "perimeter_min_x", Value: 0, Confidence: 1}))
	require.NoError(t, repo.UpsertCalibration(ctx, "doc1",
		models.CalibrationFact{Key: "scale_x", Value: 1, Confidence: 1}))

	cal, err := repo.CalibrationByDoc(ctx, "doc1")
	require.NoError(t, err)
	assert.Nil(t, cal.Perimeter)
}

func TestWallsRoundtrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	walls := []models.SemanticWall{
		{
			ID: "w1", Members: []int64{1, 2, 3},
			BBox:           models.Rect{MinX: 0, MinY: 0, MaxX: 100, MaxY: 5},
			OrientationDeg: 0, Length: 100, Class: models.WallExterior,
		},
		{
			ID: "w2", Members: []int64{7},
			BBox:           models.Rect{MinX: 50, MinY: 10, MaxX: 55, MaxY: 200},
			OrientationDeg: 90, Length: 190, Class: models.WallInterior,
		},
	}
	require.NoError(t, repo.ReplaceWalls(ctx, "run1", "doc1", walls))

	got, err := repo.WallsByRun(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []int64{1, 2, 3}, got[0].Members)
	assert.Equal(t, models.WallExterior, got[0].Class)

	// полная перезапись при повторном прогоне
	require.NoError(t, repo.ReplaceWalls(ctx, "run1", "doc1", walls[:1]))
	got, err = repo.WallsByRun(ctx, "run1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRelationsOfSymmetric(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rels := []models.SpatialRelationship{
		{Subject: "a", Predicate: models.PredOn, Object: "b", Metric: 0.5},
		{Subject: "a", Predicate: models.PredIn, Object: "c", Metric: 10},
	}
	require.NoError(t, repo.ReplaceRelationships(ctx, "run1", rels))

	// ON симметричен: запрос по объекту тоже находит факт
	onB, err := repo.RelationsOf(ctx, "run1", "b", models.PredOn)
	require.NoError(t, err)
	require.Len(t, onB, 1)
	assert.Equal(t, "a", onB[0].Subject)

	onA, err := repo.RelationsOf(ctx, "run1", "a", models.PredOn)
	require.NoError(t, err)
	assert.Len(t, onA, 1)

	// IN направленный: объект не видит факта как субъект
	inC, err := repo.RelationsOf(ctx, "run1", "c", models.PredIn)
	require.NoError(t, err)
	assert.Empty(t, inC)
}

func TestPlacedRoundtrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	objects := []models.PlacedObject{
		{ID: "p1", ObjectType: "drain", Position: models.Point3{X: 1, Y: 2, Z: 3}, Source: "annotation"},
	}
	require.NoError(t, repo.ReplacePlaced(ctx, "run1", objects))

	got, err := repo.PlacedByRun(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "drain", got[0].ObjectType)
	assert.Equal(t, "run1", got[0].RunID)
	assert.Equal(t, 3.0, got[0].Position.Z)
}
