package pipeline

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"

	"plan3d/internal/builder/catalog"
	"plan3d/internal/builder/detect"
	"plan3d/internal/builder/geometry"
	"plan3d/internal/builder/models"
	"plan3d/internal/builder/spatial"
	"plan3d/internal/builder/store"
	"plan3d/internal/builder/validate"
)

// ============================================================
// Pipeline
// ============================================================

const defaultWallHeight = 280

// Pipeline прогоняет документ через все стадии: примитивы -> стены ->
// отношения -> геометрия -> каталог -> валидация. Однопоточно, один
// документ за прогон.
type Pipeline struct {
	repo *store.Repository
	cat  *catalog.Catalog

	DetectProfile  detect.Profile
	SpatialProfile spatial.Profile
	Rules          validate.Rules
	WallHeight     float64
}

func New(repo *store.Repository, cat *catalog.Catalog) *Pipeline {
	return &Pipeline{
		repo:           repo,
		cat:            cat,
		DetectProfile:  detect.DefaultProfile(),
		SpatialProfile: spatial.DefaultProfile(),
		Rules:          validate.DefaultRules(),
		WallHeight:     defaultWallHeight,
	}
}

// RunSummary — итог прогона для вызывающей стороны.
type RunSummary struct {
	RunID         string          `json:"run_id"`
	DocID         string          `json:"doc_id"`
	Walls         int             `json:"walls"`
	ExteriorWalls int             `json:"exterior_walls"`
	Relationships int             `json:"relationships"`
	PlacedObjects int             `json:"placed_objects"`
	Skipped       []string        `json:"skipped,omitempty"`
	Validation    validate.Result `json:"validation"`
}

// Run выполняет прогон одного документа. Отсутствие примитивов или
// калибровки фатально для прогона; прочие сбои деградируют поэлементно.
func (p *Pipeline) Run(ctx context.Context, docID string) (*RunSummary, error) {
	runID := uuid.NewString()
	summary := &RunSummary{RunID: runID, DocID: docID}

	// Входные таблицы
	lines, err := p.repo.LinesByDoc(ctx, docID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("lines for doc %s: %w", docID, models.ErrMissingInput)
	}

	cal, err := p.repo.CalibrationByDoc(ctx, docID)
	if err != nil {
		return nil, err
	}

	// Детекция стен
	walls := detect.New(p.DetectProfile).Detect(lines, cal)
	for _, w := range walls {
		if w.Class == models.WallExterior {
			summary.ExteriorWalls++
		}
	}
	summary.Walls = len(walls)
	if err := p.repo.ReplaceWalls(ctx, runID, docID, walls); err != nil {
		return nil, err
	}
	log.Printf("[PIPELINE] %s: %d walls (%d exterior)", docID, summary.Walls, summary.ExteriorWalls)

	// Размещение аннотированных объектов
	annotations, err := p.placeAnnotations(ctx, runID, docID, cal)
	if err != nil {
		return nil, err
	}
	placed := make([]models.PlacedObject, 0, len(annotations))
	for _, a := range annotations {
		placed = append(placed, a.object)
	}

	// Пространственные отношения считаются в координатах чертежа: bbox стен
	// приходят от детектора некалиброванными, аннотации берут plan-точку.
	entities := make([]spatial.Entity, 0, len(walls)+len(annotations))
	for _, w := range walls {
		entities = append(entities, spatial.WallEntity(w))
	}
	for _, a := range annotations {
		half := 10.0
		entities = append(entities, spatial.Entity{
			ID: a.object.ID,
			BBox: models.Rect{
				MinX: a.plan.X - half, MinY: a.plan.Y - half,
				MaxX: a.plan.X + half, MaxY: a.plan.Y + half,
			},
			Elevation: a.object.Position.Z,
		})
	}
	rels := spatial.Derive(entities, p.SpatialProfile)
	summary.Relationships = len(rels)
	if err := p.repo.ReplaceRelationships(ctx, runID, rels); err != nil {
		return nil, err
	}

	// Геометрия несущих конструкций
	structural, err := p.buildStructure(ctx, runID, docID, walls, cal, summary)
	if err != nil {
		return nil, err
	}
	placed = append(placed, structural...)

	summary.PlacedObjects = len(placed)
	if err := p.repo.ReplacePlaced(ctx, runID, placed); err != nil {
		return nil, err
	}

	// Валидация инвентаря
	summary.Validation = validate.Check(p.inventory(ctx, walls, placed), p.Rules)
	if !summary.Validation.Passed {
		log.Printf("[PIPELINE] %s: validation failed: %v", docID, summary.Validation.Errors)
	}

	return summary, nil
}

// ============================================================
// Annotated object placement
// ============================================================

// annotation — размещенный по надписи объект вместе с исходной точкой
// на чертеже. Placed-запись держит мировые координаты, plan-точка нужна
// для пространственных отношений в одном пространстве со стенами.
type annotation struct {
	object models.PlacedObject
	plan   models.Point
}

// placeAnnotations сопоставляет распознанные надписи с типами каталога
// и ставит экземпляры в мировые координаты.
func (p *Pipeline) placeAnnotations(ctx context.Context, runID, docID string, cal *models.Calibration) ([]annotation, error) {
	texts, err := p.repo.TextByDoc(ctx, docID)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}

	entries, err := p.repo.Entries(ctx)
	if err != nil {
		return nil, err
	}
	byType := make(map[string]models.CatalogEntry, len(entries))
	for _, e := range entries {
		byType[e.ObjectType] = e
	}

	var placed []annotation
	for _, t := range texts {
		for _, word := range strings.Fields(strings.ToLower(t.Text)) {
			entry, ok := byType[word]
			if !ok {
				continue
			}
			placed = append(placed, annotation{
				object: models.PlacedObject{
					ID:         uuid.NewString(),
					RunID:      runID,
					ObjectType: entry.ObjectType,
					Position: models.Point3{
						X: t.X*cal.ScaleX + cal.OffsetX,
						Y: t.Y*cal.ScaleY + cal.OffsetY,
						Z: entry.Height / 2,
					},
					Source: "annotation",
				},
				plan: models.Point{X: t.X, Y: t.Y},
			})
			break
		}
	}
	return placed, nil
}

// ============================================================
// Structural geometry
// ============================================================

// buildStructure генерирует мировую геометрию стен и, при известном
// периметре, плиту пола и кровлю. Неизвестная фигура пропускает только
// свой элемент.
func (p *Pipeline) buildStructure(ctx context.Context, runID, docID string, walls []models.SemanticWall, cal *models.Calibration, summary *RunSummary) ([]models.PlacedObject, error) {
	var specs []models.ElementSpec

	for i, w := range walls {
		specs = append(specs, p.wallSpec(docID, i, w, cal))
	}

	if cal.Perimeter != nil {
		c := cal.Perimeter.Center()
		w := cal.Perimeter.Width() * cal.ScaleX
		d := cal.Perimeter.Height() * cal.ScaleY
		pos := models.Point{X: c.X*cal.ScaleX + cal.OffsetX, Y: c.Y*cal.ScaleY + cal.OffsetY}

		specs = append(specs,
			models.ElementSpec{
				ID:         fmt.Sprintf("floor:%s", docID),
				ObjectType: fmt.Sprintf("floor:%s", docID),
				Category:   "slab",
				Position:   models.Point3{X: pos.X, Y: pos.Y, Z: -10},
				Shape:      models.SlabShape{Width: w, Depth: d, Thickness: 20},
			},
			models.ElementSpec{
				ID:         fmt.Sprintf("roof:%s", docID),
				ObjectType: fmt.Sprintf("roof:%s", docID),
				Category:   "roof",
				Position:   models.Point3{X: pos.X, Y: pos.Y, Z: p.WallHeight + 10},
				Shape:      models.SlabShape{Width: w, Depth: d, Thickness: 20},
			},
		)
	}

	var placed []models.PlacedObject
	for _, spec := range specs {
		m, err := geometry.Generate(spec)
		if err != nil {
			// ошибка одного элемента не валит партию
			log.Printf("[PIPELINE] %v", err)
			summary.Skipped = append(summary.Skipped, err.Error())
			continue
		}

		hash, err := p.cat.InsertMesh(ctx, m)
		if err != nil {
			return nil, err
		}

		entry := models.CatalogEntry{
			ObjectType: spec.ObjectType,
			GeomHash:   hash,
			Class:      models.ClassStructure,
			Category:   spec.Category,
		}
		if err := p.cat.Register(ctx, entry, true); err != nil {
			return nil, err
		}

		// вершины уже мировые, позиция экземпляра нулевая
		placed = append(placed, models.PlacedObject{
			ID:         uuid.NewString(),
			RunID:      runID,
			ObjectType: spec.ObjectType,
			Source:     "wall",
		})
	}
	return placed, nil
}

// wallSpec переводит семантическую стену в мировую коробку. Длина
// масштабируется вдоль оси стены, толщина вдоль нормали: при анизотропной
// калибровке это разные коэффициенты.
func (p *Pipeline) wallSpec(docID string, i int, w models.SemanticWall, cal *models.Calibration) models.ElementSpec {
	center := w.BBox.Center()
	thickness := minExtent(w.BBox)
	if thickness < 10 {
		thickness = 10
	}
	return models.ElementSpec{
		ID:         fmt.Sprintf("wall:%s:%d", docID, i),
		ObjectType: fmt.Sprintf("wall:%s:%d", docID, i),
		Category:   "walls",
		Position: models.Point3{
			X: center.X*cal.ScaleX + cal.OffsetX,
			Y: center.Y*cal.ScaleY + cal.OffsetY,
			Z: p.WallHeight / 2,
		},
		Shape: models.OrientedBoxShape{
			Width:    w.Length * directionScale(cal, w.OrientationDeg),
			Depth:    thickness * directionScale(cal, w.OrientationDeg+90),
			Height:   p.WallHeight,
			AngleDeg: w.OrientationDeg,
		},
	}
}

// directionScale — коэффициент калибровки вдоль направления под углом
// angleDeg к оси X чертежа.
func directionScale(cal *models.Calibration, angleDeg float64) float64 {
	rad := angleDeg * math.Pi / 180
	return math.Hypot(math.Cos(rad)*cal.ScaleX, math.Sin(rad)*cal.ScaleY)
}

// ============================================================
// Inventory
// ============================================================

func (p *Pipeline) inventory(ctx context.Context, walls []models.SemanticWall, placed []models.PlacedObject) map[string]int {
	inv := map[string]int{"walls": len(walls)}

	for _, o := range placed {
		if o.Source != "annotation" {
			if entry, err := p.repo.EntryByType(ctx, o.ObjectType); err == nil && entry.Category != "walls" {
				inv[entry.Category]++
			}
			continue
		}
		if entry, err := p.repo.EntryByType(ctx, o.ObjectType); err == nil {
			inv[entry.Category]++
		}
	}
	return inv
}

func minExtent(r models.Rect) float64 {
	if r.Width() < r.Height() {
		return r.Width()
	}
	return r.Height()
}
