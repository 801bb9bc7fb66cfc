package detect

import (
	"log"
	"math"

	"github.com/google/uuid"

	"plan3d/internal/builder/models"
)

// ============================================================
// Tolerance profile
// ============================================================

// Profile — явный набор допусков для одного вызова детектора.
// Передается в каждый вызов, не глобальное состояние.
type Profile struct {
	AlignTolerance     float64 // расстояние линии до стороны периметра
	AngleTolerance     float64 // допуск ориентации, градусы
	ProximityRadius    float64 // радиус кластеризации
	MinClusterSize     int     // минимум линий в кластере
	MinStructuralWidth float64 // тоньше — не несущая линия
	GapTolerance       float64 // максимальный разрыв при слиянии коллинеарных кластеров
	MinWallLength      float64 // короче — отбрасывается
}

func DefaultProfile() Profile {
	return Profile{
		AlignTolerance:     12,
		AngleTolerance:     5,
		ProximityRadius:    25,
		MinClusterSize:     2,
		MinStructuralWidth: 1.5,
		GapTolerance:       30,
		MinWallLength:      40,
	}
}

// ============================================================
// Wall Detector
// ============================================================

type Detector struct {
	profile Profile
}

func New(profile Profile) *Detector {
	return &Detector{profile: profile}
}

// Detect собирает семантические стены из линий за четыре шага:
// A — внешние стены по периметру калибровки, B — кластеризация по плотности,
// C — слияние коллинеарных кластеров, D — отсев коротких пролетов.
func (d *Detector) Detect(lines []models.LinePrimitive, cal *models.Calibration) []models.SemanticWall {
	var walls []models.SemanticWall

	// Step A: периметр
	remaining := lines
	if cal != nil && cal.Perimeter != nil {
		var exterior []models.SemanticWall
		exterior, remaining = d.extractExterior(lines, *cal.Perimeter, cal.Overhang)
		walls = append(walls, exterior...)
	} else {
		log.Printf("[DETECT] no perimeter declared, skipping exterior extraction")
	}

	// Step B: кластеризация оставшихся линий
	clusters := d.clusterLines(remaining)

	// Step C: слияние коллинеарных кластеров
	runs := d.mergeCollinear(clusters)

	// Step D: отсев коротких
	for _, run := range runs {
		wall := wallFromCluster(run, models.WallInterior)
		if wall.Length < d.profile.MinWallLength {
			log.Printf("[DETECT] wall run %.1f below min length %.1f, dropped (%s)",
				wall.Length, d.profile.MinWallLength, models.ErrToleranceUnmet)
			continue
		}
		walls = append(walls, wall)
	}

	return walls
}

// ============================================================
// Step A: exterior walls
// ============================================================

type perimeterSide struct {
	horizontal bool
	constant   float64 // координата стороны по перпендикулярной оси
	start, end float64 // пролет стороны
}

// extractExterior находит до четырех внешних стен — по одной на сторону
// периметра за вычетом свеса. Возвращает стены и неприсвоенные линии.
func (d *Detector) extractExterior(lines []models.LinePrimitive, perimeter models.Rect, overhang float64) ([]models.SemanticWall, []models.LinePrimitive) {
	inner := perimeter.Expand(-overhang)

	sides := []perimeterSide{
		{horizontal: true, constant: inner.MinY, start: inner.MinX, end: inner.MaxX},  // низ
		{horizontal: true, constant: inner.MaxY, start: inner.MinX, end: inner.MaxX},  // верх
		{horizontal: false, constant: inner.MinX, start: inner.MinY, end: inner.MaxY}, // лево
		{horizontal: false, constant: inner.MaxX, start: inner.MinY, end: inner.MaxY}, // право
	}

	assigned := make(map[int64]bool)
	var walls []models.SemanticWall

	for _, side := range sides {
		var members []models.LinePrimitive
		for _, l := range lines {
			if assigned[l.ID] {
				continue
			}
			if d.alignedWithSide(l, side) {
				members = append(members, l)
			}
		}
		if len(members) == 0 {
			continue
		}
		for _, l := range members {
			assigned[l.ID] = true
		}
		walls = append(walls, wallFromCluster(members, models.WallExterior))
	}

	var remaining []models.LinePrimitive
	for _, l := range lines {
		if !assigned[l.ID] {
			remaining = append(remaining, l)
		}
	}
	return walls, remaining
}

// alignedWithSide — линия лежит вдоль стороны: ориентация совпадает,
// перпендикулярное расстояние и края в пределах допуска.
func (d *Detector) alignedWithSide(l models.LinePrimitive, side perimeterSide) bool {
	sideAngle := 90.0
	if side.horizontal {
		sideAngle = 0
	}
	if angleDiff(l.AngleDeg(), sideAngle) > d.profile.AngleTolerance {
		return false
	}

	mid := l.Midpoint()
	perp := mid.Y
	lo, hi := math.Min(l.X0, l.X1), math.Max(l.X0, l.X1)
	if !side.horizontal {
		perp = mid.X
		lo, hi = math.Min(l.Y0, l.Y1), math.Max(l.Y0, l.Y1)
	}

	if math.Abs(perp-side.constant) > d.profile.AlignTolerance {
		return false
	}
	return lo >= side.start-d.profile.AlignTolerance && hi <= side.end+d.profile.AlignTolerance
}

// ============================================================
// Step B: density clustering
// ============================================================

// clusterLines группирует линии по плотности: соседство — расстояние между
// серединами в пределах радиуса. Линия, равноудаленная от двух кластеров,
// достается первому по порядку обхода. Тонкие линии исключаются заранее.
func (d *Detector) clusterLines(lines []models.LinePrimitive) [][]models.LinePrimitive {
	var candidates []models.LinePrimitive
	for _, l := range lines {
		if l.Width >= d.profile.MinStructuralWidth {
			candidates = append(candidates, l)
		}
	}

	visited := make(map[int64]bool)
	var clusters [][]models.LinePrimitive

	for _, seed := range candidates {
		if visited[seed.ID] {
			continue
		}

		// обход соседей в ширину от затравки
		cluster := []models.LinePrimitive{seed}
		visited[seed.ID] = true
		for i := 0; i < len(cluster); i++ {
			for _, other := range candidates {
				if visited[other.ID] {
					continue
				}
				if lineDistance(cluster[i], other) <= d.profile.ProximityRadius {
					visited[other.ID] = true
					cluster = append(cluster, other)
				}
			}
		}

		if len(cluster) < d.profile.MinClusterSize {
			log.Printf("[DETECT] cluster of %d lines below min size %d, dropped (%s)",
				len(cluster), d.profile.MinClusterSize, models.ErrToleranceUnmet)
			continue
		}
		clusters = append(clusters, cluster)
	}

	return clusters
}

func lineDistance(a, b models.LinePrimitive) float64 {
	am, bm := a.Midpoint(), b.Midpoint()
	dx := am.X - bm.X
	dy := am.Y - bm.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// ============================================================
// Step C: collinear merge
// ============================================================

type clusterRun struct {
	lines  []models.LinePrimitive
	angle  float64      // осевое среднее, [0, 180)
	axis   models.Point // единичный вектор главной оси
	center models.Point
	lo, hi float64 // пролет проекций на ось
}

// mergeCollinear объединяет кластеры с совпадающей осью и малым разрывом
// между концами в единые пролеты стен.
func (d *Detector) mergeCollinear(clusters [][]models.LinePrimitive) [][]models.LinePrimitive {
	runs := make([]clusterRun, len(clusters))
	for i, c := range clusters {
		runs[i] = makeRun(c)
	}

	merged := make([]bool, len(runs))
	var out [][]models.LinePrimitive

	for i := range runs {
		if merged[i] {
			continue
		}
		group := runs[i]
		merged[i] = true

		// жадное поглощение, пока есть подходящий сосед
		for again := true; again; {
			again = false
			for j := range runs {
				if merged[j] {
					continue
				}
				if d.canMerge(group, runs[j]) {
					merged[j] = true
					group = makeRun(append(group.lines, runs[j].lines...))
					again = true
				}
			}
		}

		out = append(out, group.lines)
	}

	return out
}

func (d *Detector) canMerge(a, b clusterRun) bool {
	if angleDiff(a.angle, b.angle) > d.profile.AngleTolerance {
		return false
	}

	// отклонение центра b от оси a — параллельные, но не коллинеарные, не сливаем
	lateral := math.Abs((b.center.X-a.center.X)*(-a.axis.Y) + (b.center.Y-a.center.Y)*a.axis.X)
	if lateral > d.profile.AlignTolerance {
		return false
	}

	// разрыв между пролетами вдоль оси a
	centerOff := (b.center.X-a.center.X)*a.axis.X + (b.center.Y-a.center.Y)*a.axis.Y
	bLo := centerOff + b.lo
	bHi := centerOff + b.hi
	gap := math.Max(a.lo-bHi, bLo-a.hi)
	return gap <= d.profile.GapTolerance
}

func makeRun(lines []models.LinePrimitive) clusterRun {
	run := clusterRun{lines: lines, angle: axialMean(lines)}

	rad := run.angle * math.Pi / 180
	run.axis = models.Point{X: math.Cos(rad), Y: math.Sin(rad)}

	var cx, cy float64
	for _, l := range lines {
		m := l.Midpoint()
		cx += m.X
		cy += m.Y
	}
	run.center = models.Point{X: cx / float64(len(lines)), Y: cy / float64(len(lines))}

	run.lo, run.hi = math.Inf(1), math.Inf(-1)
	for _, l := range lines {
		for _, p := range []models.Point{{X: l.X0, Y: l.Y0}, {X: l.X1, Y: l.Y1}} {
			proj := (p.X-run.center.X)*run.axis.X + (p.Y-run.center.Y)*run.axis.Y
			run.lo = math.Min(run.lo, proj)
			run.hi = math.Max(run.hi, proj)
		}
	}
	return run
}

// ============================================================
// Wall construction
// ============================================================

func wallFromCluster(lines []models.LinePrimitive, class string) models.SemanticWall {
	run := makeRun(lines)

	bbox := models.RectFromLine(lines[0])
	members := make([]int64, 0, len(lines))
	for _, l := range lines {
		bbox = bbox.Union(models.RectFromLine(l))
		members = append(members, l.ID)
	}

	return models.SemanticWall{
		ID:             uuid.NewString(),
		Members:        members,
		BBox:           bbox,
		OrientationDeg: run.angle,
		Length:         run.hi - run.lo,
		Class:          class,
	}
}

// axialMean — среднее направление осей линий через удвоенные углы,
// нормализовано в [0, 180).
func axialMean(lines []models.LinePrimitive) float64 {
	var sumSin, sumCos float64
	for _, l := range lines {
		rad := 2 * l.AngleDeg() * math.Pi / 180
		weight := l.Length()
		sumSin += weight * math.Sin(rad)
		sumCos += weight * math.Cos(rad)
	}
	deg := math.Atan2(sumSin, sumCos) * 180 / math.Pi / 2
	deg = math.Mod(deg, 180)
	if deg < 0 {
		deg += 180
	}
	return deg
}

// angleDiff — расстояние между осевыми углами с учетом перехода через 180.
func angleDiff(a, b float64) float64 {
	diff := math.Abs(a - b)
	if diff > 90 {
		diff = 180 - diff
	}
	return diff
}
