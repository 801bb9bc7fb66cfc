package models

import "math"

// ============================================================
// Drawing primitives
// ============================================================

// LinePrimitive — исходная линия чертежа. Поставляется извне, не изменяется.
type LinePrimitive struct {
	ID    int64   `json:"id"`
	DocID string  `json:"doc_id"`
	Page  int     `json:"page"`
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	Width float64 `json:"width"`
}

// TextPrimitive — распознанная надпись с координатой привязки.
type TextPrimitive struct {
	ID         int64   `json:"id"`
	DocID      string  `json:"doc_id"`
	Page       int     `json:"page"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (l LinePrimitive) Length() float64 {
	dx := l.X1 - l.X0
	dy := l.Y1 - l.Y0
	return math.Sqrt(dx*dx + dy*dy)
}

func (l LinePrimitive) Midpoint() Point {
	return Point{X: (l.X0 + l.X1) / 2, Y: (l.Y0 + l.Y1) / 2}
}

// AngleDeg возвращает угол линии в градусах, нормализованный в [0, 180).
func (l LinePrimitive) AngleDeg() float64 {
	deg := math.Atan2(l.Y1-l.Y0, l.X1-l.X0) * 180 / math.Pi
	deg = math.Mod(deg, 180)
	if deg < 0 {
		deg += 180
	}
	return deg
}

// ============================================================
// Geometry primitives
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Rect — axis-aligned bounding box на плоскости чертежа.
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

func (r Rect) Center() Point {
	return Point{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

func (r Rect) Area() float64 {
	return math.Max(0, r.Width()) * math.Max(0, r.Height())
}

// IntersectArea — площадь пересечения двух прямоугольников (0 если не пересекаются).
func (r Rect) IntersectArea(o Rect) float64 {
	w := math.Min(r.MaxX, o.MaxX) - math.Max(r.MinX, o.MinX)
	h := math.Min(r.MaxY, o.MaxY) - math.Max(r.MinY, o.MinY)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Expand возвращает прямоугольник, расширенный на d во все стороны.
func (r Rect) Expand(d float64) Rect {
	return Rect{MinX: r.MinX - d, MinY: r.MinY - d, MaxX: r.MaxX + d, MaxY: r.MaxY + d}
}

func RectFromLine(l LinePrimitive) Rect {
	return Rect{
		MinX: math.Min(l.X0, l.X1),
		MinY: math.Min(l.Y0, l.Y1),
		MaxX: math.Max(l.X0, l.X1),
		MaxY: math.Max(l.Y0, l.Y1),
	}
}

// Union объединяет два bbox.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

// ============================================================
// Calibration
// ============================================================

// CalibrationFact — одна строка таблицы calibration (key/value, upsert по ключу).
type CalibrationFact struct {
	Key        string  `json:"key"`
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// Calibration — собранный набор параметров калибровки для одного прогона.
type Calibration struct {
	ScaleX     float64 `json:"scale_x"`
	ScaleY     float64 `json:"scale_y"`
	OffsetX    float64 `json:"offset_x"`
	OffsetY    float64 `json:"offset_y"`
	Perimeter  *Rect   `json:"perimeter,omitempty"`
	Overhang   float64 `json:"overhang"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// ============================================================
// Semantic entities
// ============================================================

const (
	WallExterior = "exterior"
	WallInterior = "interior"
)

// SemanticWall — стена, собранная из линий. Линия принадлежит не более чем одной стене.
type SemanticWall struct {
	ID             string  `json:"id"`
	Members        []int64 `json:"members"`
	BBox           Rect    `json:"bbox"`
	OrientationDeg float64 `json:"orientation_deg"`
	Length         float64 `json:"length"`
	Class          string  `json:"class"`
}

const (
	PredOn       = "ON"
	PredIn       = "IN"
	PredNear     = "NEAR"
	PredAlignedH = "ALIGNED_H"
	PredAlignedV = "ALIGNED_V"
)

// SpatialRelationship — плоский факт (subject, predicate, object, metric).
// Транзитивное замыкание не вычисляется.
type SpatialRelationship struct {
	Subject   string  `json:"subject"`
	Predicate string  `json:"predicate"`
	Object    string  `json:"object"`
	Metric    float64 `json:"metric"`
}

// ============================================================
// Geometry payloads
// ============================================================

// Mesh — триангулированная геометрия. Вершины уже в мировых координатах:
// нижележащие потребители не применяют никаких трансформаций.
type Mesh struct {
	Vertices []Point3    `json:"vertices"`
	Faces    [][3]uint32 `json:"faces"`
	Normals  []Point3    `json:"normals"` // по одной на каждое вхождение вершины в грань
}

// GeometryBlob — сериализованная геометрия, адресуемая хэшем содержимого.
type GeometryBlob struct {
	Hash        string `json:"hash"`
	VertexData  []byte `json:"-"`
	FaceData    []byte `json:"-"`
	NormalData  []byte `json:"-"`
	VertexCount int    `json:"vertex_count"`
	FaceCount   int    `json:"face_count"`
}

const (
	ClassStructure = "structure" // геометрия в мировых координатах
	ClassItem      = "item"      // библиотечный объект, blob центрирован в начале координат
)

// CatalogEntry — строка object_catalog. Ссылается на blob по хэшу;
// несколько типов могут разделять один blob.
type CatalogEntry struct {
	ObjectType  string  `json:"object_type"`
	GeomHash    string  `json:"geom_hash"`
	Class       string  `json:"class"`
	Category    string  `json:"category"`
	SubCategory string  `json:"sub_category"`
	Width       float64 `json:"width"`
	Depth       float64 `json:"depth"`
	Height      float64 `json:"height"`
	RotX        float64 `json:"rot_x"`
	RotY        float64 `json:"rot_y"`
	RotZ        float64 `json:"rot_z"`
	Material    string  `json:"material"`
	Description string  `json:"description"`
}

// PlacedObject — экземпляр объекта в мировых координатах для хоста визуализации.
type PlacedObject struct {
	ID         string  `json:"id"`
	RunID      string  `json:"run_id"`
	ObjectType string  `json:"object_type"`
	Position   Point3  `json:"position"`
	RotationZ  float64 `json:"rotation_z"`
	Source     string  `json:"source"` // wall | annotation
}

// ============================================================
// Element specifications (closed shape set)
// ============================================================

// ElementSpec — входная спецификация для генераторов геометрии.
// Shape — один из *Shape типов ниже; другие значения не поддерживаются.
type ElementSpec struct {
	ID         string  `json:"id"`
	ObjectType string  `json:"object_type"`
	Category   string  `json:"category"`
	Position   Point3  `json:"position"`
	RotationZ  float64 `json:"rotation_z"`
	Shape      any     `json:"shape"`
}

type BoxShape struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
}

type OrientedBoxShape struct {
	Width    float64 `json:"width"`
	Depth    float64 `json:"depth"`
	Height   float64 `json:"height"`
	AngleDeg float64 `json:"angle_deg"`
}

type CylinderShape struct {
	Radius   float64 `json:"radius"`
	Height   float64 `json:"height"`
	Segments int     `json:"segments"`
}

type ExtrudedPolylineShape struct {
	Points []Point `json:"points"` // замкнутый контур в плане, относительно позиции элемента
	Height float64 `json:"height"`
}

type SlabShape struct {
	Width     float64 `json:"width"`
	Depth     float64 `json:"depth"`
	Thickness float64 `json:"thickness"`
}

type DomeShape struct {
	Radius   float64 `json:"radius"`
	Segments int     `json:"segments"` // по долготе
	Rings    int     `json:"rings"`    // по широте
}
