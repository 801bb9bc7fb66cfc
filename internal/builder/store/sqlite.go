package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"plan3d/internal/builder/models"
)

// ============================================================
// SQLite Repository
// ============================================================

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init применяет миграции.
func (r *Repository) Init(ctx context.Context, migrationsPath string) error {
	data, err := os.ReadFile(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// ============================================================
// Primitives
// ============================================================

func (r *Repository) AddLine(ctx context.Context, l models.LinePrimitive) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        INSERT INTO lines (doc_id, page, x0, y0, x1, y1, width)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, l.DocID, l.Page, l.X0, l.Y0, l.X1, l.Y1, l.Width)
	if err != nil {
		return 0, fmt.Errorf("insert line: %w", err)
	}
	return res.LastInsertId()
}

func (r *Repository) AddText(ctx context.Context, t models.TextPrimitive) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        INSERT INTO text_primitives (doc_id, page, x, y, text, confidence)
        VALUES (?, ?, ?, ?, ?, ?)
    `, t.DocID, t.Page, t.X, t.Y, t.Text, t.Confidence)
	if err != nil {
		return 0, fmt.Errorf("insert text: %w", err)
	}
	return res.LastInsertId()
}

func (r *Repository) LinesByDoc(ctx context.Context, docID string) ([]models.LinePrimitive, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, doc_id, page, x0, y0, x1, y1, width
        FROM lines
        WHERE doc_id = ?
        ORDER BY id
    `, docID)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()

	var out []models.LinePrimitive
	for rows.Next() {
		var l models.LinePrimitive
		if err := rows.Scan(&l.ID, &l.DocID, &l.Page, &l.X0, &l.Y0, &l.X1, &l.Y1, &l.Width); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repository) TextByDoc(ctx context.Context, docID string) ([]models.TextPrimitive, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, doc_id, page, x, y, text, confidence
        FROM text_primitives
        WHERE doc_id = ?
        ORDER BY id
    `, docID)
	if err != nil {
		return nil, fmt.Errorf("query text: %w", err)
	}
	defer rows.Close()

	var out []models.TextPrimitive
	for rows.Next() {
		var t models.TextPrimitive
		if err := rows.Scan(&t.ID, &t.DocID, &t.Page, &t.X, &t.Y, &t.Text, &t.Confidence); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ============================================================
// Calibration
// ============================================================

// UpsertCalibration обновляет факт калибровки по ключу.
func (r *Repository) UpsertCalibration(ctx context.Context, docID string, f models.CalibrationFact) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO calibration (doc_id, key, value, confidence, source)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (doc_id, key) DO UPDATE SET
            value = excluded.value,
            confidence = excluded.confidence,
            source = excluded.source
    `, docID, f.Key, f.Value, f.Confidence, f.Source)
	if err != nil {
		return fmt.Errorf("upsert calibration %s: %w", f.Key, err)
	}
	return nil
}

// CalibrationByDoc собирает параметры калибровки документа.
// Периметр присутствует только если заданы все четыре границы.
func (r *Repository) CalibrationByDoc(ctx context.Context, docID string) (*models.Calibration, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT key, value, confidence, source
        FROM calibration
        WHERE doc_id = ?
    `, docID)
	if err != nil {
		return nil, fmt.Errorf("query calibration: %w", err)
	}
	defer rows.Close()

	facts := make(map[string]models.CalibrationFact)
	for rows.Next() {
		var f models.CalibrationFact
		if err := rows.Scan(&f.Key, &f.Value, &f.Confidence, &f.Source); err != nil {
			return nil, err
		}
		facts[f.Key] = f
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, fmt.Errorf("calibration for doc %s: %w", docID, models.ErrMissingInput)
	}

	cal := &models.Calibration{ScaleX: 1, ScaleY: 1, Confidence: 1}
	get := func(key string, def float64) float64 {
		if f, ok := facts[key]; ok {
			if f.Confidence < cal.Confidence {
				cal.Confidence = f.Confidence
			}
			if cal.Source == "" {
				cal.Source = f.Source
			}
			return f.Value
		}
		return def
	}

	cal.ScaleX = get("scale_x", 1)
	cal.ScaleY = get("scale_y", 1)
	cal.OffsetX = get("offset_x", 0)
	cal.OffsetY = get("offset_y", 0)
	cal.Overhang = get("overhang", 0)

	_, hasMinX := facts["perimeter_min_x"]
	_, hasMinY := facts["perimeter_min_y"]
	_, hasMaxX := facts["perimeter_max_x"]
	_, hasMaxY := facts["perimeter_max_y"]
	if hasMinX && hasMinY && hasMaxX && hasMaxY {
		cal.Perimeter = &models.Rect{
			MinX: get("perimeter_min_x", 0),
			MinY: get("perimeter_min_y", 0),
			MaxX: get("perimeter_max_x", 0),
			MaxY: get("perimeter_max_y", 0),
		}
	}
	return cal, nil
}

// ============================================================
// Semantic walls
// ============================================================

// ReplaceWalls перезаписывает стены прогона. Семантика пересчитывается целиком.
func (r *Repository) ReplaceWalls(ctx context.Context, runID, docID string, walls []models.SemanticWall) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM semantic_walls WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("clear walls: %w", err)
	}
	for _, w := range walls {
		_, err := r.db.ExecContext(ctx, `
            INSERT INTO semantic_walls
                (id, run_id, doc_id, member_ids, min_x, min_y, max_x, max_y, orientation_deg, length, class)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        `, w.ID, runID, docID, joinIDs(w.Members),
			w.BBox.MinX, w.BBox.MinY, w.BBox.MaxX, w.BBox.MaxY,
			w.OrientationDeg, w.Length, w.Class)
		if err != nil {
			return fmt.Errorf("insert wall %s: %w", w.ID, err)
		}
	}
	return nil
}

func (r *Repository) WallsByRun(ctx context.Context, runID string) ([]models.SemanticWall, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, member_ids, min_x, min_y, max_x, max_y, orientation_deg, length, class
        FROM semantic_walls
        WHERE run_id = ?
        ORDER BY id
    `, runID)
	if err != nil {
		return nil, fmt.Errorf("query walls: %w", err)
	}
	defer rows.Close()

	var out []models.SemanticWall
	for rows.Next() {
		var w models.SemanticWall
		var members string
		if err := rows.Scan(&w.ID, &members, &w.BBox.MinX, &w.BBox.MinY, &w.BBox.MaxX, &w.BBox.MaxY,
			&w.OrientationDeg, &w.Length, &w.Class); err != nil {
			return nil, err
		}
		w.Members = splitIDs(members)
		out = append(out, w)
	}
	return out, rows.Err()
}

// ============================================================
// Spatial relationships
// ============================================================

func (r *Repository) ReplaceRelationships(ctx context.Context, runID string, rels []models.SpatialRelationship) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM spatial_relationships WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("clear relationships: %w", err)
	}
	for _, rel := range rels {
		_, err := r.db.ExecContext(ctx, `
            INSERT INTO spatial_relationships (run_id, subject, predicate, object, metric)
            VALUES (?, ?, ?, ?, ?)
        `, runID, rel.Subject, rel.Predicate, rel.Object, rel.Metric)
		if err != nil {
			return fmt.Errorf("insert relationship: %w", err)
		}
	}
	return nil
}

func (r *Repository) RelationshipsByRun(ctx context.Context, runID string) ([]models.SpatialRelationship, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT subject, predicate, object, metric
        FROM spatial_relationships
        WHERE run_id = ?
    `, runID)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

// RelationsOf возвращает факты с предикатом, где id — субъект, а для
// симметричных предикатов (ON, NEAR) — и где id является объектом.
func (r *Repository) RelationsOf(ctx context.Context, runID, id, predicate string) ([]models.SpatialRelationship, error) {
	symmetric := predicate == models.PredOn || predicate == models.PredNear

	query := `
        SELECT subject, predicate, object, metric
        FROM spatial_relationships
        WHERE run_id = ? AND predicate = ? AND subject = ?
    `
	args := []any{runID, predicate, id}
	if symmetric {
		query = `
            SELECT subject, predicate, object, metric
            FROM spatial_relationships
            WHERE run_id = ? AND predicate = ? AND (subject = ? OR object = ?)
        `
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query relations of %s: %w", id, err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

func scanRelationships(rows *sql.Rows) ([]models.SpatialRelationship, error) {
	var out []models.SpatialRelationship
	for rows.Next() {
		var rel models.SpatialRelationship
		if err := rows.Scan(&rel.Subject, &rel.Predicate, &rel.Object, &rel.Metric); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// ============================================================
// Geometry blobs
// ============================================================

// UpsertBlob вставляет blob, если хэша еще нет. Повторная вставка — no-op;
// возвращает, была ли строка реально записана.
func (r *Repository) UpsertBlob(ctx context.Context, b models.GeometryBlob) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        INSERT INTO base_geometries (hash, vertex_bytes, face_bytes, normal_bytes, vertex_count, face_count)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (hash) DO NOTHING
    `, b.Hash, b.VertexData, b.FaceData, b.NormalData, b.VertexCount, b.FaceCount)
	if err != nil {
		return false, fmt.Errorf("upsert blob %s: %w", b.Hash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert blob %s: %w", b.Hash, err)
	}
	return n > 0, nil
}

func (r *Repository) BlobByHash(ctx context.Context, hash string) (*models.GeometryBlob, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT hash, vertex_bytes, face_bytes, normal_bytes, vertex_count, face_count
        FROM base_geometries
        WHERE hash = ?
    `, hash)

	var b models.GeometryBlob
	if err := row.Scan(&b.Hash, &b.VertexData, &b.FaceData, &b.NormalData, &b.VertexCount, &b.FaceCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("blob %s: %w", hash, models.ErrNotFound)
		}
		return nil, err
	}
	return &b, nil
}

func (r *Repository) Blobs(ctx context.Context) ([]models.GeometryBlob, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT hash, vertex_bytes, face_bytes, normal_bytes, vertex_count, face_count
        FROM base_geometries
        ORDER BY hash
    `)
	if err != nil {
		return nil, fmt.Errorf("query blobs: %w", err)
	}
	defer rows.Close()

	var out []models.GeometryBlob
	for rows.Next() {
		var b models.GeometryBlob
		if err := rows.Scan(&b.Hash, &b.VertexData, &b.FaceData, &b.NormalData, &b.VertexCount, &b.FaceCount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBlob перезаписывает содержимое blob (repair-операции).
func (r *Repository) UpdateBlob(ctx context.Context, b models.GeometryBlob) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE base_geometries
        SET vertex_bytes = ?, face_bytes = ?, normal_bytes = ?, vertex_count = ?, face_count = ?
        WHERE hash = ?
    `, b.VertexData, b.FaceData, b.NormalData, b.VertexCount, b.FaceCount, b.Hash)
	if err != nil {
		return fmt.Errorf("update blob %s: %w", b.Hash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("blob %s: %w", b.Hash, models.ErrNotFound)
	}
	return nil
}

// ============================================================
// Object catalog
// ============================================================

func (r *Repository) EntryByType(ctx context.Context, objectType string) (*models.CatalogEntry, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT object_type, geom_hash, class, category, sub_category,
               width, depth, height, rot_x, rot_y, rot_z, material, description
        FROM object_catalog
        WHERE object_type = ?
    `, objectType)

	var e models.CatalogEntry
	if err := row.Scan(&e.ObjectType, &e.GeomHash, &e.Class, &e.Category, &e.SubCategory,
		&e.Width, &e.Depth, &e.Height, &e.RotX, &e.RotY, &e.RotZ, &e.Material, &e.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("catalog entry %s: %w", objectType, models.ErrNotFound)
		}
		return nil, err
	}
	return &e, nil
}

func (r *Repository) Entries(ctx context.Context) ([]models.CatalogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT object_type, geom_hash, class, category, sub_category,
               width, depth, height, rot_x, rot_y, rot_z, material, description
        FROM object_catalog
        ORDER BY object_type
    `)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var out []models.CatalogEntry
	for rows.Next() {
		var e models.CatalogEntry
		if err := rows.Scan(&e.ObjectType, &e.GeomHash, &e.Class, &e.Category, &e.SubCategory,
			&e.Width, &e.Depth, &e.Height, &e.RotX, &e.RotY, &e.RotZ, &e.Material, &e.Description); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EntriesByHash возвращает все записи каталога, разделяющие один blob.
func (r *Repository) EntriesByHash(ctx context.Context, hash string) ([]models.CatalogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT object_type, geom_hash, class, category, sub_category,
               width, depth, height, rot_x, rot_y, rot_z, material, description
        FROM object_catalog
        WHERE geom_hash = ?
        ORDER BY object_type
    `, hash)
	if err != nil {
		return nil, fmt.Errorf("query catalog by hash: %w", err)
	}
	defer rows.Close()

	var out []models.CatalogEntry
	for rows.Next() {
		var e models.CatalogEntry
		if err := rows.Scan(&e.ObjectType, &e.GeomHash, &e.Class, &e.Category, &e.SubCategory,
			&e.Width, &e.Depth, &e.Height, &e.RotX, &e.RotY, &e.RotZ, &e.Material, &e.Description); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveEntry вставляет или заменяет строку каталога.
func (r *Repository) SaveEntry(ctx context.Context, e models.CatalogEntry) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO object_catalog
            (object_type, geom_hash, class, category, sub_category,
             width, depth, height, rot_x, rot_y, rot_z, material, description)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (object_type) DO UPDATE SET
            geom_hash = excluded.geom_hash,
            class = excluded.class,
            category = excluded.category,
            sub_category = excluded.sub_category,
            width = excluded.width,
            depth = excluded.depth,
            height = excluded.height,
            rot_x = excluded.rot_x,
            rot_y = excluded.rot_y,
            rot_z = excluded.rot_z,
            material = excluded.material,
            description = excluded.description
    `, e.ObjectType, e.GeomHash, e.Class, e.Category, e.SubCategory,
		e.Width, e.Depth, e.Height, e.RotX, e.RotY, e.RotZ, e.Material, e.Description)
	if err != nil {
		return fmt.Errorf("save catalog entry %s: %w", e.ObjectType, err)
	}
	return nil
}

// ============================================================
// Placed objects
// ============================================================

func (r *Repository) ReplacePlaced(ctx context.Context, runID string, objects []models.PlacedObject) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM placed_objects WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("clear placed: %w", err)
	}
	for _, o := range objects {
		_, err := r.db.ExecContext(ctx, `
            INSERT INTO placed_objects (id, run_id, object_type, pos_x, pos_y, pos_z, rot_z, source)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        `, o.ID, runID, o.ObjectType, o.Position.X, o.Position.Y, o.Position.Z, o.RotationZ, o.Source)
		if err != nil {
			return fmt.Errorf("insert placed %s: %w", o.ID, err)
		}
	}
	return nil
}

func (r *Repository) PlacedByRun(ctx context.Context, runID string) ([]models.PlacedObject, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, object_type, pos_x, pos_y, pos_z, rot_z, source
        FROM placed_objects
        WHERE run_id = ?
        ORDER BY id
    `, runID)
	if err != nil {
		return nil, fmt.Errorf("query placed: %w", err)
	}
	defer rows.Close()

	var out []models.PlacedObject
	for rows.Next() {
		var o models.PlacedObject
		if err := rows.Scan(&o.ID, &o.ObjectType, &o.Position.X, &o.Position.Y, &o.Position.Z, &o.RotationZ, &o.Source); err != nil {
			return nil, err
		}
		o.RunID = runID
		out = append(out, o)
	}
	return out, rows.Err()
}

// ============================================================
// Helpers
// ============================================================

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) []int64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		if id, err := strconv.ParseInt(p, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}
