package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"plan3d/internal/builder/geometry"
	"plan3d/internal/builder/models"
	"plan3d/internal/builder/store"
)

// ============================================================
// Geometry Catalog
// ============================================================

// Catalog — контентно-адресуемое хранилище геометрии плюс реестр типов
// объектов. Blob'ы читаются часто и кэшируются на время прогона.
type Catalog struct {
	repo *store.Repository

	mu    sync.Mutex
	cache map[string]*models.GeometryBlob
}

func New(repo *store.Repository) *Catalog {
	return &Catalog{
		repo:  repo,
		cache: make(map[string]*models.GeometryBlob),
	}
}

// Insert сериализует геометрию и записывает blob под хэшем содержимого.
// Повторная вставка байт-идентичной геометрии идемпотентна: тот же хэш,
// второй blob не создается.
func (c *Catalog) Insert(ctx context.Context, vertices []models.Point3, faces [][3]uint32, normals []models.Point3) (string, error) {
	m := &models.Mesh{Vertices: vertices, Faces: faces, Normals: normals}
	blob := geometry.BlobFromMesh(m)

	inserted, err := c.repo.UpsertBlob(ctx, blob)
	if err != nil {
		return "", err
	}

	// при конфликте хэша в базе остаются старые байты нормалей,
	// кэшировать свежую сериализацию нельзя
	if inserted {
		c.mu.Lock()
		c.cache[blob.Hash] = &blob
		c.mu.Unlock()
	}

	return blob.Hash, nil
}

// InsertMesh — удобная обертка над Insert.
func (c *Catalog) InsertMesh(ctx context.Context, m *models.Mesh) (string, error) {
	return c.Insert(ctx, m.Vertices, m.Faces, m.Normals)
}

// Blob возвращает blob по хэшу, с кэшем на время прогона.
func (c *Catalog) Blob(ctx context.Context, hash string) (*models.GeometryBlob, error) {
	c.mu.Lock()
	if b, ok := c.cache[hash]; ok {
		c.mu.Unlock()
		return b, nil
	}
	c.mu.Unlock()

	b, err := c.repo.BlobByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[hash] = b
	c.mu.Unlock()
	return b, nil
}

// Register добавляет строку каталога. Занятый object_type без запроса
// замены — ошибка ErrDuplicateKey, молчаливой перезаписи нет.
func (c *Catalog) Register(ctx context.Context, e models.CatalogEntry, replace bool) error {
	if _, err := c.repo.BlobByHash(ctx, e.GeomHash); err != nil {
		return fmt.Errorf("register %s: %w", e.ObjectType, err)
	}

	existing, err := c.repo.EntryByType(ctx, e.ObjectType)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	if existing != nil && !replace {
		return fmt.Errorf("object_type %s: %w", e.ObjectType, models.ErrDuplicateKey)
	}

	return c.repo.SaveEntry(ctx, e)
}

// CloneAsVariant копирует метаданные и ссылку на геометрию под новым типом.
// Байты blob не дублируются. Существующий целевой тип — no-op с уведомлением.
func (c *Catalog) CloneAsVariant(ctx context.Context, sourceType, newType string) (bool, error) {
	source, err := c.repo.EntryByType(ctx, sourceType)
	if err != nil {
		return false, fmt.Errorf("clone source: %w", err)
	}

	if _, err := c.repo.EntryByType(ctx, newType); err == nil {
		log.Printf("[CATALOG] clone %s -> %s skipped: target already exists", sourceType, newType)
		return false, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return false, err
	}

	variant := *source
	variant.ObjectType = newType
	if err := c.repo.SaveEntry(ctx, variant); err != nil {
		return false, err
	}
	return true, nil
}

// ============================================================
// Repair operations
// ============================================================

// RepairReport — итог идемпотентной repair-команды.
type RepairReport struct {
	Repaired []string `json:"repaired"`
	Flagged  []string `json:"flagged"`
}

// RecomputeNormals досчитывает отсутствующие или неполные нормали из
// вершин и граней. Хэш не меняется: он считается только по вершинам и граням.
func (c *Catalog) RecomputeNormals(ctx context.Context) (*RepairReport, error) {
	blobs, err := c.repo.Blobs(ctx)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{}
	for _, b := range blobs {
		if len(b.NormalData) == b.FaceCount*3*12 && b.FaceCount > 0 {
			continue
		}

		m, err := geometry.MeshFromBlob(&b)
		if err != nil {
			log.Printf("[CATALOG] blob %s undecodable, flagged: %v", b.Hash, err)
			report.Flagged = append(report.Flagged, b.Hash)
			continue
		}

		geometry.ComputeNormals(m)
		b.NormalData = geometry.EncodeNormals(m.Normals)
		if err := c.repo.UpdateBlob(ctx, b); err != nil {
			return nil, err
		}
		c.invalidate(b.Hash)
		report.Repaired = append(report.Repaired, b.Hash)
	}
	return report, nil
}

// RepairCounts сверяет длины байтов со счетчиками. Чинит только когда
// расхождение целиком объясняется устаревшим счетчиком; все прочее
// помечается для ручного переизвлечения.
func (c *Catalog) RepairCounts(ctx context.Context) (*RepairReport, error) {
	blobs, err := c.repo.Blobs(ctx)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{}
	for _, b := range blobs {
		if len(b.VertexData)%12 != 0 || len(b.FaceData)%12 != 0 {
			log.Printf("[CATALOG] blob %s byte length not a whole tuple count: %s", b.Hash, models.ErrCorruption)
			report.Flagged = append(report.Flagged, b.Hash)
			continue
		}

		actualVerts := len(b.VertexData) / 12
		actualFaces := len(b.FaceData) / 12
		if actualVerts == b.VertexCount && actualFaces == b.FaceCount {
			continue
		}

		b.VertexCount = actualVerts
		b.FaceCount = actualFaces
		if err := c.repo.UpdateBlob(ctx, b); err != nil {
			return nil, err
		}
		c.invalidate(b.Hash)
		report.Repaired = append(report.Repaired, b.Hash)
	}
	return report, nil
}

// ============================================================
// Centering audit
// ============================================================

type CenteringReport struct {
	// Rehashed: старый хэш -> новый после центрирования
	Rehashed map[string]string `json:"rehashed"`
	// Updated: записи каталога, переведенные на новый хэш
	Updated []string `json:"updated"`
}

// AuditCentering проверяет blob'ы библиотечных типов (class "item"): их
// конвенция требует центрирования в начале координат. Отклонившийся центроид
// исправляется сдвигом всех вершин на минус центроид; сдвиг меняет байты и
// хэш, поэтому все записи каталога, разделяющие старый хэш, переводятся на
// новый согласованно. Типы класса "structure" стоят в мировых координатах
// и проверке не подлежат.
func (c *Catalog) AuditCentering(ctx context.Context, tol float64) (*CenteringReport, error) {
	entries, err := c.repo.Entries(ctx)
	if err != nil {
		return nil, err
	}

	report := &CenteringReport{Rehashed: make(map[string]string)}

	for _, e := range entries {
		if e.Class != models.ClassItem {
			continue
		}
		if _, done := report.Rehashed[e.GeomHash]; done {
			continue
		}

		blob, err := c.Blob(ctx, e.GeomHash)
		if err != nil {
			return nil, err
		}
		m, err := geometry.MeshFromBlob(blob)
		if err != nil {
			return nil, fmt.Errorf("audit blob %s: %w", e.GeomHash, err)
		}

		centroid := geometry.Centroid(m)
		if math.Abs(centroid.X) <= tol && math.Abs(centroid.Y) <= tol && math.Abs(centroid.Z) <= tol {
			continue
		}

		geometry.Translate(m, models.Point3{X: -centroid.X, Y: -centroid.Y, Z: -centroid.Z})
		newHash, err := c.InsertMesh(ctx, m)
		if err != nil {
			return nil, err
		}
		report.Rehashed[e.GeomHash] = newHash

		// все записи со старым хэшем переезжают вместе
		sharing, err := c.repo.EntriesByHash(ctx, e.GeomHash)
		if err != nil {
			return nil, err
		}
		for _, s := range sharing {
			s.GeomHash = newHash
			if err := c.repo.SaveEntry(ctx, s); err != nil {
				return nil, err
			}
			report.Updated = append(report.Updated, s.ObjectType)
		}
	}

	return report, nil
}

func (c *Catalog) invalidate(hash string) {
	c.mu.Lock()
	delete(c.cache, hash)
	c.mu.Unlock()
}
