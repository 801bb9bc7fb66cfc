package geometry

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"plan3d/internal/builder/models"
)

// ============================================================
// Binary codec
// ============================================================

// Формат хранения: little-endian float32 для вершин и нормалей,
// little-endian uint32 для индексов граней. Фиксированная ширина —
// хэш содержимого воспроизводим на любой платформе.

const (
	vertexStride = 12 // 3 × float32
	faceStride   = 12 // 3 × uint32
)

func EncodeVertices(vertices []models.Point3) []byte {
	buf := make([]byte, 0, len(vertices)*vertexStride)
	for _, v := range vertices {
		buf = appendFloat32(buf, v.X)
		buf = appendFloat32(buf, v.Y)
		buf = appendFloat32(buf, v.Z)
	}
	return buf
}

func EncodeFaces(faces [][3]uint32) []byte {
	buf := make([]byte, 0, len(faces)*faceStride)
	for _, f := range faces {
		buf = binary.LittleEndian.AppendUint32(buf, f[0])
		buf = binary.LittleEndian.AppendUint32(buf, f[1])
		buf = binary.LittleEndian.AppendUint32(buf, f[2])
	}
	return buf
}

// EncodeNormals — тот же формат, что и вершины.
func EncodeNormals(normals []models.Point3) []byte {
	return EncodeVertices(normals)
}

func DecodeVertices(data []byte) ([]models.Point3, error) {
	if len(data)%vertexStride != 0 {
		return nil, fmt.Errorf("vertex bytes length %d: %w", len(data), models.ErrCorruption)
	}
	out := make([]models.Point3, 0, len(data)/vertexStride)
	for off := 0; off < len(data); off += vertexStride {
		out = append(out, models.Point3{
			X: float32At(data, off),
			Y: float32At(data, off+4),
			Z: float32At(data, off+8),
		})
	}
	return out, nil
}

func DecodeFaces(data []byte) ([][3]uint32, error) {
	if len(data)%faceStride != 0 {
		return nil, fmt.Errorf("face bytes length %d: %w", len(data), models.ErrCorruption)
	}
	out := make([][3]uint32, 0, len(data)/faceStride)
	for off := 0; off < len(data); off += faceStride {
		out = append(out, [3]uint32{
			binary.LittleEndian.Uint32(data[off:]),
			binary.LittleEndian.Uint32(data[off+4:]),
			binary.LittleEndian.Uint32(data[off+8:]),
		})
	}
	return out, nil
}

func DecodeNormals(data []byte) ([]models.Point3, error) {
	return DecodeVertices(data)
}

// ============================================================
// Content hash
// ============================================================

// HashContent — детерминированный хэш по точным байтам вершин и граней.
func HashContent(vertexBytes, faceBytes []byte) string {
	h := sha256.New()
	h.Write(vertexBytes)
	h.Write(faceBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// BlobFromMesh сериализует меш в blob с заполненным хэшем и счетчиками.
func BlobFromMesh(m *models.Mesh) models.GeometryBlob {
	vb := EncodeVertices(m.Vertices)
	fb := EncodeFaces(m.Faces)
	return models.GeometryBlob{
		Hash:        HashContent(vb, fb),
		VertexData:  vb,
		FaceData:    fb,
		NormalData:  EncodeNormals(m.Normals),
		VertexCount: len(m.Vertices),
		FaceCount:   len(m.Faces),
	}
}

// MeshFromBlob восстанавливает меш из сериализованного blob.
func MeshFromBlob(b *models.GeometryBlob) (*models.Mesh, error) {
	vertices, err := DecodeVertices(b.VertexData)
	if err != nil {
		return nil, err
	}
	faces, err := DecodeFaces(b.FaceData)
	if err != nil {
		return nil, err
	}
	m := &models.Mesh{Vertices: vertices, Faces: faces}
	if len(b.NormalData) > 0 {
		normals, err := DecodeNormals(b.NormalData)
		if err != nil {
			return nil, err
		}
		m.Normals = normals
	}
	return m, nil
}

// ============================================================
// Helpers
// ============================================================

func appendFloat32(buf []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v)))
}

func float32At(data []byte, off int) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:])))
}
