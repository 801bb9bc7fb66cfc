package geometry

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan3d/internal/builder/models"
)

func TestHashDeterministic(t *testing.T) {
	m, err := Generate(models.ElementSpec{ID: "h", Shape: models.BoxShape{Width: 1, Depth: 1, Height: 1}})
	require.NoError(t, err)

	a := BlobFromMesh(m)
	b := BlobFromMesh(m)
	assert.Equal(t, a.Hash, b.Hash)

	// другой порядок вершин — другой хэш
	m.Vertices[0], m.Vertices[1] = m.Vertices[1], m.Vertices[0]
	c := BlobFromMesh(m)
	assert.NotEqual(t, a.Hash, c.Hash)
}

func TestEncodeLittleEndian(t *testing.T) {
	data := EncodeVertices([]models.Point3{{X: 1, Y: 0, Z: 0}})
	require.Len(t, data, 12)
	assert.Equal(t, math.Float32bits(1), binary.LittleEndian.Uint32(data[:4]))

	faces := EncodeFaces([][3]uint32{{0, 1, 258}})
	require.Len(t, faces, 12)
	assert.Equal(t, uint32(258), binary.LittleEndian.Uint32(faces[8:]))
}

func TestBlobRoundtrip(t *testing.T) {
	src, err := Generate(models.ElementSpec{ID: "rt", Shape: models.CylinderShape{Radius: 3, Height: 7, Segments: 6}})
	require.NoError(t, err)

	blob := BlobFromMesh(src)
	assert.Equal(t, len(src.Vertices), blob.VertexCount)
	assert.Equal(t, len(src.Faces), blob.FaceCount)

	back, err := MeshFromBlob(&blob)
	require.NoError(t, err)
	assert.Equal(t, src.Faces, back.Faces)
	require.Len(t, back.Vertices, len(src.Vertices))
	for i := range src.Vertices {
		assert.InDelta(t, src.Vertices[i].X, back.Vertices[i].X, 1e-5)
		assert.InDelta(t, src.Vertices[i].Z, back.Vertices[i].Z, 1e-5)
	}
}

func TestDecodeCorruption(t *testing.T) {
	_, err := DecodeVertices(make([]byte, 13))
	assert.ErrorIs(t, err, models.ErrCorruption)

	_, err = DecodeFaces(make([]byte, 5))
	assert.ErrorIs(t, err, models.ErrCorruption)
}
