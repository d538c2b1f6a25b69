package staging

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litoarte-backend/internal/errs"
	"litoarte-backend/internal/models"
)

func newStaging(t *testing.T) *Staging {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func draftPayload() *models.OrderRequest {
	return &models.OrderRequest{
		Contact: &models.Contact{Name: "Maria", Email: "maria@example.com"},
		Product: &models.ProductInfo{Type: models.ProductTypeWall, Name: "Lámpara de pared"},
		Prices:  &models.Prices{Base: 75, Total: 75},
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	s := newStaging(t)

	require.NoError(t, s.SavePayload("tok-1", draftPayload()))

	got, err := s.LoadPayload("tok-1")
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", got.Contact.Email)
	assert.Equal(t, models.ProductTypeWall, got.Product.Type)
	assert.InDelta(t, 75, got.Prices.Base, 0.001)
}

func TestLoadPayloadMissing(t *testing.T) {
	s := newStaging(t)

	_, err := s.LoadPayload("tok-desconocido")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestMarker(t *testing.T) {
	s := newStaging(t)

	_, ok := s.Marker("tok-2")
	assert.False(t, ok)

	_, err := s.TempDir("tok-2")
	require.NoError(t, err)
	require.NoError(t, s.WriteMarker("tok-2", "LITO-20260901-005001"))

	orderNumber, ok := s.Marker("tok-2")
	assert.True(t, ok)
	assert.Equal(t, "LITO-20260901-005001", orderNumber)
}

func TestMoveAssets(t *testing.T) {
	s := newStaging(t)

	require.NoError(t, s.SavePayload("tok-3", draftPayload()))
	dir, err := s.TempDir("tok-3")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foto1.jpg"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foto2.jpg"), []byte("b"), 0o644))
	require.NoError(t, s.WriteMarker("tok-3", "LITO-20260901-005002"))

	moved, err := s.MoveAssets("tok-3", "LITO-20260901-005002")
	require.NoError(t, err)
	require.Len(t, moved, 2)
	for _, path := range moved {
		assert.FileExists(t, path)
		assert.Contains(t, path, "LITO-20260901-005002")
	}

	// Payload and marker stay behind for the cleanup step.
	assert.FileExists(t, filepath.Join(dir, "order.json"))
	assert.FileExists(t, filepath.Join(dir, "confirmed.json"))
	assert.NoFileExists(t, filepath.Join(dir, "foto1.jpg"))
}

func TestMoveAssetsMissingDir(t *testing.T) {
	s := newStaging(t)

	moved, err := s.MoveAssets("tok-inexistente", "LITO-20260901-005003")
	require.NoError(t, err)
	assert.Empty(t, moved)
}

func TestRemove(t *testing.T) {
	s := newStaging(t)

	require.NoError(t, s.SavePayload("tok-4", draftPayload()))
	require.NoError(t, s.Remove("tok-4"))

	_, err := s.LoadPayload("tok-4")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestSafeFilename(t *testing.T) {
	name := SafeFilename("mi foto (1).jpg")
	assert.Regexp(t, regexp.MustCompile(`^\d+_mi_foto__1_\.jpg$`), name)

	empty := SafeFilename("")
	assert.Regexp(t, regexp.MustCompile(`^\d+_foto$`), empty)
}
