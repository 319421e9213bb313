package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/noticeflow/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/workspace"
)

func newTestAssembler(t *testing.T) (*UnitAssembler, *memory.UnitStore, *workspace.Layout) {
	t.Helper()
	layout, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	units := memory.NewUnitStore()
	a := NewUnitAssembler(units, memory.NewHashCache(), layout, domain.DefaultPipelineConfig())
	return a, units, layout
}

func stageFile(t *testing.T, dir, name, content string) ClassifiedFile {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	return ClassifiedFile{
		Path:           path,
		OriginalName:   name,
		StoredName:     name,
		Classification: pdfTextClassification(),
	}
}

func TestAssembleSingleFile(t *testing.T) {
	a, units, layout := newTestAssembler(t)
	staging := t.TempDir()
	content := "%PDF-1.4 tender body"
	file := stageFile(t, staging, "tender.pdf", content)

	unit, fromCache, err := a.Assemble(context.Background(), "fed44/001", []ClassifiedFile{file})
	require.NoError(t, err)
	assert.False(t, fromCache)

	sum := sha256.Sum256([]byte(content))
	wantID := domain.UnitIDFor(hex.EncodeToString(sum[:]))
	assert.Equal(t, wantID, unit.ID)
	assert.Equal(t, domain.RoutePDFText, unit.Route)
	assert.Equal(t, domain.UnitReady, unit.Status)

	// File and manifest on disk.
	unitDir := filepath.Join(layout.Units(), unit.ID)
	assert.FileExists(t, filepath.Join(unitDir, "tender.pdf"))
	data, err := os.ReadFile(filepath.Join(unitDir, manifestName))
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, unit.ID, m.UnitID)
	assert.Equal(t, "fed44/001", m.SourceKey)
	require.Len(t, m.Files, 1)
	assert.Equal(t, hex.EncodeToString(sum[:]), m.Files[0].SHA256)

	// Manifest also persisted in the store.
	stored, err := units.GetManifest(context.Background(), unit.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(stored))
}

func TestAssembleIsIdempotent(t *testing.T) {
	a, _, _ := newTestAssembler(t)
	ctx := context.Background()

	first, fromCache, err := a.Assemble(ctx, "", []ClassifiedFile{
		stageFile(t, t.TempDir(), "a.pdf", "identical bytes"),
	})
	require.NoError(t, err)
	assert.False(t, fromCache)

	// Same content under a different name reuses the unit via the cache.
	second, fromCache, err := a.Assemble(ctx, "", []ClassifiedFile{
		stageFile(t, t.TempDir(), "b.pdf", "identical bytes"),
	})
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, first.ID, second.ID)
}

func TestAssembleMarksDuplicates(t *testing.T) {
	a, _, layout := newTestAssembler(t)
	staging := t.TempDir()

	files := []ClassifiedFile{
		stageFile(t, staging, "original.pdf", "same content"),
		stageFile(t, staging, "copy.pdf", "same content"),
	}
	unit, _, err := a.Assemble(context.Background(), "", files)
	require.NoError(t, err)

	require.Len(t, unit.Files, 2)
	assert.False(t, unit.Files[0].IsDuplicate)
	assert.True(t, unit.Files[1].IsDuplicate)
	assert.Equal(t, unit.Files[0].ID, unit.Files[1].OriginalFileID)

	// One distinct content, so the route is the single-file route and
	// only the original is copied into the unit directory.
	assert.Equal(t, domain.RoutePDFText, unit.Route)
	unitDir := filepath.Join(layout.Units(), unit.ID)
	assert.FileExists(t, filepath.Join(unitDir, "original.pdf"))
	assert.NoFileExists(t, filepath.Join(unitDir, "copy.pdf"))
}

func TestAssembleMixedRoute(t *testing.T) {
	a, _, _ := newTestAssembler(t)
	staging := t.TempDir()

	docx := stageFile(t, staging, "letter.docx", "docx bytes")
	docx.Classification = domain.Classification{
		DetectedType: domain.TypeDocx, Processable: true,
	}
	files := []ClassifiedFile{
		stageFile(t, staging, "tender.pdf", "pdf bytes"),
		docx,
	}

	unit, _, err := a.Assemble(context.Background(), "", files)
	require.NoError(t, err)
	assert.Equal(t, domain.RouteMixed, unit.Route)
}

func TestAssembleMissingFile(t *testing.T) {
	a, _, _ := newTestAssembler(t)
	staging := t.TempDir()

	files := []ClassifiedFile{
		stageFile(t, staging, "tender.pdf", "%PDF-1.4"),
		{
			Path:           filepath.Join(staging, "vanished.pdf"),
			OriginalName:   "vanished.pdf",
			StoredName:     "vanished.pdf",
			Classification: pdfTextClassification(),
		},
	}

	_, _, err := a.Assemble(context.Background(), "", files)
	assert.ErrorIs(t, err, domain.ErrMissingFile)
}

func TestAssembleEmpty(t *testing.T) {
	a, _, _ := newTestAssembler(t)

	_, _, err := a.Assemble(context.Background(), "", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyUnit)
}
