package survey

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

func TestLoadDir(t *testing.T) {
	cat, err := LoadDir("testdata", logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())

	list, err := cat.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Summary{
		{Version: "budget-2025", Title: "Budget priorities 2025"},
		{Version: "civic-2024", Title: "Civic priorities 2024"},
	}, list)

	_, err = cat.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogAddRejectsConflictingContent(t *testing.T) {
	def, err := ParseFile(filepath.Join("testdata", "civic-2024.yaml"))
	require.NoError(t, err)
	cat, err := NewCatalog(def)
	require.NoError(t, err)
	require.NoError(t, cat.Add(def))

	other, err := ParseFile(filepath.Join("testdata", "civic-2024.yaml"))
	require.NoError(t, err)
	other.Title = "Changed"
	assert.Error(t, cat.Add(other))
}

type fakeSource struct {
	docs  map[string]*alignment.SurveyDocument
	calls atomic.Int32
}

func (f *fakeSource) GetByVersion(_ dbctx.Context, version string) (*alignment.SurveyDocument, error) {
	f.calls.Add(1)
	return f.docs[version], nil
}

func (f *fakeSource) List(_ dbctx.Context) ([]*alignment.SurveyDocument, error) {
	out := make([]*alignment.SurveyDocument, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, d)
	}
	return out, nil
}

func TestStoreProviderCachesParsedDocuments(t *testing.T) {
	def, err := ParseFile(filepath.Join("testdata", "budget-2025.json"))
	require.NoError(t, err)
	raw, err := def.Canonical()
	require.NoError(t, err)

	src := &fakeSource{docs: map[string]*alignment.SurveyDocument{
		"budget-2025": {Version: "budget-2025", Title: def.Title, Document: raw},
	}}
	p := NewStoreProvider(src, logger.Nop())

	for i := 0; i < 3; i++ {
		got, err := p.Get(context.Background(), "budget-2025")
		require.NoError(t, err)
		assert.Equal(t, "budget-2025", got.Version)
	}
	assert.Equal(t, int32(1), src.calls.Load())

	_, err = p.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChainFallsThroughOnNotFound(t *testing.T) {
	civic, err := ParseFile(filepath.Join("testdata", "civic-2024.yaml"))
	require.NoError(t, err)
	budget, err := ParseFile(filepath.Join("testdata", "budget-2025.json"))
	require.NoError(t, err)
	first, _ := NewCatalog(civic)
	second, _ := NewCatalog(budget, civic)

	chain := Chain{first, second}
	got, err := chain.Get(context.Background(), "budget-2025")
	require.NoError(t, err)
	assert.Equal(t, "budget-2025", got.Version)

	_, err = chain.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	list, err := chain.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
