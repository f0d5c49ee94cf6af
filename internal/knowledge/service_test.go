package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callrounded-manager/internal/store"
)

func newService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, store.OpenConfig{URL: "sqlite::memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx, db))
	t.Cleanup(func() { _ = store.Close(db) })
	s := store.New(db)

	require.NoError(t, s.UpsertKnowledgeBase(ctx, store.KnowledgeBase{ID: "kb1", UserID: 1, Name: "Salon", SourceCount: 2}))
	for _, id := range []string{"s1", "s2"} {
		require.NoError(t, s.UpsertKnowledgeBaseSource(ctx, store.KnowledgeBaseSource{
			ID: id, KnowledgeBaseID: "kb1", FileName: id + ".pdf", Type: store.SourceFile,
		}))
	}
	return NewService(s), s
}

func TestService_GetIsTenantScoped(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	d, err := svc.Get(ctx, 1, "kb1")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Len(t, d.Sources, 2)

	d, err = svc.Get(ctx, 2, "kb1")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, ok, err := svc.Sources(ctx, 2, "kb1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_DeleteSourcesDedupes(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.DeleteSources(ctx, 1, "kb1", []string{" ", ""})
	assert.ErrorIs(t, err, ErrNoSources)

	res, err := svc.DeleteSources(ctx, 1, "kb1", []string{"s1", "s1", " s1 "})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.EqualValues(t, 1, res.Deleted)
	assert.Equal(t, 1, res.SourceCount)

	sources, ok, err := svc.Sources(ctx, 1, "kb1")
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, sources, 1)
	assert.Equal(t, "s2", sources[0].ID)

	missing, err := svc.DeleteSources(ctx, 2, "kb1", []string{"s2"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}
