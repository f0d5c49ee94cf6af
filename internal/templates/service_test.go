package templates

import (
	"context"
	"testing"

	"callrounded-manager/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, store.OpenConfig{URL: "sqlite::memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx, db))
	t.Cleanup(func() { _ = store.Close(db) })
	return NewService(store.New(db))
}

func TestSeedPresets_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	res, err := svc.SeedPresets(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Created: len(Presets()), TotalPresets: len(Presets())}, res)

	res, err = svc.SeedPresets(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Created)

	out, err := svc.Presets(ctx)
	require.NoError(t, err)
	require.Len(t, out, len(Presets()))
	assert.Equal(t, "beauty", out[0].Category)
	for _, p := range out {
		assert.True(t, p.IsPreset)
		assert.Nil(t, p.UserID)
	}
}

func TestCreate_AppliesDefaultsAndValidates(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	tpl, err := svc.Create(ctx, 1, 1, Input{Name: " Garage ", Greeting: "Bonjour", SystemPrompt: "Tu réponds au garage."})
	require.NoError(t, err)
	assert.Equal(t, "Garage", tpl.Name)
	assert.Equal(t, CategoryCustom, tpl.Category)
	assert.Equal(t, DefaultIcon, tpl.Icon)
	assert.Equal(t, DefaultVoice, tpl.Voice)
	assert.Equal(t, DefaultLanguage, tpl.Language)
	assert.False(t, tpl.IsPreset)

	_, err = svc.Create(ctx, 1, 1, Input{Name: "Garage", Greeting: "x", SystemPrompt: "y"})
	require.ErrorIs(t, err, store.ErrConflict)

	_, err = svc.Create(ctx, 1, 1, Input{Name: "Shop", Category: "space", Greeting: "x", SystemPrompt: "y"})
	require.ErrorIs(t, err, ErrInvalidTemplate)

	_, err = svc.Create(ctx, 1, 1, Input{Name: "Shop"})
	require.ErrorIs(t, err, ErrInvalidTemplate)

	_, err = svc.List(ctx, 1, "space", true)
	require.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestUpdateAndUse_PresetsAreReadOnly(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.SeedPresets(ctx)
	require.NoError(t, err)

	list, err := svc.List(ctx, 1, "food", true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	preset := list[0]

	name := "Mon restaurant"
	got, err := svc.Update(ctx, 1, preset.ID, Patch{Name: &name})
	require.NoError(t, err)
	assert.Nil(t, got)

	used, err := svc.Use(ctx, 1, preset.ID)
	require.NoError(t, err)
	require.NotNil(t, used)
	assert.Equal(t, 1, used.UsageCount)

	own, err := svc.Create(ctx, 1, 1, Input{Name: "Pizzeria", Category: "food", Greeting: "Pronto", SystemPrompt: "Tu prends les commandes."})
	require.NoError(t, err)
	got, err = svc.Update(ctx, 1, own.ID, Patch{Name: &name})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, name, got.Name)

	got, err = svc.Update(ctx, 2, own.ID, Patch{Name: &name})
	require.NoError(t, err)
	assert.Nil(t, got)

	list, err = svc.List(ctx, 1, "food", true)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].IsPreset)

	ok, err := svc.Delete(ctx, 1, own.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}
