package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/jewel_catalog/internal/models"
	"github.com/GTDGit/jewel_catalog/internal/utils"
)

func TestDesignRegistry_Upsert(t *testing.T) {
	store := newFakeDesignStore()
	reg := NewDesignRegistry(store, true)
	ctx := context.Background()
	fields := models.DesignFields{Category: "Rings", ImageBasePath: "https://img/D1"}

	res, err := reg.Upsert(ctx, "D1", fields, false)
	require.NoError(t, err)
	assert.Equal(t, models.UpsertCreated, res)
	assert.True(t, store.active("D1"))

	res, err = reg.Upsert(ctx, "D1", fields, false)
	require.NoError(t, err)
	assert.Equal(t, models.UpsertSkipped, res)
	assert.Equal(t, 1, store.writes)

	res, err = reg.Upsert(ctx, "D1", fields, true)
	require.NoError(t, err)
	assert.Equal(t, models.UpsertUpdated, res)

	fields.Description = "Changed"
	res, err = reg.Upsert(ctx, "D1", fields, false)
	require.NoError(t, err)
	assert.Equal(t, models.UpsertUpdated, res)
}

func TestDesignRegistry_UpsertRequiresDesignNo(t *testing.T) {
	reg := NewDesignRegistry(newFakeDesignStore(), true)

	res, err := reg.Upsert(context.Background(), "   ", models.DesignFields{}, false)
	assert.Equal(t, models.UpsertSkipped, res)
	assert.True(t, errors.Is(err, utils.ErrValidation))
}

func TestDesignRegistry_SetActive(t *testing.T) {
	store := newFakeDesignStore()
	store.seed("D1", true, models.DesignFields{})
	reg := NewDesignRegistry(store, true)
	ctx := context.Background()

	require.NoError(t, reg.SetActive(ctx, "D1", false))
	active, err := reg.ListActive(ctx)
	require.NoError(t, err)
	assert.NotContains(t, active, "D1")

	err = reg.SetActive(ctx, "NOPE", true)
	assert.True(t, errors.Is(err, utils.ErrDesignNotFound))

	_, err = reg.Get(ctx, "NOPE")
	assert.True(t, errors.Is(err, utils.ErrDesignNotFound))
}

func TestDesignRegistry_Toggle(t *testing.T) {
	store := newFakeDesignStore()
	store.seed("D1", true, models.DesignFields{})
	reg := NewDesignRegistry(store, true)
	ctx := context.Background()

	active, err := reg.Toggle(ctx, "D1")
	require.NoError(t, err)
	assert.False(t, active)
	assert.False(t, store.active("D1"))

	active, err = reg.Toggle(ctx, "D1")
	require.NoError(t, err)
	assert.True(t, active)

	_, err = reg.Toggle(ctx, "NOPE")
	assert.True(t, errors.Is(err, utils.ErrDesignNotFound))
}
