package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineStateRepository_LoadCreatesInitialRow(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewMachineStateRepository(db)
	ctx := context.Background()

	// 首次加载应创建初始行
	state, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), state.ID)
	assert.Equal(t, 0, state.Remaining)
	assert.Equal(t, 0, state.TotalServed)

	// 再次加载应返回同一行
	again, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.ID, again.ID)
}

func TestMachineStateRepository_SaveAndReload(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewMachineStateRepository(db)
	ctx := context.Background()

	state, err := repo.Load(ctx)
	require.NoError(t, err)

	state.Remaining = 42
	state.TotalServed = 8
	state.TotalServeTimeMs = 64000
	state.DailyCount = 3
	err = repo.Save(ctx, state)
	require.NoError(t, err)

	reloaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, reloaded.Remaining)
	assert.Equal(t, 8, reloaded.TotalServed)
	assert.Equal(t, uint64(64000), reloaded.TotalServeTimeMs)
	assert.Equal(t, 3, reloaded.DailyCount)
	assert.Equal(t, uint32(8000), reloaded.AverageServeTimeMs())
}

func TestMachineStateRepository_Reset(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewMachineStateRepository(db)
	ctx := context.Background()

	state, err := repo.Load(ctx)
	require.NoError(t, err)
	state.Remaining = 50
	state.TotalServed = 100
	require.NoError(t, repo.Save(ctx, state))

	err = repo.Reset(ctx)
	require.NoError(t, err)

	reloaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Remaining)
	assert.Equal(t, 0, reloaded.TotalServed)
}
