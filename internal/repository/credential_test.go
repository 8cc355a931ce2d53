package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/coffee-bearer/internal/models"
)

func TestCredentialRepository_Create(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewCredentialRepository(db)
	ctx := context.Background()

	cred := &models.Credential{
		UID:     "04 AA BB CC",
		Name:    "测试用户",
		Credits: 10,
		Active:  true,
	}
	err := repo.Create(ctx, cred)
	require.NoError(t, err)
	assert.NotZero(t, cred.ID)

	// 验证可以查回
	found, err := repo.FindByUID(ctx, cred.UID)
	require.NoError(t, err)
	assert.Equal(t, "测试用户", found.Name)
	assert.Equal(t, 10, found.Credits)
}

func TestCredentialRepository_DuplicateUID(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewCredentialRepository(db)
	ctx := context.Background()

	cred := &models.Credential{UID: "04 AA BB CC", Name: "甲", Credits: 5}
	require.NoError(t, repo.Create(ctx, cred))

	// UID唯一索引应拒绝重复
	dup := &models.Credential{UID: "04 AA BB CC", Name: "乙", Credits: 5}
	err := repo.Create(ctx, dup)
	assert.Error(t, err)
}

func TestCredentialRepository_Update(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewCredentialRepository(db)
	ctx := context.Background()

	creds := SeedTestCredentials(t, db)

	creds[0].Credits = 7
	creds[0].LastUsedMs = 120000
	err := repo.Update(ctx, creds[0])
	require.NoError(t, err)

	found, err := repo.FindByUID(ctx, creds[0].UID)
	require.NoError(t, err)
	assert.Equal(t, 7, found.Credits)
	assert.Equal(t, uint32(120000), found.LastUsedMs)
}

func TestCredentialRepository_Delete(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewCredentialRepository(db)
	ctx := context.Background()

	creds := SeedTestCredentials(t, db)

	err := repo.Delete(ctx, creds[1].UID)
	require.NoError(t, err)

	_, err = repo.FindByUID(ctx, creds[1].UID)
	assert.Error(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCredentialRepository_SaveAll(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewCredentialRepository(db)
	ctx := context.Background()

	creds := SeedTestCredentials(t, db)

	// 模拟每周额度重置后的批量落盘
	for _, cred := range creds {
		cred.Credits = 10
	}
	err := repo.SaveAll(ctx, creds)
	require.NoError(t, err)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, cred := range all {
		assert.Equal(t, 10, cred.Credits)
	}
}

func TestCredentialRepository_TotalCredits(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewCredentialRepository(db)
	ctx := context.Background()

	// 空表返回0
	total, err := repo.TotalCredits(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	SeedTestCredentials(t, db)

	total, err = repo.TotalCredits(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(13), total)
}

func TestCredentialRepository_DeleteAll(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewCredentialRepository(db)
	ctx := context.Background()

	SeedTestCredentials(t, db)

	err := repo.DeleteAll(ctx)
	require.NoError(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
