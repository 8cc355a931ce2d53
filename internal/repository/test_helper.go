package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/coffee-bearer/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.Credential{},
		&models.MachineState{},
		&models.EventLog{},
		&models.AdminAccount{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SeedTestCredentials 创建测试卡片数据
func SeedTestCredentials(t *testing.T, db *gorm.DB) []*models.Credential {
	creds := []*models.Credential{
		{
			UID:     "04 A3 B2 C1",
			Name:    "张三",
			Credits: 10,
			Active:  true,
		},
		{
			UID:     "04 D5 E6 F7",
			Name:    "李四",
			Credits: 3,
			Active:  true,
		},
		{
			UID:     "04 00 11 22",
			Name:    "王五",
			Credits: 0,
			Active:  true,
		},
	}
	for _, cred := range creds {
		err := db.Create(cred).Error
		require.NoError(t, err)
	}
	return creds
}
