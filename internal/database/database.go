package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wfunc/coffee-bearer/internal/config"
	"github.com/wfunc/coffee-bearer/internal/logger"
	"github.com/wfunc/coffee-bearer/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB 全局数据库实例
var DB *gorm.DB

// 慢SQL阈值。设备上的sqlite库通常落在SD卡，阈值放宽
const slowThreshold = 500 * time.Millisecond

// 单机控制器需要的连接数很小，配置缺省时按此取值
const (
	defaultMaxIdleConns = 2
	defaultMaxOpenConns = 8
	defaultConnLifetime = time.Hour
)

// Init 初始化数据库连接。设备默认sqlite单文件库，
// mysql/postgres供多台机器汇聚到同一后端的部署使用
func Init(cfg *config.DatabaseConfig) error {
	dialector, err := openDialector(cfg)
	if err != nil {
		return err
	}

	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger:                 newGormLogger(logger.GetLogger(), cfg.LogLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("获取数据库实例失败: %w", err)
	}

	idle, open, lifetime := cfg.MaxIdleConns, cfg.MaxOpenConns, cfg.ConnMaxLifetime
	if idle <= 0 {
		idle = defaultMaxIdleConns
	}
	if open <= 0 {
		open = defaultMaxOpenConns
	}
	if lifetime <= 0 {
		lifetime = defaultConnLifetime
	}
	sqlDB.SetMaxIdleConns(idle)
	sqlDB.SetMaxOpenConns(open)
	sqlDB.SetConnMaxLifetime(lifetime)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("数据库连接测试失败: %w", err)
	}

	logger.Info("数据库连接成功",
		zap.String("driver", cfg.Driver),
		zap.String("dsn", cfg.DSN),
	)
	return nil
}

// openDialector 按驱动选择方言，sqlite先确保库文件目录存在
func openDialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "sqlite", "sqlite3":
		if err := ensureDataDir(cfg.DSN); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
		return sqlite.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "postgres", "postgresql":
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}
}

// ensureDataDir sqlite库文件的上级目录不存在时先创建
func ensureDataDir(dsn string) error {
	if dsn == "" || strings.Contains(dsn, ":memory:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// AutoMigrate 迁移表结构并写入机器状态初始行
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	if err := DB.AutoMigrate(
		&models.Credential{},
		&models.MachineState{},
		&models.EventLog{},
		&models.AdminAccount{},
	); err != nil {
		return fmt.Errorf("迁移表结构失败: %w", err)
	}

	return seedMachineState()
}

// seedMachineState 机器状态为单行表（ID固定为1），首次启动创建初始行，
// 容器按空仓起步，等待补货
func seedMachineState() error {
	var count int64
	if err := DB.Model(&models.MachineState{}).Count(&count).Error; err != nil {
		return fmt.Errorf("检查机器状态失败: %w", err)
	}
	if count > 0 {
		return nil
	}

	if err := DB.Create(&models.MachineState{ID: 1}).Error; err != nil {
		return fmt.Errorf("创建初始机器状态失败: %w", err)
	}
	logger.Info("已创建初始机器状态")
	return nil
}

// Close 关闭数据库连接
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB 获取数据库实例
func GetDB() *gorm.DB {
	return DB
}

// IsConnected 检查数据库是否连接
func IsConnected() bool {
	if DB == nil {
		return false
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}

// gormZapLogger gorm日志适配到zap
type gormZapLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
}

// newGormLogger 按配置的日志级别创建适配器
func newGormLogger(log *zap.Logger, level string) *gormZapLogger {
	lv := gormlogger.Warn
	switch level {
	case "silent":
		lv = gormlogger.Silent
	case "error":
		lv = gormlogger.Error
	case "info":
		lv = gormlogger.Info
	}
	return &gormZapLogger{log: log, level: lv}
}

// LogMode 设置日志级别
func (l *gormZapLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info 输出信息日志
func (l *gormZapLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Sugar().Infof(msg, args...)
	}
}

// Warn 输出警告日志
func (l *gormZapLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Sugar().Warnf(msg, args...)
	}
}

// Error 输出错误日志
func (l *gormZapLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Sugar().Errorf(msg, args...)
	}
}

// Trace 输出SQL追踪日志。记录未命中属正常查询路径，不按错误上报
func (l *gormZapLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	cost := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("cost", cost),
	}

	switch {
	case err != nil && err != gorm.ErrRecordNotFound && l.level >= gormlogger.Error:
		l.log.Error("SQL执行失败", append(fields, zap.Error(err))...)
	case cost >= slowThreshold && l.level >= gormlogger.Warn:
		l.log.Warn("SQL执行缓慢", fields...)
	case l.level >= gormlogger.Info:
		l.log.Debug("SQL执行", fields...)
	}
}
