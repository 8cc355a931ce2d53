package repository

import (
	"context"

	"github.com/wfunc/coffee-bearer/internal/models"
	"gorm.io/gorm"
)

// EventLogRepository 事件日志仓储接口
type EventLogRepository interface {
	Create(ctx context.Context, log *models.EventLog) error
	GetRecent(ctx context.Context, limit int) ([]*models.EventLog, error)
	GetByCategory(ctx context.Context, category models.EventCategory, pagination *Pagination) ([]*models.EventLog, error)
	Prune(ctx context.Context, keep int) error
	DeleteAll(ctx context.Context) error
}

// eventLogRepo 事件日志仓储实现
type eventLogRepo struct {
	*BaseRepo
}

// NewEventLogRepository 创建事件日志仓储
func NewEventLogRepository(db *gorm.DB) EventLogRepository {
	return &eventLogRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 写入一条事件日志
func (r *eventLogRepo) Create(ctx context.Context, log *models.EventLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// GetRecent 获取最近的事件日志
func (r *eventLogRepo) GetRecent(ctx context.Context, limit int) ([]*models.EventLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	var logs []*models.EventLog
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// GetByCategory 按分类分页查询事件日志
func (r *eventLogRepo) GetByCategory(ctx context.Context, category models.EventCategory, pagination *Pagination) ([]*models.EventLog, error) {
	var logs []*models.EventLog
	query := r.db.WithContext(ctx).Model(&models.EventLog{}).
		Where("category = ?", category)

	// 获取总数
	var total int64
	query.Count(&total)
	pagination.Total = total

	// 分页查询
	err := query.
		Scopes(Paginate(pagination)).
		Order("id DESC").
		Find(&logs).Error

	return logs, err
}

// Prune 修剪日志，仅保留最近keep条
func (r *eventLogRepo) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		keep = 500
	}
	return r.db.WithContext(ctx).Exec(
		"DELETE FROM event_logs WHERE id NOT IN (SELECT id FROM event_logs ORDER BY id DESC LIMIT ?)",
		keep,
	).Error
}

// DeleteAll 清空所有事件日志（恢复出厂）
func (r *eventLogRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("1 = 1").
		Delete(&models.EventLog{}).Error
}
