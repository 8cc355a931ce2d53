package repository

import (
	"context"
	"errors"

	"github.com/wfunc/coffee-bearer/internal/models"
	"gorm.io/gorm"
)

// CredentialRepository 卡片仓储接口
type CredentialRepository interface {
	Create(ctx context.Context, cred *models.Credential) error
	Update(ctx context.Context, cred *models.Credential) error
	Delete(ctx context.Context, uid string) error
	FindByUID(ctx context.Context, uid string) (*models.Credential, error)
	GetAll(ctx context.Context) ([]*models.Credential, error)
	Count(ctx context.Context) (int64, error)
	SaveAll(ctx context.Context, creds []*models.Credential) error
	TotalCredits(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
}

// credentialRepo 卡片仓储实现
type credentialRepo struct {
	*BaseRepo
}

// NewCredentialRepository 创建卡片仓储
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建卡片记录
func (r *credentialRepo) Create(ctx context.Context, cred *models.Credential) error {
	return r.db.WithContext(ctx).Create(cred).Error
}

// Update 更新卡片记录
func (r *credentialRepo) Update(ctx context.Context, cred *models.Credential) error {
	return r.db.WithContext(ctx).Save(cred).Error
}

// Delete 删除卡片记录（硬删除，卡片注销后不保留）
func (r *credentialRepo) Delete(ctx context.Context, uid string) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("uid = ?", uid).
		Delete(&models.Credential{}).Error
}

// FindByUID 根据UID查找卡片
func (r *credentialRepo) FindByUID(ctx context.Context, uid string) (*models.Credential, error) {
	var cred models.Credential
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("卡片不存在")
		}
		return nil, err
	}
	return &cred, nil
}

// GetAll 获取所有卡片记录
func (r *credentialRepo) GetAll(ctx context.Context) ([]*models.Credential, error) {
	var creds []*models.Credential
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&creds).Error
	return creds, err
}

// Count 统计卡片数量
func (r *credentialRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Credential{}).Count(&count).Error
	return count, err
}

// SaveAll 批量保存卡片记录（写回落盘）
func (r *credentialRepo) SaveAll(ctx context.Context, creds []*models.Credential) error {
	if len(creds) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, cred := range creds {
			if err := tx.Save(cred).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// TotalCredits 统计系统内剩余总额度
func (r *credentialRepo) TotalCredits(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Credential{}).
		Select("COALESCE(SUM(credits), 0)").
		Scan(&total).Error
	return total, err
}

// DeleteAll 清空所有卡片记录（恢复出厂）
func (r *credentialRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("1 = 1").
		Delete(&models.Credential{}).Error
}
