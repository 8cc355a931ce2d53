package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/coffee-bearer/internal/models"
	"gorm.io/gorm"
)

// AdminRepository 管理账户仓储接口
type AdminRepository interface {
	Create(ctx context.Context, account *models.AdminAccount) error
	Update(ctx context.Context, account *models.AdminAccount) error
	FindByUsername(ctx context.Context, username string) (*models.AdminAccount, error)
	FindByID(ctx context.Context, id uint) (*models.AdminAccount, error)
	Count(ctx context.Context) (int64, error)
	UpdateLastLogin(ctx context.Context, id uint, ip string) error
}

// adminRepo 管理账户仓储实现
type adminRepo struct {
	*BaseRepo
}

// NewAdminRepository 创建管理账户仓储
func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建管理账户
func (r *adminRepo) Create(ctx context.Context, account *models.AdminAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// Update 更新管理账户
func (r *adminRepo) Update(ctx context.Context, account *models.AdminAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// FindByUsername 根据用户名查找管理账户
func (r *adminRepo) FindByUsername(ctx context.Context, username string) (*models.AdminAccount, error) {
	var account models.AdminAccount
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("账户不存在")
		}
		return nil, err
	}
	return &account, nil
}

// FindByID 根据ID查找管理账户
func (r *adminRepo) FindByID(ctx context.Context, id uint) (*models.AdminAccount, error) {
	var account models.AdminAccount
	err := r.db.WithContext(ctx).First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("账户不存在")
		}
		return nil, err
	}
	return &account, nil
}

// Count 统计管理账户数量
func (r *adminRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AdminAccount{}).Count(&count).Error
	return count, err
}

// UpdateLastLogin 更新最后登录信息
func (r *adminRepo) UpdateLastLogin(ctx context.Context, id uint, ip string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.AdminAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_login_at": &now,
			"last_login_ip": ip,
		}).Error
}
