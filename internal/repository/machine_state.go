package repository

import (
	"context"
	"errors"

	"github.com/wfunc/coffee-bearer/internal/models"
	"gorm.io/gorm"
)

// 机器状态为单行表，固定主键
const machineStateID = 1

// MachineStateRepository 机器状态仓储接口
type MachineStateRepository interface {
	Load(ctx context.Context) (*models.MachineState, error)
	Save(ctx context.Context, state *models.MachineState) error
	Reset(ctx context.Context) error
}

// machineStateRepo 机器状态仓储实现
type machineStateRepo struct {
	*BaseRepo
}

// NewMachineStateRepository 创建机器状态仓储
func NewMachineStateRepository(db *gorm.DB) MachineStateRepository {
	return &machineStateRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Load 加载机器状态，不存在时返回初始状态
func (r *machineStateRepo) Load(ctx context.Context) (*models.MachineState, error) {
	var state models.MachineState
	err := r.db.WithContext(ctx).First(&state, machineStateID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			state = models.MachineState{ID: machineStateID}
			if err := r.db.WithContext(ctx).Create(&state).Error; err != nil {
				return nil, err
			}
			return &state, nil
		}
		return nil, err
	}
	return &state, nil
}

// Save 保存机器状态
func (r *machineStateRepo) Save(ctx context.Context, state *models.MachineState) error {
	state.ID = machineStateID
	return r.db.WithContext(ctx).Save(state).Error
}

// Reset 重置机器状态（恢复出厂）
func (r *machineStateRepo) Reset(ctx context.Context) error {
	state := models.MachineState{ID: machineStateID}
	return r.db.WithContext(ctx).Save(&state).Error
}
