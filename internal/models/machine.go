package models

import (
	"time"
)

// MachineState 咖啡机状态表（单行，持久化计数器）
type MachineState struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Remaining        int       `gorm:"default:0" json:"remaining"`           // 容器剩余杯数
	TotalServed      int       `gorm:"default:0" json:"total_served"`        // 累计出杯数
	TotalServeTimeMs uint64    `gorm:"default:0" json:"total_serve_time_ms"` // 累计出杯耗时
	LastServedMs     uint32    `gorm:"default:0" json:"last_served_ms"`
	DailyCount       int       `gorm:"default:0" json:"daily_count"`
	DailyResetMs     uint32    `gorm:"default:0" json:"daily_reset_ms"`
	WeeklyResetMs    uint32    `gorm:"default:0" json:"weekly_reset_ms"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName 指定MachineState表名
func (MachineState) TableName() string {
	return "machine_state"
}

// AverageServeTimeMs 计算平均出杯时长（毫秒）
func (m *MachineState) AverageServeTimeMs() uint32 {
	if m.TotalServed == 0 {
		return 0
	}
	return uint32(m.TotalServeTimeMs / uint64(m.TotalServed))
}
