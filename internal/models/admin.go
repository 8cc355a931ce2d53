package models

import (
	"time"
)

// AdminRole 管理员角色
type AdminRole string

const (
	AdminRoleAdmin AdminRole = "admin" // 完全控制
	AdminRoleUser  AdminRole = "user"  // 只读查看
)

// AdminAccount 管理后台账户表
type AdminAccount struct {
	BaseModel
	Username    string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Password    string     `gorm:"size:255;not null" json:"-"`
	Role        AdminRole  `gorm:"size:20;default:'user'" json:"role"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP string     `gorm:"size:50" json:"last_login_ip"`
}

// TableName 指定AdminAccount表名
func (AdminAccount) TableName() string {
	return "admin_accounts"
}

// IsAdmin 检查是否为管理员角色
func (a *AdminAccount) IsAdmin() bool {
	return a.Role == AdminRoleAdmin
}
