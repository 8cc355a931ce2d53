package models

// Credential 卡片授权表（UID -> 用户名/额度）
type Credential struct {
	BaseModel
	UID        string `gorm:"uniqueIndex;size:32;not null" json:"uid"`
	Name       string `gorm:"size:50;not null" json:"name"`
	Credits    int    `gorm:"default:0" json:"credits"`
	LastUsedMs uint32 `gorm:"default:0" json:"last_used_ms"` // 最后刷卡时刻（单调毫秒钟）
	Active     bool   `gorm:"default:true" json:"active"`
}

// TableName 指定Credential表名
func (Credential) TableName() string {
	return "credentials"
}

// HasCredits 检查是否还有额度
func (c *Credential) HasCredits() bool {
	return c.Credits > 0
}
