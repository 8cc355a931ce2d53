package models

// EventCategory 事件分类
type EventCategory string

const (
	EventCategorySystem EventCategory = "SYSTEM" // 系统事件
	EventCategoryScan   EventCategory = "SCAN"   // 刷卡事件
	EventCategoryServe  EventCategory = "SERVE"  // 出杯事件
	EventCategoryUser   EventCategory = "USER"   // 用户管理事件
	EventCategoryAuth   EventCategory = "AUTH"   // 认证事件
)

// EventLevel 事件级别
type EventLevel string

const (
	EventLevelInfo  EventLevel = "INFO"
	EventLevelWarn  EventLevel = "WARN"
	EventLevelError EventLevel = "ERROR"
)

// EventLog 事件日志表
type EventLog struct {
	BaseModel
	Category EventCategory `gorm:"size:20;index;not null" json:"category"`
	Level    EventLevel    `gorm:"size:10;default:'INFO'" json:"level"`
	Message  string        `gorm:"size:255;not null" json:"message"`
	UID      string        `gorm:"size:32;index" json:"uid,omitempty"`
	User     string        `gorm:"size:50" json:"user,omitempty"`
}

// TableName 指定EventLog表名
func (EventLog) TableName() string {
	return "event_logs"
}
