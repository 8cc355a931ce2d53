package machine

// 默认运行参数（可通过配置覆盖）
const (
	DefaultCapacity       = 100  // 容器容量（杯）
	DefaultInitialCredits = 10   // 新用户初始额度
	DefaultMaxUsers       = 50   // 用户数量上限
	DefaultServeDuration  = 8000 // 单杯出杯时长（毫秒）
	DefaultCooldown       = 3000 // 刷卡冷却时间（毫秒）
	DefaultSaveInterval   = 5 * 60 * 1000

	DayMs  uint32 = 24 * 60 * 60 * 1000
	WeekMs uint32 = 7 * 24 * 60 * 60 * 1000
)

// FeedbackEvent 反馈事件
type FeedbackEvent int

const (
	EventSuccess FeedbackEvent = iota
	EventError
	EventServing
	EventRefill
	EventMasterKey
	EventUnknownUser
	EventNoCredits
)

// String 事件名
func (e FeedbackEvent) String() string {
	switch e {
	case EventSuccess:
		return "success"
	case EventError:
		return "error"
	case EventServing:
		return "serving"
	case EventRefill:
		return "refill"
	case EventMasterKey:
		return "master_key"
	case EventUnknownUser:
		return "unknown_user"
	case EventNoCredits:
		return "no_credits"
	default:
		return "unknown"
	}
}

// Status 机器状态
type Status int

const (
	StatusReady Status = iota
	StatusBusy
	StatusLow
	StatusEmpty
	StatusError
	StatusInitializing
	StatusOff
)

// String 状态名
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusBusy:
		return "busy"
	case StatusLow:
		return "low"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	case StatusInitializing:
		return "initializing"
	case StatusOff:
		return "off"
	default:
		return "unknown"
	}
}

// Classification 刷卡授权结果
type Classification int

const (
	ClassNone Classification = iota
	ClassSuccess
	ClassMasterKey
	ClassAccessDenied
	ClassNoCredits
	ClassSystemBusy
	ClassNoCoffee
	ClassError
)

// String 分类名
func (c Classification) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassSuccess:
		return "success"
	case ClassMasterKey:
		return "master_key"
	case ClassAccessDenied:
		return "access_denied"
	case ClassNoCredits:
		return "no_credits"
	case ClassSystemBusy:
		return "system_busy"
	case ClassNoCoffee:
		return "no_coffee"
	case ClassError:
		return "error"
	default:
		return "unknown"
	}
}

// ScanMode 刷卡模式
type ScanMode int

const (
	ScanModeNormal  ScanMode = iota // 正常授权模式
	ScanModeCapture                 // 登记采集模式（下一次刷卡仅上报UID）
)

// StatusSnapshot 状态快照（推送给管理界面）
type StatusSnapshot struct {
	Status             string `json:"status"`
	Busy               bool   `json:"busy"`
	Remaining          int    `json:"remaining"`
	Capacity           int    `json:"capacity"`
	TotalServed        int    `json:"total_served"`
	DailyServed        int    `json:"daily_served"`
	AverageServeTimeMs uint32 `json:"average_serve_time_ms"`
	UserCount          int    `json:"user_count"`
	TotalCredits       int    `json:"total_credits"`
	ScanMode           string `json:"scan_mode"`
}

// EventSink 核心向外推送事件的出口（发后即忘）
type EventSink interface {
	// StatusChanged 状态变化
	StatusChanged(snapshot StatusSnapshot)
	// UIDCaptured 登记模式下采集到UID
	UIDCaptured(uid string)
	// LogLine 结构化日志行
	LogLine(category, level, message string)
}

// NopSink 空事件出口
type NopSink struct{}

func (NopSink) StatusChanged(StatusSnapshot)  {}
func (NopSink) UIDCaptured(string)            {}
func (NopSink) LogLine(string, string, string) {}
