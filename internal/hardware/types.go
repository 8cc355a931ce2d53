package hardware

// Color RGB颜色
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// 常用颜色
var (
	ColorBlack       = Color{0, 0, 0}
	ColorRed         = Color{255, 0, 0}
	ColorDarkRed     = Color{139, 0, 0}
	ColorGreen       = Color{0, 255, 0}
	ColorBlue        = Color{0, 0, 255}
	ColorDeepSkyBlue = Color{0, 191, 255}
	ColorOrange      = Color{255, 165, 0}
	ColorYellow      = Color{255, 255, 0}
)

// Tone 蜂鸣器音调（频率0表示静音间隔）
type Tone struct {
	Frequency  uint16 `json:"frequency"`
	DurationMs uint16 `json:"duration_ms"`
}

// BoardController 外设板控制接口（继电器/指示灯/蜂鸣器/读卡器）
type BoardController interface {
	// 连接管理
	Connect() error
	Disconnect() error
	IsConnected() bool

	// 继电器控制
	SetRelay(on bool) error

	// 指示灯控制
	SetColor(c Color) error

	// 蜂鸣器控制
	PlayTone(frequency uint16, durationMs uint16) error
	StopTone() error

	// 读卡器轮询（非阻塞，无卡时ok为false）
	PollUID() (uid string, ok bool, err error)
}
