package machine

import (
	"github.com/wfunc/coffee-bearer/internal/hardware"
	"go.uber.org/zap"
)

// 音调队列容量（含结束哨兵）
const toneQueueCapacity = 10

// ledMode LED状态
type ledMode int

const (
	ledStatic ledMode = iota
	ledAnimating
)

// animKind 动画类型
type animKind int

const (
	animNone animKind = iota
	animBlink
	animAlternate
)

// buzzerMode 蜂鸣器状态
type buzzerMode int

const (
	buzzerIdle buzzerMode = iota
	buzzerPlaying
)

// FeedbackCoordinator 指示灯与蜂鸣器的非阻塞反馈状态机。
// 所有方法仅在主循环的tick内调用，动画与音调序列都以截止时刻推进，
// 任何新的Signal都会覆盖在途的反馈。
type FeedbackCoordinator struct {
	board  hardware.BoardController
	logger *zap.Logger

	// LED状态
	mode        ledMode
	anim        animKind
	animStart   uint32
	animDur     uint32
	blinkCount  uint32
	color1      hardware.Color
	color2      hardware.Color
	staticColor hardware.Color
	lastApplied hardware.Color
	applied     bool

	// 蜂鸣器状态
	buzzer       buzzerMode
	toneQueue    [toneQueueCapacity]hardware.Tone
	toneCursor   int
	toneDeadline uint32
}

// NewFeedbackCoordinator 创建反馈协调器
func NewFeedbackCoordinator(board hardware.BoardController, logger *zap.Logger) *FeedbackCoordinator {
	return &FeedbackCoordinator{
		board:       board,
		logger:      logger,
		staticColor: hardware.ColorBlack,
	}
}

// Signal 触发事件反馈，覆盖任何在途的动画和音调序列
func (f *FeedbackCoordinator) Signal(event FeedbackEvent, now uint32) {
	switch event {
	case EventSuccess:
		f.startAnimation(animBlink, hardware.ColorGreen, hardware.ColorBlack, 2, 800, now)
		f.loadTones(now,
			hardware.Tone{Frequency: 1200, DurationMs: 80},
			hardware.Tone{Frequency: 1500, DurationMs: 80},
		)
	case EventError, EventUnknownUser:
		f.startAnimation(animBlink, hardware.ColorRed, hardware.ColorBlack, 3, 1000, now)
		f.loadTones(now,
			hardware.Tone{Frequency: 300, DurationMs: 400},
		)
	case EventServing:
		// 出杯期间不做动画，仅显示忙碌色
		f.mode = ledStatic
		f.anim = animNone
		f.staticColor = hardware.ColorOrange
		f.loadTones(now,
			hardware.Tone{Frequency: 1300, DurationMs: 100},
			hardware.Tone{Frequency: 1600, DurationMs: 100},
		)
	case EventRefill, EventMasterKey:
		f.startAnimation(animAlternate, hardware.ColorYellow, hardware.ColorBlue, 6, 1200, now)
		f.loadTones(now,
			hardware.Tone{Frequency: 1500, DurationMs: 100},
			hardware.Tone{Frequency: 1800, DurationMs: 100},
			hardware.Tone{Frequency: 2200, DurationMs: 100},
		)
	case EventNoCredits:
		f.startAnimation(animAlternate, hardware.ColorRed, hardware.ColorOrange, 4, 1000, now)
		f.loadTones(now,
			hardware.Tone{Frequency: 300, DurationMs: 100},
			hardware.Tone{Frequency: 300, DurationMs: 200},
		)
	}

	if f.logger != nil {
		f.logger.Debug("触发反馈", zap.String("event", event.String()))
	}
}

// ShowStatus 取消动画并显示状态对应的常亮颜色，不影响在途音调
func (f *FeedbackCoordinator) ShowStatus(status Status) {
	f.mode = ledStatic
	f.anim = animNone
	f.staticColor = statusColor(status)
}

// Advance 每tick推进LED和蜂鸣器状态机
func (f *FeedbackCoordinator) Advance(now uint32) {
	f.advanceLED(now)
	f.advanceBuzzer(now)
}

// startAnimation 装载新动画
func (f *FeedbackCoordinator) startAnimation(kind animKind, c1, c2 hardware.Color, count, durationMs, now uint32) {
	f.mode = ledAnimating
	f.anim = animKind(kind)
	f.color1 = c1
	f.color2 = c2
	f.blinkCount = count
	f.animDur = durationMs
	f.animStart = now
}

// loadTones 装载音调队列并把当前时刻作为首个截止时刻
func (f *FeedbackCoordinator) loadTones(now uint32, tones ...hardware.Tone) {
	f.toneQueue = [toneQueueCapacity]hardware.Tone{}
	n := len(tones)
	if n > toneQueueCapacity-1 {
		n = toneQueueCapacity - 1
	}
	copy(f.toneQueue[:n], tones[:n])
	// 队列以零频率哨兵结尾（清零后自然成立）
	f.toneCursor = 0
	f.toneDeadline = now
	f.buzzer = buzzerPlaying
}

// advanceLED 推进LED动画
func (f *FeedbackCoordinator) advanceLED(now uint32) {
	color := f.staticColor

	if f.mode == ledAnimating {
		passed := elapsed(now, f.animStart)
		if passed > f.animDur {
			// 动画结束，回到常亮色
			f.mode = ledStatic
			f.anim = animNone
		} else {
			switch f.anim {
			case animBlink:
				interval := f.animDur / (2 * f.blinkCount)
				if interval == 0 {
					interval = 1
				}
				if (passed/interval)%2 == 0 {
					color = f.color1
				} else {
					color = hardware.ColorBlack
				}
			case animAlternate:
				interval := f.animDur / f.blinkCount
				if interval == 0 {
					interval = 1
				}
				if (passed/interval)%2 == 0 {
					color = f.color1
				} else {
					color = f.color2
				}
			}
		}
	}

	// 仅在颜色变化时写硬件
	if !f.applied || color != f.lastApplied {
		if err := f.board.SetColor(color); err != nil && f.logger != nil {
			f.logger.Warn("设置指示灯失败", zap.Error(err))
		}
		f.lastApplied = color
		f.applied = true
	}
}

// advanceBuzzer 推进蜂鸣器音调序列
func (f *FeedbackCoordinator) advanceBuzzer(now uint32) {
	if f.buzzer != buzzerPlaying {
		return
	}
	if !reached(now, f.toneDeadline) {
		return
	}

	tone := f.toneQueue[f.toneCursor]
	if tone.Frequency == 0 {
		// 零频率哨兵，序列结束
		if err := f.board.StopTone(); err != nil && f.logger != nil {
			f.logger.Warn("停止蜂鸣器失败", zap.Error(err))
		}
		f.buzzer = buzzerIdle
		return
	}

	if err := f.board.PlayTone(tone.Frequency, tone.DurationMs); err != nil && f.logger != nil {
		f.logger.Warn("播放音调失败", zap.Error(err))
	}
	f.toneDeadline = now + uint32(tone.DurationMs)
	if f.toneCursor < toneQueueCapacity-1 {
		f.toneCursor++
	}
}

// Playing 蜂鸣器是否在播放序列
func (f *FeedbackCoordinator) Playing() bool {
	return f.buzzer == buzzerPlaying
}

// Animating LED是否在播放动画
func (f *FeedbackCoordinator) Animating() bool {
	return f.mode == ledAnimating
}

// statusColor 状态到颜色的映射
func statusColor(status Status) hardware.Color {
	switch status {
	case StatusReady:
		return hardware.ColorGreen
	case StatusBusy:
		return hardware.ColorOrange
	case StatusLow:
		return hardware.ColorDeepSkyBlue
	case StatusEmpty:
		return hardware.ColorDarkRed
	case StatusError:
		return hardware.ColorRed
	case StatusInitializing:
		return hardware.ColorBlue
	default:
		return hardware.ColorBlack
	}
}
