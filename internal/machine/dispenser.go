package machine

import (
	"context"

	"github.com/wfunc/coffee-bearer/internal/hardware"
	"github.com/wfunc/coffee-bearer/internal/models"
	"github.com/wfunc/coffee-bearer/internal/repository"
	"go.uber.org/zap"
)

// DispenserConfig 出杯控制配置
type DispenserConfig struct {
	Capacity        int
	ServeDurationMs uint32
	SaveIntervalMs  uint32
}

// DefaultDispenserConfig 默认出杯配置
func DefaultDispenserConfig() DispenserConfig {
	return DispenserConfig{
		Capacity:        DefaultCapacity,
		ServeDurationMs: DefaultServeDuration,
		SaveIntervalMs:  DefaultSaveInterval,
	}
}

// Dispenser 出杯控制器。继电器按截止时刻通断，Serve只是登记一次
// 出杯并立即返回，收尾动作全部在Tick里完成，绝不阻塞主循环。
type Dispenser struct {
	board    hardware.BoardController
	feedback *FeedbackCoordinator
	repo     repository.MachineStateRepository
	logger   *zap.Logger
	cfg      DispenserConfig

	state *models.MachineState

	busy          bool
	serveStart    uint32
	serveDeadline uint32
	serveLabel    string

	dirty      bool
	lastSaveMs uint32
}

// NewDispenser 创建出杯控制器，state为启动时加载的持久化状态
func NewDispenser(board hardware.BoardController, feedback *FeedbackCoordinator, repo repository.MachineStateRepository, state *models.MachineState, cfg DispenserConfig, logger *zap.Logger) *Dispenser {
	if state == nil {
		state = &models.MachineState{}
	}
	if state.Remaining < 0 {
		state.Remaining = 0
	}
	if state.Remaining > cfg.Capacity {
		state.Remaining = cfg.Capacity
	}
	return &Dispenser{
		board:    board,
		feedback: feedback,
		repo:     repo,
		logger:   logger,
		cfg:      cfg,
		state:    state,
	}
}

// Serve 开始一次出杯。busy、无咖啡或额度不足时拒绝并触发错误反馈。
// credits为调用方持有的额度引用，成功时就地扣减；为nil表示免额度出杯。
func (d *Dispenser) Serve(label string, credits *int, now uint32) bool {
	if d.busy {
		d.feedback.Signal(EventError, now)
		return false
	}
	if d.state.Remaining <= 0 {
		d.feedback.Signal(EventError, now)
		return false
	}
	if credits != nil && *credits <= 0 {
		d.feedback.Signal(EventError, now)
		return false
	}

	if credits != nil {
		*credits--
	}

	if err := d.board.SetRelay(true); err != nil {
		if credits != nil {
			*credits++
		}
		if d.logger != nil {
			d.logger.Error("继电器接通失败", zap.Error(err))
		}
		d.feedback.Signal(EventError, now)
		return false
	}

	d.busy = true
	d.serveStart = now
	d.serveDeadline = now + d.cfg.ServeDurationMs
	d.serveLabel = label
	d.feedback.Signal(EventServing, now)

	if d.logger != nil {
		d.logger.Info("开始出杯",
			zap.String("user", label),
			zap.Int("remaining", d.state.Remaining),
		)
	}
	return true
}

// Tick 每tick推进：完成检查、卡死看门狗、日切、防抖落盘
func (d *Dispenser) Tick(now uint32) {
	if d.busy {
		if elapsed(now, d.serveStart) >= 2*d.cfg.ServeDurationMs {
			// 继电器卡死保护：收尾重试超过一个出杯时长仍未断开，强停
			if d.logger != nil {
				d.logger.Error("出杯超时，强制停止", zap.String("user", d.serveLabel))
			}
			d.EmergencyStop(now)
		} else if reached(now, d.serveDeadline) {
			d.complete(now)
		}
	}

	// 日计数翻转
	if elapsed(now, d.state.DailyResetMs) >= DayMs {
		d.state.DailyCount = 0
		d.state.DailyResetMs = now
		d.dirty = true
	}

	// 防抖落盘
	if d.dirty && elapsed(now, d.lastSaveMs) >= d.cfg.SaveIntervalMs {
		d.lastSaveMs = now
		if err := d.Flush(context.Background()); err != nil {
			// 落盘失败只记录，下个周期重试
			if d.logger != nil {
				d.logger.Error("机器状态落盘失败", zap.Error(err))
			}
		}
	}
}

// complete 出杯完成收尾。继电器断开失败时保持busy，
// 下个tick重试，直到成功或看门狗强停
func (d *Dispenser) complete(now uint32) {
	if err := d.board.SetRelay(false); err != nil {
		if d.logger != nil {
			d.logger.Error("继电器断开失败，等待重试", zap.Error(err))
		}
		return
	}

	d.busy = false
	if d.state.Remaining > 0 {
		d.state.Remaining--
	}
	d.state.TotalServed++
	d.state.DailyCount++
	d.state.TotalServeTimeMs += uint64(elapsed(now, d.serveStart))
	d.state.LastServedMs = now
	d.dirty = true

	// 完成时才发成功反馈，先更新常亮色再叠加动画
	d.feedback.ShowStatus(d.Status())
	d.feedback.Signal(EventSuccess, now)

	if d.logger != nil {
		d.logger.Info("出杯完成",
			zap.String("user", d.serveLabel),
			zap.Int("remaining", d.state.Remaining),
			zap.Int("total_served", d.state.TotalServed),
		)
	}
	d.serveLabel = ""
}

// Refill 补满容器
func (d *Dispenser) Refill(now uint32) {
	d.state.Remaining = d.cfg.Capacity
	d.dirty = true
	d.feedback.ShowStatus(d.Status())
	d.feedback.Signal(EventRefill, now)

	if d.logger != nil {
		d.logger.Info("容器已补满", zap.Int("capacity", d.cfg.Capacity))
	}
}

// AdjustCount 调整剩余杯数，越界则不变并返回false
func (d *Dispenser) AdjustCount(delta int) bool {
	result := d.state.Remaining + delta
	if result < 0 || result > d.cfg.Capacity {
		return false
	}
	d.state.Remaining = result
	d.dirty = true
	return true
}

// SetRemaining 直接设置剩余杯数，越界返回false
func (d *Dispenser) SetRemaining(n int) bool {
	if n < 0 || n > d.cfg.Capacity {
		return false
	}
	d.state.Remaining = n
	d.dirty = true
	return true
}

// EmergencyStop 强制断开继电器并复位busy，幂等
func (d *Dispenser) EmergencyStop(now uint32) {
	if err := d.board.SetRelay(false); err != nil && d.logger != nil {
		d.logger.Error("继电器断开失败", zap.Error(err))
	}
	if d.busy {
		d.busy = false
		d.serveLabel = ""
		d.feedback.Signal(EventError, now)
	}
}

// Status 当前状态
func (d *Dispenser) Status() Status {
	switch {
	case d.busy:
		return StatusBusy
	case d.state.Remaining <= 0:
		return StatusEmpty
	case d.state.Remaining <= d.cfg.Capacity/10:
		return StatusLow
	default:
		return StatusReady
	}
}

// Busy 是否正在出杯
func (d *Dispenser) Busy() bool {
	return d.busy
}

// Remaining 剩余杯数
func (d *Dispenser) Remaining() int {
	return d.state.Remaining
}

// Capacity 容器容量
func (d *Dispenser) Capacity() int {
	return d.cfg.Capacity
}

// TotalServed 累计出杯数
func (d *Dispenser) TotalServed() int {
	return d.state.TotalServed
}

// DailyServed 当日出杯数
func (d *Dispenser) DailyServed() int {
	return d.state.DailyCount
}

// AverageServeTimeMs 平均出杯时长
func (d *Dispenser) AverageServeTimeMs() uint32 {
	return d.state.AverageServeTimeMs()
}

// LastServedMs 最后出杯时刻
func (d *Dispenser) LastServedMs() uint32 {
	return d.state.LastServedMs
}

// SetWeeklyResetMs 记录每周额度重置时刻（随机器状态一起落盘）
func (d *Dispenser) SetWeeklyResetMs(ms uint32) {
	d.state.WeeklyResetMs = ms
	d.dirty = true
}

// WeeklyResetMs 读取每周额度重置时刻
func (d *Dispenser) WeeklyResetMs() uint32 {
	return d.state.WeeklyResetMs
}

// MarkDirty 标记待落盘
func (d *Dispenser) MarkDirty() {
	d.dirty = true
}

// Flush 立即落盘
func (d *Dispenser) Flush(ctx context.Context) error {
	if d.repo == nil {
		d.dirty = false
		return nil
	}
	if err := d.repo.Save(ctx, d.state); err != nil {
		return err
	}
	d.dirty = false
	return nil
}

// ResetCounters 清零计数并落盘（恢复出厂）
func (d *Dispenser) ResetCounters(ctx context.Context) error {
	d.state.Remaining = 0
	d.state.TotalServed = 0
	d.state.TotalServeTimeMs = 0
	d.state.LastServedMs = 0
	d.state.DailyCount = 0
	d.state.DailyResetMs = 0
	d.state.WeeklyResetMs = 0
	d.dirty = true
	return d.Flush(ctx)
}
