package machine

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/coffee-bearer/internal/hardware"
	"github.com/wfunc/coffee-bearer/internal/models"
	"github.com/wfunc/coffee-bearer/internal/repository"
	"go.uber.org/zap"
)

// Config 机器总配置
type Config struct {
	Dispenser DispenserConfig
	Store     CredentialStoreConfig
	Scanner   ScannerConfig
}

// DefaultConfig 默认机器配置
func DefaultConfig() Config {
	return Config{
		Dispenser: DefaultDispenserConfig(),
		Store:     DefaultCredentialStoreConfig(),
		Scanner:   DefaultScannerConfig(),
	}
}

// Machine 咖啡机应用上下文。各组件构造注入，一把互斥锁保护
// tick路径与来自Web层协程的命令调用。tick顺序固定：
// 刷卡 -> 出杯 -> 额度维护 -> 反馈推进。
type Machine struct {
	mu sync.Mutex

	clock     Clock
	board     hardware.BoardController
	feedback  *FeedbackCoordinator
	dispenser *Dispenser
	creds     *CredentialStore
	scanner   *Scanner
	sink      EventSink
	logger    *zap.Logger

	lastSnapshot StatusSnapshot
	snapshotSent bool
}

// New 组装咖啡机
func New(clock Clock, board hardware.BoardController, stateRepo repository.MachineStateRepository, credRepo repository.CredentialRepository, state *models.MachineState, sink EventSink, cfg Config, logger *zap.Logger) *Machine {
	if sink == nil {
		sink = NopSink{}
	}
	if clock == nil {
		clock = NewSystemClock()
	}

	// 持久化时标来自上一次进程的时钟，领先当前时钟的重新打点，
	// 不触发重置（额度与日计数跨重启保留）
	now := clock.Millis()
	if state != nil {
		state.WeeklyResetMs = restoreMark(now, state.WeeklyResetMs)
		state.DailyResetMs = restoreMark(now, state.DailyResetMs)
		state.LastServedMs = restoreMark(now, state.LastServedMs)
	}

	feedback := NewFeedbackCoordinator(board, logger)
	dispenser := NewDispenser(board, feedback, stateRepo, state, cfg.Dispenser, logger)
	creds := NewCredentialStore(credRepo, cfg.Store, logger)
	if state != nil {
		creds.SetLastResetMs(state.WeeklyResetMs)
	}
	scanner := NewScanner(board, creds, dispenser, feedback, sink, cfg.Scanner, logger)

	m := &Machine{
		clock:     clock,
		board:     board,
		feedback:  feedback,
		dispenser: dispenser,
		creds:     creds,
		scanner:   scanner,
		sink:      sink,
		logger:    logger,
	}

	feedback.ShowStatus(StatusInitializing)
	return m
}

// LoadCredentials 启动时加载卡片数据
func (m *Machine) LoadCredentials(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.creds.Load(ctx, m.clock.Millis()); err != nil {
		return err
	}
	m.feedback.ShowStatus(m.dispenser.Status())
	return nil
}

// Tick 执行一次协作式主循环
func (m *Machine) Tick() {
	now := m.clock.Millis()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.scanner.Tick(now)
	m.dispenser.Tick(now)

	// 每周额度重置
	if m.creds.ShouldWeeklyReset(now) {
		m.creds.PerformWeeklyReset(now)
		m.dispenser.SetWeeklyResetMs(now)
		m.sink.LogLine("SYSTEM", "INFO", "每周额度重置完成")
	}

	m.creds.Tick(now)
	m.feedback.Advance(now)
	m.emitIfChanged(now)
}

// Run 按固定周期驱动tick直至ctx结束，退出前落盘
func (m *Machine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if m.logger != nil {
		m.logger.Info("主循环启动", zap.Duration("interval", interval))
	}

	for {
		select {
		case <-ctx.Done():
			if err := m.Flush(context.Background()); err != nil && m.logger != nil {
				m.logger.Error("退出落盘失败", zap.Error(err))
			}
			if m.logger != nil {
				m.logger.Info("主循环退出")
			}
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// emitIfChanged 状态快照变化时推送
func (m *Machine) emitIfChanged(now uint32) {
	snapshot := m.snapshotLocked(now)
	if m.snapshotSent && snapshot == m.lastSnapshot {
		return
	}
	m.lastSnapshot = snapshot
	m.snapshotSent = true
	m.sink.StatusChanged(snapshot)
}

// snapshotLocked 组装状态快照，调用方需持锁
func (m *Machine) snapshotLocked(now uint32) StatusSnapshot {
	return StatusSnapshot{
		Status:             m.dispenser.Status().String(),
		Busy:               m.dispenser.Busy(),
		Remaining:          m.dispenser.Remaining(),
		Capacity:           m.dispenser.Capacity(),
		TotalServed:        m.dispenser.TotalServed(),
		DailyServed:        m.dispenser.DailyServed(),
		AverageServeTimeMs: m.dispenser.AverageServeTimeMs(),
		UserCount:          m.creds.Count(),
		TotalCredits:       m.creds.TotalCredits(),
		ScanMode:           scanModeName(m.scanner.Mode()),
	}
}

// Snapshot 当前状态快照
func (m *Machine) Snapshot() StatusSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(m.clock.Millis())
}

// ServeManual 管理端手动出杯（不扣额度）
func (m *Machine) ServeManual(label string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok := m.dispenser.Serve(label, nil, m.clock.Millis())
	if ok {
		m.sink.LogLine("SERVE", "INFO", "手动出杯: "+label)
	}
	return ok
}

// Refill 补满容器
func (m *Machine) Refill() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispenser.Refill(m.clock.Millis())
	m.sink.LogLine("SYSTEM", "INFO", "容器已补满")
}

// AdjustCount 调整剩余杯数
func (m *Machine) AdjustCount(delta int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dispenser.AdjustCount(delta)
}

// SetRemaining 设置剩余杯数
func (m *Machine) SetRemaining(n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dispenser.SetRemaining(n)
}

// EmergencyStop 紧急停止
func (m *Machine) EmergencyStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispenser.EmergencyStop(m.clock.Millis())
	m.sink.LogLine("SYSTEM", "WARN", "紧急停止")
}

// AddCredential 登记卡片
func (m *Machine) AddCredential(uid, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok := m.creds.Add(uid, name)
	if ok {
		m.sink.LogLine("USER", "INFO", "登记卡片: "+NormalizeUID(uid))
	}
	return ok
}

// RemoveCredential 注销卡片
func (m *Machine) RemoveCredential(uid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok := m.creds.Remove(uid)
	if ok {
		m.sink.LogLine("USER", "INFO", "注销卡片: "+NormalizeUID(uid))
	}
	return ok
}

// UpdateCredential 更新卡片用户名
func (m *Machine) UpdateCredential(uid, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.Update(uid, name)
}

// FindCredential 查询卡片
func (m *Machine) FindCredential(uid string) (models.Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.Find(uid)
}

// Credentials 全部卡片
func (m *Machine) Credentials() []models.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.All()
}

// AddCredits 增加额度
func (m *Machine) AddCredits(uid string, n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.AddCredits(uid, n)
}

// SetCredits 设置额度
func (m *Machine) SetCredits(uid string, n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.SetCredits(uid, n)
}

// SetScanMode 切换刷卡模式
func (m *Machine) SetScanMode(mode ScanMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanner.SetMode(mode)
	m.sink.LogLine("SYSTEM", "INFO", "刷卡模式: "+scanModeName(mode))
}

// ScanMode 当前刷卡模式
func (m *Machine) ScanMode() ScanMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanner.Mode()
}

// PerformWeeklyReset 强制执行每周额度重置
func (m *Machine) PerformWeeklyReset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Millis()
	m.creds.PerformWeeklyReset(now)
	m.dispenser.SetWeeklyResetMs(now)
	m.sink.LogLine("SYSTEM", "INFO", "管理端触发额度重置")
}

// ActiveToday 当日活跃用户数
func (m *Machine) ActiveToday() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.ActiveToday(m.clock.Millis())
}

// TopUsers 按最近使用排序的前n个用户
func (m *Machine) TopUsers(n int) []models.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.TopByRecency(n, m.clock.Millis())
}

// Flush 立即落盘全部待写数据
func (m *Machine) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.creds.Flush(ctx); err != nil {
		return err
	}
	return m.dispenser.Flush(ctx)
}

// ClearAllData 恢复出厂：清空计数、卡片
func (m *Machine) ClearAllData(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.creds.ClearAll(ctx); err != nil {
		return err
	}
	if err := m.dispenser.ResetCounters(ctx); err != nil {
		return err
	}
	m.sink.LogLine("SYSTEM", "WARN", "全部数据已清空")
	return nil
}

// scanModeName 刷卡模式名
func scanModeName(mode ScanMode) string {
	if mode == ScanModeCapture {
		return "capture"
	}
	return "normal"
}
