package machine

import (
	"github.com/wfunc/coffee-bearer/internal/hardware"
	"go.uber.org/zap"
)

// ScannerConfig 刷卡协调配置
type ScannerConfig struct {
	MasterUID  string
	CooldownMs uint32
}

// DefaultScannerConfig 默认刷卡配置
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		MasterUID:  "FF FF FF FF",
		CooldownMs: DefaultCooldown,
	}
}

// Scanner 刷卡协调器：每tick轮询读卡器，归一化UID后走登记采集
// 或授权分发，之后进入冷却窗口。拒绝类反馈在分发时立即触发，
// 成功反馈由出杯完成时触发，避免出杯未结束先响成功音。
type Scanner struct {
	board     hardware.BoardController
	creds     *CredentialStore
	dispenser *Dispenser
	feedback  *FeedbackCoordinator
	sink      EventSink
	logger    *zap.Logger

	masterUID  string
	cooldownMs uint32

	cooldownActive bool
	cooldownEnd    uint32
	lastUID        string
	lastReadMs     uint32
	mode           ScanMode
}

// NewScanner 创建刷卡协调器
func NewScanner(board hardware.BoardController, creds *CredentialStore, dispenser *Dispenser, feedback *FeedbackCoordinator, sink EventSink, cfg ScannerConfig, logger *zap.Logger) *Scanner {
	if sink == nil {
		sink = NopSink{}
	}
	return &Scanner{
		board:      board,
		creds:      creds,
		dispenser:  dispenser,
		feedback:   feedback,
		sink:       sink,
		logger:     logger,
		masterUID:  NormalizeUID(cfg.MasterUID),
		cooldownMs: cfg.CooldownMs,
	}
}

// SetMode 设置刷卡模式
func (s *Scanner) SetMode(mode ScanMode) {
	s.mode = mode
}

// Mode 当前刷卡模式
func (s *Scanner) Mode() ScanMode {
	return s.mode
}

// Tick 每tick执行一次轮询与分发
func (s *Scanner) Tick(now uint32) Classification {
	// 冷却窗口内忽略一切读卡
	if s.cooldownActive {
		if !reached(now, s.cooldownEnd) {
			return ClassNone
		}
		s.cooldownActive = false
	}

	raw, ok, err := s.board.PollUID()
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("读卡器轮询失败", zap.Error(err))
		}
		return ClassNone
	}
	if !ok {
		return ClassNone
	}

	uid := NormalizeUID(raw)
	if uid == "" {
		return ClassNone
	}

	s.lastUID = uid
	s.lastReadMs = now

	// 登记采集模式：仅上报未知UID，不做授权
	if s.mode == ScanModeCapture {
		if _, known := s.creds.Find(uid); !known {
			s.sink.UIDCaptured(uid)
			s.sink.LogLine("SCAN", "INFO", "采集到新卡片: "+uid)
		} else {
			s.feedback.Signal(EventError, now)
			s.sink.LogLine("SCAN", "WARN", "卡片已登记: "+uid)
		}
		s.mode = ScanModeNormal
		s.startCooldown(now)
		return ClassNone
	}

	class := s.dispatch(uid, now)
	s.signalFor(class, now)
	s.startCooldown(now)
	return class
}

// dispatch 授权决策与分发
func (s *Scanner) dispatch(uid string, now uint32) Classification {
	// 主卡刷卡触发补货
	if uid == s.masterUID {
		s.dispenser.Refill(now)
		s.sink.LogLine("SCAN", "INFO", "主卡补货")
		if s.logger != nil {
			s.logger.Info("主卡刷卡，容器补满")
		}
		return ClassMasterKey
	}

	if s.dispenser.Busy() {
		return ClassSystemBusy
	}
	if s.dispenser.Remaining() <= 0 {
		return ClassNoCoffee
	}

	cred, known := s.creds.Find(uid)
	if !known {
		s.sink.LogLine("SCAN", "WARN", "未登记卡片: "+uid)
		return ClassAccessDenied
	}
	if cred.Credits <= 0 {
		s.sink.LogLine("SCAN", "WARN", "额度不足: "+cred.Name)
		return ClassNoCredits
	}

	credits := cred.Credits
	if !s.dispenser.Serve(cred.Name, &credits, now) {
		return ClassError
	}

	// 出杯登记成功，把扣减后的额度写回并更新使用时刻
	s.creds.SetCredits(uid, credits)
	s.creds.Touch(uid, now)
	s.sink.LogLine("SERVE", "INFO", "开始出杯: "+cred.Name)
	return ClassSuccess
}

// signalFor 分类到拒绝类反馈的映射。成功反馈由出杯完成触发，
// 补货反馈由Refill自身触发，这里都不再重复。
func (s *Scanner) signalFor(class Classification, now uint32) {
	switch class {
	case ClassAccessDenied:
		s.feedback.Signal(EventUnknownUser, now)
	case ClassNoCredits:
		s.feedback.Signal(EventNoCredits, now)
	case ClassSystemBusy, ClassNoCoffee, ClassError:
		s.feedback.Signal(EventError, now)
	}
}

// startCooldown 开启冷却窗口
func (s *Scanner) startCooldown(now uint32) {
	s.cooldownActive = true
	s.cooldownEnd = now + s.cooldownMs
}

// LastUID 最后读取的UID
func (s *Scanner) LastUID() string {
	return s.lastUID
}

// InCooldown 是否处于冷却窗口
func (s *Scanner) InCooldown(now uint32) bool {
	return s.cooldownActive && !reached(now, s.cooldownEnd)
}
