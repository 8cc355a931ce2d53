package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/coffee-bearer/internal/hardware"
)

// 已登记用户刷卡：出杯开始、额度扣减、进入冷却
func TestScanner_AuthorizedScanServes(t *testing.T) {
	rig := newTestRig()
	var now uint32 = 1000

	rig.dispenser.Refill(now)
	require.True(t, rig.creds.Add("0A 1B 2C 3D", "Alice"))

	rig.board.QueueUID("0a 1b 2c 3d")
	class := rig.scanner.Tick(now)

	assert.Equal(t, ClassSuccess, class)
	assert.True(t, rig.dispenser.Busy())
	assert.Equal(t, DefaultInitialCredits-1, rig.creds.CreditsOf("0A 1B 2C 3D"))

	cred, _ := rig.creds.Find("0A 1B 2C 3D")
	assert.Equal(t, now, cred.LastUsedMs)
	assert.True(t, rig.scanner.InCooldown(now+1))
}

// 冷却抑制：窗口内的第二次读卡不产生分发
func TestScanner_CooldownSuppression(t *testing.T) {
	rig := newTestRig()
	var now uint32 = 1000

	rig.dispenser.Refill(now)
	require.True(t, rig.creds.Add("0A 1B 2C 3D", "Alice"))

	rig.board.QueueUID("0A 1B 2C 3D")
	assert.Equal(t, ClassSuccess, rig.scanner.Tick(now))

	// 冷却窗口内同一张卡再次出现，完全忽略（读卡器都不轮询）
	rig.board.QueueUID("0A 1B 2C 3D")
	assert.Equal(t, ClassNone, rig.scanner.Tick(now+DefaultCooldown-1))
	assert.Equal(t, DefaultInitialCredits-1, rig.creds.CreditsOf("0A 1B 2C 3D"))

	// 冷却结束后恢复轮询（此时机器busy，分类为SystemBusy）
	class := rig.scanner.Tick(now + DefaultCooldown)
	assert.Equal(t, ClassSystemBusy, class)
}

// 未登记卡片：分类AccessDenied，触发红灯反馈，不出杯
func TestScanner_UnknownCard(t *testing.T) {
	rig := newTestRig()
	var now uint32 = 1000
	rig.dispenser.Refill(now)

	rig.board.QueueUID("DE AD BE EF")
	class := rig.scanner.Tick(now)

	assert.Equal(t, ClassAccessDenied, class)
	assert.False(t, rig.dispenser.Busy())
	assert.True(t, rig.feedback.Animating())

	// 红色闪烁反馈
	rig.feedback.Advance(now)
	assert.Equal(t, hardware.ColorRed, rig.board.LastColor())
}

// 主卡刷卡：容器空时直接补满，不动任何额度
func TestScanner_MasterKeyRefill(t *testing.T) {
	rig := newTestRig()
	var now uint32 = 1000

	require.True(t, rig.creds.Add("0A 1B 2C 3D", "Alice"))
	assert.Equal(t, 0, rig.dispenser.Remaining())

	rig.board.QueueUID("ff ff ff ff")
	class := rig.scanner.Tick(now)

	assert.Equal(t, ClassMasterKey, class)
	assert.Equal(t, DefaultCapacity, rig.dispenser.Remaining())
	assert.False(t, rig.dispenser.Busy())
	assert.Equal(t, DefaultInitialCredits, rig.creds.CreditsOf("0A 1B 2C 3D"))
}

// 额度不足：分类NoCredits
func TestScanner_NoCredits(t *testing.T) {
	rig := newTestRig()
	var now uint32 = 1000

	rig.dispenser.Refill(now)
	require.True(t, rig.creds.Add("0A 1B 2C 3D", "Alice"))
	require.True(t, rig.creds.SetCredits("0A 1B 2C 3D", 0))

	rig.board.QueueUID("0A 1B 2C 3D")
	class := rig.scanner.Tick(now)

	assert.Equal(t, ClassNoCredits, class)
	assert.False(t, rig.dispenser.Busy())
	assert.Equal(t, 0, rig.creds.CreditsOf("0A 1B 2C 3D"))
}

// 容器空：分类NoCoffee
func TestScanner_NoCoffee(t *testing.T) {
	rig := newTestRig()
	var now uint32 = 1000

	require.True(t, rig.creds.Add("0A 1B 2C 3D", "Alice"))

	rig.board.QueueUID("0A 1B 2C 3D")
	class := rig.scanner.Tick(now)

	assert.Equal(t, ClassNoCoffee, class)
	assert.Equal(t, DefaultInitialCredits, rig.creds.CreditsOf("0A 1B 2C 3D"))
}

// 出杯中刷卡：分类SystemBusy
func TestScanner_SystemBusy(t *testing.T) {
	rig := newTestRig()
	var now uint32 = 1000

	rig.dispenser.Refill(now)
	require.True(t, rig.creds.Add("0A 1B 2C 3D", "Alice"))
	require.True(t, rig.dispenser.Serve("管理员", nil, now))

	rig.board.QueueUID("0A 1B 2C 3D")
	class := rig.scanner.Tick(now + 1)

	assert.Equal(t, ClassSystemBusy, class)
	assert.Equal(t, DefaultInitialCredits, rig.creds.CreditsOf("0A 1B 2C 3D"))
}

// 登记采集模式：未知UID只上报，已知UID报错，之后自动回到正常模式
func TestScanner_CaptureMode(t *testing.T) {
	rig := newTestRig()
	var now uint32 = 1000

	rig.dispenser.Refill(now)
	require.True(t, rig.creds.Add("0A 1B 2C 3D", "Alice"))

	rig.scanner.SetMode(ScanModeCapture)
	rig.board.QueueUID("DE AD BE EF")
	class := rig.scanner.Tick(now)

	assert.Equal(t, ClassNone, class)
	require.Len(t, rig.sink.captured, 1)
	assert.Equal(t, "DE AD BE EF", rig.sink.captured[0])
	assert.Equal(t, ScanModeNormal, rig.scanner.Mode())
	// 采集不落库
	assert.Equal(t, 1, rig.creds.Count())

	// 已登记卡片在采集模式下只报错
	now += DefaultCooldown + 1
	rig.scanner.SetMode(ScanModeCapture)
	rig.board.QueueUID("0A 1B 2C 3D")
	class = rig.scanner.Tick(now)

	assert.Equal(t, ClassNone, class)
	assert.Len(t, rig.sink.captured, 1)
	assert.Equal(t, ScanModeNormal, rig.scanner.Mode())
}

// 无卡时tick为空转
func TestScanner_NoCardNoop(t *testing.T) {
	rig := newTestRig()

	assert.Equal(t, ClassNone, rig.scanner.Tick(1000))
	assert.False(t, rig.scanner.InCooldown(1001))
}

// 成功路径的绿色成功反馈由出杯完成时触发，而非刷卡分发时
func TestScanner_SuccessFeedbackDeferredToCompletion(t *testing.T) {
	rig := newTestRig()
	var now uint32 = 1000

	rig.dispenser.Refill(now)
	require.True(t, rig.creds.Add("0A 1B 2C 3D", "Alice"))

	rig.board.QueueUID("0A 1B 2C 3D")
	require.Equal(t, ClassSuccess, rig.scanner.Tick(now))

	// 分发时是出杯提示音（1300Hz），不是成功音
	rig.feedback.Advance(now)
	tones := rig.board.PlayedTones()
	require.NotEmpty(t, tones)
	assert.Equal(t, uint16(1300), tones[len(tones)-1].Frequency)

	// 出杯完成后触发成功反馈（绿色闪烁动画）
	rig.dispenser.Tick(now + DefaultServeDuration)
	assert.True(t, rig.feedback.Animating())
	rig.feedback.Advance(now + DefaultServeDuration)
	assert.Equal(t, hardware.ColorGreen, rig.board.LastColor())
}
