package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/coffee-bearer/internal/hardware"
)

// 成功反馈：绿灯闪2次，两声短音
func TestFeedback_SuccessSignal(t *testing.T) {
	rig := newTestRig()
	f := rig.feedback
	var now uint32 = 1000

	f.Signal(EventSuccess, now)
	assert.True(t, f.Animating())
	assert.True(t, f.Playing())

	// 首个区间亮绿，第一声1200Hz立即发出
	f.Advance(now)
	assert.Equal(t, hardware.ColorGreen, rig.board.LastColor())
	tones := rig.board.PlayedTones()
	require.Len(t, tones, 1)
	assert.Equal(t, uint16(1200), tones[0].Frequency)

	// 80ms后第二声1500Hz
	f.Advance(now + 80)
	tones = rig.board.PlayedTones()
	require.Len(t, tones, 2)
	assert.Equal(t, uint16(1500), tones[1].Frequency)

	// 序列播完遇到哨兵，蜂鸣器停止
	f.Advance(now + 160)
	assert.False(t, f.Playing())
	assert.False(t, rig.board.ToneOn())

	// 第二个闪烁区间熄灭
	f.Advance(now + 250)
	assert.Equal(t, hardware.ColorBlack, rig.board.LastColor())

	// 动画结束回到常亮色
	f.Advance(now + 900)
	assert.False(t, f.Animating())
}

// 交替动画：黄蓝交替
func TestFeedback_RefillAlternate(t *testing.T) {
	rig := newTestRig()
	f := rig.feedback
	var now uint32

	f.Signal(EventRefill, now)

	// 1200ms分6个区间，每区间200ms
	f.Advance(now)
	assert.Equal(t, hardware.ColorYellow, rig.board.LastColor())

	f.Advance(now + 200)
	assert.Equal(t, hardware.ColorBlue, rig.board.LastColor())

	f.Advance(now + 400)
	assert.Equal(t, hardware.ColorYellow, rig.board.LastColor())
}

// 新Signal覆盖在途的动画与音调
func TestFeedback_SignalOverwrites(t *testing.T) {
	rig := newTestRig()
	f := rig.feedback
	var now uint32

	f.Signal(EventError, now)
	f.Advance(now)
	assert.Equal(t, hardware.ColorRed, rig.board.LastColor())

	rig.board.ClearTones()

	// 错误反馈播放中途触发成功反馈，立即接管
	f.Signal(EventSuccess, now+100)
	f.Advance(now + 100)
	assert.Equal(t, hardware.ColorGreen, rig.board.LastColor())

	tones := rig.board.PlayedTones()
	require.Len(t, tones, 1)
	assert.Equal(t, uint16(1200), tones[0].Frequency)
}

// ShowStatus取消动画但不打断音调序列
func TestFeedback_ShowStatusCancelsAnimationOnly(t *testing.T) {
	rig := newTestRig()
	f := rig.feedback
	var now uint32

	f.Signal(EventError, now)
	assert.True(t, f.Animating())
	assert.True(t, f.Playing())

	f.ShowStatus(StatusReady)
	assert.False(t, f.Animating())
	assert.True(t, f.Playing())

	f.Advance(now)
	assert.Equal(t, hardware.ColorGreen, rig.board.LastColor())
}

// 状态到颜色映射
func TestFeedback_StatusColors(t *testing.T) {
	cases := []struct {
		status Status
		color  hardware.Color
	}{
		{StatusReady, hardware.ColorGreen},
		{StatusBusy, hardware.ColorOrange},
		{StatusLow, hardware.ColorDeepSkyBlue},
		{StatusEmpty, hardware.ColorDarkRed},
		{StatusError, hardware.ColorRed},
		{StatusInitializing, hardware.ColorBlue},
		{StatusOff, hardware.ColorBlack},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.color, statusColor(tc.status), tc.status.String())
	}
}

// 动画结束后的稳态不重复写硬件
func TestFeedback_NoRedundantWrites(t *testing.T) {
	rig := newTestRig()
	f := rig.feedback
	var now uint32

	f.ShowStatus(StatusReady)
	f.Advance(now)
	f.Advance(now + 10)
	f.Advance(now + 20)

	// 颜色未变时只写一次
	assert.Equal(t, hardware.ColorGreen, rig.board.LastColor())
}
