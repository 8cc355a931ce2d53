package machine

import (
	"time"
)

// Clock 单调毫秒时钟，返回值按uint32回绕
type Clock interface {
	Millis() uint32
}

// SystemClock 基于进程启动时间的单调时钟
type SystemClock struct {
	boot time.Time
}

// NewSystemClock 创建系统时钟
func NewSystemClock() *SystemClock {
	return &SystemClock{boot: time.Now()}
}

// Millis 返回启动以来的毫秒数（回绕）
func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.boot).Milliseconds())
}

// elapsed 计算经过的毫秒数，无符号差值在回绕时依然正确
func elapsed(now, mark uint32) uint32 {
	return now - mark
}

// reached 判断是否到达截止时刻，按有符号差值判定以兼容回绕
func reached(now, deadline uint32) bool {
	return int32(now-deadline) >= 0
}

// restoreMark 恢复持久化时标。时钟以进程启动为基准，上一次运行落盘的
// 时标若领先当前时钟则重新打点为now，避免无符号差值回绕成巨大间隔、
// 启动第一个tick就误触发周期性动作
func restoreMark(now, mark uint32) uint32 {
	if int32(mark-now) > 0 {
		return now
	}
	return mark
}
