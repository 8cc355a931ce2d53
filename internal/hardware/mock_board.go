package hardware

import (
	"fmt"
	"sync"
)

// MockBoard 模拟外设板（用于测试和无硬件的调试模式）
type MockBoard struct {
	mu        sync.Mutex
	connected bool

	// 模拟状态
	relayOn   bool
	relayErr  error
	lastColor Color
	tones     []Tone
	toneOn    bool

	// 待读取的UID队列
	pendingUIDs []string
}

// NewMockBoard 创建模拟外设板
func NewMockBoard() *MockBoard {
	return &MockBoard{}
}

// Connect 模拟连接
func (m *MockBoard) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected {
		return fmt.Errorf("already connected")
	}
	m.connected = true
	return nil
}

// Disconnect 模拟断开
func (m *MockBoard) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// IsConnected 是否连接
func (m *MockBoard) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetRelay 记录继电器状态，注入了故障时返回故障
func (m *MockBoard) SetRelay(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.relayErr != nil {
		return m.relayErr
	}
	m.relayOn = on
	return nil
}

// FailRelay 注入继电器故障，传nil恢复正常（测试用）
func (m *MockBoard) FailRelay(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relayErr = err
}

// SetColor 记录指示灯颜色
func (m *MockBoard) SetColor(c Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastColor = c
	return nil
}

// PlayTone 记录播放的音调
func (m *MockBoard) PlayTone(frequency uint16, durationMs uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tones = append(m.tones, Tone{Frequency: frequency, DurationMs: durationMs})
	m.toneOn = frequency != 0
	return nil
}

// StopTone 停止蜂鸣器
func (m *MockBoard) StopTone() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toneOn = false
	return nil
}

// PollUID 从队列中取出一个待读取的UID
func (m *MockBoard) PollUID() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pendingUIDs) == 0 {
		return "", false, nil
	}
	uid := m.pendingUIDs[0]
	m.pendingUIDs = m.pendingUIDs[1:]
	return uid, true, nil
}

// QueueUID 放入一个待读取的UID（测试用）
func (m *MockBoard) QueueUID(uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingUIDs = append(m.pendingUIDs, uid)
}

// RelayOn 查询继电器状态（测试用）
func (m *MockBoard) RelayOn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.relayOn
}

// LastColor 查询最后设置的颜色（测试用）
func (m *MockBoard) LastColor() Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastColor
}

// PlayedTones 查询已播放的音调（测试用）
func (m *MockBoard) PlayedTones() []Tone {
	m.mu.Lock()
	defer m.mu.Unlock()
	tones := make([]Tone, len(m.tones))
	copy(tones, m.tones)
	return tones
}

// ClearTones 清空音调记录（测试用）
func (m *MockBoard) ClearTones() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tones = nil
}

// ToneOn 查询蜂鸣器是否在响（测试用）
func (m *MockBoard) ToneOn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toneOn
}
