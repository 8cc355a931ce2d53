package hardware

import (
	"bufio"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"
	apperrors "github.com/wfunc/coffee-bearer/internal/errors"
	"github.com/wfunc/coffee-bearer/internal/logger"
	"go.uber.org/zap"
)

// SerialBoardConfig 串口外设板配置
type SerialBoardConfig struct {
	Port         string
	BaudRate     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultSerialBoardConfig 默认串口配置
func DefaultSerialBoardConfig() *SerialBoardConfig {
	return &SerialBoardConfig{
		Port:         "/dev/ttyUSB0",
		BaudRate:     115200,
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 100 * time.Millisecond,
	}
}

// SerialBoard 串口外设板控制器
//
// 行协议（ASCII，\n结尾）：
//
//	RELAY ON / RELAY OFF        -> OK
//	LED <r> <g> <b>             -> OK
//	TONE <freq> <duration_ms>   -> OK
//	TONE OFF                    -> OK
//	POLL                        -> UID <hex pairs> 或 NONE
type SerialBoard struct {
	config    *SerialBoardConfig
	port      *serial.Port
	reader    *bufio.Reader
	mu        sync.Mutex
	connected bool
	logger    *zap.Logger
}

// NewSerialBoard 创建串口外设板控制器
func NewSerialBoard(config *SerialBoardConfig) *SerialBoard {
	if config == nil {
		config = DefaultSerialBoardConfig()
	}
	return &SerialBoard{
		config: config,
		logger: logger.GetModuleLogger("serial"),
	}
}

// Connect 连接外设板
func (b *SerialBoard) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		return nil
	}

	serialCfg := &serial.Config{
		Name:        b.config.Port,
		Baud:        b.config.BaudRate,
		Size:        8,
		StopBits:    serial.Stop1,
		Parity:      serial.ParityNone,
		ReadTimeout: b.config.ReadTimeout,
	}

	port, err := serial.OpenPort(serialCfg)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrSerialPortOpen, "端口 %s", b.config.Port)
	}

	b.port = port
	b.reader = bufio.NewReader(port)
	b.connected = true

	b.logger.Info("外设板已连接",
		zap.String("port", b.config.Port),
		zap.Int("baud", b.config.BaudRate),
	)

	return nil
}

// Disconnect 断开外设板
func (b *SerialBoard) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return nil
	}

	b.connected = false
	err := b.port.Close()
	b.port = nil
	b.reader = nil

	b.logger.Info("外设板已断开")
	return err
}

// IsConnected 是否连接
func (b *SerialBoard) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// SetRelay 控制继电器
func (b *SerialBoard) SetRelay(on bool) error {
	cmd := "RELAY OFF"
	if on {
		cmd = "RELAY ON"
	}
	_, err := b.command(cmd)
	return err
}

// SetColor 设置指示灯颜色
func (b *SerialBoard) SetColor(c Color) error {
	_, err := b.command(fmt.Sprintf("LED %d %d %d", c.R, c.G, c.B))
	return err
}

// PlayTone 播放音调（频率0视为静音）
func (b *SerialBoard) PlayTone(frequency uint16, durationMs uint16) error {
	if frequency == 0 {
		return b.StopTone()
	}
	_, err := b.command(fmt.Sprintf("TONE %d %d", frequency, durationMs))
	return err
}

// StopTone 停止蜂鸣器
func (b *SerialBoard) StopTone() error {
	_, err := b.command("TONE OFF")
	return err
}

// PollUID 轮询读卡器
func (b *SerialBoard) PollUID() (string, bool, error) {
	resp, err := b.command("POLL")
	if err != nil {
		return "", false, err
	}

	if resp == "NONE" {
		return "", false, nil
	}

	if strings.HasPrefix(resp, "UID ") {
		return strings.TrimPrefix(resp, "UID "), true, nil
	}

	return "", false, apperrors.New(apperrors.ErrInvalidResponse, resp)
}

// command 发送命令并读取单行响应
func (b *SerialBoard) command(cmd string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return "", apperrors.New(apperrors.ErrBoardOffline)
	}

	if _, err := b.port.Write([]byte(cmd + "\n")); err != nil {
		logger.LogSerialCommand(cmd, "", false)
		return "", apperrors.Wrap(err, apperrors.ErrSerialPortWrite)
	}

	line, err := b.reader.ReadString('\n')
	if err != nil {
		logger.LogSerialCommand(cmd, "", false)
		return "", apperrors.Wrap(err, apperrors.ErrSerialPortRead)
	}

	resp := strings.TrimSpace(line)
	if strings.HasPrefix(resp, "ERR") {
		logger.LogSerialCommand(cmd, resp, false)
		return "", apperrors.New(apperrors.ErrInvalidResponse, resp)
	}

	logger.LogSerialCommand(cmd, resp, true)
	return resp, nil
}
