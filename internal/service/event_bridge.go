package service

import (
	"context"
	"time"

	"github.com/wfunc/coffee-bearer/internal/machine"
	"github.com/wfunc/coffee-bearer/internal/models"
	"github.com/wfunc/coffee-bearer/internal/repository"
	"github.com/wfunc/coffee-bearer/internal/websocket"
	"go.uber.org/zap"
)

// logWriteTimeout 事件落库超时。主循环不等数据库
const logWriteTimeout = 3 * time.Second

// EventBridge 把机器核心的事件转发到WebSocket面板并落库。
// 所有转发都是发后即忘，不阻塞调用方的tick路径。
type EventBridge struct {
	hub       *websocket.Hub
	eventRepo repository.EventLogRepository
	log       *zap.Logger
}

// NewEventBridge 创建事件桥
func NewEventBridge(hub *websocket.Hub, eventRepo repository.EventLogRepository, log *zap.Logger) *EventBridge {
	return &EventBridge{
		hub:       hub,
		eventRepo: eventRepo,
		log:       log,
	}
}

// StatusChanged 状态快照变化，推送给所有面板
func (b *EventBridge) StatusChanged(snapshot machine.StatusSnapshot) {
	if b.hub == nil {
		return
	}
	if err := b.hub.BroadcastJSON(websocket.MessageTypeSystemStatus, snapshot); err != nil && b.log != nil {
		b.log.Warn("推送状态快照失败", zap.Error(err))
	}
}

// UIDCaptured 登记模式采集到UID，推送给面板供登记表单填充
func (b *EventBridge) UIDCaptured(uid string) {
	if b.hub == nil {
		return
	}
	payload := map[string]string{"uid": uid}
	if err := b.hub.BroadcastJSON(websocket.MessageTypeUIDScanned, payload); err != nil && b.log != nil {
		b.log.Warn("推送采集UID失败", zap.Error(err))
	}
}

// LogLine 结构化日志行：落库并推送
func (b *EventBridge) LogLine(category, level, message string) {
	entry := &models.EventLog{
		Category: models.EventCategory(category),
		Level:    models.EventLevel(level),
		Message:  message,
	}

	if b.eventRepo != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), logWriteTimeout)
			defer cancel()
			if err := b.eventRepo.Create(ctx, entry); err != nil && b.log != nil {
				b.log.Warn("事件日志落库失败", zap.Error(err))
			}
		}()
	}

	if b.hub != nil {
		payload := map[string]string{
			"category": category,
			"level":    level,
			"message":  message,
		}
		if err := b.hub.BroadcastJSON(websocket.MessageTypeLogLine, payload); err != nil && b.log != nil {
			b.log.Warn("推送日志行失败", zap.Error(err))
		}
	}
}

var _ machine.EventSink = (*EventBridge)(nil)
