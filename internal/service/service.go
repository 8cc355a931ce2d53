package service

import (
	"time"

	"github.com/wfunc/coffee-bearer/internal/repository"
	"github.com/wfunc/coffee-bearer/internal/utils"
	"github.com/wfunc/coffee-bearer/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config 服务配置
type Config struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	DefaultAdminUser   string
	DefaultAdminPass   string
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		JWTSecret:          "change-me-in-production",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		DefaultAdminUser:   "admin",
		DefaultAdminPass:   "admin123",
	}
}

// Services 服务集合
type Services struct {
	Auth   AuthService
	Bridge *EventBridge

	JWTManager *utils.JWTManager

	AdminRepo    repository.AdminRepository
	CredRepo     repository.CredentialRepository
	StateRepo    repository.MachineStateRepository
	EventLogRepo repository.EventLogRepository
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, hub *websocket.Hub, config *Config, log *zap.Logger) *Services {
	// 初始化仓储
	adminRepo := repository.NewAdminRepository(db)
	credRepo := repository.NewCredentialRepository(db)
	stateRepo := repository.NewMachineStateRepository(db)
	eventLogRepo := repository.NewEventLogRepository(db)

	// 初始化JWT管理器
	jwtManager := utils.NewJWTManager(
		config.JWTSecret,
		config.AccessTokenExpiry,
		config.RefreshTokenExpiry,
	)

	authService := NewAuthService(adminRepo, jwtManager, log)
	bridge := NewEventBridge(hub, eventLogRepo, log)

	return &Services{
		Auth:         authService,
		Bridge:       bridge,
		JWTManager:   jwtManager,
		AdminRepo:    adminRepo,
		CredRepo:     credRepo,
		StateRepo:    stateRepo,
		EventLogRepo: eventLogRepo,
	}
}
