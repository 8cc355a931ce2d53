package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/wfunc/coffee-bearer/internal/api"
	"github.com/wfunc/coffee-bearer/internal/config"
	"github.com/wfunc/coffee-bearer/internal/database"
	"github.com/wfunc/coffee-bearer/internal/errors"
	"github.com/wfunc/coffee-bearer/internal/hardware"
	"github.com/wfunc/coffee-bearer/internal/logger"
	"github.com/wfunc/coffee-bearer/internal/machine"
	"github.com/wfunc/coffee-bearer/internal/service"
	"github.com/wfunc/coffee-bearer/internal/websocket"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	board      hardware.BoardController
	machine    *machine.Machine
	hub        *websocket.Hub
	services   *service.Services
	httpServer *http.Server

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	server := NewServer(cfg)

	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动咖啡机服务...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initDatabase(); err != nil {
		return err
	}
	if err := s.initBoard(); err != nil {
		return err
	}
	if err := s.initServices(); err != nil {
		return err
	}
	if err := s.initMachine(); err != nil {
		return err
	}

	s.startServices()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.cfg = newCfg
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)),
	)
	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...")

	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.logger.Info("数据库初始化完成")
	return nil
}

// initBoard 初始化外设板
func (s *Server) initBoard() error {
	if s.cfg.Serial.MockMode || !s.cfg.Serial.Enabled {
		s.logger.Warn("使用模拟外设板（无真实硬件）")
		s.board = hardware.NewMockBoard()
	} else {
		s.logger.Info("连接外设板",
			zap.String("port", s.cfg.Serial.Port),
			zap.Int("baud_rate", s.cfg.Serial.BaudRate),
		)
		s.board = hardware.NewSerialBoard(&hardware.SerialBoardConfig{
			Port:         s.cfg.Serial.Port,
			BaudRate:     s.cfg.Serial.BaudRate,
			ReadTimeout:  s.cfg.Serial.ReadTimeout,
			WriteTimeout: s.cfg.Serial.WriteTimeout,
		})
	}

	if err := s.board.Connect(); err != nil {
		return errors.Wrap(err, errors.ErrSerialPortOpen, "外设板连接失败")
	}
	return nil
}

// initServices 初始化服务层
func (s *Server) initServices() error {
	s.hub = websocket.NewHub(s.logger)

	svcConfig := &service.Config{
		JWTSecret:          s.cfg.Security.JWT.Secret,
		AccessTokenExpiry:  time.Duration(s.cfg.Security.JWT.ExpireHours) * time.Hour,
		RefreshTokenExpiry: time.Duration(s.cfg.Security.JWT.RefreshHours) * time.Hour,
		DefaultAdminUser:   "admin",
		DefaultAdminPass:   "admin123",
	}
	s.services = service.NewServices(database.GetDB(), s.hub, svcConfig, s.logger)

	// 首次启动创建默认管理员
	if err := s.services.Auth.EnsureDefaultAdmin(s.ctx, svcConfig.DefaultAdminUser, svcConfig.DefaultAdminPass); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseQuery, "初始化默认管理员失败")
	}
	return nil
}

// initMachine 初始化咖啡机核心
func (s *Server) initMachine() error {
	state, err := s.services.StateRepo.Load(s.ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseQuery, "加载机器状态失败")
	}

	machineCfg := machine.Config{
		Dispenser: machine.DispenserConfig{
			Capacity:        s.cfg.Machine.Capacity,
			ServeDurationMs: uint32(s.cfg.Machine.ServeDuration.Milliseconds()),
			SaveIntervalMs:  uint32(s.cfg.Machine.SaveInterval.Milliseconds()),
		},
		Store: machine.CredentialStoreConfig{
			MaxUsers:       s.cfg.RFID.MaxUsers,
			InitialCredits: s.cfg.RFID.InitialCredits,
			ResetInterval:  uint32(s.cfg.RFID.WeeklyResetInterval.Milliseconds()),
			SaveIntervalMs: uint32(s.cfg.Machine.SaveInterval.Milliseconds()),
		},
		Scanner: machine.ScannerConfig{
			MasterUID:  s.cfg.RFID.MasterUID,
			CooldownMs: uint32(s.cfg.RFID.Cooldown.Milliseconds()),
		},
	}

	s.machine = machine.New(
		machine.NewSystemClock(),
		s.board,
		s.services.StateRepo,
		s.services.CredRepo,
		state,
		s.services.Bridge,
		machineCfg,
		s.logger,
	)

	if err := s.machine.LoadCredentials(s.ctx); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseQuery, "加载卡片数据失败")
	}
	return nil
}

// startServices 启动后台服务
func (s *Server) startServices() {
	// WebSocket Hub随进程退出，不计入等待组
	go s.hub.Run()

	// 主循环
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.machine.Run(s.ctx, s.cfg.Machine.TickInterval)
	}()

	// HTTP服务
	router := api.NewRouter(database.GetDB(), s.machine, s.hub, s.services, s.logger)
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
		}
	}()
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止HTTP服务
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP服务关闭失败", zap.Error(err))
		}
	}

	// 取消主上下文，主循环退出时落盘
	s.cancel()

	done := make(chan struct{})
	go func() {
		// Hub.Run没有退出机制，不等待它
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
	}

	return s.closeComponents()
}

// closeComponents 关闭组件
func (s *Server) closeComponents() error {
	// 最后一次落盘
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.machine.Flush(flushCtx); err != nil {
		s.logger.Error("退出落盘失败", zap.Error(err))
	}

	// 熄灯并断开外设板
	if s.board != nil {
		if err := s.board.Disconnect(); err != nil {
			s.logger.Error("断开外设板失败", zap.Error(err))
		}
	}

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}

	s.logger.Info("所有组件已关闭")
	return nil
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("咖啡机管理服务\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
