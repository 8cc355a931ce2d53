package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/coffee-bearer/internal/machine"
	"github.com/wfunc/coffee-bearer/internal/middleware"
	"github.com/wfunc/coffee-bearer/internal/service"
	ws "github.com/wfunc/coffee-bearer/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	services       *service.Services
	authHandler    *AuthHandler
	machineHandler *MachineHandler
	credHandler    *CredentialHandler
	logHandler     *LogHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, m *machine.Machine, hub *ws.Hub, services *service.Services, log *zap.Logger) *Router {
	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	router := &Router{
		engine:         engine,
		db:             db,
		services:       services,
		authHandler:    NewAuthHandler(services.Auth),
		machineHandler: NewMachineHandler(m),
		credHandler:    NewCredentialHandler(m),
		logHandler:     NewLogHandler(m, services.EventLogRepo),
		wsHandler:      NewWebSocketHandler(hub, log),
		authMiddleware: middleware.NewAuthMiddleware(services.JWTManager),
		log:            log,
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/refresh", r.authHandler.RefreshToken)

			authRequired := auth.Group("")
			authRequired.Use(r.authMiddleware.RequireAuth())
			{
				authRequired.GET("/profile", r.authHandler.Profile)
				authRequired.PUT("/password", r.authHandler.ChangePassword)
			}
		}

		// 机器控制路由（需要认证）
		mach := v1.Group("/machine")
		mach.Use(r.authMiddleware.RequireAuth())
		{
			mach.GET("/status", r.machineHandler.Status)
			mach.POST("/serve", r.machineHandler.Serve)
			mach.POST("/refill", r.machineHandler.Refill)
			mach.POST("/adjust", r.machineHandler.AdjustCount)
			mach.PUT("/remaining", r.machineHandler.SetRemaining)
			mach.POST("/stop", r.machineHandler.EmergencyStop)
			mach.PUT("/scan-mode", r.machineHandler.SetScanMode)
		}

		// 卡片管理路由（需要认证）
		users := v1.Group("/users")
		users.Use(r.authMiddleware.RequireAuth())
		{
			users.GET("", r.credHandler.List)
			users.POST("", r.credHandler.Create)
			users.GET("/:uid", r.credHandler.Get)
			users.PUT("/:uid", r.credHandler.Update)
			users.DELETE("/:uid", r.credHandler.Delete)
			users.PUT("/:uid/credits", r.credHandler.SetCredits)
			users.POST("/:uid/credits", r.credHandler.AddCredits)
		}

		// 日志与统计路由（需要认证）
		logs := v1.Group("/logs")
		logs.Use(r.authMiddleware.RequireAuth())
		{
			logs.GET("", r.logHandler.Recent)
			logs.GET("/category/:category", r.logHandler.ByCategory)
		}

		stats := v1.Group("/stats")
		stats.Use(r.authMiddleware.RequireAuth())
		{
			stats.GET("", r.logHandler.Stats)
		}

		// 管理员路由（需要管理员权限）
		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.RequireRole("admin"))
		{
			admin.POST("/reset-credits", r.machineHandler.ResetCredits)
			admin.POST("/factory-reset", r.machineHandler.FactoryReset)
		}
	}

	// WebSocket路由
	wsGroup := r.engine.Group("/ws")
	wsGroup.Use(r.authMiddleware.RequireAuth())
	{
		wsGroup.GET("/panel", r.wsHandler.PanelWebSocket)
	}

	// 静态文件服务（管理面板）
	r.engine.Static("/static", "./static")

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("API服务启动", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
