package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	_ "github.com/mautops/meeting-gin/docs" // 导入生成的 docs 包
	"github.com/mautops/meeting-gin/internal/auth"
	"github.com/mautops/meeting-gin/internal/config"
	"github.com/mautops/meeting-gin/internal/websocket"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// SetupRoutes 配置路由
func SetupRoutes(
	cfg *config.Config,
	db *gorm.DB,
	validator *auth.TokenValidator,
	hub *websocket.Hub,
	meetingController *MeetingController,
) *gin.Engine {
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(ErrorHandlerMiddleware())
	if len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))
	}
	if cfg.Server.RateLimitRPS > 0 {
		router.Use(RateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))
	}

	// 健康检查
	healthController := NewHealthController(db)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 路由
	if hub != nil && validator != nil {
		router.GET("/ws/meetings", websocket.WebSocketHandler(hub, validator))
	}

	// SSE 路由
	if validator != nil {
		router.GET("/sse/meetings/:id", SSEHandler(validator))
	}

	// Swagger UI 路由
	swaggerHost := cfg.Server.Host
	if swaggerHost == "0.0.0.0" {
		swaggerHost = "localhost"
	}
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL(fmt.Sprintf("http://%s:%d/swagger/doc.json", swaggerHost, cfg.Server.Port)),
	))

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		if validator != nil {
			v1.Use(auth.AuthMiddleware(validator))
		}

		meetings := v1.Group("/meetings")
		{
			// 待审批列表必须在 /:id 之前注册
			meetings.GET("/pending", auth.RequireApprover(), meetingController.ListPending)

			meetings.POST("", meetingController.Create)
			meetings.GET("", meetingController.List)

			meetings.GET("/:id", meetingController.Get)
			meetings.DELETE("/:id", meetingController.Delete)

			meetings.PUT("/:id/logistics", meetingController.UpdateLogistics)
			meetings.POST("/:id/approve", auth.RequireApprover(), meetingController.Decide)
			meetings.POST("/:id/resubmit", meetingController.Resubmit)
			meetings.GET("/:id/entries", meetingController.Entries)
			meetings.GET("/:id/history", meetingController.History)
		}
	}

	// 自定义 NoRoute 处理器,未匹配的路由返回 JSON 而不是 HTML
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "route not found", "the requested route does not exist")
	})

	return router
}
