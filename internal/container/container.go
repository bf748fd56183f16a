package container

import (
	"fmt"
	"time"

	"github.com/mautops/meeting-gin/internal/auth"
	"github.com/mautops/meeting-gin/internal/config"
	"github.com/mautops/meeting-gin/internal/database"
	"github.com/mautops/meeting-gin/internal/metrics"
	"github.com/mautops/meeting-gin/internal/repository"
	"github.com/mautops/meeting-gin/internal/service"
	"github.com/mautops/meeting-gin/internal/websocket"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、WebSocket Hub、通知服务等
type Container struct {
	db               *gorm.DB
	hub              *websocket.Hub
	tokenValidator   *auth.TokenValidator
	notifyService    service.NotifyService
	pendingCache     *service.PendingListCache
	metricsCollector *metrics.Collector

	meetingRepo repository.MeetingRepository
	entryRepo   repository.ApprovalEntryRepository
	historyRepo repository.StateHistoryRepository
	notifyRepo  repository.NotificationRepository
	auditRepo   repository.AuditLogRepository
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. 初始化数据库（带重试机制）
	// 默认重试 3 次，初始间隔 1 秒，指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 初始化 WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// 3. 初始化 Token 验证器(仅在配置了 issuer 时启用认证)
	var tokenValidator *auth.TokenValidator
	if cfg.Auth.Issuer != "" {
		tokenValidator = auth.NewTokenValidator(cfg.Auth.Issuer, cfg.Auth.JWKSURL)
	}

	// 4. 初始化仓储
	meetingRepo := repository.NewMeetingRepository(db)
	entryRepo := repository.NewApprovalEntryRepository(db)
	historyRepo := repository.NewStateHistoryRepository(db)
	notifyRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// 5. 初始化通知服务
	notifySvc := service.NewNotifyService(notifyRepo, hub, cfg.Notify.WebhookURL, cfg.Notify.Workers, cfg.Notify.MaxRetries)

	// 6. 待审批列表快照缓存
	pendingCache := service.NewPendingListCache()

	// 7. 指标收集器
	collector := metrics.NewCollector(db, 15*time.Second)
	collector.Start()

	return &Container{
		db:               db,
		hub:              hub,
		tokenValidator:   tokenValidator,
		notifyService:    notifySvc,
		pendingCache:     pendingCache,
		metricsCollector: collector,
		meetingRepo:      meetingRepo,
		entryRepo:        entryRepo,
		historyRepo:      historyRepo,
		notifyRepo:       notifyRepo,
		auditRepo:        auditRepo,
	}, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// TokenValidator 获取 Token 验证器
func (c *Container) TokenValidator() *auth.TokenValidator {
	return c.tokenValidator
}

// NotifyService 获取通知服务
func (c *Container) NotifyService() service.NotifyService {
	return c.notifyService
}

// PendingCache 获取待审批列表快照缓存
func (c *Container) PendingCache() *service.PendingListCache {
	return c.pendingCache
}

// MeetingRepository 获取会议仓储
func (c *Container) MeetingRepository() repository.MeetingRepository {
	return c.meetingRepo
}

// ApprovalEntryRepository 获取审批记录仓储
func (c *Container) ApprovalEntryRepository() repository.ApprovalEntryRepository {
	return c.entryRepo
}

// StateHistoryRepository 获取状态历史仓储
func (c *Container) StateHistoryRepository() repository.StateHistoryRepository {
	return c.historyRepo
}

// NotificationRepository 获取通知仓储
func (c *Container) NotificationRepository() repository.NotificationRepository {
	return c.notifyRepo
}

// AuditLogRepository 获取审计日志仓储
func (c *Container) AuditLogRepository() repository.AuditLogRepository {
	return c.auditRepo
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.metricsCollector != nil {
		c.metricsCollector.Stop()
	}

	if c.notifyService != nil {
		c.notifyService.Stop()
	}

	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return nil
}
