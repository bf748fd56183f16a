package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mautops/meeting-gin/internal/config"
	"github.com/mautops/meeting-gin/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 从配置中读取连接池参数,未设置的值使用默认值
	poolConfig := GetPoolConfig()
	if cfg.MaxIdleConns > 0 {
		poolConfig.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolConfig.ConnMaxIdleTime = cfg.ConnMaxIdleTime
	}

	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb,需要手动创建表
	if dialector == "sqlite" || dialector == "sqlite3" {
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		if err := db.AutoMigrate(
			&model.MeetingModel{},
			&model.ApprovalEntryModel{},
			&model.StateHistoryModel{},
			&model.NotificationModel{},
			&model.AuditLogModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表（使用 TEXT 替代 jsonb）
func createSQLiteTables(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS meetings (
			id VARCHAR(64) PRIMARY KEY,
			request_id VARCHAR(64) NOT NULL UNIQUE,
			created_by VARCHAR(64) NOT NULL,
			status VARCHAR(16) NOT NULL,
			client_name VARCHAR(255),
			contact_person VARCHAR(255) NOT NULL,
			designation VARCHAR(255) NOT NULL,
			contact_number VARCHAR(32) NOT NULL,
			email VARCHAR(255) NOT NULL,
			organization VARCHAR(255),
			location VARCHAR(255) NOT NULL,
			meeting_purpose TEXT NOT NULL,
			meeting_date DATE NOT NULL,
			visit_place VARCHAR(255),
			discussion_summary TEXT,
			path_of_travel VARCHAR(32),
			distance_km DECIMAL(10,2),
			expenses DECIMAL(10,2),
			remarks TEXT,
			start_time VARCHAR(8),
			end_time VARCHAR(8),
			resubmit_of VARCHAR(64),
			decided_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create meetings table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS approval_entries (
			id VARCHAR(64) PRIMARY KEY,
			meeting_id VARCHAR(64) NOT NULL,
			actor VARCHAR(64) NOT NULL,
			actor_role VARCHAR(32) NOT NULL,
			decision VARCHAR(16) NOT NULL,
			remarks TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create approval_entries table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS state_history (
			id VARCHAR(64) PRIMARY KEY,
			meeting_id VARCHAR(64) NOT NULL,
			from_status VARCHAR(16),
			to_status VARCHAR(16) NOT NULL,
			reason TEXT,
			operator VARCHAR(64) NOT NULL,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create state_history table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id VARCHAR(64) PRIMARY KEY,
			meeting_id VARCHAR(64) NOT NULL,
			event VARCHAR(32) NOT NULL,
			audience VARCHAR(32) NOT NULL,
			recipient VARCHAR(64),
			payload TEXT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			retry_count INTEGER DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create notifications table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			action VARCHAR(64) NOT NULL,
			resource_type VARCHAR(32) NOT NULL,
			resource_id VARCHAR(64) NOT NULL,
			request_id VARCHAR(64),
			ip VARCHAR(45),
			user_agent TEXT,
			details TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create audit_logs table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	dialector := db.Dialector.Name()

	// meetings 表索引
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_meetings_request_id ON meetings(request_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_meetings_request_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_meetings_status_creator ON meetings(status, created_by)").Error; err != nil {
		return fmt.Errorf("failed to create idx_meetings_status_creator: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_meetings_meeting_date ON meetings(meeting_date)").Error; err != nil {
		return fmt.Errorf("failed to create idx_meetings_meeting_date: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_meetings_updated_at ON meetings(updated_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_meetings_updated_at: %w", err)
	}

	// approval_entries 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_entries_meeting_id ON approval_entries(meeting_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_entries_meeting_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_entries_actor ON approval_entries(actor)").Error; err != nil {
		return fmt.Errorf("failed to create idx_entries_actor: %w", err)
	}

	// state_history 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_meeting_id ON state_history(meeting_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_meeting_id: %w", err)
	}

	// notifications 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_notifications_status: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_meeting_id ON notifications(meeting_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_notifications_meeting_id: %w", err)
	}

	// audit_logs 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_resource: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_logs(user_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_user_id: %w", err)
	}

	// PostgreSQL 特定的 GIN 索引
	if dialector == "postgres" {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_payload_gin ON notifications USING GIN (payload)").Error; err != nil {
			return fmt.Errorf("failed to create idx_notifications_payload_gin: %w", err)
		}
	}

	return nil
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return false
	}

	return true
}

// Reconnect 重新连接数据库
func Reconnect(cfg config.DatabaseConfig, oldDB *gorm.DB) (*gorm.DB, error) {
	if oldDB != nil {
		if sqlDB, err := oldDB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return Connect(cfg)
}
