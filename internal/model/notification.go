package model

import (
	"errors"
	"time"
)

// NotificationModel 通知数据模型
// 状态转换产生的通知先落库再异步投递,投递失败不回滚转换
type NotificationModel struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	MeetingID  string    `gorm:"type:varchar(64);not null;index"`
	Event      string    `gorm:"type:varchar(32);not null;index"` // meeting.submitted/meeting.approved/meeting.rejected
	Audience   string    `gorm:"type:varchar(32);not null"`       // 角色名或 user
	Recipient  string    `gorm:"type:varchar(64);index"`          // Audience 为 user 时的用户 ID
	Payload    []byte    `gorm:"type:jsonb;not null"`             // 序列化后的事件数据
	Status     string    `gorm:"type:varchar(16);not null;default:'pending'"` // pending/success/failed
	RetryCount int       `gorm:"type:int;default:0"`
	CreatedAt  time.Time `gorm:"not null;index"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName 指定表名
func (NotificationModel) TableName() string {
	return "notifications"
}

// Validate 验证通知模型
func (nm *NotificationModel) Validate() error {
	if nm.ID == "" {
		return errors.New("notification ID is required")
	}
	if nm.MeetingID == "" {
		return errors.New("meeting ID is required")
	}
	if nm.Event == "" {
		return errors.New("event type is required")
	}
	if nm.Audience == "" {
		return errors.New("audience is required")
	}
	if nm.Status == "" {
		nm.Status = "pending"
	}
	return nil
}
