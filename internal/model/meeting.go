package model

import (
	"errors"
	"time"
)

// MeetingModel 会议申请数据模型
// 第一阶段字段在提交时填写,第二阶段字段仅在审批通过后可写
type MeetingModel struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	RequestID string `gorm:"type:varchar(64);not null;uniqueIndex"` // 幂等令牌,每次提交尝试生成一次
	CreatedBy string `gorm:"type:varchar(64);not null;index"`       // 申请人 ID
	Status    string `gorm:"type:varchar(16);not null;index"`       // 会议状态

	// 第一阶段: 身份与意图
	ClientName     string    `gorm:"type:varchar(255)"`
	ContactPerson  string    `gorm:"type:varchar(255);not null"`
	Designation    string    `gorm:"type:varchar(255);not null"`
	ContactNumber  string    `gorm:"type:varchar(32);not null"`
	Email          string    `gorm:"type:varchar(255);not null"`
	Organization   string    `gorm:"type:varchar(255)"` // 可选
	Location       string    `gorm:"type:varchar(255);not null"`
	MeetingPurpose string    `gorm:"type:text;not null"`
	MeetingDate    time.Time `gorm:"type:date;not null;index"`

	// 第二阶段: 执行与后勤,审批通过后解锁
	VisitPlace        string  `gorm:"type:varchar(255)"`
	DiscussionSummary string  `gorm:"type:text"`
	PathOfTravel      string  `gorm:"type:varchar(32)"`
	DistanceKM        float64 `gorm:"type:decimal(10,2)"`
	Expenses          float64 `gorm:"type:decimal(10,2)"` // 服务端按距离和出行方式计算,只读投影
	Remarks           string  `gorm:"type:text"`
	StartTime         string  `gorm:"type:varchar(8)"` // HH:MM:SS
	EndTime           string  `gorm:"type:varchar(8)"` // HH:MM:SS

	ResubmitOf string     `gorm:"type:varchar(64);index"` // 被拒绝周期的 ID,重新提交时填写
	DecidedAt  *time.Time `gorm:"index"`                  // 审批决定时间
	CreatedAt  time.Time  `gorm:"not null;index"`
	UpdatedAt  time.Time  `gorm:"not null;index"`
}

// TableName 指定表名
func (MeetingModel) TableName() string {
	return "meetings"
}

// Validate 验证会议模型
func (mm *MeetingModel) Validate() error {
	if mm.ID == "" {
		return errors.New("meeting ID is required")
	}
	if mm.RequestID == "" {
		return errors.New("request ID is required")
	}
	if mm.CreatedBy == "" {
		return errors.New("creator ID is required")
	}
	if mm.Status == "" {
		return errors.New("meeting status is required")
	}
	return nil
}
