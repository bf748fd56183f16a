package model

import (
	"errors"
	"time"
)

// ApprovalEntryModel 审批记录数据模型
// 仅追加,作为每条会议申请的审计轨迹,不允许覆盖
type ApprovalEntryModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	MeetingID string    `gorm:"type:varchar(64);not null;index"`
	Actor     string    `gorm:"type:varchar(64);not null;index"`
	ActorRole string    `gorm:"type:varchar(32);not null"` // APPROVER_HO/APPROVER_MGMT
	Decision  string    `gorm:"type:varchar(16);not null"` // approve/reject
	Remarks   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (ApprovalEntryModel) TableName() string {
	return "approval_entries"
}

// Validate 验证审批记录模型
func (aem *ApprovalEntryModel) Validate() error {
	if aem.ID == "" {
		return errors.New("entry ID is required")
	}
	if aem.MeetingID == "" {
		return errors.New("meeting ID is required")
	}
	if aem.Actor == "" {
		return errors.New("actor is required")
	}
	if aem.Decision == "" {
		return errors.New("decision is required")
	}
	return nil
}
