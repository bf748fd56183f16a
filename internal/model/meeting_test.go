package model_test

import (
	"testing"
	"time"

	"github.com/mautops/meeting-gin/internal/model"
	"github.com/stretchr/testify/assert"
)

// TestMeetingModel_Validate 测试会议模型校验
func TestMeetingModel_Validate(t *testing.T) {
	valid := &model.MeetingModel{
		ID:        "meeting-001",
		RequestID: "req-001",
		CreatedBy: "user-001",
		Status:    "pending",
	}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*model.MeetingModel)
	}{
		{"缺 ID", func(m *model.MeetingModel) { m.ID = "" }},
		{"缺幂等令牌", func(m *model.MeetingModel) { m.RequestID = "" }},
		{"缺申请人", func(m *model.MeetingModel) { m.CreatedBy = "" }},
		{"缺状态", func(m *model.MeetingModel) { m.Status = "" }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := *valid
			c.mutate(&m)
			assert.Error(t, m.Validate())
		})
	}
}

// TestApprovalEntryModel_Validate 测试审批记录模型校验
func TestApprovalEntryModel_Validate(t *testing.T) {
	entry := &model.ApprovalEntryModel{
		ID:        "entry-001",
		MeetingID: "meeting-001",
		Actor:     "approver-001",
		Decision:  "approve",
		CreatedAt: time.Now(),
	}
	assert.NoError(t, entry.Validate())

	entry.Decision = ""
	assert.Error(t, entry.Validate())
}

// TestStateHistoryModel_Validate 测试状态历史模型校验
func TestStateHistoryModel_Validate(t *testing.T) {
	history := &model.StateHistoryModel{
		ID:        "history-001",
		MeetingID: "meeting-001",
		ToStatus:  "pending",
		Operator:  "user-001",
	}
	assert.NoError(t, history.Validate())

	history.Operator = ""
	assert.Error(t, history.Validate())
}

// TestNotificationModel_Validate 测试通知模型校验
func TestNotificationModel_Validate(t *testing.T) {
	notification := &model.NotificationModel{
		ID:        "notification-001",
		MeetingID: "meeting-001",
		Event:     "meeting.submitted",
		Audience:  "APPROVER_HO",
	}
	assert.NoError(t, notification.Validate())

	notification.Audience = ""
	assert.Error(t, notification.Validate())
}

// TestAuditLogModel_Validate 测试审计日志模型校验
func TestAuditLogModel_Validate(t *testing.T) {
	auditLog := &model.AuditLogModel{
		ID:           "audit-001",
		UserID:       "user-001",
		Action:       "create",
		ResourceType: "meeting",
		ResourceID:   "meeting-001",
	}
	assert.NoError(t, auditLog.Validate())

	auditLog.Action = ""
	assert.Error(t, auditLog.Validate())
}

// TestTableNames 测试表名约定
func TestTableNames(t *testing.T) {
	assert.Equal(t, "meetings", model.MeetingModel{}.TableName())
	assert.Equal(t, "approval_entries", model.ApprovalEntryModel{}.TableName())
	assert.Equal(t, "state_history", model.StateHistoryModel{}.TableName())
	assert.Equal(t, "notifications", model.NotificationModel{}.TableName())
	assert.Equal(t, "audit_logs", model.AuditLogModel{}.TableName())
}
