package service_test

import (
	"testing"
	"time"

	"github.com/mautops/meeting-gin/internal/model"
	"github.com/mautops/meeting-gin/internal/repository"
	"github.com/mautops/meeting-gin/internal/service"
	"github.com/mautops/meeting-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newApprovalService 装配审批服务及其仓储
func newApprovalService(t *testing.T, db *gorm.DB) (service.ApprovalService, repository.ApprovalEntryRepository, repository.StateHistoryRepository) {
	meetingRepo := repository.NewMeetingRepository(db)
	entryRepo := repository.NewApprovalEntryRepository(db)
	historyRepo := repository.NewStateHistoryRepository(db)
	auditSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))

	svc := service.NewApprovalService(meetingRepo, entryRepo, historyRepo, nil, auditSvc)
	return svc, entryRepo, historyRepo
}

// createPendingMeeting 落库一条待审批的会议申请
func createPendingMeeting(t *testing.T, db *gorm.DB) *model.MeetingModel {
	meetingSvc, _, _ := newMeetingService(t, db)
	meeting, err := meetingSvc.Create(requesterContext("user-001"), newCreateRequest())
	require.NoError(t, err)
	return meeting
}

// TestApprovalService_Approve 测试审批同意
func TestApprovalService_Approve(t *testing.T) {
	db := setupTestDB(t)
	svc, entryRepo, historyRepo := newApprovalService(t, db)
	meeting := createPendingMeeting(t, db)

	ctx := approverContext("approver-001", "APPROVER_HO")
	decided, err := svc.Decide(ctx, meeting.ID, &service.DecideRequest{
		Approval: service.DecisionApproved,
		Remarks:  "Budget confirmed",
	})
	require.NoError(t, err)

	assert.Equal(t, "approved", decided.Status)
	require.NotNil(t, decided.DecidedAt)

	// 追加审批记录
	entries, err := entryRepo.FindByMeetingID(meeting.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "approver-001", entries[0].Actor)
	assert.Equal(t, "APPROVER_HO", entries[0].ActorRole)
	assert.Equal(t, "approve", entries[0].Decision)
	assert.Equal(t, "Budget confirmed", entries[0].Remarks)

	// 状态历史: 创建 + 审批两条
	history, err := historyRepo.FindByMeetingID(meeting.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
}

// TestApprovalService_Reject 测试审批拒绝
func TestApprovalService_Reject(t *testing.T) {
	db := setupTestDB(t)
	svc, entryRepo, _ := newApprovalService(t, db)
	meeting := createPendingMeeting(t, db)

	ctx := approverContext("approver-002", "APPROVER_MGMT")
	decided, err := svc.Decide(ctx, meeting.ID, &service.DecideRequest{
		Approval: service.DecisionRejected,
		Remarks:  "Out of budget this quarter",
	})
	require.NoError(t, err)

	assert.Equal(t, "rejected", decided.Status)

	entries, err := entryRepo.FindByMeetingID(meeting.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "reject", entries[0].Decision)
}

// TestApprovalService_Decide_ApproverRoleRequired 测试非审批角色被拒绝
func TestApprovalService_Decide_ApproverRoleRequired(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newApprovalService(t, db)
	meeting := createPendingMeeting(t, db)

	_, err := svc.Decide(requesterContext("user-001"), meeting.ID, &service.DecideRequest{
		Approval: service.DecisionApproved,
	})

	var authErr *workflow.AuthorizationError
	assert.ErrorAs(t, err, &authErr)
}

// TestApprovalService_Decide_InvalidApproval 测试非法的审批决定值
func TestApprovalService_Decide_InvalidApproval(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newApprovalService(t, db)
	meeting := createPendingMeeting(t, db)

	ctx := approverContext("approver-001", "APPROVER_HO")
	_, err := svc.Decide(ctx, meeting.ID, &service.DecideRequest{Approval: "MAYBE"})

	var validationErr *workflow.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "approval", validationErr.Field)
}

// TestApprovalService_Decide_DoubleDecision 测试第二个审批决定报告冲突
func TestApprovalService_Decide_DoubleDecision(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newApprovalService(t, db)
	meeting := createPendingMeeting(t, db)

	first := approverContext("approver-001", "APPROVER_HO")
	_, err := svc.Decide(first, meeting.ID, &service.DecideRequest{Approval: service.DecisionApproved})
	require.NoError(t, err)

	// 第二个审批人迟到,带前置条件的更新行数为 0
	second := approverContext("approver-002", "APPROVER_MGMT")
	_, err = svc.Decide(second, meeting.ID, &service.DecideRequest{Approval: service.DecisionRejected})

	var conflictErr *workflow.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

// TestApprovalService_Decide_ExpiredMeeting 测试过期记录拒绝迟到的决定
func TestApprovalService_Decide_ExpiredMeeting(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newApprovalService(t, db)

	// 直接落库一条会议日期已过的 pending 记录
	meetingRepo := repository.NewMeetingRepository(db)
	expired := &model.MeetingModel{
		ID:             "meeting-expired",
		RequestID:      "req-expired",
		CreatedBy:      "user-001",
		Status:         "pending",
		ContactPerson:  "John Doe",
		Designation:    "Procurement Lead",
		ContactNumber:  "+91-9800000000",
		Email:          "john@acme.example",
		Location:       "Pune",
		MeetingPurpose: "Quarterly contract review",
		MeetingDate:    time.Now().AddDate(0, 0, -2),
		CreatedAt:      time.Now().AddDate(0, 0, -10),
		UpdatedAt:      time.Now().AddDate(0, 0, -10),
	}
	require.NoError(t, meetingRepo.Save(expired))

	ctx := approverContext("approver-001", "APPROVER_HO")
	_, err := svc.Decide(ctx, expired.ID, &service.DecideRequest{Approval: service.DecisionApproved})

	var conflictErr *workflow.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

// TestApprovalService_Decide_NotFound 测试审批不存在的会议
func TestApprovalService_Decide_NotFound(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newApprovalService(t, db)

	ctx := approverContext("approver-001", "APPROVER_HO")
	_, err := svc.Decide(ctx, "no-such-meeting", &service.DecideRequest{Approval: service.DecisionApproved})

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// TestApprovalService_Entries 测试查询审批记录
func TestApprovalService_Entries(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newApprovalService(t, db)
	meeting := createPendingMeeting(t, db)

	ctx := approverContext("approver-001", "APPROVER_HO")
	_, err := svc.Decide(ctx, meeting.ID, &service.DecideRequest{Approval: service.DecisionApproved})
	require.NoError(t, err)

	entries, err := svc.Entries(meeting.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	byActor, err := svc.EntriesByActor("approver-001")
	require.NoError(t, err)
	assert.Len(t, byActor, 1)
}
