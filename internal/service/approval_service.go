package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/meeting-gin/internal/metrics"
	"github.com/mautops/meeting-gin/internal/model"
	"github.com/mautops/meeting-gin/internal/repository"
	"github.com/mautops/meeting-gin/internal/utils"
	"github.com/mautops/meeting-gin/internal/workflow"
	"gorm.io/gorm"
)

// 审批决定值
const (
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)

// ApprovalService 审批服务接口
type ApprovalService interface {
	Decide(ctx context.Context, id string, req *DecideRequest) (*model.MeetingModel, error)
	Entries(meetingID string) ([]*model.ApprovalEntryModel, error)
	EntriesByActor(actor string) ([]*model.ApprovalEntryModel, error)
}

// DecideRequest 审批决定请求
// @Description 审批同意或拒绝的请求参数
type DecideRequest struct {
	Approval string `json:"approval" example:"APPROVED" binding:"required"` // APPROVED 或 REJECTED
	Remarks  string `json:"remarks" example:"Budget confirmed"`             // 审批意见
}

// approvalService 审批服务实现
type approvalService struct {
	meetingRepo repository.MeetingRepository
	entryRepo   repository.ApprovalEntryRepository
	historyRepo repository.StateHistoryRepository
	notifySvc   NotifyService
	auditLogSvc AuditLogService
}

// NewApprovalService 创建审批服务
func NewApprovalService(
	meetingRepo repository.MeetingRepository,
	entryRepo repository.ApprovalEntryRepository,
	historyRepo repository.StateHistoryRepository,
	notifySvc NotifyService,
	auditLogSvc AuditLogService,
) ApprovalService {
	return &approvalService{
		meetingRepo: meetingRepo,
		entryRepo:   entryRepo,
		historyRepo: historyRepo,
		notifySvc:   notifySvc,
		auditLogSvc: auditLogSvc,
	}
}

// Decide 对待审批的申请做出决定
// 状态更新带前置条件,两个审批人同时操作时只有一个生效
func (s *approvalService) Decide(ctx context.Context, id string, req *DecideRequest) (*model.MeetingModel, error) {
	if err := utils.ValidateMeetingID(id); err != nil {
		return nil, &workflow.ValidationError{Field: "id", Reason: err.Error()}
	}

	roles := getRolesFromContext(ctx)
	if !workflow.HasApproverRole(roles) {
		return nil, &workflow.AuthorizationError{Message: "approver role required"}
	}

	event, err := decisionEvent(req.Approval)
	if err != nil {
		return nil, err
	}

	meeting, err := s.meetingRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	// 会议日期已过的记录派生为 completed,拒绝迟到的决定
	now := time.Now()
	effective := workflow.EffectiveStatus(workflow.Status(meeting.Status), meeting.MeetingDate, now)
	toStatus, err := workflow.Transition(effective, event)
	if err != nil {
		return nil, err
	}

	// 乐观前置条件: 行数为 0 说明另一个审批人先到
	rows, err := s.meetingRepo.UpdateStatusIf(id, string(workflow.StatusPending), string(toStatus), &now)
	if err != nil {
		return nil, fmt.Errorf("failed to update meeting status: %w", err)
	}
	if rows == 0 {
		return nil, &workflow.ConflictError{
			Message: fmt.Sprintf("meeting %s is no longer pending", id),
		}
	}

	meeting.Status = string(toStatus)
	meeting.DecidedAt = &now
	meeting.UpdatedAt = now

	s.appendEntry(ctx, meeting, event, req.Remarks, roles)
	s.recordHistory(meeting.ID, string(workflow.StatusPending), meeting.Status, req.Remarks, getUserIDFromContext(ctx))

	if s.notifySvc != nil {
		s.notifySvc.MeetingDecided(meeting, meeting.Status)
	}

	metrics.RecordApproval(strings.ToLower(req.Approval))
	s.recordAudit(ctx, strings.ToLower(string(event)), meeting, req.Remarks)

	return meeting, nil
}

// Entries 查询会议的审批记录
func (s *approvalService) Entries(meetingID string) ([]*model.ApprovalEntryModel, error) {
	if err := utils.ValidateMeetingID(meetingID); err != nil {
		return nil, &workflow.ValidationError{Field: "id", Reason: err.Error()}
	}
	return s.entryRepo.FindByMeetingID(meetingID)
}

// EntriesByActor 查询审批人的审批记录
func (s *approvalService) EntriesByActor(actor string) ([]*model.ApprovalEntryModel, error) {
	return s.entryRepo.FindByActor(actor)
}

// decisionEvent 将审批决定值映射到状态转换事件
func decisionEvent(approval string) (workflow.Event, error) {
	switch approval {
	case DecisionApproved:
		return workflow.EventApprove, nil
	case DecisionRejected:
		return workflow.EventReject, nil
	default:
		return "", &workflow.ValidationError{
			Field:  "approval",
			Reason: "approval must be APPROVED or REJECTED",
		}
	}
}

// appendEntry 追加审批记录
func (s *approvalService) appendEntry(ctx context.Context, meeting *model.MeetingModel, event workflow.Event, remarks string, roles []string) {
	actorRole := ""
	for _, r := range roles {
		if workflow.IsApproverRole(r) {
			actorRole = r
			break
		}
	}

	_ = s.entryRepo.Append(&model.ApprovalEntryModel{
		ID:        uuid.New().String(),
		MeetingID: meeting.ID,
		Actor:     getUserIDFromContext(ctx),
		ActorRole: actorRole,
		Decision:  string(event),
		Remarks:   remarks,
		CreatedAt: time.Now(),
	})
}

// recordHistory 记录状态变更历史
func (s *approvalService) recordHistory(meetingID, from, to, reason, operator string) {
	if s.historyRepo == nil {
		return
	}
	_ = s.historyRepo.Save(&model.StateHistoryModel{
		ID:         uuid.New().String(),
		MeetingID:  meetingID,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
		Operator:   operator,
		CreatedAt:  time.Now(),
	})
}

// recordAudit 记录审计日志
func (s *approvalService) recordAudit(ctx context.Context, action string, meeting *model.MeetingModel, remarks string) {
	if s.auditLogSvc == nil {
		return
	}
	userID := getUserIDFromContext(ctx)
	if userID == "" {
		return
	}
	details := fmt.Sprintf(`{"meeting_id":%q,"status":%q,"remarks":%q}`, meeting.ID, meeting.Status, remarks)
	_ = s.auditLogSvc.RecordAction(ctx, userID, action, "meeting", meeting.ID, details)
}
