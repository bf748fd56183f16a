package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/meeting-gin/internal/metrics"
	"github.com/mautops/meeting-gin/internal/model"
	"github.com/mautops/meeting-gin/internal/repository"
	"github.com/mautops/meeting-gin/internal/utils"
	"github.com/mautops/meeting-gin/internal/workflow"
	"gorm.io/gorm"
)

// MeetingService 会议申请服务接口
// 承载全部写路径,读路径见 QueryService
type MeetingService interface {
	Create(ctx context.Context, req *CreateMeetingRequest) (*model.MeetingModel, error)
	UpdateLogistics(ctx context.Context, id string, req *UpdateLogisticsRequest) (*model.MeetingModel, error)
	Resubmit(ctx context.Context, id string, req *CreateMeetingRequest) (*model.MeetingModel, error)
	Delete(ctx context.Context, id string) error
}

// CreateMeetingRequest 创建会议申请请求
// @Description 创建会议申请的请求参数,仅包含第一阶段字段
type CreateMeetingRequest struct {
	RequestID      string `json:"request_id" example:"b3f1c2d4-0a9e-4f6b-8c7d-1e2f3a4b5c6d" binding:"required"` // 幂等令牌,每次提交尝试生成一次
	ClientName     string `json:"client_name" example:"Acme Corp"`                                              // 客户名称
	ContactPerson  string `json:"contact_person" example:"John Doe" binding:"required"`                         // 联系人
	Designation    string `json:"designation" example:"Procurement Lead" binding:"required"`                    // 职位
	ContactNumber  string `json:"contact_number" example:"+91-9800000000" binding:"required"`                   // 联系电话
	Email          string `json:"email" example:"john@acme.example" binding:"required"`                         // 邮箱
	Organization   string `json:"organization" example:"Acme Corp"`                                             // 组织(可选)
	Location       string `json:"location" example:"Pune"`                                                      // 会议地点
	MeetingPurpose string `json:"meeting_purpose" example:"Quarterly contract review"`                          // 会议目的
	MeetingDate    string `json:"meeting_date" example:"2026-09-15" binding:"required"`                         // 会议日期(YYYY-MM-DD)
}

// UpdateLogisticsRequest 更新后勤信息请求
// @Description 审批通过后填写第二阶段字段的请求参数,expenses 由服务端计算
type UpdateLogisticsRequest struct {
	VisitPlace        string  `json:"visit_place" example:"Acme HQ, Building 2"` // 到访地点
	DiscussionSummary string  `json:"discussion_summary" example:"Agreed on renewal terms"`
	PathOfTravel      string  `json:"path_of_travel" example:"Car"`     // 出行方式
	DistanceKM        float64 `json:"distance_km" example:"12.5"`       // 距离(公里)
	Remarks           string  `json:"remarks" example:"Client follow-up next month"`
	StartTime         string  `json:"start_time" example:"10:00:00" binding:"required"` // 开始时间(HH:MM:SS)
	EndTime           string  `json:"end_time" example:"11:30:00" binding:"required"`   // 结束时间(HH:MM:SS)
}

// cleanText 清理自由文本字段,转义 HTML 并剥离控制字符
func cleanText(s string) string {
	return utils.SanitizeString(strings.TrimSpace(s))
}

// inFlightGuard 单飞登记表
// 同一 key 同时只允许一个写操作在途,第二次调用立即失败
type inFlightGuard struct {
	m sync.Map
}

func (g *inFlightGuard) acquire(key string) bool {
	_, loaded := g.m.LoadOrStore(key, struct{}{})
	return !loaded
}

func (g *inFlightGuard) release(key string) {
	g.m.Delete(key)
}

// meetingService 会议申请服务实现
type meetingService struct {
	meetingRepo repository.MeetingRepository
	historyRepo repository.StateHistoryRepository
	notifySvc   NotifyService
	auditLogSvc AuditLogService
	inFlight    inFlightGuard
}

// NewMeetingService 创建会议申请服务
func NewMeetingService(
	meetingRepo repository.MeetingRepository,
	historyRepo repository.StateHistoryRepository,
	notifySvc NotifyService,
	auditLogSvc AuditLogService,
) MeetingService {
	return &meetingService{
		meetingRepo: meetingRepo,
		historyRepo: historyRepo,
		notifySvc:   notifySvc,
		auditLogSvc: auditLogSvc,
	}
}

// Create 创建会议申请
// 提交即进入 pending,幂等令牌保证重试不产生重复记录
func (s *meetingService) Create(ctx context.Context, req *CreateMeetingRequest) (*model.MeetingModel, error) {
	if err := utils.ValidateRequestID(req.RequestID); err != nil {
		return nil, &workflow.ValidationError{Field: "request_id", Reason: err.Error()}
	}

	// 1. 单飞: 同一幂等令牌同时只允许一次提交在途
	if !s.inFlight.acquire(req.RequestID) {
		return nil, &workflow.InFlightError{MeetingID: req.RequestID}
	}
	defer s.inFlight.release(req.RequestID)

	// 2. 幂等去重: 同一令牌的重试返回已存在的记录
	if existing, err := s.meetingRepo.FindByRequestID(req.RequestID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check request id: %w", err)
	}

	// 3. 构建并校验
	meeting, err := s.buildMeeting(ctx, req)
	if err != nil {
		return nil, err
	}

	// 4. 落库,唯一索引兜底并发下的重复令牌
	if err := s.meetingRepo.Save(meeting); err != nil {
		if existing, ferr := s.meetingRepo.FindByRequestID(req.RequestID); ferr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to save meeting: %w", err)
	}

	s.afterSubmit(ctx, meeting, string(workflow.StatusDraft), "create")

	return meeting, nil
}

// UpdateLogistics 填写第二阶段后勤信息
// 仅审批通过且未过期的记录可编辑,且仅限申请人本人
func (s *meetingService) UpdateLogistics(ctx context.Context, id string, req *UpdateLogisticsRequest) (*model.MeetingModel, error) {
	if err := utils.ValidateMeetingID(id); err != nil {
		return nil, &workflow.ValidationError{Field: "id", Reason: err.Error()}
	}

	if !s.inFlight.acquire(id) {
		return nil, &workflow.InFlightError{MeetingID: id}
	}
	defer s.inFlight.release(id)

	meeting, err := s.meetingRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	userID := getUserIDFromContext(ctx)
	if userID == "" || userID != meeting.CreatedBy {
		return nil, &workflow.AuthorizationError{Message: "only the requester can edit logistics"}
	}

	// 读取时派生有效状态,字段级编辑策略以可编辑集合为唯一出处:
	// 过期或未通过审批的记录集合为空,expenses 永远不在集合内
	now := time.Now()
	effective := workflow.EffectiveStatus(workflow.Status(meeting.Status), meeting.MeetingDate, now)
	editable := workflow.EditableFields(effective, workflow.RoleRequester)
	if !editable.Has(workflow.FieldStartTime) {
		return nil, &workflow.ConflictError{
			Message: fmt.Sprintf("cannot edit logistics in status %q", effective),
		}
	}

	meeting.VisitPlace = cleanText(req.VisitPlace)
	meeting.DiscussionSummary = cleanText(req.DiscussionSummary)
	meeting.PathOfTravel = strings.TrimSpace(req.PathOfTravel)
	meeting.DistanceKM = req.DistanceKM
	meeting.Remarks = cleanText(req.Remarks)
	meeting.StartTime = req.StartTime
	meeting.EndTime = req.EndTime

	if err := workflow.ValidatePhase2(meeting); err != nil {
		return nil, err
	}

	// expenses 只读投影,忽略客户端传入的任何值
	meeting.Expenses = workflow.Expense(meeting.DistanceKM, meeting.PathOfTravel)
	meeting.UpdatedAt = now

	if err := s.meetingRepo.Save(meeting); err != nil {
		return nil, fmt.Errorf("failed to save meeting: %w", err)
	}

	s.recordHistory(meeting.ID, meeting.Status, meeting.Status, "edit-logistics", userID)
	s.recordAudit(ctx, "update", meeting)

	return meeting, nil
}

// Resubmit 重新提交被拒绝的申请
// 创建携带新幂等令牌的全新审批周期,被拒绝的记录原样保留
func (s *meetingService) Resubmit(ctx context.Context, id string, req *CreateMeetingRequest) (*model.MeetingModel, error) {
	if err := utils.ValidateMeetingID(id); err != nil {
		return nil, &workflow.ValidationError{Field: "id", Reason: err.Error()}
	}
	if err := utils.ValidateRequestID(req.RequestID); err != nil {
		return nil, &workflow.ValidationError{Field: "request_id", Reason: err.Error()}
	}

	if !s.inFlight.acquire(id) {
		return nil, &workflow.InFlightError{MeetingID: id}
	}
	defer s.inFlight.release(id)

	rejected, err := s.meetingRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	userID := getUserIDFromContext(ctx)
	if userID == "" || userID != rejected.CreatedBy {
		return nil, &workflow.AuthorizationError{Message: "only the requester can resubmit"}
	}

	// 重新提交以落库状态为准,过期派生不剥夺修正被拒申请的机会
	if _, err := workflow.Transition(workflow.Status(rejected.Status), workflow.EventResubmit); err != nil {
		return nil, err
	}

	// 幂等去重
	if existing, err := s.meetingRepo.FindByRequestID(req.RequestID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check request id: %w", err)
	}

	meeting, err := s.buildMeeting(ctx, req)
	if err != nil {
		return nil, err
	}
	meeting.ResubmitOf = rejected.ID

	if err := s.meetingRepo.Save(meeting); err != nil {
		if existing, ferr := s.meetingRepo.FindByRequestID(req.RequestID); ferr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to save meeting: %w", err)
	}

	s.afterSubmit(ctx, meeting, string(workflow.StatusRejected), "resubmit")

	return meeting, nil
}

// Delete 删除会议申请
// 只有申请人可以删除,且仅限尚未有审批结论的 pending 记录
func (s *meetingService) Delete(ctx context.Context, id string) error {
	if err := utils.ValidateMeetingID(id); err != nil {
		return &workflow.ValidationError{Field: "id", Reason: err.Error()}
	}

	meeting, err := s.meetingRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return gorm.ErrRecordNotFound
		}
		return fmt.Errorf("failed to get meeting: %w", err)
	}

	userID := getUserIDFromContext(ctx)
	if userID == "" || userID != meeting.CreatedBy {
		return &workflow.AuthorizationError{Message: "only the requester can delete"}
	}

	if meeting.Status != string(workflow.StatusPending) {
		return &workflow.ConflictError{
			Message: fmt.Sprintf("cannot delete meeting in status %q", meeting.Status),
		}
	}

	if err := s.meetingRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}

	s.recordAudit(ctx, "delete", meeting)

	return nil
}

// buildMeeting 从请求构建 pending 状态的会议记录并执行第一阶段校验
func (s *meetingService) buildMeeting(ctx context.Context, req *CreateMeetingRequest) (*model.MeetingModel, error) {
	meetingDate, err := time.Parse("2006-01-02", req.MeetingDate)
	if err != nil {
		return nil, &workflow.ValidationError{Field: "meeting_date", Reason: "meeting date must be YYYY-MM-DD"}
	}

	now := time.Now()
	meeting := &model.MeetingModel{
		ID:             uuid.New().String(),
		RequestID:      req.RequestID,
		CreatedBy:      getUserIDFromContext(ctx),
		Status:         string(workflow.StatusPending),
		ClientName:     cleanText(req.ClientName),
		ContactPerson:  cleanText(req.ContactPerson),
		Designation:    cleanText(req.Designation),
		ContactNumber:  strings.TrimSpace(req.ContactNumber),
		Email:          strings.TrimSpace(req.Email),
		Organization:   cleanText(req.Organization),
		Location:       cleanText(req.Location),
		MeetingPurpose: cleanText(req.MeetingPurpose),
		MeetingDate:    meetingDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := workflow.ValidatePhase1(meeting, now); err != nil {
		return nil, err
	}

	return meeting, nil
}

// afterSubmit 提交成功后的记账: 状态历史 + 通知审批人 + 指标 + 审计
func (s *meetingService) afterSubmit(ctx context.Context, meeting *model.MeetingModel, fromStatus, action string) {
	s.recordHistory(meeting.ID, fromStatus, meeting.Status, action, meeting.CreatedBy)

	if s.notifySvc != nil {
		s.notifySvc.MeetingSubmitted(meeting)
	}

	metrics.RecordMeetingCreated()
	s.recordAudit(ctx, action, meeting)
}

// recordHistory 记录状态变更历史
func (s *meetingService) recordHistory(meetingID, from, to, reason, operator string) {
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
func (s *meetingService) recordAudit(ctx context.Context, action string, meeting *model.MeetingModel) {
	if s.auditLogSvc == nil {
		return
	}
	userID := getUserIDFromContext(ctx)
	if userID == "" {
		return
	}
	details := fmt.Sprintf(`{"meeting_id":%q,"request_id":%q,"status":%q}`, meeting.ID, meeting.RequestID, meeting.Status)
	_ = s.auditLogSvc.RecordAction(ctx, userID, action, "meeting", meeting.ID, details)
}
