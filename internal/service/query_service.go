package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/mautops/meeting-gin/internal/model"
	"github.com/mautops/meeting-gin/internal/repository"
	"github.com/mautops/meeting-gin/internal/utils"
	"github.com/mautops/meeting-gin/internal/workflow"
	"gorm.io/gorm"
)

// QueryService 会议查询服务接口
// 所有读路径在此派生有效状态并按状态裁剪可见字段
type QueryService interface {
	Get(id string) (*MeetingView, error)
	List(filter *repository.MeetingFilter) ([]*MeetingView, error)
	ListMine(userID string) ([]*MeetingView, error)
	// Pending 返回待审批列表,第二个返回值表示结果是否来自过期快照
	Pending() ([]*MeetingView, bool, error)
	History(meetingID string) ([]*model.StateHistoryModel, error)
}

// MeetingView 会议申请的对外视图
// 第二阶段字段仅在审批通过后出现,过期但从未通过的记录不暴露后勤数据
type MeetingView struct {
	ID             string `json:"id"`
	RequestID      string `json:"request_id"`
	CreatedBy      string `json:"created_by"`
	Status         string `json:"status"`
	ClientName     string `json:"client_name,omitempty"`
	ContactPerson  string `json:"contact_person"`
	Designation    string `json:"designation"`
	ContactNumber  string `json:"contact_number"`
	Email          string `json:"email"`
	Organization   string `json:"organization,omitempty"`
	Location       string `json:"location"`
	MeetingPurpose string `json:"meeting_purpose"`
	MeetingDate    string `json:"meeting_date"`

	VisitPlace        *string  `json:"visit_place,omitempty"`
	DiscussionSummary *string  `json:"discussion_summary,omitempty"`
	PathOfTravel      *string  `json:"path_of_travel,omitempty"`
	DistanceKM        *float64 `json:"distance_km,omitempty"`
	Expenses          *float64 `json:"expenses,omitempty"`
	Remarks           *string  `json:"remarks,omitempty"`
	StartTime         *string  `json:"start_time,omitempty"`
	EndTime           *string  `json:"end_time,omitempty"`

	ResubmitOf string     `json:"resubmit_of,omitempty"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewMeetingView 构建会议视图
// 有效状态在此处派生: 会议日期早于当前日历日的记录呈现为 completed
func NewMeetingView(m *model.MeetingModel, now time.Time) *MeetingView {
	effective := workflow.EffectiveStatus(workflow.Status(m.Status), m.MeetingDate, now)

	v := &MeetingView{
		ID:             m.ID,
		RequestID:      m.RequestID,
		CreatedBy:      m.CreatedBy,
		Status:         string(effective),
		ClientName:     m.ClientName,
		ContactPerson:  m.ContactPerson,
		Designation:    m.Designation,
		ContactNumber:  m.ContactNumber,
		Email:          m.Email,
		Organization:   m.Organization,
		Location:       m.Location,
		MeetingPurpose: m.MeetingPurpose,
		MeetingDate:    m.MeetingDate.Format("2006-01-02"),
		ResubmitOf:     m.ResubmitOf,
		DecidedAt:      m.DecidedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}

	// 落库状态决定可见性: 审批通过后过期的记录仍然可见后勤数据,
	// 过期但从未通过审批的记录不会因派生 completed 而暴露后勤字段
	visible := workflow.VisibleFields(workflow.Status(m.Status))
	if visible.Has(workflow.FieldVisitPlace) {
		v.VisitPlace = &m.VisitPlace
		v.DiscussionSummary = &m.DiscussionSummary
		v.PathOfTravel = &m.PathOfTravel
		v.DistanceKM = &m.DistanceKM
		v.Expenses = &m.Expenses
		v.Remarks = &m.Remarks
		v.StartTime = &m.StartTime
		v.EndTime = &m.EndTime
	}

	return v
}

// queryService 会议查询服务实现
type queryService struct {
	meetingRepo  repository.MeetingRepository
	historyRepo  repository.StateHistoryRepository
	pendingCache *PendingListCache
}

// NewQueryService 创建会议查询服务
func NewQueryService(
	meetingRepo repository.MeetingRepository,
	historyRepo repository.StateHistoryRepository,
	pendingCache *PendingListCache,
) QueryService {
	return &queryService{
		meetingRepo:  meetingRepo,
		historyRepo:  historyRepo,
		pendingCache: pendingCache,
	}
}

// Get 获取单条会议申请
func (s *queryService) Get(id string) (*MeetingView, error) {
	if err := utils.ValidateMeetingID(id); err != nil {
		return nil, &workflow.ValidationError{Field: "id", Reason: err.Error()}
	}

	meeting, err := s.meetingRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	return NewMeetingView(meeting, time.Now()), nil
}

// List 按过滤器查询会议申请
func (s *queryService) List(filter *repository.MeetingFilter) ([]*MeetingView, error) {
	meetings, err := s.meetingRepo.FindByFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return toViews(meetings), nil
}

// ListMine 查询指定申请人的会议申请
func (s *queryService) ListMine(userID string) ([]*MeetingView, error) {
	meetings, err := s.meetingRepo.FindByCreator(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return toViews(meetings), nil
}

// Pending 查询待审批列表
// 数据库不可用时回退到最近一次快照,让审批人仍能看到待办,
// 快照也不存在时才向上返回错误
func (s *queryService) Pending() ([]*MeetingView, bool, error) {
	meetings, err := s.meetingRepo.FindPending()
	if err == nil {
		if s.pendingCache != nil {
			s.pendingCache.Put(meetings)
		}
		return toViews(meetings), false, nil
	}

	if s.pendingCache != nil {
		if snapshot, ok := s.pendingCache.Get(); ok {
			return toViews(snapshot), true, nil
		}
	}

	return nil, false, fmt.Errorf("failed to list pending meetings: %w", err)
}

// History 查询会议的状态变更历史
func (s *queryService) History(meetingID string) ([]*model.StateHistoryModel, error) {
	if err := utils.ValidateMeetingID(meetingID); err != nil {
		return nil, &workflow.ValidationError{Field: "id", Reason: err.Error()}
	}
	return s.historyRepo.FindByMeetingID(meetingID)
}

// toViews 批量构建视图
func toViews(meetings []*model.MeetingModel) []*MeetingView {
	now := time.Now()
	views := make([]*MeetingView, 0, len(meetings))
	for _, m := range meetings {
		views = append(views, NewMeetingView(m, now))
	}
	return views
}
