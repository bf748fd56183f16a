package repository

import (
	"time"

	"github.com/mautops/meeting-gin/internal/model"
	"gorm.io/gorm"
)

// MeetingRepository 会议仓储接口
type MeetingRepository interface {
	Save(meeting *model.MeetingModel) error
	FindByID(id string) (*model.MeetingModel, error)
	FindByRequestID(requestID string) (*model.MeetingModel, error)
	FindByCreator(userID string) ([]*model.MeetingModel, error)
	FindByFilter(filter *MeetingFilter) ([]*model.MeetingModel, error)
	FindPending() ([]*model.MeetingModel, error)
	// UpdateStatusIf 以乐观前置条件更新状态,返回实际更新的行数
	UpdateStatusIf(id string, fromStatus, toStatus string, decidedAt *time.Time) (int64, error)
	Delete(id string) error
}

// MeetingFilter 会议查询过滤器
type MeetingFilter struct {
	Status    *string
	CreatedBy *string
	DateFrom  *string
	DateTo    *string
}

// meetingRepository 会议仓储实现
type meetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository 创建会议仓储
func NewMeetingRepository(db *gorm.DB) MeetingRepository {
	return &meetingRepository{db: db}
}

// Save 保存会议
func (r *meetingRepository) Save(meeting *model.MeetingModel) error {
	return r.db.Save(meeting).Error
}

// FindByID 根据 ID 查找会议
func (r *meetingRepository) FindByID(id string) (*model.MeetingModel, error) {
	var meeting model.MeetingModel
	if err := r.db.Where("id = ?", id).First(&meeting).Error; err != nil {
		return nil, err
	}
	return &meeting, nil
}

// FindByRequestID 根据幂等令牌查找会议
// 重试的提交落库两次时,第二次写入以此去重
func (r *meetingRepository) FindByRequestID(requestID string) (*model.MeetingModel, error) {
	var meeting model.MeetingModel
	if err := r.db.Where("request_id = ?", requestID).First(&meeting).Error; err != nil {
		return nil, err
	}
	return &meeting, nil
}

// FindByCreator 查找指定申请人的会议
func (r *meetingRepository) FindByCreator(userID string) ([]*model.MeetingModel, error) {
	var meetings []*model.MeetingModel
	err := r.db.Where("created_by = ?", userID).Order("created_at DESC").Find(&meetings).Error
	return meetings, err
}

// FindByFilter 根据过滤器查找会议
func (r *meetingRepository) FindByFilter(filter *MeetingFilter) ([]*model.MeetingModel, error) {
	var meetings []*model.MeetingModel
	query := r.db.Model(&model.MeetingModel{})

	if filter != nil {
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.CreatedBy != nil {
			query = query.Where("created_by = ?", *filter.CreatedBy)
		}
		if filter.DateFrom != nil {
			query = query.Where("meeting_date >= ?", *filter.DateFrom)
		}
		if filter.DateTo != nil {
			query = query.Where("meeting_date <= ?", *filter.DateTo)
		}
	}

	err := query.Order("created_at DESC").Find(&meetings).Error
	return meetings, err
}

// FindPending 查找待审批的会议
func (r *meetingRepository) FindPending() ([]*model.MeetingModel, error) {
	var meetings []*model.MeetingModel
	err := r.db.Where("status = ?", "pending").Order("created_at ASC").Find(&meetings).Error
	return meetings, err
}

// UpdateStatusIf 带前置状态条件的状态更新
// 行数为 0 说明记录已不在期望状态,调用方据此报告冲突
func (r *meetingRepository) UpdateStatusIf(id string, fromStatus, toStatus string, decidedAt *time.Time) (int64, error) {
	result := r.db.Model(&model.MeetingModel{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{
			"status":     toStatus,
			"decided_at": decidedAt,
		})
	return result.RowsAffected, result.Error
}

// Delete 删除会议
func (r *meetingRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.MeetingModel{}).Error
}
