package repository

import (
	"github.com/mautops/meeting-gin/internal/model"
	"gorm.io/gorm"
)

// ApprovalEntryRepository 审批记录仓储接口
// 审计轨迹仅追加,不提供更新或删除
type ApprovalEntryRepository interface {
	Append(entry *model.ApprovalEntryModel) error
	FindByMeetingID(meetingID string) ([]*model.ApprovalEntryModel, error)
	FindByActor(actor string) ([]*model.ApprovalEntryModel, error)
}

// approvalEntryRepository 审批记录仓储实现
type approvalEntryRepository struct {
	db *gorm.DB
}

// NewApprovalEntryRepository 创建审批记录仓储
func NewApprovalEntryRepository(db *gorm.DB) ApprovalEntryRepository {
	return &approvalEntryRepository{db: db}
}

// Append 追加审批记录
func (r *approvalEntryRepository) Append(entry *model.ApprovalEntryModel) error {
	return r.db.Create(entry).Error
}

// FindByMeetingID 根据会议 ID 查找审批记录
func (r *approvalEntryRepository) FindByMeetingID(meetingID string) ([]*model.ApprovalEntryModel, error) {
	var entries []*model.ApprovalEntryModel
	err := r.db.Where("meeting_id = ?", meetingID).Order("created_at ASC").Find(&entries).Error
	return entries, err
}

// FindByActor 根据审批人查找审批记录
func (r *approvalEntryRepository) FindByActor(actor string) ([]*model.ApprovalEntryModel, error) {
	var entries []*model.ApprovalEntryModel
	err := r.db.Where("actor = ?", actor).Order("created_at DESC").Find(&entries).Error
	return entries, err
}
