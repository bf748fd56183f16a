package repository

import (
	"github.com/mautops/meeting-gin/internal/model"
	"gorm.io/gorm"
)

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	Save(notification *model.NotificationModel) error
	FindByMeetingID(meetingID string) ([]*model.NotificationModel, error)
	FindPending() ([]*model.NotificationModel, error)
}

// notificationRepository 通知仓储实现
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Save 保存通知
func (r *notificationRepository) Save(notification *model.NotificationModel) error {
	return r.db.Save(notification).Error
}

// FindByMeetingID 根据会议 ID 查找通知
func (r *notificationRepository) FindByMeetingID(meetingID string) ([]*model.NotificationModel, error) {
	var notifications []*model.NotificationModel
	err := r.db.Where("meeting_id = ?", meetingID).Order("created_at ASC").Find(&notifications).Error
	return notifications, err
}

// FindPending 查找待投递的通知
func (r *notificationRepository) FindPending() ([]*model.NotificationModel, error) {
	var notifications []*model.NotificationModel
	err := r.db.Where("status = ?", "pending").Order("created_at ASC").Find(&notifications).Error
	return notifications, err
}
