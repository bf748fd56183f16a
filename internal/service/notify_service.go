package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/meeting-gin/internal/metrics"
	"github.com/mautops/meeting-gin/internal/model"
	"github.com/mautops/meeting-gin/internal/repository"
	"github.com/mautops/meeting-gin/internal/websocket"
	"github.com/mautops/meeting-gin/internal/workflow"
	"github.com/sirupsen/logrus"
)

// 通知事件类型
const (
	EventMeetingSubmitted = "meeting.submitted"
	EventMeetingApproved  = "meeting.approved"
	EventMeetingRejected  = "meeting.rejected"
)

// AudienceUser 面向单个用户的通知受众
const AudienceUser = "user"

// NotifyService 通知服务
// 状态转换产生的通知先写入发件箱再异步投递,投递失败不影响转换本身
type NotifyService interface {
	MeetingSubmitted(m *model.MeetingModel)
	MeetingDecided(m *model.MeetingModel, decision string)
	Stop()
}

// notificationEvent 通知载荷
type notificationEvent struct {
	Event       string `json:"event"`
	MeetingID   string `json:"meeting_id"`
	Status      string `json:"status"`
	CreatedBy   string `json:"created_by"`
	MeetingDate string `json:"meeting_date"`
	Location    string `json:"location"`
}

// notifyService 通知服务实现
type notifyService struct {
	notifyRepo repository.NotificationRepository
	hub        *websocket.Hub
	httpClient *http.Client
	webhookURL string
	maxRetries int
	queue      chan *model.NotificationModel
	stop       chan struct{}
}

// NewNotifyService 创建通知服务并启动投递 worker
func NewNotifyService(notifyRepo repository.NotificationRepository, hub *websocket.Hub, webhookURL string, workers, maxRetries int) NotifyService {
	if workers <= 0 {
		workers = 1
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}

	s := &notifyService{
		notifyRepo: notifyRepo,
		hub:        hub,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
		maxRetries: maxRetries,
		queue:      make(chan *model.NotificationModel, 1000),
		stop:       make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		go s.worker()
	}

	return s
}

// MeetingSubmitted 新申请进入待审批,通知全部审批角色
func (s *notifyService) MeetingSubmitted(m *model.MeetingModel) {
	for _, role := range workflow.ApproverRoles {
		s.enqueue(m, EventMeetingSubmitted, role, "")
	}
}

// MeetingDecided 审批结果通知申请人
func (s *notifyService) MeetingDecided(m *model.MeetingModel, decision string) {
	event := EventMeetingApproved
	if decision == string(workflow.StatusRejected) {
		event = EventMeetingRejected
	}
	s.enqueue(m, event, AudienceUser, m.CreatedBy)
}

// enqueue 落库并入队
// 队列满时保留 pending 状态的发件箱记录,不阻塞调用方
func (s *notifyService) enqueue(m *model.MeetingModel, event, audience, recipient string) {
	evt := &notificationEvent{
		Event:       event,
		MeetingID:   m.ID,
		Status:      m.Status,
		CreatedBy:   m.CreatedBy,
		MeetingDate: m.MeetingDate.Format("2006-01-02"),
		Location:    m.Location,
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal notification event")
		return
	}

	notification := &model.NotificationModel{
		ID:        uuid.New().String(),
		MeetingID: m.ID,
		Event:     event,
		Audience:  audience,
		Recipient: recipient,
		Payload:   payload,
		Status:    "pending",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.notifyRepo.Save(notification); err != nil {
		logrus.WithError(err).WithField("meeting_id", m.ID).Error("failed to save notification")
		return
	}

	select {
	case s.queue <- notification:
	default:
		logrus.WithFields(logrus.Fields{
			"event":      event,
			"meeting_id": m.ID,
		}).Warn("notification queue full, delivery deferred")
	}
}

// worker 通知投递 worker
func (s *notifyService) worker() {
	for {
		select {
		case n := <-s.queue:
			s.deliver(n)
		case <-s.stop:
			return
		}
	}
}

// deliver 投递单条通知
// WebSocket 推送尽力而为,Webhook 推送带指数退避重试
func (s *notifyService) deliver(n *model.NotificationModel) {
	// 1. WebSocket 推送
	if s.hub != nil {
		if n.Audience == AudienceUser {
			s.hub.BroadcastToUser(n.Recipient, n.Payload)
		} else {
			s.hub.BroadcastToRole(n.Audience, n.Payload)
		}
	}

	// 2. 没有 Webhook 配置时,WebSocket 推送即视为投递完成
	if s.webhookURL == "" {
		n.Status = "success"
		n.UpdatedAt = time.Now()
		s.notifyRepo.Save(n)
		metrics.RecordNotification("success")
		return
	}

	// 3. Webhook 推送,指数退避重试
	backoff := time.Second
	for i := 0; i < s.maxRetries; i++ {
		if err := s.sendWebhookRequest(n); err == nil {
			n.Status = "success"
			n.UpdatedAt = time.Now()
			s.notifyRepo.Save(n)
			metrics.RecordNotification("success")
			return
		} else {
			logrus.WithError(err).WithField("notification_id", n.ID).Warn("webhook delivery failed")
		}

		n.RetryCount++
		n.UpdatedAt = time.Now()
		s.notifyRepo.Save(n)

		if i < s.maxRetries-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	n.Status = "failed"
	n.UpdatedAt = time.Now()
	s.notifyRepo.Save(n)
	metrics.RecordNotification("failed")
}

// sendWebhookRequest 发送 Webhook 请求
func (s *notifyService) sendWebhookRequest(n *model.NotificationModel) error {
	req, err := http.NewRequest(http.MethodPost, s.webhookURL, bytes.NewBuffer(n.Payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &workflow.TransportError{Message: "failed to send webhook request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status code: %d", resp.StatusCode)
	}

	return nil
}

// Stop 停止通知服务
func (s *notifyService) Stop() {
	close(s.stop)
}
