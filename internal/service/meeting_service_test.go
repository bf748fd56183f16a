package service_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/meeting-gin/internal/database"
	"github.com/mautops/meeting-gin/internal/model"
	"github.com/mautops/meeting-gin/internal/repository"
	"github.com/mautops/meeting-gin/internal/service"
	"github.com/mautops/meeting-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB 创建内存数据库并执行迁移
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// 内存数据库按连接隔离,限制为单连接避免 worker 看到空库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	return db
}

// newMeetingService 装配会议服务及其仓储
func newMeetingService(t *testing.T, db *gorm.DB) (service.MeetingService, repository.MeetingRepository, repository.StateHistoryRepository) {
	meetingRepo := repository.NewMeetingRepository(db)
	historyRepo := repository.NewStateHistoryRepository(db)
	auditSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))

	svc := service.NewMeetingService(meetingRepo, historyRepo, nil, auditSvc)
	return svc, meetingRepo, historyRepo
}

// requesterContext 构造携带申请人身份的 context
func requesterContext(userID string) context.Context {
	ctx := context.WithValue(context.Background(), "user_id", userID)
	ctx = context.WithValue(ctx, "roles", []string{"REQUESTER"})
	return ctx
}

// approverContext 构造携带审批人身份的 context
func approverContext(userID, role string) context.Context {
	ctx := context.WithValue(context.Background(), "user_id", userID)
	ctx = context.WithValue(ctx, "roles", []string{role})
	return ctx
}

// newCreateRequest 返回合法的创建请求
func newCreateRequest() *service.CreateMeetingRequest {
	return &service.CreateMeetingRequest{
		RequestID:      uuid.New().String(),
		ClientName:     "Acme Corp",
		ContactPerson:  "John Doe",
		Designation:    "Procurement Lead",
		ContactNumber:  "+91-9800000000",
		Email:          "john@acme.example",
		Location:       "Pune",
		MeetingPurpose: "Quarterly contract review",
		MeetingDate:    time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
	}
}

// TestMeetingService_Create 测试创建会议申请
func TestMeetingService_Create(t *testing.T) {
	db := setupTestDB(t)
	svc, _, historyRepo := newMeetingService(t, db)

	ctx := requesterContext("user-001")
	meeting, err := svc.Create(ctx, newCreateRequest())
	require.NoError(t, err)

	// 提交即进入 pending
	assert.Equal(t, "pending", meeting.Status)
	assert.Equal(t, "user-001", meeting.CreatedBy)
	assert.NotEmpty(t, meeting.ID)

	// 提交写入一条 draft -> pending 的状态历史
	history, err := historyRepo.FindByMeetingID(meeting.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "draft", history[0].FromStatus)
	assert.Equal(t, "pending", history[0].ToStatus)
}

// TestMeetingService_Create_ValidationError 测试校验失败
func TestMeetingService_Create_ValidationError(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newMeetingService(t, db)

	req := newCreateRequest()
	req.Email = "not-an-email"

	_, err := svc.Create(requesterContext("user-001"), req)
	require.Error(t, err)

	var validationErr *workflow.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "email", validationErr.Field)
}

// TestMeetingService_Create_PastDateRejected 测试过去的会议日期被拒绝
func TestMeetingService_Create_PastDateRejected(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newMeetingService(t, db)

	req := newCreateRequest()
	req.MeetingDate = time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	_, err := svc.Create(requesterContext("user-001"), req)

	var validationErr *workflow.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "meeting_date", validationErr.Field)
}

// TestMeetingService_Create_Idempotent 测试同一幂等令牌重试返回同一记录
func TestMeetingService_Create_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newMeetingService(t, db)

	ctx := requesterContext("user-001")
	req := newCreateRequest()

	first, err := svc.Create(ctx, req)
	require.NoError(t, err)

	// 同一令牌重试不产生新记录
	second, err := svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&model.MeetingModel{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

// gatedMeetingRepo 包装真实仓储,首次写入在门内阻塞
// 用来制造一个确定性的在途窗口
type gatedMeetingRepo struct {
	repository.MeetingRepository
	enterSave chan struct{} // 首次写入进入时关闭
	release   chan struct{} // 关闭后放行首次写入
	saves     int32
}

func (r *gatedMeetingRepo) Save(m *model.MeetingModel) error {
	if atomic.AddInt32(&r.saves, 1) == 1 {
		close(r.enterSave)
		<-r.release
	}
	return r.MeetingRepository.Save(m)
}

// TestMeetingService_Create_SingleFlight 测试同一令牌的并发提交只有一个在途
func TestMeetingService_Create_SingleFlight(t *testing.T) {
	db := setupTestDB(t)
	gated := &gatedMeetingRepo{
		MeetingRepository: repository.NewMeetingRepository(db),
		enterSave:         make(chan struct{}),
		release:           make(chan struct{}),
	}
	svc := service.NewMeetingService(gated, repository.NewStateHistoryRepository(db), nil, nil)

	ctx := requesterContext("user-001")
	req := newCreateRequest()

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Create(ctx, req)
		firstDone <- err
	}()

	// 等到第一次提交进入写入,单飞标记此刻一定被持有
	select {
	case <-gated.enterSave:
	case <-time.After(2 * time.Second):
		t.Fatal("first create never reached save")
	}

	// 第二次提交立即失败,不触发第二次写入
	_, err := svc.Create(ctx, req)
	var inFlightErr *workflow.InFlightError
	require.ErrorAs(t, err, &inFlightErr)

	close(gated.release)
	require.NoError(t, <-firstDone)

	assert.Equal(t, int32(1), atomic.LoadInt32(&gated.saves))

	var count int64
	db.Model(&model.MeetingModel{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

// TestMeetingService_Create_SanitizesText 测试自由文本字段被转义
func TestMeetingService_Create_SanitizesText(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newMeetingService(t, db)

	req := newCreateRequest()
	req.MeetingPurpose = "<script>alert(1)</script> review"
	req.ClientName = "Acme & Sons"

	meeting, err := svc.Create(requesterContext("user-001"), req)
	require.NoError(t, err)

	assert.Equal(t, "&lt;script&gt;alert(1)&lt;/script&gt; review", meeting.MeetingPurpose)
	assert.Equal(t, "Acme &amp; Sons", meeting.ClientName)
}

// TestMeetingService_UpdateLogistics 测试填写后勤信息
func TestMeetingService_UpdateLogistics(t *testing.T) {
	db := setupTestDB(t)
	svc, meetingRepo, _ := newMeetingService(t, db)

	ctx := requesterContext("user-001")
	meeting, err := svc.Create(ctx, newCreateRequest())
	require.NoError(t, err)

	// 模拟审批通过
	now := time.Now()
	_, err = meetingRepo.UpdateStatusIf(meeting.ID, "pending", "approved", &now)
	require.NoError(t, err)

	updated, err := svc.UpdateLogistics(ctx, meeting.ID, &service.UpdateLogisticsRequest{
		VisitPlace:   "Acme HQ, Building 2",
		PathOfTravel: "Car",
		DistanceKM:   12.5,
		StartTime:    "10:00:00",
		EndTime:      "11:30:00",
	})
	require.NoError(t, err)

	// expenses 由服务端按距离和出行方式计算
	assert.Equal(t, 125.0, updated.Expenses)
	assert.Equal(t, "Acme HQ, Building 2", updated.VisitPlace)
	assert.Equal(t, "approved", updated.Status)
}

// TestMeetingService_UpdateLogistics_RequesterOnly 测试仅申请人可编辑
func TestMeetingService_UpdateLogistics_RequesterOnly(t *testing.T) {
	db := setupTestDB(t)
	svc, meetingRepo, _ := newMeetingService(t, db)

	meeting, err := svc.Create(requesterContext("user-001"), newCreateRequest())
	require.NoError(t, err)

	now := time.Now()
	_, err = meetingRepo.UpdateStatusIf(meeting.ID, "pending", "approved", &now)
	require.NoError(t, err)

	_, err = svc.UpdateLogistics(requesterContext("user-002"), meeting.ID, &service.UpdateLogisticsRequest{
		StartTime: "10:00:00",
		EndTime:   "11:00:00",
	})

	var authErr *workflow.AuthorizationError
	assert.ErrorAs(t, err, &authErr)
}

// TestMeetingService_UpdateLogistics_PendingRejected 测试未审批通过不可填写后勤
func TestMeetingService_UpdateLogistics_PendingRejected(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newMeetingService(t, db)

	ctx := requesterContext("user-001")
	meeting, err := svc.Create(ctx, newCreateRequest())
	require.NoError(t, err)

	_, err = svc.UpdateLogistics(ctx, meeting.ID, &service.UpdateLogisticsRequest{
		StartTime: "10:00:00",
		EndTime:   "11:00:00",
	})

	var conflictErr *workflow.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

// TestMeetingService_UpdateLogistics_Expired 测试已过会议日期的记录不可再编辑
func TestMeetingService_UpdateLogistics_Expired(t *testing.T) {
	db := setupTestDB(t)
	svc, meetingRepo, _ := newMeetingService(t, db)

	ctx := requesterContext("user-001")
	meeting, err := svc.Create(ctx, newCreateRequest())
	require.NoError(t, err)

	now := time.Now()
	_, err = meetingRepo.UpdateStatusIf(meeting.ID, "pending", "approved", &now)
	require.NoError(t, err)

	// 会议日期拨到昨天,读取时派生为 completed,可编辑集合为空
	past := time.Now().AddDate(0, 0, -1)
	require.NoError(t, db.Model(&model.MeetingModel{}).Where("id = ?", meeting.ID).Update("meeting_date", past).Error)

	_, err = svc.UpdateLogistics(ctx, meeting.ID, &service.UpdateLogisticsRequest{
		StartTime: "10:00:00",
		EndTime:   "11:00:00",
	})

	var conflictErr *workflow.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

// TestMeetingService_Resubmit 测试重新提交被拒绝的申请
func TestMeetingService_Resubmit(t *testing.T) {
	db := setupTestDB(t)
	svc, meetingRepo, _ := newMeetingService(t, db)

	ctx := requesterContext("user-001")
	rejected, err := svc.Create(ctx, newCreateRequest())
	require.NoError(t, err)

	now := time.Now()
	_, err = meetingRepo.UpdateStatusIf(rejected.ID, "pending", "rejected", &now)
	require.NoError(t, err)

	// 重新提交创建携带新幂等令牌的新记录
	req := newCreateRequest()
	resubmitted, err := svc.Resubmit(ctx, rejected.ID, req)
	require.NoError(t, err)

	assert.NotEqual(t, rejected.ID, resubmitted.ID)
	assert.Equal(t, rejected.ID, resubmitted.ResubmitOf)
	assert.Equal(t, "pending", resubmitted.Status)

	// 被拒绝的记录原样保留
	old, err := meetingRepo.FindByID(rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, "rejected", old.Status)
}

// TestMeetingService_Resubmit_OnlyRejected 测试仅被拒绝的申请可重新提交
func TestMeetingService_Resubmit_OnlyRejected(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newMeetingService(t, db)

	ctx := requesterContext("user-001")
	pending, err := svc.Create(ctx, newCreateRequest())
	require.NoError(t, err)

	_, err = svc.Resubmit(ctx, pending.ID, newCreateRequest())

	var conflictErr *workflow.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

// TestMeetingService_Delete 测试删除会议申请
func TestMeetingService_Delete(t *testing.T) {
	db := setupTestDB(t)
	svc, meetingRepo, _ := newMeetingService(t, db)

	ctx := requesterContext("user-001")
	meeting, err := svc.Create(ctx, newCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, meeting.ID))

	_, err = meetingRepo.FindByID(meeting.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// TestMeetingService_Delete_OnlyPending 测试已有审批结论的申请不可删除
func TestMeetingService_Delete_OnlyPending(t *testing.T) {
	db := setupTestDB(t)
	svc, meetingRepo, _ := newMeetingService(t, db)

	ctx := requesterContext("user-001")
	meeting, err := svc.Create(ctx, newCreateRequest())
	require.NoError(t, err)

	now := time.Now()
	_, err = meetingRepo.UpdateStatusIf(meeting.ID, "pending", "approved", &now)
	require.NoError(t, err)

	err = svc.Delete(ctx, meeting.ID)

	var conflictErr *workflow.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

// TestMeetingService_Delete_RequesterOnly 测试仅申请人可删除
func TestMeetingService_Delete_RequesterOnly(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newMeetingService(t, db)

	meeting, err := svc.Create(requesterContext("user-001"), newCreateRequest())
	require.NoError(t, err)

	err = svc.Delete(requesterContext("user-002"), meeting.ID)

	var authErr *workflow.AuthorizationError
	assert.ErrorAs(t, err, &authErr)
}
