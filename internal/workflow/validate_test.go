package workflow_test

import (
	"testing"
	"time"

	"github.com/mautops/meeting-gin/internal/model"
	"github.com/mautops/meeting-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

// validMeeting 返回通过第一阶段校验的会议记录
func validMeeting() *model.MeetingModel {
	return &model.MeetingModel{
		ContactPerson:  "John Doe",
		Designation:    "Procurement Lead",
		ContactNumber:  "+91-9800000000",
		Email:          "john@acme.example",
		Location:       "Pune",
		MeetingPurpose: "Quarterly contract review",
		MeetingDate:    testNow.AddDate(0, 0, 7),
	}
}

// TestValidatePhase1_Valid 测试合法输入通过校验
func TestValidatePhase1_Valid(t *testing.T) {
	assert.NoError(t, workflow.ValidatePhase1(validMeeting(), testNow))
}

// TestValidatePhase1_FirstFailureWins 测试按声明顺序返回首个失败
func TestValidatePhase1_FirstFailureWins(t *testing.T) {
	m := validMeeting()
	m.ContactPerson = "  "
	m.Email = "not-an-email"

	err := workflow.ValidatePhase1(m, testNow)
	require.Error(t, err)

	var validationErr *workflow.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "contact_person", validationErr.Field)
}

// TestValidatePhase1_RequiredFields 测试各必填字段
func TestValidatePhase1_RequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.MeetingModel)
		field  string
	}{
		{"缺联系人", func(m *model.MeetingModel) { m.ContactPerson = "" }, "contact_person"},
		{"缺职位", func(m *model.MeetingModel) { m.Designation = "" }, "designation"},
		{"缺电话", func(m *model.MeetingModel) { m.ContactNumber = "" }, "contact_number"},
		{"缺目的", func(m *model.MeetingModel) { m.MeetingPurpose = "" }, "meeting_purpose"},
		{"缺地点", func(m *model.MeetingModel) { m.Location = "" }, "location"},
		{"缺邮箱", func(m *model.MeetingModel) { m.Email = "" }, "email"},
		{"邮箱格式错误", func(m *model.MeetingModel) { m.Email = "john@@acme" }, "email"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := validMeeting()
			c.mutate(m)

			var validationErr *workflow.ValidationError
			err := workflow.ValidatePhase1(m, testNow)
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, c.field, validationErr.Field)
		})
	}
}

// TestValidatePhase1_PastDateRejected 测试过去的会议日期被拒绝
func TestValidatePhase1_PastDateRejected(t *testing.T) {
	m := validMeeting()
	m.MeetingDate = testNow.AddDate(0, 0, -1)

	var validationErr *workflow.ValidationError
	err := workflow.ValidatePhase1(m, testNow)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "meeting_date", validationErr.Field)
}

// TestValidatePhase1_TodayAccepted 测试当天日期可以通过
func TestValidatePhase1_TodayAccepted(t *testing.T) {
	// 当前时刻晚于会议日期零点,但同一日历日不算过去
	m := validMeeting()
	m.MeetingDate = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, workflow.ValidatePhase1(m, testNow))
}

// TestValidatePhase1_TodayAcrossZones 测试非 UTC 服务器时钟下当天日期仍然通过
func TestValidatePhase1_TodayAcrossZones(t *testing.T) {
	// 日期按 UTC 零点解析,服务器时钟在 UTC-11 时区且为同一日历日
	m := validMeeting()
	m.MeetingDate = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	localNow := time.Date(2026, 3, 15, 13, 0, 0, 0, time.FixedZone("UTC-11", -11*3600))

	assert.NoError(t, workflow.ValidatePhase1(m, localNow))
}

// TestValidatePhase2_Valid 测试合法的第二阶段输入
func TestValidatePhase2_Valid(t *testing.T) {
	m := &model.MeetingModel{StartTime: "10:00:00", EndTime: "11:30:00"}
	assert.NoError(t, workflow.ValidatePhase2(m))
}

// TestValidatePhase2_TimeFormat 测试时间格式校验
func TestValidatePhase2_TimeFormat(t *testing.T) {
	var validationErr *workflow.ValidationError

	m := &model.MeetingModel{StartTime: "10:00", EndTime: "11:30:00"}
	err := workflow.ValidatePhase2(m)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "start_time", validationErr.Field)

	m = &model.MeetingModel{StartTime: "10:00:00", EndTime: "25:00:00"}
	err = workflow.ValidatePhase2(m)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "end_time", validationErr.Field)
}

// TestValidatePhase2_StartMustPrecedeEnd 测试开始时间必须早于结束时间
func TestValidatePhase2_StartMustPrecedeEnd(t *testing.T) {
	var validationErr *workflow.ValidationError

	m := &model.MeetingModel{StartTime: "12:00:00", EndTime: "11:00:00"}
	err := workflow.ValidatePhase2(m)
	require.ErrorAs(t, err, &validationErr)

	// 相等也不合法
	m = &model.MeetingModel{StartTime: "12:00:00", EndTime: "12:00:00"}
	err = workflow.ValidatePhase2(m)
	require.ErrorAs(t, err, &validationErr)
}
