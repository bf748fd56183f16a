package workflow_test

import (
	"testing"
	"time"

	"github.com/mautops/meeting-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransition_LegalPaths 测试合法的状态转换
func TestTransition_LegalPaths(t *testing.T) {
	cases := []struct {
		from  workflow.Status
		event workflow.Event
		to    workflow.Status
	}{
		{workflow.StatusDraft, workflow.EventSubmit, workflow.StatusPending},
		{workflow.StatusPending, workflow.EventApprove, workflow.StatusApproved},
		{workflow.StatusPending, workflow.EventReject, workflow.StatusRejected},
		{workflow.StatusApproved, workflow.EventEditLogistics, workflow.StatusApproved},
		{workflow.StatusRejected, workflow.EventResubmit, workflow.StatusPending},
	}

	for _, c := range cases {
		to, err := workflow.Transition(c.from, c.event)
		require.NoError(t, err)
		assert.Equal(t, c.to, to)
	}
}

// TestTransition_IllegalPaths 测试非法的状态转换返回冲突错误
func TestTransition_IllegalPaths(t *testing.T) {
	cases := []struct {
		from  workflow.Status
		event workflow.Event
	}{
		{workflow.StatusDraft, workflow.EventApprove},
		{workflow.StatusPending, workflow.EventSubmit},
		{workflow.StatusPending, workflow.EventEditLogistics},
		{workflow.StatusApproved, workflow.EventApprove},
		{workflow.StatusApproved, workflow.EventReject},
		{workflow.StatusRejected, workflow.EventApprove},
		{workflow.StatusRejected, workflow.EventEditLogistics},
		{workflow.StatusCompleted, workflow.EventApprove},
		{workflow.StatusCompleted, workflow.EventEditLogistics},
		{workflow.StatusCompleted, workflow.EventResubmit},
	}

	for _, c := range cases {
		_, err := workflow.Transition(c.from, c.event)
		require.Error(t, err)

		var conflictErr *workflow.ConflictError
		assert.ErrorAs(t, err, &conflictErr)
	}
}

// TestIsTerminal 测试终态判断
func TestIsTerminal(t *testing.T) {
	assert.True(t, workflow.IsTerminal(workflow.StatusRejected))
	assert.True(t, workflow.IsTerminal(workflow.StatusCompleted))
	assert.False(t, workflow.IsTerminal(workflow.StatusDraft))
	assert.False(t, workflow.IsTerminal(workflow.StatusPending))
	assert.False(t, workflow.IsTerminal(workflow.StatusApproved))
}

// TestEffectiveStatus_PastDateDerivesCompleted 测试过期记录派生为 completed
func TestEffectiveStatus_PastDateDerivesCompleted(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)

	// 与审批结果无关,任何状态的过期记录都派生为 completed
	for _, status := range []workflow.Status{
		workflow.StatusPending,
		workflow.StatusApproved,
		workflow.StatusRejected,
	} {
		assert.Equal(t, workflow.StatusCompleted, workflow.EffectiveStatus(status, yesterday, now))
	}
}

// TestEffectiveStatus_TodayIsNotCompleted 测试当天的会议不派生为 completed
func TestEffectiveStatus_TodayIsNotCompleted(t *testing.T) {
	// 日期比较只看日历日,当天深夜的会议也不算过期
	now := time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, workflow.StatusPending, workflow.EffectiveStatus(workflow.StatusPending, today, now))
	assert.Equal(t, workflow.StatusApproved, workflow.EffectiveStatus(workflow.StatusApproved, today, now))
}

// TestEffectiveStatus_MixedLocations 测试落库日期与本地时间跨时区比较
func TestEffectiveStatus_MixedLocations(t *testing.T) {
	// 日期按 UTC 零点落库,服务器时钟在 UTC-11 时区,同一日历日
	meetingDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.FixedZone("UTC-11", -11*3600))

	assert.Equal(t, workflow.StatusPending, workflow.EffectiveStatus(workflow.StatusPending, meetingDate, now))

	// 本地日历日已翻到第二天才算过期
	now = time.Date(2026, 3, 16, 0, 30, 0, 0, time.FixedZone("UTC-11", -11*3600))
	assert.Equal(t, workflow.StatusCompleted, workflow.EffectiveStatus(workflow.StatusPending, meetingDate, now))
}

// TestEffectiveStatus_FutureDate 测试未来日期保持原状态
func TestEffectiveStatus_FutureDate(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	tomorrow := now.AddDate(0, 0, 1)

	assert.Equal(t, workflow.StatusPending, workflow.EffectiveStatus(workflow.StatusPending, tomorrow, now))
}

// TestValidStatus 测试状态值合法性判断
func TestValidStatus(t *testing.T) {
	for _, s := range []string{"draft", "pending", "approved", "rejected", "completed"} {
		assert.True(t, workflow.ValidStatus(s))
	}
	assert.False(t, workflow.ValidStatus("cancelled"))
	assert.False(t, workflow.ValidStatus(""))
}
