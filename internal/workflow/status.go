package workflow

import (
	"fmt"
	"time"
)

// Status 会议状态
type Status string

const (
	StatusDraft     Status = "draft"     // 草稿,仅存在于客户端
	StatusPending   Status = "pending"   // 待审批
	StatusApproved  Status = "approved"  // 已通过,第二阶段字段解锁
	StatusRejected  Status = "rejected"  // 已拒绝,仅接受重新提交
	StatusCompleted Status = "completed" // 会议日期已过,读取时派生
)

// Event 状态转换事件
type Event string

const (
	EventSubmit        Event = "submit"
	EventApprove       Event = "approve"
	EventReject        Event = "reject"
	EventEditLogistics Event = "edit-logistics"
	EventResubmit      Event = "resubmit"
)

// transitions 状态转换表
// completed 由读取时的日期比较派生,不在表内
var transitions = map[Status]map[Event]Status{
	StatusDraft: {
		EventSubmit: StatusPending,
	},
	StatusPending: {
		EventApprove: StatusApproved,
		EventReject:  StatusRejected,
	},
	StatusApproved: {
		EventEditLogistics: StatusApproved,
	},
	StatusRejected: {
		EventResubmit: StatusPending,
	},
}

// CanTransition 判断状态转换是否合法
func CanTransition(from Status, event Event) (Status, bool) {
	events, ok := transitions[from]
	if !ok {
		return "", false
	}
	to, ok := events[event]
	return to, ok
}

// Transition 执行状态转换,非法转换返回 ConflictError
func Transition(from Status, event Event) (Status, error) {
	to, ok := CanTransition(from, event)
	if !ok {
		return "", &ConflictError{
			Message: fmt.Sprintf("cannot apply event %q to status %q", event, from),
		}
	}
	return to, nil
}

// IsTerminal 判断状态是否拒绝任何字段编辑
// rejected 仅接受 resubmit,completed 不接受任何操作
func IsTerminal(status Status) bool {
	return status == StatusRejected || status == StatusCompleted
}

// EffectiveStatus 计算读取时的有效状态
// 会议日期早于当前日历日的记录派生为 completed,与审批结果无关
func EffectiveStatus(status Status, meetingDate, now time.Time) Status {
	if DateOnly(meetingDate).Before(DateOnly(now)) {
		return StatusCompleted
	}
	return status
}

// DateOnly 截断到日历日,忽略时分秒
// 统一归一到 UTC,比较只看各自的日历日分量,
// 避免落库日期(UTC)和服务器本地时间混用时差出一天
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ValidStatus 判断状态值是否合法
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}
