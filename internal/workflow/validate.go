package workflow

import (
	"regexp"
	"strings"
	"time"

	"github.com/mautops/meeting-gin/internal/model"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// phase1Rule 第一阶段校验规则
type phase1Rule struct {
	field  Field
	check  func(m *model.MeetingModel, now time.Time) bool
	reason string
}

// 规则顺序决定首个失败的错误信息,调整顺序会改变对外行为
var phase1Rules = []phase1Rule{
	{FieldContactPerson, func(m *model.MeetingModel, _ time.Time) bool {
		return strings.TrimSpace(m.ContactPerson) != ""
	}, "contact person is required"},
	{FieldDesignation, func(m *model.MeetingModel, _ time.Time) bool {
		return strings.TrimSpace(m.Designation) != ""
	}, "designation is required"},
	{FieldContactNumber, func(m *model.MeetingModel, _ time.Time) bool {
		return strings.TrimSpace(m.ContactNumber) != ""
	}, "contact number is required"},
	{FieldMeetingPurpose, func(m *model.MeetingModel, _ time.Time) bool {
		return strings.TrimSpace(m.MeetingPurpose) != ""
	}, "meeting purpose is required"},
	{FieldLocation, func(m *model.MeetingModel, _ time.Time) bool {
		return strings.TrimSpace(m.Location) != ""
	}, "meeting location is required"},
	{FieldEmail, func(m *model.MeetingModel, _ time.Time) bool {
		return strings.TrimSpace(m.Email) != ""
	}, "email is required"},
	{FieldEmail, func(m *model.MeetingModel, _ time.Time) bool {
		return emailPattern.MatchString(strings.TrimSpace(m.Email))
	}, "email format is invalid"},
	{FieldMeetingDate, func(m *model.MeetingModel, now time.Time) bool {
		return !DateOnly(m.MeetingDate).Before(DateOnly(now))
	}, "cannot select a past meeting date"},
}

// ValidatePhase1 校验第一阶段字段
// 纯函数,无副作用,首个失败即返回
func ValidatePhase1(m *model.MeetingModel, now time.Time) error {
	for _, rule := range phase1Rules {
		if !rule.check(m, now) {
			return &ValidationError{Field: string(rule.field), Reason: rule.reason}
		}
	}
	return nil
}

// ValidatePhase2 校验第二阶段字段
// 仅在第二阶段字段可编辑时调用,即 status == approved
func ValidatePhase2(m *model.MeetingModel) error {
	start, err := time.Parse("15:04:05", m.StartTime)
	if err != nil {
		return &ValidationError{Field: string(FieldStartTime), Reason: "start time must be HH:MM:SS"}
	}
	end, err := time.Parse("15:04:05", m.EndTime)
	if err != nil {
		return &ValidationError{Field: string(FieldEndTime), Reason: "end time must be HH:MM:SS"}
	}
	if !start.Before(end) {
		return &ValidationError{Field: string(FieldStartTime), Reason: "start time must be before end time"}
	}
	return nil
}
