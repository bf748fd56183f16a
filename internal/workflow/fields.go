package workflow

// Field 会议记录字段名,与 JSON 字段一致
type Field string

const (
	// 第一阶段: 身份与意图
	FieldClientName     Field = "client_name"
	FieldContactPerson  Field = "contact_person"
	FieldDesignation    Field = "designation"
	FieldContactNumber  Field = "contact_number"
	FieldEmail          Field = "email"
	FieldOrganization   Field = "organization"
	FieldLocation       Field = "location"
	FieldMeetingPurpose Field = "meeting_purpose"
	FieldMeetingDate    Field = "meeting_date"

	// 第二阶段: 执行与后勤
	FieldVisitPlace        Field = "visit_place"
	FieldDiscussionSummary Field = "discussion_summary"
	FieldPathOfTravel      Field = "path_of_travel"
	FieldDistanceKM        Field = "distance_km"
	FieldExpenses          Field = "expenses"
	FieldRemarks           Field = "remarks"
	FieldStartTime         Field = "start_time"
	FieldEndTime           Field = "end_time"
)

// Phase1Fields 第一阶段字段
var Phase1Fields = []Field{
	FieldClientName, FieldContactPerson, FieldDesignation,
	FieldContactNumber, FieldEmail, FieldOrganization,
	FieldLocation, FieldMeetingPurpose, FieldMeetingDate,
}

// Phase2Fields 第二阶段字段
var Phase2Fields = []Field{
	FieldVisitPlace, FieldDiscussionSummary, FieldPathOfTravel,
	FieldDistanceKM, FieldExpenses, FieldRemarks,
	FieldStartTime, FieldEndTime,
}

// FieldSet 字段集合
type FieldSet map[Field]bool

// Has 判断字段是否在集合中
func (fs FieldSet) Has(f Field) bool {
	return fs[f]
}

func newFieldSet(groups ...[]Field) FieldSet {
	fs := make(FieldSet)
	for _, group := range groups {
		for _, f := range group {
			fs[f] = true
		}
	}
	return fs
}

// VisibleFields 返回指定状态下可见的字段集合
// 第一阶段字段始终可见;第二阶段字段在审批通过后可见,
// 已过期但从未通过审批的记录不会暴露后勤数据
func VisibleFields(status Status) FieldSet {
	switch status {
	case StatusApproved, StatusCompleted:
		return newFieldSet(Phase1Fields, Phase2Fields)
	default:
		return newFieldSet(Phase1Fields)
	}
}

// EditableFields 返回指定状态和角色下可编辑的字段集合
// expenses 永远不可编辑,它是距离和出行方式的只读投影
func EditableFields(status Status, role string) FieldSet {
	switch status {
	case StatusDraft:
		if role == RoleRequester {
			return newFieldSet(Phase1Fields)
		}
	case StatusApproved:
		if role == RoleRequester {
			fs := newFieldSet(Phase2Fields)
			delete(fs, FieldExpenses)
			return fs
		}
	}
	return make(FieldSet)
}
