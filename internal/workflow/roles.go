package workflow

// 角色名,角色分配本身由外部身份系统负责
const (
	RoleRequester    = "REQUESTER"
	RoleApproverHO   = "APPROVER_HO"
	RoleApproverMgmt = "APPROVER_MGMT"
)

// ApproverRoles 有权审批的角色集合
var ApproverRoles = []string{RoleApproverHO, RoleApproverMgmt}

// IsApproverRole 判断角色是否为审批角色
func IsApproverRole(role string) bool {
	return role == RoleApproverHO || role == RoleApproverMgmt
}

// HasApproverRole 判断角色列表中是否包含审批角色
func HasApproverRole(roles []string) bool {
	for _, r := range roles {
		if IsApproverRole(r) {
			return true
		}
	}
	return false
}
