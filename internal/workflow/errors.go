package workflow

import "fmt"

// ValidationError 校验失败
// 纯函数检查失败,不触达网络,修正输入后可恢复
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// AuthorizationError 授权失败
// 凭证缺失/过期/被拒,调用方可提示重新认证,不强制销毁会话
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	if e.Message == "" {
		return "authorization failed"
	}
	return e.Message
}

// ConflictError 状态冲突
// 记录状态与期望的转换前状态不一致,调用方刷新后重试
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return "record state conflict"
	}
	return e.Message
}

// TransportError 网络/服务不可用
// 单飞标志已释放,同一动作可携带新的幂等令牌重试
type TransportError struct {
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// InFlightError 单飞冲突
// 同一记录已有提交在途,第二次调用被拒绝直到第一次完成
type InFlightError struct {
	MeetingID string
}

func (e *InFlightError) Error() string {
	return fmt.Sprintf("a submission is already in flight for meeting %s", e.MeetingID)
}
