package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/meeting-gin/internal/workflow"
	"gorm.io/gorm"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			} else {
				Error(c, http.StatusInternalServerError, "internal server error", err.Error())
			}
		}
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// ServiceError 将服务层错误映射为 HTTP 响应
// 校验失败 400,授权失败 401,状态冲突与提交在途 409,记录不存在 404,
// 下游不可用 502,其余一律 500
func ServiceError(c *gin.Context, err error, operation string) {
	var validationErr *workflow.ValidationError
	if errors.As(err, &validationErr) {
		Error(c, http.StatusBadRequest, "validation failed", validationErr.Error())
		return
	}

	var authErr *workflow.AuthorizationError
	if errors.As(err, &authErr) {
		Error(c, http.StatusUnauthorized, "authorization failed", authErr.Error())
		return
	}

	var conflictErr *workflow.ConflictError
	if errors.As(err, &conflictErr) {
		Error(c, http.StatusConflict, "state conflict", conflictErr.Error())
		return
	}

	var inFlightErr *workflow.InFlightError
	if errors.As(err, &inFlightErr) {
		Error(c, http.StatusConflict, "submission in flight", inFlightErr.Error())
		return
	}

	var transportErr *workflow.TransportError
	if errors.As(err, &transportErr) {
		Error(c, http.StatusBadGateway, "upstream unavailable", transportErr.Error())
		return
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		Error(c, http.StatusNotFound, "meeting not found", err.Error())
		return
	}

	Error(c, http.StatusInternalServerError, "failed to "+operation, err.Error())
}
