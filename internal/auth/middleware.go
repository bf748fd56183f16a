package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/meeting-gin/internal/workflow"
)

// AuthMiddleware JWT 认证中间件
// 凭证无效返回 401,调用方可重新认证后重试,服务端不销毁任何状态
func AuthMiddleware(validator *TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "missing authorization header",
			})
			c.Abort()
			return
		}

		// 移除 "Bearer " 前缀
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "invalid token",
				"detail":  err.Error(),
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.Sub)
		c.Set("username", claims.PreferredUsername)
		c.Set("email", claims.Email)
		c.Set("roles", claims.RealmAccess.Roles)

		c.Next()
	}
}

// RequireApprover 审批角色中间件
// 仅持有 APPROVER_HO 或 APPROVER_MGMT 角色的用户可通过
func RequireApprover() gin.HandlerFunc {
	return func(c *gin.Context) {
		roles := RolesFromContext(c)
		if !workflow.HasApproverRole(roles) {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "approver role required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RolesFromContext 从 gin 上下文读取角色列表
func RolesFromContext(c *gin.Context) []string {
	v, ok := c.Get("roles")
	if !ok {
		return nil
	}
	roles, _ := v.([]string)
	return roles
}

// UserIDFromContext 从 gin 上下文读取用户 ID
func UserIDFromContext(c *gin.Context) string {
	return c.GetString("user_id")
}
