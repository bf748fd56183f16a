package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/meeting-gin/internal/auth"
)

// SSEHandler SSE 处理器
// 支持 token 认证和会议申请状态的实时推送
func SSEHandler(validator *auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从 query 参数获取 token
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		// 2. 验证 token
		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		// 3. 获取会议申请 ID
		meetingID := c.Param("id")
		if meetingID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "meeting id required"})
			c.Abort()
			return
		}

		// 4. 设置 SSE 响应头
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no") // 禁用 Nginx 缓冲

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
			c.Abort()
			return
		}

		// 5. 创建 SSE 客户端通道
		// 通道由心跳 goroutine 独占写入并负责关闭,
		// 处理器提前返回时不关闭通道,避免向已关闭通道发送
		messageChan := make(chan []byte, 256)

		// 6. 心跳保持连接
		go func() {
			defer close(messageChan)

			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-c.Request.Context().Done():
					return
				case <-ticker.C:
					heartbeat := map[string]interface{}{
						"type":       "heartbeat",
						"meeting_id": meetingID,
						"time":       time.Now().Unix(),
					}
					data, _ := json.Marshal(heartbeat)
					select {
					case messageChan <- data:
					default:
						return
					}
				}
			}
		}()

		// 7. 发送初始连接消息
		initialMsg := map[string]interface{}{
			"type":       "connected",
			"meeting_id": meetingID,
			"user_id":    claims.Sub,
			"time":       time.Now().Unix(),
		}
		initialData, _ := json.Marshal(initialMsg)
		if err := sendSSEMessage(c.Writer, initialData); err != nil {
			return
		}
		flusher.Flush()

		// 8. 持续发送消息
		for {
			select {
			case <-c.Request.Context().Done():
				return
			case message, ok := <-messageChan:
				if !ok {
					return
				}
				if err := sendSSEMessage(c.Writer, message); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// sendSSEMessage 发送 SSE 消息
func sendSSEMessage(w io.Writer, data []byte) error {
	// SSE 格式: data: <json>\n\n
	_, err := fmt.Fprintf(w, "data: %s\n\n", string(data))
	return err
}
