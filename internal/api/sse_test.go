package api_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mautops/meeting-gin/internal/api"
	"github.com/mautops/meeting-gin/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sseTestIssuer = "https://auth.example/realms/meetings"

// setupSSEAuth 生成密钥对、伪造 JWKS 端点并签发合法 token
func setupSSEAuth(t *testing.T) (*auth.TokenValidator, string) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := map[string]interface{}{
		"keys": []map[string]string{
			{
				"kid": "sse-key",
				"kty": "RSA",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			},
		},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(server.Close)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": sseTestIssuer,
		"sub": "user-001",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = "sse-key"
	signed, err := token.SignedString(key)
	require.NoError(t, err)

	return auth.NewTokenValidator(sseTestIssuer, server.URL), signed
}

// newSSERouter 装配 SSE 测试路由
func newSSERouter(validator *auth.TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/sse/meetings/:id", api.SSEHandler(validator))
	return router
}

// TestSSEHandler_MissingToken 测试缺少 token 返回 401
func TestSSEHandler_MissingToken(t *testing.T) {
	validator, _ := setupSSEAuth(t)
	router := newSSERouter(validator)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sse/meetings/meeting-001", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestSSEHandler_InvalidToken 测试非法 token 返回 401
func TestSSEHandler_InvalidToken(t *testing.T) {
	validator, _ := setupSSEAuth(t)
	router := newSSERouter(validator)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sse/meetings/meeting-001?token=garbage", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestSSEHandler_Connected 测试建立连接后收到初始消息并在断开时干净退出
func TestSSEHandler_Connected(t *testing.T) {
	validator, token := setupSSEAuth(t)
	router := newSSERouter(validator)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/sse/meetings/meeting-001?token="+token, nil)
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"type":"connected"`)
	assert.Contains(t, w.Body.String(), `"meeting_id":"meeting-001"`)
}
