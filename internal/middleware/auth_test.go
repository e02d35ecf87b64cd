package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blues/dps/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, accountId int64, role string, expiresAt time.Time) string {
	t.Helper()

	claims := &Claims{
		AccountId: accountId,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func newAuthRouter(requiredRole model.AccountRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	handlers := []gin.HandlerFunc{Auth(testSecret)}
	if requiredRole != "" {
		handlers = append(handlers, RequireRole(requiredRole))
	}
	handlers = append(handlers, func(c *gin.Context) {
		principal := CurrentPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"id": principal.Id, "role": principal.Role})
	})

	r.GET("/protected", handlers...)
	return r
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// TestAuth_ValidToken 合法令牌放行并注入请求主体
func TestAuth_ValidToken(t *testing.T) {
	r := newAuthRouter("")
	token := signToken(t, 42, "admin", time.Now().Add(time.Hour))

	w := doRequest(r, "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
}

// TestAuth_MissingHeader 缺少令牌返回401
func TestAuth_MissingHeader(t *testing.T) {
	r := newAuthRouter("")

	w := doRequest(r, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// TestAuth_ExpiredToken 过期令牌返回401
func TestAuth_ExpiredToken(t *testing.T) {
	r := newAuthRouter("")
	token := signToken(t, 42, "admin", time.Now().Add(-time.Hour))

	w := doRequest(r, "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// TestAuth_WrongSecret 伪造签名返回401
func TestAuth_WrongSecret(t *testing.T) {
	r := newAuthRouter("")

	claims := &Claims{AccountId: 42, Role: "admin"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	w := doRequest(r, "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// TestAuth_WrongSigningMethod 非HS256签名的令牌即使密钥正确也拒绝
func TestAuth_WrongSigningMethod(t *testing.T) {
	r := newAuthRouter("")

	claims := &Claims{
		AccountId: 42,
		Role:      "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	w := doRequest(r, "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// TestRequireRole 非管理员角色被403拒绝
func TestRequireRole(t *testing.T) {
	r := newAuthRouter(model.RoleAdmin)

	adminToken := signToken(t, 1, string(model.RoleAdmin), time.Now().Add(time.Hour))
	if w := doRequest(r, "Bearer "+adminToken); w.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", w.Code)
	}

	userToken := signToken(t, 2, string(model.RoleUser), time.Now().Add(time.Hour))
	if w := doRequest(r, "Bearer "+userToken); w.Code != http.StatusForbidden {
		t.Errorf("user status = %d, want 403", w.Code)
	}
}
