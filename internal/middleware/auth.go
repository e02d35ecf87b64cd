package middleware

import (
	"net/http"
	"strings"

	"github.com/blues/dps/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Principal 请求主体，鉴权通过后写入 context
type Principal struct {
	Id   int64
	Role model.AccountRole
}

const principalKey = "principal"

// Claims JWT载荷
type Claims struct {
	AccountId int64  `json:"account_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Auth 校验 Bearer JWT，并把 {id, role} 主体放入 context
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenStr = parts[1]
			}
		}

		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "未登录",
			})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "登录已失效，请重新登录",
			})
			return
		}

		c.Set(principalKey, &Principal{
			Id:   claims.AccountId,
			Role: model.AccountRole(claims.Role),
		})
		c.Next()
	}
}

// RequireRole 校验请求主体角色，非目标角色返回403
func RequireRole(role model.AccountRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := CurrentPrincipal(c)
		if principal == nil || principal.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "没有操作权限",
			})
			return
		}
		c.Next()
	}
}

// CurrentPrincipal 取出当前请求主体，未鉴权时返回nil
func CurrentPrincipal(c *gin.Context) *Principal {
	value, exists := c.Get(principalKey)
	if !exists {
		return nil
	}
	principal, ok := value.(*Principal)
	if !ok {
		return nil
	}
	return principal
}
