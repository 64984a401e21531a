package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/standup/cmd/server/internal/users"
)

// HandleLogin POST /api/v1/login
// 校验用户名密码并签发 JWT
func HandleLogin(userManager *users.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestResponse(c, "invalid request body")
			return
		}

		user, err := userManager.Authenticate(req.Username, req.Password)
		if err != nil {
			unauthorizedResponse(c, "invalid credentials")
			return
		}
		token, err := userManager.GenerateToken(user.Username)
		if err != nil {
			errorResponse(c, http.StatusInternalServerError, "failed to generate token")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"token":   token,
			"user":    user,
		})
	}
}

// HandleGetMe GET /api/v1/me
func HandleGetMe(userManager *users.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := userManager.GetUser(currentUser(c))
		if !exists {
			notFoundResponse(c, "user")
			return
		}
		successResponse(c, user)
	}
}

// RequireAuth Bearer token 认证中间件，注入 user 到 context
func RequireAuth(userManager *users.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			unauthorizedResponse(c, "missing bearer token")
			c.Abort()
			return
		}
		claims, err := userManager.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			unauthorizedResponse(c, "invalid token")
			c.Abort()
			return
		}
		c.Set("user", claims.Username)
		c.Set("role", claims.Role)
		c.Next()
	}
}
