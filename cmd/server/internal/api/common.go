package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/standup/cmd/server/internal/projects"
	"github.com/houzhh15/standup/cmd/server/internal/reports"
	"github.com/houzhh15/standup/cmd/server/internal/taskcodec"
	"github.com/houzhh15/standup/cmd/server/internal/updates"
)

// currentUser 获取当前用户（由认证中间件注入）
func currentUser(c *gin.Context) string {
	if user, exists := c.Get("user"); exists {
		if username, ok := user.(string); ok && username != "" {
			return username
		}
	}
	return ""
}

// errorResponse 返回错误响应
func errorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

// successResponse 返回成功响应
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// badRequestResponse 返回 400 响应
func badRequestResponse(c *gin.Context, message string) {
	errorResponse(c, http.StatusBadRequest, message)
}

// notFoundResponse 返回 404 响应
func notFoundResponse(c *gin.Context, resource string) {
	errorResponse(c, http.StatusNotFound, resource+" not found")
}

// unauthorizedResponse 返回 401 响应
func unauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "unauthorized"
	}
	errorResponse(c, http.StatusUnauthorized, message)
}

// domainErrorResponse 将领域错误映射到 HTTP 状态码
func domainErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, updates.ErrNotFound):
		notFoundResponse(c, "update")
	case errors.Is(err, updates.ErrTaskNotFound):
		notFoundResponse(c, "task")
	case errors.Is(err, projects.ErrProjectNotFound):
		notFoundResponse(c, "project")
	case errors.Is(err, reports.ErrScheduleNotFound):
		notFoundResponse(c, "schedule")
	case errors.Is(err, taskcodec.ErrMalformedIdentifier),
		errors.Is(err, updates.ErrInvalidArgument),
		errors.Is(err, reports.ErrInvalidSchedule):
		badRequestResponse(c, err.Error())
	case errors.Is(err, updates.ErrMutationFailed):
		errorResponse(c, http.StatusConflict, err.Error())
	default:
		errorResponse(c, http.StatusInternalServerError, "internal server error")
	}
}
