package api

import (
	"github.com/gin-gonic/gin"

	"github.com/houzhh15/standup/cmd/server/internal/projects"
)

// HandleListProjects GET /api/v1/projects
func HandleListProjects(registry *projects.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := registry.List(currentUser(c))
		if err != nil {
			domainErrorResponse(c, err)
			return
		}
		successResponse(c, list)
	}
}

// HandleCreateProject POST /api/v1/projects
func HandleCreateProject(registry *projects.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestResponse(c, "invalid request body")
			return
		}

		owner := currentUser(c)
		existing, err := registry.FindByName(owner, req.Name)
		if err != nil {
			domainErrorResponse(c, err)
			return
		}
		if existing != nil {
			// 同名项目幂等返回
			successResponse(c, existing)
			return
		}

		p, err := registry.Create(owner, req.Name)
		if err != nil {
			badRequestResponse(c, err.Error())
			return
		}
		successResponse(c, p)
	}
}
