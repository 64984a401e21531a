package api

import (
	"github.com/gin-gonic/gin"

	"github.com/houzhh15/standup/cmd/server/internal/audit"
	"github.com/houzhh15/standup/cmd/server/internal/feed"
	"github.com/houzhh15/standup/cmd/server/internal/projects"
	"github.com/houzhh15/standup/cmd/server/internal/reports"
	"github.com/houzhh15/standup/cmd/server/internal/updates"
	"github.com/houzhh15/standup/cmd/server/internal/users"
)

// Deps 路由依赖集合
type Deps struct {
	Users      *users.Manager
	Updates    *updates.Store
	Mutator    *updates.Mutator
	Projection *feed.Service
	Projects   *projects.Registry
	Scheduler  *reports.Scheduler
	Audit      audit.AuditLogger
}

// RegisterRoutes 挂载全部业务路由
// /api/v1/login 之外的 /api/v1 路由都要求 Bearer token
func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.POST("/api/v1/login", HandleLogin(deps.Users))

	v1 := r.Group("/api/v1")
	v1.Use(RequireAuth(deps.Users))
	{
		v1.GET("/me", HandleGetMe(deps.Users))

		v1.GET("/tasks", HandleListTasks(deps.Projection))
		v1.POST("/tasks", HandleCreateTasks(deps.Updates, deps.Projects, deps.Audit))
		v1.PATCH("/tasks/:id/task/:task_id", HandleToggleTask(deps.Mutator))
		v1.PUT("/tasks/:id/task/:task_id", HandleEditTask(deps.Mutator))
		v1.DELETE("/tasks/:id/task/:task_id", HandleDeleteTask(deps.Mutator))
		v1.PATCH("/tasks/:id/task/:task_id/priority", HandleSetTaskPriority(deps.Mutator))
		v1.PATCH("/tasks/:id/task/:task_id/duedate", HandleSetTaskDueDate(deps.Mutator))

		v1.GET("/updates", HandleListUpdates(deps.Updates))
		v1.GET("/updates/:id", HandleGetUpdate(deps.Updates))
		v1.DELETE("/updates/:id", HandleDeleteUpdate(deps.Updates, deps.Audit))

		v1.GET("/analytics", HandleAnalytics(deps.Projection))
		v1.GET("/reports/daily", HandleDailyReport(deps.Projection))
		v1.GET("/reports/schedule", HandleListSchedules(deps.Scheduler))
		v1.POST("/reports/schedule", HandleCreateSchedule(deps.Scheduler))
		v1.DELETE("/reports/schedule/:id", HandleDeleteSchedule(deps.Scheduler))

		v1.GET("/projects", HandleListProjects(deps.Projects))
		v1.POST("/projects", HandleCreateProject(deps.Projects))
	}
}
