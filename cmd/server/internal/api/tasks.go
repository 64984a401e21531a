package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/standup/cmd/server/internal/audit"
	"github.com/houzhh15/standup/cmd/server/internal/feed"
	"github.com/houzhh15/standup/cmd/server/internal/projects"
	"github.com/houzhh15/standup/cmd/server/internal/taskcodec"
	"github.com/houzhh15/standup/cmd/server/internal/updates"
)

// taskInput 创建 update 时的单个任务
type taskInput struct {
	Description   string  `json:"description"`
	Priority      string  `json:"priority"`
	DueDate       *string `json:"dueDate"`
	EstimatedTime int     `json:"estimatedTime"`
	Completed     bool    `json:"completed"`
	Notes         string  `json:"notes"`
}

func (in taskInput) toTask() taskcodec.Task {
	return taskcodec.Task{
		Description:   in.Description,
		Completed:     in.Completed,
		Priority:      in.Priority,
		DueDate:       in.DueDate,
		EstimatedTime: in.EstimatedTime,
		Notes:         in.Notes,
	}
}

// HandleListTasks GET /api/v1/tasks
// 查询参数：date 或 startDate/endDate、priority、completed
func HandleListTasks(projection *feed.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := feed.Filter{
			Date:      c.Query("date"),
			StartDate: c.Query("startDate"),
			EndDate:   c.Query("endDate"),
			Priority:  c.Query("priority"),
		}
		if raw := c.Query("completed"); raw != "" {
			completed, err := strconv.ParseBool(raw)
			if err != nil {
				badRequestResponse(c, "completed must be true or false")
				return
			}
			filter.Completed = &completed
		}

		tasks, err := projection.ListTasks(currentUser(c), filter)
		if err != nil {
			domainErrorResponse(c, err)
			return
		}
		successResponse(c, tasks)
	}
}

// HandleCreateTasks POST /api/v1/tasks
// 创建一条携带任务列表的 update；project 名称命中已有项目则存引用
func HandleCreateTasks(updateStore *updates.Store, registry *projects.Registry, auditLogger audit.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Tasks   []taskInput `json:"tasks"`
			Project string      `json:"project"`
			Source  string      `json:"source"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestResponse(c, "invalid request body")
			return
		}
		if len(req.Tasks) == 0 {
			badRequestResponse(c, "at least one task required")
			return
		}

		owner := currentUser(c)
		projectID, projectName := "", ""
		if req.Project != "" {
			existing, err := registry.FindByName(owner, req.Project)
			if err != nil {
				domainErrorResponse(c, err)
				return
			}
			if existing != nil {
				projectID = existing.ID
			} else {
				projectName = req.Project
			}
		}

		tasks := make([]taskcodec.Task, 0, len(req.Tasks))
		for _, in := range req.Tasks {
			tasks = append(tasks, in.toTask())
		}

		u, err := updateStore.Create(owner, projectID, projectName, tasks, req.Source)
		if err != nil {
			domainErrorResponse(c, err)
			return
		}
		if auditLogger != nil {
			_ = auditLogger.LogActionSimple(owner, audit.ActionCreateUpdate, u.ID, "")
		}
		successResponse(c, u)
	}
}

// taskRouteID 取路由中的复合任务标识符，并校验与 update 路径段一致
func taskRouteID(c *gin.Context) (string, bool) {
	taskID := c.Param("task_id")
	parsedUpdate, _, err := taskcodec.ParseTaskID(taskID)
	if err != nil {
		badRequestResponse(c, err.Error())
		return "", false
	}
	if parsedUpdate != c.Param("id") {
		badRequestResponse(c, "task identifier does not belong to this update")
		return "", false
	}
	return taskID, true
}

// HandleToggleTask PATCH /api/v1/tasks/:id/task/:task_id
func HandleToggleTask(mutator *updates.Mutator) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, ok := taskRouteID(c)
		if !ok {
			return
		}
		var req struct {
			Completed *bool `json:"completed"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Completed == nil {
			badRequestResponse(c, "completed is required")
			return
		}

		u, err := mutator.SetCompleted(currentUser(c), taskID, *req.Completed)
		if err != nil {
			domainErrorResponse(c, err)
			return
		}
		successResponse(c, u)
	}
}

// HandleEditTask PUT /api/v1/tasks/:id/task/:task_id
func HandleEditTask(mutator *updates.Mutator) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, ok := taskRouteID(c)
		if !ok {
			return
		}
		var req struct {
			Description string `json:"description"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestResponse(c, "invalid request body")
			return
		}

		u, err := mutator.EditDescription(currentUser(c), taskID, req.Description)
		if err != nil {
			domainErrorResponse(c, err)
			return
		}
		successResponse(c, u)
	}
}

// HandleSetTaskPriority PATCH /api/v1/tasks/:id/task/:task_id/priority
func HandleSetTaskPriority(mutator *updates.Mutator) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, ok := taskRouteID(c)
		if !ok {
			return
		}
		var req struct {
			Priority string `json:"priority"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestResponse(c, "invalid request body")
			return
		}

		u, err := mutator.SetPriority(currentUser(c), taskID, req.Priority)
		if err != nil {
			domainErrorResponse(c, err)
			return
		}
		successResponse(c, u)
	}
}

// HandleSetTaskDueDate PATCH /api/v1/tasks/:id/task/:task_id/duedate
// dueDate 为 null 表示清除
func HandleSetTaskDueDate(mutator *updates.Mutator) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, ok := taskRouteID(c)
		if !ok {
			return
		}
		var req struct {
			DueDate *string `json:"dueDate"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestResponse(c, "invalid request body")
			return
		}

		u, err := mutator.SetDueDate(currentUser(c), taskID, req.DueDate)
		if err != nil {
			domainErrorResponse(c, err)
			return
		}
		successResponse(c, u)
	}
}

// HandleDeleteTask DELETE /api/v1/tasks/:id/task/:task_id
// 删除后更高序号前移，响应返回剩余任务供调用方重建标识符
func HandleDeleteTask(mutator *updates.Mutator) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, ok := taskRouteID(c)
		if !ok {
			return
		}

		remaining, err := mutator.DeleteTask(currentUser(c), taskID)
		if err != nil {
			domainErrorResponse(c, err)
			return
		}
		successResponse(c, gin.H{"remainingTasks": remaining})
	}
}
