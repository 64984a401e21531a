package api

import (
	"github.com/gin-gonic/gin"

	"github.com/houzhh15/standup/cmd/server/internal/audit"
	"github.com/houzhh15/standup/cmd/server/internal/taskcodec"
	"github.com/houzhh15/standup/cmd/server/internal/updates"
)

// updateView update 的响应形态，任务以解码后的数组返回
type updateView struct {
	ID          string           `json:"id"`
	ProjectID   string           `json:"projectId,omitempty"`
	ProjectName string           `json:"projectName,omitempty"`
	Tasks       []taskcodec.Task `json:"tasks"`
	Source      string           `json:"source"`
	CreatedAt   string           `json:"createdAt"`
}

// HandleListUpdates GET /api/v1/updates
func HandleListUpdates(updateStore *updates.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		found, err := updateStore.FindRange(updates.RangeFilter{OwnerID: currentUser(c)})
		if err != nil {
			domainErrorResponse(c, err)
			return
		}

		views := make([]updateView, 0, len(found))
		for _, u := range found {
			views = append(views, updateView{
				ID:          u.ID,
				ProjectID:   u.ProjectID,
				ProjectName: u.ProjectName,
				Tasks:       taskcodec.Decode(u.TasksRaw),
				Source:      u.Source,
				CreatedAt:   u.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}
		successResponse(c, views)
	}
}

// HandleGetUpdate GET /api/v1/updates/:id
func HandleGetUpdate(updateStore *updates.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := updateStore.LoadForOwner(c.Param("id"), currentUser(c))
		if err != nil {
			domainErrorResponse(c, err)
			return
		}
		successResponse(c, updateView{
			ID:          u.ID,
			ProjectID:   u.ProjectID,
			ProjectName: u.ProjectName,
			Tasks:       taskcodec.Decode(u.TasksRaw),
			Source:      u.Source,
			CreatedAt:   u.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
}

// HandleDeleteUpdate DELETE /api/v1/updates/:id
// 连带删除嵌入其中的全部任务
func HandleDeleteUpdate(updateStore *updates.Store, auditLogger audit.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := currentUser(c)
		if err := updateStore.Delete(c.Param("id"), owner); err != nil {
			domainErrorResponse(c, err)
			return
		}
		if auditLogger != nil {
			_ = auditLogger.LogActionSimple(owner, audit.ActionDeleteUpdate, c.Param("id"), "")
		}
		successResponse(c, gin.H{"deleted": true})
	}
}
