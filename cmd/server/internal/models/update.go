package models

import "time"

// Update 提交来源类型
const (
	SourceManual   = "manual"
	SourceWhatsApp = "whatsapp"
)

// Update 唯一持有任务的聚合记录
// TasksRaw 是嵌入式任务列表的序列化文本，仅允许 updates 包读写
// ProjectID 与 ProjectName 互斥：无匹配项目实体时存自由文本名称
type Update struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	ProjectID   string    `json:"project_id,omitempty"`
	ProjectName string    `json:"project_name,omitempty"`
	TasksRaw    string    `json:"tasks"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}
