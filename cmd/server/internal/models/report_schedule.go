package models

import "time"

// ReportSchedule 结束策略
const (
	EndTypeNever  = "never"
	EndTypeOnDate = "on-date"
	EndTypeAfter  = "after"
)

// ReportSchedule 定时邮件摘要的持久化配置
// Recipients/ScheduleDays 存为结构化数组；邮件发送本身由外部协作方完成，
// 本服务只负责调度计算与摘要数据组装
type ReportSchedule struct {
	ID                string     `json:"id"`
	OwnerID           string     `json:"owner_id"`
	ImpactLevel       int        `json:"impact_level"`       // 1-100
	PriorityThreshold string     `json:"priority_threshold"` // all|high|medium|low
	Recipients        []string   `json:"recipients"`
	ScheduleDays      []string   `json:"schedule_days"` // 周几，如 monday
	ScheduleTime      string     `json:"schedule_time"` // HH:MM
	EndType           string     `json:"end_type"`      // never|on-date|after
	EndDate           *string    `json:"end_date,omitempty"`
	EndCount          *int       `json:"end_count,omitempty"`
	SendCopyToSelf    bool       `json:"send_copy_to_self"`
	Active            bool       `json:"active"`
	SentCount         int        `json:"sent_count"`
	LastSentAt        *time.Time `json:"last_sent_at,omitempty"`
	NextSendAt        *time.Time `json:"next_send_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
