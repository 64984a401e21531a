// Package feed 将多条 update 的嵌入式任务列表摊平为统一的任务视图
// 仪表盘、报表、分析共用同一投影流；单条记录解码失败只降级该条记录
package feed

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/houzhh15/standup/cmd/server/internal/models"
	"github.com/houzhh15/standup/cmd/server/internal/projects"
	"github.com/houzhh15/standup/cmd/server/internal/taskcodec"
	"github.com/houzhh15/standup/cmd/server/internal/updates"
	"github.com/houzhh15/standup/pkg/metrics"
)

// NoProjectLabel 无项目归属时的哨兵标签，投影结果中永不为空
const NoProjectLabel = "No Project"

// dateLayout 查询参数与聚合桶使用的日期格式
const dateLayout = "2006-01-02"

// OwnerInfo 投影中携带的作者展示信息
type OwnerInfo struct {
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Initials string `json:"initials"`
}

// ProjectedTask 摊平后的任务视图
// ID 为规范复合标识符（updateID-序号），序号按完整序列计，不受过滤影响
type ProjectedTask struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Completed     bool      `json:"completed"`
	Priority      string    `json:"priority"`
	DueDate       *string   `json:"dueDate,omitempty"`
	EstimatedTime int       `json:"estimatedTime"`
	ProjectLabel  string    `json:"category"`
	Date          time.Time `json:"date"`
	Owner         OwnerInfo `json:"user"`
}

// Filter 任务列表筛选条件
// Date 与 StartDate/EndDate 互斥，Date 优先；Completed 为 nil 表示不过滤
type Filter struct {
	Date      string
	StartDate string
	EndDate   string
	Priority  string
	Completed *bool
}

// UserDirectory 作者展示信息的窄接口，由用户管理组件实现
type UserDirectory interface {
	DisplayInfo(username string) (name, avatar string)
}

// Service 任务投影引擎
type Service struct {
	updates    *updates.Store
	projects   *projects.Registry
	users      UserDirectory
	logger     *slog.Logger
	maxUpdates int
}

// NewService 创建投影引擎，maxUpdates 限制单次聚合读取的 update 数量
func NewService(updateStore *updates.Store, registry *projects.Registry, users UserDirectory, logger *slog.Logger, maxUpdates int) *Service {
	if maxUpdates <= 0 {
		maxUpdates = 100
	}
	return &Service{
		updates:    updateStore,
		projects:   registry,
		users:      users,
		logger:     logger,
		maxUpdates: maxUpdates,
	}
}

// Initials 从展示名提取首字母缩写
func Initials(name string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		runes := []rune(part)
		if len(runes) > 0 {
			b.WriteString(strings.ToUpper(string(runes[0])))
		}
	}
	return b.String()
}

// ownerInfo 解析作者展示信息，目录未知时退化为用户名
func (s *Service) ownerInfo(ownerID string) OwnerInfo {
	name, avatar := ownerID, ""
	if s.users != nil {
		if n, a := s.users.DisplayInfo(ownerID); n != "" {
			name, avatar = n, a
		}
	}
	return OwnerInfo{Name: name, Avatar: avatar, Initials: Initials(name)}
}

// projectLabel 解析项目标签：项目实体名称 > 自由文本名称 > 哨兵
func (s *Service) projectLabel(u *models.Update) string {
	if name := s.projects.ResolveName(u.ProjectID); name != "" {
		return name
	}
	if u.ProjectName != "" {
		return u.ProjectName
	}
	return NoProjectLabel
}

// window 将过滤条件转换为时间窗口
func (f Filter) window() (from, to time.Time, err error) {
	parseDay := func(day string) (time.Time, error) {
		t, err := time.Parse(dateLayout, day)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", day)
		}
		return t, nil
	}

	if f.Date != "" {
		day, err := parseDay(f.Date)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return day, day.Add(24*time.Hour - time.Nanosecond), nil
	}
	if f.StartDate != "" {
		if from, err = parseDay(f.StartDate); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if f.EndDate != "" {
		day, err := parseDay(f.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = day.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}

// ListTasks 返回调用者的摊平任务列表
// 顺序稳定：update 创建时间降序，同一 update 内按序号升序
func (s *Service) ListTasks(ownerID string, f Filter) ([]ProjectedTask, error) {
	start := time.Now()
	defer func() {
		metrics.RecordFeedQueryDuration("list", time.Since(start).Seconds())
	}()

	if f.Priority != "" && f.Priority != "all" && !taskcodec.ValidPriority(f.Priority) {
		return nil, fmt.Errorf("%w: priority %q", updates.ErrInvalidArgument, f.Priority)
	}

	from, to, err := f.window()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", updates.ErrInvalidArgument, err)
	}

	candidates, err := s.updates.FindRange(updates.RangeFilter{
		OwnerID: ownerID,
		From:    from,
		To:      to,
		Limit:   s.maxUpdates,
	})
	if err != nil {
		return nil, err
	}

	result := []ProjectedTask{}
	for _, u := range candidates {
		tasks, err := taskcodec.DecodeStrict(u.TasksRaw)
		if err != nil {
			// 单条记录解码失败：跳过该记录，聚合继续
			metrics.RecordDecodeFailure()
			s.logger.Warn("skipping update with undecodable task list", "update_id", u.ID, "error", err)
			continue
		}

		label := s.projectLabel(u)
		owner := s.ownerInfo(u.OwnerID)

		for ordinal, task := range tasks {
			if f.Priority != "" && f.Priority != "all" && task.EffectivePriority() != f.Priority {
				continue
			}
			if f.Completed != nil && task.Completed != *f.Completed {
				continue
			}
			result = append(result, ProjectedTask{
				ID:            taskcodec.TaskID(u.ID, ordinal),
				Title:         task.Description,
				Completed:     task.Completed,
				Priority:      task.EffectivePriority(),
				DueDate:       task.DueDate,
				EstimatedTime: task.EffectiveEstimatedTime(),
				ProjectLabel:  label,
				Date:          u.CreatedAt,
				Owner:         owner,
			})
		}
	}
	return result, nil
}
