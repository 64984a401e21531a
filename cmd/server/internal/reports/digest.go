package reports

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/houzhh15/standup/cmd/server/internal/feed"
	"github.com/houzhh15/standup/cmd/server/internal/models"
)

// digestWindowDays 摘要回看窗口
const digestWindowDays = 7

// Digest 一次定时发送要携带的全部数据
type Digest struct {
	Schedule         *models.ReportSchedule `json:"schedule"`
	GeneratedAt      time.Time              `json:"generatedAt"`
	Tasks            []feed.ProjectedTask   `json:"tasks"`
	Analytics        *feed.AnalyticsReport  `json:"analytics"`
	MeetsImpactLevel bool                   `json:"meetsImpactLevel"`
}

// BuildDigest 组装指定调度的摘要：按优先级阈值过滤的任务清单 + 贡献分析
// 两路查询互不依赖，并行拉取
func BuildDigest(ctx context.Context, projection *feed.Service, sched *models.ReportSchedule) (*Digest, error) {
	digest := &Digest{
		Schedule:    sched,
		GeneratedAt: time.Now().UTC(),
	}

	priority := sched.PriorityThreshold
	if priority == "all" {
		priority = ""
	}
	startDate := time.Now().UTC().AddDate(0, 0, -(digestWindowDays - 1)).Format("2006-01-02")

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		tasks, err := projection.ListTasks(sched.OwnerID, feed.Filter{
			StartDate: startDate,
			Priority:  priority,
		})
		if err != nil {
			return err
		}
		digest.Tasks = tasks
		return nil
	})
	g.Go(func() error {
		analytics, err := projection.Analytics(sched.OwnerID, digestWindowDays)
		if err != nil {
			return err
		}
		digest.Analytics = analytics
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	digest.MeetsImpactLevel = digest.Analytics.ImpactScore >= sched.ImpactLevel
	return digest, nil
}
