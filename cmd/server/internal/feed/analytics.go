package feed

import (
	"fmt"
	"math"
	"time"

	"github.com/houzhh15/standup/cmd/server/internal/taskcodec"
	"github.com/houzhh15/standup/cmd/server/internal/updates"
	"github.com/houzhh15/standup/pkg/metrics"
)

// impactScore 权重与刻度
// 40% 看贡献频率（日均 3 条任务更新封顶），60% 看任务完成率
const (
	impactFrequencyWeight  = 0.4
	impactCompletionWeight = 0.6
	impactDailyCeiling     = 3.0
)

// DailyPoint 单日贡献统计
type DailyPoint struct {
	Date           string `json:"date"`
	Updates        int    `json:"updates"`
	TasksCompleted int    `json:"tasksCompleted"`
}

// AnalyticsReport 个人贡献分析
type AnalyticsReport struct {
	Days                  int            `json:"days"`
	Daily                 []DailyPoint   `json:"daily"`
	TotalUpdates          int            `json:"totalUpdates"`
	TotalTasks            int            `json:"totalTasks"`
	CompletedTasks        int            `json:"completedTasks"`
	CompletionRate        float64        `json:"completionRate"`
	AvgDailyContributions float64        `json:"avgDailyContributions"`
	ProjectDistribution   map[string]int `json:"projectDistribution"`
	ImpactScore           int            `json:"impactScore"`
}

// ImpactScore 计算影响力得分
// avgDaily 为日均带任务的 update 数，completionRate 取 [0,1]
func ImpactScore(avgDaily, completionRate float64) int {
	frequency := math.Min(avgDaily/impactDailyCeiling, 1)
	score := 100 * (impactFrequencyWeight*frequency + impactCompletionWeight*completionRate)
	return int(math.Round(score))
}

// Analytics 聚合最近 days 天（含当天）的个人贡献
func (s *Service) Analytics(ownerID string, days int) (*AnalyticsReport, error) {
	start := time.Now()
	defer func() {
		metrics.RecordFeedQueryDuration("analytics", time.Since(start).Seconds())
	}()

	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", updates.ErrInvalidArgument)
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -(days - 1))

	found, err := s.updates.FindRange(updates.RangeFilter{
		OwnerID: ownerID,
		From:    from,
		Limit:   s.maxUpdates,
	})
	if err != nil {
		return nil, err
	}

	report := &AnalyticsReport{
		Days:                days,
		Daily:               make([]DailyPoint, days),
		ProjectDistribution: map[string]int{},
	}
	dayIndex := make(map[string]int, days)
	for i := 0; i < days; i++ {
		label := from.AddDate(0, 0, i).Format(dateLayout)
		report.Daily[i] = DailyPoint{Date: label}
		dayIndex[label] = i
	}

	taskBearing := 0
	for _, u := range found {
		tasks, err := taskcodec.DecodeStrict(u.TasksRaw)
		if err != nil {
			metrics.RecordDecodeFailure()
			s.logger.Warn("skipping update with undecodable task list", "update_id", u.ID, "error", err)
			continue
		}

		report.TotalUpdates++
		if len(tasks) > 0 {
			taskBearing++
		}
		report.ProjectDistribution[s.projectLabel(u)]++

		completed := 0
		for _, task := range tasks {
			report.TotalTasks++
			if task.Completed {
				report.CompletedTasks++
				completed++
			}
		}

		if i, ok := dayIndex[u.CreatedAt.UTC().Format(dateLayout)]; ok {
			report.Daily[i].Updates++
			report.Daily[i].TasksCompleted += completed
		}
	}

	report.AvgDailyContributions = float64(taskBearing) / float64(days)
	if report.TotalTasks > 0 {
		report.CompletionRate = float64(report.CompletedTasks) / float64(report.TotalTasks)
	}
	report.ImpactScore = ImpactScore(report.AvgDailyContributions, report.CompletionRate)
	return report, nil
}
