package feed

import (
	"math"
	"sort"
	"time"

	"github.com/houzhh15/standup/cmd/server/internal/taskcodec"
	"github.com/houzhh15/standup/cmd/server/internal/updates"
	"github.com/houzhh15/standup/pkg/metrics"
)

// MemberStats 日报中单个成员的当日战况
type MemberStats struct {
	Owner          OwnerInfo       `json:"user"`
	Updates        int             `json:"updates"`
	TotalTasks     int             `json:"totalTasks"`
	CompletedTasks int             `json:"completedTasks"`
	CompletionRate int             `json:"completionRate"`
	Tasks          []ProjectedTask `json:"tasks"`
}

// DailyReport 跨所有者的当日团队汇总
// 成员按完成任务数降序排列，作为排行榜数据源
type DailyReport struct {
	Date           string        `json:"date"`
	Members        []MemberStats `json:"members"`
	TotalUpdates   int           `json:"totalUpdates"`
	TotalTasks     int           `json:"totalTasks"`
	CompletedTasks int           `json:"completedTasks"`
}

// BuildDailyReport 汇总指定日期全团队的 update 与任务
func (s *Service) BuildDailyReport(day time.Time) (*DailyReport, error) {
	start := time.Now()
	defer func() {
		metrics.RecordFeedQueryDuration("daily_report", time.Since(start).Seconds())
	}()

	day = day.UTC()
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Nanosecond)

	found, err := s.updates.FindRange(updates.RangeFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	report := &DailyReport{Date: from.Format(dateLayout)}
	byOwner := map[string]*MemberStats{}

	for _, u := range found {
		tasks, err := taskcodec.DecodeStrict(u.TasksRaw)
		if err != nil {
			metrics.RecordDecodeFailure()
			s.logger.Warn("skipping update with undecodable task list", "update_id", u.ID, "error", err)
			continue
		}

		member, ok := byOwner[u.OwnerID]
		if !ok {
			member = &MemberStats{Owner: s.ownerInfo(u.OwnerID)}
			byOwner[u.OwnerID] = member
		}
		member.Updates++
		report.TotalUpdates++

		label := s.projectLabel(u)
		for ordinal, task := range tasks {
			member.TotalTasks++
			report.TotalTasks++
			if task.Completed {
				member.CompletedTasks++
				report.CompletedTasks++
			}
			member.Tasks = append(member.Tasks, ProjectedTask{
				ID:            taskcodec.TaskID(u.ID, ordinal),
				Title:         task.Description,
				Completed:     task.Completed,
				Priority:      task.EffectivePriority(),
				DueDate:       task.DueDate,
				EstimatedTime: task.EffectiveEstimatedTime(),
				ProjectLabel:  label,
				Date:          u.CreatedAt,
				Owner:         member.Owner,
			})
		}
	}

	for _, member := range byOwner {
		if member.TotalTasks > 0 {
			member.CompletionRate = int(math.Round(100 * float64(member.CompletedTasks) / float64(member.TotalTasks)))
		}
		report.Members = append(report.Members, *member)
	}
	sort.Slice(report.Members, func(i, j int) bool {
		if report.Members[i].CompletedTasks != report.Members[j].CompletedTasks {
			return report.Members[i].CompletedTasks > report.Members[j].CompletedTasks
		}
		return report.Members[i].Owner.Name < report.Members[j].Owner.Name
	})
	return report, nil
}
