package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/standup/cmd/server/internal/feed"
	"github.com/houzhh15/standup/cmd/server/internal/reports"
)

// HandleAnalytics GET /api/v1/analytics?days=30
func HandleAnalytics(projection *feed.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		days := 30
		if raw := c.Query("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 365 {
				badRequestResponse(c, "days must be an integer between 1 and 365")
				return
			}
			days = parsed
		}

		report, err := projection.Analytics(currentUser(c), days)
		if err != nil {
			domainErrorResponse(c, err)
			return
		}
		successResponse(c, report)
	}
}

// HandleDailyReport GET /api/v1/reports/daily?date=YYYY-MM-DD
// 默认当天；跨所有者聚合，供团队日报与排行榜使用
func HandleDailyReport(projection *feed.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		day := time.Now().UTC()
		if raw := c.Query("date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				badRequestResponse(c, "date must be YYYY-MM-DD")
				return
			}
			day = parsed
		}

		report, err := projection.BuildDailyReport(day)
		if err != nil {
			domainErrorResponse(c, err)
			return
		}
		successResponse(c, report)
	}
}

// HandleListSchedules GET /api/v1/reports/schedule
func HandleListSchedules(scheduler *reports.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := scheduler.List(currentUser(c))
		if err != nil {
			domainErrorResponse(c, err)
			return
		}
		successResponse(c, list)
	}
}

// HandleCreateSchedule POST /api/v1/reports/schedule
func HandleCreateSchedule(scheduler *reports.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ImpactLevel       int      `json:"impactLevel"`
			PriorityThreshold string   `json:"priorityThreshold"`
			Recipients        []string `json:"recipients"`
			ScheduleDays      []string `json:"scheduleDays"`
			ScheduleTime      string   `json:"scheduleTime"`
			EndType           string   `json:"endType"`
			EndDate           *string  `json:"endDate"`
			EndCount          *int     `json:"endCount"`
			SendCopyToSelf    bool     `json:"sendCopyToSelf"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestResponse(c, "invalid request body")
			return
		}

		sched, err := scheduler.Create(currentUser(c), reports.CreateInput{
			ImpactLevel:       req.ImpactLevel,
			PriorityThreshold: req.PriorityThreshold,
			Recipients:        req.Recipients,
			ScheduleDays:      req.ScheduleDays,
			ScheduleTime:      req.ScheduleTime,
			EndType:           req.EndType,
			EndDate:           req.EndDate,
			EndCount:          req.EndCount,
			SendCopyToSelf:    req.SendCopyToSelf,
		})
		if err != nil {
			domainErrorResponse(c, err)
			return
		}
		successResponse(c, sched)
	}
}

// HandleDeleteSchedule DELETE /api/v1/reports/schedule/:id
func HandleDeleteSchedule(scheduler *reports.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := scheduler.Delete(c.Param("id"), currentUser(c)); err != nil {
			domainErrorResponse(c, err)
			return
		}
		successResponse(c, gin.H{"deleted": true})
	}
}
