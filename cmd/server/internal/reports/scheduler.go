// Package reports 管理定时摘要的调度配置与摘要数据组装
// 邮件投递由外部协作方完成，这里只负责算准下次发送时间和准备内容
package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/houzhh15/standup/cmd/server/internal/audit"
	"github.com/houzhh15/standup/cmd/server/internal/models"
	"github.com/houzhh15/standup/cmd/server/internal/store"
	"github.com/houzhh15/standup/cmd/server/internal/taskcodec"
)

// Table 调度配置所在的存储表名
const Table = "report_schedules"

var (
	// ErrScheduleNotFound 调度配置不存在或不属于调用者
	ErrScheduleNotFound = errors.New("report schedule not found")
	// ErrInvalidSchedule 调度配置校验失败
	ErrInvalidSchedule = errors.New("invalid report schedule")
)

// weekdayNames 配置中允许的周几取值
var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Scheduler 调度配置的持久化与时间计算
type Scheduler struct {
	rows   store.Store
	audit  audit.AuditLogger
	logger *slog.Logger
}

// NewScheduler 创建调度器，auditLogger 可为 nil
func NewScheduler(rows store.Store, auditLogger audit.AuditLogger, logger *slog.Logger) *Scheduler {
	return &Scheduler{rows: rows, audit: auditLogger, logger: logger}
}

// CreateInput 新建调度配置的入参
type CreateInput struct {
	ImpactLevel       int
	PriorityThreshold string
	Recipients        []string
	ScheduleDays      []string
	ScheduleTime      string
	EndType           string
	EndDate           *string
	EndCount          *int
	SendCopyToSelf    bool
}

// validate 校验入参并归一化周几取值
func (in *CreateInput) validate() error {
	if in.ImpactLevel < 1 || in.ImpactLevel > 100 {
		return fmt.Errorf("%w: impact level must be 1-100", ErrInvalidSchedule)
	}
	switch in.PriorityThreshold {
	case "all", taskcodec.PriorityLow, taskcodec.PriorityMedium, taskcodec.PriorityHigh:
	default:
		return fmt.Errorf("%w: priority threshold %q", ErrInvalidSchedule, in.PriorityThreshold)
	}
	if len(in.Recipients) == 0 {
		return fmt.Errorf("%w: at least one recipient required", ErrInvalidSchedule)
	}
	for _, r := range in.Recipients {
		if !strings.Contains(r, "@") {
			return fmt.Errorf("%w: recipient %q is not an email address", ErrInvalidSchedule, r)
		}
	}
	if len(in.ScheduleDays) == 0 {
		return fmt.Errorf("%w: at least one schedule day required", ErrInvalidSchedule)
	}
	for i, day := range in.ScheduleDays {
		normalized := strings.ToLower(strings.TrimSpace(day))
		if _, ok := weekdayNames[normalized]; !ok {
			return fmt.Errorf("%w: unknown weekday %q", ErrInvalidSchedule, day)
		}
		in.ScheduleDays[i] = normalized
	}
	if _, err := time.Parse("15:04", in.ScheduleTime); err != nil {
		return fmt.Errorf("%w: schedule time %q (expected HH:MM)", ErrInvalidSchedule, in.ScheduleTime)
	}
	switch in.EndType {
	case models.EndTypeNever:
	case models.EndTypeOnDate:
		if in.EndDate == nil {
			return fmt.Errorf("%w: end date required for on-date", ErrInvalidSchedule)
		}
		if _, err := time.Parse("2006-01-02", *in.EndDate); err != nil {
			return fmt.Errorf("%w: end date %q (expected YYYY-MM-DD)", ErrInvalidSchedule, *in.EndDate)
		}
	case models.EndTypeAfter:
		if in.EndCount == nil || *in.EndCount < 1 {
			return fmt.Errorf("%w: positive end count required for after", ErrInvalidSchedule)
		}
	default:
		return fmt.Errorf("%w: end type %q", ErrInvalidSchedule, in.EndType)
	}
	return nil
}

// NextOccurrence 计算 after 之后最近一次命中 days/hhmm 的时刻
// days 已归一化；当天时刻未过也算命中
func NextOccurrence(after time.Time, days []string, hhmm string) time.Time {
	clock, _ := time.Parse("15:04", hhmm)
	wanted := map[time.Weekday]bool{}
	for _, day := range days {
		wanted[weekdayNames[day]] = true
	}
	for offset := 0; offset < 8; offset++ {
		day := after.AddDate(0, 0, offset)
		if !wanted[day.Weekday()] {
			continue
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, after.Location())
		if at.After(after) {
			return at
		}
	}
	// days 非空时前 8 天内必有命中
	return time.Time{}
}

// Create 新建调度配置并计算首次发送时间
func (s *Scheduler) Create(ownerID string, in CreateInput) (*models.ReportSchedule, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	next := NextOccurrence(time.Now().UTC(), in.ScheduleDays, in.ScheduleTime)
	sched := &models.ReportSchedule{
		ID:                uuid.NewString(),
		OwnerID:           ownerID,
		ImpactLevel:       in.ImpactLevel,
		PriorityThreshold: in.PriorityThreshold,
		Recipients:        in.Recipients,
		ScheduleDays:      in.ScheduleDays,
		ScheduleTime:      in.ScheduleTime,
		EndType:           in.EndType,
		EndDate:           in.EndDate,
		EndCount:          in.EndCount,
		SendCopyToSelf:    in.SendCopyToSelf,
		Active:            true,
		NextSendAt:        &next,
		CreatedAt:         time.Now().UTC(),
	}

	data, err := json.Marshal(sched)
	if err != nil {
		return nil, fmt.Errorf("marshal schedule: %w", err)
	}
	if _, err := s.rows.Insert(Table, sched.ID, data); err != nil {
		return nil, fmt.Errorf("insert schedule: %w", err)
	}
	if s.audit != nil {
		_ = s.audit.LogActionSimple(ownerID, audit.ActionCreateSchedule, sched.ID, "")
	}
	return sched, nil
}

// load 读取并校验所有权；不存在与属于他人表现一致
func (s *Scheduler) load(scheduleID, ownerID string) (*models.ReportSchedule, int64, error) {
	row, err := s.rows.Get(Table, scheduleID)
	if err != nil {
		if errors.Is(err, store.ErrRowNotFound) {
			return nil, 0, ErrScheduleNotFound
		}
		return nil, 0, err
	}
	var sched models.ReportSchedule
	if err := json.Unmarshal(row.Data, &sched); err != nil {
		return nil, 0, fmt.Errorf("decode schedule row %s: %w", scheduleID, err)
	}
	if ownerID != "" && sched.OwnerID != ownerID {
		return nil, 0, ErrScheduleNotFound
	}
	return &sched, row.Version, nil
}

// Get 按所有权读取调度配置
func (s *Scheduler) Get(scheduleID, ownerID string) (*models.ReportSchedule, error) {
	sched, _, err := s.load(scheduleID, ownerID)
	return sched, err
}

// List 列出调用者的调度配置，按创建时间升序
func (s *Scheduler) List(ownerID string) ([]*models.ReportSchedule, error) {
	rows, err := s.rows.FindMany(Table, nil)
	if err != nil {
		return nil, err
	}
	var result []*models.ReportSchedule
	for _, row := range rows {
		var sched models.ReportSchedule
		if err := json.Unmarshal(row.Data, &sched); err != nil {
			s.logger.Warn("skipping corrupt schedule row", "schedule_id", row.ID, "error", err)
			continue
		}
		if sched.OwnerID != ownerID {
			continue
		}
		result = append(result, &sched)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// Delete 删除调用者自己的调度配置
func (s *Scheduler) Delete(scheduleID, ownerID string) error {
	if _, _, err := s.load(scheduleID, ownerID); err != nil {
		return err
	}
	if err := s.rows.Delete(Table, scheduleID); err != nil {
		if errors.Is(err, store.ErrRowNotFound) {
			return ErrScheduleNotFound
		}
		return err
	}
	if s.audit != nil {
		_ = s.audit.LogActionSimple(ownerID, audit.ActionDeleteSchedule, scheduleID, "")
	}
	return nil
}

// Due 返回 now 时刻已到期的活跃调度
func (s *Scheduler) Due(now time.Time) ([]*models.ReportSchedule, error) {
	rows, err := s.rows.FindMany(Table, nil)
	if err != nil {
		return nil, err
	}
	var due []*models.ReportSchedule
	for _, row := range rows {
		var sched models.ReportSchedule
		if err := json.Unmarshal(row.Data, &sched); err != nil {
			s.logger.Warn("skipping corrupt schedule row", "schedule_id", row.ID, "error", err)
			continue
		}
		if !sched.Active || sched.NextSendAt == nil || sched.NextSendAt.After(now) {
			continue
		}
		due = append(due, &sched)
	}
	return due, nil
}

// MarkSent 记录一次发送并推进下次发送时间
// 命中结束策略（次数用尽或越过截止日期）时停用调度
func (s *Scheduler) MarkSent(scheduleID string, now time.Time) error {
	sched, version, err := s.load(scheduleID, "")
	if err != nil {
		return err
	}

	sent := now.UTC()
	sched.LastSentAt = &sent
	sched.SentCount++

	next := NextOccurrence(sent, sched.ScheduleDays, sched.ScheduleTime)
	sched.NextSendAt = &next

	switch sched.EndType {
	case models.EndTypeAfter:
		if sched.EndCount != nil && sched.SentCount >= *sched.EndCount {
			sched.Active = false
			sched.NextSendAt = nil
		}
	case models.EndTypeOnDate:
		if sched.EndDate != nil {
			endDay, err := time.Parse("2006-01-02", *sched.EndDate)
			if err == nil && next.After(endDay.Add(24*time.Hour-time.Nanosecond)) {
				sched.Active = false
				sched.NextSendAt = nil
			}
		}
	}

	data, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}
	if _, err := s.rows.Update(Table, scheduleID, version, data); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}
