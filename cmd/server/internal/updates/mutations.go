package updates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/houzhh15/standup/cmd/server/internal/audit"
	"github.com/houzhh15/standup/cmd/server/internal/models"
	"github.com/houzhh15/standup/cmd/server/internal/taskcodec"
	"github.com/houzhh15/standup/pkg/metrics"
)

// dueDateLayout 截止日期的存储格式
const dueDateLayout = "2006-01-02"

// Mutator 单任务操作的应用层，叠加在 Store.MutateTasks 之上
// 每个操作解析复合标识符、按所有权定位 update，再对目标序号施加变更
type Mutator struct {
	store *Store
	audit audit.AuditLogger
}

// NewMutator 创建任务变更器，auditLogger 可为 nil（不记审计）
func NewMutator(store *Store, auditLogger audit.AuditLogger) *Mutator {
	return &Mutator{store: store, audit: auditLogger}
}

// recordOutcome 统一上报变更结果指标
func recordOutcome(op string, err error) {
	switch {
	case err == nil:
		metrics.RecordTaskMutation(op, "success")
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrTaskNotFound):
		metrics.RecordTaskMutation(op, "not_found")
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, taskcodec.ErrMalformedIdentifier):
		metrics.RecordTaskMutation(op, "invalid")
	default:
		metrics.RecordTaskMutation(op, "failed")
	}
}

// logAudit 记录审计日志，失败只影响审计不影响主流程
func (m *Mutator) logAudit(operator string, action audit.AuditAction, resourceID, details string) {
	if m.audit == nil {
		return
	}
	_ = m.audit.LogActionSimple(operator, action, resourceID, details)
}

// atOrdinal 构造作用于指定序号的变换；序号越界返回 ErrTaskNotFound
func atOrdinal(ordinal int, apply func(*taskcodec.Task)) MutateFn {
	return func(tasks []taskcodec.Task) ([]taskcodec.Task, error) {
		if ordinal < 0 || ordinal >= len(tasks) {
			return nil, fmt.Errorf("%w: ordinal %d out of range", ErrTaskNotFound, ordinal)
		}
		apply(&tasks[ordinal])
		return tasks, nil
	}
}

// SetCompleted 设置任务完成状态
func (m *Mutator) SetCompleted(ownerID, taskID string, completed bool) (*models.Update, error) {
	updateID, ordinal, err := taskcodec.ParseTaskID(taskID)
	if err != nil {
		recordOutcome("set_completed", err)
		return nil, err
	}

	u, err := m.store.MutateTasks(updateID, ownerID, atOrdinal(ordinal, func(t *taskcodec.Task) {
		t.Completed = completed
	}))
	recordOutcome("set_completed", err)
	if err != nil {
		return nil, err
	}
	m.logAudit(ownerID, audit.ActionToggleTask, taskID, fmt.Sprintf("completed=%t", completed))
	return u, nil
}

// SetPriority 设置任务优先级，取值限定 low/medium/high
func (m *Mutator) SetPriority(ownerID, taskID, priority string) (*models.Update, error) {
	if !taskcodec.ValidPriority(priority) {
		err := fmt.Errorf("%w: priority %q (must be low, medium or high)", ErrInvalidArgument, priority)
		recordOutcome("set_priority", err)
		return nil, err
	}
	updateID, ordinal, err := taskcodec.ParseTaskID(taskID)
	if err != nil {
		recordOutcome("set_priority", err)
		return nil, err
	}

	u, err := m.store.MutateTasks(updateID, ownerID, atOrdinal(ordinal, func(t *taskcodec.Task) {
		t.Priority = priority
	}))
	recordOutcome("set_priority", err)
	if err != nil {
		return nil, err
	}
	m.logAudit(ownerID, audit.ActionSetPriority, taskID, "priority="+priority)
	return u, nil
}

// SetDueDate 设置或清除任务截止日期，nil 表示清除
func (m *Mutator) SetDueDate(ownerID, taskID string, dueDate *string) (*models.Update, error) {
	if dueDate != nil {
		if _, err := time.Parse(dueDateLayout, *dueDate); err != nil {
			err = fmt.Errorf("%w: due date %q (expected YYYY-MM-DD)", ErrInvalidArgument, *dueDate)
			recordOutcome("set_due_date", err)
			return nil, err
		}
	}
	updateID, ordinal, err := taskcodec.ParseTaskID(taskID)
	if err != nil {
		recordOutcome("set_due_date", err)
		return nil, err
	}

	u, err := m.store.MutateTasks(updateID, ownerID, atOrdinal(ordinal, func(t *taskcodec.Task) {
		t.DueDate = dueDate
	}))
	recordOutcome("set_due_date", err)
	if err != nil {
		return nil, err
	}
	detail := "cleared"
	if dueDate != nil {
		detail = "due=" + *dueDate
	}
	m.logAudit(ownerID, audit.ActionSetDueDate, taskID, detail)
	return u, nil
}

// EditDescription 编辑任务描述，trim 后必须非空；不改变任务身份
func (m *Mutator) EditDescription(ownerID, taskID, description string) (*models.Update, error) {
	if strings.TrimSpace(description) == "" {
		err := fmt.Errorf("%w: description cannot be empty", ErrInvalidArgument)
		recordOutcome("edit_description", err)
		return nil, err
	}
	updateID, ordinal, err := taskcodec.ParseTaskID(taskID)
	if err != nil {
		recordOutcome("edit_description", err)
		return nil, err
	}

	u, err := m.store.MutateTasks(updateID, ownerID, atOrdinal(ordinal, func(t *taskcodec.Task) {
		t.Description = description
	}))
	recordOutcome("edit_description", err)
	if err != nil {
		return nil, err
	}
	m.logAudit(ownerID, audit.ActionEditTask, taskID, "")
	return u, nil
}

// DeleteTask 删除目标任务，更高序号整体前移一位
// 前移意味着这些任务的旧标识符随之失效：删除后调用方必须重新拉取列表，
// 这里直接返回剩余任务，方便调用方立即重建键
func (m *Mutator) DeleteTask(ownerID, taskID string) ([]taskcodec.Task, error) {
	updateID, ordinal, err := taskcodec.ParseTaskID(taskID)
	if err != nil {
		recordOutcome("delete_task", err)
		return nil, err
	}

	var remaining []taskcodec.Task
	_, err = m.store.MutateTasks(updateID, ownerID, func(tasks []taskcodec.Task) ([]taskcodec.Task, error) {
		if ordinal < 0 || ordinal >= len(tasks) {
			return nil, fmt.Errorf("%w: ordinal %d out of range", ErrTaskNotFound, ordinal)
		}
		remaining = append(tasks[:ordinal], tasks[ordinal+1:]...)
		return remaining, nil
	})
	recordOutcome("delete_task", err)
	if err != nil {
		return nil, err
	}
	m.logAudit(ownerID, audit.ActionDeleteTask, taskID, "")
	return remaining, nil
}
