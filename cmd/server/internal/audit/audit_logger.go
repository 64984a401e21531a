package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditAction 审计日志操作类型
type AuditAction string

const (
	ActionCreateUpdate   AuditAction = "create_update"
	ActionDeleteUpdate   AuditAction = "delete_update"
	ActionToggleTask     AuditAction = "toggle_task"
	ActionEditTask       AuditAction = "edit_task"
	ActionSetPriority    AuditAction = "set_priority"
	ActionSetDueDate     AuditAction = "set_due_date"
	ActionDeleteTask     AuditAction = "delete_task"
	ActionCreateSchedule AuditAction = "create_schedule"
	ActionDeleteSchedule AuditAction = "delete_schedule"
)

// AuditEntry 审计日志条目
type AuditEntry struct {
	Timestamp  time.Time   `json:"timestamp"`
	Operator   string      `json:"operator"`          // 操作者用户名
	Action     AuditAction `json:"action"`            // 操作类型
	ResourceID string      `json:"resource_id"`       // 资源标识 (update_id, task_id等)
	Before     interface{} `json:"before,omitempty"`  // 操作前状态
	After      interface{} `json:"after,omitempty"`   // 操作后状态
	Details    string      `json:"details,omitempty"` // 额外详情
}

// AuditLogger 审计日志记录器接口
type AuditLogger interface {
	// LogAction 记录审计日志
	LogAction(operator string, action AuditAction, resourceID string, before, after interface{}, details string) error

	// LogActionSimple 记录简单审计日志 (不包含before/after)
	LogActionSimple(operator string, action AuditAction, resourceID string, details string) error
}

// FileAuditLogger 基于文件的审计日志实现
type FileAuditLogger struct {
	baseDir string // 审计日志根目录 (例如: audit_logs/)
	mu      sync.Mutex
}

// NewFileAuditLogger 创建文件审计日志记录器
func NewFileAuditLogger(baseDir string) (*FileAuditLogger, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit logs directory: %w", err)
	}
	return &FileAuditLogger{
		baseDir: baseDir,
	}, nil
}

// LogAction 记录审计日志到 JSONL 文件 (按日期分组)
func (f *FileAuditLogger) LogAction(operator string, action AuditAction, resourceID string, before, after interface{}, details string) error {
	entry := AuditEntry{
		Timestamp:  time.Now(),
		Operator:   operator,
		Action:     action,
		ResourceID: resourceID,
		Before:     before,
		After:      after,
		Details:    details,
	}

	return f.writeEntry(entry)
}

// LogActionSimple 记录简单审计日志
func (f *FileAuditLogger) LogActionSimple(operator string, action AuditAction, resourceID string, details string) error {
	return f.LogAction(operator, action, resourceID, nil, nil, details)
}

// writeEntry 将审计条目写入文件 (按 {year}/{month}/{day}.jsonl 分组)
func (f *FileAuditLogger) writeEntry(entry AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	year := entry.Timestamp.Format("2006")
	month := entry.Timestamp.Format("01")
	day := entry.Timestamp.Format("02")

	dirPath := filepath.Join(f.baseDir, year, month)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	filePath := filepath.Join(dirPath, fmt.Sprintf("%s.jsonl", day))

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	// 追加写入文件 (JSONL格式,每行一条记录)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	return nil
}
