// Package taskcodec 负责 update 记录上嵌入式任务列表的编解码
// 任务不单独建表，整个列表序列化为父记录的一个文本字段，
// 任务身份由 "父ID-序号" 复合标识符表达
package taskcodec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// 任务优先级取值
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// DefaultEstimatedMinutes 任务未指定预估耗时的默认值（分钟）
const DefaultEstimatedMinutes = 30

// ErrMalformedIdentifier 复合任务标识符无法解析
var ErrMalformedIdentifier = errors.New("malformed task identifier")

// Task 嵌入式任务对象，字段形态与持久化 JSON 保持一致
// Description 创建时要求非空；历史数据可能存在空描述，读路径必须容忍
type Task struct {
	Description   string  `json:"description"`
	Completed     bool    `json:"completed"`
	Priority      string  `json:"priority,omitempty"`
	DueDate       *string `json:"dueDate,omitempty"`
	EstimatedTime int     `json:"estimatedTime,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

// EffectivePriority 返回归一化的优先级，空值按 medium 处理
func (t Task) EffectivePriority() string {
	switch t.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return t.Priority
	default:
		return PriorityMedium
	}
}

// EffectiveEstimatedTime 返回预估耗时，未设置时按默认值处理
func (t Task) EffectiveEstimatedTime() int {
	if t.EstimatedTime > 0 {
		return t.EstimatedTime
	}
	return DefaultEstimatedMinutes
}

// ValidPriority 判断优先级是否为合法枚举值
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Decode 宽容解码：任何解析失败或非数组结果都返回空列表
// 仪表盘、报表、分析等只读路径依赖这一行为按记录降级，调用方自行记录失败
func Decode(raw string) []Task {
	tasks, err := DecodeStrict(raw)
	if err != nil {
		return []Task{}
	}
	return tasks
}

// DecodeStrict 严格解码：解析失败返回错误
// 单条记录的定向变更走此路径，腐坏数据不能被静默当作空列表覆盖写回
func DecodeStrict(raw string) ([]Task, error) {
	if strings.TrimSpace(raw) == "" {
		return []Task{}, nil
	}
	var tasks []Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		return nil, fmt.Errorf("decode task list: %w", err)
	}
	if tasks == nil {
		return []Task{}, nil
	}
	return tasks, nil
}

// Encode 序列化任务列表，与 Decode 构成往返
func Encode(tasks []Task) (string, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return "", fmt.Errorf("encode task list: %w", err)
	}
	return string(data), nil
}

// TaskID 铸造规范复合标识符: updateID + "-" + 序号
// 序号是铸造时刻任务在列表中的零起始位置。删除会使更高序号的旧标识符失效，
// 调用方在删除后必须重新拉取列表，不能复用过期标识符
func TaskID(updateID string, ordinal int) string {
	return fmt.Sprintf("%s-%d", updateID, ordinal)
}

// ParseTaskID 解析复合标识符为 (updateID, 序号)
// updateID 本身可能含连字符（如 uuid），因此从最后一个分隔符切分；
// updateID 为空或序号不是非负整数时返回 ErrMalformedIdentifier
func ParseTaskID(id string) (string, int, error) {
	sep := strings.LastIndex(id, "-")
	if sep <= 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedIdentifier, id)
	}
	updateID := id[:sep]
	ordinalPart := id[sep+1:]
	if ordinalPart == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedIdentifier, id)
	}
	for _, r := range ordinalPart {
		if r < '0' || r > '9' {
			return "", 0, fmt.Errorf("%w: %q", ErrMalformedIdentifier, id)
		}
	}
	ordinal, err := strconv.Atoi(ordinalPart)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedIdentifier, id)
	}
	return updateID, ordinal, nil
}
