// Package updates 是唯一允许读写 update 记录上任务字段的组件
// 对外提供按所有权过滤的读取，以及对嵌入式任务列表的原子变更
package updates

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/houzhh15/standup/cmd/server/internal/models"
	"github.com/houzhh15/standup/cmd/server/internal/store"
	"github.com/houzhh15/standup/cmd/server/internal/taskcodec"
	"github.com/houzhh15/standup/pkg/metrics"
)

// Table update 记录所在的存储表名
const Table = "updates"

// maxMutationAttempts 同行写入竞争时的重试上限
const maxMutationAttempts = 5

// MutateFn 应用于任务序列的纯变换，返回新序列
// 返回错误将中止整个变更，不产生部分写入
type MutateFn func(tasks []taskcodec.Task) ([]taskcodec.Task, error)

// Store update 存储适配器
// 同一 update 上的并发变更通过行级互斥 + 版本条件写双重保障：
// 互斥串行化本进程内的读改写，版本检查兜底存储层面的交叉写入
type Store struct {
	rows   store.Store
	logger *slog.Logger

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewStore 创建 update 存储适配器
func NewStore(rows store.Store, logger *slog.Logger) *Store {
	return &Store{
		rows:   rows,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// rowLock 返回指定 update 的行级互斥锁（按需创建）
func (s *Store) rowLock(updateID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if l, ok := s.locks[updateID]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[updateID] = l
	return l
}

// decodeRow 将存储行反序列化为 Update
func decodeRow(row store.Row) (*models.Update, error) {
	var u models.Update
	if err := json.Unmarshal(row.Data, &u); err != nil {
		return nil, fmt.Errorf("decode update row %s: %w", row.ID, err)
	}
	return &u, nil
}

// Create 创建 update 及其初始任务列表
// 每个任务的描述在创建时必须非空；projectID 与 projectName 互斥
func (s *Store) Create(ownerID, projectID, projectName string, tasks []taskcodec.Task, source string) (*models.Update, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner required", ErrInvalidArgument)
	}
	if projectID != "" && projectName != "" {
		return nil, fmt.Errorf("%w: project reference and free-text name are mutually exclusive", ErrInvalidArgument)
	}
	for i, task := range tasks {
		if strings.TrimSpace(task.Description) == "" {
			return nil, fmt.Errorf("%w: task %d description is empty", ErrInvalidArgument, i)
		}
		if task.Priority != "" && !taskcodec.ValidPriority(task.Priority) {
			return nil, fmt.Errorf("%w: task %d priority %q", ErrInvalidArgument, i, task.Priority)
		}
	}
	if source == "" {
		source = models.SourceManual
	}

	raw, err := taskcodec.Encode(tasks)
	if err != nil {
		return nil, err
	}

	u := &models.Update{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		ProjectID:   projectID,
		ProjectName: projectName,
		TasksRaw:    raw,
		Source:      source,
		CreatedAt:   time.Now().UTC(),
	}

	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("marshal update: %w", err)
	}
	if _, err := s.rows.Insert(Table, u.ID, data); err != nil {
		return nil, fmt.Errorf("insert update: %w", err)
	}
	return u, nil
}

// LoadForOwner 按所有权读取 update
// 记录不存在与属于他人统一返回 ErrNotFound
func (s *Store) LoadForOwner(updateID, ownerID string) (*models.Update, error) {
	row, err := s.rows.Get(Table, updateID)
	if err != nil {
		if errors.Is(err, store.ErrRowNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u, err := decodeRow(row)
	if err != nil {
		return nil, err
	}
	if u.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return u, nil
}

// Delete 删除调用者自己的 update
func (s *Store) Delete(updateID, ownerID string) error {
	if _, err := s.LoadForOwner(updateID, ownerID); err != nil {
		return err
	}
	if err := s.rows.Delete(Table, updateID); err != nil {
		if errors.Is(err, store.ErrRowNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// RangeFilter 按时间窗口筛选 update 的条件
// OwnerID 为空表示跨所有者（报表路径）
type RangeFilter struct {
	OwnerID string
	From    time.Time
	To      time.Time
	Limit   int
}

// FindRange 返回窗口内的 update，按创建时间降序，截断到 Limit
func (s *Store) FindRange(f RangeFilter) ([]*models.Update, error) {
	rows, err := s.rows.FindMany(Table, nil)
	if err != nil {
		return nil, err
	}

	var result []*models.Update
	for _, row := range rows {
		u, err := decodeRow(row)
		if err != nil {
			// 行本身损坏：跳过并记录，聚合路径按记录降级
			s.logger.Warn("skipping corrupt update row", "update_id", row.ID, "error", err)
			continue
		}
		if f.OwnerID != "" && u.OwnerID != f.OwnerID {
			continue
		}
		if !f.From.IsZero() && u.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && u.CreatedAt.After(f.To) {
			continue
		}
		result = append(result, u)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

// MutateTasks 对单个 update 的任务列表执行原子读改写
// 加载、严格解码、应用 fn、编码、条件写入；版本冲突时重读重试。
// 解码失败不降级为空列表：在定向变更里静默清空会毁掉存量数据，
// 统一包装为 ErrMutationFailed 上抛
func (s *Store) MutateTasks(updateID, ownerID string, fn MutateFn) (*models.Update, error) {
	lock := s.rowLock(updateID)
	lock.Lock()
	defer lock.Unlock()

	for attempt := 0; attempt < maxMutationAttempts; attempt++ {
		row, err := s.rows.Get(Table, updateID)
		if err != nil {
			if errors.Is(err, store.ErrRowNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		u, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		if u.OwnerID != ownerID {
			return nil, ErrNotFound
		}

		tasks, err := taskcodec.DecodeStrict(u.TasksRaw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMutationFailed, err)
		}

		mutated, err := fn(tasks)
		if err != nil {
			return nil, err
		}

		raw, err := taskcodec.Encode(mutated)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMutationFailed, err)
		}
		u.TasksRaw = raw

		data, err := json.Marshal(u)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMutationFailed, err)
		}

		if _, err := s.rows.Update(Table, updateID, row.Version, data); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				metrics.RecordMutationRetry()
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrMutationFailed, err)
		}
		return u, nil
	}

	return nil, fmt.Errorf("%w: write contention on update %s", ErrMutationFailed, updateID)
}
