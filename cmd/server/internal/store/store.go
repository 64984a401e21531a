// Package store 提供核心代码所依赖的窄行存储接口
// 核心只面向 Get/FindMany/Insert/Update/Delete 编程，后端引擎可替换
package store

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrRowNotFound 指定表中不存在该行
	ErrRowNotFound = errors.New("row not found")
	// ErrVersionConflict 条件写入的期望版本与当前版本不一致
	ErrVersionConflict = errors.New("row version conflict")
	// ErrRowExists 插入时主键已存在
	ErrRowExists = errors.New("row already exists")
)

// Row 通用行：载荷为 JSON，版本号用于乐观并发控制
type Row struct {
	ID        string          `json:"id"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
	Data      json.RawMessage `json:"data"`
}

// Store 窄行存储接口
type Store interface {
	// Get 按主键读取一行
	Get(table, id string) (Row, error)

	// FindMany 全表扫描并按谓词过滤，返回匹配行
	FindMany(table string, pred func(Row) bool) ([]Row, error)

	// Insert 插入新行，主键冲突返回 ErrRowExists
	Insert(table, id string, data []byte) (Row, error)

	// Update 条件写入：仅当当前版本等于 expectedVersion 时写入并递增版本，
	// 否则返回 ErrVersionConflict。expectedVersion 传 -1 表示无条件覆盖
	Update(table, id string, expectedVersion int64, data []byte) (Row, error)

	// Delete 按主键删除一行
	Delete(table, id string) error
}
