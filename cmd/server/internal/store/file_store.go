package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore 基于文件的行存储实现
// 每张表一个 JSON 文件（{table}.json），全量读写，写入走临时文件 + 原子改名
// 表内容常驻内存，文件只作持久化镜像
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
	tables  map[string]map[string]Row
}

// NewFileStore 创建文件行存储，启动时加载已有表文件
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s := &FileStore{
		baseDir: baseDir,
		tables:  make(map[string]map[string]Row),
	}
	if err := s.loadAll(); err != nil {
		return nil, err
	}
	return s, nil
}

// loadAll 扫描目录并加载全部表文件
func (s *FileStore) loadAll() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("read store directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		table := entry.Name()[:len(entry.Name())-len(".json")]
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read table file %s: %w", entry.Name(), err)
		}
		rows := make(map[string]Row)
		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("parse table file %s: %w", entry.Name(), err)
		}
		s.tables[table] = rows
	}
	return nil
}

// saveTable 将单张表写回文件（调用方必须已持有写锁）
func (s *FileStore) saveTable(table string) error {
	rows, ok := s.tables[table]
	if !ok {
		rows = map[string]Row{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal table %s: %w", table, err)
	}

	path := filepath.Join(s.baseDir, table+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write table file %s: %w", table, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename table file %s: %w", table, err)
	}
	return nil
}

// Get 按主键读取一行
func (s *FileStore) Get(table, id string) (Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.tables[table][id]
	if !ok {
		return Row{}, ErrRowNotFound
	}
	return row, nil
}

// FindMany 全表扫描并按谓词过滤
func (s *FileStore) FindMany(table string, pred func(Row) bool) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Row
	for _, row := range s.tables[table] {
		if pred == nil || pred(row) {
			result = append(result, row)
		}
	}
	return result, nil
}

// Insert 插入新行
func (s *FileStore) Insert(table, id string, data []byte) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tables[table][id]; exists {
		return Row{}, ErrRowExists
	}
	if s.tables[table] == nil {
		s.tables[table] = make(map[string]Row)
	}

	row := Row{ID: id, Version: 1, UpdatedAt: time.Now(), Data: append([]byte(nil), data...)}
	s.tables[table][id] = row
	if err := s.saveTable(table); err != nil {
		delete(s.tables[table], id)
		return Row{}, err
	}
	return row, nil
}

// Update 条件写入，版本不匹配返回 ErrVersionConflict
func (s *FileStore) Update(table, id string, expectedVersion int64, data []byte) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tables[table][id]
	if !ok {
		return Row{}, ErrRowNotFound
	}
	if expectedVersion >= 0 && current.Version != expectedVersion {
		return Row{}, ErrVersionConflict
	}

	row := Row{ID: id, Version: current.Version + 1, UpdatedAt: time.Now(), Data: append([]byte(nil), data...)}
	s.tables[table][id] = row
	if err := s.saveTable(table); err != nil {
		s.tables[table][id] = current
		return Row{}, err
	}
	return row, nil
}

// Delete 按主键删除一行
func (s *FileStore) Delete(table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tables[table][id]
	if !ok {
		return ErrRowNotFound
	}
	delete(s.tables[table], id)
	if err := s.saveTable(table); err != nil {
		s.tables[table][id] = current
		return err
	}
	return nil
}
