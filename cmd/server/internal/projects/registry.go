// Package projects 维护项目实体，供 update 的项目引用解析使用
package projects

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/houzhh15/standup/cmd/server/internal/models"
	"github.com/houzhh15/standup/cmd/server/internal/store"
)

// Table 项目实体所在的存储表名
const Table = "projects"

// ErrProjectNotFound 项目不存在
var ErrProjectNotFound = errors.New("project not found")

// Registry 项目注册表
type Registry struct {
	rows store.Store
}

// NewRegistry 创建项目注册表
func NewRegistry(rows store.Store) *Registry {
	return &Registry{rows: rows}
}

// Create 创建项目，名称 trim 后必须非空
func (r *Registry) Create(ownerID, name string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("project name required")
	}

	p := &models.Project{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal project: %w", err)
	}
	if _, err := r.rows.Insert(Table, p.ID, data); err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

// Get 按 ID 读取项目
func (r *Registry) Get(projectID string) (*models.Project, error) {
	row, err := r.rows.Get(Table, projectID)
	if err != nil {
		if errors.Is(err, store.ErrRowNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	var p models.Project
	if err := json.Unmarshal(row.Data, &p); err != nil {
		return nil, fmt.Errorf("decode project row %s: %w", projectID, err)
	}
	return &p, nil
}

// List 列出指定所有者的项目，按名称排序
func (r *Registry) List(ownerID string) ([]*models.Project, error) {
	rows, err := r.rows.FindMany(Table, nil)
	if err != nil {
		return nil, err
	}
	var result []*models.Project
	for _, row := range rows {
		var p models.Project
		if err := json.Unmarshal(row.Data, &p); err != nil {
			continue
		}
		if ownerID != "" && p.OwnerID != ownerID {
			continue
		}
		result = append(result, &p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// FindByName 按名称查找所有者的项目（大小写不敏感），未命中返回 nil
// update 创建时用它决定存项目引用还是自由文本名称
func (r *Registry) FindByName(ownerID, name string) (*models.Project, error) {
	list, err := r.List(ownerID)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, nil
}

// ResolveName 返回项目名称；项目不存在或 ID 为空时返回空串
// 投影路径依赖它做标签解析，不得因悬空引用而失败
func (r *Registry) ResolveName(projectID string) string {
	if projectID == "" {
		return ""
	}
	p, err := r.Get(projectID)
	if err != nil {
		return ""
	}
	return p.Name
}
