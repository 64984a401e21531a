package projects

import (
	"errors"
	"testing"

	"github.com/houzhh15/standup/cmd/server/internal/store"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	rows, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return NewRegistry(rows)
}

// TestCreateAndResolve 创建与名称解析
func TestCreateAndResolve(t *testing.T) {
	r := newTestRegistry(t)

	p, err := r.Create("alice", "  Apollo  ")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.Name != "Apollo" {
		t.Errorf("name = %q, want trimmed Apollo", p.Name)
	}

	if _, err := r.Create("alice", "   "); err == nil {
		t.Error("blank name must be rejected")
	}

	if got := r.ResolveName(p.ID); got != "Apollo" {
		t.Errorf("ResolveName = %q", got)
	}
	// 悬空引用返回空串而不是失败
	if got := r.ResolveName("no-such-project"); got != "" {
		t.Errorf("dangling ResolveName = %q, want empty", got)
	}

	if _, err := r.Get("no-such-project"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Get missing = %v, want ErrProjectNotFound", err)
	}
}

// TestFindByName 大小写不敏感且限定所有者
func TestFindByName(t *testing.T) {
	r := newTestRegistry(t)

	created, err := r.Create("alice", "Apollo")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := r.FindByName("alice", "aPoLLo")
	if err != nil {
		t.Fatalf("FindByName failed: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Errorf("FindByName = %+v, want the created project", found)
	}

	foreign, err := r.FindByName("bob", "Apollo")
	if err != nil {
		t.Fatalf("FindByName failed: %v", err)
	}
	if foreign != nil {
		t.Error("FindByName must not cross owners")
	}
}

// TestListSorted 按名称排序
func TestListSorted(t *testing.T) {
	r := newTestRegistry(t)
	r.Create("alice", "Zephyr")
	r.Create("alice", "Apollo")
	r.Create("bob", "Borealis")

	list, err := r.List("alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Apollo" || list[1].Name != "Zephyr" {
		t.Errorf("list = %+v, want [Apollo, Zephyr]", list)
	}
}
