package updates

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/houzhh15/standup/cmd/server/internal/store"
	"github.com/houzhh15/standup/cmd/server/internal/taskcodec"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	rows, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return NewStore(rows, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// TestCreateAndLoadForOwner 测试创建与按所有权读取
func TestCreateAndLoadForOwner(t *testing.T) {
	s := newTestStore(t)

	tasks := []taskcodec.Task{
		{Description: "prepare demo", Priority: taskcodec.PriorityHigh},
		{Description: "update docs"},
	}
	u, err := s.Create("alice", "", "Apollo", tasks, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.Source != "manual" {
		t.Errorf("default source = %q, want manual", u.Source)
	}

	loaded, err := s.LoadForOwner(u.ID, "alice")
	if err != nil {
		t.Fatalf("LoadForOwner failed: %v", err)
	}
	decoded := taskcodec.Decode(loaded.TasksRaw)
	if len(decoded) != 2 || decoded[0].Description != "prepare demo" {
		t.Errorf("stored tasks = %+v", decoded)
	}
}

// TestOwnershipIsolation 测试所有权隔离：他人记录与不存在的记录表现一致
func TestOwnershipIsolation(t *testing.T) {
	s := newTestStore(t)

	u, err := s.Create("alice", "", "", []taskcodec.Task{{Description: "secret work"}}, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, errForeign := s.LoadForOwner(u.ID, "mallory")
	_, errMissing := s.LoadForOwner("no-such-update", "mallory")

	if !errors.Is(errForeign, ErrNotFound) {
		t.Errorf("foreign-owned load = %v, want ErrNotFound", errForeign)
	}
	if !errors.Is(errMissing, ErrNotFound) {
		t.Errorf("missing load = %v, want ErrNotFound", errMissing)
	}
	// 两种失败必须不可区分
	if errForeign.Error() != errMissing.Error() {
		t.Error("foreign-owned and missing updates must fail identically")
	}
}

// TestCreateValidation 测试创建时校验
func TestCreateValidation(t *testing.T) {
	s := newTestStore(t)

	// 空描述
	_, err := s.Create("alice", "", "", []taskcodec.Task{{Description: "   "}}, "")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty description = %v, want ErrInvalidArgument", err)
	}

	// 非法优先级
	_, err = s.Create("alice", "", "", []taskcodec.Task{{Description: "ok", Priority: "urgent"}}, "")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad priority = %v, want ErrInvalidArgument", err)
	}

	// 项目引用与自由文本互斥
	_, err = s.Create("alice", "p1", "Apollo", nil, "")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("project ref + free text = %v, want ErrInvalidArgument", err)
	}
}

// TestFindRange 测试窗口筛选与降序排序
func TestFindRange(t *testing.T) {
	s := newTestStore(t)

	first, _ := s.Create("alice", "", "", []taskcodec.Task{{Description: "a"}}, "")
	time.Sleep(2 * time.Millisecond)
	second, _ := s.Create("alice", "", "", []taskcodec.Task{{Description: "b"}}, "")
	s.Create("bob", "", "", []taskcodec.Task{{Description: "c"}}, "")

	got, err := s.FindRange(RangeFilter{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("FindRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("FindRange returned %d updates, want 2", len(got))
	}
	// 最新的在前
	if got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("order = [%s, %s], want newest first", got[0].ID, got[1].ID)
	}

	// Limit 截断
	capped, _ := s.FindRange(RangeFilter{OwnerID: "alice", Limit: 1})
	if len(capped) != 1 || capped[0].ID != second.ID {
		t.Errorf("capped result = %+v", capped)
	}
}

// TestMutateTasksCorruptRecord 测试定向变更遇到腐坏数据必须失败而非清空
func TestMutateTasksCorruptRecord(t *testing.T) {
	s := newTestStore(t)

	u, _ := s.Create("alice", "", "", []taskcodec.Task{{Description: "x"}}, "")

	// 模拟外部写坏任务字段
	row, err := s.rows.Get(Table, u.ID)
	if err != nil {
		t.Fatalf("Get row failed: %v", err)
	}
	corrupt := []byte(`{"id":"` + u.ID + `","owner_id":"alice","tasks":"{broken","source":"manual","created_at":"2026-01-01T00:00:00Z"}`)
	if _, err := s.rows.Update(Table, u.ID, row.Version, corrupt); err != nil {
		t.Fatalf("corrupting row failed: %v", err)
	}

	_, err = s.MutateTasks(u.ID, "alice", func(tasks []taskcodec.Task) ([]taskcodec.Task, error) {
		return tasks, nil
	})
	if !errors.Is(err, ErrMutationFailed) {
		t.Errorf("mutation on corrupt record = %v, want ErrMutationFailed", err)
	}

	// 宽容读取路径仍然按空列表处理
	loaded, err := s.LoadForOwner(u.ID, "alice")
	if err != nil {
		t.Fatalf("LoadForOwner failed: %v", err)
	}
	if got := taskcodec.Decode(loaded.TasksRaw); len(got) != 0 {
		t.Errorf("tolerant decode of corrupt record = %+v, want empty", got)
	}
}

// TestDelete 测试按所有权删除
func TestDelete(t *testing.T) {
	s := newTestStore(t)

	u, _ := s.Create("alice", "", "", []taskcodec.Task{{Description: "x"}}, "")

	if err := s.Delete(u.ID, "mallory"); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(u.ID, "alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.LoadForOwner(u.ID, "alice"); !errors.Is(err, ErrNotFound) {
		t.Error("update still present after delete")
	}
}
