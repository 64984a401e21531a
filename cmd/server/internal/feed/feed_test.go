package feed

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/houzhh15/standup/cmd/server/internal/models"
	"github.com/houzhh15/standup/cmd/server/internal/projects"
	"github.com/houzhh15/standup/cmd/server/internal/store"
	"github.com/houzhh15/standup/cmd/server/internal/taskcodec"
	"github.com/houzhh15/standup/cmd/server/internal/updates"
)

type fakeDirectory map[string][2]string

func (d fakeDirectory) DisplayInfo(username string) (string, string) {
	info, ok := d[username]
	if !ok {
		return "", ""
	}
	return info[0], info[1]
}

type fixture struct {
	rows    store.Store
	updates *updates.Store
	service *Service
}

func newFixture(t *testing.T, dir fakeDirectory) *fixture {
	t.Helper()
	rows, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	updateStore := updates.NewStore(rows, logger)
	registry := projects.NewRegistry(rows)
	return &fixture{
		rows:    rows,
		updates: updateStore,
		service: NewService(updateStore, registry, dir, logger, 100),
	}
}

// insertUpdate 直接写入存储行，用于构造指定创建时间的记录
func insertUpdate(t *testing.T, rows store.Store, owner, projectName string, createdAt time.Time, tasks []taskcodec.Task) string {
	t.Helper()
	raw, err := taskcodec.Encode(tasks)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	u := models.Update{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		ProjectName: projectName,
		TasksRaw:    raw,
		Source:      models.SourceManual,
		CreatedAt:   createdAt,
	}
	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal update failed: %v", err)
	}
	if _, err := rows.Insert(updates.Table, u.ID, data); err != nil {
		t.Fatalf("insert update failed: %v", err)
	}
	return u.ID
}

// TestListTasksFlatteningAndOrder 测试摊平顺序与标识符铸造
func TestListTasksFlatteningAndOrder(t *testing.T) {
	f := newFixture(t, fakeDirectory{"alice": {"Alice Smith", "a.png"}})

	now := time.Now().UTC()
	older := insertUpdate(t, f.rows, "alice", "Apollo", now.Add(-time.Hour), []taskcodec.Task{
		{Description: "old one"},
	})
	newer := insertUpdate(t, f.rows, "alice", "", now, []taskcodec.Task{
		{Description: "first"},
		{Description: "second", Completed: true},
	})

	got, err := f.service.ListTasks("alice", Filter{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListTasks returned %d tasks, want 3", len(got))
	}

	// 新 update 在前，update 内按序号升序
	wantIDs := []string{
		taskcodec.TaskID(newer, 0),
		taskcodec.TaskID(newer, 1),
		taskcodec.TaskID(older, 0),
	}
	for i, want := range wantIDs {
		if got[i].ID != want {
			t.Errorf("task %d id = %q, want %q", i, got[i].ID, want)
		}
	}

	if got[0].Owner.Name != "Alice Smith" || got[0].Owner.Initials != "AS" {
		t.Errorf("owner = %+v, want resolved display info", got[0].Owner)
	}
	// 无项目归属时使用哨兵标签
	if got[0].ProjectLabel != NoProjectLabel {
		t.Errorf("label = %q, want %q", got[0].ProjectLabel, NoProjectLabel)
	}
	if got[2].ProjectLabel != "Apollo" {
		t.Errorf("label = %q, want Apollo", got[2].ProjectLabel)
	}
}

// TestListTasksFilters 测试筛选不改变标识符的序号语义
func TestListTasksFilters(t *testing.T) {
	f := newFixture(t, nil)

	id := insertUpdate(t, f.rows, "alice", "", time.Now().UTC(), []taskcodec.Task{
		{Description: "a", Priority: taskcodec.PriorityLow},
		{Description: "b", Priority: taskcodec.PriorityHigh, Completed: true},
		{Description: "c", Priority: taskcodec.PriorityHigh},
	})

	high, err := f.service.ListTasks("alice", Filter{Priority: taskcodec.PriorityHigh})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(high) != 2 {
		t.Fatalf("priority filter returned %d tasks, want 2", len(high))
	}
	// 序号按完整序列计：过滤掉序号 0 后仍然是 1 和 2
	if high[0].ID != taskcodec.TaskID(id, 1) || high[1].ID != taskcodec.TaskID(id, 2) {
		t.Errorf("filtered ids = [%q, %q], ordinals must come from the full sequence", high[0].ID, high[1].ID)
	}

	done := true
	completed, err := f.service.ListTasks("alice", Filter{Completed: &done})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(completed) != 1 || completed[0].Title != "b" {
		t.Errorf("completed filter = %+v, want just b", completed)
	}

	if _, err := f.service.ListTasks("alice", Filter{Priority: "urgent"}); err == nil {
		t.Error("invalid priority filter must fail")
	}
	if _, err := f.service.ListTasks("alice", Filter{Date: "bad-date"}); err == nil {
		t.Error("invalid date filter must fail")
	}
}

// TestListTasksSkipsUndecodable 单条腐坏记录只降级自身
func TestListTasksSkipsUndecodable(t *testing.T) {
	f := newFixture(t, nil)

	insertUpdate(t, f.rows, "alice", "", time.Now().UTC(), []taskcodec.Task{{Description: "good"}})

	corrupt := models.Update{
		ID:        uuid.NewString(),
		OwnerID:   "alice",
		TasksRaw:  "{broken",
		Source:    models.SourceManual,
		CreatedAt: time.Now().UTC(),
	}
	data, _ := json.Marshal(corrupt)
	if _, err := f.rows.Insert(updates.Table, corrupt.ID, data); err != nil {
		t.Fatalf("insert corrupt update failed: %v", err)
	}

	got, err := f.service.ListTasks("alice", Filter{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "good" {
		t.Errorf("projection = %+v, want only the decodable task", got)
	}
}

// TestImpactScore 影响力得分公式
func TestImpactScore(t *testing.T) {
	cases := []struct {
		avgDaily float64
		rate     float64
		want     int
	}{
		{0, 0, 0},
		{1, 0.5, 43},
		{3, 1, 100},
		{9, 1, 100}, // 频率封顶
		{3, 0, 40},
	}
	for _, c := range cases {
		if got := ImpactScore(c.avgDaily, c.rate); got != c.want {
			t.Errorf("ImpactScore(%v, %v) = %d, want %d", c.avgDaily, c.rate, got, c.want)
		}
	}
}

// TestAnalyticsAggregation 两天窗口的端到端聚合
func TestAnalyticsAggregation(t *testing.T) {
	f := newFixture(t, nil)

	now := time.Now().UTC()
	yesterday := now.Add(-24 * time.Hour)
	insertUpdate(t, f.rows, "alice", "Apollo", yesterday, []taskcodec.Task{
		{Description: "a", Completed: true},
		{Description: "b"},
	})
	insertUpdate(t, f.rows, "alice", "", now, []taskcodec.Task{
		{Description: "c", Completed: true},
		{Description: "d"},
	})

	report, err := f.service.Analytics("alice", 2)
	if err != nil {
		t.Fatalf("Analytics failed: %v", err)
	}

	if report.TotalUpdates != 2 || report.TotalTasks != 4 || report.CompletedTasks != 2 {
		t.Errorf("totals = %d/%d/%d, want 2/4/2", report.TotalUpdates, report.TotalTasks, report.CompletedTasks)
	}
	if report.AvgDailyContributions != 1 {
		t.Errorf("avg daily = %v, want 1", report.AvgDailyContributions)
	}
	if report.CompletionRate != 0.5 {
		t.Errorf("completion rate = %v, want 0.5", report.CompletionRate)
	}
	if report.ImpactScore != 43 {
		t.Errorf("impact score = %d, want 43", report.ImpactScore)
	}
	if len(report.Daily) != 2 {
		t.Fatalf("daily points = %d, want 2", len(report.Daily))
	}
	if report.Daily[0].Updates != 1 || report.Daily[1].Updates != 1 {
		t.Errorf("daily updates = %+v, want one per day", report.Daily)
	}
	if report.ProjectDistribution["Apollo"] != 1 || report.ProjectDistribution[NoProjectLabel] != 1 {
		t.Errorf("project distribution = %+v", report.ProjectDistribution)
	}
}

// TestBuildDailyReport 跨成员日报与排行顺序
func TestBuildDailyReport(t *testing.T) {
	f := newFixture(t, fakeDirectory{
		"alice": {"Alice Smith", ""},
		"bob":   {"Bob Jones", ""},
	})

	day := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	insertUpdate(t, f.rows, "alice", "", day, []taskcodec.Task{
		{Description: "a1", Completed: true},
		{Description: "a2"},
	})
	insertUpdate(t, f.rows, "bob", "", day.Add(time.Hour), []taskcodec.Task{
		{Description: "b1", Completed: true},
		{Description: "b2", Completed: true},
		{Description: "b3", Completed: true},
	})
	// 窗口之外的记录不参与
	insertUpdate(t, f.rows, "alice", "", day.Add(30*time.Hour), []taskcodec.Task{{Description: "next day"}})

	report, err := f.service.BuildDailyReport(day)
	if err != nil {
		t.Fatalf("BuildDailyReport failed: %v", err)
	}
	if report.Date != "2026-08-31" {
		t.Errorf("date = %q", report.Date)
	}
	if report.TotalUpdates != 2 || report.TotalTasks != 5 || report.CompletedTasks != 4 {
		t.Errorf("totals = %d/%d/%d, want 2/5/4", report.TotalUpdates, report.TotalTasks, report.CompletedTasks)
	}
	if len(report.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(report.Members))
	}
	// 完成数多者在前
	if report.Members[0].Owner.Name != "Bob Jones" {
		t.Errorf("leaderboard head = %q, want Bob Jones", report.Members[0].Owner.Name)
	}
	if report.Members[0].CompletionRate != 100 || report.Members[1].CompletionRate != 50 {
		t.Errorf("rates = %d/%d, want 100/50", report.Members[0].CompletionRate, report.Members[1].CompletionRate)
	}
}

// TestInitials 首字母缩写
func TestInitials(t *testing.T) {
	cases := map[string]string{
		"Alice Smith":    "AS",
		"bob":            "B",
		"":               "",
		"  mary jo kim ": "MJK",
	}
	for name, want := range cases {
		if got := Initials(name); got != want {
			t.Errorf("Initials(%q) = %q, want %q", name, got, want)
		}
	}
}
