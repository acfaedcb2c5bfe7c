package db

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ldi/trellis/pkg/models"
)

func seedNetwork(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()

	if _, err := db.CreateTask(ctx, strPtr("plan"), strPtr("lay it out")); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if _, err := db.CreateTask(ctx, nil, nil); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if _, err := db.CreateTask(ctx, strPtr("ship"), nil); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if err := db.CreateHierarchy(ctx, 1, 2); err != nil {
		t.Fatalf("Failed to create hierarchy: %v", err)
	}
	if err := db.CreateDependency(ctx, 2, 3); err != nil {
		t.Fatalf("Failed to create dependency: %v", err)
	}
	if err := db.SetTaskImportance(ctx, 3, importancePtr(models.ImportanceHigh)); err != nil {
		t.Fatalf("Failed to set importance: %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedNetwork(t, db)

	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	if err := db.ExportSnapshot(ctx, path); err != nil {
		t.Fatalf("Failed to export snapshot: %v", err)
	}

	restored := newTestDB(t)
	if err := restored.ImportSnapshot(ctx, path); err != nil {
		t.Fatalf("Failed to import snapshot: %v", err)
	}

	network, err := restored.GetNetwork(ctx)
	if err != nil {
		t.Fatalf("Failed to get network: %v", err)
	}
	if len(network.Tasks) != 3 || len(network.Hierarchies) != 1 || len(network.Dependencies) != 1 {
		t.Fatalf("Restored network = %d tasks, %d hierarchies, %d dependencies",
			len(network.Tasks), len(network.Hierarchies), len(network.Dependencies))
	}

	first := network.Tasks[0]
	if first.UID != 1 || first.Name == nil || *first.Name != "plan" {
		t.Errorf("Task 1 restored as %+v", first)
	}
	// The supertask's progress moved to inference before the export and
	// must stay that way.
	if first.Progress != nil {
		t.Errorf("Task 1 progress = %v, want none", *first.Progress)
	}

	second := network.Tasks[1]
	if second.Name != nil || second.Description != nil {
		t.Errorf("Task 2 optional fields should stay absent, got %+v", second)
	}

	third := network.Tasks[2]
	if third.Importance == nil || *third.Importance != models.ImportanceHigh {
		t.Errorf("Task 3 importance = %v, want high", third.Importance)
	}
}

func TestSnapshotFormat(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedNetwork(t, db)

	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	if err := db.ExportSnapshot(ctx, path); err != nil {
		t.Fatalf("Failed to export snapshot: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open snapshot: %v", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("Scanner error: %v", err)
	}

	// meta + 3 tasks + 1 hierarchy + 1 dependency
	if len(lines) != 6 {
		t.Fatalf("Expected 6 lines, got %d", len(lines))
	}

	var meta struct {
		RecordType string `json:"record_type"`
		ID         string `json:"id"`
		NextUID    int64  `json:"next_uid"`
		TaskCount  int    `json:"task_count"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &meta); err != nil {
		t.Fatalf("Failed to parse meta line: %v", err)
	}
	if meta.RecordType != "meta" {
		t.Errorf("First line record_type = %q, want meta", meta.RecordType)
	}
	if len(meta.ID) != 36 {
		t.Errorf("Expected UUID snapshot id, got %q", meta.ID)
	}
	if meta.NextUID != 4 {
		t.Errorf("meta next_uid = %d, want 4", meta.NextUID)
	}
	if meta.TaskCount != 3 {
		t.Errorf("meta task_count = %d, want 3", meta.TaskCount)
	}

	// Task 2 has no name or description; the keys must be omitted rather
	// than written as empty or placeholder values.
	taskLine := lines[2]
	if !strings.Contains(taskLine, `"record_type":"task"`) || !strings.Contains(taskLine, `"uid":2`) {
		t.Fatalf("Line 3 is not task 2: %s", taskLine)
	}
	if strings.Contains(taskLine, `"name"`) || strings.Contains(taskLine, `"description"`) {
		t.Errorf("Absent fields leaked into snapshot line: %s", taskLine)
	}
	if strings.Contains(taskLine, "None") {
		t.Errorf("Placeholder text leaked into snapshot line: %s", taskLine)
	}
}

func TestImportSnapshotMergesByUID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedNetwork(t, db)

	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	if err := db.ExportSnapshot(ctx, path); err != nil {
		t.Fatalf("Failed to export snapshot: %v", err)
	}

	// Drift the live state after the export.
	if err := db.SetTaskName(ctx, 1, strPtr("replan")); err != nil {
		t.Fatalf("Failed to rename task: %v", err)
	}

	if err := db.ImportSnapshot(ctx, path); err != nil {
		t.Fatalf("Failed to import snapshot: %v", err)
	}

	got, err := db.GetTask(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.Name == nil || *got.Name != "plan" {
		t.Errorf("Task 1 name = %v, want the snapshot's plan", got.Name)
	}

	// Re-importing on top of existing edges must not duplicate them.
	network, err := db.GetNetwork(ctx)
	if err != nil {
		t.Fatalf("Failed to get network: %v", err)
	}
	if len(network.Hierarchies) != 1 || len(network.Dependencies) != 1 {
		t.Errorf("Edges duplicated: %d hierarchies, %d dependencies",
			len(network.Hierarchies), len(network.Dependencies))
	}
}

func TestImportSnapshotRejectsUnknownEdge(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	snapshot := strings.Join([]string{
		`{"record_type":"meta","id":"test","next_uid":2}`,
		`{"record_type":"task","uid":1}`,
		`{"record_type":"hierarchy","supertask_uid":1,"subtask_uid":9}`,
	}, "\n")
	if err := os.WriteFile(path, []byte(snapshot), 0644); err != nil {
		t.Fatalf("Failed to write snapshot: %v", err)
	}

	err := db.ImportSnapshot(ctx, path)
	if err == nil {
		t.Fatal("Expected import to fail on unknown edge endpoint")
	}

	// The whole import rolls back, including the valid task line.
	got, err := db.GetTask(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got != nil {
		t.Errorf("Partial import left task behind: %+v", got)
	}
}

func TestImportSnapshotRejectsCycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	snapshot := strings.Join([]string{
		`{"record_type":"task","uid":1}`,
		`{"record_type":"task","uid":2}`,
		`{"record_type":"hierarchy","supertask_uid":1,"subtask_uid":2}`,
		`{"record_type":"hierarchy","supertask_uid":2,"subtask_uid":1}`,
	}, "\n")
	if err := os.WriteFile(path, []byte(snapshot), 0644); err != nil {
		t.Fatalf("Failed to write snapshot: %v", err)
	}

	err := db.ImportSnapshot(ctx, path)
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("Expected cycle rejection, got %v", err)
	}

	network, err := db.GetNetwork(ctx)
	if err != nil {
		t.Fatalf("Failed to get network: %v", err)
	}
	if len(network.Tasks) != 0 {
		t.Errorf("Rejected import left %d tasks behind", len(network.Tasks))
	}
}

func TestImportSnapshotRestoresUIDCounter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := db.CreateTask(ctx, nil, nil); err != nil {
			t.Fatalf("Failed to create task: %v", err)
		}
	}
	// uid 2 disappears before the export but must never come back.
	if err := db.DeleteTask(ctx, 2); err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}

	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	if err := db.ExportSnapshot(ctx, path); err != nil {
		t.Fatalf("Failed to export snapshot: %v", err)
	}

	restored := newTestDB(t)
	if err := restored.ImportSnapshot(ctx, path); err != nil {
		t.Fatalf("Failed to import snapshot: %v", err)
	}

	created, err := restored.CreateTask(ctx, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if created.UID != 3 {
		t.Errorf("New task got uid %d, want 3", created.UID)
	}
}
