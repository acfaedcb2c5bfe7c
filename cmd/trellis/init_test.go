package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ldi/trellis/internal/config"
	"github.com/ldi/trellis/internal/db"
)

func TestInit(t *testing.T) {
	tmpDir := t.TempDir()

	defaults := config.Default()
	dbPath = defaults.DBPath
	snapshotPath = defaults.SnapshotPath

	output, err := captureStdout(t, func() error {
		return runInit([]string{tmpDir})
	})
	if err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	trellisDir := filepath.Join(tmpDir, ".trellis")
	if _, err := os.Stat(trellisDir); os.IsNotExist(err) {
		t.Errorf(".trellis directory was not created")
	}

	gitignorePath := filepath.Join(trellisDir, ".gitignore")
	content, err := os.ReadFile(gitignorePath)
	if err != nil {
		t.Errorf("failed to read .gitignore: %v", err)
	}
	if string(content) != "trellis.db*\n" {
		t.Errorf(".gitignore content mismatch: expected 'trellis.db*\\n', got %q", string(content))
	}

	dbFilePath := filepath.Join(trellisDir, "trellis.db")
	if _, err := os.Stat(dbFilePath); os.IsNotExist(err) {
		t.Errorf("database file was not created")
	}

	if !strings.Contains(output, "✓ Trellis initialized successfully") {
		t.Errorf("unexpected output: %s", output)
	}
}

func TestInitImportsSnapshot(t *testing.T) {
	tmpDir := t.TempDir()

	trellisDir := filepath.Join(tmpDir, ".trellis")
	if err := os.MkdirAll(trellisDir, 0755); err != nil {
		t.Fatalf("failed to create .trellis dir: %v", err)
	}

	snapshot := `{"record_type":"task","uid":1,"name":"restored","progress":"not started","created_at":"2026-08-01T10:00:00Z","updated_at":"2026-08-01T10:00:00Z"}
`
	if err := os.WriteFile(filepath.Join(trellisDir, "snapshot.jsonl"), []byte(snapshot), 0644); err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}

	defaults := config.Default()
	dbPath = defaults.DBPath
	snapshotPath = defaults.SnapshotPath

	output, err := captureStdout(t, func() error {
		return runInit([]string{tmpDir})
	})
	if err != nil {
		t.Fatalf("runInit failed: %v", err)
	}
	if !strings.Contains(output, "✓ Imported snapshot from") {
		t.Errorf("expected snapshot import message: %s", output)
	}

	database, err := db.Open(filepath.Join(trellisDir, "trellis.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer database.Close()

	restored, err := database.GetTask(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to fetch imported task: %v", err)
	}
	if restored == nil {
		t.Fatal("imported task not found")
	}
	if restored.Name == nil || *restored.Name != "restored" {
		t.Errorf("unexpected imported task name: %v", restored.Name)
	}
}

func TestInitOverwritesGitignore(t *testing.T) {
	tmpDir := t.TempDir()

	trellisDir := filepath.Join(tmpDir, ".trellis")
	if err := os.MkdirAll(trellisDir, 0755); err != nil {
		t.Fatalf("failed to create .trellis dir: %v", err)
	}

	gitignorePath := filepath.Join(trellisDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("old-content\n"), 0644); err != nil {
		t.Fatalf("failed to create initial .gitignore: %v", err)
	}

	defaults := config.Default()
	dbPath = defaults.DBPath
	snapshotPath = defaults.SnapshotPath

	if _, err := captureStdout(t, func() error {
		return runInit([]string{tmpDir})
	}); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	content, err := os.ReadFile(gitignorePath)
	if err != nil {
		t.Fatalf("failed to read .gitignore: %v", err)
	}
	if string(content) != "trellis.db*\n" {
		t.Errorf(".gitignore was not overwritten: expected 'trellis.db*\\n', got %q", string(content))
	}
}
