package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExecuteRoutesMenuSelectionToCommand(t *testing.T) {
	tmpDir := t.TempDir()

	originalRunMenu := runMenu
	t.Cleanup(func() { runMenu = originalRunMenu })

	called := false
	runMenu = func() (string, error) {
		called = true
		return "list", nil
	}

	dbFile := filepath.Join(tmpDir, "trellis.db")
	snapFile := filepath.Join(tmpDir, "snapshot.jsonl")

	var stderr bytes.Buffer
	output, err := captureStdout(t, func() error {
		return execute([]string{"--db-path", dbFile, "--snapshot-path", snapFile}, &stderr)
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called {
		t.Fatal("expected root execution to open the menu")
	}
	if !strings.Contains(output, "UID") {
		t.Errorf("expected menu selection to run the list command, got: %s", output)
	}
}

func TestExecuteMenuQuitReturnsNil(t *testing.T) {
	originalRunMenu := runMenu
	t.Cleanup(func() { runMenu = originalRunMenu })

	runMenu = func() (string, error) {
		return "", nil
	}

	var stderr bytes.Buffer
	if err := execute(nil, &stderr); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
}

func TestExecuteRejectsUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	err := execute([]string{"bogus"}, &stderr)
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "unknown command: bogus") {
		t.Fatalf("expected unknown command error, got: %v", err)
	}
}

func TestExecuteHelpListsCommands(t *testing.T) {
	var stderr bytes.Buffer
	err := execute([]string{"--help"}, &stderr)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected help error, got: %v", err)
	}

	output := stderr.String()
	if !strings.Contains(output, "Running trellis with no command opens the interactive menu.") {
		t.Fatalf("expected menu help text, got: %s", output)
	}
	if !strings.Contains(output, "snapshot <export|import>") {
		t.Fatalf("expected snapshot command in help output, got: %s", output)
	}
	if !strings.Contains(output, "-db-path") {
		t.Fatalf("expected db-path flag in help output, got: %s", output)
	}
	if !strings.Contains(output, "-config") {
		t.Fatalf("expected config flag in help output, got: %s", output)
	}
}

func TestExecuteAppliesConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	customDB := filepath.Join(tmpDir, "custom.db")
	customSnapshot := filepath.Join(tmpDir, "custom.jsonl")
	configFile := filepath.Join(tmpDir, "config.yaml")
	content := fmt.Sprintf("db_path: %s\nsnapshot_path: %s\nauto_snapshot: false\n", customDB, customSnapshot)
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	originalRunMenu := runMenu
	t.Cleanup(func() { runMenu = originalRunMenu })
	runMenu = func() (string, error) {
		return "", nil
	}

	var stderr bytes.Buffer
	if err := execute([]string{"--config", configFile}, &stderr); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if dbPath != customDB {
		t.Errorf("expected db path %s from config file, got %s", customDB, dbPath)
	}
	if snapshotPath != customSnapshot {
		t.Errorf("expected snapshot path %s from config file, got %s", customSnapshot, snapshotPath)
	}
	if cfg.AutoSnapshot {
		t.Error("expected config file to disable auto snapshot")
	}

	// Flags beat the config file.
	override := filepath.Join(tmpDir, "override.db")
	if err := execute([]string{"--config", configFile, "--db-path", override}, &stderr); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if dbPath != override {
		t.Errorf("expected flag to override config file, got %s", dbPath)
	}
	if snapshotPath != customSnapshot {
		t.Errorf("expected snapshot path %s from config file, got %s", customSnapshot, snapshotPath)
	}
}

func TestExecuteRejectsMissingConfigFile(t *testing.T) {
	var stderr bytes.Buffer
	err := execute([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, &stderr)
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
