package db

import (
	"context"
	"errors"
	"testing"

	"github.com/ldi/trellis/internal/task"
	"github.com/ldi/trellis/pkg/models"
)

func TestHierarchyCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateTask(ctx, strPtr("parent"), nil); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if _, err := db.CreateTask(ctx, strPtr("child"), nil); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	if err := db.CreateHierarchy(ctx, 1, 2); err != nil {
		t.Fatalf("Failed to create hierarchy: %v", err)
	}

	subtasks, err := db.GetSubtasks(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get subtasks: %v", err)
	}
	if len(subtasks) != 1 || subtasks[0].UID != 2 {
		t.Errorf("Subtasks of 1 = %v, want [2]", subtasks)
	}

	supertasks, err := db.GetSupertasks(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to get supertasks: %v", err)
	}
	if len(supertasks) != 1 || supertasks[0].UID != 1 {
		t.Errorf("Supertasks of 2 = %v, want [1]", supertasks)
	}

	if err := db.DeleteHierarchy(ctx, 1, 2); err != nil {
		t.Fatalf("Failed to delete hierarchy: %v", err)
	}
	subtasks, err = db.GetSubtasks(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get subtasks: %v", err)
	}
	if len(subtasks) != 0 {
		t.Errorf("Expected no subtasks after delete, got %v", subtasks)
	}
}

func TestHierarchyProgressHandoff(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := db.CreateTask(ctx, nil, nil); err != nil {
			t.Fatalf("Failed to create task: %v", err)
		}
	}
	if err := db.SetTaskProgress(ctx, 1, models.ProgressInProgress); err != nil {
		t.Fatalf("Failed to set progress: %v", err)
	}
	if err := db.SetTaskProgress(ctx, 2, models.ProgressInProgress); err != nil {
		t.Fatalf("Failed to set progress: %v", err)
	}

	// The supertask stops storing its own progress once it has a subtask.
	if err := db.CreateHierarchy(ctx, 1, 2); err != nil {
		t.Fatalf("Failed to create hierarchy: %v", err)
	}
	got, err := db.GetTask(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.Progress != nil {
		t.Errorf("Supertask stored progress = %v, want none", *got.Progress)
	}

	if err := db.SetTaskProgress(ctx, 2, models.ProgressCompleted); err != nil {
		t.Fatalf("Failed to complete subtask: %v", err)
	}

	// Detaching the last subtask makes the supertask concrete again with
	// the progress it showed while inferred.
	if err := db.DeleteHierarchy(ctx, 1, 2); err != nil {
		t.Fatalf("Failed to delete hierarchy: %v", err)
	}
	got, err = db.GetTask(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.Progress == nil || *got.Progress != models.ProgressCompleted {
		t.Errorf("Supertask progress = %v, want completed", got.Progress)
	}
}

func TestCreateHierarchyRejectsCycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := db.CreateTask(ctx, nil, nil); err != nil {
			t.Fatalf("Failed to create task: %v", err)
		}
	}
	if err := db.CreateHierarchy(ctx, 1, 2); err != nil {
		t.Fatalf("Failed to create hierarchy: %v", err)
	}
	if err := db.CreateHierarchy(ctx, 2, 3); err != nil {
		t.Fatalf("Failed to create hierarchy: %v", err)
	}

	err := db.CreateHierarchy(ctx, 3, 1)
	var cycle task.HierarchyCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Expected HierarchyCycleError, got %v", err)
	}

	// Nothing was written for the rejected edge.
	supertasks, err := db.GetSupertasks(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get supertasks: %v", err)
	}
	if len(supertasks) != 0 {
		t.Errorf("Rejected edge left rows behind: %v", supertasks)
	}
}

func TestDeleteHierarchyNotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := db.CreateTask(ctx, nil, nil); err != nil {
			t.Fatalf("Failed to create task: %v", err)
		}
	}

	err := db.DeleteHierarchy(ctx, 1, 2)
	var notFound task.HierarchyNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("Expected HierarchyNotFoundError, got %v", err)
	}
}
