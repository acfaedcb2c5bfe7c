package task

import (
	"errors"
	"testing"

	"github.com/ldi/trellis/pkg/models"
)

func TestAddHierarchy(t *testing.T) {
	s := newTestSystem(t, 2)

	if err := s.AddHierarchy(1, 2); err != nil {
		t.Fatalf("Failed to add hierarchy: %v", err)
	}
	if !uidsEqual(s.Subtasks(1), []int64{2}) {
		t.Errorf("Expected subtasks of 1 to be [2], got %v", s.Subtasks(1))
	}
	if !uidsEqual(s.Supertasks(2), []int64{1}) {
		t.Errorf("Expected supertasks of 2 to be [1], got %v", s.Supertasks(2))
	}

	// The supertask stops being concrete and loses its own progress
	if s.IsConcrete(1) {
		t.Errorf("Expected task 1 to be non-concrete")
	}
	if s.Task(1).Progress != nil {
		t.Errorf("Expected task 1 to have no progress of its own, got %q", *s.Task(1).Progress)
	}
}

func TestAddHierarchyGraphChecks(t *testing.T) {
	s := newTestSystem(t, 4)
	mustAddHierarchy(t, s, 1, 2)
	mustAddHierarchy(t, s, 2, 3)

	// 1. A task cannot be its own subtask
	var loopErr HierarchyLoopError
	if err := s.AddHierarchy(1, 1); !errors.As(err, &loopErr) {
		t.Errorf("Expected HierarchyLoopError, got %v", err)
	}

	// 2. Both tasks must exist
	var notFoundErr NotFoundError
	if err := s.AddHierarchy(1, 99); !errors.As(err, &notFoundErr) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}

	// 3. The hierarchy must not already exist
	var existsErr HierarchyExistsError
	if err := s.AddHierarchy(1, 2); !errors.As(err, &existsErr) {
		t.Errorf("Expected HierarchyExistsError, got %v", err)
	}

	// 4. Neither may its inverse
	var inverseErr InverseHierarchyExistsError
	if err := s.AddHierarchy(2, 1); !errors.As(err, &inverseErr) {
		t.Errorf("Expected InverseHierarchyExistsError, got %v", err)
	}

	// 5. No cycles: 3 is an inferior of 1
	var cycleErr HierarchyCycleError
	if err := s.AddHierarchy(3, 1); !errors.As(err, &cycleErr) {
		t.Errorf("Expected HierarchyCycleError, got %v", err)
	}
	if !uidsEqual(cycleErr.Path, []int64{1, 2, 3}) {
		t.Errorf("Expected cycle path [1 2 3], got %v", cycleErr.Path)
	}

	// 6. No redundant edges: 1 already reaches 3 through 2
	var redundantErr RedundantHierarchyError
	if err := s.AddHierarchy(1, 3); !errors.As(err, &redundantErr) {
		t.Errorf("Expected RedundantHierarchyError, got %v", err)
	}
	if !uidsEqual(redundantErr.Path, []int64{1, 2, 3}) {
		t.Errorf("Expected redundant path [1 2 3], got %v", redundantErr.Path)
	}

	// 7. A subtask of a superior cannot be attached below it: 4 is already
	// a subtask of 1, so 2 cannot also hold it
	mustAddHierarchy(t, s, 1, 4)
	var superiorErr SubtaskOfSuperiorError
	if err := s.AddHierarchy(2, 4); !errors.As(err, &superiorErr) {
		t.Errorf("Expected SubtaskOfSuperiorError, got %v", err)
	}
	if !uidsEqual(superiorErr.Superiors, []int64{1}) {
		t.Errorf("Expected superiors [1], got %v", superiorErr.Superiors)
	}
}

func TestAddHierarchyDependencyPath(t *testing.T) {
	s := newTestSystem(t, 3)
	mustAddDependency(t, s, 1, 2)
	mustAddDependency(t, s, 2, 3)

	// 1 reaches 3 through the dependency graph, so neither direction of
	// hierarchy between them is allowed
	var pathErr HierarchyDependencyPathError
	if err := s.AddHierarchy(1, 3); !errors.As(err, &pathErr) {
		t.Fatalf("Expected HierarchyDependencyPathError, got %v", err)
	}
	if pathErr.From != 1 || pathErr.To != 3 {
		t.Errorf("Expected path from 1 to 3, got from %d to %d", pathErr.From, pathErr.To)
	}
	if !uidsEqual(pathErr.Path, []int64{1, 2, 3}) {
		t.Errorf("Expected path [1 2 3], got %v", pathErr.Path)
	}

	if err := s.AddHierarchy(3, 1); !errors.As(err, &pathErr) {
		t.Fatalf("Expected HierarchyDependencyPathError, got %v", err)
	}
	if pathErr.From != 1 || pathErr.To != 3 {
		t.Errorf("Expected path from 1 to 3, got from %d to %d", pathErr.From, pathErr.To)
	}
}

func TestAddHierarchyStreamPath(t *testing.T) {
	s := newTestSystem(t, 3)

	// Work flows 1 -> 3 -> (subtask) 2: hierarchy 3 over 2, dependency 1 -> 3
	mustAddHierarchy(t, s, 3, 2)
	mustAddDependency(t, s, 1, 3)

	var streamErr HierarchyStreamPathError
	if err := s.AddHierarchy(1, 2); !errors.As(err, &streamErr) {
		t.Fatalf("Expected HierarchyStreamPathError, got %v", err)
	}
	if streamErr.From != 1 || streamErr.To != 2 || streamErr.ViaInferior {
		t.Errorf("Expected direct stream path from 1 to 2, got %+v", streamErr)
	}
}

func TestAddHierarchyStreamPathViaInferior(t *testing.T) {
	s := newTestSystem(t, 3)

	// 3 is an inferior of 2, and work flows from 1 straight to 3
	mustAddHierarchy(t, s, 2, 3)
	mustAddDependency(t, s, 1, 3)

	var streamErr HierarchyStreamPathError
	if err := s.AddHierarchy(1, 2); !errors.As(err, &streamErr) {
		t.Fatalf("Expected HierarchyStreamPathError, got %v", err)
	}
	if streamErr.From != 1 || streamErr.To != 2 || !streamErr.ViaInferior {
		t.Errorf("Expected stream path from 1 to an inferior of 2, got %+v", streamErr)
	}
}

func TestAddHierarchyDependencyClash(t *testing.T) {
	s := newTestSystem(t, 4)

	// 3 depends on 1, 4 depends on 2, and 4 is a subtask of 3. Making 2 a
	// subtask of 1 would link the two dependency chains twice over.
	mustAddDependency(t, s, 1, 3)
	mustAddDependency(t, s, 2, 4)
	mustAddHierarchy(t, s, 3, 4)

	var clashErr HierarchyDependencyClashError
	if err := s.AddHierarchy(1, 2); !errors.As(err, &clashErr) {
		t.Fatalf("Expected HierarchyDependencyClashError, got %v", err)
	}
	if clashErr.Supertask != 1 || clashErr.Subtask != 2 {
		t.Errorf("Expected clash between 1 and 2, got %+v", clashErr)
	}
}

func TestAddHierarchyMultipleImportances(t *testing.T) {
	s := newTestSystem(t, 3)
	mustAddHierarchy(t, s, 2, 3)

	if err := s.SetImportance(1, importancePtr(models.ImportanceHigh)); err != nil {
		t.Fatalf("Failed to set importance: %v", err)
	}
	if err := s.SetImportance(3, importancePtr(models.ImportanceLow)); err != nil {
		t.Fatalf("Failed to set importance: %v", err)
	}

	// 1 carries an importance and so does 3, an inferior of 2: joining them
	// would give the line two sources of importance
	var multiErr MultipleImportancesError
	if err := s.AddHierarchy(1, 2); !errors.As(err, &multiErr) {
		t.Fatalf("Expected MultipleImportancesError, got %v", err)
	}

	// With one side cleared the hierarchy is fine
	if err := s.SetImportance(1, nil); err != nil {
		t.Fatalf("Failed to clear importance: %v", err)
	}
	if err := s.AddHierarchy(1, 2); err != nil {
		t.Errorf("Failed to add hierarchy after clearing importance: %v", err)
	}
}

func TestAddHierarchyIncompleteSupertaskDependees(t *testing.T) {
	s := newTestSystem(t, 3)

	// 2 depends on incomplete 1, and 3 has already started
	mustAddDependency(t, s, 1, 2)
	mustSetProgress(t, s, 3, models.ProgressInProgress)

	var incompleteErr IncompleteSupertaskDependeesError
	if err := s.AddHierarchy(2, 3); !errors.As(err, &incompleteErr) {
		t.Fatalf("Expected IncompleteSupertaskDependeesError, got %v", err)
	}
	if !uidsEqual(incompleteErr.Dependees, []int64{1}) {
		t.Errorf("Expected dependees [1], got %v", incompleteErr.Dependees)
	}

	// Completing the dependee clears the way
	mustSetProgress(t, s, 1, models.ProgressInProgress)
	mustSetProgress(t, s, 1, models.ProgressCompleted)
	mustSetProgress(t, s, 2, models.ProgressInProgress)
	if err := s.AddHierarchy(2, 3); err != nil {
		t.Errorf("Failed to add hierarchy after completing dependee: %v", err)
	}
}

func TestAddHierarchyStartedSupertaskDependents(t *testing.T) {
	s := newTestSystem(t, 3)

	// 2 depends on completed 1 and has started. Hanging unstarted 3 under 1
	// would drag 1 back below complete while 2 has already begun.
	mustSetProgress(t, s, 1, models.ProgressInProgress)
	mustSetProgress(t, s, 1, models.ProgressCompleted)
	mustAddDependency(t, s, 1, 2)
	mustSetProgress(t, s, 2, models.ProgressInProgress)

	var startedErr StartedSupertaskDependentsError
	if err := s.AddHierarchy(1, 3); !errors.As(err, &startedErr) {
		t.Fatalf("Expected StartedSupertaskDependentsError, got %v", err)
	}
	if !uidsEqual(startedErr.Dependents, []int64{2}) {
		t.Errorf("Expected dependents [2], got %v", startedErr.Dependents)
	}
}

func TestAddHierarchyProgressMismatch(t *testing.T) {
	s := newTestSystem(t, 2)
	mustSetProgress(t, s, 1, models.ProgressInProgress)
	mustSetProgress(t, s, 1, models.ProgressCompleted)

	var mismatchErr ProgressMismatchError
	if err := s.AddHierarchy(1, 2); !errors.As(err, &mismatchErr) {
		t.Fatalf("Expected ProgressMismatchError, got %v", err)
	}
	if mismatchErr.SupertaskProgress != models.ProgressCompleted {
		t.Errorf("Expected supertask progress %q, got %q", models.ProgressCompleted, mismatchErr.SupertaskProgress)
	}
	if mismatchErr.SubtaskProgress != models.ProgressNotStarted {
		t.Errorf("Expected subtask progress %q, got %q", models.ProgressNotStarted, mismatchErr.SubtaskProgress)
	}

	// Once the progresses agree the hierarchy forms
	mustSetProgress(t, s, 2, models.ProgressInProgress)
	mustSetProgress(t, s, 2, models.ProgressCompleted)
	if err := s.AddHierarchy(1, 2); err != nil {
		t.Fatalf("Failed to add hierarchy: %v", err)
	}
	progress, err := s.Progress(1)
	if err != nil {
		t.Fatalf("Failed to get progress: %v", err)
	}
	if progress != models.ProgressCompleted {
		t.Errorf("Expected inferred progress %q, got %q", models.ProgressCompleted, progress)
	}
}

func TestRemoveHierarchy(t *testing.T) {
	s := newTestSystem(t, 3)
	mustSetProgress(t, s, 2, models.ProgressInProgress)
	mustSetProgress(t, s, 2, models.ProgressCompleted)
	mustSetProgress(t, s, 3, models.ProgressInProgress)
	mustSetProgress(t, s, 3, models.ProgressCompleted)
	mustSetProgress(t, s, 1, models.ProgressInProgress)
	mustSetProgress(t, s, 1, models.ProgressCompleted)
	mustAddHierarchy(t, s, 1, 2)
	mustAddHierarchy(t, s, 1, 3)

	// Removing one of two subtasks leaves the supertask non-concrete
	if err := s.RemoveHierarchy(1, 2); err != nil {
		t.Fatalf("Failed to remove hierarchy: %v", err)
	}
	if s.Task(1).Progress != nil {
		t.Errorf("Expected task 1 to still infer its progress")
	}

	// Removing the last subtask makes it concrete again, carrying over the
	// progress it showed just before the split
	if err := s.RemoveHierarchy(1, 3); err != nil {
		t.Fatalf("Failed to remove hierarchy: %v", err)
	}
	if !s.IsConcrete(1) {
		t.Errorf("Expected task 1 to be concrete")
	}
	if got := s.Task(1).Progress; got == nil || *got != models.ProgressCompleted {
		t.Errorf("Expected task 1 progress %q, got %v", models.ProgressCompleted, got)
	}

	var hierNotFoundErr HierarchyNotFoundError
	if err := s.RemoveHierarchy(1, 3); !errors.As(err, &hierNotFoundErr) {
		t.Errorf("Expected HierarchyNotFoundError, got %v", err)
	}
	var notFoundErr NotFoundError
	if err := s.RemoveHierarchy(1, 99); !errors.As(err, &notFoundErr) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}
