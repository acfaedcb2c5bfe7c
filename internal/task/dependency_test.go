package task

import (
	"errors"
	"testing"

	"github.com/ldi/trellis/pkg/models"
)

func TestAddDependency(t *testing.T) {
	s := newTestSystem(t, 2)

	if err := s.AddDependency(1, 2); err != nil {
		t.Fatalf("Failed to add dependency: %v", err)
	}
	if !uidsEqual(s.Dependents(1), []int64{2}) {
		t.Errorf("Expected dependents of 1 to be [2], got %v", s.Dependents(1))
	}
	if !uidsEqual(s.Dependees(2), []int64{1}) {
		t.Errorf("Expected dependees of 2 to be [1], got %v", s.Dependees(2))
	}

	var loopErr DependencyLoopError
	if err := s.AddDependency(1, 1); !errors.As(err, &loopErr) {
		t.Errorf("Expected DependencyLoopError, got %v", err)
	}

	var notFoundErr NotFoundError
	if err := s.AddDependency(1, 99); !errors.As(err, &notFoundErr) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}

	var existsErr DependencyExistsError
	if err := s.AddDependency(1, 2); !errors.As(err, &existsErr) {
		t.Errorf("Expected DependencyExistsError, got %v", err)
	}
}

func TestAddDependencyCycle(t *testing.T) {
	s := newTestSystem(t, 3)
	mustAddDependency(t, s, 1, 2)
	mustAddDependency(t, s, 2, 3)

	var cycleErr DependencyCycleError
	if err := s.AddDependency(3, 1); !errors.As(err, &cycleErr) {
		t.Fatalf("Expected DependencyCycleError, got %v", err)
	}
	if !uidsEqual(cycleErr.Path, []int64{1, 2, 3}) {
		t.Errorf("Expected cycle path [1 2 3], got %v", cycleErr.Path)
	}
}

func TestAddDependencyHierarchyPath(t *testing.T) {
	s := newTestSystem(t, 2)
	mustAddHierarchy(t, s, 1, 2)

	// A task cannot depend on its own subtask, in either direction
	var pathErr DependencyHierarchyPathError
	if err := s.AddDependency(1, 2); !errors.As(err, &pathErr) {
		t.Fatalf("Expected DependencyHierarchyPathError, got %v", err)
	}
	if pathErr.From != 1 || pathErr.To != 2 {
		t.Errorf("Expected hierarchy path from 1 to 2, got from %d to %d", pathErr.From, pathErr.To)
	}

	if err := s.AddDependency(2, 1); !errors.As(err, &pathErr) {
		t.Fatalf("Expected DependencyHierarchyPathError, got %v", err)
	}
	if pathErr.From != 1 || pathErr.To != 2 {
		t.Errorf("Expected hierarchy path from 1 to 2, got from %d to %d", pathErr.From, pathErr.To)
	}
}

func TestAddDependencyStreamCycle(t *testing.T) {
	s := newTestSystem(t, 3)

	// Work flows 1 -> 2 -> (subtask) 3, so 1 cannot also wait on 3
	mustAddHierarchy(t, s, 2, 3)
	mustAddDependency(t, s, 1, 2)

	var streamErr DependencyStreamCycleError
	if err := s.AddDependency(3, 1); !errors.As(err, &streamErr) {
		t.Fatalf("Expected DependencyStreamCycleError, got %v", err)
	}
	if streamErr.Dependee != 3 || streamErr.Dependent != 1 {
		t.Errorf("Expected stream cycle on dependency 3 -> 1, got %+v", streamErr)
	}
}

func TestAddDependencyHierarchyClash(t *testing.T) {
	// 3 already depends on supertask 1, so subtask 2 cannot also link to 3
	s := newTestSystem(t, 3)
	mustAddHierarchy(t, s, 1, 2)
	mustAddDependency(t, s, 1, 3)

	var clashErr DependencyHierarchyClashError
	if err := s.AddDependency(2, 3); !errors.As(err, &clashErr) {
		t.Fatalf("Expected DependencyHierarchyClashError, got %v", err)
	}

	// Mirror case: 3 already depends on subtask 2, so supertask 1 cannot
	// also link to 3
	s = newTestSystem(t, 3)
	mustAddHierarchy(t, s, 1, 2)
	mustAddDependency(t, s, 2, 3)

	if err := s.AddDependency(1, 3); !errors.As(err, &clashErr) {
		t.Fatalf("Expected DependencyHierarchyClashError, got %v", err)
	}
}

func TestAddDependencyDependeeIncomplete(t *testing.T) {
	s := newTestSystem(t, 2)
	mustSetProgress(t, s, 2, models.ProgressInProgress)

	// 2 has started but 1 is not complete
	var incompleteErr DependeeIncompleteError
	if err := s.AddDependency(1, 2); !errors.As(err, &incompleteErr) {
		t.Fatalf("Expected DependeeIncompleteError, got %v", err)
	}
	if incompleteErr.DependeeProgress != models.ProgressNotStarted {
		t.Errorf("Expected dependee progress %q, got %q", models.ProgressNotStarted, incompleteErr.DependeeProgress)
	}
	if incompleteErr.DependentProgress != models.ProgressInProgress {
		t.Errorf("Expected dependent progress %q, got %q", models.ProgressInProgress, incompleteErr.DependentProgress)
	}

	// A completed dependee accepts dependents in any state
	mustSetProgress(t, s, 1, models.ProgressInProgress)
	mustSetProgress(t, s, 1, models.ProgressCompleted)
	if err := s.AddDependency(1, 2); err != nil {
		t.Errorf("Failed to add dependency with completed dependee: %v", err)
	}
}

func TestRemoveDependency(t *testing.T) {
	s := newTestSystem(t, 2)
	mustAddDependency(t, s, 1, 2)

	if err := s.RemoveDependency(1, 2); err != nil {
		t.Fatalf("Failed to remove dependency: %v", err)
	}
	if len(s.Dependents(1)) != 0 {
		t.Errorf("Expected no dependents, got %v", s.Dependents(1))
	}

	var depNotFoundErr DependencyNotFoundError
	if err := s.RemoveDependency(1, 2); !errors.As(err, &depNotFoundErr) {
		t.Errorf("Expected DependencyNotFoundError, got %v", err)
	}
	var notFoundErr NotFoundError
	if err := s.RemoveDependency(1, 99); !errors.As(err, &notFoundErr) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}
