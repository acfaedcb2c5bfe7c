package task

import (
	"fmt"

	"github.com/ldi/trellis/pkg/models"
)

// NotFoundError is returned when an operation references a task uid that is
// not in the system.
type NotFoundError struct {
	UID int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("task [%d] does not exist", e.UID)
}

// AlreadyExistsError is returned when a task uid is added twice, which can
// only happen through snapshot import.
type AlreadyExistsError struct {
	UID int64
}

func (e AlreadyExistsError) Error() string {
	return fmt.Sprintf("task [%d] already exists", e.UID)
}

// HasSuperTasksError rejects removal of a task that still has supertasks.
type HasSuperTasksError struct {
	UID        int64
	Supertasks []int64
}

func (e HasSuperTasksError) Error() string {
	return fmt.Sprintf("task [%d] has supertasks %v", e.UID, e.Supertasks)
}

// HasSubTasksError rejects removal of a task that still has subtasks.
type HasSubTasksError struct {
	UID      int64
	Subtasks []int64
}

func (e HasSubTasksError) Error() string {
	return fmt.Sprintf("task [%d] has subtasks %v", e.UID, e.Subtasks)
}

// HasDependeeTasksError rejects removal of a task that still has dependees.
type HasDependeeTasksError struct {
	UID       int64
	Dependees []int64
}

func (e HasDependeeTasksError) Error() string {
	return fmt.Sprintf("task [%d] has dependee tasks %v", e.UID, e.Dependees)
}

// HasDependentTasksError rejects removal of a task that still has dependents.
type HasDependentTasksError struct {
	UID        int64
	Dependents []int64
}

func (e HasDependentTasksError) Error() string {
	return fmt.Sprintf("task [%d] has dependent tasks %v", e.UID, e.Dependents)
}

// NotConcreteError rejects setting progress on a task that has subtasks.
type NotConcreteError struct {
	UID int64
}

func (e NotConcreteError) Error() string {
	return fmt.Sprintf("task [%d] is not concrete; its progress is inferred from its subtasks", e.UID)
}

// HierarchyLoopError rejects a hierarchy from a task to itself.
type HierarchyLoopError struct {
	UID int64
}

func (e HierarchyLoopError) Error() string {
	return fmt.Sprintf("task [%d] cannot be its own subtask", e.UID)
}

// HierarchyExistsError rejects a duplicate hierarchy.
type HierarchyExistsError struct {
	Supertask int64
	Subtask   int64
}

func (e HierarchyExistsError) Error() string {
	return fmt.Sprintf("hierarchy [%d] -> [%d] already exists", e.Supertask, e.Subtask)
}

// InverseHierarchyExistsError rejects a hierarchy whose inverse already exists.
type InverseHierarchyExistsError struct {
	Supertask int64
	Subtask   int64
}

func (e InverseHierarchyExistsError) Error() string {
	return fmt.Sprintf("inverse hierarchy [%d] -> [%d] already exists", e.Subtask, e.Supertask)
}

// HierarchyNotFoundError is returned when removing a hierarchy that does not
// exist.
type HierarchyNotFoundError struct {
	Supertask int64
	Subtask   int64
}

func (e HierarchyNotFoundError) Error() string {
	return fmt.Sprintf("hierarchy [%d] -> [%d] does not exist", e.Supertask, e.Subtask)
}

// HierarchyCycleError rejects a hierarchy that would make a task its own
// ancestor. Path is the existing subtask -> supertask chain that the new edge
// would close into a cycle.
type HierarchyCycleError struct {
	Supertask int64
	Subtask   int64
	Path      []int64
}

func (e HierarchyCycleError) Error() string {
	return fmt.Sprintf("hierarchy [%d] -> [%d] would introduce a cycle via %v", e.Supertask, e.Subtask, e.Path)
}

// RedundantHierarchyError rejects a hierarchy duplicating an existing
// multi-step path from supertask to subtask. Path is the existing chain.
type RedundantHierarchyError struct {
	Supertask int64
	Subtask   int64
	Path      []int64
}

func (e RedundantHierarchyError) Error() string {
	return fmt.Sprintf("hierarchy [%d] -> [%d] is redundant: path %v already exists", e.Supertask, e.Subtask, e.Path)
}

// SubtaskOfSuperiorError rejects a hierarchy whose subtask is already a
// direct subtask of one of the supertask's superior tasks; the new edge
// would make that superior's edge redundant.
type SubtaskOfSuperiorError struct {
	Supertask int64
	Subtask   int64
	Superiors []int64
}

func (e SubtaskOfSuperiorError) Error() string {
	return fmt.Sprintf("task [%d] is already a subtask of superior tasks %v of task [%d]", e.Subtask, e.Superiors, e.Supertask)
}

// HierarchyDependencyPathError rejects a hierarchy between two tasks that
// are already connected through the dependency graph. From/To give the
// direction of the existing path.
type HierarchyDependencyPathError struct {
	Supertask int64
	Subtask   int64
	From      int64
	To        int64
	Path      []int64
}

func (e HierarchyDependencyPathError) Error() string {
	return fmt.Sprintf("hierarchy [%d] -> [%d] blocked: dependency path from [%d] to [%d] exists via %v", e.Supertask, e.Subtask, e.From, e.To, e.Path)
}

// HierarchyStreamPathError rejects a hierarchy between two tasks connected
// through the combined dependency-and-hierarchy relation. ViaInferior marks
// the paths that run through an inferior task of the subtask.
type HierarchyStreamPathError struct {
	Supertask   int64
	Subtask     int64
	From        int64
	To          int64
	ViaInferior bool
}

func (e HierarchyStreamPathError) Error() string {
	if e.ViaInferior {
		return fmt.Sprintf("hierarchy [%d] -> [%d] blocked: stream path between [%d] and an inferior of [%d] exists", e.Supertask, e.Subtask, e.From, e.To)
	}
	return fmt.Sprintf("hierarchy [%d] -> [%d] blocked: stream path from [%d] to [%d] exists", e.Supertask, e.Subtask, e.From, e.To)
}

// HierarchyDependencyClashError rejects a hierarchy that would pull two
// already-dependency-linked subtrees into one hierarchy line.
type HierarchyDependencyClashError struct {
	Supertask int64
	Subtask   int64
}

func (e HierarchyDependencyClashError) Error() string {
	return fmt.Sprintf("hierarchy [%d] -> [%d] blocked: dependency-linked tasks of the two subtrees would clash", e.Supertask, e.Subtask)
}

// MultipleImportancesError rejects a hierarchy that would place more than
// one importance on a single superior chain.
type MultipleImportancesError struct {
	Supertask int64
	Subtask   int64
}

func (e MultipleImportancesError) Error() string {
	return fmt.Sprintf("hierarchy [%d] -> [%d] blocked: joined hierarchy would carry multiple importances", e.Supertask, e.Subtask)
}

// IncompleteSupertaskDependeesError rejects attaching a started subtask
// under a supertask whose dependees (direct or via superiors) are not all
// completed.
type IncompleteSupertaskDependeesError struct {
	Supertask int64
	Subtask   int64
	Dependees []int64
}

func (e IncompleteSupertaskDependeesError) Error() string {
	return fmt.Sprintf("hierarchy [%d] -> [%d] blocked: subtask has started but dependee tasks %v are incomplete", e.Supertask, e.Subtask, e.Dependees)
}

// StartedSupertaskDependentsError rejects attaching an incomplete subtask
// under a supertask whose dependents (direct or via superiors) have started.
type StartedSupertaskDependentsError struct {
	Supertask  int64
	Subtask    int64
	Dependents []int64
}

func (e StartedSupertaskDependentsError) Error() string {
	return fmt.Sprintf("hierarchy [%d] -> [%d] blocked: subtask is incomplete but dependent tasks %v have started", e.Supertask, e.Subtask, e.Dependents)
}

// ProgressMismatchError rejects turning a concrete task into a supertask
// when its own progress differs from the subtask's.
type ProgressMismatchError struct {
	Supertask         int64
	SupertaskProgress models.Progress
	Subtask           int64
	SubtaskProgress   models.Progress
}

func (e ProgressMismatchError) Error() string {
	return fmt.Sprintf("task [%d] is %q but new subtask [%d] is %q", e.Supertask, e.SupertaskProgress, e.Subtask, e.SubtaskProgress)
}

// DependencyLoopError rejects a dependency from a task to itself.
type DependencyLoopError struct {
	UID int64
}

func (e DependencyLoopError) Error() string {
	return fmt.Sprintf("task [%d] cannot depend on itself", e.UID)
}

// DependencyExistsError rejects a duplicate dependency.
type DependencyExistsError struct {
	Dependee  int64
	Dependent int64
}

func (e DependencyExistsError) Error() string {
	return fmt.Sprintf("dependency [%d] -> [%d] already exists", e.Dependee, e.Dependent)
}

// DependencyNotFoundError is returned when removing a dependency that does
// not exist.
type DependencyNotFoundError struct {
	Dependee  int64
	Dependent int64
}

func (e DependencyNotFoundError) Error() string {
	return fmt.Sprintf("dependency [%d] -> [%d] does not exist", e.Dependee, e.Dependent)
}

// DependencyCycleError rejects a dependency that would close a cycle in the
// dependency graph. Path is the existing chain from dependent to dependee.
type DependencyCycleError struct {
	Dependee  int64
	Dependent int64
	Path      []int64
}

func (e DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency [%d] -> [%d] would introduce a cycle via %v", e.Dependee, e.Dependent, e.Path)
}

// DependencyHierarchyPathError rejects a dependency between two tasks that
// are already connected through the hierarchy graph.
type DependencyHierarchyPathError struct {
	Dependee  int64
	Dependent int64
	From      int64
	To        int64
	Path      []int64
}

func (e DependencyHierarchyPathError) Error() string {
	return fmt.Sprintf("dependency [%d] -> [%d] blocked: hierarchy path from [%d] to [%d] exists via %v", e.Dependee, e.Dependent, e.From, e.To, e.Path)
}

// DependencyStreamCycleError rejects a dependency that would close a cycle
// in the combined dependency-and-hierarchy relation, directly or through
// inferior tasks of either endpoint.
type DependencyStreamCycleError struct {
	Dependee  int64
	Dependent int64
}

func (e DependencyStreamCycleError) Error() string {
	return fmt.Sprintf("dependency [%d] -> [%d] would introduce a stream cycle", e.Dependee, e.Dependent)
}

// DependencyHierarchyClashError rejects a dependency whose endpoints'
// hierarchy lines are already dependency-linked.
type DependencyHierarchyClashError struct {
	Dependee  int64
	Dependent int64
}

func (e DependencyHierarchyClashError) Error() string {
	return fmt.Sprintf("dependency [%d] -> [%d] blocked: the tasks' hierarchy lines are already dependency-linked", e.Dependee, e.Dependent)
}

// DependeeIncompleteError rejects a dependency from an incomplete dependee
// to a dependent that has already started.
type DependeeIncompleteError struct {
	Dependee          int64
	Dependent         int64
	DependeeProgress  models.Progress
	DependentProgress models.Progress
}

func (e DependeeIncompleteError) Error() string {
	return fmt.Sprintf("dependency [%d] -> [%d] blocked: dependee is %q but dependent is already %q", e.Dependee, e.Dependent, e.DependeeProgress, e.DependentProgress)
}

// IncompleteDependeesError rejects starting a task whose dependees (direct
// or via superiors) are not all completed.
type IncompleteDependeesError struct {
	UID       int64
	Dependees []int64
}

func (e IncompleteDependeesError) Error() string {
	return fmt.Sprintf("task [%d] cannot start: dependee tasks %v are incomplete", e.UID, e.Dependees)
}

// StartedDependentsError rejects un-completing a task whose dependents
// (direct or via superiors) have already started.
type StartedDependentsError struct {
	UID        int64
	Dependents []int64
}

func (e StartedDependentsError) Error() string {
	return fmt.Sprintf("task [%d] cannot be un-completed: dependent tasks %v have started", e.UID, e.Dependents)
}

// SuperiorHasImportanceError rejects setting importance on a task with an
// importance-carrying superior.
type SuperiorHasImportanceError struct {
	UID       int64
	Superiors []int64
}

func (e SuperiorHasImportanceError) Error() string {
	return fmt.Sprintf("task [%d] cannot take an importance: superior tasks %v already carry one", e.UID, e.Superiors)
}

// InferiorHasImportanceError rejects setting importance on a task with an
// importance-carrying inferior.
type InferiorHasImportanceError struct {
	UID       int64
	Inferiors []int64
}

func (e InferiorHasImportanceError) Error() string {
	return fmt.Sprintf("task [%d] cannot take an importance: inferior tasks %v already carry one", e.UID, e.Inferiors)
}
