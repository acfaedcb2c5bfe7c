// Package task holds the in-memory task network and every domain rule that
// governs it: hierarchy and dependency validation, progress and importance
// inference, stream reachability, and priority ranking. Persistence lives
// elsewhere; a System is loaded from rows, mutated, and its effects written
// back.
package task

import (
	"slices"

	"github.com/ldi/trellis/internal/graph"
	"github.com/ldi/trellis/pkg/models"
)

// System is the task network: per-task attributes plus the hierarchy graph
// (supertask -> subtask) and the dependency graph (dependee -> dependent).
// Both graphs always contain exactly the registered task uids as nodes.
type System struct {
	attrs      map[int64]*models.Task
	hierarchy  *graph.DiGraph
	dependency *graph.DiGraph
}

func NewSystem() *System {
	return &System{
		attrs:      make(map[int64]*models.Task),
		hierarchy:  graph.New(),
		dependency: graph.New(),
	}
}

// FromNetwork builds a System from stored rows. Edges referencing unknown
// tasks report NotFoundError; edge validity beyond that is trusted, since
// the rows were validated when written.
func FromNetwork(n *models.Network) (*System, error) {
	s := NewSystem()
	for _, t := range n.Tasks {
		if err := s.AddTask(t); err != nil {
			return nil, err
		}
	}
	for _, h := range n.Hierarchies {
		for _, uid := range []int64{h.SupertaskUID, h.SubtaskUID} {
			if !s.HasTask(uid) {
				return nil, NotFoundError{UID: uid}
			}
		}
		s.hierarchy.AddEdge(h.SupertaskUID, h.SubtaskUID)
	}
	for _, d := range n.Dependencies {
		for _, uid := range []int64{d.DependeeUID, d.DependentUID} {
			if !s.HasTask(uid) {
				return nil, NotFoundError{UID: uid}
			}
		}
		s.dependency.AddEdge(d.DependeeUID, d.DependentUID)
	}
	return s, nil
}

func (s *System) HasTask(uid int64) bool {
	_, ok := s.attrs[uid]
	return ok
}

// Task returns the stored attributes of a task, or nil when it is unknown.
func (s *System) Task(uid int64) *models.Task {
	return s.attrs[uid]
}

// Tasks returns every task uid in ascending order.
func (s *System) Tasks() []int64 {
	uids := make([]int64, 0, len(s.attrs))
	for uid := range s.attrs {
		uids = append(uids, uid)
	}
	slices.Sort(uids)
	return uids
}

func (s *System) Len() int {
	return len(s.attrs)
}

// AddTask registers a task under its uid.
func (s *System) AddTask(t *models.Task) error {
	if s.HasTask(t.UID) {
		return AlreadyExistsError{UID: t.UID}
	}
	s.attrs[t.UID] = t
	s.hierarchy.AddNode(t.UID)
	s.dependency.AddNode(t.UID)
	return nil
}

// RemoveTask removes a fully isolated task. Tasks still referenced by any
// hierarchy or dependency edge are rejected.
func (s *System) RemoveTask(uid int64) error {
	if !s.HasTask(uid) {
		return NotFoundError{UID: uid}
	}
	if supertasks := s.hierarchy.Predecessors(uid); len(supertasks) > 0 {
		return HasSuperTasksError{UID: uid, Supertasks: supertasks}
	}
	if subtasks := s.hierarchy.Successors(uid); len(subtasks) > 0 {
		return HasSubTasksError{UID: uid, Subtasks: subtasks}
	}
	if dependees := s.dependency.Predecessors(uid); len(dependees) > 0 {
		return HasDependeeTasksError{UID: uid, Dependees: dependees}
	}
	if dependents := s.dependency.Successors(uid); len(dependents) > 0 {
		return HasDependentTasksError{UID: uid, Dependents: dependents}
	}
	delete(s.attrs, uid)
	s.hierarchy.RemoveNode(uid)
	s.dependency.RemoveNode(uid)
	return nil
}

// SetName sets or clears the task name. nil means absent.
func (s *System) SetName(uid int64, name *string) error {
	t, ok := s.attrs[uid]
	if !ok {
		return NotFoundError{UID: uid}
	}
	t.Name = name
	return nil
}

// SetDescription sets or clears the task description. nil means absent.
func (s *System) SetDescription(uid int64, description *string) error {
	t, ok := s.attrs[uid]
	if !ok {
		return NotFoundError{UID: uid}
	}
	t.Description = description
	return nil
}

// Supertasks returns the direct supertasks of a task.
func (s *System) Supertasks(uid int64) []int64 {
	return s.hierarchy.Predecessors(uid)
}

// Subtasks returns the direct subtasks of a task.
func (s *System) Subtasks(uid int64) []int64 {
	return s.hierarchy.Successors(uid)
}

// Dependees returns the tasks this task depends on.
func (s *System) Dependees(uid int64) []int64 {
	return s.dependency.Predecessors(uid)
}

// Dependents returns the tasks that depend on this task.
func (s *System) Dependents(uid int64) []int64 {
	return s.dependency.Successors(uid)
}

// IsConcrete reports whether the task has no subtasks. Only concrete tasks
// carry their own progress.
func (s *System) IsConcrete(uid int64) bool {
	return s.hierarchy.OutDegree(uid) == 0
}

// HierarchyGraph exposes the hierarchy edges for layout and export. The
// returned graph is shared; callers must not mutate it.
func (s *System) HierarchyGraph() *graph.DiGraph {
	return s.hierarchy
}

// DependencyGraph exposes the dependency edges for layout and export. The
// returned graph is shared; callers must not mutate it.
func (s *System) DependencyGraph() *graph.DiGraph {
	return s.dependency
}

// superiors returns every transitive supertask of uid, excluding uid.
func (s *System) superiors(uid int64) map[int64]struct{} {
	return s.hierarchy.Ancestors(uid)
}

// inferiors returns every transitive subtask of uid, excluding uid.
func (s *System) inferiors(uid int64) map[int64]struct{} {
	return s.hierarchy.Descendants(uid)
}

func sortUIDs(uids []int64) []int64 {
	slices.Sort(uids)
	return uids
}
