package task

import "github.com/ldi/trellis/pkg/models"

// AddDependency records that dependent cannot start until dependee is
// complete. The validation chain runs in a fixed order: dependency-graph
// shape, then hierarchy entanglement, then stream cycles, then progress
// consistency.
func (s *System) AddDependency(dependee, dependent int64) error {
	if dependee == dependent {
		return DependencyLoopError{UID: dependee}
	}
	for _, uid := range []int64{dependee, dependent} {
		if !s.HasTask(uid) {
			return NotFoundError{UID: uid}
		}
	}
	if s.dependency.HasEdge(dependee, dependent) {
		return DependencyExistsError{Dependee: dependee, Dependent: dependent}
	}
	if s.dependency.HasPath(dependent, dependee) {
		return DependencyCycleError{
			Dependee:  dependee,
			Dependent: dependent,
			Path:      s.dependency.ConnectingPath(dependent, dependee),
		}
	}

	if s.hierarchy.HasPath(dependee, dependent) {
		return DependencyHierarchyPathError{
			Dependee:  dependee,
			Dependent: dependent,
			From:      dependee,
			To:        dependent,
			Path:      s.hierarchy.ConnectingPath(dependee, dependent),
		}
	}
	if s.hierarchy.HasPath(dependent, dependee) {
		return DependencyHierarchyPathError{
			Dependee:  dependee,
			Dependent: dependent,
			From:      dependent,
			To:        dependee,
			Path:      s.hierarchy.ConnectingPath(dependent, dependee),
		}
	}

	// A stream path ending at the dependee, whether from the dependent
	// itself or reaching through inferiors of either endpoint, would close
	// a cycle once the new edge lands.
	if s.hasStreamPath(dependent, dependee) ||
		s.hasStreamPathFromInferior(dependent, dependee) ||
		s.hasStreamPathToInferior(dependent, dependee) {
		return DependencyStreamCycleError{Dependee: dependee, Dependent: dependent}
	}

	if s.hasHierarchyClash(dependee, dependent) {
		return DependencyHierarchyClashError{Dependee: dependee, Dependent: dependent}
	}

	dependeeProgress := s.progressOf(dependee)
	if dependeeProgress != models.ProgressCompleted {
		if dependentProgress := s.progressOf(dependent); dependentProgress != models.ProgressNotStarted {
			return DependeeIncompleteError{
				Dependee:          dependee,
				Dependent:         dependent,
				DependeeProgress:  dependeeProgress,
				DependentProgress: dependentProgress,
			}
		}
	}

	s.dependency.AddEdge(dependee, dependent)
	return nil
}

// RemoveDependency removes the dependee -> dependent edge.
func (s *System) RemoveDependency(dependee, dependent int64) error {
	for _, uid := range []int64{dependee, dependent} {
		if !s.HasTask(uid) {
			return NotFoundError{UID: uid}
		}
	}
	if !s.dependency.HasEdge(dependee, dependent) {
		return DependencyNotFoundError{Dependee: dependee, Dependent: dependent}
	}
	s.dependency.RemoveEdge(dependee, dependent)
	return nil
}

// hasHierarchyClash checks whether the hierarchy line of the dependee (the
// task plus its superiors and inferiors) and the hierarchy line of the
// dependent are already dependency-linked with one another. Such a link
// plus the new edge would constrain the same work twice.
func (s *System) hasHierarchyClash(dependee, dependent int64) bool {
	dependeeLine := s.hierarchyLine(dependee)
	linked := s.dependencyLinked(dependeeLine)

	for uid := range s.hierarchyLine(dependent) {
		if _, ok := linked[uid]; ok {
			return true
		}
	}
	return false
}

// hierarchyLine returns uid together with all of its superiors and
// inferiors.
func (s *System) hierarchyLine(uid int64) map[int64]struct{} {
	line := map[int64]struct{}{uid: {}}
	for superior := range s.superiors(uid) {
		line[superior] = struct{}{}
	}
	for inferior := range s.inferiors(uid) {
		line[inferior] = struct{}{}
	}
	return line
}
