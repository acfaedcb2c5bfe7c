package task

import "github.com/ldi/trellis/pkg/models"

// AddHierarchy makes subtask a subtask of supertask after running the full
// validation chain. The checks run in a fixed order so callers always see
// the most fundamental failure first: graph-shape rules, then cross-graph
// rules, then importance and progress consistency.
func (s *System) AddHierarchy(supertask, subtask int64) error {
	if supertask == subtask {
		return HierarchyLoopError{UID: supertask}
	}
	for _, uid := range []int64{supertask, subtask} {
		if !s.HasTask(uid) {
			return NotFoundError{UID: uid}
		}
	}
	if s.hierarchy.HasEdge(supertask, subtask) {
		return HierarchyExistsError{Supertask: supertask, Subtask: subtask}
	}
	if s.hierarchy.HasEdge(subtask, supertask) {
		return InverseHierarchyExistsError{Supertask: supertask, Subtask: subtask}
	}
	if s.hierarchy.HasPath(subtask, supertask) {
		return HierarchyCycleError{
			Supertask: supertask,
			Subtask:   subtask,
			Path:      s.hierarchy.ConnectingPath(subtask, supertask),
		}
	}
	if s.hierarchy.HasPath(supertask, subtask) {
		return RedundantHierarchyError{
			Supertask: supertask,
			Subtask:   subtask,
			Path:      s.hierarchy.ConnectingPath(supertask, subtask),
		}
	}
	// Attaching under supertask while a superior of supertask already holds
	// subtask directly would make that superior's edge redundant.
	var redundantSuperiors []int64
	for ancestor := range s.superiors(supertask) {
		if s.hierarchy.HasEdge(ancestor, subtask) {
			redundantSuperiors = append(redundantSuperiors, ancestor)
		}
	}
	if len(redundantSuperiors) > 0 {
		return SubtaskOfSuperiorError{
			Supertask: supertask,
			Subtask:   subtask,
			Superiors: sortUIDs(redundantSuperiors),
		}
	}

	if s.dependency.HasPath(supertask, subtask) {
		return HierarchyDependencyPathError{
			Supertask: supertask,
			Subtask:   subtask,
			From:      supertask,
			To:        subtask,
			Path:      s.dependency.ConnectingPath(supertask, subtask),
		}
	}
	if s.dependency.HasPath(subtask, supertask) {
		return HierarchyDependencyPathError{
			Supertask: supertask,
			Subtask:   subtask,
			From:      subtask,
			To:        supertask,
			Path:      s.dependency.ConnectingPath(subtask, supertask),
		}
	}

	if s.hasStreamPath(supertask, subtask) {
		return HierarchyStreamPathError{Supertask: supertask, Subtask: subtask, From: supertask, To: subtask}
	}
	if s.hasStreamPath(subtask, supertask) {
		return HierarchyStreamPathError{Supertask: supertask, Subtask: subtask, From: subtask, To: supertask}
	}
	if s.hasStreamPathToInferior(supertask, subtask) {
		return HierarchyStreamPathError{Supertask: supertask, Subtask: subtask, From: supertask, To: subtask, ViaInferior: true}
	}
	if s.hasStreamPathFromInferior(subtask, supertask) {
		return HierarchyStreamPathError{Supertask: supertask, Subtask: subtask, From: subtask, To: supertask, ViaInferior: true}
	}

	if s.hasDependencyClash(supertask, subtask) {
		return HierarchyDependencyClashError{Supertask: supertask, Subtask: subtask}
	}

	if s.lineCarriesImportanceUp(supertask) && s.lineCarriesImportanceDown(subtask) {
		return MultipleImportancesError{Supertask: supertask, Subtask: subtask}
	}

	subtaskProgress := s.progressOf(subtask)
	if subtaskProgress != models.ProgressNotStarted {
		if incomplete := s.incompleteDependees(supertask); len(incomplete) > 0 {
			return IncompleteSupertaskDependeesError{Supertask: supertask, Subtask: subtask, Dependees: incomplete}
		}
	}
	if subtaskProgress != models.ProgressCompleted {
		if started := s.startedDependents(supertask); len(started) > 0 {
			return StartedSupertaskDependentsError{Supertask: supertask, Subtask: subtask, Dependents: started}
		}
	}

	if s.IsConcrete(supertask) {
		supertaskProgress := *s.attrs[supertask].Progress
		if supertaskProgress != subtaskProgress {
			return ProgressMismatchError{
				Supertask:         supertask,
				SupertaskProgress: supertaskProgress,
				Subtask:           subtask,
				SubtaskProgress:   subtaskProgress,
			}
		}
		// The supertask stops being concrete; from here on its progress is
		// inferred from its subtasks.
		s.attrs[supertask].Progress = nil
	}

	s.hierarchy.AddEdge(supertask, subtask)
	return nil
}

// RemoveHierarchy removes the supertask -> subtask edge. When the supertask
// loses its only subtask it becomes concrete again and takes over the
// subtask's inferred progress as its own.
func (s *System) RemoveHierarchy(supertask, subtask int64) error {
	for _, uid := range []int64{supertask, subtask} {
		if !s.HasTask(uid) {
			return NotFoundError{UID: uid}
		}
	}
	if !s.hierarchy.HasEdge(supertask, subtask) {
		return HierarchyNotFoundError{Supertask: supertask, Subtask: subtask}
	}

	if s.hierarchy.OutDegree(supertask) == 1 {
		progress := s.progressOf(subtask)
		s.attrs[supertask].Progress = &progress
	}

	s.hierarchy.RemoveEdge(supertask, subtask)
	return nil
}

// hasDependencyClash checks whether the dependency-linked tasks of the
// supertask's superior line and the dependency-linked tasks of the
// subtask's inferior line are hierarchically related (superior to, inferior
// to, or the same as one another). Joining such subtrees would let one
// dependency constrain the other twice over.
func (s *System) hasDependencyClash(supertask, subtask int64) bool {
	superLine := map[int64]struct{}{supertask: {}}
	for uid := range s.superiors(supertask) {
		superLine[uid] = struct{}{}
	}
	superLinked := s.dependencyLinked(superLine)

	// Everything hierarchically related to the super-line's linked tasks.
	related := make(map[int64]struct{}, len(superLinked))
	for uid := range superLinked {
		related[uid] = struct{}{}
		for superior := range s.superiors(uid) {
			related[superior] = struct{}{}
		}
		for inferior := range s.inferiors(uid) {
			related[inferior] = struct{}{}
		}
	}

	subLine := map[int64]struct{}{subtask: {}}
	for uid := range s.inferiors(subtask) {
		subLine[uid] = struct{}{}
	}
	for uid := range s.dependencyLinked(subLine) {
		if _, ok := related[uid]; ok {
			return true
		}
	}
	return false
}

// dependencyLinked returns the union of dependees and dependents of every
// task in the given set.
func (s *System) dependencyLinked(tasks map[int64]struct{}) map[int64]struct{} {
	linked := make(map[int64]struct{})
	for uid := range tasks {
		for _, dependee := range s.dependency.Predecessors(uid) {
			linked[dependee] = struct{}{}
		}
		for _, dependent := range s.dependency.Successors(uid) {
			linked[dependent] = struct{}{}
		}
	}
	return linked
}

// lineCarriesImportanceUp reports whether uid or any of its superiors
// carries an importance of its own.
func (s *System) lineCarriesImportanceUp(uid int64) bool {
	if s.attrs[uid].Importance != nil {
		return true
	}
	for superior := range s.superiors(uid) {
		if s.attrs[superior].Importance != nil {
			return true
		}
	}
	return false
}

// lineCarriesImportanceDown reports whether uid or any of its inferiors
// carries an importance of its own.
func (s *System) lineCarriesImportanceDown(uid int64) bool {
	if s.attrs[uid].Importance != nil {
		return true
	}
	for inferior := range s.inferiors(uid) {
		if s.attrs[inferior].Importance != nil {
			return true
		}
	}
	return false
}
