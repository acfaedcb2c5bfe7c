package task

import "github.com/ldi/trellis/pkg/models"

// Progress returns the progress of a task. Concrete tasks report their own
// progress; non-concrete tasks report the progress inferred from their
// concrete inferiors.
func (s *System) Progress(uid int64) (models.Progress, error) {
	if !s.HasTask(uid) {
		return "", NotFoundError{UID: uid}
	}
	return s.progressOf(uid), nil
}

func (s *System) progressOf(uid int64) models.Progress {
	if s.IsConcrete(uid) {
		return *s.attrs[uid].Progress
	}
	return s.inferredProgress(uid)
}

// inferredProgress folds the progress of every concrete inferior. Any task
// in progress, or a mix of unstarted and completed tasks, makes the whole
// subtree in progress; otherwise all concrete inferiors agree.
func (s *System) inferredProgress(uid int64) models.Progress {
	var progress *models.Progress
	for inferior := range s.inferiors(uid) {
		if !s.IsConcrete(inferior) {
			continue
		}
		p := *s.attrs[inferior].Progress
		switch p {
		case models.ProgressInProgress:
			return models.ProgressInProgress
		case models.ProgressNotStarted:
			if progress != nil && *progress == models.ProgressCompleted {
				return models.ProgressInProgress
			}
		case models.ProgressCompleted:
			if progress != nil && *progress == models.ProgressNotStarted {
				return models.ProgressInProgress
			}
		}
		progress = &p
	}
	return *progress
}

// SetProgress sets the progress of a concrete task.
//
// Leaving the completed state is rejected while any dependent task has
// started, and leaving the unstarted state is rejected while any dependee
// task is incomplete. Dependents and dependees of superior tasks count too,
// since those edges constrain the whole subtree.
func (s *System) SetProgress(uid int64, progress models.Progress) error {
	if !s.HasTask(uid) {
		return NotFoundError{UID: uid}
	}
	if !s.IsConcrete(uid) {
		return NotConcreteError{UID: uid}
	}

	switch *s.attrs[uid].Progress {
	case models.ProgressCompleted:
		if progress != models.ProgressCompleted {
			if started := s.startedDependents(uid); len(started) > 0 {
				return StartedDependentsError{UID: uid, Dependents: started}
			}
		}
	case models.ProgressNotStarted:
		if progress != models.ProgressNotStarted {
			if incomplete := s.incompleteDependees(uid); len(incomplete) > 0 {
				return IncompleteDependeesError{UID: uid, Dependees: incomplete}
			}
		}
	}

	s.attrs[uid].Progress = &progress
	return nil
}

// IsActive reports whether a task is ready to be worked on. Completed tasks
// are never active, tasks in progress always are, and unstarted tasks are
// active once every dependee, direct or inherited from a superior, is
// complete.
func (s *System) IsActive(uid int64) (bool, error) {
	if !s.HasTask(uid) {
		return false, NotFoundError{UID: uid}
	}
	return s.isActive(uid), nil
}

func (s *System) isActive(uid int64) bool {
	switch s.progressOf(uid) {
	case models.ProgressCompleted:
		return false
	case models.ProgressInProgress:
		return true
	}
	for _, dependee := range s.dependency.Predecessors(uid) {
		if s.progressOf(dependee) != models.ProgressCompleted {
			return false
		}
	}
	for _, dependee := range s.dependeesOfSuperiors(uid) {
		if s.progressOf(dependee) != models.ProgressCompleted {
			return false
		}
	}
	return true
}

// incompleteDependees returns the dependees of uid that are not completed.
// Direct dependees are reported first; only when all of those are complete
// are the dependees of superior tasks consulted.
func (s *System) incompleteDependees(uid int64) []int64 {
	var incomplete []int64
	for _, dependee := range s.dependency.Predecessors(uid) {
		if s.progressOf(dependee) != models.ProgressCompleted {
			incomplete = append(incomplete, dependee)
		}
	}
	if len(incomplete) > 0 {
		return incomplete
	}
	for _, dependee := range s.dependeesOfSuperiors(uid) {
		if s.progressOf(dependee) != models.ProgressCompleted {
			incomplete = append(incomplete, dependee)
		}
	}
	return sortUIDs(incomplete)
}

// startedDependents returns the dependents of uid that have started. Direct
// dependents are reported first, then those of superior tasks.
func (s *System) startedDependents(uid int64) []int64 {
	var started []int64
	for _, dependent := range s.dependency.Successors(uid) {
		if s.progressOf(dependent) != models.ProgressNotStarted {
			started = append(started, dependent)
		}
	}
	if len(started) > 0 {
		return started
	}
	for _, dependent := range s.dependentsOfSuperiors(uid) {
		if s.progressOf(dependent) != models.ProgressNotStarted {
			started = append(started, dependent)
		}
	}
	return sortUIDs(started)
}

// dependeesOfSuperiors returns the distinct dependees of every superior
// task of uid.
func (s *System) dependeesOfSuperiors(uid int64) []int64 {
	seen := make(map[int64]struct{})
	var dependees []int64
	for superior := range s.superiors(uid) {
		for _, dependee := range s.dependency.Predecessors(superior) {
			if _, ok := seen[dependee]; ok {
				continue
			}
			seen[dependee] = struct{}{}
			dependees = append(dependees, dependee)
		}
	}
	return sortUIDs(dependees)
}

// dependentsOfSuperiors returns the distinct dependents of every superior
// task of uid.
func (s *System) dependentsOfSuperiors(uid int64) []int64 {
	seen := make(map[int64]struct{})
	var dependents []int64
	for superior := range s.superiors(uid) {
		for _, dependent := range s.dependency.Successors(superior) {
			if _, ok := seen[dependent]; ok {
				continue
			}
			seen[dependent] = struct{}{}
			dependents = append(dependents, dependent)
		}
	}
	return sortUIDs(dependents)
}
