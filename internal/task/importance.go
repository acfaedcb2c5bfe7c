package task

import (
	"slices"

	"github.com/ldi/trellis/pkg/models"
)

// SetImportance sets or clears the importance of a task. nil clears it.
//
// A task may only be given its own importance when none of its superiors or
// inferiors carries one, so that each hierarchy line has at most one source
// of importance. Clearing, or replacing an importance the task already has,
// is always allowed.
func (s *System) SetImportance(uid int64, importance *models.Importance) error {
	if !s.HasTask(uid) {
		return NotFoundError{UID: uid}
	}
	if importance == nil || s.attrs[uid].Importance != nil {
		s.attrs[uid].Importance = importance
		return nil
	}

	var withImportance []int64
	for _, supertask := range s.hierarchy.Predecessors(uid) {
		if s.attrs[supertask].Importance != nil {
			withImportance = append(withImportance, supertask)
		}
	}
	if len(withImportance) > 0 {
		return SuperiorHasImportanceError{UID: uid, Superiors: withImportance}
	}
	for superior := range s.superiors(uid) {
		if s.attrs[superior].Importance != nil {
			withImportance = append(withImportance, superior)
		}
	}
	if len(withImportance) > 0 {
		return SuperiorHasImportanceError{UID: uid, Superiors: sortUIDs(withImportance)}
	}

	for _, subtask := range s.hierarchy.Successors(uid) {
		if s.attrs[subtask].Importance != nil {
			withImportance = append(withImportance, subtask)
		}
	}
	if len(withImportance) > 0 {
		return InferiorHasImportanceError{UID: uid, Inferiors: withImportance}
	}
	for inferior := range s.inferiors(uid) {
		if s.attrs[inferior].Importance != nil {
			withImportance = append(withImportance, inferior)
		}
	}
	if len(withImportance) > 0 {
		return InferiorHasImportanceError{UID: uid, Inferiors: sortUIDs(withImportance)}
	}

	s.attrs[uid].Importance = importance
	return nil
}

// InferredImportances returns the importances a task inherits from its
// superiors, lowest first. A task with its own importance inherits nothing.
func (s *System) InferredImportances(uid int64) ([]models.Importance, error) {
	if !s.HasTask(uid) {
		return nil, NotFoundError{UID: uid}
	}
	if s.attrs[uid].Importance != nil {
		return nil, nil
	}
	return s.inferredImportances(uid), nil
}

// inferredImportances walks up the hierarchy collecting importances.
// Each branch stops at the first importance found, since anything above it
// cannot carry one. The walk ends early once every level has been seen.
func (s *System) inferredImportances(uid int64) []models.Importance {
	found := make(map[models.Importance]struct{})
	visited := make(map[int64]struct{})
	queue := append([]int64(nil), s.hierarchy.Predecessors(uid)...)

	for len(queue) > 0 && len(found) < 3 {
		superior := queue[0]
		queue = queue[1:]
		if _, ok := visited[superior]; ok {
			continue
		}
		visited[superior] = struct{}{}

		if importance := s.attrs[superior].Importance; importance != nil {
			found[*importance] = struct{}{}
			continue
		}
		queue = append(queue, s.hierarchy.Predecessors(superior)...)
	}

	if len(found) == 0 {
		return nil
	}
	importances := make([]models.Importance, 0, len(found))
	for importance := range found {
		importances = append(importances, importance)
	}
	slices.SortFunc(importances, func(a, b models.Importance) int {
		return a.Rank() - b.Rank()
	})
	return importances
}

// EffectiveImportance returns the task's own importance when set, otherwise
// the highest importance inherited from its superiors, otherwise nil.
func (s *System) EffectiveImportance(uid int64) (*models.Importance, error) {
	if !s.HasTask(uid) {
		return nil, NotFoundError{UID: uid}
	}
	return s.effectiveImportance(uid), nil
}

func (s *System) effectiveImportance(uid int64) *models.Importance {
	if importance := s.attrs[uid].Importance; importance != nil {
		return importance
	}
	inferred := s.inferredImportances(uid)
	if len(inferred) == 0 {
		return nil
	}
	highest := inferred[len(inferred)-1]
	return &highest
}
