package task

import (
	"sort"

	"github.com/ldi/trellis/pkg/models"
)

// Ranked pairs an active concrete task with the highest importance of the
// tasks downstream of it, nil when nothing downstream carries one.
type Ranked struct {
	Task       *models.Task
	Importance *models.Importance
}

// ActiveConcreteTasksByPriority returns the active concrete tasks in order
// of descending priority.
//
// A task inherits the importance of every incomplete concrete task it is
// upstream of, on the grounds that finishing it unblocks that work. Tasks
// are then ordered by the highest importance they inherit, with further
// progressed tasks first within a level and unprioritised tasks last.
func (s *System) ActiveConcreteTasksByPriority() []Ranked {
	concrete := s.concreteTasks()

	scorecards := make(map[int64]*models.Importance)
	for _, uid := range concrete {
		if s.isActive(uid) {
			scorecards[uid] = nil
		}
	}

	byImportance := make(map[models.Importance][]int64)
	for _, uid := range concrete {
		if *s.attrs[uid].Progress == models.ProgressCompleted {
			continue
		}
		importance := s.effectiveImportance(uid)
		if importance == nil {
			continue
		}
		byImportance[*importance] = append(byImportance[*importance], uid)
	}

	for importance, tasks := range byImportance {
		for _, uid := range tasks {
			upstream := map[int64]struct{}{uid: {}}
			s.forEachUpstream(uid, func(t int64) bool {
				upstream[t] = struct{}{}
				return false
			})
			for active, highest := range scorecards {
				if _, ok := upstream[active]; !ok {
					continue
				}
				if highest == nil || importance.Rank() > highest.Rank() {
					i := importance
					scorecards[active] = &i
				}
			}
		}
	}

	ranked := make([]Ranked, 0, len(scorecards))
	for uid, importance := range scorecards {
		ranked = append(ranked, Ranked{Task: s.attrs[uid], Importance: importance})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if (a.Importance == nil) != (b.Importance == nil) {
			return b.Importance == nil
		}
		if a.Importance != nil && a.Importance.Rank() != b.Importance.Rank() {
			return a.Importance.Rank() > b.Importance.Rank()
		}
		if pa, pb := a.Task.Progress.Step(), b.Task.Progress.Step(); pa != pb {
			return pa > pb
		}
		return a.Task.UID < b.Task.UID
	})
	return ranked
}

// concreteTasks returns every task with no subtasks, sorted by uid.
func (s *System) concreteTasks() []int64 {
	var concrete []int64
	for _, uid := range s.Tasks() {
		if s.IsConcrete(uid) {
			concrete = append(concrete, uid)
		}
	}
	return concrete
}
