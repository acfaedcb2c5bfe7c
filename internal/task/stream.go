package task

// Stream traversal follows both graphs at once. A task's work flows to its
// dependents, to its subtasks, and to the dependents of anything above it in
// the hierarchy. Supertasks reached along the way are not themselves part of
// the stream; they only contribute their dependency edges.

// forEachDownstream walks every task downstream of uid, calling visit for
// each one. Traversal stops early when visit returns true.
func (s *System) forEachDownstream(uid int64, visit func(int64) bool) {
	downstream := append([]int64(nil), s.dependency.Successors(uid)...)
	supertasks := append([]int64(nil), s.hierarchy.Predecessors(uid)...)

	visitedDownstream := make(map[int64]struct{})
	visitedSupertasks := make(map[int64]struct{})

	for len(downstream) > 0 || len(supertasks) > 0 {
		for len(downstream) > 0 {
			next := downstream[0]
			downstream = downstream[1:]
			if _, ok := visitedDownstream[next]; ok {
				continue
			}
			if visit(next) {
				return
			}
			visitedDownstream[next] = struct{}{}
			downstream = append(downstream, s.dependency.Successors(next)...)
			downstream = append(downstream, s.hierarchy.Successors(next)...)
			supertasks = append(supertasks, s.hierarchy.Predecessors(next)...)
		}

		for len(supertasks) > 0 {
			next := supertasks[0]
			supertasks = supertasks[1:]
			if _, ok := visitedSupertasks[next]; ok {
				continue
			}
			visitedSupertasks[next] = struct{}{}
			supertasks = append(supertasks, s.hierarchy.Predecessors(next)...)
			downstream = append(downstream, s.dependency.Successors(next)...)
		}
	}
}

// forEachUpstream mirrors forEachDownstream against the flow of work.
func (s *System) forEachUpstream(uid int64, visit func(int64) bool) {
	upstream := append([]int64(nil), s.dependency.Predecessors(uid)...)
	supertasks := append([]int64(nil), s.hierarchy.Predecessors(uid)...)

	visitedUpstream := make(map[int64]struct{})
	visitedSupertasks := make(map[int64]struct{})

	for len(upstream) > 0 || len(supertasks) > 0 {
		for len(upstream) > 0 {
			next := upstream[0]
			upstream = upstream[1:]
			if _, ok := visitedUpstream[next]; ok {
				continue
			}
			if visit(next) {
				return
			}
			visitedUpstream[next] = struct{}{}
			upstream = append(upstream, s.dependency.Predecessors(next)...)
			upstream = append(upstream, s.hierarchy.Successors(next)...)
			supertasks = append(supertasks, s.hierarchy.Predecessors(next)...)
		}

		for len(supertasks) > 0 {
			next := supertasks[0]
			supertasks = supertasks[1:]
			if _, ok := visitedSupertasks[next]; ok {
				continue
			}
			visitedSupertasks[next] = struct{}{}
			supertasks = append(supertasks, s.hierarchy.Predecessors(next)...)
			upstream = append(upstream, s.dependency.Predecessors(next)...)
		}
	}
}

// Downstream returns every task downstream of uid, sorted by uid.
func (s *System) Downstream(uid int64) ([]int64, error) {
	if !s.HasTask(uid) {
		return nil, NotFoundError{UID: uid}
	}
	var tasks []int64
	s.forEachDownstream(uid, func(t int64) bool {
		tasks = append(tasks, t)
		return false
	})
	return sortUIDs(tasks), nil
}

// Upstream returns every task upstream of uid, sorted by uid.
func (s *System) Upstream(uid int64) ([]int64, error) {
	if !s.HasTask(uid) {
		return nil, NotFoundError{UID: uid}
	}
	var tasks []int64
	s.forEachUpstream(uid, func(t int64) bool {
		tasks = append(tasks, t)
		return false
	})
	return sortUIDs(tasks), nil
}

// HasStreamPath reports whether work flows from source to target. A task
// always has a stream path to itself.
func (s *System) HasStreamPath(source, target int64) (bool, error) {
	for _, uid := range []int64{source, target} {
		if !s.HasTask(uid) {
			return false, NotFoundError{UID: uid}
		}
	}
	return s.hasStreamPath(source, target), nil
}

func (s *System) hasStreamPath(source, target int64) bool {
	if source == target {
		return true
	}
	found := false
	s.forEachDownstream(source, func(t int64) bool {
		if t == target {
			found = true
			return true
		}
		return false
	})
	return found
}

// hasStreamPathToInferior reports whether work flows from source to any
// inferior task of target.
func (s *System) hasStreamPathToInferior(source, target int64) bool {
	inferiors := s.inferiors(target)
	found := false
	s.forEachDownstream(source, func(t int64) bool {
		if _, ok := inferiors[t]; ok {
			found = true
			return true
		}
		return false
	})
	return found
}

// hasStreamPathFromInferior reports whether work flows from any inferior
// task of source to target.
func (s *System) hasStreamPathFromInferior(source, target int64) bool {
	inferiors := s.inferiors(source)
	found := false
	s.forEachUpstream(target, func(t int64) bool {
		if _, ok := inferiors[t]; ok {
			found = true
			return true
		}
		return false
	})
	return found
}
