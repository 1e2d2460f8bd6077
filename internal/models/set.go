package models

import "slices"

// entitySet is an insertion-ordered set.
type entitySet[T comparable] struct {
	items []T
	index map[T]struct{}
}

func (s *entitySet[T]) has(v T) bool {
	_, ok := s.index[v]
	return ok
}

func (s *entitySet[T]) add(v T) bool {
	if s.has(v) {
		return false
	}
	if s.index == nil {
		s.index = make(map[T]struct{})
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

func (s *entitySet[T]) remove(v T) bool {
	if !s.has(v) {
		return false
	}
	delete(s.index, v)
	if i := slices.Index(s.items, v); i >= 0 {
		s.items = slices.Delete(s.items, i, i+1)
	}
	return true
}

func (s *entitySet[T]) len() int {
	return len(s.items)
}

func (s *entitySet[T]) list() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

func (s *entitySet[T]) reset(values []T) {
	s.items = nil
	s.index = nil
	for _, v := range values {
		s.add(v)
	}
}

func (s *entitySet[T]) retain(keep func(T) bool) {
	kept := make([]T, 0, len(s.items))
	for _, v := range s.items {
		if keep(v) {
			kept = append(kept, v)
		}
	}
	s.reset(kept)
}

func appendEntities[T Entity](out []Entity, values []T) []Entity {
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
