package catalog

import "sort"

// table is one committed collection with an optional unique secondary key.
type table[K comparable, V any] struct {
	rows  map[K]V
	clone func(V) V
	key   func(V) string
	less  func(a, b V) bool
	byKey map[string]K
}

func newTable[K comparable, V any](clone func(V) V, key func(V) string, less func(a, b V) bool) *table[K, V] {
	return &table[K, V]{
		rows:  make(map[K]V),
		clone: clone,
		key:   key,
		less:  less,
		byKey: make(map[string]K),
	}
}

// staged overlays uncommitted writes on a table for the length of one transaction.
type staged[K comparable, V any] struct {
	base   *table[K, V]
	writes map[K]V
	order  []K
}

func newStaged[K comparable, V any](base *table[K, V]) *staged[K, V] {
	return &staged[K, V]{base: base, writes: make(map[K]V)}
}

func (s *staged[K, V]) get(id K) (V, bool) {
	if v, ok := s.writes[id]; ok {
		return s.base.clone(v), true
	}
	v, ok := s.base.rows[id]
	if !ok {
		var zero V
		return zero, false
	}
	return s.base.clone(v), true
}

func (s *staged[K, V]) put(id K, v V) {
	if _, ok := s.writes[id]; !ok {
		s.order = append(s.order, id)
	}
	s.writes[id] = s.base.clone(v)
}

// lookup resolves the unique secondary key, seeing staged inserts first.
func (s *staged[K, V]) lookup(key string) (V, bool) {
	var zero V
	if s.base.key == nil || key == "" {
		return zero, false
	}
	for _, id := range s.order {
		if v := s.writes[id]; s.base.key(v) == key {
			return s.base.clone(v), true
		}
	}
	if id, ok := s.base.byKey[key]; ok {
		return s.get(id)
	}
	return zero, false
}

// list returns clones of every row that keep accepts, in table order.
func (s *staged[K, V]) list(keep func(V) bool) []V {
	out := make([]V, 0)
	for id, v := range s.base.rows {
		if w, ok := s.writes[id]; ok {
			v = w
		}
		if keep == nil || keep(v) {
			out = append(out, s.base.clone(v))
		}
	}
	for _, id := range s.order {
		if _, ok := s.base.rows[id]; ok {
			continue
		}
		if v := s.writes[id]; keep == nil || keep(v) {
			out = append(out, s.base.clone(v))
		}
	}
	if s.base.less != nil {
		sort.SliceStable(out, func(i, j int) bool { return s.base.less(out[i], out[j]) })
	}
	return out
}

func (s *staged[K, V]) commit() {
	for _, id := range s.order {
		v := s.writes[id]
		s.base.rows[id] = v
		if s.base.key != nil {
			if k := s.base.key(v); k != "" {
				s.base.byKey[k] = id
			}
		}
	}
}
