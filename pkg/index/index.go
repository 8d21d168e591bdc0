// Package index implements the IndexManager component (spec §4.2):
// per-bucket secondary and unique indexes over field values, and the
// conjunction planner used by BucketServer filters.
package index

import (
	"github.com/cuemby/corestore/pkg/corestore"
)

// Manager owns every secondary and unique index for one bucket.
type Manager struct {
	indexed map[string]bool // field -> is indexed (secondary)
	unique  map[string]bool // field -> is unique
	posting map[string]map[any]map[any]struct{} // field -> value -> set of keys
	uniqueV map[string]map[any]any               // field -> value -> single key
}

// New builds a Manager over the given indexed and unique field sets. Every
// unique field implies an index (spec §3: "unique: ...each implies an
// index").
func New(indexFields, uniqueFields []string) *Manager {
	m := &Manager{
		indexed: make(map[string]bool),
		unique:  make(map[string]bool),
		posting: make(map[string]map[any]map[any]struct{}),
		uniqueV: make(map[string]map[any]any),
	}
	for _, f := range indexFields {
		m.indexed[f] = true
		m.posting[f] = make(map[any]map[any]struct{})
	}
	for _, f := range uniqueFields {
		m.unique[f] = true
		m.indexed[f] = true
		if _, ok := m.posting[f]; !ok {
			m.posting[f] = make(map[any]map[any]struct{})
		}
		m.uniqueV[f] = make(map[any]any)
	}
	return m
}

// Fields returns every field this manager indexes (secondary ∪ unique).
func (m *Manager) Fields() []string {
	out := make([]string, 0, len(m.indexed))
	for f := range m.indexed {
		out = append(out, f)
	}
	return out
}

func isEmptyValue(v any) bool {
	return v == nil
}

// Add adds key to every indexed field's posting list for its current value
// in record. For unique fields, fails if a different key already owns that
// value (spec §4.2). Missing/undefined values on a unique field are exempt
// from the uniqueness check (spec §4.2 "holds nulls/undefineds exempt").
func (m *Manager) Add(key any, record corestore.Record) error {
	// Validate uniqueness for every unique field before mutating anything,
	// so a failure leaves the manager untouched.
	for f := range m.unique {
		val, present := record[f]
		if !present || isEmptyValue(val) {
			continue
		}
		if existing, ok := m.uniqueV[f][val]; ok && existing != key {
			return &corestore.UniqueConstraintError{Field: f, Value: val}
		}
	}
	for f := range m.indexed {
		val, present := record[f]
		if !present || isEmptyValue(val) {
			continue
		}
		if m.posting[f][val] == nil {
			m.posting[f][val] = make(map[any]struct{})
		}
		m.posting[f][val][key] = struct{}{}
		if m.unique[f] {
			m.uniqueV[f][val] = key
		}
	}
	return nil
}

// Remove removes key from every indexed field's posting list derived from
// record, deleting any posting list left empty.
func (m *Manager) Remove(key any, record corestore.Record) {
	for f := range m.indexed {
		val, present := record[f]
		if !present || isEmptyValue(val) {
			continue
		}
		if set, ok := m.posting[f][val]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(m.posting[f], val)
			}
		}
		if m.unique[f] {
			if cur, ok := m.uniqueV[f][val]; ok && cur == key {
				delete(m.uniqueV[f], val)
			}
		}
	}
}

// Update patches the index for key moving from oldRecord to newRecord,
// checking unique fields against the target posting list before applying
// (spec §4.2).
func (m *Manager) Update(key any, oldRecord, newRecord corestore.Record) error {
	for f := range m.unique {
		newVal, present := newRecord[f]
		if !present || isEmptyValue(newVal) {
			continue
		}
		if oldVal, ok := oldRecord[f]; ok && oldVal == newVal {
			continue // unchanged, no new collision possible
		}
		if existing, ok := m.uniqueV[f][newVal]; ok && existing != key {
			return &corestore.UniqueConstraintError{Field: f, Value: newVal}
		}
	}
	m.Remove(key, oldRecord)
	// Add cannot fail here: the only failure mode (unique collision) was
	// already ruled out above, and Remove released this key's own slot.
	_ = m.Add(key, newRecord)
	return nil
}

// DistinctCount returns how many distinct values field currently has an
// entry for, used to report corestore_index_entries_total.
func (m *Manager) DistinctCount(field string) int {
	return len(m.posting[field])
}

// Lookup returns the set of primary keys whose field currently equals
// value. O(1) plus the size of the result (spec §4.2).
func (m *Manager) Lookup(field string, value any) map[any]struct{} {
	set, ok := m.posting[field][value]
	if !ok {
		return nil
	}
	out := make(map[any]struct{}, len(set))
	for k := range set {
		out[k] = struct{}{}
	}
	return out
}

// PlanEquality evaluates a conjunction-of-equalities filter against the
// indexes available. It returns the indexed fields it could satisfy, the
// candidate key set (nil means "no usable index, caller must scan
// everything"), and the remaining fields the caller must check by scanning
// records directly (spec §4.2 "Query planner usage").
func (m *Manager) PlanEquality(filter map[string]any) (candidates map[any]struct{}, remaining map[string]any) {
	if len(filter) == 0 {
		return nil, nil
	}
	remaining = make(map[string]any, len(filter))
	var bestField string
	var bestSet map[any]struct{}
	found := false

	type cand struct {
		field string
		set   map[any]struct{}
	}
	var usable []cand
	for f, v := range filter {
		if !m.indexed[f] {
			remaining[f] = v
			continue
		}
		set := m.Lookup(f, v)
		usable = append(usable, cand{field: f, set: set})
	}
	for _, c := range usable {
		if !found || len(c.set) < len(bestSet) {
			bestField, bestSet, found = c.field, c.set, true
		}
	}
	if !found {
		return nil, remaining
	}
	candidates = bestSet
	for _, c := range usable {
		if c.field == bestField {
			continue
		}
		candidates = intersect(candidates, c.set)
	}
	return candidates, remaining
}

func intersect(a, b map[any]struct{}) map[any]struct{} {
	out := make(map[any]struct{})
	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	for k := range small {
		if _, ok := big[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}
