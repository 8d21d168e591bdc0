package index

import (
	"fmt"

	"github.com/google/btree"
)

// OrderedKeys maintains every primary key in a bucket in sorted order,
// backing the enumeration order of `ordered`-type buckets (spec §4.3).
// pkg/bucket's Paginate does not walk it: it scans an already-ordered
// record slice for the cursor.
// Keys are compared with Less (below): same-type numeric/string ordering,
// with a stable fallback across mixed types so the structure never panics.
type OrderedKeys struct {
	tree *btree.BTreeG[any]
}

// NewOrderedKeys builds an empty ordered key set using the default Less
// (primary-key) ordering.
func NewOrderedKeys() *OrderedKeys {
	return &OrderedKeys{tree: btree.NewG(32, Less)}
}

// NewOrderedKeysFunc builds an empty ordered set using a caller-supplied
// ordering, e.g. `insertion`-type buckets which order by (_createdAt, key)
// rather than by key alone (spec §4.3).
func NewOrderedKeysFunc(less func(a, b any) bool) *OrderedKeys {
	return &OrderedKeys{tree: btree.NewG(32, less)}
}

// Insert adds key to the ordered set.
func (o *OrderedKeys) Insert(key any) {
	o.tree.ReplaceOrInsert(key)
}

// Delete removes key from the ordered set.
func (o *OrderedKeys) Delete(key any) {
	o.tree.Delete(key)
}

// Len returns the number of keys tracked.
func (o *OrderedKeys) Len() int {
	return o.tree.Len()
}

// Ascend walks every key in ascending order, stopping early if fn returns
// false.
func (o *OrderedKeys) Ascend(fn func(key any) bool) {
	o.tree.Ascend(fn)
}

// AscendGreaterThan walks every key strictly greater than cursor, in
// ascending order. Only the tests of this package call it.
func (o *OrderedKeys) AscendGreaterThan(cursor any, fn func(key any) bool) {
	o.tree.AscendGreaterOrEqual(cursor, func(k any) bool {
		if Equal(k, cursor) {
			return true
		}
		return fn(k)
	})
}

// Less defines a total order over primary key values: numbers compare
// numerically, strings lexically, and any cross-type pair falls back to a
// type-name then formatted-value comparison so the tree stays well-formed
// even with a mixed-type key field.
func Less(a, b any) bool {
	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			return an < bn
		}
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return as < bs
		}
	}
	ta, tb := typeRank(a), typeRank(b)
	if ta != tb {
		return ta < tb
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

// Equal reports whether two key values are identical under strict
// comparison (spec §4.3 filtering semantics: "strict value equality"). All
// Go numeric types count as one number type and compare by value, so
// int64(1) equals float64(1); a number never equals a non-number.
func Equal(a, b any) bool {
	an, aok := asNumber(a)
	bn, bok := asNumber(b)
	if aok && bok {
		return an == bn
	}
	if aok != bok {
		return false
	}
	return a == b
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func typeRank(v any) int {
	switch v.(type) {
	case int, int64, int32, float64, float32:
		return 0
	case string:
		return 1
	default:
		return 2
	}
}
