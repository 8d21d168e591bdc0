// Package bucket implements the BucketServer component (spec §4.3): a
// single-writer actor owning one bucket's record map, indexes, and
// autoincrement counter, realized as a goroutine fed by a mailbox channel
// (spec §9 "Actor per bucket"). query.go holds the pure filtering,
// ordering, and aggregation helpers shared between the server's own
// read path and the transaction coordinator's overlay reads (spec §4.6
// "all/where/findOne/count combine underlying records with the pending
// set").
package bucket

import (
	"sort"

	"github.com/cuemby/corestore/pkg/corestore"
	"github.com/cuemby/corestore/pkg/index"
)

// MatchesFilter reports whether rec satisfies every field=value equality in
// filter, using strict comparison (spec §4.3: "same value, same type;
// distinct across null/undefined; no coercion"): a nil filter value matches
// a field stored as nil, never an absent field. Values compare with
// index.Equal, under which every Go numeric type counts as the one number
// type, so int64(1) equals float64(1).
func MatchesFilter(rec corestore.Record, filter map[string]any) bool {
	for field, want := range filter {
		got, present := rec[field]
		if !present {
			return false
		}
		if !strictEqual(got, want) {
			return false
		}
	}
	return true
}

func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return index.Equal(a, b)
}

// SortForEts orders records per spec §4.3: `ordered` buckets by primary key
// ascending; `insertion` buckets by _createdAt ascending with primary key
// as a tiebreaker.
func SortForEts(records []corestore.Record, keyField string, ets corestore.EtsType) {
	if ets == corestore.EtsOrdered {
		sort.SliceStable(records, func(i, j int) bool {
			return index.Less(records[i][keyField], records[j][keyField])
		})
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		ci, cj := records[i].CreatedAt(), records[j].CreatedAt()
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return index.Less(records[i][keyField], records[j][keyField])
	})
}

// Page is the result of Paginate.
type Page struct {
	Records []corestore.Record
	HasMore bool
	Cursor  any // key of the last record returned, for the next call
}

// Paginate applies cursor-based pagination to an already-ordered slice
// (spec §4.3: "the next page begins with the smallest key strictly greater
// than the cursor in the chosen ordering").
func Paginate(ordered []corestore.Record, keyField string, cursor any, limit int) Page {
	start := 0
	if cursor != nil {
		for i, r := range ordered {
			if index.Equal(r[keyField], cursor) {
				start = i + 1
				break
			}
			// cursor not present among current records (e.g. deleted since):
			// position at the first key strictly greater than cursor.
			if index.Less(cursor, r[keyField]) {
				start = i
				break
			}
			start = i + 1
		}
	}
	if start >= len(ordered) {
		return Page{Records: nil, HasMore: false, Cursor: cursor}
	}
	end := len(ordered)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	page := ordered[start:end]
	out := make([]corestore.Record, len(page))
	copy(out, page)
	hasMore := end < len(ordered)
	var nextCursor any
	if len(out) > 0 {
		nextCursor = out[len(out)-1][keyField]
	} else {
		nextCursor = cursor
	}
	return Page{Records: out, HasMore: hasMore, Cursor: nextCursor}
}

// Aggregate computes sum/avg/min/max over field across records, skipping
// non-numeric values (spec §4.3 "Aggregates"). kind is one of
// "sum","avg","min","max".
func Aggregate(records []corestore.Record, field, kind string) (any, bool) {
	var nums []float64
	for _, r := range records {
		v, present := r[field]
		if !present {
			continue
		}
		if n, ok := asFloat(v); ok {
			nums = append(nums, n)
		}
	}
	switch kind {
	case "sum":
		var s float64
		for _, n := range nums {
			s += n
		}
		return s, true
	case "avg":
		if len(nums) == 0 {
			return float64(0), true
		}
		var s float64
		for _, n := range nums {
			s += n
		}
		return s / float64(len(nums)), true
	case "min":
		if len(nums) == 0 {
			return nil, false
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n < m {
				m = n
			}
		}
		return m, true
	case "max":
		if len(nums) == 0 {
			return nil, false
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n > m {
				m = n
			}
		}
		return m, true
	default:
		return nil, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
