// Package corestore holds the types and error kinds shared across every
// corestore component: the Record shape, metadata field names, and the
// typed errors listed in spec §7.
package corestore

import "time"

// Reserved metadata field names. Callers never set these directly; the
// schema validator owns them.
const (
	FieldVersion   = "_version"
	FieldCreatedAt = "_createdAt"
	FieldUpdatedAt = "_updatedAt"
	FieldExpiresAt = "_expiresAt"
)

// Record is a bucket row: arbitrary field values plus the four reserved
// metadata fields. Unknown fields (not declared in the bucket's schema) are
// preserved verbatim.
type Record map[string]any

// Key returns the record's primary key value for the given key field.
func (r Record) Key(keyField string) any {
	return r[keyField]
}

// Version returns _version, or 0 if absent/malformed.
func (r Record) Version() int64 {
	v, _ := toInt64(r[FieldVersion])
	return v
}

// CreatedAt returns _createdAt as a time.Time (UTC, millisecond precision).
func (r Record) CreatedAt() time.Time {
	ms, _ := toInt64(r[FieldCreatedAt])
	return time.UnixMilli(ms).UTC()
}

// ExpiresAt returns _expiresAt and whether it was present.
func (r Record) ExpiresAt() (time.Time, bool) {
	v, ok := r[FieldExpiresAt]
	if !ok || v == nil {
		return time.Time{}, false
	}
	ms, ok := toInt64(v)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// Clone returns a shallow copy of the record (a new top-level map; field
// values are shared). Used anywhere a caller must not be able to mutate
// store-owned state through an aliased map.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// StripMetadata deletes the reserved metadata fields from a record copy,
// used to sanitize caller-supplied input before it is merged (spec §3,
// §4.1: "any caller-supplied value for a metadata field... is stripped").
func StripMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch k {
		case FieldVersion, FieldCreatedAt, FieldUpdatedAt, FieldExpiresAt:
			continue
		default:
			out[k] = v
		}
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// NowMillis returns the current time as milliseconds since epoch, the unit
// every stored timestamp field uses (spec §3).
func NowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}
