package corestore

import "time"

// EtsType is the per-bucket ordering hint (spec §3).
type EtsType string

const (
	EtsOrdered   EtsType = "ordered"
	EtsInsertion EtsType = "insertion"
)

// BucketDef is the caller-supplied definition passed to Store.DefineBucket.
// Schema is left as `any` at this layer; pkg/schema.Schema is the concrete
// type BucketDef.Schema is expected to hold (kept generic here so
// pkg/corestore has no dependency on pkg/schema).
type BucketDef struct {
	Key         string
	Schema      any
	Indexes     []string
	Unique      []string
	EtsType     EtsType
	TTL         any // accepted by corestore.ParseDuration; nil disables TTL
	MaxSize     int // 0 disables the cap
	Persistent  *bool
}

// IsPersistent reports whether snapshots should include this bucket.
// Defaults to true (spec §3: "persistent (optional)... true unless
// declared otherwise").
func (d BucketDef) IsPersistent() bool {
	return d.Persistent == nil || *d.Persistent
}

// EventKind distinguishes the three event payload shapes (spec §4.4, §6).
type EventKind string

const (
	EventInserted EventKind = "inserted"
	EventUpdated  EventKind = "updated"
	EventDeleted  EventKind = "deleted"
)

// Event is the payload published on the EventBus for a single mutation.
type Event struct {
	Bucket    string
	Key       any
	Kind      EventKind
	Record    Record // set for inserted/deleted
	OldRecord Record // set for updated
	NewRecord Record // set for updated
	At        time.Time
}

// Topic returns the dot-separated topic string this event publishes on
// (spec §4.4: "bucket.{name}.inserted" etc).
func (e Event) Topic() string {
	return "bucket." + e.Bucket + "." + string(e.Kind)
}
