package bucket

import (
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/corestore/pkg/corestore"
	"github.com/cuemby/corestore/pkg/index"
	"github.com/cuemby/corestore/pkg/log"
	"github.com/cuemby/corestore/pkg/metrics"
	"github.com/cuemby/corestore/pkg/persistence"
	"github.com/cuemby/corestore/pkg/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WriteKind distinguishes the three mutation shapes a transaction may stage
// against a bucket (spec §4.6).
type WriteKind string

const (
	WriteInsert WriteKind = "insert"
	WriteUpdate WriteKind = "update"
	WriteDelete WriteKind = "delete"
)

// WriteOp is one staged mutation handed to Prepare by the transaction
// coordinator. Record already carries generated fields, defaults, and
// metadata — pkg/txn runs the same Validator this bucket exposes via
// Validator() before buffering the write, so Prepare only re-checks
// preconditions, never re-validates field rules (spec §4.6: "validation
// happens at the point of the call inside the transaction body").
type WriteOp struct {
	Key             any
	Kind            WriteKind
	Record          corestore.Record // nil for delete
	ExpectedVersion *int64           // nil only for insert
}

type insertionEntry struct {
	createdAt int64
	key       any
}

func insertionLess(a, b any) bool {
	ea, eb := a.(insertionEntry), b.(insertionEntry)
	if ea.createdAt != eb.createdAt {
		return ea.createdAt < eb.createdAt
	}
	return index.Less(ea.key, eb.key)
}

type preparedBatch struct {
	token string
	ops   []WriteOp
}

// Server is the BucketServer: a single-writer actor holding one bucket's
// records, indexes, and autoincrement counter. Every public method sends a
// closure through an unbuffered mailbox channel to the dedicated run
// goroutine and waits for it to finish, giving the bucket's entire state
// machine the same single-writer serialization the teacher achieves with
// WarrenFSM.Apply's mutex, but expressed as an actor (spec §9: "a dedicated
// thread pulling from a channel").
type Server struct {
	name       string
	keyField   string
	ets        corestore.EtsType
	ttl        *time.Duration
	maxSize    int
	persistent bool

	validator     *schema.Validator
	idx           *index.Manager
	indexFields   []string
	uniqueFields  []string
	flusher       *persistence.Flusher
	publish       func(corestore.Event)

	records        map[any]corestore.Record
	orderedKeys    *index.OrderedKeys // primary-key order
	insertionKeys  *index.OrderedKeys // insertion (_createdAt, key) order
	createdAtByKey map[any]int64
	autoincrement  int64

	reservations map[any]string // key -> token holding it open via Prepare
	prepared     map[string]*preparedBatch

	mailbox chan func()
	stopCh  chan struct{}
	stopped chan struct{}
	once    sync.Once

	logger zerolog.Logger
}

// Config is everything Server needs at construction (spec §3 bucket
// definition plus the collaborators wired in by pkg/store).
type Config struct {
	Name       string
	KeyField   string
	Schema     schema.Schema
	Indexes    []string
	Unique     []string
	EtsType    corestore.EtsType
	TTL        *time.Duration
	MaxSize    int
	Persistent bool
	Publish    func(corestore.Event)
	Flusher    *persistence.Flusher
}

// New builds and starts a Server's mailbox goroutine.
func New(cfg Config) *Server {
	s := &Server{
		name:           cfg.Name,
		keyField:       cfg.KeyField,
		ets:            cfg.EtsType,
		ttl:            cfg.TTL,
		maxSize:        cfg.MaxSize,
		persistent:     cfg.Persistent,
		idx:            index.New(cfg.Indexes, cfg.Unique),
		indexFields:    cfg.Indexes,
		uniqueFields:   cfg.Unique,
		flusher:        cfg.Flusher,
		publish:        cfg.Publish,
		records:        make(map[any]corestore.Record),
		orderedKeys:    index.NewOrderedKeys(),
		insertionKeys:  index.NewOrderedKeysFunc(insertionLess),
		createdAtByKey: make(map[any]int64),
		reservations:   make(map[any]string),
		prepared:       make(map[string]*preparedBatch),
		mailbox:        make(chan func()),
		stopCh:         make(chan struct{}),
		stopped:        make(chan struct{}),
		logger:         log.WithBucket(cfg.Name),
	}
	s.validator = schema.New(cfg.Name, cfg.Schema, schema.Generators{
		NextAutoincrement: s.nextAutoincrementLocked,
	})
	go s.run()
	return s
}

func (s *Server) run() {
	defer close(s.stopped)
	for {
		select {
		case fn := <-s.mailbox:
			fn()
		case <-s.stopCh:
			return
		}
	}
}

// Stop terminates the mailbox goroutine. Any call still in flight completes
// first; calls made after Stop fail fast instead of blocking forever.
func (s *Server) Stop() {
	s.once.Do(func() { close(s.stopCh) })
	<-s.stopped
}

func (s *Server) exec(fn func()) bool {
	done := make(chan struct{})
	select {
	case s.mailbox <- func() { fn(); close(done) }:
	case <-s.stopCh:
		return false
	}
	select {
	case <-done:
		return true
	case <-s.stopCh:
		return false
	}
}

// Name returns the bucket's name.
func (s *Server) Name() string { return s.name }

// KeyField returns the bucket's primary key field name.
func (s *Server) KeyField() string { return s.keyField }

// EtsType returns the bucket's enumeration ordering.
func (s *Server) EtsType() corestore.EtsType { return s.ets }

// Validator exposes the bucket's SchemaValidator so the transaction
// coordinator can prepare records outside the mailbox, only calling back
// into the actor for the autoincrement counter (spec §4.6).
func (s *Server) Validator() *schema.Validator { return s.validator }

// NextAutoincrement reserves and returns the next autoincrement value,
// bumping the counter whether or not the caller's write ultimately commits
// (spec §4.1 leaves gap behavior on rollback unspecified; a monotonically
// advancing sequence that never reuses a number matches every mainstream
// database's autoincrement semantics).
func (s *Server) NextAutoincrement() (int64, error) {
	var v int64
	ok := s.exec(func() { v, _ = s.nextAutoincrementLocked() })
	if !ok {
		return 0, fmt.Errorf("bucket %q: stopped", s.name)
	}
	return v, nil
}

func (s *Server) nextAutoincrementLocked() (int64, error) {
	s.autoincrement++
	return s.autoincrement, nil
}

// BucketStats summarizes a bucket for Store.getStats() (spec §6).
type BucketStats struct {
	Name          string
	Count         int
	IndexedFields []string
}

// Stats reports the bucket's current size and indexed fields.
func (s *Server) Stats() BucketStats {
	var out BucketStats
	s.exec(func() {
		out = BucketStats{Name: s.name, Count: len(s.records), IndexedFields: s.idx.Fields()}
	})
	return out
}

// ---- direct (non-transactional) CRUD ----

// Insert validates input, assigns metadata, applies maxSize eviction if
// needed, and publishes an `inserted` event (spec §4.3, §4.4).
func (s *Server) Insert(input map[string]any) (corestore.Record, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.BucketMutationDuration, s.name, "insert")
	var rec corestore.Record
	var err error
	s.exec(func() {
		rec, err = s.validator.PrepareForInsert(input, s.ttlMillis())
		if err != nil {
			return
		}
		key := rec.Key(s.keyField)
		if key == nil {
			err = &corestore.ValidationError{Bucket: s.name, Issues: []corestore.Issue{{
				Field: s.keyField, Code: "required", Message: "primary key field is required",
			}}}
			return
		}
		if s.isLocked(key, "") {
			err = &corestore.TransactionConflictError{Bucket: s.name, Key: key}
			return
		}
		if _, exists := s.records[key]; exists {
			err = &corestore.DuplicateKeyError{Bucket: s.name, Key: key}
			return
		}
		evt, ierr := s.applyInsert(key, rec)
		if ierr != nil {
			err = ierr
			return
		}
		evicted := s.evictIfNeeded()
		for _, e := range evicted {
			s.emit(e)
		}
		s.emit(evt)
		s.scheduleFlush()
	})
	return rec, err
}

// Update merges changes into the existing record, re-validates, bumps
// _version, and publishes an `updated` event.
func (s *Server) Update(key any, changes map[string]any) (corestore.Record, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.BucketMutationDuration, s.name, "update")
	var rec corestore.Record
	var err error
	s.exec(func() {
		if s.isLocked(key, "") {
			err = &corestore.TransactionConflictError{Bucket: s.name, Key: key}
			return
		}
		existing, ok := s.records[key]
		if !ok {
			err = &corestore.NotFoundError{Bucket: s.name, Key: key}
			return
		}
		rec, err = s.validator.PrepareForUpdate(existing, changes, s.keyField)
		if err != nil {
			return
		}
		evt, uerr := s.applyUpdate(key, existing, rec)
		if uerr != nil {
			err = uerr
			return
		}
		s.emit(evt)
		s.scheduleFlush()
	})
	return rec, err
}

// Delete removes a record if present, publishing a `deleted` event.
func (s *Server) Delete(key any) (bool, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.BucketMutationDuration, s.name, "delete")
	var found bool
	var err error
	s.exec(func() {
		if s.isLocked(key, "") {
			err = &corestore.TransactionConflictError{Bucket: s.name, Key: key}
			return
		}
		existing, ok := s.records[key]
		if !ok {
			return
		}
		found = true
		evt := s.applyDelete(key, existing)
		s.emit(evt)
		s.scheduleFlush()
	})
	return found, err
}

// Clear removes every record without emitting per-record events (spec
// §4.3: "a bulk reset, not a sequence of deletes").
func (s *Server) Clear() error {
	s.exec(func() {
		s.records = make(map[any]corestore.Record)
		s.orderedKeys = index.NewOrderedKeys()
		s.insertionKeys = index.NewOrderedKeysFunc(insertionLess)
		s.createdAtByKey = make(map[any]int64)
		s.idx = index.New(s.indexFields, s.uniqueFields)
		s.scheduleFlush()
	})
	return nil
}

// ---- reads ----

// Get returns the record for key, excluding one that has lazily expired
// (spec §4.3: TTL expiry is authoritative at read time even before the
// periodic purge runs).
func (s *Server) Get(key any) (corestore.Record, bool) {
	var rec corestore.Record
	var ok bool
	s.exec(func() {
		r, present := s.records[key]
		if present && !s.expired(r) {
			rec, ok = r.Clone(), true
		}
	})
	return rec, ok
}

// All returns every live record in the bucket's enumeration order.
func (s *Server) All() []corestore.Record {
	var out []corestore.Record
	s.exec(func() {
		out = s.liveOrdered()
	})
	return out
}

// Where returns every live record matching filter, using the index planner
// when possible (spec §4.2, §4.3).
func (s *Server) Where(filter map[string]any) []corestore.Record {
	var out []corestore.Record
	s.exec(func() {
		out = s.whereLocked(filter)
	})
	return out
}

func (s *Server) whereLocked(filter map[string]any) []corestore.Record {
	candidates, remaining := s.idx.PlanEquality(filter)
	var out []corestore.Record
	if candidates == nil && len(filter) > 0 {
		for _, r := range s.liveOrdered() {
			if MatchesFilter(r, filter) {
				out = append(out, r)
			}
		}
		return out
	}
	if len(filter) == 0 {
		return s.liveOrdered()
	}
	keys := make([]any, 0, len(candidates))
	for k := range candidates {
		keys = append(keys, k)
	}
	ordered := make([]corestore.Record, 0, len(keys))
	for _, k := range keys {
		r, ok := s.records[k]
		if !ok || s.expired(r) {
			continue
		}
		if len(remaining) > 0 && !MatchesFilter(r, remaining) {
			continue
		}
		ordered = append(ordered, r.Clone())
	}
	SortForEts(ordered, s.keyField, s.ets)
	return ordered
}

// FindOne returns the first live record matching filter.
func (s *Server) FindOne(filter map[string]any) (corestore.Record, bool) {
	var rec corestore.Record
	var ok bool
	s.exec(func() {
		matches := s.whereLocked(filter)
		if len(matches) > 0 {
			rec, ok = matches[0], true
		}
	})
	return rec, ok
}

// Count returns the number of live records matching filter.
func (s *Server) Count(filter map[string]any) int {
	var n int
	s.exec(func() { n = len(s.whereLocked(filter)) })
	return n
}

// First returns the first n live records in enumeration order.
func (s *Server) First(n int) []corestore.Record {
	var out []corestore.Record
	s.exec(func() {
		all := s.liveOrdered()
		if n < len(all) {
			all = all[:n]
		}
		out = all
	})
	return out
}

// Last returns the last n live records in enumeration order.
func (s *Server) Last(n int) []corestore.Record {
	var out []corestore.Record
	s.exec(func() {
		all := s.liveOrdered()
		if n < len(all) {
			all = all[len(all)-n:]
		}
		out = all
	})
	return out
}

// Paginate returns a cursor-delimited page of live records matching filter.
func (s *Server) Paginate(filter map[string]any, cursor any, limit int) Page {
	var page Page
	s.exec(func() {
		ordered := s.whereLocked(filter)
		page = Paginate(ordered, s.keyField, cursor, limit)
	})
	return page
}

// Sum/Avg/Min/Max aggregate field across live records matching filter.
func (s *Server) Aggregate(field, kind string, filter map[string]any) (any, bool) {
	var val any
	var ok bool
	s.exec(func() {
		val, ok = Aggregate(s.whereLocked(filter), field, kind)
	})
	return val, ok
}

func (s *Server) liveOrdered() []corestore.Record {
	keys := make([]any, 0, s.orderedKeys.Len())
	if s.ets == corestore.EtsInsertion {
		s.insertionKeys.Ascend(func(k any) bool {
			keys = append(keys, k.(insertionEntry).key)
			return true
		})
	} else {
		s.orderedKeys.Ascend(func(k any) bool {
			keys = append(keys, k)
			return true
		})
	}
	out := make([]corestore.Record, 0, len(keys))
	for _, k := range keys {
		r, ok := s.records[k]
		if !ok || s.expired(r) {
			continue
		}
		out = append(out, r.Clone())
	}
	return out
}

// ExpiredKeys returns every key whose _expiresAt has already passed, for
// the TTL manager's periodic purge sweep. Unlike Get/All/Where, this
// bypasses the lazy read-time filter and looks at raw state directly (spec
// §4.3 "TtlManager... asks the bucket which keys are due").
func (s *Server) ExpiredKeys() []any {
	var out []any
	s.exec(func() {
		for k, r := range s.records {
			if s.expired(r) {
				out = append(out, k)
			}
		}
	})
	return out
}

func (s *Server) expired(r corestore.Record) bool {
	exp, ok := r.ExpiresAt()
	return ok && !time.Now().UTC().Before(exp)
}

func (s *Server) ttlMillis() *int64 {
	if s.ttl == nil {
		return nil
	}
	ms := s.ttl.Milliseconds()
	return &ms
}

// ---- internal mutation application (shared by direct calls and commit) ----

func (s *Server) applyInsert(key any, rec corestore.Record) (corestore.Event, error) {
	if err := s.idx.Add(key, rec); err != nil {
		return corestore.Event{}, err
	}
	s.records[key] = rec
	s.orderedKeys.Insert(key)
	ca := rec.CreatedAt().UnixMilli()
	s.createdAtByKey[key] = ca
	s.insertionKeys.Insert(insertionEntry{createdAt: ca, key: key})
	metrics.RecordsTotal.WithLabelValues(s.name).Set(float64(len(s.records)))
	s.reportIndexMetrics()
	return corestore.Event{Bucket: s.name, Key: key, Kind: corestore.EventInserted, Record: rec, At: time.Now().UTC()}, nil
}

func (s *Server) applyUpdate(key any, old, next corestore.Record) (corestore.Event, error) {
	if err := s.idx.Update(key, old, next); err != nil {
		return corestore.Event{}, err
	}
	s.records[key] = next
	s.reportIndexMetrics()
	return corestore.Event{Bucket: s.name, Key: key, Kind: corestore.EventUpdated, OldRecord: old, NewRecord: next, At: time.Now().UTC()}, nil
}

func (s *Server) applyDelete(key any, old corestore.Record) corestore.Event {
	s.idx.Remove(key, old)
	delete(s.records, key)
	s.orderedKeys.Delete(key)
	if ca, ok := s.createdAtByKey[key]; ok {
		s.insertionKeys.Delete(insertionEntry{createdAt: ca, key: key})
		delete(s.createdAtByKey, key)
	}
	metrics.RecordsTotal.WithLabelValues(s.name).Set(float64(len(s.records)))
	s.reportIndexMetrics()
	return corestore.Event{Bucket: s.name, Key: key, Kind: corestore.EventDeleted, Record: old, At: time.Now().UTC()}
}

func (s *Server) reportIndexMetrics() {
	for _, f := range s.idx.Fields() {
		metrics.IndexEntriesTotal.WithLabelValues(s.name, f).Set(float64(s.idx.DistinctCount(f)))
	}
}

// evictIfNeeded drops the oldest records (smallest _createdAt, primary key
// as tiebreaker, the order insertionKeys keeps) once the bucket exceeds
// maxSize (spec §4.3 "MaxSizeEvictor"), returning the
// resulting `deleted` events instead of publishing them directly so a
// caller mid-transaction can hold them until the whole commit succeeds.
func (s *Server) evictIfNeeded() []corestore.Event {
	if s.maxSize <= 0 {
		return nil
	}
	var evicted []corestore.Event
	for len(s.records) > s.maxSize {
		var oldest any
		var found bool
		s.insertionKeys.Ascend(func(k any) bool {
			oldest = k.(insertionEntry).key
			found = true
			return false
		})
		if !found {
			return evicted
		}
		old := s.records[oldest]
		evt := s.applyDelete(oldest, old)
		metrics.EvictionsTotal.WithLabelValues(s.name).Inc()
		evicted = append(evicted, evt)
	}
	return evicted
}

func (s *Server) emit(evt corestore.Event) {
	if s.publish != nil {
		s.publish(evt)
	}
}

// Publish forwards evt to the bucket's configured EventBus publisher. Used
// by the TransactionCoordinator to flush every committed bucket's events
// only after the entire cross-bucket commit has succeeded (spec §4.6 steps
// 4-5, §9 "commit all and then flush events"), so no subscriber can ever
// observe one bucket's post-commit state while a sibling bucket in the
// same transaction hasn't committed yet (spec §8 P6 atomicity).
func (s *Server) Publish(evt corestore.Event) {
	s.emit(evt)
}

func (s *Server) scheduleFlush() {
	if !s.persistent || s.flusher == nil {
		return
	}
	s.flusher.Schedule(s.name, s.snapshotLocked)
}

// ---- persistence ----

// Snapshot serializes the bucket's current state for the persistence
// adapter (spec §4.3 "Persistence hook").
func (s *Server) Snapshot() (persistence.Snapshot, error) {
	var snap persistence.Snapshot
	var err error
	s.exec(func() { snap, err = s.snapshotLocked() })
	return snap, err
}

func (s *Server) snapshotLocked() (persistence.Snapshot, error) {
	recs := make([]corestore.Record, 0, len(s.records))
	for _, r := range s.records {
		recs = append(recs, r)
	}
	return persistence.Snapshot{KeyField: s.keyField, Autoincrement: s.autoincrement, Records: recs}, nil
}

// Restore replaces the bucket's state from a persisted Snapshot, normalizing
// JSON's float64 decoding of the four metadata fields back to int64
// milliseconds (spec §4.3 "Restore on startup").
func (s *Server) Restore(snap persistence.Snapshot) error {
	s.exec(func() {
		s.records = make(map[any]corestore.Record, len(snap.Records))
		s.orderedKeys = index.NewOrderedKeys()
		s.insertionKeys = index.NewOrderedKeysFunc(insertionLess)
		s.createdAtByKey = make(map[any]int64)
		s.idx = index.New(s.indexFields, s.uniqueFields)
		s.autoincrement = snap.Autoincrement
		for _, r := range snap.Records {
			normalizeMetadata(r)
			key := r.Key(s.keyField)
			_ = s.idx.Add(key, r)
			s.records[key] = r
			s.orderedKeys.Insert(key)
			ca := r.CreatedAt().UnixMilli()
			s.createdAtByKey[key] = ca
			s.insertionKeys.Insert(insertionEntry{createdAt: ca, key: key})
		}
		metrics.RecordsTotal.WithLabelValues(s.name).Set(float64(len(s.records)))
	})
	return nil
}

func normalizeMetadata(r corestore.Record) {
	for _, f := range []string{corestore.FieldVersion, corestore.FieldCreatedAt, corestore.FieldUpdatedAt, corestore.FieldExpiresAt} {
		if v, ok := r[f]; ok {
			if fv, ok := v.(float64); ok {
				r[f] = int64(fv)
			}
		}
	}
}

// ---- two-phase commit support for pkg/txn ----

func (s *Server) isLocked(key any, exceptToken string) bool {
	tok, ok := s.reservations[key]
	return ok && tok != exceptToken
}

// Prepare validates every staged op's precondition against the bucket's
// live state and, if all pass, reserves their keys under token so no other
// writer can observe or interleave with them until Commit or Abort (spec
// §9: "prepare... reserves the changes under a lock; commit applies them;
// abort releases the lock").
func (s *Server) Prepare(token string, ops []WriteOp) error {
	var err error
	s.exec(func() {
		for _, op := range ops {
			if s.isLocked(op.Key, token) {
				err = &corestore.TransactionConflictError{Bucket: s.name, Key: op.Key}
				return
			}
			existing, exists := s.records[op.Key]
			switch op.Kind {
			case WriteInsert:
				if exists {
					err = &corestore.TransactionConflictError{Bucket: s.name, Key: op.Key, ActualVersion: existing.Version()}
					return
				}
			case WriteUpdate:
				if !exists {
					err = &corestore.NotFoundError{Bucket: s.name, Key: op.Key}
					return
				}
				if op.ExpectedVersion == nil || existing.Version() != *op.ExpectedVersion {
					err = &corestore.TransactionConflictError{Bucket: s.name, Key: op.Key, ExpectedVersion: deref(op.ExpectedVersion), ActualVersion: existing.Version()}
					return
				}
			case WriteDelete:
				if !exists {
					continue // idempotent: already gone, no version to check
				}
				if op.ExpectedVersion == nil || existing.Version() != *op.ExpectedVersion {
					err = &corestore.TransactionConflictError{Bucket: s.name, Key: op.Key, ExpectedVersion: deref(op.ExpectedVersion), ActualVersion: existing.Version()}
					return
				}
			}
		}
		for _, op := range ops {
			s.reservations[op.Key] = token
		}
		s.prepared[token] = &preparedBatch{token: token, ops: ops}
	})
	return err
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// Commit applies a previously prepared batch and releases its reservations,
// but does NOT publish the resulting events itself: it returns them so the
// TransactionCoordinator can hold them until every bucket touched by the
// transaction has committed, then flush them all together (spec §4.6 steps
// 4-5, §9 "commit all and then flush events"; §8 P6 atomicity — no
// subscriber may observe a partially-committed transaction).
func (s *Server) Commit(token string) ([]corestore.Event, error) {
	var err error
	var events []corestore.Event
	s.exec(func() {
		batch, ok := s.prepared[token]
		if !ok {
			err = fmt.Errorf("bucket %q: unknown prepared token", s.name)
			return
		}
		for _, op := range batch.ops {
			delete(s.reservations, op.Key)
			switch op.Kind {
			case WriteInsert:
				evt, ierr := s.applyInsert(op.Key, op.Record)
				if ierr != nil {
					err = ierr
					continue
				}
				events = append(events, evt)
			case WriteUpdate:
				old := s.records[op.Key]
				evt, uerr := s.applyUpdate(op.Key, old, op.Record)
				if uerr != nil {
					err = uerr
					continue
				}
				events = append(events, evt)
			case WriteDelete:
				if old, exists := s.records[op.Key]; exists {
					events = append(events, s.applyDelete(op.Key, old))
				}
			}
		}
		events = append(events, s.evictIfNeeded()...)
		delete(s.prepared, token)
		s.scheduleFlush()
	})
	return events, err
}

// Abort discards a prepared batch and releases its reservations without
// touching live state (spec §9 "abort releases the lock").
func (s *Server) Abort(token string) error {
	s.exec(func() {
		batch, ok := s.prepared[token]
		if !ok {
			return
		}
		for _, op := range batch.ops {
			delete(s.reservations, op.Key)
		}
		delete(s.prepared, token)
	})
	return nil
}

// newTransactionToken generates an opaque identifier for a prepared batch.
func newTransactionToken() string {
	return uuid.NewString()
}
