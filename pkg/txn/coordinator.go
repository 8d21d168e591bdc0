// Package txn implements the TransactionCoordinator component (spec §4.6):
// optimistic, multi-bucket transactions built from the same two-phase
// prepare/commit/abort primitive BucketServer exposes, acquiring buckets in
// a deterministic (lexicographic) order to avoid cross-transaction
// deadlocks (spec §9: "inverse-operation rollback is unnecessary here;
// optimistic concurrency with a version check is simpler and sufficient").
package txn

import (
	"fmt"
	"sort"

	"github.com/cuemby/corestore/pkg/bucket"
	"github.com/cuemby/corestore/pkg/corestore"
	"github.com/cuemby/corestore/pkg/log"
	"github.com/cuemby/corestore/pkg/metrics"
	"github.com/google/uuid"
)

// BucketProvider resolves a bucket name to its live BucketServer, letting
// pkg/txn stay decoupled from pkg/store (which owns bucket lifecycle).
type BucketProvider interface {
	BucketServer(name string) (*bucket.Server, error)
}

// Coordinator is the TransactionCoordinator.
type Coordinator struct {
	buckets BucketProvider
}

var logger = log.WithComponent("txn")

// New builds a Coordinator resolving buckets through provider.
func New(provider BucketProvider) *Coordinator {
	return &Coordinator{buckets: provider}
}

type pendingWrite struct {
	kind            bucket.WriteKind
	record          corestore.Record
	expectedVersion *int64
}

type txBucketState struct {
	server      *bucket.Server
	name        string
	pending     map[any]*pendingWrite
	readVersion map[any]int64 // keys read but not (yet) written, for implicit version capture
}

// Tx is the handle passed into a transaction body (spec §4.6 `tx.bucket(name)`).
type Tx struct {
	coord   *Coordinator
	buckets map[string]*txBucketState
}

func (tx *Tx) state(name string) (*txBucketState, error) {
	if st, ok := tx.buckets[name]; ok {
		return st, nil
	}
	srv, err := tx.coord.buckets.BucketServer(name)
	if err != nil {
		return nil, err
	}
	st := &txBucketState{
		server:      srv,
		name:        name,
		pending:     make(map[any]*pendingWrite),
		readVersion: make(map[any]int64),
	}
	tx.buckets[name] = st
	return st, nil
}

// Bucket returns a transactional view over bucket name (spec §4.6).
func (tx *Tx) Bucket(name string) (*TxBucket, error) {
	st, err := tx.state(name)
	if err != nil {
		return nil, err
	}
	return &TxBucket{st: st}, nil
}

// TxBucket is the per-bucket, per-transaction working-set view: reads
// overlay pending writes on top of the live bucket (read-your-own-writes),
// and writes are buffered until commit rather than applied immediately
// (spec §4.6).
type TxBucket struct {
	st *txBucketState
}

// Get returns a key's value as this transaction currently sees it: its own
// pending write if any, otherwise the live record, recording the version it
// observed for the optimistic check at commit.
func (b *TxBucket) Get(key any) (corestore.Record, bool) {
	if pw, ok := b.st.pending[key]; ok {
		if pw.kind == bucket.WriteDelete {
			return nil, false
		}
		return pw.record.Clone(), true
	}
	rec, ok := b.st.server.Get(key)
	if ok {
		if _, seen := b.st.readVersion[key]; !seen {
			b.st.readVersion[key] = rec.Version()
		}
	}
	return rec, ok
}

// Insert validates input immediately (so malformed input aborts the
// transaction body right away, spec §4.6) and buffers the resulting record
// as a pending insert.
func (b *TxBucket) Insert(input map[string]any) (corestore.Record, error) {
	rec, err := b.st.server.Validator().PrepareForInsert(input, nil)
	if err != nil {
		return nil, err
	}
	key := rec.Key(b.st.server.KeyField())
	if existing, ok := b.Get(key); ok {
		return nil, &corestore.TransactionConflictError{Bucket: b.st.name, Key: key, ActualVersion: existing.Version()}
	}
	b.st.pending[key] = &pendingWrite{kind: bucket.WriteInsert, record: rec}
	return rec, nil
}

// Update merges changes against this transaction's current view of key
// (its own pending write, or the live record) and buffers the result.
func (b *TxBucket) Update(key any, changes map[string]any) (corestore.Record, error) {
	existing, ok := b.Get(key)
	if !ok {
		return nil, &corestore.NotFoundError{Bucket: b.st.name, Key: key}
	}
	rec, err := b.st.server.Validator().PrepareForUpdate(existing, changes, b.st.server.KeyField())
	if err != nil {
		return nil, err
	}
	expected := b.expectedVersionFor(key, existing)
	b.st.pending[key] = &pendingWrite{kind: bucket.WriteUpdate, record: rec, expectedVersion: expected}
	return rec, nil
}

// Delete buffers a pending delete of key, a no-op if the transaction's
// current view already has no record at key.
func (b *TxBucket) Delete(key any) error {
	existing, ok := b.Get(key)
	if !ok {
		delete(b.st.pending, key)
		return nil
	}
	expected := b.expectedVersionFor(key, existing)
	b.st.pending[key] = &pendingWrite{kind: bucket.WriteDelete, expectedVersion: expected}
	return nil
}

// expectedVersionFor returns the version this transaction should assert at
// commit: the version captured at first observation of key (whichever came
// first, a read or a prior write within this same transaction), not
// necessarily existing's version if a previous pending write already fixed
// it.
func (b *TxBucket) expectedVersionFor(key any, existing corestore.Record) *int64 {
	if pw, ok := b.st.pending[key]; ok && pw.expectedVersion != nil {
		v := *pw.expectedVersion
		return &v
	}
	if v, ok := b.st.readVersion[key]; ok {
		return &v
	}
	v := existing.Version()
	return &v
}

func (b *TxBucket) overlay() []corestore.Record {
	live := b.st.server.All()
	out := make([]corestore.Record, 0, len(live))
	seen := make(map[any]bool, len(b.st.pending))
	keyField := b.st.server.KeyField()
	for _, r := range live {
		key := r.Key(keyField)
		if pw, ok := b.st.pending[key]; ok {
			seen[key] = true
			if pw.kind != bucket.WriteDelete {
				out = append(out, pw.record)
			}
			continue
		}
		out = append(out, r)
	}
	for key, pw := range b.st.pending {
		if seen[key] || pw.kind == bucket.WriteDelete {
			continue
		}
		out = append(out, pw.record)
	}
	return out
}

// All returns every record in this transaction's current view.
func (b *TxBucket) All() []corestore.Record {
	out := b.overlay()
	bucket.SortForEts(out, b.st.server.KeyField(), b.st.server.EtsType())
	return out
}

// Where filters the transaction's current view.
func (b *TxBucket) Where(filter map[string]any) []corestore.Record {
	var out []corestore.Record
	for _, r := range b.All() {
		if bucket.MatchesFilter(r, filter) {
			out = append(out, r)
		}
	}
	return out
}

// FindOne returns the first matching record in the transaction's current view.
func (b *TxBucket) FindOne(filter map[string]any) (corestore.Record, bool) {
	matches := b.Where(filter)
	if len(matches) == 0 {
		return nil, false
	}
	return matches[0], true
}

// Count returns the number of records matching filter in this transaction's view.
func (b *TxBucket) Count(filter map[string]any) int { return len(b.Where(filter)) }

// Sum/Avg/Min/Max aggregate over this transaction's current view.
func (b *TxBucket) Aggregate(field, kind string, filter map[string]any) (any, bool) {
	return bucket.Aggregate(b.Where(filter), field, kind)
}

// Run executes body against a fresh Tx, then commits every touched bucket
// with two-phase prepare/commit across buckets acquired in lexicographic
// order (spec §9 "deterministic lock order" to avoid cross-transaction
// deadlock). Any error from body, from prepare, or from commit aborts every
// bucket that was successfully prepared and returns that error; partial
// commits never happen (spec §4.6 atomicity, §8 P6).
func (c *Coordinator) Run(body func(tx *Tx) error) error {
	tx := &Tx{coord: c, buckets: make(map[string]*txBucketState)}

	if err := body(tx); err != nil {
		metrics.TransactionsTotal.WithLabelValues("rolled_back").Inc()
		return err
	}

	names := make([]string, 0, len(tx.buckets))
	for name, st := range tx.buckets {
		if len(st.pending) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	if len(names) == 0 {
		metrics.TransactionsTotal.WithLabelValues("committed").Inc()
		return nil
	}

	token := newToken()
	prepared := make([]string, 0, len(names))

	for _, name := range names {
		st := tx.buckets[name]
		ops := make([]bucket.WriteOp, 0, len(st.pending))
		for key, pw := range st.pending {
			ops = append(ops, bucket.WriteOp{Key: key, Kind: pw.kind, Record: pw.record, ExpectedVersion: pw.expectedVersion})
		}
		if err := st.server.Prepare(token, ops); err != nil {
			logger.Warn().Str("bucket", name).Err(err).Msg("transaction prepare failed, aborting")
			rollback(tx, prepared, token)
			metrics.TransactionsTotal.WithLabelValues("conflict").Inc()
			return err
		}
		prepared = append(prepared, name)
	}

	// Commit every bucket first, holding each bucket's resulting events
	// rather than publishing them as they land, so no subscriber can
	// observe one bucket's post-commit state while a sibling bucket in
	// this same transaction hasn't committed yet (spec §4.6 steps 4-5,
	// §8 P6 atomicity).
	pendingEvents := make(map[string][]corestore.Event, len(names))
	for _, name := range names {
		events, err := tx.buckets[name].server.Commit(token)
		if err != nil {
			// A commit failure after every bucket validated its preconditions
			// should not happen under single-writer-per-bucket serialization;
			// treat it as a transaction-level conflict and abort what remains.
			remaining := prepared[indexOf(prepared, name):]
			rollback(tx, remaining, token)
			metrics.TransactionsTotal.WithLabelValues("conflict").Inc()
			return fmt.Errorf("txn: commit failed on bucket %q: %w", name, err)
		}
		pendingEvents[name] = events
	}

	// Every bucket committed successfully: now flush events, grouped per
	// bucket in the same lexicographic order buckets were committed in
	// (spec §9 open question on cross-bucket event ordering).
	for _, name := range names {
		srv := tx.buckets[name].server
		for _, evt := range pendingEvents[name] {
			srv.Publish(evt)
		}
	}

	metrics.TransactionsTotal.WithLabelValues("committed").Inc()
	return nil
}

func rollback(tx *Tx, names []string, token string) {
	for _, name := range names {
		_ = tx.buckets[name].server.Abort(token)
	}
}

func indexOf(names []string, target string) int {
	for i, n := range names {
		if n == target {
			return i
		}
	}
	return 0
}

func newToken() string {
	return uuid.NewString()
}
