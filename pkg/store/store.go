// Package store implements the Store facade (spec §4.8): it owns the
// startup/shutdown sequence and wires together every other component
// (EventBus, TransactionCoordinator, persistence, TtlManager,
// ReactiveEngine, and every BucketServer), exposing the single surface
// described in spec §6.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/corestore/pkg/bucket"
	"github.com/cuemby/corestore/pkg/corestore"
	"github.com/cuemby/corestore/pkg/events"
	"github.com/cuemby/corestore/pkg/log"
	"github.com/cuemby/corestore/pkg/persistence"
	"github.com/cuemby/corestore/pkg/reactive"
	"github.com/cuemby/corestore/pkg/schema"
	"github.com/cuemby/corestore/pkg/ttl"
	"github.com/cuemby/corestore/pkg/txn"
)

// Options configures Start (spec §6 `start(options?)`).
type Options struct {
	Name string
	// TTLCheckInterval is how often the TtlManager sweeps every bucket.
	// Its zero value disables automatic scanning entirely; manual
	// PurgeTtl still works either way (spec §4.5). Callers who want a
	// default sweep interval must set this explicitly — pkg/config's
	// process defaults supply 1s when loading from CORESTORE_* env/file.
	TTLCheckInterval time.Duration
	Persistence      persistence.Adapter
	PersistenceFlush time.Duration // debounce window, default 200ms
}

// Store is the facade described in spec §4.8/§6.
type Store struct {
	name string

	bus      *events.Bus
	coord    *txn.Coordinator
	reactive *reactive.Engine
	ttlMgr   *ttl.Manager
	adapter  persistence.Adapter
	flusher  *persistence.Flusher

	mu      sync.RWMutex
	buckets map[string]*bucket.Server
}

// Start performs the spec §4.8 startup sequence and returns a ready Store.
func Start(opts Options) *Store {
	s := &Store{
		name:    opts.Name,
		bus:     events.NewBus(),
		adapter: opts.Persistence,
		buckets: make(map[string]*bucket.Server),
	}
	s.bus.Start() // 1. EventBus

	s.coord = txn.New(s) // 2. TransactionCoordinator

	if s.adapter != nil { // 3. persistence is ready; snapshots are pulled per-bucket in DefineBucket
		s.flusher = persistence.NewFlusher(s.adapter, opts.PersistenceFlush)
	}

	s.ttlMgr = ttl.New(opts.TTLCheckInterval)
	s.ttlMgr.Start() // 4. TtlManager

	s.reactive = reactive.New(s.bus, s)
	s.reactive.Start() // 5. ReactiveEngine

	log.WithComponent("store").Info().Str("name", s.name).Msg("store started")
	return s
}

// BucketServer resolves a bucket name for pkg/txn and pkg/reactive (both
// satisfy their BucketProvider interface with this one method).
func (s *Store) BucketServer(name string) (*bucket.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	srv, ok := s.buckets[name]
	if !ok {
		return nil, &corestore.BucketNotDefinedError{Name: name}
	}
	return srv, nil
}

// DefineBucket registers and starts a new bucket (spec §4.8 `defineBucket`).
func (s *Store) DefineBucket(name string, def corestore.BucketDef) (bucket.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.buckets[name]; exists {
		return bucket.Handle{}, &corestore.BucketAlreadyExistsError{Name: name}
	}

	sch, ok := def.Schema.(schema.Schema)
	if !ok {
		return bucket.Handle{}, &corestore.InvalidDefinitionError{Bucket: name, Reason: "schema must be a pkg/schema.Schema"}
	}
	if _, ok := sch[def.Key]; !ok {
		return bucket.Handle{}, &corestore.InvalidDefinitionError{Bucket: name, Reason: fmt.Sprintf("key field %q is not declared in schema", def.Key)}
	}
	for _, f := range def.Indexes {
		if _, ok := sch[f]; !ok {
			return bucket.Handle{}, &corestore.InvalidDefinitionError{Bucket: name, Reason: fmt.Sprintf("indexed field %q is not declared in schema", f)}
		}
	}
	for _, f := range def.Unique {
		if _, ok := sch[f]; !ok {
			return bucket.Handle{}, &corestore.InvalidDefinitionError{Bucket: name, Reason: fmt.Sprintf("unique field %q is not declared in schema", f)}
		}
	}

	var ttlDur *time.Duration
	if def.TTL != nil {
		d, err := corestore.ParseDuration(def.TTL)
		if err != nil {
			return bucket.Handle{}, &corestore.InvalidDefinitionError{Bucket: name, Reason: err.Error()}
		}
		ttlDur = &d
	}

	persistent := def.IsPersistent()
	cfg := bucket.Config{
		Name:       name,
		KeyField:   def.Key,
		Schema:     sch,
		Indexes:    def.Indexes,
		Unique:     def.Unique,
		EtsType:    def.EtsType,
		TTL:        ttlDur,
		MaxSize:    def.MaxSize,
		Persistent: persistent,
		Publish:    s.bus.Publish,
	}
	if persistent {
		cfg.Flusher = s.flusher
	}
	srv := bucket.New(cfg)

	if persistent && s.adapter != nil {
		if blob, present, err := s.adapter.Read(name); err == nil && present {
			if snap, derr := persistence.Decode(blob); derr == nil {
				_ = srv.Restore(snap)
			} else {
				log.WithBucket(name).Error().Err(derr).Msg("failed to decode persisted snapshot, starting empty")
			}
		} else if err != nil {
			log.WithBucket(name).Error().Err(err).Msg("failed to read persisted snapshot, starting empty")
		}
	}

	if ttlDur != nil {
		s.ttlMgr.Register(srv)
	}

	s.buckets[name] = srv
	return bucket.NewHandle(srv), nil
}

// Bucket returns a stateless proxy for an already-defined bucket (spec §4.8
// `bucket(name)`).
func (s *Store) Bucket(name string) (bucket.Handle, error) {
	srv, err := s.BucketServer(name)
	if err != nil {
		return bucket.Handle{}, err
	}
	return bucket.NewHandle(srv), nil
}

// DropBucket terminates and forgets a bucket (spec §4.8 `dropBucket`). Any
// live reactive subscription that still depends on it will surface
// BucketNotDefinedError from its next re-execution, which the engine
// swallows as a failed re-execution (spec §4.8 note on dependency pruning).
func (s *Store) DropBucket(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	srv, ok := s.buckets[name]
	if !ok {
		return &corestore.BucketNotDefinedError{Name: name}
	}
	srv.Stop()
	delete(s.buckets, name)
	s.ttlMgr.Unregister(name)
	if s.adapter != nil {
		_ = s.adapter.Delete(name)
	}
	return nil
}

// Transaction runs body atomically across every bucket it touches (spec §6
// `transaction(body)`).
func (s *Store) Transaction(body func(tx *txn.Tx) error) error {
	return s.coord.Run(body)
}

// On subscribes handler to every event matching pattern (spec §6 `on`).
func (s *Store) On(pattern string, handler func(corestore.Event)) func() {
	return s.bus.On(pattern, handler)
}

// DefineQuery registers a named reactive query (spec §6 `defineQuery`).
func (s *Store) DefineQuery(name string, fn reactive.QueryFunc) error {
	return s.reactive.DefineQuery(name, fn)
}

// Subscribe subscribes to a reactive query with an optional params value
// (spec §6 `subscribe(name, params?, cb)`).
func (s *Store) Subscribe(name string, params any, callback func(any)) (func(), error) {
	return s.reactive.Subscribe(name, params, callback)
}

// RunQuery executes a defined query once with an optional params value
// (spec §6 `runQuery(name, params?)`).
func (s *Store) RunQuery(name string, params any) (any, error) {
	return s.reactive.RunQuery(name, params)
}

// PurgeTtl forces an immediate TTL sweep across every bucket (spec §6
// `purgeTtl()`).
func (s *Store) PurgeTtl() (int, error) {
	return s.ttlMgr.PurgeNow()
}

// Settle awaits every pending reactive re-execution (spec §6 `settle()`).
func (s *Store) Settle() {
	s.reactive.Settle()
}

// Stats summarizes the store for Store.GetStats (spec §6 `getStats()`).
type Stats struct {
	Name    string
	Buckets []bucket.BucketStats
}

// GetStats reports counts per bucket and index (spec §6 `getStats()`).
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Stats{Name: s.name, Buckets: make([]bucket.BucketStats, 0, len(s.buckets))}
	for _, srv := range s.buckets {
		out.Buckets = append(out.Buckets, srv.Stats())
	}
	return out
}

// Stop performs the spec §4.8 shutdown sequence.
func (s *Store) Stop() {
	s.ttlMgr.Stop()   // 1. stop TTL timers
	s.reactive.Stop() // 2. destroy reactive subscriptions

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flusher != nil { // 3. flush persistence while servers are still live
		for name, srv := range s.buckets {
			if err := s.flusher.FlushNow(name, srv.Snapshot); err != nil {
				log.WithBucket(name).Error().Err(err).Msg("final snapshot flush failed")
			}
		}
		s.flusher.Stop()
	}

	for _, srv := range s.buckets { // 4. terminate bucket servers
		srv.Stop()
	}

	s.bus.Stop() // 5. shut down EventBus
	log.WithComponent("store").Info().Str("name", s.name).Msg("store stopped")
}
