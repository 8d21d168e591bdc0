// Package ttl implements the TtlManager component (spec §4.3, §4.5): a
// periodic sweep that purges records whose _expiresAt has passed, grounded
// on cuemby-warren's pkg/reconciler ticker loop (Start/Stop/run with a
// select over a ticker channel and a stop channel), generalized from
// cluster-state reconciliation to bucket expiry purging.
package ttl

import (
	"sync"
	"time"

	"github.com/cuemby/corestore/pkg/bucket"
	"github.com/cuemby/corestore/pkg/log"
	"github.com/cuemby/corestore/pkg/metrics"
	"github.com/rs/zerolog"
)

// Manager is the TtlManager: it holds every bucket that declared a TTL and
// purges expired records from each on a fixed interval, or on demand via
// PurgeNow.
type Manager struct {
	interval time.Duration

	mu      sync.RWMutex
	buckets map[string]*bucket.Server

	stopCh  chan struct{}
	stopped chan struct{}
	once    sync.Once
	logger  zerolog.Logger
}

// New builds a Manager sweeping every registered bucket every interval
// (spec §6 `ttlCheckIntervalMs`). An interval of zero or less disables the
// periodic sweep entirely (spec §4.5: "0 disables automatic scanning;
// manual purgeTtl() remains") — PurgeNow stays callable either way.
func New(interval time.Duration) *Manager {
	return &Manager{
		interval: interval,
		buckets:  make(map[string]*bucket.Server),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
		logger:   log.WithComponent("ttl"),
	}
}

// Register adds a TTL-bearing bucket to the sweep. Buckets without a TTL
// are never registered, so they are never scanned.
func (m *Manager) Register(srv *bucket.Server) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[srv.Name()] = srv
}

// Unregister removes a bucket from the sweep, e.g. on dropBucket.
func (m *Manager) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buckets, name)
}

// Start begins the periodic sweep.
func (m *Manager) Start() {
	go m.run()
}

// Stop halts the periodic sweep.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.stopCh) })
	<-m.stopped
}

func (m *Manager) run() {
	defer close(m.stopped)
	if m.interval <= 0 {
		// Automatic scanning disabled (spec §4.5); just wait to be stopped.
		// PurgeNow remains directly callable regardless.
		<-m.stopCh
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.PurgeNow(); err != nil {
				m.logger.Error().Err(err).Msg("ttl sweep failed")
			}
		case <-m.stopCh:
			return
		}
	}
}

// PurgeNow deletes every currently expired record across every registered
// bucket and returns how many were purged (spec §4.3 `purgeTtl()`).
func (m *Manager) PurgeNow() (int, error) {
	m.mu.RLock()
	targets := make([]*bucket.Server, 0, len(m.buckets))
	for _, srv := range m.buckets {
		targets = append(targets, srv)
	}
	m.mu.RUnlock()

	total := 0
	for _, srv := range targets {
		for _, key := range srv.ExpiredKeys() {
			found, err := srv.Delete(key)
			if err != nil {
				m.logger.Warn().Str("bucket", srv.Name()).Interface("key", key).Err(err).Msg("ttl purge delete failed")
				continue
			}
			if found {
				total++
				metrics.TTLPurgedTotal.WithLabelValues(srv.Name()).Inc()
			}
		}
	}
	return total, nil
}
