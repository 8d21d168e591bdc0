package persistence

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cuemby/corestore/pkg/log"
)

// Flusher debounces snapshot writes per bucket: a burst of mutations
// schedules at most one pending write per bucket, taken after `debounce`
// has elapsed since the last schedule request. A write that fails is
// retried with bounded exponential backoff rather than dropped (spec §7:
// "failures during debounced snapshot are logged and retried later").
type Flusher struct {
	adapter  Adapter
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*pendingFlush
}

type pendingFlush struct {
	timer *time.Timer
}

// NewFlusher builds a Flusher writing through adapter, coalescing requests
// for the same bucket within debounce.
func NewFlusher(adapter Adapter, debounce time.Duration) *Flusher {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Flusher{
		adapter:  adapter,
		debounce: debounce,
		pending:  make(map[string]*pendingFlush),
	}
}

// Schedule debounces a snapshot write for bucket: snapshotFn is called once
// the debounce window elapses, producing the snapshot to persist at that
// moment (not when Schedule was called), so a burst of mutations is
// collapsed into a single up-to-date write.
func (f *Flusher) Schedule(bucket string, snapshotFn func() (Snapshot, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.pending[bucket]; ok {
		p.timer.Stop()
	}
	f.pending[bucket] = &pendingFlush{
		timer: time.AfterFunc(f.debounce, func() {
			f.flushNow(bucket, snapshotFn)
		}),
	}
}

// FlushNow bypasses debouncing and writes immediately (used by explicit
// snapshot calls and on shutdown).
func (f *Flusher) FlushNow(bucket string, snapshotFn func() (Snapshot, error)) error {
	f.mu.Lock()
	if p, ok := f.pending[bucket]; ok {
		p.timer.Stop()
		delete(f.pending, bucket)
	}
	f.mu.Unlock()
	return f.write(bucket, snapshotFn)
}

func (f *Flusher) flushNow(bucket string, snapshotFn func() (Snapshot, error)) {
	f.mu.Lock()
	delete(f.pending, bucket)
	f.mu.Unlock()

	if err := f.write(bucket, snapshotFn); err != nil {
		log.WithComponent("persistence").Error().Err(err).Str("bucket", bucket).
			Msg("debounced snapshot flush failed after retries, will retry on next mutation")
	}
}

func (f *Flusher) write(bucket string, snapshotFn func() (Snapshot, error)) error {
	op := func() error {
		snap, err := snapshotFn()
		if err != nil {
			return backoff.Permanent(err)
		}
		blob, err := Encode(snap)
		if err != nil {
			return backoff.Permanent(err)
		}
		return f.adapter.Write(bucket, blob)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	return backoff.Retry(op, policy)
}

// Stop cancels every pending debounced write without flushing it.
func (f *Flusher) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, p := range f.pending {
		p.timer.Stop()
		delete(f.pending, name)
	}
}
