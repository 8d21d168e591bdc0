package reactive

import (
	"sync"
	"time"

	"github.com/cuemby/corestore/pkg/corestore"
	"github.com/cuemby/corestore/pkg/events"
	"github.com/cuemby/corestore/pkg/log"
	"github.com/cuemby/corestore/pkg/metrics"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var logger = log.WithComponent("reactive")

var cmpOpts = cmp.Options{
	cmpopts.EquateNaNs(),
	cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) }),
}

// Engine is the ReactiveEngine: it owns every named query definition and
// every live subscription, driven by events read off the EventBus (spec
// §4.7).
type Engine struct {
	bus      *events.Bus
	provider BucketProvider

	mu      sync.Mutex
	queries map[string]QueryFunc
	subs    map[uint64]*subscription
	nextID  uint64

	unsubscribeBus func()
	inflight       sync.WaitGroup
}

// New builds an Engine. Start must be called once the owning store has
// finished its own startup sequence (spec §4.8: "the ReactiveEngine
// subscribes to bucket.*.* only after persistence has been loaded").
func New(bus *events.Bus, provider BucketProvider) *Engine {
	return &Engine{
		bus:      bus,
		provider: provider,
		queries:  make(map[string]QueryFunc),
		subs:     make(map[uint64]*subscription),
	}
}

// Start subscribes the engine to every bucket event.
func (e *Engine) Start() {
	e.unsubscribeBus = e.bus.On("bucket.*.*", e.handleEvent)
}

// Stop tears down every live subscription and detaches from the bus (spec
// §4.8 shutdown: "destroy every reactive subscription before terminating
// bucket servers").
func (e *Engine) Stop() {
	if e.unsubscribeBus != nil {
		e.unsubscribeBus()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.subs {
		delete(e.subs, id)
		metrics.SubscriptionsActive.Dec()
	}
}

// DefineQuery registers a named query body (spec §4.7 `defineQuery`).
func (e *Engine) DefineQuery(name string, fn QueryFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.queries[name]; exists {
		return &corestore.QueryAlreadyDefinedError{Name: name}
	}
	e.queries[name] = fn
	return nil
}

// Settle blocks until every in-flight re-execution triggered so far has
// finished (spec §6 `settle()`), letting tests and callers observe a
// quiescent state deterministically.
func (e *Engine) Settle() {
	e.inflight.Wait()
}

// RunQuery executes a defined query once, ad hoc, with params, and returns
// its result without creating a subscription (spec §4.7 `runQuery(name,
// params?)`); dependency-tracking has no subscription to attach to, so its
// bookkeeping is simply discarded.
func (e *Engine) RunQuery(name string, params any) (any, error) {
	e.mu.Lock()
	fn, ok := e.queries[name]
	e.mu.Unlock()
	if !ok {
		return nil, &corestore.QueryNotDefinedError{Name: name}
	}
	ctx := newQueryContext(e.provider)
	return fn(ctx, params)
}

type subscription struct {
	mu          sync.Mutex
	name        string
	params      any
	fn          QueryFunc
	callback    func(any)
	deps        map[string]map[any]bool
	bucketLevel map[string]bool
	lastResult  any
	epoch       uint64
}

// Subscribe runs name's query once synchronously with params — a failure
// here propagates to the caller, since there is no prior good result to
// fall back to (spec §4.7) — then re-runs it with the same params on every
// subsequent event that touches a dependency it read, notifying callback
// only when the new result is not deeply equal to the last one. A failure
// during re-execution is logged and swallowed: the subscription keeps its
// last good result and tries again on the next relevant event.
//
// Each distinct (name, params) is its own independent subscription (spec
// §4.7 "Parameterization"). Params equality is defined by structural
// equality, but that definition is never used to collapse two Subscribe
// calls into one: calling Subscribe twice with structurally-equal params
// still yields two independent subscriptions, each with its own
// unsubscribe func and its own last-result cache, per spec.
func (e *Engine) Subscribe(name string, params any, callback func(any)) (func(), error) {
	e.mu.Lock()
	fn, ok := e.queries[name]
	e.mu.Unlock()
	if !ok {
		return nil, &corestore.QueryNotDefinedError{Name: name}
	}

	ctx := newQueryContext(e.provider)
	result, err := fn(ctx, params)
	if err != nil {
		return nil, err
	}

	sub := &subscription{
		name:        name,
		params:      params,
		fn:          fn,
		callback:    callback,
		deps:        ctx.deps,
		bucketLevel: ctx.bucketLevel,
		lastResult:  result,
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = sub
	e.mu.Unlock()
	metrics.SubscriptionsActive.Inc()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
		metrics.SubscriptionsActive.Dec()
	}, nil
}

func (e *Engine) handleEvent(evt corestore.Event) {
	e.mu.Lock()
	subs := make([]*subscription, 0, len(e.subs))
	for _, s := range e.subs {
		subs = append(subs, s)
	}
	e.mu.Unlock()

	for _, sub := range subs {
		if !relevant(sub, evt) {
			continue
		}
		e.reexecute(sub)
	}
}

func relevant(sub *subscription, evt corestore.Event) bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.bucketLevel[evt.Bucket] {
		return true
	}
	keys, ok := sub.deps[evt.Bucket]
	return ok && keys[evt.Key]
}

// reexecute re-runs a subscription's query asynchronously, discarding the
// result if a later event has already superseded it (spec §4.7
// "re-execution is asynchronous; a stale result must never overwrite a
// fresher one").
func (e *Engine) reexecute(sub *subscription) {
	sub.mu.Lock()
	sub.epoch++
	myEpoch := sub.epoch
	params := sub.params
	sub.mu.Unlock()

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		ctx := newQueryContext(e.provider)
		result, err := sub.fn(ctx, params)

		sub.mu.Lock()
		defer sub.mu.Unlock()
		if myEpoch != sub.epoch {
			return // superseded by a later event while this run was in flight
		}
		if err != nil {
			logger.Error().Str("query", sub.name).Err(err).Msg("reactive query re-execution failed, keeping last result")
			metrics.QueryReexecutionsTotal.WithLabelValues(sub.name, "false").Inc()
			return
		}
		sub.deps = ctx.deps
		sub.bucketLevel = ctx.bucketLevel
		if cmp.Equal(sub.lastResult, result, cmpOpts) {
			metrics.QueryReexecutionsTotal.WithLabelValues(sub.name, "false").Inc()
			return
		}
		sub.lastResult = result
		metrics.QueryReexecutionsTotal.WithLabelValues(sub.name, "true").Inc()
		sub.callback(result)
	}()
}
