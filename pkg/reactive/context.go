// Package reactive implements the ReactiveEngine and QueryContext components
// (spec §4.7): named queries that re-execute whenever an EventBus event
// touches something the query actually read, with results compared by deep
// structural equality so a subscriber is only notified on a real change.
package reactive

import (
	"github.com/cuemby/corestore/pkg/bucket"
	"github.com/cuemby/corestore/pkg/corestore"
)

// BucketProvider resolves a bucket name to its live BucketServer.
type BucketProvider interface {
	BucketServer(name string) (*bucket.Server, error)
}

// QueryFunc is a named query body: it reads through ctx (never mutates),
// takes the params value the caller subscribed/ran with (spec §4.7
// "Parameterization": a query is `(ctx, params) -> result`), and returns
// whatever value subscribers should be notified about.
type QueryFunc func(ctx *QueryContext, params any) (any, error)

// QueryContext is the read-only façade a QueryFunc runs against. Every
// read it performs is recorded as a dependency (spec §4.7 "dependency
// tracking"): a Get on a specific key is a record-level dependency, while
// All/Where/FindOne/Count/Aggregate are bucket-level (any mutation to the
// bucket at all may change their result, so any mutation invalidates them).
type QueryContext struct {
	provider    BucketProvider
	deps        map[string]map[any]bool
	bucketLevel map[string]bool
}

func newQueryContext(provider BucketProvider) *QueryContext {
	return &QueryContext{
		provider:    provider,
		deps:        make(map[string]map[any]bool),
		bucketLevel: make(map[string]bool),
	}
}

// Bucket returns a dependency-tracking read-only view over bucket name.
func (c *QueryContext) Bucket(name string) (*QueryBucket, error) {
	srv, err := c.provider.BucketServer(name)
	if err != nil {
		return nil, err
	}
	return &QueryBucket{ctx: c, name: name, srv: srv}, nil
}

func (c *QueryContext) recordDep(bucketName string, key any) {
	if c.deps[bucketName] == nil {
		c.deps[bucketName] = make(map[any]bool)
	}
	c.deps[bucketName][key] = true
}

func (c *QueryContext) bucketDep(bucketName string) {
	c.bucketLevel[bucketName] = true
}

// QueryBucket is the per-bucket view handed out by QueryContext.Bucket.
type QueryBucket struct {
	ctx  *QueryContext
	name string
	srv  *bucket.Server
}

// Get reads a single key, recording a record-level dependency on it.
func (b *QueryBucket) Get(key any) (corestore.Record, bool) {
	b.ctx.recordDep(b.name, key)
	return b.srv.Get(key)
}

// All reads every live record, recording a bucket-level dependency.
func (b *QueryBucket) All() []corestore.Record {
	b.ctx.bucketDep(b.name)
	return b.srv.All()
}

// Where filters records, recording a bucket-level dependency.
func (b *QueryBucket) Where(filter map[string]any) []corestore.Record {
	b.ctx.bucketDep(b.name)
	return b.srv.Where(filter)
}

// FindOne returns the first matching record, recording a bucket-level dependency.
func (b *QueryBucket) FindOne(filter map[string]any) (corestore.Record, bool) {
	b.ctx.bucketDep(b.name)
	return b.srv.FindOne(filter)
}

// Count returns the number of matching records, recording a bucket-level dependency.
func (b *QueryBucket) Count(filter map[string]any) int {
	b.ctx.bucketDep(b.name)
	return b.srv.Count(filter)
}

// Aggregate computes sum/avg/min/max, recording a bucket-level dependency.
func (b *QueryBucket) Aggregate(field, kind string, filter map[string]any) (any, bool) {
	b.ctx.bucketDep(b.name)
	return b.srv.Aggregate(field, kind, filter)
}
