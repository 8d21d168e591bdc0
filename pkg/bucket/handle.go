package bucket

import "github.com/cuemby/corestore/pkg/corestore"

// Handle is the stateless, non-transactional proxy a caller gets back from
// Store.Bucket(name): it holds nothing but a pointer to the bucket's
// mailbox and forwards every call to it, exactly mirroring the teacher's
// gRPC client proxy pattern (cuemby-warren's pkg/client) minus the network
// hop, since BucketServer already lives in-process.
type Handle struct {
	srv *Server
}

// NewHandle wraps a Server in its public-facing proxy.
func NewHandle(srv *Server) Handle { return Handle{srv: srv} }

func (h Handle) Name() string                  { return h.srv.Name() }
func (h Handle) KeyField() string              { return h.srv.KeyField() }
func (h Handle) Stats() BucketStats            { return h.srv.Stats() }
func (h Handle) Insert(input map[string]any) (corestore.Record, error) { return h.srv.Insert(input) }
func (h Handle) Update(key any, changes map[string]any) (corestore.Record, error) {
	return h.srv.Update(key, changes)
}
func (h Handle) Delete(key any) (bool, error) { return h.srv.Delete(key) }
func (h Handle) Clear() error                 { return h.srv.Clear() }
func (h Handle) Get(key any) (corestore.Record, bool) { return h.srv.Get(key) }
func (h Handle) All() []corestore.Record              { return h.srv.All() }
func (h Handle) Where(filter map[string]any) []corestore.Record { return h.srv.Where(filter) }
func (h Handle) FindOne(filter map[string]any) (corestore.Record, bool) {
	return h.srv.FindOne(filter)
}
func (h Handle) Count(filter map[string]any) int { return h.srv.Count(filter) }
func (h Handle) First(n int) []corestore.Record  { return h.srv.First(n) }
func (h Handle) Last(n int) []corestore.Record   { return h.srv.Last(n) }
func (h Handle) Paginate(filter map[string]any, cursor any, limit int) Page {
	return h.srv.Paginate(filter, cursor, limit)
}
func (h Handle) Sum(field string, filter map[string]any) (any, bool) {
	return h.srv.Aggregate(field, "sum", filter)
}
func (h Handle) Avg(field string, filter map[string]any) (any, bool) {
	return h.srv.Aggregate(field, "avg", filter)
}
func (h Handle) Min(field string, filter map[string]any) (any, bool) {
	return h.srv.Aggregate(field, "min", filter)
}
func (h Handle) Max(field string, filter map[string]any) (any, bool) {
	return h.srv.Aggregate(field, "max", filter)
}
