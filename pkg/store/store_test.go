package store

import (
	"testing"
	"time"

	"github.com/cuemby/corestore/pkg/corestore"
	"github.com/cuemby/corestore/pkg/persistence"
	"github.com/cuemby/corestore/pkg/reactive"
	"github.com/cuemby/corestore/pkg/schema"
	"github.com/cuemby/corestore/pkg/txn"
)

func widgetSchema() schema.Schema {
	return schema.Schema{
		"id":    {Type: schema.TypeString, Generated: schema.GeneratedUUID},
		"name":  {Type: schema.TypeString, Required: true},
		"price": {Type: schema.TypeNumber, Required: true},
	}
}

func TestDefineBucketAndUseHandle(t *testing.T) {
	s := Start(Options{Name: "test", TTLCheckInterval: 10 * time.Millisecond})
	defer s.Stop()

	h, err := s.DefineBucket("widgets", corestore.BucketDef{
		Key:    "id",
		Schema: widgetSchema(),
	})
	if err != nil {
		t.Fatalf("DefineBucket: %v", err)
	}
	rec, err := h.Insert(map[string]any{"name": "bolt", "price": 1.5})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	h2, err := s.Bucket("widgets")
	if err != nil {
		t.Fatalf("Bucket: %v", err)
	}
	got, ok := h2.Get(rec.Key("id"))
	if !ok || got["name"] != "bolt" {
		t.Fatalf("expected round-tripped record, got %v", got)
	}
}

func TestDefineBucketRejectsUnknownKeyField(t *testing.T) {
	s := Start(Options{Name: "test"})
	defer s.Stop()

	_, err := s.DefineBucket("widgets", corestore.BucketDef{
		Key:    "missing",
		Schema: widgetSchema(),
	})
	var ide *corestore.InvalidDefinitionError
	if err == nil {
		t.Fatal("expected InvalidDefinitionError")
	}
	if !isInvalidDefinition(err, &ide) {
		t.Fatalf("expected InvalidDefinitionError, got %T: %v", err, err)
	}
}

func isInvalidDefinition(err error, target **corestore.InvalidDefinitionError) bool {
	ide, ok := err.(*corestore.InvalidDefinitionError)
	if !ok {
		return false
	}
	*target = ide
	return true
}

func TestDefineBucketDuplicateName(t *testing.T) {
	s := Start(Options{Name: "test"})
	defer s.Stop()

	if _, err := s.DefineBucket("widgets", corestore.BucketDef{Key: "id", Schema: widgetSchema()}); err != nil {
		t.Fatalf("first DefineBucket: %v", err)
	}
	_, err := s.DefineBucket("widgets", corestore.BucketDef{Key: "id", Schema: widgetSchema()})
	if _, ok := err.(*corestore.BucketAlreadyExistsError); !ok {
		t.Fatalf("expected BucketAlreadyExistsError, got %T: %v", err, err)
	}
}

func TestBucketNotDefined(t *testing.T) {
	s := Start(Options{Name: "test"})
	defer s.Stop()

	_, err := s.Bucket("ghost")
	if _, ok := err.(*corestore.BucketNotDefinedError); !ok {
		t.Fatalf("expected BucketNotDefinedError, got %T: %v", err, err)
	}
}

func TestDropBucketRemovesIt(t *testing.T) {
	s := Start(Options{Name: "test"})
	defer s.Stop()

	if _, err := s.DefineBucket("widgets", corestore.BucketDef{Key: "id", Schema: widgetSchema()}); err != nil {
		t.Fatalf("DefineBucket: %v", err)
	}
	if err := s.DropBucket("widgets"); err != nil {
		t.Fatalf("DropBucket: %v", err)
	}
	if _, err := s.Bucket("widgets"); err == nil {
		t.Fatal("expected bucket to be gone after DropBucket")
	}
	if err := s.DropBucket("widgets"); err == nil {
		t.Fatal("expected second DropBucket to fail")
	}
}

func TestTransactionUpdatesMultipleRecords(t *testing.T) {
	s := Start(Options{Name: "test"})
	defer s.Stop()

	accounts, err := s.DefineBucket("accounts", corestore.BucketDef{
		Key: "id",
		Schema: schema.Schema{
			"id":      {Type: schema.TypeString, Generated: schema.GeneratedUUID},
			"balance": {Type: schema.TypeNumber, Required: true},
		},
	})
	if err != nil {
		t.Fatalf("DefineBucket: %v", err)
	}
	a, _ := accounts.Insert(map[string]any{"balance": 100.0})
	b, _ := accounts.Insert(map[string]any{"balance": 0.0})

	err = s.Transaction(func(tx *txn.Tx) error {
		bkt, err := tx.Bucket("accounts")
		if err != nil {
			return err
		}
		if _, err := bkt.Update(a.Key("id"), map[string]any{"balance": 50.0}); err != nil {
			return err
		}
		_, err = bkt.Update(b.Key("id"), map[string]any{"balance": 50.0})
		return err
	})
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}

	got, _ := accounts.Get(a.Key("id"))
	if got["balance"] != 50.0 {
		t.Fatalf("balance = %v, want 50", got["balance"])
	}
}

func TestReactiveSubscribeAndSettle(t *testing.T) {
	s := Start(Options{Name: "test"})
	defer s.Stop()

	widgets, err := s.DefineBucket("widgets", corestore.BucketDef{Key: "id", Schema: widgetSchema()})
	if err != nil {
		t.Fatalf("DefineBucket: %v", err)
	}

	err = s.DefineQuery("count", func(ctx *reactive.QueryContext, params any) (any, error) {
		b, err := ctx.Bucket("widgets")
		if err != nil {
			return nil, err
		}
		return b.Count(nil), nil
	})
	if err != nil {
		t.Fatalf("DefineQuery: %v", err)
	}

	results := make(chan any, 4)
	unsub, err := s.Subscribe("count", nil, func(v any) { results <- v })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub()

	widgets.Insert(map[string]any{"name": "bolt", "price": 1.0})
	s.Settle()

	select {
	case v := <-results:
		if v != 1 {
			t.Fatalf("count = %v, want 1", v)
		}
	default:
		t.Fatal("expected a callback after Settle")
	}
}

func TestTtlPurgeViaStore(t *testing.T) {
	s := Start(Options{Name: "test", TTLCheckInterval: time.Hour})
	defer s.Stop()

	ttlMillis := int64(10)
	widgets, err := s.DefineBucket("sessions", corestore.BucketDef{
		Key:    "id",
		Schema: widgetSchema(),
		TTL:    ttlMillis,
	})
	if err != nil {
		t.Fatalf("DefineBucket: %v", err)
	}
	widgets.Insert(map[string]any{"name": "s1", "price": 0.0})
	time.Sleep(25 * time.Millisecond)

	n, err := s.PurgeTtl()
	if err != nil {
		t.Fatalf("PurgeTtl: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged = %d, want 1", n)
	}
}

func TestTtlZeroIntervalDisablesAutomaticSweepButNotManualPurge(t *testing.T) {
	s := Start(Options{Name: "test"}) // TTLCheckInterval left at its zero value
	defer s.Stop()

	ttlMillis := int64(10)
	sessions, err := s.DefineBucket("sessions", corestore.BucketDef{
		Key:    "id",
		Schema: widgetSchema(),
		TTL:    ttlMillis,
	})
	if err != nil {
		t.Fatalf("DefineBucket: %v", err)
	}
	sessions.Insert(map[string]any{"name": "s1", "price": 0.0})
	time.Sleep(50 * time.Millisecond)

	// Reads hide expired records lazily, so count the stored records.
	if got := sessions.Stats().Count; got != 1 {
		t.Fatalf("expected expired record to still be present with automatic scanning disabled, got %d records", got)
	}

	n, err := s.PurgeTtl()
	if err != nil {
		t.Fatalf("PurgeTtl: %v", err)
	}
	if n != 1 {
		t.Fatalf("manual purge = %d, want 1", n)
	}
}

func TestPersistenceRoundTripAcrossRestart(t *testing.T) {
	adapter := persistence.NewMemoryAdapter()

	s := Start(Options{Name: "test", Persistence: adapter, PersistenceFlush: time.Millisecond})
	persistentTrue := true
	widgets, err := s.DefineBucket("widgets", corestore.BucketDef{
		Key:        "id",
		Schema:     widgetSchema(),
		Persistent: &persistentTrue,
	})
	if err != nil {
		t.Fatalf("DefineBucket: %v", err)
	}
	rec, err := widgets.Insert(map[string]any{"name": "bolt", "price": 2.0})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	s.Stop() // flushes a final snapshot before shutting down

	s2 := Start(Options{Name: "test", Persistence: adapter, PersistenceFlush: time.Millisecond})
	defer s2.Stop()
	widgets2, err := s2.DefineBucket("widgets", corestore.BucketDef{
		Key:        "id",
		Schema:     widgetSchema(),
		Persistent: &persistentTrue,
	})
	if err != nil {
		t.Fatalf("DefineBucket (restore): %v", err)
	}
	got, ok := widgets2.Get(rec.Key("id"))
	if !ok {
		t.Fatal("expected restored record to survive restart")
	}
	if got["name"] != "bolt" {
		t.Fatalf("restored record = %v", got)
	}
}

func TestGetStats(t *testing.T) {
	s := Start(Options{Name: "test"})
	defer s.Stop()

	widgets, _ := s.DefineBucket("widgets", corestore.BucketDef{Key: "id", Schema: widgetSchema()})
	widgets.Insert(map[string]any{"name": "bolt", "price": 1.0})
	widgets.Insert(map[string]any{"name": "nut", "price": 0.5})

	stats := s.GetStats()
	if len(stats.Buckets) != 1 {
		t.Fatalf("expected 1 bucket in stats, got %d", len(stats.Buckets))
	}
	if stats.Buckets[0].Count != 2 {
		t.Fatalf("count = %d, want 2", stats.Buckets[0].Count)
	}
}
