package txn

import (
	"errors"
	"testing"

	"github.com/cuemby/corestore/pkg/bucket"
	"github.com/cuemby/corestore/pkg/corestore"
	"github.com/cuemby/corestore/pkg/schema"
)

type fakeProvider struct {
	servers map[string]*bucket.Server
}

func (p *fakeProvider) BucketServer(name string) (*bucket.Server, error) {
	srv, ok := p.servers[name]
	if !ok {
		return nil, &corestore.BucketNotDefinedError{Name: name}
	}
	return srv, nil
}

func newFixture(t *testing.T) (*Coordinator, *fakeProvider) {
	t.Helper()
	accounts := bucket.New(bucket.Config{
		Name:     "accounts",
		KeyField: "id",
		Schema: schema.Schema{
			"id":      {Type: schema.TypeString, Required: true},
			"balance": {Type: schema.TypeNumber, Required: true},
		},
	})
	t.Cleanup(accounts.Stop)

	p := &fakeProvider{servers: map[string]*bucket.Server{"accounts": accounts}}
	return New(p), p
}

func TestCoordinatorCommitsMultipleRecords(t *testing.T) {
	coord, p := newFixture(t)

	_, err := p.servers["accounts"].Insert(map[string]any{"id": "a", "balance": float64(100)})
	if err != nil {
		t.Fatalf("seed insert: %v", err)
	}
	_, err = p.servers["accounts"].Insert(map[string]any{"id": "b", "balance": float64(0)})
	if err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	err = coord.Run(func(tx *Tx) error {
		accts, berr := tx.Bucket("accounts")
		if berr != nil {
			return berr
		}
		from, _ := accts.Get("a")
		if from["balance"].(float64) < 50 {
			return errors.New("insufficient funds")
		}
		if _, uerr := accts.Update("a", map[string]any{"balance": float64(50)}); uerr != nil {
			return uerr
		}
		if _, uerr := accts.Update("b", map[string]any{"balance": float64(50)}); uerr != nil {
			return uerr
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	a, _ := p.servers["accounts"].Get("a")
	b, _ := p.servers["accounts"].Get("b")
	if a["balance"].(float64) != 50 || b["balance"].(float64) != 50 {
		t.Fatalf("balances after commit: a=%v b=%v", a["balance"], b["balance"])
	}
}

func TestCoordinatorBodyErrorAborts(t *testing.T) {
	coord, p := newFixture(t)
	p.servers["accounts"].Insert(map[string]any{"id": "a", "balance": float64(10)})

	err := coord.Run(func(tx *Tx) error {
		accts, _ := tx.Bucket("accounts")
		if _, uerr := accts.Update("a", map[string]any{"balance": float64(999)}); uerr != nil {
			return uerr
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected body error to propagate")
	}

	a, _ := p.servers["accounts"].Get("a")
	if a["balance"].(float64) != 10 {
		t.Fatalf("balance should be unchanged after aborted transaction, got %v", a["balance"])
	}
}

func TestCoordinatorConflictOnStaleVersion(t *testing.T) {
	coord, p := newFixture(t)
	p.servers["accounts"].Insert(map[string]any{"id": "a", "balance": float64(10)})

	err := coord.Run(func(tx *Tx) error {
		accts, _ := tx.Bucket("accounts")
		accts.Get("a") // capture the version this tx expects

		// A concurrent direct write advances the version underneath the tx.
		if _, uerr := p.servers["accounts"].Update("a", map[string]any{"balance": float64(20)}); uerr != nil {
			t.Fatalf("concurrent update: %v", uerr)
		}

		_, uerr := accts.Update("a", map[string]any{"balance": float64(30)})
		return uerr
	})
	if err == nil {
		t.Fatal("expected a transaction conflict")
	}
	if _, ok := err.(*corestore.TransactionConflictError); !ok {
		t.Errorf("error type = %T, want *corestore.TransactionConflictError", err)
	}
}

func TestCoordinatorReadYourOwnWrites(t *testing.T) {
	coord, p := newFixture(t)
	p.servers["accounts"].Insert(map[string]any{"id": "a", "balance": float64(10)})

	err := coord.Run(func(tx *Tx) error {
		accts, _ := tx.Bucket("accounts")
		if _, uerr := accts.Update("a", map[string]any{"balance": float64(42)}); uerr != nil {
			return uerr
		}
		rec, ok := accts.Get("a")
		if !ok || rec["balance"].(float64) != 42 {
			t.Errorf("expected read-your-own-write of 42, got %v (ok=%v)", rec["balance"], ok)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}
