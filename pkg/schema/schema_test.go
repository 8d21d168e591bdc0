package schema

import (
	"testing"

	"github.com/cuemby/corestore/pkg/corestore"
)

func TestPrepareForInsertFillsGeneratedAndDefaults(t *testing.T) {
	min := 0.0
	v := New("widgets", Schema{
		"id":    {Type: TypeString, Generated: GeneratedUUID},
		"name":  {Type: TypeString, Required: true},
		"price": {Type: TypeNumber, Min: &min},
		"tag":   {Type: TypeString, Default: "none"},
	}, Generators{})

	rec, err := v.PrepareForInsert(map[string]any{"name": "bolt", "price": 1.5}, nil)
	if err != nil {
		t.Fatalf("PrepareForInsert: %v", err)
	}
	if rec["id"] == nil || rec["id"] == "" {
		t.Error("expected a generated id")
	}
	if rec["tag"] != "none" {
		t.Errorf("tag = %v, want default 'none'", rec["tag"])
	}
	if rec.Version() != 1 {
		t.Errorf("Version() = %d, want 1", rec.Version())
	}
}

func TestPrepareForInsertRequiredFieldMissing(t *testing.T) {
	v := New("widgets", Schema{
		"name": {Type: TypeString, Required: true},
	}, Generators{})

	_, err := v.PrepareForInsert(map[string]any{}, nil)
	ve, ok := err.(*corestore.ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if len(ve.Issues) != 1 || ve.Issues[0].Field != "name" || ve.Issues[0].Code != "required" {
		t.Fatalf("issues = %+v", ve.Issues)
	}
}

func TestPrepareForInsertAutoincrement(t *testing.T) {
	var counter int64
	v := New("widgets", Schema{
		"id": {Type: TypeNumber, Generated: GeneratedAutoincrement},
	}, Generators{NextAutoincrement: func() (int64, error) {
		counter++
		return counter, nil
	}})

	a, err := v.PrepareForInsert(map[string]any{}, nil)
	if err != nil {
		t.Fatalf("insert 1: %v", err)
	}
	b, err := v.PrepareForInsert(map[string]any{}, nil)
	if err != nil {
		t.Fatalf("insert 2: %v", err)
	}
	if a["id"] != int64(1) || b["id"] != int64(2) {
		t.Fatalf("ids = %v, %v, want 1, 2", a["id"], b["id"])
	}
}

func TestPrepareForInsertTTLSetsExpiresAt(t *testing.T) {
	v := New("sessions", Schema{
		"id": {Type: TypeString, Generated: GeneratedUUID},
	}, Generators{})

	ttl := int64(1000)
	rec, err := v.PrepareForInsert(map[string]any{}, &ttl)
	if err != nil {
		t.Fatalf("PrepareForInsert: %v", err)
	}
	exp, ok := rec.ExpiresAt()
	if !ok {
		t.Fatal("expected _expiresAt to be set")
	}
	created := rec.CreatedAt()
	if exp.Sub(created) != 1000*1e6 {
		t.Errorf("expiresAt - createdAt = %v, want 1s", exp.Sub(created))
	}
}

func TestPrepareForUpdateBumpsVersionAndPreservesCreatedAt(t *testing.T) {
	v := New("widgets", Schema{
		"name":  {Type: TypeString, Required: true},
		"price": {Type: TypeNumber},
	}, Generators{})

	existing, err := v.PrepareForInsert(map[string]any{"name": "bolt", "price": 1.0}, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	updated, err := v.PrepareForUpdate(existing, map[string]any{"price": 2.0}, "id")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version() != existing.Version()+1 {
		t.Errorf("Version() = %d, want %d", updated.Version(), existing.Version()+1)
	}
	if updated["price"] != 2.0 {
		t.Errorf("price = %v, want 2.0", updated["price"])
	}
	if updated["name"] != "bolt" {
		t.Errorf("name = %v, want bolt (preserved)", updated["name"])
	}
	if updated[corestore.FieldCreatedAt] != existing[corestore.FieldCreatedAt] {
		t.Error("createdAt should not change on update")
	}
}

func TestValidateFieldTypeMismatch(t *testing.T) {
	v := New("widgets", Schema{
		"price": {Type: TypeNumber},
	}, Generators{})

	_, err := v.PrepareForInsert(map[string]any{"price": "not a number"}, nil)
	ve, ok := err.(*corestore.ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if ve.Issues[0].Code != "type" {
		t.Fatalf("issues = %+v", ve.Issues)
	}
}

func TestValidateEnum(t *testing.T) {
	v := New("widgets", Schema{
		"status": {Type: TypeString, Enum: []any{"active", "retired"}},
	}, Generators{})

	if _, err := v.PrepareForInsert(map[string]any{"status": "active"}, nil); err != nil {
		t.Fatalf("expected valid enum value to pass: %v", err)
	}
	_, err := v.PrepareForInsert(map[string]any{"status": "bogus"}, nil)
	ve, ok := err.(*corestore.ValidationError)
	if !ok || ve.Issues[0].Code != "enum" {
		t.Fatalf("expected enum ValidationError, got %v", err)
	}
}
