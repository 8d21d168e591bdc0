package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/corestore/pkg/schema"
)

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifestAndConvert(t *testing.T) {
	path := writeManifest(t, `
apiVersion: corestore/v1
buckets:
  - name: widgets
    key: id
    fields:
      id:
        type: string
        generated: uuid
      name:
        type: string
        required: true
      price:
        type: number
        min: 0
    indexes: [name]
    unique: [name]
    ttl: "30s"
    maxSize: 1000
`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(m.Buckets))
	}

	def, err := m.Buckets[0].ToBucketDef()
	if err != nil {
		t.Fatalf("ToBucketDef: %v", err)
	}
	if def.Key != "id" {
		t.Fatalf("Key = %q, want id", def.Key)
	}
	sch, ok := def.Schema.(schema.Schema)
	if !ok {
		t.Fatalf("Schema is %T, want schema.Schema", def.Schema)
	}
	if sch["name"].Type != schema.TypeString || !sch["name"].Required {
		t.Fatalf("name field = %+v", sch["name"])
	}
	if sch["price"].Min == nil || *sch["price"].Min != 0 {
		t.Fatalf("price.Min = %v, want 0", sch["price"].Min)
	}
	if def.TTL != "30s" {
		t.Fatalf("TTL = %v, want 30s", def.TTL)
	}
	if def.MaxSize != 1000 {
		t.Fatalf("MaxSize = %d, want 1000", def.MaxSize)
	}
}

func TestToBucketDefInvalidPattern(t *testing.T) {
	spec := BucketSpec{
		Name: "widgets",
		Key:  "id",
		Fields: map[string]FieldSpec{
			"id": {Type: "string", Pattern: "["},
		},
	}
	if _, err := spec.ToBucketDef(); err == nil {
		t.Fatal("expected an error for an invalid regex pattern")
	}
}
