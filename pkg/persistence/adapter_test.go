package persistence

import (
	"testing"

	"github.com/cuemby/corestore/pkg/corestore"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	snap := Snapshot{
		KeyField:      "id",
		Autoincrement: 3,
		Records: []corestore.Record{
			{"id": "k1", corestore.FieldVersion: int64(1)},
			{"id": "k2", corestore.FieldVersion: int64(2)},
		},
	}
	blob, err := Encode(snap)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.KeyField != "id" || got.Autoincrement != 3 || len(got.Records) != 2 {
		t.Fatalf("Decode() = %+v", got)
	}
	if got.Records[0]["id"] != "k1" {
		t.Errorf("Records[0][id] = %v, want k1", got.Records[0]["id"])
	}
}

func TestDecodeInvalidBlob(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("expected an error decoding invalid JSON")
	}
}
