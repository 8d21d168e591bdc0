// Package persistence implements the pluggable storage-adapter contract from
// spec §6 (`read(bucket) → blob|absent`, `write(bucket, blob)`,
// `delete(bucket)`) plus the concrete snapshot shape BucketServer uses to
// serialize itself (spec §4.3 "Persistence hook").
package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/cuemby/corestore/pkg/corestore"
)

// Adapter is the storage-adapter contract from spec §6. Snapshots are
// opaque blobs to the adapter.
type Adapter interface {
	Read(bucket string) (blob []byte, present bool, err error)
	Write(bucket string, blob []byte) error
	Delete(bucket string) error
	Close() error
}

// Snapshot is what BucketServer serializes on a debounced flush and
// restores from on startup: schema identity (the bucket's key field, so a
// restore can sanity-check it was built against a compatible definition),
// the autoincrement counter, and every record verbatim including metadata
// (spec §4.3, §8 "Persistence round-trip").
type Snapshot struct {
	KeyField      string            `json:"keyField"`
	Autoincrement int64             `json:"autoincrement"`
	Records       []corestore.Record `json:"records"`
}

// Encode serializes a Snapshot to the opaque blob form the Adapter stores.
func Encode(s Snapshot) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("persistence: encode snapshot: %w", err)
	}
	return b, nil
}

// Decode deserializes a blob previously produced by Encode. JSON decodes
// every record's numeric fields as float64; BucketServer.Restore normalizes
// the four metadata fields back to int64 milliseconds after decode.
func Decode(blob []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(blob, &s); err != nil {
		return Snapshot{}, fmt.Errorf("persistence: decode snapshot: %w", err)
	}
	return s, nil
}
