package persistence

import (
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

// rootBucket is the single top-level BoltDB bucket corestore snapshots live
// in, keyed by corestore bucket name. The teacher (cuemby-warren's
// pkg/storage/boltdb.go) instead keeps one BoltDB bucket per entity kind
// with one key per entity; here there is exactly one entity kind (a bucket
// snapshot blob) so a single top-level bucket suffices.
var rootBucket = []byte("corestore")

// BoltAdapter implements Adapter on top of go.etcd.io/bbolt, adapted from
// cuemby-warren's NewBoltStore/Close/CreateNode-style Update/View pattern.
type BoltAdapter struct {
	db *bolt.DB
}

// NewBoltAdapter opens (creating if absent) a BoltDB file under dataDir.
func NewBoltAdapter(dataDir string) (*BoltAdapter, error) {
	path := filepath.Join(dataDir, "corestore.db")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("persistence: open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("persistence: create root bucket: %w", err)
	}
	return &BoltAdapter{db: db}, nil
}

func (a *BoltAdapter) Read(bucket string) ([]byte, bool, error) {
	var blob []byte
	err := a.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(rootBucket).Get([]byte(bucket))
		if v == nil {
			return nil
		}
		blob = make([]byte, len(v))
		copy(blob, v)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("persistence: read %q: %w", bucket, err)
	}
	return blob, blob != nil, nil
}

func (a *BoltAdapter) Write(bucket string, blob []byte) error {
	err := a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Put([]byte(bucket), blob)
	})
	if err != nil {
		return fmt.Errorf("persistence: write %q: %w", bucket, err)
	}
	return nil
}

func (a *BoltAdapter) Delete(bucket string) error {
	err := a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Delete([]byte(bucket))
	})
	if err != nil {
		return fmt.Errorf("persistence: delete %q: %w", bucket, err)
	}
	return nil
}

func (a *BoltAdapter) Close() error {
	return a.db.Close()
}
