package chunkstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// BucketChunks holds one JSON record per row, keyed by the 8-byte big-endian row index.
var BucketChunks = []byte("chunks")

func readBolt(path string) ([]record, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	defer db.Close()

	var recs []record
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(BucketChunks)
		if b == nil {
			return errors.New("bucket \"chunks\" not found")
		}
		return b.ForEach(func(k, v []byte) error {
			var r record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decoding row %x: %w", k, err)
			}
			recs = append(recs, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}
