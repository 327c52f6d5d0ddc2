// Package boltkv implements the kv.Store contract on top of an embedded
// go.etcd.io/bbolt database: a durable, single-process store suitable for a
// standalone analyzer deployment that does not need the remote
// table-store service (internal/kv/remotekv). bbolt keeps bucket keys
// sorted, which is exactly the ordering the contract requires.
package boltkv

import (
	"context"
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/kv"
)

// Store is a bbolt-backed kv.Store. A row's columns are packed into one
// bbolt value as a length-prefixed list, since bbolt buckets are flat
// key->[]byte. Each kv.Table maps to one bbolt bucket,
// created lazily on first write.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) a bbolt database file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeColumns(columns map[string][]byte) []byte {
	buf := make([]byte, 0, 64)
	var lenBuf [4]byte
	for name, value := range columns {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(name)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, name...)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(value)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, value...)
	}
	return buf
}

func decodeColumns(buf []byte) map[string][]byte {
	out := map[string][]byte{}
	for len(buf) > 0 {
		nameLen := binary.BigEndian.Uint32(buf[:4])
		buf = buf[4:]
		name := string(buf[:nameLen])
		buf = buf[nameLen:]
		valueLen := binary.BigEndian.Uint32(buf[:4])
		buf = buf[4:]
		value := append([]byte{}, buf[:valueLen]...)
		buf = buf[valueLen:]
		out[name] = value
	}
	return out
}

func (s *Store) WriteRow(_ context.Context, table kv.Table, key []byte, columns map[string][]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return err
		}
		return b.Put(key, encodeColumns(columns))
	})
}

func (s *Store) WriteRows(ctx context.Context, table kv.Table, rows []kv.Row) error {
	if err := kv.ValidateWriteRows(rows); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return err
		}
		for _, r := range rows {
			if err := b.Put(r.Key, encodeColumns(r.Columns)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ReadRow(_ context.Context, table kv.Table, key []byte, columns []string) (kv.Row, error) {
	var row kv.Row
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return errs.NotFound
		}
		v := b.Get(key)
		if v == nil {
			return errs.NotFound
		}
		row = kv.Row{Key: append([]byte{}, key...), Columns: kv.ProjectColumns(decodeColumns(v), columns)}
		return nil
	})
	if err != nil {
		return kv.Row{}, err
	}
	return row, nil
}

func (s *Store) ReadRows(_ context.Context, table kv.Table, startKey []byte, inclusive bool, limitKey []byte, columns []string, maxRows int) (kv.ReadRowsResult, error) {
	if err := kv.ValidateReadRowsRange(startKey, limitKey, maxRows); err != nil {
		return kv.ReadRowsResult{}, err
	}
	var result kv.ReadRowsResult
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		k, v := c.Seek(startKey)
		if !inclusive {
			for k != nil && string(k) == string(startKey) {
				k, v = c.Next()
			}
		}
		for ; k != nil; k, v = c.Next() {
			if len(limitKey) > 0 && string(k) >= string(limitKey) {
				break
			}
			if len(result.Rows) >= maxRows {
				result.MoreAvailable = true
				break
			}
			result.Rows = append(result.Rows, kv.Row{
				Key:     append([]byte{}, k...),
				Columns: kv.ProjectColumns(decodeColumns(v), columns),
			})
		}
		return nil
	})
	return result, err
}

func (s *Store) DeleteRow(_ context.Context, table kv.Table, key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return nil
		}
		return b.Delete(key)
	})
}

func (s *Store) DeleteRowsWithPrefix(ctx context.Context, table kv.Table, prefix []byte) error {
	return kv.DeleteRows(ctx, s, table, prefix, true, kv.PrefixUpperBound(prefix))
}

func (s *Store) DeleteAllRows(_ context.Context, table kv.Table) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(table)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(table))
	})
}

