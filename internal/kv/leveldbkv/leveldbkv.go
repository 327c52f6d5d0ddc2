// Package leveldbkv implements the kv.Store contract on top of
// github.com/syndtr/goleveldb, an alternate durable engine to boltkv. It
// exists to demonstrate that the contract in spec §4.1 is genuinely
// storage-engine-agnostic: the same internal/kv/kvtest conformance suite
// runs unmodified against it.
package leveldbkv

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/kv"
)

// Store is a goleveldb-backed kv.Store. Tables share one underlying
// database, namespaced by prepending the table name to every key since
// goleveldb, unlike bbolt, has no native bucket concept.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if necessary) a goleveldb database directory.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database files.
func (s *Store) Close() error {
	return s.db.Close()
}

func namespacedKey(table kv.Table, key []byte) []byte {
	out := make([]byte, 0, len(table)+1+len(key))
	out = append(out, table...)
	out = append(out, 0)
	out = append(out, key...)
	return out
}

func tablePrefix(table kv.Table) []byte {
	return append([]byte(table), 0)
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
	return s.db.Put(namespacedKey(table, key), encodeColumns(columns), nil)
}

func (s *Store) WriteRows(_ context.Context, table kv.Table, rows []kv.Row) error {
	if err := kv.ValidateWriteRows(rows); err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	for _, r := range rows {
		batch.Put(namespacedKey(table, r.Key), encodeColumns(r.Columns))
	}
	return s.db.Write(batch, nil)
}

func (s *Store) ReadRow(_ context.Context, table kv.Table, key []byte, columns []string) (kv.Row, error) {
	v, err := s.db.Get(namespacedKey(table, key), nil)
	if err == leveldb.ErrNotFound {
		return kv.Row{}, errs.NotFound
	}
	if err != nil {
		return kv.Row{}, fmt.Errorf("%w: %v", errs.OperationFailed, err)
	}
	return kv.Row{Key: append([]byte{}, key...), Columns: kv.ProjectColumns(decodeColumns(v), columns)}, nil
}

func (s *Store) ReadRows(_ context.Context, table kv.Table, startKey []byte, inclusive bool, limitKey []byte, columns []string, maxRows int) (kv.ReadRowsResult, error) {
	if err := kv.ValidateReadRowsRange(startKey, limitKey, maxRows); err != nil {
		return kv.ReadRowsResult{}, err
	}
	prefix := tablePrefix(table)
	r := &util.Range{Start: namespacedKey(table, startKey)}
	if len(limitKey) > 0 {
		r.Limit = namespacedKey(table, limitKey)
	} else {
		r.Limit = util.BytesPrefix(prefix).Limit
	}
	it := s.db.NewIterator(r, nil)
	defer it.Release()

	var result kv.ReadRowsResult
	first := true
	for it.Next() {
		key := it.Key()
		rowKey := append([]byte{}, key[len(prefix):]...)
		if first && !inclusive && bytes.Equal(rowKey, startKey) {
			first = false
			continue
		}
		first = false
		if len(result.Rows) >= maxRows {
			result.MoreAvailable = true
			break
		}
		result.Rows = append(result.Rows, kv.Row{
			Key:     rowKey,
			Columns: kv.ProjectColumns(decodeColumns(it.Value()), columns),
		})
	}
	if err := it.Error(); err != nil {
		return kv.ReadRowsResult{}, fmt.Errorf("%w: %v", errs.OperationFailed, err)
	}
	return result, nil
}

func (s *Store) DeleteRow(_ context.Context, table kv.Table, key []byte) error {
	return s.db.Delete(namespacedKey(table, key), nil)
}

func (s *Store) DeleteRowsWithPrefix(ctx context.Context, table kv.Table, prefix []byte) error {
	return kv.DeleteRows(ctx, s, table, prefix, true, kv.PrefixUpperBound(prefix))
}

func (s *Store) DeleteAllRows(_ context.Context, table kv.Table) error {
	prefix := tablePrefix(table)
	iterRange := util.BytesPrefix(prefix)
	it := s.db.NewIterator(iterRange, nil)
	defer it.Release()
	batch := new(leveldb.Batch)
	for it.Next() {
		batch.Delete(append([]byte{}, it.Key()...))
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("%w: %v", errs.OperationFailed, err)
	}
	return s.db.Write(batch, nil)
}
