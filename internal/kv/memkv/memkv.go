// Package memkv is an in-memory implementation of the kv.Store contract,
// used by unit tests throughout the report-master subsystem. It keeps rows
// in a sorted slice per table — simple and adequate at the scale this
// repository operates at (observation pages of 1,000 rows, reports capped
// at 5,000 rows); see DESIGN.md for why no third-party ordered-map
// structure is used here.
package memkv

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/kv"
)

type entry struct {
	key     []byte
	columns map[string][]byte
}

// Store is a thread-safe, in-memory kv.Store.
type Store struct {
	mu     sync.RWMutex
	tables map[kv.Table][]entry
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{tables: make(map[kv.Table][]entry)}
}

func cloneColumns(src map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(src))
	for k, v := range src {
		cp := append([]byte{}, v...)
		out[k] = cp
	}
	return out
}

func (s *Store) find(rows []entry, key []byte) (int, bool) {
	i := sort.Search(len(rows), func(i int) bool { return bytes.Compare(rows[i].key, key) >= 0 })
	if i < len(rows) && bytes.Equal(rows[i].key, key) {
		return i, true
	}
	return i, false
}

// WriteRow upserts one row.
func (s *Store) WriteRow(_ context.Context, table kv.Table, key []byte, columns map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	i, ok := s.find(rows, key)
	e := entry{key: append([]byte{}, key...), columns: cloneColumns(columns)}
	if ok {
		rows[i] = e
		return nil
	}
	rows = append(rows, entry{})
	copy(rows[i+1:], rows[i:])
	rows[i] = e
	s.tables[table] = rows
	return nil
}

// WriteRows is a batched upsert.
func (s *Store) WriteRows(ctx context.Context, table kv.Table, rows []kv.Row) error {
	if err := kv.ValidateWriteRows(rows); err != nil {
		return err
	}
	for _, r := range rows {
		if err := s.WriteRow(ctx, table, r.Key, r.Columns); err != nil {
			return err
		}
	}
	return nil
}

// ReadRow returns errs.NotFound if no row exists at key.
func (s *Store) ReadRow(_ context.Context, table kv.Table, key []byte, columns []string) (kv.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.tables[table]
	i, ok := s.find(rows, key)
	if !ok {
		return kv.Row{}, errs.NotFound
	}
	return kv.Row{Key: append([]byte{}, key...), Columns: kv.ProjectColumns(rows[i].columns, columns)}, nil
}

// ReadRows scans [startKey, limitKey) honoring inclusive/exclusive start
// and the empty-limitKey-means-infinity convention.
func (s *Store) ReadRows(_ context.Context, table kv.Table, startKey []byte, inclusive bool, limitKey []byte, columns []string, maxRows int) (kv.ReadRowsResult, error) {
	if err := kv.ValidateReadRowsRange(startKey, limitKey, maxRows); err != nil {
		return kv.ReadRowsResult{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.tables[table]
	i := sort.Search(len(rows), func(i int) bool { return bytes.Compare(rows[i].key, startKey) >= 0 })
	if !inclusive {
		for i < len(rows) && bytes.Equal(rows[i].key, startKey) {
			i++
		}
	}
	result := kv.ReadRowsResult{}
	for ; i < len(rows); i++ {
		if len(limitKey) > 0 && bytes.Compare(rows[i].key, limitKey) >= 0 {
			break
		}
		if len(result.Rows) >= maxRows {
			result.MoreAvailable = true
			break
		}
		result.Rows = append(result.Rows, kv.Row{
			Key:     append([]byte{}, rows[i].key...),
			Columns: kv.ProjectColumns(rows[i].columns, columns),
		})
	}
	return result, nil
}

// DeleteRow removes one row; a delete of a nonexistent key is a no-op.
func (s *Store) DeleteRow(_ context.Context, table kv.Table, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	i, ok := s.find(rows, key)
	if !ok {
		return nil
	}
	s.tables[table] = append(rows[:i], rows[i+1:]...)
	return nil
}

// DeleteRowsWithPrefix purges every row whose key has the given prefix.
func (s *Store) DeleteRowsWithPrefix(ctx context.Context, table kv.Table, prefix []byte) error {
	return kv.DeleteRows(ctx, s, table, prefix, true, kv.PrefixUpperBound(prefix))
}

// DeleteAllRows purges an entire table.
func (s *Store) DeleteAllRows(_ context.Context, table kv.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, table)
	return nil
}
