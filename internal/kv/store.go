// Package kv defines the ordered key-value store contract (spec §4.1) that
// the observation store and report store are typed views over. Rows are
// ordered lexicographically by key within a table; keys are opaque bytes,
// and callers pack semantic fields into fixed-width zero-padded ASCII (see
// internal/idutil) so that range scans over one config's key prefix are
// contiguous.
package kv

import (
	"bytes"
	"context"
	"fmt"

	"github.com/shuffler/reportmaster/internal/errs"
)

// Table names one of the store's two logical tables. The Reports table is
// modeled as two physical tables (metadata, rows) because they have
// different access patterns and lifetimes; the contract is identical for
// all three.
type Table string

const (
	TableObservations    Table = "observations"
	TableReportsMetadata Table = "reports_metadata"
	TableReportsRows     Table = "reports_rows"
)

// MaxColumnsPerWrite bounds a single WriteRows call (spec §4.1).
const MaxColumnsPerWrite = 100000

// Row is one row: an opaque key and a map of column name to column value.
type Row struct {
	Key     []byte
	Columns map[string][]byte
}

// ReadRowsResult is the result of a ReadRows scan.
type ReadRowsResult struct {
	Rows []Row
	// MoreAvailable is true iff the underlying scan stopped before the
	// limit key because MaxRows was reached. Fewer rows than MaxRows may
	// still be returned even when MoreAvailable is false (spec §4.1).
	MoreAvailable bool
}

// Store is the ordered key-value contract implemented by memkv, boltkv,
// leveldbkv, and remotekv. All methods return errs.* sentinels on failure,
// checked with errors.Is, per spec §7's error taxonomy.
type Store interface {
	WriteRow(ctx context.Context, table Table, key []byte, columns map[string][]byte) error
	// WriteRows is a batched upsert; bounded to MaxColumnsPerWrite total
	// column values across all rows in one call.
	WriteRows(ctx context.Context, table Table, rows []Row) error
	// ReadRow returns errs.NotFound if no row exists at key. A nil columns
	// slice means "all columns"; a non-nil empty slice means "keys only,
	// no column values" (used internally by DeleteRows, spec §4.1).
	ReadRow(ctx context.Context, table Table, key []byte, columns []string) (Row, error)
	// ReadRows scans [startKey, limitKey) (limitKey exclusive), or
	// [startKey, +inf) when limitKey is empty. startKey is included iff
	// inclusive is true. Returns errs.InvalidArgument if startKey does not
	// sort strictly before a non-empty limitKey, or if maxRows <= 0.
	ReadRows(ctx context.Context, table Table, startKey []byte, inclusive bool, limitKey []byte, columns []string, maxRows int) (ReadRowsResult, error)
	DeleteRow(ctx context.Context, table Table, key []byte) error
	DeleteRowsWithPrefix(ctx context.Context, table Table, prefix []byte) error
	DeleteAllRows(ctx context.Context, table Table) error
}

// ValidateWriteRows enforces the MaxColumnsPerWrite bound shared by every
// Store implementation.
func ValidateWriteRows(rows []Row) error {
	total := 0
	for _, r := range rows {
		total += len(r.Columns)
	}
	if total > MaxColumnsPerWrite {
		return fmt.Errorf("%w: %d columns exceeds max %d per WriteRows call", errs.InvalidArgument, total, MaxColumnsPerWrite)
	}
	return nil
}

// ValidateReadRowsRange enforces that startKey sorts strictly before a
// non-empty limitKey, and that maxRows is positive.
func ValidateReadRowsRange(startKey, limitKey []byte, maxRows int) error {
	if maxRows <= 0 {
		return fmt.Errorf("%w: maxRows must be > 0, got %d", errs.InvalidArgument, maxRows)
	}
	if len(limitKey) > 0 && bytes.Compare(startKey, limitKey) >= 0 {
		return fmt.Errorf("%w: startKey must sort before limitKey", errs.InvalidArgument)
	}
	return nil
}

// ProjectColumns applies a column projection to a column map: nil means
// "all columns" (returns cols unmodified); a non-nil empty slice means
// "no columns" (returns an empty map); otherwise only the named columns
// that are present are kept.
func ProjectColumns(cols map[string][]byte, projection []string) map[string][]byte {
	if projection == nil {
		return cols
	}
	out := make(map[string][]byte, len(projection))
	if len(projection) == 0 {
		return out
	}
	for _, name := range projection {
		if v, ok := cols[name]; ok {
			out[name] = v
		}
	}
	return out
}

// PrefixUpperBound returns the smallest key that sorts after every key
// having the given prefix, or nil if the prefix is all 0xFF bytes (meaning
// unbounded / infinity is the correct limit).
func PrefixUpperBound(prefix []byte) []byte {
	upper := append([]byte{}, prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] != 0xFF {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

// DeleteRows implements batched range deletion generically on top of
// ReadRows + DeleteRow, exactly as spec §4.1 describes: repeatedly read up
// to 1,000 row keys in the range using a zero-column projection, then
// delete each. Store implementations call this from DeleteRowsWithPrefix.
func DeleteRows(ctx context.Context, s Store, table Table, start []byte, inclusive bool, limit []byte) error {
	const pageSize = 1000
	cursor := start
	cursorInclusive := inclusive
	for {
		result, err := s.ReadRows(ctx, table, cursor, cursorInclusive, limit, []string{}, pageSize)
		if err != nil {
			return err
		}
		for _, row := range result.Rows {
			if err := s.DeleteRow(ctx, table, row.Key); err != nil {
				return err
			}
		}
		if !result.MoreAvailable || len(result.Rows) == 0 {
			return nil
		}
		cursor = result.Rows[len(result.Rows)-1].Key
		cursorInclusive = false
	}
}
