// Package kvtest is a conformance suite run against every kv.Store
// implementation (memkv, boltkv, leveldbkv, remotekv) so the contract in spec §4.1 is
// verified identically regardless of backing engine.
package kvtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/kv"
)

// Run exercises the full contract against a fresh Store built by newStore.
func Run(t *testing.T, newStore func(t *testing.T) kv.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("WriteReadRoundTrip", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.WriteRow(ctx, kv.TableObservations, []byte("k1"), map[string][]byte{"a": []byte("1")}))
		row, err := s.ReadRow(ctx, kv.TableObservations, []byte("k1"), nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), row.Columns["a"])
	})

	t.Run("ReadRowNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.ReadRow(ctx, kv.TableObservations, []byte("missing"), nil)
		assert.ErrorIs(t, err, errs.NotFound)
	})

	t.Run("WriteRowOverwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.WriteRow(ctx, kv.TableObservations, []byte("k1"), map[string][]byte{"a": []byte("1")}))
		require.NoError(t, s.WriteRow(ctx, kv.TableObservations, []byte("k1"), map[string][]byte{"a": []byte("2")}))
		row, err := s.ReadRow(ctx, kv.TableObservations, []byte("k1"), nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), row.Columns["a"])
	})

	t.Run("ReadRowsOrderedByKey", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"c", "a", "b"} {
			require.NoError(t, s.WriteRow(ctx, kv.TableObservations, []byte(k), map[string][]byte{"v": []byte(k)}))
		}
		result, err := s.ReadRows(ctx, kv.TableObservations, []byte(""), true, nil, nil, 10)
		require.NoError(t, err)
		require.Len(t, result.Rows, 3)
		assert.Equal(t, []byte("a"), result.Rows[0].Key)
		assert.Equal(t, []byte("b"), result.Rows[1].Key)
		assert.Equal(t, []byte("c"), result.Rows[2].Key)
		assert.False(t, result.MoreAvailable)
	})

	t.Run("ReadRowsPagination", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 5; i++ {
			require.NoError(t, s.WriteRow(ctx, kv.TableObservations, []byte{byte('a' + i)}, map[string][]byte{"v": {byte(i)}}))
		}
		page1, err := s.ReadRows(ctx, kv.TableObservations, []byte(""), true, nil, nil, 2)
		require.NoError(t, err)
		require.Len(t, page1.Rows, 2)
		assert.True(t, page1.MoreAvailable)

		lastKey := page1.Rows[len(page1.Rows)-1].Key
		page2, err := s.ReadRows(ctx, kv.TableObservations, lastKey, false, nil, nil, 2)
		require.NoError(t, err)
		require.Len(t, page2.Rows, 2)
		assert.True(t, page2.MoreAvailable)

		lastKey = page2.Rows[len(page2.Rows)-1].Key
		page3, err := s.ReadRows(ctx, kv.TableObservations, lastKey, false, nil, nil, 2)
		require.NoError(t, err)
		require.Len(t, page3.Rows, 1)
		assert.False(t, page3.MoreAvailable)
	})

	t.Run("ReadRowsInvalidRange", func(t *testing.T) {
		s := newStore(t)
		_, err := s.ReadRows(ctx, kv.TableObservations, []byte("z"), true, []byte("a"), nil, 10)
		assert.ErrorIs(t, err, errs.InvalidArgument)

		_, err = s.ReadRows(ctx, kv.TableObservations, []byte("a"), true, nil, nil, 0)
		assert.ErrorIs(t, err, errs.InvalidArgument)
	})

	t.Run("ReadRowsZeroColumnProjection", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.WriteRow(ctx, kv.TableObservations, []byte("k1"), map[string][]byte{"a": []byte("1")}))
		result, err := s.ReadRows(ctx, kv.TableObservations, []byte(""), true, nil, []string{}, 10)
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Empty(t, result.Rows[0].Columns)
	})

	t.Run("DeleteRow", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.WriteRow(ctx, kv.TableObservations, []byte("k1"), map[string][]byte{"a": []byte("1")}))
		require.NoError(t, s.DeleteRow(ctx, kv.TableObservations, []byte("k1")))
		_, err := s.ReadRow(ctx, kv.TableObservations, []byte("k1"), nil)
		assert.ErrorIs(t, err, errs.NotFound)
	})

	t.Run("DeleteRowsWithPrefix", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.WriteRow(ctx, kv.TableObservations, []byte("cfg1:a"), nil))
		require.NoError(t, s.WriteRow(ctx, kv.TableObservations, []byte("cfg1:b"), nil))
		require.NoError(t, s.WriteRow(ctx, kv.TableObservations, []byte("cfg2:a"), nil))
		require.NoError(t, s.DeleteRowsWithPrefix(ctx, kv.TableObservations, []byte("cfg1:")))

		result, err := s.ReadRows(ctx, kv.TableObservations, []byte(""), true, nil, nil, 100)
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, []byte("cfg2:a"), result.Rows[0].Key)
	})

	t.Run("DeleteRowsWithPrefixManyRows", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 2500; i++ {
			key := []byte{'x', byte(i >> 8), byte(i)}
			require.NoError(t, s.WriteRow(ctx, kv.TableObservations, key, nil))
		}
		require.NoError(t, s.WriteRow(ctx, kv.TableObservations, []byte("keep"), nil))
		require.NoError(t, s.DeleteRowsWithPrefix(ctx, kv.TableObservations, []byte{'x'}))

		result, err := s.ReadRows(ctx, kv.TableObservations, []byte(""), true, nil, nil, 10)
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, []byte("keep"), result.Rows[0].Key)
	})

	t.Run("DeleteAllRows", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.WriteRow(ctx, kv.TableObservations, []byte("k1"), nil))
		require.NoError(t, s.WriteRow(ctx, kv.TableReportsMetadata, []byte("k1"), nil))
		require.NoError(t, s.DeleteAllRows(ctx, kv.TableObservations))

		result, err := s.ReadRows(ctx, kv.TableObservations, []byte(""), true, nil, nil, 10)
		require.NoError(t, err)
		assert.Empty(t, result.Rows)

		result, err = s.ReadRows(ctx, kv.TableReportsMetadata, []byte(""), true, nil, nil, 10)
		require.NoError(t, err)
		assert.Len(t, result.Rows, 1)
	})

	t.Run("WriteRowsRejectsOversizedBatch", func(t *testing.T) {
		s := newStore(t)
		rows := make([]kv.Row, 0, 2)
		cols := make(map[string][]byte, kv.MaxColumnsPerWrite/2+1)
		for i := 0; i < kv.MaxColumnsPerWrite/2+1; i++ {
			cols[string(rune(i))] = []byte("v")
		}
		rows = append(rows, kv.Row{Key: []byte("k1"), Columns: cols}, kv.Row{Key: []byte("k2"), Columns: cols})
		err := s.WriteRows(ctx, kv.TableObservations, rows)
		assert.ErrorIs(t, err, errs.InvalidArgument)
	})
}
