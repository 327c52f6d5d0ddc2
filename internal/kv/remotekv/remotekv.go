// Package remotekv implements the kv.Store contract against an out-of-process
// TableStore gRPC service (pkg/analyzerpb), the fourth storage engine spec
// §4.1 calls for alongside memkv/boltkv/leveldbkv. Every call is wrapped in
// an exponential backoff retry since, unlike the embedded backends, a remote
// store can fail transiently on a healthy cluster.
package remotekv

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/kv"
	"github.com/shuffler/reportmaster/pkg/analyzerpb"
)

// Store is a kv.Store backed by a TableStore gRPC client.
type Store struct {
	client  analyzerpb.TableStoreClient
	backoff func() backoff.BackOff
}

// Option configures a Store.
type Option func(*Store)

// WithBackoff overrides the retry policy used for every RPC. The default is
// a capped exponential backoff that gives up after 30 seconds.
func WithBackoff(newBackOff func() backoff.BackOff) Option {
	return func(s *Store) { s.backoff = newBackOff }
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// New wraps a TableStoreClient as a kv.Store.
func New(client analyzerpb.TableStoreClient, opts ...Option) *Store {
	s := &Store{client: client, backoff: defaultBackOff}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type writeRowRequest struct {
	Table   kv.Table
	Key     []byte
	Columns map[string][]byte
}

type writeRowsRequest struct {
	Table kv.Table
	Rows  []kv.Row
}

type readRowRequest struct {
	Table   kv.Table
	Key     []byte
	Columns []string
}

type readRowResponse struct {
	Row kv.Row
}

type readRowsRequest struct {
	Table     kv.Table
	StartKey  []byte
	Inclusive bool
	LimitKey  []byte
	Columns   []string
	MaxRows   int
}

type readRowsResponse struct {
	Result kv.ReadRowsResult
}

type deleteRowRequest struct {
	Table kv.Table
	Key   []byte
}

type deleteRowsWithPrefixRequest struct {
	Table  kv.Table
	Prefix []byte
}

type deleteAllRowsRequest struct {
	Table kv.Table
}

func encodeEnvelope(v interface{}) (*wrapperspb.BytesValue, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", errs.OperationFailed, err)
	}
	return wrapperspb.Bytes(buf.Bytes()), nil
}

func decodeEnvelope(b *wrapperspb.BytesValue, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(b.GetValue())).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %v", errs.OperationFailed, err)
	}
	return nil
}

// callWithRetry invokes fn, retrying on transient failures per s.backoff.
// Sentinel errors from internal/errs (NotFound, InvalidArgument, ...) are
// permanent and are not retried.
func (s *Store) callWithRetry(ctx context.Context, fn func() error) error {
	op := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if errs.IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(s.backoff(), ctx))
}

func (s *Store) WriteRow(ctx context.Context, table kv.Table, key []byte, columns map[string][]byte) error {
	req, err := encodeEnvelope(writeRowRequest{Table: table, Key: key, Columns: columns})
	if err != nil {
		return err
	}
	return s.callWithRetry(ctx, func() error {
		_, err := s.client.WriteRow(ctx, req)
		return err
	})
}

func (s *Store) WriteRows(ctx context.Context, table kv.Table, rows []kv.Row) error {
	if err := kv.ValidateWriteRows(rows); err != nil {
		return err
	}
	req, err := encodeEnvelope(writeRowsRequest{Table: table, Rows: rows})
	if err != nil {
		return err
	}
	return s.callWithRetry(ctx, func() error {
		_, err := s.client.WriteRows(ctx, req)
		return err
	})
}

func (s *Store) ReadRow(ctx context.Context, table kv.Table, key []byte, columns []string) (kv.Row, error) {
	req, err := encodeEnvelope(readRowRequest{Table: table, Key: key, Columns: columns})
	if err != nil {
		return kv.Row{}, err
	}
	var resp readRowResponse
	err = s.callWithRetry(ctx, func() error {
		out, err := s.client.ReadRow(ctx, req)
		if err != nil {
			return err
		}
		return decodeEnvelope(out, &resp)
	})
	if err != nil {
		return kv.Row{}, err
	}
	// gob does not transmit an empty slice, so a keys-only projection
	// arrives at the server as nil ("all columns"); apply it here.
	if columns != nil && len(columns) == 0 {
		resp.Row.Columns = map[string][]byte{}
	}
	return resp.Row, nil
}

func (s *Store) ReadRows(ctx context.Context, table kv.Table, startKey []byte, inclusive bool, limitKey []byte, columns []string, maxRows int) (kv.ReadRowsResult, error) {
	if err := kv.ValidateReadRowsRange(startKey, limitKey, maxRows); err != nil {
		return kv.ReadRowsResult{}, err
	}
	req, err := encodeEnvelope(readRowsRequest{
		Table:     table,
		StartKey:  startKey,
		Inclusive: inclusive,
		LimitKey:  limitKey,
		Columns:   columns,
		MaxRows:   maxRows,
	})
	if err != nil {
		return kv.ReadRowsResult{}, err
	}
	var resp readRowsResponse
	err = s.callWithRetry(ctx, func() error {
		out, err := s.client.ReadRows(ctx, req)
		if err != nil {
			return err
		}
		return decodeEnvelope(out, &resp)
	})
	if err != nil {
		return kv.ReadRowsResult{}, err
	}
	// gob does not transmit an empty slice, so a keys-only projection
	// arrives at the server as nil ("all columns"); apply it here.
	if columns != nil && len(columns) == 0 {
		for i := range resp.Result.Rows {
			resp.Result.Rows[i].Columns = map[string][]byte{}
		}
	}
	return resp.Result, nil
}

func (s *Store) DeleteRow(ctx context.Context, table kv.Table, key []byte) error {
	req, err := encodeEnvelope(deleteRowRequest{Table: table, Key: key})
	if err != nil {
		return err
	}
	return s.callWithRetry(ctx, func() error {
		_, err := s.client.DeleteRow(ctx, req)
		return err
	})
}

func (s *Store) DeleteRowsWithPrefix(ctx context.Context, table kv.Table, prefix []byte) error {
	req, err := encodeEnvelope(deleteRowsWithPrefixRequest{Table: table, Prefix: prefix})
	if err != nil {
		return err
	}
	return s.callWithRetry(ctx, func() error {
		_, err := s.client.DeleteRowsWithPrefix(ctx, req)
		return err
	})
}

func (s *Store) DeleteAllRows(ctx context.Context, table kv.Table) error {
	req, err := encodeEnvelope(deleteAllRowsRequest{Table: table})
	if err != nil {
		return err
	}
	return s.callWithRetry(ctx, func() error {
		_, err := s.client.DeleteAllRows(ctx, req)
		return err
	})
}
