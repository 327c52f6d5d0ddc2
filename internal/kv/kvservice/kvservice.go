// Package kvservice exposes a kv.Store over the TableStore gRPC service
// (pkg/analyzerpb), the server side of internal/kv/remotekv. It lets any of
// memkv/boltkv/leveldbkv be placed behind a process boundary without a
// dedicated server binary for each.
package kvservice

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/kv"
	"github.com/shuffler/reportmaster/pkg/analyzerpb"
)

// Server adapts a kv.Store to analyzerpb.TableStoreServer.
type Server struct {
	analyzerpb.UnimplementedTableStoreServer
	store kv.Store
}

// New wraps store for serving over TableStore.
func New(store kv.Store) *Server {
	return &Server{store: store}
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

func decodeRequest(in *wrapperspb.BytesValue, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(in.GetValue())).Decode(v); err != nil {
		return fmt.Errorf("%w: decode request: %v", errs.InvalidArgument, err)
	}
	return nil
}

func encodeResponse(v interface{}) (*wrapperspb.BytesValue, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("%w: encode response: %v", errs.OperationFailed, err)
	}
	return wrapperspb.Bytes(buf.Bytes()), nil
}

var empty = struct{}{}

func (s *Server) WriteRow(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req writeRowRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := s.store.WriteRow(ctx, req.Table, req.Key, req.Columns); err != nil {
		return nil, err
	}
	return encodeResponse(empty)
}

func (s *Server) WriteRows(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req writeRowsRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := s.store.WriteRows(ctx, req.Table, req.Rows); err != nil {
		return nil, err
	}
	return encodeResponse(empty)
}

func (s *Server) ReadRow(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req readRowRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	row, err := s.store.ReadRow(ctx, req.Table, req.Key, req.Columns)
	if err != nil {
		return nil, err
	}
	return encodeResponse(readRowResponse{Row: row})
}

func (s *Server) ReadRows(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req readRowsRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	result, err := s.store.ReadRows(ctx, req.Table, req.StartKey, req.Inclusive, req.LimitKey, req.Columns, req.MaxRows)
	if err != nil {
		return nil, err
	}
	return encodeResponse(readRowsResponse{Result: result})
}

func (s *Server) DeleteRow(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req deleteRowRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := s.store.DeleteRow(ctx, req.Table, req.Key); err != nil {
		return nil, err
	}
	return encodeResponse(empty)
}

func (s *Server) DeleteRowsWithPrefix(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req deleteRowsWithPrefixRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := s.store.DeleteRowsWithPrefix(ctx, req.Table, req.Prefix); err != nil {
		return nil, err
	}
	return encodeResponse(empty)
}

func (s *Server) DeleteAllRows(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req deleteAllRowsRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := s.store.DeleteAllRows(ctx, req.Table); err != nil {
		return nil, err
	}
	return encodeResponse(empty)
}
