package remotekv_test

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shuffler/reportmaster/internal/kv"
	"github.com/shuffler/reportmaster/internal/kv/kvservice"
	"github.com/shuffler/reportmaster/internal/kv/kvtest"
	"github.com/shuffler/reportmaster/internal/kv/memkv"
	"github.com/shuffler/reportmaster/internal/kv/remotekv"
	"github.com/shuffler/reportmaster/pkg/analyzerpb"
)

// inProcessClient dispatches straight to a kvservice.Server, standing in for
// a real grpc.ClientConn so the remotekv <-> kvservice round trip (request
// encoding, gob envelopes, response decoding) is exercised without a socket.
type inProcessClient struct {
	srv *kvservice.Server
}

func (c *inProcessClient) WriteRow(ctx context.Context, in *wrapperspb.BytesValue, _ ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.srv.WriteRow(ctx, in)
}
func (c *inProcessClient) WriteRows(ctx context.Context, in *wrapperspb.BytesValue, _ ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.srv.WriteRows(ctx, in)
}
func (c *inProcessClient) ReadRow(ctx context.Context, in *wrapperspb.BytesValue, _ ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.srv.ReadRow(ctx, in)
}
func (c *inProcessClient) ReadRows(ctx context.Context, in *wrapperspb.BytesValue, _ ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.srv.ReadRows(ctx, in)
}
func (c *inProcessClient) DeleteRow(ctx context.Context, in *wrapperspb.BytesValue, _ ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.srv.DeleteRow(ctx, in)
}
func (c *inProcessClient) DeleteRowsWithPrefix(ctx context.Context, in *wrapperspb.BytesValue, _ ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.srv.DeleteRowsWithPrefix(ctx, in)
}
func (c *inProcessClient) DeleteAllRows(ctx context.Context, in *wrapperspb.BytesValue, _ ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.srv.DeleteAllRows(ctx, in)
}

var _ analyzerpb.TableStoreClient = (*inProcessClient)(nil)

func TestRemoteStore_ConformsToContract(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store {
		client := &inProcessClient{srv: kvservice.New(memkv.New())}
		return remotekv.New(client)
	})
}
