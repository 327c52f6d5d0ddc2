package analyzerpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// TableStoreServer is the internal RPC surface a remote key-value backend
// implements; internal/kv/remotekv is its client.
type TableStoreServer interface {
	WriteRow(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	WriteRows(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	ReadRow(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	ReadRows(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	DeleteRow(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	DeleteRowsWithPrefix(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	DeleteAllRows(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedTableStoreServer can be embedded to satisfy TableStoreServer
// for server implementations that only override a subset of methods.
type UnimplementedTableStoreServer struct{}

func (UnimplementedTableStoreServer) WriteRow(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method WriteRow not implemented")
}
func (UnimplementedTableStoreServer) WriteRows(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method WriteRows not implemented")
}
func (UnimplementedTableStoreServer) ReadRow(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ReadRow not implemented")
}
func (UnimplementedTableStoreServer) ReadRows(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ReadRows not implemented")
}
func (UnimplementedTableStoreServer) DeleteRow(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteRow not implemented")
}
func (UnimplementedTableStoreServer) DeleteRowsWithPrefix(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteRowsWithPrefix not implemented")
}
func (UnimplementedTableStoreServer) DeleteAllRows(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteAllRows not implemented")
}

// TableStoreClient is the client stub internal/kv/remotekv drives.
type TableStoreClient interface {
	WriteRow(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	WriteRows(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	ReadRow(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	ReadRows(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	DeleteRow(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	DeleteRowsWithPrefix(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	DeleteAllRows(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type tableStoreClient struct {
	cc grpc.ClientConnInterface
}

// NewTableStoreClient adapts a ClientConn into a TableStoreClient.
func NewTableStoreClient(cc grpc.ClientConnInterface) TableStoreClient {
	return &tableStoreClient{cc}
}

func (c *tableStoreClient) call(ctx context.Context, method string, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tableStoreClient) WriteRow(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.call(ctx, "/analyzerpb.TableStore/WriteRow", in, opts...)
}
func (c *tableStoreClient) WriteRows(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.call(ctx, "/analyzerpb.TableStore/WriteRows", in, opts...)
}
func (c *tableStoreClient) ReadRow(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.call(ctx, "/analyzerpb.TableStore/ReadRow", in, opts...)
}
func (c *tableStoreClient) ReadRows(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.call(ctx, "/analyzerpb.TableStore/ReadRows", in, opts...)
}
func (c *tableStoreClient) DeleteRow(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.call(ctx, "/analyzerpb.TableStore/DeleteRow", in, opts...)
}
func (c *tableStoreClient) DeleteRowsWithPrefix(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.call(ctx, "/analyzerpb.TableStore/DeleteRowsWithPrefix", in, opts...)
}
func (c *tableStoreClient) DeleteAllRows(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.call(ctx, "/analyzerpb.TableStore/DeleteAllRows", in, opts...)
}

// RegisterTableStoreServer registers srv on s.
func RegisterTableStoreServer(s grpc.ServiceRegistrar, srv TableStoreServer) {
	s.RegisterService(&TableStore_ServiceDesc, srv)
}

func tableStoreUnaryHandler(method func(TableStoreServer, context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error), fullMethod string) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(wrapperspb.BytesValue)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(TableStoreServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return method(srv.(TableStoreServer), ctx, req.(*wrapperspb.BytesValue))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// TableStore_ServiceDesc is the grpc.ServiceDesc for TableStore, the shape
// a protoc-gen-go-grpc run would produce.
var TableStore_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "analyzerpb.TableStore",
	HandlerType: (*TableStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "WriteRow", Handler: tableStoreUnaryHandler(TableStoreServer.WriteRow, "/analyzerpb.TableStore/WriteRow")},
		{MethodName: "WriteRows", Handler: tableStoreUnaryHandler(TableStoreServer.WriteRows, "/analyzerpb.TableStore/WriteRows")},
		{MethodName: "ReadRow", Handler: tableStoreUnaryHandler(TableStoreServer.ReadRow, "/analyzerpb.TableStore/ReadRow")},
		{MethodName: "ReadRows", Handler: tableStoreUnaryHandler(TableStoreServer.ReadRows, "/analyzerpb.TableStore/ReadRows")},
		{MethodName: "DeleteRow", Handler: tableStoreUnaryHandler(TableStoreServer.DeleteRow, "/analyzerpb.TableStore/DeleteRow")},
		{MethodName: "DeleteRowsWithPrefix", Handler: tableStoreUnaryHandler(TableStoreServer.DeleteRowsWithPrefix, "/analyzerpb.TableStore/DeleteRowsWithPrefix")},
		{MethodName: "DeleteAllRows", Handler: tableStoreUnaryHandler(TableStoreServer.DeleteAllRows, "/analyzerpb.TableStore/DeleteAllRows")},
	},
	Metadata: "reportmaster/tablestore.proto",
}
