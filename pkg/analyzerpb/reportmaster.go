package analyzerpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ReportMasterServer is the public RPC surface described in spec §6:
// StartReport and GetReport are unary, QueryReports streams report metadata
// back to the caller a page at a time.
type ReportMasterServer interface {
	StartReport(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	GetReport(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	QueryReports(*wrapperspb.BytesValue, ReportMaster_QueryReportsServer) error
}

// UnimplementedReportMasterServer can be embedded for forward compatibility.
type UnimplementedReportMasterServer struct{}

func (UnimplementedReportMasterServer) StartReport(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method StartReport not implemented")
}
func (UnimplementedReportMasterServer) GetReport(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetReport not implemented")
}
func (UnimplementedReportMasterServer) QueryReports(*wrapperspb.BytesValue, ReportMaster_QueryReportsServer) error {
	return status.Error(codes.Unimplemented, "method QueryReports not implemented")
}

// ReportMaster_QueryReportsServer is the server-side handle for the
// QueryReports stream; Send pushes one encoded page to the caller.
type ReportMaster_QueryReportsServer interface {
	Send(*wrapperspb.BytesValue) error
	grpc.ServerStream
}

type reportMasterQueryReportsServer struct {
	grpc.ServerStream
}

func (s *reportMasterQueryReportsServer) Send(m *wrapperspb.BytesValue) error {
	return s.ServerStream.SendMsg(m)
}

// ReportMasterClient is the client stub callers of the public API drive.
type ReportMasterClient interface {
	StartReport(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	GetReport(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	QueryReports(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (ReportMaster_QueryReportsClient, error)
}

type reportMasterClient struct {
	cc grpc.ClientConnInterface
}

// NewReportMasterClient adapts a ClientConn into a ReportMasterClient.
func NewReportMasterClient(cc grpc.ClientConnInterface) ReportMasterClient {
	return &reportMasterClient{cc}
}

func (c *reportMasterClient) StartReport(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/analyzerpb.ReportMaster/StartReport", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *reportMasterClient) GetReport(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/analyzerpb.ReportMaster/GetReport", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *reportMasterClient) QueryReports(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (ReportMaster_QueryReportsClient, error) {
	stream, err := c.cc.NewStream(ctx, &ReportMaster_ServiceDesc.Streams[0], "/analyzerpb.ReportMaster/QueryReports", opts...)
	if err != nil {
		return nil, err
	}
	x := &reportMasterQueryReportsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// ReportMaster_QueryReportsClient is the client-side handle for the
// QueryReports stream; Recv returns io.EOF once the store has no more pages.
type ReportMaster_QueryReportsClient interface {
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ClientStream
}

type reportMasterQueryReportsClient struct {
	grpc.ClientStream
}

func (x *reportMasterQueryReportsClient) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RegisterReportMasterServer registers srv on s.
func RegisterReportMasterServer(s grpc.ServiceRegistrar, srv ReportMasterServer) {
	s.RegisterService(&ReportMaster_ServiceDesc, srv)
}

func _ReportMaster_StartReport_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportMasterServer).StartReport(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/analyzerpb.ReportMaster/StartReport"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReportMasterServer).StartReport(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _ReportMaster_GetReport_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportMasterServer).GetReport(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/analyzerpb.ReportMaster/GetReport"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReportMasterServer).GetReport(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _ReportMaster_QueryReports_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(wrapperspb.BytesValue)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ReportMasterServer).QueryReports(m, &reportMasterQueryReportsServer{stream})
}

// ReportMaster_ServiceDesc is the grpc.ServiceDesc for ReportMaster, the
// shape a protoc-gen-go-grpc run would produce.
var ReportMaster_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "analyzerpb.ReportMaster",
	HandlerType: (*ReportMasterServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartReport", Handler: _ReportMaster_StartReport_Handler},
		{MethodName: "GetReport", Handler: _ReportMaster_GetReport_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "QueryReports",
			Handler:       _ReportMaster_QueryReports_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "reportmaster/reportmaster.proto",
}
