package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Full method names of medalarm.v1.AlarmService.
const (
	AlarmService_GetAlarmState_FullMethodName   = "/medalarm.v1.AlarmService/GetAlarmState"
	AlarmService_Acknowledge_FullMethodName     = "/medalarm.v1.AlarmService/Acknowledge"
	AlarmService_HandleAction_FullMethodName    = "/medalarm.v1.AlarmService/HandleAction"
	AlarmService_GetPendingDose_FullMethodName  = "/medalarm.v1.AlarmService/GetPendingDose"
	AlarmService_MarkPendingDose_FullMethodName = "/medalarm.v1.AlarmService/MarkPendingDose"
	AlarmService_WatchAlarmState_FullMethodName = "/medalarm.v1.AlarmService/WatchAlarmState"
)

// AlarmServiceClient is the client API for AlarmService.
type AlarmServiceClient interface {
	// GetAlarmState returns the current AlarmState message.
	GetAlarmState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	// Acknowledge confirms the ringing alarm; the request carries an Actor message.
	Acknowledge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	// HandleAction routes a platform notification action (Action message).
	HandleAction(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	// GetPendingDose evaluates the caregiver window for an owner id.
	GetPendingDose(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	// MarkPendingDose records the pending dose from the caregiver side (owner_id, actor).
	MarkPendingDose(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	// WatchAlarmState streams AlarmState messages on every transition.
	WatchAlarmState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type alarmServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAlarmServiceClient returns a client bound to cc.
func NewAlarmServiceClient(cc grpc.ClientConnInterface) AlarmServiceClient {
	return &alarmServiceClient{cc}
}

func (c *alarmServiceClient) GetAlarmState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AlarmService_GetAlarmState_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmServiceClient) Acknowledge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AlarmService_Acknowledge_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmServiceClient) HandleAction(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AlarmService_HandleAction_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmServiceClient) GetPendingDose(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AlarmService_GetPendingDose_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmServiceClient) MarkPendingDose(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AlarmService_MarkPendingDose_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmServiceClient) WatchAlarmState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &AlarmService_ServiceDesc.Streams[0], AlarmService_WatchAlarmState_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}

	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}

	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}

// AlarmServiceServer is the server API for AlarmService.
type AlarmServiceServer interface {
	GetAlarmState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Acknowledge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HandleAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPendingDose(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	MarkPendingDose(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchAlarmState(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// UnimplementedAlarmServiceServer can be embedded for forward compatibility.
type UnimplementedAlarmServiceServer struct{}

func (UnimplementedAlarmServiceServer) GetAlarmState(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAlarmState not implemented")
}

func (UnimplementedAlarmServiceServer) Acknowledge(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Acknowledge not implemented")
}

func (UnimplementedAlarmServiceServer) HandleAction(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method HandleAction not implemented")
}

func (UnimplementedAlarmServiceServer) GetPendingDose(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPendingDose not implemented")
}

func (UnimplementedAlarmServiceServer) MarkPendingDose(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method MarkPendingDose not implemented")
}

func (UnimplementedAlarmServiceServer) WatchAlarmState(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Error(codes.Unimplemented, "method WatchAlarmState not implemented")
}

// RegisterAlarmServiceServer registers srv on s.
func RegisterAlarmServiceServer(s grpc.ServiceRegistrar, srv AlarmServiceServer) {
	s.RegisterService(&AlarmService_ServiceDesc, srv)
}

func _AlarmService_GetAlarmState_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlarmServiceServer).GetAlarmState(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AlarmService_GetAlarmState_FullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlarmServiceServer).GetAlarmState(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

func _AlarmService_Acknowledge_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlarmServiceServer).Acknowledge(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AlarmService_Acknowledge_FullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlarmServiceServer).Acknowledge(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func _AlarmService_HandleAction_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlarmServiceServer).HandleAction(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AlarmService_HandleAction_FullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlarmServiceServer).HandleAction(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func _AlarmService_GetPendingDose_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlarmServiceServer).GetPendingDose(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AlarmService_GetPendingDose_FullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlarmServiceServer).GetPendingDose(ctx, req.(*wrapperspb.StringValue))
	}

	return interceptor(ctx, in, info, handler)
}

func _AlarmService_MarkPendingDose_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlarmServiceServer).MarkPendingDose(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AlarmService_MarkPendingDose_FullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlarmServiceServer).MarkPendingDose(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func _AlarmService_WatchAlarmState_Handler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}

	return srv.(AlarmServiceServer).WatchAlarmState(m, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// AlarmService_ServiceDesc is the grpc.ServiceDesc for AlarmService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by gRPC convention.
var AlarmService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "medalarm.v1.AlarmService",
	HandlerType: (*AlarmServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetAlarmState",
			Handler:    _AlarmService_GetAlarmState_Handler,
		},
		{
			MethodName: "Acknowledge",
			Handler:    _AlarmService_Acknowledge_Handler,
		},
		{
			MethodName: "HandleAction",
			Handler:    _AlarmService_HandleAction_Handler,
		},
		{
			MethodName: "GetPendingDose",
			Handler:    _AlarmService_GetPendingDose_Handler,
		},
		{
			MethodName: "MarkPendingDose",
			Handler:    _AlarmService_MarkPendingDose_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchAlarmState",
			Handler:       _AlarmService_WatchAlarmState_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "medalarm/v1/alarm.proto",
}
