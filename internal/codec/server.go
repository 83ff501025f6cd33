package codec

import (
	"context"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region server-iface
// ModelServer is the server side of the model service. The production
// implementation lives in the inference process next to the accelerator; Go
// implementations serve local stubs and tests.
type ModelServer interface {
	Generate(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Activate(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	Offload(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
}

// RegisterModelServer registers srv on s.
func RegisterModelServer(s grpc.ServiceRegistrar, srv ModelServer) {
	s.RegisterService(&serviceDesc, srv)
}

// RequestModel extracts the model name and max length sent by Generate.
func RequestModel(ctx context.Context) (name string, maxLength int) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", 0
	}
	if v := md.Get(mdModel); len(v) > 0 {
		name = v[0]
	}
	if v := md.Get(mdMaxLength); len(v) > 0 {
		maxLength, _ = strconv.Atoi(v[0])
	}
	return name, maxLength
}

// #endregion server-iface

// #region service-desc
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ModelServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Generate", Handler: generateHandler},
		{MethodName: "Activate", Handler: activateHandler},
		{MethodName: "Offload", Handler: offloadHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flownlg/v1/model.proto",
}

func generateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ModelServer).Generate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGenerate}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ModelServer).Generate(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func activateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ModelServer).Activate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodActivate}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ModelServer).Activate(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func offloadHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ModelServer).Offload(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodOffload}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ModelServer).Offload(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-desc
