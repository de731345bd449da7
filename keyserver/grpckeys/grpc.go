package grpckeys

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// KeyServiceServer is the server API for the key-release gRPC service.
//
// Requests and responses are JSON documents carried in protobuf wrapper
// types so this package does not require a protoc/codegen toolchain.
//
// Proto definition: keyservice.proto.
type KeyServiceServer interface {
	Wrap(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Unwrap(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedKeyServiceServer can be embedded to have forward compatible implementations.
type UnimplementedKeyServiceServer struct{}

func (UnimplementedKeyServiceServer) Wrap(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Wrap not implemented")
}
func (UnimplementedKeyServiceServer) Unwrap(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Unwrap not implemented")
}

// RegisterKeyServiceServer registers the key service on a gRPC server.
func RegisterKeyServiceServer(s grpc.ServiceRegistrar, srv KeyServiceServer) {
	s.RegisterService(&KeyService_ServiceDesc, srv)
}

// KeyServiceClient is the client API for the key-release gRPC service.
type KeyServiceClient interface {
	Wrap(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Unwrap(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type keyServiceClient struct{ cc grpc.ClientConnInterface }

func NewKeyServiceClient(cc grpc.ClientConnInterface) KeyServiceClient { return &keyServiceClient{cc: cc} }

func (c *keyServiceClient) Wrap(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/xsign.sealvault.keyserver.grpckeys.v1.KeyService/Wrap", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *keyServiceClient) Unwrap(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/xsign.sealvault.keyserver.grpckeys.v1.KeyService/Unwrap", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _KeyService_Wrap_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyServiceServer).Wrap(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xsign.sealvault.keyserver.grpckeys.v1.KeyService/Wrap"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KeyServiceServer).Wrap(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _KeyService_Unwrap_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyServiceServer).Unwrap(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xsign.sealvault.keyserver.grpckeys.v1.KeyService/Unwrap"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KeyServiceServer).Unwrap(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// KeyService_ServiceDesc is the grpc.ServiceDesc for the key service.
var KeyService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "xsign.sealvault.keyserver.grpckeys.v1.KeyService",
	HandlerType: (*KeyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Wrap", Handler: _KeyService_Wrap_Handler},
		{MethodName: "Unwrap", Handler: _KeyService_Unwrap_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "keyservice.proto",
}
