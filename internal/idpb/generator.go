// Package idpb defines the flakeid.v1.Generator gRPC service on top of the
// protobuf well-known wrapper types, so no generated message code is needed.
package idpb

import (
	"context"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "flakeid.v1.Generator"

	NextIDFullMethodName  = "/" + ServiceName + "/NextID"
	NextIDsFullMethodName = "/" + ServiceName + "/NextIDs"
)

// GeneratorServer is the server API for the Generator service.
type GeneratorServer interface {
	// NextID returns a single id.
	NextID(context.Context, *emptypb.Empty) (*wrapperspb.UInt64Value, error)
	// NextIDs streams the requested number of ids in issuance order.
	NextIDs(*wrapperspb.UInt32Value, Generator_NextIDsServer) error
}

type Generator_NextIDsServer interface {
	Send(*wrapperspb.UInt64Value) error
	grpc.ServerStream
}

type generatorNextIDsServer struct {
	grpc.ServerStream
}

func (x *generatorNextIDsServer) Send(m *wrapperspb.UInt64Value) error {
	return x.ServerStream.SendMsg(m)
}

func RegisterGeneratorServer(s grpc.ServiceRegistrar, srv GeneratorServer) {
	s.RegisterService(&Generator_ServiceDesc, srv)
}

func nextIDHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GeneratorServer).NextID(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: NextIDFullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(GeneratorServer).NextID(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func nextIDsHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(wrapperspb.UInt32Value)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(GeneratorServer).NextIDs(m, &generatorNextIDsServer{stream})
}

var Generator_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GeneratorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "NextID",
			Handler:    nextIDHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "NextIDs",
			Handler:       nextIDsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "flakeid/v1/generator.proto",
}

// GeneratorClient is the client API for the Generator service.
type GeneratorClient struct {
	cc grpc.ClientConnInterface
}

func NewGeneratorClient(cc grpc.ClientConnInterface) *GeneratorClient {
	return &GeneratorClient{cc: cc}
}

func (c *GeneratorClient) NextID(ctx context.Context, opts ...grpc.CallOption) (uint64, error) {
	out := new(wrapperspb.UInt64Value)
	if err := c.cc.Invoke(ctx, NextIDFullMethodName, &emptypb.Empty{}, out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// NextIDs requests n ids and collects the whole stream.
func (c *GeneratorClient) NextIDs(ctx context.Context, n uint32, opts ...grpc.CallOption) ([]uint64, error) {
	stream, err := c.cc.NewStream(ctx, &Generator_ServiceDesc.Streams[0], NextIDsFullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(wrapperspb.UInt32(n)); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, n)
	for {
		m := new(wrapperspb.UInt64Value)
		err := stream.RecvMsg(m)
		if err == io.EOF {
			return ids, nil
		}
		if err != nil {
			return ids, err
		}
		ids = append(ids, m.GetValue())
	}
}
