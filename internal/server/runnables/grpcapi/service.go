package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service and method names. The messages are well-known types, so the service
// is declared here rather than generated.
const (
	ServiceName  = "scriptgate.v1.ScriptService"
	ActionMethod = "/" + ServiceName + "/Action"
)

// Request fields of an Action call.
const (
	FieldAction       = "action"
	FieldResourcePath = "resourcePath"
	FieldContent      = "content"
	FieldParams       = "params"
)

// ScriptServiceServer is the server API for the script service.
type ScriptServiceServer interface {
	Action(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)
}

// ScriptServiceDesc describes the script service for grpc registration.
var ScriptServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScriptServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Action", Handler: actionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scriptgate/v1/script.proto",
}

// RegisterScriptServiceServer registers srv on s.
func RegisterScriptServiceServer(s grpc.ServiceRegistrar, srv ScriptServiceServer) {
	s.RegisterService(&ScriptServiceDesc, srv)
}

func actionHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScriptServiceServer).Action(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ActionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScriptServiceServer).Action(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ScriptServiceClient is the client API for the script service.
type ScriptServiceClient interface {
	Action(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Value, error)
}

type scriptServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewScriptServiceClient creates a client on cc.
func NewScriptServiceClient(cc grpc.ClientConnInterface) ScriptServiceClient {
	return &scriptServiceClient{cc: cc}
}

func (c *scriptServiceClient) Action(
	ctx context.Context,
	req *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Value, error) {
	out := new(structpb.Value)
	if err := c.cc.Invoke(ctx, ActionMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
