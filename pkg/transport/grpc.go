package transport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The Federation service uses protobuf well-known wrapper types so no protoc
// codegen step is needed. Equivalent proto:
//
//	service Federation {
//	  rpc GetCollection(google.protobuf.StringValue) returns (google.protobuf.BytesValue);
//	}
//
// The request carries the collection kind, the response the JSON collection.
const (
	serviceName         = "articlesync.federation.v1.Federation"
	getCollectionMethod = "/" + serviceName + "/GetCollection"
	federationProtoFile = "articlesync/federation.proto"
)

// FederationServer is the server API for the Federation service.
type FederationServer interface {
	GetCollection(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedFederationServer can be embedded for forward compatibility.
type UnimplementedFederationServer struct{}

func (UnimplementedFederationServer) GetCollection(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCollection not implemented")
}

// RegisterFederationServer registers srv on s.
func RegisterFederationServer(s grpc.ServiceRegistrar, srv FederationServer) {
	s.RegisterService(&Federation_ServiceDesc, srv)
}

// FederationClient is the client API for the Federation service.
type FederationClient interface {
	GetCollection(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type federationClient struct{ cc grpc.ClientConnInterface }

func NewFederationClient(cc grpc.ClientConnInterface) FederationClient {
	return &federationClient{cc: cc}
}

func (c *federationClient) GetCollection(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, getCollectionMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Federation_GetCollection_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FederationServer).GetCollection(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getCollectionMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FederationServer).GetCollection(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Federation_ServiceDesc is the grpc.ServiceDesc for the Federation service.
var Federation_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*FederationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetCollection", Handler: _Federation_GetCollection_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: federationProtoFile,
}
