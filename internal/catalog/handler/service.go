package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// The catalog view service speaks well-known protobuf types only (Struct,
// ListValue, Empty), so its descriptor is declared here rather than generated.

const serviceName = "omnipos.catalog.v1.CatalogViewService"

type CatalogViewServer interface {
	ListView(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetFilter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Select(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSelection(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListCategories(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	WatchView(*emptypb.Empty, CatalogView_WatchViewServer) error
}

type CatalogView_WatchViewServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

func RegisterCatalogViewServer(s grpc.ServiceRegistrar, srv CatalogViewServer) {
	s.RegisterService(&CatalogView_ServiceDesc, srv)
}

func unary[Req any, Res any](method string, newReq func() Req, call func(CatalogViewServer, context.Context, Req) (Res, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CatalogViewServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + serviceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(CatalogViewServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func newEmpty() *emptypb.Empty { return new(emptypb.Empty) }
func newStruct() *structpb.Struct { return new(structpb.Struct) }

var CatalogView_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CatalogViewServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListView", newEmpty, CatalogViewServer.ListView),
		unary("SetFilter", newStruct, CatalogViewServer.SetFilter),
		unary("Select", newStruct, CatalogViewServer.Select),
		unary("GetSelection", newEmpty, CatalogViewServer.GetSelection),
		unary("ListCategories", newEmpty, CatalogViewServer.ListCategories),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchView",
			Handler:       watchViewHandler,
			ServerStreams: true,
		},
	},
	Metadata: "omnipos/catalog/v1/catalog_view.proto",
}

func watchViewHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(CatalogViewServer).WatchView(m, &catalogViewWatchViewServer{stream})
}

type catalogViewWatchViewServer struct {
	grpc.ServerStream
}

func (x *catalogViewWatchViewServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}
