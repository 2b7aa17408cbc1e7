package htmlforward

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/pathspace"
)

// RemoteMountServer is the hand-wired service interface backing the
// forwarding facade. Request/response payloads are structpb.Struct
// (pre-generated in the protobuf module), so no protoc-generated message
// types are needed for this service.
type RemoteMountServer interface {
	Insert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Read(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Take(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListChildren(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// remoteMountServer forwards RemoteMount RPCs onto a real PathSpace,
// simulating the far side of a remote mount for this process.
type remoteMountServer struct {
	ps *pathspace.PathSpace
}

func newRemoteMountServer(ps *pathspace.PathSpace) *remoteMountServer {
	return &remoteMountServer{ps: ps}
}

func errReply(err error) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"ok":    structpb.NewBoolValue(false),
		"error": structpb.NewStringValue(err.Error()),
	}}
}

func okReply(fields map[string]*structpb.Value) *structpb.Struct {
	if fields == nil {
		fields = map[string]*structpb.Value{}
	}
	fields["ok"] = structpb.NewBoolValue(true)
	return &structpb.Struct{Fields: fields}
}

func (s *remoteMountServer) Insert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p := req.Fields["path"].GetStringValue()
	fv := ForwardedValue{Value: req.Fields["value"]}
	if _, err := s.ps.Insert(p, fv); err != nil {
		return errReply(err), nil
	}
	return okReply(nil), nil
}

func (s *remoteMountServer) Read(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.access(req, false)
}

func (s *remoteMountServer) Take(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.access(req, true)
}

func (s *remoteMountServer) access(req *structpb.Struct, pop bool) (*structpb.Struct, error) {
	p := req.Fields["path"].GetStringValue()
	var opts []core.OutOption
	if req.Fields["timeout_ms"].GetNumberValue() > 0 {
		opts = append(opts, core.Block(time.Duration(req.Fields["timeout_ms"].GetNumberValue())*time.Millisecond))
	}

	var (
		fv  ForwardedValue
		err error
	)
	if pop {
		fv, err = pathspace.Take[ForwardedValue](s.ps, p, opts...)
	} else {
		fv, err = pathspace.Read[ForwardedValue](s.ps, p, opts...)
	}
	if err != nil {
		return errReply(err), nil
	}
	return okReply(map[string]*structpb.Value{"value": fv.Value}), nil
}

func (s *remoteMountServer) ListChildren(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p := req.Fields["path"].GetStringValue()
	names, err := s.ps.ListChildren(p)
	if err != nil {
		return errReply(err), nil
	}
	vals := make([]*structpb.Value, len(names))
	for i, n := range names {
		vals[i] = structpb.NewStringValue(n)
	}
	return okReply(map[string]*structpb.Value{"children": structpb.NewListValue(&structpb.ListValue{Values: vals})}), nil
}

const remoteMountServiceName = "pathspace.htmlforward.RemoteMount"

func unaryHandler(method func(RemoteMountServer, context.Context, *structpb.Struct) (*structpb.Struct, error), fullMethod string) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(RemoteMountServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return method(srv.(RemoteMountServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var remoteMountServiceDesc = grpc.ServiceDesc{
	ServiceName: remoteMountServiceName,
	HandlerType: (*RemoteMountServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Insert", Handler: unaryHandler(RemoteMountServer.Insert, "/"+remoteMountServiceName+"/Insert")},
		{MethodName: "Read", Handler: unaryHandler(RemoteMountServer.Read, "/"+remoteMountServiceName+"/Read")},
		{MethodName: "Take", Handler: unaryHandler(RemoteMountServer.Take, "/"+remoteMountServiceName+"/Take")},
		{MethodName: "ListChildren", Handler: unaryHandler(RemoteMountServer.ListChildren, "/"+remoteMountServiceName+"/ListChildren")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "htmlforward/service.go",
}
