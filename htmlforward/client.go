package htmlforward

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// RemoteClient is what Facade calls to reach the remote RemoteMount
// service; a fake implementation backs facade tests without a socket.
type RemoteClient interface {
	Insert(ctx context.Context, path string, value any) error
	Read(ctx context.Context, path string, req Out) (any, error)
	Take(ctx context.Context, path string, req Out) (any, error)
	ListChildren(ctx context.Context, path string) ([]string, error)
	Close() error
}

// Out mirrors the subset of core.Out the wire protocol carries.
type Out struct {
	TimeoutMs int64
}

type grpcRemoteClient struct {
	cc *grpc.ClientConn
}

// DialRemoteClient opens a plaintext gRPC connection to a RemoteMount
// service at addr. Production deployments would layer TLS via
// credentials.NewTLS; plaintext matches the teacher's own internal
// service-to-service dials.
func DialRemoteClient(addr string) (*grpcRemoteClient, error) {
	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &grpcRemoteClient{cc: cc}, nil
}

func (c *grpcRemoteClient) invoke(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	reply := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+remoteMountServiceName+"/"+method, req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *grpcRemoteClient) Insert(ctx context.Context, path string, value any) error {
	sv, err := toStructValue(value)
	if err != nil {
		return err
	}
	reply, err := c.invoke(ctx, "Insert", &structpb.Struct{Fields: map[string]*structpb.Value{
		"path":  structpb.NewStringValue(path),
		"value": sv,
	}})
	if err != nil {
		return err
	}
	return replyError(reply)
}

func (c *grpcRemoteClient) Read(ctx context.Context, path string, req Out) (any, error) {
	return c.access(ctx, "Read", path, req)
}

func (c *grpcRemoteClient) Take(ctx context.Context, path string, req Out) (any, error) {
	return c.access(ctx, "Take", path, req)
}

func (c *grpcRemoteClient) access(ctx context.Context, method, path string, req Out) (any, error) {
	fields := map[string]*structpb.Value{"path": structpb.NewStringValue(path)}
	if req.TimeoutMs > 0 {
		fields["timeout_ms"] = structpb.NewNumberValue(float64(req.TimeoutMs))
	}
	reply, err := c.invoke(ctx, method, &structpb.Struct{Fields: fields})
	if err != nil {
		return nil, err
	}
	if err := replyError(reply); err != nil {
		return nil, err
	}
	return fromStructValue(reply.Fields["value"]), nil
}

func (c *grpcRemoteClient) ListChildren(ctx context.Context, path string) ([]string, error) {
	reply, err := c.invoke(ctx, "ListChildren", &structpb.Struct{Fields: map[string]*structpb.Value{
		"path": structpb.NewStringValue(path),
	}})
	if err != nil {
		return nil, err
	}
	if err := replyError(reply); err != nil {
		return nil, err
	}
	list := reply.Fields["children"].GetListValue()
	if list == nil {
		return nil, nil
	}
	out := make([]string, len(list.Values))
	for i, v := range list.Values {
		out[i] = v.GetStringValue()
	}
	return out, nil
}

func (c *grpcRemoteClient) Close() error {
	return c.cc.Close()
}

func replyError(reply *structpb.Struct) error {
	if reply.Fields["ok"].GetBoolValue() {
		return nil
	}
	msg := reply.Fields["error"].GetStringValue()
	if msg == "" {
		msg = "htmlforward: remote call failed"
	}
	return remoteError(msg)
}

type remoteError string

func (e remoteError) Error() string { return string(e) }
