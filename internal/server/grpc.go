package server

import (
	"context"

	"github.com/bytedance/sonic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/gezibash/arc-skill/pkg/envelope"
	"github.com/gezibash/arc-skill/pkg/response"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "arc.skill.v1.SkillService"
	// InvokeMethod is the full method name of the unary Invoke call.
	InvokeMethod = "/" + ServiceName + "/Invoke"
	// CodecName is the content-subtype the service is served with.
	CodecName = "json"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec carries envelopes as JSON on the wire (application/grpc+json).
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return envelope.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return sonic.ConfigStd.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

// SkillServiceServer is the server API for the skill service.
type SkillServiceServer interface {
	Invoke(context.Context, *envelope.RequestEnvelope) (*response.Envelope, error)
}

var skillServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SkillServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Invoke", Handler: invokeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "arc/skill/v1/skill",
}

// RegisterSkillServiceServer registers srv on s.
func RegisterSkillServiceServer(s grpc.ServiceRegistrar, srv SkillServiceServer) {
	s.RegisterService(&skillServiceDesc, srv)
}

func invokeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(envelope.RequestEnvelope)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SkillServiceServer).Invoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InvokeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SkillServiceServer).Invoke(ctx, req.(*envelope.RequestEnvelope))
	}
	return interceptor(ctx, in, info, handler)
}

// skillService adapts an Invoker to the gRPC service.
type skillService struct {
	inv Invoker
}

func (s *skillService) Invoke(ctx context.Context, env *envelope.RequestEnvelope) (*response.Envelope, error) {
	if err := envelope.Validate(env); err != nil {
		return nil, toStatus(err)
	}
	resp, err := s.inv.Invoke(ctx, env)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

// Client calls a remote skill service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Invoke sends one request envelope and returns the response envelope.
func (c *Client) Invoke(ctx context.Context, env *envelope.RequestEnvelope, opts ...grpc.CallOption) (*response.Envelope, error) {
	out := new(response.Envelope)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, InvokeMethod, env, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
