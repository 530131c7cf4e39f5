package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/authsrv/internal/models"
)

const ServiceName = "authsrv.AuthService"

// Full method names, as seen by interceptors.
const (
	RegisterMethod = "/" + ServiceName + "/Register"
	LoginMethod    = "/" + ServiceName + "/Login"
	WhoAmIMethod   = "/" + ServiceName + "/WhoAmI"
	PingMethod     = "/" + ServiceName + "/Ping"
)

// Empty is the message of calls without payload.
type Empty struct{}

// AuthServiceServer is implemented by AuthHandler.
type AuthServiceServer interface {
	Register(ctx context.Context, in *models.CredentialsRequest) (*models.TokenResponse, error)
	Login(ctx context.Context, in *models.CredentialsRequest) (*models.TokenResponse, error)
	WhoAmI(ctx context.Context, in *Empty) (*models.MeResponse, error)
	Ping(ctx context.Context, in *Empty) (*Empty, error)
}

// AuthServiceDesc describes the service to grpc.Server.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Register",
			Handler:    unaryHandler(RegisterMethod, AuthServiceServer.Register),
		},
		{
			MethodName: "Login",
			Handler:    unaryHandler(LoginMethod, AuthServiceServer.Login),
		},
		{
			MethodName: "WhoAmI",
			Handler:    unaryHandler(WhoAmIMethod, AuthServiceServer.WhoAmI),
		},
		{
			MethodName: "Ping",
			Handler:    unaryHandler(PingMethod, AuthServiceServer.Ping),
		},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterAuthServiceServer attaches srv to the gRPC server s.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](
	fullMethod string,
	call func(AuthServiceServer, context.Context, *Req) (*Resp, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(
		srv interface{},
		ctx context.Context,
		dec func(interface{}) error,
		interceptor grpc.UnaryServerInterceptor,
	) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(AuthServiceServer), ctx, req.(*Req))
		}

		return interceptor(ctx, in, info, handler)
	}
}

// AuthServiceClient calls AuthService over a client connection.
type AuthServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthServiceClient(cc grpc.ClientConnInterface) *AuthServiceClient {
	return &AuthServiceClient{cc: cc}
}

func (c *AuthServiceClient) Register(
	ctx context.Context,
	in *models.CredentialsRequest,
	opts ...grpc.CallOption,
) (*models.TokenResponse, error) {
	out := new(models.TokenResponse)
	if err := c.invoke(ctx, RegisterMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthServiceClient) Login(
	ctx context.Context,
	in *models.CredentialsRequest,
	opts ...grpc.CallOption,
) (*models.TokenResponse, error) {
	out := new(models.TokenResponse)
	if err := c.invoke(ctx, LoginMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// WhoAmI sends the token found in the outgoing "authorization" metadata.
func (c *AuthServiceClient) WhoAmI(ctx context.Context, opts ...grpc.CallOption) (*models.MeResponse, error) {
	out := new(models.MeResponse)
	if err := c.invoke(ctx, WhoAmIMethod, &Empty{}, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthServiceClient) Ping(ctx context.Context, opts ...grpc.CallOption) error {
	return c.invoke(ctx, PingMethod, &Empty{}, &Empty{}, opts)
}

func (c *AuthServiceClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	callOptions := append([]grpc.CallOption{grpc.ForceCodec(Codec())}, opts...)
	return c.cc.Invoke(ctx, method, in, out, callOptions...)
}
