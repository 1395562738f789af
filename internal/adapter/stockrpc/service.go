package stockrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "dcstock.v1.StockTransfer"

	debitMethod        = "/" + ServiceName + "/Debit"
	creditMethod       = "/" + ServiceName + "/Credit"
	availabilityMethod = "/" + ServiceName + "/CheckAvailability"
)

// StockTransferServer is implemented by every node that can act as a supplier.
type StockTransferServer interface {
	Debit(ctx context.Context, req *DebitRequest) (*DebitResponse, error)
	Credit(ctx context.Context, req *CreditRequest) (*CreditResponse, error)
	CheckAvailability(ctx context.Context, req *AvailabilityRequest) (*AvailabilityResponse, error)
}

// UnimplementedStockTransferServer can be embedded to satisfy methods a server
// does not provide.
type UnimplementedStockTransferServer struct{}

func (UnimplementedStockTransferServer) Debit(context.Context, *DebitRequest) (*DebitResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Debit not implemented")
}

func (UnimplementedStockTransferServer) Credit(context.Context, *CreditRequest) (*CreditResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Credit not implemented")
}

func (UnimplementedStockTransferServer) CheckAvailability(context.Context, *AvailabilityRequest) (*AvailabilityResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CheckAvailability not implemented")
}

func RegisterStockTransferServer(s grpc.ServiceRegistrar, srv StockTransferServer) {
	s.RegisterService(&stockTransferServiceDesc, srv)
}

func debitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DebitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StockTransferServer).Debit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: debitMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StockTransferServer).Debit(ctx, req.(*DebitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func creditHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreditRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StockTransferServer).Credit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: creditMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StockTransferServer).Credit(ctx, req.(*CreditRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func availabilityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AvailabilityRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StockTransferServer).CheckAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: availabilityMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StockTransferServer).CheckAvailability(ctx, req.(*AvailabilityRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var stockTransferServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StockTransferServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Debit", Handler: debitHandler},
		{MethodName: "Credit", Handler: creditHandler},
		{MethodName: "CheckAvailability", Handler: availabilityHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stockrpc/service.go",
}

// StockTransferClient calls a peer's StockTransfer service using the JSON codec.
type StockTransferClient struct {
	cc grpc.ClientConnInterface
}

func NewStockTransferClient(cc grpc.ClientConnInterface) *StockTransferClient {
	return &StockTransferClient{cc: cc}
}

func (c *StockTransferClient) Debit(ctx context.Context, in *DebitRequest, opts ...grpc.CallOption) (*DebitResponse, error) {
	out := new(DebitResponse)
	if err := c.cc.Invoke(ctx, debitMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StockTransferClient) Credit(ctx context.Context, in *CreditRequest, opts ...grpc.CallOption) (*CreditResponse, error) {
	out := new(CreditResponse)
	if err := c.cc.Invoke(ctx, creditMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StockTransferClient) CheckAvailability(ctx context.Context, in *AvailabilityRequest, opts ...grpc.CallOption) (*AvailabilityResponse, error) {
	out := new(AvailabilityResponse)
	if err := c.cc.Invoke(ctx, availabilityMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
