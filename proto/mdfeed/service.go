package mdfeed

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

const serviceName = "mdfeed.MarketDataFeed"

// MarketDataFeedClient is the client side of the Subscribe streaming RPC.
type MarketDataFeedClient interface {
	Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (MarketDataFeed_SubscribeClient, error)
}

type marketDataFeedClient struct {
	cc *grpc.ClientConn
}

// NewMarketDataFeedClient wraps an already-dialed connection. Callers
// should have dialed with grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec()))
// so streamed Quotes decode correctly.
func NewMarketDataFeedClient(cc *grpc.ClientConn) MarketDataFeedClient {
	return &marketDataFeedClient{cc: cc}
}

func (c *marketDataFeedClient) Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (MarketDataFeed_SubscribeClient, error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], "/"+serviceName+"/Subscribe", opts...)
	if err != nil {
		return nil, err
	}
	s := &marketDataFeedSubscribeClient{stream}
	if err := s.SendMsg(in); err != nil {
		return nil, err
	}
	if err := s.CloseSend(); err != nil {
		return nil, err
	}
	return s, nil
}

// MarketDataFeed_SubscribeClient is the receive half of Subscribe; callers
// loop on Recv until it returns io.EOF.
type MarketDataFeed_SubscribeClient interface {
	Recv() (*Quote, error)
	grpc.ClientStream
}

type marketDataFeedSubscribeClient struct {
	grpc.ClientStream
}

func (x *marketDataFeedSubscribeClient) Recv() (*Quote, error) {
	m := new(Quote)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// MarketDataFeedServer is implemented by the mock/replay feed used in
// tests and local development, and by whatever adapts a real vendor
// connection to this contract in production.
type MarketDataFeedServer interface {
	Subscribe(*SubscribeRequest, MarketDataFeed_SubscribeServer) error
}

// MarketDataFeed_SubscribeServer is the send half of Subscribe.
type MarketDataFeed_SubscribeServer interface {
	Send(*Quote) error
	grpc.ServerStream
}

type marketDataFeedSubscribeServer struct {
	grpc.ServerStream
}

func (x *marketDataFeedSubscribeServer) Send(m *Quote) error {
	return x.ServerStream.SendMsg(m)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	m := new(SubscribeRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(MarketDataFeedServer).Subscribe(m, &marketDataFeedSubscribeServer{stream})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*MarketDataFeedServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
}

// RegisterMarketDataFeedServer wires srv into a grpc.Server. The caller
// should have constructed the server with grpc.ForceServerCodec(Codec()).
func RegisterMarketDataFeedServer(s grpc.ServiceRegistrar, srv MarketDataFeedServer) {
	s.RegisterService(&serviceDesc, srv)
}

// UnimplementedMarketDataFeedServer can be embedded in a server
// implementation to satisfy MarketDataFeedServer for methods it doesn't
// override, the same forward-compatibility convention protoc-gen-go-grpc
// generates.
type UnimplementedMarketDataFeedServer struct{}

func (UnimplementedMarketDataFeedServer) Subscribe(*SubscribeRequest, MarketDataFeed_SubscribeServer) error {
	return fmt.Errorf("mdfeed: Subscribe not implemented")
}
