package mdvendor

import (
	"context"
	"net"
	"sync"
	"time"

	"futures-gateway/proto/mdfeed"

	"google.golang.org/grpc"
)

// MockServer implements mdfeed.MarketDataFeedServer by replaying a canned
// or injected sequence of quotes per instrument. It stands in for a real
// vendor adapter in local development and in tests that exercise
// internal/mdvendor's client and circuit breaker against a real socket.
type MockServer struct {
	mdfeed.UnimplementedMarketDataFeedServer

	mu    sync.Mutex
	feeds map[string][]mdfeed.Quote
}

func NewMockServer() *MockServer {
	return &MockServer{feeds: make(map[string][]mdfeed.Quote)}
}

// Push appends a quote to instrumentID's replay queue; a running Subscribe
// call for that instrument picks it up on its next poll.
func (m *MockServer) Push(instrumentID string, q mdfeed.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.InstrumentID = instrumentID
	m.feeds[instrumentID] = append(m.feeds[instrumentID], q)
}

func (m *MockServer) take(instrumentID string) (mdfeed.Quote, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.feeds[instrumentID]
	if len(q) == 0 {
		return mdfeed.Quote{}, false
	}
	m.feeds[instrumentID] = q[1:]
	return q[0], true
}

func (m *MockServer) Subscribe(req *mdfeed.SubscribeRequest, stream mdfeed.MarketDataFeed_SubscribeServer) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if q, ok := m.take(req.InstrumentID); ok {
				if err := stream.Send(&q); err != nil {
					return err
				}
			}
		}
	}
}

// Serve starts a grpc.Server bound to lis with the JSON wire codec
// installed, blocking until ctx is canceled.
func Serve(ctx context.Context, lis net.Listener, srv mdfeed.MarketDataFeedServer) error {
	s := grpc.NewServer(grpc.ForceServerCodec(mdfeed.Codec()))
	mdfeed.RegisterMarketDataFeedServer(s, srv)
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()
	return s.Serve(lis)
}
