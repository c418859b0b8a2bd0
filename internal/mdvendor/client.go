// Package mdvendor adapts an external market-data vendor's quote feed to
// the matching engine's MarketDataUpdate shape. The vendor is reached over
// the mdfeed gRPC contract; a circuit breaker sits in front of the stream
// so a vendor outage degrades to "no fresher quotes" instead of a
// reconnect storm.
package mdvendor

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"futures-gateway/internal/matching"
	"futures-gateway/proto/mdfeed"

	"github.com/sony/gobreaker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client dials one vendor endpoint and fans its Subscribe streams out as
// matching.MarketDataUpdate values.
type Client struct {
	conn    *grpc.ClientConn
	rpc     mdfeed.MarketDataFeedClient
	breaker *gobreaker.CircuitBreaker
}

// Dial connects to addr. It does not itself enforce TLS; a real vendor
// adapter would layer credentials on top of this (it also dials with
// insecure credentials and depends on network-level isolation).
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(mdfeed.Codec())),
	)
	if err != nil {
		return nil, fmt.Errorf("mdvendor: dial %s: %w", addr, err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mdvendor",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{conn: conn, rpc: mdfeed.NewMarketDataFeedClient(conn), breaker: breaker}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Stream subscribes to instrumentID and pushes every decoded Quote into
// emit until the stream ends, fails, or ctx is canceled. While the breaker
// is open (five consecutive failures, for ten seconds) Stream returns the
// breaker's open-state error at once without subscribing; Run calls Stream
// again after a fixed two-second pause either way.
func (c *Client) Stream(ctx context.Context, instrumentID string, emit func(matching.MarketDataUpdate)) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.runStream(ctx, instrumentID, emit)
	})
	return err
}

func (c *Client) runStream(ctx context.Context, instrumentID string, emit func(matching.MarketDataUpdate)) error {
	stream, err := c.rpc.Subscribe(ctx, &mdfeed.SubscribeRequest{InstrumentID: instrumentID})
	if err != nil {
		return fmt.Errorf("mdvendor: subscribe %s: %w", instrumentID, err)
	}
	for {
		quote, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("mdvendor: recv %s: %w", instrumentID, err)
		}
		emit(toMarketDataUpdate(quote))
	}
}

func toMarketDataUpdate(q *mdfeed.Quote) matching.MarketDataUpdate {
	return matching.MarketDataUpdate{
		InstrumentID: q.InstrumentID,
		LastPrice:    q.LastPrice,
		HasBid:       q.BidPrice1 > 0,
		BidPrice1:    q.BidPrice1,
		BidVol1:      q.BidVolume1,
		HasAsk:       q.AskPrice1 > 0,
		AskPrice1:    q.AskPrice1,
		AskVol1:      q.AskVolume1,
	}
}

// Run drives Stream in a retry loop until ctx is canceled, logging each
// disconnect. Intended to be launched as its own goroutine per subscribed
// instrument.
func (c *Client) Run(ctx context.Context, instrumentID string, emit func(matching.MarketDataUpdate)) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := c.Stream(ctx, instrumentID, emit); err != nil {
			log.Printf("mdvendor: %s stream ended: %v", instrumentID, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}
