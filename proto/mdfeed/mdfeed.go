// Package mdfeed defines the wire types for the MarketDataFeed gRPC
// contract described in mdfeed.proto. No protoc toolchain or generated
// stubs are available here, so these types are maintained by hand instead
// of by protoc-gen-go. They round-trip over the wire through a small JSON
// codec (codec.go) rather than protobuf binary encoding, since
// hand-authoring a protobuf FileDescriptor byte-for-byte without the
// compiler is how real bugs get shipped; google.golang.org/protobuf still
// rides along as grpc's own transitive dependency.
package mdfeed

// SubscribeRequest asks the vendor feed for one instrument's stream.
type SubscribeRequest struct {
	InstrumentID string `json:"instrument_id"`
}

// Quote is one tick of the subscribed instrument's market data.
type Quote struct {
	InstrumentID       string  `json:"instrument_id"`
	LastPrice          float64 `json:"last_price"`
	BidPrice1          float64 `json:"bid_price1"`
	BidVolume1         float64 `json:"bid_volume1"`
	AskPrice1          float64 `json:"ask_price1"`
	AskVolume1         float64 `json:"ask_volume1"`
	ExchangeTimeMillis int64   `json:"exchange_time_millis"`
}
