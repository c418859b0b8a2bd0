// Package matching implements the Matching Engine (C14): a single
// goroutine consuming order events and market-data events against a
// per-instrument external price snapshot, emitting ExecutionReports.
package matching

import "time"

// Side, OrdType, TIF mirror fixcore's enums; matching stays a leaf package
// rather than importing fixcore so it can be tested in isolation.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

type OrdType int

const (
	OrdTypeMarket OrdType = iota
	OrdTypeLimit
)

type TIF int

const (
	TIFDay TIF = iota
	TIFGTC
	TIFIOC
	TIFFOK
)

// OrdStatus mirrors fixcore.OrdStatus.
type OrdStatus int

const (
	StatusNew OrdStatus = iota
	StatusPartiallyFilled
	StatusFilled
	StatusCanceled
	StatusRejected
)

// RejReason enumerates why an order was rejected or a cancel could not be
// honored.
type RejReason int

const (
	RejNone RejReason = iota
	RejRisk
	RejWouldNotFullyFill // FOK could not be fully matched
	RejUnknownOrder      // cancel request against an order not on the book
)

// NewOrder is a validated order admitted to the engine's input queue. The
// caller (gateway) has already run the risk check; the engine re-derives
// nothing about margin or instrument validity.
type NewOrder struct {
	ClOrdID      string
	AccountID    string
	InstrumentID string
	Side         Side
	OrdType      OrdType
	TIF          TIF
	Price        float64
	Qty          float64
}

// CancelOrder requests cancellation of a resting order by its original
// ClOrdID.
type CancelOrder struct {
	ClOrdID      string // the cancel request's own ID
	OrigClOrdID  string
	InstrumentID string
	AccountID    string
}

// MarketDataUpdate carries a fresh external price snapshot for one
// instrument.
type MarketDataUpdate struct {
	InstrumentID string
	LastPrice    float64
	BidPrice1    float64
	BidVol1      float64
	HasBid       bool
	AskPrice1    float64
	AskVol1      float64
	HasAsk       bool
}

// Report is an ExecutionReport emitted by the engine. The gateway
// translates it into a FIX message and a ledger update.
type Report struct {
	ClOrdID      string
	OrderID      string
	AccountID    string
	InstrumentID string
	Side         Side
	OrdType      OrdType
	TIF          TIF
	Price        float64
	OrderQty     float64
	CumQty       float64
	LeavesQty    float64
	AvgPx        float64
	Status       OrdStatus
	LastShares   float64
	LastPx       float64
	RejReason    RejReason
	Text         string
	TransactTime time.Time
}

// restingOrder is the book's internal representation of a parked order.
type restingOrder struct {
	clOrdID      string
	orderID      string
	accountID    string
	instrumentID string
	side         Side
	ordType      OrdType
	tif          TIF
	price        float64
	orderQty     float64
	cumQty       float64
	avgPxNum     float64 // running sum(px*qty) for avgPx
}

func (r *restingOrder) leavesQty() float64 { return r.orderQty - r.cumQty }

func (r *restingOrder) avgPx() float64 {
	if r.cumQty == 0 {
		return 0
	}
	return r.avgPxNum / r.cumQty
}
