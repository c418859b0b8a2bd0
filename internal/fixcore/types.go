// Package fixcore holds the FIX session state machine (C7), the session
// registry (C8), and the core data types shared across the gateway: Order,
// ExecutionReport, MarketDataSnapshot, OrderEvent, and SessionID.
package fixcore

import "time"

// SessionID is the (senderCompID, targetCompID) pair identifying a FIX
// session. It is a value type: equality and hashing are both field-wise,
// which Go gives us for free by using it as a plain comparable struct and
// map key.
type SessionID struct {
	SenderCompID string
	TargetCompID string
}

// Side is the side of an order.
type Side int

const (
	SideBuy Side = iota + 1
	SideSell
)

func (s Side) String() string {
	if s == SideBuy {
		return "Buy"
	}
	return "Sell"
}

// OrdType distinguishes market from limit orders.
type OrdType int

const (
	OrdTypeMarket OrdType = iota + 1
	OrdTypeLimit
)

// TIF is time-in-force.
type TIF int

const (
	TIFDay TIF = iota + 1
	TIFGTC
	TIFIOC
	TIFFOK
)

// OrdStatus is the lifecycle status of an Order.
type OrdStatus int

const (
	StatusPendingNew OrdStatus = iota + 1
	StatusNew
	StatusPartiallyFilled
	StatusFilled
	StatusCanceled
	StatusRejected
	StatusPendingCancel
)

// Terminal reports whether status is a sink state: no further transitions
// are possible once an Order reaches one of these.
func (s OrdStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected:
		return true
	default:
		return false
	}
}

// Order is the trading gateway's order record. Invariants (enforced by
// the matching engine, never by this struct alone): CumQty+LeavesQty ==
// OrderQty while non-terminal; CumQty>0 implies AvgPx>0; OrderID is assigned
// exactly once, at admission, by the matching engine.
type Order struct {
	ClOrdID    string
	OrderID    string // empty until admitted by the matching engine
	AccountID  string
	Symbol     string
	Side       Side
	OrdType    OrdType
	TIF        TIF
	Price      float64
	OrderQty   float64
	CumQty     float64
	LeavesQty  float64
	AvgPx      float64
	Status     OrdStatus
	CreateTime time.Time
	UpdateTime time.Time
	SessionID  SessionID
}

// ExecTransType classifies what kind of execution event a report carries.
type ExecTransType int

const (
	ExecTransNew ExecTransType = iota + 1
	ExecTransCancel
	ExecTransCorrect
	ExecTransStatus
)

// OrdRejReason enumerates the reasons the risk checker and matching engine
// can reject an order or cancel request.
type OrdRejReason int

const (
	RejNone OrdRejReason = iota
	RejUnknownInstrument
	RejBadQty
	RejBadPriceTick
	RejOutsideLimitBand
	RejEmptyBook
	RejInsufficientMargin
	RejInsufficientPosition
	RejUnknownOrder
	RejAlreadyTerminal
	RejWouldNotFullyFill // FOK
)

// ExecutionReport is a snapshot of an Order plus the fields describing the
// specific execution event being reported.
type ExecutionReport struct {
	Order
	ExecID        string
	ExecTransType ExecTransType
	LastShares    float64
	LastPx        float64
	OrdRejReason  OrdRejReason
	Text          string
	TransactTime  time.Time
}

// MarketDataSnapshot is the last-known top-of-book for an instrument. Each
// update is last-writer-wins; no history is retained.
type MarketDataSnapshot struct {
	InstrumentID string
	LastPrice    float64
	BidPrice1    float64
	BidVol1      float64
	AskPrice1    float64
	AskVol1      float64
	HasBid       bool
	HasAsk       bool
	UpperLimit   float64
	LowerLimit   float64
	UpdateTime   time.Time
}

// OrderEventKind discriminates the OrderEvent tagged union.
type OrderEventKind int

const (
	EventNewOrder OrderEventKind = iota + 1
	EventCancelRequest
	EventSessionLogon
	EventSessionLogout
)

// CancelRequest carries the fields needed to locate and cancel a resting
// order.
type CancelRequest struct {
	OrigClOrdID string
	ClOrdID     string
	Symbol      string
	Side        Side
}

// OrderEvent is the tagged union the matching engine consumes. Exactly one
// of NewOrderData/CancelData/Session is meaningful, selected by Kind.
type OrderEvent struct {
	Kind        OrderEventKind
	NewOrderData Order
	CancelData  CancelRequest
	Session     SessionID
}
