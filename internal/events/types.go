package events

// Event enumerates high-level topics inside the gateway that other
// components can subscribe to without coupling to the package that raises
// them (the gateway publishes; monitor and adminapi subscribe).
type Event string

const (
	EventOrderFilled    Event = "order.filled"
	EventOrderRejected  Event = "order.rejected"
	EventOrderCanceled  Event = "order.canceled"
	EventRiskAlert      Event = "risk.alert"
	EventAccountUpdate  Event = "account.update"
	EventPositionUpdate Event = "position.update"
)

// OrderFilled is published once per fill, after the ledger has already
// been updated — subscribers see a settled fact, never a pending state.
type OrderFilled struct {
	AccountID    string
	InstrumentID string
	ClOrdID      string
	LastShares   float64
	LastPx       float64
}

// RiskAlert is published whenever risk.Check rejects an order or the
// engine cancels one, carrying enough context for an operator dashboard
// to show who hit what rule without re-deriving it from raw FIX tags.
type RiskAlert struct {
	AccountID    string
	InstrumentID string
	ClOrdID      string
	Reason       string
}

// AccountUpdate mirrors the fields pushed to clients as a U5; published
// alongside every session push so adminapi's dashboard sees the same
// numbers FIX clients do.
type AccountUpdate struct {
	AccountID      string
	Balance        float64
	Available      float64
	FrozenMargin   float64
	UsedMargin     float64
	PositionProfit float64
}

// PositionUpdate mirrors a U6 push.
type PositionUpdate struct {
	AccountID      string
	InstrumentID   string
	LongQty        float64
	ShortQty       float64
	PositionProfit float64
}
