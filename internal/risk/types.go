// Package risk implements the Risk Checker (C13): a stateless function of
// (order, account, position, instrument, snapshot) that accepts or rejects
// a new order before it reaches the matching engine. It holds no state of
// its own between calls — every input it needs is passed in by the caller.
package risk

// RejectReason enumerates why an order was rejected, mirroring the FIX
// OrdRejReason taxonomy at the boundary the gateway translates through.
type RejectReason int

const (
	ReasonNone RejectReason = iota
	ReasonUnknownInstrument
	ReasonInvalidQuantity
	ReasonInvalidPriceTick
	ReasonOutsideLimitBand
	ReasonEmptyBook
	ReasonInsufficientMargin
	ReasonInsufficientPosition
)

// Decision is the outcome of a risk check.
type Decision struct {
	Accepted      bool
	Reason        RejectReason
	Text          string
	RequiredMargin float64
}

func reject(reason RejectReason, text string) Decision {
	return Decision{Accepted: false, Reason: reason, Text: text}
}

func accept(requiredMargin float64) Decision {
	return Decision{Accepted: true, RequiredMargin: requiredMargin}
}
