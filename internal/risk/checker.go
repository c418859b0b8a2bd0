package risk

import "math"

// Side mirrors fixcore.Side without importing fixcore, keeping risk a leaf
// package the gateway calls into rather than one that depends on it.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

// OrdType mirrors fixcore.OrdType.
type OrdType int

const (
	OrdTypeMarket OrdType = iota
	OrdTypeLimit
)

// OrderRequest is the subset of a new order the checker needs.
type OrderRequest struct {
	InstrumentID string
	Side         Side
	OrdType      OrdType
	Price        float64 // ignored for market orders
	Qty          float64
	IsClosing    bool // true when the order nets against an existing opposite position
}

// Instrument is the subset of catalog.Instrument the checker needs.
type Instrument struct {
	PriceTick      float64
	VolumeMultiple float64
	MarginRate     float64
	UpperLimit     float64
	LowerLimit     float64
	HasLimits      bool
	Known          bool
}

// Account is the subset of ledger.Account the checker needs.
type Account struct {
	Available float64
}

// Position is the opposite-side quantity available to close, when
// IsClosing is set.
type Position struct {
	OppositeQty float64
}

// BookSide is the top-of-book side a market order would cross, used only
// to confirm there is anything at all to match against.
type BookSide struct {
	Empty bool
}

// Check runs the ordered validation chain from new-order-single through to
// margin sufficiency. Checks run in a fixed order and the first failure
// wins; later checks never run once an earlier one rejects.
func Check(order OrderRequest, inst Instrument, acct Account, pos Position, book BookSide) Decision {
	// 1. Instrument must be registered.
	if !inst.Known {
		return reject(ReasonUnknownInstrument, "unknown instrument")
	}

	// 2. Quantity must be a positive integer (lot-sized; futures don't
	// trade fractional contracts).
	if order.Qty <= 0 || order.Qty != math.Trunc(order.Qty) {
		return reject(ReasonInvalidQuantity, "quantity must be a positive integer")
	}

	// 3. Limit price must land on a tick boundary.
	if order.OrdType == OrdTypeLimit {
		ticks := order.Price / inst.PriceTick
		if math.Abs(ticks-math.Round(ticks)) > 1e-9 {
			return reject(ReasonInvalidPriceTick, "price is not a multiple of the instrument's price tick")
		}
	}

	// 4. Limit price must sit within the exchange-published band, when one
	// has been published.
	if order.OrdType == OrdTypeLimit && inst.HasLimits {
		if order.Price > inst.UpperLimit || order.Price < inst.LowerLimit {
			return reject(ReasonOutsideLimitBand, "price outside the exchange limit band")
		}
	}

	// 5. A market order needs something resting on the side it would
	// cross; there is no reference price to assign it otherwise.
	if order.OrdType == OrdTypeMarket && book.Empty {
		return reject(ReasonEmptyBook, "no resting liquidity to match a market order against")
	}

	// 6. A closing order cannot close more than the account currently
	// holds on the opposite side.
	if order.IsClosing && order.Qty > pos.OppositeQty {
		return reject(ReasonInsufficientPosition, "closing quantity exceeds held position")
	}

	// 7. An opening order (or the opening remainder of a partial close)
	// must be covered by available margin.
	if !order.IsClosing {
		required := requiredMargin(order, inst)
		if required > acct.Available {
			return reject(ReasonInsufficientMargin, "insufficient available margin")
		}
		return accept(required)
	}

	return accept(0)
}

func requiredMargin(order OrderRequest, inst Instrument) float64 {
	price := order.Price
	if order.OrdType == OrdTypeMarket {
		// Market orders have no price yet; margin is checked against the
		// instrument's limit band (worst case for the side) when one is
		// published; otherwise the order's own Price is used as sent (a
		// market order sent with price 0 then needs no margin) — the engine
		// re-derives the actual fill price and the ledger's ConfirmMargin
		// step reconciles any difference.
		switch {
		case inst.HasLimits && order.Side == SideBuy:
			price = inst.UpperLimit
		case inst.HasLimits && order.Side == SideSell:
			price = inst.LowerLimit
		}
	}
	return price * order.Qty * inst.VolumeMultiple * inst.MarginRate
}
