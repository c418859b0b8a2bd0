package gateway

import (
	"futures-gateway/internal/fixcore"
	"futures-gateway/internal/ledger"
	"futures-gateway/internal/matching"
	"futures-gateway/internal/risk"
)

// The domain packages each define their own Side/OrdType/TIF enums so none
// of them needs to import another just to share a type. Gateway is the
// seam where values cross between them.

func toRiskSide(s fixcore.Side) risk.Side {
	if s == fixcore.SideBuy {
		return risk.SideBuy
	}
	return risk.SideSell
}

func toRiskOrdType(t fixcore.OrdType) risk.OrdType {
	if t == fixcore.OrdTypeMarket {
		return risk.OrdTypeMarket
	}
	return risk.OrdTypeLimit
}

func toMatchingSide(s fixcore.Side) matching.Side {
	if s == fixcore.SideBuy {
		return matching.SideBuy
	}
	return matching.SideSell
}

func toMatchingOrdType(t fixcore.OrdType) matching.OrdType {
	if t == fixcore.OrdTypeMarket {
		return matching.OrdTypeMarket
	}
	return matching.OrdTypeLimit
}

func toMatchingTIF(t fixcore.TIF) matching.TIF {
	switch t {
	case fixcore.TIFGTC:
		return matching.TIFGTC
	case fixcore.TIFIOC:
		return matching.TIFIOC
	case fixcore.TIFFOK:
		return matching.TIFFOK
	default:
		return matching.TIFDay
	}
}

func fromMatchingSide(s matching.Side) fixcore.Side {
	if s == matching.SideBuy {
		return fixcore.SideBuy
	}
	return fixcore.SideSell
}

func fromMatchingStatus(s matching.OrdStatus) fixcore.OrdStatus {
	switch s {
	case matching.StatusNew:
		return fixcore.StatusNew
	case matching.StatusPartiallyFilled:
		return fixcore.StatusPartiallyFilled
	case matching.StatusFilled:
		return fixcore.StatusFilled
	case matching.StatusCanceled:
		return fixcore.StatusCanceled
	case matching.StatusRejected:
		return fixcore.StatusRejected
	}
	return fixcore.StatusNew
}

func fromMatchingRejReason(r matching.RejReason) fixcore.OrdRejReason {
	switch r {
	case matching.RejRisk:
		return fixcore.RejInsufficientMargin
	case matching.RejWouldNotFullyFill:
		return fixcore.RejWouldNotFullyFill
	case matching.RejUnknownOrder:
		return fixcore.RejUnknownOrder
	}
	return fixcore.RejNone
}

func fromRiskReason(r risk.RejectReason) fixcore.OrdRejReason {
	switch r {
	case risk.ReasonUnknownInstrument:
		return fixcore.RejUnknownInstrument
	case risk.ReasonInvalidQuantity:
		return fixcore.RejBadQty
	case risk.ReasonInvalidPriceTick:
		return fixcore.RejBadPriceTick
	case risk.ReasonOutsideLimitBand:
		return fixcore.RejOutsideLimitBand
	case risk.ReasonEmptyBook:
		return fixcore.RejEmptyBook
	case risk.ReasonInsufficientMargin:
		return fixcore.RejInsufficientMargin
	case risk.ReasonInsufficientPosition:
		return fixcore.RejInsufficientPosition
	}
	return fixcore.RejNone
}

func openingLedgerSide(s fixcore.Side) ledger.Side {
	if s == fixcore.SideBuy {
		return ledger.SideLong
	}
	return ledger.SideShort
}

func oppositeLedgerSide(s fixcore.Side) ledger.Side {
	if s == fixcore.SideBuy {
		return ledger.SideShort
	}
	return ledger.SideLong
}
