package gateway

import "futures-gateway/internal/fixcore"

// Application-level FIX tags (beyond the standard header fields fixwire
// already knows about).
const (
	TagOrigClOrdID  = 41
	TagClOrdID      = 11
	TagSymbol       = 55
	TagSide         = 54
	TagOrderQty     = 38
	TagOrdType      = 40
	TagPrice        = 44
	TagTimeInForce  = 59
	TagOrderID      = 37
	TagExecID       = 17
	TagExecTransType = 20
	TagOrdStatus    = 39
	TagCumQty       = 14
	TagAvgPx        = 6
	TagLeavesQty    = 151
	TagLastShares   = 32
	TagLastPx       = 31
	TagOrdRejReason = 103
	TagText         = 58
	TagTransactTime = 60
	TagAccount      = 1

	// Custom application tags for balance/position/instrument/history
	// queries, numbered in the 9000 range to stay clear of the standard
	// FIX 4.0 dictionary and any vendor-assigned custom tags.
	TagQueryID        = 9001
	TagBalance        = 9002
	TagAvailable      = 9003
	TagFrozenMargin   = 9004
	TagUsedMargin     = 9005
	TagPositionProfit = 9006
	TagLongQty        = 9007
	TagLongAvgPx      = 9008
	TagShortQty       = 9009
	TagShortAvgPx     = 9010
	TagInstrumentID   = 9011
	TagSearchPrefix   = 9012
	TagFromSeq        = 9013
	TagToSeq          = 9014
)

// MsgType values. A/0/1/5/D/F/8 are standard FIX 4.0; U1-U10 are this
// gateway's custom query/push messages, following FIX's own convention of
// reserving the "U" prefix for bilaterally-agreed extensions.
const (
	MsgTypeLogon               = "A"
	MsgTypeHeartbeat           = "0"
	MsgTypeTestRequest         = "1"
	MsgTypeLogout              = "5"
	MsgTypeResendRequest       = "2"
	MsgTypeSequenceReset       = "4"
	MsgTypeNewOrderSingle      = "D"
	MsgTypeOrderCancelRequest  = "F"
	MsgTypeExecutionReport     = "8"
	MsgTypeOrderCancelReject   = "9"
	MsgTypeBalanceQuery        = "U1"
	MsgTypeBalanceReport       = "U2"
	MsgTypePositionQuery       = "U3"
	MsgTypePositionReport      = "U4"
	MsgTypeAccountUpdate       = "U5"
	MsgTypePositionUpdate      = "U6"
	MsgTypeInstrumentSearch    = "U7"
	MsgTypeInstrumentReport    = "U8"
	MsgTypeHistoricalOrderReq  = "U9"
	MsgTypeHistoricalOrderRpt  = "U10"
)

func sideToFIX(side fixcore.Side) string {
	if side == fixcore.SideBuy {
		return "1"
	}
	return "2"
}

func sideFromFIX(s string) fixcore.Side {
	if s == "1" {
		return fixcore.SideBuy
	}
	return fixcore.SideSell
}

func ordTypeFromFIX(s string) fixcore.OrdType {
	if s == "1" {
		return fixcore.OrdTypeMarket
	}
	return fixcore.OrdTypeLimit
}

func tifFromFIX(s string) fixcore.TIF {
	switch s {
	case "1":
		return fixcore.TIFGTC
	case "3":
		return fixcore.TIFIOC
	case "4":
		return fixcore.TIFFOK
	default:
		return fixcore.TIFDay
	}
}

func ordStatusToFIX(status fixcore.OrdStatus) string {
	switch status {
	case fixcore.StatusPendingNew:
		return "A"
	case fixcore.StatusNew:
		return "0"
	case fixcore.StatusPartiallyFilled:
		return "1"
	case fixcore.StatusFilled:
		return "2"
	case fixcore.StatusCanceled:
		return "4"
	case fixcore.StatusRejected:
		return "8"
	case fixcore.StatusPendingCancel:
		return "6"
	}
	return "8"
}

func execTransTypeToFIX(t fixcore.ExecTransType) string {
	switch t {
	case fixcore.ExecTransCancel:
		return "1"
	case fixcore.ExecTransCorrect:
		return "2"
	case fixcore.ExecTransStatus:
		return "3"
	default:
		return "0"
	}
}
