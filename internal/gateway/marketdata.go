package gateway

import (
	"futures-gateway/internal/events"
	"futures-gateway/internal/fixwire"
	"futures-gateway/internal/ledger"
	"futures-gateway/internal/matching"
)

// HandleMarketData is wired as the matching engine's market-data observer
// (matching.WithMarketDataObserver). It also updates the instrument
// catalog's limit-price tracking and marks every position in the
// instrument to market, pushing U5 (AccountUpdate) / U6 (PositionUpdate)
// to each affected account's connected session.
func (g *Gateway) HandleMarketData(md matching.MarketDataUpdate) {
	if md.HasBid && md.HasAsk {
		_ = g.catalog.UpdatePreSettlementPrice(md.InstrumentID, md.LastPrice)
	}

	inst, err := g.catalog.GetInstrument(md.InstrumentID)
	if err != nil {
		return
	}

	for _, pos := range g.positions.AllForInstrument(md.InstrumentID) {
		updated := g.positions.UpdateProfit(pos.AccountID, md.InstrumentID, md.LastPrice, inst.VolumeMultiple)
		g.pushPositionUpdate(pos.AccountID, updated)

		totalProfit := g.totalPositionProfit(pos.AccountID)
		g.accounts.UpdatePositionProfit(pos.AccountID, totalProfit)
		if acct, ok := g.accounts.Get(pos.AccountID); ok {
			g.pushAccountUpdate(pos.AccountID, acct)
		}
	}
}

// totalPositionProfit sums positionProfit across every instrument the
// account holds, since UpdatePositionProfit on the account ledger takes an
// absolute total rather than a per-instrument delta.
func (g *Gateway) totalPositionProfit(accountID string) float64 {
	var total float64
	for _, p := range g.positions.AllForAccount(accountID) {
		total += p.PositionProfit
	}
	return total
}

// pushPositionUpdate sends a U6 carrying the account's current position in
// one instrument. Every quantity field is always populated from the live
// ledger state — a flat position is sent as all-zero rather than omitted,
// so a push never leaves the client's remembered position ambiguous
// between "still what it was" and "now flat".
func (g *Gateway) pushPositionUpdate(accountID string, pos ledger.Position) {
	msg := fixwire.Message{}
	msg.Set(fixwire.TagMsgType, MsgTypePositionUpdate)
	msg.Set(TagInstrumentID, pos.InstrumentID)
	msg.SetFloat(TagLongQty, pos.LongQty, 4)
	msg.SetFloat(TagLongAvgPx, pos.LongAvgPx, 4)
	msg.SetFloat(TagShortQty, pos.ShortQty, 4)
	msg.SetFloat(TagShortAvgPx, pos.ShortAvgPx, 4)
	msg.SetFloat(TagPositionProfit, pos.PositionProfit, 4)
	g.sendToAccount(accountID, msg)
	g.publish(events.EventPositionUpdate, events.PositionUpdate{
		AccountID: accountID, InstrumentID: pos.InstrumentID,
		LongQty: pos.LongQty, ShortQty: pos.ShortQty, PositionProfit: pos.PositionProfit,
	})
}

// pushAccountUpdate sends a U5 carrying the account's current balance and
// margin breakdown.
func (g *Gateway) pushAccountUpdate(accountID string, acct ledger.Account) {
	msg := fixwire.Message{}
	msg.Set(fixwire.TagMsgType, MsgTypeAccountUpdate)
	msg.SetFloat(TagBalance, acct.Balance, 4)
	msg.SetFloat(TagAvailable, acct.Available, 4)
	msg.SetFloat(TagFrozenMargin, acct.FrozenMargin, 4)
	msg.SetFloat(TagUsedMargin, acct.UsedMargin, 4)
	msg.SetFloat(TagPositionProfit, acct.PositionProfit, 4)
	g.sendToAccount(accountID, msg)
	g.publish(events.EventAccountUpdate, events.AccountUpdate{
		AccountID: accountID, Balance: acct.Balance, Available: acct.Available,
		FrozenMargin: acct.FrozenMargin, UsedMargin: acct.UsedMargin, PositionProfit: acct.PositionProfit,
	})
}
