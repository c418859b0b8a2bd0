package gateway

import (
	"log"

	"futures-gateway/internal/events"
	"futures-gateway/internal/fixcore"
	"futures-gateway/internal/fixwire"
	"futures-gateway/internal/matching"
	"futures-gateway/internal/persistence"
)

// HandleReport is the matching engine's onReport callback: every
// ExecutionReport the engine emits, for any instrument and any account,
// arrives here.
func (g *Gateway) HandleReport(r matching.Report) {
	switch r.Status {
	case matching.StatusRejected:
		g.handleEngineReject(r)
	case matching.StatusCanceled:
		g.handleEngineCancel(r)
	default:
		g.handleFill(r)
	}
}

func (g *Gateway) takePending(clOrdID string) *pendingOrder {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending[clOrdID]
}

func (g *Gateway) dropPending(clOrdID string) {
	g.mu.Lock()
	delete(g.pending, clOrdID)
	g.mu.Unlock()
}

func (g *Gateway) handleFill(r matching.Report) {
	pend := g.takePending(r.ClOrdID)
	if pend == nil {
		log.Printf("gateway: fill report for unknown clOrdID %s", r.ClOrdID)
		return
	}

	var proratedFrozen float64
	if pend.originalQty > 0 {
		proratedFrozen = pend.originalFrozen * (r.LastShares / pend.originalQty)
	}

	pos, _ := g.positions.Get(pend.accountID, pend.instrumentID)
	oppositeQty := 0.0
	if pend.side == fixcore.SideBuy {
		oppositeQty = pos.ShortQty
	} else {
		oppositeQty = pos.LongQty
	}
	closeQty := r.LastShares
	if oppositeQty < closeQty {
		closeQty = oppositeQty
	}
	openQty := r.LastShares - closeQty

	inst, _ := g.catalog.GetInstrument(pend.instrumentID)
	usedMargin := requiredMarginForQty(inst, r.LastPx, openQty)
	g.accounts.ConfirmMargin(pend.accountID, proratedFrozen, usedMargin)

	if closeQty > 0 {
		_, result := g.positions.ClosePosition(pend.accountID, pend.instrumentID, oppositeLedgerSide(pend.side), closeQty, r.LastPx, inst.VolumeMultiple)
		g.accounts.AddCloseProfit(pend.accountID, result.Profit)
		g.accounts.ReleaseMargin(pend.accountID, result.MarginReleased)
	}
	if openQty > 0 {
		g.positions.OpenPosition(pend.accountID, pend.instrumentID, openingLedgerSide(pend.side), openQty, r.LastPx, usedMargin)
	}

	pend.confirmedQty += r.LastShares
	terminal := r.Status == matching.StatusFilled
	if terminal {
		g.dropPending(r.ClOrdID)
	}

	order := fixcore.Order{
		ClOrdID: r.ClOrdID, OrderID: r.OrderID, AccountID: pend.accountID, Symbol: pend.instrumentID,
		Side: fromMatchingSide(r.Side), OrdType: matchingOrdTypeToFix(r.OrdType), TIF: matchingTIFToFix(r.TIF),
		Price: r.Price, OrderQty: r.OrderQty, CumQty: r.CumQty, LeavesQty: r.LeavesQty, AvgPx: r.AvgPx,
		Status: fromMatchingStatus(r.Status), UpdateTime: r.TransactTime,
	}
	if err := g.store.SaveOrder(order); err != nil {
		log.Printf("gateway: persist filled order %s: %v", r.ClOrdID, err)
	}

	execID := g.nextExecID()
	if err := g.store.SaveTrade(persistenceTrade(r, execID)); err != nil {
		log.Printf("gateway: persist trade for %s: %v", r.ClOrdID, err)
	}

	report := fixcore.ExecutionReport{
		Order: order, ExecID: execID, ExecTransType: fixcore.ExecTransNew,
		LastShares: r.LastShares, LastPx: r.LastPx, TransactTime: r.TransactTime,
	}
	g.sendToAccount(pend.accountID, buildExecutionReport(report))
	g.publish(events.EventOrderFilled, events.OrderFilled{
		AccountID: pend.accountID, InstrumentID: pend.instrumentID, ClOrdID: r.ClOrdID,
		LastShares: r.LastShares, LastPx: r.LastPx,
	})
}

func (g *Gateway) handleEngineCancel(r matching.Report) {
	pend := g.takePending(r.ClOrdID)
	if pend != nil {
		remainingQty := pend.originalQty - pend.confirmedQty
		remainingFrozen := 0.0
		if pend.originalQty > 0 {
			remainingFrozen = pend.originalFrozen * (remainingQty / pend.originalQty)
		}
		g.accounts.UnfreezeMargin(pend.accountID, remainingFrozen)
		g.dropPending(r.ClOrdID)
	}

	accountID := r.AccountID
	if pend != nil {
		accountID = pend.accountID
	}
	order := fixcore.Order{
		ClOrdID: r.ClOrdID, OrderID: r.OrderID, AccountID: accountID, Symbol: r.InstrumentID,
		Side: fromMatchingSide(r.Side), OrdType: matchingOrdTypeToFix(r.OrdType), TIF: matchingTIFToFix(r.TIF),
		Price: r.Price, OrderQty: r.OrderQty, CumQty: r.CumQty, LeavesQty: 0, AvgPx: r.AvgPx,
		Status: fixcore.StatusCanceled, UpdateTime: r.TransactTime,
	}
	report := fixcore.ExecutionReport{
		Order: order, ExecID: g.nextExecID(), ExecTransType: fixcore.ExecTransCancel,
		Text: r.Text, TransactTime: r.TransactTime,
	}
	g.sendToAccount(accountID, buildExecutionReport(report))
	g.publish(events.EventOrderCanceled, events.RiskAlert{
		AccountID: accountID, InstrumentID: r.InstrumentID, ClOrdID: r.ClOrdID, Reason: r.Text,
	})
}

func (g *Gateway) handleEngineReject(r matching.Report) {
	pend := g.takePending(r.ClOrdID)
	accountID := r.AccountID
	if pend != nil {
		g.accounts.UnfreezeMargin(pend.accountID, pend.originalFrozen)
		g.dropPending(r.ClOrdID)
		accountID = pend.accountID
	}

	order := fixcore.Order{
		ClOrdID: r.ClOrdID, AccountID: accountID, Symbol: r.InstrumentID,
		Side: fromMatchingSide(r.Side), OrdType: matchingOrdTypeToFix(r.OrdType), TIF: matchingTIFToFix(r.TIF),
		Price: r.Price, OrderQty: r.OrderQty, Status: fixcore.StatusRejected, UpdateTime: r.TransactTime,
	}
	report := fixcore.ExecutionReport{
		Order: order, ExecID: g.nextExecID(), ExecTransType: fixcore.ExecTransNew,
		OrdRejReason: fromMatchingRejReason(r.RejReason), Text: r.Text, TransactTime: r.TransactTime,
	}
	g.sendToAccount(accountID, buildExecutionReport(report))
	g.publish(events.EventRiskAlert, events.RiskAlert{
		AccountID: accountID, InstrumentID: r.InstrumentID, ClOrdID: r.ClOrdID, Reason: r.Text,
	})
}

// sendToAccount looks up the session currently bound to accountID. An
// account can only be bound to one session at a time in this design (one
// live connection per trading identity); if none is connected the report
// is dropped, matching Registry.SendMessage's own silent-drop contract.
func (g *Gateway) sendToAccount(accountID string, msg fixwire.Message) {
	g.mu.Lock()
	var sessionID fixcore.SessionID
	found := false
	for sid, acct := range g.sessionAccount {
		if acct == accountID {
			sessionID, found = sid, true
			break
		}
	}
	g.mu.Unlock()
	if !found {
		log.Printf("gateway: no connected session for account %s, dropping report", accountID)
		return
	}
	g.send(sessionID, msg)
}

func buildExecutionReport(r fixcore.ExecutionReport) fixwire.Message {
	msg := fixwire.Message{}
	msg.Set(fixwire.TagMsgType, MsgTypeExecutionReport)
	msg.Set(TagClOrdID, r.ClOrdID)
	msg.Set(TagOrderID, r.OrderID)
	msg.Set(TagSymbol, r.Symbol)
	msg.Set(TagSide, sideToFIX(r.Side))
	msg.Set(TagExecID, r.ExecID)
	msg.Set(TagExecTransType, execTransTypeToFIX(r.ExecTransType))
	msg.Set(TagOrdStatus, ordStatusToFIX(r.Status))
	msg.SetFloat(TagOrderQty, r.OrderQty, 4)
	msg.SetFloat(TagCumQty, r.CumQty, 4)
	msg.SetFloat(TagLeavesQty, r.LeavesQty, 4)
	msg.SetFloat(TagAvgPx, r.AvgPx, 4)
	msg.SetFloat(TagLastShares, r.LastShares, 4)
	msg.SetFloat(TagLastPx, r.LastPx, 4)
	if r.OrdRejReason != fixcore.RejNone {
		msg.SetInt(TagOrdRejReason, int(r.OrdRejReason))
	}
	if r.Text != "" {
		msg.Set(TagText, r.Text)
	}
	return msg
}

func persistenceTrade(r matching.Report, execID string) persistence.Trade {
	return persistence.Trade{
		TradeID: execID, ClOrdID: r.ClOrdID, ExecID: execID,
		LastShares: r.LastShares, LastPx: r.LastPx, TradeTime: r.TransactTime,
	}
}

func matchingOrdTypeToFix(t matching.OrdType) fixcore.OrdType {
	if t == matching.OrdTypeMarket {
		return fixcore.OrdTypeMarket
	}
	return fixcore.OrdTypeLimit
}

func matchingTIFToFix(t matching.TIF) fixcore.TIF {
	switch t {
	case matching.TIFGTC:
		return fixcore.TIFGTC
	case matching.TIFIOC:
		return fixcore.TIFIOC
	case matching.TIFFOK:
		return fixcore.TIFFOK
	default:
		return fixcore.TIFDay
	}
}
